package usecase

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/LavaJover/shvark-payment-service/internal/domain"
	"github.com/jaevor/go-nanoid"
)

const (
	CheckpointChargeCreated     = "charge.created"
	CheckpointChargeRetrieved   = "charge.retrieved"
	CheckpointChargeSuperseded  = "charge.superseded"
	CheckpointChargeCaptured    = "charge.captured_late"
	CheckpointInvoiceCreated    = "invoice.created"
	CheckpointInvoiceLinked     = "invoice.linked"
	CheckpointInvoiceFinalized  = "invoice.finalized"
	CheckpointInvoicePaymentTry = "invoice.payment_attempted"
	CheckpointInvoiceVoided     = "invoice.voided"
)

// checkpoint persists what one gateway call learned. The ledger is written
// first; an order store failure leaves the ledger entry in place and is
// handed to the sync policy before it is returned.
func (uc *DefaultPaymentUsecase) checkpoint(ctx context.Context, org *domain.Organization, requestID string, cp domain.Checkpoint) (*domain.PaymentRequest, error) {
	sctx, cancel := uc.storeCtx(ctx)
	req, err := uc.Ledger.RecordCheckpoint(sctx, requestID, cp)
	cancel()
	if err != nil {
		uc.recordStoreWriteError(domain.LedgerStoreName)
		uc.log.Error("ledger checkpoint failed", "payment_request_id", requestID, "checkpoint", cp.Name, "error", err)
		return nil, &domain.StoreWriteError{Store: domain.LedgerStoreName, Op: cp.Name, Err: err}
	}
	uc.recordCheckpoint(cp.Name, req.SettlementModel)

	defer uc.publishEvent(ctx, req, cp.Name)

	if err := uc.syncOrder(ctx, org, req); err != nil {
		uc.recordStoreWriteError(domain.OrderStoreName)
		storeErr := &domain.StoreWriteError{Store: domain.OrderStoreName, Op: cp.Name, Err: err}
		uc.log.Error("order store write failed",
			"payment_request_id", req.ID,
			"transfer_group", req.TransferGroup,
			"checkpoint", cp.Name,
			"error", err,
		)
		if policyErr := uc.SyncPolicy.Defer(ctx, req, storeErr); policyErr != nil {
			uc.log.Error("failed to defer order sync", "payment_request_id", req.ID, "error", policyErr)
		}
		return req, storeErr
	}

	return req, nil
}

// syncOrder rewrites the order row from the ledger row.
func (uc *DefaultPaymentUsecase) syncOrder(ctx context.Context, org *domain.Organization, req *domain.PaymentRequest) error {
	if org == nil || org.ID != req.OrganizationID {
		sctx, cancel := uc.storeCtx(ctx)
		found, err := uc.Ledger.GetOrganization(sctx, req.OrganizationID)
		cancel()
		if err != nil {
			return fmt.Errorf("resolve order store: %w", err)
		}
		org = found
	}
	if org.OrderStoreURL == "" {
		return fmt.Errorf("organization %s has no order store", org.ID)
	}

	store := uc.OrderStores(org.OrderStoreURL, org.OrderStoreSecret)

	sctx, cancel := uc.storeCtx(ctx)
	defer cancel()
	return store.UpdatePayment(sctx, domain.NewOrderUpdate(req, uc.opts.Now()))
}

func (uc *DefaultPaymentUsecase) publishEvent(ctx context.Context, req *domain.PaymentRequest, checkpoint string) {
	if uc.Publisher == nil {
		return
	}

	idGenerator, err := nanoid.Standard(21)
	if err != nil {
		uc.log.Error("failed to create event id generator", "error", err)
		return
	}

	event := domain.PaymentEvent{
		EventID:          idGenerator(),
		PaymentRequestID: req.ID,
		OrganizationID:   req.OrganizationID,
		TransferGroup:    req.TransferGroup,
		Status:           req.Status,
		RetryAttempt:     req.RetryAttempt,
		Checkpoint:       checkpoint,
		OccurredAt:       uc.opts.Now(),
	}

	pctx, cancel := withTimeout(context.WithoutCancel(ctx), uc.opts.Timeouts.Store)
	defer cancel()
	if err := uc.Publisher.PublishPaymentEvent(pctx, event); err != nil {
		uc.log.Error("failed to publish payment event", "payment_request_id", req.ID, "checkpoint", checkpoint, "error", err)
	}
}

// rawOf prefers the payload exactly as the gateway sent it.
func rawOf(raw json.RawMessage, v any) json.RawMessage {
	if len(raw) > 0 {
		return raw
	}
	b, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage("null")
	}
	return b
}
