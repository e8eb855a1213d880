package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/LavaJover/shvark-payment-service/internal/domain"
	paymentdto "github.com/LavaJover/shvark-payment-service/internal/usecase/dto/payment"
	"go.opentelemetry.io/otel/attribute"
)

// RetryRequest pays an existing invoice again. It never creates an invoice
// and leaves a SUCCEEDED request untouched.
func (uc *DefaultPaymentUsecase) RetryRequest(ctx context.Context, input *paymentdto.RetryInput) (result *paymentdto.GatewayResult, err error) {
	start := time.Now()
	ctx, span := uc.tracer.Start(ctx, "RetryRequest")
	defer func() {
		uc.observe("retry_request", start, err)
		if err != nil {
			span.RecordError(err)
		}
		span.End()
	}()

	if input == nil || input.InvoiceID == "" {
		return nil, fmt.Errorf("%w: invoiceId is required", domain.ErrInvalidInput)
	}
	if input.OrganizationID == "" && input.GatewayAccountID == "" {
		return nil, fmt.Errorf("%w: organizationId or gatewayAccountId is required", domain.ErrInvalidInput)
	}
	span.SetAttributes(attribute.String("invoice.id", input.InvoiceID))

	account := input.GatewayAccountID
	var org *domain.Organization
	if account == "" {
		org, err = uc.loadOrganization(ctx, input.OrganizationID)
		if err != nil {
			return nil, err
		}
		account = org.GatewayAccountID
	}

	gctx, cancel := uc.gatewayCtx(ctx)
	inv, err := uc.Gateway.RetrieveInvoice(gctx, account, input.InvoiceID)
	cancel()
	if err != nil {
		return nil, uc.gatewayErr("retrieve_invoice", err)
	}

	org, err = uc.invoiceOrganization(ctx, inv, org, input.OrganizationID, account)
	if err != nil {
		return nil, err
	}

	requestID, err := uc.invoiceRequestID(ctx, inv)
	if err != nil {
		return nil, err
	}

	unlock, err := uc.lock(ctx, requestID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	req, err := uc.getRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.OrganizationID != org.ID {
		return nil, fmt.Errorf("%w: invoice %s belongs to another organization", domain.ErrInvalidInput, inv.ID)
	}

	if req.Status == domain.StatusSucceeded {
		return &paymentdto.GatewayResult{
			PaymentRequestID: req.ID,
			Status:           req.Status,
			RetryAttempt:     req.RetryAttempt,
			Invoice:          inv,
			NoOp:             true,
		}, nil
	}

	switch {
	case req.GatewayInvoiceID == "":
		req, err = uc.checkpoint(ctx, org, req.ID, domain.Checkpoint{
			Name:             CheckpointInvoiceLinked,
			GatewayInvoiceID: inv.ID,
			Payload:          rawOf(inv.Raw, inv),
		})
		if err != nil {
			return nil, err
		}
	case req.GatewayInvoiceID != inv.ID:
		return nil, fmt.Errorf("%w: invoice %s does not belong to payment request %s", domain.ErrInvalidInput, inv.ID, req.ID)
	}

	// a failed or cancelled attempt is closed, the retry runs as a new one
	if req.Status.IsTerminal() {
		sctx, cancel := uc.storeCtx(ctx)
		req, err = uc.Ledger.Reattempt(sctx, req.ID, req.PaymentMethodToken)
		cancel()
		if err != nil {
			uc.recordStoreWriteError(domain.LedgerStoreName)
			return nil, &domain.StoreWriteError{Store: domain.LedgerStoreName, Op: "reattempt", Err: err}
		}
	}

	return uc.settleInvoice(ctx, org, req, inv, true)
}

// invoiceOrganization resolves the owner from the invoice metadata, falling
// back to the caller supplied identifiers.
func (uc *DefaultPaymentUsecase) invoiceOrganization(ctx context.Context, inv *domain.Invoice, known *domain.Organization, organizationID, account string) (*domain.Organization, error) {
	if id := inv.Metadata[domain.MetadataOrganizationID]; id != "" {
		organizationID = id
	}
	if known != nil && known.ID == organizationID {
		return known, nil
	}
	if organizationID != "" {
		return uc.loadOrganization(ctx, organizationID)
	}

	sctx, cancel := uc.storeCtx(ctx)
	defer cancel()
	org, err := uc.Ledger.GetOrganizationByGatewayAccount(sctx, account)
	if err != nil {
		return nil, err
	}
	if !org.Linked() {
		return nil, domain.ErrUnlinkedAccount
	}
	return org, nil
}

func (uc *DefaultPaymentUsecase) invoiceRequestID(ctx context.Context, inv *domain.Invoice) (string, error) {
	if id := inv.Metadata[domain.MetadataPaymentRequestID]; id != "" {
		return id, nil
	}
	sctx, cancel := uc.storeCtx(ctx)
	defer cancel()
	req, err := uc.Ledger.FindPaymentRequestByGatewayID(sctx, inv.ID)
	if err != nil {
		return "", fmt.Errorf("payment request for invoice %s: %w", inv.ID, err)
	}
	return req.ID, nil
}
