package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/LavaJover/shvark-payment-service/internal/domain"
	paymentdto "github.com/LavaJover/shvark-payment-service/internal/usecase/dto/payment"
	"go.opentelemetry.io/otel/attribute"
)

func (uc *DefaultPaymentUsecase) ProcessNewRequest(ctx context.Context, input *paymentdto.NewRequestInput) (result *paymentdto.GatewayResult, err error) {
	start := time.Now()
	ctx, span := uc.tracer.Start(ctx, "ProcessNewRequest")
	defer func() {
		uc.observe("process_new_request", start, err)
		if err != nil {
			span.RecordError(err)
		}
		span.End()
	}()

	if err := validateNewRequest(input); err != nil {
		return nil, err
	}
	span.SetAttributes(
		attribute.String("payment_request.id", input.ID),
		attribute.String("organization.id", input.OrganizationID),
	)

	unlock, err := uc.lock(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	org, err := uc.loadOrganization(ctx, input.OrganizationID)
	if err != nil {
		return nil, err
	}

	req, err := uc.ensureRequest(ctx, org, input)
	if err != nil {
		return nil, err
	}

	return uc.drive(ctx, org, req)
}

func validateNewRequest(input *paymentdto.NewRequestInput) error {
	if input == nil {
		return fmt.Errorf("%w: empty payment request", domain.ErrInvalidInput)
	}
	missing := func(field string) error {
		return fmt.Errorf("%w: %s is required", domain.ErrInvalidInput, field)
	}
	switch {
	case input.ID == "":
		return missing("id")
	case input.OrganizationID == "":
		return missing("organizationId")
	case input.TransferGroup == "":
		return missing("transferGroup")
	case input.PaymentMethodToken == "":
		return missing("paymentMethodToken")
	case input.CustomerGatewayID == "":
		return missing("customerGatewayId")
	case input.Amount <= 0:
		return fmt.Errorf("%w: amount must be positive", domain.ErrInvalidInput)
	}
	return nil
}

// ensureRequest loads the ledger row delivered by the event, creating it
// when the event arrived before (or instead of) the ledger insert.
func (uc *DefaultPaymentUsecase) ensureRequest(ctx context.Context, org *domain.Organization, input *paymentdto.NewRequestInput) (*domain.PaymentRequest, error) {
	req, err := uc.getRequest(ctx, input.ID)
	if err == nil {
		return req, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	currency := input.Currency
	if currency == "" {
		currency = org.Currency
	}
	req = &domain.PaymentRequest{
		ID:                 input.ID,
		OrganizationID:     org.ID,
		Amount:             input.Amount,
		Currency:           currency,
		SettlementModel:    org.SettlementModel,
		PaymentMethodToken: input.PaymentMethodToken,
		CustomerGatewayID:  input.CustomerGatewayID,
		TransferGroup:      input.TransferGroup,
		Status:             domain.StatusPending,
	}
	if org.SettlementModel == domain.SettlementDirect {
		req.TransferAmount = domain.TransferAmount(req.Amount, org.Fees)
	}

	sctx, cancel := uc.storeCtx(ctx)
	defer cancel()
	if err := uc.Ledger.CreatePaymentRequest(sctx, req); err != nil {
		uc.recordStoreWriteError(domain.LedgerStoreName)
		return nil, &domain.StoreWriteError{Store: domain.LedgerStoreName, Op: "create_payment_request", Err: err}
	}
	return req, nil
}

// drive pushes the request through the gateway for its current attempt. It
// is safe to repeat: a charge already made for the attempt is only read back.
// The caller holds the request lock.
func (uc *DefaultPaymentUsecase) drive(ctx context.Context, org *domain.Organization, req *domain.PaymentRequest) (*paymentdto.GatewayResult, error) {
	if req.Status.IsTerminal() {
		uc.log.Info("payment request already settled for this attempt",
			"payment_request_id", req.ID,
			"status", req.Status,
			"retry_attempt", req.RetryAttempt,
		)
		return &paymentdto.GatewayResult{
			PaymentRequestID: req.ID,
			Status:           req.Status,
			RetryAttempt:     req.RetryAttempt,
			NoOp:             true,
		}, nil
	}

	switch org.SettlementModel {
	case domain.SettlementDirect:
		return uc.driveDirect(ctx, org, req)
	case domain.SettlementStandard:
		return uc.driveStandard(ctx, org, req)
	}
	return nil, fmt.Errorf("%w: organization %s has unknown settlement model %q", domain.ErrInvalidInput, org.ID, org.SettlementModel)
}

func (uc *DefaultPaymentUsecase) driveDirect(ctx context.Context, org *domain.Organization, req *domain.PaymentRequest) (*paymentdto.GatewayResult, error) {
	gctx, cancel := uc.gatewayCtx(ctx)
	defer cancel()

	if req.HasChargeForAttempt() {
		charge, err := uc.Gateway.RetrieveCharge(gctx, "", req.GatewayChargeID)
		if err != nil {
			return nil, uc.gatewayErr("retrieve_charge", err)
		}
		return uc.applyCharge(ctx, org, req, charge, CheckpointChargeRetrieved)
	}

	charge, err := uc.Gateway.CreateCharge(gctx, domain.ChargeParams{
		Amount:         req.Amount,
		TransferAmount: req.TransferAmount,
		Currency:       req.Currency,
		Customer:       req.CustomerGatewayID,
		PaymentMethod:  req.PaymentMethodToken,
		OnBehalfOf:     org.GatewayAccountID,
		TransferGroup:  req.TransferGroup,
		Confirm:        true,
		Metadata:       correlationMetadata(req),
		IdempotencyKey: fmt.Sprintf("%s:%d:charge", req.ID, req.RetryAttempt),
	})
	if err != nil {
		return nil, uc.gatewayErr("create_charge", err)
	}
	return uc.applyCharge(ctx, org, req, charge, CheckpointChargeCreated)
}

// applyCharge translates the charge status and checkpoints it. An unmapped
// status still records the charge id and payload before failing.
func (uc *DefaultPaymentUsecase) applyCharge(ctx context.Context, org *domain.Organization, req *domain.PaymentRequest, charge *domain.Charge, name string) (*paymentdto.GatewayResult, error) {
	cp := domain.Checkpoint{
		Name:            name,
		GatewayChargeID: charge.ID,
		Payload:         rawOf(charge.Raw, charge),
	}

	status, err := domain.TranslateChargeStatus(charge.Status)
	if err != nil {
		uc.recordUnmappedStatus(charge.Status)
		uc.log.Error("gateway returned unmapped charge status",
			"payment_request_id", req.ID,
			"charge_id", charge.ID,
			"gateway_status", charge.Status,
		)
		if _, cpErr := uc.checkpoint(ctx, org, req.ID, cp); cpErr != nil {
			return nil, errors.Join(err, cpErr)
		}
		return nil, err
	}
	uc.recordStatus(status)

	cp.Status = status
	updated, err := uc.checkpoint(ctx, org, req.ID, cp)
	if err != nil {
		return nil, err
	}

	result := &paymentdto.GatewayResult{
		PaymentRequestID: updated.ID,
		Status:           updated.Status,
		RetryAttempt:     updated.RetryAttempt,
		Charge:           charge,
	}
	if updated.Status == domain.StatusRequiresAction {
		result.Notification = uc.notifyActionRequired(ctx, updated, charge)
	}
	return result, nil
}

func correlationMetadata(req *domain.PaymentRequest) map[string]string {
	return map[string]string{
		domain.MetadataOrganizationID:   req.OrganizationID,
		domain.MetadataTransferGroup:    req.TransferGroup,
		domain.MetadataPaymentRequestID: req.ID,
	}
}
