package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/LavaJover/shvark-payment-service/internal/domain"
	paymentdto "github.com/LavaJover/shvark-payment-service/internal/usecase/dto/payment"
	"github.com/google/uuid"
)

// InitiateOrReattempt reuses the request already tracked for the cart, so a
// resubmitted card never produces a second row for the same order. A new
// request is only recorded and linked; its ledger insert event hands it to
// ProcessNewRequest. A reattempt has no such event and is driven here.
func (uc *DefaultPaymentUsecase) InitiateOrReattempt(ctx context.Context, input *paymentdto.InitiateInput) (output *paymentdto.InitiateOutput, err error) {
	start := time.Now()
	ctx, span := uc.tracer.Start(ctx, "InitiateOrReattempt")
	defer func() {
		uc.observe("initiate_or_reattempt", start, err)
		if err != nil {
			span.RecordError(err)
		}
		span.End()
	}()

	if err := validateInitiate(input); err != nil {
		return nil, err
	}

	org, err := uc.loadOrganization(ctx, input.OrganizationID)
	if err != nil {
		return nil, err
	}

	unlockCart, err := uc.lock(ctx, "cart:"+org.ID+":"+input.Cart.ID)
	if err != nil {
		return nil, err
	}
	defer unlockCart()

	sctx, cancel := uc.storeCtx(ctx)
	existing, err := uc.Ledger.FindPaymentRequest(sctx, org.ID, input.Cart.ID)
	cancel()

	switch {
	case err == nil:
		return uc.reattempt(ctx, org, existing, input)
	case errors.Is(err, domain.ErrNotFound):
		return uc.initiate(ctx, org, input)
	}
	return nil, err
}

func validateInitiate(input *paymentdto.InitiateInput) error {
	switch {
	case input == nil:
		return fmt.Errorf("%w: empty initiate request", domain.ErrInvalidInput)
	case input.OrganizationID == "":
		return fmt.Errorf("%w: organizationId is required", domain.ErrInvalidInput)
	case input.Cart.ID == "":
		return fmt.Errorf("%w: cart id is required", domain.ErrInvalidInput)
	case input.Cart.Amount <= 0:
		return fmt.Errorf("%w: cart amount must be positive", domain.ErrInvalidInput)
	case input.Customer.PaymentMethod == "":
		return fmt.Errorf("%w: payment method is required", domain.ErrInvalidInput)
	}
	return nil
}

func (uc *DefaultPaymentUsecase) reattempt(ctx context.Context, org *domain.Organization, existing *domain.PaymentRequest, input *paymentdto.InitiateInput) (*paymentdto.InitiateOutput, error) {
	unlock, err := uc.lock(ctx, existing.ID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	current, err := uc.getRequest(ctx, existing.ID)
	if err != nil {
		return nil, err
	}
	if current.Status == domain.StatusSucceeded {
		return nil, fmt.Errorf("payment request %s: %w", current.ID, domain.ErrAlreadySettled)
	}
	if org.SettlementModel == domain.SettlementDirect {
		if err := uc.supersedeCharge(ctx, org, current); err != nil {
			return nil, err
		}
	}

	sctx, cancel := uc.storeCtx(ctx)
	req, err := uc.Ledger.Reattempt(sctx, current.ID, input.Customer.PaymentMethod)
	cancel()
	if err != nil {
		uc.recordStoreWriteError(domain.LedgerStoreName)
		return nil, &domain.StoreWriteError{Store: domain.LedgerStoreName, Op: "reattempt", Err: err}
	}
	uc.log.Info("payment request reattempted",
		"payment_request_id", req.ID,
		"transfer_group", req.TransferGroup,
		"retry_attempt", req.RetryAttempt,
	)

	result, err := uc.drive(ctx, org, req)
	return &paymentdto.InitiateOutput{PaymentRequest: req, Result: result}, err
}

func (uc *DefaultPaymentUsecase) initiate(ctx context.Context, org *domain.Organization, input *paymentdto.InitiateInput) (*paymentdto.InitiateOutput, error) {
	req := &domain.PaymentRequest{
		ID:                 uuid.NewString(),
		OrganizationID:     org.ID,
		Amount:             input.Cart.Amount,
		Currency:           org.Currency,
		SettlementModel:    org.SettlementModel,
		PaymentMethodToken: input.Customer.PaymentMethod,
		CustomerGatewayID:  input.Customer.GatewayCustomerID,
		TransferGroup:      input.Cart.ID,
		Status:             domain.StatusPending,
	}
	if org.SettlementModel == domain.SettlementDirect {
		req.TransferAmount = domain.TransferAmount(req.Amount, org.Fees)
	}

	unlock, err := uc.lock(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	sctx, cancel := uc.storeCtx(ctx)
	err = uc.Ledger.CreatePaymentRequest(sctx, req)
	cancel()
	if err != nil {
		uc.recordStoreWriteError(domain.LedgerStoreName)
		return nil, &domain.StoreWriteError{Store: domain.LedgerStoreName, Op: "create_payment_request", Err: err}
	}

	if err := uc.linkOrder(ctx, org, req); err != nil {
		uc.recordStoreWriteError(domain.OrderStoreName)
		storeErr := &domain.StoreWriteError{Store: domain.OrderStoreName, Op: "link_payment", Err: err}
		if policyErr := uc.SyncPolicy.Defer(ctx, req, storeErr); policyErr != nil {
			uc.log.Error("failed to defer order sync", "payment_request_id", req.ID, "error", policyErr)
		}
		return &paymentdto.InitiateOutput{PaymentRequest: req, Created: true}, storeErr
	}

	uc.log.Info("payment request initiated",
		"payment_request_id", req.ID,
		"transfer_group", req.TransferGroup,
		"settlement_model", req.SettlementModel,
	)
	return &paymentdto.InitiateOutput{PaymentRequest: req, Created: true}, nil
}

// supersedeCharge cancels the direct charge of the attempt being replaced.
// A charge that already succeeded settles the request instead.
func (uc *DefaultPaymentUsecase) supersedeCharge(ctx context.Context, org *domain.Organization, req *domain.PaymentRequest) error {
	if !req.HasChargeForAttempt() || req.Status == domain.StatusCancelled {
		return nil
	}

	gctx, cancel := uc.gatewayCtx(ctx)
	charge, cancelErr := uc.Gateway.CancelCharge(gctx, "", req.GatewayChargeID)
	cancel()
	if cancelErr != nil {
		uc.log.Warn("cancel of superseded charge failed", "payment_request_id", req.ID, "charge_id", req.GatewayChargeID, "error", cancelErr)
		// refused or lost; the charge itself tells which
		gctx, cancel := uc.gatewayCtx(ctx)
		current, err := uc.Gateway.RetrieveCharge(gctx, "", req.GatewayChargeID)
		cancel()
		if err != nil {
			return uc.gatewayErr("cancel_charge", cancelErr)
		}
		charge = current
	}

	status, err := domain.TranslateChargeStatus(charge.Status)
	switch {
	case err == nil && status == domain.StatusCancelled:
		_, err := uc.checkpoint(ctx, org, req.ID, domain.Checkpoint{
			Name:    CheckpointChargeSuperseded,
			Status:  domain.StatusCancelled,
			Payload: rawOf(charge.Raw, charge),
		})
		if err != nil && !domain.IsOrderStoreFailure(err) {
			return err
		}
		uc.log.Info("superseded charge cancelled", "payment_request_id", req.ID, "charge_id", charge.ID)
		return nil
	case err == nil && status == domain.StatusSucceeded:
		if _, err := uc.applyCharge(ctx, org, req, charge, CheckpointChargeRetrieved); err != nil && !domain.IsOrderStoreFailure(err) {
			return err
		}
		return fmt.Errorf("payment request %s: charge %s captured: %w", req.ID, charge.ID, domain.ErrAlreadySettled)
	case cancelErr != nil && (err != nil || status != domain.StatusProcessing):
		return uc.gatewayErr("cancel_charge", cancelErr)
	}
	uc.log.Warn("previous charge still in flight",
		"payment_request_id", req.ID,
		"charge_id", charge.ID,
		"gateway_status", charge.Status,
	)
	return fmt.Errorf("payment request %s: charge %s is %s: %w", req.ID, charge.ID, charge.Status, domain.ErrChargeInFlight)
}

func (uc *DefaultPaymentUsecase) linkOrder(ctx context.Context, org *domain.Organization, req *domain.PaymentRequest) error {
	if org.OrderStoreURL == "" {
		return fmt.Errorf("organization %s has no order store", org.ID)
	}
	store := uc.OrderStores(org.OrderStoreURL, org.OrderStoreSecret)

	sctx, cancel := uc.storeCtx(ctx)
	defer cancel()
	return store.LinkPayment(sctx, req.TransferGroup, req.ID)
}
