package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/LavaJover/shvark-payment-service/internal/domain"
	paymentdto "github.com/LavaJover/shvark-payment-service/internal/usecase/dto/payment"
)

var errNoPaymentReference = errors.New("invoice has no payment reference")

func (uc *DefaultPaymentUsecase) driveStandard(ctx context.Context, org *domain.Organization, req *domain.PaymentRequest) (*paymentdto.GatewayResult, error) {
	inv, req, err := uc.ensureInvoice(ctx, org, req)
	if err != nil {
		return nil, err
	}
	return uc.settleInvoice(ctx, org, req, inv, false)
}

// ensureInvoice resumes from a persisted invoice id and only creates an
// invoice when none was recorded for the request.
func (uc *DefaultPaymentUsecase) ensureInvoice(ctx context.Context, org *domain.Organization, req *domain.PaymentRequest) (*domain.Invoice, *domain.PaymentRequest, error) {
	gctx, cancel := uc.gatewayCtx(ctx)
	defer cancel()

	if req.GatewayInvoiceID != "" {
		inv, err := uc.Gateway.RetrieveInvoice(gctx, org.GatewayAccountID, req.GatewayInvoiceID)
		if err != nil {
			return nil, nil, uc.gatewayErr("retrieve_invoice", err)
		}
		return inv, req, nil
	}

	inv, err := uc.Gateway.CreateInvoice(gctx, domain.InvoiceParams{
		Account:        org.GatewayAccountID,
		Customer:       req.CustomerGatewayID,
		Amount:         req.Amount,
		Currency:       req.Currency,
		PaymentMethod:  req.PaymentMethodToken,
		Description:    fmt.Sprintf("Order %s", req.TransferGroup),
		Metadata:       correlationMetadata(req),
		IdempotencyKey: req.ID + ":invoice",
	})
	if err != nil {
		return nil, nil, uc.gatewayErr("create_invoice", err)
	}

	req, err = uc.checkpoint(ctx, org, req.ID, domain.Checkpoint{
		Name:             CheckpointInvoiceCreated,
		GatewayInvoiceID: inv.ID,
		Payload:          rawOf(inv.Raw, inv),
	})
	if err != nil {
		return nil, nil, err
	}
	return inv, req, nil
}

// settleInvoice finalizes and pays the invoice as far as needed, then reads
// the resulting charge. Each gateway call is checkpointed. Unless repay is
// set, an invoice already paid for the current attempt is not paid again.
func (uc *DefaultPaymentUsecase) settleInvoice(ctx context.Context, org *domain.Organization, req *domain.PaymentRequest, inv *domain.Invoice, repay bool) (*paymentdto.GatewayResult, error) {
	account := org.GatewayAccountID
	var err error

	if inv.Status == domain.InvoiceStatusDraft {
		gctx, cancel := uc.gatewayCtx(ctx)
		inv, err = uc.Gateway.FinalizeInvoice(gctx, account, inv.ID)
		cancel()
		if err != nil {
			return nil, uc.gatewayErr("finalize_invoice", err)
		}
		req, err = uc.checkpoint(ctx, org, req.ID, domain.Checkpoint{
			Name:             CheckpointInvoiceFinalized,
			GatewayInvoiceID: inv.ID,
			Payload:          rawOf(inv.Raw, inv),
		})
		if err != nil {
			return nil, err
		}
	}

	if inv.Status == domain.InvoiceStatusVoid {
		req, err = uc.checkpoint(ctx, org, req.ID, domain.Checkpoint{
			Name:    CheckpointInvoiceVoided,
			Status:  domain.StatusCancelled,
			Payload: rawOf(inv.Raw, inv),
		})
		if err != nil {
			return nil, err
		}
		return &paymentdto.GatewayResult{
			PaymentRequestID: req.ID,
			Status:           req.Status,
			RetryAttempt:     req.RetryAttempt,
			Invoice:          inv,
		}, nil
	}

	attempted := req.HasChargeForAttempt() && inv.ChargeID == req.GatewayChargeID
	if inv.Status != domain.InvoiceStatusPaid && (repay || !attempted) {
		gctx, cancel := uc.gatewayCtx(ctx)
		inv, err = uc.Gateway.PayInvoice(gctx, account, inv.ID, req.PaymentMethodToken)
		cancel()
		if err != nil {
			return nil, uc.gatewayErr("pay_invoice", err)
		}
		req, err = uc.checkpoint(ctx, org, req.ID, domain.Checkpoint{
			Name:            CheckpointInvoicePaymentTry,
			GatewayChargeID: inv.ChargeID,
			Payload:         rawOf(inv.Raw, inv),
		})
		if err != nil {
			return nil, err
		}
	}

	if inv.ChargeID == "" {
		return nil, uc.gatewayErr("pay_invoice", &domain.GatewayError{Op: "pay_invoice", Err: errNoPaymentReference, Payload: inv.Raw})
	}

	gctx, cancel := uc.gatewayCtx(ctx)
	charge, err := uc.Gateway.RetrieveCharge(gctx, account, inv.ChargeID)
	cancel()
	if err != nil {
		return nil, uc.gatewayErr("retrieve_charge", err)
	}

	result, err := uc.applyCharge(ctx, org, req, charge, CheckpointChargeRetrieved)
	if err != nil {
		return nil, err
	}
	result.Invoice = inv
	return result, nil
}
