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

// Gateway webhook types the engine reacts to.
const (
	EventInvoicePaid                  = "invoice.paid"
	EventInvoicePaymentFailed         = "invoice.payment_failed"
	EventInvoicePaymentActionRequired = "invoice.payment_action_required"
	EventPaymentIntentSucceeded       = "payment_intent.succeeded"
	EventPaymentIntentProcessing      = "payment_intent.processing"
	EventPaymentIntentRequiresAction  = "payment_intent.requires_action"
	EventPaymentIntentCanceled        = "payment_intent.canceled"
	EventPaymentIntentPaymentFailed   = "payment_intent.payment_failed"
)

// eventStatus maps a webhook to the status it reports. ok is false for
// events the engine does not handle.
func eventStatus(event *domain.GatewayEvent) (status domain.PaymentStatus, ok bool, err error) {
	switch event.Type {
	case EventInvoicePaid:
		return domain.StatusSucceeded, true, nil
	case EventInvoicePaymentFailed, EventPaymentIntentPaymentFailed:
		return domain.StatusFailed, true, nil
	case EventInvoicePaymentActionRequired:
		return domain.StatusRequiresAction, true, nil
	case EventPaymentIntentSucceeded:
		return translateEvent(event.Status, domain.ChargeSucceeded)
	case EventPaymentIntentProcessing:
		return translateEvent(event.Status, domain.ChargeProcessing)
	case EventPaymentIntentRequiresAction:
		return translateEvent(event.Status, domain.ChargeRequiresAction)
	case EventPaymentIntentCanceled:
		return translateEvent(event.Status, domain.ChargeCanceled)
	}
	return "", false, nil
}

func translateEvent(objectStatus, fallback string) (domain.PaymentStatus, bool, error) {
	if objectStatus == "" {
		objectStatus = fallback
	}
	status, err := domain.TranslateChargeStatus(objectStatus)
	if err != nil {
		return "", true, err
	}
	return status, true, nil
}

// ProcessGatewayEvent applies an out-of-band webhook. Duplicates and events
// for unknown requests are acknowledged without side effects; events that
// arrive after the attempt settled only extend the history.
func (uc *DefaultPaymentUsecase) ProcessGatewayEvent(ctx context.Context, event *domain.GatewayEvent) (output *paymentdto.EventOutput, err error) {
	start := time.Now()
	ctx, span := uc.tracer.Start(ctx, "ProcessGatewayEvent")
	defer func() {
		uc.observe("process_gateway_event", start, err)
		if err != nil {
			span.RecordError(err)
		}
		span.End()
	}()

	if event == nil || event.ID == "" || event.Type == "" {
		return nil, fmt.Errorf("%w: event id and type are required", domain.ErrInvalidInput)
	}
	span.SetAttributes(
		attribute.String("gateway_event.id", event.ID),
		attribute.String("gateway_event.type", event.Type),
	)

	status, handled, err := eventStatus(event)
	if !handled {
		uc.log.Debug("gateway event ignored", "event_id", event.ID, "type", event.Type)
		return &paymentdto.EventOutput{Ignored: true}, nil
	}
	if err != nil {
		uc.recordUnmappedStatus(event.Status)
		return nil, err
	}

	if uc.Dedup != nil {
		seen, err := uc.Dedup.Seen(ctx, event.ID)
		if err != nil {
			uc.log.Warn("event dedup unavailable", "event_id", event.ID, "error", err)
		} else if seen {
			uc.log.Info("duplicate gateway event skipped", "event_id", event.ID)
			return &paymentdto.EventOutput{Duplicate: true}, nil
		}
	}

	output, err = uc.applyEvent(ctx, event, status)
	if err != nil && uc.Dedup != nil {
		if ferr := uc.Dedup.Forget(context.WithoutCancel(ctx), event.ID); ferr != nil {
			uc.log.Warn("failed to clear event dedup mark", "event_id", event.ID, "error", ferr)
		}
	}
	return output, err
}

func (uc *DefaultPaymentUsecase) applyEvent(ctx context.Context, event *domain.GatewayEvent, status domain.PaymentStatus) (*paymentdto.EventOutput, error) {
	requestID, err := uc.eventRequestID(ctx, event)
	if errors.Is(err, domain.ErrNotFound) {
		uc.log.Warn("gateway event does not match any payment request",
			"event_id", event.ID,
			"type", event.Type,
			"object_id", event.ObjectID,
		)
		return &paymentdto.EventOutput{Ignored: true}, nil
	}
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

	sctx, cancel := uc.storeCtx(ctx)
	org, err := uc.Ledger.GetOrganization(sctx, req.OrganizationID)
	cancel()
	if err != nil {
		return nil, err
	}

	superseded := supersededCharge(req, event)
	if superseded && status == domain.StatusSucceeded {
		return uc.captureSuperseded(ctx, org, req, event)
	}
	stale := superseded || !domain.CanTransition(req.Status, status)

	cp := domain.Checkpoint{
		Name:    "event." + event.Type,
		Status:  status,
		Payload: rawOf(event.Raw, event),
	}
	if stale {
		cp.Status = ""
	} else {
		cp.GatewayChargeID = event.ChargeID
		cp.GatewayInvoiceID = event.InvoiceID
	}

	updated, err := uc.checkpoint(ctx, org, req.ID, cp)
	if err != nil {
		return nil, err
	}

	output := &paymentdto.EventOutput{
		PaymentRequestID: updated.ID,
		Status:           updated.Status,
		Stale:            stale,
	}
	if stale {
		uc.log.Info("stale gateway event recorded",
			"event_id", event.ID,
			"payment_request_id", updated.ID,
			"status", updated.Status,
			"event_status", status,
			"superseded", superseded,
		)
		return output, nil
	}
	uc.recordStatus(status)

	if updated.Status == domain.StatusRequiresAction && updated.GatewayChargeID != "" {
		gctx, cancel := uc.gatewayCtx(ctx)
		charge, err := uc.Gateway.RetrieveCharge(gctx, chargeAccount(org), updated.GatewayChargeID)
		cancel()
		if err != nil {
			uc.recordGatewayError("retrieve_charge")
			uc.log.Warn("could not load charge for notification", "payment_request_id", updated.ID, "error", err)
			output.Notification = paymentdto.NotificationResult{Error: err.Error()}
			return output, nil
		}
		output.Notification = uc.notifyActionRequired(ctx, updated, charge)
	}
	return output, nil
}

// supersededCharge reports whether the event is about a charge made for an
// earlier attempt than the current one.
func supersededCharge(req *domain.PaymentRequest, event *domain.GatewayEvent) bool {
	if event.ChargeID == "" || req.GatewayChargeID == "" {
		return false
	}
	return event.ChargeID != req.GatewayChargeID || !req.HasChargeForAttempt()
}

// captureSuperseded settles a request from a charge it had moved past. The
// open charge of the current attempt is cancelled on a best effort basis.
func (uc *DefaultPaymentUsecase) captureSuperseded(ctx context.Context, org *domain.Organization, req *domain.PaymentRequest, event *domain.GatewayEvent) (*paymentdto.EventOutput, error) {
	if req.Status == domain.StatusSucceeded {
		uc.log.Error("payment captured twice",
			"event_id", event.ID,
			"payment_request_id", req.ID,
			"charge_id", req.GatewayChargeID,
			"superseded_charge_id", event.ChargeID,
		)
		updated, err := uc.checkpoint(ctx, org, req.ID, domain.Checkpoint{
			Name:    "event." + event.Type,
			Payload: rawOf(event.Raw, event),
		})
		if err != nil {
			return nil, err
		}
		return &paymentdto.EventOutput{
			PaymentRequestID: updated.ID,
			Status:           updated.Status,
			Stale:            true,
			DoubleCapture:    true,
		}, nil
	}

	open := ""
	if org.SettlementModel == domain.SettlementDirect && req.HasChargeForAttempt() &&
		req.GatewayChargeID != event.ChargeID && !req.Status.IsTerminal() {
		open = req.GatewayChargeID
	}

	updated, err := uc.checkpoint(ctx, org, req.ID, domain.Checkpoint{
		Name:             CheckpointChargeCaptured,
		Status:           domain.StatusSucceeded,
		GatewayChargeID:  event.ChargeID,
		GatewayInvoiceID: event.InvoiceID,
		Payload:          rawOf(event.Raw, event),
		Captured:         true,
	})
	if err != nil {
		return nil, err
	}
	uc.recordStatus(domain.StatusSucceeded)
	uc.log.Warn("payment request settled by superseded charge",
		"event_id", event.ID,
		"payment_request_id", updated.ID,
		"charge_id", event.ChargeID,
		"retry_attempt", updated.RetryAttempt,
	)

	if open != "" {
		gctx, cancel := uc.gatewayCtx(ctx)
		_, err := uc.Gateway.CancelCharge(gctx, "", open)
		cancel()
		if err != nil {
			uc.recordGatewayError("cancel_charge")
			uc.log.Error("failed to cancel open charge after late capture",
				"payment_request_id", updated.ID,
				"charge_id", open,
				"error", err,
			)
		}
	}

	return &paymentdto.EventOutput{
		PaymentRequestID: updated.ID,
		Status:           updated.Status,
		Reconciled:       true,
	}, nil
}

func (uc *DefaultPaymentUsecase) eventRequestID(ctx context.Context, event *domain.GatewayEvent) (string, error) {
	if id := event.Metadata[domain.MetadataPaymentRequestID]; id != "" {
		return id, nil
	}

	for _, gatewayID := range []string{event.InvoiceID, event.ChargeID, event.ObjectID} {
		if gatewayID == "" {
			continue
		}
		sctx, cancel := uc.storeCtx(ctx)
		req, err := uc.Ledger.FindPaymentRequestByGatewayID(sctx, gatewayID)
		cancel()
		if err == nil {
			return req.ID, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return "", err
		}
	}
	return "", domain.ErrNotFound
}

// chargeAccount is the account a charge lives on: the connected account for
// invoices, the platform for direct charges.
func chargeAccount(org *domain.Organization) string {
	if org.SettlementModel == domain.SettlementStandard {
		return org.GatewayAccountID
	}
	return ""
}
