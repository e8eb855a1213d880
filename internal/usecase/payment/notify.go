package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/LavaJover/shvark-payment-service/internal/domain"
	paymentdto "github.com/LavaJover/shvark-payment-service/internal/usecase/dto/payment"
	"github.com/jaevor/go-nanoid"
)

const DefaultPhonePrefix = "+91"

const actionRequiredMessage = "Dear %s, your payment requires additional action, please use the following link to complete your payment. \n Link: %s"

const (
	SkipNotifierDisabled = "notifier disabled"
	SkipMissingURL       = "action url is missing"
	SkipNoContact        = "customer contact unavailable"
	SkipNoPhone          = "customer has no phone number"
)

// RenderActionMessage builds the SMS body, falling back to "customer" when
// no name is known.
func RenderActionMessage(name, url string) string {
	if name == "" {
		name = "customer"
	}
	return fmt.Sprintf(actionRequiredMessage, name, url)
}

// notifyActionRequired tells the customer where to finish the payment. It
// never fails the surrounding operation.
func (uc *DefaultPaymentUsecase) notifyActionRequired(ctx context.Context, req *domain.PaymentRequest, charge *domain.Charge) paymentdto.NotificationResult {
	if uc.Notifier == nil {
		return uc.skipNotification(req, SkipNotifierDisabled)
	}

	url := ""
	if charge != nil {
		url = charge.NextAction.ActionURL()
	}
	if url == "" {
		return uc.skipNotification(req, SkipMissingURL)
	}

	sctx, cancel := uc.storeCtx(ctx)
	contact, err := uc.Ledger.GetCustomerContact(sctx, req.PaymentMethodToken)
	cancel()
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			uc.log.Warn("customer contact lookup failed", "payment_request_id", req.ID, "error", err)
		}
		return uc.skipNotification(req, SkipNoContact)
	}
	if contact.PhoneNumber == "" {
		return uc.skipNotification(req, SkipNoPhone)
	}

	idGenerator, err := nanoid.Standard(21)
	if err != nil {
		return uc.failNotification(req, err)
	}

	n := domain.Notification{
		ID:      idGenerator(),
		Phone:   uc.phoneNumber(contact.PhoneNumber),
		Message: RenderActionMessage(contact.DisplayName(), url),
	}

	nctx, cancel := withTimeout(ctx, uc.opts.Timeouts.Notification)
	defer cancel()
	if err := uc.Notifier.Send(nctx, n); err != nil {
		return uc.failNotification(req, err)
	}

	uc.recordNotification("sent")
	uc.log.Info("action required notification sent", "payment_request_id", req.ID, "notification_id", n.ID)
	return paymentdto.NotificationResult{Sent: true}
}

func (uc *DefaultPaymentUsecase) skipNotification(req *domain.PaymentRequest, reason string) paymentdto.NotificationResult {
	uc.recordNotification("skipped")
	uc.log.Info("action required notification skipped", "payment_request_id", req.ID, "reason", reason)
	return paymentdto.NotificationResult{Skipped: reason}
}

func (uc *DefaultPaymentUsecase) failNotification(req *domain.PaymentRequest, err error) paymentdto.NotificationResult {
	uc.recordNotification("failed")
	uc.log.Error("failed to send action required notification", "payment_request_id", req.ID, "error", err)
	return paymentdto.NotificationResult{Error: err.Error()}
}

func (uc *DefaultPaymentUsecase) phoneNumber(number string) string {
	if strings.HasPrefix(number, "+") {
		return number
	}
	return uc.opts.PhonePrefix + number
}
