package graphql

import (
	"context"
	"errors"

	"github.com/LavaJover/shvark-payment-service/internal/domain"
)

// SMSNotifier sends notifications through the platform sendSMS mutation.
type SMSNotifier struct {
	remote domain.RemoteStore
}

func NewSMSNotifier(remote domain.RemoteStore) *SMSNotifier {
	return &SMSNotifier{remote: remote}
}

func (n *SMSNotifier) Send(ctx context.Context, msg domain.Notification) error {
	if msg.Phone == "" {
		return errors.New("sms: phone number is required")
	}
	rec, err := n.remote.Mutate(ctx, SendSMSMutation, domain.Args{
		"phone":   msg.Phone,
		"message": msg.Message,
	})
	if err != nil {
		return err
	}

	var result struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	if err := Decode(rec, "sendSMS", &result); err != nil {
		return err
	}
	if !result.Success {
		if result.Message == "" {
			result.Message = "rejected"
		}
		return errors.New("sms: " + result.Message)
	}
	return nil
}
