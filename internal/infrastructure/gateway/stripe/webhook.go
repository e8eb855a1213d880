package stripe

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/LavaJover/shvark-payment-service/internal/domain"
	"github.com/stripe/stripe-go/v81/webhook"
)

const (
	SignatureHeader = "Stripe-Signature"

	DefaultTolerance = webhook.DefaultTolerance
)

var (
	ErrMissingSignature = webhook.ErrNotSigned
	ErrInvalidSignature = webhook.ErrNoValidSignature
	ErrSignatureExpired = webhook.ErrTooOld
)

// VerifySignature checks a Stripe-Signature header against the endpoint
// secret. The event API version is not compared; ParseEvent reads only
// fields that are stable across versions.
func VerifySignature(payload []byte, header, secret string, tolerance time.Duration) error {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	_, err := webhook.ConstructEventWithOptions(payload, header, secret, webhook.ConstructEventOptions{
		Tolerance:                tolerance,
		IgnoreAPIVersionMismatch: true,
	})
	return err
}

type eventEnvelope struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Account string `json:"account"`
	Data    struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

type eventObject struct {
	ID            string            `json:"id"`
	Object        string            `json:"object"`
	Status        string            `json:"status"`
	Invoice       json.RawMessage   `json:"invoice"`
	PaymentIntent json.RawMessage   `json:"payment_intent"`
	Metadata      map[string]string `json:"metadata"`
}

// ParseEvent decodes a webhook body into a domain.GatewayEvent.
func ParseEvent(payload []byte) (*domain.GatewayEvent, error) {
	var env eventEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	if env.ID == "" || env.Type == "" {
		return nil, errors.New("decode event: id and type are required")
	}

	var obj eventObject
	if len(env.Data.Object) > 0 {
		if err := json.Unmarshal(env.Data.Object, &obj); err != nil {
			return nil, fmt.Errorf("decode event object: %w", err)
		}
	}

	event := &domain.GatewayEvent{
		ID:       env.ID,
		Type:     env.Type,
		Account:  env.Account,
		ObjectID: obj.ID,
		Status:   obj.Status,
		Metadata: obj.Metadata,
		Raw:      env.Data.Object,
	}
	switch obj.Object {
	case "invoice":
		event.InvoiceID = obj.ID
		event.ChargeID = expandableID(obj.PaymentIntent)
	case "payment_intent":
		event.ChargeID = obj.ID
		event.InvoiceID = expandableID(obj.Invoice)
	}
	return event, nil
}
