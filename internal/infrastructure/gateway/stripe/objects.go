package stripe

import (
	"encoding/json"

	"github.com/LavaJover/shvark-payment-service/internal/domain"
	stripego "github.com/stripe/stripe-go/v81"
)

// nextActionObject reads next_action from the raw object; stripe-go does not
// expose use_stripe_sdk.stripe_js.
type nextActionObject struct {
	Type          string `json:"type"`
	RedirectToURL *struct {
		URL string `json:"url"`
	} `json:"redirect_to_url"`
	UseStripeSDK *struct {
		StripeJS string `json:"stripe_js"`
	} `json:"use_stripe_sdk"`
}

func nextAction(raw json.RawMessage) *domain.NextAction {
	var obj struct {
		NextAction *nextActionObject `json:"next_action"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil || obj.NextAction == nil {
		return nil
	}
	n := obj.NextAction
	action := &domain.NextAction{Type: n.Type}
	if n.RedirectToURL != nil {
		action.RedirectURL = n.RedirectToURL.URL
	}
	if n.UseStripeSDK != nil {
		action.SDKURL = n.UseStripeSDK.StripeJS
	}
	return action
}

func toCharge(pi *stripego.PaymentIntent) *domain.Charge {
	raw := rawJSON(pi.LastResponse, pi)
	return &domain.Charge{
		ID:         pi.ID,
		Status:     string(pi.Status),
		NextAction: nextAction(raw),
		Raw:        raw,
	}
}

func toInvoice(in *stripego.Invoice, account string) *domain.Invoice {
	out := &domain.Invoice{
		ID:       in.ID,
		Status:   string(in.Status),
		Account:  account,
		Metadata: in.Metadata,
		Raw:      rawJSON(in.LastResponse, in),
	}
	if in.PaymentIntent != nil {
		out.ChargeID = in.PaymentIntent.ID
	}
	return out
}

// expandableID reads a field that is either an id string or an expanded
// object with an id.
func expandableID(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var id string
	if err := json.Unmarshal(raw, &id); err == nil {
		return id
	}
	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj.ID
	}
	return ""
}
