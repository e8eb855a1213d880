package stripe

import (
	"context"

	"github.com/LavaJover/shvark-payment-service/internal/domain"
	stripego "github.com/stripe/stripe-go/v81"
)

const (
	OpCreateCharge   = "create_charge"
	OpRetrieveCharge = "retrieve_charge"
	OpCancelCharge   = "cancel_charge"

	cancellationReason = "abandoned"
)

// CreateCharge creates and optionally confirms a payment intent. A
// TransferAmount routes that part of the charge to OnBehalfOf.
func (c *Client) CreateCharge(ctx context.Context, p domain.ChargeParams) (*domain.Charge, error) {
	ctx, span := c.span(ctx, OpCreateCharge, "")
	defer span.End()

	pp := &stripego.PaymentIntentParams{
		Amount:   stripego.Int64(p.Amount),
		Currency: stripego.String(p.Currency),
	}
	if p.Customer != "" {
		pp.Customer = stripego.String(p.Customer)
	}
	if p.PaymentMethod != "" {
		pp.PaymentMethod = stripego.String(p.PaymentMethod)
	}
	if p.OnBehalfOf != "" {
		pp.OnBehalfOf = stripego.String(p.OnBehalfOf)
		if p.TransferAmount > 0 {
			pp.TransferData = &stripego.PaymentIntentTransferDataParams{
				Destination: stripego.String(p.OnBehalfOf),
				Amount:      stripego.Int64(p.TransferAmount),
			}
		}
	}
	if p.TransferGroup != "" {
		pp.TransferGroup = stripego.String(p.TransferGroup)
	}
	if p.Confirm {
		pp.Confirm = stripego.Bool(true)
	}
	for k, v := range p.Metadata {
		pp.AddMetadata(k, v)
	}
	params(ctx, &pp.Params, "", p.IdempotencyKey)

	pi, err := c.api.PaymentIntents.New(pp)
	if err != nil {
		return nil, c.fail(span, OpCreateCharge, err)
	}
	return toCharge(pi), nil
}

func (c *Client) RetrieveCharge(ctx context.Context, account, chargeID string) (*domain.Charge, error) {
	ctx, span := c.span(ctx, OpRetrieveCharge, account)
	defer span.End()

	pp := &stripego.PaymentIntentParams{}
	params(ctx, &pp.Params, account, "")

	pi, err := c.api.PaymentIntents.Get(chargeID, pp)
	if err != nil {
		return nil, c.fail(span, OpRetrieveCharge, err)
	}
	return toCharge(pi), nil
}

// CancelCharge cancels a payment intent that has not been captured yet.
// Stripe refuses to cancel a succeeded intent.
func (c *Client) CancelCharge(ctx context.Context, account, chargeID string) (*domain.Charge, error) {
	ctx, span := c.span(ctx, OpCancelCharge, account)
	defer span.End()

	pp := &stripego.PaymentIntentCancelParams{
		CancellationReason: stripego.String(cancellationReason),
	}
	params(ctx, &pp.Params, account, chargeID+":cancel")

	pi, err := c.api.PaymentIntents.Cancel(chargeID, pp)
	if err != nil {
		return nil, c.fail(span, OpCancelCharge, err)
	}
	return toCharge(pi), nil
}
