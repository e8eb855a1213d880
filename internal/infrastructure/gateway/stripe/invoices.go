package stripe

import (
	"context"
	"errors"

	"github.com/LavaJover/shvark-payment-service/internal/domain"
	stripego "github.com/stripe/stripe-go/v81"
)

const (
	OpCreateInvoice   = "create_invoice"
	OpFinalizeInvoice = "finalize_invoice"
	OpPayInvoice      = "pay_invoice"
	OpRetrieveInvoice = "retrieve_invoice"

	// codeRequiresAction is returned by invoice pay when the payment needs
	// customer authentication. The invoice itself is in a usable state.
	codeRequiresAction = "invoice_payment_intent_requires_action"
)

// CreateInvoice adds a single line item on the connected account and creates
// a draft invoice that collects it.
func (c *Client) CreateInvoice(ctx context.Context, p domain.InvoiceParams) (*domain.Invoice, error) {
	ctx, span := c.span(ctx, OpCreateInvoice, p.Account)
	defer span.End()

	item := &stripego.InvoiceItemParams{
		Customer: stripego.String(p.Customer),
		Amount:   stripego.Int64(p.Amount),
		Currency: stripego.String(p.Currency),
	}
	if p.Description != "" {
		item.Description = stripego.String(p.Description)
	}
	for k, v := range p.Metadata {
		item.AddMetadata(k, v)
	}
	itemKey := ""
	if p.IdempotencyKey != "" {
		itemKey = p.IdempotencyKey + ":item"
	}
	params(ctx, &item.Params, p.Account, itemKey)

	if _, err := c.api.InvoiceItems.New(item); err != nil {
		return nil, c.fail(span, OpCreateInvoice, err)
	}

	ip := &stripego.InvoiceParams{
		Customer:                    stripego.String(p.Customer),
		AutoAdvance:                 stripego.Bool(false),
		CollectionMethod:            stripego.String(string(stripego.InvoiceCollectionMethodChargeAutomatically)),
		PendingInvoiceItemsBehavior: stripego.String("include"),
	}
	if p.PaymentMethod != "" {
		ip.DefaultPaymentMethod = stripego.String(p.PaymentMethod)
	}
	if p.Description != "" {
		ip.Description = stripego.String(p.Description)
	}
	for k, v := range p.Metadata {
		ip.AddMetadata(k, v)
	}
	params(ctx, &ip.Params, p.Account, p.IdempotencyKey)

	in, err := c.api.Invoices.New(ip)
	if err != nil {
		return nil, c.fail(span, OpCreateInvoice, err)
	}
	return toInvoice(in, p.Account), nil
}

func (c *Client) FinalizeInvoice(ctx context.Context, account, invoiceID string) (*domain.Invoice, error) {
	ctx, span := c.span(ctx, OpFinalizeInvoice, account)
	defer span.End()

	fp := &stripego.InvoiceFinalizeInvoiceParams{AutoAdvance: stripego.Bool(false)}
	params(ctx, &fp.Params, account, "")

	in, err := c.api.Invoices.FinalizeInvoice(invoiceID, fp)
	if err != nil {
		return nil, c.fail(span, OpFinalizeInvoice, err)
	}
	return toInvoice(in, account), nil
}

// PayInvoice attempts payment of an open invoice. When the payment needs
// customer action Stripe answers with an error although the invoice now has
// a payment intent; the invoice is re-read and returned in that case.
func (c *Client) PayInvoice(ctx context.Context, account, invoiceID, paymentMethod string) (*domain.Invoice, error) {
	sctx, span := c.span(ctx, OpPayInvoice, account)
	defer span.End()

	pp := &stripego.InvoicePayParams{}
	if paymentMethod != "" {
		pp.PaymentMethod = stripego.String(paymentMethod)
	}
	params(sctx, &pp.Params, account, "")

	in, err := c.api.Invoices.Pay(invoiceID, pp)
	if err != nil {
		var stripeErr *stripego.Error
		if errors.As(err, &stripeErr) && string(stripeErr.Code) == codeRequiresAction {
			c.log.Info("invoice payment requires action", "invoice_id", invoiceID)
			return c.RetrieveInvoice(ctx, account, invoiceID)
		}
		return nil, c.fail(span, OpPayInvoice, err)
	}
	return toInvoice(in, account), nil
}

func (c *Client) RetrieveInvoice(ctx context.Context, account, invoiceID string) (*domain.Invoice, error) {
	ctx, span := c.span(ctx, OpRetrieveInvoice, account)
	defer span.End()

	gp := &stripego.InvoiceParams{}
	params(ctx, &gp.Params, account, "")

	in, err := c.api.Invoices.Get(invoiceID, gp)
	if err != nil {
		return nil, c.fail(span, OpRetrieveInvoice, err)
	}
	return toInvoice(in, account), nil
}
