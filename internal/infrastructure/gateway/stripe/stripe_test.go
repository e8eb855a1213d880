package stripe

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/LavaJover/shvark-payment-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	stripego "github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/webhook"
)

type seenRequest struct {
	Method      string
	Path        string
	Account     string
	Idempotency string
	Form        url.Values
}

type stripeStub struct {
	mu       sync.Mutex
	seen     []seenRequest
	handlers map[string]func(w http.ResponseWriter)
}

func newStripeStub(t *testing.T) (*stripeStub, *Client) {
	t.Helper()
	stub := &stripeStub{handlers: map[string]func(http.ResponseWriter){}}
	srv := httptest.NewServer(stub)
	t.Cleanup(srv.Close)
	return stub, NewClient("sk_test",
		WithBaseURL(srv.URL),
		WithHTTPClient(srv.Client()),
		WithMaxNetworkRetries(0),
	)
}

func (s *stripeStub) on(method, path string, status int, body string) {
	s.handlers[method+" "+path] = func(w http.ResponseWriter) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}
}

func (s *stripeStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	raw, _ := io.ReadAll(r.Body)
	form, _ := url.ParseQuery(string(raw))

	s.mu.Lock()
	s.seen = append(s.seen, seenRequest{
		Method:      r.Method,
		Path:        r.URL.Path,
		Account:     r.Header.Get("Stripe-Account"),
		Idempotency: r.Header.Get("Idempotency-Key"),
		Form:        form,
	})
	h, ok := s.handlers[r.Method+" "+r.URL.Path]
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if r.Header.Get("Authorization") != "Bearer sk_test" {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error":{"type":"invalid_request_error","message":"bad key"}}`)
		return
	}
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"error":{"type":"invalid_request_error","message":"no route"}}`)
		return
	}
	h(w)
}

func TestCreateCharge(t *testing.T) {
	stub, client := newStripeStub(t)
	stub.on(http.MethodPost, "/v1/payment_intents", http.StatusOK,
		`{"id":"pi_1","object":"payment_intent","status":"requires_action","next_action":{"type":"use_stripe_sdk","use_stripe_sdk":{"stripe_js":"https://hooks.stripe.com/3ds"}}}`)

	charge, err := client.CreateCharge(context.Background(), domain.ChargeParams{
		Amount:         10000,
		TransferAmount: 9750,
		Currency:       "usd",
		Customer:       "cus_1",
		PaymentMethod:  "pm_1",
		OnBehalfOf:     "acct_1",
		TransferGroup:  "cart-1",
		Confirm:        true,
		Metadata:       map[string]string{domain.MetadataPaymentRequestID: "pr-1"},
		IdempotencyKey: "pr-1:0:charge",
	})
	require.NoError(t, err)

	assert.Equal(t, "pi_1", charge.ID)
	assert.Equal(t, domain.ChargeRequiresAction, charge.Status)
	assert.Equal(t, "https://hooks.stripe.com/3ds", charge.NextAction.ActionURL())
	assert.NotEmpty(t, charge.Raw)

	require.Len(t, stub.seen, 1)
	req := stub.seen[0]
	assert.Equal(t, "pr-1:0:charge", req.Idempotency)
	assert.Empty(t, req.Account)
	assert.Equal(t, "10000", req.Form.Get("amount"))
	assert.Equal(t, "acct_1", req.Form.Get("on_behalf_of"))
	assert.Equal(t, "acct_1", req.Form.Get("transfer_data[destination]"))
	assert.Equal(t, "9750", req.Form.Get("transfer_data[amount]"))
	assert.Equal(t, "cart-1", req.Form.Get("transfer_group"))
	assert.Equal(t, "true", req.Form.Get("confirm"))
	assert.Equal(t, "pr-1", req.Form.Get("metadata[payment_request_id]"))
}

func TestGatewayErrorCarriesPayload(t *testing.T) {
	stub, client := newStripeStub(t)
	stub.on(http.MethodPost, "/v1/payment_intents", http.StatusPaymentRequired,
		`{"error":{"type":"card_error","code":"card_declined","decline_code":"insufficient_funds","message":"Your card was declined."}}`)

	_, err := client.CreateCharge(context.Background(), domain.ChargeParams{Amount: 100, Currency: "usd"})
	require.Error(t, err)

	var gwErr *domain.GatewayError
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, OpCreateCharge, gwErr.Op)
	assert.Contains(t, string(gwErr.Payload), "insufficient_funds")

	var stripeErr *stripego.Error
	require.ErrorAs(t, err, &stripeErr)
	assert.Equal(t, stripego.ErrorCodeCardDeclined, stripeErr.Code)
	assert.Equal(t, http.StatusPaymentRequired, stripeErr.HTTPStatusCode)
}

func TestCancelCharge(t *testing.T) {
	stub, client := newStripeStub(t)
	stub.on(http.MethodPost, "/v1/payment_intents/pi_4/cancel", http.StatusOK,
		`{"id":"pi_4","object":"payment_intent","status":"canceled"}`)

	charge, err := client.CancelCharge(context.Background(), "", "pi_4")
	require.NoError(t, err)
	assert.Equal(t, domain.ChargeCanceled, charge.Status)

	require.Len(t, stub.seen, 1)
	assert.Equal(t, "pi_4:cancel", stub.seen[0].Idempotency)
	assert.Equal(t, cancellationReason, stub.seen[0].Form.Get("cancellation_reason"))
}

func TestCancelCharge_AlreadySucceeded(t *testing.T) {
	stub, client := newStripeStub(t)
	stub.on(http.MethodPost, "/v1/payment_intents/pi_5/cancel", http.StatusBadRequest,
		`{"error":{"type":"invalid_request_error","code":"payment_intent_unexpected_state","message":"This PaymentIntent's status is succeeded."}}`)

	_, err := client.CancelCharge(context.Background(), "", "pi_5")
	var gwErr *domain.GatewayError
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, OpCancelCharge, gwErr.Op)
	assert.Contains(t, string(gwErr.Payload), "payment_intent_unexpected_state")
}

func TestRetrieveCharge_ConnectedAccount(t *testing.T) {
	stub, client := newStripeStub(t)
	stub.on(http.MethodGet, "/v1/payment_intents/pi_9", http.StatusOK,
		`{"id":"pi_9","object":"payment_intent","status":"requires_action","next_action":{"type":"redirect_to_url","redirect_to_url":{"url":"https://bank.example/auth"}}}`)

	charge, err := client.RetrieveCharge(context.Background(), "acct_7", "pi_9")
	require.NoError(t, err)
	assert.Equal(t, "https://bank.example/auth", charge.NextAction.ActionURL())
	assert.Equal(t, "acct_7", stub.seen[0].Account)
}

func TestInvoiceFlow(t *testing.T) {
	stub, client := newStripeStub(t)
	stub.on(http.MethodPost, "/v1/invoiceitems", http.StatusOK, `{"id":"ii_1","object":"invoiceitem"}`)
	stub.on(http.MethodPost, "/v1/invoices", http.StatusOK,
		`{"id":"in_1","object":"invoice","status":"draft","payment_intent":null,"metadata":{"payment_request_id":"pr-2"}}`)
	stub.on(http.MethodPost, "/v1/invoices/in_1/finalize", http.StatusOK,
		`{"id":"in_1","object":"invoice","status":"open","payment_intent":"pi_2"}`)
	stub.on(http.MethodPost, "/v1/invoices/in_1/pay", http.StatusOK,
		`{"id":"in_1","object":"invoice","status":"paid","payment_intent":{"id":"pi_2","object":"payment_intent","status":"succeeded"}}`)

	ctx := context.Background()
	in, err := client.CreateInvoice(ctx, domain.InvoiceParams{
		Account:        "acct_2",
		Customer:       "cus_2",
		Amount:         5000,
		Currency:       "usd",
		PaymentMethod:  "pm_2",
		Description:    "Order cart-2",
		Metadata:       map[string]string{domain.MetadataPaymentRequestID: "pr-2"},
		IdempotencyKey: "pr-2:invoice",
	})
	require.NoError(t, err)
	assert.Equal(t, "in_1", in.ID)
	assert.Equal(t, domain.InvoiceStatusDraft, in.Status)
	assert.Equal(t, "acct_2", in.Account)
	assert.Empty(t, in.ChargeID)
	assert.Equal(t, "pr-2", in.Metadata[domain.MetadataPaymentRequestID])

	in, err = client.FinalizeInvoice(ctx, "acct_2", "in_1")
	require.NoError(t, err)
	assert.Equal(t, "pi_2", in.ChargeID)

	in, err = client.PayInvoice(ctx, "acct_2", "in_1", "pm_2")
	require.NoError(t, err)
	assert.Equal(t, domain.InvoiceStatusPaid, in.Status)
	assert.Equal(t, "pi_2", in.ChargeID)

	require.Len(t, stub.seen, 5)
	assert.Equal(t, "pr-2:invoice:item", stub.seen[0].Idempotency)
	assert.Equal(t, "pr-2:invoice", stub.seen[1].Idempotency)
	assert.Equal(t, "pm_2", stub.seen[1].Form.Get("default_payment_method"))
	assert.Equal(t, "pm_2", stub.seen[4].Form.Get("payment_method"))
	for _, req := range stub.seen {
		assert.Equal(t, "acct_2", req.Account)
	}
}

func TestPayInvoice_RequiresActionReturnsInvoice(t *testing.T) {
	stub, client := newStripeStub(t)
	stub.on(http.MethodPost, "/v1/invoices/in_3/pay", http.StatusPaymentRequired,
		`{"error":{"type":"card_error","code":"invoice_payment_intent_requires_action","message":"authentication required"}}`)
	stub.on(http.MethodGet, "/v1/invoices/in_3", http.StatusOK,
		`{"id":"in_3","object":"invoice","status":"open","payment_intent":"pi_3"}`)

	in, err := client.PayInvoice(context.Background(), "acct_3", "in_3", "pm_3")
	require.NoError(t, err)
	assert.Equal(t, "pi_3", in.ChargeID)
	assert.Equal(t, domain.InvoiceStatusOpen, in.Status)
}

func TestVerifySignature(t *testing.T) {
	payload := []byte(`{"id":"evt_1","object":"event","type":"invoice.paid"}`)
	sign := func(body []byte, secret string, at time.Time) string {
		return webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
			Payload:   body,
			Secret:    secret,
			Timestamp: at,
		}).Header
	}
	header := sign(payload, "whsec", time.Now())

	assert.NoError(t, VerifySignature(payload, header, "whsec", DefaultTolerance))
	assert.ErrorIs(t, VerifySignature(payload, header, "other", DefaultTolerance), ErrInvalidSignature)
	assert.ErrorIs(t, VerifySignature([]byte(`{"id":"evt_2"}`), header, "whsec", DefaultTolerance), ErrInvalidSignature)
	assert.ErrorIs(t, VerifySignature(payload, sign(payload, "whsec", time.Now().Add(-time.Hour)), "whsec", DefaultTolerance), ErrSignatureExpired)
	assert.ErrorIs(t, VerifySignature(payload, "", "whsec", DefaultTolerance), ErrMissingSignature)
}

func TestParseEvent(t *testing.T) {
	t.Run("invoice", func(t *testing.T) {
		event, err := ParseEvent([]byte(`{
			"id":"evt_1","type":"invoice.paid","account":"acct_1",
			"data":{"object":{"id":"in_1","object":"invoice","status":"paid","payment_intent":"pi_1",
				"metadata":{"payment_request_id":"pr-1"}}}}`))
		require.NoError(t, err)
		assert.Equal(t, "invoice.paid", event.Type)
		assert.Equal(t, "acct_1", event.Account)
		assert.Equal(t, "in_1", event.InvoiceID)
		assert.Equal(t, "pi_1", event.ChargeID)
		assert.Equal(t, "pr-1", event.Metadata[domain.MetadataPaymentRequestID])
	})

	t.Run("payment intent", func(t *testing.T) {
		event, err := ParseEvent([]byte(`{
			"id":"evt_2","type":"payment_intent.requires_action",
			"data":{"object":{"id":"pi_2","object":"payment_intent","status":"requires_action","invoice":null}}}`))
		require.NoError(t, err)
		assert.Equal(t, "pi_2", event.ChargeID)
		assert.Equal(t, "pi_2", event.ObjectID)
		assert.Empty(t, event.InvoiceID)
		assert.Equal(t, "requires_action", event.Status)
	})

	t.Run("invalid", func(t *testing.T) {
		_, err := ParseEvent([]byte(`{"type":"invoice.paid"}`))
		assert.Error(t, err)
		_, err = ParseEvent([]byte(`not json`))
		assert.Error(t, err)
	})
}
