package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/LavaJover/shvark-payment-service/internal/delivery/http/dto/payment/request"
	"github.com/LavaJover/shvark-payment-service/internal/delivery/http/dto/payment/response"
	"github.com/LavaJover/shvark-payment-service/internal/domain"
	"github.com/LavaJover/shvark-payment-service/internal/infrastructure/gateway/stripe"
	paymentdto "github.com/LavaJover/shvark-payment-service/internal/usecase/dto/payment"
	usecase "github.com/LavaJover/shvark-payment-service/internal/usecase/payment"
)

const maxBodyBytes = 1 << 20

var errWebhookSecretUnset = errors.New("webhook secret is not configured")

type PaymentHandler struct {
	paymentUc     usecase.PaymentUsecase
	log           *slog.Logger
	webhookSecret string
}

func NewPaymentHandler(paymentUc usecase.PaymentUsecase, log *slog.Logger, webhookSecret string) *PaymentHandler {
	return &PaymentHandler{
		paymentUc:     paymentUc,
		log:           log,
		webhookSecret: webhookSecret,
	}
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	return nil
}

// ProcessRequest handles the insert event of a payment request row.
func (h *PaymentHandler) ProcessRequest(w http.ResponseWriter, r *http.Request) {
	var body request.ProcessRequest
	if err := decode(r, &body); err != nil {
		writeError(w, r, h.log, err)
		return
	}

	row := body.Event.Data.New
	result, err := h.paymentUc.ProcessNewRequest(r.Context(), &paymentdto.NewRequestInput{
		ID:                 row.ID,
		OrganizationID:     row.OrganizationID,
		Amount:             row.Amount,
		Currency:           row.Currency,
		TransferGroup:      row.TransferGroup,
		PaymentMethodToken: row.PaymentMethodToken,
		CustomerGatewayID:  row.CustomerGatewayID,
		SettlementModel:    domain.SettlementModel(row.SettlementModel),
	})
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeData(w, response.FromGatewayResult(result))
}

func (h *PaymentHandler) RetryRequest(w http.ResponseWriter, r *http.Request) {
	var body request.RetryRequest
	if err := decode(r, &body); err != nil {
		writeError(w, r, h.log, err)
		return
	}

	result, err := h.paymentUc.RetryRequest(r.Context(), &paymentdto.RetryInput{
		InvoiceID:        body.InvoiceID,
		OrganizationID:   body.OrganizationID,
		GatewayAccountID: body.GatewayAccountID,
	})
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeData(w, response.FromGatewayResult(result))
}

func (h *PaymentHandler) InitiateRequest(w http.ResponseWriter, r *http.Request) {
	var body request.InitiateRequest
	if err := decode(r, &body); err != nil {
		writeError(w, r, h.log, err)
		return
	}

	out, err := h.paymentUc.InitiateOrReattempt(r.Context(), &paymentdto.InitiateInput{
		OrganizationID: body.OrganizationID,
		Cart:           paymentdto.CartInput{ID: body.Cart.ID, Amount: body.Cart.Amount},
		Customer: paymentdto.CustomerInput{
			PaymentMethod:     body.Customer.PaymentMethod,
			GatewayCustomerID: body.Customer.StripeCustomerID,
		},
	})
	if err != nil {
		// The row may exist even though a later step failed.
		if out != nil && out.PaymentRequest != nil {
			h.log.Warn("initiate partially applied", "payment_request_id", out.PaymentRequest.ID)
		}
		writeError(w, r, h.log, err)
		return
	}
	writeData(w, response.FromInitiate(out))
}

// GatewayWebhook receives out-of-band gateway events. Failures answer 5xx
// so that the gateway redelivers.
func (h *PaymentHandler) GatewayWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, r, h.log, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err))
		return
	}

	// unsigned events are never trusted; the gateway redelivers once a
	// secret is configured
	if h.webhookSecret == "" {
		h.log.Error("gateway webhook rejected: webhook secret is not configured", "endpoint", r.URL.Path)
		writeJSON(w, http.StatusServiceUnavailable, response.Envelope{Success: false, Error: errWebhookSecretUnset.Error()})
		return
	}
	if err := stripe.VerifySignature(payload, r.Header.Get(stripe.SignatureHeader), h.webhookSecret, stripe.DefaultTolerance); err != nil {
		h.log.Warn("webhook signature rejected", "error", err)
		writeJSON(w, http.StatusUnauthorized, response.Envelope{Success: false, Error: err.Error()})
		return
	}

	event, err := stripe.ParseEvent(payload)
	if err != nil {
		writeError(w, r, h.log, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err))
		return
	}

	out, err := h.paymentUc.ProcessGatewayEvent(r.Context(), event)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeData(w, response.FromEvent(out))
}

func Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, response.Envelope{Success: true, Message: "ok"})
}
