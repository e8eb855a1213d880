package response

import (
	"time"

	"github.com/LavaJover/shvark-payment-service/internal/domain"
	paymentdto "github.com/LavaJover/shvark-payment-service/internal/usecase/dto/payment"
)

type Notification struct {
	Sent    bool   `json:"sent"`
	Skipped string `json:"skipped,omitempty"`
	Error   string `json:"error,omitempty"`
}

type GatewayResult struct {
	PaymentRequestID string       `json:"paymentRequestId"`
	Status           string       `json:"status"`
	RetryAttempt     int          `json:"retryAttempt"`
	ChargeID         string       `json:"chargeId,omitempty"`
	ChargeStatus     string       `json:"chargeStatus,omitempty"`
	ActionURL        string       `json:"actionUrl,omitempty"`
	InvoiceID        string       `json:"invoiceId,omitempty"`
	InvoiceStatus    string       `json:"invoiceStatus,omitempty"`
	Notification     Notification `json:"notification"`
	NoOp             bool         `json:"noop,omitempty"`
}

type PaymentRequest struct {
	ID                 string    `json:"id"`
	OrganizationID     string    `json:"organizationId"`
	TransferGroup      string    `json:"transferGroup"`
	Amount             int64     `json:"amount"`
	TransferAmount     int64     `json:"transferAmount"`
	Currency           string    `json:"currency"`
	SettlementModel    string    `json:"settlementModel"`
	Status             string    `json:"status"`
	RetryAttempt       int       `json:"retryAttempt"`
	PaymentMethodToken string    `json:"paymentMethod"`
	GatewayChargeID    string    `json:"chargeId,omitempty"`
	GatewayInvoiceID   string    `json:"invoiceId,omitempty"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

type Initiate struct {
	PaymentRequest PaymentRequest `json:"paymentRequest"`
	Created        bool           `json:"created"`
	Result         *GatewayResult `json:"result,omitempty"`
}

type Event struct {
	PaymentRequestID string       `json:"paymentRequestId,omitempty"`
	Status           string       `json:"status,omitempty"`
	Duplicate        bool         `json:"duplicate,omitempty"`
	Ignored          bool         `json:"ignored,omitempty"`
	Stale            bool         `json:"stale,omitempty"`
	Reconciled       bool         `json:"reconciled,omitempty"`
	DoubleCapture    bool         `json:"doubleCapture,omitempty"`
	Notification     Notification `json:"notification"`
}

func FromNotification(n paymentdto.NotificationResult) Notification {
	return Notification{Sent: n.Sent, Skipped: n.Skipped, Error: n.Error}
}

func FromGatewayResult(r *paymentdto.GatewayResult) *GatewayResult {
	if r == nil {
		return nil
	}
	out := &GatewayResult{
		PaymentRequestID: r.PaymentRequestID,
		Status:           string(r.Status),
		RetryAttempt:     r.RetryAttempt,
		Notification:     FromNotification(r.Notification),
		NoOp:             r.NoOp,
	}
	if r.Charge != nil {
		out.ChargeID = r.Charge.ID
		out.ChargeStatus = r.Charge.Status
		out.ActionURL = r.Charge.NextAction.ActionURL()
	}
	if r.Invoice != nil {
		out.InvoiceID = r.Invoice.ID
		out.InvoiceStatus = r.Invoice.Status
	}
	return out
}

func FromPaymentRequest(req *domain.PaymentRequest) PaymentRequest {
	if req == nil {
		return PaymentRequest{}
	}
	return PaymentRequest{
		ID:                 req.ID,
		OrganizationID:     req.OrganizationID,
		TransferGroup:      req.TransferGroup,
		Amount:             req.Amount,
		TransferAmount:     req.TransferAmount,
		Currency:           req.Currency,
		SettlementModel:    string(req.SettlementModel),
		Status:             string(req.Status),
		RetryAttempt:       req.RetryAttempt,
		PaymentMethodToken: req.PaymentMethodToken,
		GatewayChargeID:    req.GatewayChargeID,
		GatewayInvoiceID:   req.GatewayInvoiceID,
		UpdatedAt:          req.UpdatedAt,
	}
}

func FromInitiate(out *paymentdto.InitiateOutput) Initiate {
	return Initiate{
		PaymentRequest: FromPaymentRequest(out.PaymentRequest),
		Created:        out.Created,
		Result:         FromGatewayResult(out.Result),
	}
}

func FromEvent(out *paymentdto.EventOutput) Event {
	return Event{
		PaymentRequestID: out.PaymentRequestID,
		Status:           string(out.Status),
		Duplicate:        out.Duplicate,
		Ignored:          out.Ignored,
		Stale:            out.Stale,
		Reconciled:       out.Reconciled,
		DoubleCapture:    out.DoubleCapture,
		Notification:     FromNotification(out.Notification),
	}
}
