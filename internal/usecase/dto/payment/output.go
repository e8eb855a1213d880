package paymentdto

import "github.com/LavaJover/shvark-payment-service/internal/domain"

type GatewayResult struct {
	PaymentRequestID string
	Status           domain.PaymentStatus
	RetryAttempt     int
	Charge           *domain.Charge
	Invoice          *domain.Invoice
	Notification     NotificationResult
	// NoOp is set when the request was already settled and nothing was sent
	// to the gateway.
	NoOp bool
}

type NotificationResult struct {
	Sent    bool
	Skipped string
	Error   string
}

type InitiateOutput struct {
	PaymentRequest *domain.PaymentRequest
	Created        bool
	Result         *GatewayResult
}

type EventOutput struct {
	PaymentRequestID string
	Status           domain.PaymentStatus
	Duplicate        bool
	Ignored          bool
	// Stale is set when the event arrived after a terminal status, or for a
	// superseded charge, and only its payload was recorded.
	Stale bool
	// Reconciled is set when a superseded charge reported a capture and the
	// request was settled from it.
	Reconciled bool
	// DoubleCapture is set when a superseded charge captured although the
	// request already succeeded with another one.
	DoubleCapture bool
	Notification  NotificationResult
}

type SweepOutput struct {
	Checked  int
	Resolved int
	Failed   int
}
