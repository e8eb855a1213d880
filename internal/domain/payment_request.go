package domain

import (
	"encoding/json"
	"time"
)

type PaymentStatus string

const (
	StatusPending        PaymentStatus = "PENDING"
	StatusRequiresAction PaymentStatus = "REQUIRES_ACTION"
	StatusProcessing     PaymentStatus = "PROCESSING"
	StatusSucceeded      PaymentStatus = "SUCCEEDED"
	StatusCancelled      PaymentStatus = "CANCELLED"
	StatusFailed         PaymentStatus = "FAILED"
)

type SettlementModel string

const (
	// SettlementDirect charges the platform on behalf of the sub-merchant
	// and transfers the amount minus platform fees.
	SettlementDirect SettlementModel = "DIRECT"
	// SettlementStandard routes the payment through an invoice issued on
	// the sub-merchant's connected account.
	SettlementStandard SettlementModel = "STANDARD"
)

func (m SettlementModel) Valid() bool {
	return m == SettlementDirect || m == SettlementStandard
}

// PaymentRequest is one checkout attempt tracked by the ledger. The same row
// (and ID) is reused across retry attempts.
type PaymentRequest struct {
	ID                 string
	OrganizationID     string
	Amount             int64
	TransferAmount     int64
	Currency           string
	SettlementModel    SettlementModel
	PaymentMethodToken string
	CustomerGatewayID  string
	TransferGroup      string
	Status             PaymentStatus
	GatewayChargeID    string
	GatewayInvoiceID   string
	RetryAttempt       int
	// ChargeAttempt is the retry attempt GatewayChargeID was created for.
	ChargeAttempt int
	StatusHistory []HistoryEntry
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// HistoryEntry is one snapshot of a raw gateway object. Seq grows by one per
// appended entry of the same payment request.
type HistoryEntry struct {
	Seq        int64
	Status     PaymentStatus
	Source     string
	Payload    json.RawMessage
	RecordedAt time.Time
}

// HasChargeForAttempt reports whether a charge was already created for the
// current retry attempt.
func (r *PaymentRequest) HasChargeForAttempt() bool {
	return r.GatewayChargeID != "" && r.ChargeAttempt == r.RetryAttempt
}

// Checkpoint carries the fields learned from one gateway call. Empty fields
// leave the stored value untouched.
type Checkpoint struct {
	Name             string
	Status           PaymentStatus
	GatewayChargeID  string
	GatewayInvoiceID string
	Payload          json.RawMessage
	// Captured marks a success reported for a charge of an earlier attempt.
	// Money moved, so it settles the request from any status.
	Captured bool
}

// Moves reports whether the checkpoint changes a request currently in from.
func (cp Checkpoint) Moves(from PaymentStatus) bool {
	if cp.Status == "" {
		return false
	}
	if cp.Captured && cp.Status == StatusSucceeded {
		return true
	}
	return CanTransition(from, cp.Status)
}

// Apply sets the mirrored scalar fields carried by the checkpoint.
func (r *PaymentRequest) Apply(cp Checkpoint) {
	if cp.Status != "" {
		r.Status = cp.Status
	}
	if cp.GatewayChargeID != "" {
		r.GatewayChargeID = cp.GatewayChargeID
		r.ChargeAttempt = r.RetryAttempt
	}
	if cp.GatewayInvoiceID != "" {
		r.GatewayInvoiceID = cp.GatewayInvoiceID
	}
}
