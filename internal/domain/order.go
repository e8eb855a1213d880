package domain

import (
	"encoding/json"
	"time"
)

// Order is the Order Store's cart row as far as payments are concerned. It is
// addressed by the transfer group, which is the cart id.
type Order struct {
	CartID           string
	PaymentID        string
	PaymentStatus    PaymentStatus
	GatewayChargeID  string
	GatewayInvoiceID string
	PaymentHistory   []json.RawMessage
	PaymentUpdatedAt time.Time
}

// OrderUpdate is written to the Order Store after the ledger write. History
// holds the full ledger history, newest first, so that re-applying it is
// harmless.
type OrderUpdate struct {
	CartID           string
	PaymentID        string
	PaymentStatus    PaymentStatus
	GatewayChargeID  string
	GatewayInvoiceID string
	History          []json.RawMessage
	UpdatedAt        time.Time
}

// NewOrderUpdate derives the Order Store write from the ledger row.
func NewOrderUpdate(req *PaymentRequest, now time.Time) OrderUpdate {
	history := make([]json.RawMessage, 0, len(req.StatusHistory))
	for _, entry := range req.StatusHistory {
		history = append(history, entry.Payload)
	}
	return OrderUpdate{
		CartID:           req.TransferGroup,
		PaymentID:        req.ID,
		PaymentStatus:    req.Status,
		GatewayChargeID:  req.GatewayChargeID,
		GatewayInvoiceID: req.GatewayInvoiceID,
		History:          history,
		UpdatedAt:        now,
	}
}
