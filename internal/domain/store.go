package domain

import (
	"context"
	"encoding/json"
)

// Query describes one remote operation. Documents are data, the client does
// not interpret them.
type Query struct {
	Name     string
	Document string
}

type Args map[string]any

// Record is the decoded response of a remote call; nil means "no row".
type Record map[string]json.RawMessage

// RemoteStore is the generic fetch/mutate capability behind both the ledger
// platform and the per-tenant order stores.
type RemoteStore interface {
	Fetch(ctx context.Context, q Query, args Args) (Record, error)
	Mutate(ctx context.Context, q Query, args Args) (Record, error)
}

// OrderStoreFactory builds a client for one tenant's order store.
type OrderStoreFactory func(baseURL, credential string) OrderStore

type OrderStore interface {
	GetOrder(ctx context.Context, cartID string) (*Order, error)
	LinkPayment(ctx context.Context, cartID, paymentID string) error
	UpdatePayment(ctx context.Context, update OrderUpdate) error
}

// LedgerStore owns PaymentRequest and Organization records. History is only
// ever appended through RecordCheckpoint.
type LedgerStore interface {
	GetOrganization(ctx context.Context, organizationID string) (*Organization, error)
	GetOrganizationByGatewayAccount(ctx context.Context, gatewayAccountID string) (*Organization, error)

	CreatePaymentRequest(ctx context.Context, req *PaymentRequest) error
	GetPaymentRequest(ctx context.Context, id string) (*PaymentRequest, error)
	FindPaymentRequest(ctx context.Context, organizationID, transferGroup string) (*PaymentRequest, error)
	FindPaymentRequestByGatewayID(ctx context.Context, gatewayID string) (*PaymentRequest, error)

	// RecordCheckpoint appends one history entry and sets the mirrored
	// scalar fields, returning the updated request.
	RecordCheckpoint(ctx context.Context, id string, cp Checkpoint) (*PaymentRequest, error)
	// Reattempt increments retryAttempt, replaces the payment method token
	// and resets the status to PENDING for the new attempt.
	Reattempt(ctx context.Context, id, paymentMethodToken string) (*PaymentRequest, error)

	GetCustomerContact(ctx context.Context, paymentMethodToken string) (*CustomerContact, error)
}

// OrderSyncBacklog remembers payment requests whose order store write failed.
type OrderSyncBacklog interface {
	AddPendingOrderSync(ctx context.Context, paymentRequestID, reason string) error
	ListPendingOrderSyncs(ctx context.Context, limit int) ([]PendingOrderSync, error)
	ResolvePendingOrderSync(ctx context.Context, paymentRequestID string) error
}

type PendingOrderSync struct {
	PaymentRequestID string
	Reason           string
	Attempts         int
}
