package domain

import (
	"context"
	"encoding/json"
)

// Metadata keys embedded into every invoice. They are the only correlation
// keys available when an out-of-band invoice event arrives.
const (
	MetadataOrganizationID   = "organization_id"
	MetadataTransferGroup    = "transfer_group"
	MetadataPaymentRequestID = "payment_request_id"
)

const (
	NextActionUseSDK   = "use_stripe_sdk"
	NextActionRedirect = "redirect_to_url"
)

type NextAction struct {
	Type        string
	RedirectURL string
	SDKURL      string
}

// ActionURL returns the URL the customer has to visit, or "" if the action
// carries none.
func (a *NextAction) ActionURL() string {
	if a == nil {
		return ""
	}
	if a.Type == NextActionUseSDK {
		return a.SDKURL
	}
	return a.RedirectURL
}

type Charge struct {
	ID         string
	Status     string
	NextAction *NextAction
	Raw        json.RawMessage
}

type Invoice struct {
	ID       string
	Status   string
	ChargeID string
	Account  string
	Metadata map[string]string
	Raw      json.RawMessage
}

const (
	InvoiceStatusDraft = "draft"
	InvoiceStatusOpen  = "open"
	InvoiceStatusPaid  = "paid"
	InvoiceStatusVoid  = "void"
)

type ChargeParams struct {
	Amount         int64
	TransferAmount int64
	Currency       string
	Customer       string
	PaymentMethod  string
	OnBehalfOf     string
	TransferGroup  string
	Confirm        bool
	Metadata       map[string]string
	IdempotencyKey string
}

type InvoiceParams struct {
	Account        string
	Customer       string
	Amount         int64
	Currency       string
	PaymentMethod  string
	Description    string
	Metadata       map[string]string
	IdempotencyKey string
}

// Gateway is the payment processor. None of its calls are idempotent on the
// processor side unless an idempotency key is supplied.
type Gateway interface {
	CreateCharge(ctx context.Context, params ChargeParams) (*Charge, error)
	CreateInvoice(ctx context.Context, params InvoiceParams) (*Invoice, error)
	FinalizeInvoice(ctx context.Context, account, invoiceID string) (*Invoice, error)
	PayInvoice(ctx context.Context, account, invoiceID, paymentMethod string) (*Invoice, error)
	RetrieveCharge(ctx context.Context, account, chargeID string) (*Charge, error)
	RetrieveInvoice(ctx context.Context, account, invoiceID string) (*Invoice, error)
	// CancelCharge voids a charge that was not captured. It fails for a
	// charge that already succeeded.
	CancelCharge(ctx context.Context, account, chargeID string) (*Charge, error)
}

// GatewayEvent is an out-of-band webhook from the processor, already parsed
// into the fields reconciliation needs.
type GatewayEvent struct {
	ID        string
	Type      string
	Account   string
	ObjectID  string
	Status    string
	InvoiceID string
	ChargeID  string
	Metadata  map[string]string
	Raw       json.RawMessage
}
