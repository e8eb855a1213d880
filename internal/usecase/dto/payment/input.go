package paymentdto

import "github.com/LavaJover/shvark-payment-service/internal/domain"

// NewRequestInput is the payment request row delivered by the insert event.
type NewRequestInput struct {
	ID                 string
	OrganizationID     string
	Amount             int64
	Currency           string
	TransferGroup      string
	PaymentMethodToken string
	CustomerGatewayID  string
	SettlementModel    domain.SettlementModel
}

type RetryInput struct {
	InvoiceID        string
	OrganizationID   string
	GatewayAccountID string
}

type InitiateInput struct {
	OrganizationID string
	Cart           CartInput
	Customer       CustomerInput
}

type CartInput struct {
	ID     string
	Amount int64
}

type CustomerInput struct {
	PaymentMethod     string
	GatewayCustomerID string
}
