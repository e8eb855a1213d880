package request

type RetryRequest struct {
	InvoiceID        string `json:"invoiceId"`
	OrganizationID   string `json:"organizationId,omitempty"`
	GatewayAccountID string `json:"stripeAccountId,omitempty"`
}
