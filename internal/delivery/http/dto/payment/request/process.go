package request

// ProcessRequest is the insert event trigger body of a payment request row.
type ProcessRequest struct {
	Event struct {
		Data struct {
			New PaymentRequestRow `json:"new"`
		} `json:"data"`
	} `json:"event"`
}

type PaymentRequestRow struct {
	ID                 string `json:"id"`
	OrganizationID     string `json:"organizationId"`
	Amount             int64  `json:"amount"`
	Currency           string `json:"currency"`
	TransferGroup      string `json:"transferGroup"`
	PaymentMethodToken string `json:"paymentMethod"`
	CustomerGatewayID  string `json:"stripeCustomerId"`
	SettlementModel    string `json:"settlementModel,omitempty"`
}
