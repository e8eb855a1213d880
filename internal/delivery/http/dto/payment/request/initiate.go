package request

type InitiateRequest struct {
	OrganizationID string   `json:"organizationId"`
	Cart           Cart     `json:"cart"`
	Customer       Customer `json:"customer"`
}

type Cart struct {
	ID     string `json:"id"`
	Amount int64  `json:"amount"`
}

type Customer struct {
	PaymentMethod    string `json:"paymentMethod"`
	StripeCustomerID string `json:"stripeCustomerId"`
}
