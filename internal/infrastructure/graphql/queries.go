package graphql

import "github.com/LavaJover/shvark-payment-service/internal/domain"

var (
	CartQuery = domain.Query{
		Name: "cart",
		Document: `
query cart($id: String!) {
	cart(id: $id) {
		id
		paymentId
		paymentStatus
		transactionId
		stripeInvoiceId
		paymentHistory
		paymentUpdatedAt
	}
}`,
	}

	UpdateCartMutation = domain.Query{
		Name: "updateCart",
		Document: `
mutation updateCart($id: String!, $_set: crm_orderCart_set_input!) {
	updateCartByPK(pk_columns: { id: $id }, _set: $_set) {
		id
	}
}`,
	}

	SendSMSMutation = domain.Query{
		Name: "sendSMS",
		Document: `
mutation sendSMS($message: String!, $phone: String!) {
	sendSMS(message: $message, phone: $phone) {
		success
		message
	}
}`,
	}
)
