package graphql

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/LavaJover/shvark-payment-service/internal/domain"
)

// OrderStore is a tenant's order store reached through its GraphQL endpoint.
type OrderStore struct {
	remote domain.RemoteStore
}

func NewOrderStore(remote domain.RemoteStore) *OrderStore {
	return &OrderStore{remote: remote}
}

// NewOrderStoreFactory returns a domain.OrderStoreFactory building one client
// per organization endpoint.
func NewOrderStoreFactory(opts ...Option) domain.OrderStoreFactory {
	return func(baseURL, credential string) domain.OrderStore {
		return NewOrderStore(NewClient(baseURL, credential, opts...))
	}
}

type cartRow struct {
	ID               string            `json:"id"`
	PaymentID        string            `json:"paymentId"`
	PaymentStatus    string            `json:"paymentStatus"`
	TransactionID    string            `json:"transactionId"`
	StripeInvoiceID  string            `json:"stripeInvoiceId"`
	PaymentHistory   []json.RawMessage `json:"paymentHistory"`
	PaymentUpdatedAt *time.Time        `json:"paymentUpdatedAt"`
}

func (s *OrderStore) GetOrder(ctx context.Context, cartID string) (*domain.Order, error) {
	rec, err := s.remote.Fetch(ctx, CartQuery, domain.Args{"id": cartID})
	if err != nil {
		return nil, err
	}
	var row cartRow
	if err := Decode(rec, "cart", &row); err != nil {
		return nil, err
	}

	order := &domain.Order{
		CartID:           row.ID,
		PaymentID:        row.PaymentID,
		PaymentStatus:    domain.PaymentStatus(row.PaymentStatus),
		GatewayChargeID:  row.TransactionID,
		GatewayInvoiceID: row.StripeInvoiceID,
		PaymentHistory:   row.PaymentHistory,
	}
	if row.PaymentUpdatedAt != nil {
		order.PaymentUpdatedAt = *row.PaymentUpdatedAt
	}
	return order, nil
}

func (s *OrderStore) LinkPayment(ctx context.Context, cartID, paymentID string) error {
	return s.updateCart(ctx, cartID, map[string]any{
		"paymentId":        paymentID,
		"paymentUpdatedAt": time.Now().UTC().Format(time.RFC3339Nano),
	})
}

func (s *OrderStore) UpdatePayment(ctx context.Context, update domain.OrderUpdate) error {
	set := map[string]any{
		"paymentId":        update.PaymentID,
		"paymentStatus":    string(update.PaymentStatus),
		"paymentHistory":   update.History,
		"paymentUpdatedAt": update.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
	if update.GatewayChargeID != "" {
		set["transactionId"] = update.GatewayChargeID
	}
	if update.GatewayInvoiceID != "" {
		set["stripeInvoiceId"] = update.GatewayInvoiceID
	}
	return s.updateCart(ctx, update.CartID, set)
}

func (s *OrderStore) updateCart(ctx context.Context, cartID string, set map[string]any) error {
	rec, err := s.remote.Mutate(ctx, UpdateCartMutation, domain.Args{"id": cartID, "_set": set})
	if err != nil {
		return err
	}
	var row struct {
		ID string `json:"id"`
	}
	if err := Decode(rec, "updateCartByPK", &row); err != nil {
		return fmt.Errorf("cart %s: %w", cartID, err)
	}
	return nil
}
