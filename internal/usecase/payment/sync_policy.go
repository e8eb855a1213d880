package usecase

import (
	"context"
	"log/slog"

	"github.com/LavaJover/shvark-payment-service/internal/domain"
)

const (
	SyncPolicyOperator  = "operator"
	SyncPolicyAutomatic = "automatic"
)

// OrderSyncPolicy decides what happens after the ledger was written and the
// order store write failed. The failure is still returned to the caller.
type OrderSyncPolicy interface {
	Defer(ctx context.Context, req *domain.PaymentRequest, cause *domain.StoreWriteError) error
}

// OperatorSyncPolicy parks the request in the backlog for the sweep command.
type OperatorSyncPolicy struct {
	Backlog domain.OrderSyncBacklog
	log     *slog.Logger
}

func NewOperatorSyncPolicy(backlog domain.OrderSyncBacklog, log *slog.Logger) *OperatorSyncPolicy {
	if log == nil {
		log = slog.Default()
	}
	return &OperatorSyncPolicy{Backlog: backlog, log: log}
}

func (p *OperatorSyncPolicy) Defer(ctx context.Context, req *domain.PaymentRequest, cause *domain.StoreWriteError) error {
	if p.Backlog == nil {
		p.log.Warn("order sync backlog disabled, manual reconciliation required", "payment_request_id", req.ID)
		return nil
	}
	return p.Backlog.AddPendingOrderSync(context.WithoutCancel(ctx), req.ID, cause.Error())
}

// AutomaticSyncPolicy parks the request and wakes the background sweeper.
type AutomaticSyncPolicy struct {
	*OperatorSyncPolicy
	wake chan struct{}
}

func NewAutomaticSyncPolicy(backlog domain.OrderSyncBacklog, log *slog.Logger) *AutomaticSyncPolicy {
	return &AutomaticSyncPolicy{
		OperatorSyncPolicy: NewOperatorSyncPolicy(backlog, log),
		wake:               make(chan struct{}, 1),
	}
}

func (p *AutomaticSyncPolicy) Defer(ctx context.Context, req *domain.PaymentRequest, cause *domain.StoreWriteError) error {
	if err := p.OperatorSyncPolicy.Defer(ctx, req, cause); err != nil {
		return err
	}
	select {
	case p.wake <- struct{}{}:
	default:
	}
	return nil
}

// Wake fires after a request was parked.
func (p *AutomaticSyncPolicy) Wake() <-chan struct{} {
	return p.wake
}
