package setup

import (
	"fmt"

	usecase "github.com/LavaJover/shvark-payment-service/internal/usecase/payment"
)

type Usecases struct {
	Payment *usecase.DefaultPaymentUsecase
	// Wake is non-nil with the automatic order sync policy.
	Wake <-chan struct{}
}

func InitializeUsecases(deps *Dependencies) (*Usecases, error) {
	cfg := deps.Config
	a := deps.Adapters

	var (
		policy usecase.OrderSyncPolicy
		wake   <-chan struct{}
	)
	switch cfg.Reconcile.OrderSyncPolicy {
	case "", usecase.SyncPolicyOperator:
		policy = usecase.NewOperatorSyncPolicy(a.Ledger, deps.Log)
	case usecase.SyncPolicyAutomatic:
		auto := usecase.NewAutomaticSyncPolicy(a.Ledger, deps.Log)
		policy, wake = auto, auto.Wake()
	default:
		return nil, fmt.Errorf("unknown order sync policy %q", cfg.Reconcile.OrderSyncPolicy)
	}

	paymentUc := usecase.NewDefaultPaymentUsecase(
		a.Ledger,
		a.Ledger,
		a.OrderStores,
		a.Gateway,
		a.Notifier,
		a.Events,
		a.Dedup,
		a.Locker,
		policy,
		deps.Metrics,
		usecase.Options{
			Timeouts: usecase.Timeouts{
				Gateway:      cfg.Timeouts.Gateway,
				Store:        cfg.Timeouts.Store,
				Notification: cfg.Timeouts.Notification,
				Lock:         cfg.Timeouts.Lock,
			},
			PhonePrefix: cfg.Notification.PhonePrefix,
			Logger:      deps.Log,
		},
	)

	return &Usecases{Payment: paymentUc, Wake: wake}, nil
}
