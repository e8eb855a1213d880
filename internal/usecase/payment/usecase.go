package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/LavaJover/shvark-payment-service/internal/domain"
	"github.com/LavaJover/shvark-payment-service/internal/infrastructure/metrics"
	paymentdto "github.com/LavaJover/shvark-payment-service/internal/usecase/dto/payment"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

type PaymentUsecase interface {
	ProcessNewRequest(ctx context.Context, input *paymentdto.NewRequestInput) (*paymentdto.GatewayResult, error)
	RetryRequest(ctx context.Context, input *paymentdto.RetryInput) (*paymentdto.GatewayResult, error)
	InitiateOrReattempt(ctx context.Context, input *paymentdto.InitiateInput) (*paymentdto.InitiateOutput, error)
	ProcessGatewayEvent(ctx context.Context, event *domain.GatewayEvent) (*paymentdto.EventOutput, error)
	SweepOrderSyncs(ctx context.Context, limit int) (*paymentdto.SweepOutput, error)
}

// Timeouts bound every outbound call. Zero means no extra deadline.
type Timeouts struct {
	Gateway      time.Duration
	Store        time.Duration
	Notification time.Duration
	Lock         time.Duration
}

type Options struct {
	Timeouts    Timeouts
	PhonePrefix string
	Logger      *slog.Logger
	Now         func() time.Time
}

type DefaultPaymentUsecase struct {
	Ledger      domain.LedgerStore
	Backlog     domain.OrderSyncBacklog
	OrderStores domain.OrderStoreFactory
	Gateway     domain.Gateway
	Notifier    domain.Notifier
	Publisher   domain.PaymentEventPublisher
	Dedup       domain.EventDeduplicator
	Locker      domain.Locker
	SyncPolicy  OrderSyncPolicy
	Metrics     *metrics.PaymentMetrics

	opts   Options
	log    *slog.Logger
	tracer trace.Tracer
}

func NewDefaultPaymentUsecase(
	ledger domain.LedgerStore,
	backlog domain.OrderSyncBacklog,
	orderStores domain.OrderStoreFactory,
	gateway domain.Gateway,
	notifier domain.Notifier,
	publisher domain.PaymentEventPublisher,
	dedup domain.EventDeduplicator,
	locker domain.Locker,
	syncPolicy OrderSyncPolicy,
	paymentMetrics *metrics.PaymentMetrics,
	opts Options) *DefaultPaymentUsecase {

	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.PhonePrefix == "" {
		opts.PhonePrefix = DefaultPhonePrefix
	}
	if syncPolicy == nil {
		syncPolicy = NewOperatorSyncPolicy(backlog, opts.Logger)
	}

	return &DefaultPaymentUsecase{
		Ledger:      ledger,
		Backlog:     backlog,
		OrderStores: orderStores,
		Gateway:     gateway,
		Notifier:    notifier,
		Publisher:   publisher,
		Dedup:       dedup,
		Locker:      locker,
		SyncPolicy:  syncPolicy,
		Metrics:     paymentMetrics,
		opts:        opts,
		log:         opts.Logger,
		tracer:      otel.Tracer("payment-usecase"),
	}
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

func (uc *DefaultPaymentUsecase) gatewayCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return withTimeout(ctx, uc.opts.Timeouts.Gateway)
}

func (uc *DefaultPaymentUsecase) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return withTimeout(ctx, uc.opts.Timeouts.Store)
}

// lock takes the per-key single-flight lock.
func (uc *DefaultPaymentUsecase) lock(ctx context.Context, key string) (func(), error) {
	if uc.Locker == nil {
		return func() {}, nil
	}
	lctx, cancel := withTimeout(ctx, uc.opts.Timeouts.Lock)
	defer cancel()
	return uc.Locker.Lock(lctx, key)
}

// gatewayErr counts the failure and makes sure it carries the GatewayError kind.
func (uc *DefaultPaymentUsecase) gatewayErr(op string, err error) error {
	uc.recordGatewayError(op)
	var gwErr *domain.GatewayError
	if errors.As(err, &gwErr) {
		return err
	}
	return &domain.GatewayError{Op: op, Err: err}
}

// loadOrganization resolves the tenant and rejects it when no gateway
// account is linked.
func (uc *DefaultPaymentUsecase) loadOrganization(ctx context.Context, organizationID string) (*domain.Organization, error) {
	sctx, cancel := uc.storeCtx(ctx)
	defer cancel()

	org, err := uc.Ledger.GetOrganization(sctx, organizationID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrUnlinkedAccount
		}
		return nil, err
	}
	if !org.Linked() {
		return nil, domain.ErrUnlinkedAccount
	}
	return org, nil
}

func (uc *DefaultPaymentUsecase) getRequest(ctx context.Context, id string) (*domain.PaymentRequest, error) {
	sctx, cancel := uc.storeCtx(ctx)
	defer cancel()
	return uc.Ledger.GetPaymentRequest(sctx, id)
}

// observe records the duration of one entry point.
func (uc *DefaultPaymentUsecase) observe(operation string, start time.Time, err error) {
	if uc.Metrics == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = errorKind(err)
	}
	uc.Metrics.RecordOperation(operation, result, time.Since(start).Seconds())
}

func errorKind(err error) string {
	var (
		gwErr       *domain.GatewayError
		storeErr    *domain.StoreWriteError
		unmappedErr *domain.UnmappedStatusError
	)
	switch {
	case errors.Is(err, domain.ErrUnlinkedAccount):
		return "unlinked_account"
	case errors.Is(err, domain.ErrInvalidInput):
		return "invalid_input"
	case errors.As(err, &gwErr):
		return "gateway_error"
	case errors.As(err, &storeErr):
		return "store_write_error"
	case errors.As(err, &unmappedErr):
		return "unmapped_status"
	}
	return "error"
}
