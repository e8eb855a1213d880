package setup

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/LavaJover/shvark-payment-service/internal/config"
	"github.com/LavaJover/shvark-payment-service/internal/domain"
	"github.com/LavaJover/shvark-payment-service/internal/infrastructure/gateway/stripe"
	"github.com/LavaJover/shvark-payment-service/internal/infrastructure/graphql"
	publisher "github.com/LavaJover/shvark-payment-service/internal/infrastructure/kafka"
	"github.com/LavaJover/shvark-payment-service/internal/infrastructure/lock"
	"github.com/LavaJover/shvark-payment-service/internal/infrastructure/metrics"
	"github.com/LavaJover/shvark-payment-service/internal/infrastructure/postgres"
	"github.com/LavaJover/shvark-payment-service/internal/infrastructure/postgres/repository"
	redisstore "github.com/LavaJover/shvark-payment-service/internal/infrastructure/redis"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Dependencies struct {
	Config    *config.PaymentConfig
	Log       *slog.Logger
	DB        *gorm.DB
	Redis     *redis.Client
	Publisher *publisher.DefaultKafkaPublisher
	Metrics   *metrics.PaymentMetrics
	Adapters  *Adapters
}

// Adapters are the ports the engine runs against. Optional ones stay nil
// when their backing service is not configured.
type Adapters struct {
	Ledger      *repository.DefaultLedgerRepository
	OrderStores domain.OrderStoreFactory
	Gateway     domain.Gateway
	Notifier    domain.Notifier
	Events      domain.PaymentEventPublisher
	Dedup       domain.EventDeduplicator
	Locker      domain.Locker
}

func InitializeDependencies(ctx context.Context, cfg *config.PaymentConfig, log *slog.Logger) (*Dependencies, error) {
	db, err := postgres.InitDB(cfg, log)
	if err != nil {
		return nil, err
	}

	deps := &Dependencies{
		Config:  cfg,
		Log:     log,
		DB:      db,
		Metrics: metrics.NewPaymentMetrics(),
		Adapters: &Adapters{
			Ledger:      repository.NewDefaultLedgerRepository(db),
			OrderStores: graphql.NewOrderStoreFactory(),
			Gateway: stripe.NewClient(cfg.Gateway.SecretKey,
				stripe.WithBaseURL(cfg.Gateway.BaseURL),
				stripe.WithLogger(log),
			),
			Locker: lock.NewKeyed(),
		},
	}

	if cfg.Notification.Enabled && cfg.Ledger.URL != "" {
		deps.Adapters.Notifier = graphql.NewSMSNotifier(graphql.NewClient(cfg.Ledger.URL, cfg.Ledger.AdminSecret))
	} else {
		log.Warn("sms notifications disabled")
	}

	if len(cfg.KafkaService.Brokers) > 0 {
		pub, err := publisher.NewDefaultKafkaPublisher(cfg.KafkaService)
		if err != nil {
			return nil, fmt.Errorf("payment event publisher: %w", err)
		}
		deps.Publisher = pub
		deps.Adapters.Events = pub
	} else {
		log.Warn("kafka brokers not configured, payment events are not published")
	}

	if cfg.Redis.Addr != "" {
		rdb, err := redisstore.Connect(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			deps.Close()
			return nil, err
		}
		deps.Redis = rdb
		deps.Adapters.Dedup = redisstore.NewEventDeduplicator(rdb, cfg.Redis.DedupTTL)
	} else {
		log.Warn("redis not configured, gateway events are not deduplicated")
	}

	return deps, nil
}

func (d *Dependencies) Close() {
	if d.Publisher != nil {
		if err := d.Publisher.Close(); err != nil {
			d.Log.Error("close kafka publisher", "error", err)
		}
	}
	if d.Redis != nil {
		_ = d.Redis.Close()
	}
	if d.DB != nil {
		if sqlDB, err := d.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}
