package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/LavaJover/shvark-payment-service/internal/app/background"
	"github.com/LavaJover/shvark-payment-service/internal/app/setup"
	"github.com/LavaJover/shvark-payment-service/internal/delivery/grpcapi"
	"github.com/LavaJover/shvark-payment-service/internal/delivery/http/handlers"
	consumer "github.com/LavaJover/shvark-payment-service/internal/delivery/kafka"
	publisher "github.com/LavaJover/shvark-payment-service/internal/infrastructure/kafka"
	"github.com/LavaJover/shvark-payment-service/internal/infrastructure/migrate"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"golang.org/x/sync/errgroup"
)

func serveCmd() *cobra.Command {
	var (
		runMigrations bool
		noConsumer    bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP, gRPC health and Kafka consumer endpoints",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
				propagation.TraceContext{}, propagation.Baggage{},
			))

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			deps, err := setup.InitializeDependencies(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer deps.Close()

			if runMigrations {
				if err := migrate.RunMigrations(deps.DB, cfg.LedgerDB.MigrationsPath, log); err != nil {
					return err
				}
			}

			ucs, err := setup.InitializeUsecases(deps)
			if err != nil {
				return err
			}

			if cfg.HTTPServer.WebhookSecret == "" {
				log.Warn("webhook_secret is empty, gateway webhooks will be rejected")
			}
			paymentHandler := handlers.NewPaymentHandler(ucs.Payment, log, cfg.HTTPServer.WebhookSecret)
			srv := &http.Server{
				Addr:              net.JoinHostPort(cfg.HTTPServer.Host, cfg.HTTPServer.Port),
				Handler:           handlers.NewRouter(paymentHandler, handlers.RouterConfig{HookSecret: cfg.HTTPServer.HookSecret, Logger: log}),
				ReadHeaderTimeout: 5 * time.Second,
				WriteTimeout:      cfg.Timeouts.Gateway*3 + cfg.Timeouts.Store*2,
			}

			background.NewBackgroundTasks(ucs.Payment, ucs.Wake, cfg.Reconcile.SweepInterval, cfg.Reconcile.SweepBatch, log).StartAll(ctx)

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				log.Info("http listening", "addr", srv.Addr)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			g.Go(func() error {
				<-gctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Timeouts.Shutdown)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			})

			healthSrv := grpcapi.NewServer(log)
			g.Go(func() error {
				return healthSrv.Serve(gctx, net.JoinHostPort(cfg.GRPCServer.Host, cfg.GRPCServer.Port))
			})

			if !noConsumer && len(cfg.KafkaService.Brokers) > 0 {
				sub, err := publisher.NewDefaultKafkaSubscriber(cfg.KafkaService, log)
				if err != nil {
					return err
				}
				c := consumer.NewPaymentRequestConsumer(sub, ucs.Payment,
					cfg.KafkaService.RequestsTopic, cfg.KafkaService.ConsumerGroup, cfg.KafkaService.ConsumerWorkers, log)
				g.Go(func() error { return c.Run(gctx) })
			}

			err = g.Wait()
			log.Info("payment-service shutdown complete")
			return err
		},
	}
	cmd.Flags().BoolVar(&runMigrations, "migrate", false, "apply SQL migrations before serving")
	cmd.Flags().BoolVar(&noConsumer, "no-consumer", false, "do not consume the payment request topic")
	return cmd
}
