package background

import (
	"context"
	"log/slog"
	"time"

	usecase "github.com/LavaJover/shvark-payment-service/internal/usecase/payment"
)

type BackgroundTasks struct {
	PaymentUsecase usecase.PaymentUsecase
	// Wake triggers an immediate sweep; nil keeps the ticker only.
	Wake          <-chan struct{}
	SweepInterval time.Duration
	SweepBatch    int
	log           *slog.Logger
}

func NewBackgroundTasks(paymentUC usecase.PaymentUsecase, wake <-chan struct{}, interval time.Duration, batch int, log *slog.Logger) *BackgroundTasks {
	return &BackgroundTasks{
		PaymentUsecase: paymentUC,
		Wake:           wake,
		SweepInterval:  interval,
		SweepBatch:     batch,
		log:            log,
	}
}

func (bt *BackgroundTasks) StartAll(ctx context.Context) {
	go bt.startOrderSyncSweep(ctx)
}

// startOrderSyncSweep retries order store writes parked in the backlog.
func (bt *BackgroundTasks) startOrderSyncSweep(ctx context.Context) {
	if bt.SweepInterval <= 0 {
		bt.log.Info("order sync sweep disabled")
		return
	}
	ticker := time.NewTicker(bt.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-bt.Wake:
		}
		bt.sweepOnce(ctx)
	}
}

func (bt *BackgroundTasks) sweepOnce(ctx context.Context) {
	out, err := bt.PaymentUsecase.SweepOrderSyncs(ctx, bt.SweepBatch)
	if err != nil {
		bt.log.Error("order sync sweep failed", "error", err)
		return
	}
	if out.Checked > 0 {
		bt.log.Info("order sync sweep",
			"checked", out.Checked,
			"resolved", out.Resolved,
			"failed", out.Failed,
		)
	}
}
