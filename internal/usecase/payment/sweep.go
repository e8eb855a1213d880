package usecase

import (
	"context"
	"time"

	paymentdto "github.com/LavaJover/shvark-payment-service/internal/usecase/dto/payment"
)

const DefaultSweepLimit = 100

// SweepOrderSyncs rewrites the order rows of parked requests from the ledger.
// Entries that fail again stay parked with their attempt counter bumped.
func (uc *DefaultPaymentUsecase) SweepOrderSyncs(ctx context.Context, limit int) (output *paymentdto.SweepOutput, err error) {
	start := time.Now()
	ctx, span := uc.tracer.Start(ctx, "SweepOrderSyncs")
	defer func() {
		uc.observe("sweep_order_syncs", start, err)
		span.End()
	}()

	output = &paymentdto.SweepOutput{}
	if uc.Backlog == nil {
		return output, nil
	}
	if limit <= 0 {
		limit = DefaultSweepLimit
	}

	sctx, cancel := uc.storeCtx(ctx)
	pending, err := uc.Backlog.ListPendingOrderSyncs(sctx, limit)
	cancel()
	if err != nil {
		return nil, err
	}

	for _, p := range pending {
		if ctx.Err() != nil {
			break
		}
		output.Checked++

		if err := uc.resync(ctx, p.PaymentRequestID); err != nil {
			output.Failed++
			uc.log.Warn("order sync still failing",
				"payment_request_id", p.PaymentRequestID,
				"attempts", p.Attempts+1,
				"error", err,
			)
			sctx, cancel := uc.storeCtx(ctx)
			if err := uc.Backlog.AddPendingOrderSync(sctx, p.PaymentRequestID, err.Error()); err != nil {
				uc.log.Error("failed to update order sync backlog", "payment_request_id", p.PaymentRequestID, "error", err)
			}
			cancel()
			continue
		}

		sctx, cancel := uc.storeCtx(ctx)
		err := uc.Backlog.ResolvePendingOrderSync(sctx, p.PaymentRequestID)
		cancel()
		if err != nil {
			output.Failed++
			uc.log.Error("failed to resolve order sync", "payment_request_id", p.PaymentRequestID, "error", err)
			continue
		}
		output.Resolved++
	}

	uc.recordSweep(output.Resolved, output.Failed)
	if output.Checked > 0 {
		uc.log.Info("order sync sweep finished",
			"checked", output.Checked,
			"resolved", output.Resolved,
			"failed", output.Failed,
		)
	}
	return output, ctx.Err()
}

func (uc *DefaultPaymentUsecase) resync(ctx context.Context, requestID string) error {
	unlock, err := uc.lock(ctx, requestID)
	if err != nil {
		return err
	}
	defer unlock()

	req, err := uc.getRequest(ctx, requestID)
	if err != nil {
		return err
	}
	return uc.syncOrder(ctx, nil, req)
}
