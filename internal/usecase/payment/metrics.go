package usecase

import "github.com/LavaJover/shvark-payment-service/internal/domain"

func (uc *DefaultPaymentUsecase) recordCheckpoint(name string, model domain.SettlementModel) {
	if uc.Metrics == nil {
		return
	}
	uc.Metrics.RecordCheckpoint(name, string(model))
}

func (uc *DefaultPaymentUsecase) recordStatus(status domain.PaymentStatus) {
	if uc.Metrics == nil {
		return
	}
	uc.Metrics.RecordStatus(string(status))
}

func (uc *DefaultPaymentUsecase) recordUnmappedStatus(gatewayStatus string) {
	if uc.Metrics == nil {
		return
	}
	uc.Metrics.RecordUnmappedStatus(gatewayStatus)
}

func (uc *DefaultPaymentUsecase) recordGatewayError(op string) {
	if uc.Metrics == nil {
		return
	}
	uc.Metrics.RecordGatewayError(op)
}

func (uc *DefaultPaymentUsecase) recordStoreWriteError(store string) {
	if uc.Metrics == nil {
		return
	}
	uc.Metrics.RecordStoreWriteError(store)
}

func (uc *DefaultPaymentUsecase) recordNotification(outcome string) {
	if uc.Metrics == nil {
		return
	}
	uc.Metrics.RecordNotification(outcome)
}

func (uc *DefaultPaymentUsecase) recordSweep(resolved, failed int) {
	if uc.Metrics == nil {
		return
	}
	uc.Metrics.RecordSweep("resolved", resolved)
	uc.Metrics.RecordSweep("failed", failed)
}
