package mappers

import (
	"encoding/json"

	"github.com/LavaJover/shvark-payment-service/internal/domain"
	"github.com/LavaJover/shvark-payment-service/internal/infrastructure/postgres/models"
)

func ToGORMPaymentRequest(req *domain.PaymentRequest) *models.PaymentRequestModel {
	return &models.PaymentRequestModel{
		ID:                 req.ID,
		OrganizationID:     req.OrganizationID,
		TransferGroup:      req.TransferGroup,
		Amount:             req.Amount,
		TransferAmount:     req.TransferAmount,
		Currency:           req.Currency,
		SettlementModel:    string(req.SettlementModel),
		PaymentMethodToken: req.PaymentMethodToken,
		CustomerGatewayID:  req.CustomerGatewayID,
		Status:             string(req.Status),
		GatewayChargeID:    req.GatewayChargeID,
		GatewayInvoiceID:   req.GatewayInvoiceID,
		RetryAttempt:       req.RetryAttempt,
		ChargeAttempt:      req.ChargeAttempt,
		CreatedAt:          req.CreatedAt,
		UpdatedAt:          req.UpdatedAt,
	}
}

// ToDomainPaymentRequest expects History to be loaded newest first.
func ToDomainPaymentRequest(model *models.PaymentRequestModel) *domain.PaymentRequest {
	history := make([]domain.HistoryEntry, 0, len(model.History))
	for i := range model.History {
		history = append(history, ToDomainHistoryEntry(&model.History[i]))
	}

	return &domain.PaymentRequest{
		ID:                 model.ID,
		OrganizationID:     model.OrganizationID,
		Amount:             model.Amount,
		TransferAmount:     model.TransferAmount,
		Currency:           model.Currency,
		SettlementModel:    domain.SettlementModel(model.SettlementModel),
		PaymentMethodToken: model.PaymentMethodToken,
		CustomerGatewayID:  model.CustomerGatewayID,
		TransferGroup:      model.TransferGroup,
		Status:             domain.PaymentStatus(model.Status),
		GatewayChargeID:    model.GatewayChargeID,
		GatewayInvoiceID:   model.GatewayInvoiceID,
		RetryAttempt:       model.RetryAttempt,
		ChargeAttempt:      model.ChargeAttempt,
		StatusHistory:      history,
		CreatedAt:          model.CreatedAt,
		UpdatedAt:          model.UpdatedAt,
	}
}

func ToDomainHistoryEntry(model *models.StatusHistoryModel) domain.HistoryEntry {
	return domain.HistoryEntry{
		Seq:        model.Seq,
		Status:     domain.PaymentStatus(model.Status),
		Source:     model.Source,
		Payload:    json.RawMessage(model.Payload),
		RecordedAt: model.RecordedAt,
	}
}
