package mappers

import (
	"github.com/LavaJover/shvark-payment-service/internal/domain"
	"github.com/LavaJover/shvark-payment-service/internal/infrastructure/postgres/models"
)

func ToDomainOrganization(model *models.OrganizationModel) *domain.Organization {
	return &domain.Organization{
		ID:               model.ID,
		GatewayAccountID: model.GatewayAccountID,
		SettlementModel:  domain.SettlementModel(model.SettlementModel),
		Currency:         model.Currency,
		OrderStoreURL:    model.OrderStoreURL,
		OrderStoreSecret: model.OrderStoreSecret,
		Fees: domain.FeeSchedule{
			FixedFee:   model.FixedFee,
			PercentFee: model.PercentFee,
		},
	}
}

func ToGORMOrganization(org *domain.Organization) *models.OrganizationModel {
	return &models.OrganizationModel{
		ID:               org.ID,
		GatewayAccountID: org.GatewayAccountID,
		SettlementModel:  string(org.SettlementModel),
		Currency:         org.Currency,
		OrderStoreURL:    org.OrderStoreURL,
		OrderStoreSecret: org.OrderStoreSecret,
		FixedFee:         org.Fees.FixedFee,
		PercentFee:       org.Fees.PercentFee,
	}
}

func ToDomainCustomerContact(model *models.CustomerContactModel) *domain.CustomerContact {
	return &domain.CustomerContact{
		FirstName:   model.FirstName,
		LastName:    model.LastName,
		PhoneNumber: model.PhoneNumber,
	}
}

func ToDomainPendingOrderSync(model *models.OrderSyncBacklogModel) domain.PendingOrderSync {
	return domain.PendingOrderSync{
		PaymentRequestID: model.PaymentRequestID,
		Reason:           model.Reason,
		Attempts:         model.Attempts,
	}
}
