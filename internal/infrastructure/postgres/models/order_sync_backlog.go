package models

import "time"

type OrderSyncBacklogModel struct {
	PaymentRequestID string `gorm:"primaryKey"`
	Reason           string
	Attempts         int `gorm:"not null;default:1"`
	CreatedAt        time.Time
	UpdatedAt        time.Time `gorm:"index"`
}

func (OrderSyncBacklogModel) TableName() string { return "order_sync_backlog" }

// All lists every table of the ledger database.
func All() []any {
	return []any{
		&OrganizationModel{},
		&CustomerContactModel{},
		&PaymentRequestModel{},
		&StatusHistoryModel{},
		&OrderSyncBacklogModel{},
	}
}
