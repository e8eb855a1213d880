package models

import (
	"time"

	"gorm.io/datatypes"
)

type PaymentRequestModel struct {
	ID                 string `gorm:"primaryKey"`
	OrganizationID     string `gorm:"not null;uniqueIndex:idx_payment_requests_org_transfer_group"`
	TransferGroup      string `gorm:"not null;uniqueIndex:idx_payment_requests_org_transfer_group"`
	Amount             int64  `gorm:"not null"`
	TransferAmount     int64
	Currency           string
	SettlementModel    string `gorm:"not null"`
	PaymentMethodToken string
	CustomerGatewayID  string
	Status             string `gorm:"not null;index"`
	GatewayChargeID    string `gorm:"index"`
	GatewayInvoiceID   string `gorm:"index"`
	RetryAttempt       int    `gorm:"not null;default:0"`
	ChargeAttempt      int    `gorm:"not null;default:0"`
	// HistorySeq is the Seq of the newest history row
	HistorySeq int64 `gorm:"not null;default:0"`
	CreatedAt  time.Time
	UpdatedAt  time.Time

	History []StatusHistoryModel `gorm:"foreignKey:PaymentRequestID;references:ID"`
}

func (PaymentRequestModel) TableName() string { return "payment_requests" }

// StatusHistoryModel rows are insert-only.
type StatusHistoryModel struct {
	ID               uint   `gorm:"primaryKey;autoIncrement"`
	PaymentRequestID string `gorm:"not null;uniqueIndex:idx_payment_status_history_seq"`
	Seq              int64  `gorm:"not null;uniqueIndex:idx_payment_status_history_seq"`
	Status           string
	Source           string `gorm:"not null"`
	RetryAttempt     int    `gorm:"not null;default:0"`
	Payload          datatypes.JSON
	RecordedAt       time.Time `gorm:"not null"`
}

func (StatusHistoryModel) TableName() string { return "payment_status_history" }
