package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrganizationModel struct {
	ID               string `gorm:"primaryKey"`
	GatewayAccountID string `gorm:"index"`
	SettlementModel  string `gorm:"not null"`
	Currency         string
	OrderStoreURL    string
	OrderStoreSecret string
	FixedFee         int64           `gorm:"not null;default:0"`
	PercentFee       decimal.Decimal `gorm:"type:numeric(9,4);not null;default:0"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (OrganizationModel) TableName() string { return "organizations" }

// CustomerContactModel is keyed by the gateway payment method token the
// customer paid with.
type CustomerContactModel struct {
	PaymentMethodToken string `gorm:"primaryKey"`
	FirstName          string
	LastName           string
	PhoneNumber        string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (CustomerContactModel) TableName() string { return "customer_contacts" }
