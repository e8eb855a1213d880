package domain

import "github.com/shopspring/decimal"

type Organization struct {
	ID               string
	GatewayAccountID string
	SettlementModel  SettlementModel
	Currency         string
	OrderStoreURL    string
	OrderStoreSecret string
	Fees             FeeSchedule
}

// FeeSchedule is only used for DIRECT transfer amounts. FixedFee is in minor
// units, PercentFee is a percentage (2 means 2%).
type FeeSchedule struct {
	FixedFee   int64
	PercentFee decimal.Decimal
}

func (o *Organization) Linked() bool {
	return o != nil && o.GatewayAccountID != ""
}

// TransferAmount computes amount - fixedFee - floor(amount * percentFee / 100)
// in minor units. The percentage part is truncated to match the gateway's
// integer semantics.
func TransferAmount(amount int64, fees FeeSchedule) int64 {
	percentPart := decimal.NewFromInt(amount).
		Mul(fees.PercentFee).
		Div(decimal.NewFromInt(100)).
		Floor().
		IntPart()

	return amount - fees.FixedFee - percentPart
}
