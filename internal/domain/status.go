package domain

// Charge statuses reported by the gateway.
const (
	ChargeRequiresAction = "requires_action"
	ChargeProcessing     = "processing"
	ChargeCanceled       = "canceled"
	ChargeSucceeded      = "succeeded"
)

var chargeStatusTable = map[string]PaymentStatus{
	ChargeRequiresAction: StatusRequiresAction,
	ChargeProcessing:     StatusProcessing,
	ChargeCanceled:       StatusCancelled,
	ChargeSucceeded:      StatusSucceeded,
}

// TranslateChargeStatus maps a gateway charge status to the domain status.
// Unknown values are an error, never a default.
func TranslateChargeStatus(gatewayStatus string) (PaymentStatus, error) {
	status, ok := chargeStatusTable[gatewayStatus]
	if !ok {
		return "", &UnmappedStatusError{Status: gatewayStatus}
	}
	return status, nil
}

func (s PaymentStatus) IsTerminal() bool {
	switch s {
	case StatusSucceeded, StatusCancelled, StatusFailed:
		return true
	}
	return false
}

func (s PaymentStatus) Valid() bool {
	switch s {
	case StatusPending, StatusRequiresAction, StatusProcessing,
		StatusSucceeded, StatusCancelled, StatusFailed:
		return true
	}
	return false
}

// CanTransition reports whether a request may move from one status to
// another within the same retry attempt. Re-applying the current status is
// allowed so that duplicate deliveries stay idempotent.
func CanTransition(from, to PaymentStatus) bool {
	if from == to {
		return true
	}
	if from == "" {
		return true
	}
	if from.IsTerminal() {
		return false
	}
	// nothing moves back to PENDING
	return to != StatusPending
}
