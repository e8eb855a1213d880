package domain

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrUnlinkedAccount = errors.New("organization has no gateway account linked")
	ErrInvalidInput    = errors.New("invalid input")
	ErrNotFound        = errors.New("not found")
	ErrLockTimeout     = errors.New("payment request is locked by another operation")
	ErrAlreadySettled  = errors.New("payment request already succeeded")
	ErrChargeInFlight  = errors.New("previous charge is still being processed")
)

// GatewayError is any failure returned by the payment processor.
type GatewayError struct {
	Op      string
	Err     error
	Payload json.RawMessage
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("gateway %s: %v", e.Op, e.Err)
}

func (e *GatewayError) Unwrap() error { return e.Err }

const (
	LedgerStoreName = "ledger"
	OrderStoreName  = "order"
)

// StoreWriteError is a failed write to the ledger or to the order store.
// Completed gateway side effects are not undone.
type StoreWriteError struct {
	Store string
	Op    string
	Err   error
}

func (e *StoreWriteError) Error() string {
	return fmt.Sprintf("%s store %s: %v", e.Store, e.Op, e.Err)
}

func (e *StoreWriteError) Unwrap() error { return e.Err }

type UnmappedStatusError struct {
	Status string
}

func (e *UnmappedStatusError) Error() string {
	return fmt.Sprintf("unmapped gateway status %q", e.Status)
}

// IsOrderStoreFailure reports whether err is a failed order store write.
func IsOrderStoreFailure(err error) bool {
	var storeErr *StoreWriteError
	return errors.As(err, &storeErr) && storeErr.Store == OrderStoreName
}
