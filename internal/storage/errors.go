package storage

import (
	"errors"
	"fmt"
)

// Storage errors.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when attempting to insert a record
	// with a key that already exists. Trade stores do not allow updates.
	ErrDuplicateKey = errors.New("duplicate key: append-only store does not allow updates")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")
)

// Record kinds carried by RecordError.
const (
	RecordTrade   = "trade"
	RecordHolding = "holding"
)

// RecordError names the trade or holding a write failed on.
// errors.Is matches the wrapped sentinel.
type RecordError struct {
	Kind string
	ID   string
	Err  error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Kind, e.ID, e.Err)
}

func (e *RecordError) Unwrap() error { return e.Err }

// TradeError wraps err with the trade_id it concerns.
func TradeError(tradeID string, err error) error {
	return &RecordError{Kind: RecordTrade, ID: tradeID, Err: err}
}

// HoldingError wraps err with the holding_id it concerns.
func HoldingError(holdingID string, err error) error {
	return &RecordError{Kind: RecordHolding, ID: holdingID, Err: err}
}
