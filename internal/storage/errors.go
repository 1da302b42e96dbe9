package storage

import "errors"

// Store errors. Runs, trades, fills and bars are written once and never updated.
var (
	// ErrNotFound is returned for an unknown run_id, trade_id or symbol.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when a run, trade, fill set or bar is inserted twice.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrInvalidInput is returned for nil records or records without a key.
	ErrInvalidInput = errors.New("invalid input")
)
