package replay

import "errors"

// Errors
var (
	ErrInvalidOrdering = errors.New("bars are not in deterministic order")
	ErrDuplicateBar    = errors.New("duplicate bar for symbol and timestamp")
	ErrEmptySeries     = errors.New("empty bar series")
)
