package models

import (
	"errors"
	"fmt"
)

// Sentinel errors for the failure taxonomy. Failures are caught at the
// smallest possible scope (per field, per symbol) and converted to typed
// unavailable values; only ErrEmptyRequest is user-visible.
var (
	// ErrNotFound means a free-text name did not map to a symbol.
	// Per-name skip, never fatal for the whole request.
	ErrNotFound = errors.New("symbol not found")

	// ErrEmptyRequest means no symbol resolved from the whole input.
	// Terminal for the request, not a crash.
	ErrEmptyRequest = errors.New("no symbols resolved from request")

	// ErrThrottled marks a provider rate limit or transient network failure.
	// Treated identically to data-unavailable for the affected call, with
	// the cache absorbing repeat attempts until TTL expiry.
	ErrThrottled = errors.New("provider throttled")
)

// DataUnavailableError marks a specific field or series that could not be
// obtained. Only that field degrades; computation continues elsewhere.
type DataUnavailableError struct {
	Kind   string // data kind, e.g. "fundamentals", "history", "dividends"
	Symbol string
	Err    error
}

func (e *DataUnavailableError) Error() string {
	return fmt.Sprintf("%s unavailable for %s: %v", e.Kind, e.Symbol, e.Err)
}

func (e *DataUnavailableError) Unwrap() error {
	return e.Err
}

// Unavailable wraps err as a DataUnavailableError for the given kind/symbol.
func Unavailable(kind, symbol string, err error) error {
	return &DataUnavailableError{Kind: kind, Symbol: symbol, Err: err}
}
