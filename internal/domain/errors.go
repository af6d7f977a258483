package domain

import "errors"

// Sentinel errors the exchange adapter classifies API rejections into, so the
// usecases can branch with errors.Is instead of matching exchange error codes.
var (
	// ErrSymbolNotReady covers the invalid-symbol class returned while a fresh
	// listing has not fully propagated to the trading engine yet.
	ErrSymbolNotReady = errors.New("symbol not yet tradable")

	// ErrPositionSideRequired means the order was rejected because the account
	// is in hedge mode and the position-side tag was omitted.
	ErrPositionSideRequired = errors.New("position side required")

	// ErrReduceOnlyConflict means the exchange refused the reduce-only flag on
	// a conditional order.
	ErrReduceOnlyConflict = errors.New("reduce-only order rejected")

	// ErrSymbolFiltersNotFound means the exchange has no filter metadata for
	// the symbol.
	ErrSymbolFiltersNotFound = errors.New("no filters for symbol")

	// ErrLeverageUnavailable means every value in the leverage preference list
	// was rejected.
	ErrLeverageUnavailable = errors.New("no acceptable leverage")
)
