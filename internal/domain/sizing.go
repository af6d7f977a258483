package domain

import "github.com/shopspring/decimal"

// SymbolFilters are the exchange-imposed quantization and minimum-size rules
// for one symbol. Values are kept as decimals parsed straight from the
// exchange strings so step comparisons stay exact.
type SymbolFilters struct {
	StepSize decimal.Decimal
	MinQty   decimal.Decimal
	TickSize decimal.Decimal

	MinNotional    decimal.Decimal
	HasMinNotional bool
}

type RejectReason string

const (
	RejectZeroQuantity     RejectReason = "zero-quantity"
	RejectBelowMinQty      RejectReason = "below-min-qty"
	RejectBelowMinNotional RejectReason = "below-min-notional"
	RejectSymbolNotFound   RejectReason = "symbol-not-found"
)

// SizingResult is either a tradable quantity or a tagged rejection.
type SizingResult struct {
	Quantity decimal.Decimal
	Reason   RejectReason
}

func (r SizingResult) Rejected() bool {
	return r.Reason != ""
}
