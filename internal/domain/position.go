package domain

type Side string

const (
	SideLong  Side = "LONG"
	SideShort Side = "SHORT"
	// SideBoth is what the exchange reports for the netted record in one-way mode.
	SideBoth Side = "BOTH"
)

// Position represents an open futures position created by the pipeline.
// PositionSide is set only when the account is in hedge mode; in one-way mode
// it stays empty and order calls omit the tag.
type Position struct {
	Symbol       string
	Quantity     string
	EntryPrice   float64
	Leverage     int
	PositionSide Side
}

// ProtectiveOrderSet records the best-effort exit orders attached to a
// position. A zero order id means that protection could not be placed; this is
// a risk condition, not a failure of the position itself.
type ProtectiveOrderSet struct {
	StopLossOrderID     int64
	TrailingStopOrderID int64
	TakeProfitOrderID   int64
}

// PositionInfo is one record from the exchange position endpoint. Hedge-mode
// accounts report one record per side, one-way accounts a single BOTH record.
type PositionInfo struct {
	PositionSide Side
	Quantity     float64
	EntryPrice   float64
}
