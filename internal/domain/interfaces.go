package domain

import "context"

// Exchange defines the futures gateway operations the pipeline consumes.
// Reads are safe to retry; order placement is not assumed idempotent.
type Exchange interface {
	GetMarkPrice(ctx context.Context, symbol string) (float64, error)
	GetLastPrice(ctx context.Context, symbol string) (float64, error)
	GetCloses(ctx context.Context, symbol, interval string, limit int) ([]float64, error)
	GetOrderBook(ctx context.Context, symbol string, limit int) (*OrderBook, error)
	GetSymbolFilters(ctx context.Context, symbol string) (*SymbolFilters, error)
	// GetPositionMode reports whether the account is in hedge (dual-side) mode.
	GetPositionMode(ctx context.Context) (bool, error)
	SetLeverage(ctx context.Context, symbol string, leverage int) error
	// PlaceMarketBuy places the entry order. positionSide is empty in one-way mode.
	PlaceMarketBuy(ctx context.Context, symbol, quantity string, positionSide Side) (*OrderResult, error)
	PlaceConditionalOrder(ctx context.Context, order *ConditionalOrder) (*OrderResult, error)
	GetPositionInfo(ctx context.Context, symbol string) ([]PositionInfo, error)
}

type OrderBookLevel struct {
	Price    float64
	Quantity float64
}

type OrderBook struct {
	Bids []OrderBookLevel
	Asks []OrderBookLevel
}

// OrderResult is the acknowledgement of a placed order. AvgPrice is zero when
// the exchange did not report an average fill price.
type OrderResult struct {
	OrderID  int64
	AvgPrice float64
	Status   string
}

type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

type ConditionalOrderType string

const (
	OrderTypeStopMarket         ConditionalOrderType = "STOP_MARKET"
	OrderTypeTrailingStopMarket ConditionalOrderType = "TRAILING_STOP_MARKET"
	OrderTypeLimit              ConditionalOrderType = "LIMIT"
)

// ConditionalOrder is a protective exit order. Price fields are pre-formatted
// strings already rounded to the symbol's tick size.
type ConditionalOrder struct {
	Symbol   string
	Side     OrderSide
	Type     ConditionalOrderType
	Quantity string

	StopPrice       string // STOP_MARKET trigger
	ActivationPrice string // trailing stop activation
	CallbackRate    string // trailing stop callback, percent
	Price           string // limit price for LIMIT take-profits

	PositionSide Side // empty in one-way mode
	ReduceOnly   bool
}

// AnnouncementFeed fetches the current page of exchange announcements.
type AnnouncementFeed interface {
	Fetch(ctx context.Context) ([]Announcement, error)
}
