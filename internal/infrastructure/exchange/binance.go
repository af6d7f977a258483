package exchange

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
	"github.com/adshao/go-binance/v2/futures"
	"github.com/shopspring/decimal"

	"github.com/vitos/listing_sniper/internal/domain"
)

// Binance USDⓈ-M futures error codes classified into domain sentinels.
const (
	codeInvalidSymbol        = -1121
	codePositionSideMismatch = -4061
	codeReduceOnlyRejected   = -2022
)

// BinanceAdapter implements domain.Exchange on the go-binance futures client.
// Every call runs under a short per-call timeout so a stalled request cannot
// hang a pipeline.
type BinanceAdapter struct {
	client      *futures.Client
	callTimeout time.Duration
}

func NewBinanceAdapter(apiKey, apiSecret string, testnet bool) *BinanceAdapter {
	if testnet {
		futures.UseTestnet = true
	}
	return &BinanceAdapter{
		client:      binance.NewFuturesClient(apiKey, apiSecret),
		callTimeout: 5 * time.Second,
	}
}

func (a *BinanceAdapter) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, a.callTimeout)
}

// classify maps exchange API errors onto the domain sentinels the usecases
// branch on. Unrecognized errors pass through untouched.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *common.APIError
	if !errors.As(err, &apiErr) {
		return err
	}
	switch apiErr.Code {
	case codeInvalidSymbol:
		return fmt.Errorf("%w: %s", domain.ErrSymbolNotReady, apiErr.Message)
	case codePositionSideMismatch:
		return fmt.Errorf("%w: %s", domain.ErrPositionSideRequired, apiErr.Message)
	case codeReduceOnlyRejected:
		return fmt.Errorf("%w: %s", domain.ErrReduceOnlyConflict, apiErr.Message)
	}
	return err
}

func (a *BinanceAdapter) GetMarkPrice(ctx context.Context, symbol string) (float64, error) {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	res, err := a.client.NewPremiumIndexService().Symbol(symbol).Do(ctx)
	if err != nil {
		return 0, classify(err)
	}
	if len(res) == 0 {
		return 0, fmt.Errorf("no mark price for %s", symbol)
	}
	return strconv.ParseFloat(res[0].MarkPrice, 64)
}

func (a *BinanceAdapter) GetLastPrice(ctx context.Context, symbol string) (float64, error) {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	res, err := a.client.NewListPricesService().Symbol(symbol).Do(ctx)
	if err != nil {
		return 0, classify(err)
	}
	if len(res) == 0 {
		return 0, fmt.Errorf("no ticker price for %s", symbol)
	}
	return strconv.ParseFloat(res[0].Price, 64)
}

func (a *BinanceAdapter) GetCloses(ctx context.Context, symbol, interval string, limit int) ([]float64, error) {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	klines, err := a.client.NewKlinesService().Symbol(symbol).Interval(interval).Limit(limit).Do(ctx)
	if err != nil {
		return nil, classify(err)
	}

	closes := make([]float64, 0, len(klines))
	for _, k := range klines {
		c, err := strconv.ParseFloat(k.Close, 64)
		if err != nil {
			return nil, fmt.Errorf("bad close %q: %w", k.Close, err)
		}
		closes = append(closes, c)
	}
	return closes, nil
}

func (a *BinanceAdapter) GetOrderBook(ctx context.Context, symbol string, limit int) (*domain.OrderBook, error) {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	depth, err := a.client.NewDepthService().Symbol(symbol).Limit(limit).Do(ctx)
	if err != nil {
		return nil, classify(err)
	}

	book := &domain.OrderBook{}
	for _, b := range depth.Bids {
		price, _ := strconv.ParseFloat(b.Price, 64)
		qty, _ := strconv.ParseFloat(b.Quantity, 64)
		book.Bids = append(book.Bids, domain.OrderBookLevel{Price: price, Quantity: qty})
	}
	for _, ask := range depth.Asks {
		price, _ := strconv.ParseFloat(ask.Price, 64)
		qty, _ := strconv.ParseFloat(ask.Quantity, 64)
		book.Asks = append(book.Asks, domain.OrderBookLevel{Price: price, Quantity: qty})
	}
	return book, nil
}

// GetSymbolFilters resolves lot-size and notional filters for one symbol from
// exchange info. The market-order lot size wins over the generic one when both
// exist. Filter strings are parsed as decimals so step math stays exact.
func (a *BinanceAdapter) GetSymbolFilters(ctx context.Context, symbol string) (*domain.SymbolFilters, error) {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	info, err := a.client.NewExchangeInfoService().Do(ctx)
	if err != nil {
		return nil, classify(err)
	}

	for _, s := range info.Symbols {
		if s.Symbol != symbol {
			continue
		}

		filters := &domain.SymbolFilters{}
		var marketStep, marketMinQty decimal.Decimal
		haveMarketLot := false

		for _, f := range s.Filters {
			switch f["filterType"] {
			case "LOT_SIZE":
				filters.StepSize = parseDecimalField(f, "stepSize")
				filters.MinQty = parseDecimalField(f, "minQty")
			case "MARKET_LOT_SIZE":
				marketStep = parseDecimalField(f, "stepSize")
				marketMinQty = parseDecimalField(f, "minQty")
				haveMarketLot = true
			case "PRICE_FILTER":
				filters.TickSize = parseDecimalField(f, "tickSize")
			case "MIN_NOTIONAL":
				notional := parseDecimalField(f, "notional")
				if notional.IsZero() {
					notional = parseDecimalField(f, "minNotional")
				}
				if notional.Sign() > 0 {
					filters.MinNotional = notional
					filters.HasMinNotional = true
				}
			}
		}

		// Market orders are bound by MARKET_LOT_SIZE when present.
		if haveMarketLot && marketStep.Sign() > 0 {
			filters.StepSize = marketStep
			filters.MinQty = marketMinQty
		}
		return filters, nil
	}

	return nil, fmt.Errorf("%w: %s", domain.ErrSymbolFiltersNotFound, symbol)
}

func parseDecimalField(filter map[string]interface{}, key string) decimal.Decimal {
	s, ok := filter[key].(string)
	if !ok {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func (a *BinanceAdapter) GetPositionMode(ctx context.Context) (bool, error) {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	mode, err := a.client.NewGetPositionModeService().Do(ctx)
	if err != nil {
		return false, classify(err)
	}
	return mode.DualSidePosition, nil
}

func (a *BinanceAdapter) SetLeverage(ctx context.Context, symbol string, leverage int) error {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	_, err := a.client.NewChangeLeverageService().Symbol(symbol).Leverage(leverage).Do(ctx)
	return classify(err)
}

func (a *BinanceAdapter) PlaceMarketBuy(ctx context.Context, symbol, quantity string, positionSide domain.Side) (*domain.OrderResult, error) {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	svc := a.client.NewCreateOrderService().
		Symbol(symbol).
		Side(futures.SideTypeBuy).
		Type(futures.OrderTypeMarket).
		Quantity(quantity).
		NewOrderResponseType(futures.NewOrderRespTypeRESULT)
	if positionSide != "" {
		svc = svc.PositionSide(futures.PositionSideType(positionSide))
	}

	res, err := svc.Do(ctx)
	if err != nil {
		return nil, classify(err)
	}
	return orderResult(res), nil
}

func (a *BinanceAdapter) PlaceConditionalOrder(ctx context.Context, order *domain.ConditionalOrder) (*domain.OrderResult, error) {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	svc := a.client.NewCreateOrderService().
		Symbol(order.Symbol).
		Side(futures.SideType(order.Side)).
		Type(futures.OrderType(order.Type)).
		Quantity(order.Quantity)

	if order.StopPrice != "" {
		svc = svc.StopPrice(order.StopPrice).WorkingType(futures.WorkingTypeMarkPrice)
	}
	if order.ActivationPrice != "" {
		svc = svc.ActivationPrice(order.ActivationPrice)
	}
	if order.CallbackRate != "" {
		svc = svc.CallbackRate(order.CallbackRate)
	}
	if order.Price != "" {
		svc = svc.Price(order.Price).TimeInForce(futures.TimeInForceTypeGTC)
	}
	if order.PositionSide != "" {
		svc = svc.PositionSide(futures.PositionSideType(order.PositionSide))
	}
	if order.ReduceOnly {
		svc = svc.ReduceOnly(true)
	}

	res, err := svc.Do(ctx)
	if err != nil {
		return nil, classify(err)
	}
	return orderResult(res), nil
}

func (a *BinanceAdapter) GetPositionInfo(ctx context.Context, symbol string) ([]domain.PositionInfo, error) {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	risks, err := a.client.NewGetPositionRiskService().Symbol(symbol).Do(ctx)
	if err != nil {
		return nil, classify(err)
	}

	infos := make([]domain.PositionInfo, 0, len(risks))
	for _, r := range risks {
		qty, _ := strconv.ParseFloat(r.PositionAmt, 64)
		entry, _ := strconv.ParseFloat(r.EntryPrice, 64)
		infos = append(infos, domain.PositionInfo{
			PositionSide: domain.Side(r.PositionSide),
			Quantity:     qty,
			EntryPrice:   entry,
		})
	}
	return infos, nil
}

func orderResult(res *futures.CreateOrderResponse) *domain.OrderResult {
	avg, _ := strconv.ParseFloat(res.AvgPrice, 64)
	return &domain.OrderResult{
		OrderID:  res.OrderID,
		AvgPrice: avg,
		Status:   string(res.Status),
	}
}
