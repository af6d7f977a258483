package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vitos/listing_sniper/internal/domain"
)

// OpenState tracks one listing attempt through the opener.
type OpenState string

const (
	StatePending     OpenState = "PENDING"
	StateLeverageSet OpenState = "LEVERAGE_SET"
	StateSizing      OpenState = "SIZING"
	StateEntryPlaced OpenState = "ENTRY_PLACED"
	StateProtected   OpenState = "PROTECTED"
	StateFailed      OpenState = "FAILED"
)

type OpenerConfig struct {
	CapitalUSDT        float64
	LeveragePreference []int

	StopLossPct           float64
	TrailingActivationPct float64
	TrailingCallbackRate  float64
	// TakeProfitPct places an extra reduce-only limit rung above entry.
	// Zero disables it.
	TakeProfitPct float64

	// Bounded retry window for the invalid-symbol class right after a listing
	// goes live.
	SymbolReadyAttempts int
	SymbolReadyInterval time.Duration
}

// Opener negotiates leverage, places the entry order and attaches the
// protective set. Only the "symbol not yet tradable" class is retried; any
// other placement error fails the attempt.
type Opener struct {
	exchange domain.Exchange
	sizing   *SizingEngine
	cfg      OpenerConfig
	log      *zap.Logger
}

func NewOpener(exchange domain.Exchange, sizing *SizingEngine, cfg OpenerConfig, log *zap.Logger) *Opener {
	return &Opener{exchange: exchange, sizing: sizing, cfg: cfg, log: log}
}

// NegotiateLeverage walks the preference list (highest first) and returns the
// first value the exchange accepts. A symbol that never becomes tradable
// aborts; a rejected value falls through to the next one.
func (o *Opener) NegotiateLeverage(ctx context.Context, symbol string) (int, error) {
	for _, lev := range o.cfg.LeveragePreference {
		err := o.retrySymbolReady(ctx, func() error {
			return o.exchange.SetLeverage(ctx, symbol, lev)
		})
		if err == nil {
			o.log.Info("Leverage set", zap.String("symbol", symbol), zap.Int("leverage", lev))
			return lev, nil
		}
		if errors.Is(err, domain.ErrSymbolNotReady) || ctx.Err() != nil {
			return 0, err
		}
		o.log.Warn("Leverage rejected, trying next",
			zap.String("symbol", symbol),
			zap.Int("leverage", lev),
			zap.Error(err))
	}
	return 0, fmt.Errorf("%w for %s", domain.ErrLeverageUnavailable, symbol)
}

// Open runs one listing attempt end to end and returns the opened position
// with whatever protective orders could be attached.
func (o *Opener) Open(ctx context.Context, symbol string) (*domain.Position, *domain.ProtectiveOrderSet, error) {
	o.transition(symbol, StatePending)

	leverage, err := o.NegotiateLeverage(ctx, symbol)
	if err != nil {
		o.transition(symbol, StateFailed)
		return nil, nil, err
	}
	o.transition(symbol, StateLeverageSet)

	price, err := o.entryReferencePrice(ctx, symbol)
	if err != nil {
		o.transition(symbol, StateFailed)
		return nil, nil, fmt.Errorf("no reference price for %s: %w", symbol, err)
	}

	o.transition(symbol, StateSizing)
	result, filters, err := o.sizing.Size(ctx, symbol, o.cfg.CapitalUSDT, leverage, price)
	if err != nil {
		o.transition(symbol, StateFailed)
		return nil, nil, err
	}
	if result.Rejected() {
		o.transition(symbol, StateFailed)
		return nil, nil, fmt.Errorf("sizing rejected for %s: %s", symbol, result.Reason)
	}
	qty := result.Quantity.String()

	// Hedge-mode accounts need the position-side tag on every order. One-way
	// is the safe default when the mode is unreadable.
	hedge, err := o.exchange.GetPositionMode(ctx)
	if err != nil {
		o.log.Warn("Position mode unreadable, assuming one-way", zap.Error(err))
		hedge = false
	}
	positionSide := domain.Side("")
	if hedge {
		positionSide = domain.SideLong
	}

	entry, err := o.placeEntry(ctx, symbol, qty, &positionSide)
	if err != nil {
		o.transition(symbol, StateFailed)
		return nil, nil, fmt.Errorf("entry order failed for %s: %w", symbol, err)
	}
	o.transition(symbol, StateEntryPlaced)

	entryPrice := price
	if entry.AvgPrice > 0 {
		entryPrice = entry.AvgPrice
	}
	pos := &domain.Position{
		Symbol:       symbol,
		Quantity:     qty,
		EntryPrice:   entryPrice,
		Leverage:     leverage,
		PositionSide: positionSide,
	}
	o.log.Info("Opened LONG",
		zap.String("symbol", symbol),
		zap.String("quantity", qty),
		zap.Float64("entry_price", entryPrice),
		zap.Int("leverage", leverage))

	prot := o.attachProtection(ctx, pos, filters.TickSize)
	o.transition(symbol, StateProtected)
	return pos, prot, nil
}

// placeEntry places the market buy, retrying while the symbol is not yet
// active. If the exchange demands a position side that was omitted, a single
// retry adds it and upgrades the position tag.
func (o *Opener) placeEntry(ctx context.Context, symbol, qty string, positionSide *domain.Side) (*domain.OrderResult, error) {
	var res *domain.OrderResult
	err := o.retrySymbolReady(ctx, func() error {
		var err error
		res, err = o.exchange.PlaceMarketBuy(ctx, symbol, qty, *positionSide)
		if err != nil && *positionSide == "" && errors.Is(err, domain.ErrPositionSideRequired) {
			*positionSide = domain.SideLong
			res, err = o.exchange.PlaceMarketBuy(ctx, symbol, qty, *positionSide)
		}
		return err
	})
	return res, err
}

// entryReferencePrice prefers the mark price, falling back to the last traded
// price when the mark is not yet published for a fresh listing.
func (o *Opener) entryReferencePrice(ctx context.Context, symbol string) (float64, error) {
	price, err := o.exchange.GetMarkPrice(ctx, symbol)
	if err == nil && price > 0 {
		return price, nil
	}
	if err != nil {
		o.log.Warn("Mark price unavailable, falling back to last price",
			zap.String("symbol", symbol), zap.Error(err))
	}
	return o.exchange.GetLastPrice(ctx, symbol)
}

// attachProtection places the stop-loss, trailing stop and optional
// take-profit rung. Failures here leave the position live with reduced
// protection; they are logged, never rolled back.
func (o *Opener) attachProtection(ctx context.Context, pos *domain.Position, tick decimal.Decimal) *domain.ProtectiveOrderSet {
	prot := &domain.ProtectiveOrderSet{}

	stopPrice := RoundToTick(pos.EntryPrice*(1-o.cfg.StopLossPct), tick)
	sl := &domain.ConditionalOrder{
		Symbol:       pos.Symbol,
		Side:         domain.OrderSideSell,
		Type:         domain.OrderTypeStopMarket,
		Quantity:     pos.Quantity,
		StopPrice:    stopPrice,
		PositionSide: pos.PositionSide,
		ReduceOnly:   true,
	}
	if res, err := o.exchange.PlaceConditionalOrder(ctx, sl); err != nil {
		o.log.Warn("Stop-loss placement failed, position unprotected on the downside",
			zap.String("symbol", pos.Symbol), zap.Error(err))
	} else {
		prot.StopLossOrderID = res.OrderID
		o.log.Info("Stop-loss placed", zap.String("symbol", pos.Symbol), zap.String("stop_price", stopPrice))
	}

	activation := RoundToTick(pos.EntryPrice*(1+o.cfg.TrailingActivationPct), tick)
	trailing := &domain.ConditionalOrder{
		Symbol:          pos.Symbol,
		Side:            domain.OrderSideSell,
		Type:            domain.OrderTypeTrailingStopMarket,
		Quantity:        pos.Quantity,
		ActivationPrice: activation,
		CallbackRate:    strconv.FormatFloat(o.cfg.TrailingCallbackRate, 'f', 1, 64),
		PositionSide:    pos.PositionSide,
		ReduceOnly:      true,
	}
	res, err := o.exchange.PlaceConditionalOrder(ctx, trailing)
	if err != nil && errors.Is(err, domain.ErrReduceOnlyConflict) && trailing.ReduceOnly {
		trailing.ReduceOnly = false
		res, err = o.exchange.PlaceConditionalOrder(ctx, trailing)
	}
	if err != nil {
		o.log.Warn("Trailing stop placement failed",
			zap.String("symbol", pos.Symbol), zap.Error(err))
	} else {
		prot.TrailingStopOrderID = res.OrderID
		o.log.Info("Trailing stop placed",
			zap.String("symbol", pos.Symbol),
			zap.String("activation_price", activation),
			zap.Float64("callback_rate", o.cfg.TrailingCallbackRate))
	}

	if o.cfg.TakeProfitPct > 0 {
		tpPrice := RoundToTick(pos.EntryPrice*(1+o.cfg.TakeProfitPct), tick)
		tp := &domain.ConditionalOrder{
			Symbol:       pos.Symbol,
			Side:         domain.OrderSideSell,
			Type:         domain.OrderTypeLimit,
			Quantity:     pos.Quantity,
			Price:        tpPrice,
			PositionSide: pos.PositionSide,
			ReduceOnly:   true,
		}
		if res, err := o.exchange.PlaceConditionalOrder(ctx, tp); err != nil {
			o.log.Warn("Take-profit placement failed",
				zap.String("symbol", pos.Symbol), zap.Error(err))
		} else {
			prot.TakeProfitOrderID = res.OrderID
			o.log.Info("Take-profit placed", zap.String("symbol", pos.Symbol), zap.String("price", tpPrice))
		}
	}

	if prot.StopLossOrderID == 0 || prot.TrailingStopOrderID == 0 {
		o.log.Warn("Position running with incomplete protection",
			zap.String("symbol", pos.Symbol),
			zap.Bool("stop_loss", prot.StopLossOrderID != 0),
			zap.Bool("trailing_stop", prot.TrailingStopOrderID != 0))
	}
	return prot
}

// retrySymbolReady runs fn, retrying on a fixed interval while the error is
// the symbol-not-yet-tradable class, up to the configured attempt bound.
func (o *Opener) retrySymbolReady(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; attempt < o.cfg.SymbolReadyAttempts; attempt++ {
		err = fn()
		if err == nil || !errors.Is(err, domain.ErrSymbolNotReady) {
			return err
		}
		select {
		case <-time.After(o.cfg.SymbolReadyInterval):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func (o *Opener) transition(symbol string, state OpenState) {
	o.log.Debug("Opener state", zap.String("symbol", symbol), zap.String("state", string(state)))
}
