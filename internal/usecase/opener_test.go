package usecase_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vitos/listing_sniper/internal/domain"
	"github.com/vitos/listing_sniper/internal/usecase"
)

func testOpenerConfig() usecase.OpenerConfig {
	return usecase.OpenerConfig{
		CapitalUSDT:           50,
		LeveragePreference:    []int{10},
		StopLossPct:           0.01,
		TrailingActivationPct: 0.10,
		TrailingCallbackRate:  1.0,
		SymbolReadyAttempts:   3,
		SymbolReadyInterval:   time.Millisecond,
	}
}

func newOpener(ex *mockExchange, cfg usecase.OpenerConfig) *usecase.Opener {
	log := zap.NewNop()
	return usecase.NewOpener(ex, usecase.NewSizingEngine(ex, log), cfg, log)
}

func TestNegotiateLeverageFallback(t *testing.T) {
	ex := &mockExchange{
		leverageRejects: map[int]error{
			50: errors.New("leverage not allowed"),
			20: errors.New("leverage not allowed"),
		},
	}
	cfg := testOpenerConfig()
	cfg.LeveragePreference = []int{50, 20, 10}
	opener := newOpener(ex, cfg)

	lev, err := opener.NegotiateLeverage(context.Background(), "XYZUSDT")
	require.NoError(t, err)
	assert.Equal(t, 10, lev)
	assert.Equal(t, []int{50, 20, 10}, ex.leverageAttempts)
}

func TestNegotiateLeverageAllRejected(t *testing.T) {
	reject := errors.New("leverage not allowed")
	ex := &mockExchange{leverageRejects: map[int]error{50: reject, 20: reject, 10: reject}}
	cfg := testOpenerConfig()
	cfg.LeveragePreference = []int{50, 20, 10}
	opener := newOpener(ex, cfg)

	_, err := opener.NegotiateLeverage(context.Background(), "XYZUSDT")
	assert.ErrorIs(t, err, domain.ErrLeverageUnavailable)
}

func TestSetLeverageRetriesWhileSymbolNotReady(t *testing.T) {
	// First two attempts hit the invalid-symbol class, third sticks.
	attempts := 0
	ex := &mockExchange{}
	cfg := testOpenerConfig()
	opener := usecase.NewOpener(notReadyTwice(ex, &attempts), usecase.NewSizingEngine(ex, zap.NewNop()), cfg, zap.NewNop())

	lev, err := opener.NegotiateLeverage(context.Background(), "XYZUSDT")
	require.NoError(t, err)
	assert.Equal(t, 10, lev)
	assert.Equal(t, 3, attempts)
}

// notReadyTwice wraps a mock so SetLeverage fails with ErrSymbolNotReady on
// the first two calls.
type notReadyWrapper struct {
	*mockExchange
	attempts *int
}

func notReadyTwice(ex *mockExchange, attempts *int) *notReadyWrapper {
	return &notReadyWrapper{mockExchange: ex, attempts: attempts}
}

func (w *notReadyWrapper) SetLeverage(ctx context.Context, symbol string, leverage int) error {
	*w.attempts++
	if *w.attempts <= 2 {
		return fmt.Errorf("%w: Invalid symbol", domain.ErrSymbolNotReady)
	}
	return nil
}

func TestOpenPlacesEntryAndProtection(t *testing.T) {
	ex := &mockExchange{markPrice: 100}
	opener := newOpener(ex, testOpenerConfig())

	pos, prot, err := opener.Open(context.Background(), "XYZUSDT")
	require.NoError(t, err)

	// capital 50 × leverage 10 / price 100 = 5.0
	require.Len(t, ex.marketOrders, 1)
	assert.Equal(t, "5", ex.marketOrders[0].quantity)
	assert.Equal(t, domain.Side(""), ex.marketOrders[0].positionSide, "one-way mode omits the tag")

	assert.Equal(t, "5", pos.Quantity)
	assert.Equal(t, 100.0, pos.EntryPrice)
	assert.Equal(t, 10, pos.Leverage)

	stops := ex.ordersOfType(domain.OrderTypeStopMarket)
	require.Len(t, stops, 1)
	assert.Equal(t, "99", stops[0].StopPrice)
	assert.True(t, stops[0].ReduceOnly)

	trailing := ex.ordersOfType(domain.OrderTypeTrailingStopMarket)
	require.Len(t, trailing, 1)
	assert.Equal(t, "110", trailing[0].ActivationPrice)
	assert.Equal(t, "1.0", trailing[0].CallbackRate)

	assert.NotZero(t, prot.StopLossOrderID)
	assert.NotZero(t, prot.TrailingStopOrderID)
	assert.Zero(t, prot.TakeProfitOrderID, "take-profit disabled by default")
}

func TestOpenHedgeModeTagsPositionSide(t *testing.T) {
	ex := &mockExchange{markPrice: 100, hedge: true}
	opener := newOpener(ex, testOpenerConfig())

	pos, _, err := opener.Open(context.Background(), "XYZUSDT")
	require.NoError(t, err)

	assert.Equal(t, domain.SideLong, pos.PositionSide)
	require.Len(t, ex.marketOrders, 1)
	assert.Equal(t, domain.SideLong, ex.marketOrders[0].positionSide)
	for _, o := range ex.conditionalOrders {
		assert.Equal(t, domain.SideLong, o.PositionSide)
	}
}

func TestOpenRetriesOnceWithPositionSide(t *testing.T) {
	// Mode probe says one-way but the exchange is actually hedged.
	ex := &mockExchange{
		markPrice:  100,
		marketErrs: []error{fmt.Errorf("%w: -4061", domain.ErrPositionSideRequired)},
	}
	opener := newOpener(ex, testOpenerConfig())

	pos, _, err := opener.Open(context.Background(), "XYZUSDT")
	require.NoError(t, err)

	require.Len(t, ex.marketOrders, 2)
	assert.Equal(t, domain.Side(""), ex.marketOrders[0].positionSide)
	assert.Equal(t, domain.SideLong, ex.marketOrders[1].positionSide)
	assert.Equal(t, domain.SideLong, pos.PositionSide)
}

func TestTrailingStopReduceOnlyConflictRetry(t *testing.T) {
	ex := &mockExchange{
		markPrice: 100,
		conditionalErrs: map[domain.ConditionalOrderType][]error{
			domain.OrderTypeTrailingStopMarket: {fmt.Errorf("%w: -2022", domain.ErrReduceOnlyConflict)},
		},
	}
	opener := newOpener(ex, testOpenerConfig())

	_, prot, err := opener.Open(context.Background(), "XYZUSDT")
	require.NoError(t, err)

	trailing := ex.ordersOfType(domain.OrderTypeTrailingStopMarket)
	require.Len(t, trailing, 2)
	assert.True(t, trailing[0].ReduceOnly)
	assert.False(t, trailing[1].ReduceOnly, "retry drops the reduce-only flag")
	assert.NotZero(t, prot.TrailingStopOrderID)
}

func TestProtectionFailureDoesNotFailOpen(t *testing.T) {
	boom := errors.New("placement refused")
	ex := &mockExchange{
		markPrice: 100,
		conditionalErrs: map[domain.ConditionalOrderType][]error{
			domain.OrderTypeStopMarket:         {boom},
			domain.OrderTypeTrailingStopMarket: {boom, boom},
		},
	}
	opener := newOpener(ex, testOpenerConfig())

	pos, prot, err := opener.Open(context.Background(), "XYZUSDT")
	require.NoError(t, err, "protective failures degrade, never roll back")
	assert.NotNil(t, pos)
	assert.Zero(t, prot.StopLossOrderID)
	assert.Zero(t, prot.TrailingStopOrderID)
}

func TestOpenTakeProfitRung(t *testing.T) {
	ex := &mockExchange{markPrice: 100}
	cfg := testOpenerConfig()
	cfg.TakeProfitPct = 0.05
	opener := newOpener(ex, cfg)

	_, prot, err := opener.Open(context.Background(), "XYZUSDT")
	require.NoError(t, err)

	tps := ex.ordersOfType(domain.OrderTypeLimit)
	require.Len(t, tps, 1)
	assert.Equal(t, "105", tps[0].Price)
	assert.True(t, tps[0].ReduceOnly)
	assert.NotZero(t, prot.TakeProfitOrderID)
}

func TestOpenRejectedSizingFails(t *testing.T) {
	// 50 × 10 / 100 = 5.0 but the minimum notional demands 1000.
	filters := defaultFilters()
	filters.HasMinNotional = true
	filters.MinNotional = decimal.RequireFromString("1000")
	ex := &mockExchange{markPrice: 100, filters: filters}
	opener := newOpener(ex, testOpenerConfig())

	_, _, err := opener.Open(context.Background(), "XYZUSDT")
	require.Error(t, err)
	assert.Contains(t, err.Error(), string(domain.RejectBelowMinNotional))
	assert.Empty(t, ex.marketOrders, "no order may be placed after a sizing rejection")
}

func TestOpenFallsBackToLastPrice(t *testing.T) {
	ex := &mockExchange{markErr: errors.New("no mark yet"), lastPrice: 100}
	opener := newOpener(ex, testOpenerConfig())

	pos, _, err := opener.Open(context.Background(), "XYZUSDT")
	require.NoError(t, err)
	require.Len(t, ex.marketOrders, 1)
	assert.Equal(t, "5", ex.marketOrders[0].quantity)
	// Mock reports no avg fill price, so the pre-trade reference is the entry estimate.
	assert.Equal(t, 100.0, pos.EntryPrice)
}
