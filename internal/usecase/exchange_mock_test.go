package usecase_test

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/vitos/listing_sniper/internal/domain"
)

// mockExchange scripts gateway behavior per test. Zero value answers every
// read with zero values and accepts every order.
type mockExchange struct {
	mu sync.Mutex

	markPrice float64
	markErr   error
	lastPrice float64
	lastErr   error

	closes    []float64
	closesErr error
	book      *domain.OrderBook
	bookErr   error

	filters    *domain.SymbolFilters
	filtersErr error

	hedge    bool
	hedgeErr error

	// leverageRejects maps a leverage value to the error returned for it.
	leverageRejects  map[int]error
	leverageAttempts []int

	marketErrs   []error // consumed one per PlaceMarketBuy call
	marketOrders []placedMarket

	conditionalErrs   map[domain.ConditionalOrderType][]error
	conditionalOrders []domain.ConditionalOrder

	positionReads [][]domain.PositionInfo
	positionCalls int
}

type placedMarket struct {
	symbol       string
	quantity     string
	positionSide domain.Side
}

func defaultFilters() *domain.SymbolFilters {
	return &domain.SymbolFilters{
		StepSize: decimal.RequireFromString("0.001"),
		MinQty:   decimal.RequireFromString("0.001"),
		TickSize: decimal.RequireFromString("0.01"),
	}
}

func (m *mockExchange) GetMarkPrice(ctx context.Context, symbol string) (float64, error) {
	return m.markPrice, m.markErr
}

func (m *mockExchange) GetLastPrice(ctx context.Context, symbol string) (float64, error) {
	return m.lastPrice, m.lastErr
}

func (m *mockExchange) GetCloses(ctx context.Context, symbol, interval string, limit int) ([]float64, error) {
	return m.closes, m.closesErr
}

func (m *mockExchange) GetOrderBook(ctx context.Context, symbol string, limit int) (*domain.OrderBook, error) {
	return m.book, m.bookErr
}

func (m *mockExchange) GetSymbolFilters(ctx context.Context, symbol string) (*domain.SymbolFilters, error) {
	if m.filtersErr != nil {
		return nil, m.filtersErr
	}
	if m.filters == nil {
		return defaultFilters(), nil
	}
	return m.filters, nil
}

func (m *mockExchange) GetPositionMode(ctx context.Context) (bool, error) {
	return m.hedge, m.hedgeErr
}

func (m *mockExchange) SetLeverage(ctx context.Context, symbol string, leverage int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.leverageAttempts = append(m.leverageAttempts, leverage)
	if m.leverageRejects != nil {
		return m.leverageRejects[leverage]
	}
	return nil
}

func (m *mockExchange) PlaceMarketBuy(ctx context.Context, symbol, quantity string, positionSide domain.Side) (*domain.OrderResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.marketOrders = append(m.marketOrders, placedMarket{symbol: symbol, quantity: quantity, positionSide: positionSide})
	if len(m.marketErrs) > 0 {
		err := m.marketErrs[0]
		m.marketErrs = m.marketErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	return &domain.OrderResult{OrderID: int64(len(m.marketOrders)), AvgPrice: m.markPrice, Status: "FILLED"}, nil
}

func (m *mockExchange) PlaceConditionalOrder(ctx context.Context, order *domain.ConditionalOrder) (*domain.OrderResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conditionalOrders = append(m.conditionalOrders, *order)
	if queue := m.conditionalErrs[order.Type]; len(queue) > 0 {
		err := queue[0]
		m.conditionalErrs[order.Type] = queue[1:]
		if err != nil {
			return nil, err
		}
	}
	return &domain.OrderResult{OrderID: int64(100 + len(m.conditionalOrders))}, nil
}

func (m *mockExchange) GetPositionInfo(ctx context.Context, symbol string) ([]domain.PositionInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := m.positionCalls
	m.positionCalls++
	if len(m.positionReads) == 0 {
		return nil, nil
	}
	if idx >= len(m.positionReads) {
		idx = len(m.positionReads) - 1
	}
	return m.positionReads[idx], nil
}

func (m *mockExchange) ordersOfType(t domain.ConditionalOrderType) []domain.ConditionalOrder {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.ConditionalOrder
	for _, o := range m.conditionalOrders {
		if o.Type == t {
			out = append(out, o)
		}
	}
	return out
}
