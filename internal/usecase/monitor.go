package usecase

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/vitos/listing_sniper/internal/domain"
)

// closedEpsilon is the residual base-asset quantity below which the exchange
// is considered to have fully closed the position (dust reporting).
const closedEpsilon = 1e-8

// Monitor polls the remaining position size until the protective orders (or a
// manual close) have flattened it. Transient read errors are logged and the
// loop keeps polling; the only exit conditions are closure and context
// cancellation.
type Monitor struct {
	exchange domain.Exchange
	interval time.Duration
	log      *zap.Logger
}

func NewMonitor(exchange domain.Exchange, interval time.Duration, log *zap.Logger) *Monitor {
	return &Monitor{exchange: exchange, interval: interval, log: log}
}

// WaitForClose blocks until the position on symbol is gone. hedge selects the
// LONG record; one-way accounts report a single netted record.
func (m *Monitor) WaitForClose(ctx context.Context, symbol string, hedge bool) error {
	m.log.Info("Monitoring position until close", zap.String("symbol", symbol))

	for {
		remaining, price, err := m.read(ctx, symbol, hedge)
		if err != nil {
			m.log.Warn("Position read failed, retrying",
				zap.String("symbol", symbol), zap.Error(err))
		} else {
			if remaining <= closedEpsilon {
				m.log.Info("Position closed", zap.String("symbol", symbol))
				return nil
			}
			m.log.Debug("Position still open",
				zap.String("symbol", symbol),
				zap.Float64("remaining", remaining),
				zap.Float64("mark_price", price))
		}

		select {
		case <-time.After(m.interval):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (m *Monitor) read(ctx context.Context, symbol string, hedge bool) (remaining, price float64, err error) {
	infos, err := m.exchange.GetPositionInfo(ctx, symbol)
	if err != nil {
		return 0, 0, err
	}

	for _, info := range infos {
		if hedge && info.PositionSide != domain.SideLong {
			continue
		}
		remaining = math.Abs(info.Quantity)
		break
	}

	// Price is informational only; a failed read must not mask closure.
	price, priceErr := m.exchange.GetMarkPrice(ctx, symbol)
	if priceErr != nil {
		price = 0
	}
	return remaining, price, nil
}
