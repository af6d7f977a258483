package usecase

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vitos/listing_sniper/internal/domain"
)

// SizingEngine converts capital, leverage and price into a quantity the
// exchange will accept, or a tagged rejection. All step and minimum
// comparisons run on decimals; binary floats drift at filter boundaries.
type SizingEngine struct {
	exchange domain.Exchange
	log      *zap.Logger
}

func NewSizingEngine(exchange domain.Exchange, log *zap.Logger) *SizingEngine {
	return &SizingEngine{exchange: exchange, log: log}
}

// Size resolves the symbol's filters and quantizes the raw quantity. A symbol
// the exchange has no metadata for (listing not yet propagated) is a
// rejection, not an error.
func (e *SizingEngine) Size(ctx context.Context, symbol string, capital float64, leverage int, price float64) (domain.SizingResult, *domain.SymbolFilters, error) {
	filters, err := e.exchange.GetSymbolFilters(ctx, symbol)
	if err != nil {
		if errors.Is(err, domain.ErrSymbolFiltersNotFound) {
			return domain.SizingResult{Reason: domain.RejectSymbolNotFound}, nil, nil
		}
		return domain.SizingResult{}, nil, err
	}

	raw := capital * float64(leverage) / price
	result := Quantize(raw, price, filters)

	if result.Rejected() {
		e.log.Warn("Order sizing rejected",
			zap.String("symbol", symbol),
			zap.Float64("raw_quantity", raw),
			zap.String("reason", string(result.Reason)))
	}
	return result, filters, nil
}

// Quantize floors the raw quantity to the step grid and applies the minimum
// quantity and minimum notional gates.
func Quantize(raw, price float64, filters *domain.SymbolFilters) domain.SizingResult {
	qty := decimal.NewFromFloat(raw)
	if filters.StepSize.Sign() > 0 {
		qty = qty.Sub(qty.Mod(filters.StepSize))
	}

	if qty.Sign() <= 0 {
		return domain.SizingResult{Reason: domain.RejectZeroQuantity}
	}
	if filters.MinQty.Sign() > 0 && qty.LessThan(filters.MinQty) {
		return domain.SizingResult{Reason: domain.RejectBelowMinQty}
	}
	if filters.HasMinNotional {
		notional := qty.Mul(decimal.NewFromFloat(price))
		if notional.LessThan(filters.MinNotional) {
			return domain.SizingResult{Reason: domain.RejectBelowMinNotional}
		}
	}

	return domain.SizingResult{Quantity: qty}
}

// RoundToTick floors a price onto the symbol's tick grid and renders it the
// way the order API expects.
func RoundToTick(price float64, tick decimal.Decimal) string {
	p := decimal.NewFromFloat(price)
	if tick.Sign() > 0 {
		p = p.Sub(p.Mod(tick))
	}
	return p.String()
}
