package usecase

import (
	"context"

	"go.uber.org/zap"

	"github.com/vitos/listing_sniper/internal/domain"
)

const (
	scoreKlineInterval = "1m"
	scoreKlineLimit    = 6
	scoreDepthLimit    = 20

	momentumWeight  = 0.6
	imbalanceWeight = 0.4
)

// Scorer gates trading on a pre-launch signal: 1m close momentum blended with
// order-book imbalance. Errors never propagate past this boundary; anything
// that goes wrong scores 0.0, which the pipeline treats as no-trade.
type Scorer struct {
	exchange domain.Exchange
	log      *zap.Logger
}

func NewScorer(exchange domain.Exchange, log *zap.Logger) *Scorer {
	return &Scorer{exchange: exchange, log: log}
}

func (s *Scorer) Score(ctx context.Context, symbol string) float64 {
	closes, err := s.exchange.GetCloses(ctx, symbol, scoreKlineInterval, scoreKlineLimit)
	if err != nil {
		s.log.Warn("Score kline fetch failed", zap.String("symbol", symbol), zap.Error(err))
		return 0.0
	}

	book, err := s.exchange.GetOrderBook(ctx, symbol, scoreDepthLimit)
	if err != nil {
		s.log.Warn("Score order book fetch failed", zap.String("symbol", symbol), zap.Error(err))
		return 0.0
	}

	return ComputeScore(closes, book)
}

// ComputeScore is the pure scoring rule. Returns 0.0 when fewer than two
// closes are available.
func ComputeScore(closes []float64, book *domain.OrderBook) float64 {
	if len(closes) < 2 || book == nil {
		return 0.0
	}

	sum := 0.0
	for _, c := range closes[:len(closes)-1] {
		sum += c
	}
	avgPrev := sum / float64(len(closes)-1)
	if avgPrev == 0 {
		return 0.0
	}
	momentum := closes[len(closes)-1]/avgPrev - 1

	bidDepth, askDepth := 0.0, 0.0
	for _, b := range book.Bids {
		bidDepth += b.Quantity
	}
	for _, a := range book.Asks {
		askDepth += a.Quantity
	}
	denom := bidDepth + askDepth
	if denom < 1 {
		denom = 1
	}
	imbalance := (bidDepth - askDepth) / denom

	return momentumWeight*momentum + imbalanceWeight*imbalance
}
