package usecase

import (
	"context"

	"go.uber.org/zap"

	"github.com/vitos/listing_sniper/internal/domain"
)

// Pipeline chains the listing-to-trade flow: score gate, leverage, sizing,
// entry, protection, close monitoring. Each listing event gets its own
// independent run; a failing run never affects the watcher or other runs.
type Pipeline struct {
	scorer  *Scorer
	opener  *Opener
	monitor *Monitor
	log     *zap.Logger

	scoreThreshold float64
}

func NewPipeline(scorer *Scorer, opener *Opener, monitor *Monitor, scoreThreshold float64, log *zap.Logger) *Pipeline {
	return &Pipeline{
		scorer:         scorer,
		opener:         opener,
		monitor:        monitor,
		log:            log,
		scoreThreshold: scoreThreshold,
	}
}

// HandleListing is the watcher callback: it spawns one pipeline run per
// detected listing and returns immediately so the watcher keeps polling.
func (p *Pipeline) HandleListing(event domain.ListingEvent) {
	go func() {
		// In-flight runs are not cancellable; they finish or fail on their own.
		if err := p.Run(context.Background(), event.Symbol); err != nil {
			p.log.Error("Pipeline failed", zap.String("symbol", event.Symbol), zap.Error(err))
		}
	}()
}

// Run executes the full flow for one symbol and blocks until the opened
// position is closed again (or the attempt is abandoned).
func (p *Pipeline) Run(ctx context.Context, symbol string) error {
	p.log.Info("New futures listing", zap.String("symbol", symbol))

	score := p.scorer.Score(ctx, symbol)
	p.log.Info("Pre-launch score",
		zap.String("symbol", symbol),
		zap.Float64("score", score),
		zap.Float64("threshold", p.scoreThreshold))
	if score <= p.scoreThreshold {
		p.log.Info("Score below threshold, skipping trade", zap.String("symbol", symbol))
		return nil
	}

	pos, prot, err := p.opener.Open(ctx, symbol)
	if err != nil {
		return err
	}

	p.log.Info("Position opened, tracking until close",
		zap.String("symbol", symbol),
		zap.String("quantity", pos.Quantity),
		zap.Float64("entry_price", pos.EntryPrice),
		zap.Int64("stop_loss_order", prot.StopLossOrderID),
		zap.Int64("trailing_stop_order", prot.TrailingStopOrderID))

	return p.monitor.WaitForClose(ctx, symbol, pos.PositionSide == domain.SideLong)
}
