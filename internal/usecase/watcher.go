package usecase

import (
	"context"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/vitos/listing_sniper/internal/domain"
)

// symbolPattern extracts the tradable pair from a listing title.
var symbolPattern = regexp.MustCompile(`([A-Z0-9]{2,8}USDT)`)

type ListingCallback func(event domain.ListingEvent)

// Watcher polls the announcement feed, deduplicates articles, filters stale
// ones and emits a listing event for every new perpetual launch announcement.
// The loop itself never terminates on an error; a bad cycle is logged and the
// next tick re-fetches.
type Watcher struct {
	feed      domain.AnnouncementFeed
	log       *zap.Logger
	interval  time.Duration
	maxAge    time.Duration
	onListing ListingCallback

	// seen grows for the lifetime of the watcher; announcements are one-off so
	// the set stays small. Only the watcher loop touches it.
	seen map[string]struct{}
}

func NewWatcher(feed domain.AnnouncementFeed, interval, maxAge time.Duration, onListing ListingCallback, log *zap.Logger) *Watcher {
	return &Watcher{
		feed:      feed,
		log:       log,
		interval:  interval,
		maxAge:    maxAge,
		onListing: onListing,
		seen:      make(map[string]struct{}),
	}
}

func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.log.Info("Announcement watcher started", zap.Duration("interval", w.interval))

	for {
		w.Poll(ctx)

		select {
		case <-ticker.C:
		case <-ctx.Done():
			w.log.Info("Announcement watcher stopped")
			return
		}
	}
}

// Poll runs a single fetch-and-scan cycle.
func (w *Watcher) Poll(ctx context.Context) {
	anns, err := w.feed.Fetch(ctx)
	if err != nil {
		w.log.Warn("Announcement poll failed", zap.Error(err))
		return
	}

	for _, a := range anns {
		if _, ok := w.seen[a.ID]; ok {
			continue
		}
		w.seen[a.ID] = struct{}{}
		w.handle(a)
	}
}

func (w *Watcher) handle(a domain.Announcement) {
	title := strings.ToLower(a.Title)
	if !strings.Contains(title, "will launch") || !strings.Contains(title, "perpetual") {
		return
	}

	if w.isStale(a) {
		w.log.Info("Skipping stale listing announcement",
			zap.String("title", a.Title),
			zap.Int64("published_at", a.PublishedAt))
		return
	}

	match := symbolPattern.FindString(a.Title)
	if match == "" {
		w.log.Warn("Listing announcement without extractable symbol", zap.String("title", a.Title))
		return
	}

	w.log.Info("New futures listing detected",
		zap.String("symbol", match),
		zap.String("title", a.Title))
	w.onListing(domain.ListingEvent{Symbol: match})
}

// isStale fails open: an announcement without a timestamp is treated as fresh.
func (w *Watcher) isStale(a domain.Announcement) bool {
	if a.PublishedAt == 0 {
		return false
	}
	published := time.UnixMilli(a.PublishedAt)
	return time.Since(published) > w.maxAge
}
