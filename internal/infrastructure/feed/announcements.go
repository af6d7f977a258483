package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"time"

	"go.uber.org/zap"

	"github.com/vitos/listing_sniper/internal/domain"
)

// timestampFields are the feed field names that may carry the publish time,
// tried in priority order. The CMS has renamed this field more than once.
var timestampFields = []string{"releaseDate", "publishDate", "releaseTime", "publishTime", "createTime"}

// msThreshold separates second-precision from millisecond-precision epochs.
const msThreshold = 1e12

// titlePattern recovers candidate listing titles when the feed answers with
// HTML instead of the JSON catalog (the fallback path).
var titlePattern = regexp.MustCompile(`(?i)(Binance (?:Futures )?Will Launch [^"<>]{0,160}?Perpetual[^"<>]{0,60})`)

// Client polls the exchange announcement catalog. On blocking status codes it
// retries once with browser-style headers before giving up on the cycle.
type Client struct {
	url    string
	client *http.Client
	log    *zap.Logger
}

func NewClient(url string, log *zap.Logger) *Client {
	return &Client{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
		log:    log,
	}
}

func (c *Client) Fetch(ctx context.Context) ([]domain.Announcement, error) {
	status, body, err := c.get(ctx, nil)
	if err != nil {
		return nil, err
	}

	if isBlockingStatus(status) {
		c.log.Warn("Announcement feed blocked, retrying with browser headers",
			zap.Int("status", status))
		status, body, err = c.get(ctx, browserHeaders())
		if err != nil {
			return nil, err
		}
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("announcement feed status %d", status)
	}

	anns, err := parseCatalog(body)
	if err != nil {
		// Not the JSON catalog; scrape listing titles out of whatever came back.
		scraped := parseTitles(body)
		if len(scraped) == 0 {
			return nil, fmt.Errorf("unparseable announcement feed: %w", err)
		}
		c.log.Warn("Announcement feed was not JSON, scraped titles",
			zap.Int("count", len(scraped)))
		return scraped, nil
	}
	return anns, nil
}

func (c *Client) get(ctx context.Context, headers map[string]string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return 0, nil, err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, body, nil
}

func isBlockingStatus(status int) bool {
	switch status {
	case http.StatusForbidden, http.StatusTooManyRequests, http.StatusTeapot:
		return true
	}
	return status >= 500
}

func browserHeaders() map[string]string {
	return map[string]string{
		"User-Agent":      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
		"Accept":          "text/html,application/xhtml+xml,application/json;q=0.9,*/*;q=0.8",
		"Accept-Language": "en-US,en;q=0.9",
	}
}

// parseCatalog decodes the CMS article list. Articles live either directly
// under data.articles or nested in data.catalogs[].articles depending on the
// endpoint generation.
func parseCatalog(body []byte) ([]domain.Announcement, error) {
	var payload struct {
		Data struct {
			Articles []map[string]interface{} `json:"articles"`
			Catalogs []struct {
				Articles []map[string]interface{} `json:"articles"`
			} `json:"catalogs"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}

	raw := payload.Data.Articles
	for _, cat := range payload.Data.Catalogs {
		raw = append(raw, cat.Articles...)
	}

	anns := make([]domain.Announcement, 0, len(raw))
	for _, art := range raw {
		title, _ := art["title"].(string)
		if title == "" {
			continue
		}

		id := stringField(art, "id")
		if id == "" {
			id = stringField(art, "articleId")
		}
		if id == "" {
			id = title
		}

		anns = append(anns, domain.Announcement{
			ID:          id,
			Title:       title,
			Href:        stringField(art, "code"),
			PublishedAt: extractTimestamp(art),
		})
	}
	return anns, nil
}

func parseTitles(body []byte) []domain.Announcement {
	var anns []domain.Announcement
	seen := map[string]struct{}{}
	for _, m := range titlePattern.FindAllStringSubmatch(string(body), -1) {
		title := m[1]
		if _, ok := seen[title]; ok {
			continue
		}
		seen[title] = struct{}{}
		// No id and no timestamp on scraped titles; the watcher fails open on age.
		anns = append(anns, domain.Announcement{ID: title, Title: title})
	}
	return anns
}

func stringField(art map[string]interface{}, key string) string {
	switch v := art[key].(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%.0f", v)
	}
	return ""
}

// extractTimestamp walks the candidate field names and normalizes seconds vs
// milliseconds by magnitude. Returns 0 when no field is usable.
func extractTimestamp(art map[string]interface{}) int64 {
	for _, field := range timestampFields {
		ms, ok := numericField(art, field)
		if !ok || ms <= 0 {
			continue
		}
		if ms < msThreshold {
			ms *= 1000
		}
		return int64(ms)
	}
	return 0
}

func numericField(art map[string]interface{}, key string) (float64, bool) {
	switch v := art[key].(type) {
	case float64:
		return v, true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		var f float64
		if _, err := fmt.Sscanf(v, "%f", &f); err == nil {
			return f, true
		}
	}
	return 0, false
}
