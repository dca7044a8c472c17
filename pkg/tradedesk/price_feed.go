package tradedesk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
)

// DefaultPriceFeedURL is the public multi-symbol quote endpoint.
const DefaultPriceFeedURL = "https://min-api.cryptocompare.com/data/pricemulti"

// quoteCurrency is the only target currency requested from the feed.
const quoteCurrency = "USD"

// syntheticDrift bounds the per-cycle random walk of non-crypto prices.
const syntheticDrift = 0.005

// Price feed errors. Use errors.Is() to check for these conditions.
var (
	// ErrFeedUnavailable indicates a transport failure or non-2xx response.
	ErrFeedUnavailable = errors.New("price feed unavailable")
	// ErrFeedMalformed indicates the feed answered with an unusable body.
	ErrFeedMalformed = errors.New("malformed price feed response")
)

// HTTPDoer is an interface for making HTTP requests. It enables dependency
// injection for testing without network calls.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// PriceFeedOptions configures a PriceFeed.
type PriceFeedOptions struct {
	URL        string
	HTTPClient HTTPDoer
	Timeout    time.Duration
	// Rand returns a uniform value in [0, 1). Defaults to math/rand/v2.
	Rand   func() float64
	Logger *slog.Logger
}

// PriceFeed fetches crypto quotes and synthesizes prices for everything else.
type PriceFeed struct {
	url     string
	client  HTTPDoer
	timeout time.Duration
	rand    func() float64
	logger  *slog.Logger
}

// NewPriceFeed builds a feed client from opts.
func NewPriceFeed(opts PriceFeedOptions) *PriceFeed {
	timeout := defaultDuration(opts.Timeout, 10*time.Second)
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	feedURL := strings.TrimSpace(opts.URL)
	if feedURL == "" {
		feedURL = DefaultPriceFeedURL
	}
	rnd := opts.Rand
	if rnd == nil {
		rnd = rand.Float64
	}
	return &PriceFeed{url: feedURL, client: client, timeout: timeout, rand: rnd, logger: logger}
}

// FetchCrypto requests USD quotes for symbols in a single call. Symbols the
// feed does not know are absent from the result.
func (f *PriceFeed) FetchCrypto(ctx context.Context, symbols []string) (map[string]float64, error) {
	wanted := uniqueTickers(symbols)
	if len(wanted) == 0 {
		return map[string]float64{}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	query := url.Values{}
	query.Set("fsyms", strings.Join(wanted, ","))
	query.Set("tsyms", quoteCurrency)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build price request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	f.logger.Debug("fetching crypto prices", "symbols", wanted)
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFeedUnavailable, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrFeedUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrFeedUnavailable, resp.StatusCode)
	}
	return parseQuotes(body, wanted)
}

func parseQuotes(body []byte, wanted []string) (map[string]float64, error) {
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFeedMalformed, err)
	}
	if raw, ok := payload["Response"]; ok {
		var status string
		if json.Unmarshal(raw, &status) == nil && strings.EqualFold(status, "Error") {
			var message string
			_ = json.Unmarshal(payload["Message"], &message)
			return nil, fmt.Errorf("%w: %s", ErrFeedMalformed, message)
		}
	}

	prices := make(map[string]float64, len(wanted))
	for _, symbol := range wanted {
		raw, ok := payload[symbol]
		if !ok {
			continue
		}
		var quote map[string]float64
		if err := json.Unmarshal(raw, &quote); err != nil {
			continue
		}
		if price, ok := quote[quoteCurrency]; ok {
			prices[symbol] = price
		}
	}
	return prices, nil
}

// Synthesize moves prev by a uniform random factor within ±0.5% and rounds
// to cents.
func (f *PriceFeed) Synthesize(prev float64) float64 {
	factor := 1 + (f.rand()*2-1)*syntheticDrift
	return round2(prev * factor)
}

func uniqueTickers(symbols []string) []string {
	seen := make(map[string]struct{}, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = normalizeTicker(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
