package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"tradedesk/pkg/tradedesk"
)

const feedBody = `{"BTC":{"USD":65000},"ETH":{"USD":3500}}`

type feedFunc func(*http.Request) (*http.Response, error)

func (f feedFunc) Do(req *http.Request) (*http.Response, error) { return f(req) }

func staticFeed(body string) tradedesk.HTTPDoer {
	return feedFunc(func(*http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader(body)),
			Header:     http.Header{"Content-Type": []string{"application/json"}},
		}, nil
	})
}

type stubDigest struct {
	reply string
	err   error
}

func (s stubDigest) Name() string { return "stub-model" }

func (s stubDigest) Complete(context.Context, string, string) (string, error) {
	return s.reply, s.err
}

type routerConfig struct {
	logger *slog.Logger
	digest tradedesk.DigestModel
}

// setupTestRouter opens a store seeded with the sample data over an
// in-memory backend.
func setupTestRouter(t *testing.T, cfg routerConfig) http.Handler {
	t.Helper()
	logger := cfg.logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	store, err := tradedesk.Open(context.Background(), tradedesk.Options{
		Backend: tradedesk.NewLocalBackend(tradedesk.NewMemoryKV()),
		Logger:  logger,
		PriceFeed: tradedesk.PriceFeedOptions{
			URL:        "http://feed.test/data/pricemulti",
			HTTPClient: staticFeed(feedBody),
			Timeout:    time.Second,
			Rand:       func() float64 { return 0.5 },
		},
		RefreshInterval: time.Hour,
		RefreshDelay:    time.Hour,
		Digest:          tradedesk.DigestOptions{Client: cfg.digest},
	})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return NewRouter(store, Options{
		Logger:  logger,
		Storage: StorageInfo{KVDriver: "memory"},
	})
}

// doRequest performs a request and returns the response.
func doRequest(router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var reqBody io.Reader = http.NoBody
	switch b := body.(type) {
	case nil:
	case string:
		reqBody = strings.NewReader(b)
	default:
		raw, _ := json.Marshal(b)
		reqBody = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.NewDecoder(rr.Body).Decode(&out); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return out
}

func TestHealthEndpoint(t *testing.T) {
	router := setupTestRouter(t, routerConfig{})

	rr := doRequest(router, http.MethodGet, "/api/health", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	got := decodeBody[map[string]string](t, rr)
	if got["status"] != "ok" || got["backend"] != tradedesk.BackendLocal {
		t.Fatalf("unexpected health body: %v", got)
	}
}

func TestStorageEndpointFillsBackend(t *testing.T) {
	router := setupTestRouter(t, routerConfig{})

	rr := doRequest(router, http.MethodGet, "/api/storage", nil)
	got := decodeBody[StorageInfo](t, rr)
	if got.Backend != tradedesk.BackendLocal || got.KVDriver != "memory" {
		t.Fatalf("unexpected storage info: %+v", got)
	}
}

func TestJournalLifecycle(t *testing.T) {
	router := setupTestRouter(t, routerConfig{})

	rr := doRequest(router, http.MethodPost, "/api/journal", addJournalPayload{
		Date:      "2024-03-02",
		Summary:   "range day",
		Sentiment: "neutral",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	created := decodeBody[tradedesk.JournalEntry](t, rr)
	if created.Sentiment != tradedesk.SentimentNeutral || created.ID == "" {
		t.Fatalf("unexpected entry: %+v", created)
	}

	list := decodeBody[[]tradedesk.JournalEntry](t, doRequest(router, http.MethodGet, "/api/journal", nil))
	if len(list) != 2 || list[0].ID != created.ID {
		t.Fatalf("expected new entry first, got %+v", list)
	}

	rr = doRequest(router, http.MethodDelete, "/api/journal/"+created.ID, nil)
	if rr.Code != http.StatusPreconditionRequired {
		t.Fatalf("expected 428 without confirm, got %d", rr.Code)
	}
	rr = doRequest(router, http.MethodDelete, "/api/journal/"+created.ID+"?confirm=true", nil)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}
	rr = doRequest(router, http.MethodDelete, "/api/journal/"+created.ID+"?confirm=true", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on second delete, got %d", rr.Code)
	}
}

func TestAddJournalRejectsBadInput(t *testing.T) {
	router := setupTestRouter(t, routerConfig{})

	rr := doRequest(router, http.MethodPost, "/api/journal", `{"date":"2024-03-02","mood":"x"}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown field, got %d", rr.Code)
	}

	rr = doRequest(router, http.MethodPost, "/api/journal", addJournalPayload{Date: "2024-03-02", Sentiment: "euphoric"})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	got := decodeBody[ErrorResponse](t, rr)
	if got.ErrorCode != string(tradedesk.ErrCodeInvalidInput) {
		t.Fatalf("expected INVALID_INPUT, got %+v", got)
	}
}

func TestPortfolioListReportsPriceSource(t *testing.T) {
	router := setupTestRouter(t, routerConfig{})

	items := decodeBody[[]pricedItem](t, doRequest(router, http.MethodGet, "/api/portfolio", nil))
	if len(items) != 3 {
		t.Fatalf("expected 3 seeded items, got %d", len(items))
	}
	for _, item := range items {
		if item.PriceSource != tradedesk.PriceSourceFallback || item.EffectivePrice != item.CurrentPrice {
			t.Fatalf("expected fallback price before refresh, got %+v", item)
		}
	}

	rr := doRequest(router, http.MethodPost, "/api/prices/refresh", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	state := decodeBody[tradedesk.PricesState](t, rr)
	if state.Prices["BTC"] != 65000 || state.Prices["AAPL"] != 185 || state.UpdatedAt == nil {
		t.Fatalf("unexpected prices: %+v", state)
	}

	items = decodeBody[[]pricedItem](t, doRequest(router, http.MethodGet, "/api/portfolio", nil))
	if items[0].Token != "BTC" || items[0].EffectivePrice != 65000 || items[0].PriceSource != tradedesk.PriceSourceLive {
		t.Fatalf("expected live BTC price, got %+v", items[0])
	}
}

func TestPortfolioEditAndDelete(t *testing.T) {
	router := setupTestRouter(t, routerConfig{})

	rr := doRequest(router, http.MethodPost, "/api/portfolio", addPortfolioPayload{Token: "sol", Amount: 10, BuyPrice: 100, CurrentPrice: 150})
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	item := decodeBody[tradedesk.PortfolioItem](t, rr)
	if item.Category != tradedesk.CategoryLiquid || item.AssetType != tradedesk.AssetCrypto {
		t.Fatalf("expected defaults, got %+v", item)
	}

	rr = doRequest(router, http.MethodPut, "/api/portfolio/"+item.ID, `{"amount":12.5,"category":"Vested"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	edited := decodeBody[tradedesk.PortfolioItem](t, rr)
	if edited.Amount != 12.5 || edited.Category != tradedesk.CategoryVested || edited.BuyPrice != 100 {
		t.Fatalf("unexpected edit: %+v", edited)
	}

	rr = doRequest(router, http.MethodPut, "/api/portfolio/missing", `{"amount":1}`)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}

	rr = doRequest(router, http.MethodDelete, "/api/portfolio/"+item.ID, nil)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}
}

func TestPortfolioValuationEndpoint(t *testing.T) {
	router := setupTestRouter(t, routerConfig{})

	rr := doRequest(router, http.MethodGet, "/api/portfolio/valuation", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	got := decodeBody[map[string]any](t, rr)
	total, ok := got["total"].(map[string]any)
	if !ok {
		t.Fatalf("missing total: %v", got)
	}
	if total["marketValue"] != float64(46450) {
		t.Fatalf("expected market value 46450, got %v", total["marketValue"])
	}
}

func TestTradeLifecycle(t *testing.T) {
	router := setupTestRouter(t, routerConfig{})

	rr := doRequest(router, http.MethodPost, "/api/trades", addTradePayload{
		Date:       "2024-03-01",
		Ticker:     "btc",
		Direction:  "Short",
		EntryPrice: 60000,
		Size:       600,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	trade := decodeBody[tradedesk.Trade](t, rr)
	if trade.Status != tradedesk.StatusOpen || trade.PnL != nil {
		t.Fatalf("expected open trade, got %+v", trade)
	}

	rr = doRequest(router, http.MethodPut, "/api/trades/"+trade.ID, `{"exitPrice":57000}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	closed := decodeBody[tradedesk.Trade](t, rr)
	if closed.Status != tradedesk.StatusWin || closed.PnL == nil || math.Abs(*closed.PnL-30) > 1e-9 {
		t.Fatalf("expected short win with pnl 30, got %+v", closed)
	}

	rr = doRequest(router, http.MethodPut, "/api/trades/"+trade.ID, `{"clearExitPrice":true,"status":"Open"}`)
	reopened := decodeBody[tradedesk.Trade](t, rr)
	if reopened.ExitPrice != nil || reopened.PnL != nil {
		t.Fatalf("expected reopened trade without pnl, got %+v", reopened)
	}

	stats := decodeBody[tradedesk.TradeStats](t, doRequest(router, http.MethodGet, "/api/trades/stats", nil))
	if stats.Total != 3 || stats.Open != 2 {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	rr = doRequest(router, http.MethodDelete, "/api/trades/"+trade.ID+"?confirm=true", nil)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}
}

func TestAddTradeZeroEntryPriceWithExit(t *testing.T) {
	router := setupTestRouter(t, routerConfig{})
	exit := 10.0

	rr := doRequest(router, http.MethodPost, "/api/trades", addTradePayload{Date: "2024-03-01", Ticker: "X", Direction: "Long", ExitPrice: &exit, Size: 1})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	got := decodeBody[ErrorResponse](t, rr)
	if got.ErrorCode != string(tradedesk.ErrCodeValidation) {
		t.Fatalf("expected VALIDATION_ERROR, got %+v", got)
	}
}

func TestClearTradesRequiresConfirm(t *testing.T) {
	router := setupTestRouter(t, routerConfig{})

	rr := doRequest(router, http.MethodDelete, "/api/trades", nil)
	if rr.Code != http.StatusPreconditionRequired {
		t.Fatalf("expected 428, got %d", rr.Code)
	}

	rr = doRequest(router, http.MethodDelete, "/api/trades?confirm=true", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if got := decodeBody[clearResponse](t, rr); got.Cleared != 2 {
		t.Fatalf("expected 2 cleared, got %d", got.Cleared)
	}

	list := decodeBody[[]tradedesk.Trade](t, doRequest(router, http.MethodGet, "/api/trades", nil))
	if len(list) != 0 {
		t.Fatalf("expected no trades, got %d", len(list))
	}
}

func TestJournalDigestEndpoint(t *testing.T) {
	router := setupTestRouter(t, routerConfig{digest: stubDigest{reply: "Stay patient."}})

	rr := doRequest(router, http.MethodPost, "/api/journal/digest", digestPayload{Entries: 3})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	got := decodeBody[tradedesk.JournalDigest](t, rr)
	if got.Content != "Stay patient." || got.Model != "stub-model" || got.EntryCount != 1 {
		t.Fatalf("unexpected digest: %+v", got)
	}

	rr = doRequest(router, http.MethodPost, "/api/journal/digest", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 for empty body, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestJournalDigestUnknownLengthBody(t *testing.T) {
	router := setupTestRouter(t, routerConfig{digest: stubDigest{reply: "ok"}})

	// A reader that is not a bytes or strings reader leaves ContentLength at -1.
	post := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/journal/digest", struct{ io.Reader }{strings.NewReader(body)})
		req.Header.Set("Content-Type", "application/json")
		if req.ContentLength != -1 {
			t.Fatalf("expected unknown content length, got %d", req.ContentLength)
		}
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		return rr
	}

	if rr := post(""); rr.Code != http.StatusOK {
		t.Fatalf("expected 200 for empty streamed body, got %d: %s", rr.Code, rr.Body.String())
	}
	if rr := post(`{"entries":2}`); rr.Code != http.StatusOK {
		t.Fatalf("expected 200 for streamed payload, got %d: %s", rr.Code, rr.Body.String())
	}
	if rr := post(`{"entries":`); rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for truncated payload, got %d", rr.Code)
	}
	if rr := post(`{"bogus":1}`); rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown field, got %d", rr.Code)
	}
}

func TestJournalDigestErrors(t *testing.T) {
	router := setupTestRouter(t, routerConfig{})
	rr := doRequest(router, http.MethodPost, "/api/journal/digest", nil)
	if rr.Code != http.StatusNotImplemented {
		t.Fatalf("expected 501 without a model, got %d", rr.Code)
	}

	router = setupTestRouter(t, routerConfig{digest: stubDigest{err: errors.New("quota exceeded")}})
	rr = doRequest(router, http.MethodPost, "/api/journal/digest", nil)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 on model failure, got %d", rr.Code)
	}
}

func TestUnknownRoute(t *testing.T) {
	router := setupTestRouter(t, routerConfig{})

	rr := doRequest(router, http.MethodGet, "/api/nope", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
	rr = doRequest(router, http.MethodPatch, "/api/trades", nil)
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rr.Code)
	}
}
