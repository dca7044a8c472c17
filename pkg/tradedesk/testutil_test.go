package tradedesk

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"
)

// doerFunc adapts a function to HTTPDoer.
type doerFunc func(*http.Request) (*http.Response, error)

func (f doerFunc) Do(req *http.Request) (*http.Response, error) { return f(req) }

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}
}

// recordingFeed answers every quote request with body and counts calls.
type recordingFeed struct {
	mu    sync.Mutex
	body  string
	err   error
	calls []string
}

func (f *recordingFeed) Do(req *http.Request) (*http.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req.URL.RawQuery)
	if f.err != nil {
		return nil, f.err
	}
	body := f.body
	if body == "" {
		body = "{}"
	}
	return jsonResponse(http.StatusOK, body), nil
}

func (f *recordingFeed) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// emptyKV returns a MemoryKV whose collections exist but hold no records,
// so no sample data is seeded.
func emptyKV(t *testing.T) *MemoryKV {
	t.Helper()
	kv := NewMemoryKV()
	ctx := context.Background()
	for _, key := range []string{KeyJournal, KeyPortfolio, KeyTrades} {
		if err := kv.Set(ctx, key, []byte("[]")); err != nil {
			t.Fatalf("seed kv: %v", err)
		}
	}
	return kv
}

type storeConfig struct {
	backend  Backend
	feed     HTTPDoer
	rand     func() float64
	delay    time.Duration
	interval time.Duration
	digest   DigestModel
}

// newTestStore opens a Store over an empty in-memory backend unless cfg
// overrides it. The store is closed when the test ends.
func newTestStore(t *testing.T, cfg storeConfig) *Store {
	t.Helper()
	backend := cfg.backend
	if backend == nil {
		backend = NewLocalBackend(emptyKV(t))
	}
	feed := cfg.feed
	if feed == nil {
		feed = &recordingFeed{}
	}
	s, err := Open(context.Background(), Options{
		Backend: backend,
		Logger:  discardLogger(),
		PriceFeed: PriceFeedOptions{
			URL:        "http://feed.test/data/pricemulti",
			HTTPClient: feed,
			Timeout:    time.Second,
			Rand:       cfg.rand,
		},
		RefreshInterval: defaultDuration(cfg.interval, time.Hour),
		RefreshDelay:    defaultDuration(cfg.delay, time.Hour),
		Digest:          DigestOptions{Client: cfg.digest},
		Now:             func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

var errWriteRejected = errors.New("write rejected")

// flakyBackend wraps a Backend and fails every mutation while failing is set.
type flakyBackend struct {
	Backend
	mu      sync.Mutex
	failing bool
}

func (b *flakyBackend) setFailing(v bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failing = v
}

func (b *flakyBackend) isFailing() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failing
}

func (b *flakyBackend) Journal() Table[JournalEntry] {
	return &flakyTable[JournalEntry]{Table: b.Backend.Journal(), owner: b}
}

func (b *flakyBackend) Portfolio() Table[PortfolioItem] {
	return &flakyTable[PortfolioItem]{Table: b.Backend.Portfolio(), owner: b}
}

func (b *flakyBackend) Trades() Table[Trade] {
	return &flakyTable[Trade]{Table: b.Backend.Trades(), owner: b}
}

type flakyTable[T Record] struct {
	Table[T]
	owner *flakyBackend
}

func (t *flakyTable[T]) Insert(ctx context.Context, record T) error {
	if t.owner.isFailing() {
		return WrapError(ErrCodeStorage, "insert", errWriteRejected)
	}
	return t.Table.Insert(ctx, record)
}

func (t *flakyTable[T]) Update(ctx context.Context, id string, fields map[string]any) error {
	if t.owner.isFailing() {
		return WrapError(ErrCodeStorage, "update", errWriteRejected)
	}
	return t.Table.Update(ctx, id, fields)
}

func (t *flakyTable[T]) Delete(ctx context.Context, id string) error {
	if t.owner.isFailing() {
		return WrapError(ErrCodeStorage, "delete", errWriteRejected)
	}
	return t.Table.Delete(ctx, id)
}

func (t *flakyTable[T]) DeleteAll(ctx context.Context) error {
	if t.owner.isFailing() {
		return WrapError(ErrCodeStorage, "delete all", errWriteRejected)
	}
	return t.Table.DeleteAll(ctx)
}

func addTestTrade(t *testing.T, s *Store, req AddTradeRequest) Trade {
	t.Helper()
	if req.Date == "" {
		req.Date = "2024-01-02"
	}
	if req.Direction == "" {
		req.Direction = "Long"
	}
	trade, err := s.AddTrade(context.Background(), req)
	if err != nil {
		t.Fatalf("add trade: %v", err)
	}
	return trade
}

func addTestItem(t *testing.T, s *Store, req AddPortfolioItemRequest) PortfolioItem {
	t.Helper()
	item, err := s.AddPortfolioItem(context.Background(), req)
	if err != nil {
		t.Fatalf("add portfolio item: %v", err)
	}
	return item
}

func assertFloatEquals(t *testing.T, got, want float64, msg string) {
	t.Helper()
	diff := got - want
	if diff < 0 {
		diff = -diff
	}
	if diff > 1e-9 {
		t.Errorf("%s: got %.10f, want %.10f", msg, got, want)
	}
}

func strPtr(v string) *string { return &v }
