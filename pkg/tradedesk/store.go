package tradedesk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Options controls Store initialization.
type Options struct {
	Storage StorageOptions
	// Backend overrides Storage when set.
	Backend         Backend
	Logger          *slog.Logger
	PriceFeed       PriceFeedOptions
	RefreshInterval time.Duration
	RefreshDelay    time.Duration
	Digest          DigestOptions
	// Now is the wall clock used for refresh timestamps. Defaults to time.Now.
	Now func() time.Time
}

// Store is the single source of truth for journal entries, portfolio items
// and trades. Every mutation writes through the backend first and touches the
// cached collection only when the write succeeded.
type Store struct {
	backend       Backend
	logger        *slog.Logger
	feed          *PriceFeed
	live          *LivePrices
	refresher     *refresher
	digest        DigestModel
	digestTimeout time.Duration
	now           func() time.Time

	// writeMu serializes mutations, including their storage round trip.
	writeMu sync.Mutex

	mu        sync.RWMutex
	journal   []JournalEntry
	portfolio []PortfolioItem
	trades    []Trade
}

// Open selects the backend, loads all collections and returns the Store.
// Load failures are logged and leave the affected collection empty.
func Open(ctx context.Context, opts Options) (*Store, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	backend := opts.Backend
	if backend == nil {
		var err error
		backend, err = OpenBackend(opts.Storage)
		if err != nil {
			return nil, fmt.Errorf("open backend: %w", err)
		}
	}
	digest, err := newDigestModel(ctx, opts.Digest)
	if err != nil {
		_ = backend.Close()
		return nil, fmt.Errorf("init digest: %w", err)
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}
	feedOpts := opts.PriceFeed
	if feedOpts.Logger == nil {
		feedOpts.Logger = logger
	}

	s := &Store{
		backend:       backend,
		logger:        logger,
		feed:          NewPriceFeed(feedOpts),
		live:          newLivePrices(),
		digest:        digest,
		digestTimeout: defaultDuration(opts.Digest.Timeout, defaultDigestTimeout),
		now:           now,
	}
	s.refresher = newRefresher(s, refresherOptions{
		Interval: defaultDuration(opts.RefreshInterval, 15*time.Second),
		Delay:    defaultDuration(opts.RefreshDelay, 500*time.Millisecond),
		Logger:   logger,
	})

	if err := s.Load(ctx); err != nil {
		logger.Warn("initial load incomplete", "backend", backend.Name(), "err", err)
	}
	return s, nil
}

// Load replaces the cached collections with the backend contents. A
// collection that fails to load keeps its previous cached value.
func (s *Store) Load(ctx context.Context) error {
	var journal []JournalEntry
	var portfolio []PortfolioItem
	var trades []Trade
	var journalErr, portfolioErr, tradesErr error

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		journal, journalErr = s.backend.Journal().List(gctx)
		return nil
	})
	g.Go(func() error {
		portfolio, portfolioErr = s.backend.Portfolio().List(gctx)
		return nil
	})
	g.Go(func() error {
		trades, tradesErr = s.backend.Trades().List(gctx)
		return nil
	})
	_ = g.Wait()

	s.mu.Lock()
	if journalErr == nil {
		s.journal = journal
	}
	if portfolioErr == nil {
		s.portfolio = portfolio
	}
	if tradesErr == nil {
		s.trades = trades
	}
	s.mu.Unlock()

	s.logger.Info("collections loaded",
		"backend", s.backend.Name(),
		"journal", len(journal),
		"portfolio", len(portfolio),
		"trades", len(trades),
	)
	return errors.Join(
		wrapLoadErr("journal", journalErr),
		wrapLoadErr("portfolio", portfolioErr),
		wrapLoadErr("trades", tradesErr),
	)
}

func wrapLoadErr(collection string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("load %s: %w", collection, err)
}

// Start begins the repeating price refresh and runs one refresh right away
// when the portfolio is not empty.
func (s *Store) Start() {
	s.refresher.Start()
}

// Stop cancels the repeating refresh and any pending debounced refresh.
// A refresh already in flight is left to finish.
func (s *Store) Stop() {
	s.refresher.Stop()
}

// Close stops refreshing and releases the backend.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	s.refresher.Close()
	return s.backend.Close()
}

// BackendName reports the storage strategy in use.
func (s *Store) BackendName() string {
	return s.backend.Name()
}

func defaultDuration(v time.Duration, fallback time.Duration) time.Duration {
	if v <= 0 {
		return fallback
	}
	return v
}

func defaultInt(v int, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}

func indexByID[T Record](items []T, id string) int {
	for i, item := range items {
		if item.RecordID() == id {
			return i
		}
	}
	return -1
}

func removeByID[T Record](items []T, id string) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if item.RecordID() != id {
			out = append(out, item)
		}
	}
	return out
}

// diffFields returns the wire fields whose values differ between before and
// after. The id is never part of the result.
func diffFields[T any](before, after T) (map[string]any, error) {
	b, err := toFieldMap(before)
	if err != nil {
		return nil, err
	}
	a, err := toFieldMap(after)
	if err != nil {
		return nil, err
	}
	fields := map[string]any{}
	for k, v := range a {
		if k == "id" {
			continue
		}
		if old, ok := b[k]; !ok || !reflect.DeepEqual(old, v) {
			fields[k] = v
		}
	}
	return fields, nil
}

func toFieldMap(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	out := map[string]any{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
