package mobile

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"tradedesk/pkg/tradedesk"
)

const callTimeout = 30 * time.Second

// Core wraps the TradeDesk store for gomobile bindings. Every payload and
// result crosses the boundary as JSON.
type Core struct {
	store *tradedesk.Store
}

// Open opens a store kept in the SQLite file at dbPath.
func Open(dbPath string) (*Core, error) {
	return OpenWithFeed(dbPath, "")
}

// OpenWithFeed is Open with a custom quote endpoint. An empty feedURL uses
// the default one.
func OpenWithFeed(dbPath, feedURL string) (*Core, error) {
	kv, err := tradedesk.OpenSQLiteKV(dbPath, nil)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()
	store, err := tradedesk.Open(ctx, tradedesk.Options{
		Storage:   tradedesk.StorageOptions{KV: kv},
		PriceFeed: tradedesk.PriceFeedOptions{URL: feedURL},
	})
	if err != nil {
		_ = kv.Close()
		return nil, err
	}
	return &Core{store: store}, nil
}

// Close stops refreshing and releases the database.
func (c *Core) Close() error {
	if c == nil || c.store == nil {
		return nil
	}
	return c.store.Close()
}

// StartPriceRefresh begins the periodic price refresh.
func (c *Core) StartPriceRefresh() {
	c.store.Start()
}

// StopPriceRefresh halts the periodic price refresh.
func (c *Core) StopPriceRefresh() {
	c.store.Stop()
}

// ListJournalJSON returns journal entries, newest first.
func (c *Core) ListJournalJSON() (string, error) {
	return marshalJSON(c.store.ListJournal())
}

// AddJournalEntryJSON creates an entry from JSON and returns it.
func (c *Core) AddJournalEntryJSON(payloadJSON string) (string, error) {
	var req tradedesk.AddJournalEntryRequest
	if err := unmarshalJSON(payloadJSON, &req); err != nil {
		return "", err
	}
	return call(func(ctx context.Context) (tradedesk.JournalEntry, error) {
		return c.store.AddJournalEntry(ctx, req)
	})
}

// DeleteJournalEntry removes an entry by id.
func (c *Core) DeleteJournalEntry(id string) error {
	return run(func(ctx context.Context) error {
		return c.store.DeleteJournalEntry(ctx, id)
	})
}

// ListPortfolioJSON returns portfolio items in insertion order.
func (c *Core) ListPortfolioJSON() (string, error) {
	return marshalJSON(c.store.ListPortfolio())
}

// AddPortfolioItemJSON creates a holding from JSON and returns it.
func (c *Core) AddPortfolioItemJSON(payloadJSON string) (string, error) {
	var req tradedesk.AddPortfolioItemRequest
	if err := unmarshalJSON(payloadJSON, &req); err != nil {
		return "", err
	}
	return call(func(ctx context.Context) (tradedesk.PortfolioItem, error) {
		return c.store.AddPortfolioItem(ctx, req)
	})
}

// EditPortfolioItemJSON applies a partial JSON patch to a holding.
func (c *Core) EditPortfolioItemJSON(id, patchJSON string) (string, error) {
	var patch tradedesk.PortfolioItemPatch
	if err := unmarshalJSON(patchJSON, &patch); err != nil {
		return "", err
	}
	return call(func(ctx context.Context) (tradedesk.PortfolioItem, error) {
		return c.store.EditPortfolioItem(ctx, id, patch)
	})
}

// DeletePortfolioItem removes a holding by id.
func (c *Core) DeletePortfolioItem(id string) error {
	return run(func(ctx context.Context) error {
		return c.store.DeletePortfolioItem(ctx, id)
	})
}

// PortfolioValuationJSON values the portfolio at effective prices.
func (c *Core) PortfolioValuationJSON() (string, error) {
	return marshalJSON(c.store.PortfolioValuation())
}

// ListTradesJSON returns trades, newest first.
func (c *Core) ListTradesJSON() (string, error) {
	return marshalJSON(c.store.ListTrades())
}

// AddTradeJSON creates a trade from JSON and returns it.
func (c *Core) AddTradeJSON(payloadJSON string) (string, error) {
	var req tradedesk.AddTradeRequest
	if err := unmarshalJSON(payloadJSON, &req); err != nil {
		return "", err
	}
	return call(func(ctx context.Context) (tradedesk.Trade, error) {
		return c.store.AddTrade(ctx, req)
	})
}

// EditTradeJSON applies a partial JSON patch to a trade.
func (c *Core) EditTradeJSON(id, patchJSON string) (string, error) {
	var patch tradedesk.TradePatch
	if err := unmarshalJSON(patchJSON, &patch); err != nil {
		return "", err
	}
	return call(func(ctx context.Context) (tradedesk.Trade, error) {
		return c.store.EditTrade(ctx, id, patch)
	})
}

// DeleteTrade removes a trade by id.
func (c *Core) DeleteTrade(id string) error {
	return run(func(ctx context.Context) error {
		return c.store.DeleteTrade(ctx, id)
	})
}

// ClearTrades removes every trade and returns how many were removed.
func (c *Core) ClearTrades() (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()
	return c.store.ClearTrades(ctx)
}

// TradeStatsJSON summarizes trade outcomes.
func (c *Core) TradeStatsJSON() (string, error) {
	return marshalJSON(c.store.TradeStats())
}

// LivePricesJSON returns the live price map.
func (c *Core) LivePricesJSON() (string, error) {
	return marshalJSON(c.store.LivePrices())
}

// RefreshPricesJSON refreshes prices now and returns the live price map.
func (c *Core) RefreshPricesJSON() (string, error) {
	return call(func(ctx context.Context) (tradedesk.LivePricesSnapshot, error) {
		return c.store.RefreshPrices(ctx)
	})
}

func call[T any](fn func(ctx context.Context) (T, error)) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()
	value, err := fn(ctx)
	if err != nil {
		return "", err
	}
	return marshalJSON(value)
}

func run(fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()
	return fn(ctx)
}

// unmarshalJSON decodes payload into a request struct. Keys match field
// names case-insensitively, so camelCase wire names work.
func unmarshalJSON(payload string, dst any) error {
	decoder := json.NewDecoder(bytes.NewReader([]byte(payload)))
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

func marshalJSON(value any) (string, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
