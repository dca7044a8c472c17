package tradedesk

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Keys of the local fallback collections. Each holds a JSON array.
const (
	KeyJournal   = "tradedesk.journal"
	KeyPortfolio = "tradedesk.portfolio"
	KeyTrades    = "tradedesk.trades"
)

type localBackend struct {
	kv        KVStore
	journal   *localTable[JournalEntry]
	portfolio *localTable[PortfolioItem]
	trades    *localTable[Trade]
}

// NewLocalBackend stores each collection as one serialized array in kv,
// seeding missing collections with sample data.
func NewLocalBackend(kv KVStore) Backend {
	return &localBackend{
		kv:        kv,
		journal:   &localTable[JournalEntry]{kv: kv, key: KeyJournal, seed: seedJournal, prepend: true},
		portfolio: &localTable[PortfolioItem]{kv: kv, key: KeyPortfolio, seed: seedPortfolio},
		trades:    &localTable[Trade]{kv: kv, key: KeyTrades, seed: seedTrades, prepend: true},
	}
}

func (b *localBackend) Name() string                    { return BackendLocal }
func (b *localBackend) Journal() Table[JournalEntry]    { return b.journal }
func (b *localBackend) Portfolio() Table[PortfolioItem] { return b.portfolio }
func (b *localBackend) Trades() Table[Trade]            { return b.trades }

func (b *localBackend) Close() error {
	return b.kv.Close()
}

// localTable rewrites the whole collection under key on every mutation.
type localTable[T Record] struct {
	kv      KVStore
	key     string
	seed    func() []T
	prepend bool
	mu      sync.Mutex
}

func (t *localTable[T]) List(ctx context.Context) ([]T, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.load(ctx)
}

func (t *localTable[T]) Insert(ctx context.Context, record T) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	items, err := t.load(ctx)
	if err != nil {
		return err
	}
	if t.prepend {
		items = append([]T{record}, items...)
	} else {
		items = append(items, record)
	}
	return t.save(ctx, items)
}

func (t *localTable[T]) Update(ctx context.Context, id string, fields map[string]any) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	items, err := t.load(ctx)
	if err != nil {
		return err
	}
	for i, item := range items {
		if item.RecordID() != id {
			continue
		}
		merged, err := mergeFields(item, fields)
		if err != nil {
			return WrapError(ErrCodeInternal, "apply update", err)
		}
		items[i] = merged
		return t.save(ctx, items)
	}
	return notFound(t.key, id)
}

func (t *localTable[T]) Delete(ctx context.Context, id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	items, err := t.load(ctx)
	if err != nil {
		return err
	}
	kept := items[:0]
	for _, item := range items {
		if item.RecordID() != id {
			kept = append(kept, item)
		}
	}
	if len(kept) == len(items) {
		return notFound(t.key, id)
	}
	return t.save(ctx, kept)
}

func (t *localTable[T]) DeleteAll(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.save(ctx, []T{})
}

func (t *localTable[T]) load(ctx context.Context) ([]T, error) {
	raw, found, err := t.kv.Get(ctx, t.key)
	if err != nil {
		return nil, WrapError(ErrCodeStorage, fmt.Sprintf("read %s", t.key), err)
	}
	if !found {
		if t.seed == nil {
			return []T{}, nil
		}
		return t.seed(), nil
	}
	var items []T
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, WrapError(ErrCodeStorage, fmt.Sprintf("decode %s", t.key), err)
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

func (t *localTable[T]) save(ctx context.Context, items []T) error {
	raw, err := json.Marshal(items)
	if err != nil {
		return WrapError(ErrCodeInternal, fmt.Sprintf("encode %s", t.key), err)
	}
	if err := t.kv.Set(ctx, t.key, raw); err != nil {
		return WrapError(ErrCodeStorage, fmt.Sprintf("write %s", t.key), err)
	}
	return nil
}
