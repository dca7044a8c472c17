package tradedesk

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Record is implemented by every persisted collection element.
type Record interface {
	RecordID() string
}

func (e JournalEntry) RecordID() string  { return e.ID }
func (p PortfolioItem) RecordID() string { return p.ID }
func (t Trade) RecordID() string         { return t.ID }

// Table is the persistence contract for one collection.
type Table[T Record] interface {
	List(ctx context.Context) ([]T, error)
	Insert(ctx context.Context, record T) error
	Update(ctx context.Context, id string, fields map[string]any) error
	Delete(ctx context.Context, id string) error
	DeleteAll(ctx context.Context) error
}

// Backend bundles the three collection tables of one storage strategy.
type Backend interface {
	Name() string
	Journal() Table[JournalEntry]
	Portfolio() Table[PortfolioItem]
	Trades() Table[Trade]
	Close() error
}

// Backend names reported by Backend.Name.
const (
	BackendRemote = "remote"
	BackendLocal  = "local"
)

// StorageOptions selects and configures the storage strategy.
type StorageOptions struct {
	RemoteURL string
	RemoteKey string
	// KV is the substrate of the local strategy. Required when the remote
	// strategy is not configured.
	KV         KVStore
	HTTPClient HTTPDoer
	Timeout    time.Duration
}

// RemoteConfigured reports whether both remote settings are present.
func (o StorageOptions) RemoteConfigured() bool {
	return strings.TrimSpace(o.RemoteURL) != "" && strings.TrimSpace(o.RemoteKey) != ""
}

// OpenBackend picks the remote strategy when it is fully configured and the
// local key-value strategy otherwise. The choice is final.
func OpenBackend(opts StorageOptions) (Backend, error) {
	if opts.RemoteConfigured() {
		return NewRemoteBackend(RemoteOptions{
			BaseURL:    opts.RemoteURL,
			APIKey:     opts.RemoteKey,
			HTTPClient: opts.HTTPClient,
			Timeout:    opts.Timeout,
		})
	}
	if opts.KV == nil {
		return nil, NewError(ErrCodeInvalidInput, "local storage requires a key-value store")
	}
	return NewLocalBackend(opts.KV), nil
}

// mergeFields applies a partial field map onto record using its JSON form,
// so the keys are the wire names of the record.
func mergeFields[T any](record T, fields map[string]any) (T, error) {
	var out T
	raw, err := json.Marshal(record)
	if err != nil {
		return out, fmt.Errorf("encode record: %w", err)
	}
	doc := map[string]any{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return out, fmt.Errorf("decode record: %w", err)
	}
	for k, v := range fields {
		doc[k] = v
	}
	raw, err = json.Marshal(doc)
	if err != nil {
		return out, fmt.Errorf("encode merged record: %w", err)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("decode merged record: %w", err)
	}
	return out, nil
}
