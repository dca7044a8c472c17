package tradedesk

import (
	"sync"
	"time"
)

// LivePrices is the transient ticker -> price map fed by refresh cycles.
// Merges only add or overwrite keys; nothing is ever evicted.
type LivePrices struct {
	mu        sync.RWMutex
	prices    map[string]float64
	updatedAt time.Time
}

// LivePricesSnapshot is a copy of the map and its last merge time.
type LivePricesSnapshot struct {
	Prices    map[string]float64 `json:"prices"`
	UpdatedAt *time.Time         `json:"updatedAt"`
}

// Get returns the price recorded for ticker in the snapshot.
func (s LivePricesSnapshot) Get(ticker string) (float64, bool) {
	p, ok := s.Prices[normalizeTicker(ticker)]
	return p, ok
}

func newLivePrices() *LivePrices {
	return &LivePrices{prices: map[string]float64{}}
}

// Get returns the live price for ticker.
func (l *LivePrices) Get(ticker string) (float64, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	p, ok := l.prices[normalizeTicker(ticker)]
	return p, ok
}

// Merge adds or overwrites every price in update.
func (l *LivePrices) Merge(update map[string]float64) {
	if len(update) == 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	for ticker, price := range update {
		l.prices[normalizeTicker(ticker)] = price
	}
}

// Touch records the time of the latest merge.
func (l *LivePrices) Touch(at time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.updatedAt = at
}

// Snapshot copies the current state.
func (l *LivePrices) Snapshot() LivePricesSnapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	prices := make(map[string]float64, len(l.prices))
	for k, v := range l.prices {
		prices[k] = v
	}
	snap := LivePricesSnapshot{Prices: prices}
	if !l.updatedAt.IsZero() {
		at := l.updatedAt
		snap.UpdatedAt = &at
	}
	return snap
}
