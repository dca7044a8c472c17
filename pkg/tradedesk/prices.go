package tradedesk

import "context"

// Price sources reported for a portfolio item.
const (
	PriceSourceLive     = "live"
	PriceSourceFallback = "fallback"
)

// PricesState is the live price map plus refresh activity.
type PricesState struct {
	LivePricesSnapshot
	Refreshing bool `json:"refreshing"`
}

// LivePrices returns a copy of the live price map.
func (s *Store) LivePrices() PricesState {
	return PricesState{
		LivePricesSnapshot: s.live.Snapshot(),
		Refreshing:         s.refresher.Refreshing(),
	}
}

// EffectivePrice returns the live price for the item's token when known and
// the manual fallback price otherwise.
func (s *Store) EffectivePrice(item PortfolioItem) (float64, string) {
	return effectivePrice(item, s.live.Get)
}

// effectivePrice resolves item against a live price lookup.
func effectivePrice(item PortfolioItem, lookup func(ticker string) (float64, bool)) (float64, string) {
	if price, ok := lookup(item.Token); ok {
		return price, PriceSourceLive
	}
	return item.CurrentPrice, PriceSourceFallback
}

// RefreshPrices runs a refresh now, or waits for the one already running.
func (s *Store) RefreshPrices(ctx context.Context) (LivePricesSnapshot, error) {
	return s.refresher.run(ctx)
}

// refreshOnce fetches crypto quotes in one batch, walks every other price
// from its last known value and merges both into the live map. A feed
// failure only drops the crypto part of this cycle.
func (s *Store) refreshOnce(ctx context.Context) (LivePricesSnapshot, error) {
	items := s.ListPortfolio()
	if len(items) == 0 {
		return s.live.Snapshot(), nil
	}

	var cryptoSymbols []string
	var others []PortfolioItem
	for _, item := range items {
		if item.AssetType == AssetCrypto {
			cryptoSymbols = append(cryptoSymbols, item.Token)
		} else {
			others = append(others, item)
		}
	}

	var crypto map[string]float64
	if len(cryptoSymbols) > 0 {
		fetched, err := s.feed.FetchCrypto(ctx, cryptoSymbols)
		if err != nil {
			s.logger.Warn("crypto price fetch failed", "symbols", len(cryptoSymbols), "err", err)
		} else {
			crypto = fetched
		}
	}

	synthetic := make(map[string]float64, len(others))
	for _, item := range others {
		prev, ok := s.live.Get(item.Token)
		if !ok {
			prev = item.CurrentPrice
		}
		synthetic[normalizeTicker(item.Token)] = s.feed.Synthesize(prev)
	}

	s.live.Merge(crypto)
	s.live.Merge(synthetic)
	s.live.Touch(s.now())

	s.logger.Debug("prices refreshed", "crypto", len(crypto), "synthetic", len(synthetic))
	return s.live.Snapshot(), nil
}
