package tradedesk

import (
	"context"
	"math"
)

// ListPortfolio returns the portfolio items in storage order.
func (s *Store) ListPortfolio() []PortfolioItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]PortfolioItem{}, s.portfolio...)
}

func (s *Store) portfolioLen() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.portfolio)
}

// AddPortfolioItem stores a new holding and schedules a price refresh.
func (s *Store) AddPortfolioItem(ctx context.Context, req AddPortfolioItemRequest) (PortfolioItem, error) {
	item := PortfolioItem{
		ID:           newID(),
		Token:        normalizeTicker(req.Token),
		Amount:       req.Amount,
		BuyPrice:     req.BuyPrice,
		CurrentPrice: req.CurrentPrice,
		Category:     CategoryLiquid,
		AssetType:    AssetCrypto,
	}
	if req.Category != "" {
		c, ok := parseCategory(req.Category)
		if !ok {
			return PortfolioItem{}, invalidf("invalid category: %q", req.Category)
		}
		item.Category = c
	}
	if req.AssetType != "" {
		a, ok := parseAssetType(req.AssetType)
		if !ok {
			return PortfolioItem{}, invalidf("invalid asset type: %q", req.AssetType)
		}
		item.AssetType = a
	}
	if err := validatePortfolioItem(item); err != nil {
		return PortfolioItem{}, err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.backend.Portfolio().Insert(ctx, item); err != nil {
		s.logger.Error("portfolio insert failed", "token", item.Token, "err", err)
		return PortfolioItem{}, err
	}

	s.mu.Lock()
	s.portfolio = append(s.portfolio, item)
	s.mu.Unlock()

	s.refresher.schedule()
	return item, nil
}

// EditPortfolioItem applies patch to one holding and schedules a price
// refresh.
func (s *Store) EditPortfolioItem(ctx context.Context, id string, patch PortfolioItemPatch) (PortfolioItem, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.RLock()
	idx := indexByID(s.portfolio, id)
	var current PortfolioItem
	if idx >= 0 {
		current = s.portfolio[idx]
	}
	s.mu.RUnlock()
	if idx < 0 {
		return PortfolioItem{}, notFound("portfolio item", id)
	}

	updated, err := applyPortfolioPatch(current, patch)
	if err != nil {
		return PortfolioItem{}, err
	}
	fields, err := diffFields(current, updated)
	if err != nil {
		return PortfolioItem{}, WrapError(ErrCodeInternal, "diff portfolio item", err)
	}
	if len(fields) == 0 {
		return current, nil
	}
	if err := s.backend.Portfolio().Update(ctx, id, fields); err != nil {
		s.logger.Error("portfolio update failed", "id", id, "err", err)
		return PortfolioItem{}, err
	}

	s.mu.Lock()
	if i := indexByID(s.portfolio, id); i >= 0 {
		s.portfolio[i] = updated
	}
	s.mu.Unlock()

	s.refresher.schedule()
	return updated, nil
}

// DeletePortfolioItem removes one holding. Live prices are kept.
func (s *Store) DeletePortfolioItem(ctx context.Context, id string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.RLock()
	idx := indexByID(s.portfolio, id)
	s.mu.RUnlock()
	if idx < 0 {
		return notFound("portfolio item", id)
	}
	if err := s.backend.Portfolio().Delete(ctx, id); err != nil {
		s.logger.Error("portfolio delete failed", "id", id, "err", err)
		return err
	}

	s.mu.Lock()
	s.portfolio = removeByID(s.portfolio, id)
	s.mu.Unlock()
	return nil
}

func applyPortfolioPatch(item PortfolioItem, patch PortfolioItemPatch) (PortfolioItem, error) {
	if patch.Token != nil {
		item.Token = normalizeTicker(*patch.Token)
	}
	if patch.Amount != nil {
		item.Amount = *patch.Amount
	}
	if patch.BuyPrice != nil {
		item.BuyPrice = *patch.BuyPrice
	}
	if patch.CurrentPrice != nil {
		item.CurrentPrice = *patch.CurrentPrice
	}
	if patch.Category != nil {
		c, ok := parseCategory(*patch.Category)
		if !ok {
			return PortfolioItem{}, invalidf("invalid category: %q", *patch.Category)
		}
		item.Category = c
	}
	if patch.AssetType != nil {
		a, ok := parseAssetType(*patch.AssetType)
		if !ok {
			return PortfolioItem{}, invalidf("invalid asset type: %q", *patch.AssetType)
		}
		item.AssetType = a
	}
	return item, validatePortfolioItem(item)
}

func validatePortfolioItem(item PortfolioItem) error {
	if item.Token == "" {
		return invalidf("token is required")
	}
	for name, v := range map[string]float64{"amount": item.Amount, "buyPrice": item.BuyPrice, "currentPrice": item.CurrentPrice} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return invalidf("%s must be a finite number", name)
		}
	}
	if item.BuyPrice < 0 {
		return invalidf("buyPrice must not be negative")
	}
	if item.CurrentPrice < 0 {
		return invalidf("currentPrice must not be negative")
	}
	return nil
}
