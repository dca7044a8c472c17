package tradedesk

import (
	"time"

	"github.com/shopspring/decimal"
)

// HoldingValuation is a portfolio item valued at its effective price.
type HoldingValuation struct {
	PortfolioItem
	EffectivePrice   Amount   `json:"effectivePrice"`
	PriceSource      string   `json:"priceSource"`
	MarketValue      Amount   `json:"marketValue"`
	CostBasis        Amount   `json:"costBasis"`
	UnrealizedPnL    Amount   `json:"unrealizedPnl"`
	UnrealizedPnLPct *float64 `json:"unrealizedPnlPct"`
}

// ValuationTotals aggregates a group of holdings.
type ValuationTotals struct {
	Count            int      `json:"count"`
	MarketValue      Amount   `json:"marketValue"`
	CostBasis        Amount   `json:"costBasis"`
	UnrealizedPnL    Amount   `json:"unrealizedPnl"`
	UnrealizedPnLPct *float64 `json:"unrealizedPnlPct"`
	WeightPct        *float64 `json:"weightPct"`
}

// PortfolioValuation values every holding and groups the totals.
type PortfolioValuation struct {
	Items           []HoldingValuation            `json:"items"`
	Total           ValuationTotals               `json:"total"`
	ByCategory      map[Category]ValuationTotals  `json:"byCategory"`
	ByAssetType     map[AssetType]ValuationTotals `json:"byAssetType"`
	PricesUpdatedAt *time.Time                    `json:"pricesUpdatedAt"`
}

type valuationAcc struct {
	count int
	value decimal.Decimal
	cost  decimal.Decimal
}

func (a *valuationAcc) add(value, cost decimal.Decimal) {
	a.count++
	a.value = a.value.Add(value)
	a.cost = a.cost.Add(cost)
}

func (a *valuationAcc) totals(grandValue decimal.Decimal) ValuationTotals {
	pnl := a.value.Sub(a.cost)
	return ValuationTotals{
		Count:            a.count,
		MarketValue:      amountFrom(a.value),
		CostBasis:        amountFrom(a.cost),
		UnrealizedPnL:    amountFrom(pnl),
		UnrealizedPnLPct: percentOf(pnl, a.cost),
		WeightPct:        percentOf(a.value, grandValue),
	}
}

// PortfolioValuation computes market value, cost basis and unrealized PnL
// using effective prices as of now.
func (s *Store) PortfolioValuation() PortfolioValuation {
	items := s.ListPortfolio()
	snap := s.live.Snapshot()

	out := PortfolioValuation{
		Items:           make([]HoldingValuation, 0, len(items)),
		ByCategory:      map[Category]ValuationTotals{},
		ByAssetType:     map[AssetType]ValuationTotals{},
		PricesUpdatedAt: snap.UpdatedAt,
	}
	var total valuationAcc
	byCategory := map[Category]*valuationAcc{}
	byAsset := map[AssetType]*valuationAcc{}

	for _, item := range items {
		price, source := effectivePrice(item, snap.Get)
		amount := decimal.NewFromFloat(item.Amount)
		value := amount.Mul(decimal.NewFromFloat(price))
		cost := amount.Mul(decimal.NewFromFloat(item.BuyPrice))
		pnl := value.Sub(cost)

		out.Items = append(out.Items, HoldingValuation{
			PortfolioItem:    item,
			EffectivePrice:   NewAmount(price),
			PriceSource:      source,
			MarketValue:      amountFrom(value),
			CostBasis:        amountFrom(cost),
			UnrealizedPnL:    amountFrom(pnl),
			UnrealizedPnLPct: percentOf(pnl, cost),
		})

		total.add(value, cost)
		if byCategory[item.Category] == nil {
			byCategory[item.Category] = &valuationAcc{}
		}
		byCategory[item.Category].add(value, cost)
		if byAsset[item.AssetType] == nil {
			byAsset[item.AssetType] = &valuationAcc{}
		}
		byAsset[item.AssetType].add(value, cost)
	}

	out.Total = total.totals(total.value)
	for k, acc := range byCategory {
		out.ByCategory[k] = acc.totals(total.value)
	}
	for k, acc := range byAsset {
		out.ByAssetType[k] = acc.totals(total.value)
	}
	return out
}
