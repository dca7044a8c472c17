package tradedesk

// Sample collections written to the local fallback on first start. Each call
// returns a fresh slice so callers may mutate the result.

func seedJournal() []JournalEntry {
	return []JournalEntry{
		{
			ID:          "01HSEED0JOURNA0000000000001",
			Date:        "2024-03-01",
			MacroReview: "CPI in line with expectations, yields flat into the close.",
			AltsMarket:  "Majors led, mid caps lagged as BTC dominance ticked up.",
			Summary:     "Risk-on but selective. Stay with trend leaders.",
			Sentiment:   SentimentBullish,
		},
	}
}

func seedPortfolio() []PortfolioItem {
	return []PortfolioItem{
		{ID: "01HSEED0PORTF00000000000001", Token: "BTC", Amount: 0.5, BuyPrice: 42000, CurrentPrice: 62000, Category: CategoryLiquid, AssetType: AssetCrypto},
		{ID: "01HSEED0PORTF00000000000002", Token: "ETH", Amount: 4, BuyPrice: 2300, CurrentPrice: 3400, Category: CategoryFarming, AssetType: AssetCrypto},
		{ID: "01HSEED0PORTF00000000000003", Token: "AAPL", Amount: 10, BuyPrice: 170, CurrentPrice: 185, Category: CategoryLiquid, AssetType: AssetStock},
	}
}

func seedTrades() []Trade {
	exit := 3500.0
	pnl := 250.0
	reason := "Hit target at prior range high."
	return []Trade{
		{
			ID:         "01HSEED0TRADE00000000000002",
			Date:       "2024-03-02",
			Ticker:     "SOL",
			Direction:  DirectionLong,
			EntryPrice: 120,
			Size:       1000,
			Status:     StatusOpen,
			Rationale:  "Breakout retest held on the 4h.",
		},
		{
			ID:         "01HSEED0TRADE00000000000001",
			Date:       "2024-02-20",
			Ticker:     "ETH",
			Direction:  DirectionLong,
			EntryPrice: 2800,
			ExitPrice:  &exit,
			Size:       1000,
			Status:     StatusWin,
			Rationale:  "Reclaimed weekly open with volume.",
			ExitReason: &reason,
			PnL:        &pnl,
		},
	}
}
