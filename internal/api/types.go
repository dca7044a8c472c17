package api

import "tradedesk/pkg/tradedesk"

type addJournalPayload struct {
	Date        string `json:"date"`
	MacroReview string `json:"macroReview"`
	AltsMarket  string `json:"altsMarket"`
	Summary     string `json:"summary"`
	Sentiment   string `json:"sentiment"`
}

type digestPayload struct {
	Entries int `json:"entries"`
}

type addPortfolioPayload struct {
	Token        string  `json:"token"`
	Amount       float64 `json:"amount"`
	BuyPrice     float64 `json:"buyPrice"`
	CurrentPrice float64 `json:"currentPrice"`
	Category     string  `json:"category"`
	AssetType    string  `json:"assetType"`
}

type editPortfolioPayload struct {
	Token        *string  `json:"token"`
	Amount       *float64 `json:"amount"`
	BuyPrice     *float64 `json:"buyPrice"`
	CurrentPrice *float64 `json:"currentPrice"`
	Category     *string  `json:"category"`
	AssetType    *string  `json:"assetType"`
}

type addTradePayload struct {
	Date               string   `json:"date"`
	Ticker             string   `json:"ticker"`
	Direction          string   `json:"direction"`
	EntryPrice         float64  `json:"entryPrice"`
	ExitPrice          *float64 `json:"exitPrice"`
	Size               float64  `json:"size"`
	Status             string   `json:"status"`
	Rationale          string   `json:"rationale"`
	ExitReason         *string  `json:"exitReason"`
	PostExitReflection *string  `json:"postExitReflection"`
}

type editTradePayload struct {
	Date               *string  `json:"date"`
	Ticker             *string  `json:"ticker"`
	Direction          *string  `json:"direction"`
	EntryPrice         *float64 `json:"entryPrice"`
	ExitPrice          *float64 `json:"exitPrice"`
	ClearExitPrice     bool     `json:"clearExitPrice"`
	Size               *float64 `json:"size"`
	Status             *string  `json:"status"`
	Rationale          *string  `json:"rationale"`
	ExitReason         *string  `json:"exitReason"`
	PostExitReflection *string  `json:"postExitReflection"`
}

// pricedItem is a portfolio item with the price the UI should display.
type pricedItem struct {
	tradedesk.PortfolioItem
	EffectivePrice float64 `json:"effectivePrice"`
	PriceSource    string  `json:"priceSource"`
}

type clearResponse struct {
	Cleared int `json:"cleared"`
}
