package tradedesk

import "strings"

// Sentiment is the market mood recorded on a journal entry.
type Sentiment string

const (
	SentimentBullish Sentiment = "Bullish"
	SentimentBearish Sentiment = "Bearish"
	SentimentNeutral Sentiment = "Neutral"
	SentimentMixed   Sentiment = "Mixed"
)

var Sentiments = []Sentiment{SentimentBullish, SentimentBearish, SentimentNeutral, SentimentMixed}

// Category groups portfolio items by liquidity.
type Category string

const (
	CategoryLiquid  Category = "Liquid"
	CategoryVested  Category = "Vested"
	CategoryFarming Category = "Farming"
)

var Categories = []Category{CategoryLiquid, CategoryVested, CategoryFarming}

// AssetType decides how a portfolio item is priced.
type AssetType string

const (
	AssetCrypto AssetType = "Crypto"
	AssetStock  AssetType = "Stock"
)

var AssetTypes = []AssetType{AssetCrypto, AssetStock}

// Direction is the side of a trade.
type Direction string

const (
	DirectionLong  Direction = "Long"
	DirectionShort Direction = "Short"
)

var Directions = []Direction{DirectionLong, DirectionShort}

// TradeStatus is the outcome of a trade. Open is the initial state.
type TradeStatus string

const (
	StatusOpen      TradeStatus = "Open"
	StatusWin       TradeStatus = "Win"
	StatusLoss      TradeStatus = "Loss"
	StatusBreakeven TradeStatus = "Breakeven"
)

var TradeStatuses = []TradeStatus{StatusOpen, StatusWin, StatusLoss, StatusBreakeven}

// JournalEntry is a daily market review. Entries are never edited.
type JournalEntry struct {
	ID          string    `json:"id"`
	Date        string    `json:"date"`
	MacroReview string    `json:"macroReview"`
	AltsMarket  string    `json:"altsMarket"`
	Summary     string    `json:"summary"`
	Sentiment   Sentiment `json:"sentiment"`
}

// PortfolioItem is a holding. CurrentPrice is the manual fallback used when
// no live price is known for Token.
type PortfolioItem struct {
	ID           string    `json:"id"`
	Token        string    `json:"token"`
	Amount       float64   `json:"amount"`
	BuyPrice     float64   `json:"buyPrice"`
	CurrentPrice float64   `json:"currentPrice"`
	Category     Category  `json:"category"`
	AssetType    AssetType `json:"assetType"`
}

// Trade is a discrete position. PnL is derived and present only for closed
// trades with an exit price.
type Trade struct {
	ID                 string      `json:"id"`
	Date               string      `json:"date"`
	Ticker             string      `json:"ticker"`
	Direction          Direction   `json:"direction"`
	EntryPrice         float64     `json:"entryPrice"`
	ExitPrice          *float64    `json:"exitPrice"`
	Size               float64     `json:"size"`
	Status             TradeStatus `json:"status"`
	Rationale          string      `json:"rationale"`
	ExitReason         *string     `json:"exitReason"`
	PostExitReflection *string     `json:"postExitReflection"`
	PnL                *float64    `json:"pnl"`
}

// AddJournalEntryRequest defines inputs to add a journal entry.
type AddJournalEntryRequest struct {
	Date        string
	MacroReview string
	AltsMarket  string
	Summary     string
	Sentiment   string
}

// AddPortfolioItemRequest defines inputs to add a portfolio item.
type AddPortfolioItemRequest struct {
	Token        string
	Amount       float64
	BuyPrice     float64
	CurrentPrice float64
	Category     string
	AssetType    string
}

// PortfolioItemPatch lists the fields to change on a portfolio item. Nil
// fields are left as they are.
type PortfolioItemPatch struct {
	Token        *string
	Amount       *float64
	BuyPrice     *float64
	CurrentPrice *float64
	Category     *string
	AssetType    *string
}

// AddTradeRequest defines inputs to add a trade. Status may be empty, in
// which case it is inferred from ExitPrice or defaults to Open.
type AddTradeRequest struct {
	Date               string
	Ticker             string
	Direction          string
	EntryPrice         float64
	ExitPrice          *float64
	Size               float64
	Status             string
	Rationale          string
	ExitReason         *string
	PostExitReflection *string
}

// TradePatch lists the fields to change on a trade. PnL is not editable.
type TradePatch struct {
	Date               *string
	Ticker             *string
	Direction          *string
	EntryPrice         *float64
	ExitPrice          *float64
	ClearExitPrice     bool
	Size               *float64
	Status             *string
	Rationale          *string
	ExitReason         *string
	PostExitReflection *string
}

func parseSentiment(value string) (Sentiment, bool) {
	for _, s := range Sentiments {
		if strings.EqualFold(string(s), strings.TrimSpace(value)) {
			return s, true
		}
	}
	return "", false
}

func parseCategory(value string) (Category, bool) {
	for _, c := range Categories {
		if strings.EqualFold(string(c), strings.TrimSpace(value)) {
			return c, true
		}
	}
	return "", false
}

func parseAssetType(value string) (AssetType, bool) {
	for _, a := range AssetTypes {
		if strings.EqualFold(string(a), strings.TrimSpace(value)) {
			return a, true
		}
	}
	return "", false
}

func parseDirection(value string) (Direction, bool) {
	for _, d := range Directions {
		if strings.EqualFold(string(d), strings.TrimSpace(value)) {
			return d, true
		}
	}
	return "", false
}

func parseTradeStatus(value string) (TradeStatus, bool) {
	for _, s := range TradeStatuses {
		if strings.EqualFold(string(s), strings.TrimSpace(value)) {
			return s, true
		}
	}
	return "", false
}
