package tradedesk

import "github.com/shopspring/decimal"

// TradeStats summarizes the trade log.
type TradeStats struct {
	Total      int      `json:"total"`
	Open       int      `json:"open"`
	Closed     int      `json:"closed"`
	Wins       int      `json:"wins"`
	Losses     int      `json:"losses"`
	Breakevens int      `json:"breakevens"`
	WinRate    *float64 `json:"winRate"`
	TotalPnL   Amount   `json:"totalPnl"`
	AveragePnL *Amount  `json:"averagePnl"`
	Best       *Trade   `json:"best"`
	Worst      *Trade   `json:"worst"`
}

// TradeStats computes counts and realized PnL over all trades. WinRate is
// wins over closed trades; averages cover trades with a PnL.
func (s *Store) TradeStats() TradeStats {
	trades := s.ListTrades()
	stats := TradeStats{Total: len(trades)}

	total := decimal.Zero
	withPnL := 0
	for i := range trades {
		t := trades[i]
		switch t.Status {
		case StatusOpen:
			stats.Open++
		case StatusWin:
			stats.Wins++
		case StatusLoss:
			stats.Losses++
		case StatusBreakeven:
			stats.Breakevens++
		}
		if t.PnL == nil {
			continue
		}
		withPnL++
		total = total.Add(decimal.NewFromFloat(*t.PnL))
		if stats.Best == nil || *t.PnL > *stats.Best.PnL {
			stats.Best = &t
		}
		if stats.Worst == nil || *t.PnL < *stats.Worst.PnL {
			stats.Worst = &t
		}
	}

	stats.Closed = stats.Total - stats.Open
	if stats.Closed > 0 {
		rate := decimal.NewFromInt(int64(stats.Wins)).
			Div(decimal.NewFromInt(int64(stats.Closed))).
			Round(4).InexactFloat64()
		stats.WinRate = &rate
	}
	stats.TotalPnL = amountFrom(total)
	if withPnL > 0 {
		avg := amountFrom(total.Div(decimal.NewFromInt(int64(withPnL))))
		stats.AveragePnL = &avg
	}
	return stats
}
