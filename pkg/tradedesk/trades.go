package tradedesk

import (
	"context"
	"math"
	"strings"
)

// ListTrades returns trades, newest first.
func (s *Store) ListTrades() []Trade {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Trade{}, s.trades...)
}

// AddTrade stores a new trade with its status and pnl derived.
func (s *Store) AddTrade(ctx context.Context, req AddTradeRequest) (Trade, error) {
	date, err := normalizeDate(req.Date)
	if err != nil {
		return Trade{}, err
	}
	direction, ok := parseDirection(req.Direction)
	if !ok {
		return Trade{}, invalidf("invalid direction: %q", req.Direction)
	}
	trade := Trade{
		ID:                 newID(),
		Date:               date,
		Ticker:             normalizeTicker(req.Ticker),
		Direction:          direction,
		EntryPrice:         req.EntryPrice,
		ExitPrice:          req.ExitPrice,
		Size:               req.Size,
		Status:             StatusOpen,
		Rationale:          strings.TrimSpace(req.Rationale),
		ExitReason:         optionalText(req.ExitReason),
		PostExitReflection: optionalText(req.PostExitReflection),
	}
	explicit := strings.TrimSpace(req.Status) != ""
	if explicit {
		status, ok := parseTradeStatus(req.Status)
		if !ok {
			return Trade{}, invalidf("invalid status: %q", req.Status)
		}
		trade.Status = status
	}
	if err := settleTrade(&trade, !explicit && trade.ExitPrice != nil); err != nil {
		return Trade{}, err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.backend.Trades().Insert(ctx, trade); err != nil {
		s.logger.Error("trade insert failed", "ticker", trade.Ticker, "err", err)
		return Trade{}, err
	}

	s.mu.Lock()
	s.trades = append([]Trade{trade}, s.trades...)
	s.mu.Unlock()
	return trade, nil
}

// EditTrade applies patch to one trade. Supplying an exit price without a
// status infers the status; an explicit status is kept as given. PnL is
// recomputed either way.
func (s *Store) EditTrade(ctx context.Context, id string, patch TradePatch) (Trade, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.RLock()
	idx := indexByID(s.trades, id)
	var current Trade
	if idx >= 0 {
		current = s.trades[idx]
	}
	s.mu.RUnlock()
	if idx < 0 {
		return Trade{}, notFound("trade", id)
	}

	updated, err := applyTradePatch(current, patch)
	if err != nil {
		return Trade{}, err
	}
	fields, err := diffFields(current, updated)
	if err != nil {
		return Trade{}, WrapError(ErrCodeInternal, "diff trade", err)
	}
	if len(fields) == 0 {
		return current, nil
	}
	if err := s.backend.Trades().Update(ctx, id, fields); err != nil {
		s.logger.Error("trade update failed", "id", id, "err", err)
		return Trade{}, err
	}

	s.mu.Lock()
	if i := indexByID(s.trades, id); i >= 0 {
		s.trades[i] = updated
	}
	s.mu.Unlock()
	return updated, nil
}

// DeleteTrade removes one trade.
func (s *Store) DeleteTrade(ctx context.Context, id string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.RLock()
	idx := indexByID(s.trades, id)
	s.mu.RUnlock()
	if idx < 0 {
		return notFound("trade", id)
	}
	if err := s.backend.Trades().Delete(ctx, id); err != nil {
		s.logger.Error("trade delete failed", "id", id, "err", err)
		return err
	}

	s.mu.Lock()
	s.trades = removeByID(s.trades, id)
	s.mu.Unlock()
	return nil
}

// ClearTrades deletes every trade in one storage call. The cache is emptied
// only when that call succeeds.
func (s *Store) ClearTrades(ctx context.Context) (int, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.backend.Trades().DeleteAll(ctx); err != nil {
		s.logger.Error("trade clear failed", "err", err)
		return 0, err
	}

	s.mu.Lock()
	n := len(s.trades)
	s.trades = []Trade{}
	s.mu.Unlock()
	s.logger.Info("trades cleared", "count", n)
	return n, nil
}

func applyTradePatch(t Trade, patch TradePatch) (Trade, error) {
	if patch.Date != nil {
		date, err := normalizeDate(*patch.Date)
		if err != nil {
			return Trade{}, err
		}
		t.Date = date
	}
	if patch.Ticker != nil {
		t.Ticker = normalizeTicker(*patch.Ticker)
	}
	if patch.Direction != nil {
		d, ok := parseDirection(*patch.Direction)
		if !ok {
			return Trade{}, invalidf("invalid direction: %q", *patch.Direction)
		}
		t.Direction = d
	}
	if patch.EntryPrice != nil {
		t.EntryPrice = *patch.EntryPrice
	}
	if patch.Size != nil {
		t.Size = *patch.Size
	}
	if patch.ClearExitPrice {
		t.ExitPrice = nil
	}
	if patch.ExitPrice != nil {
		t.ExitPrice = floatPtr(*patch.ExitPrice)
	}
	if patch.Rationale != nil {
		t.Rationale = strings.TrimSpace(*patch.Rationale)
	}
	if patch.ExitReason != nil {
		t.ExitReason = optionalText(patch.ExitReason)
	}
	if patch.PostExitReflection != nil {
		t.PostExitReflection = optionalText(patch.PostExitReflection)
	}
	if patch.Status != nil {
		status, ok := parseTradeStatus(*patch.Status)
		if !ok {
			return Trade{}, invalidf("invalid status: %q", *patch.Status)
		}
		t.Status = status
	}
	infer := patch.Status == nil && patch.ExitPrice != nil
	if err := settleTrade(&t, infer); err != nil {
		return Trade{}, err
	}
	return t, nil
}

// settleTrade validates t, optionally infers its status from the exit price
// and derives pnl.
func settleTrade(t *Trade, inferStatus bool) error {
	if t.Ticker == "" {
		return invalidf("ticker is required")
	}
	for name, v := range map[string]float64{"entryPrice": t.EntryPrice, "size": t.Size} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return invalidf("%s must be a finite number", name)
		}
	}
	if t.ExitPrice != nil && (math.IsNaN(*t.ExitPrice) || math.IsInf(*t.ExitPrice, 0)) {
		return invalidf("exitPrice must be a finite number")
	}
	if inferStatus && t.ExitPrice != nil {
		if t.EntryPrice == 0 {
			return WrapError(ErrCodeValidation, "cannot infer status", ErrZeroEntryPrice)
		}
		t.Status = InferStatus(t.Direction, t.EntryPrice, *t.ExitPrice)
	}
	return derivePnL(t)
}
