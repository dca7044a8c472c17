package tradedesk

// ComputePnL returns the realized profit or loss of a position closed at
// exit. An entry price of zero is rejected rather than dividing by it.
func ComputePnL(direction Direction, entry, exit, size float64) (float64, error) {
	if entry == 0 {
		return 0, WrapError(ErrCodeValidation, "cannot compute pnl", ErrZeroEntryPrice)
	}
	if direction == DirectionShort {
		return (entry - exit) / entry * size, nil
	}
	return (exit - entry) / entry * size, nil
}

// InferStatus classifies a closed position by comparing exit with entry.
func InferStatus(direction Direction, entry, exit float64) TradeStatus {
	switch {
	case exit == entry:
		return StatusBreakeven
	case (exit > entry) == (direction == DirectionShort):
		return StatusLoss
	default:
		return StatusWin
	}
}

// derivePnL enforces the pnl invariant on t: pnl is set exactly when the
// trade is closed and has an exit price.
func derivePnL(t *Trade) error {
	if t.Status == StatusOpen || t.ExitPrice == nil {
		t.PnL = nil
		return nil
	}
	pnl, err := ComputePnL(t.Direction, t.EntryPrice, *t.ExitPrice, t.Size)
	if err != nil {
		return err
	}
	t.PnL = floatPtr(pnl)
	return nil
}
