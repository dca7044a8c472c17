package tradedesk

import (
	"errors"
	"math/rand/v2"
	"testing"
)

func TestComputePnLMatchesFormula(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 42))
	for i := 0; i < 500; i++ {
		entry := 0.01 + rng.Float64()*10000
		exit := rng.Float64() * 20000
		size := rng.Float64() * 50000
		direction := DirectionLong
		if rng.IntN(2) == 1 {
			direction = DirectionShort
		}

		got, err := ComputePnL(direction, entry, exit, size)
		if err != nil {
			t.Fatalf("case %d: unexpected error: %v", i, err)
		}
		want := (exit - entry) / entry * size
		if direction == DirectionShort {
			want = (entry - exit) / entry * size
		}
		if got != want {
			t.Fatalf("case %d (%s entry=%v exit=%v size=%v): got %v, want %v", i, direction, entry, exit, size, got, want)
		}
	}
}

func TestComputePnLRejectsZeroEntry(t *testing.T) {
	_, err := ComputePnL(DirectionLong, 0, 10, 100)
	if !errors.Is(err, ErrZeroEntryPrice) {
		t.Fatalf("expected ErrZeroEntryPrice, got %v", err)
	}
	if !IsErrorCode(err, ErrCodeValidation) {
		t.Fatalf("expected validation error code, got %v", err)
	}
}

func TestInferStatus(t *testing.T) {
	cases := []struct {
		direction Direction
		entry     float64
		exit      float64
		want      TradeStatus
	}{
		{DirectionLong, 100, 110, StatusWin},
		{DirectionLong, 100, 90, StatusLoss},
		{DirectionLong, 100, 100, StatusBreakeven},
		{DirectionShort, 100, 90, StatusWin},
		{DirectionShort, 100, 110, StatusLoss},
		{DirectionShort, 100, 100, StatusBreakeven},
	}
	for _, tc := range cases {
		if got := InferStatus(tc.direction, tc.entry, tc.exit); got != tc.want {
			t.Errorf("%s entry=%v exit=%v: got %s, want %s", tc.direction, tc.entry, tc.exit, got, tc.want)
		}
	}
}

func TestDerivePnLOpenClearsPnL(t *testing.T) {
	trade := Trade{
		Direction:  DirectionLong,
		EntryPrice: 100,
		ExitPrice:  floatPtr(120),
		Size:       1000,
		Status:     StatusOpen,
		PnL:        floatPtr(200),
	}
	if err := derivePnL(&trade); err != nil {
		t.Fatalf("derivePnL: %v", err)
	}
	if trade.PnL != nil {
		t.Fatalf("expected pnl cleared for open trade, got %v", *trade.PnL)
	}

	trade.Status = StatusWin
	trade.ExitPrice = nil
	if err := derivePnL(&trade); err != nil {
		t.Fatalf("derivePnL: %v", err)
	}
	if trade.PnL != nil {
		t.Fatalf("expected no pnl without exit price")
	}
}
