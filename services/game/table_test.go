package game

import (
	"encoding/binary"
	"testing"
)

// randomForDraw builds a 32-byte random value whose first 8 bytes reduce to
// the given draw in [0, 9999].
func randomForDraw(draw uint64) [RandomValueSize]byte {
	var rv [RandomValueSize]byte
	binary.LittleEndian.PutUint64(rv[:8], draw)
	return rv
}

func TestDrawValue(t *testing.T) {
	if got := DrawValue(randomForDraw(0)); got != 0 {
		t.Errorf("Expected draw 0, got %d", got)
	}
	if got := DrawValue(randomForDraw(9999)); got != 9999 {
		t.Errorf("Expected draw 9999, got %d", got)
	}
	if got := DrawValue(randomForDraw(10000)); got != 0 {
		t.Errorf("Expected draw 10000 to wrap to 0, got %d", got)
	}
	if got := DrawValue(randomForDraw(123456789)); got != 6789 {
		t.Errorf("Expected draw 6789, got %d", got)
	}

	// Bytes past the first 8 must not influence the draw.
	rv := randomForDraw(42)
	for i := 8; i < RandomValueSize; i++ {
		rv[i] = 0xFF
	}
	if got := DrawValue(rv); got != 42 {
		t.Errorf("Expected trailing bytes to be ignored, got draw %d", got)
	}
}

func TestSelectPrizeIndex_SingleEntry(t *testing.T) {
	var probs [MaxPrizes]uint16
	var supplies [MaxPrizes]uint32
	probs[0] = 5000
	supplies[0] = 1

	idx, won := SelectPrizeIndex(probs, supplies, 1, randomForDraw(4999))
	if !won || idx != 0 {
		t.Errorf("Expected win at index 0 for draw 4999, got idx=%d won=%v", idx, won)
	}

	_, won = SelectPrizeIndex(probs, supplies, 1, randomForDraw(5000))
	if won {
		t.Error("Expected loss for draw 5000")
	}
}

func TestSelectPrizeIndex_BandBoundaries(t *testing.T) {
	var probs [MaxPrizes]uint16
	var supplies [MaxPrizes]uint32
	probs[0], supplies[0] = 3000, 10
	probs[1], supplies[1] = 2000, 10

	tests := []struct {
		name    string
		draw    uint64
		wantIdx uint8
		wantWin bool
	}{
		{"FirstBandStart", 0, 0, true},
		{"FirstBandEnd", 2999, 0, true},
		{"SecondBandStart", 3000, 1, true},
		{"SecondBandEnd", 4999, 1, true},
		{"PastLastBand", 5000, 0, false},
		{"MaxDraw", 9999, 0, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			idx, won := SelectPrizeIndex(probs, supplies, 2, randomForDraw(tc.draw))
			if won != tc.wantWin {
				t.Fatalf("draw %d: expected won=%v, got %v", tc.draw, tc.wantWin, won)
			}
			if won && idx != tc.wantIdx {
				t.Errorf("draw %d: expected index %d, got %d", tc.draw, tc.wantIdx, idx)
			}
		})
	}
}

func TestSelectPrizeIndex_DepletedSlotIsDeadBand(t *testing.T) {
	var probs [MaxPrizes]uint16
	var supplies [MaxPrizes]uint32
	probs[0], supplies[0] = 3000, 0 // exhausted
	probs[1], supplies[1] = 2000, 5

	// The exhausted slot's band is dead, not shifted onto the next prize:
	// draws in [0, 1999] now hit prize 1, and [2000, 4999] lose.
	idx, won := SelectPrizeIndex(probs, supplies, 2, randomForDraw(1999))
	if !won || idx != 1 {
		t.Errorf("Expected win at index 1 for draw 1999, got idx=%d won=%v", idx, won)
	}
	if _, won := SelectPrizeIndex(probs, supplies, 2, randomForDraw(2000)); won {
		t.Error("Expected draw 2000 to fall in the dead band")
	}
	if _, won := SelectPrizeIndex(probs, supplies, 2, randomForDraw(4999)); won {
		t.Error("Expected draw 4999 to fall in the dead band")
	}
}

func TestSelectPrizeIndex_ZeroWeightSkipped(t *testing.T) {
	var probs [MaxPrizes]uint16
	var supplies [MaxPrizes]uint32
	probs[0], supplies[0] = 0, 100 // supply but no weight
	probs[1], supplies[1] = 1000, 1

	idx, won := SelectPrizeIndex(probs, supplies, 2, randomForDraw(0))
	if !won || idx != 1 {
		t.Errorf("Expected zero-weight slot skipped, got idx=%d won=%v", idx, won)
	}
}

func TestSelectPrizeIndex_AllExhausted(t *testing.T) {
	var probs [MaxPrizes]uint16
	var supplies [MaxPrizes]uint32
	probs[0] = 10000

	if _, won := SelectPrizeIndex(probs, supplies, 1, randomForDraw(0)); won {
		t.Error("Expected loss when every slot is out of supply")
	}
}

func TestSelectPrizeIndex_Deterministic(t *testing.T) {
	var probs [MaxPrizes]uint16
	var supplies [MaxPrizes]uint32
	probs[0], supplies[0] = 2500, 3
	probs[1], supplies[1] = 2500, 3
	probs[2], supplies[2] = 2500, 3

	rv := randomForDraw(6100)
	firstIdx, firstWon := SelectPrizeIndex(probs, supplies, 3, rv)
	for i := 0; i < 100; i++ {
		idx, won := SelectPrizeIndex(probs, supplies, 3, rv)
		if idx != firstIdx || won != firstWon {
			t.Fatalf("Resolution not deterministic: got (%d,%v) then (%d,%v)", firstIdx, firstWon, idx, won)
		}
	}
}

func TestGame_AddPrizeEntry(t *testing.T) {
	g := Game{}

	if err := g.addPrizeEntry(0, 3000, 10); err != nil {
		t.Fatalf("addPrizeEntry failed: %v", err)
	}
	if !g.IsActive {
		t.Error("Expected game to activate once supply exists")
	}
	if g.PrizeCount != 1 || g.TotalSupplyRemaining != 10 {
		t.Errorf("Unexpected state: count=%d total=%d", g.PrizeCount, g.TotalSupplyRemaining)
	}

	// Out-of-sequence index is rejected.
	if err := g.addPrizeEntry(2, 1000, 5); err == nil {
		t.Error("Expected error for out-of-sequence index")
	}

	// Budget overflow is rejected.
	if err := g.addPrizeEntry(1, 7001, 5); err != ErrProbabilityOverflow {
		t.Errorf("Expected ErrProbabilityOverflow, got %v", err)
	}

	// Exactly filling the budget is allowed.
	if err := g.addPrizeEntry(1, 7000, 5); err != nil {
		t.Errorf("Expected full-budget add to succeed: %v", err)
	}
}

func TestGame_AddPrizeEntry_TableFull(t *testing.T) {
	g := Game{}
	for i := 0; i < MaxPrizes; i++ {
		if err := g.addPrizeEntry(uint8(i), 100, 1); err != nil {
			t.Fatalf("addPrizeEntry %d failed: %v", i, err)
		}
	}
	if err := g.addPrizeEntry(MaxPrizes, 100, 1); err != ErrTooManyPrizes {
		t.Errorf("Expected ErrTooManyPrizes, got %v", err)
	}
}

func TestGame_ApplyWin_DeactivatesAtZero(t *testing.T) {
	g := Game{}
	if err := g.addPrizeEntry(0, 5000, 1); err != nil {
		t.Fatalf("addPrizeEntry failed: %v", err)
	}

	if err := g.applyWin(0); err != nil {
		t.Fatalf("applyWin failed: %v", err)
	}
	if g.IsActive {
		t.Error("Expected game to deactivate at zero supply")
	}
	if g.PrizeSupplies[0] != 0 || g.TotalSupplyRemaining != 0 {
		t.Errorf("Unexpected supply state: slot=%d total=%d", g.PrizeSupplies[0], g.TotalSupplyRemaining)
	}

	// A second win against the empty slot is an internal error, not a
	// silent underflow.
	if err := g.applyWin(0); err == nil {
		t.Error("Expected error for win against empty slot")
	}
}

func TestGame_ReplenishEntry_Reactivates(t *testing.T) {
	g := Game{}
	if err := g.addPrizeEntry(0, 5000, 1); err != nil {
		t.Fatalf("addPrizeEntry failed: %v", err)
	}
	if err := g.applyWin(0); err != nil {
		t.Fatalf("applyWin failed: %v", err)
	}

	if err := g.replenishEntry(0, 3); err != nil {
		t.Fatalf("replenishEntry failed: %v", err)
	}
	if !g.IsActive {
		t.Error("Expected replenishment to reactivate the game")
	}
	if g.PrizeSupplies[0] != 3 || g.TotalSupplyRemaining != 3 {
		t.Errorf("Unexpected supply state: slot=%d total=%d", g.PrizeSupplies[0], g.TotalSupplyRemaining)
	}

	if err := g.replenishEntry(5, 1); err == nil {
		t.Error("Expected error replenishing an unoccupied slot")
	}
}
