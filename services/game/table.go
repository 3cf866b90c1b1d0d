package game

import (
	"encoding/binary"
	"fmt"
)

// DrawValue reduces a 32-byte random value to a draw in [0, 9999]: the first
// 8 bytes interpreted as an unsigned little-endian integer, modulo 10000.
// Resolution is a pure function of this value and the table, which is what
// makes every outcome auditable from the stored random value.
func DrawValue(randomValue [RandomValueSize]byte) uint16 {
	return uint16(binary.LittleEndian.Uint64(randomValue[:8]) % TotalBasisPoints)
}

// SelectPrizeIndex maps a random value onto the game's probability table and
// returns the winning index, or false for a loss.
//
// Occupied entries are walked in index order, accumulating weight. An entry
// with zero weight or zero remaining supply is skipped without consuming a
// probability band: a depleted slot's original band is dead, not
// redistributed, so an exhausted high-weight prize shrinks the effective win
// rate instead of shifting its mass onto later prizes. A draw that falls past
// the final cumulative weight is a loss.
func SelectPrizeIndex(probabilities [MaxPrizes]uint16, supplies [MaxPrizes]uint32, prizeCount uint8, randomValue [RandomValueSize]byte) (uint8, bool) {
	draw := DrawValue(randomValue)

	var cumulative uint16
	for idx := 0; idx < int(prizeCount) && idx < MaxPrizes; idx++ {
		prob := probabilities[idx]
		if prob == 0 || supplies[idx] == 0 {
			continue
		}
		cumulative = saturatingAddU16(cumulative, prob)
		if draw < cumulative {
			return uint8(idx), true
		}
	}
	return 0, false
}

// probabilityTotal sums the occupied weights. The sum is bounded by the
// addPrizeEntry budget check, but the accumulator is wide anyway.
func (g *Game) probabilityTotal() uint32 {
	var total uint32
	for _, p := range g.PrizeProbabilities {
		total += uint32(p)
	}
	return total
}

// addPrizeEntry records a new prize's weight and supply in the game's
// denormalized table. Prizes must be appended at exactly the next unused
// index, the table holds at most MaxPrizes entries, and the weight sum must
// stay within the 10000bp budget. A successful add that brings supply above
// zero activates the game.
func (g *Game) addPrizeEntry(index uint8, probabilityBP uint16, supply uint32) error {
	if index >= MaxPrizes {
		return ErrTooManyPrizes
	}
	if index != g.PrizeCount {
		return fmt.Errorf("%w: expected index %d, got %d", ErrInvalidPrizeIndex, g.PrizeCount, index)
	}
	if g.probabilityTotal()+uint32(probabilityBP) > TotalBasisPoints {
		return ErrProbabilityOverflow
	}

	total, ok := checkedAddU32(g.TotalSupplyRemaining, supply)
	if !ok {
		return ErrMathOverflow
	}

	g.PrizeProbabilities[index] = probabilityBP
	g.PrizeSupplies[index] = supply
	g.PrizeCount = index + 1
	g.TotalSupplyRemaining = total
	if g.TotalSupplyRemaining > 0 {
		g.IsActive = true
	}
	return nil
}

// replenishEntry adds supply to an occupied slot, reactivating an inactive
// game when the added amount is positive.
func (g *Game) replenishEntry(index uint8, additional uint32) error {
	if index >= g.PrizeCount {
		return fmt.Errorf("%w: index %d", ErrPrizeNotFound, index)
	}

	slot, ok := checkedAddU32(g.PrizeSupplies[index], additional)
	if !ok {
		return ErrMathOverflow
	}
	total, ok := checkedAddU32(g.TotalSupplyRemaining, additional)
	if !ok {
		return ErrMathOverflow
	}

	g.PrizeSupplies[index] = slot
	g.TotalSupplyRemaining = total
	if additional > 0 && !g.IsActive {
		g.IsActive = true
	}
	return nil
}

// applyWin decrements the winning slot's supply and the game total, and
// deactivates the game the moment total supply reaches zero. The slot
// decrement is checked: resolution only reaches here after a live supply
// guard, so an empty slot signals internal inconsistency rather than user
// input.
func (g *Game) applyWin(index uint8) error {
	if index >= g.PrizeCount {
		return fmt.Errorf("%w: index %d", ErrPrizeNotFound, index)
	}
	if g.PrizeSupplies[index] == 0 {
		return fmt.Errorf("%w: supply underflow at index %d", ErrMathOverflow, index)
	}

	g.PrizeSupplies[index]--
	if g.TotalSupplyRemaining > 0 {
		g.TotalSupplyRemaining--
	}
	if g.TotalSupplyRemaining == 0 {
		g.IsActive = false
	}
	return nil
}

func saturatingAddU16(a, b uint16) uint16 {
	if sum := uint32(a) + uint32(b); sum <= 0xFFFF {
		return uint16(sum)
	}
	return 0xFFFF
}

func checkedAddU32(a, b uint32) (uint32, bool) {
	sum := a + b
	if sum < a {
		return 0, false
	}
	return sum, true
}

func checkedAddU64(a, b uint64) (uint64, bool) {
	sum := a + b
	if sum < a {
		return 0, false
	}
	return sum, true
}
