// Package index implements the pure fixed-point arithmetic at the bottom of
// the engine's dependency chain (§4.1). Every function here is free of
// mutation and side effects; all rounding happens through
// holiman/uint256's overflow-checked MulDivOverflow, which gives the engine
// full 512-bit intermediate precision for the two places truncating integer
// division is allowed to occur.
package index

import (
	"fmt"

	"github.com/holiman/uint256"

	"quantum-vault-engine/engine/types"
)

// AdvanceResult is the outcome of advancing the pool index to `now`.
type AdvanceResult struct {
	NextIndex    *uint256.Int
	EffectiveTS  int64
	Emitted      *uint256.Int
}

// AdvancePoolIndex computes the next pool index, the effective timestamp
// (clamped to the pool's end time), and the rewards emitted over the
// elapsed interval (§4.1).
//
// It is a pure function: no argument is mutated, and the same inputs always
// produce the same outputs.
func AdvancePoolIndex(currentIndex *uint256.Int, emissionPerSecond *uint256.Int, lastTS int64, totalAlloc *uint256.Int, now int64, endTime int64) (AdvanceResult, error) {
	noop := AdvanceResult{
		NextIndex:   new(uint256.Int).Set(currentIndex),
		EffectiveTS: lastTS,
		Emitted:     new(uint256.Int),
	}

	if emissionPerSecond.IsZero() || totalAlloc.IsZero() || lastTS >= now || lastTS >= endTime {
		return noop, nil
	}

	effectiveTS := now
	if endTime < now {
		effectiveTS = endTime
	}

	deltaT := effectiveTS - lastTS
	if deltaT <= 0 {
		return noop, nil
	}

	emitted := new(uint256.Int).Mul(emissionPerSecond, uint256.NewInt(uint64(deltaT)))

	deltaIndex, overflow := new(uint256.Int).MulDivOverflow(emitted, types.Precision, totalAlloc)
	if overflow {
		return AdvanceResult{}, fmt.Errorf("advance_pool_index: index delta overflow")
	}

	nextIndex := new(uint256.Int).Add(currentIndex, deltaIndex)

	return AdvanceResult{
		NextIndex:   nextIndex,
		EffectiveTS: effectiveTS,
		Emitted:     emitted,
	}, nil
}

// RewardsFromIndex computes balance * (curIndex - priorIndex) / P, truncating
// toward zero, with a full-precision overflow-checked multiply-divide
// (§4.1). curIndex must be >= priorIndex; callers never subtract the other
// way.
func RewardsFromIndex(balance, curIndex, priorIndex *uint256.Int) (*uint256.Int, error) {
	if curIndex.Lt(priorIndex) {
		return nil, fmt.Errorf("rewards_from_index: current index %s is less than prior index %s", curIndex, priorIndex)
	}
	delta := new(uint256.Int).Sub(curIndex, priorIndex)
	if delta.IsZero() || balance.IsZero() {
		return new(uint256.Int), nil
	}
	reward, overflow := new(uint256.Int).MulDivOverflow(balance, delta, types.Precision)
	if overflow {
		return nil, fmt.Errorf("rewards_from_index: overflow computing balance*%s/P", delta)
	}
	return reward, nil
}

// ApplyFactor computes amount * factor / P, truncating, used for splitting
// accrued rewards into creator/boost fee buckets (§4.3).
func ApplyFactor(amount, factor *uint256.Int) (*uint256.Int, error) {
	if factor.IsZero() || amount.IsZero() {
		return new(uint256.Int), nil
	}
	out, overflow := new(uint256.Int).MulDivOverflow(amount, factor, types.Precision)
	if overflow {
		return nil, fmt.Errorf("apply_factor: overflow computing %s*%s/P", amount, factor)
	}
	return out, nil
}
