// Package ledger implements the three-layer index propagation of §4.2-§4.4:
// Pool -> Vault -> User. Every exported function is value-oriented (§9):
// it takes a snapshot, returns a new snapshot, and never mutates its
// arguments in place, so engine/ops can stage writes and commit them only
// once an entire operation has succeeded.
package ledger

import (
	"fmt"

	"quantum-vault-engine/engine/index"
	"quantum-vault-engine/engine/types"
)

// PoolAdvance is the result of bringing a pool snapshot up to `now`.
type PoolAdvance struct {
	Pool        *types.Pool
	EffectiveTS int64
}

// UpdatePoolIndex advances the pool's index to `now`, booking emitted
// rewards along the way (§4.2). It returns a new pool value; the argument
// is never mutated.
func UpdatePoolIndex(pool *types.Pool, now int64) (PoolAdvance, error) {
	if now < pool.LastUpdateTime {
		return PoolAdvance{}, fmt.Errorf("update_pool_index: %w", types.ErrTimestampRegression)
	}
	if now == pool.LastUpdateTime {
		return PoolAdvance{Pool: pool, EffectiveTS: pool.LastUpdateTime}, nil
	}

	result, err := index.AdvancePoolIndex(pool.Index, pool.EmissionPerSecond, pool.LastUpdateTime, pool.TotalAllocPoints, now, pool.EndTime)
	if err != nil {
		return PoolAdvance{}, fmt.Errorf("update_pool_index: %w", err)
	}

	if result.NextIndex.Eq(pool.Index) && result.EffectiveTS == pool.LastUpdateTime {
		next := pool.Clone()
		next.LastUpdateTime = now
		return PoolAdvance{Pool: next, EffectiveTS: result.EffectiveTS}, nil
	}

	next := pool.Clone()
	next.Index = result.NextIndex
	next.RewardsEmitted = next.RewardsEmitted.Add(next.RewardsEmitted, result.Emitted)
	next.LastUpdateTime = now

	return PoolAdvance{Pool: next, EffectiveTS: result.EffectiveTS}, nil
}
