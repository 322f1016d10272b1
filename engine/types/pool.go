package types

import "github.com/holiman/uint256"

// Pool is the process-wide singleton holding global emission state (§3).
type Pool struct {
	StartTime int64
	EndTime   int64

	EmissionPerSecond *uint256.Int
	TotalAllocPoints  *uint256.Int
	Index             *uint256.Int
	LastUpdateTime    int64

	TotalRewards   *uint256.Int
	RewardsEmitted *uint256.Int

	Frozen bool
	Paused bool
}

// Clone returns a deep copy of the pool so callers can mutate it without
// aliasing the stored snapshot (§9 "value-oriented state").
func (p *Pool) Clone() *Pool {
	return &Pool{
		StartTime:         p.StartTime,
		EndTime:           p.EndTime,
		EmissionPerSecond: new(uint256.Int).Set(p.EmissionPerSecond),
		TotalAllocPoints:  new(uint256.Int).Set(p.TotalAllocPoints),
		Index:             new(uint256.Int).Set(p.Index),
		LastUpdateTime:    p.LastUpdateTime,
		TotalRewards:      new(uint256.Int).Set(p.TotalRewards),
		RewardsEmitted:    new(uint256.Int).Set(p.RewardsEmitted),
		Frozen:            p.Frozen,
		Paused:            p.Paused,
	}
}

// NewPool constructs a fresh pool singleton at construction time.
func NewPool(start, end int64, emissionPerSecond, totalRewards *uint256.Int) *Pool {
	return &Pool{
		StartTime:         start,
		EndTime:           end,
		EmissionPerSecond: new(uint256.Int).Set(emissionPerSecond),
		TotalAllocPoints:  new(uint256.Int),
		Index:             new(uint256.Int),
		LastUpdateTime:    start,
		TotalRewards:      new(uint256.Int).Set(totalRewards),
		RewardsEmitted:    new(uint256.Int),
	}
}
