package types

import "github.com/holiman/uint256"

// Precision is the fixed-point scale shared by every index and factor in the
// engine. One "unit" equals 1e18 base amount units, matching the node's own
// 18-decimal QTM convention.
var Precision = uint256.NewInt(1_000_000_000_000_000_000)

// MaxBoostsPerVault caps how many boost assets a single vault may ever hold.
const MaxBoostsPerVault = 2

// BoostMultiplier is the alloc-point multiplier bump (in units of 1/100)
// contributed by each staked boost asset.
const BoostMultiplier = 250

// DurationClass enumerates the three vault lifetimes the pool supports.
type DurationClass uint8

const (
	Duration30Days DurationClass = iota
	Duration60Days
	Duration90Days
)

// Days returns the number of calendar days a duration class spans.
func (d DurationClass) Days() (int64, bool) {
	switch d {
	case Duration30Days:
		return 30, true
	case Duration60Days:
		return 60, true
	case Duration90Days:
		return 90, true
	default:
		return 0, false
	}
}

const secondsPerDay = 86400

// Seconds returns the duration class length in seconds.
func (d DurationClass) Seconds() (int64, bool) {
	days, ok := d.Days()
	if !ok {
		return 0, false
	}
	return days * secondsPerDay, true
}

// BaseMultiplier returns the creation-time multiplier (units of 1/100) for a
// duration class, before any boost assets are staked.
func (d DurationClass) BaseMultiplier() (uint64, bool) {
	switch d {
	case Duration30Days:
		return 100, true
	case Duration60Days:
		return 125, true
	case Duration90Days:
		return 150, true
	default:
		return 0, false
	}
}

// baseLimitValue is the principal_limit every vault is created with.
func baseLimitValue() *uint256.Int {
	v := uint256.NewInt(200_000)
	return new(uint256.Int).Mul(v, Precision)
}

// globalPrincipalCapValue is the hard ceiling on any vault's staked principal.
func globalPrincipalCapValue() *uint256.Int {
	v := uint256.NewInt(1_000_000)
	return new(uint256.Int).Mul(v, Precision)
}

// BaseLimit is the principal_limit every vault is created with (200,000 units).
var BaseLimit = baseLimitValue()

// GlobalPrincipalCap is the hard ceiling on any vault's staked principal
// across the whole pool (1,000,000 units).
var GlobalPrincipalCap = globalPrincipalCapValue()

// PointsCostCreateVault is the points-ledger debit charged for create_vault.
var PointsCostCreateVault = uint256.NewInt(1)

// PointsCostFeeUpdate is the points-ledger debit charged for
// update_creator_fee and update_boost_fee.
var PointsCostFeeUpdate = uint256.NewInt(1)
