package types

import "github.com/holiman/uint256"

// UserPosition holds the per (holder, vault) accounting state (§3).
type UserPosition struct {
	Holder  Address
	VaultID VaultID

	StakedPrincipal *uint256.Int
	BoostIDs        []uint64

	UserIndex      *uint256.Int
	UserBoostIndex *uint256.Int

	AccStakingRewards     *uint256.Int
	ClaimedStakingRewards *uint256.Int

	AccBoostRewards     *uint256.Int
	ClaimedBoostRewards *uint256.Int

	ClaimedCreatorRewards *uint256.Int
}

// Clone returns a deep copy.
func (u *UserPosition) Clone() *UserPosition {
	ids := make([]uint64, len(u.BoostIDs))
	copy(ids, u.BoostIDs)
	return &UserPosition{
		Holder:                u.Holder,
		VaultID:               u.VaultID,
		StakedPrincipal:       new(uint256.Int).Set(u.StakedPrincipal),
		BoostIDs:              ids,
		UserIndex:             new(uint256.Int).Set(u.UserIndex),
		UserBoostIndex:        new(uint256.Int).Set(u.UserBoostIndex),
		AccStakingRewards:     new(uint256.Int).Set(u.AccStakingRewards),
		ClaimedStakingRewards: new(uint256.Int).Set(u.ClaimedStakingRewards),
		AccBoostRewards:       new(uint256.Int).Set(u.AccBoostRewards),
		ClaimedBoostRewards:   new(uint256.Int).Set(u.ClaimedBoostRewards),
		ClaimedCreatorRewards: new(uint256.Int).Set(u.ClaimedCreatorRewards),
	}
}

// NewUserPosition constructs an empty position for (holder, vault).
func NewUserPosition(holder Address, vaultID VaultID) *UserPosition {
	return &UserPosition{
		Holder:                holder,
		VaultID:               vaultID,
		StakedPrincipal:       new(uint256.Int),
		BoostIDs:              nil,
		UserIndex:             new(uint256.Int),
		UserBoostIndex:        new(uint256.Int),
		AccStakingRewards:     new(uint256.Int),
		ClaimedStakingRewards: new(uint256.Int),
		AccBoostRewards:       new(uint256.Int),
		ClaimedBoostRewards:   new(uint256.Int),
		ClaimedCreatorRewards: new(uint256.Int),
	}
}

// HasBoosts reports whether the user currently holds any boost assets.
func (u *UserPosition) HasBoosts() bool { return len(u.BoostIDs) > 0 }

// HasNothingStaked reports whether the user has neither principal nor boosts.
func (u *UserPosition) HasNothingStaked() bool {
	return u.StakedPrincipal.IsZero() && !u.HasBoosts()
}
