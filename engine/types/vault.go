package types

import "github.com/holiman/uint256"

// Vault holds the per-vault accounting state keyed by VaultID (§3).
type Vault struct {
	VaultID VaultID
	Creator Address

	DurationClass DurationClass
	EndTime       int64

	Multiplier uint64 // units of 1/100

	StakedPrincipal *uint256.Int
	StakedBoosts    uint8

	AllocPoints *uint256.Int

	PrincipalLimit *uint256.Int

	CreatorFeeFactor *uint256.Int
	BoostFeeFactor   *uint256.Int

	VaultIndex      *uint256.Int
	BoostIndex      *uint256.Int
	RewardsPerToken *uint256.Int

	AccTotalRewards   *uint256.Int
	AccCreatorRewards *uint256.Int
	AccBoostRewards   *uint256.Int

	TotalClaimed *uint256.Int
}

// Clone returns a deep copy.
func (v *Vault) Clone() *Vault {
	return &Vault{
		VaultID:           v.VaultID,
		Creator:           v.Creator,
		DurationClass:     v.DurationClass,
		EndTime:           v.EndTime,
		Multiplier:        v.Multiplier,
		StakedPrincipal:   new(uint256.Int).Set(v.StakedPrincipal),
		StakedBoosts:      v.StakedBoosts,
		AllocPoints:       new(uint256.Int).Set(v.AllocPoints),
		PrincipalLimit:    new(uint256.Int).Set(v.PrincipalLimit),
		CreatorFeeFactor:  new(uint256.Int).Set(v.CreatorFeeFactor),
		BoostFeeFactor:    new(uint256.Int).Set(v.BoostFeeFactor),
		VaultIndex:        new(uint256.Int).Set(v.VaultIndex),
		BoostIndex:        new(uint256.Int).Set(v.BoostIndex),
		RewardsPerToken:   new(uint256.Int).Set(v.RewardsPerToken),
		AccTotalRewards:   new(uint256.Int).Set(v.AccTotalRewards),
		AccCreatorRewards: new(uint256.Int).Set(v.AccCreatorRewards),
		AccBoostRewards:   new(uint256.Int).Set(v.AccBoostRewards),
		TotalClaimed:      new(uint256.Int).Set(v.TotalClaimed),
	}
}

// NewVault constructs a freshly created vault with no principal staked yet.
func NewVault(id VaultID, creator Address, class DurationClass, endTime int64, multiplier uint64, creatorFee, boostFee, poolIndex *uint256.Int) *Vault {
	return &Vault{
		VaultID:           id,
		Creator:           creator,
		DurationClass:     class,
		EndTime:           endTime,
		Multiplier:        multiplier,
		StakedPrincipal:   new(uint256.Int),
		StakedBoosts:      0,
		AllocPoints:       new(uint256.Int),
		PrincipalLimit:    new(uint256.Int).Set(BaseLimit),
		CreatorFeeFactor:  new(uint256.Int).Set(creatorFee),
		BoostFeeFactor:    new(uint256.Int).Set(boostFee),
		VaultIndex:        new(uint256.Int).Set(poolIndex),
		BoostIndex:        new(uint256.Int),
		RewardsPerToken:   new(uint256.Int),
		AccTotalRewards:   new(uint256.Int),
		AccCreatorRewards: new(uint256.Int),
		AccBoostRewards:   new(uint256.Int),
		TotalClaimed:      new(uint256.Int),
	}
}

// IsFinalized reports whether the vault's final maturity update has run.
func (v *Vault) IsFinalized() bool {
	return v.AllocPoints.IsZero() && !v.StakedPrincipal.IsZero()
}
