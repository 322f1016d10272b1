package ledger

import (
	"fmt"

	"github.com/holiman/uint256"

	"quantum-vault-engine/engine/index"
	"quantum-vault-engine/engine/types"
)

// UserAdvance is the result of bringing a user snapshot up to the vault's
// current rewards_per_token and boost_index.
type UserAdvance struct {
	Pool  *types.Pool
	Vault *types.Vault
	User  *types.UserPosition
}

// UpdateUserIndexes runs the vault prologue then books the user's share of
// principal and boost accruals (§4.4). No argument is mutated.
func UpdateUserIndexes(pool *types.Pool, vault *types.Vault, user *types.UserPosition, now int64) (UserAdvance, error) {
	vaultAdv, err := UpdateVaultIndex(pool, vault, now)
	if err != nil {
		return UserAdvance{}, fmt.Errorf("update_user_indexes: %w", err)
	}
	newVault := vaultAdv.Vault

	next := user.Clone()
	changed := false

	if !next.UserIndex.Eq(newVault.RewardsPerToken) && !next.StakedPrincipal.IsZero() {
		acc, err := index.RewardsFromIndex(next.StakedPrincipal, newVault.RewardsPerToken, next.UserIndex)
		if err != nil {
			return UserAdvance{}, fmt.Errorf("update_user_indexes: staking rewards: %w", err)
		}
		next.AccStakingRewards.Add(next.AccStakingRewards, acc)
		changed = true
	}

	if next.HasBoosts() && !next.UserBoostIndex.Eq(newVault.BoostIndex) {
		delta := new(uint256.Int).Sub(newVault.BoostIndex, next.UserBoostIndex)
		acc := new(uint256.Int).Mul(delta, uint256.NewInt(uint64(len(next.BoostIDs))))
		next.AccBoostRewards.Add(next.AccBoostRewards, acc)
		changed = true
	}

	if changed || !next.UserIndex.Eq(newVault.RewardsPerToken) || !next.UserBoostIndex.Eq(newVault.BoostIndex) {
		next.UserIndex = new(uint256.Int).Set(newVault.RewardsPerToken)
		next.UserBoostIndex = new(uint256.Int).Set(newVault.BoostIndex)
	}

	return UserAdvance{Pool: vaultAdv.Pool, Vault: newVault, User: next}, nil
}
