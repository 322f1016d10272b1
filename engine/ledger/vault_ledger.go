package ledger

import (
	"fmt"

	"github.com/holiman/uint256"

	"quantum-vault-engine/engine/index"
	"quantum-vault-engine/engine/types"
)

// VaultAdvance is the result of bringing a vault snapshot up to the pool's
// current index.
type VaultAdvance struct {
	Pool        *types.Pool
	Vault       *types.Vault
	EffectiveTS int64
}

// UpdateVaultIndex runs the pool prologue then books the vault's share of
// newly emitted rewards into its fee buckets and rewards_per_token (§4.3).
// Neither argument is mutated; fresh values are returned.
func UpdateVaultIndex(pool *types.Pool, vault *types.Vault, now int64) (VaultAdvance, error) {
	poolAdv, err := UpdatePoolIndex(pool, now)
	if err != nil {
		return VaultAdvance{}, err
	}
	newPool := poolAdv.Pool

	if newPool.Index.Eq(vault.VaultIndex) {
		return maybeFinalize(newPool, vault, poolAdv.EffectiveTS)
	}

	if vault.AllocPoints.IsZero() {
		// Either never staked (no accrual by policy, §4.3 note) or already
		// finalized (short-circuits below in maybeFinalize via EndTime check,
		// which is a no-op here since AllocPoints is already 0).
		next := vault.Clone()
		next.VaultIndex = new(uint256.Int).Set(newPool.Index)
		return maybeFinalize(newPool, next, poolAdv.EffectiveTS)
	}

	if vault.StakedPrincipal.IsZero() {
		return VaultAdvance{}, fmt.Errorf("update_vault_index: vault %s has alloc points but no staked principal", vault.VaultID.Hex())
	}

	accrued, err := index.RewardsFromIndex(vault.AllocPoints, newPool.Index, vault.VaultIndex)
	if err != nil {
		return VaultAdvance{}, fmt.Errorf("update_vault_index: %w", err)
	}

	creatorFee, err := index.ApplyFactor(accrued, vault.CreatorFeeFactor)
	if err != nil {
		return VaultAdvance{}, fmt.Errorf("update_vault_index: creator fee: %w", err)
	}
	boostFee, err := index.ApplyFactor(accrued, vault.BoostFeeFactor)
	if err != nil {
		return VaultAdvance{}, fmt.Errorf("update_vault_index: boost fee: %w", err)
	}

	next := vault.Clone()
	next.AccTotalRewards.Add(next.AccTotalRewards, accrued)
	next.AccCreatorRewards.Add(next.AccCreatorRewards, creatorFee)
	next.AccBoostRewards.Add(next.AccBoostRewards, boostFee)

	netPrincipalReward := new(uint256.Int).Sub(accrued, creatorFee)
	netPrincipalReward.Sub(netPrincipalReward, boostFee)

	perToken, overflow := new(uint256.Int).MulDivOverflow(netPrincipalReward, types.Precision, next.StakedPrincipal)
	if overflow {
		return VaultAdvance{}, fmt.Errorf("update_vault_index: rewards_per_token overflow")
	}
	next.RewardsPerToken.Add(next.RewardsPerToken, perToken)

	if next.StakedBoosts > 0 {
		perBoost := new(uint256.Int).Div(boostFee, uint256.NewInt(uint64(next.StakedBoosts)))
		next.BoostIndex.Add(next.BoostIndex, perBoost)
	}

	next.VaultIndex = new(uint256.Int).Set(newPool.Index)

	return maybeFinalize(newPool, next, poolAdv.EffectiveTS)
}

// maybeFinalize applies the one-time maturity final-update rule (§4.3 step
// 6): once effective time reaches the vault's end time, its alloc points
// are deducted from the pool total and zeroed on the vault.
func maybeFinalize(pool *types.Pool, vault *types.Vault, effectiveTS int64) (VaultAdvance, error) {
	if effectiveTS < vault.EndTime || vault.AllocPoints.IsZero() {
		return VaultAdvance{Pool: pool, Vault: vault, EffectiveTS: effectiveTS}, nil
	}

	newPool := pool.Clone()
	if newPool.TotalAllocPoints.Lt(vault.AllocPoints) {
		return VaultAdvance{}, fmt.Errorf("update_vault_index: pool total_alloc_points underflow finalizing vault %s", vault.VaultID.Hex())
	}
	newPool.TotalAllocPoints.Sub(newPool.TotalAllocPoints, vault.AllocPoints)

	newVault := vault.Clone()
	newVault.AllocPoints = new(uint256.Int)

	return VaultAdvance{Pool: newPool, Vault: newVault, EffectiveTS: effectiveTS}, nil
}
