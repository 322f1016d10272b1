package ops

import (
	"context"
	"fmt"

	"github.com/holiman/uint256"

	"quantum-vault-engine/engine/external"
	"quantum-vault-engine/engine/guards"
	"quantum-vault-engine/engine/ledger"
	"quantum-vault-engine/engine/types"
)

// IncreaseVaultLimit implements increase_vault_limit (§4.5).
func (e *Engine) IncreaseVaultLimit(caller types.Address, now int64, vaultID types.VaultID, amount *uint256.Int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	pool, err := e.loadPool()
	if err != nil {
		return err
	}
	if err := checkGlobalPreconditions(pool, now); err != nil {
		return fmt.Errorf("increase_vault_limit: %w", err)
	}

	vault, err := e.loadVault(vaultID)
	if err != nil {
		return fmt.Errorf("increase_vault_limit: %w", err)
	}
	if err := guards.CallerIsVaultCreator(caller, vault); err != nil {
		return fmt.Errorf("increase_vault_limit: %w", err)
	}
	if err := guards.NotMatured(vault, now); err != nil {
		return fmt.Errorf("increase_vault_limit: %w", err)
	}

	vaultAdv, err := ledger.UpdateVaultIndex(pool, vault, now)
	if err != nil {
		return fmt.Errorf("increase_vault_limit: %w", err)
	}
	newPool, newVault := vaultAdv.Pool, vaultAdv.Vault

	newLimit := new(uint256.Int).Add(newVault.PrincipalLimit, amount)
	if newLimit.Gt(types.GlobalPrincipalCap) {
		return fmt.Errorf("increase_vault_limit: %w", types.ErrStakedTokenLimitExceeded)
	}
	newVault.PrincipalLimit = newLimit

	if err := e.store.SavePool(newPool); err != nil {
		return fmt.Errorf("increase_vault_limit: %w", err)
	}
	if err := e.store.SaveVault(newVault); err != nil {
		return fmt.Errorf("increase_vault_limit: %w", err)
	}
	if err := e.commitEvent("increase_vault_limit", caller, vaultID, now, amount.Dec()); err != nil {
		return fmt.Errorf("increase_vault_limit: %w", err)
	}
	return nil
}

// UpdateCreatorFee implements update_creator_fee (§4.5): the creator fee
// factor may only ever decrease. permit is passed to the PointsLedger's
// Consume once the new factor has been validated.
func (e *Engine) UpdateCreatorFee(ctx context.Context, caller types.Address, now int64, vaultID types.VaultID, newFee *uint256.Int, permit external.Permit) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	pool, err := e.loadPool()
	if err != nil {
		return err
	}
	if err := checkGlobalPreconditions(pool, now); err != nil {
		return fmt.Errorf("update_creator_fee: %w", err)
	}

	vault, err := e.loadVault(vaultID)
	if err != nil {
		return fmt.Errorf("update_creator_fee: %w", err)
	}
	if err := guards.CallerIsVaultCreator(caller, vault); err != nil {
		return fmt.Errorf("update_creator_fee: %w", err)
	}
	if err := guards.NotMatured(vault, now); err != nil {
		return fmt.Errorf("update_creator_fee: %w", err)
	}
	if newFee.Cmp(vault.CreatorFeeFactor) >= 0 {
		return fmt.Errorf("update_creator_fee: %w", types.ErrCreatorFeeCanOnlyBeDecreased)
	}
	total := new(uint256.Int).Add(newFee, vault.BoostFeeFactor)
	if total.Gt(types.Precision) {
		return fmt.Errorf("update_creator_fee: %w", types.ErrTotalFeeFactorExceeded)
	}
	if err := e.consumePermit(ctx, permit, types.PointsCostFeeUpdate); err != nil {
		return fmt.Errorf("update_creator_fee: %w", err)
	}

	vaultAdv, err := ledger.UpdateVaultIndex(pool, vault, now)
	if err != nil {
		return fmt.Errorf("update_creator_fee: %w", err)
	}
	newPool, newVault := vaultAdv.Pool, vaultAdv.Vault
	newVault.CreatorFeeFactor = new(uint256.Int).Set(newFee)

	if err := e.store.SavePool(newPool); err != nil {
		return fmt.Errorf("update_creator_fee: %w", err)
	}
	if err := e.store.SaveVault(newVault); err != nil {
		return fmt.Errorf("update_creator_fee: %w", err)
	}
	if err := e.commitEvent("update_creator_fee", caller, vaultID, now, newFee.Dec()); err != nil {
		return fmt.Errorf("update_creator_fee: %w", err)
	}
	return nil
}

// UpdateBoostFee implements update_boost_fee (§4.5): the boost fee factor
// may only ever increase. permit is passed to the PointsLedger's Consume
// once the new factor has been validated.
func (e *Engine) UpdateBoostFee(ctx context.Context, caller types.Address, now int64, vaultID types.VaultID, newFee *uint256.Int, permit external.Permit) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	pool, err := e.loadPool()
	if err != nil {
		return err
	}
	if err := checkGlobalPreconditions(pool, now); err != nil {
		return fmt.Errorf("update_boost_fee: %w", err)
	}

	vault, err := e.loadVault(vaultID)
	if err != nil {
		return fmt.Errorf("update_boost_fee: %w", err)
	}
	if err := guards.CallerIsVaultCreator(caller, vault); err != nil {
		return fmt.Errorf("update_boost_fee: %w", err)
	}
	if err := guards.NotMatured(vault, now); err != nil {
		return fmt.Errorf("update_boost_fee: %w", err)
	}
	if newFee.Cmp(vault.BoostFeeFactor) <= 0 {
		return fmt.Errorf("update_boost_fee: %w", types.ErrBoostFeeCanOnlyBeIncreased)
	}
	total := new(uint256.Int).Add(newFee, vault.CreatorFeeFactor)
	if total.Gt(types.Precision) {
		return fmt.Errorf("update_boost_fee: %w", types.ErrTotalFeeFactorExceeded)
	}
	if err := e.consumePermit(ctx, permit, types.PointsCostFeeUpdate); err != nil {
		return fmt.Errorf("update_boost_fee: %w", err)
	}

	vaultAdv, err := ledger.UpdateVaultIndex(pool, vault, now)
	if err != nil {
		return fmt.Errorf("update_boost_fee: %w", err)
	}
	newPool, newVault := vaultAdv.Pool, vaultAdv.Vault
	newVault.BoostFeeFactor = new(uint256.Int).Set(newFee)

	if err := e.store.SavePool(newPool); err != nil {
		return fmt.Errorf("update_boost_fee: %w", err)
	}
	if err := e.store.SaveVault(newVault); err != nil {
		return fmt.Errorf("update_boost_fee: %w", err)
	}
	if err := e.commitEvent("update_boost_fee", caller, vaultID, now, newFee.Dec()); err != nil {
		return fmt.Errorf("update_boost_fee: %w", err)
	}
	return nil
}

// UpdateVault implements update_vault (§4.5): pure bookkeeping, running the
// vault prologue for each listed id with no business-rule change.
func (e *Engine) UpdateVault(now int64, vaultIDs []types.VaultID) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	pool, err := e.loadPool()
	if err != nil {
		return err
	}
	if err := checkGlobalPreconditions(pool, now); err != nil {
		return fmt.Errorf("update_vault: %w", err)
	}

	for _, id := range vaultIDs {
		vault, err := e.loadVault(id)
		if err != nil {
			return fmt.Errorf("update_vault: %w", err)
		}
		vaultAdv, err := ledger.UpdateVaultIndex(pool, vault, now)
		if err != nil {
			return fmt.Errorf("update_vault: %w", err)
		}
		pool = vaultAdv.Pool
		if err := e.store.SaveVault(vaultAdv.Vault); err != nil {
			return fmt.Errorf("update_vault: %w", err)
		}
	}

	if err := e.store.SavePool(pool); err != nil {
		return fmt.Errorf("update_vault: %w", err)
	}
	return nil
}

// UpdateEmission implements update_emission (§4.5).
func (e *Engine) UpdateEmission(caller types.Address, now int64, extraAmount *uint256.Int, extraDuration int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	pool, err := e.loadPool()
	if err != nil {
		return err
	}
	if err := checkGlobalPreconditions(pool, now); err != nil {
		return fmt.Errorf("update_emission: %w", err)
	}
	if err := guards.CallerIsOwner(caller, e.owner); err != nil {
		return fmt.Errorf("update_emission: %w", err)
	}
	if extraAmount.IsZero() && extraDuration == 0 {
		return fmt.Errorf("update_emission: %w", types.ErrInvalidEmissionParameters)
	}
	if now >= pool.EndTime {
		return fmt.Errorf("update_emission: %w", types.ErrStakingEnded)
	}

	poolAdv, err := ledger.UpdatePoolIndex(pool, now)
	if err != nil {
		return fmt.Errorf("update_emission: %w", err)
	}
	newPool := poolAdv.Pool

	newPool.TotalRewards = new(uint256.Int).Add(newPool.TotalRewards, extraAmount)
	newPool.EndTime = newPool.EndTime + extraDuration

	remaining := new(uint256.Int).Sub(newPool.TotalRewards, newPool.RewardsEmitted)
	duration := newPool.EndTime - now
	if duration <= 0 {
		return fmt.Errorf("update_emission: %w", types.ErrInvalidEmissionParameters)
	}
	eps := new(uint256.Int).Div(remaining, uint256.NewInt(uint64(duration)))
	if eps.IsZero() {
		return fmt.Errorf("update_emission: %w", types.ErrInvalidEmissionParameters)
	}
	newPool.EmissionPerSecond = eps

	if err := e.store.SavePool(newPool); err != nil {
		return fmt.Errorf("update_emission: %w", err)
	}
	if err := e.commitEvent("update_emission", caller, types.ZeroVaultID, now, eps.Dec()); err != nil {
		return fmt.Errorf("update_emission: %w", err)
	}
	return nil
}

// Pause implements pause (§4.5): owner-only, idempotent.
func (e *Engine) Pause(caller types.Address, now int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := guards.CallerIsOwner(caller, e.owner); err != nil {
		return fmt.Errorf("pause: %w", err)
	}
	pool, err := e.loadPool()
	if err != nil {
		return err
	}
	newPool := pool.Clone()
	newPool.Paused = true
	if err := e.store.SavePool(newPool); err != nil {
		return fmt.Errorf("pause: %w", err)
	}
	if err := e.commitEvent("pause", caller, types.ZeroVaultID, now, ""); err != nil {
		return fmt.Errorf("pause: %w", err)
	}
	return nil
}

// Unpause implements unpause (§4.5): owner-only, fails ErrNotPaused if the
// pool is not currently paused and ErrPoolFrozen if it has been frozen.
func (e *Engine) Unpause(caller types.Address, now int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := guards.CallerIsOwner(caller, e.owner); err != nil {
		return fmt.Errorf("unpause: %w", err)
	}
	pool, err := e.loadPool()
	if err != nil {
		return err
	}
	if err := guards.WhenPaused(pool); err != nil {
		return fmt.Errorf("unpause: %w", err)
	}
	if pool.Frozen {
		return fmt.Errorf("unpause: %w", types.ErrPoolFrozen)
	}
	newPool := pool.Clone()
	newPool.Paused = false
	if err := e.store.SavePool(newPool); err != nil {
		return fmt.Errorf("unpause: %w", err)
	}
	if err := e.commitEvent("unpause", caller, types.ZeroVaultID, now, ""); err != nil {
		return fmt.Errorf("unpause: %w", err)
	}
	return nil
}

// Freeze implements freeze (§4.5): owner-only, requires the pool already
// paused and not already frozen. Terminal: only emergency_exit runs after.
func (e *Engine) Freeze(caller types.Address, now int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := guards.CallerIsOwner(caller, e.owner); err != nil {
		return fmt.Errorf("freeze: %w", err)
	}
	pool, err := e.loadPool()
	if err != nil {
		return err
	}
	if err := guards.WhenPaused(pool); err != nil {
		return fmt.Errorf("freeze: %w", err)
	}
	if err := guards.WhenNotFrozen(pool); err != nil {
		return fmt.Errorf("freeze: %w", err)
	}
	newPool := pool.Clone()
	newPool.Frozen = true
	if err := e.store.SavePool(newPool); err != nil {
		return fmt.Errorf("freeze: %w", err)
	}
	if err := e.commitEvent("freeze", caller, types.ZeroVaultID, now, ""); err != nil {
		return fmt.Errorf("freeze: %w", err)
	}
	return nil
}
