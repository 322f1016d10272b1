package ops

import (
	"context"
	"fmt"

	"github.com/holiman/uint256"

	"quantum-vault-engine/engine/guards"
	"quantum-vault-engine/engine/types"
)

// allocFromPrincipal computes staked_principal * multiplier, the
// alloc-points contribution of a principal amount at a given multiplier.
// multiplier is stored as the raw integer (100/125/150, §3 "units of
// 1/100" describes what the number MEANS — 100 is a 1.00x weight — not an
// extra /100 scaling step: §8 scenario 1 works out pool.index assuming
// alloc_points = 50e18 · 100 = 5000e18 directly, with no division.
func allocFromPrincipal(amount *uint256.Int, multiplier uint64) *uint256.Int {
	return new(uint256.Int).Mul(amount, uint256.NewInt(multiplier))
}

// StakeTokens implements stake_tokens (§4.5).
func (e *Engine) StakeTokens(ctx context.Context, caller, onBehalf types.Address, now int64, vaultID types.VaultID, amount *uint256.Int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if amount.IsZero() {
		return fmt.Errorf("stake_tokens: %w", types.ErrInvalidAmount)
	}

	pool, err := e.loadPool()
	if err != nil {
		return err
	}
	if err := checkGlobalPreconditions(pool, now); err != nil {
		return fmt.Errorf("stake_tokens: %w", err)
	}
	if err := guards.CallerIsOwnerOrRouter(caller, e.owner, e.router); err != nil {
		return fmt.Errorf("stake_tokens: %w", err)
	}

	vault, err := e.loadVault(vaultID)
	if err != nil {
		return fmt.Errorf("stake_tokens: %w", err)
	}
	if err := guards.NotMatured(vault, now); err != nil {
		return fmt.Errorf("stake_tokens: %w", err)
	}

	user, err := e.loadOrNewUser(onBehalf, vaultID)
	if err != nil {
		return fmt.Errorf("stake_tokens: %w", err)
	}

	adv, err := e.advanceTriple(pool, vault, user, now)
	if err != nil {
		return fmt.Errorf("stake_tokens: %w", err)
	}
	newPool, newVault, newUser := adv.Pool, adv.Vault, adv.User

	newStaked := new(uint256.Int).Add(newVault.StakedPrincipal, amount)
	cap := newVault.PrincipalLimit
	if types.GlobalPrincipalCap.Lt(cap) {
		cap = types.GlobalPrincipalCap
	}
	if newStaked.Gt(cap) {
		return fmt.Errorf("stake_tokens: %w", types.ErrStakedTokenLimitExceeded)
	}

	deltaAlloc := allocFromPrincipal(amount, newVault.Multiplier)
	newVault.AllocPoints = new(uint256.Int).Add(newVault.AllocPoints, deltaAlloc)
	newPool.TotalAllocPoints = new(uint256.Int).Add(newPool.TotalAllocPoints, deltaAlloc)
	newVault.StakedPrincipal = newStaked
	newUser.StakedPrincipal = new(uint256.Int).Add(newUser.StakedPrincipal, amount)

	if err := e.principal.TransferFrom(ctx, onBehalf, types.CustodianAddress, amount); err != nil {
		return fmt.Errorf("stake_tokens: transfer principal in: %w", err)
	}
	if err := e.principal.MintReceipt(ctx, onBehalf, vaultID, amount); err != nil {
		return fmt.Errorf("stake_tokens: mint receipt: %w", err)
	}

	if err := e.store.SavePool(newPool); err != nil {
		return fmt.Errorf("stake_tokens: %w", err)
	}
	if err := e.store.SaveVault(newVault); err != nil {
		return fmt.Errorf("stake_tokens: %w", err)
	}
	if err := e.store.SaveUser(newUser); err != nil {
		return fmt.Errorf("stake_tokens: %w", err)
	}
	if err := e.commitEvent("stake_tokens", onBehalf, vaultID, now, amount.Dec()); err != nil {
		return fmt.Errorf("stake_tokens: %w", err)
	}
	return nil
}

// StakeBoosts implements stake_boosts (§4.5), including the first-staker
// boost-pot backfill and the multiplier-driven alloc-point bump.
func (e *Engine) StakeBoosts(ctx context.Context, caller, onBehalf types.Address, now int64, vaultID types.VaultID, ids []uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(ids) == 0 || len(ids) >= types.MaxBoostsPerVault {
		return fmt.Errorf("stake_boosts: %w", types.ErrBoostStakingLimitExceeded)
	}

	pool, err := e.loadPool()
	if err != nil {
		return err
	}
	if err := checkGlobalPreconditions(pool, now); err != nil {
		return fmt.Errorf("stake_boosts: %w", err)
	}
	if err := guards.CallerIsOwnerOrRouter(caller, e.owner, e.router); err != nil {
		return fmt.Errorf("stake_boosts: %w", err)
	}

	vault, err := e.loadVault(vaultID)
	if err != nil {
		return fmt.Errorf("stake_boosts: %w", err)
	}
	if err := guards.NotMatured(vault, now); err != nil {
		return fmt.Errorf("stake_boosts: %w", err)
	}
	if int(vault.StakedBoosts)+len(ids) > types.MaxBoostsPerVault {
		return fmt.Errorf("stake_boosts: %w", types.ErrBoostStakingLimitExceeded)
	}

	user, err := e.loadOrNewUser(onBehalf, vaultID)
	if err != nil {
		return fmt.Errorf("stake_boosts: %w", err)
	}

	adv, err := e.advanceTriple(pool, vault, user, now)
	if err != nil {
		return fmt.Errorf("stake_boosts: %w", err)
	}
	newPool, newVault, newUser := adv.Pool, adv.Vault, adv.User

	wasFirstBoost := newVault.StakedBoosts == 0

	newUser.BoostIDs = append(append([]uint64{}, newUser.BoostIDs...), ids...)
	newVault.StakedBoosts += uint8(len(ids))
	multiplierDelta := uint64(len(ids)) * types.BoostMultiplier
	newVault.Multiplier += multiplierDelta

	if !newVault.StakedPrincipal.IsZero() {
		deltaAlloc := allocFromPrincipal(newVault.StakedPrincipal, multiplierDelta)
		newVault.AllocPoints = new(uint256.Int).Add(newVault.AllocPoints, deltaAlloc)
		newPool.TotalAllocPoints = new(uint256.Int).Add(newPool.TotalAllocPoints, deltaAlloc)
	}

	if wasFirstBoost {
		newUser.AccBoostRewards = new(uint256.Int).Add(newUser.AccBoostRewards, newVault.AccBoostRewards)
	}

	if err := e.boosts.RecordStake(ctx, onBehalf, ids, vaultID); err != nil {
		return fmt.Errorf("stake_boosts: record stake: %w", err)
	}

	if err := e.store.SavePool(newPool); err != nil {
		return fmt.Errorf("stake_boosts: %w", err)
	}
	if err := e.store.SaveVault(newVault); err != nil {
		return fmt.Errorf("stake_boosts: %w", err)
	}
	if err := e.store.SaveUser(newUser); err != nil {
		return fmt.Errorf("stake_boosts: %w", err)
	}
	if err := e.commitEvent("stake_boosts", onBehalf, vaultID, now, ""); err != nil {
		return fmt.Errorf("stake_boosts: %w", err)
	}
	return nil
}
