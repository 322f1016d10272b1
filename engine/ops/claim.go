package ops

import (
	"context"
	"fmt"

	"github.com/holiman/uint256"

	"quantum-vault-engine/engine/guards"
	"quantum-vault-engine/engine/types"
)

// ClaimRewards implements claim_rewards (§4.5): pays out the caller's
// unclaimed share of the vault's principal rewards bucket.
func (e *Engine) ClaimRewards(ctx context.Context, caller, onBehalf types.Address, now int64, vaultID types.VaultID) (*uint256.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	pool, err := e.loadPool()
	if err != nil {
		return nil, err
	}
	if err := checkGlobalPreconditions(pool, now); err != nil {
		return nil, fmt.Errorf("claim_rewards: %w", err)
	}
	if err := guards.CallerIsOwnerOrRouter(caller, e.owner, e.router); err != nil {
		return nil, fmt.Errorf("claim_rewards: %w", err)
	}

	vault, err := e.loadVault(vaultID)
	if err != nil {
		return nil, fmt.Errorf("claim_rewards: %w", err)
	}
	user, err := e.loadOrNewUser(onBehalf, vaultID)
	if err != nil {
		return nil, fmt.Errorf("claim_rewards: %w", err)
	}

	adv, err := e.advanceTriple(pool, vault, user, now)
	if err != nil {
		return nil, fmt.Errorf("claim_rewards: %w", err)
	}
	newPool, newVault, newUser := adv.Pool, adv.Vault, adv.User

	owed := new(uint256.Int).Sub(newUser.AccStakingRewards, newUser.ClaimedStakingRewards)
	if owed.IsZero() {
		if err := e.store.SavePool(newPool); err != nil {
			return nil, fmt.Errorf("claim_rewards: %w", err)
		}
		if err := e.store.SaveVault(newVault); err != nil {
			return nil, fmt.Errorf("claim_rewards: %w", err)
		}
		if err := e.store.SaveUser(newUser); err != nil {
			return nil, fmt.Errorf("claim_rewards: %w", err)
		}
		return new(uint256.Int), nil
	}

	newUser.ClaimedStakingRewards = new(uint256.Int).Set(newUser.AccStakingRewards)
	newVault.TotalClaimed = new(uint256.Int).Add(newVault.TotalClaimed, owed)

	if err := e.rewards.PayRewards(ctx, onBehalf, owed); err != nil {
		return nil, fmt.Errorf("claim_rewards: pay rewards: %w", err)
	}

	if err := e.store.SavePool(newPool); err != nil {
		return nil, fmt.Errorf("claim_rewards: %w", err)
	}
	if err := e.store.SaveVault(newVault); err != nil {
		return nil, fmt.Errorf("claim_rewards: %w", err)
	}
	if err := e.store.SaveUser(newUser); err != nil {
		return nil, fmt.Errorf("claim_rewards: %w", err)
	}
	if err := e.commitEvent("claim_rewards", onBehalf, vaultID, now, owed.Dec()); err != nil {
		return nil, fmt.Errorf("claim_rewards: %w", err)
	}
	return owed, nil
}

// ClaimFees implements claim_fees (§4.5): the creator claims their fee
// bucket and, independently, any boost-staker share the caller holds.
func (e *Engine) ClaimFees(ctx context.Context, caller, onBehalf types.Address, now int64, vaultID types.VaultID) (*uint256.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	pool, err := e.loadPool()
	if err != nil {
		return nil, err
	}
	if err := checkGlobalPreconditions(pool, now); err != nil {
		return nil, fmt.Errorf("claim_fees: %w", err)
	}
	if err := guards.CallerIsOwnerOrRouter(caller, e.owner, e.router); err != nil {
		return nil, fmt.Errorf("claim_fees: %w", err)
	}

	vault, err := e.loadVault(vaultID)
	if err != nil {
		return nil, fmt.Errorf("claim_fees: %w", err)
	}
	user, err := e.loadOrNewUser(onBehalf, vaultID)
	if err != nil {
		return nil, fmt.Errorf("claim_fees: %w", err)
	}

	adv, err := e.advanceTriple(pool, vault, user, now)
	if err != nil {
		return nil, fmt.Errorf("claim_fees: %w", err)
	}
	newPool, newVault, newUser := adv.Pool, adv.Vault, adv.User

	total := new(uint256.Int)

	if onBehalf == newVault.Creator {
		creatorOwed := new(uint256.Int).Sub(newVault.AccCreatorRewards, newUser.ClaimedCreatorRewards)
		if !creatorOwed.IsZero() {
			newUser.ClaimedCreatorRewards = new(uint256.Int).Set(newVault.AccCreatorRewards)
			total.Add(total, creatorOwed)
		}
	}

	if !newUser.AccBoostRewards.IsZero() {
		boostOwed := new(uint256.Int).Sub(newUser.AccBoostRewards, newUser.ClaimedBoostRewards)
		if !boostOwed.IsZero() {
			newUser.ClaimedBoostRewards = new(uint256.Int).Set(newUser.AccBoostRewards)
			total.Add(total, boostOwed)
		}
	}

	if total.IsZero() {
		if err := e.store.SavePool(newPool); err != nil {
			return nil, fmt.Errorf("claim_fees: %w", err)
		}
		if err := e.store.SaveVault(newVault); err != nil {
			return nil, fmt.Errorf("claim_fees: %w", err)
		}
		if err := e.store.SaveUser(newUser); err != nil {
			return nil, fmt.Errorf("claim_fees: %w", err)
		}
		return new(uint256.Int), nil
	}

	newVault.TotalClaimed = new(uint256.Int).Add(newVault.TotalClaimed, total)

	if err := e.rewards.PayRewards(ctx, onBehalf, total); err != nil {
		return nil, fmt.Errorf("claim_fees: pay rewards: %w", err)
	}

	if err := e.store.SavePool(newPool); err != nil {
		return nil, fmt.Errorf("claim_fees: %w", err)
	}
	if err := e.store.SaveVault(newVault); err != nil {
		return nil, fmt.Errorf("claim_fees: %w", err)
	}
	if err := e.store.SaveUser(newUser); err != nil {
		return nil, fmt.Errorf("claim_fees: %w", err)
	}
	if err := e.commitEvent("claim_fees", onBehalf, vaultID, now, total.Dec()); err != nil {
		return nil, fmt.Errorf("claim_fees: %w", err)
	}
	return total, nil
}
