package ops

import (
	"context"
	"fmt"

	"github.com/holiman/uint256"

	"quantum-vault-engine/engine/guards"
	"quantum-vault-engine/engine/types"
)

// UnstakeAll implements unstake_all (§4.5): refunds a matured vault's full
// principal and releases any boosts, without touching accrued/claimed
// reward balances (those remain separately claimable).
func (e *Engine) UnstakeAll(ctx context.Context, caller, onBehalf types.Address, now int64, vaultID types.VaultID) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	pool, err := e.loadPool()
	if err != nil {
		return err
	}
	if err := checkGlobalPreconditions(pool, now); err != nil {
		return fmt.Errorf("unstake_all: %w", err)
	}
	if err := guards.CallerIsOwnerOrRouter(caller, e.owner, e.router); err != nil {
		return fmt.Errorf("unstake_all: %w", err)
	}

	vault, err := e.loadVault(vaultID)
	if err != nil {
		return fmt.Errorf("unstake_all: %w", err)
	}
	if err := guards.Matured(vault, now); err != nil {
		return fmt.Errorf("unstake_all: %w", err)
	}

	user, err := e.loadOrNewUser(onBehalf, vaultID)
	if err != nil {
		return fmt.Errorf("unstake_all: %w", err)
	}
	if user.HasNothingStaked() {
		return fmt.Errorf("unstake_all: %w", types.ErrUserHasNothingStaked)
	}

	adv, err := e.advanceTriple(pool, vault, user, now)
	if err != nil {
		return fmt.Errorf("unstake_all: %w", err)
	}
	newPool, newVault, newUser := adv.Pool, adv.Vault, adv.User

	principalOut := newUser.StakedPrincipal
	boostIDs := newUser.BoostIDs

	newUser.StakedPrincipal = new(uint256.Int)
	newUser.BoostIDs = nil

	if len(boostIDs) > 0 {
		if err := e.boosts.RecordUnstake(ctx, onBehalf, boostIDs, vaultID); err != nil {
			return fmt.Errorf("unstake_all: record unstake: %w", err)
		}
	}
	if !principalOut.IsZero() {
		if err := e.principal.BurnReceipt(ctx, onBehalf, vaultID, principalOut); err != nil {
			return fmt.Errorf("unstake_all: burn receipt: %w", err)
		}
		if err := e.principal.Transfer(ctx, onBehalf, principalOut); err != nil {
			return fmt.Errorf("unstake_all: refund principal: %w", err)
		}
	}

	if err := e.store.SavePool(newPool); err != nil {
		return fmt.Errorf("unstake_all: %w", err)
	}
	if err := e.store.SaveVault(newVault); err != nil {
		return fmt.Errorf("unstake_all: %w", err)
	}
	if err := e.store.SaveUser(newUser); err != nil {
		return fmt.Errorf("unstake_all: %w", err)
	}
	if err := e.commitEvent("unstake_all", onBehalf, vaultID, now, principalOut.Dec()); err != nil {
		return fmt.Errorf("unstake_all: %w", err)
	}
	return nil
}

// EmergencyExit implements emergency_exit (§4.5): the only verb permitted
// while the pool is frozen. Refunds principal and releases boosts without
// advancing any index or touching alloc-points, so the frozen snapshot
// stays available for post-mortem reconstruction (§9 "emergency exit
// ledger skew").
func (e *Engine) EmergencyExit(ctx context.Context, caller, onBehalf types.Address, now int64, vaultID types.VaultID) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	pool, err := e.loadPool()
	if err != nil {
		return err
	}
	if err := guards.WhenStarted(pool, now); err != nil {
		return fmt.Errorf("emergency_exit: %w", err)
	}
	if err := guards.WhenFrozen(pool); err != nil {
		return fmt.Errorf("emergency_exit: %w", err)
	}
	if err := guards.CallerIsOwnerOrRouter(caller, e.owner, e.router); err != nil {
		return fmt.Errorf("emergency_exit: %w", err)
	}

	if _, err := e.loadVault(vaultID); err != nil {
		return fmt.Errorf("emergency_exit: %w", err)
	}
	user, err := e.loadOrNewUser(onBehalf, vaultID)
	if err != nil {
		return fmt.Errorf("emergency_exit: %w", err)
	}
	if user.HasNothingStaked() {
		return fmt.Errorf("emergency_exit: %w", types.ErrUserHasNothingStaked)
	}

	newUser := user.Clone()
	principalOut := newUser.StakedPrincipal
	boostIDs := newUser.BoostIDs

	newUser.StakedPrincipal = new(uint256.Int)
	newUser.BoostIDs = nil

	if len(boostIDs) > 0 {
		if err := e.boosts.RecordUnstake(ctx, onBehalf, boostIDs, vaultID); err != nil {
			return fmt.Errorf("emergency_exit: record unstake: %w", err)
		}
	}
	if !principalOut.IsZero() {
		if err := e.principal.BurnReceipt(ctx, onBehalf, vaultID, principalOut); err != nil {
			return fmt.Errorf("emergency_exit: burn receipt: %w", err)
		}
		if err := e.principal.Transfer(ctx, onBehalf, principalOut); err != nil {
			return fmt.Errorf("emergency_exit: refund principal: %w", err)
		}
	}

	if err := e.store.SaveUser(newUser); err != nil {
		return fmt.Errorf("emergency_exit: %w", err)
	}
	// vault/pool state (alloc-points, multiplier) is deliberately left untouched.
	if err := e.commitEvent("emergency_exit", onBehalf, vaultID, now, principalOut.Dec()); err != nil {
		return fmt.Errorf("emergency_exit: %w", err)
	}
	return nil
}
