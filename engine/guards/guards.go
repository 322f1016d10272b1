// Package guards implements the lifecycle and authorization checks of §4.5
// and §6 that every operation runs before touching state (§2 component 6).
package guards

import (
	"fmt"

	"quantum-vault-engine/engine/types"
)

// WhenStarted fails unless the pool has reached its start time.
func WhenStarted(pool *types.Pool, now int64) error {
	if now < pool.StartTime {
		return fmt.Errorf("%w", types.ErrNotStarted)
	}
	return nil
}

// WhenNotPaused fails if the pool is currently paused. ErrPoolFrozen is the
// blanket "operations are halted" sentinel shared by the paused and frozen
// states (frozen is a stronger halt that also implies paused, §4.5).
func WhenNotPaused(pool *types.Pool) error {
	if pool.Paused {
		return fmt.Errorf("%w", types.ErrPoolFrozen)
	}
	return nil
}

// WhenPaused fails unless the pool is currently paused.
func WhenPaused(pool *types.Pool) error {
	if !pool.Paused {
		return fmt.Errorf("%w", types.ErrNotPaused)
	}
	return nil
}

// WhenFrozen fails unless the pool is both paused and frozen (the
// precondition for emergency_exit, §4.5).
func WhenFrozen(pool *types.Pool) error {
	if !pool.Paused || !pool.Frozen {
		return fmt.Errorf("%w", types.ErrPoolNotFrozen)
	}
	return nil
}

// WhenNotFrozen fails if the pool has already been frozen (precondition for
// freeze itself, which must not be called twice).
func WhenNotFrozen(pool *types.Pool) error {
	if pool.Frozen {
		return fmt.Errorf("%w", types.ErrAlreadyFrozen)
	}
	return nil
}

// CallerIsOwnerOrRouter checks that caller is either the configured router
// address or the owner key; the router is trusted to act on_behalf_of an
// end user once it has already validated the end user's permit (§6).
func CallerIsOwnerOrRouter(caller, owner, router types.Address) error {
	if caller == owner || (router != types.ZeroAddress && caller == router) {
		return nil
	}
	return fmt.Errorf("%w", types.ErrIncorrectCaller)
}

// CallerIsOwner checks that caller is exactly the owner key (used by
// pause/unpause/freeze, which are not delegated through the router).
func CallerIsOwner(caller, owner types.Address) error {
	if caller != owner {
		return fmt.Errorf("%w", types.ErrIncorrectCaller)
	}
	return nil
}

// CallerIsVaultCreator checks that caller matches the vault's recorded
// creator (used by increase_vault_limit, update_creator_fee,
// update_boost_fee).
func CallerIsVaultCreator(caller types.Address, vault *types.Vault) error {
	if caller != vault.Creator {
		return fmt.Errorf("%w", types.ErrUserIsNotVaultCreator)
	}
	return nil
}

// NotMatured fails if now has reached or passed the vault's end time
// (staking window closed, §4.5 stake_tokens/stake_boosts/increase_vault_limit).
func NotMatured(vault *types.Vault, now int64) error {
	if now >= vault.EndTime {
		return fmt.Errorf("%w", types.ErrStakingEnded)
	}
	return nil
}

// Matured fails unless now has reached the vault's end time (precondition
// for unstake_all).
func Matured(vault *types.Vault, now int64) error {
	if now < vault.EndTime {
		return fmt.Errorf("%w", types.ErrVaultNotMatured)
	}
	return nil
}
