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

const maxVaultIDCollisionRetries = 8

// CreateVault implements create_vault (§4.5): runs the pool prologue,
// derives a fresh vault id retrying on collision, and stores a new vault
// with no alloc-points yet (no principal staked). permit is passed to the
// PointsLedger's Consume once the request has been validated and before any
// state is persisted.
func (e *Engine) CreateVault(ctx context.Context, caller, onBehalf types.Address, now int64, class types.DurationClass, creatorFee, boostFee *uint256.Int, permit external.Permit) (types.VaultID, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	pool, err := e.loadPool()
	if err != nil {
		return types.VaultID{}, err
	}
	if err := checkGlobalPreconditions(pool, now); err != nil {
		return types.VaultID{}, fmt.Errorf("create_vault: %w", err)
	}
	if err := guards.CallerIsOwnerOrRouter(caller, e.owner, e.router); err != nil {
		return types.VaultID{}, fmt.Errorf("create_vault: %w", err)
	}
	seconds, ok := class.Seconds()
	if !ok {
		return types.VaultID{}, fmt.Errorf("create_vault: %w", types.ErrInvalidVaultPeriod)
	}
	multiplier, _ := class.BaseMultiplier()

	total := new(uint256.Int).Add(creatorFee, boostFee)
	if total.Gt(types.Precision) {
		return types.VaultID{}, fmt.Errorf("create_vault: %w", types.ErrTotalFeeFactorExceeded)
	}

	vaultEnd := now + seconds
	if vaultEnd >= pool.EndTime {
		return types.VaultID{}, fmt.Errorf("create_vault: %w", types.ErrInsufficientTimeLeft)
	}

	poolAdv, err := ledger.UpdatePoolIndex(pool, now)
	if err != nil {
		return types.VaultID{}, fmt.Errorf("create_vault: %w", err)
	}
	newPool := poolAdv.Pool

	var vaultID types.VaultID
	var salt uint32
	for {
		candidate := types.DeriveVaultID(onBehalf, now, salt)
		if _, exists, err := e.store.LoadVault(candidate); err != nil {
			return types.VaultID{}, fmt.Errorf("create_vault: %w", err)
		} else if !exists {
			vaultID = candidate
			break
		}
		salt++
		if salt > maxVaultIDCollisionRetries {
			return types.VaultID{}, fmt.Errorf("create_vault: %w", types.ErrInvalidVaultId)
		}
	}

	if err := e.consumePermit(ctx, permit, types.PointsCostCreateVault); err != nil {
		return types.VaultID{}, fmt.Errorf("create_vault: %w", err)
	}

	vault := types.NewVault(vaultID, onBehalf, class, vaultEnd, multiplier, creatorFee, boostFee, newPool.Index)

	if err := e.store.SavePool(newPool); err != nil {
		return types.VaultID{}, fmt.Errorf("create_vault: %w", err)
	}
	if err := e.store.SaveVault(vault); err != nil {
		return types.VaultID{}, fmt.Errorf("create_vault: %w", err)
	}
	if err := e.commitEvent("create_vault", onBehalf, vaultID, now, ""); err != nil {
		return types.VaultID{}, fmt.Errorf("create_vault: %w", err)
	}

	return vaultID, nil
}
