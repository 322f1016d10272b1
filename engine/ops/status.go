package ops

import (
	"fmt"

	"quantum-vault-engine/engine/types"
)

// VaultFilter selects a subset of vaults for ListVaults (§4.6).
type VaultFilter int

const (
	// FilterAll returns every vault.
	FilterAll VaultFilter = iota
	// FilterActive returns vaults whose end_time has not yet passed.
	FilterActive
	// FilterMatured returns vaults whose end_time has passed.
	FilterMatured
)

// PoolStatus implements pool_status (§4.6): a read-only snapshot of the
// pool row, observed without mutating stored state.
func (e *Engine) PoolStatus() (*types.Pool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loadPool()
}

// VaultStatus implements vault_status(ids...) (§4.6).
func (e *Engine) VaultStatus(ids ...types.VaultID) ([]*types.Vault, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*types.Vault, 0, len(ids))
	for _, id := range ids {
		vault, err := e.loadVault(id)
		if err != nil {
			return nil, fmt.Errorf("vault_status: %w", err)
		}
		out = append(out, vault)
	}
	return out, nil
}

// UserStatus implements user_status(holder, vault) (§4.6).
func (e *Engine) UserStatus(holder types.Address, vaultID types.VaultID) (*types.UserPosition, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loadOrNewUser(holder, vaultID)
}

// ListVaults implements list_vaults(filter) (§4.6), backing the CLI's
// `inspect` subcommand. The websocket feed does not use it; it replays the
// event log instead.
func (e *Engine) ListVaults(now int64, filter VaultFilter) ([]*types.Vault, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ids, err := e.store.ListVaultIDs()
	if err != nil {
		return nil, fmt.Errorf("list_vaults: %w", err)
	}

	out := make([]*types.Vault, 0, len(ids))
	for _, id := range ids {
		vault, err := e.loadVault(id)
		if err != nil {
			return nil, fmt.Errorf("list_vaults: %w", err)
		}
		matured := now >= vault.EndTime
		switch filter {
		case FilterActive:
			if matured {
				continue
			}
		case FilterMatured:
			if !matured {
				continue
			}
		}
		out = append(out, vault)
	}
	return out, nil
}
