// Package memory provides in-memory reference implementations of the
// engine's four external collaborators (§6), used by the engine's tests
// and by cmd/vault-engine's `serve` and `inspect` subcommands. The shape mirrors the node's own
// in-memory bookkeeping style (chain/node/txpool.go's map-backed pool with
// a guarding sync.RWMutex) rather than talking to any real chain or
// off-chain service.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/holiman/uint256"

	"quantum-vault-engine/engine/external"
	"quantum-vault-engine/engine/external/points"
	"quantum-vault-engine/engine/types"
)

// PointsLedger is an in-memory points balance ledger gating vault creation
// and parameter changes.
type PointsLedger struct {
	mu        sync.RWMutex
	balances  map[uint64]map[uint64]*uint256.Int // season -> realmID -> balance
	verifySig bool
}

// NewPointsLedger constructs an empty points ledger. When verifySig is
// true, Consume verifies the permit's Dilithium signature via
// engine/external/points before debiting the balance.
func NewPointsLedger(verifySig bool) *PointsLedger {
	return &PointsLedger{
		balances:  make(map[uint64]map[uint64]*uint256.Int),
		verifySig: verifySig,
	}
}

// Credit adds to a realm's points balance for a season, used by tests to
// seed fixtures.
func (p *PointsLedger) Credit(season, realmID uint64, amount *uint256.Int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.balances[season] == nil {
		p.balances[season] = make(map[uint64]*uint256.Int)
	}
	bal, ok := p.balances[season][realmID]
	if !ok {
		bal = new(uint256.Int)
		p.balances[season][realmID] = bal
	}
	bal.Add(bal, amount)
}

// BalanceOf implements external.PointsLedger.
func (p *PointsLedger) BalanceOf(_ context.Context, season, realmID uint64) (*uint256.Int, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	bal, ok := p.balances[season][realmID]
	if !ok {
		return new(uint256.Int), nil
	}
	return new(uint256.Int).Set(bal), nil
}

// Consume implements external.PointsLedger.
func (p *PointsLedger) Consume(_ context.Context, realmID uint64, amount *uint256.Int, permit external.Permit) error {
	if p.verifySig {
		msg := points.EncodePermitMessage(realmID, amount.Dec(), permit.Reason)
		ok, err := points.VerifyPermit(permit.PublicKey, msg, permit.Signature)
		if err != nil {
			return fmt.Errorf("consume: %w", err)
		}
		if !ok {
			return fmt.Errorf("consume: permit signature did not verify")
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	seasonBalances := p.balances[permit.RealmID]
	if seasonBalances == nil {
		return fmt.Errorf("consume: realm %d has no points balance", realmID)
	}
	bal, ok := seasonBalances[realmID]
	if !ok || bal.Lt(amount) {
		return fmt.Errorf("consume: insufficient points balance for realm %d", realmID)
	}
	bal.Sub(bal, amount)
	return nil
}

// BoostRegistry is an in-memory boost-asset registry.
type BoostRegistry struct {
	mu    sync.Mutex
	stake map[types.VaultID]map[uint64]types.Address // vaultID -> boostID -> holder
}

// NewBoostRegistry constructs an empty registry.
func NewBoostRegistry() *BoostRegistry {
	return &BoostRegistry{stake: make(map[types.VaultID]map[uint64]types.Address)}
}

// RecordStake implements external.BoostRegistry, idempotent per (ids, vaultID).
func (r *BoostRegistry) RecordStake(_ context.Context, holder types.Address, ids []uint64, vaultID types.VaultID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	held, ok := r.stake[vaultID]
	if !ok {
		held = make(map[uint64]types.Address)
		r.stake[vaultID] = held
	}
	for _, id := range ids {
		held[id] = holder
	}
	return nil
}

// RecordUnstake implements external.BoostRegistry, idempotent per (ids, vaultID).
func (r *BoostRegistry) RecordUnstake(_ context.Context, holder types.Address, ids []uint64, vaultID types.VaultID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	held := r.stake[vaultID]
	for _, id := range ids {
		if owner, ok := held[id]; ok && owner == holder {
			delete(held, id)
		}
	}
	return nil
}

// RewardCustodian is an in-memory reward-token custodian.
type RewardCustodian struct {
	mu      sync.Mutex
	vault   *uint256.Int
	paidOut map[types.Address]*uint256.Int
}

// NewRewardCustodian constructs a custodian holding the given envelope.
func NewRewardCustodian(envelope *uint256.Int) *RewardCustodian {
	return &RewardCustodian{
		vault:   new(uint256.Int).Set(envelope),
		paidOut: make(map[types.Address]*uint256.Int),
	}
}

// TotalVaultRewards implements external.RewardCustodian.
func (c *RewardCustodian) TotalVaultRewards(_ context.Context) (*uint256.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return new(uint256.Int).Set(c.vault), nil
}

// PayRewards implements external.RewardCustodian.
func (c *RewardCustodian) PayRewards(_ context.Context, recipient types.Address, amount *uint256.Int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.vault.Lt(amount) {
		return fmt.Errorf("pay_rewards: custodian vault underfunded for %s", amount)
	}
	c.vault.Sub(c.vault, amount)
	paid, ok := c.paidOut[recipient]
	if !ok {
		paid = new(uint256.Int)
		c.paidOut[recipient] = paid
	}
	paid.Add(paid, amount)
	return nil
}

// PrincipalCustodian is an in-memory fungible-token ledger for the staked
// principal asset plus 1:1 receipt-token bookkeeping.
type PrincipalCustodian struct {
	mu       sync.Mutex
	balances map[types.Address]*uint256.Int
	receipts map[types.VaultID]map[types.Address]*uint256.Int
}

// NewPrincipalCustodian constructs an empty principal custodian.
func NewPrincipalCustodian() *PrincipalCustodian {
	return &PrincipalCustodian{
		balances: make(map[types.Address]*uint256.Int),
		receipts: make(map[types.VaultID]map[types.Address]*uint256.Int),
	}
}

// Credit seeds a holder's principal balance, used by tests.
func (c *PrincipalCustodian) Credit(holder types.Address, amount *uint256.Int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	bal, ok := c.balances[holder]
	if !ok {
		bal = new(uint256.Int)
		c.balances[holder] = bal
	}
	bal.Add(bal, amount)
}

// TransferFrom implements external.PrincipalCustodian.
func (c *PrincipalCustodian) TransferFrom(_ context.Context, from, to types.Address, amount *uint256.Int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	bal, ok := c.balances[from]
	if !ok || bal.Lt(amount) {
		return fmt.Errorf("transfer_from: insufficient balance for %s", from.Hex())
	}
	bal.Sub(bal, amount)
	toBal, ok := c.balances[to]
	if !ok {
		toBal = new(uint256.Int)
		c.balances[to] = toBal
	}
	toBal.Add(toBal, amount)
	return nil
}

// Transfer implements external.PrincipalCustodian (custodian -> recipient).
func (c *PrincipalCustodian) Transfer(_ context.Context, to types.Address, amount *uint256.Int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	bal, ok := c.balances[to]
	if !ok {
		bal = new(uint256.Int)
		c.balances[to] = bal
	}
	bal.Add(bal, amount)
	return nil
}

// MintReceipt implements external.PrincipalCustodian.
func (c *PrincipalCustodian) MintReceipt(_ context.Context, to types.Address, vaultID types.VaultID, amount *uint256.Int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	held, ok := c.receipts[vaultID]
	if !ok {
		held = make(map[types.Address]*uint256.Int)
		c.receipts[vaultID] = held
	}
	bal, ok := held[to]
	if !ok {
		bal = new(uint256.Int)
		held[to] = bal
	}
	bal.Add(bal, amount)
	return nil
}

// BurnReceipt implements external.PrincipalCustodian.
func (c *PrincipalCustodian) BurnReceipt(_ context.Context, from types.Address, vaultID types.VaultID, amount *uint256.Int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	held := c.receipts[vaultID]
	bal, ok := held[from]
	if !ok || bal.Lt(amount) {
		return fmt.Errorf("burn_receipt: insufficient receipt balance for %s in vault %s", from.Hex(), vaultID.Hex())
	}
	bal.Sub(bal, amount)
	return nil
}

// BalanceOf returns a holder's current principal balance, used by tests.
func (c *PrincipalCustodian) BalanceOf(holder types.Address) *uint256.Int {
	c.mu.Lock()
	defer c.mu.Unlock()
	bal, ok := c.balances[holder]
	if !ok {
		return new(uint256.Int)
	}
	return new(uint256.Int).Set(bal)
}
