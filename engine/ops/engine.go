// Package ops implements the public operations of §4.5: the fifteen
// mutating verbs plus the read-only accessors supplemented in §4.6. Every
// mutating method follows the same shape as the node's own
// TokenomicsEngine/GovernanceSystem methods (chain/economics/tokenomics.go,
// chain/governance/governance.go): acquire the engine-wide mutex, run the
// lifecycle prologue, apply business rules to in-memory copies, call
// external collaborators last, and persist only once every collaborator
// call has returned without error.
package ops

import (
	"context"
	"fmt"
	"sync"

	"github.com/holiman/uint256"

	"quantum-vault-engine/engine/external"
	"quantum-vault-engine/engine/guards"
	"quantum-vault-engine/engine/ledger"
	"quantum-vault-engine/engine/store"
	"quantum-vault-engine/engine/types"
)

// Engine is the process-wide accounting engine: one pool, many vaults, many
// user positions, guarded by a single exclusive mutex (§5).
type Engine struct {
	mu sync.Mutex

	store store.Store

	points    external.PointsLedger
	boosts    external.BoostRegistry
	rewards   external.RewardCustodian
	principal external.PrincipalCustodian

	owner  types.Address
	router types.Address
}

// New constructs an Engine over an already-initialized store (InitPool must
// have run at least once). It asserts the custodian's reward envelope
// covers the pool's total_rewards, matching §6's construction-time check.
func New(ctx context.Context, st store.Store, points external.PointsLedger, boosts external.BoostRegistry, rewards external.RewardCustodian, principal external.PrincipalCustodian, owner, router types.Address) (*Engine, error) {
	pool, ok, err := st.LoadPool()
	if err != nil {
		return nil, fmt.Errorf("new engine: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("new engine: pool not initialized, call InitPool first")
	}
	custodianEnvelope, err := rewards.TotalVaultRewards(ctx)
	if err != nil {
		return nil, fmt.Errorf("new engine: query custodian envelope: %w", err)
	}
	if custodianEnvelope.Lt(pool.TotalRewards) {
		return nil, fmt.Errorf("new engine: custodian envelope %s is less than pool total_rewards %s", custodianEnvelope, pool.TotalRewards)
	}
	return &Engine{
		store:     st,
		points:    points,
		boosts:    boosts,
		rewards:   rewards,
		principal: principal,
		owner:     owner,
		router:    router,
	}, nil
}

// InitPool creates the singleton pool row the first time an engine is
// deployed over a fresh store. It is a no-op error if the store already
// holds a pool.
func InitPool(ctx context.Context, st store.Store, rewardCustodian external.RewardCustodian, start, end int64, emissionPerSecond, totalRewards *uint256.Int) error {
	if _, ok, err := st.LoadPool(); err != nil {
		return fmt.Errorf("init pool: %w", err)
	} else if ok {
		return fmt.Errorf("init pool: pool already initialized")
	}
	if end <= start {
		return fmt.Errorf("init pool: %w", types.ErrInvalidEmissionParameters)
	}
	if emissionPerSecond.IsZero() {
		return fmt.Errorf("init pool: %w", types.ErrInvalidEmissionParameters)
	}
	envelope, err := rewardCustodian.TotalVaultRewards(ctx)
	if err != nil {
		return fmt.Errorf("init pool: query custodian envelope: %w", err)
	}
	if envelope.Lt(totalRewards) {
		return fmt.Errorf("init pool: custodian envelope %s is less than requested total_rewards %s", envelope, totalRewards)
	}
	pool := types.NewPool(start, end, emissionPerSecond, totalRewards)
	if err := st.SavePool(pool); err != nil {
		return fmt.Errorf("init pool: %w", err)
	}
	return nil
}

// loadPool fetches the current pool row, failing loudly if it is missing
// (construction via New already guarantees it exists, so a miss here means
// the store was tampered with out of band).
func (e *Engine) loadPool() (*types.Pool, error) {
	pool, ok, err := e.store.LoadPool()
	if err != nil {
		return nil, fmt.Errorf("load pool: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("load pool: pool row missing")
	}
	return pool, nil
}

// loadVault fetches a vault row, returning ErrNonExistentVault if absent.
func (e *Engine) loadVault(id types.VaultID) (*types.Vault, error) {
	vault, ok, err := e.store.LoadVault(id)
	if err != nil {
		return nil, fmt.Errorf("load vault: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("load vault %s: %w", id.Hex(), types.ErrNonExistentVault)
	}
	return vault, nil
}

// loadOrNewUser fetches a user row, constructing an empty position if the
// holder has never touched this vault before.
func (e *Engine) loadOrNewUser(holder types.Address, vaultID types.VaultID) (*types.UserPosition, error) {
	user, ok, err := e.store.LoadUser(holder, vaultID)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if !ok {
		return types.NewUserPosition(holder, vaultID), nil
	}
	return user, nil
}

// advanceTriple runs the full Pool -> Vault -> User prologue (§4.2-§4.4).
func (e *Engine) advanceTriple(pool *types.Pool, vault *types.Vault, user *types.UserPosition, now int64) (ledger.UserAdvance, error) {
	adv, err := ledger.UpdateUserIndexes(pool, vault, user, now)
	if err != nil {
		return ledger.UserAdvance{}, err
	}
	return adv, nil
}

// commitEvent persists an append-only event row describing an accepted
// operation, for engine/feed's replay-on-subscribe and crash recovery.
func (e *Engine) commitEvent(kind string, actor types.Address, vaultID types.VaultID, now int64, detail string) error {
	if err := e.store.AppendEvent(store.Event{
		Kind:      kind,
		Actor:     actor,
		VaultID:   vaultID,
		Timestamp: now,
		Detail:    detail,
	}); err != nil {
		return fmt.Errorf("commit event: %w", err)
	}
	return nil
}

// consumePermit passes an off-chain points-ledger permit to the PointsLedger's
// Consume before an operation gated by the Points Ledger proceeds (§6). The
// core does no signature check of its own; whether the permit's signature is
// verified depends on the PointsLedger implementation.
func (e *Engine) consumePermit(ctx context.Context, permit external.Permit, cost *uint256.Int) error {
	if err := e.points.Consume(ctx, permit.RealmID, cost, permit); err != nil {
		return fmt.Errorf("%w: %v", types.ErrPermitDenied, err)
	}
	return nil
}

// checkGlobalPreconditions runs the blanket guard every mutating operation
// in §4.5's table shares: started and not paused.
func checkGlobalPreconditions(pool *types.Pool, now int64) error {
	if err := guards.WhenStarted(pool, now); err != nil {
		return err
	}
	if err := guards.WhenNotPaused(pool); err != nil {
		return err
	}
	return nil
}
