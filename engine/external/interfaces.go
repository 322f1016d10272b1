// Package external declares the small collaborator interfaces the engine is
// constructed with (§6): the points ledger, the boost-asset registry, the
// reward custodian, and the principal custodian. The core never embeds
// their implementations; it only calls through these interfaces, matching
// the node's own HSMProvider-style dependency-injection convention
// (chain/security/hsm/interfaces.go).
package external

import (
	"context"

	"github.com/holiman/uint256"

	"quantum-vault-engine/engine/types"
)

// Permit is the off-chain-authorized instruction a router forwards
// on_behalf_of an end user, carrying the signature the PointsLedger
// verifies before consuming points.
type Permit struct {
	RealmID   uint64
	Reason    string
	Signature []byte
	PublicKey []byte
}

// PointsLedger gates certain operations on an off-chain points balance
// (§6). The core hands each permit to Consume and does no signature check
// of its own; verifying the signature is up to the implementation.
type PointsLedger interface {
	BalanceOf(ctx context.Context, season uint64, realmID uint64) (*uint256.Int, error)
	Consume(ctx context.Context, realmID uint64, amount *uint256.Int, permit Permit) error
}

// BoostRegistry records which boost-asset ids are staked into which vault
// by which holder (§6). Both methods are idempotent per (ids, vaultID) pair.
type BoostRegistry interface {
	RecordStake(ctx context.Context, holder types.Address, ids []uint64, vaultID types.VaultID) error
	RecordUnstake(ctx context.Context, holder types.Address, ids []uint64, vaultID types.VaultID) error
}

// RewardCustodian holds the reward-token envelope and pays out claims
// (§6). The engine asserts total_rewards <= TotalVaultRewards() at
// construction.
type RewardCustodian interface {
	TotalVaultRewards(ctx context.Context) (*uint256.Int, error)
	PayRewards(ctx context.Context, recipient types.Address, amount *uint256.Int) error
}

// PrincipalCustodian is a standard fungible-token ledger for the staked
// principal asset, plus the 1:1 receipt-token mint/burn hooks (§6).
type PrincipalCustodian interface {
	TransferFrom(ctx context.Context, from, to types.Address, amount *uint256.Int) error
	Transfer(ctx context.Context, to types.Address, amount *uint256.Int) error
	MintReceipt(ctx context.Context, to types.Address, vaultID types.VaultID, amount *uint256.Int) error
	BurnReceipt(ctx context.Context, from types.Address, vaultID types.VaultID, amount *uint256.Int) error
}
