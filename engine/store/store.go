// Package store persists the Pool/Vault/User ledgers and the append-only
// event log to an embedded key-value database, the way the node's own
// StateDB (chain/node/blockchain.go) persists account state to leveldb
// under string-prefixed keys. Two implementations share the Store
// interface: LevelStore (goleveldb, for cmd/vault-engine) and MemStore (a
// plain map, for tests).
package store

import (
	"quantum-vault-engine/engine/types"
)

const (
	poolKey      = "p/"
	vaultPrefix  = "v/"
	userPrefix   = "u/"
	eventPrefix  = "e/"
)

// Store is the persistence boundary engine/ops writes through. Every
// mutating operation loads the rows it needs, computes new snapshots via
// engine/ledger, and calls the matching Save* methods once every external
// collaborator call has already succeeded (§9 "fee re-entrance safety").
type Store interface {
	LoadPool() (*types.Pool, bool, error)
	SavePool(pool *types.Pool) error

	LoadVault(id types.VaultID) (*types.Vault, bool, error)
	SaveVault(vault *types.Vault) error
	ListVaultIDs() ([]types.VaultID, error)

	LoadUser(holder types.Address, vaultID types.VaultID) (*types.UserPosition, bool, error)
	SaveUser(user *types.UserPosition) error

	AppendEvent(e Event) error
	ListEventsSince(seq uint64) ([]Event, error)

	Close() error
}

func vaultRowKey(id types.VaultID) []byte {
	return append([]byte(vaultPrefix), id.Bytes()...)
}

func userRowKey(holder types.Address, vaultID types.VaultID) []byte {
	key := make([]byte, 0, len(userPrefix)+types.AddressLength+types.VaultIDLength)
	key = append(key, []byte(userPrefix)...)
	key = append(key, holder.Bytes()...)
	key = append(key, vaultID.Bytes()...)
	return key
}

func eventRowKey(seq uint64) []byte {
	key := make([]byte, 0, len(eventPrefix)+8)
	key = append(key, []byte(eventPrefix)...)
	var seqBuf [8]byte
	for i := 7; i >= 0; i-- {
		seqBuf[i] = byte(seq)
		seq >>= 8
	}
	return append(key, seqBuf[:]...)
}
