package store

import (
	"fmt"
	"sync"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"

	"quantum-vault-engine/engine/types"
)

// LevelStore is the embedded-database Store backing cmd/vault-engine's
// `serve` subcommand, opened over a data directory exactly the way
// chain/node/blockchain.go opens its StateDB: `leveldb.OpenFile(dbPath,
// &opt.Options{})`.
type LevelStore struct {
	mu  sync.Mutex
	db  *leveldb.DB
	seq uint64
}

// OpenLevelStore opens (creating if absent) a leveldb-backed store at dbPath.
func OpenLevelStore(dbPath string) (*LevelStore, error) {
	db, err := leveldb.OpenFile(dbPath, &opt.Options{})
	if err != nil {
		return nil, fmt.Errorf("open level store at %s: %w", dbPath, err)
	}
	s := &LevelStore{db: db}
	seq, err := s.nextSeqFromDisk()
	if err != nil {
		db.Close()
		return nil, err
	}
	s.seq = seq
	return s, nil
}

func (s *LevelStore) nextSeqFromDisk() (uint64, error) {
	iter := s.db.NewIterator(util.BytesPrefix([]byte(eventPrefix)), nil)
	defer iter.Release()
	var last uint64
	for iter.Next() {
		e, err := decodeEvent(iter.Value())
		if err != nil {
			return 0, fmt.Errorf("scan event log: %w", err)
		}
		if e.Seq > last {
			last = e.Seq
		}
	}
	if err := iter.Error(); err != nil {
		return 0, fmt.Errorf("scan event log: %w", err)
	}
	return last + 1, nil
}

// LoadPool implements Store.
func (s *LevelStore) LoadPool() (*types.Pool, bool, error) {
	data, err := s.db.Get([]byte(poolKey), nil)
	if err == leveldb.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load pool: %w", err)
	}
	pool, err := decodePool(data)
	if err != nil {
		return nil, false, err
	}
	return pool, true, nil
}

// SavePool implements Store.
func (s *LevelStore) SavePool(pool *types.Pool) error {
	data, err := encodePool(pool)
	if err != nil {
		return err
	}
	if err := s.db.Put([]byte(poolKey), data, nil); err != nil {
		return fmt.Errorf("save pool: %w", err)
	}
	return nil
}

// LoadVault implements Store.
func (s *LevelStore) LoadVault(id types.VaultID) (*types.Vault, bool, error) {
	data, err := s.db.Get(vaultRowKey(id), nil)
	if err == leveldb.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load vault %s: %w", id.Hex(), err)
	}
	vault, err := decodeVault(data)
	if err != nil {
		return nil, false, err
	}
	return vault, true, nil
}

// SaveVault implements Store.
func (s *LevelStore) SaveVault(vault *types.Vault) error {
	data, err := encodeVault(vault)
	if err != nil {
		return err
	}
	if err := s.db.Put(vaultRowKey(vault.VaultID), data, nil); err != nil {
		return fmt.Errorf("save vault %s: %w", vault.VaultID.Hex(), err)
	}
	return nil
}

// ListVaultIDs implements Store.
func (s *LevelStore) ListVaultIDs() ([]types.VaultID, error) {
	iter := s.db.NewIterator(util.BytesPrefix([]byte(vaultPrefix)), nil)
	defer iter.Release()
	var ids []types.VaultID
	for iter.Next() {
		vault, err := decodeVault(iter.Value())
		if err != nil {
			return nil, fmt.Errorf("list vaults: %w", err)
		}
		ids = append(ids, vault.VaultID)
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("list vaults: %w", err)
	}
	return ids, nil
}

// LoadUser implements Store.
func (s *LevelStore) LoadUser(holder types.Address, vaultID types.VaultID) (*types.UserPosition, bool, error) {
	data, err := s.db.Get(userRowKey(holder, vaultID), nil)
	if err == leveldb.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load user %s/%s: %w", holder.Hex(), vaultID.Hex(), err)
	}
	user, err := decodeUser(data)
	if err != nil {
		return nil, false, err
	}
	return user, true, nil
}

// SaveUser implements Store.
func (s *LevelStore) SaveUser(user *types.UserPosition) error {
	data, err := encodeUser(user)
	if err != nil {
		return err
	}
	if err := s.db.Put(userRowKey(user.Holder, user.VaultID), data, nil); err != nil {
		return fmt.Errorf("save user %s/%s: %w", user.Holder.Hex(), user.VaultID.Hex(), err)
	}
	return nil
}

// AppendEvent implements Store, assigning the next sequence number itself.
func (s *LevelStore) AppendEvent(e Event) error {
	s.mu.Lock()
	e.Seq = s.seq
	s.seq++
	s.mu.Unlock()

	data, err := encodeEvent(e)
	if err != nil {
		return err
	}
	if err := s.db.Put(eventRowKey(e.Seq), data, nil); err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

// ListEventsSince implements Store.
func (s *LevelStore) ListEventsSince(seq uint64) ([]Event, error) {
	iter := s.db.NewIterator(util.BytesPrefix([]byte(eventPrefix)), nil)
	defer iter.Release()
	var events []Event
	for iter.Next() {
		e, err := decodeEvent(iter.Value())
		if err != nil {
			return nil, fmt.Errorf("list events: %w", err)
		}
		if e.Seq >= seq {
			events = append(events, e)
		}
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

// Close implements Store.
func (s *LevelStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close level store: %w", err)
	}
	return nil
}
