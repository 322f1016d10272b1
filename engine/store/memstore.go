package store

import (
	"sort"
	"sync"

	"quantum-vault-engine/engine/types"
)

// MemStore is a plain in-memory Store, used by the engine/ops and
// engine/store tests.
type MemStore struct {
	mu     sync.Mutex
	pool   *types.Pool
	vaults map[types.VaultID]*types.Vault
	users  map[string]*types.UserPosition
	events []Event
	seq    uint64
}

// NewMemStore constructs an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		vaults: make(map[types.VaultID]*types.Vault),
		users:  make(map[string]*types.UserPosition),
	}
}

func userMapKey(holder types.Address, vaultID types.VaultID) string {
	return string(holder.Bytes()) + string(vaultID.Bytes())
}

// LoadPool implements Store.
func (s *MemStore) LoadPool() (*types.Pool, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pool == nil {
		return nil, false, nil
	}
	return s.pool.Clone(), true, nil
}

// SavePool implements Store.
func (s *MemStore) SavePool(pool *types.Pool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pool = pool.Clone()
	return nil
}

// LoadVault implements Store.
func (s *MemStore) LoadVault(id types.VaultID) (*types.Vault, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.vaults[id]
	if !ok {
		return nil, false, nil
	}
	return v.Clone(), true, nil
}

// SaveVault implements Store.
func (s *MemStore) SaveVault(vault *types.Vault) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vaults[vault.VaultID] = vault.Clone()
	return nil
}

// ListVaultIDs implements Store.
func (s *MemStore) ListVaultIDs() ([]types.VaultID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]types.VaultID, 0, len(s.vaults))
	for id := range s.vaults {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].Hex() < ids[j].Hex() })
	return ids, nil
}

// LoadUser implements Store.
func (s *MemStore) LoadUser(holder types.Address, vaultID types.VaultID) (*types.UserPosition, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userMapKey(holder, vaultID)]
	if !ok {
		return nil, false, nil
	}
	return u.Clone(), true, nil
}

// SaveUser implements Store.
func (s *MemStore) SaveUser(user *types.UserPosition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[userMapKey(user.Holder, user.VaultID)] = user.Clone()
	return nil
}

// AppendEvent implements Store, assigning the next sequence number itself.
func (s *MemStore) AppendEvent(e Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e.Seq = s.seq
	s.seq++
	s.events = append(s.events, e)
	return nil
}

// ListEventsSince implements Store.
func (s *MemStore) ListEventsSince(seq uint64) ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Event
	for _, e := range s.events {
		if e.Seq >= seq {
			out = append(out, e)
		}
	}
	return out, nil
}

// Close implements Store.
func (s *MemStore) Close() error { return nil }
