package guards

import (
	"errors"
	"testing"

	"github.com/holiman/uint256"

	"quantum-vault-engine/engine/types"
)

func newPool() *types.Pool {
	return types.NewPool(100, 1000, uint256.NewInt(1), uint256.NewInt(1))
}

func TestWhenStarted(t *testing.T) {
	pool := newPool()
	if err := WhenStarted(pool, 99); !errors.Is(err, types.ErrNotStarted) {
		t.Fatalf("expected ErrNotStarted before start time, got %v", err)
	}
	if err := WhenStarted(pool, 100); err != nil {
		t.Fatalf("expected no error at exactly start time, got %v", err)
	}
}

func TestWhenNotPausedMapsToPoolFrozen(t *testing.T) {
	pool := newPool()
	pool.Paused = true
	if err := WhenNotPaused(pool); !errors.Is(err, types.ErrPoolFrozen) {
		t.Fatalf("expected ErrPoolFrozen when paused, got %v", err)
	}
	pool.Paused = false
	if err := WhenNotPaused(pool); err != nil {
		t.Fatalf("expected no error when not paused, got %v", err)
	}
}

func TestWhenPausedRequiresPaused(t *testing.T) {
	pool := newPool()
	if err := WhenPaused(pool); !errors.Is(err, types.ErrNotPaused) {
		t.Fatalf("expected ErrNotPaused when pool is active, got %v", err)
	}
	pool.Paused = true
	if err := WhenPaused(pool); err != nil {
		t.Fatalf("expected no error when paused, got %v", err)
	}
}

func TestWhenFrozenRequiresBothPausedAndFrozen(t *testing.T) {
	pool := newPool()
	if err := WhenFrozen(pool); !errors.Is(err, types.ErrPoolNotFrozen) {
		t.Fatalf("expected ErrPoolNotFrozen on a fresh pool, got %v", err)
	}
	pool.Paused = true
	if err := WhenFrozen(pool); !errors.Is(err, types.ErrPoolNotFrozen) {
		t.Fatalf("expected ErrPoolNotFrozen when paused but not frozen, got %v", err)
	}
	pool.Frozen = true
	if err := WhenFrozen(pool); err != nil {
		t.Fatalf("expected no error when both paused and frozen, got %v", err)
	}
}

func TestWhenNotFrozenGuardsDoubleFreeze(t *testing.T) {
	pool := newPool()
	if err := WhenNotFrozen(pool); err != nil {
		t.Fatalf("expected no error on a fresh pool, got %v", err)
	}
	pool.Frozen = true
	if err := WhenNotFrozen(pool); !errors.Is(err, types.ErrAlreadyFrozen) {
		t.Fatalf("expected ErrAlreadyFrozen on second freeze, got %v", err)
	}
}

func TestCallerIsOwnerOrRouter(t *testing.T) {
	owner := types.BytesToAddress([]byte{1})
	router := types.BytesToAddress([]byte{2})
	stranger := types.BytesToAddress([]byte{3})

	if err := CallerIsOwnerOrRouter(owner, owner, router); err != nil {
		t.Fatalf("owner should be authorized: %v", err)
	}
	if err := CallerIsOwnerOrRouter(router, owner, router); err != nil {
		t.Fatalf("router should be authorized: %v", err)
	}
	if err := CallerIsOwnerOrRouter(stranger, owner, router); !errors.Is(err, types.ErrIncorrectCaller) {
		t.Fatalf("expected ErrIncorrectCaller for stranger, got %v", err)
	}
	if err := CallerIsOwnerOrRouter(stranger, owner, types.ZeroAddress); !errors.Is(err, types.ErrIncorrectCaller) {
		t.Fatalf("expected ErrIncorrectCaller when no router configured, got %v", err)
	}
}

func TestCallerIsVaultCreator(t *testing.T) {
	creator := types.BytesToAddress([]byte{9})
	stranger := types.BytesToAddress([]byte{10})
	vault := &types.Vault{Creator: creator}

	if err := CallerIsVaultCreator(creator, vault); err != nil {
		t.Fatalf("creator should pass: %v", err)
	}
	if err := CallerIsVaultCreator(stranger, vault); !errors.Is(err, types.ErrUserIsNotVaultCreator) {
		t.Fatalf("expected ErrUserIsNotVaultCreator, got %v", err)
	}
}

func TestMaturityGuardsAreExactBoundaries(t *testing.T) {
	vault := &types.Vault{EndTime: 500}

	if err := NotMatured(vault, 499); err != nil {
		t.Fatalf("expected staking still open one second before end, got %v", err)
	}
	if err := NotMatured(vault, 500); !errors.Is(err, types.ErrStakingEnded) {
		t.Fatalf("expected ErrStakingEnded exactly at end time, got %v", err)
	}

	if err := Matured(vault, 499); !errors.Is(err, types.ErrVaultNotMatured) {
		t.Fatalf("expected ErrVaultNotMatured before end time, got %v", err)
	}
	if err := Matured(vault, 500); err != nil {
		t.Fatalf("expected matured exactly at end time, got %v", err)
	}
}
