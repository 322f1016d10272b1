package ops_test

import (
	"context"
	"errors"
	"testing"

	"github.com/holiman/uint256"

	"quantum-vault-engine/engine/external"
	"quantum-vault-engine/engine/external/memory"
	"quantum-vault-engine/engine/ops"
	"quantum-vault-engine/engine/store"
	"quantum-vault-engine/engine/types"
)

const testRealmID = 7

func scaled(units uint64) *uint256.Int {
	v := uint256.NewInt(units)
	return new(uint256.Int).Mul(v, types.Precision)
}

type harness struct {
	eng       *ops.Engine
	st        *store.MemStore
	rewards   *memory.RewardCustodian
	principal *memory.PrincipalCustodian
	points    *memory.PointsLedger
	owner     types.Address
	router    types.Address
}

func newHarness(t *testing.T, start, end int64, eps, totalRewards *uint256.Int) *harness {
	t.Helper()
	ctx := context.Background()
	st := store.NewMemStore()
	rewards := memory.NewRewardCustodian(totalRewards)
	principal := memory.NewPrincipalCustodian()
	boosts := memory.NewBoostRegistry()
	points := memory.NewPointsLedger(false)
	points.Credit(testRealmID, testRealmID, scaled(1000))
	owner := types.Address{0x01}
	router := types.Address{0x02}

	if err := ops.InitPool(ctx, st, rewards, start, end, eps, totalRewards); err != nil {
		t.Fatalf("init pool: %v", err)
	}
	eng, err := ops.New(ctx, st, points, boosts, rewards, principal, owner, router)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return &harness{eng: eng, st: st, rewards: rewards, principal: principal, points: points, owner: owner, router: router}
}

// permit returns a points-ledger permit against the harness's pre-funded
// realm; verifySig is off in tests, so no real signature is required.
func (h *harness) permit() external.Permit {
	return external.Permit{RealmID: testRealmID, Reason: "test"}
}

// Scenario 1 (§8): bonus-ball-less first stake.
func TestBonusBallLessFirstStake(t *testing.T) {
	h := newHarness(t, 1, 1+120*86400, scaled(1), scaled(1_000_000))
	ctx := context.Background()

	holder := types.Address{0xAA}
	h.principal.Credit(holder, scaled(1000))

	vaultID, err := h.eng.CreateVault(ctx, h.owner, holder, 2, types.Duration30Days, tenth(), tenth(), h.permit())
	if err != nil {
		t.Fatalf("create_vault: %v", err)
	}

	if err := h.eng.StakeTokens(ctx, h.owner, holder, 3, vaultID, scaled(50)); err != nil {
		t.Fatalf("stake_tokens: %v", err)
	}

	vaults, err := h.eng.VaultStatus(vaultID)
	if err != nil {
		t.Fatalf("vault_status: %v", err)
	}
	vault := vaults[0]
	wantAlloc := new(uint256.Int).Mul(scaled(50), uint256.NewInt(100))
	if !vault.AllocPoints.Eq(wantAlloc) {
		t.Fatalf("alloc_points = %s, want %s", vault.AllocPoints, wantAlloc)
	}

	owed, err := h.eng.ClaimRewards(ctx, h.owner, holder, 4, vaultID)
	if err != nil {
		t.Fatalf("claim_rewards: %v", err)
	}
	// 1 second (t=3 to t=4) at emission 1e18/s = 1e18 emitted, entirely to
	// this vault (the only allocation holder); emission before the first
	// stake is dropped. 20% goes to creator+boost fees (10% each), leaving
	// 80% of 1e18 = 0.8e18 for principal stakers.
	wantOwed := new(uint256.Int).Mul(uint256.NewInt(8), tenth())
	if !owed.Eq(wantOwed) {
		t.Fatalf("accrued staking rewards = %s, want %s", owed, wantOwed)
	}
}

// Scenario 4 (§8): maturity final-update is one-time and idempotent after.
func TestMaturityFinalUpdate(t *testing.T) {
	h := newHarness(t, 1, 1+120*86400, scaled(1), scaled(1_000_000))
	ctx := context.Background()

	holder := types.Address{0xAA}
	h.principal.Credit(holder, scaled(1000))

	vaultID, err := h.eng.CreateVault(ctx, h.owner, holder, 2, types.Duration30Days, uint256.NewInt(0), uint256.NewInt(0), h.permit())
	if err != nil {
		t.Fatalf("create_vault: %v", err)
	}
	if err := h.eng.StakeTokens(ctx, h.owner, holder, 3, vaultID, scaled(50)); err != nil {
		t.Fatalf("stake_tokens: %v", err)
	}

	vaults, _ := h.eng.VaultStatus(vaultID)
	endTime := vaults[0].EndTime

	if err := h.eng.UpdateVault(endTime, []types.VaultID{vaultID}); err != nil {
		t.Fatalf("update_vault at maturity: %v", err)
	}
	vaults, _ = h.eng.VaultStatus(vaultID)
	if !vaults[0].AllocPoints.IsZero() {
		t.Fatalf("alloc_points after maturity = %s, want 0", vaults[0].AllocPoints)
	}
	pool, err := h.eng.PoolStatus()
	if err != nil {
		t.Fatalf("pool_status: %v", err)
	}
	if !pool.TotalAllocPoints.IsZero() {
		t.Fatalf("pool total_alloc_points after sole vault matures = %s, want 0", pool.TotalAllocPoints)
	}

	snapshot := vaults[0]
	if err := h.eng.UpdateVault(endTime+1000, []types.VaultID{vaultID}); err != nil {
		t.Fatalf("update_vault after maturity: %v", err)
	}
	vaults, _ = h.eng.VaultStatus(vaultID)
	if !vaults[0].AccTotalRewards.Eq(snapshot.AccTotalRewards) {
		t.Fatalf("accrual changed after final update: %s -> %s", snapshot.AccTotalRewards, vaults[0].AccTotalRewards)
	}
}

// Scenario 5 (§8): fee-factor bounds.
func TestFeeFactorBounds(t *testing.T) {
	h := newHarness(t, 1, 1+120*86400, scaled(1), scaled(1_000_000))
	ctx := context.Background()
	holder := types.Address{0xAA}
	h.principal.Credit(holder, scaled(1000))

	vaultID, err := h.eng.CreateVault(ctx, h.owner, holder, 2, types.Duration30Days, tenth(), tenth(), h.permit())
	if err != nil {
		t.Fatalf("create_vault: %v", err)
	}

	if err := h.eng.UpdateCreatorFee(ctx, holder, 3, vaultID, tenth(), h.permit()); err == nil {
		t.Fatalf("update_creator_fee with equal factor should fail")
	} else if !errors.Is(err, types.ErrCreatorFeeCanOnlyBeDecreased) {
		t.Fatalf("update_creator_fee wrong error: %v", err)
	}

	tooHighBoost := new(uint256.Int).Sub(types.Precision, new(uint256.Int).Div(tenth(), uint256.NewInt(2)))
	if err := h.eng.UpdateBoostFee(ctx, holder, 3, vaultID, tooHighBoost, h.permit()); err == nil {
		t.Fatalf("update_boost_fee exceeding total should fail")
	} else if !errors.Is(err, types.ErrTotalFeeFactorExceeded) {
		t.Fatalf("update_boost_fee wrong error: %v", err)
	}
}

// Scenario 6 (§8): the reward envelope is never exceeded, and
// update_emission can grow it safely. total_rewards is sized to exactly
// emission*pool_duration, the maximum the pool could ever emit if every
// vault had allocation for the whole span — any real run with a vault
// created partway through must come in under that ceiling.
func TestEnvelopeNeverExceeded(t *testing.T) {
	start := int64(1)
	vaultSeconds := int64(30 * 86400)
	poolDuration := vaultSeconds + 1000
	end := start + poolDuration
	eps := scaled(1)
	totalRewards := new(uint256.Int).Mul(eps, uint256.NewInt(uint64(poolDuration)))

	h := newHarness(t, start, end, eps, totalRewards)
	ctx := context.Background()
	holder := types.Address{0xAA}
	h.principal.Credit(holder, scaled(1000))

	vaultID, err := h.eng.CreateVault(ctx, h.owner, holder, start+1, types.Duration30Days, uint256.NewInt(0), uint256.NewInt(0), h.permit())
	if err != nil {
		t.Fatalf("create_vault: %v", err)
	}
	if err := h.eng.StakeTokens(ctx, h.owner, holder, start+2, vaultID, scaled(50)); err != nil {
		t.Fatalf("stake_tokens: %v", err)
	}

	vaults, err := h.eng.VaultStatus(vaultID)
	if err != nil {
		t.Fatalf("vault_status: %v", err)
	}
	endTime := vaults[0].EndTime

	if err := h.eng.UpdateVault(endTime, []types.VaultID{vaultID}); err != nil {
		t.Fatalf("update_vault: %v", err)
	}
	pool, err := h.eng.PoolStatus()
	if err != nil {
		t.Fatalf("pool_status: %v", err)
	}
	if pool.RewardsEmitted.Gt(pool.TotalRewards) {
		t.Fatalf("rewards_emitted %s exceeds total_rewards %s", pool.RewardsEmitted, pool.TotalRewards)
	}

	if err := h.eng.UpdateEmission(h.owner, endTime, scaled(100), 1000); err != nil {
		t.Fatalf("update_emission: %v", err)
	}
	pool, err = h.eng.PoolStatus()
	if err != nil {
		t.Fatalf("pool_status: %v", err)
	}
	if pool.RewardsEmitted.Gt(pool.TotalRewards) {
		t.Fatalf("rewards_emitted %s exceeds total_rewards %s after update_emission", pool.RewardsEmitted, pool.TotalRewards)
	}
}

// stake(x) then immediately unstake_all after maturity returns exactly x
// principal with no rewards intermixed (§8 round-trip property).
func TestStakeThenUnstakeRoundTrip(t *testing.T) {
	h := newHarness(t, 1, 1+40*86400, scaled(1), scaled(1_000_000))
	ctx := context.Background()
	holder := types.Address{0xAA}
	h.principal.Credit(holder, scaled(1000))

	vaultID, err := h.eng.CreateVault(ctx, h.owner, holder, 2, types.Duration30Days, uint256.NewInt(0), uint256.NewInt(0), h.permit())
	if err != nil {
		t.Fatalf("create_vault: %v", err)
	}
	if err := h.eng.StakeTokens(ctx, h.owner, holder, 3, vaultID, scaled(50)); err != nil {
		t.Fatalf("stake_tokens: %v", err)
	}

	vaults, _ := h.eng.VaultStatus(vaultID)
	endTime := vaults[0].EndTime

	if err := h.eng.UnstakeAll(ctx, h.owner, holder, endTime, vaultID); err != nil {
		t.Fatalf("unstake_all: %v", err)
	}
	if got := h.principal.BalanceOf(holder); !got.Eq(scaled(1000)) {
		t.Fatalf("holder balance after round trip = %s, want %s", got, scaled(1000))
	}
}

// claim_rewards twice with no intervening time returns 0 the second time
// (§8 round-trip property).
func TestClaimTwiceIdempotent(t *testing.T) {
	h := newHarness(t, 1, 1+40*86400, scaled(1), scaled(1_000_000))
	ctx := context.Background()
	holder := types.Address{0xAA}
	h.principal.Credit(holder, scaled(1000))

	vaultID, err := h.eng.CreateVault(ctx, h.owner, holder, 2, types.Duration30Days, uint256.NewInt(0), uint256.NewInt(0), h.permit())
	if err != nil {
		t.Fatalf("create_vault: %v", err)
	}
	if err := h.eng.StakeTokens(ctx, h.owner, holder, 3, vaultID, scaled(50)); err != nil {
		t.Fatalf("stake_tokens: %v", err)
	}

	if _, err := h.eng.ClaimRewards(ctx, h.owner, holder, 10, vaultID); err != nil {
		t.Fatalf("first claim_rewards: %v", err)
	}
	second, err := h.eng.ClaimRewards(ctx, h.owner, holder, 10, vaultID)
	if err != nil {
		t.Fatalf("second claim_rewards: %v", err)
	}
	if !second.IsZero() {
		t.Fatalf("second claim at same timestamp = %s, want 0", second)
	}
}

// Pool-wide lifecycle: paused blocks ordinary ops; frozen only allows
// emergency_exit.
func TestPauseFreezeLifecycle(t *testing.T) {
	h := newHarness(t, 1, 1+40*86400, scaled(1), scaled(1_000_000))
	ctx := context.Background()
	holder := types.Address{0xAA}
	h.principal.Credit(holder, scaled(1000))

	vaultID, err := h.eng.CreateVault(ctx, h.owner, holder, 2, types.Duration30Days, uint256.NewInt(0), uint256.NewInt(0), h.permit())
	if err != nil {
		t.Fatalf("create_vault: %v", err)
	}
	if err := h.eng.StakeTokens(ctx, h.owner, holder, 3, vaultID, scaled(50)); err != nil {
		t.Fatalf("stake_tokens: %v", err)
	}

	if err := h.eng.Pause(h.owner, 4); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if err := h.eng.StakeTokens(ctx, h.owner, holder, 5, vaultID, scaled(1)); !errors.Is(err, types.ErrPoolFrozen) {
		t.Fatalf("stake_tokens while paused: got %v, want ErrPoolFrozen", err)
	}

	if err := h.eng.Freeze(h.owner, 5); err != nil {
		t.Fatalf("freeze: %v", err)
	}
	if err := h.eng.EmergencyExit(ctx, h.owner, holder, 6, vaultID); err != nil {
		t.Fatalf("emergency_exit while frozen: %v", err)
	}
	if got := h.principal.BalanceOf(holder); !got.Eq(scaled(1000)) {
		t.Fatalf("holder balance after emergency_exit = %s, want %s", got, scaled(1000))
	}
}

func tenth() *uint256.Int {
	return new(uint256.Int).Div(types.Precision, uint256.NewInt(10))
}

// Scenario 3 (§8): the first boost staked into a vault backfills its
// accrued boost rewards to the vault's full pre-existing pot; a second
// boost joining later gets no further backfill.
func TestStakeBoostsBackfillsFirstStaker(t *testing.T) {
	h := newHarness(t, 1, 1+120*86400, scaled(1), scaled(1_000_000))
	ctx := context.Background()

	holder := types.Address{0xAA}
	h.principal.Credit(holder, scaled(1000))

	vaultID, err := h.eng.CreateVault(ctx, h.owner, holder, 2, types.Duration30Days, uint256.NewInt(0), tenth(), h.permit())
	if err != nil {
		t.Fatalf("create_vault: %v", err)
	}
	if err := h.eng.StakeTokens(ctx, h.owner, holder, 3, vaultID, scaled(50)); err != nil {
		t.Fatalf("stake_tokens: %v", err)
	}

	// One second elapses with only principal staked, the whole pool's
	// emission accrues to this vault, and 10% of it goes to the boost-fee
	// pot the first boost staker will inherit in full.
	if err := h.eng.StakeBoosts(ctx, h.owner, holder, 4, vaultID, []uint64{1}); err != nil {
		t.Fatalf("stake_boosts (first): %v", err)
	}

	vaults, err := h.eng.VaultStatus(vaultID)
	if err != nil {
		t.Fatalf("vault_status: %v", err)
	}
	vaultPot := vaults[0].AccBoostRewards
	if !vaultPot.Eq(tenth()) {
		t.Fatalf("vault acc_boost_rewards = %s, want %s", vaultPot, tenth())
	}

	firstUser, err := h.eng.UserStatus(holder, vaultID)
	if err != nil {
		t.Fatalf("user_status: %v", err)
	}
	if !firstUser.AccBoostRewards.Eq(vaultPot) {
		t.Fatalf("first boost staker's backfilled acc_boost_rewards = %s, want the vault's full pot %s", firstUser.AccBoostRewards, vaultPot)
	}

	secondHolder := types.Address{0xBB}
	if err := h.eng.StakeBoosts(ctx, h.owner, secondHolder, 4, vaultID, []uint64{2}); err != nil {
		t.Fatalf("stake_boosts (second): %v", err)
	}
	secondUser, err := h.eng.UserStatus(secondHolder, vaultID)
	if err != nil {
		t.Fatalf("user_status: %v", err)
	}
	if !secondUser.AccBoostRewards.IsZero() {
		t.Fatalf("second boost staker's acc_boost_rewards = %s, want 0 (no backfill after the first)", secondUser.AccBoostRewards)
	}
}

// increase_vault_limit respects the hard global principal cap.
func TestIncreaseVaultLimitRespectsGlobalCap(t *testing.T) {
	h := newHarness(t, 1, 1+120*86400, scaled(1), scaled(1_000_000))
	ctx := context.Background()
	holder := types.Address{0xAA}
	h.principal.Credit(holder, scaled(1000))

	vaultID, err := h.eng.CreateVault(ctx, h.owner, holder, 2, types.Duration30Days, uint256.NewInt(0), uint256.NewInt(0), h.permit())
	if err != nil {
		t.Fatalf("create_vault: %v", err)
	}

	if err := h.eng.IncreaseVaultLimit(holder, 3, vaultID, scaled(100)); err != nil {
		t.Fatalf("increase_vault_limit: %v", err)
	}
	vaults, err := h.eng.VaultStatus(vaultID)
	if err != nil {
		t.Fatalf("vault_status: %v", err)
	}
	wantLimit := new(uint256.Int).Add(types.BaseLimit, scaled(100))
	if !vaults[0].PrincipalLimit.Eq(wantLimit) {
		t.Fatalf("principal_limit = %s, want %s", vaults[0].PrincipalLimit, wantLimit)
	}

	over := new(uint256.Int).Sub(types.GlobalPrincipalCap, vaults[0].PrincipalLimit)
	over.Add(over, uint256.NewInt(1))
	if err := h.eng.IncreaseVaultLimit(holder, 4, vaultID, over); !errors.Is(err, types.ErrStakedTokenLimitExceeded) {
		t.Fatalf("increase_vault_limit beyond global cap: got %v, want ErrStakedTokenLimitExceeded", err)
	}
}
