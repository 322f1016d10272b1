package store

import (
	"encoding/json"
	"fmt"

	"github.com/holiman/uint256"

	"quantum-vault-engine/engine/types"
)

// The JSON envelopes below mirror the node's own StateDB account-row
// convention (chain/node/blockchain.go persists balances as big.Int bytes
// under a string-prefixed key): every row is a flat JSON object with
// uint256 fields carried as decimal strings, since encoding/json cannot
// marshal *uint256.Int directly.

type poolRow struct {
	StartTime         int64  `json:"start_time"`
	EndTime           int64  `json:"end_time"`
	EmissionPerSecond string `json:"emission_per_second"`
	TotalAllocPoints  string `json:"total_alloc_points"`
	Index             string `json:"index"`
	LastUpdateTime    int64  `json:"last_update_time"`
	TotalRewards      string `json:"total_rewards"`
	RewardsEmitted    string `json:"rewards_emitted"`
	Frozen            bool   `json:"frozen"`
	Paused            bool   `json:"paused"`
}

func encodePool(p *types.Pool) ([]byte, error) {
	row := poolRow{
		StartTime:         p.StartTime,
		EndTime:           p.EndTime,
		EmissionPerSecond: p.EmissionPerSecond.Dec(),
		TotalAllocPoints:  p.TotalAllocPoints.Dec(),
		Index:             p.Index.Dec(),
		LastUpdateTime:    p.LastUpdateTime,
		TotalRewards:      p.TotalRewards.Dec(),
		RewardsEmitted:    p.RewardsEmitted.Dec(),
		Frozen:            p.Frozen,
		Paused:            p.Paused,
	}
	return json.Marshal(row)
}

func decodePool(data []byte) (*types.Pool, error) {
	var row poolRow
	if err := json.Unmarshal(data, &row); err != nil {
		return nil, fmt.Errorf("decode pool row: %w", err)
	}
	eps, err := parseU256(row.EmissionPerSecond)
	if err != nil {
		return nil, fmt.Errorf("decode pool row: emission_per_second: %w", err)
	}
	totalAlloc, err := parseU256(row.TotalAllocPoints)
	if err != nil {
		return nil, fmt.Errorf("decode pool row: total_alloc_points: %w", err)
	}
	idx, err := parseU256(row.Index)
	if err != nil {
		return nil, fmt.Errorf("decode pool row: index: %w", err)
	}
	totalRewards, err := parseU256(row.TotalRewards)
	if err != nil {
		return nil, fmt.Errorf("decode pool row: total_rewards: %w", err)
	}
	rewardsEmitted, err := parseU256(row.RewardsEmitted)
	if err != nil {
		return nil, fmt.Errorf("decode pool row: rewards_emitted: %w", err)
	}
	return &types.Pool{
		StartTime:         row.StartTime,
		EndTime:           row.EndTime,
		EmissionPerSecond: eps,
		TotalAllocPoints:  totalAlloc,
		Index:             idx,
		LastUpdateTime:    row.LastUpdateTime,
		TotalRewards:      totalRewards,
		RewardsEmitted:    rewardsEmitted,
		Frozen:            row.Frozen,
		Paused:            row.Paused,
	}, nil
}

type vaultRow struct {
	VaultID           string `json:"vault_id"`
	Creator           string `json:"creator"`
	DurationClass     uint8  `json:"duration_class"`
	EndTime           int64  `json:"end_time"`
	Multiplier        uint64 `json:"multiplier"`
	StakedPrincipal   string `json:"staked_principal"`
	StakedBoosts      uint8  `json:"staked_boosts"`
	AllocPoints       string `json:"alloc_points"`
	PrincipalLimit    string `json:"principal_limit"`
	CreatorFeeFactor  string `json:"creator_fee_factor"`
	BoostFeeFactor    string `json:"boost_fee_factor"`
	VaultIndex        string `json:"vault_index"`
	BoostIndex        string `json:"boost_index"`
	RewardsPerToken   string `json:"rewards_per_token"`
	AccTotalRewards   string `json:"acc_total_rewards"`
	AccCreatorRewards string `json:"acc_creator_rewards"`
	AccBoostRewards   string `json:"acc_boost_rewards"`
	TotalClaimed      string `json:"total_claimed"`
}

func encodeVault(v *types.Vault) ([]byte, error) {
	row := vaultRow{
		VaultID:           v.VaultID.Hex(),
		Creator:           v.Creator.Hex(),
		DurationClass:     uint8(v.DurationClass),
		EndTime:           v.EndTime,
		Multiplier:        v.Multiplier,
		StakedPrincipal:   v.StakedPrincipal.Dec(),
		StakedBoosts:      v.StakedBoosts,
		AllocPoints:       v.AllocPoints.Dec(),
		PrincipalLimit:    v.PrincipalLimit.Dec(),
		CreatorFeeFactor:  v.CreatorFeeFactor.Dec(),
		BoostFeeFactor:    v.BoostFeeFactor.Dec(),
		VaultIndex:        v.VaultIndex.Dec(),
		BoostIndex:        v.BoostIndex.Dec(),
		RewardsPerToken:   v.RewardsPerToken.Dec(),
		AccTotalRewards:   v.AccTotalRewards.Dec(),
		AccCreatorRewards: v.AccCreatorRewards.Dec(),
		AccBoostRewards:   v.AccBoostRewards.Dec(),
		TotalClaimed:      v.TotalClaimed.Dec(),
	}
	return json.Marshal(row)
}

func decodeVault(data []byte) (*types.Vault, error) {
	var row vaultRow
	if err := json.Unmarshal(data, &row); err != nil {
		return nil, fmt.Errorf("decode vault row: %w", err)
	}
	vaultID, err := types.HexToVaultID(row.VaultID)
	if err != nil {
		return nil, fmt.Errorf("decode vault row: %w", err)
	}
	creator, err := types.HexToAddress(row.Creator)
	if err != nil {
		return nil, fmt.Errorf("decode vault row: %w", err)
	}
	fields := map[string]*string{
		"staked_principal":    &row.StakedPrincipal,
		"alloc_points":        &row.AllocPoints,
		"principal_limit":     &row.PrincipalLimit,
		"creator_fee_factor":  &row.CreatorFeeFactor,
		"boost_fee_factor":    &row.BoostFeeFactor,
		"vault_index":         &row.VaultIndex,
		"boost_index":         &row.BoostIndex,
		"rewards_per_token":   &row.RewardsPerToken,
		"acc_total_rewards":   &row.AccTotalRewards,
		"acc_creator_rewards": &row.AccCreatorRewards,
		"acc_boost_rewards":   &row.AccBoostRewards,
		"total_claimed":       &row.TotalClaimed,
	}
	parsed := make(map[string]*uint256.Int, len(fields))
	for name, s := range fields {
		v, err := parseU256(*s)
		if err != nil {
			return nil, fmt.Errorf("decode vault row: %s: %w", name, err)
		}
		parsed[name] = v
	}
	return &types.Vault{
		VaultID:           vaultID,
		Creator:           creator,
		DurationClass:     types.DurationClass(row.DurationClass),
		EndTime:           row.EndTime,
		Multiplier:        row.Multiplier,
		StakedPrincipal:   parsed["staked_principal"],
		StakedBoosts:      row.StakedBoosts,
		AllocPoints:       parsed["alloc_points"],
		PrincipalLimit:    parsed["principal_limit"],
		CreatorFeeFactor:  parsed["creator_fee_factor"],
		BoostFeeFactor:    parsed["boost_fee_factor"],
		VaultIndex:        parsed["vault_index"],
		BoostIndex:        parsed["boost_index"],
		RewardsPerToken:   parsed["rewards_per_token"],
		AccTotalRewards:   parsed["acc_total_rewards"],
		AccCreatorRewards: parsed["acc_creator_rewards"],
		AccBoostRewards:   parsed["acc_boost_rewards"],
		TotalClaimed:      parsed["total_claimed"],
	}, nil
}

type userRow struct {
	Holder                string   `json:"holder"`
	VaultID               string   `json:"vault_id"`
	StakedPrincipal       string   `json:"staked_principal"`
	BoostIDs              []uint64 `json:"boost_ids"`
	UserIndex             string   `json:"user_index"`
	UserBoostIndex        string   `json:"user_boost_index"`
	AccStakingRewards     string   `json:"acc_staking_rewards"`
	ClaimedStakingRewards string   `json:"claimed_staking_rewards"`
	AccBoostRewards       string   `json:"acc_boost_rewards"`
	ClaimedBoostRewards   string   `json:"claimed_boost_rewards"`
	ClaimedCreatorRewards string   `json:"claimed_creator_rewards"`
}

func encodeUser(u *types.UserPosition) ([]byte, error) {
	row := userRow{
		Holder:                u.Holder.Hex(),
		VaultID:               u.VaultID.Hex(),
		StakedPrincipal:       u.StakedPrincipal.Dec(),
		BoostIDs:              u.BoostIDs,
		UserIndex:             u.UserIndex.Dec(),
		UserBoostIndex:        u.UserBoostIndex.Dec(),
		AccStakingRewards:     u.AccStakingRewards.Dec(),
		ClaimedStakingRewards: u.ClaimedStakingRewards.Dec(),
		AccBoostRewards:       u.AccBoostRewards.Dec(),
		ClaimedBoostRewards:   u.ClaimedBoostRewards.Dec(),
		ClaimedCreatorRewards: u.ClaimedCreatorRewards.Dec(),
	}
	return json.Marshal(row)
}

func decodeUser(data []byte) (*types.UserPosition, error) {
	var row userRow
	if err := json.Unmarshal(data, &row); err != nil {
		return nil, fmt.Errorf("decode user row: %w", err)
	}
	holder, err := types.HexToAddress(row.Holder)
	if err != nil {
		return nil, fmt.Errorf("decode user row: %w", err)
	}
	vaultID, err := types.HexToVaultID(row.VaultID)
	if err != nil {
		return nil, fmt.Errorf("decode user row: %w", err)
	}
	fields := map[string]string{
		"staked_principal":        row.StakedPrincipal,
		"user_index":              row.UserIndex,
		"user_boost_index":        row.UserBoostIndex,
		"acc_staking_rewards":     row.AccStakingRewards,
		"claimed_staking_rewards": row.ClaimedStakingRewards,
		"acc_boost_rewards":       row.AccBoostRewards,
		"claimed_boost_rewards":   row.ClaimedBoostRewards,
		"claimed_creator_rewards": row.ClaimedCreatorRewards,
	}
	parsed := make(map[string]*uint256.Int, len(fields))
	for name, s := range fields {
		v, err := parseU256(s)
		if err != nil {
			return nil, fmt.Errorf("decode user row: %s: %w", name, err)
		}
		parsed[name] = v
	}
	return &types.UserPosition{
		Holder:                holder,
		VaultID:               vaultID,
		StakedPrincipal:       parsed["staked_principal"],
		BoostIDs:              row.BoostIDs,
		UserIndex:             parsed["user_index"],
		UserBoostIndex:        parsed["user_boost_index"],
		AccStakingRewards:     parsed["acc_staking_rewards"],
		ClaimedStakingRewards: parsed["claimed_staking_rewards"],
		AccBoostRewards:       parsed["acc_boost_rewards"],
		ClaimedBoostRewards:   parsed["claimed_boost_rewards"],
		ClaimedCreatorRewards: parsed["claimed_creator_rewards"],
	}, nil
}

func parseU256(s string) (*uint256.Int, error) {
	if s == "" {
		return new(uint256.Int), nil
	}
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, fmt.Errorf("parse decimal %q: %w", s, err)
	}
	return v, nil
}
