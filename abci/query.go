package abci

import (
	"context"
	"encoding/json"
	"fmt"

	abci "github.com/cometbft/cometbft/abci/types"

	"github.com/ahwlsqja/volrank/leaderboard"
	"github.com/ahwlsqja/volrank/types"
)

// Query paths.
const (
	QueryTop        = "/top"
	QueryMinAccount = "/minacc"
	QueryVolume     = "/vol" // data: account
	QueryPool       = "/pool"
	QueryReward     = "/reward"
)

// TopResponse - get_top 결과
type TopResponse struct {
	Slots types.TopSlots `json:"slots"`
}

// MinAccountResponse - minacc 결과
type MinAccountResponse struct {
	Account types.Account `json:"account"`
	Volume  types.Volume  `json:"volume"`
}

// VolumeResponse - get_vol 결과. Volume is nil when the account is not in the ledger.
type VolumeResponse struct {
	Account types.Account `json:"account"`
	Volume  *types.Volume `json:"volume"`
}

// PoolResponse - get_pool 결과
type PoolResponse struct {
	Pool uint32 `json:"pool"`
}

// RewardResponse - calculate_reward 결과
type RewardResponse struct {
	Rewards [types.TopCapacity]types.Reward `json:"rewards"`
}

// handleQuery runs a read-only call against t and returns the JSON response.
func handleQuery(t *leaderboard.Tracker, path string, data []byte) ([]byte, error) {
	var resp any
	switch path {
	case QueryTop:
		resp = TopResponse{Slots: t.Top()}
	case QueryMinAccount:
		acc, vol := t.MinAccount()
		resp = MinAccountResponse{Account: acc, Volume: vol}
	case QueryVolume:
		acc := types.Account(data)
		out := VolumeResponse{Account: acc}
		if v, ok := t.Volume(acc); ok {
			out.Volume = &v
		}
		resp = out
	case QueryPool:
		resp = PoolResponse{Pool: t.Pool()}
	case QueryReward:
		rewards, err := t.CalculateReward()
		if err != nil {
			return nil, err
		}
		resp = RewardResponse{Rewards: rewards}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownQuery, path)
	}
	return json.Marshal(resp)
}

// ================================================================================
//                          Typed queries
// ================================================================================

// Querier is satisfied by both the in-process Application and the gRPC Client.
type Querier interface {
	Query(ctx context.Context, req *abci.RequestQuery) (*abci.ResponseQuery, error)
}

// Inspector adds the node status call to Querier. The Application and the gRPC
// Client both satisfy it.
type Inspector interface {
	Querier
	Info(ctx context.Context, req *abci.RequestInfo) (*abci.ResponseInfo, error)
}

// NodeStatus is the committed height and app hash of a node.
type NodeStatus struct {
	App     string `json:"app"`
	Version string `json:"version"`
	Height  int64  `json:"height"`
	AppHash string `json:"app_hash"`
}

// GetStatus returns the last committed height and app hash.
func GetStatus(ctx context.Context, in Inspector) (*NodeStatus, error) {
	resp, err := in.Info(ctx, &abci.RequestInfo{})
	if err != nil {
		return nil, fmt.Errorf("info failed: %w", err)
	}
	return &NodeStatus{
		App:     resp.Data,
		Version: resp.Version,
		Height:  resp.LastBlockHeight,
		AppHash: fmt.Sprintf("%X", resp.LastBlockAppHash),
	}, nil
}

func query(ctx context.Context, q Querier, path string, data []byte, out any) error {
	resp, err := q.Query(ctx, &abci.RequestQuery{Path: path, Data: data})
	if err != nil {
		return fmt.Errorf("query %s failed: %w", path, err)
	}
	if resp.Code != CodeTypeOK {
		return fmt.Errorf("query %s failed with code %d: %s", path, resp.Code, resp.Log)
	}
	if err := json.Unmarshal(resp.Value, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}

// GetTop returns the leaderboard slots.
func GetTop(ctx context.Context, q Querier) (types.TopSlots, error) {
	var resp TopResponse
	err := query(ctx, q, QueryTop, nil, &resp)
	return resp.Slots, err
}

// GetMinAccount returns the smallest top set member.
func GetMinAccount(ctx context.Context, q Querier) (*MinAccountResponse, error) {
	var resp MinAccountResponse
	if err := query(ctx, q, QueryMinAccount, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetVolume returns the ledger volume of acc, or nil if it is unknown.
func GetVolume(ctx context.Context, q Querier, acc types.Account) (*types.Volume, error) {
	var resp VolumeResponse
	if err := query(ctx, q, QueryVolume, []byte(acc), &resp); err != nil {
		return nil, err
	}
	return resp.Volume, nil
}

// GetPool returns the reward pool size.
func GetPool(ctx context.Context, q Querier) (uint32, error) {
	var resp PoolResponse
	err := query(ctx, q, QueryPool, nil, &resp)
	return resp.Pool, err
}

// GetRewards returns the reward split.
func GetRewards(ctx context.Context, q Querier) ([types.TopCapacity]types.Reward, error) {
	var resp RewardResponse
	err := query(ctx, q, QueryReward, nil, &resp)
	return resp.Rewards, err
}
