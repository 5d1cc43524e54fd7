package persistence

import (
	"fmt"
	"math/big"

	"github.com/cometbft/cometbft/crypto/tmhash"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/ahwlsqja/volrank/types"
)

// rlpEntry is the wire form of one account/volume pair.
type rlpEntry struct {
	Account string
	Volume  *big.Int
}

// rlpState is the wire form of a full tracker state.
type rlpState struct {
	Ledger []rlpEntry
	TopSet []rlpEntry
	Pool   uint32
}

// rlpSnapshot wraps a state with the commit metadata.
type rlpSnapshot struct {
	Height  uint64
	AppHash []byte
	State   rlpState
}

// rlpMeta is stored under the meta key of a LevelStore.
type rlpMeta struct {
	Height  uint64
	AppHash []byte
}

func toRLPEntries(entries []types.Entry) []rlpEntry {
	out := make([]rlpEntry, len(entries))
	for i, e := range entries {
		out[i] = rlpEntry{Account: string(e.Account), Volume: e.Volume.Big()}
	}
	return out
}

func fromRLPEntries(entries []rlpEntry) ([]types.Entry, error) {
	out := make([]types.Entry, len(entries))
	for i, e := range entries {
		v, err := types.VolumeFromBig(e.Volume)
		if err != nil {
			return nil, fmt.Errorf("entry %q: %w", e.Account, err)
		}
		out[i] = types.Entry{Account: types.Account(e.Account), Volume: v}
	}
	return out, nil
}

func toRLPState(state *types.State) rlpState {
	return rlpState{
		Ledger: toRLPEntries(state.Ledger),
		TopSet: toRLPEntries(state.TopSet),
		Pool:   state.Pool,
	}
}

func fromRLPState(raw rlpState) (*types.State, error) {
	ledger, err := fromRLPEntries(raw.Ledger)
	if err != nil {
		return nil, fmt.Errorf("ledger: %w", err)
	}
	top, err := fromRLPEntries(raw.TopSet)
	if err != nil {
		return nil, fmt.Errorf("top set: %w", err)
	}
	return &types.State{Ledger: ledger, TopSet: top, Pool: raw.Pool}, nil
}

// EncodeState returns the canonical binary encoding of a state.
func EncodeState(state *types.State) ([]byte, error) {
	if state == nil {
		return nil, fmt.Errorf("state is nil")
	}
	return rlp.EncodeToBytes(toRLPState(state))
}

// DecodeState is the inverse of EncodeState.
func DecodeState(data []byte) (*types.State, error) {
	var raw rlpState
	if err := rlp.DecodeBytes(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode state: %w", err)
	}
	return fromRLPState(raw)
}

// StateHash hashes the canonical encoding. It is used as the ABCI app hash, so it
// depends on iteration order as well as content.
func StateHash(state *types.State) ([]byte, error) {
	data, err := EncodeState(state)
	if err != nil {
		return nil, err
	}
	return tmhash.Sum(data), nil
}

// EncodeSnapshot encodes a snapshot including its commit metadata.
func EncodeSnapshot(snap *Snapshot) ([]byte, error) {
	if snap == nil || snap.State == nil {
		return nil, fmt.Errorf("snapshot is nil")
	}
	if snap.Height < 0 {
		return nil, fmt.Errorf("negative height %d", snap.Height)
	}
	return rlp.EncodeToBytes(rlpSnapshot{
		Height:  uint64(snap.Height),
		AppHash: snap.AppHash,
		State:   toRLPState(snap.State),
	})
}

// DecodeSnapshot is the inverse of EncodeSnapshot.
func DecodeSnapshot(data []byte) (*Snapshot, error) {
	var raw rlpSnapshot
	if err := rlp.DecodeBytes(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	state, err := fromRLPState(raw.State)
	if err != nil {
		return nil, err
	}
	return &Snapshot{
		Height:  int64(raw.Height),
		AppHash: raw.AppHash,
		State:   state,
	}, nil
}
