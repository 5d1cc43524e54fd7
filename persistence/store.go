// Package persistence stores the tracker state between calls.
// 원장과 상위 집합을 별도 키 공간에 저장하고 복구하는 기능을 제공
package persistence

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/ahwlsqja/volrank/types"
)

// Key namespaces. The ledger and the top set never share a key.
var (
	ledgerPrefix = []byte("a")
	topPrefix    = []byte("t")
	poolKey      = []byte("p")
	metaKey      = []byte("m")
)

// Snapshot is a committed tracker state.
type Snapshot struct {
	Height  int64        // 마지막 커밋 높이
	AppHash []byte       // 마지막 앱 해시
	State   *types.State // 원장, 상위 집합, 풀
}

// Store persists tracker snapshots.
type Store interface {
	// SaveState replaces the stored snapshot atomically.
	SaveState(snap *Snapshot) error
	// LoadState returns the stored snapshot, or nil if nothing was saved yet.
	LoadState() (*Snapshot, error)

	Close() error
}

// ================================================================================
//                          LevelDB Store 구현
// ================================================================================

// LevelStore keeps each map entry under its own key: prefix followed by the
// big-endian slot index, so key order is iteration order.
type LevelStore struct {
	mu sync.Mutex
	db *leveldb.DB
}

// NewLevelStore creates or opens a LevelDB database at path.
func NewLevelStore(path string) (*LevelStore, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open leveldb at %s: %w", path, err)
	}
	return &LevelStore{db: db}, nil
}

func entryKey(prefix []byte, index int) []byte {
	key := make([]byte, len(prefix)+8)
	copy(key, prefix)
	binary.BigEndian.PutUint64(key[len(prefix):], uint64(index))
	return key
}

// SaveState rewrites both namespaces and the scalars in one batch.
func (ls *LevelStore) SaveState(snap *Snapshot) error {
	if snap == nil || snap.State == nil {
		return fmt.Errorf("snapshot is nil")
	}
	if snap.Height < 0 {
		return fmt.Errorf("negative height %d", snap.Height)
	}

	ls.mu.Lock()
	defer ls.mu.Unlock()

	batch := new(leveldb.Batch)
	for _, prefix := range [][]byte{ledgerPrefix, topPrefix} {
		iter := ls.db.NewIterator(util.BytesPrefix(prefix), nil)
		for iter.Next() {
			batch.Delete(append([]byte(nil), iter.Key()...))
		}
		iter.Release()
		if err := iter.Error(); err != nil {
			return fmt.Errorf("failed to scan %q namespace: %w", prefix, err)
		}
	}

	if err := putEntries(batch, ledgerPrefix, snap.State.Ledger); err != nil {
		return fmt.Errorf("ledger: %w", err)
	}
	if err := putEntries(batch, topPrefix, snap.State.TopSet); err != nil {
		return fmt.Errorf("top set: %w", err)
	}

	pool, err := rlp.EncodeToBytes(snap.State.Pool)
	if err != nil {
		return fmt.Errorf("failed to encode pool: %w", err)
	}
	batch.Put(poolKey, pool)

	meta, err := rlp.EncodeToBytes(rlpMeta{Height: uint64(snap.Height), AppHash: snap.AppHash})
	if err != nil {
		return fmt.Errorf("failed to encode meta: %w", err)
	}
	batch.Put(metaKey, meta)

	if err := ls.db.Write(batch, nil); err != nil {
		return fmt.Errorf("failed to write state: %w", err)
	}
	return nil
}

func putEntries(batch *leveldb.Batch, prefix []byte, entries []types.Entry) error {
	for i, e := range entries {
		value, err := rlp.EncodeToBytes(rlpEntry{Account: string(e.Account), Volume: e.Volume.Big()})
		if err != nil {
			return fmt.Errorf("failed to encode entry %q: %w", e.Account, err)
		}
		batch.Put(entryKey(prefix, i), value)
	}
	return nil
}

// LoadState reads the snapshot back in slot order.
func (ls *LevelStore) LoadState() (*Snapshot, error) {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	metaBytes, err := ls.db.Get(metaKey, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, nil // 저장된 상태가 없으면 nil 반환
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read meta: %w", err)
	}
	var meta rlpMeta
	if err := rlp.DecodeBytes(metaBytes, &meta); err != nil {
		return nil, fmt.Errorf("failed to decode meta: %w", err)
	}

	state := types.NewState()
	poolBytes, err := ls.db.Get(poolKey, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to read pool: %w", err)
	}
	if err := rlp.DecodeBytes(poolBytes, &state.Pool); err != nil {
		return nil, fmt.Errorf("failed to decode pool: %w", err)
	}

	if state.Ledger, err = ls.loadEntries(ledgerPrefix); err != nil {
		return nil, fmt.Errorf("ledger: %w", err)
	}
	if state.TopSet, err = ls.loadEntries(topPrefix); err != nil {
		return nil, fmt.Errorf("top set: %w", err)
	}

	return &Snapshot{
		Height:  int64(meta.Height),
		AppHash: meta.AppHash,
		State:   state,
	}, nil
}

func (ls *LevelStore) loadEntries(prefix []byte) ([]types.Entry, error) {
	iter := ls.db.NewIterator(util.BytesPrefix(prefix), nil)
	defer iter.Release()

	raw := make([]rlpEntry, 0)
	for iter.Next() {
		var e rlpEntry
		if err := rlp.DecodeBytes(iter.Value(), &e); err != nil {
			return nil, fmt.Errorf("failed to decode key %x: %w", iter.Key(), err)
		}
		raw = append(raw, e)
	}
	if err := iter.Error(); err != nil {
		return nil, err
	}
	return fromRLPEntries(raw)
}

// Close closes the database.
func (ls *LevelStore) Close() error {
	return ls.db.Close()
}

// ================================================================================
//                          Memory Store (테스트용)
// ================================================================================

// MemoryStore keeps the encoded snapshot in memory.
type MemoryStore struct {
	mu   sync.RWMutex
	data []byte
}

// NewMemoryStore creates a new memory-based store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// SaveState saves the snapshot.
func (ms *MemoryStore) SaveState(snap *Snapshot) error {
	data, err := EncodeSnapshot(snap)
	if err != nil {
		return err
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.data = data
	return nil
}

// LoadState loads the snapshot.
func (ms *MemoryStore) LoadState() (*Snapshot, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	if ms.data == nil {
		return nil, nil
	}
	return DecodeSnapshot(ms.data)
}

// Close closes the store.
func (ms *MemoryStore) Close() error {
	return nil
}
