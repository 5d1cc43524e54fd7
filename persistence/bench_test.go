package persistence

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/ahwlsqja/volrank/types"
)

func benchState(n int) *types.State {
	state := types.NewState()
	for i := 0; i < n; i++ {
		state.Ledger = append(state.Ledger, types.Entry{
			Account: types.Account(fmt.Sprintf("acc-%d", i)),
			Volume:  types.NewVolume(uint64(i + 1)),
		})
	}
	state.TopSet = state.Ledger[n-3:]
	return state
}

// BenchmarkStateHash benchmarks the app hash over 1000 ledger entries.
func BenchmarkStateHash(b *testing.B) {
	state := benchState(1000)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = StateHash(state)
	}
}

// BenchmarkLevelStoreSave benchmarks a full rewrite of 1000 ledger entries.
func BenchmarkLevelStoreSave(b *testing.B) {
	store, err := NewLevelStore(filepath.Join(b.TempDir(), "db"))
	if err != nil {
		b.Fatal(err)
	}
	defer store.Close()
	state := benchState(1000)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := store.SaveState(&Snapshot{Height: int64(i + 1), AppHash: []byte("hash"), State: state}); err != nil {
			b.Fatal(err)
		}
	}
}
