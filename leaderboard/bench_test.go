package leaderboard

import (
	"fmt"
	"testing"

	"github.com/ahwlsqja/volrank/types"
)

// BenchmarkTrackerUpdate benchmarks updates spread over 10000 accounts with evictions.
func BenchmarkTrackerUpdate(b *testing.B) {
	tr := NewTracker(nil)
	accounts := make([]types.Account, 10000)
	for i := range accounts {
		accounts[i] = types.Account(fmt.Sprintf("acc-%d", i))
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = tr.Update(accounts[i%len(accounts)], types.NewVolume(uint64(i%97+1)))
	}
}

// BenchmarkCalculateReward benchmarks the reward split over a full top set.
func BenchmarkCalculateReward(b *testing.B) {
	tr := NewTracker(nil)
	for i, acc := range []types.Account{"alice", "bob", "carol"} {
		if _, err := tr.Update(acc, types.NewVolume(uint64(1000*(i+1)))); err != nil {
			b.Fatal(err)
		}
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = tr.CalculateReward()
	}
}
