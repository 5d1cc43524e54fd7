package leaderboard

import (
	"errors"
	"reflect"
	"testing"

	"pgregory.net/rapid"

	"github.com/ahwlsqja/volrank/types"
)

var propertyAccounts = []types.Account{"alice", "bob", "carol", "dave", "erin", "frank"}

func TestTopSetBoundedUnderRandomUpdates(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		tr := NewTracker(nil)
		steps := rapid.IntRange(1, 60).Draw(rt, "steps")

		for i := 0; i < steps; i++ {
			acc := rapid.SampledFrom(propertyAccounts).Draw(rt, "account")

			if rapid.IntRange(0, 9).Draw(rt, "op") == 0 {
				tr.Delete(acc)
				continue
			}
			amount := types.NewVolume(rapid.Uint64Range(0, 1000).Draw(rt, "amount"))

			before := tr.Export()
			wasFull := tr.TopLen() == types.TopCapacity
			_, wasMember := tr.TopVolume(acc)
			_, minVol := tr.Clone().MinAccount()
			prev, inLedger := tr.Volume(acc)

			out, err := tr.Update(acc, amount)
			if err != nil {
				if !errors.Is(err, ErrMissingAccount) {
					rt.Fatalf("unexpected error: %v", err)
				}
				if !reflect.DeepEqual(before, tr.Export()) {
					rt.Fatalf("aborted update changed state")
				}
				continue
			}

			if tr.TopLen() > types.TopCapacity {
				rt.Fatalf("top set grew to %d", tr.TopLen())
			}

			// 정원이 찬 상태에서 비회원 후보는 최소값을 엄격히 넘을 때만 진입
			if wasFull && !wasMember {
				newVol := amount
				if inLedger {
					newVol, _ = prev.CheckedAdd(amount)
				}
				admitted := out.Action == ActionEvicted
				if admitted != newVol.Gt(minVol) {
					rt.Fatalf("admission of %s with %s against min %s: got %v", acc, newVol, minVol, out.Action)
				}
				if !admitted && !reflect.DeepEqual(before.TopSet, tr.Export().TopSet) {
					rt.Fatalf("top set changed without admission")
				}
			}
		}
	})
}

func TestRewardsNeverExceedPool(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		tr := NewTracker(nil)
		tr.SetPool(rapid.Uint32().Draw(rt, "pool"))

		n := rapid.IntRange(1, 10).Draw(rt, "updates")
		for i := 0; i < n; i++ {
			acc := rapid.SampledFrom(propertyAccounts).Draw(rt, "account")
			amount := types.NewVolume(rapid.Uint64Range(1, 1<<40).Draw(rt, "amount"))
			if _, err := tr.Update(acc, amount); err != nil {
				rt.Fatalf("update: %v", err)
			}
		}

		rewards, err := tr.CalculateReward()
		if err != nil {
			rt.Fatalf("calculate reward: %v", err)
		}
		var paid types.Volume
		for _, r := range rewards {
			paid, err = paid.CheckedAdd(r.Amount)
			if err != nil {
				rt.Fatalf("sum rewards: %v", err)
			}
		}
		if paid.Gt(types.NewVolume(uint64(tr.Pool()))) {
			rt.Fatalf("paid %s out of a pool of %d", paid, tr.Pool())
		}
	})
}
