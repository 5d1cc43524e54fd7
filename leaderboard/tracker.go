// Package leaderboard tracks cumulative transaction volume per account and keeps
// a three-slot top set used to split a reward pool between the biggest accounts.
//
// A Tracker is not safe for concurrent use. The host delivers one call at a time
// and every call either completes or returns an error without touching state.
package leaderboard

import (
	"fmt"

	"github.com/cometbft/cometbft/libs/log"

	"github.com/ahwlsqja/volrank/types"
)

type trackerError string

func (e trackerError) Error() string {
	return string(e)
}

// ErrMissingAccount is returned when an update expects the account to be a top set
// member and it is not. The call is aborted.
const ErrMissingAccount = trackerError("account missing from top set")

// Action describes what an update did to the top set.
type Action string

const (
	ActionLedgerOnly Action = "ledger_only" // top set unchanged
	ActionInserted   Action = "inserted"    // account took a free slot
	ActionIncreased  Action = "increased"   // member volume raised
	ActionEvicted    Action = "evicted"     // account replaced the minimum member
)

// Outcome reports the effect of a successful Update.
type Outcome struct {
	Account types.Account
	Volume  types.Volume // ledger volume after the update
	Action  Action
	Evicted types.Account // set only for ActionEvicted
}

// Tracker holds the ledger, the top set and the reward pool.
type Tracker struct {
	ledger *accountMap
	top    *accountMap
	pool   uint32

	logger log.Logger
}

// NewTracker creates an empty tracker with the default pool.
func NewTracker(logger log.Logger) *Tracker {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Tracker{
		ledger: newAccountMap(),
		top:    newAccountMap(),
		pool:   types.DefaultPool,
		logger: logger,
	}
}

// Restore rebuilds a tracker from a persisted state, keeping iteration order.
func Restore(state *types.State, logger log.Logger) (*Tracker, error) {
	t := NewTracker(logger)
	if state == nil {
		return t, nil
	}
	if len(state.TopSet) > types.TopCapacity {
		return nil, fmt.Errorf("top set holds %d entries, capacity is %d", len(state.TopSet), types.TopCapacity)
	}
	for _, e := range state.Ledger {
		if _, dup := t.ledger.Insert(e.Account, e.Volume); dup {
			return nil, fmt.Errorf("duplicate ledger account %q", e.Account)
		}
	}
	for _, e := range state.TopSet {
		if _, dup := t.top.Insert(e.Account, e.Volume); dup {
			return nil, fmt.Errorf("duplicate top set account %q", e.Account)
		}
	}
	t.pool = state.Pool
	return t, nil
}

// Export returns the tracker state in iteration order.
func (t *Tracker) Export() *types.State {
	return &types.State{
		Ledger: t.ledger.Entries(),
		TopSet: t.top.Entries(),
		Pool:   t.pool,
	}
}

// Clone returns an independent deep copy sharing the logger.
func (t *Tracker) Clone() *Tracker {
	return &Tracker{
		ledger: t.ledger.clone(),
		top:    t.top.clone(),
		pool:   t.pool,
		logger: t.logger,
	}
}

// LedgerLen returns the number of ledger accounts.
func (t *Tracker) LedgerLen() int {
	return t.ledger.Len()
}

// TopLen returns the number of occupied top set slots.
func (t *Tracker) TopLen() int {
	return t.top.Len()
}

// TopVolume returns the top set volume of acc.
func (t *Tracker) TopVolume(acc types.Account) (types.Volume, bool) {
	return t.top.Get(acc)
}

// ================================================================================
//                          Top set
// ================================================================================

// MinAccount returns the top set member with the smallest volume. Ties go to the
// first member in iteration order. An empty top set yields the sentinel paired
// with MaxVolume, which any candidate can beat except MaxVolume itself.
func (t *Tracker) MinAccount() (types.Account, types.Volume) {
	minAcc := types.DefaultAccount
	minVol := types.MaxVolume()
	for i := range t.top.keys {
		if t.top.vals[i].Lt(minVol) {
			minAcc = t.top.keys[i]
			minVol = t.top.vals[i]
		}
	}
	t.logger.Debug("min acc", "account", minAcc, "volume", minVol)
	return minAcc, minVol
}

// Top returns the three leaderboard slots in top set iteration order, not by rank.
func (t *Tracker) Top() types.TopSlots {
	slots := types.EmptyTopSlots()
	for i, acc := range t.top.keys {
		if i >= len(slots) {
			break
		}
		slots[i] = acc
	}
	return slots
}

// Update adds amount to the ledger volume of acc and refreshes the top set.
//
// For an account already in the ledger while the top set has a free slot, the
// account must be a top set member; otherwise ErrMissingAccount aborts the call.
func (t *Tracker) Update(acc types.Account, amount types.Volume) (Outcome, error) {
	out := Outcome{Account: acc, Action: ActionLedgerOnly}

	if old, ok := t.ledger.Get(acc); ok {
		current, err := old.CheckedAdd(amount)
		if err != nil {
			return Outcome{}, fmt.Errorf("ledger volume of %q: %w", acc, err)
		}
		out.Volume = current

		if t.top.Len() < types.TopCapacity || t.top.Has(acc) {
			topOld, ok := t.top.Get(acc)
			if !ok {
				return Outcome{}, fmt.Errorf("%w: %q", ErrMissingAccount, acc)
			}
			topCurrent, err := topOld.CheckedAdd(amount)
			if err != nil {
				return Outcome{}, fmt.Errorf("top set volume of %q: %w", acc, err)
			}
			// remove + insert moves the account to the end of iteration
			t.ledger.Remove(acc)
			t.ledger.Insert(acc, current)
			t.top.Remove(acc)
			t.top.Insert(acc, topCurrent)
			out.Action = ActionIncreased
		} else {
			t.ledger.Remove(acc)
			t.ledger.Insert(acc, current)
			t.admit(acc, current, &out)
		}
	} else {
		t.ledger.Insert(acc, amount)
		out.Volume = amount
		if t.top.Len() < types.TopCapacity {
			t.top.Insert(acc, amount)
			out.Action = ActionInserted
		} else {
			t.admit(acc, amount, &out)
		}
	}

	minAcc, minVol := t.MinAccount()
	t.logger.Debug("minacc", "account", minAcc, "volume", minVol)
	return out, nil
}

// admit evicts the minimum member when vol strictly exceeds it. Ties do not evict.
func (t *Tracker) admit(acc types.Account, vol types.Volume, out *Outcome) {
	minAcc, minVol := t.MinAccount()
	if !vol.Gt(minVol) {
		return
	}
	t.top.Remove(minAcc)
	t.top.Insert(acc, vol)
	out.Action = ActionEvicted
	out.Evicted = minAcc
}

// ================================================================================
//                          Rewards
// ================================================================================

// CalculateReward splits the pool between the leaderboard slots in proportion to
// their top set volume, rounding each share down. Sentinel slots get nothing.
// A zero total with at least one member aborts with ErrDivisionByZero.
func (t *Tracker) CalculateReward() ([types.TopCapacity]types.Reward, error) {
	var rewards [types.TopCapacity]types.Reward
	slots := t.Top()
	pool := types.NewVolume(uint64(t.pool))

	var total types.Volume
	for _, acc := range slots {
		vol, ok := t.top.Get(acc)
		if !ok {
			continue
		}
		sum, err := total.CheckedAdd(vol)
		if err != nil {
			return rewards, fmt.Errorf("reward total: %w", err)
		}
		total = sum
	}

	for i, acc := range slots {
		rewards[i] = types.Reward{Account: acc}
		vol, ok := t.top.Get(acc)
		if !ok {
			continue
		}
		scaled, err := vol.CheckedMul(pool)
		if err != nil {
			return rewards, fmt.Errorf("reward of %q: %w", acc, err)
		}
		share, err := scaled.CheckedDiv(total)
		if err != nil {
			return rewards, fmt.Errorf("reward of %q: %w", acc, err)
		}
		rewards[i].Amount = share
	}

	for _, r := range rewards {
		t.logger.Info("reward", "account", r.Account, "amount", r.Amount)
	}
	return rewards, nil
}

// ================================================================================
//                          Ledger and pool accessors
// ================================================================================

// Volume returns the ledger volume of acc.
func (t *Tracker) Volume(acc types.Account) (types.Volume, bool) {
	t.logger.Debug("read", "account", acc)
	return t.ledger.Get(acc)
}

// Delete removes acc from the ledger only. A top set member stays in the top set.
func (t *Tracker) Delete(acc types.Account) {
	t.logger.Debug("delete", "account", acc)
	t.ledger.Remove(acc)
}

// SetPool sets the reward pool size.
func (t *Tracker) SetPool(pool uint32) {
	t.pool = pool
}

// SetPoolToDefault restores the pool to DefaultPool.
func (t *Tracker) SetPoolToDefault() {
	t.pool = types.DefaultPool
}

// Pool returns the reward pool size.
func (t *Tracker) Pool() uint32 {
	return t.pool
}

// Clear empties the ledger and the top set. The pool is kept.
func (t *Tracker) Clear() {
	t.ledger.Clear()
	t.top.Clear()
}
