// Package types defines core data structures for the volume leaderboard.
package types

const (
	// DefaultAccount fills a leaderboard slot that has no member.
	DefaultAccount Account = "default"

	// TopCapacity is the number of leaderboard slots.
	TopCapacity = 3

	// DefaultPool is the reward pool size a fresh tracker starts with.
	DefaultPool uint32 = 100
)

// Account is an opaque participant token, unique across the ledger and the top set.
type Account string

// String returns the raw token.
func (a Account) String() string {
	return string(a)
}

// IsDefault reports whether the token is the empty-slot sentinel.
func (a Account) IsDefault() bool {
	return a == DefaultAccount
}

// Entry is one account/volume pair of a ledger or top set, in iteration order.
type Entry struct {
	Account Account `json:"account"`
	Volume  Volume  `json:"volume"`
}

// Reward is the share of the pool paid to one leaderboard slot.
type Reward struct {
	Account Account `json:"account"`
	Amount  Volume  `json:"reward"`
}

// TopSlots is the fixed three-slot leaderboard snapshot.
// 순위가 아닌 반복 순서대로 채워짐
type TopSlots [TopCapacity]Account

// EmptyTopSlots returns a snapshot with every slot set to the sentinel.
func EmptyTopSlots() TopSlots {
	var slots TopSlots
	for i := range slots {
		slots[i] = DefaultAccount
	}
	return slots
}

// State is the persisted layout of a tracker: both maps in iteration order plus the pool.
type State struct {
	Ledger []Entry `json:"ledger"`
	TopSet []Entry `json:"top_set"`
	Pool   uint32  `json:"pool"`
}

// NewState returns the state of a freshly constructed tracker.
func NewState() *State {
	return &State{
		Ledger: []Entry{},
		TopSet: []Entry{},
		Pool:   DefaultPool,
	}
}
