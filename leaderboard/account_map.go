package leaderboard

import (
	"github.com/ahwlsqja/volrank/types"
)

// accountMap is an account → volume map that iterates in slot order.
// New keys are appended, existing keys are overwritten in place and a removed
// key's slot is filled by the last entry (swap-remove).
type accountMap struct {
	keys  []types.Account
	vals  []types.Volume
	index map[types.Account]int
}

func newAccountMap() *accountMap {
	return &accountMap{
		keys:  make([]types.Account, 0),
		vals:  make([]types.Volume, 0),
		index: make(map[types.Account]int),
	}
}

// Len returns the number of entries.
func (m *accountMap) Len() int {
	return len(m.keys)
}

// Get returns the volume stored for acc.
func (m *accountMap) Get(acc types.Account) (types.Volume, bool) {
	i, ok := m.index[acc]
	if !ok {
		return types.Volume{}, false
	}
	return m.vals[i], true
}

// Has reports whether acc is present.
func (m *accountMap) Has(acc types.Account) bool {
	_, ok := m.index[acc]
	return ok
}

// Insert stores vol for acc and returns the previous value, if any.
func (m *accountMap) Insert(acc types.Account, vol types.Volume) (types.Volume, bool) {
	if i, ok := m.index[acc]; ok {
		old := m.vals[i]
		m.vals[i] = vol
		return old, true
	}
	m.index[acc] = len(m.keys)
	m.keys = append(m.keys, acc)
	m.vals = append(m.vals, vol)
	return types.Volume{}, false
}

// Remove deletes acc and returns its volume. The last entry takes over the freed slot.
func (m *accountMap) Remove(acc types.Account) (types.Volume, bool) {
	i, ok := m.index[acc]
	if !ok {
		return types.Volume{}, false
	}
	old := m.vals[i]
	last := len(m.keys) - 1

	if i != last {
		m.keys[i] = m.keys[last]
		m.vals[i] = m.vals[last]
		m.index[m.keys[i]] = i
	}
	m.keys = m.keys[:last]
	m.vals = m.vals[:last]
	delete(m.index, acc)

	return old, true
}

// Clear removes every entry.
func (m *accountMap) Clear() {
	m.keys = m.keys[:0]
	m.vals = m.vals[:0]
	m.index = make(map[types.Account]int)
}

// Entries returns a copy of the entries in iteration order.
func (m *accountMap) Entries() []types.Entry {
	out := make([]types.Entry, len(m.keys))
	for i := range m.keys {
		out[i] = types.Entry{Account: m.keys[i], Volume: m.vals[i]}
	}
	return out
}

func (m *accountMap) clone() *accountMap {
	c := &accountMap{
		keys:  make([]types.Account, len(m.keys)),
		vals:  make([]types.Volume, len(m.vals)),
		index: make(map[types.Account]int, len(m.index)),
	}
	copy(c.keys, m.keys)
	copy(c.vals, m.vals)
	for k, v := range m.index {
		c.index[k] = v
	}
	return c
}
