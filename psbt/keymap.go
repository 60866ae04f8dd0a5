// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package psbt

import (
	"sort"
)

// KeyMap is a mapping from byte-string keys to values that remembers the
// order in which keys were first inserted. Iteration follows insertion order,
// while Equal ignores it. The zero value is an empty map ready to use.
//
// KeyMap is not safe for concurrent mutation.
type KeyMap[V any] struct {
	keys   []string
	values map[string]V
}

// Len returns the number of entries in the map.
func (m *KeyMap[V]) Len() int {
	return len(m.keys)
}

// IsEmpty returns true if the map holds no entries.
func (m *KeyMap[V]) IsEmpty() bool {
	return len(m.keys) == 0
}

// Set stores value under key. Overwriting an existing key keeps its original
// position.
func (m *KeyMap[V]) Set(key []byte, value V) {
	if m.values == nil {
		m.values = make(map[string]V)
	}

	k := string(key)
	if _, ok := m.values[k]; !ok {
		m.keys = append(m.keys, k)
	}
	m.values[k] = value
}

// Get returns the value stored under key.
func (m *KeyMap[V]) Get(key []byte) (V, bool) {
	v, ok := m.values[string(key)]
	return v, ok
}

// Has returns true if key is present.
func (m *KeyMap[V]) Has(key []byte) bool {
	_, ok := m.values[string(key)]
	return ok
}

// Keys returns the keys in insertion order.
func (m *KeyMap[V]) Keys() [][]byte {
	keys := make([][]byte, 0, len(m.keys))
	for _, k := range m.keys {
		keys = append(keys, []byte(k))
	}

	return keys
}

// Values returns the values in insertion order.
func (m *KeyMap[V]) Values() []V {
	values := make([]V, 0, len(m.keys))
	for _, k := range m.keys {
		values = append(values, m.values[k])
	}

	return values
}

// ForEach calls f for every entry in insertion order, stopping early if f
// returns false.
func (m *KeyMap[V]) ForEach(f func(key []byte, value V) bool) {
	for _, k := range m.keys {
		if !f([]byte(k), m.values[k]) {
			return
		}
	}
}

// sortedKeys returns the keys in lexicographic order, which is the order
// entries are written to the wire.
func (m *KeyMap[V]) sortedKeys() []string {
	keys := make([]string, len(m.keys))
	copy(keys, m.keys)
	sort.Strings(keys)

	return keys
}

// Clear removes every entry.
func (m *KeyMap[V]) Clear() {
	m.keys = nil
	m.values = nil
}

// Clone returns a copy of the map. Values are passed through clone, which
// may be nil when values are immutable.
func (m *KeyMap[V]) Clone(clone func(V) V) KeyMap[V] {
	var out KeyMap[V]
	for _, k := range m.keys {
		v := m.values[k]
		if clone != nil {
			v = clone(v)
		}
		out.Set([]byte(k), v)
	}

	return out
}

// Merge adds every entry of other to m. On key collision the value from
// other wins.
func (m *KeyMap[V]) Merge(other *KeyMap[V], clone func(V) V) {
	for _, k := range other.keys {
		v := other.values[k]
		if clone != nil {
			v = clone(v)
		}
		m.Set([]byte(k), v)
	}
}

// Equal reports whether both maps hold the same keys with values considered
// equal by eq, regardless of insertion order.
func (m *KeyMap[V]) Equal(other *KeyMap[V], eq func(a, b V) bool) bool {
	if m.Len() != other.Len() {
		return false
	}

	for _, k := range m.keys {
		ov, ok := other.values[k]
		if !ok || !eq(m.values[k], ov) {
			return false
		}
	}

	return true
}
