// Package state provides the key-value substrate the ledger runs on: an
// in-memory canonical store plus a write-buffer transaction that gives each
// invocation all-or-nothing visibility.
package state

import (
	"bytes"
	"sort"
)

// KV is the read/write surface contract code runs against. Keys are opaque
// byte strings; iteration is in ascending key order.
type KV interface {
	Get(key []byte) ([]byte, bool)
	Set(key, value []byte)
	Delete(key []byte)
	// Iterate visits entries whose key has the given prefix, in ascending
	// key order. fn returns false to stop early.
	Iterate(prefix []byte, fn func(key, value []byte) bool)
}

// MemStore is the canonical in-memory store. It is not safe for concurrent
// use; the host serializes invocations around it.
type MemStore struct {
	data map[string][]byte
}

// NewMemStore creates an empty store.
func NewMemStore() *MemStore {
	return &MemStore{data: make(map[string][]byte)}
}

// Get returns the value for key and whether it exists.
func (s *MemStore) Get(key []byte) ([]byte, bool) {
	v, ok := s.data[string(key)]
	if !ok {
		return nil, false
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, true
}

// Set stores a copy of value under key.
func (s *MemStore) Set(key, value []byte) {
	v := make([]byte, len(value))
	copy(v, value)
	s.data[string(key)] = v
}

// Delete removes key. Deleting an absent key is a no-op.
func (s *MemStore) Delete(key []byte) {
	delete(s.data, string(key))
}

// Iterate visits entries under prefix in ascending key order.
func (s *MemStore) Iterate(prefix []byte, fn func(key, value []byte) bool) {
	keys := make([]string, 0)
	for k := range s.data {
		if bytes.HasPrefix([]byte(k), prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		if !fn([]byte(k), s.data[k]) {
			return
		}
	}
}

// Len returns the number of stored entries.
func (s *MemStore) Len() int {
	return len(s.data)
}
