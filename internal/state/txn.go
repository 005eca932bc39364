package state

import (
	"bytes"
	"sort"
)

// Write is one committed mutation, in commit order by key. Deleted writes
// carry a nil value.
type Write struct {
	Key     []byte
	Value   []byte
	Deleted bool
}

// Txn buffers writes against a base store. Nothing is visible to the base
// (or to other transactions) until Commit; Discard throws the buffer away.
// This is the transactional invocation boundary the ledger relies on.
type Txn struct {
	base    KV
	writes  map[string][]byte
	deletes map[string]struct{}
	done    bool
}

// NewTxn opens a transaction over base.
func NewTxn(base KV) *Txn {
	return &Txn{
		base:    base,
		writes:  make(map[string][]byte),
		deletes: make(map[string]struct{}),
	}
}

// Get reads through the buffer first, then the base.
func (t *Txn) Get(key []byte) ([]byte, bool) {
	k := string(key)
	if _, ok := t.deletes[k]; ok {
		return nil, false
	}
	if v, ok := t.writes[k]; ok {
		out := make([]byte, len(v))
		copy(out, v)
		return out, true
	}
	return t.base.Get(key)
}

// Set buffers a write.
func (t *Txn) Set(key, value []byte) {
	k := string(key)
	v := make([]byte, len(value))
	copy(v, value)
	delete(t.deletes, k)
	t.writes[k] = v
}

// Delete buffers a removal.
func (t *Txn) Delete(key []byte) {
	k := string(key)
	delete(t.writes, k)
	t.deletes[k] = struct{}{}
}

// Iterate merges buffered and base entries under prefix in ascending key
// order. Buffered writes shadow base values; buffered deletes hide them.
func (t *Txn) Iterate(prefix []byte, fn func(key, value []byte) bool) {
	merged := make(map[string][]byte)
	t.base.Iterate(prefix, func(key, value []byte) bool {
		merged[string(key)] = value
		return true
	})
	for k, v := range t.writes {
		if bytes.HasPrefix([]byte(k), prefix) {
			merged[k] = v
		}
	}
	for k := range t.deletes {
		delete(merged, k)
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if !fn([]byte(k), merged[k]) {
			return
		}
	}
}

// Writes returns the buffered mutations sorted by key without applying
// them, so a caller can mirror the buffer to durable storage before the
// in-memory commit.
func (t *Txn) Writes() []Write {
	out := make([]Write, 0, len(t.writes)+len(t.deletes))
	for k, v := range t.writes {
		out = append(out, Write{Key: []byte(k), Value: v})
	}
	for k := range t.deletes {
		out = append(out, Write{Key: []byte(k), Deleted: true})
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i].Key, out[j].Key) < 0
	})
	return out
}

// Commit applies the buffer to the base store and returns the applied
// writes sorted by key. A committed or discarded transaction must not be
// reused.
func (t *Txn) Commit() []Write {
	if t.done {
		return nil
	}
	t.done = true

	out := t.Writes()
	for _, w := range out {
		if w.Deleted {
			t.base.Delete(w.Key)
		} else {
			t.base.Set(w.Key, w.Value)
		}
	}
	return out
}

// Discard drops the buffer without touching the base.
func (t *Txn) Discard() {
	t.done = true
	t.writes = nil
	t.deletes = nil
}
