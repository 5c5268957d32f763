// Package store defines the key-value storage abstraction the engine
// runs on (§5, §6.2) and an in-memory implementation used by tests and
// the demo CLI. The host's hosting execution environment is explicitly
// out of scope (§1): production deployments supply their own KVStore
// backed by whatever persistent store the host offers.
package store

import (
	"sort"
	"strings"
)

// KVStore is the storage surface the engine depends on: flat byte-key to
// byte-value with prefix iteration for range/pagination queries (§6.2,
// §9 "sparse tick domain" / "pagination bounds").
type KVStore interface {
	Get(key []byte) ([]byte, bool)
	Set(key, value []byte)
	Delete(key []byte)
	// Iterate calls fn for every key with the given prefix, in ascending
	// key order, until fn returns false.
	Iterate(prefix []byte, fn func(key, value []byte) bool)
}

// Tx is a transaction context (§5, §9 "scoped acquisition of storage
// handles"): every core entry point receives one instead of a bare
// store reference, so that commit/abort is explicit and mutations never
// leak outside the bounds of one request.
//
// Begin/Commit/Abort model the single-threaded cooperative transaction
// semantics of §5: a request applies its writes to a staged overlay and
// only Commit publishes them to the underlying store; Abort discards the
// overlay with no observable side effect.
type Tx struct {
	base    KVStore
	writes  map[string][]byte
	deletes map[string]struct{}
}

// Begin opens a transaction over base. The returned Tx buffers all
// writes/deletes until Commit publishes them atomically.
func Begin(base KVStore) *Tx {
	return &Tx{
		base:    base,
		writes:  make(map[string][]byte),
		deletes: make(map[string]struct{}),
	}
}

func (tx *Tx) Get(key []byte) ([]byte, bool) {
	k := string(key)
	if _, deleted := tx.deletes[k]; deleted {
		return nil, false
	}
	if v, ok := tx.writes[k]; ok {
		return v, true
	}
	return tx.base.Get(key)
}

func (tx *Tx) Set(key, value []byte) {
	k := string(key)
	delete(tx.deletes, k)
	tx.writes[k] = append([]byte(nil), value...)
}

func (tx *Tx) Delete(key []byte) {
	k := string(key)
	delete(tx.writes, k)
	tx.deletes[k] = struct{}{}
}

// Iterate merges the base store with this transaction's staged writes,
// so in-flight reads within a transaction see its own uncommitted
// mutations (read-your-writes), per §5's single-transaction isolation.
func (tx *Tx) Iterate(prefix []byte, fn func(key, value []byte) bool) {
	seen := make(map[string]bool)
	keys := make([]string, 0)
	values := make(map[string][]byte)

	tx.base.Iterate(prefix, func(key, value []byte) bool {
		k := string(key)
		if _, deleted := tx.deletes[k]; deleted {
			return true
		}
		if _, overwritten := tx.writes[k]; overwritten {
			return true
		}
		keys = append(keys, k)
		values[k] = value
		seen[k] = true
		return true
	})

	p := string(prefix)
	for k, v := range tx.writes {
		if !strings.HasPrefix(k, p) || seen[k] {
			continue
		}
		keys = append(keys, k)
		values[k] = v
	}

	sort.Strings(keys)
	for _, k := range keys {
		if !fn([]byte(k), values[k]) {
			return
		}
	}
}

// Commit publishes every buffered write/delete to the base store.
func (tx *Tx) Commit() {
	for k := range tx.deletes {
		tx.base.Delete([]byte(k))
	}
	for k, v := range tx.writes {
		tx.base.Set([]byte(k), v)
	}
}

// Abort discards every buffered write/delete with no effect on base.
func (tx *Tx) Abort() {
	tx.writes = make(map[string][]byte)
	tx.deletes = make(map[string]struct{})
}

// Memory is an in-process KVStore, the backing store for tests and the
// demo CLI (production hosts supply their own, per §1).
type Memory struct {
	data map[string][]byte
}

func NewMemory() *Memory { return &Memory{data: make(map[string][]byte)} }

func (m *Memory) Get(key []byte) ([]byte, bool) {
	v, ok := m.data[string(key)]
	return v, ok
}

func (m *Memory) Set(key, value []byte) {
	m.data[string(key)] = append([]byte(nil), value...)
}

func (m *Memory) Delete(key []byte) {
	delete(m.data, string(key))
}

func (m *Memory) Iterate(prefix []byte, fn func(key, value []byte) bool) {
	p := string(prefix)
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		if strings.HasPrefix(k, p) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		if !fn([]byte(k), m.data[k]) {
			return
		}
	}
}
