// Package backoff holds the process-local Backoff Table the Batch
// Processor uses to track persistent-drift retry/pow bookkeeping
// between heartbeats. Entries are never persisted; they exist only
// for the lifetime of the process and are rebuilt implicitly (starting
// at {0,0}) if the process restarts mid-drift.
package backoff

import (
	"sync"

	"github.com/vitaliisemenov/driftctl/internal/domain"
)

const shardCount = 32

// Table is a sharded, lock-striped map keyed "serviceName:instanceId",
// mirroring the RWMutex-guarded map-plus-bookkeeping shape used
// elsewhere in this codebase for high-churn, short-lived per-key
// state. Striping across shards keeps contention low when many
// services drift concurrently across partitions.
type Table struct {
	shards [shardCount]*shard
}

type shard struct {
	mu      sync.RWMutex
	entries map[string]domain.BackoffEntry
}

// New creates an empty Backoff Table.
func New() *Table {
	t := &Table{}
	for i := range t.shards {
		t.shards[i] = &shard{entries: make(map[string]domain.BackoffEntry)}
	}
	return t
}

func (t *Table) shardFor(key string) *shard {
	return t.shards[fnv32(key)%shardCount]
}

// Get returns the entry for key and whether it exists.
func (t *Table) Get(key string) (domain.BackoffEntry, bool) {
	s := t.shardFor(key)
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	return e, ok
}

// Set stores entry for key, overwriting any existing value.
func (t *Table) Set(key string, entry domain.BackoffEntry) {
	s := t.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = entry
}

// Clear removes the entry for key, if any. Used on Unknown, resolved,
// and steady-healthy transitions.
func (t *Table) Clear(key string) {
	s := t.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
}

// Len returns the total number of tracked entries across all shards.
// Intended for metrics/diagnostics, not hot-path use.
func (t *Table) Len() int {
	total := 0
	for _, s := range t.shards {
		s.mu.RLock()
		total += len(s.entries)
		s.mu.RUnlock()
	}
	return total
}

// fnv32 is a small, allocation-free string hash used only to pick a
// shard; it has no bearing on correctness, only on contention.
func fnv32(s string) uint32 {
	const (
		offset32 = 2166136261
		prime32  = 16777619
	)
	h := uint32(offset32)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= prime32
	}
	return h
}
