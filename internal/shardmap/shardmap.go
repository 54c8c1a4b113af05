// Package shardmap implements lock-striped concurrent containers keyed by
// chess.PackedKey. A fixed number of shards, each owning its own mutex and
// Go map, distributes contention across workers; the same two types back
// the explorer's FutureWork, VisitedKeys and DepthBuckets roles.
package shardmap

import (
	"sync"

	"github.com/vondele/cdbsubtree/internal/chess"
)

// Shards is the number of stripes each container is split into. It should
// be >= the worker count for good parallelism; 8 matches what the source
// explorer used and comfortably covers typical machine core counts.
const Shards = 8

func shardFor(key chess.PackedKey) int {
	// FNV-1a over the 24 key bytes, folded down to a shard index.
	var h uint64 = 14695981039346656037
	for _, b := range key {
		h ^= uint64(b)
		h *= 1099511628211
	}
	return int(h % Shards)
}

// Set is a lock-striped concurrent set of packed keys.
type Set struct {
	shards [Shards]setShard
}

type setShard struct {
	mu   sync.Mutex
	keys map[chess.PackedKey]struct{}
}

// NewSet creates an empty sharded set.
func NewSet() *Set {
	s := &Set{}
	for i := range s.shards {
		s.shards[i].keys = make(map[chess.PackedKey]struct{})
	}
	return s
}

// InsertIfAbsent returns true iff key was newly added.
func (s *Set) InsertIfAbsent(key chess.PackedKey) bool {
	shard := &s.shards[shardFor(key)]
	shard.mu.Lock()
	defer shard.mu.Unlock()

	if _, ok := shard.keys[key]; ok {
		return false
	}
	shard.keys[key] = struct{}{}
	return true
}

// Size returns the approximate number of keys; exact between batches when
// no writer is active.
func (s *Set) Size() int {
	n := 0
	for i := range s.shards {
		s.shards[i].mu.Lock()
		n += len(s.shards[i].keys)
		s.shards[i].mu.Unlock()
	}
	return n
}

// Clear empties every shard, releasing its backing map.
func (s *Set) Clear() {
	for i := range s.shards {
		s.shards[i].mu.Lock()
		s.shards[i].keys = make(map[chess.PackedKey]struct{})
		s.shards[i].mu.Unlock()
	}
}

// ForEachShard exposes one shard at a time so callers can hand a shard to
// a worker as its unit of parallel work. fn must not call back into s.
func (s *Set) ForEachShard(fn func(keys []chess.PackedKey)) {
	for i := range s.shards {
		shard := &s.shards[i]
		shard.mu.Lock()
		keys := make([]chess.PackedKey, 0, len(shard.keys))
		for k := range shard.keys {
			keys = append(keys, k)
		}
		shard.mu.Unlock()
		fn(keys)
	}
}

// DepthMap is a lock-striped concurrent map from packed key to a remaining
// depth budget (int16, matching FutureWork's storage in the source).
type DepthMap struct {
	shards [Shards]depthShard
}

type depthShard struct {
	mu      sync.Mutex
	entries map[chess.PackedKey]int16
}

// NewDepthMap creates an empty sharded depth map.
func NewDepthMap() *DepthMap {
	m := &DepthMap{}
	for i := range m.shards {
		m.shards[i].entries = make(map[chess.PackedKey]int16)
	}
	return m
}

// Upsert inserts (key, depth) if absent, or replaces the stored depth with
// max(stored, depth) if present. Atomic per key.
func (m *DepthMap) Upsert(key chess.PackedKey, depth int16) {
	shard := &m.shards[shardFor(key)]
	shard.mu.Lock()
	defer shard.mu.Unlock()

	if cur, ok := shard.entries[key]; !ok || depth > cur {
		shard.entries[key] = depth
	}
}

// Size returns the approximate number of entries.
func (m *DepthMap) Size() int {
	n := 0
	for i := range m.shards {
		m.shards[i].mu.Lock()
		n += len(m.shards[i].entries)
		m.shards[i].mu.Unlock()
	}
	return n
}

// Entry is a single (key, depth) pair, returned when draining a DepthMap.
type Entry struct {
	Key   chess.PackedKey
	Depth int16
}

// Drain removes and returns every entry in the map.
func (m *DepthMap) Drain() []Entry {
	var out []Entry
	for i := range m.shards {
		shard := &m.shards[i]
		shard.mu.Lock()
		for k, d := range shard.entries {
			out = append(out, Entry{Key: k, Depth: d})
		}
		shard.entries = make(map[chess.PackedKey]int16)
		shard.mu.Unlock()
	}
	return out
}
