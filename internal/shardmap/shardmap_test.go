package shardmap

import (
	"sync"
	"testing"

	"github.com/vondele/cdbsubtree/internal/chess"
)

func key(b byte) chess.PackedKey {
	var k chess.PackedKey
	k[0] = b
	return k
}

func TestSetInsertIfAbsent(t *testing.T) {
	s := NewSet()

	if !s.InsertIfAbsent(key(1)) {
		t.Fatal("first insert should report newly added")
	}
	if s.InsertIfAbsent(key(1)) {
		t.Fatal("second insert of the same key should report already present")
	}
	if s.Size() != 1 {
		t.Fatalf("Size() = %d, want 1", s.Size())
	}
}

func TestSetClear(t *testing.T) {
	s := NewSet()
	s.InsertIfAbsent(key(1))
	s.InsertIfAbsent(key(2))
	s.Clear()

	if s.Size() != 0 {
		t.Fatalf("Size() after Clear() = %d, want 0", s.Size())
	}
	if !s.InsertIfAbsent(key(1)) {
		t.Fatal("key should be insertable again after Clear()")
	}
}

func TestSetConcurrentInsertIsExclusive(t *testing.T) {
	s := NewSet()
	const attempts = 200

	var wg sync.WaitGroup
	successes := make([]bool, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			successes[i] = s.InsertIfAbsent(key(7))
		}(i)
	}
	wg.Wait()

	count := 0
	for _, ok := range successes {
		if ok {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("exactly one concurrent insert of the same key should succeed, got %d", count)
	}
	if s.Size() != 1 {
		t.Fatalf("Size() = %d, want 1", s.Size())
	}
}

func TestSetForEachShardCoversAllKeys(t *testing.T) {
	s := NewSet()
	for i := 0; i < 50; i++ {
		s.InsertIfAbsent(key(byte(i)))
	}

	seen := make(map[chess.PackedKey]bool)
	s.ForEachShard(func(keys []chess.PackedKey) {
		for _, k := range keys {
			seen[k] = true
		}
	})

	if len(seen) != 50 {
		t.Fatalf("ForEachShard saw %d keys, want 50", len(seen))
	}
}

func TestDepthMapUpsertKeepsMaxDepth(t *testing.T) {
	m := NewDepthMap()
	m.Upsert(key(1), 3)
	m.Upsert(key(1), 7)
	m.Upsert(key(1), 2)

	entries := m.Drain()
	if len(entries) != 1 {
		t.Fatalf("Drain() returned %d entries, want 1", len(entries))
	}
	if entries[0].Depth != 7 {
		t.Fatalf("stored depth = %d, want 7 (the max of 3, 7, 2)", entries[0].Depth)
	}
}

func TestDepthMapDrainEmptiesTheMap(t *testing.T) {
	m := NewDepthMap()
	m.Upsert(key(1), 1)
	m.Upsert(key(2), 1)

	first := m.Drain()
	if len(first) != 2 {
		t.Fatalf("first Drain() returned %d entries, want 2", len(first))
	}

	second := m.Drain()
	if len(second) != 0 {
		t.Fatalf("second Drain() returned %d entries, want 0", len(second))
	}
	if m.Size() != 0 {
		t.Fatalf("Size() after Drain() = %d, want 0", m.Size())
	}
}
