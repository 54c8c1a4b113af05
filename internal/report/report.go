// Package report accumulates run statistics and formats the per-batch
// progress lines the CLI prints, in the same "info <k v k v ...>" style
// the engine's UCI layer uses for search info.
package report

import (
	"fmt"
	"runtime"
	"strings"
	"sync/atomic"
	"time"
)

// Stats holds the monotonic counters the expander updates concurrently.
// Reads are eventually consistent with respect to in-flight writers.
type Stats struct {
	Nodes    atomic.Uint64 // positions dequeued for expansion
	Gets     atomic.Uint64 // DB probes issued
	Hits     atomic.Uint64 // probes that were in the DB
	Assigned atomic.Uint64 // positions newly added to a visited set, run-wide
}

// Snapshot is a point-in-time read of Stats.
type Snapshot struct {
	Nodes, Gets, Hits, Assigned uint64
}

// Snapshot reads the current counter values.
func (s *Stats) Snapshot() Snapshot {
	return Snapshot{
		Nodes:    s.Nodes.Load(),
		Gets:     s.Gets.Load(),
		Hits:     s.Hits.Load(),
		Assigned: s.Assigned.Load(),
	}
}

// Iteration describes one completed batch (one progress partition).
type Iteration struct {
	Index          int // 0-based batch ordinal
	Partition      int // progress index this batch processed
	PieceCount     int
	PawnProgress   int
	PendingTotal   int // sum of remaining FutureWork sizes after this batch
	PerPly         []int
	CumulativePerPly []int
	Elapsed        time.Duration
	TotalElapsed   time.Duration
	Delta          Snapshot // counters accumulated during this batch
	Totals         Snapshot // counters accumulated over the whole run so far
	AllocBytes     uint64
	SysBytes       uint64
}

// MemorySnapshot returns current heap/system memory usage, the way the
// engine samples runtime.MemStats for its own diagnostics.
func MemorySnapshot() (allocBytes, sysBytes uint64) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return m.Alloc, m.Sys
}

// Line formats one iteration as a single "info"-style progress line.
func Line(it Iteration) string {
	parts := []string{
		fmt.Sprintf("iter %d", it.Index),
		fmt.Sprintf("partition %d", it.Partition),
		fmt.Sprintf("pieces %d", it.PieceCount),
		fmt.Sprintf("pawnprogress %d", it.PawnProgress),
		fmt.Sprintf("pending %d", it.PendingTotal),
		fmt.Sprintf("nodes %d", it.Totals.Nodes),
		fmt.Sprintf("gets %d", it.Totals.Gets),
		fmt.Sprintf("hits %d", it.Totals.Hits),
		fmt.Sprintf("assigned %d", it.Totals.Assigned),
		fmt.Sprintf("mem_alloc_mb %d", it.AllocBytes/(1<<20)),
		fmt.Sprintf("mem_sys_mb %d", it.SysBytes/(1<<20)),
		fmt.Sprintf("time_ms %d", it.Elapsed.Milliseconds()),
		fmt.Sprintf("total_ms %d", it.TotalElapsed.Milliseconds()),
	}

	if it.Elapsed > 0 {
		secs := it.Elapsed.Seconds()
		parts = append(parts,
			fmt.Sprintf("gets_per_sec %.0f", float64(it.Delta.Gets)/secs),
			fmt.Sprintf("hits_per_sec %.0f", float64(it.Delta.Hits)/secs),
			fmt.Sprintf("nodes_per_sec %.0f", float64(it.Delta.Nodes)/secs),
			fmt.Sprintf("assigned_per_sec %.0f", float64(it.Delta.Assigned)/secs),
		)
	}

	return "info " + strings.Join(parts, " ")
}

// Summary is the final report printed (or returned to a caller) once the
// whole run, or one --moves sub-exploration, completes.
type Summary struct {
	Totals       Snapshot
	PerPly       []int
	Iterations   int
	Elapsed      time.Duration
}

// Lines formats the summary the way the final UCI "Nodes/Time/NPS" block
// does: one fact per line.
func (s Summary) Lines() []string {
	lines := []string{
		fmt.Sprintf("Total DB gets: %d", s.Totals.Gets),
		fmt.Sprintf("Total DB hits: %d", s.Totals.Hits),
		fmt.Sprintf("Total positions assigned: %d", s.Totals.Assigned),
		fmt.Sprintf("Batches (progress partitions) processed: %d", s.Iterations),
		fmt.Sprintf("Duration: %s", s.Elapsed),
	}
	if s.Elapsed > 0 {
		lines = append(lines, fmt.Sprintf("DB gets per second: %.0f", float64(s.Totals.Gets)/s.Elapsed.Seconds()))
	}

	total := 0
	lines = append(lines, "Per-ply counts:")
	for ply, count := range s.PerPly {
		total += count
		lines = append(lines, fmt.Sprintf("  ply %3d : %12d  cumulative %12d", ply, count, total))
	}

	return lines
}
