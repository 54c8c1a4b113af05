// Package explorer is the parallel, progress-stratified subtree walk: it
// drains a queued position, decodes it, probes the database, and routes
// each surviving child to either the current batch's next depth step or a
// future progress partition, the same shape internal/engine's workerSearch
// uses to fan a position out across goroutines and join on a WaitGroup.
package explorer

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/vondele/cdbsubtree/internal/chess"
	"github.com/vondele/cdbsubtree/internal/dbprobe"
	"github.com/vondele/cdbsubtree/internal/progress"
	"github.com/vondele/cdbsubtree/internal/report"
	"github.com/vondele/cdbsubtree/internal/shardmap"
)

// ErrSeedNotInDB is returned by Run when the starting position itself is
// absent from the database; there is nothing to explore.
var ErrSeedNotInDB = errors.New("explorer: seed position not in database")

// NoCPLossLimit disables centipawn-loss pruning: every child the database
// lists is expanded regardless of score.
const NoCPLossLimit = 1 << 30

// Config controls one Run.
type Config struct {
	Depth           int  // ply budget per queued position
	MaxCPLoss       int  // moves scoring worse than best-MaxCPLoss are pruned
	Workers         int  // goroutines per depth-step worker pool; <=0 means GOMAXPROCS
	FindUnseenEdges bool // run the unseen-edge detector alongside expansion
}

// UnseenEntry records one position where legal moves led to database
// positions the probe result didn't list.
type UnseenEntry struct {
	FEN   string
	Count int
}

// Result is everything a Run produced.
type Result struct {
	Summary report.Summary
	Unseen  []UnseenEntry
}

// Explorer drives one exploration against a fixed database.
type Explorer struct {
	prober      dbprobe.Prober
	cfg         Config
	onIteration func(report.Iteration)
}

// New builds an Explorer. onIteration, if non-nil, is called synchronously
// after every batch completes; the CLI uses it to print progress lines.
func New(prober dbprobe.Prober, cfg Config, onIteration func(report.Iteration)) *Explorer {
	return &Explorer{prober: prober, cfg: cfg, onIteration: onIteration}
}

// Run explores the subtree rooted at seedFEN to the configured depth.
func (e *Explorer) Run(seedFEN string) (*Result, error) {
	pos, err := chess.ParseFEN(seedFEN)
	if err != nil {
		return nil, fmt.Errorf("parse seed fen: %w", err)
	}

	seedResult, err := e.prober.Probe(pos.ToFEN(false))
	if err != nil {
		return nil, fmt.Errorf("probe seed: %w", err)
	}
	if !seedResult.InDB() {
		return nil, ErrSeedNotInDB
	}

	rs := newRunState(e.prober, e.cfg)
	seedPartition := progress.Index(pos)
	rs.futureAt(seedPartition).Upsert(chess.EncodePacked(pos), int16(e.cfg.Depth))

	start := time.Now()
	cumulative := make([]int, e.cfg.Depth+1)
	iterIdx := 0

	for p := progress.Max; p >= 0; p-- {
		fw := rs.future[p]
		if fw == nil {
			continue
		}
		entries := fw.Drain()
		rs.future[p] = nil
		if len(entries) == 0 {
			continue
		}

		iterStart := time.Now()
		before := rs.stats.Snapshot()

		perPly := e.runBatch(rs, p, entries)
		if err := rs.err(); err != nil {
			return nil, err
		}

		for d, c := range perPly {
			cumulative[d] += c
		}
		iterIdx++

		if e.onIteration != nil {
			after := rs.stats.Snapshot()
			alloc, sys := report.MemorySnapshot()
			sample := chess.DecodePacked(entries[0].Key)
			e.onIteration(report.Iteration{
				Index:            iterIdx - 1,
				Partition:        p,
				PieceCount:       sample.AllOccupied.PopCount(),
				PawnProgress:     p - (sample.AllOccupied.PopCount()-2)*97,
				PendingTotal:     rs.pendingTotal(),
				PerPly:           perPly,
				CumulativePerPly: append([]int(nil), cumulative...),
				Elapsed:          time.Since(iterStart),
				TotalElapsed:     time.Since(start),
				Delta:            deltaSnapshot(before, after),
				Totals:           after,
				AllocBytes:       alloc,
				SysBytes:         sys,
			})
		}
	}

	totals := rs.stats.Snapshot()
	result := &Result{
		Summary: report.Summary{
			Totals:     totals,
			PerPly:     cumulative,
			Iterations: iterIdx,
			Elapsed:    time.Since(start),
		},
	}
	if e.cfg.FindUnseenEdges {
		result.Unseen = rs.unseen.drain()
	}
	return result, nil
}

func deltaSnapshot(before, after report.Snapshot) report.Snapshot {
	return report.Snapshot{
		Nodes:    after.Nodes - before.Nodes,
		Gets:     after.Gets - before.Gets,
		Hits:     after.Hits - before.Hits,
		Assigned: after.Assigned - before.Assigned,
	}
}

// runBatch drains one progress partition's queued entries depth-first from
// Depth down to 0, one worker-pool join per depth step, and returns the
// number of newly visited positions at each ply of this batch.
func (e *Explorer) runBatch(rs *runState, partition int, entries []shardmap.Entry) []int {
	rs.visited.Clear()

	depthBuckets := make([]*shardmap.Set, e.cfg.Depth+1)
	for d := range depthBuckets {
		depthBuckets[d] = shardmap.NewSet()
	}
	for _, ent := range entries {
		d := int(ent.Depth)
		if d < 0 || d > e.cfg.Depth {
			continue
		}
		depthBuckets[d].InsertIfAbsent(ent.Key)
	}

	perPly := make([]int, e.cfg.Depth+1)
	prevSize := 0

	for d := e.cfg.Depth; d >= 0; d-- {
		bucket := depthBuckets[d]
		var shards [][]chess.PackedKey
		bucket.ForEachShard(func(keys []chess.PackedKey) {
			shards = append(shards, keys)
		})

		rs.runSharded(shards, func(keys []chess.PackedKey) {
			for _, k := range keys {
				rs.expandKey(k, partition, d, depthBuckets)
			}
		})

		if rs.err() != nil {
			return perPly
		}

		size := rs.visited.Size()
		perPly[e.cfg.Depth-d] = size - prevSize
		prevSize = size
	}

	return perPly
}

// runState holds the per-Run mutable state: FutureWork for every progress
// partition, the current batch's VisitedKeys set, accumulated statistics,
// the unseen-edge tracker, and the first fatal error any worker hit.
type runState struct {
	prober dbprobe.Prober
	cfg    Config
	stats  *report.Stats

	future   [progress.Max + 1]*shardmap.DepthMap
	futureMu sync.Mutex

	visited *shardmap.Set
	unseen  *unseenTracker

	errMu    sync.Mutex
	firstErr error
}

func newRunState(prober dbprobe.Prober, cfg Config) *runState {
	return &runState{
		prober:  prober,
		cfg:     cfg,
		stats:   &report.Stats{},
		visited: shardmap.NewSet(),
		unseen:  newUnseenTracker(),
	}
}

func (rs *runState) futureAt(partition int) *shardmap.DepthMap {
	rs.futureMu.Lock()
	defer rs.futureMu.Unlock()
	if rs.future[partition] == nil {
		rs.future[partition] = shardmap.NewDepthMap()
	}
	return rs.future[partition]
}

func (rs *runState) pendingTotal() int {
	rs.futureMu.Lock()
	defer rs.futureMu.Unlock()
	total := 0
	for _, fw := range rs.future {
		if fw != nil {
			total += fw.Size()
		}
	}
	return total
}

func (rs *runState) fail(err error) {
	rs.errMu.Lock()
	defer rs.errMu.Unlock()
	if rs.firstErr == nil {
		rs.firstErr = err
	}
}

func (rs *runState) err() error {
	rs.errMu.Lock()
	defer rs.errMu.Unlock()
	return rs.firstErr
}

// runSharded fans shards out across a fixed-size worker pool and joins on
// all of them, the way workerSearch divides a position's root moves across
// NumWorkers goroutines and waits on a sync.WaitGroup.
func (rs *runState) runSharded(shards [][]chess.PackedKey, task func([]chess.PackedKey)) {
	workers := rs.cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	ch := make(chan []chess.PackedKey)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for keys := range ch {
				task(keys)
			}
		}()
	}

	for _, s := range shards {
		if len(s) > 0 {
			ch <- s
		}
	}
	close(ch)
	wg.Wait()
}

// expandKey is the per-position state machine: probe, dedup, and for every
// surviving child route it to depthBuckets[depth-1] (same partition) or a
// future partition's DepthMap, per progress.Index's monotonicity invariant.
func (rs *runState) expandKey(key chess.PackedKey, partition, depth int, depthBuckets []*shardmap.Set) {
	rs.stats.Nodes.Add(1)

	pos := chess.DecodePacked(key)
	fen := pos.ToFEN(false)

	result, err := rs.prober.Probe(fen)
	rs.stats.Gets.Add(1)
	if err != nil {
		rs.fail(fmt.Errorf("probe %s: %w", fen, err))
		return
	}
	if !result.InDB() {
		return
	}
	rs.stats.Hits.Add(1)

	if !rs.visited.InsertIfAbsent(key) {
		return
	}
	rs.stats.Assigned.Add(1)

	if depth == 0 {
		return
	}

	p1 := partition
	if rs.cfg.FindUnseenEdges {
		rs.checkUnseenEdges(pos, fen, result)
	}

	if len(result.Moves) == 0 {
		return
	}

	bestScore := result.BestScore()

	for _, mv := range result.Moves {
		if mv.Move == dbprobe.NullMove {
			continue
		}
		if bestScore-mv.Score > rs.cfg.MaxCPLoss {
			break
		}

		move, err := chess.ParseMove(mv.Move, pos)
		if err != nil {
			rs.fail(fmt.Errorf("parse move %q at %s: %w", mv.Move, fen, err))
			return
		}

		undo := pos.MakeMove(move)
		childKey := chess.EncodePacked(pos)
		p2 := progress.Index(pos)
		pos.UnmakeMove(move, undo)

		if p2 == p1 {
			depthBuckets[depth-1].InsertIfAbsent(childKey)
		} else {
			rs.futureAt(p2).Upsert(childKey, int16(depth-1))
		}
	}
}

// checkUnseenEdges walks pos's legal moves looking for ones the probe
// result didn't list, capped at U = legalMoveCount - len(result.Moves) per
// the source's reasoning: a position can only have as many unlisted legal
// edges as the gap between what's legal and what the database recorded.
func (rs *runState) checkUnseenEdges(pos *chess.Position, fen string, result dbprobe.Result) {
	legal := pos.GenerateLegalMoves()
	budget := legal.Len() - len(result.Moves)
	if budget <= 0 {
		return
	}

	listed := make(map[string]bool, len(result.Moves))
	for _, mv := range result.Moves {
		listed[mv.Move] = true
	}

	found := 0
	checked := 0
	for i := 0; i < legal.Len() && checked < budget; i++ {
		m := legal.Get(i)
		if listed[m.String()] {
			continue
		}
		checked++

		undo := pos.MakeMove(m)
		childFEN := pos.ToFEN(false)
		childResult, err := rs.prober.Probe(childFEN)
		rs.stats.Gets.Add(1)
		pos.UnmakeMove(m, undo)

		if err != nil {
			rs.fail(fmt.Errorf("probe %s: %w", childFEN, err))
			return
		}
		if childResult.InDB() {
			found++
		}
	}

	if found > 0 {
		rs.unseen.record(fen, found)
	}
}

// unseenTracker collects per-position unseen-edge counts under a single
// mutex; contention is negligible since it only writes on a rare finding.
type unseenTracker struct {
	mu      sync.Mutex
	entries []UnseenEntry
}

func newUnseenTracker() *unseenTracker {
	return &unseenTracker{}
}

func (u *unseenTracker) record(fen string, count int) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.entries = append(u.entries, UnseenEntry{FEN: fen, Count: count})
}

func (u *unseenTracker) drain() []UnseenEntry {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.entries
}
