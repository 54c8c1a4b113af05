package explorer_test

import (
	"testing"

	"github.com/vondele/cdbsubtree/internal/chess"
	"github.com/vondele/cdbsubtree/internal/dbprobe"
	"github.com/vondele/cdbsubtree/internal/explorer"
)

func openFixture(t *testing.T) *dbprobe.Adapter {
	t.Helper()
	a, err := dbprobe.OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory: %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

func fenAfter(t *testing.T, pos *chess.Position, uci string) string {
	t.Helper()
	m, err := chess.ParseMove(uci, pos)
	if err != nil {
		t.Fatalf("ParseMove(%q): %v", uci, err)
	}
	undo := pos.MakeMove(m)
	fen := pos.ToFEN(false)
	pos.UnmakeMove(m, undo)
	return fen
}

func TestExplorerSeedNotInDB(t *testing.T) {
	adapter := openFixture(t)
	exp := explorer.New(adapter, explorer.Config{Depth: 4, MaxCPLoss: explorer.NoCPLossLimit}, nil)

	_, err := exp.Run(chess.NewPosition().ToFEN(false))
	if err != explorer.ErrSeedNotInDB {
		t.Fatalf("Run() error = %v, want ErrSeedNotInDB", err)
	}
}

func TestExplorerDepthZeroVisitsOnlySeed(t *testing.T) {
	adapter := openFixture(t)
	seed := chess.NewPosition()
	seedFEN := seed.ToFEN(false)

	if err := adapter.Put(seedFEN, dbprobe.Result{Ply: 0}); err != nil {
		t.Fatal(err)
	}

	exp := explorer.New(adapter, explorer.Config{Depth: 0, MaxCPLoss: explorer.NoCPLossLimit}, nil)
	result, err := exp.Run(seedFEN)
	if err != nil {
		t.Fatal(err)
	}
	if result.Summary.Totals.Assigned != 1 {
		t.Fatalf("Assigned = %d, want 1", result.Summary.Totals.Assigned)
	}
}

func TestExplorerCPLossPruning(t *testing.T) {
	adapter := openFixture(t)
	seed := chess.NewPosition()
	seedFEN := seed.ToFEN(false)

	e4FEN := fenAfter(t, seed, "e2e4")
	d4FEN := fenAfter(t, seed, "d2d4")

	mustPut := func(fen string, r dbprobe.Result) {
		t.Helper()
		if err := adapter.Put(fen, r); err != nil {
			t.Fatal(err)
		}
	}

	mustPut(seedFEN, dbprobe.Result{
		Ply: 0,
		Moves: []dbprobe.ScoredMove{
			{Move: "e2e4", Score: 0},
			{Move: "d2d4", Score: -50},
		},
	})
	mustPut(e4FEN, dbprobe.Result{Ply: 1})
	mustPut(d4FEN, dbprobe.Result{Ply: 1})

	tight := explorer.New(adapter, explorer.Config{Depth: 1, MaxCPLoss: 40}, nil)
	result, err := tight.Run(seedFEN)
	if err != nil {
		t.Fatal(err)
	}
	if result.Summary.Totals.Assigned != 2 {
		t.Fatalf("maxCPLoss=40: Assigned = %d, want 2 (seed + e2e4 only)", result.Summary.Totals.Assigned)
	}

	loose := explorer.New(adapter, explorer.Config{Depth: 1, MaxCPLoss: 60}, nil)
	result, err = loose.Run(seedFEN)
	if err != nil {
		t.Fatal(err)
	}
	if result.Summary.Totals.Assigned != 3 {
		t.Fatalf("maxCPLoss=60: Assigned = %d, want 3 (seed + both replies)", result.Summary.Totals.Assigned)
	}
}

func TestExplorerSkipsNullMoveMarker(t *testing.T) {
	adapter := openFixture(t)
	seed := chess.NewPosition()
	seedFEN := seed.ToFEN(false)
	e4FEN := fenAfter(t, seed, "e2e4")

	if err := adapter.Put(seedFEN, dbprobe.Result{
		Ply: 0,
		Moves: []dbprobe.ScoredMove{
			{Move: dbprobe.NullMove, Score: 5},
			{Move: "e2e4", Score: 0},
		},
	}); err != nil {
		t.Fatal(err)
	}
	if err := adapter.Put(e4FEN, dbprobe.Result{Ply: 1}); err != nil {
		t.Fatal(err)
	}

	exp := explorer.New(adapter, explorer.Config{Depth: 1, MaxCPLoss: explorer.NoCPLossLimit}, nil)
	result, err := exp.Run(seedFEN)
	if err != nil {
		t.Fatal(err)
	}
	if result.Summary.Totals.Assigned != 2 {
		t.Fatalf("Assigned = %d, want 2 (seed + e2e4; null marker must not be expanded)", result.Summary.Totals.Assigned)
	}
}

func TestExplorerUnseenEdgeDetector(t *testing.T) {
	adapter := openFixture(t)
	seed := chess.NewPosition()
	seedFEN := seed.ToFEN(false)

	legal := seed.GenerateLegalMoves()
	listed := make([]dbprobe.ScoredMove, 0, legal.Len()-1)
	var uncountedUCI string
	for i := 0; i < legal.Len(); i++ {
		uci := legal.Get(i).String()
		if uncountedUCI == "" && uci != "e2e4" {
			uncountedUCI = uci
			continue
		}
		listed = append(listed, dbprobe.ScoredMove{Move: uci, Score: 0})
	}

	if err := adapter.Put(seedFEN, dbprobe.Result{Ply: 0, Moves: listed}); err != nil {
		t.Fatal(err)
	}
	missingFEN := fenAfter(t, seed, uncountedUCI)
	if err := adapter.Put(missingFEN, dbprobe.Result{Ply: 1}); err != nil {
		t.Fatal(err)
	}
	for _, mv := range listed {
		childFEN := fenAfter(t, seed, mv.Move)
		if err := adapter.Put(childFEN, dbprobe.Result{Ply: 1}); err != nil {
			t.Fatal(err)
		}
	}

	exp := explorer.New(adapter, explorer.Config{
		Depth:           1,
		MaxCPLoss:       explorer.NoCPLossLimit,
		FindUnseenEdges: true,
	}, nil)

	result, err := exp.Run(seedFEN)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Unseen) != 1 {
		t.Fatalf("Unseen entries = %d, want 1", len(result.Unseen))
	}
	if result.Unseen[0].FEN != seedFEN {
		t.Fatalf("Unseen entry FEN = %q, want seed %q", result.Unseen[0].FEN, seedFEN)
	}
	if result.Unseen[0].Count != 1 {
		t.Fatalf("Unseen entry count = %d, want 1", result.Unseen[0].Count)
	}
}
