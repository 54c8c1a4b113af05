package dbprobe

import "testing"

func TestProbeMissingPositionIsNotAnError(t *testing.T) {
	a, err := OpenInMemory()
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()

	result, err := a.Probe("startpos")
	if err != nil {
		t.Fatalf("Probe on an empty db returned an error: %v", err)
	}
	if result.InDB() {
		t.Fatal("InDB() should be false for a position never Put")
	}
	if result.Ply != NotInDB {
		t.Fatalf("Ply = %d, want %d", result.Ply, NotInDB)
	}
}

func TestPutThenProbeRoundTrips(t *testing.T) {
	a, err := OpenInMemory()
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()

	fen := "rnbqkbnr/pppppppp/8/8/6P1/8/PPPPPP1P/RNBQKBNR b KQkq - 0 1"
	want := Result{
		Moves: []ScoredMove{
			{Move: "d7d5", Score: 20},
			{Move: "e7e5", Score: -10},
		},
		Ply: 1,
	}

	if err := a.Put(fen, want); err != nil {
		t.Fatal(err)
	}

	got, err := a.Probe(fen)
	if err != nil {
		t.Fatal(err)
	}
	if !got.InDB() {
		t.Fatal("InDB() should be true after Put")
	}
	if got.BestScore() != 20 {
		t.Fatalf("BestScore() = %d, want 20", got.BestScore())
	}
	if len(got.Moves) != 2 || got.Moves[0].Move != "d7d5" {
		t.Fatalf("unexpected moves: %+v", got.Moves)
	}
}

func TestBestScoreOfSentinelOnlyResultIsZero(t *testing.T) {
	r := Result{Ply: 5}
	if r.BestScore() != 0 {
		t.Fatalf("BestScore() of a sentinel-only result = %d, want 0", r.BestScore())
	}
}
