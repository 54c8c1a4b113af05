package chess

import "testing"

func TestPackedKeyRoundTripStartingPosition(t *testing.T) {
	pos := NewPosition()
	key := EncodePacked(pos)
	got := DecodePacked(key)

	if got.ToFEN(false) != pos.ToFEN(false) {
		t.Fatalf("round trip mismatch: got %q want %q", got.ToFEN(false), pos.ToFEN(false))
	}
}

func TestPackedKeyRoundTripCastlingRights(t *testing.T) {
	fens := []string{
		"r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1",
		"r3k2r/8/8/8/8/8/8/R3K2R w Kq - 0 1",
		"r3k2r/8/8/8/8/8/8/R3K2R w - - 0 1",
	}

	for _, fen := range fens {
		pos, err := ParseFEN(fen)
		if err != nil {
			t.Fatalf("parse %q: %v", fen, err)
		}
		key := EncodePacked(pos)
		got := DecodePacked(key)
		if got.ToFEN(false) != pos.ToFEN(false) {
			t.Errorf("round trip mismatch for %q: got %q", fen, got.ToFEN(false))
		}
	}
}

func TestPackedKeyRoundTripEnPassant(t *testing.T) {
	fen := "rnbqkbnr/ppp1pppp/8/3pP3/8/8/PPPP1PPP/RNBQKBNR w KQkq d6 0 3"
	pos, err := ParseFEN(fen)
	if err != nil {
		t.Fatalf("parse %q: %v", fen, err)
	}

	key := EncodePacked(pos)
	got := DecodePacked(key)

	if got.EnPassant != pos.EnPassant {
		t.Fatalf("en passant square mismatch: got %v want %v", got.EnPassant, pos.EnPassant)
	}
	if got.ToFEN(false) != pos.ToFEN(false) {
		t.Fatalf("round trip mismatch: got %q want %q", got.ToFEN(false), pos.ToFEN(false))
	}
}

func TestPackedKeyDistinguishesSideToMove(t *testing.T) {
	white, err := ParseFEN("4k3/8/8/8/8/8/8/4K3 w - - 0 1")
	if err != nil {
		t.Fatal(err)
	}
	black, err := ParseFEN("4k3/8/8/8/8/8/8/4K3 b - - 0 1")
	if err != nil {
		t.Fatal(err)
	}

	if EncodePacked(white) == EncodePacked(black) {
		t.Fatal("packed keys must differ by side to move")
	}
}

func TestPackedKeyRoundTripAfterPerftLine(t *testing.T) {
	pos := NewPosition()
	moves := pos.GenerateLegalMoves()
	for i := 0; i < moves.Len(); i++ {
		m := moves.Get(i)
		undo := pos.MakeMove(m)

		key := EncodePacked(pos)
		got := DecodePacked(key)
		if got.ToFEN(false) != pos.ToFEN(false) {
			t.Errorf("round trip mismatch after move %s: got %q want %q", m.String(), got.ToFEN(false), pos.ToFEN(false))
		}

		pos.UnmakeMove(m, undo)
	}
}
