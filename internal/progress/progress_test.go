package progress

import (
	"testing"

	"github.com/vondele/cdbsubtree/internal/chess"
)

func TestIndexStartingPosition(t *testing.T) {
	pos := chess.NewPosition()
	got := Index(pos)

	// 32 pieces -> (32-2)*97 = 2910; every pawn is 6 ranks from its own
	// promotion rank, 16 pawns * 6 = 96, matching Max exactly: the
	// starting position is both the most pieces and the least pawn
	// progress any legal position can have.
	want := 2910 + 96
	if got != want {
		t.Fatalf("Index(startpos) = %d, want %d", got, want)
	}
	if got != Max {
		t.Fatalf("Index(startpos) = %d, want Max = %d", got, Max)
	}
}

func TestIndexMonotoneNonincreasingAlongLegalMoves(t *testing.T) {
	pos := chess.NewPosition()
	before := Index(pos)

	moves := pos.GenerateLegalMoves()
	for i := 0; i < moves.Len(); i++ {
		m := moves.Get(i)
		undo := pos.MakeMove(m)
		after := Index(pos)
		if after > before {
			t.Errorf("move %s increased progress index: %d -> %d", m.String(), before, after)
		}
		pos.UnmakeMove(m, undo)
	}
}

func TestIndexUnchangedByQuietNonPawnMove(t *testing.T) {
	pos, err := chess.ParseFEN("4k3/8/8/8/8/8/8/4KN2 w - - 0 1")
	if err != nil {
		t.Fatal(err)
	}
	before := Index(pos)

	moves := pos.GenerateLegalMoves()
	found := false
	for i := 0; i < moves.Len(); i++ {
		m := moves.Get(i)
		if m.IsCapture(pos) {
			continue
		}
		undo := pos.MakeMove(m)
		if pos.PieceAt(m.To()).Type() == chess.Knight {
			found = true
			after := Index(pos)
			if after != before {
				t.Errorf("quiet knight move changed progress index: %d -> %d", before, after)
			}
		}
		pos.UnmakeMove(m, undo)
		if found {
			break
		}
	}
	if !found {
		t.Fatal("expected to find a quiet knight move to test")
	}
}

func TestIndexWithinRange(t *testing.T) {
	got := Index(chess.NewPosition())
	if got < 0 || got > Max {
		t.Fatalf("Index(startpos) = %d, out of range [0, %d]", got, Max)
	}
}
