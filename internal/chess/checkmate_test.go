package chess

import (
	"testing"
)

// isCheckmate reports checkmate using only the primitives the explorer
// domain exercises: zero legal moves while in check.
func isCheckmate(pos *Position) bool {
	return pos.InCheck() && pos.GenerateLegalMoves().Len() == 0
}

func TestCheckmate(t *testing.T) {
	// Back rank mate: Black Kh8 boxed in by its own pawns, White Ra8 delivers check.
	pos, err := ParseFEN("R6k/6pp/8/8/8/8/8/K7 b - - 0 1")
	if err != nil {
		t.Fatal("Error parsing FEN:", err)
	}

	pos.UpdateCheckers()
	t.Log("InCheck:", pos.InCheck())

	legal := pos.GenerateLegalMoves()
	t.Log("Black legal moves:", legal.Len())
	for i := 0; i < legal.Len(); i++ {
		t.Log("  Move:", legal.Get(i))
	}

	if !isCheckmate(pos) {
		t.Error("Expected checkmate but got false")
	}
}

func TestNotCheckmate(t *testing.T) {
	// Black king on h8 in check from a rook on g8, but can capture it.
	pos, err := ParseFEN("6Rk/8/8/8/8/8/8/K7 b - - 0 1")
	if err != nil {
		t.Fatal("Error parsing FEN:", err)
	}

	pos.UpdateCheckers()
	t.Log("InCheck:", pos.InCheck())

	legal := pos.GenerateLegalMoves()
	t.Log("Black legal moves:", legal.Len())
	for i := 0; i < legal.Len(); i++ {
		t.Log("  Move:", legal.Get(i))
	}

	if isCheckmate(pos) {
		t.Error("Expected NOT checkmate but got true")
	}
}
