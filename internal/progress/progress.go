// Package progress implements the game-progress ordinal the scheduler
// partitions work by.
package progress

import "github.com/vondele/cdbsubtree/internal/chess"

// Max is the highest value Index can return (32 pieces, maximum pawn
// progress); the scheduler walks partitions from Max down to 0.
const Max = 3006

// Index maps a position to a monotone-nonincreasing ordinal in [0, Max].
// It is (pieceCount-2)*97 + pawnProgress, where pawnProgress sums each
// pawn's distance to its own promotion rank (0..7 per pawn, 0..96 total).
//
// Any legal move m: B -> B' satisfies Index(B') <= Index(B), with equality
// iff m is neither a capture nor a pawn move: captures strictly decrease
// pieceCount, pawn moves (including promotions) strictly decrease
// pawnProgress. This backs the scheduler's partition ordering.
func Index(pos *chess.Position) int {
	pieceCount := pos.AllOccupied.PopCount()
	return (pieceCount-2)*97 + pawnProgress(pos)
}

func pawnProgress(pos *chess.Position) int {
	total := 0

	white := pos.Pieces[chess.White][chess.Pawn]
	for white != 0 {
		sq := white.PopLSB()
		total += 7 - sq.RelativeRank(chess.White)
	}

	black := pos.Pieces[chess.Black][chess.Pawn]
	for black != 0 {
		sq := black.PopLSB()
		total += 7 - sq.RelativeRank(chess.Black)
	}

	return total
}
