package chess

// PackedKey is the 24-byte canonical encoding of a position used as the
// identity for deduplication throughout the explorer. Two positions are the
// same node iff their packed keys are equal.
//
// Layout:
//
//	bytes [0:8)   occupancy bitboard, one bit per occupied square
//	bytes [8:24)  one 4-bit nibble per occupied square (bit-scan order),
//	              16 bytes = 32 nibbles, enough for the 32 pieces a legal
//	              position can ever hold
//
// All 24 bytes are spent on piece placement; side to move, castling rights
// and the en passant file are folded into the nibble codes themselves
// (there is no byte left over to store them separately):
//
//	0  white pawn
//	1  black pawn
//	2  en-passant-eligible pawn (color inferred from its rank: rank 4 =>
//	   white pawn, rank 5 => black pawn; either way it is the rank a
//	   double pushed pawn can only be found on)
//	3  white knight
//	4  black knight
//	5  white bishop
//	6  black bishop
//	7  white rook, no castling rights
//	8  white rook, castling rights intact
//	9  black rook, no castling rights
//	10 black rook, castling rights intact
//	11 white queen
//	12 white king, side to move = white
//	13 white king, side to move = black
//	14 black king
//	15 black queen
//
// Castling rights are recovered from which rook nibbles (if any) carry the
// "rights intact" code, disambiguated by comparing each rook's file to its
// king's file (kingside rook sits above the king's file, queenside below).
type PackedKey [24]byte

const (
	nibWhitePawn       = 0
	nibBlackPawn       = 1
	nibEPPawn          = 2
	nibWhiteKnight     = 3
	nibBlackKnight     = 4
	nibWhiteBishop     = 5
	nibBlackBishop     = 6
	nibWhiteRookPlain  = 7
	nibWhiteRookRights = 8
	nibBlackRookPlain  = 9
	nibBlackRookRights = 10
	nibWhiteQueen      = 11
	nibWhiteKingStmW   = 12
	nibWhiteKingStmB   = 13
	nibBlackKing       = 14
	nibBlackQueen      = 15
)

// EncodePacked produces the 24-byte packed key for a position.
func EncodePacked(p *Position) PackedKey {
	var key PackedKey

	occ := p.AllOccupied
	for i := 0; i < 8; i++ {
		key[i] = byte(occ >> (8 * uint(i)))
	}

	epPawnSquare := NoSquare
	if p.EnPassant != NoSquare {
		if p.EnPassant.Rank() == 2 {
			epPawnSquare = p.EnPassant + 8 // white pawn that just double-pushed sits one rank ahead of the ep target
		} else {
			epPawnSquare = p.EnPassant - 8
		}
	}

	whiteKingFile := p.KingSquare[White].File()
	blackKingFile := p.KingSquare[Black].File()

	idx := 0
	scan := occ
	var nibbles [32]byte
	for scan != 0 {
		sq := scan.PopLSB()
		piece := p.PieceAt(sq)
		c := piece.Color()
		pt := piece.Type()

		var code byte
		switch pt {
		case Pawn:
			if sq == epPawnSquare {
				code = nibEPPawn
			} else if c == White {
				code = nibWhitePawn
			} else {
				code = nibBlackPawn
			}
		case Knight:
			if c == White {
				code = nibWhiteKnight
			} else {
				code = nibBlackKnight
			}
		case Bishop:
			if c == White {
				code = nibWhiteBishop
			} else {
				code = nibBlackBishop
			}
		case Rook:
			kingFile := whiteKingFile
			if c == Black {
				kingFile = blackKingFile
			}
			kingSide := sq.File() > kingFile
			hasRights := (c == White && ((kingSide && p.CastlingRights.CanCastle(White, true)) || (!kingSide && p.CastlingRights.CanCastle(White, false)))) ||
				(c == Black && ((kingSide && p.CastlingRights.CanCastle(Black, true)) || (!kingSide && p.CastlingRights.CanCastle(Black, false))))
			switch {
			case c == White && hasRights:
				code = nibWhiteRookRights
			case c == White && !hasRights:
				code = nibWhiteRookPlain
			case c == Black && hasRights:
				code = nibBlackRookRights
			default:
				code = nibBlackRookPlain
			}
		case Queen:
			if c == White {
				code = nibWhiteQueen
			} else {
				code = nibBlackQueen
			}
		case King:
			if c == White {
				if p.SideToMove == White {
					code = nibWhiteKingStmW
				} else {
					code = nibWhiteKingStmB
				}
			} else {
				code = nibBlackKing
			}
		}

		nibbles[idx] = code
		idx++
	}

	for i := 0; i < idx; i += 2 {
		b := nibbles[i]
		if i+1 < idx {
			b |= nibbles[i+1] << 4
		}
		key[8+i/2] = b
	}

	return key
}

// DecodePacked reconstructs a position from its packed key.
func DecodePacked(key PackedKey) *Position {
	p := &Position{EnPassant: NoSquare, FullMoveNumber: 1}
	p.KingSquare[White] = NoSquare
	p.KingSquare[Black] = NoSquare

	var occ Bitboard
	for i := 0; i < 8; i++ {
		occ |= Bitboard(key[i]) << (8 * uint(i))
	}

	var nibbles [32]byte
	idx := 0
	for i := 0; i < 16; i++ {
		b := key[8+i]
		nibbles[idx] = b & 0x0F
		nibbles[idx+1] = (b >> 4) & 0x0F
		idx += 2
	}

	idx = 0
	scan := occ
	type rookFlag struct {
		sq     Square
		c      Color
		rights bool
	}
	var rooks []rookFlag
	var epPawnSquare Square = NoSquare
	sideToMove := White

	for scan != 0 {
		sq := scan.PopLSB()
		code := nibbles[idx]
		idx++

		var c Color
		var pt PieceType
		switch code {
		case nibWhitePawn:
			c, pt = White, Pawn
		case nibBlackPawn:
			c, pt = Black, Pawn
		case nibEPPawn:
			pt = Pawn
			if sq.Rank() == 3 { // white pawn sits on rank 4 (index 3) after a double push
				c = White
				epPawnSquare = sq - 8
			} else {
				c = Black
				epPawnSquare = sq + 8
			}
		case nibWhiteKnight:
			c, pt = White, Knight
		case nibBlackKnight:
			c, pt = Black, Knight
		case nibWhiteBishop:
			c, pt = White, Bishop
		case nibBlackBishop:
			c, pt = Black, Bishop
		case nibWhiteRookPlain:
			c, pt = White, Rook
			rooks = append(rooks, rookFlag{sq, White, false})
		case nibWhiteRookRights:
			c, pt = White, Rook
			rooks = append(rooks, rookFlag{sq, White, true})
		case nibBlackRookPlain:
			c, pt = Black, Rook
			rooks = append(rooks, rookFlag{sq, Black, false})
		case nibBlackRookRights:
			c, pt = Black, Rook
			rooks = append(rooks, rookFlag{sq, Black, true})
		case nibWhiteQueen:
			c, pt = White, Queen
		case nibBlackQueen:
			c, pt = Black, Queen
		case nibWhiteKingStmW:
			c, pt = White, King
			sideToMove = White
		case nibWhiteKingStmB:
			c, pt = White, King
			sideToMove = Black
		case nibBlackKing:
			c, pt = Black, King
		}

		p.setPiece(NewPiece(pt, c), sq)
	}

	p.SideToMove = sideToMove
	p.EnPassant = epPawnSquare // holds the ep target square directly, see nibEPPawn case above

	var rights CastlingRights
	for _, rf := range rooks {
		if !rf.rights {
			continue
		}
		kingFile := p.KingSquare[rf.c].File()
		kingSide := rf.sq.File() > kingFile
		switch {
		case rf.c == White && kingSide:
			rights |= WhiteKingSideCastle
		case rf.c == White && !kingSide:
			rights |= WhiteQueenSideCastle
		case rf.c == Black && kingSide:
			rights |= BlackKingSideCastle
		default:
			rights |= BlackQueenSideCastle
		}
	}
	p.CastlingRights = rights

	p.Hash = p.ComputeHash()
	p.PawnKey = p.ComputePawnKey()
	p.UpdateCheckers()

	return p
}
