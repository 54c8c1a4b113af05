package dbprobe

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/vondele/cdbsubtree/internal/chess"
)

// bookEntry is one Polyglot record for a position: a candidate move and its
// relative weight.
type bookEntry struct {
	Move   chess.Move
	Weight uint16
}

// PolyglotAdapter implements Prober against an in-memory opening book kept
// in the on-disk Polyglot record layout (move + weight), instead of a
// BadgerDB: each position's weighted move list stands in for the
// database's scored-move list, with weight playing the role of score.
// There is no ply metadata in a Polyglot-shaped book, so every position
// the book covers is reported at ply 0; only membership (InDB) is
// meaningful for a book-backed probe.
//
// The 8-byte key each record carries on disk is read back verbatim and
// re-keyed in memory by chess.Position.PolyglotHash, which is NOT the
// published Polyglot constant table (see chess/polyglot.go) — so a .bin
// file produced by a third-party book compiler will load without error
// but its keys will never match a live position. This adapter is only
// useful for books this program itself produced.
type PolyglotAdapter struct {
	entries map[uint64][]bookEntry
}

// LoadPolyglot reads a Polyglot .bin file into memory.
func LoadPolyglot(path string) (*PolyglotAdapter, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open polyglot book %s: %w", path, err)
	}
	defer f.Close()
	return LoadPolyglotReader(f)
}

// LoadPolyglotReader reads Polyglot entries from r until EOF.
//
// Polyglot entry layout (16 bytes, big-endian):
//
//	8 bytes  position key
//	2 bytes  move
//	2 bytes  weight
//	4 bytes  learn data (ignored)
func LoadPolyglotReader(r io.Reader) (*PolyglotAdapter, error) {
	a := &PolyglotAdapter{entries: make(map[uint64][]bookEntry)}

	var raw [16]byte
	for {
		_, err := io.ReadFull(r, raw[:])
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read polyglot entry: %w", err)
		}

		key := binary.BigEndian.Uint64(raw[0:8])
		moveData := binary.BigEndian.Uint16(raw[8:10])
		weight := binary.BigEndian.Uint16(raw[10:12])

		move := decodePolyglotMove(moveData)
		if move != chess.NoMove {
			a.entries[key] = append(a.entries[key], bookEntry{Move: move, Weight: weight})
		}
	}

	return a, nil
}

// decodePolyglotMove converts a Polyglot move encoding to a chess.Move.
// Bits: 0-5 to square, 6-11 from square, 12-14 promotion piece
// (0=none, 1=knight, 2=bishop, 3=rook, 4=queen). Castling is encoded as
// king-captures-own-rook; it is rewritten to the engine's king-two-squares
// convention.
func decodePolyglotMove(data uint16) chess.Move {
	toFile := data & 7
	toRank := (data >> 3) & 7
	fromFile := (data >> 6) & 7
	fromRank := (data >> 9) & 7
	promo := (data >> 12) & 7

	from := chess.NewSquare(int(fromFile), int(fromRank))
	to := chess.NewSquare(int(toFile), int(toRank))

	switch {
	case from == chess.E1 && to == chess.H1:
		to = chess.G1
	case from == chess.E1 && to == chess.A1:
		to = chess.C1
	case from == chess.E8 && to == chess.H8:
		to = chess.G8
	case from == chess.E8 && to == chess.A8:
		to = chess.C8
	}

	if promo > 0 {
		promoTypes := []chess.PieceType{0, chess.Knight, chess.Bishop, chess.Rook, chess.Queen}
		return chess.NewPromotion(from, to, promoTypes[promo])
	}
	return chess.NewMove(from, to)
}

// Probe implements Prober. Weighted entries become ScoredMoves ordered by
// descending weight, the same order the explorer's CP-loss break expects
// from a real DB probe.
func (a *PolyglotAdapter) Probe(fen string) (Result, error) {
	pos, err := chess.ParseFEN(fen)
	if err != nil {
		return Result{}, fmt.Errorf("probe %s: %w", fen, err)
	}

	entries := a.entries[pos.PolyglotHash()]
	if len(entries) == 0 {
		return Result{Ply: NotInDB}, nil
	}

	sorted := make([]bookEntry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Weight > sorted[j].Weight })

	legal := pos.GenerateLegalMoves()
	moves := make([]ScoredMove, 0, len(sorted))
	for _, e := range sorted {
		lm := matchLegalMove(legal, e.Move)
		if lm == chess.NoMove {
			continue
		}
		moves = append(moves, ScoredMove{Move: lm.String(), Score: int(e.Weight)})
	}
	if len(moves) == 0 {
		return Result{Ply: NotInDB}, nil
	}

	return Result{Moves: moves, Ply: 0}, nil
}

// matchLegalMove recovers the engine's own move value (with its castling /
// en-passant / promotion flags set correctly) for the (from, to) pair a
// Polyglot entry names.
func matchLegalMove(legal *chess.MoveList, m chess.Move) chess.Move {
	from, to := m.From(), m.To()
	for i := 0; i < legal.Len(); i++ {
		lm := legal.Get(i)
		if lm.From() != from || lm.To() != to {
			continue
		}
		if m.IsPromotion() != lm.IsPromotion() {
			continue
		}
		if m.IsPromotion() && m.Promotion() != lm.Promotion() {
			continue
		}
		return lm
	}
	return chess.NoMove
}

// Size returns the number of distinct positions the book covers.
func (a *PolyglotAdapter) Size() int {
	return len(a.entries)
}
