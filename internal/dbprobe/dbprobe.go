// Package dbprobe adapts the opening database to the single probe(fen)
// call the explorer needs, backed by BadgerDB the way internal/storage
// backs game preferences and stats.
package dbprobe

import (
	"encoding/json"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// NullMove is the move string the database uses to mark a null/no-move
// entry; the expander must skip it rather than treat it as a candidate.
const NullMove = "a0a0"

// NotInDB is the sentinel ply value meaning the position is absent from
// the database.
const NotInDB = -2

// ScoredMove is one non-sentinel entry of a probe result: a candidate move
// and its centipawn score, as the database reports it.
type ScoredMove struct {
	Move  string `json:"move"`
	Score int    `json:"score"`
}

// Result is what a single probe returns: the scored moves for a position,
// best first, plus the ply the position itself was first reached at
// (NotInDB if the position isn't in the database at all).
type Result struct {
	Moves []ScoredMove `json:"moves"`
	Ply   int          `json:"ply"`
}

// InDB reports whether the probed position is known to the database.
func (r Result) InDB() bool {
	return r.Ply != NotInDB
}

// BestScore returns the first move's score, exactly as the source takes
// it — including the degenerate case where the first entry is the
// NullMove marker. See the open question in DESIGN.md before "fixing"
// this.
func (r Result) BestScore() int {
	if len(r.Moves) == 0 {
		return 0
	}
	return r.Moves[0].Score
}

// Prober is the interface the explorer consumes; Adapter implements it
// against a real BadgerDB, and tests can substitute a fake.
type Prober interface {
	Probe(fen string) (Result, error)
}

// Adapter owns a BadgerDB handle across a run: opened once at startup,
// closed once at the end, safe for concurrent probes in between.
type Adapter struct {
	db *badger.DB
}

// Open opens a read-only-by-convention database at path. The caller must
// Close it when the run finishes.
func Open(path string) (*Adapter, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open db %s: %w", path, err)
	}
	return &Adapter{db: db}, nil
}

// OpenInMemory opens a throwaway in-memory database, used by tests and by
// callers building a fixture before a single run.
func OpenInMemory() (*Adapter, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open in-memory db: %w", err)
	}
	return &Adapter{db: db}, nil
}

// Close releases the database handle.
func (a *Adapter) Close() error {
	return a.db.Close()
}

// Probe looks up fen and returns its scored moves and ply. A position
// absent from the database is not an error: it comes back as
// Result{Ply: NotInDB}. Only a genuine storage failure is returned as an
// error, and the caller is expected to treat that as fatal.
func (a *Adapter) Probe(fen string) (Result, error) {
	var result Result

	err := a.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(fen))
		if err == badger.ErrKeyNotFound {
			result = Result{Ply: NotInDB}
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &result)
		})
	})
	if err != nil {
		return Result{}, fmt.Errorf("probe %s: %w", fen, err)
	}

	return result, nil
}

// Put stores a probe result for fen, used to build fixtures in tests and
// by offline database-population tooling.
func (a *Adapter) Put(fen string, result Result) error {
	data, err := json.Marshal(result)
	if err != nil {
		return err
	}
	return a.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(fen), data)
	})
}
