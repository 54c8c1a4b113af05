// Command cdbsubtree walks a bounded, deduplicated subtree of a chess
// opening database from a starting position, reporting per-ply counts,
// throughput and memory, and optionally the positions whose legal moves
// reach DB-known successors the database itself doesn't list.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/vondele/cdbsubtree/internal/chess"
	"github.com/vondele/cdbsubtree/internal/dbprobe"
	"github.com/vondele/cdbsubtree/internal/explorer"
	"github.com/vondele/cdbsubtree/internal/report"
)

// defaultFEN is the position after 1.g4, the seed the source driver used.
const defaultFEN = "rnbqkbnr/pppppppp/8/8/6P1/8/PPPPPP1P/RNBQKBNR b KQkq - 0 1"

var (
	fenFlag       = flag.String("fen", defaultFEN, `starting position, or "startpos"`)
	depthFlag     = flag.Int("depth", 8, "ply budget per exploration")
	maxCPLossFlag = flag.Int("maxCPLoss", -1, "centipawn-loss pruning threshold; negative means no pruning")
	movesFlag     = flag.Bool("moves", false, "explore independently from every legal first move of the seed")
	unseenFlag    = flag.Bool("findUnseenEdges", false, "record positions whose legal moves reach unlisted DB successors")
	dbPathFlag    = flag.String("db", "", "opening database path")
	bookPathFlag  = flag.String("book", "", "Polyglot-shaped opening book file, used instead of -db")
	cacheSizeFlag = flag.Int("cacheSize", 65536, "bounded probe cache entries; 0 disables caching")
	workersFlag   = flag.Int("workers", 0, "worker goroutines per depth step; 0 means GOMAXPROCS")
	unseenOutFlag = flag.String("unseenOut", "unseen.epd", "output path for --findUnseenEdges")
	quietFlag     = flag.Bool("quiet", false, "suppress per-batch progress lines")
)

func main() {
	flag.Parse()

	if *dbPathFlag == "" && *bookPathFlag == "" {
		log.Fatal("cdbsubtree: one of -db or -book is required")
	}

	seedFEN := *fenFlag
	if seedFEN == "startpos" {
		seedFEN = chess.NewPosition().ToFEN(false)
	}

	prober, closer, err := openProber()
	if err != nil {
		log.Fatalf("cdbsubtree: %v", err)
	}
	defer closer()

	cfg := explorer.Config{
		Depth:           *depthFlag,
		MaxCPLoss:       *maxCPLossFlag,
		Workers:         *workersFlag,
		FindUnseenEdges: *unseenFlag,
	}
	if cfg.MaxCPLoss < 0 {
		cfg.MaxCPLoss = explorer.NoCPLossLimit
	}

	onIteration := func(it report.Iteration) {
		if !*quietFlag {
			fmt.Println(report.Line(it))
		}
	}

	if *movesFlag {
		os.Exit(runPerMove(prober, cfg, seedFEN, onIteration))
	}
	os.Exit(runSingle(prober, cfg, seedFEN, onIteration))
}

// openProber builds the Prober the run will use: a BadgerDB-backed Adapter
// when -db is given, or an in-memory PolyglotAdapter when -book is given
// instead. The returned closer releases whichever handle was opened; for a
// book there is nothing to close, so it is a no-op.
func openProber() (dbprobe.Prober, func() error, error) {
	if *bookPathFlag != "" {
		book, err := dbprobe.LoadPolyglot(*bookPathFlag)
		if err != nil {
			return nil, nil, err
		}
		return book, func() error { return nil }, nil
	}

	adapter, err := dbprobe.Open(*dbPathFlag)
	if err != nil {
		return nil, nil, err
	}
	return adapter, adapter.Close, nil
}

func runSingle(adapter dbprobe.Prober, cfg explorer.Config, seedFEN string, onIteration func(report.Iteration)) int {
	exp := explorer.New(adapter, cfg, onIteration)

	result, err := exp.Run(seedFEN)
	if err != nil {
		return reportRunError(err)
	}

	for _, line := range result.Summary.Lines() {
		fmt.Println(line)
	}
	writeUnseen(cfg, result.Unseen)
	return 0
}

func runPerMove(prober dbprobe.Prober, cfg explorer.Config, seedFEN string, onIteration func(report.Iteration)) int {
	pos, err := chess.ParseFEN(seedFEN)
	if err != nil {
		log.Printf("cdbsubtree: %v", err)
		return 1
	}

	// Sibling sub-explorations from adjacent first moves tend to transpose
	// back into shared subtree territory; cache probes across them instead
	// of re-querying the backend for positions another branch already saw.
	adapter := prober
	if *cacheSizeFlag > 0 {
		adapter = dbprobe.NewCachedAdapter(prober, *cacheSizeFlag)
	}

	moves := pos.GenerateLegalMoves()
	var allUnseen []explorer.UnseenEntry

	for i := 0; i < moves.Len(); i++ {
		m := moves.Get(i)
		undo := pos.MakeMove(m)
		childFEN := pos.ToFEN(false)
		pos.UnmakeMove(m, undo)

		fmt.Printf("=== move %s ===\n", m.String())

		exp := explorer.New(adapter, cfg, onIteration)
		result, err := exp.Run(childFEN)
		if err != nil {
			if err == explorer.ErrSeedNotInDB {
				fmt.Println("Initial fen not in DB!")
				continue
			}
			log.Printf("cdbsubtree: %v", err)
			return 1
		}

		for _, line := range result.Summary.Lines() {
			fmt.Println(line)
		}
		allUnseen = append(allUnseen, result.Unseen...)
	}

	writeUnseen(cfg, allUnseen)
	return 0
}

func reportRunError(err error) int {
	if err == explorer.ErrSeedNotInDB {
		fmt.Println("Initial fen not in DB!")
		return 1
	}
	log.Printf("cdbsubtree: %v", err)
	return 1
}

func writeUnseen(cfg explorer.Config, entries []explorer.UnseenEntry) {
	if !cfg.FindUnseenEdges {
		return
	}

	f, err := os.Create(*unseenOutFlag)
	if err != nil {
		log.Printf("cdbsubtree: could not write %s: %v", *unseenOutFlag, err)
		return
	}
	defer f.Close()

	for _, e := range entries {
		fmt.Fprintf(f, "%s c0 \"unseen moves: %d\";\n", e.FEN, e.Count)
	}

	fmt.Printf("Unseen edges: %d positions recorded to %s\n", len(entries), *unseenOutFlag)
}
