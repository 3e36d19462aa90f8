package board

import (
	"math/rand/v2"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/notnil/chess"
)

// Random playouts cross-checked against an independent rules library
func TestMovesMatchReferenceLibrary(t *testing.T) {
	starts := []string{
		StartingFEN,
		"r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1",
		"8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - - 0 1",
		"r3k2r/Pppp1ppp/1b3nbN/nP6/BBP1P3/q4N2/Pp1P2PP/R2Q1RK1 w kq - 0 1",
		"rnbq1k1r/pp1Pbppp/2p5/8/2B5/8/PPP1NnPP/RNBQK2R w KQ - 1 8",
	}

	rng := rand.New(rand.NewPCG(7, 11))
	const playouts = 8
	const maxPlies = 80

	for _, fen := range starts {
		t.Run(fen, func(t *testing.T) {
			for n := 0; n < playouts; n++ {
				b := mustBoard(t, fen)
				opt, err := chess.FEN(fen)
				if err != nil {
					t.Fatalf("reference FEN: %v", err)
				}
				pos := chess.NewGame(opt).Position()

				for ply := 0; ply < maxPlies; ply++ {
					ours := uciList(b.LegalMoves())
					ref := make([]string, 0, len(ours))
					refMoves := make(map[string]*chess.Move)
					for _, m := range pos.ValidMoves() {
						ref = append(ref, m.String())
						refMoves[m.String()] = m
					}
					sort.Strings(ref)

					if diff := cmp.Diff(ref, ours); diff != "" {
						t.Fatalf("legal moves differ at %s (-ref +ours):\n%s", b.FEN(), diff)
					}

					switch pos.Status() {
					case chess.Checkmate:
						if !b.IsCheckmate() {
							t.Fatalf("reference reports mate at %s", b.FEN())
						}
					case chess.Stalemate:
						if !b.IsStalemate() {
							t.Fatalf("reference reports stalemate at %s", b.FEN())
						}
					}
					if len(ours) == 0 {
						break
					}

					pick := ours[rng.IntN(len(ours))]
					if _, err := b.ApplyUCI(pick); err != nil {
						t.Fatalf("ApplyUCI(%s) at %s: %v", pick, b.FEN(), err)
					}
					pos = pos.Update(refMoves[pick])
				}

				// Unwind the whole playout
				for b.Ply() > 0 {
					b.Undo()
				}
				if got := b.FEN(); got != fen {
					t.Fatalf("unwound FEN = %s, want %s", got, fen)
				}
			}
		})
	}
}

func uciList(moves []Move) []string {
	out := make([]string, len(moves))
	for i, m := range moves {
		out[i] = m.UCI()
	}
	sort.Strings(out)
	return out
}
