package eval

import (
	"testing"

	"forkknight/internal/server/board"
)

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name string
		fen  string
		want int
	}{
		{"starting position", board.StartingFEN, 0},
		{"extra rook for white", "4k3/8/8/8/8/8/8/4K2R w - - 0 1", 500},
		{"extra rook seen by black", "4k3/8/8/8/8/8/8/4K2R b - - 0 1", -500},
		{"centralized knight", "4k3/8/8/8/4N3/8/8/4K3 w - - 0 1", 340},
		{"mirrored black knight", "4k3/8/8/4n3/8/8/8/4K3 w - - 0 1", -340},
		{"pawn on seventh", "4k3/P7/8/8/8/8/8/4K3 w - - 0 1", 150},
		{"black pawn on second", "4k3/8/8/8/8/8/p7/4K3 b - - 0 1", 150},
		{"kingless lesson board", "8/8/8/8/8/8/PPPPPPPP/8 w - - 0 1", 800 + 5 + 10 + 10 - 20 - 20 + 10 + 10 + 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := board.FromFEN(tt.fen)
			if err != nil {
				t.Fatal(err)
			}
			if got := Evaluate(b); got != tt.want {
				t.Errorf("Evaluate() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestEvaluateIsSymmetric(t *testing.T) {
	// Each pair is a position and its color-flipped mirror
	pairs := [][2]string{
		{"r1bqkbnr/pppp1ppp/2n5/4p3/4P3/5N2/PPPP1PPP/RNBQKB1R w KQkq - 2 3",
			"rnbqkb1r/pppp1ppp/5n2/4p3/4P3/2N5/PPPP1PPP/R1BQKBNR b KQkq - 2 3"},
		{"4k3/8/8/3N4/8/8/8/4K3 w - - 0 1", "4k3/8/8/8/3n4/8/8/4K3 b - - 0 1"},
	}
	for _, p := range pairs {
		a, _ := board.FromFEN(p[0])
		b, _ := board.FromFEN(p[1])
		if Evaluate(a) != Evaluate(b) {
			t.Errorf("Evaluate(%s) = %d, mirror = %d", p[0], Evaluate(a), Evaluate(b))
		}
	}
}

func TestEvaluateDoesNotMutate(t *testing.T) {
	b := board.New()
	before := b.FEN()
	Evaluate(b)
	if b.FEN() != before {
		t.Error("Evaluate mutated the board")
	}
}
