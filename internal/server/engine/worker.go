package engine

import (
	"context"

	"forkknight/internal/server/board"
	"forkknight/internal/server/eval"
)

// checkEvery is how many nodes pass between context checks
const checkEvery = 1024

// worker searches one subtree; it is not shared between goroutines
type worker struct {
	ctx   context.Context
	nodes int64
	stop  bool
}

// negamax scores the position for the side to move. Leaves are scored by
// the evaluator; mates closer to the root score higher.
func (w *worker) negamax(b *board.Board, depth, ply, alpha, beta int) int {
	w.nodes++
	if w.nodes%checkEvery == 0 && w.ctx.Err() != nil {
		w.stop = true
	}
	if w.stop {
		return 0
	}

	if depth == 0 {
		return eval.Evaluate(b)
	}

	moves := b.LegalMoves()
	if len(moves) == 0 {
		if b.InCheck() {
			return -(MateScore - ply)
		}
		return DrawScore
	}
	if b.HalfmoveClock() >= 100 || b.InsufficientMaterial() || b.IsThreefoldRepetition() {
		return DrawScore
	}

	orderMoves(b, moves)

	best := -infinity
	for _, m := range moves {
		b.ApplyLegal(m)
		score := -w.negamax(b, depth-1, ply+1, -beta, -alpha)
		b.Undo()
		if w.stop {
			return 0
		}

		if score > best {
			best = score
		}
		if score > alpha {
			alpha = score
		}
		if alpha >= beta {
			break
		}
	}
	return best
}
