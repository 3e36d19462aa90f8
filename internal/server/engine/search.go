// Package engine picks moves for the computer opponent with a depth-limited
// alpha-beta search whose depth and noise follow a target rating.
package engine

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"runtime"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"forkknight/internal/server/board"
	"forkknight/internal/server/eval"
)

const (
	MateScore = 99999
	DrawScore = 0

	// HintDepth is deeper than any rating-derived depth
	HintDepth = 12

	RandomMoveChance = 0.4
	Jitter           = 10

	DefaultMoveTime = 10 * time.Second

	infinity = 1 << 30
)

var (
	ErrNoLegalMoves  = errors.New("no legal moves")
	ErrSearchAborted = errors.New("search aborted")
)

// Result describes the chosen move
type Result struct {
	Move   board.Move
	Score  int
	Depth  int
	Nodes  int64
	Random bool // picked without searching
	IsMate bool
	MateIn int // moves, negative when the mover is getting mated
}

type Option func(*Searcher)

// WithRand injects the random source used for random moves and jitter
func WithRand(r *rand.Rand) Option {
	return func(s *Searcher) { s.rng = r }
}

// WithMaxDepth caps every search depth, including hints
func WithMaxDepth(depth int) Option {
	return func(s *Searcher) { s.maxDepth = depth }
}

// WithWorkers sets how many root moves are searched in parallel
func WithWorkers(n int) Option {
	return func(s *Searcher) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithMoveTime bounds searches whose context carries no deadline
func WithMoveTime(d time.Duration) Option {
	return func(s *Searcher) { s.moveTime = d }
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Searcher) { s.log = l }
}

// Searcher is safe for concurrent use; each search works on its own
// copies of the position.
type Searcher struct {
	mu       sync.Mutex // guards rng
	rng      *rand.Rand
	maxDepth int
	workers  int
	moveTime time.Duration
	log      zerolog.Logger
}

func New(opts ...Option) *Searcher {
	s := &Searcher{
		rng:      rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), rand.Uint64())),
		workers:  runtime.NumCPU(),
		moveTime: DefaultMoveTime,
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DepthForRating maps a rating to a search depth in plies
func DepthForRating(rating int) int {
	switch {
	case rating < 500:
		return 1
	case rating < 700:
		return 2
	case rating < 900:
		return 3
	case rating < 1100:
		return 4
	case rating < 1300:
		return 5
	case rating < 1500:
		return 6
	case rating < 1700:
		return 8
	default:
		return 10
	}
}

// ChooseMove picks a move for the side to move at the strength of the
// target rating. The board is not modified.
func (s *Searcher) ChooseMove(ctx context.Context, b *board.Board, rating int) (Result, error) {
	legal := b.LegalMoves()
	if len(legal) == 0 {
		return Result{}, ErrNoLegalMoves
	}

	depth := DepthForRating(rating)
	if depth == 1 && s.float64() < RandomMoveChance {
		return Result{Move: legal[s.intN(len(legal))], Random: true}, nil
	}

	return s.search(ctx, b, legal, s.capDepth(depth), true)
}

// ChooseHint searches at HintDepth without noise
func (s *Searcher) ChooseHint(ctx context.Context, b *board.Board) (Result, error) {
	legal := b.LegalMoves()
	if len(legal) == 0 {
		return Result{}, ErrNoLegalMoves
	}
	return s.search(ctx, b, legal, s.capDepth(HintDepth), false)
}

func (s *Searcher) capDepth(depth int) int {
	if s.maxDepth > 0 && depth > s.maxDepth {
		return s.maxDepth
	}
	return depth
}

// search deepens one ply at a time. When the deadline passes after at
// least one finished iteration the deepest finished result is used;
// cancellation abandons the search.
func (s *Searcher) search(ctx context.Context, b *board.Board, legal []board.Move, depth int, jitter bool) (Result, error) {
	if _, ok := ctx.Deadline(); !ok && s.moveTime > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.moveTime)
		defer cancel()
	}

	moves := slices.Clone(legal)
	orderMoves(b, moves)

	window := 1
	if jitter {
		window = 2*Jitter + 1
	}

	var (
		scores    []int
		doneDepth int
		nodes     int64
	)
	start := time.Now()

	for d := 1; d <= depth; d++ {
		iter, n, err := s.scoreRoot(ctx, b, moves, d, window)
		nodes += n
		if err != nil {
			if doneDepth > 0 && errors.Is(err, context.DeadlineExceeded) {
				s.log.Debug().Int("target", depth).Int("reached", doneDepth).Msg("search deadline, using last iteration")
				break
			}
			return Result{}, fmt.Errorf("%w: %v", ErrSearchAborted, err)
		}
		scores, doneDepth = iter, d

		s.log.Debug().
			Int("depth", d).
			Int64("nodes", nodes).
			Dur("elapsed", time.Since(start)).
			Msg("iteration complete")

		// Best first for the next iteration
		idx := make([]int, len(moves))
		for i := range idx {
			idx[i] = i
		}
		slices.SortStableFunc(idx, func(a, c int) int { return scores[c] - scores[a] })
		sortedMoves := make([]board.Move, len(moves))
		sortedScores := make([]int, len(moves))
		for i, j := range idx {
			sortedMoves[i], sortedScores[i] = moves[j], scores[j]
		}
		moves, scores = sortedMoves, sortedScores
	}

	best := s.pick(scores, jitter)
	res := Result{
		Move:  moves[best],
		Score: scores[best],
		Depth: doneDepth,
		Nodes: nodes,
	}
	if abs(res.Score) > MateScore-1000 {
		res.IsMate = true
		plies := MateScore - abs(res.Score)
		res.MateIn = (plies + 1) / 2
		if res.Score < 0 {
			res.MateIn = -res.MateIn
		}
	}
	return res, nil
}

// pick returns the index of the highest score after optional jitter
func (s *Searcher) pick(scores []int, jitter bool) int {
	best, bestScore := 0, -infinity
	for i, sc := range scores {
		if jitter {
			sc += s.intN(2*Jitter+1) - Jitter
		}
		if sc > bestScore {
			best, bestScore = i, sc
		}
	}
	return best
}

// scoreRoot searches every root move on its own clone of the position.
// Moves that cannot come within window of the best so far are cut early;
// their stored score is an upper bound.
func (s *Searcher) scoreRoot(ctx context.Context, b *board.Board, moves []board.Move, depth, window int) ([]int, int64, error) {
	scores := make([]int, len(moves))
	var best, nodes atomic.Int64
	best.Store(-infinity)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for i, m := range moves {
		g.Go(func() error {
			w := &worker{ctx: gctx}
			child := b.Clone()
			child.ApplyLegal(m)

			alpha := int(best.Load()) - window
			score := -w.negamax(child, depth-1, 1, -infinity, -alpha)
			child.Undo()
			nodes.Add(w.nodes)
			if w.stop {
				return gctx.Err()
			}

			scores[i] = score
			for {
				cur := best.Load()
				if int64(score) <= cur || best.CompareAndSwap(cur, int64(score)) {
					break
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nodes.Load(), err
	}
	if err := ctx.Err(); err != nil {
		return nil, nodes.Load(), err
	}
	return scores, nodes.Load(), nil
}

func (s *Searcher) float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}

func (s *Searcher) intN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.IntN(n)
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// orderMoves puts promotions and captures of valuable pieces by cheap
// attackers first
func orderMoves(b *board.Board, moves []board.Move) {
	slices.SortStableFunc(moves, func(x, y board.Move) int {
		return moveOrderKey(b, y) - moveOrderKey(b, x)
	})
}

func moveOrderKey(b *board.Board, m board.Move) int {
	key := 0
	if victim := b.PieceAt(m.To); victim != board.NoPiece {
		key += 10*eval.PieceValue(victim.Type()) - eval.PieceValue(b.PieceAt(m.From).Type())/10
	}
	if m.Promotion != board.NoPieceType {
		key += eval.PieceValue(m.Promotion)
	}
	return key
}
