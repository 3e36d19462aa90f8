package processor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"forkknight/internal/server/board"
	"forkknight/internal/server/core"
	"forkknight/internal/server/engine"
)

const (
	defaultMoveTime = 2 * time.Second
	resultGrace     = 5 * time.Second // added to the move time before a callback gives up
)

var (
	ErrQueueFull     = errors.New("queue is full")
	ErrQueueShutdown = errors.New("queue is shutting down")
)

// EngineTask contains a search request and its response channel
type EngineTask struct {
	GameID   string
	Board    *board.Board // private copy owned by the worker
	Player   *core.Player // computer player whose rating and move time apply
	Hint     bool         // full-strength search for a hint instead of a rated move
	Response chan<- EngineResult
}

// EngineResult contains the outcome of a search
type EngineResult struct {
	GameID  string
	FEN     string // position the search started from
	Result  engine.Result
	Elapsed time.Duration
	Error   error
}

// EngineQueue manages async engine computations
type EngineQueue struct {
	tasks    chan EngineTask
	workers  int
	searcher *engine.Searcher
	moveTime time.Duration
	log      zerolog.Logger
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewEngineQueue creates a queue with specified worker count sharing one
// searcher
func NewEngineQueue(workerCount int, searcher *engine.Searcher, moveTime time.Duration, log zerolog.Logger) *EngineQueue {
	if workerCount < 1 {
		workerCount = 2 // Default
	}
	if moveTime <= 0 {
		moveTime = defaultMoveTime
	}

	ctx, cancel := context.WithCancel(context.Background())

	q := &EngineQueue{
		tasks:    make(chan EngineTask, 100), // Buffered for queueing
		workers:  workerCount,
		searcher: searcher,
		moveTime: moveTime,
		log:      log.With().Str("component", "engine-queue").Logger(),
		ctx:      ctx,
		cancel:   cancel,
	}

	q.start()
	return q
}

// start initializes the worker pool
func (q *EngineQueue) start() {
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(i)
	}
}

// worker processes engine tasks
func (q *EngineQueue) worker(id int) {
	defer q.wg.Done()
	log := q.log.With().Int("worker", id).Logger()

	for {
		select {
		case task := <-q.tasks:
			result := q.processTask(task)

			// Send result if receiver still listening
			select {
			case task.Response <- result:
			case <-time.After(100 * time.Millisecond):
				log.Warn().Str("game", task.GameID).Msg("search result abandoned")
			}

		case <-q.ctx.Done():
			return
		}
	}
}

// taskMoveTime is the player's budget, or the queue default
func (q *EngineQueue) taskMoveTime(p *core.Player) time.Duration {
	if p != nil && p.MoveTime > 0 {
		return time.Duration(p.MoveTime) * time.Millisecond
	}
	return q.moveTime
}

// processTask executes a single search
func (q *EngineQueue) processTask(task EngineTask) EngineResult {
	result := EngineResult{
		GameID: task.GameID,
		FEN:    task.Board.FEN(),
	}

	ctx, cancel := context.WithTimeout(q.ctx, q.taskMoveTime(task.Player))
	defer cancel()

	start := time.Now()
	var err error
	if task.Hint {
		result.Result, err = q.searcher.ChooseHint(ctx, task.Board)
	} else {
		rating := 0
		if task.Player != nil {
			rating = task.Player.Rating
		}
		result.Result, err = q.searcher.ChooseMove(ctx, task.Board, rating)
	}
	result.Elapsed = time.Since(start)

	if err != nil {
		result.Error = fmt.Errorf("engine search failed: %w", err)
		return result
	}

	q.log.Debug().
		Str("game", task.GameID).
		Str("move", result.Result.Move.UCI()).
		Int("score", result.Result.Score).
		Int("depth", result.Result.Depth).
		Int64("nodes", result.Result.Nodes).
		Bool("random", result.Result.Random).
		Dur("elapsed", result.Elapsed).
		Msg("search done")

	return result
}

// Submit adds a task to the queue
func (q *EngineQueue) Submit(task EngineTask) error {
	select {
	case <-q.ctx.Done():
		return ErrQueueShutdown
	default:
	}

	select {
	case q.tasks <- task:
		return nil
	case <-q.ctx.Done():
		return ErrQueueShutdown
	default:
		return ErrQueueFull
	}
}

// SubmitAsync submits a task without blocking for result
func (q *EngineQueue) SubmitAsync(gameID string, b *board.Board, player *core.Player, callback func(EngineResult)) error {
	respChan := make(chan EngineResult, 1)

	task := EngineTask{
		GameID:   gameID,
		Board:    b,
		Player:   player,
		Response: respChan,
	}

	if err := q.Submit(task); err != nil {
		return err
	}

	wait := q.taskMoveTime(player) + resultGrace

	// Handle result in background
	go func() {
		select {
		case result := <-respChan:
			callback(result)
		case <-time.After(wait):
			callback(EngineResult{
				GameID: gameID,
				Error:  fmt.Errorf("engine timeout after %s", wait),
			})
		}
	}()

	return nil
}

// Search submits a hint search and waits for its result
func (q *EngineQueue) Search(ctx context.Context, gameID string, b *board.Board) (EngineResult, error) {
	respChan := make(chan EngineResult, 1)

	task := EngineTask{
		GameID:   gameID,
		Board:    b,
		Hint:     true,
		Response: respChan,
	}
	if err := q.Submit(task); err != nil {
		return EngineResult{}, err
	}

	select {
	case result := <-respChan:
		return result, result.Error
	case <-ctx.Done():
		return EngineResult{}, ctx.Err()
	}
}

// Shutdown cancels running searches and stops the workers
func (q *EngineQueue) Shutdown(timeout time.Duration) error {
	q.cancel()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("shutdown timeout exceeded")
	}
}
