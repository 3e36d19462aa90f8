package game

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"forkknight/internal/server/board"
	"forkknight/internal/server/core"
)

var (
	ErrPositionChanged = errors.New("position changed since the search started")
	ErrNothingToUndo   = errors.New("nothing to undo")
)

// MoveResult tracks the outcome of a move
type MoveResult struct {
	Move        string     `json:"move"`
	SAN         string     `json:"san"`
	PlayerColor core.Color `json:"playerColor"`
	GameState   core.State `json:"gameState"`
	Score       int        `json:"score"`
	Depth       int        `json:"depth"`
	Random      bool       `json:"random"`
}

// Game is one session. It owns its board; every access goes through the
// game's lock.
type Game struct {
	mu         sync.RWMutex
	id         string
	board      *board.Board
	initialFEN string
	players    map[core.Color]*core.Player
	state      core.State
	lastResult *MoveResult
	hints      map[core.Color]int
	recorded   bool // result already credited to the players' progress
	createdAt  time.Time
}

func New(id string, b *board.Board, whitePlayer, blackPlayer *core.Player) *Game {
	g := &Game{
		id:         id,
		board:      b,
		initialFEN: b.FEN(),
		players: map[core.Color]*core.Player{
			core.ColorWhite: whitePlayer,
			core.ColorBlack: blackPlayer,
		},
		state:     core.StateOngoing,
		hints:     make(map[core.Color]int, 2),
		createdAt: time.Now().UTC(),
	}
	g.refreshState()
	return g
}

func (g *Game) ID() string { return g.id }

func (g *Game) CreatedAt() time.Time { return g.createdAt }

func (g *Game) InitialFEN() string { return g.initialFEN }

func (g *Game) LastResult() *MoveResult {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.lastResult
}

// CurrentFEN returns the current position in FEN notation
func (g *Game) CurrentFEN() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.board.FEN()
}

func (g *Game) NextTurnColor() core.Color {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.board.SideToMove()
}

func (g *Game) NextPlayer() *core.Player {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.players[g.board.SideToMove()]
}

func (g *Game) GetPlayer(color core.Color) *core.Player {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.players[color]
}

func (g *Game) UpdatePlayers(whitePlayer, blackPlayer *core.Player) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.players[core.ColorWhite] = whitePlayer
	g.players[core.ColorBlack] = blackPlayer
}

// Board returns a copy of the position, safe to search on
func (g *Game) Board() *board.Board {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.board.Clone()
}

// Status reports check and draw details of the current position
func (g *Game) Status() board.Status {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.board.Status()
}

// ApplyMove validates and plays a move for the side to move, then
// settles the game state and records the move as the last result
func (g *Game) ApplyMove(in board.MoveInput) (board.AppliedMove, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state.IsFinished() {
		return board.AppliedMove{}, fmt.Errorf("game is over: %s", g.state)
	}
	applied, err := g.board.Apply(in)
	if err != nil {
		return board.AppliedMove{}, err
	}
	g.refreshState()
	g.recordLast(applied, MoveResult{})
	return applied, nil
}

// ApplyIfAt plays a searched move only if the game still stands on the
// position the search started from. A pending search is over once its move
// lands. search carries the engine's score, depth and random flag.
func (g *Game) ApplyIfAt(fen string, m board.Move, search MoveResult) (board.AppliedMove, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.board.FEN() != fen {
		return board.AppliedMove{}, ErrPositionChanged
	}
	if g.state.IsFinished() {
		return board.AppliedMove{}, fmt.Errorf("game is over: %s", g.state)
	}
	applied, err := g.board.ApplyMove(m)
	if err != nil {
		return board.AppliedMove{}, err
	}
	if g.state == core.StatePending {
		g.state = core.StateOngoing
	}
	g.refreshState()
	g.recordLast(applied, search)
	return applied, nil
}

// recordLast fills the move fields of r and stores it. Caller holds mu.
func (g *Game) recordLast(applied board.AppliedMove, r MoveResult) {
	r.Move = applied.Move.UCI()
	r.SAN = applied.SAN
	r.PlayerColor = applied.Piece.Color()
	r.GameState = g.state
	g.lastResult = &r
}

// refreshState derives a terminal state from the board. Caller holds mu.
func (g *Game) refreshState() {
	st := g.board.Status()
	switch {
	case st.Checkmate:
		g.state = core.WinState(g.board.SideToMove().Opposite())
	case st.Stalemate:
		g.state = core.StateStalemate
	case st.IsDraw():
		g.state = core.StateDraw
	}
}

// Resign ends the game as a win for the other side
func (g *Game) Resign(color core.Color) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state.IsFinished() {
		return fmt.Errorf("game is over: %s", g.state)
	}
	g.state = core.WinState(color.Opposite())
	return nil
}

func (g *Game) UndoMoves(count int) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if count < 1 {
		return fmt.Errorf("invalid undo count: %d", count)
	}

	available := g.board.Ply()
	if available == 0 {
		return ErrNothingToUndo
	}
	if available < count {
		return fmt.Errorf("cannot undo %d moves: only %d moves available", count, available)
	}

	for range count {
		g.board.Undo()
	}
	g.state = core.StateOngoing // Reset game state when undoing
	g.lastResult = nil
	g.recorded = false
	g.refreshState()
	return nil
}

// Moves lists the played moves in UCI
func (g *Game) Moves() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	history := g.board.History()
	moves := make([]string, 0, len(history))
	for _, a := range history {
		moves = append(moves, a.Move.UCI())
	}
	return moves
}

func (g *Game) MoveCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.board.Ply()
}

func (g *Game) State() core.State {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.state
}

func (g *Game) SetState(s core.State) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.state = s
}

// CompareAndSetState changes the state only from the expected one
func (g *Game) CompareAndSetState(from, to core.State) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state != from {
		return false
	}
	g.state = to
	return true
}

// AddHint counts a hint for a side and returns its total
func (g *Game) AddHint(color core.Color) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.hints[color]++
	return g.hints[color]
}

func (g *Game) HintsUsed(color core.Color) int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.hints[color]
}

// MarkRecorded returns true the first time it is called for a finished
// game, so a result is credited once
func (g *Game) MarkRecorded() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.recorded || !g.state.IsFinished() {
		return false
	}
	g.recorded = true
	return true
}
