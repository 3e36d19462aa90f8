package puzzle

import (
	"errors"
	"fmt"

	"forkknight/internal/server/board"
)

var ErrSessionFinished = errors.New("puzzle already solved")

// MoveResult classifies a solver move
type MoveResult int

const (
	Incorrect MoveResult = iota
	Correct
	Solved
)

func (r MoveResult) String() string {
	switch r {
	case Correct:
		return "correct"
	case Solved:
		return "solved"
	default:
		return "incorrect"
	}
}

// Attempt is the outcome of one solver move
type Attempt struct {
	Result MoveResult
	Played board.AppliedMove
	Reply  *board.AppliedMove // opponent answer from the solution line
}

// Hint points at the next expected move, more precisely with each request
type Hint struct {
	Count   int
	Message string
	From    board.Square
	To      board.Square // NoSquare until the last hint level
}

var hintMessages = []string{
	"Look at all the pieces your opponent has undefended...",
	"Consider moves that create multiple threats at once...",
	"The solution starts with moving to %s",
}

// Session is one attempt at a puzzle. It owns its board and is not safe
// for concurrent use.
type Session struct {
	puzzle   Puzzle
	board    *board.Board
	next     int // index into the solution line
	hints    int
	mistakes int
	solved   bool
}

func NewSession(p Puzzle) (*Session, error) {
	b, err := board.FromFEN(p.FEN)
	if err != nil {
		return nil, fmt.Errorf("%w: puzzle %s: %v", ErrInvalidContent, p.ID, err)
	}
	if len(p.Moves) == 0 {
		return nil, fmt.Errorf("%w: puzzle %s has no solution", ErrInvalidContent, p.ID)
	}
	return &Session{puzzle: p, board: b}, nil
}

func (s *Session) Puzzle() Puzzle { return s.puzzle }
func (s *Session) Board() *board.Board { return s.board }
func (s *Session) HintsUsed() int { return s.hints }
func (s *Session) Mistakes() int { return s.mistakes }
func (s *Session) IsSolved() bool { return s.solved }
func (s *Session) FEN() string { return s.board.FEN() }

// Play checks a solver move against the solution line. A wrong move is
// taken back and counted; a right one is answered by the opponent's next
// move from the line. A checkmate ends the puzzle even when the line
// expects a different mating move.
func (s *Session) Play(in board.MoveInput) (Attempt, error) {
	if s.solved {
		return Attempt{}, ErrSessionFinished
	}

	applied, err := s.board.Apply(in)
	if err != nil {
		return Attempt{}, err
	}

	if applied.Checkmate {
		s.solved = true
		s.next = len(s.puzzle.Moves)
		return Attempt{Result: Solved, Played: applied}, nil
	}

	if applied.Move.UCI() != s.puzzle.Moves[s.next] {
		s.board.Undo()
		s.mistakes++
		return Attempt{Result: Incorrect, Played: applied}, nil
	}

	s.next++
	if s.next >= len(s.puzzle.Moves) {
		s.solved = true
		return Attempt{Result: Solved, Played: applied}, nil
	}

	reply, err := s.board.ApplyUCI(s.puzzle.Moves[s.next])
	if err != nil {
		s.board.Undo()
		s.next--
		return Attempt{}, fmt.Errorf("%w: puzzle %s reply %s: %v", ErrInvalidContent, s.puzzle.ID, s.puzzle.Moves[s.next+1], err)
	}
	s.next++
	if s.next >= len(s.puzzle.Moves) {
		s.solved = true
		return Attempt{Result: Solved, Played: applied, Reply: &reply}, nil
	}
	return Attempt{Result: Correct, Played: applied, Reply: &reply}, nil
}

// Hint reveals the from-square of the expected move and, on the last
// level, its destination
func (s *Session) Hint() (Hint, error) {
	if s.solved {
		return Hint{}, ErrSessionFinished
	}
	m, err := board.ParseUCI(s.puzzle.Moves[s.next])
	if err != nil {
		return Hint{}, fmt.Errorf("%w: puzzle %s: %v", ErrInvalidContent, s.puzzle.ID, err)
	}

	s.hints++
	level := min(s.hints, len(hintMessages)) - 1
	h := Hint{Count: s.hints, From: m.From, To: board.NoSquare, Message: hintMessages[level]}
	if level == len(hintMessages)-1 {
		h.To = m.To
		h.Message = fmt.Sprintf(hintMessages[level], m.To)
	}
	return h, nil
}

// Reset returns to the starting position; hints and mistakes are kept
func (s *Session) Reset() {
	for s.board.Ply() > 0 {
		s.board.Undo()
	}
	s.next = 0
	s.solved = false
}
