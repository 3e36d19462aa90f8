package service

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"forkknight/internal/server/board"
	"forkknight/internal/server/puzzle"
	"forkknight/internal/server/rating"
	"forkknight/internal/server/storage"
)

var ErrPuzzleSessionNotFound = errors.New("puzzle session not found")

// puzzleSession is a running attempt, bound to the user who started it
// (empty for anonymous players)
type puzzleSession struct {
	mu       sync.Mutex
	id       string
	userID   string
	session  *puzzle.Session
	lastUsed time.Time
	failed   bool // a wrong move already cost rating
	credited bool
}

// PuzzleView is the client-visible state of a session
type PuzzleView struct {
	SessionID string
	PuzzleID  string
	FEN       string
	Solved    bool
	HintsUsed int
	Mistakes  int
}

// PuzzleMoveOutcome is the result of one solver move
type PuzzleMoveOutcome struct {
	PuzzleView
	Attempt  puzzle.Attempt
	XPEarned int
	Rating   int // puzzle rating after the result was credited, 0 when not
}

func (ps *puzzleSession) view() PuzzleView {
	return PuzzleView{
		SessionID: ps.id,
		PuzzleID:  ps.session.Puzzle().ID,
		FEN:       ps.session.FEN(),
		Solved:    ps.session.IsSolved(),
		HintsUsed: ps.session.HintsUsed(),
		Mistakes:  ps.session.Mistakes(),
	}
}

// Puzzle returns a catalog puzzle by id
func (s *Service) Puzzle(id string) (puzzle.Puzzle, error) {
	return s.catalog.Puzzle(id)
}

// Puzzles lists the catalog ordered by id
func (s *Service) Puzzles() []puzzle.Puzzle {
	return s.catalog.Puzzles()
}

// DailyPuzzle returns the puzzle of the UTC day containing date
func (s *Service) DailyPuzzle(date time.Time) (puzzle.Puzzle, error) {
	p, ok := puzzle.DailyPuzzle(s.catalog.Puzzles(), date)
	if !ok {
		return puzzle.Puzzle{}, puzzle.ErrPuzzleNotFound
	}
	return p, nil
}

// NextPuzzle picks a puzzle near the player's puzzle rating, skipping
// solved ones; anonymous players get the default rating
func (s *Service) NextPuzzle(userID string) (puzzle.Puzzle, error) {
	playerRating := rating.DefaultRating
	var completed []string
	if userID != "" {
		p, err := s.Progress(userID)
		if err != nil {
			return puzzle.Puzzle{}, err
		}
		playerRating, completed = p.PuzzleRating, p.CompletedPuzzles
	}

	p, ok := puzzle.NextPuzzle(s.rng, s.catalog.Puzzles(), playerRating, completed)
	if !ok {
		return puzzle.Puzzle{}, puzzle.ErrPuzzleNotFound
	}
	return p, nil
}

// StartPuzzle opens a new attempt at a puzzle
func (s *Service) StartPuzzle(userID, puzzleID string) (PuzzleView, error) {
	p, err := s.catalog.Puzzle(puzzleID)
	if err != nil {
		return PuzzleView{}, err
	}
	session, err := puzzle.NewSession(p)
	if err != nil {
		return PuzzleView{}, err
	}

	ps := &puzzleSession{
		id:       uuid.New().String(),
		userID:   userID,
		session:  session,
		lastUsed: time.Now(),
	}

	s.puzzleMu.Lock()
	s.puzzleSessions[ps.id] = ps
	s.puzzleMu.Unlock()

	return ps.view(), nil
}

func (s *Service) puzzleSession(sessionID, userID string) (*puzzleSession, error) {
	s.puzzleMu.Lock()
	defer s.puzzleMu.Unlock()

	ps, ok := s.puzzleSessions[sessionID]
	if !ok || ps.userID != userID {
		return nil, fmt.Errorf("%w: %s", ErrPuzzleSessionNotFound, sessionID)
	}
	return ps, nil
}

// PuzzleState returns the current state of a session
func (s *Service) PuzzleState(sessionID, userID string) (PuzzleView, error) {
	ps, err := s.puzzleSession(sessionID, userID)
	if err != nil {
		return PuzzleView{}, err
	}
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return ps.view(), nil
}

// PlayPuzzleMove checks a solver move. For signed-in players the first
// wrong move costs puzzle rating once; solving awards XP by hints used and,
// when no rating was lost on the way, raises the puzzle rating.
func (s *Service) PlayPuzzleMove(sessionID, userID string, in board.MoveInput) (PuzzleMoveOutcome, error) {
	ps, err := s.puzzleSession(sessionID, userID)
	if err != nil {
		return PuzzleMoveOutcome{}, err
	}

	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.lastUsed = time.Now()

	attempt, err := ps.session.Play(in)
	if err != nil {
		return PuzzleMoveOutcome{}, err
	}

	out := PuzzleMoveOutcome{Attempt: attempt}
	if userID != "" {
		switch {
		case attempt.Result == puzzle.Incorrect && !ps.failed && !ps.credited:
			ps.failed = true
			p, _, err := s.creditPuzzle(ps, false)
			if err != nil {
				return PuzzleMoveOutcome{}, err
			}
			out.Rating = p.PuzzleRating
		case attempt.Result == puzzle.Solved && !ps.credited:
			ps.credited = true
			p, xp, err := s.creditPuzzle(ps, true)
			if err != nil {
				return PuzzleMoveOutcome{}, err
			}
			out.Rating, out.XPEarned = p.PuzzleRating, xp
		}
	}

	out.PuzzleView = ps.view()
	return out, nil
}

// creditPuzzle applies a session result to the player's progress and logs
// the attempt. Caller holds ps.mu.
func (s *Service) creditPuzzle(ps *puzzleSession, solved bool) (rating.Progress, int, error) {
	pz := ps.session.Puzzle()
	hints := ps.session.HintsUsed()
	now := time.Now()

	var (
		p   rating.Progress
		xp  int
		err error
	)
	if solved && ps.failed {
		// Rating already paid for the mistake; only XP and completion remain
		p, xp, err = s.updateProgress(ps.userID, func(p *rating.Progress) int {
			p.UpdateStreak(now)
			if !p.CompletePuzzle(pz.ID) {
				return 0
			}
			xp := rating.PuzzleXP(hints)
			p.AddXP(xp)
			return xp
		})
	} else {
		p, xp, err = s.RecordPuzzleResult(ps.userID, pz.ID, pz.Rating, solved, hints, now)
	}
	if err != nil {
		return rating.Progress{}, 0, err
	}

	if s.store != nil && solved {
		s.store.RecordPuzzleAttempt(storage.PuzzleAttemptRecord{
			UserID:       ps.userID,
			PuzzleID:     pz.ID,
			Solved:       true,
			HintsUsed:    hints,
			Mistakes:     ps.session.Mistakes(),
			RatingAfter:  p.PuzzleRating,
			XPEarned:     xp,
			AttemptedUTC: now.UTC(),
		})
	}
	return p, xp, nil
}

// PuzzleHint reveals the next expected move a step at a time
func (s *Service) PuzzleHint(sessionID, userID string) (puzzle.Hint, error) {
	ps, err := s.puzzleSession(sessionID, userID)
	if err != nil {
		return puzzle.Hint{}, err
	}

	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.lastUsed = time.Now()
	return ps.session.Hint()
}

// ResetPuzzle goes back to the starting position of the attempt
func (s *Service) ResetPuzzle(sessionID, userID string) (PuzzleView, error) {
	ps, err := s.puzzleSession(sessionID, userID)
	if err != nil {
		return PuzzleView{}, err
	}

	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.lastUsed = time.Now()
	ps.session.Reset()
	return ps.view(), nil
}

// expirePuzzleSessions drops sessions idle for longer than PuzzleSessionTTL
func (s *Service) expirePuzzleSessions(now time.Time) int {
	s.puzzleMu.Lock()
	defer s.puzzleMu.Unlock()

	n := 0
	for id, ps := range s.puzzleSessions {
		ps.mu.Lock()
		idle := now.Sub(ps.lastUsed)
		ps.mu.Unlock()
		if idle > PuzzleSessionTTL {
			delete(s.puzzleSessions, id)
			n++
		}
	}
	return n
}
