package service

import (
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"time"

	"forkknight/internal/server/rating"
	"forkknight/internal/server/storage"
)

// Progress returns a copy of a player's learning record
func (s *Service) Progress(userID string) (rating.Progress, error) {
	s.progressMu.Lock()
	defer s.progressMu.Unlock()

	p, err := s.loadProgress(userID)
	if err != nil {
		return rating.Progress{}, err
	}
	return cloneProgress(p), nil
}

// ComputerRating draws an opponent rating around the player's game rating;
// anonymous players are treated as new players
func (s *Service) ComputerRating(userID string) int {
	player := rating.DefaultRating
	if userID != "" {
		if p, err := s.Progress(userID); err == nil {
			player = p.GameRating
		}
	}
	return rating.ComputerRatingFor(s.rng, player)
}

// RecordGameResult credits a finished game against a rated computer
func (s *Service) RecordGameResult(userID string, opponent int, outcome rating.Outcome, hints int, now time.Time) (rating.Progress, int, error) {
	return s.updateProgress(userID, func(p *rating.Progress) int {
		return p.RecordGame(opponent, outcome, hints, now)
	})
}

// RecordPuzzleResult moves the puzzle rating and awards XP on a first solve
func (s *Service) RecordPuzzleResult(userID, puzzleID string, puzzleRating int, solved bool, hints int, now time.Time) (rating.Progress, int, error) {
	return s.updateProgress(userID, func(p *rating.Progress) int {
		return p.RecordPuzzle(puzzleID, puzzleRating, solved, hints, now)
	})
}

// CompleteLesson marks a lesson done and awards XP the first time
func (s *Service) CompleteLesson(userID, lessonID string, now time.Time) (rating.Progress, int, error) {
	if _, err := s.catalog.Lesson(lessonID); err != nil {
		return rating.Progress{}, 0, err
	}
	return s.updateProgress(userID, func(p *rating.Progress) int {
		return p.RecordLesson(lessonID, now)
	})
}

func (s *Service) updateProgress(userID string, apply func(*rating.Progress) int) (rating.Progress, int, error) {
	s.progressMu.Lock()
	defer s.progressMu.Unlock()

	p, err := s.loadProgress(userID)
	if err != nil {
		return rating.Progress{}, 0, err
	}

	next := cloneProgress(p)
	xp := apply(&next)

	if s.store != nil {
		if err := s.store.SaveProgress(toRecord(next)); err != nil {
			return rating.Progress{}, 0, err
		}
	}
	s.progress[userID] = &next
	return cloneProgress(&next), xp, nil
}

// loadProgress reads through the cache. Caller holds progressMu.
func (s *Service) loadProgress(userID string) (*rating.Progress, error) {
	if userID == "" {
		return nil, fmt.Errorf("progress requires a user")
	}
	if p, ok := s.progress[userID]; ok {
		return p, nil
	}

	p := rating.NewProgress(userID)
	if s.store != nil {
		rec, err := s.store.GetProgress(userID)
		switch {
		case errors.Is(err, sql.ErrNoRows):
		case err != nil:
			return nil, fmt.Errorf("load progress: %w", err)
		default:
			p = fromRecord(rec)
		}
	}
	s.progress[userID] = p
	return p, nil
}

func cloneProgress(p *rating.Progress) rating.Progress {
	c := *p
	c.CompletedLessons = slices.Clone(p.CompletedLessons)
	c.CompletedPuzzles = slices.Clone(p.CompletedPuzzles)
	return c
}

func toRecord(p rating.Progress) storage.ProgressRecord {
	rec := storage.ProgressRecord{
		UserID:           p.UserID,
		XP:               p.XP,
		Level:            p.Level,
		PuzzleRating:     p.PuzzleRating,
		GameRating:       p.GameRating,
		CompletedLessons: p.CompletedLessons,
		CompletedPuzzles: p.CompletedPuzzles,
		CurrentStreak:    p.CurrentStreak,
		LongestStreak:    p.LongestStreak,
	}
	if !p.LastActiveAt.IsZero() {
		t := p.LastActiveAt
		rec.LastActiveAt = &t
	}
	return rec
}

func fromRecord(rec *storage.ProgressRecord) *rating.Progress {
	p := &rating.Progress{
		UserID:           rec.UserID,
		XP:               rec.XP,
		Level:            rec.Level,
		PuzzleRating:     rec.PuzzleRating,
		GameRating:       rec.GameRating,
		CompletedLessons: rec.CompletedLessons,
		CompletedPuzzles: rec.CompletedPuzzles,
		CurrentStreak:    rec.CurrentStreak,
		LongestStreak:    rec.LongestStreak,
	}
	if rec.LastActiveAt != nil {
		p.LastActiveAt = *rec.LastActiveAt
	}
	return p
}
