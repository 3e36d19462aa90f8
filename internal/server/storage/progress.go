package storage

import (
	"encoding/json"
	"fmt"
)

// GetProgress loads a player's record; sql.ErrNoRows when none exists yet
func (s *Store) GetProgress(userID string) (*ProgressRecord, error) {
	var (
		rec              ProgressRecord
		lessons, puzzles string
	)
	err := s.db.QueryRow(`SELECT user_id, xp, level, puzzle_rating, game_rating,
		completed_lessons, completed_puzzles, current_streak, longest_streak, last_active_at
		FROM progress WHERE user_id = ?`, userID).Scan(
		&rec.UserID, &rec.XP, &rec.Level, &rec.PuzzleRating, &rec.GameRating,
		&lessons, &puzzles, &rec.CurrentStreak, &rec.LongestStreak, &rec.LastActiveAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(lessons), &rec.CompletedLessons); err != nil {
		return nil, fmt.Errorf("completed lessons of %s: %w", userID, err)
	}
	if err := json.Unmarshal([]byte(puzzles), &rec.CompletedPuzzles); err != nil {
		return nil, fmt.Errorf("completed puzzles of %s: %w", userID, err)
	}
	return &rec, nil
}

// SaveProgress inserts or replaces a player's record
func (s *Store) SaveProgress(rec ProgressRecord) error {
	lessons, err := json.Marshal(nonNil(rec.CompletedLessons))
	if err != nil {
		return err
	}
	puzzles, err := json.Marshal(nonNil(rec.CompletedPuzzles))
	if err != nil {
		return err
	}

	_, err = s.db.Exec(`INSERT INTO progress (
		user_id, xp, level, puzzle_rating, game_rating,
		completed_lessons, completed_puzzles, current_streak, longest_streak, last_active_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(user_id) DO UPDATE SET
		xp = excluded.xp,
		level = excluded.level,
		puzzle_rating = excluded.puzzle_rating,
		game_rating = excluded.game_rating,
		completed_lessons = excluded.completed_lessons,
		completed_puzzles = excluded.completed_puzzles,
		current_streak = excluded.current_streak,
		longest_streak = excluded.longest_streak,
		last_active_at = excluded.last_active_at`,
		rec.UserID, rec.XP, rec.Level, rec.PuzzleRating, rec.GameRating,
		string(lessons), string(puzzles), rec.CurrentStreak, rec.LongestStreak, rec.LastActiveAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save progress for %s: %w", rec.UserID, err)
	}
	return nil
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
