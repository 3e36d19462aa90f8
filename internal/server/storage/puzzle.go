package storage

import (
	"database/sql"
	"fmt"
	"strings"
)

// ReplacePuzzles swaps the stored catalog for the given set in one
// transaction
func (s *Store) ReplacePuzzles(records []PuzzleRecord) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM puzzles`); err != nil {
		return fmt.Errorf("failed to clear puzzles: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO puzzles (puzzle_id, fen, moves, rating, themes, game_url) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.Exec(r.PuzzleID, r.FEN, strings.Join(r.Moves, " "), r.Rating,
			strings.Join(r.Themes, " "), r.GameURL); err != nil {
			return fmt.Errorf("failed to insert puzzle %s: %w", r.PuzzleID, err)
		}
	}

	return tx.Commit()
}

// ListPuzzles returns the stored catalog ordered by id
func (s *Store) ListPuzzles() ([]PuzzleRecord, error) {
	rows, err := s.db.Query(`SELECT puzzle_id, fen, moves, rating, themes, game_url FROM puzzles ORDER BY puzzle_id`)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var puzzles []PuzzleRecord
	for rows.Next() {
		var (
			r             PuzzleRecord
			moves, themes string
		)
		if err := rows.Scan(&r.PuzzleID, &r.FEN, &moves, &r.Rating, &themes, &r.GameURL); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		r.Moves = strings.Fields(moves)
		r.Themes = strings.Fields(themes)
		puzzles = append(puzzles, r)
	}
	return puzzles, rows.Err()
}

// RecordPuzzleAttempt asynchronously logs a finished puzzle session
func (s *Store) RecordPuzzleAttempt(record PuzzleAttemptRecord) {
	s.enqueue("puzzle attempt", func(tx *sql.Tx) error {
		_, err := tx.Exec(`INSERT INTO puzzle_attempts (
			user_id, puzzle_id, solved, hints_used, mistakes, rating_after, xp_earned, attempted_utc
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			record.UserID, record.PuzzleID, record.Solved, record.HintsUsed, record.Mistakes,
			record.RatingAfter, record.XPEarned, record.AttemptedUTC,
		)
		return err
	})
}

// QueryPuzzleAttempts returns a user's attempts, newest first
func (s *Store) QueryPuzzleAttempts(userID string, limit int) ([]PuzzleAttemptRecord, error) {
	rows, err := s.db.Query(`SELECT attempt_id, user_id, puzzle_id, solved, hints_used, mistakes, rating_after, xp_earned, attempted_utc
		FROM puzzle_attempts WHERE user_id = ? ORDER BY attempt_id DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var attempts []PuzzleAttemptRecord
	for rows.Next() {
		var a PuzzleAttemptRecord
		if err := rows.Scan(&a.AttemptID, &a.UserID, &a.PuzzleID, &a.Solved, &a.HintsUsed,
			&a.Mistakes, &a.RatingAfter, &a.XPEarned, &a.AttemptedUTC); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}
