package storage

import (
	"fmt"
	"time"
)

// CreateSession creates or replaces the session for a user; a user holds
// one session at a time, so a new login ends the previous one
func (s *Store) CreateSession(record SessionRecord) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM sessions WHERE user_id = ?`, record.UserID); err != nil {
		return fmt.Errorf("failed to delete existing session: %w", err)
	}

	insertQuery := `INSERT INTO sessions (session_id, user_id, created_at, expires_at) VALUES (?, ?, ?, ?)`
	if _, err := tx.Exec(insertQuery, record.SessionID, record.UserID, record.CreatedAt, record.ExpiresAt); err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	return tx.Commit()
}

// DeleteSessionByUserID removes the session of a user
func (s *Store) DeleteSessionByUserID(userID string) error {
	_, err := s.db.Exec(`DELETE FROM sessions WHERE user_id = ?`, userID)
	return err
}

// DeleteExpiredSessions removes expired sessions
func (s *Store) DeleteExpiredSessions() (int64, error) {
	result, err := s.db.Exec(`DELETE FROM sessions WHERE expires_at < ?`, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// IsSessionValid checks if a session exists and is not expired
func (s *Store) IsSessionValid(sessionID string) (bool, error) {
	var count int
	query := `SELECT COUNT(*) FROM sessions WHERE session_id = ? AND expires_at > ?`
	if err := s.db.QueryRow(query, sessionID, time.Now().UTC()).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}
