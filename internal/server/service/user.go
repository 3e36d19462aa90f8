package service

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lixenwraith/auth"

	"forkknight/internal/server/storage"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserLimit          = errors.New("user limit reached")
	ErrSessionExpired     = errors.New("session expired")
)

// User represents a registered user account
type User struct {
	UserID      string
	Username    string
	Email       string
	AccountType string
	CreatedAt   time.Time
	ExpiresAt   *time.Time
}

func userFromRecord(r *storage.UserRecord) *User {
	return &User{
		UserID:      r.UserID,
		Username:    r.Username,
		Email:       r.Email,
		AccountType: r.AccountType,
		CreatedAt:   r.CreatedAt,
		ExpiresAt:   r.ExpiresAt,
	}
}

// SetUserLimits overrides the registration limits
func (s *Service) SetUserLimits(limits storage.UserLimits) {
	s.limits = limits
}

// CreateUser registers an account. Permanent slots are handed out first;
// after that accounts are temporary and expire. When the table is full the
// oldest temporary account makes room.
func (s *Service) CreateUser(username, email, password string) (*User, error) {
	if s.store == nil {
		return nil, ErrStorageDisabled
	}

	total, permanent, _, err := s.store.GetUserCounts()
	if err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}

	if total >= s.limits.MaxUsers {
		oldest, err := s.store.GetOldestTempUser()
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserLimit
		}
		if err != nil {
			return nil, fmt.Errorf("failed to find replaceable user: %w", err)
		}
		if err := s.store.DeleteUserByID(oldest.UserID); err != nil {
			return nil, fmt.Errorf("failed to replace user: %w", err)
		}
		s.log.Info().Str("user", oldest.UserID).Msg("replaced oldest temporary user")
	}

	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	userID, err := s.generateUniqueUserID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate unique ID: %w", err)
	}

	now := time.Now().UTC()
	record := storage.UserRecord{
		UserID:       userID,
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		AccountType:  storage.AccountPermanent,
		CreatedAt:    now,
	}
	if permanent >= s.limits.PermanentSlots {
		expires := now.Add(s.limits.TempTTL)
		record.AccountType = storage.AccountTemp
		record.ExpiresAt = &expires
	}

	if err = s.store.CreateUser(record); err != nil {
		return nil, err
	}

	return userFromRecord(&record), nil
}

// AuthenticateUser verifies a username or email with its password
func (s *Service) AuthenticateUser(identifier, password string) (*User, error) {
	if s.store == nil {
		return nil, ErrStorageDisabled
	}

	var (
		record *storage.UserRecord
		err    error
	)
	if strings.Contains(identifier, "@") {
		record, err = s.store.GetUserByEmail(identifier)
	} else {
		record, err = s.store.GetUserByUsername(identifier)
	}

	if err != nil {
		// Hash anyway so unknown users cost the same time
		auth.HashPassword(password)
		return nil, ErrInvalidCredentials
	}

	if err := auth.VerifyPassword(password, record.PasswordHash); err != nil {
		return nil, ErrInvalidCredentials
	}

	return userFromRecord(record), nil
}

// UpdateLastLogin updates the last login timestamp for a user
func (s *Service) UpdateLastLogin(userID string) error {
	if s.store == nil {
		return ErrStorageDisabled
	}

	if err := s.store.UpdateUserLastLoginSync(userID, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to update last login time for user %s: %w", userID, err)
	}
	return nil
}

// GetUserByID retrieves user information by user ID
func (s *Service) GetUserByID(userID string) (*User, error) {
	if s.store == nil {
		return nil, ErrStorageDisabled
	}

	record, err := s.store.GetUserByID(userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return userFromRecord(record), nil
}

// GenerateUserToken opens a session for the user and signs a token bound
// to it. A new token ends any earlier session of the same user.
func (s *Service) GenerateUserToken(userID string) (string, error) {
	user, err := s.GetUserByID(userID)
	if err != nil {
		return "", err
	}

	now := time.Now().UTC()
	sessionID := uuid.New().String()
	err = s.store.CreateSession(storage.SessionRecord{
		SessionID: sessionID,
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(SessionTTL),
	})
	if err != nil {
		return "", err
	}

	claims := map[string]any{
		"username": user.Username,
		"email":    user.Email,
		"sid":      sessionID,
	}

	return auth.GenerateHS256Token(s.jwtSecret, userID, claims, SessionTTL)
}

// ValidateToken verifies a token signature and, with storage, that its
// session is still open
func (s *Service) ValidateToken(token string) (string, map[string]any, error) {
	userID, claims, err := auth.ValidateHS256Token(s.jwtSecret, token)
	if err != nil {
		return "", nil, err
	}
	if s.store == nil {
		return userID, claims, nil
	}

	sid, _ := claims["sid"].(string)
	if sid == "" {
		return "", nil, ErrSessionExpired
	}
	valid, err := s.store.IsSessionValid(sid)
	if err != nil {
		return "", nil, err
	}
	if !valid {
		return "", nil, ErrSessionExpired
	}
	return userID, claims, nil
}

// Logout ends the user's session; tokens issued for it stop validating
func (s *Service) Logout(userID string) error {
	if s.store == nil {
		return ErrStorageDisabled
	}
	return s.store.DeleteSessionByUserID(userID)
}

// generateUniqueUserID creates a unique user ID with collision detection
func (s *Service) generateUniqueUserID() (string, error) {
	const maxAttempts = 10

	for range maxAttempts {
		id := uuid.New().String()
		if _, err := s.store.GetUserByID(id); err != nil {
			return id, nil
		}
	}

	return "", fmt.Errorf("failed to generate unique ID after %d attempts", maxAttempts)
}
