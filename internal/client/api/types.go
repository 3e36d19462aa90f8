package api

import (
	"fmt"
	"time"
)

// HealthResponse mirrors GET /health
type HealthResponse struct {
	Status  string `json:"status"`
	Time    int64  `json:"time"`
	Storage string `json:"storage"`
	Games   int    `json:"games"`
}

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type AuthResponse struct {
	Token       string    `json:"token"`
	UserID      string    `json:"userId"`
	Username    string    `json:"username"`
	Email       string    `json:"email,omitempty"`
	AccountType string    `json:"accountType"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

type UserResponse struct {
	UserID      string     `json:"userId"`
	Username    string     `json:"username"`
	Email       string     `json:"email,omitempty"`
	AccountType string     `json:"accountType"`
	CreatedAt   time.Time  `json:"createdAt"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty"`
}

// Error is a non-2xx answer decoded from the server's error body
type Error struct {
	Status  int
	Code    string
	Message string
	Details string
}

func (e *Error) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("request failed with status %d", e.Status)
	}
	return fmt.Sprintf("request failed with status %d: %s (%s)", e.Status, e.Message, e.Code)
}
