package http

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/gofiber/fiber/v2"

	"forkknight/internal/server/core"
	"forkknight/internal/server/service"
	"forkknight/internal/server/storage"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
var usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_]{1,40}$`)

// RegisterRequest defines the user registration payload
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=1,max=40"`
	Email    string `json:"email" validate:"omitempty,max=255"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

// LoginRequest defines the authentication payload
type LoginRequest struct {
	Identifier string `json:"identifier" validate:"required,max=255"` // username or email
	Password   string `json:"password" validate:"required,max=128"`
}

// AuthResponse contains JWT token and user information
type AuthResponse struct {
	Token       string    `json:"token"`
	UserID      string    `json:"userId"`
	Username    string    `json:"username"`
	Email       string    `json:"email,omitempty"`
	AccountType string    `json:"accountType"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// UserResponse contains current user information
type UserResponse struct {
	UserID      string     `json:"userId"`
	Username    string     `json:"username"`
	Email       string     `json:"email,omitempty"`
	AccountType string     `json:"accountType"`
	CreatedAt   time.Time  `json:"createdAt"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty"`
}

func (h *HTTPHandler) authResponse(c *fiber.Ctx, status int, user *service.User) error {
	token, err := h.svc.GenerateUserToken(user.UserID)
	if err != nil {
		h.log.Error().Err(err).Str("user", user.UserID).Msg("token generation failed")
		return c.Status(fiber.StatusInternalServerError).JSON(core.ErrorResponse{
			Error: "failed to generate token",
			Code:  core.ErrInternalError,
		})
	}

	return c.Status(status).JSON(AuthResponse{
		Token:       token,
		UserID:      user.UserID,
		Username:    user.Username,
		Email:       user.Email,
		AccountType: user.AccountType,
		ExpiresAt:   time.Now().Add(service.SessionTTL),
	})
}

// RegisterHandler creates a new user account
func (h *HTTPHandler) RegisterHandler(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(core.ErrorResponse{
			Error:   "invalid request body",
			Code:    core.ErrInvalidRequest,
			Details: err.Error(),
		})
	}

	if !usernameRegex.MatchString(req.Username) {
		return c.Status(fiber.StatusBadRequest).JSON(core.ErrorResponse{
			Error:   "invalid username format",
			Code:    core.ErrInvalidRequest,
			Details: "username must be 1-40 characters, alphanumeric and underscore only",
		})
	}

	if req.Email != "" && !emailRegex.MatchString(req.Email) {
		return c.Status(fiber.StatusBadRequest).JSON(core.ErrorResponse{
			Error:   "invalid email format",
			Code:    core.ErrInvalidRequest,
			Details: "email must be a valid email address",
		})
	}

	if err := validatePassword(req.Password); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(core.ErrorResponse{
			Error:   "weak password",
			Code:    core.ErrInvalidRequest,
			Details: err.Error(),
		})
	}

	// Normalize for case-insensitive storage
	req.Username = strings.ToLower(req.Username)
	req.Email = strings.ToLower(req.Email)

	user, err := h.svc.CreateUser(req.Username, req.Email, req.Password)
	switch {
	case errors.Is(err, storage.ErrUserExists):
		return c.Status(fiber.StatusConflict).JSON(core.ErrorResponse{
			Error:   "user already exists",
			Code:    core.ErrInvalidRequest,
			Details: "username or email already taken",
		})
	case errors.Is(err, service.ErrUserLimit):
		return c.Status(fiber.StatusServiceUnavailable).JSON(core.ErrorResponse{
			Error:   "registration closed",
			Code:    core.ErrResourceLimit,
			Details: "user limit reached",
		})
	case errors.Is(err, service.ErrStorageDisabled):
		return c.Status(fiber.StatusServiceUnavailable).JSON(core.ErrorResponse{
			Error: "accounts unavailable",
			Code:  core.ErrResourceLimit,
		})
	case err != nil:
		h.log.Error().Err(err).Msg("user creation failed")
		return c.Status(fiber.StatusInternalServerError).JSON(core.ErrorResponse{
			Error: "failed to create user",
			Code:  core.ErrInternalError,
		})
	}

	return h.authResponse(c, fiber.StatusCreated, user)
}

// validatePassword checks password strength requirements
func validatePassword(password string) error {
	const (
		minPasswordLength = 8
		maxPasswordLength = 128
	)
	if len(password) < minPasswordLength {
		return fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}
	if len(password) > maxPasswordLength {
		return fmt.Errorf("password must not exceed %d characters", maxPasswordLength)
	}

	hasLetter, hasNumber := false, false
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsNumber(r):
			hasNumber = true
		}
	}

	if !hasLetter || !hasNumber {
		return fmt.Errorf("password must contain at least one letter and one number")
	}

	return nil
}

// LoginHandler authenticates user and returns JWT token
func (h *HTTPHandler) LoginHandler(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(core.ErrorResponse{
			Error:   "invalid request body",
			Code:    core.ErrInvalidRequest,
			Details: err.Error(),
		})
	}
	if err := validate.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(core.ErrorResponse{
			Error:   "validation failed",
			Code:    core.ErrInvalidRequest,
			Details: validationDetails(err),
		})
	}

	req.Identifier = strings.ToLower(req.Identifier)

	user, err := h.svc.AuthenticateUser(req.Identifier, req.Password)
	if errors.Is(err, service.ErrStorageDisabled) {
		return c.Status(fiber.StatusServiceUnavailable).JSON(core.ErrorResponse{
			Error: "accounts unavailable",
			Code:  core.ErrResourceLimit,
		})
	}
	if err != nil {
		// Same answer for unknown users and wrong passwords
		return c.Status(fiber.StatusUnauthorized).JSON(core.ErrorResponse{
			Error: "invalid credentials",
			Code:  core.ErrUnauthorized,
		})
	}

	if err := h.svc.UpdateLastLogin(user.UserID); err != nil {
		h.log.Warn().Err(err).Str("user", user.UserID).Msg("last login not recorded")
	}

	return h.authResponse(c, fiber.StatusOK, user)
}

// GetCurrentUserHandler returns authenticated user information
func (h *HTTPHandler) GetCurrentUserHandler(c *fiber.Ctx) error {
	userID, _ := c.Locals("userID").(string)

	user, err := h.svc.GetUserByID(userID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(core.ErrorResponse{
			Error: "user not found",
			Code:  core.ErrInvalidRequest,
		})
	}

	return c.JSON(UserResponse{
		UserID:      user.UserID,
		Username:    user.Username,
		Email:       user.Email,
		AccountType: user.AccountType,
		CreatedAt:   user.CreatedAt,
		ExpiresAt:   user.ExpiresAt,
	})
}

// LogoutHandler ends the caller's session
func (h *HTTPHandler) LogoutHandler(c *fiber.Ctx) error {
	userID, _ := c.Locals("userID").(string)

	if err := h.svc.Logout(userID); err != nil && !errors.Is(err, service.ErrStorageDisabled) {
		h.log.Error().Err(err).Str("user", userID).Msg("logout failed")
		return c.Status(fiber.StatusInternalServerError).JSON(core.ErrorResponse{
			Error: "failed to end session",
			Code:  core.ErrInternalError,
		})
	}
	return c.SendStatus(fiber.StatusNoContent)
}
