package http

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"

	"forkknight/internal/server/core"
	"forkknight/internal/server/processor"
	"forkknight/internal/server/service"
)

const rateLimitRate = 10 // req/sec

// HTTPHandler handles HTTP requests and routes them to the processor
type HTTPHandler struct {
	proc *processor.Processor
	svc  *service.Service
	log  zerolog.Logger
}

func NewHTTPHandler(proc *processor.Processor, svc *service.Service, log zerolog.Logger) *HTTPHandler {
	return &HTTPHandler{proc: proc, svc: svc, log: log.With().Str("component", "http").Logger()}
}

func NewFiberApp(proc *processor.Processor, svc *service.Service, devMode bool, log zerolog.Logger) *fiber.App {
	h := NewHTTPHandler(proc, svc, log)

	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 35 * time.Second,
		IdleTimeout:  60 * time.Second,
	})

	// Global middleware (order matters)
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "${status} ${method} ${path} ${latency}\n",
		Output: h.log,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	// Health check (no rate limit)
	app.Get("/health", h.Health)

	api := app.Group("/api/v1")

	auth := api.Group("/auth")

	// Register: 5 req/min per IP
	auth.Post("/register", limiter.New(limiter.Config{
		Max:        5,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(core.ErrorResponse{
				Error:   "rate limit exceeded",
				Code:    core.ErrRateLimitExceeded,
				Details: "5 registrations per minute allowed",
			})
		},
	}), h.RegisterHandler)

	// Login: 10 req/min per IP
	auth.Post("/login", limiter.New(limiter.Config{
		Max:        10,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(core.ErrorResponse{
				Error:   "rate limit exceeded",
				Code:    core.ErrRateLimitExceeded,
				Details: "10 login attempts per minute allowed",
			})
		},
	}), h.LoginHandler)

	validateToken := svc.ValidateToken

	auth.Get("/me", AuthRequired(validateToken), h.GetCurrentUserHandler)
	auth.Post("/logout", AuthRequired(validateToken), h.LogoutHandler)

	maxReq := rateLimitRate
	if devMode {
		maxReq = rateLimitRate * 2
	}
	api.Use(limiter.New(limiter.Config{
		Max:        maxReq,
		Expiration: 1 * time.Second,
		KeyGenerator: func(c *fiber.Ctx) string {
			if xff := c.Get("X-Forwarded-For"); xff != "" {
				if idx := strings.Index(xff, ","); idx != -1 {
					return strings.TrimSpace(xff[:idx])
				}
				return xff
			}
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(core.ErrorResponse{
				Error:   "rate limit exceeded",
				Code:    core.ErrRateLimitExceeded,
				Details: fmt.Sprintf("%d requests per second allowed", maxReq),
			})
		},
	}))

	api.Use(contentTypeValidator)
	api.Use(validationMiddleware)

	// Games
	api.Post("/games", OptionalAuth(validateToken), h.CreateGame)
	api.Put("/games/:gameId/players", OptionalAuth(validateToken), h.ConfigurePlayers)
	api.Get("/games/:gameId", h.GetGame)
	api.Delete("/games/:gameId", h.DeleteGame)
	api.Post("/games/:gameId/moves", OptionalAuth(validateToken), h.MakeMove)
	api.Post("/games/:gameId/undo", h.UndoMove)
	api.Get("/games/:gameId/board", h.GetBoard)
	api.Get("/games/:gameId/legal", h.LegalMoves)
	api.Post("/games/:gameId/hint", h.Hint)
	api.Post("/games/:gameId/resign", h.Resign)

	// Puzzles
	api.Get("/puzzles/daily", h.DailyPuzzle)
	api.Get("/puzzles/next", OptionalAuth(validateToken), h.NextPuzzle)
	api.Get("/puzzles/:puzzleId", h.GetPuzzle)
	api.Post("/puzzles/:puzzleId/attempts", OptionalAuth(validateToken), h.StartPuzzle)
	api.Get("/puzzle-sessions/:sessionId", OptionalAuth(validateToken), h.GetPuzzleSession)
	api.Post("/puzzle-sessions/:sessionId/moves", OptionalAuth(validateToken), h.PuzzleMove)
	api.Post("/puzzle-sessions/:sessionId/hint", OptionalAuth(validateToken), h.PuzzleHint)
	api.Post("/puzzle-sessions/:sessionId/reset", OptionalAuth(validateToken), h.ResetPuzzle)

	// Lessons
	api.Get("/lessons", OptionalAuth(validateToken), h.ListLessons)
	api.Get("/lessons/:lessonId", h.GetLesson)
	api.Post("/lessons/:lessonId/steps/:stepId/check", h.CheckStep)
	api.Post("/lessons/:lessonId/complete", AuthRequired(validateToken), h.CompleteLesson)

	api.Get("/progress", AuthRequired(validateToken), h.GetProgress)

	return app
}

// contentTypeValidator ensures POST and PUT requests have application/json
func contentTypeValidator(c *fiber.Ctx) error {
	method := c.Method()
	if method == fiber.MethodPost || method == fiber.MethodPut {
		contentType := c.Get("Content-Type")
		if contentType != "application/json" && contentType != "" {
			return c.Status(fiber.StatusUnsupportedMediaType).JSON(core.ErrorResponse{
				Error:   "unsupported media type",
				Code:    core.ErrInvalidContent,
				Details: "Content-Type must be application/json",
			})
		}
	}
	return c.Next()
}

// customErrorHandler provides consistent error responses
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	response := core.ErrorResponse{
		Error: "internal server error",
		Code:  core.ErrInternalError,
	}

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		response.Error = e.Message

		switch code {
		case fiber.StatusNotFound:
			response.Code = core.ErrGameNotFound
		case fiber.StatusBadRequest:
			response.Code = core.ErrInvalidRequest
		case fiber.StatusTooManyRequests:
			response.Code = core.ErrRateLimitExceeded
		}
	}

	return c.Status(code).JSON(response)
}

// statusFor maps a processor error code to its HTTP status
func statusFor(code string) int {
	switch code {
	case core.ErrGameNotFound, core.ErrPuzzleNotFound, core.ErrLessonNotFound, core.ErrSessionNotFound:
		return fiber.StatusNotFound
	case core.ErrUnauthorized:
		return fiber.StatusForbidden
	case core.ErrSessionFinished:
		return fiber.StatusConflict
	case core.ErrResourceLimit:
		return fiber.StatusServiceUnavailable
	case core.ErrInternalError:
		return fiber.StatusInternalServerError
	default:
		return fiber.StatusBadRequest
	}
}

// respond writes a processor response, using okStatus on success
func respond(c *fiber.Ctx, resp processor.ProcessorResponse, okStatus int) error {
	if !resp.Success {
		return c.Status(statusFor(resp.Error.Code)).JSON(resp.Error)
	}
	return c.Status(okStatus).JSON(resp.Data)
}

func invalidGameID(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(core.ErrorResponse{
		Error:   "invalid game ID format",
		Code:    core.ErrInvalidRequest,
		Details: "game ID must be a valid UUID",
	})
}

// validatedBody returns the request body parsed by validationMiddleware
func validatedBody[T any](c *fiber.Ctx) (*T, error) {
	validated, ok := c.Locals("validated").(bool)
	if !ok || !validated {
		return nil, c.Status(fiber.StatusInternalServerError).JSON(core.ErrorResponse{
			Error: "validation bypass detected",
			Code:  core.ErrInternalError,
		})
	}
	req, ok := c.Locals("validatedBody").(*T)
	if !ok || req == nil {
		return nil, c.Status(fiber.StatusInternalServerError).JSON(core.ErrorResponse{
			Error: "validation data missing",
			Code:  core.ErrInternalError,
		})
	}
	return req, nil
}

// Health check endpoint with storage status
func (h *HTTPHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "healthy",
		"time":    time.Now().Unix(),
		"storage": h.svc.GetStorageHealth(),
		"games":   h.svc.GameCount(),
	})
}

// CreateGame creates a new game with specified player types
func (h *HTTPHandler) CreateGame(c *fiber.Ctx) error {
	req, err := validatedBody[core.CreateGameRequest](c)
	if req == nil {
		return err
	}

	cmd := processor.NewCreateGameCommand(*req)
	cmd.UserID, _ = c.Locals("userID").(string)

	return respond(c, h.proc.Execute(cmd), fiber.StatusCreated)
}

// ConfigurePlayers updates player configuration mid-game
func (h *HTTPHandler) ConfigurePlayers(c *fiber.Ctx) error {
	gameID := c.Params("gameId")
	if !isValidUUID(gameID) {
		return invalidGameID(c)
	}

	req, err := validatedBody[core.ConfigurePlayersRequest](c)
	if req == nil {
		return err
	}

	cmd := processor.NewConfigurePlayersCommand(gameID, *req)
	cmd.UserID, _ = c.Locals("userID").(string)

	return respond(c, h.proc.Execute(cmd), fiber.StatusOK)
}

// GetGame retrieves current game state. With wait=true and the caller's
// moveCount it holds the request until the game changes or the wait times
// out.
func (h *HTTPHandler) GetGame(c *fiber.Ctx) error {
	gameID := c.Params("gameId")
	if !isValidUUID(gameID) {
		return invalidGameID(c)
	}

	if c.Query("wait", "false") != "true" {
		return respond(c, h.proc.Execute(processor.NewGetGameCommand(gameID)), fiber.StatusOK)
	}

	moveCount, err := strconv.Atoi(c.Query("moveCount", "-1"))
	if err != nil {
		moveCount = -1
	}

	g, err := h.svc.GetGame(gameID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(core.ErrorResponse{
			Error: "game not found",
			Code:  core.ErrGameNotFound,
		})
	}

	// Client is already behind, answer at once
	if moveCount != g.MoveCount() {
		return respond(c, h.proc.Execute(processor.NewGetGameCommand(gameID)), fiber.StatusOK)
	}

	ctx := c.Context()
	notify := h.svc.RegisterWait(ctx, gameID, moveCount)

	select {
	case <-notify:
		// Game changed, was deleted, or the wait timed out
		return respond(c, h.proc.Execute(processor.NewGetGameCommand(gameID)), fiber.StatusOK)
	case <-ctx.Done():
		return nil
	}
}

// MakeMove submits a move; "cccc" asks the computer side to move
func (h *HTTPHandler) MakeMove(c *fiber.Ctx) error {
	gameID := c.Params("gameId")
	if !isValidUUID(gameID) {
		return invalidGameID(c)
	}

	req, err := validatedBody[core.MoveRequest](c)
	if req == nil {
		return err
	}

	cmd := processor.NewMakeMoveCommand(gameID, *req)
	cmd.UserID, _ = c.Locals("userID").(string)

	resp := h.proc.Execute(cmd)
	if resp.Success && resp.Pending {
		return c.Status(fiber.StatusAccepted).JSON(resp.Data)
	}
	return respond(c, resp, fiber.StatusOK)
}

// UndoMove undoes one or more moves
func (h *HTTPHandler) UndoMove(c *fiber.Ctx) error {
	gameID := c.Params("gameId")
	if !isValidUUID(gameID) {
		return invalidGameID(c)
	}

	req, err := validatedBody[core.UndoRequest](c)
	if req == nil {
		return err
	}

	return respond(c, h.proc.Execute(processor.NewUndoMoveCommand(gameID, *req)), fiber.StatusOK)
}

// DeleteGame ends and cleans up a game
func (h *HTTPHandler) DeleteGame(c *fiber.Ctx) error {
	gameID := c.Params("gameId")
	if !isValidUUID(gameID) {
		return invalidGameID(c)
	}

	resp := h.proc.Execute(processor.NewDeleteGameCommand(gameID))
	if !resp.Success {
		return c.Status(statusFor(resp.Error.Code)).JSON(resp.Error)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// GetBoard returns the position as a diagram and a piece list
func (h *HTTPHandler) GetBoard(c *fiber.Ctx) error {
	gameID := c.Params("gameId")
	if !isValidUUID(gameID) {
		return invalidGameID(c)
	}

	return respond(c, h.proc.Execute(processor.NewGetBoardCommand(gameID)), fiber.StatusOK)
}

// LegalMoves lists legal moves in UCI, optionally from one square
func (h *HTTPHandler) LegalMoves(c *fiber.Ctx) error {
	gameID := c.Params("gameId")
	if !isValidUUID(gameID) {
		return invalidGameID(c)
	}

	cmd := processor.NewLegalMovesCommand(gameID, c.Query("square"))
	return respond(c, h.proc.Execute(cmd), fiber.StatusOK)
}

// Hint searches the best move for the human side to move
func (h *HTTPHandler) Hint(c *fiber.Ctx) error {
	gameID := c.Params("gameId")
	if !isValidUUID(gameID) {
		return invalidGameID(c)
	}

	return respond(c, h.proc.Execute(processor.NewHintCommand(gameID)), fiber.StatusOK)
}

// Resign ends the game in favour of the opponent of the human side
func (h *HTTPHandler) Resign(c *fiber.Ctx) error {
	gameID := c.Params("gameId")
	if !isValidUUID(gameID) {
		return invalidGameID(c)
	}

	return respond(c, h.proc.Execute(processor.NewResignCommand(gameID)), fiber.StatusOK)
}
