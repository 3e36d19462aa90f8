package http

import (
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"forkknight/internal/server/board"
	"forkknight/internal/server/core"
	"forkknight/internal/server/puzzle"
	"forkknight/internal/server/service"
)

// learnError maps puzzle, lesson and move errors to a response
func (h *HTTPHandler) learnError(c *fiber.Ctx, err error) error {
	status, code := fiber.StatusBadRequest, core.ErrInvalidRequest
	switch {
	case errors.Is(err, puzzle.ErrPuzzleNotFound):
		status, code = fiber.StatusNotFound, core.ErrPuzzleNotFound
	case errors.Is(err, puzzle.ErrLessonNotFound), errors.Is(err, puzzle.ErrStepNotFound):
		status, code = fiber.StatusNotFound, core.ErrLessonNotFound
	case errors.Is(err, service.ErrPuzzleSessionNotFound):
		status, code = fiber.StatusNotFound, core.ErrSessionNotFound
	case errors.Is(err, puzzle.ErrSessionFinished):
		status, code = fiber.StatusConflict, core.ErrSessionFinished
	case errors.Is(err, board.ErrAmbiguousMove):
		code = core.ErrAmbiguousMove
	case errors.Is(err, board.ErrIllegalMove), errors.Is(err, board.ErrInvalidNotation):
		code = core.ErrInvalidMove
	case errors.Is(err, puzzle.ErrWrongStepType), errors.Is(err, puzzle.ErrUnknownOption), errors.Is(err, service.ErrNoAnswer):
		// bad answer shape, plain 400
	default:
		h.log.Error().Err(err).Str("path", c.Path()).Msg("request failed")
		return c.Status(fiber.StatusInternalServerError).JSON(core.ErrorResponse{
			Error: "internal server error",
			Code:  core.ErrInternalError,
		})
	}
	return c.Status(status).JSON(core.ErrorResponse{Error: err.Error(), Code: code})
}

func invalidCatalogID(c *fiber.Ctx, what string) error {
	return c.Status(fiber.StatusBadRequest).JSON(core.ErrorResponse{
		Error:   "invalid " + what + " ID format",
		Code:    core.ErrInvalidRequest,
		Details: what + " ID must be lowercase letters, digits and dashes",
	})
}

func invalidSessionID(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(core.ErrorResponse{
		Error:   "invalid session ID format",
		Code:    core.ErrInvalidRequest,
		Details: "session ID must be a valid UUID",
	})
}

func puzzleResponse(p puzzle.Puzzle) core.PuzzleResponse {
	toMove := "w"
	if fields := strings.Fields(p.FEN); len(fields) > 1 {
		toMove = fields[1]
	}
	return core.PuzzleResponse{
		ID:      p.ID,
		FEN:     p.FEN,
		Rating:  p.Rating,
		Themes:  p.Themes,
		ToMove:  toMove,
		GameURL: p.GameURL,
	}
}

func sessionResponse(v service.PuzzleView) core.PuzzleSessionResponse {
	return core.PuzzleSessionResponse{
		SessionID: v.SessionID,
		PuzzleID:  v.PuzzleID,
		FEN:       v.FEN,
		Solved:    v.Solved,
		HintsUsed: v.HintsUsed,
		Mistakes:  v.Mistakes,
	}
}

// DailyPuzzle returns today's puzzle, or the one of ?date=YYYY-MM-DD
func (h *HTTPHandler) DailyPuzzle(c *fiber.Ctx) error {
	date := time.Now()
	if s := c.Query("date"); s != "" {
		d, err := time.Parse(time.DateOnly, s)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(core.ErrorResponse{
				Error:   "invalid date",
				Code:    core.ErrInvalidRequest,
				Details: "date must be YYYY-MM-DD",
			})
		}
		date = d
	}

	p, err := h.svc.DailyPuzzle(date)
	if err != nil {
		return h.learnError(c, err)
	}
	resp := puzzleResponse(p)
	resp.Date = puzzle.DateKey(date)
	return c.JSON(resp)
}

// NextPuzzle picks an unsolved puzzle near the caller's puzzle rating
func (h *HTTPHandler) NextPuzzle(c *fiber.Ctx) error {
	userID, _ := c.Locals("userID").(string)

	p, err := h.svc.NextPuzzle(userID)
	if err != nil {
		return h.learnError(c, err)
	}
	return c.JSON(puzzleResponse(p))
}

func (h *HTTPHandler) GetPuzzle(c *fiber.Ctx) error {
	id := c.Params("puzzleId")
	if !isValidCatalogID(id) {
		return invalidCatalogID(c, "puzzle")
	}

	p, err := h.svc.Puzzle(id)
	if err != nil {
		return h.learnError(c, err)
	}
	return c.JSON(puzzleResponse(p))
}

// StartPuzzle opens an attempt; the session belongs to the caller
func (h *HTTPHandler) StartPuzzle(c *fiber.Ctx) error {
	id := c.Params("puzzleId")
	if !isValidCatalogID(id) {
		return invalidCatalogID(c, "puzzle")
	}
	userID, _ := c.Locals("userID").(string)

	v, err := h.svc.StartPuzzle(userID, id)
	if err != nil {
		return h.learnError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(sessionResponse(v))
}

func (h *HTTPHandler) GetPuzzleSession(c *fiber.Ctx) error {
	sessionID := c.Params("sessionId")
	if !isValidUUID(sessionID) {
		return invalidSessionID(c)
	}
	userID, _ := c.Locals("userID").(string)

	v, err := h.svc.PuzzleState(sessionID, userID)
	if err != nil {
		return h.learnError(c, err)
	}
	return c.JSON(sessionResponse(v))
}

// PuzzleMove plays a solver move and answers with the opponent's reply
func (h *HTTPHandler) PuzzleMove(c *fiber.Ctx) error {
	sessionID := c.Params("sessionId")
	if !isValidUUID(sessionID) {
		return invalidSessionID(c)
	}

	req, err := validatedBody[core.MoveRequest](c)
	if req == nil {
		return err
	}
	userID, _ := c.Locals("userID").(string)

	out, err := h.svc.PlayPuzzleMove(sessionID, userID, board.Notation(req.Move))
	if err != nil {
		return h.learnError(c, err)
	}

	resp := core.PuzzleMoveResponse{
		PuzzleSessionResponse: sessionResponse(out.PuzzleView),
		Result:                out.Attempt.Result.String(),
		Move:                  out.Attempt.Played.Move.UCI(),
		XPEarned:              out.XPEarned,
		Rating:                out.Rating,
	}
	if out.Attempt.Reply != nil {
		resp.Reply = out.Attempt.Reply.Move.UCI()
	}
	return c.JSON(resp)
}

// PuzzleHint reveals the next expected move a little more each call
func (h *HTTPHandler) PuzzleHint(c *fiber.Ctx) error {
	sessionID := c.Params("sessionId")
	if !isValidUUID(sessionID) {
		return invalidSessionID(c)
	}
	userID, _ := c.Locals("userID").(string)

	hint, err := h.svc.PuzzleHint(sessionID, userID)
	if err != nil {
		return h.learnError(c, err)
	}

	resp := core.PuzzleHintResponse{
		Count:   hint.Count,
		Message: hint.Message,
		From:    hint.From.String(),
	}
	if hint.To != board.NoSquare {
		resp.To = hint.To.String()
	}
	return c.JSON(resp)
}

func (h *HTTPHandler) ResetPuzzle(c *fiber.Ctx) error {
	sessionID := c.Params("sessionId")
	if !isValidUUID(sessionID) {
		return invalidSessionID(c)
	}
	userID, _ := c.Locals("userID").(string)

	v, err := h.svc.ResetPuzzle(sessionID, userID)
	if err != nil {
		return h.learnError(c, err)
	}
	return c.JSON(sessionResponse(v))
}

// ListLessons lists lessons filtered by ?category= and ?difficulty=; signed
// in callers see which ones they completed
func (h *HTTPHandler) ListLessons(c *fiber.Ctx) error {
	lessons := h.svc.Lessons(puzzle.Category(c.Query("category")), puzzle.Difficulty(c.Query("difficulty")))

	var completed []string
	if userID, _ := c.Locals("userID").(string); userID != "" {
		p, err := h.svc.Progress(userID)
		if err != nil {
			h.log.Warn().Err(err).Str("user", userID).Msg("progress unavailable for lesson list")
		}
		completed = p.CompletedLessons
	}

	out := make([]core.LessonSummary, 0, len(lessons))
	for _, l := range lessons {
		out = append(out, core.LessonSummary{
			ID:          l.ID,
			Title:       l.Title,
			Description: l.Description,
			Category:    string(l.Category),
			Difficulty:  string(l.Difficulty),
			Steps:       len(l.Steps),
			Completed:   slices.Contains(completed, l.ID),
		})
	}
	return c.JSON(out)
}

// GetLesson returns a lesson without its exercise and quiz answers
func (h *HTTPHandler) GetLesson(c *fiber.Ctx) error {
	id := c.Params("lessonId")
	if !isValidCatalogID(id) {
		return invalidCatalogID(c, "lesson")
	}

	l, err := h.svc.Lesson(id)
	if err != nil {
		return h.learnError(c, err)
	}
	return c.JSON(withoutAnswers(l))
}

func withoutAnswers(l puzzle.Lesson) puzzle.Lesson {
	steps := make([]puzzle.LessonStep, len(l.Steps))
	for i, s := range l.Steps {
		s.CorrectAnswer = ""
		if s.Options != nil {
			opts := make([]puzzle.QuizOption, len(s.Options))
			for j, o := range s.Options {
				opts[j] = puzzle.QuizOption{ID: o.ID, Text: o.Text}
			}
			s.Options = opts
		}
		steps[i] = s
	}
	l.Steps = steps
	return l
}

// CheckStep grades an exercise move or a quiz option
func (h *HTTPHandler) CheckStep(c *fiber.Ctx) error {
	lessonID, stepID := c.Params("lessonId"), c.Params("stepId")
	if !isValidCatalogID(lessonID) {
		return invalidCatalogID(c, "lesson")
	}
	if !isValidCatalogID(stepID) {
		return invalidCatalogID(c, "step")
	}

	req, err := validatedBody[core.StepCheckRequest](c)
	if req == nil {
		return err
	}

	correct, err := h.svc.CheckLessonStep(lessonID, stepID, req.Move, req.OptionID)
	if err != nil {
		return h.learnError(c, err)
	}
	return c.JSON(core.StepCheckResponse{LessonID: lessonID, StepID: stepID, Correct: correct})
}

// CompleteLesson awards lesson XP once per user
func (h *HTTPHandler) CompleteLesson(c *fiber.Ctx) error {
	id := c.Params("lessonId")
	if !isValidCatalogID(id) {
		return invalidCatalogID(c, "lesson")
	}
	userID, _ := c.Locals("userID").(string)

	p, xp, err := h.svc.CompleteLesson(userID, id, time.Now())
	if err != nil {
		return h.learnError(c, err)
	}
	return c.JSON(core.LessonCompleteResponse{LessonID: id, XPEarned: xp, Level: p.Level})
}

func (h *HTTPHandler) GetProgress(c *fiber.Ctx) error {
	userID, _ := c.Locals("userID").(string)

	p, err := h.svc.Progress(userID)
	if err != nil {
		return h.learnError(c, err)
	}
	return c.JSON(p)
}
