package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"forkknight/internal/server/board"
	"forkknight/internal/server/core"
	"forkknight/internal/server/engine"
	"forkknight/internal/server/processor"
	"forkknight/internal/server/puzzle"
	"forkknight/internal/server/rating"
	"forkknight/internal/server/service"
	"forkknight/internal/server/storage"
)

type testServer struct {
	app *fiber.App
	svc *service.Service
	ip  int
}

func newTestServer(t *testing.T, withStore bool) *testServer {
	t.Helper()
	catalog, err := puzzle.DefaultCatalog()
	if err != nil {
		t.Fatal(err)
	}

	var store *storage.Store
	if withStore {
		store, err = storage.NewStore(filepath.Join(t.TempDir(), "test.db"), false, zerolog.Nop())
		if err != nil {
			t.Fatal(err)
		}
		if err := store.InitDB(); err != nil {
			t.Fatal(err)
		}
	}

	svc := service.New(store, []byte("test-secret"), catalog, zerolog.Nop())
	queue := processor.NewEngineQueue(1, engine.New(engine.WithMaxDepth(2)), 2*time.Second, zerolog.Nop())
	proc := processor.New(svc, queue, zerolog.Nop())
	t.Cleanup(func() {
		proc.Close()
		svc.Shutdown(time.Second)
	})

	return &testServer{app: NewFiberApp(proc, svc, true, zerolog.Nop()), svc: svc}
}

// do sends a request from a fresh client address so the per-IP limiter
// stays out of the way
func (s *testServer) do(t *testing.T, method, path string, body any, token string) (int, []byte) {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		r = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	s.ip++
	req.Header.Set("X-Forwarded-For", fmt.Sprintf("10.0.%d.%d", s.ip/250, s.ip%250+1))

	resp, err := s.app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp.StatusCode, data
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
	return v
}

func wantStatus(t *testing.T, got int, body []byte, want int, code string) {
	t.Helper()
	if got != want {
		t.Fatalf("status = %d (%s), want %d", got, body, want)
	}
	if code != "" {
		if e := decode[core.ErrorResponse](t, body); e.Code != code {
			t.Fatalf("code = %s, want %s", e.Code, code)
		}
	}
}

var humans = core.CreateGameRequest{
	White: core.PlayerConfig{Type: core.PlayerHuman},
	Black: core.PlayerConfig{Type: core.PlayerHuman},
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, false)
	status, body := s.do(t, "GET", "/health", nil, "")
	wantStatus(t, status, body, 200, "")

	health := decode[map[string]any](t, body)
	if health["status"] != "healthy" || health["storage"] != "disabled" {
		t.Errorf("health = %v", health)
	}
}

func TestGameLifecycle(t *testing.T) {
	s := newTestServer(t, false)

	status, body := s.do(t, "POST", "/api/v1/games", humans, "")
	wantStatus(t, status, body, 201, "")
	g := decode[core.GameResponse](t, body)
	base := "/api/v1/games/" + g.GameID

	status, body = s.do(t, "POST", base+"/moves", core.MoveRequest{Move: "e4"}, "")
	wantStatus(t, status, body, 200, "")
	if got := decode[core.GameResponse](t, body); got.LastMove == nil || got.LastMove.Move != "e2e4" {
		t.Errorf("after e4: %+v", got)
	}

	status, body = s.do(t, "POST", base+"/moves", core.MoveRequest{Move: "e5e4"}, "")
	wantStatus(t, status, body, 400, core.ErrInvalidMove)

	status, body = s.do(t, "GET", base+"/legal?square=g8", nil, "")
	wantStatus(t, status, body, 200, "")
	if legal := decode[core.LegalMovesResponse](t, body); len(legal.Moves) != 2 {
		t.Errorf("g8 moves = %v", legal.Moves)
	}

	status, body = s.do(t, "GET", base+"/board", nil, "")
	wantStatus(t, status, body, 200, "")
	if b := decode[core.BoardResponse](t, body); len(b.Pieces) != 32 {
		t.Errorf("pieces = %d", len(b.Pieces))
	}

	status, body = s.do(t, "POST", base+"/undo", core.UndoRequest{Count: 1}, "")
	wantStatus(t, status, body, 200, "")
	if got := decode[core.GameResponse](t, body); len(got.Moves) != 0 {
		t.Errorf("moves after undo = %v", got.Moves)
	}

	status, body = s.do(t, "POST", base+"/resign", nil, "")
	wantStatus(t, status, body, 200, "")
	if got := decode[core.GameResponse](t, body); got.State != "black wins" {
		t.Errorf("state after resign = %s", got.State)
	}

	status, body = s.do(t, "DELETE", base, nil, "")
	wantStatus(t, status, body, 204, "")

	status, body = s.do(t, "GET", base, nil, "")
	wantStatus(t, status, body, 404, core.ErrGameNotFound)
}

func TestRequestValidation(t *testing.T) {
	s := newTestServer(t, false)

	status, body := s.do(t, "GET", "/api/v1/games/not-a-uuid", nil, "")
	wantStatus(t, status, body, 400, core.ErrInvalidRequest)

	bad := core.CreateGameRequest{White: core.PlayerConfig{Type: 3}, Black: core.PlayerConfig{Type: core.PlayerHuman}}
	status, body = s.do(t, "POST", "/api/v1/games", bad, "")
	wantStatus(t, status, body, 400, core.ErrInvalidRequest)

	status, body = s.do(t, "POST", "/api/v1/games/"+uuid.NewString()+"/moves", core.MoveRequest{}, "")
	wantStatus(t, status, body, 400, core.ErrInvalidRequest)
	if e := decode[core.ErrorResponse](t, body); !strings.Contains(e.Details, "Move is required") {
		t.Errorf("details = %q", e.Details)
	}

	req := httptest.NewRequest("POST", "/api/v1/games", strings.NewReader("white=1"))
	req.Header.Set("Content-Type", "text/plain")
	resp, err := s.app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != fiber.StatusUnsupportedMediaType {
		t.Errorf("text/plain status = %d", resp.StatusCode)
	}
}

func TestLongPoll(t *testing.T) {
	s := newTestServer(t, false)
	_, body := s.do(t, "POST", "/api/v1/games", humans, "")
	g := decode[core.GameResponse](t, body)
	base := "/api/v1/games/" + g.GameID

	// A stale move count answers at once
	start := time.Now()
	status, body := s.do(t, "GET", base+"?wait=true&moveCount=3", nil, "")
	wantStatus(t, status, body, 200, "")
	if time.Since(start) > 5*time.Second {
		t.Errorf("stale wait took %v", time.Since(start))
	}

	go func() {
		time.Sleep(100 * time.Millisecond)
		s.svc.ApplyMove(g.GameID, board.Notation("d4"))
	}()

	status, body = s.do(t, "GET", base+"?wait=true&moveCount=0", nil, "")
	wantStatus(t, status, body, 200, "")
	if got := decode[core.GameResponse](t, body); len(got.Moves) != 1 {
		t.Errorf("woke with moves %v", got.Moves)
	}
}

func TestPuzzleEndpoints(t *testing.T) {
	s := newTestServer(t, false)

	status, body := s.do(t, "GET", "/api/v1/puzzles/puzzle-001", nil, "")
	wantStatus(t, status, body, 200, "")
	if strings.Contains(string(body), "moves") {
		t.Errorf("puzzle leaks its solution: %s", body)
	}
	if p := decode[core.PuzzleResponse](t, body); p.ToMove != "w" || p.Rating != 400 {
		t.Errorf("puzzle = %+v", p)
	}

	status, body = s.do(t, "GET", "/api/v1/puzzles/daily?date=2024-01-15", nil, "")
	wantStatus(t, status, body, 200, "")
	if p := decode[core.PuzzleResponse](t, body); p.Date != "2024-01-15" || p.ID == "" {
		t.Errorf("daily = %+v", p)
	}

	status, body = s.do(t, "GET", "/api/v1/puzzles/daily?date=15.01.2024", nil, "")
	wantStatus(t, status, body, 400, core.ErrInvalidRequest)
	status, body = s.do(t, "GET", "/api/v1/puzzles/no-such-puzzle", nil, "")
	wantStatus(t, status, body, 404, core.ErrPuzzleNotFound)
	status, body = s.do(t, "GET", "/api/v1/puzzles/Bad_ID", nil, "")
	wantStatus(t, status, body, 400, core.ErrInvalidRequest)

	status, body = s.do(t, "POST", "/api/v1/puzzles/puzzle-001/attempts", nil, "")
	wantStatus(t, status, body, 201, "")
	sess := decode[core.PuzzleSessionResponse](t, body)
	base := "/api/v1/puzzle-sessions/" + sess.SessionID

	status, body = s.do(t, "POST", base+"/hint", nil, "")
	wantStatus(t, status, body, 200, "")
	if hint := decode[core.PuzzleHintResponse](t, body); hint.Count != 1 || hint.From != "a1" || hint.To != "" {
		t.Errorf("hint = %+v", hint)
	}

	status, body = s.do(t, "POST", base+"/moves", core.MoveRequest{Move: "Kd2"}, "")
	wantStatus(t, status, body, 200, "")
	if out := decode[core.PuzzleMoveResponse](t, body); out.Result != "incorrect" || out.Mistakes != 1 {
		t.Errorf("wrong move = %+v", out)
	}

	status, body = s.do(t, "POST", base+"/moves", core.MoveRequest{Move: "Ra8#"}, "")
	wantStatus(t, status, body, 200, "")
	out := decode[core.PuzzleMoveResponse](t, body)
	if out.Result != "solved" || !out.Solved || out.Move != "a1a8" {
		t.Errorf("solve = %+v", out)
	}
	// Anonymous solves earn nothing
	if out.XPEarned != 0 || out.Rating != 0 {
		t.Errorf("anonymous credit = %d xp, rating %d", out.XPEarned, out.Rating)
	}

	status, body = s.do(t, "POST", base+"/hint", nil, "")
	wantStatus(t, status, body, 409, core.ErrSessionFinished)

	status, body = s.do(t, "GET", "/api/v1/puzzle-sessions/"+uuid.NewString(), nil, "")
	wantStatus(t, status, body, 404, core.ErrSessionNotFound)
}

func TestLessonEndpoints(t *testing.T) {
	s := newTestServer(t, false)

	status, body := s.do(t, "GET", "/api/v1/lessons?category=basics&difficulty=beginner", nil, "")
	wantStatus(t, status, body, 200, "")
	lessons := decode[[]core.LessonSummary](t, body)
	found := false
	for _, l := range lessons {
		if l.Category != "basics" || l.Difficulty != "beginner" {
			t.Errorf("filter let through %+v", l)
		}
		found = found || l.ID == "piece-movement-pawn"
	}
	if !found {
		t.Error("piece-movement-pawn missing from basics")
	}

	status, body = s.do(t, "GET", "/api/v1/lessons/piece-movement-pawn", nil, "")
	wantStatus(t, status, body, 200, "")
	if strings.Contains(string(body), "correctAnswer") || strings.Contains(string(body), `"isCorrect":true`) {
		t.Errorf("lesson leaks answers: %s", body)
	}

	tests := []struct {
		step    string
		req     core.StepCheckRequest
		status  int
		correct bool
	}{
		{"pawn-exercise-1", core.StepCheckRequest{Move: "exd5"}, 200, true},
		{"pawn-exercise-1", core.StepCheckRequest{Move: "e5"}, 200, false},
		{"pawn-quiz", core.StepCheckRequest{OptionID: "b"}, 200, true},
		{"pawn-quiz", core.StepCheckRequest{OptionID: "a"}, 200, false},
		{"pawn-quiz", core.StepCheckRequest{}, 400, false},
		{"no-such-step", core.StepCheckRequest{OptionID: "a"}, 404, false},
	}
	for _, tt := range tests {
		status, body := s.do(t, "POST", "/api/v1/lessons/piece-movement-pawn/steps/"+tt.step+"/check", tt.req, "")
		if status != tt.status {
			t.Errorf("%s %+v: status %d (%s)", tt.step, tt.req, status, body)
			continue
		}
		if status == 200 {
			if got := decode[core.StepCheckResponse](t, body); got.Correct != tt.correct {
				t.Errorf("%s %+v: correct = %v", tt.step, tt.req, got.Correct)
			}
		}
	}

	status, body = s.do(t, "POST", "/api/v1/lessons/piece-movement-pawn/complete", nil, "")
	wantStatus(t, status, body, 401, core.ErrUnauthorized)
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t, true)

	reg := RegisterRequest{Username: "Alice", Email: "alice@example.com", Password: "secret123"}
	status, body := s.do(t, "POST", "/api/v1/auth/register", reg, "")
	wantStatus(t, status, body, 201, "")
	auth := decode[AuthResponse](t, body)
	if auth.Token == "" || auth.Username != "alice" {
		t.Fatalf("register = %+v", auth)
	}

	status, body = s.do(t, "POST", "/api/v1/auth/register", reg, "")
	wantStatus(t, status, body, 409, "")
	status, body = s.do(t, "POST", "/api/v1/auth/register", RegisterRequest{Username: "bob", Password: "lettersonly"}, "")
	wantStatus(t, status, body, 400, core.ErrInvalidRequest)

	status, body = s.do(t, "GET", "/api/v1/auth/me", nil, auth.Token)
	wantStatus(t, status, body, 200, "")
	if me := decode[UserResponse](t, body); me.UserID != auth.UserID {
		t.Errorf("me = %+v", me)
	}

	status, body = s.do(t, "POST", "/api/v1/lessons/piece-movement-pawn/complete", nil, auth.Token)
	wantStatus(t, status, body, 200, "")
	if done := decode[core.LessonCompleteResponse](t, body); done.XPEarned != rating.LessonXP {
		t.Errorf("complete = %+v", done)
	}

	status, body = s.do(t, "GET", "/api/v1/lessons?category=basics", nil, auth.Token)
	wantStatus(t, status, body, 200, "")
	for _, l := range decode[[]core.LessonSummary](t, body) {
		if l.Completed != (l.ID == "piece-movement-pawn") {
			t.Errorf("lesson %s completed = %v", l.ID, l.Completed)
		}
	}

	status, body = s.do(t, "GET", "/api/v1/progress", nil, auth.Token)
	wantStatus(t, status, body, 200, "")
	if p := decode[rating.Progress](t, body); p.XP != rating.LessonXP || p.PuzzleRating != rating.DefaultRating {
		t.Errorf("progress = %+v", p)
	}

	status, body = s.do(t, "POST", "/api/v1/auth/logout", nil, auth.Token)
	wantStatus(t, status, body, 204, "")
	status, body = s.do(t, "GET", "/api/v1/auth/me", nil, auth.Token)
	wantStatus(t, status, body, 401, core.ErrUnauthorized)

	status, body = s.do(t, "POST", "/api/v1/auth/login", LoginRequest{Identifier: "alice@example.com", Password: "wrong123"}, "")
	wantStatus(t, status, body, 401, core.ErrUnauthorized)
	status, body = s.do(t, "POST", "/api/v1/auth/login", LoginRequest{Identifier: "ALICE", Password: "secret123"}, "")
	wantStatus(t, status, body, 200, "")
	if again := decode[AuthResponse](t, body); again.UserID != auth.UserID {
		t.Errorf("login = %+v", again)
	}
}

func TestAuthWithoutStorage(t *testing.T) {
	s := newTestServer(t, false)
	reg := RegisterRequest{Username: "carol", Password: "secret123"}
	status, body := s.do(t, "POST", "/api/v1/auth/register", reg, "")
	wantStatus(t, status, body, nethttp.StatusServiceUnavailable, core.ErrResourceLimit)
}
