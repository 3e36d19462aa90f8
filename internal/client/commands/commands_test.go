package commands

import (
	"bytes"
	"fmt"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"forkknight/internal/client/session"
	"forkknight/internal/server/engine"
	serverhttp "forkknight/internal/server/http"
	"forkknight/internal/server/processor"
	"forkknight/internal/server/puzzle"
	"forkknight/internal/server/service"
	"forkknight/internal/server/storage"
)

// forwardedFor gives every request its own client address so the server's
// per-IP limiters stay out of the way
type forwardedFor struct {
	n atomic.Int64
}

func (f *forwardedFor) RoundTrip(req *http.Request) (*http.Response, error) {
	n := f.n.Add(1)
	req = req.Clone(req.Context())
	req.Header.Set("X-Forwarded-For", fmt.Sprintf("10.1.%d.%d", n/250, n%250+1))
	return http.DefaultTransport.RoundTrip(req)
}

type harness struct {
	s   *session.Session
	r   *Registry
	out *bytes.Buffer
}

func newHarness(t *testing.T, withStore bool) *harness {
	t.Helper()
	catalog, err := puzzle.DefaultCatalog()
	if err != nil {
		t.Fatal(err)
	}

	var store *storage.Store
	if withStore {
		store, err = storage.NewStore(filepath.Join(t.TempDir(), "client.db"), false, zerolog.Nop())
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

	app := serverhttp.NewFiberApp(proc, svc, true, zerolog.Nop())
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	go app.Listener(ln)
	t.Cleanup(func() { app.ShutdownWithTimeout(time.Second) })

	out := &bytes.Buffer{}
	s := session.New("http://"+ln.Addr().String(), out)
	s.Client.HTTPClient.Transport = &forwardedFor{}

	return &harness{s: s, r: NewRegistry(s), out: out}
}

// run executes one command line and returns what it printed
func (h *harness) run(line string) string {
	h.out.Reset()
	h.r.Execute(line)
	return h.out.String()
}

func wantOutput(t *testing.T, out string, want ...string) {
	t.Helper()
	for _, w := range want {
		if !strings.Contains(out, w) {
			t.Errorf("output missing %q:\n%s", w, out)
		}
	}
}

func TestRegistry(t *testing.T) {
	h := newHarness(t, false)

	wantOutput(t, h.run("bogus"), "Unknown command: bogus")
	wantOutput(t, h.run("help"), "Game Commands", "Puzzle Commands", "Lesson Commands", "pmove")
	wantOutput(t, h.run("help m"), "move", "Usage: move <move>")
	wantOutput(t, h.run("move e4"), "no current game")
	wantOutput(t, h.run("pmove e4"), "no current puzzle")
	wantOutput(t, h.run("health"), "Status:  healthy", "Storage: disabled")

	h.run("exit")
	if !h.s.Quit {
		t.Error("exit did not end the session")
	}
}

func TestParsePlayer(t *testing.T) {
	tests := []struct {
		spec     string
		wantErr  bool
		computer bool
		rating   int
		moveTime int
	}{
		{spec: "h"},
		{spec: "human"},
		{spec: "c", computer: true},
		{spec: "C:1200", computer: true, rating: 1200},
		{spec: "c:800:500", computer: true, rating: 800, moveTime: 500},
		{spec: "h:1200", wantErr: true},
		{spec: "c:strong", wantErr: true},
		{spec: "c:1:2:3", wantErr: true},
		{spec: "x", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			cfg, err := parsePlayer(tt.spec)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parsePlayer(%q) error = %v", tt.spec, err)
			}
			if tt.wantErr {
				return
			}
			if got := cfg.Type == 2; got != tt.computer {
				t.Errorf("computer = %v, want %v", got, tt.computer)
			}
			if cfg.Rating != tt.rating || cfg.MoveTime != tt.moveTime {
				t.Errorf("got rating %d time %d", cfg.Rating, cfg.MoveTime)
			}
		})
	}
}

func TestGameCommands(t *testing.T) {
	h := newHarness(t, false)

	wantOutput(t, h.run("new h c:1200"), "Game created")
	if h.s.CurrentGame == "" {
		t.Fatal("new game not tracked")
	}

	// The computer answers straight away
	wantOutput(t, h.run("move e4"), "Move accepted", "Computer played")
	if h.s.LastMoveCount != 2 {
		t.Fatalf("moves after reply = %d, want 2", h.s.LastMoveCount)
	}

	// A client behind the server is answered at once
	h.s.LastMoveCount = 0
	wantOutput(t, h.run("poll"), "2 new move(s)")
	wantOutput(t, h.run("state"), "computer (rating 1200)", "Moves:  2")
	wantOutput(t, h.run("show"), "a b c d e f g h", "FEN:")
	wantOutput(t, h.run("legal g1"), "g1f3", "g1h3")
	wantOutput(t, h.run("hint"), "Hint:", "hints used: 1")

	h.run("undo 2")
	if h.s.LastMoveCount != 0 {
		t.Errorf("moves after undo = %d, want 0", h.s.LastMoveCount)
	}
	wantOutput(t, h.run("undo x"), "invalid count")
	wantOutput(t, h.run("move e5"), "INVALID_MOVE")

	wantOutput(t, h.run("resign"), "Game over", "black wins")
	wantOutput(t, h.run("legal"), "No legal moves")

	gameID := h.s.CurrentGame
	wantOutput(t, h.run("delete"), "Game deleted")
	if h.s.CurrentGame != "" {
		t.Error("deleted game still current")
	}
	wantOutput(t, h.run("join "+gameID), "GAME_NOT_FOUND")
}

func TestComputerOpens(t *testing.T) {
	h := newHarness(t, false)

	wantOutput(t, h.run("new c h"), "Game created", "Computer played")
	if h.s.LastMoveCount != 1 || h.s.CurrentGameState.Turn != "b" {
		t.Fatalf("after opening: moves %d turn %s", h.s.LastMoveCount, h.s.CurrentGameState.Turn)
	}

	// Both sides human now, no reply follows
	wantOutput(t, h.run("players h h"), "Players updated")
	h.run("move e5")
	if h.s.LastMoveCount != 2 {
		t.Errorf("moves = %d, want 2", h.s.LastMoveCount)
	}
	wantOutput(t, h.run("computer"), "NOT_HUMAN_TURN")
}

func TestPuzzleCommands(t *testing.T) {
	h := newHarness(t, false)

	wantOutput(t, h.run("puzzle puzzle-001"), "Puzzle puzzle-001", "rating 400", "to move, find")
	if h.s.PuzzleSession == "" {
		t.Fatal("puzzle session not tracked")
	}

	wantOutput(t, h.run("phint"), "Hint 1:")
	wantOutput(t, h.run("pmove Kd2"), "Incorrect", "mistakes: 1")
	wantOutput(t, h.run("pmove Ra8#"), "a1a8", "Solved!")
	wantOutput(t, h.run("pstate"), "Solved:   true", "Mistakes: 1")
	wantOutput(t, h.run("phint"), "SESSION_FINISHED")

	wantOutput(t, h.run("preset"), "Puzzle restarted")
	wantOutput(t, h.run("pstate"), "Solved:   false")

	wantOutput(t, h.run("daily 2024-01-01"), "for 2024-01-01")
	wantOutput(t, h.run("daily yesterday"), "invalid date")
	wantOutput(t, h.run("next"), "Puzzle ")
	wantOutput(t, h.run("puzzle no-such-puzzle"), "PUZZLE_NOT_FOUND")
}

func TestLessonCommands(t *testing.T) {
	h := newHarness(t, false)

	wantOutput(t, h.run("lessons basics beginner"), "piece-movement-pawn")
	wantOutput(t, h.run("lessons nosuchcategory"), "No lessons found")
	wantOutput(t, h.run("lesson piece-movement-pawn"), "pawn-exercise-1", "pawn-quiz", "b) Diagonally forward")

	wantOutput(t, h.run("check piece-movement-pawn pawn-exercise-1 e4d5"), "Correct!")
	wantOutput(t, h.run("check piece-movement-pawn pawn-quiz b"), "Correct!")
	wantOutput(t, h.run("check piece-movement-pawn pawn-quiz a"), "Not quite")

	wantOutput(t, h.run("complete piece-movement-pawn"), "login required")
	wantOutput(t, h.run("progress"), "login required")
}

func TestAuthCommands(t *testing.T) {
	old := readPassword
	readPassword = func(*session.Session, string) (string, error) { return "knight123", nil }
	t.Cleanup(func() { readPassword = old })

	h := newHarness(t, true)

	wantOutput(t, h.run("register alice alice@example.com"), "Registered successfully")
	if h.s.Username != "alice" || h.s.AuthToken == "" {
		t.Fatalf("session after register: %q token %t", h.s.Username, h.s.AuthToken != "")
	}
	wantOutput(t, h.run("whoami"), "Username: alice", "Email:    alice@example.com")

	wantOutput(t, h.run("complete piece-movement-pawn"), "Lesson completed")
	wantOutput(t, h.run("complete piece-movement-pawn"), "already completed")
	wantOutput(t, h.run("lessons basics"), "*")
	wantOutput(t, h.run("progress"), "Lessons:       1 completed")

	// A game created while signed in is ours
	h.run("new h h")
	if got := h.s.PlayerColor(); got != "w" {
		t.Errorf("player color = %q, want w", got)
	}

	wantOutput(t, h.run("logout"), "Logged out")
	if h.s.AuthToken != "" || h.s.Client.AuthToken != "" {
		t.Error("credentials kept after logout")
	}
	wantOutput(t, h.run("whoami"), "Not authenticated")

	wantOutput(t, h.run("login ALICE"), "Logged in successfully")
	wantOutput(t, h.run("register alice"), "409")
}
