package puzzle

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"forkknight/internal/server/board"
)

func defaultCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := DefaultCatalog()
	if err != nil {
		t.Fatalf("DefaultCatalog: %v", err)
	}
	return c
}

type fixedSource int

func (f fixedSource) IntN(n int) int { return int(f) % n }

func TestDefaultCatalog(t *testing.T) {
	c := defaultCatalog(t)

	puzzles := c.Puzzles()
	if len(puzzles) != 36 {
		t.Fatalf("puzzles = %d, want 36", len(puzzles))
	}
	for i := 1; i < len(puzzles); i++ {
		if puzzles[i-1].ID >= puzzles[i].ID {
			t.Fatalf("puzzles not ordered by id at %s", puzzles[i].ID)
		}
	}
	if len(c.Lessons()) != 11 {
		t.Errorf("lessons = %d, want 11", len(c.Lessons()))
	}

	p, err := c.Puzzle("puzzle-019")
	if err != nil {
		t.Fatalf("Puzzle: %v", err)
	}
	if diff := cmp.Diff([]string{"a7a8q"}, p.Moves); diff != "" {
		t.Errorf("puzzle-019 moves (-want +got):\n%s", diff)
	}
	if !p.HasTheme("promotion") {
		t.Error("puzzle-019 missing promotion theme")
	}

	if _, err := c.Puzzle("puzzle-999"); !errors.Is(err, ErrPuzzleNotFound) {
		t.Errorf("missing puzzle err = %v", err)
	}
	if _, err := c.Lesson("nope"); !errors.Is(err, ErrLessonNotFound) {
		t.Errorf("missing lesson err = %v", err)
	}
}

func TestLessonQueries(t *testing.T) {
	c := defaultCatalog(t)

	l, err := c.Lesson("piece-movement-pawn")
	if err != nil {
		t.Fatal(err)
	}
	if l.Title != "The Pawn" {
		t.Errorf("title = %q", l.Title)
	}

	basics := c.LessonsByCategory(CategoryBasics)
	tactics := c.LessonsByCategory(CategoryTactics)
	if len(basics) != 7 || len(tactics) != 4 {
		t.Errorf("basics = %d tactics = %d, want 7 and 4", len(basics), len(tactics))
	}
	for _, l := range c.LessonsByDifficulty(Beginner) {
		if l.Difficulty != Beginner {
			t.Errorf("%s has difficulty %s", l.ID, l.Difficulty)
		}
	}
	if len(c.LessonsByCategory(CategoryEndgames)) != 0 {
		t.Error("unexpected endgame lessons")
	}
}

func TestDailyPuzzle(t *testing.T) {
	set := defaultCatalog(t).Puzzles()

	tests := []struct {
		date time.Time
		want string
	}{
		{time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC), "puzzle-007"},
		{time.Date(2026, 10, 16, 23, 59, 0, 0, time.UTC), "puzzle-007"},
		{time.Date(2026, 10, 17, 5, 0, 0, 0, time.FixedZone("AEST", 10*3600)), "puzzle-007"},
		{time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC), "puzzle-013"},
		{time.Date(2025, 12, 31, 12, 0, 0, 0, time.UTC), "puzzle-029"},
	}
	for _, tt := range tests {
		p, ok := DailyPuzzle(set, tt.date)
		if !ok || p.ID != tt.want {
			t.Errorf("DailyPuzzle(%s) = %s, want %s", tt.date, p.ID, tt.want)
		}
	}

	if _, ok := DailyPuzzle(nil, time.Now()); ok {
		t.Error("DailyPuzzle on empty set returned a puzzle")
	}
}

func TestNextPuzzle(t *testing.T) {
	set := defaultCatalog(t).Puzzles()

	// Every pick lands in the window
	for i := 0; i < 40; i++ {
		p, ok := NextPuzzle(fixedSource(i), set, 600, nil)
		if !ok || p.Rating < 500 || p.Rating > 700 {
			t.Fatalf("pick %d: %s rated %d outside [500, 700]", i, p.ID, p.Rating)
		}
	}

	// The window never drops below 400
	for i := 0; i < 4; i++ {
		p, _ := NextPuzzle(fixedSource(i), set, 250, nil)
		if p.Rating != 400 {
			t.Errorf("low rating pick %s rated %d, want 400", p.ID, p.Rating)
		}
	}

	// Completed window falls back to other unsolved puzzles
	var completed []string
	for _, p := range set {
		if p.Rating <= 500 {
			completed = append(completed, p.ID)
		}
	}
	p, ok := NextPuzzle(fixedSource(0), set, 400, completed)
	if !ok || p.Rating <= 500 {
		t.Errorf("fallback pick %s rated %d", p.ID, p.Rating)
	}

	// Everything solved still yields a puzzle
	all := make([]string, len(set))
	for i, p := range set {
		all[i] = p.ID
	}
	if _, ok := NextPuzzle(fixedSource(3), set, 600, all); !ok {
		t.Error("no puzzle when all completed")
	}
	if _, ok := NextPuzzle(fixedSource(0), nil, 600, nil); ok {
		t.Error("puzzle from empty set")
	}
}

func TestSessionLine(t *testing.T) {
	p, _ := defaultCatalog(t).Puzzle("puzzle-026")
	s, err := NewSession(p)
	if err != nil {
		t.Fatal(err)
	}

	a, err := s.Play(board.Notation("a1a2"))
	if err != nil {
		t.Fatal(err)
	}
	if a.Result != Incorrect || s.Mistakes() != 1 || s.FEN() != p.FEN {
		t.Fatalf("wrong move: result %s mistakes %d fen %s", a.Result, s.Mistakes(), s.FEN())
	}

	if _, err := s.Play(board.Notation("a1h8")); !errors.Is(err, board.ErrIllegalMove) {
		t.Fatalf("illegal move err = %v", err)
	}

	a, err = s.Play(board.Notation("Ra8+"))
	if err != nil {
		t.Fatal(err)
	}
	if a.Result != Correct || a.Reply == nil || a.Reply.Move.UCI() != "g8h7" {
		t.Fatalf("first move: %+v", a)
	}

	a, err = s.Play(board.Notation("a8a7"))
	if err != nil {
		t.Fatal(err)
	}
	if a.Result != Solved || !s.IsSolved() {
		t.Fatalf("final move result = %s", a.Result)
	}

	if _, err := s.Play(board.Notation("a7a8")); !errors.Is(err, ErrSessionFinished) {
		t.Errorf("move after solve err = %v", err)
	}

	s.Reset()
	if s.IsSolved() || s.FEN() != p.FEN || s.Mistakes() != 1 {
		t.Errorf("reset: solved %v fen %s mistakes %d", s.IsSolved(), s.FEN(), s.Mistakes())
	}
}

func TestSessionAcceptsAnyMate(t *testing.T) {
	p := Puzzle{ID: "two-rooks", FEN: "6k1/5ppp/8/8/8/8/8/RR4K1 w - - 0 1", Moves: []string{"a1a8"}}
	s, err := NewSession(p)
	if err != nil {
		t.Fatal(err)
	}
	a, err := s.Play(board.Notation("b1b8"))
	if err != nil {
		t.Fatal(err)
	}
	if a.Result != Solved || a.Played.SAN != "Rb8#" {
		t.Errorf("alternative mate: result %s san %s", a.Result, a.Played.SAN)
	}
}

func TestSessionPromotionPuzzle(t *testing.T) {
	p, _ := defaultCatalog(t).Puzzle("puzzle-019")
	s, err := NewSession(p)
	if err != nil {
		t.Fatal(err)
	}
	a, err := s.Play(board.Notation("a8=Q"))
	if err != nil {
		t.Fatal(err)
	}
	if a.Result != Solved {
		t.Errorf("result = %s, want solved", a.Result)
	}
}

func TestSessionHints(t *testing.T) {
	p, _ := defaultCatalog(t).Puzzle("puzzle-001")
	s, err := NewSession(p)
	if err != nil {
		t.Fatal(err)
	}

	var hints []Hint
	for i := 0; i < 4; i++ {
		h, err := s.Hint()
		if err != nil {
			t.Fatal(err)
		}
		hints = append(hints, h)
	}

	a1, a8 := board.NewSquare(0, 0), board.NewSquare(0, 7)
	if hints[0].From != a1 || hints[0].To != board.NoSquare || hints[0].Count != 1 {
		t.Errorf("first hint = %+v", hints[0])
	}
	if hints[2].To != a8 || !strings.HasSuffix(hints[2].Message, "a8") {
		t.Errorf("third hint = %+v", hints[2])
	}
	if hints[3].Message != hints[2].Message || s.HintsUsed() != 4 {
		t.Errorf("fourth hint = %+v, used %d", hints[3], s.HintsUsed())
	}
}

func TestSessionBrokenReplyKeepsPosition(t *testing.T) {
	p := Puzzle{ID: "bad-reply", FEN: board.StartingFEN, Moves: []string{"e2e4", "e2e4", "d2d4"}}
	s, err := NewSession(p)
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 2; i++ {
		if _, err := s.Play(board.Notation("e2e4")); !errors.Is(err, ErrInvalidContent) {
			t.Fatalf("attempt %d err = %v, want ErrInvalidContent", i, err)
		}
		if s.FEN() != board.StartingFEN || s.Mistakes() != 0 {
			t.Fatalf("attempt %d left fen %s mistakes %d", i, s.FEN(), s.Mistakes())
		}
	}

	h, err := s.Hint()
	if err != nil {
		t.Fatal(err)
	}
	if e2 := board.NewSquare(4, 1); h.From != e2 {
		t.Errorf("hint from %s, want e2", h.From)
	}
}

func TestNewSessionRejectsBrokenContent(t *testing.T) {
	if _, err := NewSession(Puzzle{ID: "x", FEN: "not a fen", Moves: []string{"e2e4"}}); !errors.Is(err, ErrInvalidContent) {
		t.Errorf("bad FEN err = %v", err)
	}
	if _, err := NewSession(Puzzle{ID: "x", FEN: board.StartingFEN}); !errors.Is(err, ErrInvalidContent) {
		t.Errorf("no moves err = %v", err)
	}
}

func TestValidatePuzzles(t *testing.T) {
	c := defaultCatalog(t)

	for _, id := range []string{"puzzle-001", "puzzle-004", "puzzle-019", "puzzle-026", "puzzle-030", "polgar-001"} {
		p, _ := c.Puzzle(id)
		if err := Validate(p); err != nil {
			t.Errorf("Validate(%s): %v", id, err)
		}
	}

	// Lines with a blocked or self-check move
	for _, id := range []string{"puzzle-011", "puzzle-027", "puzzle-028", "puzzle-029"} {
		p, _ := c.Puzzle(id)
		if err := Validate(p); !errors.Is(err, ErrInvalidContent) {
			t.Errorf("Validate(%s) = %v, want invalid content", id, err)
		}
	}

	err := ValidateCatalog(c.Puzzles(), c.Lessons())
	if err == nil || !strings.Contains(err.Error(), "puzzle-011") {
		t.Errorf("ValidateCatalog missed puzzle-011: %v", err)
	}

	dup := []Puzzle{c.Puzzles()[0], c.Puzzles()[0]}
	if err := ValidateCatalog(dup, nil); err == nil || !strings.Contains(err.Error(), "duplicate puzzle id") {
		t.Errorf("duplicate not reported: %v", err)
	}
}

func TestValidateLessons(t *testing.T) {
	c := defaultCatalog(t)

	for _, l := range c.Lessons() {
		errs := ValidateLesson(l)
		if l.ID == "tactics-discovered-attack" {
			if len(errs) != 2 {
				t.Errorf("discovered attack errors = %v, want 2", errs)
			}
			continue
		}
		for _, err := range errs {
			t.Errorf("lesson %s: %v", l.ID, err)
		}
	}

	bad := Lesson{ID: "bad", Steps: []LessonStep{
		{ID: "q", Type: StepQuiz, Content: "?", Options: []QuizOption{{ID: "a", IsCorrect: true}, {ID: "b", IsCorrect: true}}},
		{ID: "e", Type: StepExercise, Content: "go", FEN: board.StartingFEN},
		{ID: "e", Type: "riddle", Content: "dup"},
	}}
	if errs := ValidateLesson(bad); len(errs) != 4 {
		t.Errorf("bad lesson errors = %v, want 4", errs)
	}
}

func TestCheckExercise(t *testing.T) {
	c := defaultCatalog(t)
	pawn, _ := c.Lesson("piece-movement-pawn")
	step, err := pawn.Step("pawn-exercise-1")
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		move  board.MoveInput
		want  bool
		isErr error
	}{
		{"capture uci", board.Notation("e4d5"), true, nil},
		{"capture san", board.Notation("exd5"), true, nil},
		{"structured", board.Structured(board.Move{From: board.NewSquare(4, 3), To: board.NewSquare(3, 4)}), true, nil},
		{"push", board.Notation("e4e5"), false, nil},
		{"illegal", board.Notation("e4e6"), false, board.ErrIllegalMove},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CheckExercise(step, tt.move)
			if tt.isErr != nil {
				if !errors.Is(err, tt.isErr) {
					t.Fatalf("err = %v, want %v", err, tt.isErr)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("CheckExercise = %v, want %v", got, tt.want)
			}
		})
	}

	quiz, _ := pawn.Step("pawn-quiz")
	if _, err := CheckExercise(quiz, board.Notation("e4d5")); !errors.Is(err, ErrWrongStepType) {
		t.Errorf("exercise check on quiz err = %v", err)
	}
}

func TestCheckQuiz(t *testing.T) {
	pawn, _ := defaultCatalog(t).Lesson("piece-movement-pawn")
	quiz, _ := pawn.Step("pawn-quiz")

	if ok, err := CheckQuiz(quiz, "b"); err != nil || !ok {
		t.Errorf("correct option: %v %v", ok, err)
	}
	if ok, err := CheckQuiz(quiz, "a"); err != nil || ok {
		t.Errorf("wrong option: %v %v", ok, err)
	}
	if _, err := CheckQuiz(quiz, "z"); err == nil {
		t.Error("unknown option accepted")
	}
	if _, err := pawn.Step("missing"); !errors.Is(err, ErrStepNotFound) {
		t.Errorf("missing step err = %v", err)
	}
}
