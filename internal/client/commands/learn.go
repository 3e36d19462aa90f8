package commands

import (
	"fmt"
	"strings"

	"forkknight/internal/client/display"
	"forkknight/internal/client/session"
	"forkknight/internal/server/core"
	"forkknight/internal/server/puzzle"
)

func (r *Registry) registerPuzzleCommands() {
	r.Register(&Command{
		Name:        "daily",
		ShortName:   "dy",
		Description: "Start the daily puzzle",
		Usage:       "daily [YYYY-MM-DD]",
		Handler:     dailyPuzzleHandler,
	})

	r.Register(&Command{
		Name:        "next",
		ShortName:   "nx",
		Description: "Start a puzzle matched to your rating",
		Usage:       "next",
		Handler:     nextPuzzleHandler,
	})

	r.Register(&Command{
		Name:        "puzzle",
		ShortName:   "pz",
		Description: "Start a puzzle by id",
		Usage:       "puzzle <puzzleId>",
		Handler:     startPuzzleHandler,
	})

	r.Register(&Command{
		Name:        "pmove",
		ShortName:   "pm",
		Description: "Play a move in the current puzzle",
		Usage:       "pmove <move>",
		Handler:     puzzleMoveHandler,
	})

	r.Register(&Command{
		Name:        "phint",
		ShortName:   "ph",
		Description: "Get a puzzle hint",
		Usage:       "phint",
		Handler:     puzzleHintHandler,
	})

	r.Register(&Command{
		Name:        "preset",
		ShortName:   "pr",
		Description: "Restart the current puzzle",
		Usage:       "preset",
		Handler:     puzzleResetHandler,
	})

	r.Register(&Command{
		Name:        "pstate",
		ShortName:   "ps",
		Description: "Show the current puzzle",
		Usage:       "pstate",
		Handler:     puzzleStateHandler,
	})
}

func (r *Registry) registerLessonCommands() {
	r.Register(&Command{
		Name:        "lessons",
		ShortName:   "ls",
		Description: "List lessons",
		Usage:       "lessons [category] [difficulty]",
		Handler:     listLessonsHandler,
	})

	r.Register(&Command{
		Name:        "lesson",
		ShortName:   "le",
		Description: "Show a lesson and its steps",
		Usage:       "lesson <lessonId>",
		Handler:     showLessonHandler,
	})

	r.Register(&Command{
		Name:        "check",
		ShortName:   "ck",
		Description: "Answer an exercise or quiz step",
		Usage:       "check <lessonId> <stepId> <move|optionId>",
		Handler:     checkStepHandler,
	})

	r.Register(&Command{
		Name:        "complete",
		ShortName:   "cl",
		Description: "Mark a lesson completed",
		Usage:       "complete <lessonId>",
		Handler:     completeLessonHandler,
	})

	r.Register(&Command{
		Name:        "progress",
		ShortName:   "pg",
		Description: "Show your XP, ratings and streak",
		Usage:       "progress",
		Handler:     progressHandler,
	})
}

func dailyPuzzleHandler(s *session.Session, args []string) error {
	date := ""
	if len(args) > 0 {
		date = args[0]
	}
	p, err := s.Client.DailyPuzzle(date)
	if err != nil {
		return err
	}
	return startPuzzle(s, p)
}

func nextPuzzleHandler(s *session.Session, args []string) error {
	p, err := s.Client.NextPuzzle()
	if err != nil {
		return err
	}
	return startPuzzle(s, p)
}

func startPuzzleHandler(s *session.Session, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: puzzle <puzzleId>")
	}
	p, err := s.Client.GetPuzzle(args[0])
	if err != nil {
		return err
	}
	return startPuzzle(s, p)
}

func startPuzzle(s *session.Session, p *core.PuzzleResponse) error {
	sess, err := s.Client.StartPuzzle(p.ID)
	if err != nil {
		return err
	}
	s.PuzzleSession = sess.SessionID
	s.PuzzleID = p.ID

	fmt.Fprintf(s.Out, "\n%sPuzzle %s%s (rating %d)", display.Cyan, p.ID, display.Reset, p.Rating)
	if p.Date != "" {
		fmt.Fprintf(s.Out, " for %s", p.Date)
	}
	fmt.Fprintln(s.Out)
	if len(p.Themes) > 0 {
		fmt.Fprintf(s.Out, "Themes: %s\n", strings.Join(p.Themes, ", "))
	}
	fmt.Fprintln(s.Out)
	display.RenderFEN(s.Out, sess.FEN)
	fmt.Fprintf(s.Out, "\n%s to move, find the best line\n", display.ColorForTurn(p.ToMove))
	return nil
}

func requirePuzzle(s *session.Session) (string, error) {
	if s.PuzzleSession == "" {
		return "", fmt.Errorf("no current puzzle, use 'daily', 'next' or 'puzzle <id>'")
	}
	return s.PuzzleSession, nil
}

func puzzleMoveHandler(s *session.Session, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: pmove <move>")
	}
	sessionID, err := requirePuzzle(s)
	if err != nil {
		return err
	}

	resp, err := s.Client.PuzzleMove(sessionID, args[0])
	if err != nil {
		return err
	}

	fmt.Fprintf(s.Out, "%s %s\n", resp.Move, display.ColorForResult(resp.Result))
	if resp.Reply != "" {
		fmt.Fprintf(s.Out, "%sOpponent replied: %s%s\n", display.Magenta, resp.Reply, display.Reset)
	}
	if resp.Solved {
		if resp.XPEarned > 0 {
			fmt.Fprintf(s.Out, "%s+%d XP%s", display.Green, resp.XPEarned, display.Reset)
			if resp.Rating > 0 {
				fmt.Fprintf(s.Out, " - puzzle rating %d", resp.Rating)
			}
			fmt.Fprintln(s.Out)
		}
		return nil
	}
	if resp.Result == "incorrect" {
		fmt.Fprintf(s.Out, "Try again (mistakes: %d)\n", resp.Mistakes)
	}
	return nil
}

func puzzleHintHandler(s *session.Session, args []string) error {
	sessionID, err := requirePuzzle(s)
	if err != nil {
		return err
	}

	resp, err := s.Client.PuzzleHint(sessionID)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.Out, "%sHint %d: %s%s\n", display.Magenta, resp.Count, resp.Message, display.Reset)
	return nil
}

func puzzleResetHandler(s *session.Session, args []string) error {
	sessionID, err := requirePuzzle(s)
	if err != nil {
		return err
	}

	resp, err := s.Client.ResetPuzzle(sessionID)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.Out, "%sPuzzle restarted%s\n\n", display.Green, display.Reset)
	display.RenderFEN(s.Out, resp.FEN)
	return nil
}

func puzzleStateHandler(s *session.Session, args []string) error {
	sessionID, err := requirePuzzle(s)
	if err != nil {
		return err
	}

	resp, err := s.Client.GetPuzzleSession(sessionID)
	if err != nil {
		return err
	}

	fmt.Fprintf(s.Out, "%sPuzzle %s%s\n", display.Cyan, resp.PuzzleID, display.Reset)
	fmt.Fprintf(s.Out, "  Solved:   %t\n", resp.Solved)
	fmt.Fprintf(s.Out, "  Hints:    %d\n", resp.HintsUsed)
	fmt.Fprintf(s.Out, "  Mistakes: %d\n\n", resp.Mistakes)
	display.RenderFEN(s.Out, resp.FEN)
	return nil
}

func listLessonsHandler(s *session.Session, args []string) error {
	category, difficulty := "", ""
	if len(args) > 0 {
		category = args[0]
	}
	if len(args) > 1 {
		difficulty = args[1]
	}

	lessons, err := s.Client.Lessons(category, difficulty)
	if err != nil {
		return err
	}
	if len(lessons) == 0 {
		fmt.Fprintln(s.Out, "No lessons found")
		return nil
	}

	for _, l := range lessons {
		mark := " "
		if l.Completed {
			mark = display.Green + "*" + display.Reset
		}
		fmt.Fprintf(s.Out, "%s %s%-28s%s %-12s %-12s %s\n",
			mark, display.Cyan, l.ID, display.Reset, l.Category, l.Difficulty, l.Title)
	}
	return nil
}

func showLessonHandler(s *session.Session, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: lesson <lessonId>")
	}

	l, err := s.Client.Lesson(args[0])
	if err != nil {
		return err
	}

	fmt.Fprintf(s.Out, "\n%s%s%s\n%s\n", display.Cyan, l.Title, display.Reset, l.Description)
	if len(l.Prerequisites) > 0 {
		fmt.Fprintf(s.Out, "Requires: %s\n", strings.Join(l.Prerequisites, ", "))
	}

	for i, step := range l.Steps {
		fmt.Fprintf(s.Out, "\n%s%d. [%s] %s%s", display.Yellow, i+1, step.Type, step.ID, display.Reset)
		if step.Title != "" {
			fmt.Fprintf(s.Out, " - %s", step.Title)
		}
		fmt.Fprintf(s.Out, "\n%s\n", step.Content)
		if step.FEN != "" {
			display.RenderFEN(s.Out, step.FEN)
		}
		for _, o := range step.Options {
			fmt.Fprintf(s.Out, "  %s) %s\n", o.ID, o.Text)
		}
	}
	return nil
}

func checkStepHandler(s *session.Session, args []string) error {
	if len(args) < 3 {
		return fmt.Errorf("usage: check <lessonId> <stepId> <move|optionId>")
	}
	lessonID, stepID, answer := args[0], args[1], args[2]

	// Quiz steps answer with an option id, exercises with a move
	req := &core.StepCheckRequest{Move: answer}
	l, err := s.Client.Lesson(lessonID)
	if err != nil {
		return err
	}
	if step, err := l.Step(stepID); err == nil && step.Type == puzzle.StepQuiz {
		req = &core.StepCheckRequest{OptionID: answer}
	}

	resp, err := s.Client.CheckStep(lessonID, stepID, req)
	if err != nil {
		return err
	}
	if resp.Correct {
		fmt.Fprintf(s.Out, "%sCorrect!%s\n", display.Green, display.Reset)
	} else {
		fmt.Fprintf(s.Out, "%sNot quite, try again%s\n", display.Red, display.Reset)
	}
	return nil
}

func completeLessonHandler(s *session.Session, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: complete <lessonId>")
	}
	if s.AuthToken == "" {
		return fmt.Errorf("login required")
	}

	resp, err := s.Client.CompleteLesson(args[0])
	if err != nil {
		return err
	}
	if resp.XPEarned > 0 {
		fmt.Fprintf(s.Out, "%sLesson completed: +%d XP (level %d)%s\n", display.Green, resp.XPEarned, resp.Level, display.Reset)
	} else {
		fmt.Fprintf(s.Out, "%sLesson already completed (level %d)%s\n", display.Yellow, resp.Level, display.Reset)
	}
	return nil
}

func progressHandler(s *session.Session, args []string) error {
	if s.AuthToken == "" {
		return fmt.Errorf("login required")
	}

	p, err := s.Client.Progress()
	if err != nil {
		return err
	}

	fmt.Fprintf(s.Out, "%sProgress%s\n", display.Cyan, display.Reset)
	fmt.Fprintf(s.Out, "  Level:         %d (%d XP)\n", p.Level, p.XP)
	fmt.Fprintf(s.Out, "  Puzzle rating: %d\n", p.PuzzleRating)
	fmt.Fprintf(s.Out, "  Game rating:   %d\n", p.GameRating)
	fmt.Fprintf(s.Out, "  Lessons:       %d completed\n", len(p.CompletedLessons))
	fmt.Fprintf(s.Out, "  Puzzles:       %d solved\n", len(p.CompletedPuzzles))
	fmt.Fprintf(s.Out, "  Streak:        %d days (best %d)\n", p.CurrentStreak, p.LongestStreak)
	return nil
}
