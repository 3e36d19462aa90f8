package puzzle

import (
	"errors"
	"fmt"

	"forkknight/internal/server/board"
)

// Validate replays the solution line from the puzzle position
func Validate(p Puzzle) error {
	if p.ID == "" {
		return fmt.Errorf("%w: puzzle without id", ErrInvalidContent)
	}
	if len(p.Moves) == 0 {
		return fmt.Errorf("%w: puzzle %s has no solution", ErrInvalidContent, p.ID)
	}
	b, err := board.FromFEN(p.FEN)
	if err != nil {
		return fmt.Errorf("%w: puzzle %s: %v", ErrInvalidContent, p.ID, err)
	}
	if err := replay(b, p.Moves); err != nil {
		return fmt.Errorf("%w: puzzle %s: %v", ErrInvalidContent, p.ID, err)
	}
	return nil
}

// ValidateLesson returns every problem found in the lesson's steps
func ValidateLesson(l Lesson) []error {
	var errs []error
	fail := func(step, format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: lesson %s step %s: %s", ErrInvalidContent, l.ID, step, fmt.Sprintf(format, args...)))
	}

	if len(l.Steps) == 0 {
		errs = append(errs, fmt.Errorf("%w: lesson %s has no steps", ErrInvalidContent, l.ID))
	}

	seen := make(map[string]bool, len(l.Steps))
	for _, s := range l.Steps {
		if seen[s.ID] {
			fail(s.ID, "duplicate step id")
		}
		seen[s.ID] = true

		if s.Content == "" {
			fail(s.ID, "empty content")
		}

		switch s.Type {
		case StepExplanation, StepDemonstration:
		case StepExercise:
			if s.CorrectAnswer == "" {
				fail(s.ID, "exercise without answer")
			}
		case StepQuiz:
			correct := 0
			for _, o := range s.Options {
				if o.IsCorrect {
					correct++
				}
			}
			if len(s.Options) < 2 || correct != 1 {
				fail(s.ID, "quiz needs two or more options with exactly one correct, has %d/%d", correct, len(s.Options))
			}
		default:
			fail(s.ID, "unknown step type %q", s.Type)
		}

		if s.FEN == "" {
			if s.Type == StepExercise {
				fail(s.ID, "exercise without position")
			}
			continue
		}
		b, err := board.FromFEN(s.FEN)
		if err != nil {
			fail(s.ID, "%v", err)
			continue
		}
		line := s.Moves
		if s.Type == StepExercise && s.CorrectAnswer != "" {
			line = []string{s.CorrectAnswer}
		}
		if err := replay(b, line); err != nil {
			fail(s.ID, "%v", err)
		}
	}
	return errs
}

// ValidateCatalog checks every puzzle and lesson plus id uniqueness. The
// result joins all problems found.
func ValidateCatalog(puzzles []Puzzle, lessons []Lesson) error {
	var errs []error

	seen := make(map[string]bool, len(puzzles))
	for _, p := range puzzles {
		if seen[p.ID] {
			errs = append(errs, fmt.Errorf("%w: duplicate puzzle id %s", ErrInvalidContent, p.ID))
		}
		seen[p.ID] = true
		if err := Validate(p); err != nil {
			errs = append(errs, err)
		}
	}

	seenLesson := make(map[string]bool, len(lessons))
	for _, l := range lessons {
		if seenLesson[l.ID] {
			errs = append(errs, fmt.Errorf("%w: duplicate lesson id %s", ErrInvalidContent, l.ID))
		}
		seenLesson[l.ID] = true
		errs = append(errs, ValidateLesson(l)...)
	}

	return errors.Join(errs...)
}

func replay(b *board.Board, moves []string) error {
	for i, mv := range moves {
		if !board.IsUCISyntax(mv) {
			return fmt.Errorf("move %d %q is not UCI", i+1, mv)
		}
		if _, err := b.ApplyUCI(mv); err != nil {
			return fmt.Errorf("move %d %s from %s: %w", i+1, mv, b.FEN(), err)
		}
	}
	return nil
}
