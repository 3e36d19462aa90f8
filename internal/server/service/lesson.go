package service

import (
	"errors"

	"forkknight/internal/server/board"
	"forkknight/internal/server/puzzle"
)

var ErrNoAnswer = errors.New("answer requires a move or an option")

// Lessons lists lessons, optionally narrowed by category and difficulty
func (s *Service) Lessons(category puzzle.Category, difficulty puzzle.Difficulty) []puzzle.Lesson {
	lessons := s.catalog.Lessons()
	if category != "" {
		lessons = s.catalog.LessonsByCategory(category)
	}
	if difficulty == "" {
		return lessons
	}

	filtered := make([]puzzle.Lesson, 0, len(lessons))
	for _, l := range lessons {
		if l.Difficulty == difficulty {
			filtered = append(filtered, l)
		}
	}
	return filtered
}

func (s *Service) Lesson(id string) (puzzle.Lesson, error) {
	return s.catalog.Lesson(id)
}

// CheckLessonStep grades an exercise move or a quiz option
func (s *Service) CheckLessonStep(lessonID, stepID, move, optionID string) (bool, error) {
	lesson, err := s.catalog.Lesson(lessonID)
	if err != nil {
		return false, err
	}
	step, err := lesson.Step(stepID)
	if err != nil {
		return false, err
	}

	switch {
	case move != "":
		return puzzle.CheckExercise(step, board.Notation(move))
	case optionID != "":
		return puzzle.CheckQuiz(step, optionID)
	default:
		return false, ErrNoAnswer
	}
}
