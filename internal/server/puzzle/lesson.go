package puzzle

import (
	"fmt"

	"forkknight/internal/server/board"
)

type Category string

const (
	CategoryBasics      Category = "basics"
	CategoryTactics     Category = "tactics"
	CategoryOpenings    Category = "openings"
	CategoryEndgames    Category = "endgames"
	CategoryStrategy    Category = "strategy"
	CategoryFamousGames Category = "famous-games"
)

type Difficulty string

const (
	Beginner     Difficulty = "beginner"
	Intermediate Difficulty = "intermediate"
	Advanced     Difficulty = "advanced"
)

type StepType string

const (
	StepExplanation   StepType = "explanation"
	StepDemonstration StepType = "demonstration"
	StepExercise      StepType = "exercise"
	StepQuiz          StepType = "quiz"
)

type Lesson struct {
	ID            string       `json:"id"`
	Title         string       `json:"title"`
	Description   string       `json:"description"`
	Category      Category     `json:"category"`
	Difficulty    Difficulty   `json:"difficulty"`
	Steps         []LessonStep `json:"steps"`
	Prerequisites []string     `json:"prerequisites,omitempty"`
}

// LessonStep carries a position for every type except quizzes. Exercises
// expect CorrectAnswer in UCI; quizzes expect one correct option.
type LessonStep struct {
	ID            string       `json:"id"`
	Type          StepType     `json:"type"`
	Title         string       `json:"title,omitempty"`
	Content       string       `json:"content"`
	FEN           string       `json:"fen,omitempty"`
	Moves         []string     `json:"moves,omitempty"`
	CorrectAnswer string       `json:"correctAnswer,omitempty"`
	Options       []QuizOption `json:"options,omitempty"`
	Hints         []string     `json:"hints,omitempty"`
}

type QuizOption struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	IsCorrect bool   `json:"isCorrect"`
}

func (l Lesson) Step(id string) (LessonStep, error) {
	for _, s := range l.Steps {
		if s.ID == id {
			return s, nil
		}
	}
	return LessonStep{}, fmt.Errorf("%w: %s/%s", ErrStepNotFound, l.ID, id)
}

// CheckExercise plays the move on a fresh board loaded from the step and
// compares it with the expected answer. An illegal or unreadable move is
// an error, not a wrong answer.
func CheckExercise(step LessonStep, move board.MoveInput) (bool, error) {
	if step.Type != StepExercise {
		return false, fmt.Errorf("%w: %s is %s", ErrWrongStepType, step.ID, step.Type)
	}
	b, err := board.FromFEN(step.FEN)
	if err != nil {
		return false, fmt.Errorf("%w: step %s: %v", ErrInvalidContent, step.ID, err)
	}
	applied, err := b.Apply(move)
	if err != nil {
		return false, err
	}
	return applied.Move.UCI() == step.CorrectAnswer, nil
}

// CheckQuiz reports whether the chosen option is the correct one
func CheckQuiz(step LessonStep, optionID string) (bool, error) {
	if step.Type != StepQuiz {
		return false, fmt.Errorf("%w: %s is %s", ErrWrongStepType, step.ID, step.Type)
	}
	for _, o := range step.Options {
		if o.ID == optionID {
			return o.IsCorrect, nil
		}
	}
	return false, fmt.Errorf("%w %q for step %s", ErrUnknownOption, optionID, step.ID)
}
