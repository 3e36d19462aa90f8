package rating

import (
	"slices"
	"time"
)

const XPPerLevel = 100

// Progress is a player's persisted learning record
type Progress struct {
	UserID           string    `json:"userId"`
	XP               int       `json:"xp"`
	Level            int       `json:"level"`
	PuzzleRating     int       `json:"puzzleRating"`
	GameRating       int       `json:"gameRating"`
	CompletedLessons []string  `json:"completedLessons"`
	CompletedPuzzles []string  `json:"completedPuzzles"`
	CurrentStreak    int       `json:"currentStreak"`
	LongestStreak    int       `json:"longestStreak"`
	LastActiveAt     time.Time `json:"lastActiveAt"`
}

// NewProgress returns the record of a player who has done nothing yet
func NewProgress(userID string) *Progress {
	return &Progress{
		UserID:           userID,
		Level:            1,
		PuzzleRating:     DefaultRating,
		GameRating:       DefaultRating,
		CompletedLessons: []string{},
		CompletedPuzzles: []string{},
	}
}

// LevelForXP starts at level 1 and adds one level per XPPerLevel
func LevelForXP(xp int) int {
	if xp < 0 {
		xp = 0
	}
	return xp/XPPerLevel + 1
}

// PuzzleXP rewards a solved puzzle, less for each hint up to two
func PuzzleXP(hints int) int {
	switch {
	case hints <= 0:
		return 15
	case hints == 1:
		return 10
	default:
		return 5
	}
}

// GameXP rewards a finished game against the computer
func GameXP(outcome Outcome, hints int) int {
	switch outcome {
	case Win:
		return 20 - 5*min(max(hints, 0), 2)
	case Draw:
		return 5
	default:
		return 0
	}
}

// LessonXP is awarded once per completed lesson
const LessonXP = 25

func (p *Progress) AddXP(amount int) {
	p.XP += amount
	if p.XP < 0 {
		p.XP = 0
	}
	p.Level = LevelForXP(p.XP)
}

// CompletePuzzle records a solved puzzle and reports whether it was new
func (p *Progress) CompletePuzzle(id string) bool {
	if slices.Contains(p.CompletedPuzzles, id) {
		return false
	}
	p.CompletedPuzzles = append(p.CompletedPuzzles, id)
	return true
}

// CompleteLesson records a finished lesson and reports whether it was new
func (p *Progress) CompleteLesson(id string) bool {
	if slices.Contains(p.CompletedLessons, id) {
		return false
	}
	p.CompletedLessons = append(p.CompletedLessons, id)
	return true
}

// UpdateStreak counts calendar days in now's location. Activity on the
// next day extends the streak, a longer gap restarts it, the same day
// leaves it alone.
func (p *Progress) UpdateStreak(now time.Time) {
	switch gap := dayGap(p.LastActiveAt, now); {
	case p.CurrentStreak == 0 || gap > 1:
		p.CurrentStreak = 1
	case gap == 1:
		p.CurrentStreak++
	}
	p.LongestStreak = max(p.LongestStreak, p.CurrentStreak)
	p.LastActiveAt = now
}

func dayGap(from, to time.Time) int {
	if from.IsZero() {
		return 0
	}
	from = from.In(to.Location())
	y1, m1, d1 := from.Date()
	y2, m2, d2 := to.Date()
	a := time.Date(y1, m1, d1, 0, 0, 0, 0, time.UTC)
	b := time.Date(y2, m2, d2, 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}

// RecordPuzzle applies a puzzle result: rating always moves, XP and the
// completed list only change on the first solve.
func (p *Progress) RecordPuzzle(id string, puzzleRating int, solved bool, hints int, now time.Time) int {
	p.PuzzleRating = PuzzleRating(p.PuzzleRating, puzzleRating, solved)
	p.UpdateStreak(now)
	if !solved || !p.CompletePuzzle(id) {
		return 0
	}
	xp := PuzzleXP(hints)
	p.AddXP(xp)
	return xp
}

// RecordGame applies a finished game against a rated computer opponent
func (p *Progress) RecordGame(opponent int, outcome Outcome, hints int, now time.Time) int {
	p.GameRating = NewRating(p.GameRating, opponent, outcome)
	p.UpdateStreak(now)
	xp := GameXP(outcome, hints)
	p.AddXP(xp)
	return xp
}

// RecordLesson awards LessonXP the first time a lesson is completed
func (p *Progress) RecordLesson(id string, now time.Time) int {
	p.UpdateStreak(now)
	if !p.CompleteLesson(id) {
		return 0
	}
	p.AddXP(LessonXP)
	return LessonXP
}
