// Package puzzle holds the tactics puzzles and lessons: the content types,
// the embedded catalog, selection of the daily and next puzzle, solving
// sessions and answer checking.
package puzzle

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
)

//go:embed data/puzzles.json data/lessons.json
var content embed.FS

var (
	ErrPuzzleNotFound = errors.New("puzzle not found")
	ErrLessonNotFound = errors.New("lesson not found")
	ErrStepNotFound   = errors.New("lesson step not found")
	ErrWrongStepType  = errors.New("wrong step type")
	ErrUnknownOption  = errors.New("unknown option")
	ErrInvalidContent = errors.New("invalid content")
)

// Puzzle is a position with a forced line. Moves are UCI; even indexes are
// the solver's moves, odd indexes the opponent's replies.
type Puzzle struct {
	ID      string   `json:"id"`
	FEN     string   `json:"fen"`
	Moves   []string `json:"moves"`
	Rating  int      `json:"rating"`
	Themes  []string `json:"themes"`
	GameURL string   `json:"gameUrl,omitempty"`
}

func (p Puzzle) HasTheme(theme string) bool {
	return slices.Contains(p.Themes, theme)
}

// Catalog is an immutable, id-ordered set of puzzles and lessons
type Catalog struct {
	puzzles    []Puzzle
	lessons    []Lesson
	puzzleByID map[string]int
	lessonByID map[string]int
}

// NewCatalog copies and orders the content. Later duplicates of an id are
// ignored; ValidateCatalog reports them.
func NewCatalog(puzzles []Puzzle, lessons []Lesson) *Catalog {
	c := &Catalog{
		puzzles:    slices.Clone(puzzles),
		lessons:    slices.Clone(lessons),
		puzzleByID: make(map[string]int, len(puzzles)),
		lessonByID: make(map[string]int, len(lessons)),
	}
	slices.SortStableFunc(c.puzzles, func(a, b Puzzle) int { return strings.Compare(a.ID, b.ID) })
	for i, p := range c.puzzles {
		if _, dup := c.puzzleByID[p.ID]; !dup {
			c.puzzleByID[p.ID] = i
		}
	}
	for i, l := range c.lessons {
		if _, dup := c.lessonByID[l.ID]; !dup {
			c.lessonByID[l.ID] = i
		}
	}
	return c
}

// DefaultCatalog parses the content shipped with the binary
func DefaultCatalog() (*Catalog, error) {
	puzzles, err := EmbeddedPuzzles()
	if err != nil {
		return nil, err
	}
	lessons, err := EmbeddedLessons()
	if err != nil {
		return nil, err
	}
	return NewCatalog(puzzles, lessons), nil
}

func EmbeddedPuzzles() ([]Puzzle, error) {
	f, err := content.Open("data/puzzles.json")
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadPuzzles(f)
}

func EmbeddedLessons() ([]Lesson, error) {
	f, err := content.Open("data/lessons.json")
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadLessons(f)
}

// ReadPuzzles decodes a JSON array of puzzles
func ReadPuzzles(r io.Reader) ([]Puzzle, error) {
	var puzzles []Puzzle
	if err := json.NewDecoder(r).Decode(&puzzles); err != nil {
		return nil, fmt.Errorf("decode puzzles: %w", err)
	}
	return puzzles, nil
}

// ReadLessons decodes a JSON array of lessons
func ReadLessons(r io.Reader) ([]Lesson, error) {
	var lessons []Lesson
	if err := json.NewDecoder(r).Decode(&lessons); err != nil {
		return nil, fmt.Errorf("decode lessons: %w", err)
	}
	return lessons, nil
}

// Puzzles returns the puzzles ordered by id
func (c *Catalog) Puzzles() []Puzzle {
	return slices.Clone(c.puzzles)
}

func (c *Catalog) Puzzle(id string) (Puzzle, error) {
	i, ok := c.puzzleByID[id]
	if !ok {
		return Puzzle{}, fmt.Errorf("%w: %s", ErrPuzzleNotFound, id)
	}
	return c.puzzles[i], nil
}

// PuzzlesInRange returns puzzles rated within [lo, hi]
func (c *Catalog) PuzzlesInRange(lo, hi int) []Puzzle {
	var out []Puzzle
	for _, p := range c.puzzles {
		if p.Rating >= lo && p.Rating <= hi {
			out = append(out, p)
		}
	}
	return out
}

// Lessons returns lessons in authoring order
func (c *Catalog) Lessons() []Lesson {
	return slices.Clone(c.lessons)
}

func (c *Catalog) Lesson(id string) (Lesson, error) {
	i, ok := c.lessonByID[id]
	if !ok {
		return Lesson{}, fmt.Errorf("%w: %s", ErrLessonNotFound, id)
	}
	return c.lessons[i], nil
}

func (c *Catalog) LessonsByCategory(category Category) []Lesson {
	var out []Lesson
	for _, l := range c.lessons {
		if l.Category == category {
			out = append(out, l)
		}
	}
	return out
}

func (c *Catalog) LessonsByDifficulty(d Difficulty) []Lesson {
	var out []Lesson
	for _, l := range c.lessons {
		if l.Difficulty == d {
			out = append(out, l)
		}
	}
	return out
}
