package puzzle

import (
	"slices"
	"time"
)

// Lower bound of the next-puzzle rating window
const minWindowRating = 400

// DateKey is the UTC calendar date used to pick the daily puzzle
func DateKey(t time.Time) string {
	return t.UTC().Format(time.DateOnly)
}

// dateHash is a 32-bit shift-and-subtract string hash; the sum wraps as
// int32 and the magnitude is returned.
func dateHash(s string) int64 {
	var h int32
	for _, c := range s {
		h = h<<5 - h + int32(c)
	}
	v := int64(h)
	if v < 0 {
		v = -v
	}
	return v
}

// DailyPuzzle picks the same puzzle for everyone on a given UTC date. The
// set must be ordered by id, as Catalog.Puzzles returns it.
func DailyPuzzle(set []Puzzle, date time.Time) (Puzzle, bool) {
	if len(set) == 0 {
		return Puzzle{}, false
	}
	return set[dateHash(DateKey(date))%int64(len(set))], true
}

// IntSource is satisfied by *rand.Rand
type IntSource interface {
	IntN(n int) int
}

// NextPuzzle prefers unsolved puzzles within 100 points of the rating,
// then any unsolved puzzle, then anything.
func NextPuzzle(rng IntSource, set []Puzzle, rating int, completed []string) (Puzzle, bool) {
	lo, hi := max(minWindowRating, rating-100), rating+100

	var window, unsolved []Puzzle
	for _, p := range set {
		if slices.Contains(completed, p.ID) {
			continue
		}
		unsolved = append(unsolved, p)
		if p.Rating >= lo && p.Rating <= hi {
			window = append(window, p)
		}
	}

	for _, candidates := range [][]Puzzle{window, unsolved, set} {
		if len(candidates) > 0 {
			return candidates[rng.IntN(len(candidates))], true
		}
	}
	return Puzzle{}, false
}
