// Package rating implements the logistic rating update and the progress
// bookkeeping (experience, levels, streaks) built on top of it.
package rating

import "math"

const (
	// K is the fixed step size of every update
	K = 32

	MinRating     = 100
	DefaultRating = 600

	// Computer opponents are drawn from [player-50, player+50)
	computerSpread = 100
)

// Outcome is a game or puzzle result from the player's side
type Outcome int

const (
	Loss Outcome = iota
	Draw
	Win
)

func (o Outcome) String() string {
	switch o {
	case Win:
		return "win"
	case Draw:
		return "draw"
	default:
		return "loss"
	}
}

// Score returns the actual score used by the update
func (o Outcome) Score() float64 {
	switch o {
	case Win:
		return 1
	case Draw:
		return 0.5
	default:
		return 0
	}
}

// ExpectedScore is the logistic win expectancy of player against opponent
func ExpectedScore(player, opponent int) float64 {
	return 1 / (1 + math.Pow(10, float64(opponent-player)/400))
}

// NewRating returns the player's rating after one result, never below
// MinRating. Halves round up.
func NewRating(player, opponent int, outcome Outcome) int {
	delta := K * (outcome.Score() - ExpectedScore(player, opponent))
	r := int(math.Floor(float64(player) + delta + 0.5))
	return max(r, MinRating)
}

// PuzzleRating updates a puzzle rating; failing is a loss to the puzzle
func PuzzleRating(player, puzzle int, solved bool) int {
	if solved {
		return NewRating(player, puzzle, Win)
	}
	return NewRating(player, puzzle, Loss)
}

// IntSource is satisfied by *rand.Rand
type IntSource interface {
	IntN(n int) int
}

// ComputerRatingFor draws the opponent rating for a new game
func ComputerRatingFor(rng IntSource, player int) int {
	return player + rng.IntN(computerSpread) - computerSpread/2
}
