package rating

import (
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestNewRating(t *testing.T) {
	tests := []struct {
		name     string
		player   int
		opponent int
		outcome  Outcome
		want     int
	}{
		{"equal win", 1200, 1200, Win, 1216},
		{"equal draw", 1200, 1200, Draw, 1200},
		{"equal loss", 1200, 1200, Loss, 1184},
		{"upset win", 1500, 1900, Win, 1529},
		{"favourite loses", 1900, 1500, Loss, 1871},
		{"favourite wins", 1900, 1500, Win, 1903},
		{"floor", 100, 100, Loss, MinRating},
		{"near floor", 110, 2400, Loss, 110},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NewRating(tt.player, tt.opponent, tt.outcome); got != tt.want {
				t.Errorf("NewRating(%d, %d, %s) = %d, want %d", tt.player, tt.opponent, tt.outcome, got, tt.want)
			}
		})
	}
}

func TestExpectedScoreIsSymmetric(t *testing.T) {
	for _, pair := range [][2]int{{800, 800}, {1000, 1400}, {2200, 600}} {
		sum := ExpectedScore(pair[0], pair[1]) + ExpectedScore(pair[1], pair[0])
		if math.Abs(sum-1) > 1e-9 {
			t.Errorf("expected scores for %v sum to %f", pair, sum)
		}
	}
	if got := ExpectedScore(1000, 1000); got != 0.5 {
		t.Errorf("ExpectedScore(equal) = %f, want 0.5", got)
	}
}

func TestRatingGainShrinksAgainstWeakerOpponents(t *testing.T) {
	prev := math.MaxInt
	for opp := 2000; opp >= 800; opp -= 100 {
		gain := NewRating(1400, opp, Win) - 1400
		if gain > prev {
			t.Fatalf("gain rose to %d against %d", gain, opp)
		}
		prev = gain
	}
	if NewRating(1400, 2000, Win)-1400 <= NewRating(1400, 800, Win)-1400 {
		t.Error("win against stronger opponent not worth more")
	}
}

type fixedSource int

func (f fixedSource) IntN(n int) int { return min(int(f), n-1) }

func TestComputerRatingFor(t *testing.T) {
	if got := ComputerRatingFor(fixedSource(0), 1000); got != 950 {
		t.Errorf("low end = %d, want 950", got)
	}
	if got := ComputerRatingFor(fixedSource(1000), 1000); got != 1049 {
		t.Errorf("high end = %d, want 1049", got)
	}
}

func TestLevelForXP(t *testing.T) {
	for xp, want := range map[int]int{0: 1, 99: 1, 100: 2, 250: 3, -5: 1} {
		if got := LevelForXP(xp); got != want {
			t.Errorf("LevelForXP(%d) = %d, want %d", xp, got, want)
		}
	}
}

func TestXPRewards(t *testing.T) {
	if diff := cmp.Diff([]int{15, 10, 5, 5}, []int{PuzzleXP(0), PuzzleXP(1), PuzzleXP(2), PuzzleXP(7)}); diff != "" {
		t.Errorf("PuzzleXP (-want +got):\n%s", diff)
	}
	got := []int{GameXP(Win, 0), GameXP(Win, 1), GameXP(Win, 3), GameXP(Draw, 0), GameXP(Loss, 0)}
	if diff := cmp.Diff([]int{20, 15, 10, 5, 0}, got); diff != "" {
		t.Errorf("GameXP (-want +got):\n%s", diff)
	}
}

func TestCompletionIsIdempotent(t *testing.T) {
	p := NewProgress("u1")
	if !p.CompletePuzzle("puzzle-001") || p.CompletePuzzle("puzzle-001") {
		t.Error("puzzle completion not idempotent")
	}
	if !p.CompleteLesson("basics-1") || p.CompleteLesson("basics-1") {
		t.Error("lesson completion not idempotent")
	}
	if diff := cmp.Diff([]string{"puzzle-001"}, p.CompletedPuzzles); diff != "" {
		t.Errorf("completed puzzles (-want +got):\n%s", diff)
	}
}

func TestUpdateStreak(t *testing.T) {
	day := func(d, h int) time.Time { return time.Date(2026, 3, d, h, 0, 0, 0, time.UTC) }

	p := NewProgress("u1")
	p.UpdateStreak(day(1, 9))
	if p.CurrentStreak != 1 {
		t.Fatalf("first activity streak = %d, want 1", p.CurrentStreak)
	}

	p.UpdateStreak(day(1, 22))
	if p.CurrentStreak != 1 {
		t.Errorf("same day streak = %d, want 1", p.CurrentStreak)
	}

	// Fewer than 24 hours but the next calendar day
	p.UpdateStreak(day(2, 7))
	p.UpdateStreak(day(3, 7))
	if p.CurrentStreak != 3 || p.LongestStreak != 3 {
		t.Errorf("streak = %d longest = %d, want 3 and 3", p.CurrentStreak, p.LongestStreak)
	}

	p.UpdateStreak(day(6, 12))
	if p.CurrentStreak != 1 || p.LongestStreak != 3 {
		t.Errorf("after gap streak = %d longest = %d, want 1 and 3", p.CurrentStreak, p.LongestStreak)
	}
	if !p.LastActiveAt.Equal(day(6, 12)) {
		t.Errorf("LastActiveAt = %v", p.LastActiveAt)
	}
}

func TestRecordPuzzle(t *testing.T) {
	now := time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)
	p := NewProgress("u1")

	if xp := p.RecordPuzzle("puzzle-003", 600, true, 1, now); xp != 10 {
		t.Errorf("first solve xp = %d, want 10", xp)
	}
	if p.PuzzleRating != 616 || p.XP != 10 || p.Level != 1 {
		t.Errorf("after solve rating = %d xp = %d level = %d", p.PuzzleRating, p.XP, p.Level)
	}

	if xp := p.RecordPuzzle("puzzle-003", 600, true, 0, now); xp != 0 {
		t.Errorf("repeat solve xp = %d, want 0", xp)
	}
	if p.PuzzleRating <= 616 {
		t.Errorf("repeat solve should still move rating, got %d", p.PuzzleRating)
	}

	before := p.PuzzleRating
	if xp := p.RecordPuzzle("puzzle-004", 600, false, 0, now); xp != 0 {
		t.Errorf("failed attempt xp = %d", xp)
	}
	if p.PuzzleRating >= before {
		t.Errorf("failure should lower rating: %d -> %d", before, p.PuzzleRating)
	}
}

func TestRecordGameAndLesson(t *testing.T) {
	now := time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)
	p := NewProgress("u1")
	p.XP = 95

	if xp := p.RecordGame(600, Win, 0, now); xp != 20 {
		t.Errorf("win xp = %d, want 20", xp)
	}
	if p.GameRating != 616 || p.Level != 2 {
		t.Errorf("rating = %d level = %d, want 616 and 2", p.GameRating, p.Level)
	}

	if xp := p.RecordLesson("basics-1", now); xp != LessonXP {
		t.Errorf("lesson xp = %d", xp)
	}
	if xp := p.RecordLesson("basics-1", now); xp != 0 {
		t.Errorf("repeat lesson xp = %d", xp)
	}
}
