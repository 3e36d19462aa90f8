package board

import "forkknight/internal/server/core"

// DrawReason names why a position is drawn
type DrawReason int

const (
	NotDrawn DrawReason = iota
	DrawStalemate
	DrawInsufficientMaterial
	DrawFiftyMove
	DrawThreefold
)

func (r DrawReason) String() string {
	switch r {
	case DrawStalemate:
		return "stalemate"
	case DrawInsufficientMaterial:
		return "insufficient material"
	case DrawFiftyMove:
		return "fifty-move rule"
	case DrawThreefold:
		return "threefold repetition"
	default:
		return "none"
	}
}

// Status summarizes the terminal conditions of the current position
type Status struct {
	Check      bool
	Checkmate  bool
	Stalemate  bool
	DrawReason DrawReason
}

func (s Status) IsDraw() bool { return s.DrawReason != NotDrawn }
func (s Status) IsGameOver() bool { return s.Checkmate || s.IsDraw() }

// Winner returns the winning color after checkmate
func (s Status) Winner(toMove core.Color) (core.Color, bool) {
	if !s.Checkmate {
		return 0, false
	}
	return toMove.Opposite(), true
}

// InCheck reports whether the side to move is in check
func (b *Board) InCheck() bool {
	return b.kingAttacked(b.turn)
}

func (b *Board) IsCheckmate() bool {
	return b.InCheck() && !b.HasLegalMoves()
}

func (b *Board) IsStalemate() bool {
	return !b.InCheck() && !b.HasLegalMoves()
}

// IsDraw covers stalemate, insufficient material, the fifty-move rule and
// threefold repetition
func (b *Board) IsDraw() bool {
	return b.DrawReason() != NotDrawn
}

func (b *Board) IsGameOver() bool {
	return b.IsCheckmate() || b.IsDraw()
}

// DrawReason returns the first draw condition that holds
func (b *Board) DrawReason() DrawReason {
	switch {
	case b.IsStalemate():
		return DrawStalemate
	case b.InsufficientMaterial():
		return DrawInsufficientMaterial
	case b.halfmove >= 100:
		return DrawFiftyMove
	case b.IsThreefoldRepetition():
		return DrawThreefold
	}
	return NotDrawn
}

// Status evaluates all terminal conditions with one move generation
func (b *Board) Status() Status {
	check := b.InCheck()
	moves := b.HasLegalMoves()
	s := Status{
		Check:     check,
		Checkmate: check && !moves,
		Stalemate: !check && !moves,
	}
	switch {
	case s.Checkmate:
	case s.Stalemate:
		s.DrawReason = DrawStalemate
	case b.InsufficientMaterial():
		s.DrawReason = DrawInsufficientMaterial
	case b.halfmove >= 100:
		s.DrawReason = DrawFiftyMove
	case b.IsThreefoldRepetition():
		s.DrawReason = DrawThreefold
	}
	return s
}

// InsufficientMaterial holds for K v K, K+minor v K, and positions where
// every remaining non-king piece is a bishop on the same square color
func (b *Board) InsufficientMaterial() bool {
	minors := 0
	bishops, lightBishops := 0, 0
	for sq, p := range b.squares {
		switch p.Type() {
		case NoPieceType, King:
		case Pawn, Rook, Queen:
			return false
		case Knight:
			minors++
		case Bishop:
			minors++
			bishops++
			if Square(sq).IsLight() {
				lightBishops++
			}
		}
	}
	if minors <= 1 {
		return true
	}
	return bishops == minors && (lightBishops == 0 || lightBishops == bishops)
}

// IsThreefoldRepetition counts identical positions since the last load
func (b *Board) IsThreefoldRepetition() bool {
	n := len(b.hashes)
	if n < 5 {
		return false
	}
	current := b.hashes[n-1]
	count := 1
	// Positions before an irreversible move cannot repeat
	limit := n - 1 - b.halfmove
	if limit < 0 {
		limit = 0
	}
	for i := n - 3; i >= limit; i -= 2 {
		if b.hashes[i] == current {
			count++
			if count >= 3 {
				return true
			}
		}
	}
	return false
}
