// Package eval scores positions by material and piece-square bonuses.
package eval

import (
	"forkknight/internal/server/board"
	"forkknight/internal/server/core"
)

// Material values in centipawns. The king value only makes losing it
// decisive inside search.
const (
	PawnValue   = 100
	KnightValue = 320
	BishopValue = 330
	RookValue   = 500
	QueenValue  = 900
	KingValue   = 20000
)

var pieceValues = [...]int{
	board.Pawn:   PawnValue,
	board.Knight: KnightValue,
	board.Bishop: BishopValue,
	board.Rook:   RookValue,
	board.Queen:  QueenValue,
	board.King:   KingValue,
}

// Piece-square tables from white's perspective, rank 8 first.
// Rooks, queens and kings get no positional bonus.

var pawnTable = [64]int{
	0, 0, 0, 0, 0, 0, 0, 0,
	50, 50, 50, 50, 50, 50, 50, 50,
	10, 10, 20, 30, 30, 20, 10, 10,
	5, 5, 10, 25, 25, 10, 5, 5,
	0, 0, 0, 20, 20, 0, 0, 0,
	5, -5, -10, 0, 0, -10, -5, 5,
	5, 10, 10, -20, -20, 10, 10, 5,
	0, 0, 0, 0, 0, 0, 0, 0,
}

var knightTable = [64]int{
	-50, -40, -30, -30, -30, -30, -40, -50,
	-40, -20, 0, 0, 0, 0, -20, -40,
	-30, 0, 10, 15, 15, 10, 0, -30,
	-30, 5, 15, 20, 20, 15, 5, -30,
	-30, 0, 15, 20, 20, 15, 0, -30,
	-30, 5, 10, 15, 15, 10, 5, -30,
	-40, -20, 0, 5, 5, 0, -20, -40,
	-50, -40, -30, -30, -30, -30, -40, -50,
}

var bishopTable = [64]int{
	-20, -10, -10, -10, -10, -10, -10, -20,
	-10, 0, 0, 0, 0, 0, 0, -10,
	-10, 0, 10, 10, 10, 10, 0, -10,
	-10, 5, 5, 10, 10, 5, 5, -10,
	-10, 0, 5, 10, 10, 5, 0, -10,
	-10, 0, 5, 5, 5, 5, 0, -10,
	-10, 5, 0, 0, 0, 0, 5, -10,
	-20, -10, -10, -10, -10, -10, -10, -20,
}

// PieceValue returns the material value of a piece type
func PieceValue(t board.PieceType) int {
	if int(t) >= len(pieceValues) {
		return 0
	}
	return pieceValues[t]
}

// PositionBonus looks up the table entry for a piece on sq; black reads
// the mirrored square
func PositionBonus(p board.Piece, sq board.Square) int {
	var table *[64]int
	switch p.Type() {
	case board.Pawn:
		table = &pawnTable
	case board.Knight:
		table = &knightTable
	case board.Bishop:
		table = &bishopTable
	default:
		return 0
	}
	i := (7-sq.Rank())*8 + sq.File()
	if p.Color() == core.ColorBlack {
		i = 63 - i
	}
	return table[i]
}

// Evaluate scores the position for the side to move: positive means the
// mover is better. It is a pure function of the board.
func Evaluate(b *board.Board) int {
	score := 0
	for sq := board.Square(0); sq < 64; sq++ {
		p := b.PieceAt(sq)
		if p == board.NoPiece {
			continue
		}
		v := PieceValue(p.Type()) + PositionBonus(p, sq)
		if p.Color() == core.ColorWhite {
			score += v
		} else {
			score -= v
		}
	}
	if b.SideToMove() == core.ColorBlack {
		return -score
	}
	return score
}
