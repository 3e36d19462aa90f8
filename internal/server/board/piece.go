package board

import (
	"fmt"

	"forkknight/internal/server/core"
)

type PieceType uint8

const (
	NoPieceType PieceType = iota
	Pawn
	Knight
	Bishop
	Rook
	Queen
	King
)

// Letter returns the lowercase FEN/UCI letter for the piece type
func (t PieceType) Letter() byte {
	switch t {
	case Pawn:
		return 'p'
	case Knight:
		return 'n'
	case Bishop:
		return 'b'
	case Rook:
		return 'r'
	case Queen:
		return 'q'
	case King:
		return 'k'
	default:
		return '-'
	}
}

func (t PieceType) String() string {
	return string(t.Letter())
}

func pieceTypeFromLetter(c byte) PieceType {
	switch c {
	case 'p', 'P':
		return Pawn
	case 'n', 'N':
		return Knight
	case 'b', 'B':
		return Bishop
	case 'r', 'R':
		return Rook
	case 'q', 'Q':
		return Queen
	case 'k', 'K':
		return King
	default:
		return NoPieceType
	}
}

// Piece packs color and type; the zero value is an empty square
type Piece uint8

const NoPiece Piece = 0

func MakePiece(c core.Color, t PieceType) Piece {
	return Piece(uint8(c)<<3 | uint8(t))
}

func (p Piece) Type() PieceType {
	return PieceType(p & 7)
}

func (p Piece) Color() core.Color {
	return core.Color(p >> 3)
}

func (p Piece) IsEmpty() bool {
	return p == NoPiece
}

// Char returns the FEN character: uppercase for white, lowercase for black
func (p Piece) Char() byte {
	if p == NoPiece {
		return '.'
	}
	c := p.Type().Letter()
	if p.Color() == core.ColorWhite {
		c -= 'a' - 'A'
	}
	return c
}

func pieceFromChar(c byte) (Piece, bool) {
	t := pieceTypeFromLetter(c)
	if t == NoPieceType {
		return NoPiece, false
	}
	if c >= 'A' && c <= 'Z' {
		return MakePiece(core.ColorWhite, t), true
	}
	return MakePiece(core.ColorBlack, t), true
}

// Square indexes the board from a1=0 to h8=63
type Square int8

const NoSquare Square = -1

func NewSquare(file, rank int) Square {
	return Square(rank*8 + file)
}

func (sq Square) File() int { return int(sq) & 7 }
func (sq Square) Rank() int { return int(sq) >> 3 }

// IsLight reports whether the square is a light square
func (sq Square) IsLight() bool {
	return (sq.File()+sq.Rank())%2 == 1
}

func (sq Square) String() string {
	if sq < 0 || sq > 63 {
		return "-"
	}
	return string([]byte{byte('a' + sq.File()), byte('1' + sq.Rank())})
}

// ParseSquare parses algebraic coordinates like "e4"
func ParseSquare(s string) (Square, error) {
	if len(s) != 2 || s[0] < 'a' || s[0] > 'h' || s[1] < '1' || s[1] > '8' {
		return NoSquare, fmt.Errorf("%w: bad square %q", ErrInvalidNotation, s)
	}
	return NewSquare(int(s[0]-'a'), int(s[1]-'1')), nil
}

func onBoard(file, rank int) bool {
	return file >= 0 && file < 8 && rank >= 0 && rank < 8
}

// Move is a from/to pair with an optional promotion piece
type Move struct {
	From      Square
	To        Square
	Promotion PieceType
}

// UCI renders the move as <from><to>[promotion]
func (m Move) UCI() string {
	s := m.From.String() + m.To.String()
	if m.Promotion != NoPieceType {
		s += string(m.Promotion.Letter())
	}
	return s
}

func (m Move) String() string {
	return m.UCI()
}
