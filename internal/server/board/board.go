package board

import (
	"fmt"
	"strconv"
	"strings"

	"forkknight/internal/server/core"
)

const (
	StartingFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"
)

// CastleRights is a bitmask of the four castling options
type CastleRights uint8

const (
	WhiteKingSide CastleRights = 1 << iota
	WhiteQueenSide
	BlackKingSide
	BlackQueenSide

	NoCastling  CastleRights = 0
	AllCastling              = WhiteKingSide | WhiteQueenSide | BlackKingSide | BlackQueenSide
)

func (cr CastleRights) String() string {
	if cr == NoCastling {
		return "-"
	}
	var sb strings.Builder
	if cr&WhiteKingSide != 0 {
		sb.WriteByte('K')
	}
	if cr&WhiteQueenSide != 0 {
		sb.WriteByte('Q')
	}
	if cr&BlackKingSide != 0 {
		sb.WriteByte('k')
	}
	if cr&BlackQueenSide != 0 {
		sb.WriteByte('q')
	}
	return sb.String()
}

// Board is a full game state: placement, side to move, castling rights,
// en-passant target, clocks and the reversible move history.
// A Board is not safe for concurrent use.
type Board struct {
	squares  [64]Piece
	turn     core.Color
	castling CastleRights
	epSquare Square
	halfmove int
	fullmove int
	kingSq   [3]Square // indexed by core.Color

	history []historyEntry
	hashes  []uint64 // position keys since load, current last
}

// New returns a board set to the standard starting position
func New() *Board {
	b := &Board{}
	b.Reset()
	return b
}

// FromFEN builds a board from a position string
func FromFEN(fen string) (*Board, error) {
	b := &Board{}
	if err := b.Load(fen); err != nil {
		return nil, err
	}
	return b, nil
}

// Reset restores the standard starting position and clears history
func (b *Board) Reset() {
	if err := b.Load(StartingFEN); err != nil {
		panic(err)
	}
}

// Load replaces the game state with the parsed position.
// On error the board is left unchanged.
func (b *Board) Load(fen string) error {
	next, err := parseFEN(fen)
	if err != nil {
		return err
	}
	*b = *next
	return nil
}

func invalidFEN(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidFEN, fmt.Sprintf(format, args...))
}

func parseFEN(fen string) (*Board, error) {
	parts := strings.Fields(fen)
	if len(parts) != 6 {
		return nil, invalidFEN("expected 6 fields, got %d", len(parts))
	}

	b := &Board{
		epSquare: NoSquare,
		kingSq:   [3]Square{NoSquare, NoSquare, NoSquare},
	}

	// Placement, rank 8 first
	ranks := strings.Split(parts[0], "/")
	if len(ranks) != 8 {
		return nil, invalidFEN("expected 8 ranks, got %d", len(ranks))
	}
	for i, row := range ranks {
		rank := 7 - i
		file := 0
		prevDigit := false
		for j := 0; j < len(row); j++ {
			ch := row[j]
			if ch >= '1' && ch <= '8' {
				if prevDigit {
					return nil, invalidFEN("consecutive digits in rank %d", rank+1)
				}
				file += int(ch - '0')
				prevDigit = true
				continue
			}
			prevDigit = false
			p, ok := pieceFromChar(ch)
			if !ok {
				return nil, invalidFEN("unexpected character %q", ch)
			}
			if file >= 8 {
				return nil, invalidFEN("too many squares in rank %d", rank+1)
			}
			if p.Type() == Pawn && (rank == 0 || rank == 7) {
				return nil, invalidFEN("pawn on back rank %s", NewSquare(file, rank))
			}
			if p.Type() == King {
				if b.kingSq[p.Color()] != NoSquare {
					return nil, invalidFEN("more than one %s king", p.Color().Name())
				}
				b.kingSq[p.Color()] = NewSquare(file, rank)
			}
			b.squares[NewSquare(file, rank)] = p
			file++
		}
		if file != 8 {
			return nil, invalidFEN("rank %d has %d files", rank+1, file)
		}
	}

	switch parts[1] {
	case "w":
		b.turn = core.ColorWhite
	case "b":
		b.turn = core.ColorBlack
	default:
		return nil, invalidFEN("turn must be 'w' or 'b'")
	}

	cr, err := parseCastling(parts[2])
	if err != nil {
		return nil, err
	}
	b.castling = cr

	if parts[3] != "-" {
		sq, err := ParseSquare(parts[3])
		if err != nil {
			return nil, invalidFEN("bad en passant square %q", parts[3])
		}
		wantRank := 5
		if b.turn == core.ColorBlack {
			wantRank = 2
		}
		if sq.Rank() != wantRank {
			return nil, invalidFEN("en passant square %s does not match side to move", sq)
		}
		// The pawn that just advanced two squares must still be there
		dir := 1
		if b.turn == core.ColorBlack {
			dir = -1
		}
		pushed := NewSquare(sq.File(), wantRank-dir)
		origin := NewSquare(sq.File(), wantRank+dir)
		if b.squares[sq] != NoPiece || b.squares[origin] != NoPiece ||
			b.squares[pushed] != MakePiece(b.turn.Opposite(), Pawn) {
			return nil, invalidFEN("en passant square %s has no pawn behind it", sq)
		}
		b.epSquare = sq
	}

	half, err := strconv.Atoi(parts[4])
	if err != nil || half < 0 {
		return nil, invalidFEN("bad halfmove clock %q", parts[4])
	}
	full, err := strconv.Atoi(parts[5])
	if err != nil || full < 1 {
		return nil, invalidFEN("bad fullmove number %q", parts[5])
	}
	b.halfmove = half
	b.fullmove = full

	b.hashes = []uint64{b.hash()}
	return b, nil
}

func parseCastling(s string) (CastleRights, error) {
	if s == "-" {
		return NoCastling, nil
	}
	var cr CastleRights
	order := "KQkq"
	pos := 0
	for i := 0; i < len(s); i++ {
		idx := strings.IndexByte(order[pos:], s[i])
		if idx < 0 {
			return 0, invalidFEN("bad castling field %q", s)
		}
		pos += idx + 1
		switch s[i] {
		case 'K':
			cr |= WhiteKingSide
		case 'Q':
			cr |= WhiteQueenSide
		case 'k':
			cr |= BlackKingSide
		case 'q':
			cr |= BlackQueenSide
		}
	}
	return cr, nil
}

// FEN serializes the current game state
func (b *Board) FEN() string {
	var sb strings.Builder
	sb.WriteString(b.placement())
	sb.WriteByte(' ')
	sb.WriteString(b.turn.String())
	sb.WriteByte(' ')
	sb.WriteString(b.castling.String())
	sb.WriteByte(' ')
	sb.WriteString(b.epSquare.String())
	sb.WriteByte(' ')
	sb.WriteString(strconv.Itoa(b.halfmove))
	sb.WriteByte(' ')
	sb.WriteString(strconv.Itoa(b.fullmove))
	return sb.String()
}

func (b *Board) placement() string {
	var sb strings.Builder
	for rank := 7; rank >= 0; rank-- {
		empty := 0
		for file := 0; file < 8; file++ {
			p := b.squares[NewSquare(file, rank)]
			if p == NoPiece {
				empty++
				continue
			}
			if empty > 0 {
				sb.WriteByte(byte('0' + empty))
				empty = 0
			}
			sb.WriteByte(p.Char())
		}
		if empty > 0 {
			sb.WriteByte(byte('0' + empty))
		}
		if rank > 0 {
			sb.WriteByte('/')
		}
	}
	return sb.String()
}

// Clone returns an independent copy including history
func (b *Board) Clone() *Board {
	c := *b
	c.history = append([]historyEntry(nil), b.history...)
	c.hashes = append([]uint64(nil), b.hashes...)
	return &c
}

func (b *Board) SideToMove() core.Color { return b.turn }
func (b *Board) Castling() CastleRights { return b.castling }
func (b *Board) EnPassant() Square { return b.epSquare }
func (b *Board) HalfmoveClock() int { return b.halfmove }
func (b *Board) FullmoveNumber() int { return b.fullmove }
func (b *Board) PieceAt(sq Square) Piece { return b.squares[sq] }
func (b *Board) KingSquare(c core.Color) Square { return b.kingSq[c] }

// Ply returns the number of moves applied since the position was loaded
func (b *Board) Ply() int {
	return len(b.history)
}

// String renders an ASCII diagram with white at the bottom
func (b *Board) String() string {
	var sb strings.Builder
	sb.WriteString("  a b c d e f g h\n")

	for rank := 7; rank >= 0; rank-- {
		sb.WriteString(fmt.Sprintf("%d ", rank+1))
		for file := 0; file < 8; file++ {
			sb.WriteByte(b.squares[NewSquare(file, rank)].Char())
			sb.WriteByte(' ')
		}
		sb.WriteString(fmt.Sprintf(" %d\n", rank+1))
	}
	sb.WriteString("  a b c d e f g h")

	return sb.String()
}

// PieceOnSquare is one entry of the rendering snapshot
type PieceOnSquare struct {
	Square string `json:"square"`
	Type   string `json:"type"`
	Color  string `json:"color"`
}

// Snapshot lists occupied squares rank-major from a8 to h1
func (b *Board) Snapshot() []PieceOnSquare {
	out := make([]PieceOnSquare, 0, 32)
	for rank := 7; rank >= 0; rank-- {
		for file := 0; file < 8; file++ {
			sq := NewSquare(file, rank)
			p := b.squares[sq]
			if p == NoPiece {
				continue
			}
			out = append(out, PieceOnSquare{
				Square: sq.String(),
				Type:   p.Type().String(),
				Color:  p.Color().String(),
			})
		}
	}
	return out
}
