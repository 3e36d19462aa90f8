package board

import (
	"fmt"
	"strings"
)

// MoveInput is either a structured move or a notation string
type MoveInput struct {
	move     Move
	notation string
	isText   bool
}

// Structured wraps an already decoded move
func Structured(m Move) MoveInput {
	return MoveInput{move: m}
}

// Notation wraps a UCI ("e2e4", "a7a8q") or SAN ("e4", "Nxf7+") string
func Notation(s string) MoveInput {
	return MoveInput{notation: s, isText: true}
}

func (in MoveInput) String() string {
	if in.isText {
		return in.notation
	}
	return in.move.UCI()
}

// Resolve turns the input into one canonical move for the current position.
// Structured moves are returned as given and validated by ApplyMove.
func (b *Board) Resolve(in MoveInput) (Move, error) {
	if !in.isText {
		return in.move, nil
	}
	s := strings.TrimSpace(in.notation)
	if IsUCISyntax(s) {
		return ParseUCI(s)
	}
	return b.parseSAN(s)
}

// IsUCISyntax reports whether s has the <from><to>[promotion] shape
func IsUCISyntax(s string) bool {
	if len(s) != 4 && len(s) != 5 {
		return false
	}
	for i := 0; i < 4; i += 2 {
		if s[i] < 'a' || s[i] > 'h' || s[i+1] < '1' || s[i+1] > '8' {
			return false
		}
	}
	if len(s) == 5 {
		switch s[4] {
		case 'q', 'r', 'b', 'n':
		default:
			return false
		}
	}
	return true
}

// ParseUCI decodes a UCI move without checking legality
func ParseUCI(s string) (Move, error) {
	if !IsUCISyntax(s) {
		return Move{}, fmt.Errorf("%w: %q", ErrInvalidNotation, s)
	}
	from, _ := ParseSquare(s[0:2])
	to, _ := ParseSquare(s[2:4])
	m := Move{From: from, To: to}
	if len(s) == 5 {
		m.Promotion = pieceTypeFromLetter(s[4])
	}
	return m, nil
}

func (b *Board) parseSAN(s string) (Move, error) {
	orig := s
	s = strings.TrimRight(s, "+#!?")
	if s == "" {
		return Move{}, fmt.Errorf("%w: %q", ErrInvalidNotation, orig)
	}

	legal := b.LegalMoves()

	switch s {
	case "O-O", "0-0", "O-O-O", "0-0-0":
		wantFile := 6
		if len(s) == 5 {
			wantFile = 2
		}
		for _, m := range legal {
			if b.squares[m.From].Type() == King && m.From.File() == 4 && m.To.File() == wantFile {
				return m, nil
			}
		}
		return Move{}, fmt.Errorf("%w: %s", ErrIllegalMove, orig)
	}

	piece := Pawn
	if c := s[0]; c == 'N' || c == 'B' || c == 'R' || c == 'Q' || c == 'K' {
		piece = pieceTypeFromLetter(c)
		s = s[1:]
	}

	promo := NoPieceType
	if i := strings.IndexByte(s, '='); i >= 0 {
		if i != len(s)-2 {
			return Move{}, fmt.Errorf("%w: %q", ErrInvalidNotation, orig)
		}
		promo = pieceTypeFromLetter(s[i+1])
		s = s[:i]
		if promo == NoPieceType || promo == Pawn || promo == King {
			return Move{}, fmt.Errorf("%w: %q", ErrInvalidNotation, orig)
		}
	} else if n := len(s); piece == Pawn && n >= 3 && strings.IndexByte("NBRQ", s[n-1]) >= 0 {
		promo = pieceTypeFromLetter(s[n-1])
		s = s[:n-1]
	}

	if len(s) < 2 {
		return Move{}, fmt.Errorf("%w: %q", ErrInvalidNotation, orig)
	}
	to, err := ParseSquare(s[len(s)-2:])
	if err != nil {
		return Move{}, fmt.Errorf("%w: %q", ErrInvalidNotation, orig)
	}
	prefix := strings.Replace(s[:len(s)-2], "x", "", 1)
	if len(prefix) > 2 {
		return Move{}, fmt.Errorf("%w: %q", ErrInvalidNotation, orig)
	}
	fromFile, fromRank := -1, -1
	for i := 0; i < len(prefix); i++ {
		c := prefix[i]
		switch {
		case c >= 'a' && c <= 'h':
			fromFile = int(c - 'a')
		case c >= '1' && c <= '8':
			fromRank = int(c - '1')
		default:
			return Move{}, fmt.Errorf("%w: %q", ErrInvalidNotation, orig)
		}
	}

	var found []Move
	for _, m := range legal {
		if m.To != to || b.squares[m.From].Type() != piece {
			continue
		}
		if fromFile >= 0 && m.From.File() != fromFile {
			continue
		}
		if fromRank >= 0 && m.From.Rank() != fromRank {
			continue
		}
		if m.Promotion != promo && !(promo == NoPieceType && m.Promotion == Queen) {
			continue
		}
		found = append(found, m)
	}

	switch len(found) {
	case 0:
		return Move{}, fmt.Errorf("%w: %s", ErrIllegalMove, orig)
	case 1:
		return found[0], nil
	default:
		return Move{}, fmt.Errorf("%w: %s matches %d moves", ErrAmbiguousMove, orig, len(found))
	}
}

// san renders a legal move in standard algebraic notation without the
// check suffix
func (b *Board) san(m Move, a AppliedMove, legal []Move) string {
	if a.Is(KindCastleKingSide) {
		return "O-O"
	}
	if a.Is(KindCastleQueenSide) {
		return "O-O-O"
	}

	var sb strings.Builder
	pt := a.Piece.Type()
	if pt == Pawn {
		if a.Is(KindCapture) {
			sb.WriteByte(byte('a' + m.From.File()))
		}
	} else {
		sb.WriteByte(pt.Letter() - ('a' - 'A'))

		sameFile, sameRank, others := false, false, false
		for _, o := range legal {
			if o.To != m.To || o.From == m.From || b.squares[o.From] != a.Piece {
				continue
			}
			others = true
			if o.From.File() == m.From.File() {
				sameFile = true
			}
			if o.From.Rank() == m.From.Rank() {
				sameRank = true
			}
		}
		if others {
			switch {
			case !sameFile:
				sb.WriteByte(byte('a' + m.From.File()))
			case !sameRank:
				sb.WriteByte(byte('1' + m.From.Rank()))
			default:
				sb.WriteString(m.From.String())
			}
		}
	}

	if a.Is(KindCapture) {
		sb.WriteByte('x')
	}
	sb.WriteString(m.To.String())
	if m.Promotion != NoPieceType {
		sb.WriteByte('=')
		sb.WriteByte(m.Promotion.Letter() - ('a' - 'A'))
	}
	return sb.String()
}
