package board

import (
	"fmt"

	"forkknight/internal/server/core"
)

// MoveKind flags describe what an applied move did
type MoveKind uint8

const (
	KindCapture MoveKind = 1 << iota
	KindEnPassant
	KindCastleKingSide
	KindCastleQueenSide
	KindPromotion
	KindDoublePush
)

// AppliedMove records a move together with its effects
type AppliedMove struct {
	Move      Move
	Piece     Piece
	Captured  Piece // NoPiece when nothing was taken
	Kind      MoveKind
	SAN       string
	Check     bool
	Checkmate bool
}

func (a AppliedMove) Is(k MoveKind) bool {
	return a.Kind&k != 0
}

// undoState holds what makeMove overwrites
type undoState struct {
	moved    Piece
	captured Piece
	capSq    Square
	castling CastleRights
	epSquare Square
	halfmove int
	fullmove int
}

type historyEntry struct {
	applied AppliedMove
	undo    undoState
}

func (b *Board) makeMove(m Move) undoState {
	p := b.squares[m.From]
	us := p.Color()
	u := undoState{
		moved:    p,
		captured: b.squares[m.To],
		capSq:    m.To,
		castling: b.castling,
		epSquare: b.epSquare,
		halfmove: b.halfmove,
		fullmove: b.fullmove,
	}

	if p.Type() == Pawn && m.To == b.epSquare && u.captured == NoPiece && m.From.File() != m.To.File() {
		u.capSq = NewSquare(m.To.File(), m.From.Rank())
		u.captured = b.squares[u.capSq]
		b.squares[u.capSq] = NoPiece
	}

	b.squares[m.From] = NoPiece
	if m.Promotion != NoPieceType {
		b.squares[m.To] = MakePiece(us, m.Promotion)
	} else {
		b.squares[m.To] = p
	}

	if p.Type() == King {
		b.kingSq[us] = m.To
		if df := m.To.File() - m.From.File(); df == 2 || df == -2 {
			rank := m.From.Rank()
			rf, rt := 7, 5
			if df < 0 {
				rf, rt = 0, 3
			}
			b.squares[NewSquare(rt, rank)] = b.squares[NewSquare(rf, rank)]
			b.squares[NewSquare(rf, rank)] = NoPiece
		}
	}
	if u.captured.Type() == King {
		b.kingSq[u.captured.Color()] = NoSquare
	}

	b.castling &^= castleMask[m.From] | castleMask[m.To]

	b.epSquare = NoSquare
	if p.Type() == Pawn {
		if dr := m.To.Rank() - m.From.Rank(); dr == 2 || dr == -2 {
			b.epSquare = NewSquare(m.From.File(), (m.From.Rank()+m.To.Rank())/2)
		}
	}

	if p.Type() == Pawn || u.captured != NoPiece {
		b.halfmove = 0
	} else {
		b.halfmove++
	}
	if us == core.ColorBlack {
		b.fullmove++
	}
	b.turn = us.Opposite()
	return u
}

func (b *Board) unmakeMove(m Move, u undoState) {
	us := u.moved.Color()
	b.turn = us

	b.squares[m.To] = NoPiece
	b.squares[m.From] = u.moved
	if u.captured != NoPiece {
		b.squares[u.capSq] = u.captured
		if u.captured.Type() == King {
			b.kingSq[u.captured.Color()] = u.capSq
		}
	}

	if u.moved.Type() == King {
		b.kingSq[us] = m.From
		if df := m.To.File() - m.From.File(); df == 2 || df == -2 {
			rank := m.From.Rank()
			rf, rt := 7, 5
			if df < 0 {
				rf, rt = 0, 3
			}
			b.squares[NewSquare(rf, rank)] = b.squares[NewSquare(rt, rank)]
			b.squares[NewSquare(rt, rank)] = NoPiece
		}
	}

	b.castling = u.castling
	b.epSquare = u.epSquare
	b.halfmove = u.halfmove
	b.fullmove = u.fullmove
}

// Apply resolves the input to a canonical move, validates it against the
// legal move list and applies it. Rejected input leaves the board unchanged.
func (b *Board) Apply(in MoveInput) (AppliedMove, error) {
	m, err := b.Resolve(in)
	if err != nil {
		return AppliedMove{}, err
	}
	return b.ApplyMove(m)
}

// ApplyUCI applies a move in UCI or SAN notation
func (b *Board) ApplyUCI(s string) (AppliedMove, error) {
	return b.Apply(Notation(s))
}

// ApplyMove validates and applies a structured move. A pawn reaching the
// last rank without a promotion piece promotes to a queen.
func (b *Board) ApplyMove(m Move) (AppliedMove, error) {
	legal := b.LegalMoves()
	m, ok := matchLegal(legal, m)
	if !ok {
		return AppliedMove{}, fmt.Errorf("%w: %s", ErrIllegalMove, m.UCI())
	}

	applied := b.describe(m, legal)
	b.push(m, &applied)
	b.annotate(&applied)
	return applied, nil
}

// ApplyLegal applies a move taken from LegalMoves without validating it
// again. Search uses it with Undo; SAN and check flags are not computed.
func (b *Board) ApplyLegal(m Move) {
	applied := AppliedMove{Move: m, Piece: b.squares[m.From]}
	b.push(m, &applied)
}

func (b *Board) push(m Move, applied *AppliedMove) {
	u := b.makeMove(m)
	applied.Captured = u.captured
	b.history = append(b.history, historyEntry{applied: *applied, undo: u})
	b.hashes = append(b.hashes, b.hash())
}

// Undo reverts the most recent move. It returns false when there is no
// history to revert.
func (b *Board) Undo() (AppliedMove, bool) {
	n := len(b.history)
	if n == 0 {
		return AppliedMove{}, false
	}
	e := b.history[n-1]
	b.history = b.history[:n-1]
	b.hashes = b.hashes[:len(b.hashes)-1]
	b.unmakeMove(e.applied.Move, e.undo)
	return e.applied, true
}

// History returns the applied moves since the position was loaded
func (b *Board) History() []AppliedMove {
	out := make([]AppliedMove, len(b.history))
	for i, e := range b.history {
		out[i] = e.applied
	}
	return out
}

// LastMove returns the most recent applied move
func (b *Board) LastMove() (AppliedMove, bool) {
	if len(b.history) == 0 {
		return AppliedMove{}, false
	}
	return b.history[len(b.history)-1].applied, true
}

func matchLegal(legal []Move, m Move) (Move, bool) {
	promo := m.Promotion
	needsDefault := promo == NoPieceType
	for _, lm := range legal {
		if lm.From != m.From || lm.To != m.To {
			continue
		}
		if lm.Promotion == promo || (needsDefault && lm.Promotion == Queen) {
			return lm, true
		}
	}
	return m, false
}

// describe fills everything known before the move is made
func (b *Board) describe(m Move, legal []Move) AppliedMove {
	p := b.squares[m.From]
	a := AppliedMove{Move: m, Piece: p}

	if b.squares[m.To] != NoPiece {
		a.Kind |= KindCapture
	}
	if p.Type() == Pawn {
		if m.From.File() != m.To.File() && b.squares[m.To] == NoPiece {
			a.Kind |= KindCapture | KindEnPassant
		}
		if dr := m.To.Rank() - m.From.Rank(); dr == 2 || dr == -2 {
			a.Kind |= KindDoublePush
		}
	}
	if m.Promotion != NoPieceType {
		a.Kind |= KindPromotion
	}
	if p.Type() == King {
		switch m.To.File() - m.From.File() {
		case 2:
			a.Kind |= KindCastleKingSide
		case -2:
			a.Kind |= KindCastleQueenSide
		}
	}
	a.SAN = b.san(m, a, legal)
	return a
}

// annotate adds check status after the move was made
func (b *Board) annotate(a *AppliedMove) {
	a.Check = b.InCheck()
	if a.Check && !b.HasLegalMoves() {
		a.Checkmate = true
	}
	switch {
	case a.Checkmate:
		a.SAN += "#"
	case a.Check:
		a.SAN += "+"
	}
	b.history[len(b.history)-1].applied = *a
}
