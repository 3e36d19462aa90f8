package board

import "forkknight/internal/server/core"

var (
	knightTargets [64][]Square
	kingTargets   [64][]Square
	// rays[sq][dir]: directions 0-3 are orthogonal, 4-7 diagonal
	rays [64][8][]Square

	promotionPieces = [4]PieceType{Queen, Rook, Bishop, Knight}
)

var (
	knightDeltas = [8][2]int{{1, 2}, {2, 1}, {2, -1}, {1, -2}, {-1, -2}, {-2, -1}, {-2, 1}, {-1, 2}}
	kingDeltas   = [8][2]int{{1, 0}, {1, 1}, {0, 1}, {-1, 1}, {-1, 0}, {-1, -1}, {0, -1}, {1, -1}}
	rayDeltas    = [8][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}, {1, 1}, {1, -1}, {-1, 1}, {-1, -1}}
)

// castleMask lists the rights lost when a move touches the square
var castleMask [64]CastleRights

func init() {
	for sq := Square(0); sq < 64; sq++ {
		f, r := sq.File(), sq.Rank()
		for _, d := range knightDeltas {
			if onBoard(f+d[0], r+d[1]) {
				knightTargets[sq] = append(knightTargets[sq], NewSquare(f+d[0], r+d[1]))
			}
		}
		for _, d := range kingDeltas {
			if onBoard(f+d[0], r+d[1]) {
				kingTargets[sq] = append(kingTargets[sq], NewSquare(f+d[0], r+d[1]))
			}
		}
		for dir, d := range rayDeltas {
			for nf, nr := f+d[0], r+d[1]; onBoard(nf, nr); nf, nr = nf+d[0], nr+d[1] {
				rays[sq][dir] = append(rays[sq][dir], NewSquare(nf, nr))
			}
		}
	}

	castleMask[NewSquare(0, 0)] = WhiteQueenSide
	castleMask[NewSquare(7, 0)] = WhiteKingSide
	castleMask[NewSquare(4, 0)] = WhiteKingSide | WhiteQueenSide
	castleMask[NewSquare(0, 7)] = BlackQueenSide
	castleMask[NewSquare(7, 7)] = BlackKingSide
	castleMask[NewSquare(4, 7)] = BlackKingSide | BlackQueenSide
}

func pawnDir(c core.Color) int {
	if c == core.ColorWhite {
		return 1
	}
	return -1
}

func promotionRank(c core.Color) int {
	if c == core.ColorWhite {
		return 7
	}
	return 0
}

// LegalMoves returns every legal move for the side to move
func (b *Board) LegalMoves() []Move {
	return b.legalMoves(make([]Move, 0, 48))
}

// LegalMovesFrom returns the legal moves of the piece on sq. The result is
// empty for an empty square or a piece of the side not to move.
func (b *Board) LegalMovesFrom(sq Square) []Move {
	if sq < 0 || sq > 63 {
		return nil
	}
	p := b.squares[sq]
	if p == NoPiece || p.Color() != b.turn {
		return []Move{}
	}
	out := make([]Move, 0, 16)
	for _, m := range b.legalMoves(make([]Move, 0, 48)) {
		if m.From == sq {
			out = append(out, m)
		}
	}
	return out
}

// IsLegal reports whether from-to is legal for some promotion choice
func (b *Board) IsLegal(from, to Square) bool {
	for _, m := range b.LegalMovesFrom(from) {
		if m.To == to {
			return true
		}
	}
	return false
}

// HasLegalMoves stops at the first legal move found
func (b *Board) HasLegalMoves() bool {
	us := b.turn
	for _, m := range b.pseudoMoves(make([]Move, 0, 48)) {
		u := b.makeMove(m)
		ok := !b.kingAttacked(us)
		b.unmakeMove(m, u)
		if ok {
			return true
		}
	}
	return false
}

func (b *Board) legalMoves(dst []Move) []Move {
	us := b.turn
	for _, m := range b.pseudoMoves(make([]Move, 0, 48)) {
		u := b.makeMove(m)
		if !b.kingAttacked(us) {
			dst = append(dst, m)
		}
		b.unmakeMove(m, u)
	}
	return dst
}

func (b *Board) pseudoMoves(dst []Move) []Move {
	us := b.turn
	for sq := Square(0); sq < 64; sq++ {
		p := b.squares[sq]
		if p == NoPiece || p.Color() != us {
			continue
		}
		switch p.Type() {
		case Pawn:
			dst = b.pawnMoves(dst, sq, us)
		case Knight:
			dst = b.stepMoves(dst, sq, us, knightTargets[sq])
		case Bishop:
			dst = b.slideMoves(dst, sq, us, 4, 8)
		case Rook:
			dst = b.slideMoves(dst, sq, us, 0, 4)
		case Queen:
			dst = b.slideMoves(dst, sq, us, 0, 8)
		case King:
			dst = b.stepMoves(dst, sq, us, kingTargets[sq])
			dst = b.castlingMoves(dst, sq, us)
		}
	}
	return dst
}

func (b *Board) pawnMoves(dst []Move, from Square, us core.Color) []Move {
	dir := pawnDir(us)
	f, r := from.File(), from.Rank()
	startRank := 1
	if us == core.ColorBlack {
		startRank = 6
	}

	if onBoard(f, r+dir) {
		one := NewSquare(f, r+dir)
		if b.squares[one] == NoPiece {
			dst = addPawnMove(dst, from, one, us)
			if r == startRank {
				two := NewSquare(f, r+2*dir)
				if b.squares[two] == NoPiece {
					dst = append(dst, Move{From: from, To: two})
				}
			}
		}
	}

	for _, df := range [2]int{-1, 1} {
		if !onBoard(f+df, r+dir) {
			continue
		}
		to := NewSquare(f+df, r+dir)
		target := b.squares[to]
		if target != NoPiece && target.Color() != us {
			dst = addPawnMove(dst, from, to, us)
		} else if target == NoPiece && to == b.epSquare && b.squares[NewSquare(to.File(), r)] == MakePiece(us.Opposite(), Pawn) {
			dst = append(dst, Move{From: from, To: to})
		}
	}
	return dst
}

func addPawnMove(dst []Move, from, to Square, us core.Color) []Move {
	if to.Rank() == promotionRank(us) {
		for _, pt := range promotionPieces {
			dst = append(dst, Move{From: from, To: to, Promotion: pt})
		}
		return dst
	}
	return append(dst, Move{From: from, To: to})
}

func (b *Board) stepMoves(dst []Move, from Square, us core.Color, targets []Square) []Move {
	for _, to := range targets {
		if t := b.squares[to]; t == NoPiece || t.Color() != us {
			dst = append(dst, Move{From: from, To: to})
		}
	}
	return dst
}

func (b *Board) slideMoves(dst []Move, from Square, us core.Color, dirFrom, dirTo int) []Move {
	for dir := dirFrom; dir < dirTo; dir++ {
		for _, to := range rays[from][dir] {
			t := b.squares[to]
			if t == NoPiece {
				dst = append(dst, Move{From: from, To: to})
				continue
			}
			if t.Color() != us {
				dst = append(dst, Move{From: from, To: to})
			}
			break
		}
	}
	return dst
}

func (b *Board) castlingMoves(dst []Move, from Square, us core.Color) []Move {
	rank := 0
	kingSide, queenSide := WhiteKingSide, WhiteQueenSide
	if us == core.ColorBlack {
		rank = 7
		kingSide, queenSide = BlackKingSide, BlackQueenSide
	}
	if from != NewSquare(4, rank) || b.castling&(kingSide|queenSide) == 0 {
		return dst
	}
	them := us.Opposite()
	rook := MakePiece(us, Rook)
	if b.isAttacked(from, them) {
		return dst
	}

	if b.castling&kingSide != 0 && b.squares[NewSquare(7, rank)] == rook &&
		b.squares[NewSquare(5, rank)] == NoPiece && b.squares[NewSquare(6, rank)] == NoPiece &&
		!b.isAttacked(NewSquare(5, rank), them) && !b.isAttacked(NewSquare(6, rank), them) {
		dst = append(dst, Move{From: from, To: NewSquare(6, rank)})
	}

	if b.castling&queenSide != 0 && b.squares[NewSquare(0, rank)] == rook &&
		b.squares[NewSquare(1, rank)] == NoPiece && b.squares[NewSquare(2, rank)] == NoPiece &&
		b.squares[NewSquare(3, rank)] == NoPiece &&
		!b.isAttacked(NewSquare(3, rank), them) && !b.isAttacked(NewSquare(2, rank), them) {
		dst = append(dst, Move{From: from, To: NewSquare(2, rank)})
	}
	return dst
}

// isAttacked reports whether any piece of color by attacks sq
func (b *Board) isAttacked(sq Square, by core.Color) bool {
	f, r := sq.File(), sq.Rank()

	// A pawn of color by attacks from one rank behind in its own direction
	pr := r - pawnDir(by)
	pawn := MakePiece(by, Pawn)
	for _, df := range [2]int{-1, 1} {
		if onBoard(f+df, pr) && b.squares[NewSquare(f+df, pr)] == pawn {
			return true
		}
	}

	knight := MakePiece(by, Knight)
	for _, from := range knightTargets[sq] {
		if b.squares[from] == knight {
			return true
		}
	}

	king := MakePiece(by, King)
	for _, from := range kingTargets[sq] {
		if b.squares[from] == king {
			return true
		}
	}

	queen := MakePiece(by, Queen)
	rook := MakePiece(by, Rook)
	bishop := MakePiece(by, Bishop)
	for dir := 0; dir < 8; dir++ {
		for _, from := range rays[sq][dir] {
			p := b.squares[from]
			if p == NoPiece {
				continue
			}
			if p == queen || (dir < 4 && p == rook) || (dir >= 4 && p == bishop) {
				return true
			}
			break
		}
	}
	return false
}

func (b *Board) kingAttacked(c core.Color) bool {
	ks := b.kingSq[c]
	if ks == NoSquare {
		return false
	}
	return b.isAttacked(ks, c.Opposite())
}

// epCapturable reports whether a pawn of the side to move stands next to
// the double-pushed pawn, so the en-passant target matters for identity
func (b *Board) epCapturable() bool {
	if b.epSquare == NoSquare {
		return false
	}
	f := b.epSquare.File()
	r := b.epSquare.Rank() - pawnDir(b.turn)
	pawn := MakePiece(b.turn, Pawn)
	for _, df := range [2]int{-1, 1} {
		if onBoard(f+df, r) && b.squares[NewSquare(f+df, r)] == pawn {
			return true
		}
	}
	return false
}

// Perft counts leaf nodes of the legal move tree to the given depth
func (b *Board) Perft(depth int) int {
	if depth == 0 {
		return 1
	}
	moves := b.LegalMoves()
	if depth == 1 {
		return len(moves)
	}
	nodes := 0
	for _, m := range moves {
		u := b.makeMove(m)
		nodes += b.Perft(depth - 1)
		b.unmakeMove(m, u)
	}
	return nodes
}
