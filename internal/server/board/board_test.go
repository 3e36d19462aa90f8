package board

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"forkknight/internal/server/core"
)

const (
	foolsMateFEN    = "rnb1kbnr/pppp1ppp/8/4p3/6Pq/5P2/PPPPP2P/RNBQKBNR w KQkq - 1 3"
	scholarsFEN     = "r1bqkb1r/pppp1ppp/2n2n2/4p2Q/2B1P3/8/PPPP1PPP/RNB1K1NR w KQkq - 4 4"
	stalemateFEN    = "7k/5Q2/6K1/8/8/8/8/8 b - - 0 1"
	castlingFEN     = "r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1"
	enPassantFEN    = "rnbqkbnr/ppp1p1pp/8/3pPp2/8/8/PPPP1PPP/RNBQKBNR w KQkq f6 0 3"
	promotionFEN    = "8/P7/8/8/8/8/8/k1K5 w - - 0 1"
	pawnLessonFEN   = "8/8/8/8/8/8/PPPPPPPP/8 w - - 0 1"
	pinnedKnightFEN = "4k3/4r3/8/8/8/8/4N3/4K3 w - - 0 1"
	twoKnightsFEN   = "4k3/8/8/8/8/8/8/2N1K1N1 w - - 0 1"
)

func mustBoard(t *testing.T, fen string) *Board {
	t.Helper()
	b, err := FromFEN(fen)
	if err != nil {
		t.Fatalf("FromFEN(%q): %v", fen, err)
	}
	return b
}

func mustApply(t *testing.T, b *Board, moves ...string) {
	t.Helper()
	for _, m := range moves {
		if _, err := b.ApplyUCI(m); err != nil {
			t.Fatalf("apply %s on %s: %v", m, b.FEN(), err)
		}
	}
}

func TestFENRoundTrip(t *testing.T) {
	fens := []string{
		StartingFEN,
		foolsMateFEN,
		scholarsFEN,
		castlingFEN,
		enPassantFEN,
		promotionFEN,
		pawnLessonFEN,
		"r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w Kq - 12 40",
		"4k3/8/8/8/3pP3/8/8/4K3 b - e3 0 1",
	}
	for _, fen := range fens {
		t.Run(fen, func(t *testing.T) {
			b := mustBoard(t, fen)
			if got := b.FEN(); got != fen {
				t.Fatalf("FEN() = %q, want %q", got, fen)
			}
			again := mustBoard(t, b.FEN())
			if got := again.FEN(); got != fen {
				t.Errorf("reload FEN() = %q, want %q", got, fen)
			}
		})
	}
}

func TestLoadRejectsMalformed(t *testing.T) {
	bad := []struct {
		name string
		fen  string
	}{
		{"empty", ""},
		{"missing fields", "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq -"},
		{"seven ranks", "rnbqkbnr/pppppppp/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"},
		{"rank too long", "rnbqkbnrr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"},
		{"rank too short", "rnbqkbn/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"},
		{"bad piece", "rnbqkbnx/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"},
		{"consecutive digits", "rnbqkbnr/pppppppp/44/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"},
		{"bad turn", "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR x KQkq - 0 1"},
		{"bad castling", "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkx - 0 1"},
		{"castling order", "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w kqKQ - 0 1"},
		{"bad en passant", "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq e4 0 1"},
		{"en passant wrong side", "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR w KQkq e3 0 1"},
		{"en passant behind own pawn", "4k3/8/8/3PP3/8/8/8/4K3 w - d6 0 1"},
		{"en passant with no pawn", "4k3/8/8/4P3/8/8/8/4K3 w - d6 0 1"},
		{"en passant target occupied", "4k3/8/3n4/3pP3/8/8/8/4K3 w - d6 0 1"},
		{"negative halfmove", "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - -1 1"},
		{"zero fullmove", "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 0"},
		{"two white kings", "4k3/8/8/8/8/8/8/K3K3 w - - 0 1"},
		{"pawn on first rank", "4k3/8/8/8/8/8/8/P3K3 w - - 0 1"},
	}

	for _, tt := range bad {
		t.Run(tt.name, func(t *testing.T) {
			b := mustBoard(t, scholarsFEN)
			err := b.Load(tt.fen)
			if !errors.Is(err, ErrInvalidFEN) {
				t.Fatalf("Load() error = %v, want ErrInvalidFEN", err)
			}
			if got := b.FEN(); got != scholarsFEN {
				t.Errorf("state mutated by failed load: %s", got)
			}
		})
	}
}

func TestLoadAcceptsPositionsWithoutKings(t *testing.T) {
	b := mustBoard(t, pawnLessonFEN)
	if b.InCheck() {
		t.Error("kingless position reported check")
	}
	if got := len(b.LegalMoves()); got != 16 {
		t.Errorf("LegalMoves() = %d, want 16", got)
	}
	mustApply(t, b, "e2e4")
}

func TestStartingPosition(t *testing.T) {
	b := New()
	if got := len(b.LegalMoves()); got != 20 {
		t.Errorf("LegalMoves() = %d, want 20", got)
	}
	if b.SideToMove() != core.ColorWhite {
		t.Errorf("SideToMove() = %v, want white", b.SideToMove())
	}
	if b.IsGameOver() || b.InCheck() {
		t.Error("starting position reported terminal state")
	}
}

func TestLegalMovesFrom(t *testing.T) {
	b := New()

	tests := []struct {
		square string
		want   []string
	}{
		{"e2", []string{"e2e3", "e2e4"}},
		{"g1", []string{"g1h3", "g1f3"}},
		{"e1", nil},
		{"e4", nil},
		{"e7", nil}, // opponent piece
	}
	for _, tt := range tests {
		t.Run(tt.square, func(t *testing.T) {
			sq, err := ParseSquare(tt.square)
			if err != nil {
				t.Fatal(err)
			}
			var got []string
			for _, m := range b.LegalMovesFrom(sq) {
				got = append(got, m.UCI())
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("LegalMovesFrom(%s) mismatch (-want +got):\n%s", tt.square, diff)
			}
		})
	}

	e2, _ := ParseSquare("e2")
	e4, _ := ParseSquare("e4")
	e5, _ := ParseSquare("e5")
	if !b.IsLegal(e2, e4) {
		t.Error("IsLegal(e2, e4) = false")
	}
	if b.IsLegal(e2, e5) {
		t.Error("IsLegal(e2, e5) = true")
	}
}

func TestEnPassantNeedsEnemyPawn(t *testing.T) {
	b := mustBoard(t, "4k3/8/8/3PP3/8/8/8/4K3 w - - 0 1")
	d6, _ := ParseSquare("d6")
	e5, _ := ParseSquare("e5")
	b.epSquare = d6

	var got []string
	for _, m := range b.LegalMovesFrom(e5) {
		got = append(got, m.UCI())
	}
	if diff := cmp.Diff([]string{"e5e6"}, got); diff != "" {
		t.Errorf("LegalMovesFrom(e5) mismatch (-want +got):\n%s", diff)
	}
	if _, err := b.ApplyUCI("e5d6"); !errors.Is(err, ErrIllegalMove) {
		t.Errorf("e5d6 error = %v, want ErrIllegalMove", err)
	}
}

func TestIllegalMoveIsRejectedWithoutMutation(t *testing.T) {
	tests := []struct {
		name string
		fen  string
		move MoveInput
		want error
	}{
		{"pawn three squares", StartingFEN, Notation("e2e5"), ErrIllegalMove},
		{"empty square", StartingFEN, Notation("e4e5"), ErrIllegalMove},
		{"opponent piece", StartingFEN, Notation("e7e5"), ErrIllegalMove},
		{"garbage", StartingFEN, Notation("hello"), ErrInvalidNotation},
		{"pinned knight", pinnedKnightFEN, Notation("e2c3"), ErrIllegalMove},
		{"ambiguous san", twoKnightsFEN, Notation("Ne2"), ErrAmbiguousMove},
		{"bad promotion", StartingFEN, Notation("e2e4q"), ErrIllegalMove},
		{"structured off board", StartingFEN, Structured(Move{From: NewSquare(4, 1), To: NewSquare(4, 6)}), ErrIllegalMove},
		{"castle through check", "4k3/8/8/8/8/8/5r2/4K2R w K - 0 1", Notation("e1g1"), ErrIllegalMove},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := mustBoard(t, tt.fen)
			before := b.FEN()
			_, err := b.Apply(tt.move)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Apply(%s) error = %v, want %v", tt.move, err, tt.want)
			}
			if got := b.FEN(); got != before {
				t.Errorf("FEN changed: %s -> %s", before, got)
			}
			if b.Ply() != 0 {
				t.Errorf("history grew on rejected move")
			}
		})
	}
}

func TestApplyAndUndoRestoreState(t *testing.T) {
	fens := []string{StartingFEN, castlingFEN, enPassantFEN, promotionFEN,
		"r3k2r/Pppp1ppp/1b3nbN/nP6/BBP1P3/q4N2/Pp1P2PP/R2Q1RK1 w kq - 0 1"}

	for _, fen := range fens {
		t.Run(fen, func(t *testing.T) {
			b := mustBoard(t, fen)
			for _, m := range b.LegalMoves() {
				turn := b.SideToMove()
				applied, err := b.ApplyMove(m)
				if err != nil {
					t.Fatalf("ApplyMove(%s): %v", m, err)
				}
				if b.SideToMove() == turn {
					t.Fatalf("side to move did not toggle after %s", m)
				}
				undone, ok := b.Undo()
				if !ok {
					t.Fatalf("Undo after %s returned empty", m)
				}
				if undone.Move != applied.Move {
					t.Errorf("Undo returned %s, want %s", undone.Move, applied.Move)
				}
				if got := b.FEN(); got != fen {
					t.Fatalf("after %s + undo FEN = %s, want %s", m, got, fen)
				}
			}
		})
	}
}

func TestUndoEmptyHistory(t *testing.T) {
	b := New()
	if _, ok := b.Undo(); ok {
		t.Error("Undo on fresh board returned a move")
	}
}

func TestSpecialMoves(t *testing.T) {
	t.Run("castling both wings", func(t *testing.T) {
		b := mustBoard(t, castlingFEN)
		a, err := b.ApplyUCI("e1g1")
		if err != nil {
			t.Fatal(err)
		}
		if !a.Is(KindCastleKingSide) || a.SAN != "O-O" {
			t.Errorf("applied = %+v", a)
		}
		a, err = b.ApplyUCI("O-O-O")
		if err != nil {
			t.Fatal(err)
		}
		if !a.Is(KindCastleQueenSide) {
			t.Errorf("applied = %+v", a)
		}
		want := "2kr3r/8/8/8/8/8/8/R4RK1 w - - 2 2"
		if got := b.FEN(); got != want {
			t.Errorf("FEN = %s, want %s", got, want)
		}
	})

	t.Run("en passant", func(t *testing.T) {
		b := mustBoard(t, enPassantFEN)
		a, err := b.ApplyUCI("exf6")
		if err != nil {
			t.Fatal(err)
		}
		if !a.Is(KindEnPassant) || a.Captured != MakePiece(core.ColorBlack, Pawn) {
			t.Errorf("applied = %+v", a)
		}
		want := "rnbqkbnr/ppp1p1pp/5P2/3p4/8/8/PPPP1PPP/RNBQKBNR b KQkq - 0 3"
		if got := b.FEN(); got != want {
			t.Errorf("FEN = %s, want %s", got, want)
		}
		b.Undo()
		if got := b.FEN(); got != enPassantFEN {
			t.Errorf("undo FEN = %s", got)
		}
	})

	t.Run("promotion defaults to queen", func(t *testing.T) {
		b := mustBoard(t, promotionFEN)
		a, err := b.ApplyUCI("a7a8")
		if err != nil {
			t.Fatal(err)
		}
		if a.Move.Promotion != Queen || a.SAN != "a8=Q#" {
			t.Errorf("applied = %+v", a)
		}
	})

	t.Run("underpromotion", func(t *testing.T) {
		b := mustBoard(t, promotionFEN)
		a, err := b.ApplyUCI("a7a8n")
		if err != nil {
			t.Fatal(err)
		}
		if a.Move.Promotion != Knight {
			t.Errorf("promotion = %v", a.Move.Promotion)
		}
	})

	t.Run("rook move drops castling right", func(t *testing.T) {
		b := mustBoard(t, castlingFEN)
		mustApply(t, b, "h1h2")
		if got := b.Castling().String(); got != "Qkq" {
			t.Errorf("castling = %s, want Qkq", got)
		}
	})
}

func TestSANInput(t *testing.T) {
	b := New()
	for _, san := range []string{"e4", "e5", "Nf3", "Nc6", "Bb5", "a6", "Bxc6", "dxc6", "O-O"} {
		if _, err := b.Apply(Notation(san)); err != nil {
			t.Fatalf("Apply(%s): %v", san, err)
		}
	}
	want := "r1bqkbnr/1pp2ppp/p1p5/4p3/4P3/5N2/PPPP1PPP/RNBQ1RK1 b kq - 1 5"
	if got := b.FEN(); got != want {
		t.Errorf("FEN = %s, want %s", got, want)
	}

	var sans []string
	for _, a := range b.History() {
		sans = append(sans, a.SAN)
	}
	wantSAN := []string{"e4", "e5", "Nf3", "Nc6", "Bb5", "a6", "Bxc6", "dxc6", "O-O"}
	if diff := cmp.Diff(wantSAN, sans); diff != "" {
		t.Errorf("SAN history mismatch (-want +got):\n%s", diff)
	}
}

func TestSANDisambiguation(t *testing.T) {
	b := mustBoard(t, twoKnightsFEN)
	a, err := b.Apply(Notation("Nge2"))
	if err != nil {
		t.Fatal(err)
	}
	if a.SAN != "Nge2" {
		t.Errorf("SAN = %s, want Nge2", a.SAN)
	}
}

func TestFoolsMate(t *testing.T) {
	b := mustBoard(t, foolsMateFEN)
	if !b.InCheck() {
		t.Error("InCheck() = false")
	}
	if !b.IsCheckmate() {
		t.Error("IsCheckmate() = false")
	}
	if len(b.LegalMoves()) != 0 {
		t.Errorf("checkmated side has %d moves", len(b.LegalMoves()))
	}
	if !b.IsGameOver() {
		t.Error("IsGameOver() = false")
	}
	if b.IsDraw() {
		t.Error("checkmate reported as draw")
	}
	winner, ok := b.Status().Winner(b.SideToMove())
	if !ok || winner != core.ColorBlack {
		t.Errorf("Winner = %v, %v", winner, ok)
	}
}

func TestFoolsMateFromStart(t *testing.T) {
	b := New()
	mustApply(t, b, "f2f3", "e7e5", "g2g4")
	a, err := b.ApplyUCI("d8h4")
	if err != nil {
		t.Fatal(err)
	}
	if !a.Checkmate || a.SAN != "Qh4#" {
		t.Errorf("applied = %+v", a)
	}
}

func TestScholarsMatePuzzle(t *testing.T) {
	b := mustBoard(t, scholarsFEN)
	a, err := b.ApplyUCI("h5f7")
	if err != nil {
		t.Fatalf("ApplyUCI(h5f7): %v", err)
	}
	if !b.IsCheckmate() {
		t.Error("IsCheckmate() = false after Qxf7")
	}
	if a.Captured.Type() != Pawn || !a.Checkmate || a.SAN != "Qxf7#" {
		t.Errorf("applied = %+v", a)
	}
}

func TestDraws(t *testing.T) {
	tests := []struct {
		name   string
		fen    string
		reason DrawReason
	}{
		{"stalemate", stalemateFEN, DrawStalemate},
		{"bare kings", "4k3/8/8/8/8/8/8/4K3 w - - 0 1", DrawInsufficientMaterial},
		{"king and knight", "4k3/8/8/8/8/8/8/4KN2 w - - 0 1", DrawInsufficientMaterial},
		{"same colored bishops", "4kb2/8/8/8/8/8/8/2B1K3 w - - 0 1", DrawInsufficientMaterial},
		{"fifty moves", "4k3/8/8/8/8/8/8/R3K3 w - - 100 80", DrawFiftyMove},
		{"opposite bishops play on", "4k1b1/8/8/8/8/8/8/2B1K3 w - - 0 1", NotDrawn},
		{"rook plays on", "4k3/8/8/8/8/8/8/R3K3 w - - 0 1", NotDrawn},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := mustBoard(t, tt.fen)
			if got := b.DrawReason(); got != tt.reason {
				t.Errorf("DrawReason() = %v, want %v", got, tt.reason)
			}
			if got := b.Status().DrawReason; got != tt.reason {
				t.Errorf("Status().DrawReason = %v, want %v", got, tt.reason)
			}
			if b.IsDraw() != (tt.reason != NotDrawn) {
				t.Errorf("IsDraw() = %v", b.IsDraw())
			}
		})
	}
}

func TestStalemate(t *testing.T) {
	b := mustBoard(t, stalemateFEN)
	if !b.IsStalemate() || b.IsCheckmate() || !b.IsGameOver() {
		t.Errorf("stalemate=%v checkmate=%v over=%v", b.IsStalemate(), b.IsCheckmate(), b.IsGameOver())
	}
}

func TestThreefoldRepetition(t *testing.T) {
	b := New()
	shuffle := []string{"g1f3", "g8f6", "f3g1", "f6g8"}
	mustApply(t, b, shuffle...)
	if b.IsThreefoldRepetition() {
		t.Fatal("repetition reported after second occurrence")
	}
	mustApply(t, b, shuffle...)
	if !b.IsThreefoldRepetition() {
		t.Fatal("repetition not reported after third occurrence")
	}
	if b.DrawReason() != DrawThreefold {
		t.Errorf("DrawReason() = %v", b.DrawReason())
	}
	b.Undo()
	if b.IsThreefoldRepetition() {
		t.Error("repetition survived undo")
	}
}

func TestSnapshotOrder(t *testing.T) {
	b := mustBoard(t, "4k3/8/8/8/8/8/4P3/4K3 w - - 0 1")
	want := []PieceOnSquare{
		{Square: "e8", Type: "k", Color: "b"},
		{Square: "e2", Type: "p", Color: "w"},
		{Square: "e1", Type: "k", Color: "w"},
	}
	if diff := cmp.Diff(want, b.Snapshot()); diff != "" {
		t.Errorf("Snapshot() mismatch (-want +got):\n%s", diff)
	}
	if got := len(New().Snapshot()); got != 32 {
		t.Errorf("start snapshot has %d pieces", got)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	b := New()
	mustApply(t, b, "e2e4")
	c := b.Clone()
	mustApply(t, c, "e7e5")
	if b.FEN() == c.FEN() {
		t.Error("clone shares state with original")
	}
	c.Undo()
	c.Undo()
	if c.FEN() != StartingFEN {
		t.Errorf("clone history lost: %s", c.FEN())
	}
	if b.Ply() != 1 {
		t.Errorf("original ply = %d", b.Ply())
	}
}

func TestReset(t *testing.T) {
	b := mustBoard(t, foolsMateFEN)
	b.Reset()
	if b.FEN() != StartingFEN || b.Ply() != 0 {
		t.Errorf("Reset left %s with %d plies", b.FEN(), b.Ply())
	}
}
