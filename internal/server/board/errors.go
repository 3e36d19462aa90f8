package board

import "errors"

var (
	// ErrInvalidFEN reports a malformed position string
	ErrInvalidFEN = errors.New("invalid FEN")
	// ErrInvalidNotation reports a move string that is neither UCI nor SAN
	ErrInvalidNotation = errors.New("invalid move notation")
	// ErrIllegalMove reports a well-formed move the rules do not allow
	ErrIllegalMove = errors.New("illegal move")
	// ErrAmbiguousMove reports SAN matching more than one legal move
	ErrAmbiguousMove = errors.New("ambiguous move")
)
