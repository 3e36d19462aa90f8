package board

import "forkknight/internal/server/core"

// Position keys for repetition detection. Keys are derived from a fixed
// splitmix64 stream so they are identical across runs.
var (
	pieceKeys    [32][64]uint64
	castleKeys   [16]uint64
	epFileKeys   [8]uint64
	blackMoveKey uint64
)

func init() {
	var state uint64 = 0x9E3779B97F4A7C15
	next := func() uint64 {
		state += 0x9E3779B97F4A7C15
		z := state
		z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
		z = (z ^ (z >> 27)) * 0x94D049BB133111EB
		return z ^ (z >> 31)
	}
	for p := range pieceKeys {
		for sq := range pieceKeys[p] {
			pieceKeys[p][sq] = next()
		}
	}
	for i := range castleKeys {
		castleKeys[i] = next()
	}
	for i := range epFileKeys {
		epFileKeys[i] = next()
	}
	blackMoveKey = next()
}

// hash covers placement, side to move, castling rights and en-passant
// target, the fields that define position identity for repetition
func (b *Board) hash() uint64 {
	var h uint64
	for sq, p := range b.squares {
		if p != NoPiece {
			h ^= pieceKeys[p][sq]
		}
	}
	h ^= castleKeys[b.castling]
	if b.epCapturable() {
		h ^= epFileKeys[b.epSquare.File()]
	}
	if b.turn == core.ColorBlack {
		h ^= blackMoveKey
	}
	return h
}
