package display

import (
	"fmt"
	"io"
	"strings"
)

// RenderBoard renders the server's ASCII diagram with colored pieces.
// The first and last lines carry the file letters.
func RenderBoard(w io.Writer, asciiBoard string) {
	lines := strings.Split(strings.TrimRight(asciiBoard, "\n"), "\n")

	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		isFileLine := i == 0 || i == len(lines)-1

		var sb strings.Builder
		for _, char := range line {
			switch {
			case char >= 'a' && char <= 'h' && isFileLine:
				sb.WriteString(Cyan + string(char) + Reset)
			case char >= 'A' && char <= 'Z':
				// White
				sb.WriteString(Blue + string(char) + Reset)
			case char >= 'a' && char <= 'z':
				// Black
				sb.WriteString(Red + string(char) + Reset)
			case char >= '1' && char <= '8':
				sb.WriteString(Cyan + string(char) + Reset)
			default:
				sb.WriteRune(char)
			}
		}
		fmt.Fprintln(w, sb.String())
	}
}

// RenderFEN draws the placement field of a FEN in the server's diagram
// layout, for positions that come without one
func RenderFEN(w io.Writer, fen string) {
	placement, _, _ := strings.Cut(fen, " ")
	ranks := strings.Split(placement, "/")
	if len(ranks) != 8 {
		fmt.Fprintf(w, "%sbad position: %s%s\n", Red, fen, Reset)
		return
	}

	var sb strings.Builder
	sb.WriteString("  a b c d e f g h\n")
	for i, rank := range ranks {
		n := 8 - i
		fmt.Fprintf(&sb, "%d ", n)
		for _, char := range rank {
			if char >= '1' && char <= '8' {
				sb.WriteString(strings.Repeat(". ", int(char-'0')))
				continue
			}
			sb.WriteRune(char)
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, " %d\n", n)
	}
	sb.WriteString("  a b c d e f g h")

	RenderBoard(w, sb.String())
}
