package display

import (
	"bytes"
	"strings"
	"testing"
)

// stripColors removes the escape codes this package emits
func stripColors(s string) string {
	for _, c := range []string{Reset, Red, Green, Yellow, Blue, Magenta, Cyan, White} {
		s = strings.ReplaceAll(s, c, "")
	}
	return s
}

func TestRenderFEN(t *testing.T) {
	var out bytes.Buffer
	RenderFEN(&out, "6k1/5ppp/8/8/8/8/8/R3K3 w - - 0 1")

	want := strings.Join([]string{
		"  a b c d e f g h",
		"8 . . . . . . k .  8",
		"7 . . . . . p p p  7",
		"6 . . . . . . . .  6",
		"5 . . . . . . . .  5",
		"4 . . . . . . . .  4",
		"3 . . . . . . . .  3",
		"2 . . . . . . . .  2",
		"1 R . . . K . . .  1",
		"  a b c d e f g h",
	}, "\n") + "\n"

	if got := stripColors(out.String()); got != want {
		t.Errorf("RenderFEN:\n%s\nwant:\n%s", got, want)
	}
}

func TestRenderBoardColors(t *testing.T) {
	var out bytes.Buffer
	RenderBoard(&out, "  a b\n1 K k  1\n  a b")

	got := out.String()
	if !strings.Contains(got, Blue+"K"+Reset) || !strings.Contains(got, Red+"k"+Reset) {
		t.Errorf("pieces not colored: %q", got)
	}
	if !strings.Contains(got, Cyan+"a"+Reset) {
		t.Errorf("file letters not colored: %q", got)
	}
}

func TestRenderFENRejectsBadPlacement(t *testing.T) {
	var out bytes.Buffer
	RenderFEN(&out, "8/8 w")
	if !strings.Contains(out.String(), "bad position") {
		t.Errorf("output = %q", out.String())
	}
}

func TestIndentJSON(t *testing.T) {
	if got := IndentJSON([]byte(`{"a":1}`)); got != "{\n  \"a\": 1\n}" {
		t.Errorf("IndentJSON = %q", got)
	}
	if got := IndentJSON([]byte("not json")); got != "not json" {
		t.Errorf("IndentJSON passthrough = %q", got)
	}
}
