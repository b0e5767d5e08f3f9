package chat

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSplitEmptyInput(t *testing.T) {
	for _, in := range []string{"", "   ", "\n\n"} {
		got := Split(in, 3800)
		if len(got) != 1 || got[0] != "…" {
			t.Fatalf("Split(%q) = %q, want single placeholder", in, got)
		}
	}
}

func TestSplitShortTextUntouched(t *testing.T) {
	got := Split("  hello\nworld  ", 3800)
	if len(got) != 1 || got[0] != "hello\nworld" {
		t.Fatalf("got %q", got)
	}
}

func TestSplitBreaksOnLineBoundaries(t *testing.T) {
	a := strings.Repeat("a", 30)
	b := strings.Repeat("b", 30)
	c := strings.Repeat("c", 30)
	got := Split(a+"\n"+b+"\n"+c, 70)
	if len(got) != 2 {
		t.Fatalf("expected 2 chunks, got %d: %q", len(got), got)
	}
	if got[0] != a+"\n"+b {
		t.Fatalf("first chunk = %q", got[0])
	}
	if got[1] != c {
		t.Fatalf("second chunk = %q", got[1])
	}
}

func TestSplitHardSplitsLongLines(t *testing.T) {
	long := strings.Repeat("x", 250)
	got := Split(long, 100)
	if len(got) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(got))
	}
	for i, p := range got {
		if len(p) > 100 {
			t.Fatalf("chunk %d exceeds limit: %d chars", i, len(p))
		}
	}
	if strings.Join(got, "") != long {
		t.Fatalf("hard split lost content")
	}
}

func TestSplitKeepsRunesIntact(t *testing.T) {
	long := "a" + strings.Repeat("م", 3000)
	got := Split(long, 3800)
	if len(got) < 2 {
		t.Fatalf("expected a hard split, got %d chunks", len(got))
	}
	var joined strings.Builder
	for i, p := range got {
		if !utf8.ValidString(p) {
			t.Fatalf("chunk %d is not valid UTF-8: %q…", i, p[:16])
		}
		if len(p) > 3800 {
			t.Fatalf("chunk %d exceeds limit: %d bytes", i, len(p))
		}
		joined.WriteString(p)
	}
	if joined.String() != long {
		t.Fatalf("rune-boundary split lost content")
	}
}

func TestSplitEveryChunkWithinLimit(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 200; i++ {
		sb.WriteString(strings.Repeat("word ", i%40+1))
		sb.WriteByte('\n')
	}
	for _, p := range Split(sb.String(), 500) {
		if p == "" {
			t.Fatalf("empty chunk emitted")
		}
		if len(p) > 500 {
			t.Fatalf("chunk exceeds limit: %d chars", len(p))
		}
	}
}
