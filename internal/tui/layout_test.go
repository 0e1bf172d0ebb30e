package tui

import (
	"strings"
	"testing"

	xansi "github.com/charmbracelet/x/ansi"
)

func TestFitPane(t *testing.T) {
	out := fitPane("one\ntwo\nthree", 10, 2)
	if out != "one\ntwo" {
		t.Fatalf("expected cut to 2 lines, got %q", out)
	}

	out = fitPane("x", 10, 3)
	if strings.Count(out, "\n") != 2 {
		t.Fatalf("expected padding to 3 lines, got %q", out)
	}

	out = fitPane(strings.Repeat("w", 30), 10, 1)
	if xansi.StringWidth(out) != 10 || !strings.HasSuffix(out, "…") {
		t.Fatalf("expected truncation with ellipsis, got %q", out)
	}

	if got := fitPane("a\nb", 0, 0); got != "a\nb" {
		t.Fatalf("expected no-op without bounds, got %q", got)
	}
}
