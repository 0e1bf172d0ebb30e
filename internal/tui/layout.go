package tui

import (
	"strings"

	xansi "github.com/charmbracelet/x/ansi"
)

// fitPane forces s to be exactly height lines tall, cutting lines wider than width
// (ANSI-aware) with an ellipsis. Lines are not padded. A height <= 0 keeps all lines.
func fitPane(s string, width, height int) string {
	lines := strings.Split(s, "\n")
	if height > 0 {
		if len(lines) > height {
			lines = lines[:height]
		}
		for len(lines) < height {
			lines = append(lines, "")
		}
	}
	if width <= 0 {
		return strings.Join(lines, "\n")
	}
	for i, ln := range lines {
		// Bound the work on pathological lines before measuring them.
		if len(ln) > 8192 {
			ln = xansi.Cut(ln, 0, width)
		}
		if xansi.StringWidth(ln) > width {
			ln = xansi.Truncate(ln, width, "…")
		}
		lines[i] = ln
	}
	return strings.Join(lines, "\n")
}
