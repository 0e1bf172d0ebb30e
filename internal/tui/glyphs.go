package tui

import (
	"os"
	"strings"
	"sync"
)

// Terminal apps can't change the user's font. Instead we choose between Unicode and
// ASCII glyph sets for row markers and toggles, for fonts that render some glyphs
// poorly.

type glyphSet int

const (
	glyphSetUnicode glyphSet = iota
	glyphSetASCII
)

var (
	glyphsMu      sync.RWMutex
	currentGlyphs = glyphSetUnicode
)

// applyGlyphPreference reads TASKLIST_TUI_GLYPHS, falling back to the config value.
func applyGlyphPreference(configured string) {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("TASKLIST_TUI_GLYPHS")))
	if v == "" {
		v = strings.ToLower(strings.TrimSpace(configured))
	}
	switch v {
	case "", "unicode", "utf8":
		setGlyphs(glyphSetUnicode)
	case "ascii":
		setGlyphs(glyphSetASCII)
	default:
		// Unknown value: ignore.
	}
}

func setGlyphs(gs glyphSet) {
	glyphsMu.Lock()
	currentGlyphs = gs
	glyphsMu.Unlock()
}

func glyphs() glyphSet {
	glyphsMu.RLock()
	gs := currentGlyphs
	glyphsMu.RUnlock()
	return gs
}

func pick(unicode, ascii string) string {
	if glyphs() == glyphSetASCII {
		return ascii
	}
	return unicode
}

func glyphCheckbox() string { return "[ ]" }

// glyphToday marks tasks scheduled for today.
func glyphToday() string { return pick("☀", "*") }

func glyphOpen() string { return pick("○", "o") }

func glyphHighPriority() string { return pick("▲", "!") }

func glyphNormalPriority() string { return pick("·", ".") }

func glyphPublic() string { return pick("◉", "P") }

func glyphPrivate() string { return pick("◌", "-") }

func glyphBullet() string { return pick("•", "*") }

func glyphHRule() string { return pick("─", "-") }

func glyphOffline() string { return pick("⚠", "!") }
