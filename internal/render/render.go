// Package render draws annotated task text on the two terminal surfaces.
//
// The editable surface (Preview) shows entities as inert styled runs under the
// textarea. The read-only surface (Display) exposes entities as targets that can be
// cycled and activated. Both consume the same annotate.Annotate output.
package render

import (
	"strings"

	"tasklist/internal/annotate"

	"github.com/charmbracelet/lipgloss"
	xansi "github.com/charmbracelet/x/ansi"
)

// Palette maps entity kinds to styles.
type Palette struct {
	Plain   lipgloss.Style
	Email   lipgloss.Style
	Link    lipgloss.Style
	Mention lipgloss.Style
	Hashtag lipgloss.Style

	// Active is layered over the style of the highlighted target.
	Active lipgloss.Style
}

func ac(light, dark string) lipgloss.AdaptiveColor {
	return lipgloss.AdaptiveColor{Light: light, Dark: dark}
}

// Entity colors, shared with the TUI theme.
var (
	ColorMention = ac("130", "215")
	ColorHashtag = ac("91", "141")
	ColorEmail   = ac("28", "114")
	ColorLink    = ac("27", "75")
)

func DefaultPalette() Palette {
	return Palette{
		Plain:   lipgloss.NewStyle(),
		Email:   lipgloss.NewStyle().Foreground(ColorEmail).Underline(true),
		Link:    lipgloss.NewStyle().Foreground(ColorLink).Underline(true),
		Mention: lipgloss.NewStyle().Foreground(ColorMention).Bold(true),
		Hashtag: lipgloss.NewStyle().Foreground(ColorHashtag).Bold(true),
		Active:  lipgloss.NewStyle().Reverse(true),
	}
}

func (p Palette) Style(k annotate.Kind) lipgloss.Style {
	switch k {
	case annotate.Email:
		return p.Email
	case annotate.Link:
		return p.Link
	case annotate.Mention:
		return p.Mention
	case annotate.Hashtag:
		return p.Hashtag
	default:
		return p.Plain
	}
}

// Preview renders text for the editable surface, wrapped at width columns (no wrap
// when width <= 0). Entities are styled but carry no behavior.
func Preview(text string, width int, p Palette) string {
	var b strings.Builder
	for _, seg := range annotate.Annotate(text) {
		b.WriteString(paint(p.Style(seg.Kind), seg.Text))
	}
	return wrap(b.String(), width)
}

// ANSI renders text once with the default palette and no active target.
func ANSI(text string) string {
	return NewDisplay(text).Render(0, -1, DefaultPalette())
}

func wrap(s string, width int) string {
	if width <= 0 {
		return s
	}
	return xansi.Wrap(s, width, "")
}

// paint styles s line by line so embedded newlines are not padded into a block.
func paint(st lipgloss.Style, s string) string {
	st = st.TabWidth(lipgloss.NoTabConversion)
	if !strings.Contains(s, "\n") {
		if s == "" {
			return ""
		}
		return st.Render(s)
	}
	lines := strings.Split(s, "\n")
	for i, ln := range lines {
		if ln != "" {
			lines[i] = st.Render(ln)
		}
	}
	return strings.Join(lines, "\n")
}
