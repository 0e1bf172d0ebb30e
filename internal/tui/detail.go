package tui

import (
	"fmt"
	"strings"
	"time"

	"tasklist/internal/annotate"
	"tasklist/internal/model"
	"tasklist/internal/render"

	"github.com/charmbracelet/lipgloss"
)

// renderDetail is the full view of one task: wrapped text with entity styling,
// metadata, entities by kind and the markdown description.
func renderDetail(t model.Task, width int, active int) string {
	if width < 20 {
		width = 20
	}
	bodyW := width - 4

	d := render.NewDisplay(t.Text())
	label := styleMuted().Width(12)

	meta := []string{
		label.Render("id") + fmt.Sprintf("%d", t.ID),
		label.Render("status") + string(t.Status),
		label.Render("priority") + string(t.Priority),
		label.Render("visibility") + visibility(t.IsPublic),
	}
	if t.DueDate != nil {
		meta = append(meta, label.Render("due")+formatTime(*t.DueDate))
	}
	if t.CreatedAt != nil {
		meta = append(meta, label.Render("created")+formatTime(*t.CreatedAt))
	}
	if t.UpdatedAt != nil {
		meta = append(meta, label.Render("updated")+formatTime(*t.UpdatedAt))
	}

	sections := []string{
		styleTitle().Render(fmt.Sprintf("Task #%d", t.ID)),
		"",
		d.Render(bodyW, active, render.DefaultPalette()),
		"",
		strings.Join(meta, "\n"),
	}

	if ents := entityLines(d, label); len(ents) > 0 {
		sections = append(sections, "", styleMuted().Render(strings.Repeat(glyphHRule(), bodyW)), strings.Join(ents, "\n"))
	}
	if desc := renderMarkdown(t.Description, bodyW); desc != "" {
		sections = append(sections, "", styleMuted().Render(strings.Repeat(glyphHRule(), bodyW)), desc)
	}

	return lipgloss.NewStyle().Padding(0, 2).Render(strings.Join(sections, "\n"))
}

func entityLines(d *render.Display, label lipgloss.Style) []string {
	byKind := map[annotate.Kind][]string{}
	for _, seg := range d.Targets() {
		byKind[seg.Kind] = append(byKind[seg.Kind], seg.Text)
	}
	var out []string
	p := render.DefaultPalette()
	for _, k := range annotate.Kinds {
		vals := byKind[k]
		if len(vals) == 0 {
			continue
		}
		styled := make([]string, len(vals))
		for i, v := range vals {
			styled[i] = p.Style(k).Render(v)
		}
		out = append(out, label.Render(k.String()+"s")+strings.Join(styled, ", "))
	}
	return out
}

func visibility(public bool) string {
	if public {
		return "public"
	}
	return "private"
}

func formatTime(t time.Time) string {
	return t.Local().Format("2006-01-02 15:04")
}
