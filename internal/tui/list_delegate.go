package tui

import (
	"fmt"
	"io"
	"strings"

	"tasklist/internal/model"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	xansi "github.com/charmbracelet/x/ansi"
)

// rowFocus is the active entity of the selected row. It is shared by pointer between
// the app and the delegate, since the list holds its own copy of the delegate.
type rowFocus struct {
	taskID int64
	target int
}

func (f *rowFocus) clear() {
	f.taskID = 0
	f.target = -1
}

// activeFor returns the active target for the task, or -1.
func (f *rowFocus) activeFor(id int64) int {
	if f == nil || f.taskID != id {
		return -1
	}
	return f.target
}

// cycle moves the active target of task id by delta over n targets, wrapping.
func (f *rowFocus) cycle(id int64, n, delta int) {
	if n == 0 {
		f.clear()
		return
	}
	cur := f.activeFor(id)
	switch {
	case cur < 0 && delta > 0:
		cur = 0
	case cur < 0:
		cur = n - 1
	default:
		cur = ((cur+delta)%n + n) % n
	}
	f.taskID = id
	f.target = cur
}

type taskDelegate struct {
	focus *rowFocus
	vp    *viewportSignal
}

func newTaskDelegate(focus *rowFocus, vp *viewportSignal) taskDelegate {
	return taskDelegate{focus: focus, vp: vp}
}

func (d taskDelegate) Height() int  { return 1 }
func (d taskDelegate) Spacing() int { return 0 }
func (d taskDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd {
	return nil
}

func (d taskDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	contentW := m.Width()
	if contentW <= 0 && d.vp != nil {
		contentW = d.vp.Width()
	}
	if contentW < 8 {
		fmt.Fprint(w, "")
		return
	}
	it, ok := item.(taskItem)
	if !ok {
		fmt.Fprint(w, xansi.Truncate(fmt.Sprint(item), contentW, "…"))
		return
	}

	selected := index == m.Index()
	active := -1
	if selected {
		active = d.focus.activeFor(it.task.ID)
	}

	base := lipgloss.NewStyle()
	if selected {
		base = base.Foreground(colorSelectedFg).Background(colorSelectedBg).Bold(true)
	}

	markers := base.Render(" " + rowMarkers(it.task) + " ")
	markersW := xansi.StringWidth(markers)

	text := it.display.Render(0, active, rowPalette(selected))
	if avail := contentW - markersW; xansi.StringWidth(text) > avail {
		text = xansi.Truncate(text, avail, "…")
	}

	line := markers + text
	if pad := contentW - xansi.StringWidth(line); pad > 0 {
		line += base.Render(strings.Repeat(" ", pad))
	}
	fmt.Fprint(w, line)
}

// rowMarkers is the status, priority and visibility glyph triple shown before the
// task text.
func rowMarkers(t model.Task) string {
	status := glyphOpen()
	if t.Status == model.StatusToday {
		status = glyphToday()
	}
	prio := glyphNormalPriority()
	if t.Priority == model.PriorityHigh {
		prio = glyphHighPriority()
	}
	vis := glyphPrivate()
	if t.IsPublic {
		vis = glyphPublic()
	}
	return status + " " + prio + " " + vis
}
