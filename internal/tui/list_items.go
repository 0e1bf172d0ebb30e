package tui

import (
	"strings"

	"tasklist/internal/annotate"
	"tasklist/internal/model"
	"tasklist/internal/render"

	"github.com/charmbracelet/bubbles/list"
)

type taskItem struct {
	task    model.Task
	display *render.Display
}

// newTaskItem annotates the task text once. Rows are a single line, so newlines are
// flattened to spaces first; offsets and entity boundaries are unchanged by that.
func newTaskItem(t model.Task) taskItem {
	return taskItem{task: t, display: render.NewDisplay(flattenLines(t.Text()))}
}

func flattenLines(s string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(s)
}

func (i taskItem) FilterValue() string { return i.task.Text() }
func (i taskItem) Title() string       { return i.task.Text() }
func (i taskItem) Description() string {
	return string(i.task.Status) + " " + string(i.task.Priority)
}

// hasEntity reports whether the task text carries the mention or hashtag value
// (sigil included), ignoring case.
func (i taskItem) hasEntity(value string) bool {
	for _, seg := range i.display.Targets() {
		if (seg.Kind == annotate.Mention || seg.Kind == annotate.Hashtag) && strings.EqualFold(seg.Text, value) {
			return true
		}
	}
	return false
}

// taskItems converts tasks to list items, keeping only those that carry filter when
// it is set.
func taskItems(tasks []model.Task, filter string) []list.Item {
	items := make([]list.Item, 0, len(tasks))
	for _, t := range tasks {
		it := newTaskItem(t)
		if filter != "" && !it.hasEntity(filter) {
			continue
		}
		items = append(items, it)
	}
	return items
}

func newList(title string, items []list.Item, d list.ItemDelegate) list.Model {
	l := list.New(items, d, 0, 0)
	l.Title = title
	// The app renders its own header and footer, so keep list chrome minimal.
	l.SetShowTitle(false)
	l.SetShowHelp(false)
	l.SetShowStatusBar(false)
	l.SetShowPagination(false)
	// Entity filters replace the list's fuzzy filter.
	l.SetFilteringEnabled(false)
	l.SetStatusBarItemName("task", "tasks")
	// Bubble list defaults to quitting on ESC; here ESC clears focus and filters.
	l.KeyMap.Quit.SetKeys("q")
	// Emacs-style navigation aliases.
	cursorUpKeys := append([]string{}, l.KeyMap.CursorUp.Keys()...)
	cursorUpKeys = append(cursorUpKeys, "ctrl+p")
	l.KeyMap.CursorUp.SetKeys(cursorUpKeys...)

	cursorDownKeys := append([]string{}, l.KeyMap.CursorDown.Keys()...)
	cursorDownKeys = append(cursorDownKeys, "ctrl+n")
	l.KeyMap.CursorDown.SetKeys(cursorDownKeys...)
	return l
}

func selectedTask(l list.Model) (taskItem, bool) {
	it, ok := l.SelectedItem().(taskItem)
	return it, ok
}

func selectTaskByID(l *list.Model, id int64) bool {
	for i, it := range l.Items() {
		if ti, ok := it.(taskItem); ok && ti.task.ID == id {
			l.Select(i)
			return true
		}
	}
	return false
}

// filterKind tells which entity style a list filter value is shown in.
func filterKind(value string) annotate.Kind {
	if strings.HasPrefix(value, "#") {
		return annotate.Hashtag
	}
	return annotate.Mention
}
