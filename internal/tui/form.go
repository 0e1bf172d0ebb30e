package tui

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"tasklist/internal/model"
	"tasklist/internal/render"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	// The counter warns above counterWarnAt and turns red above maxTaskChars. It never
	// blocks input.
	counterWarnAt = 900
	maxTaskChars  = 1000

	formInputHeight = 3
	formMinWidth    = 16
)

type formMode int

const (
	formIdle formMode = iota
	formEditing
)

type formKeyMap struct {
	Submit         key.Binding
	Cancel         key.Binding
	ToggleStatus   key.Binding
	TogglePublic   key.Binding
	TogglePriority key.Binding
	Newline        key.Binding
}

func defaultFormKeyMap() formKeyMap {
	return formKeyMap{
		Submit:         key.NewBinding(key.WithKeys("ctrl+s", "enter"), key.WithHelp("enter", "save")),
		Cancel:         key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
		ToggleStatus:   key.NewBinding(key.WithKeys("alt+s"), key.WithHelp("alt+s", "status")),
		TogglePublic:   key.NewBinding(key.WithKeys("alt+p"), key.WithHelp("alt+p", "public")),
		TogglePriority: key.NewBinding(key.WithKeys("alt+h"), key.WithHelp("alt+h", "priority")),
		Newline:        key.NewBinding(key.WithKeys("alt+enter", "ctrl+j"), key.WithHelp("alt+enter", "newline")),
	}
}

type formSubmitMsg struct {
	taskID   int64 // 0 while adding
	text     string
	status   model.Status
	priority model.Priority
	public   bool
}

type formCancelMsg struct{}

// formLayout is updated by the viewport subscription; the form value is copied on
// every Update, so it holds the layout by pointer.
type formLayout struct {
	width int
}

type formModel struct {
	mode   formMode
	taskID int64

	input    textarea.Model
	status   model.Status
	priority model.Priority
	public   bool

	keys    formKeyMap
	palette render.Palette
	vp      *viewportSignal
	layout  *formLayout
	unsub   func()
}

func newFormModel(vp *viewportSignal) formModel {
	ta := textarea.New()
	ta.Placeholder = "Type to add new task"
	ta.Prompt = ""
	ta.ShowLineNumbers = false
	ta.CharLimit = 0
	ta.SetHeight(formInputHeight)
	ta.KeyMap.InsertNewline.SetKeys("alt+enter", "ctrl+j")

	f := formModel{
		input:    ta,
		status:   model.StatusOpen,
		priority: model.PriorityNormal,
		keys:     defaultFormKeyMap(),
		palette:  render.DefaultPalette(),
		vp:       vp,
		layout:   &formLayout{width: vp.Width()},
	}
	layout := f.layout
	f.unsub = vp.Subscribe(func(s viewportSize) { layout.width = s.Width })
	f.syncWidth()
	return f
}

func (f *formModel) close() {
	if f.unsub != nil {
		f.unsub()
		f.unsub = nil
	}
}

// inputWidth is the width shared by the textarea and the preview beneath it.
func (f formModel) inputWidth() int {
	w := f.layout.width - 2
	if w < formMinWidth {
		w = formMinWidth
	}
	return w
}

// previewWidth is where the textarea wraps: it keeps its last column for the cursor.
func (f formModel) previewWidth() int {
	if w := f.input.Width() - 1; w > 0 {
		return w
	}
	return 1
}

// previewView is the annotated copy of the input, broken into the same lines.
func (f formModel) previewView() string {
	return render.Preview(f.value(), f.previewWidth(), f.palette)
}

func (f *formModel) syncWidth() {
	if w := f.inputWidth(); f.input.Width() != w {
		f.input.SetWidth(w)
	}
}

func (f formModel) active() bool { return f.mode == formEditing }

func (f formModel) adding() bool { return f.taskID == 0 }

func (f *formModel) openAdd() tea.Cmd {
	f.mode = formEditing
	f.taskID = 0
	f.input.Reset()
	f.status = model.StatusOpen
	f.priority = model.PriorityNormal
	f.public = false
	f.syncWidth()
	return f.input.Focus()
}

func (f *formModel) openEdit(t model.Task) tea.Cmd {
	f.mode = formEditing
	f.taskID = t.ID
	f.input.Reset()
	f.input.SetValue(t.Text())
	f.status = t.Status
	if !f.status.Valid() {
		f.status = model.StatusOpen
	}
	f.priority = t.Priority
	if !f.priority.Valid() {
		f.priority = model.PriorityNormal
	}
	f.public = t.IsPublic
	f.syncWidth()
	return f.input.Focus()
}

func (f *formModel) hide() {
	f.mode = formIdle
	f.taskID = 0
	f.input.Reset()
	f.input.Blur()
}

func (f formModel) value() string { return f.input.Value() }

func (f formModel) charCount() int { return utf8.RuneCountInString(f.value()) }

func (f formModel) submitLabel() string {
	switch {
	case strings.TrimSpace(f.value()) == "":
		return "OK"
	case f.adding():
		return "Add"
	default:
		return "Save"
	}
}

func (f formModel) submit() tea.Cmd {
	msg := formSubmitMsg{
		taskID:   f.taskID,
		text:     strings.TrimSpace(f.value()),
		status:   f.status,
		priority: f.priority,
		public:   f.public,
	}
	return func() tea.Msg { return msg }
}

func (f formModel) Update(msg tea.Msg) (formModel, tea.Cmd) {
	f.syncWidth()
	if f.mode != formEditing {
		return f, nil
	}

	if km, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(km, f.keys.Cancel):
			return f, func() tea.Msg { return formCancelMsg{} }
		case key.Matches(km, f.keys.Newline):
			f.input.InsertString("\n")
			return f, nil
		case key.Matches(km, f.keys.Submit):
			return f, f.submit()
		case key.Matches(km, f.keys.ToggleStatus):
			f.status = f.status.Next()
			return f, nil
		case key.Matches(km, f.keys.TogglePublic):
			f.public = !f.public
			return f, nil
		case key.Matches(km, f.keys.TogglePriority):
			f.priority = f.priority.Next()
			return f, nil
		}
	}

	var cmd tea.Cmd
	f.input, cmd = f.input.Update(msg)
	return f, cmd
}

func (f formModel) View() string {
	if f.mode != formEditing {
		return ""
	}
	w := f.inputWidth()

	title := "New task"
	if !f.adding() {
		title = fmt.Sprintf("Edit task #%d", f.taskID)
	}

	inputBox := lipgloss.NewStyle().Background(colorInputBg).Render(f.input.View())

	lines := []string{
		styleTitle().Render(title),
		inputBox,
	}
	if preview := f.previewView(); preview != "" {
		lines = append(lines, preview)
	}
	lines = append(lines,
		f.controlsLine(w),
		styleMuted().Render("enter/ctrl+s: submit   alt+enter: newline   alt+s/alt+p/alt+h: toggles   esc: cancel"),
	)
	return strings.Join(lines, "\n")
}

func (f formModel) controlsLine(w int) string {
	labels := f.vp.showLabels()

	toggle := lipgloss.NewStyle().Padding(0, 1).Foreground(colorSurfaceFg).Background(colorControlBg)
	on := toggle.Foreground(colorAccentFg).Background(colorAccent)

	statusTxt := glyphOpen()
	if f.status == model.StatusToday {
		statusTxt = glyphToday()
	}
	prioTxt := glyphNormalPriority()
	if f.priority == model.PriorityHigh {
		prioTxt = glyphHighPriority()
	}
	pubTxt := glyphPrivate()
	if f.public {
		pubTxt = glyphPublic()
	}
	if labels {
		statusTxt += " " + string(f.status)
		prioTxt += " " + string(f.priority)
		if f.public {
			pubTxt += " public"
		} else {
			pubTxt += " private"
		}
	}

	styleFor := func(set bool) lipgloss.Style {
		if set {
			return on
		}
		return toggle
	}
	toggles := lipgloss.JoinHorizontal(lipgloss.Top,
		styleFor(f.status == model.StatusToday).Render(statusTxt), " ",
		styleFor(f.public).Render(pubTxt), " ",
		styleFor(f.priority == model.PriorityHigh).Render(prioTxt),
	)

	submit := on.Bold(true).Render(f.submitLabel())
	counter := f.counterView()

	gap := w - lipgloss.Width(toggles) - lipgloss.Width(counter) - lipgloss.Width(submit) - 2
	if gap < 1 {
		gap = 1
	}
	return toggles + strings.Repeat(" ", gap) + counter + "  " + submit
}

func (f formModel) counterView() string {
	st := styleMuted()
	switch f.counterLevel() {
	case 2:
		st = lipgloss.NewStyle().Foreground(colorError).Bold(true)
	case 1:
		st = lipgloss.NewStyle().Foreground(colorWarn)
	}
	return st.Render(fmt.Sprintf("%d/%d", f.charCount(), maxTaskChars))
}

// counterLevel is 0 (ok), 1 (warning) or 2 (over the limit).
func (f formModel) counterLevel() int {
	switch n := f.charCount(); {
	case n > maxTaskChars:
		return 2
	case n > counterWarnAt:
		return 1
	default:
		return 0
	}
}
