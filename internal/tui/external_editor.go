package tui

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"tasklist/internal/model"

	tea "github.com/charmbracelet/bubbletea"
)

type editorDoneMsg struct {
	err error
}

// descriptionEdit tracks the temp file handed to $EDITOR for one task's description.
type descriptionEdit struct {
	taskID int64
	path   string
	before string
}

// execEditor suspends the program while the editor owns the terminal. Tests replace it.
var execEditor = func(c *exec.Cmd, fn tea.ExecCallback) tea.Cmd {
	return tea.ExecProcess(c, fn)
}

func externalEditorName() string {
	if v := strings.TrimSpace(os.Getenv("VISUAL")); v != "" {
		return v
	}
	if v := strings.TrimSpace(os.Getenv("EDITOR")); v != "" {
		return v
	}
	return "vi"
}

func (m *appModel) editDescription(t model.Task) tea.Cmd {
	args := splitShellWords(externalEditorName())
	if len(args) == 0 {
		args = []string{"vi"}
	}

	f, err := os.CreateTemp("", "tasklist-description-*.md")
	if err != nil {
		m.flash = "Editor failed: " + err.Error()
		return nil
	}
	path := f.Name()
	_, err = f.WriteString(t.Description)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		m.flash = "Editor failed: " + err.Error()
		return nil
	}

	m.editor = descriptionEdit{taskID: t.ID, path: path, before: t.Description}
	c := exec.Command(args[0], append(args[1:], path)...)
	return execEditor(c, func(err error) tea.Msg {
		return editorDoneMsg{err: err}
	})
}

// finishDescriptionEdit saves the edited description when it changed.
func (m *appModel) finishDescriptionEdit(msg editorDoneMsg) tea.Cmd {
	ed := m.editor
	m.editor = descriptionEdit{}
	if ed.path == "" {
		return nil
	}
	defer func() { _ = os.Remove(ed.path) }()

	if msg.err != nil {
		m.flash = "Editor failed: " + msg.err.Error()
		return nil
	}
	b, err := os.ReadFile(ed.path)
	if err != nil {
		m.flash = "Editor read failed: " + err.Error()
		return nil
	}

	after := strings.TrimSpace(string(b))
	if after == strings.TrimSpace(ed.before) {
		m.flash = fmt.Sprintf("No changes from %s", externalEditorName())
		return nil
	}
	return m.updateTask(ed.taskID, model.TaskPatch{Description: &after})
}
