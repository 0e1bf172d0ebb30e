package tui

import (
	"errors"
	"os/exec"
	"runtime"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

type clipboardDoneMsg struct {
	text string
	err  error
}

var errNoClipboard = errors.New("no clipboard command found (install wl-copy, xclip or xsel)")

// clipboardCommands lists the copy commands to try for goos, in preference order.
func clipboardCommands(goos string) [][]string {
	switch goos {
	case "darwin":
		return [][]string{{"pbcopy"}}
	case "windows":
		return [][]string{
			{"cmd", "/c", "clip"},
			{"powershell", "-NoProfile", "-Command", "Set-Clipboard"},
		}
	default:
		// Wayland first, then X11.
		return [][]string{
			{"wl-copy"},
			{"xclip", "-selection", "clipboard"},
			{"xsel", "--clipboard", "--input"},
		}
	}
}

// runClipboard pipes text into argv. Tests replace it.
var runClipboard = func(argv []string, text string) error {
	if _, err := exec.LookPath(argv[0]); err != nil {
		return err
	}
	c := exec.Command(argv[0], argv[1:]...)
	c.Stdin = strings.NewReader(text)
	if err := c.Run(); err != nil {
		return errors.New(argv[0] + ": " + err.Error())
	}
	return nil
}

func copyToClipboard(text string) tea.Cmd {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return func() tea.Msg {
		err := errNoClipboard
		for _, argv := range clipboardCommands(runtime.GOOS) {
			if err = runClipboard(argv, text); err == nil {
				break
			}
		}
		return clipboardDoneMsg{text: text, err: err}
	}
}
