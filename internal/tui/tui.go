// Package tui is the interactive task list: a list shell whose rows show task text
// with live entities, an add/edit form with a styled preview, and a detail view.
package tui

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"tasklist/internal/api"
	"tasklist/internal/config"

	tea "github.com/charmbracelet/bubbletea"
)

// Run starts the TUI on the alternate screen and blocks until the user quits.
//
// The terminal owns stdout, so the standard logger (which the service logs through)
// is sent to TASKLIST_TUI_DEBUG_LOG when set and discarded otherwise.
func Run(ctx context.Context, svc *api.Service, cfg *config.Config) error {
	if path := strings.TrimSpace(os.Getenv("TASKLIST_TUI_DEBUG_LOG")); path != "" {
		f, err := tea.LogToFile(path, "tasklist")
		if err != nil {
			return fmt.Errorf("open tui debug log: %w", err)
		}
		defer f.Close()
	} else {
		prev := log.Writer()
		log.SetOutput(io.Discard)
		defer log.SetOutput(prev)
	}

	if cfg == nil {
		cfg = config.Default()
	}
	applyColorProfilePreference()
	applyThemePreference(cfg.Theme())
	applyGlyphPreference(cfg.Glyphs())

	m := newAppModel(ctx, svc, viewport)
	defer m.close()
	if events, err := svc.Watch(ctx); err == nil {
		m.events = events
	} else {
		log.Printf("live updates off: %v", err)
	}
	_, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}
