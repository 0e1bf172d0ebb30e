package cli

import (
	"tasklist/internal/config"

	"github.com/spf13/cobra"
)

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change ~/.tasklist/config.json",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration (file, env and flags applied)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, envelope(nil, configView(cfg)))
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set one key (api-url, timeout, tui.glyphs, tui.theme)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			// Flags and env must not leak into the saved file.
			cfg, err := config.Load()
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := cfg.Set(args[0], args[1]); err != nil {
				return writeErr(cmd, err)
			}
			if err := config.Save(cfg); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, envelope(nil, configView(cfg)))
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the config file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := config.Path()
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, envelope(nil, map[string]any{"path": p}))
		},
	})

	return cmd
}

// configView keys the settings by the names `config set` accepts.
func configView(cfg *config.Config) map[string]any {
	glyphs := cfg.Glyphs()
	if glyphs == "" {
		glyphs = "unicode"
	}
	theme := cfg.Theme()
	if theme == "" {
		theme = "auto"
	}
	return map[string]any{
		"api-url":    cfg.APIURL,
		"timeout":    cfg.Timeout().String(),
		"tui.glyphs": glyphs,
		"tui.theme":  theme,
	}
}
