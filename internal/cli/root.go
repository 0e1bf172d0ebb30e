package cli

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"tasklist/internal/api"
	"tasklist/internal/config"
	"tasklist/internal/format"
	"tasklist/internal/tui"

	"github.com/spf13/cobra"
)

type App struct {
	APIURL     string
	Timeout    string
	Format     string
	PrettyJSON bool
	Offline    bool
}

func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "tasklist",
		Short:        "Task list CLI + TUI with live @mentions, #hashtags, emails and links",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Start the interactive TUI
  tasklist

  # Scriptable commands
  tasklist tasks list --status today
  tasklist tasks create --text "Call @ana about #launch"

  # Direct task lookup (shortcut for: tasklist tasks show <id>)
  tasklist 42

  # Local API for development
  tasklist serve --seed
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			// No subcommand => interactive TUI.
			if cmd.HasSubCommands() && len(args) == 0 {
				return runTUI(cmd, app)
			}
			return cmd.Help()
		},
	}

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if _, err := format.Normalize(app.Format); err != nil {
			return writeErr(cmd, err)
		}
		return nil
	}

	cmd.PersistentFlags().StringVar(&app.APIURL, "api-url", envOr("TASKLIST_API_URL", ""), "Task API base URL (default from config, else "+config.DefaultAPIURL+")")
	cmd.PersistentFlags().StringVar(&app.Timeout, "timeout", envOr("TASKLIST_TIMEOUT", ""), "Per-request timeout, e.g. 5s or 5 (default from config)")
	cmd.PersistentFlags().StringVar(&app.Format, "format", envOr("TASKLIST_FORMAT", "json"), "Output format (json|edn)")
	cmd.PersistentFlags().BoolVar(&app.PrettyJSON, "pretty", false, "Pretty-print output")
	cmd.PersistentFlags().BoolVar(&app.Offline, "offline", false, "Do not contact the API; answer from local mock data")

	cmd.AddCommand(newTasksCmd(app))
	cmd.AddCommand(newAnnotateCmd(app))
	cmd.AddCommand(newServeCmd(app))
	cmd.AddCommand(newConfigCmd(app))

	return cmd
}

func runTUI(cmd *cobra.Command, app *App) error {
	cfg, err := loadConfig(app)
	if err != nil {
		return writeErr(cmd, err)
	}
	svc := newService(app, cfg, log.Default())
	return tui.Run(cmd.Context(), svc, cfg)
}

// loadConfig layers config.json over the defaults, then the env/flag values on top.
func loadConfig(app *App) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if v := strings.TrimSpace(app.APIURL); v != "" {
		cfg.APIURL = strings.TrimRight(v, "/")
	}
	if v := strings.TrimSpace(app.Timeout); v != "" {
		d, err := config.ParseTimeout(v)
		if err != nil {
			return nil, err
		}
		cfg.TimeoutSeconds = int(d / time.Second)
	}
	return cfg, nil
}

func newService(app *App, cfg *config.Config, logger *log.Logger) *api.Service {
	if app.Offline {
		return api.NewService(nil, logger)
	}
	return api.NewService(api.NewClient(cfg.APIURL, cfg.Timeout()), logger)
}

// loadService builds the service for scriptable commands. Fallback warnings go to
// stderr so stdout stays a single document.
func loadService(cmd *cobra.Command, app *App) (*api.Service, error) {
	cfg, err := loadConfig(app)
	if err != nil {
		return nil, err
	}
	logger := log.New(cmd.ErrOrStderr(), "tasklist: ", 0)
	return newService(app, cfg, logger), nil
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

// envelope wraps data, marking results the local fallback produced.
func envelope(svc *api.Service, data any) format.Envelope {
	env := format.Envelope{Data: data}
	if svc != nil && svc.Offline() {
		env.Hints = map[string]any{"offline": true}
	}
	return env
}

func writeOut(cmd *cobra.Command, app *App, v any) error {
	return format.Write(cmd.OutOrStdout(), v, app.Format, app.PrettyJSON)
}

func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
	return err
}
