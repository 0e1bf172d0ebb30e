package cli

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"tasklist/internal/api"
	"tasklist/internal/devserver"

	"github.com/spf13/cobra"
)

func newServeCmd(app *App) *cobra.Command {
	var addr string
	var seed bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run an in-memory task API for local development (Ctrl-C to stop)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := log.New(cmd.ErrOrStderr(), "devserver: ", log.LstdFlags)

			s := devserver.New(logger)
			if seed {
				s.Seed(api.MockTasks()...)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := devserver.Run(ctx, devserver.NewHTTPServer(addr, s), logger); err != nil {
				return writeErr(cmd, err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", envOr("TASKLIST_SERVE_ADDR", "127.0.0.1:8000"), "Listen address")
	cmd.Flags().BoolVar(&seed, "seed", false, "Start with the two sample tasks")

	return cmd
}
