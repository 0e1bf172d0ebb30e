package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"tasklist/internal/api"
	"tasklist/internal/model"

	"github.com/spf13/cobra"
)

func newTasksCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tasks",
		Aliases: []string{"task"},
		Short:   "Task commands",
	}

	cmd.AddCommand(newTasksListCmd(app))
	cmd.AddCommand(newTasksShowCmd(app))
	cmd.AddCommand(newTasksCreateCmd(app))
	cmd.AddCommand(newTasksUpdateCmd(app))
	cmd.AddCommand(newTasksReplaceCmd(app))
	cmd.AddCommand(newTasksDeleteCmd(app))
	cmd.AddCommand(newTasksBulkDeleteCmd(app))
	cmd.AddCommand(newTasksWatchCmd(app))

	return cmd
}

func newTasksListCmd(app *App) *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks (newest first)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := api.ListOptions{}
			if strings.TrimSpace(status) != "" {
				st, err := parseStatus(status)
				if err != nil {
					return writeErr(cmd, err)
				}
				opts.Status = st
			}
			svc, err := loadService(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			tasks, err := svc.List(cmd.Context(), opts)
			if err != nil {
				return writeErr(cmd, rejectedError(0, err))
			}
			if tasks == nil {
				tasks = []model.Task{}
			}
			return writeOut(cmd, app, envelope(svc, tasks))
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "Only tasks with this status (open|today)")

	return cmd
}

func newTasksShowCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <task-id>",
		Short: "Show a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTaskID(args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			svc, err := loadService(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			t, ok := svc.Get(cmd.Context(), id)
			if !ok {
				return writeErr(cmd, errNotFound("task", args[0]))
			}
			return writeOut(cmd, app, envelope(svc, t))
		},
	}
	return cmd
}

func newTasksCreateCmd(app *App) *cobra.Command {
	var text string
	var description string
	var status string
	var priority string
	var public bool

	cmd := &cobra.Command{
		Use:   "create [text]",
		Short: "Create a task from free text",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if text == "" && len(args) == 1 {
				text = args[0]
			}
			if strings.TrimSpace(text) == "" {
				return writeErr(cmd, errors.New("missing --text"))
			}

			in := model.NewTaskInput(text, time.Now())
			in.Description = strings.TrimSpace(description)
			in.IsPublic = public
			if status != "" {
				st, err := parseStatus(status)
				if err != nil {
					return writeErr(cmd, err)
				}
				in.Status = st
			}
			if priority != "" {
				p, err := parsePriority(priority)
				if err != nil {
					return writeErr(cmd, err)
				}
				in.Priority = p
			}

			svc, err := loadService(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			t, err := svc.Create(cmd.Context(), in)
			if err != nil {
				return writeErr(cmd, rejectedError(0, err))
			}
			return writeOut(cmd, app, envelope(svc, t))
		},
	}

	cmd.Flags().StringVar(&text, "text", "", "Task text; @mentions, #hashtags, emails and links are detected")
	cmd.Flags().StringVar(&description, "description", "", "Longer markdown description")
	cmd.Flags().StringVar(&status, "status", "", "Initial status (open|today; default open)")
	cmd.Flags().StringVar(&priority, "priority", "", "Initial priority (normal|high; default normal)")
	cmd.Flags().BoolVar(&public, "public", false, "Make the task public")

	return cmd
}

func newTasksUpdateCmd(app *App) *cobra.Command {
	var text string
	var description string
	var status string
	var priority string
	var public bool

	cmd := &cobra.Command{
		Use:   "update <task-id>",
		Short: "Update fields of a task (only flags given are sent)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTaskID(args[0])
			if err != nil {
				return writeErr(cmd, err)
			}

			var patch model.TaskPatch
			flags := cmd.Flags()
			if flags.Changed("text") {
				if strings.TrimSpace(text) == "" {
					return writeErr(cmd, fmt.Errorf("--text cannot be empty (use `tasklist tasks delete %d` to remove the task)", id))
				}
				patch = model.TextPatch(text)
			}
			if flags.Changed("description") {
				d := strings.TrimSpace(description)
				patch.Description = &d
			}
			if flags.Changed("status") {
				st, err := parseStatus(status)
				if err != nil {
					return writeErr(cmd, err)
				}
				patch.Status = &st
			}
			if flags.Changed("priority") {
				p, err := parsePriority(priority)
				if err != nil {
					return writeErr(cmd, err)
				}
				patch.Priority = &p
			}
			if flags.Changed("public") {
				v := public
				patch.IsPublic = &v
			}
			if patch.Empty() {
				return writeErr(cmd, errors.New("nothing to update (pass --text, --description, --status, --priority or --public)"))
			}

			svc, err := loadService(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			t, err := svc.Update(cmd.Context(), id, patch)
			if err != nil {
				return writeErr(cmd, rejectedError(id, err))
			}
			return writeOut(cmd, app, envelope(svc, t))
		},
	}

	cmd.Flags().StringVar(&text, "text", "", "New task text")
	cmd.Flags().StringVar(&description, "description", "", "New markdown description")
	cmd.Flags().StringVar(&status, "status", "", "New status (open|today)")
	cmd.Flags().StringVar(&priority, "priority", "", "New priority (normal|high)")
	cmd.Flags().BoolVar(&public, "public", false, "Public visibility (--public=false makes it private)")

	return cmd
}

func newTasksReplaceCmd(app *App) *cobra.Command {
	var text string
	var description string
	var status string
	var priority string
	var public bool

	cmd := &cobra.Command{
		Use:   "replace <task-id> [text]",
		Short: "Overwrite every field of a task (unset flags take their defaults)",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTaskID(args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			if text == "" && len(args) == 2 {
				text = args[1]
			}
			if strings.TrimSpace(text) == "" {
				return writeErr(cmd, errors.New("missing --text"))
			}

			in := model.NewTaskInput(text, time.Now())
			in.Description = strings.TrimSpace(description)
			in.IsPublic = public
			if status != "" {
				if in.Status, err = parseStatus(status); err != nil {
					return writeErr(cmd, err)
				}
			}
			if priority != "" {
				if in.Priority, err = parsePriority(priority); err != nil {
					return writeErr(cmd, err)
				}
			}

			svc, err := loadService(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			t, err := svc.Replace(cmd.Context(), id, in)
			if err != nil {
				return writeErr(cmd, rejectedError(id, err))
			}
			return writeOut(cmd, app, envelope(svc, t))
		},
	}

	cmd.Flags().StringVar(&text, "text", "", "Task text")
	cmd.Flags().StringVar(&description, "description", "", "Markdown description (empty clears it)")
	cmd.Flags().StringVar(&status, "status", "", "Status (open|today; default open)")
	cmd.Flags().StringVar(&priority, "priority", "", "Priority (normal|high; default normal)")
	cmd.Flags().BoolVar(&public, "public", false, "Make the task public")

	return cmd
}

func newTasksDeleteCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <task-id>",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTaskID(args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			svc, err := loadService(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := svc.Delete(cmd.Context(), id); err != nil {
				return writeErr(cmd, rejectedError(id, err))
			}
			return writeOut(cmd, app, envelope(svc, map[string]any{"id": id, "deleted": true}))
		},
	}
	return cmd
}

func newTasksBulkDeleteCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bulk-delete <task-id>...",
		Short: "Delete several tasks in one request",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]int64, 0, len(args))
			for _, a := range args {
				id, err := parseTaskID(a)
				if err != nil {
					return writeErr(cmd, err)
				}
				ids = append(ids, id)
			}
			svc, err := loadService(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := svc.BulkDelete(cmd.Context(), ids); err != nil {
				return writeErr(cmd, rejectedError(0, err))
			}
			return writeOut(cmd, app, envelope(svc, map[string]any{"ids": ids, "deleted": true}))
		},
	}
	return cmd
}

func parseTaskID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid task id: %q", s)
	}
	return id, nil
}

func parseStatus(s string) (model.Status, error) {
	st := model.Status(strings.ToLower(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", fmt.Errorf("invalid status %q (want open|today)", s)
	}
	return st, nil
}

func parsePriority(s string) (model.Priority, error) {
	p := model.Priority(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", fmt.Errorf("invalid priority %q (want normal|high)", s)
	}
	return p, nil
}
