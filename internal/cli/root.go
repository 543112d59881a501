package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"daybook/internal/config"
	"daybook/internal/day"
	"daybook/internal/daystore"
	"daybook/internal/export"
	"daybook/internal/notes"
	"daybook/internal/reminder"
	"daybook/internal/tasks"
	"daybook/internal/ui"
)

// lastKey sorts after every real date key.
const lastKey day.Key = "9999-12-31"

var errAmbiguousID = errors.New("ambiguous todo id")

type rootOptions struct {
	configPath string
	date       string
	app        *App
}

// NewRootCommand builds the daybook command tree. Running it without a
// subcommand starts the TUI.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "daybook",
		Short:         "Calendar with per-day notes, todos and reminders",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			path := opts.configPath
			if path == "" {
				path = config.ResolveConfigPath()
			}
			app, err := Bootstrap(path)
			if err != nil {
				return err
			}
			opts.app = app
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if opts.app == nil {
				return nil
			}
			return opts.app.Close()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			app := opts.app
			from := day.KeyOf(time.Now())
			n, err := app.Planner.Rearm(cmd.Context(), from, lastKey)
			if err != nil {
				app.Log.Warnw("could not re-arm every reminder", "error", err)
			}
			app.Log.Infow("reminders armed", "count", n)
			return ui.Run(cmd.Context(), app.Planner, app.Config, app.Alerts)
		},
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default $DAYBOOK_CONFIG or the user config dir)")
	root.PersistentFlags().StringVarP(&opts.date, "date", "d", "", "day to act on, YYYY-MM-DD (default today)")

	root.AddCommand(
		newShowCommand(opts),
		newTodoCommand(opts),
		newNoteCommand(opts),
		newExportCommand(opts),
		newImportCommand(opts),
		newWatchCommand(opts),
	)
	return root
}

// Execute runs the command tree with a context cancelled on SIGINT/SIGTERM.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return NewRootCommand().ExecuteContext(ctx)
}

func (o *rootOptions) key() (day.Key, error) {
	if o.date == "" {
		return day.KeyOf(time.Now()), nil
	}
	return day.ParseKey(o.date)
}

func newShowCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the note and todos of a day",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := opts.key()
			if err != nil {
				return err
			}
			rec, err := opts.app.Planner.Day(cmd.Context(), key)
			if err != nil {
				return err
			}
			printDay(cmd.OutOrStdout(), rec, opts.app.Planner.Location())
			return nil
		},
	}
}

func newTodoCommand(opts *rootOptions) *cobra.Command {
	todoCmd := &cobra.Command{
		Use:   "todo",
		Short: "Manage the todos of a day",
	}

	todoCmd.AddCommand(&cobra.Command{
		Use:   "add TEXT...",
		Short: "Add a todo",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := opts.key()
			if err != nil {
				return err
			}
			text := strings.Join(args, " ")
			if strings.TrimSpace(text) == "" {
				return errors.New("todo text cannot be empty")
			}
			rec, err := opts.app.Planner.AddTodo(cmd.Context(), key, text)
			if err != nil {
				return err
			}
			added := rec.Todos[len(rec.Todos)-1]
			fmt.Fprintf(cmd.OutOrStdout(), "added %s %s\n", shortID(added.ID), added.Text)
			return nil
		},
	})

	todoCmd.AddCommand(&cobra.Command{
		Use:     "done ID",
		Aliases: []string{"toggle"},
		Short:   "Toggle a todo between done and open",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withTodo(cmd, args[0], func(ctx context.Context, key day.Key, todo day.Todo) error {
				rec, err := opts.app.Planner.ToggleTodo(ctx, key, todo.ID)
				if err != nil {
					return err
				}
				state := "open"
				if rec.Todos[rec.FindTodo(todo.ID)].Completed {
					state = "done"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", state, todo.Text)
				return nil
			})
		},
	})

	todoCmd.AddCommand(&cobra.Command{
		Use:     "rm ID",
		Aliases: []string{"delete"},
		Short:   "Delete a todo",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withTodo(cmd, args[0], func(ctx context.Context, key day.Key, todo day.Todo) error {
				if _, err := opts.app.Planner.DeleteTodo(ctx, key, todo.ID); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", todo.Text)
				return nil
			})
		},
	})

	todoCmd.AddCommand(&cobra.Command{
		Use:   "remind ID [HH:MM]",
		Short: "Attach a reminder to a todo",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			clock := opts.app.Config.ReminderDefault
			if len(args) == 2 {
				clock = args[1]
			}
			return opts.withTodo(cmd, args[0], func(ctx context.Context, key day.Key, todo day.Todo) error {
				_, at, err := opts.app.Planner.SetReminder(ctx, key, todo.ID, clock)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "reminder for %q at %s\n", todo.Text, at.Format("2006-01-02 15:04"))
				return nil
			})
		},
	})
	return todoCmd
}

func newNoteCommand(opts *rootOptions) *cobra.Command {
	noteCmd := &cobra.Command{
		Use:   "note",
		Short: "Read or replace the note of a day",
	}
	noteCmd.AddCommand(&cobra.Command{
		Use:   "set [TEXT...]",
		Short: "Replace the day's note; reads stdin when no text is given",
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := opts.key()
			if err != nil {
				return err
			}
			content := strings.Join(args, " ")
			if len(args) == 0 {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return err
				}
				content = strings.TrimRight(string(data), "\n")
			}
			if _, err := opts.app.Planner.SetNote(cmd.Context(), key, content); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "note saved for %s\n", key)
			return nil
		},
	})
	noteCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the day's note",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := opts.key()
			if err != nil {
				return err
			}
			rec, err := opts.app.Planner.Day(cmd.Context(), key)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), rec.Note())
			return nil
		},
	})
	return noteCmd
}

func newExportCommand(opts *rootOptions) *cobra.Command {
	var from, to string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write stored days as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fromKey, err := parseBound(from, "0000-01-01")
			if err != nil {
				return err
			}
			toKey, err := parseBound(to, string(lastKey))
			if err != nil {
				return err
			}
			recs, err := opts.app.Planner.Range(cmd.Context(), fromKey, toKey)
			if err != nil {
				return err
			}
			return export.WriteYAML(cmd.OutOrStdout(), recs)
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "first day, YYYY-MM-DD")
	cmd.Flags().StringVar(&to, "to", "", "last day, YYYY-MM-DD")
	return cmd
}

func newImportCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Load days from a YAML export, replacing what is stored for them",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			recs, err := export.ReadYAML(f)
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}
			if err := opts.app.Planner.Import(cmd.Context(), recs); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d days\n", len(recs))
			return nil
		},
	}
}

func newWatchCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Stay in the foreground and deliver reminders as they come due",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := opts.app
			n, err := app.Planner.Rearm(cmd.Context(), day.KeyOf(time.Now()), lastKey)
			if errors.Is(err, daystore.ErrMalformedRecord) {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
			} else if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "watching %d reminders, ctrl+c to stop\n", n)
			alerter := reminder.WriterAlerter{W: cmd.OutOrStdout()}
			for {
				select {
				case <-cmd.Context().Done():
					return nil
				case msg := <-app.Alerts:
					alerter.Alert(msg)
				}
			}
		},
	}
}

// withTodo resolves an id prefix on the selected day and runs fn with the
// matching todo.
func (o *rootOptions) withTodo(cmd *cobra.Command, prefix string, fn func(context.Context, day.Key, day.Todo) error) error {
	key, err := o.key()
	if err != nil {
		return err
	}
	rec, err := o.app.Planner.Day(cmd.Context(), key)
	if err != nil {
		return err
	}
	todo, err := findByPrefix(rec, prefix)
	if err != nil {
		return err
	}
	return fn(cmd.Context(), key, todo)
}

func findByPrefix(rec day.Record, prefix string) (day.Todo, error) {
	var found []day.Todo
	for _, t := range rec.Todos {
		if t.ID == prefix {
			return t, nil
		}
		if strings.HasPrefix(t.ID, prefix) {
			found = append(found, t)
		}
	}
	switch len(found) {
	case 0:
		return day.Todo{}, fmt.Errorf("%w: %s on %s", tasks.ErrTodoNotFound, prefix, rec.DateKey)
	case 1:
		return found[0], nil
	default:
		return day.Todo{}, fmt.Errorf("%w: %s matches %d todos", errAmbiguousID, prefix, len(found))
	}
}

func parseBound(s, fallback string) (day.Key, error) {
	if s == "" {
		return day.Key(fallback), nil
	}
	return day.ParseKey(s)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func printDay(w io.Writer, rec day.Record, loc *time.Location) {
	fmt.Fprintf(w, "%s\n\n", rec.DateKey)
	if note := rec.Note(); note != "" {
		fmt.Fprintf(w, "Note: %s\n\n", notes.Preview(note, 72))
	} else {
		fmt.Fprintln(w, "No notes for this day yet.")
		fmt.Fprintln(w)
	}
	if len(rec.Todos) == 0 {
		fmt.Fprintln(w, "No tasks for this day yet.")
		return
	}
	for _, t := range rec.Todos {
		box := "[ ]"
		if t.Completed {
			box = "[x]"
		}
		line := fmt.Sprintf("%s %s %s", shortID(t.ID), box, t.Text)
		if t.Reminder != nil {
			line += " (reminder " + tasks.FormatClock(t.Reminder.In(loc)) + ")"
		}
		fmt.Fprintln(w, line)
	}
}
