package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/baiirun/tasks/internal/api"
	"github.com/baiirun/tasks/internal/config"
	"github.com/baiirun/tasks/internal/manager"
	"github.com/baiirun/tasks/internal/model"
	"github.com/baiirun/tasks/internal/tui"
)

// itemFlags are the fields shared by add and update.
type itemFlags struct {
	desc       string
	status     string
	start      string
	duration   string
	epic       int
	unschedule bool
}

func (f *itemFlags) register(cmd *cobra.Command, withEpic bool) {
	cmd.Flags().StringVarP(&f.desc, "desc", "d", "", "description")
	cmd.Flags().StringVarP(&f.status, "status", "s", "", "status: new, in_progress or done")
	cmd.Flags().StringVar(&f.start, "start", "", "start time (RFC 3339 or \"2006-01-02 15:04\")")
	cmd.Flags().StringVar(&f.duration, "duration", "", "duration (e.g. 90m, 2h)")
	if withEpic {
		cmd.Flags().IntVarP(&f.epic, "epic", "e", 0, "owning epic id")
	}
}

// apply copies every changed flag onto item.
func (f *itemFlags) apply(cmd *cobra.Command, item *model.Item) error {
	if cmd.Flags().Changed("desc") {
		item.Description = f.desc
	}
	if cmd.Flags().Changed("status") {
		s, err := model.ParseStatus(f.status)
		if err != nil {
			return err
		}
		item.Status = s
	}
	if cmd.Flags().Changed("start") {
		t, err := parseTime(f.start)
		if err != nil {
			return err
		}
		item.StartTime = model.TimePtr(t)
	}
	if cmd.Flags().Changed("duration") {
		d, err := parseDuration(f.duration)
		if err != nil {
			return err
		}
		item.Duration = model.DurationPtr(d)
	}
	if f.unschedule {
		item.StartTime, item.Duration = nil, nil
	}
	return nil
}

func newAddCmd() *cobra.Command {
	add := &cobra.Command{
		Use:   "add",
		Short: "Create a task, epic or subtask",
	}

	var taskFlags itemFlags
	taskCmd := &cobra.Command{
		Use:   "task <name>",
		Short: "Create a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			item := model.Item{Name: args[0]}
			if err := taskFlags.apply(cmd, &item); err != nil {
				return err
			}
			return create(cmd, func(m *manager.Manager) (int, error) {
				return m.CreateTask(model.Task{Item: item})
			})
		},
	}
	taskFlags.register(taskCmd, false)

	var epicDesc string
	epicCmd := &cobra.Command{
		Use:   "epic <name>",
		Short: "Create an epic",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return create(cmd, func(m *manager.Manager) (int, error) {
				return m.CreateEpic(model.NewEpic(args[0], epicDesc))
			})
		},
	}
	epicCmd.Flags().StringVarP(&epicDesc, "desc", "d", "", "description")

	var subFlags itemFlags
	subCmd := &cobra.Command{
		Use:   "subtask <name>",
		Short: "Create a subtask under an epic",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			item := model.Item{Name: args[0]}
			if err := subFlags.apply(cmd, &item); err != nil {
				return err
			}
			return create(cmd, func(m *manager.Manager) (int, error) {
				return m.CreateSubtask(model.Subtask{Item: item, EpicID: subFlags.epic})
			})
		},
	}
	subFlags.register(subCmd, true)
	_ = subCmd.MarkFlagRequired("epic")

	add.AddCommand(taskCmd, epicCmd, subCmd)
	return add
}

// create runs fn, then prints the stored item.
func create(cmd *cobra.Command, fn func(m *manager.Manager) (int, error)) error {
	e, err := setup()
	if err != nil {
		return err
	}
	defer e.Close()

	var rec model.Record
	err = e.tr.Update(func(m *manager.Manager) error {
		id, err := fn(m)
		if err != nil {
			return err
		}
		rec, err = m.Lookup(id)
		return err
	})
	if err != nil {
		return err
	}
	if flagJSON {
		return printItem(cmd.OutOrStdout(), rec)
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", formatLine(rec))
	return err
}

func newUpdateCmd() *cobra.Command {
	var flags itemFlags
	var name string
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change fields of an item",
		Long:  `Change fields of an item. Only flags that are given are applied. Epics accept --name and --desc only.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			e, err := setup()
			if err != nil {
				return err
			}
			defer e.Close()

			var rec model.Record
			err = e.tr.Update(func(m *manager.Manager) error {
				current, err := m.Lookup(id)
				if err != nil {
					return err
				}
				if cmd.Flags().Changed("name") {
					current.Name = name
				}
				if err := updateRecord(cmd, m, current, &flags); err != nil {
					return err
				}
				rec, err = m.Lookup(id)
				return err
			})
			if err != nil {
				return err
			}
			if flagJSON {
				return printItem(cmd.OutOrStdout(), rec)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Updated %s\n", formatLine(rec))
			return err
		},
	}
	cmd.Flags().StringVarP(&name, "name", "n", "", "new name")
	flags.register(cmd, true)
	cmd.Flags().BoolVar(&flags.unschedule, "unschedule", false, "clear start time and duration")
	return cmd
}

func updateRecord(cmd *cobra.Command, m *manager.Manager, r model.Record, flags *itemFlags) error {
	switch r.Kind {
	case model.KindEpic:
		e, err := r.Epic()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("desc") {
			e.Description = flags.desc
		}
		_, err = m.UpdateEpic(e)
		return err
	case model.KindSubtask:
		s, err := r.Subtask()
		if err != nil {
			return err
		}
		if err := flags.apply(cmd, &s.Item); err != nil {
			return err
		}
		if cmd.Flags().Changed("epic") {
			s.EpicID = flags.epic
		}
		_, err = m.UpdateSubtask(s)
		return err
	default:
		t, err := r.Task()
		if err != nil {
			return err
		}
		if err := flags.apply(cmd, &t.Item); err != nil {
			return err
		}
		_, err = m.UpdateTask(t)
		return err
	}
}

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show an item and record the view in the history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			e, err := setup()
			if err != nil {
				return err
			}
			defer e.Close()

			var rec model.Record
			err = e.tr.Update(func(m *manager.Manager) error {
				found, err := m.Lookup(id)
				if err != nil {
					return err
				}
				rec, err = get(m, found.Ref())
				return err
			})
			if err != nil {
				return err
			}
			return printItem(cmd.OutOrStdout(), rec)
		},
	}
}

// get reads ref through its kind's getter, recording the access.
func get(m *manager.Manager, ref model.Ref) (model.Record, error) {
	switch ref.Kind {
	case model.KindEpic:
		e, err := m.Epic(ref.ID)
		return e.Record(), err
	case model.KindSubtask:
		s, err := m.Subtask(ref.ID)
		return s.Record(), err
	default:
		t, err := m.Task(ref.ID)
		return t.Record(), err
	}
}

func newListCmd() *cobra.Command {
	var kind string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List items",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var filter model.Kind
			if kind != "" {
				k, err := model.ParseKind(kind)
				if err != nil {
					return err
				}
				filter = k
			}
			return view(cmd, func(m *manager.Manager) ([]model.Record, error) {
				var out []model.Record
				for _, r := range m.Snapshot() {
					if filter == "" || r.Kind == filter {
						out = append(out, r)
					}
				}
				return out, nil
			})
		},
	}
	cmd.Flags().StringVarP(&kind, "kind", "k", "", "only list this kind: task, epic or subtask")
	return cmd
}

func newSubtasksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "subtasks <epic-id>",
		Short: "List the subtasks of an epic",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return view(cmd, func(m *manager.Manager) ([]model.Record, error) {
				subs, err := m.EpicSubtasks(id)
				if err != nil {
					return nil, err
				}
				out := make([]model.Record, 0, len(subs))
				for _, s := range subs {
					out = append(out, s.Record())
				}
				return out, nil
			})
		},
	}
}

func newPrioritizedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "prioritized",
		Short: "List scheduled tasks and subtasks, earliest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return view(cmd, func(m *manager.Manager) ([]model.Record, error) {
				return m.Prioritized(), nil
			})
		},
	}
}

func newHistoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "List viewed items, least recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return view(cmd, func(m *manager.Manager) ([]model.Record, error) {
				return m.History(), nil
			})
		},
	}
}

// view prints the records fn reads without recording history.
func view(cmd *cobra.Command, fn func(m *manager.Manager) ([]model.Record, error)) error {
	e, err := setup()
	if err != nil {
		return err
	}
	defer e.Close()

	var records []model.Record
	err = e.tr.View(func(m *manager.Manager) error {
		var err error
		records, err = fn(m)
		return err
	})
	if err != nil {
		return err
	}
	return printList(cmd.OutOrStdout(), records)
}

func newRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Remove an item; removing an epic removes its subtasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			e, err := setup()
			if err != nil {
				return err
			}
			defer e.Close()

			var removed model.Record
			err = e.tr.Update(func(m *manager.Manager) error {
				r, err := m.Lookup(id)
				if err != nil {
					return err
				}
				removed = r
				switch r.Kind {
				case model.KindEpic:
					return m.RemoveEpic(id)
				case model.KindSubtask:
					return m.RemoveSubtask(id)
				default:
					return m.RemoveTask(id)
				}
			})
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", removed.Ref())
			return err
		},
	}
}

func newClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "clear <task|epic|subtask>",
		Short:     "Remove every item of a kind",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"task", "epic", "subtask"},
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := model.ParseKind(args[0])
			if err != nil {
				return err
			}
			e, err := setup()
			if err != nil {
				return err
			}
			defer e.Close()

			err = e.tr.Update(func(m *manager.Manager) error {
				switch kind {
				case model.KindEpic:
					m.RemoveAllEpics()
				case model.KindSubtask:
					m.RemoveAllSubtasks()
				default:
					m.RemoveAllTasks()
				}
				return nil
			})
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Cleared all %ss\n", args[0])
			return err
		},
	}
}

func newServeCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup()
			if err != nil {
				return err
			}
			defer e.Close()

			if addr == "" {
				addr = e.cfg.Server.Addr
			}
			gin.SetMode(gin.ReleaseMode)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv := api.NewServer(e.tr, e.log, api.WithMetrics(e.cfg.Server.Metrics))
			if err := srv.Serve(ctx, addr, e.cfg.Server.ShutdownTimeout); err != nil {
				return err
			}
			e.log.Info().Msg("stopped")
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, :8080)")
	return cmd
}

func newTUICmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Browse and edit items interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup()
			if err != nil {
				return err
			}
			defer e.Close()
			return tui.Run(e.tr)
		},
	}
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(flagConfig)
			if err != nil {
				return err
			}
			data, err := cfg.Marshal()
			if err != nil {
				return fmt.Errorf("failed to marshal config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}
