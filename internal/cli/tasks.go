package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/agadir/task-manager/internal/core/domain"
	"github.com/agadir/task-manager/internal/infrastructure/queue"
)

const batchWorkers = 4

func newTasksCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "List and manage tasks",
	}
	list := newTasksListCmd(rt)
	cmd.RunE = list.RunE
	cmd.Flags().AddFlagSet(list.Flags())

	cmd.AddCommand(
		list,
		newTasksShowCmd(rt),
		newTasksAddCmd(rt),
		newTasksUpdateCmd(rt),
		newTasksDoneCmd(rt),
		newTasksRemoveCmd(rt),
	)
	return cmd
}

func newTasksListCmd(rt *runtime) *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := rt.requireSession(); err != nil {
				return err
			}
			filter, err := domain.ParseFilter(status)
			if err != nil {
				return err
			}
			if err := rt.app.Tasks.SetFilter(cmd.Context(), filter); err != nil {
				return err
			}
			return rt.printer(cmd).tasks(rt.app.Tasks.Tasks())
		},
	}
	cmd.Flags().StringVar(&status, "status", string(domain.FilterAll), "Filter: all, pending or done")
	return cmd
}

func newTasksShowCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTaskID(args[0])
			if err != nil {
				return err
			}
			if err := rt.requireSession(); err != nil {
				return err
			}
			task, err := rt.app.Tasks.GetTask(cmd.Context(), id)
			if err != nil {
				return err
			}
			return rt.printer(cmd).task(*task)
		},
	}
}

func newTasksAddCmd(rt *runtime) *cobra.Command {
	var (
		in  domain.NewTask
		due string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a task",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := rt.requireSession(); err != nil {
				return err
			}
			dueDate, err := parseDue(due, time.Now())
			if err != nil {
				return err
			}
			in.DueDate = dueDate

			task, err := rt.app.Tasks.CreateTask(cmd.Context(), in)
			if err != nil {
				return err
			}
			return rt.printer(cmd).task(*task)
		},
	}
	cmd.Flags().StringVar(&in.Title, "title", "", "Task title")
	cmd.Flags().StringVar(&in.Description, "description", "", "Optional description")
	cmd.Flags().StringVar(&due, "due", "", "Due date: YYYY-MM-DD, 'YYYY-MM-DD HH:MM' or RFC 3339")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("due")
	return cmd
}

func newTasksUpdateCmd(rt *runtime) *cobra.Command {
	var title, description, due, status string

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change fields of a task",
		Long:  "Only the flags given are sent; other fields keep their current value.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTaskID(args[0])
			if err != nil {
				return err
			}
			if err := rt.requireSession(); err != nil {
				return err
			}

			var in domain.TaskUpdate
			flags := cmd.Flags()
			if flags.Changed("title") {
				in.Title = &title
			}
			if flags.Changed("description") {
				in.Description = &description
			}
			if flags.Changed("due") {
				d, err := parseDue(due, time.Now())
				if err != nil {
					return err
				}
				in.DueDate = &d
			}
			if flags.Changed("status") {
				s := domain.TaskStatus(strings.ToLower(status))
				in.Status = &s
			}

			task, err := rt.app.Tasks.UpdateTask(cmd.Context(), id, in)
			if err != nil {
				return err
			}
			return rt.printer(cmd).task(*task)
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "New title")
	cmd.Flags().StringVar(&description, "description", "", "New description")
	cmd.Flags().StringVar(&due, "due", "", "New due date")
	cmd.Flags().StringVar(&status, "status", "", "New status: pending or done")
	return cmd
}

func newTasksDoneCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "done <id>...",
		Short: "Mark tasks as done",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseTaskIDs(args)
			if err != nil {
				return err
			}
			if err := rt.requireSession(); err != nil {
				return err
			}
			if len(ids) == 1 {
				task, err := rt.app.Tasks.MarkAsDone(cmd.Context(), ids[0])
				if err != nil {
					return err
				}
				return rt.printer(cmd).task(*task)
			}
			return rt.batch(cmd, ids, "done", func(ctx context.Context, id int64) error {
				_, err := rt.app.Tasks.MarkAsDone(ctx, id)
				return err
			})
		},
	}
}

func newTasksRemoveCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>...",
		Aliases: []string{"delete"},
		Short:   "Delete tasks",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseTaskIDs(args)
			if err != nil {
				return err
			}
			if err := rt.requireSession(); err != nil {
				return err
			}
			return rt.batch(cmd, ids, "deleted", rt.app.Tasks.DeleteTask)
		},
	}
}

// batch runs op for every id on the dispatcher and reports each outcome.
// The returned error joins the individual failures.
func (rt *runtime) batch(cmd *cobra.Command, ids []int64, verb string, op func(ctx context.Context, id int64) error) error {
	jobs := make([]queue.Job, len(ids))
	for i, id := range ids {
		jobs[i] = queue.Job{TaskID: id, Run: func(ctx context.Context) error { return op(ctx, id) }}
	}

	p := rt.printer(cmd)
	var errs []error
	for _, r := range queue.NewDispatcher(batchWorkers, rt.app.Log).Run(cmd.Context(), jobs) {
		if r.Err != nil {
			errs = append(errs, fmt.Errorf("task %d: %w", r.TaskID, r.Err))
			continue
		}
		if err := p.message(fmt.Sprintf("task %d %s", r.TaskID, verb)); err != nil {
			return err
		}
	}
	return errors.Join(errs...)
}

func newStatsCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show task counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := rt.requireSession(); err != nil {
				return err
			}
			if err := rt.app.Tasks.LoadStats(cmd.Context()); err != nil {
				return err
			}
			return rt.printer(cmd).stats(rt.app.Tasks.Stats())
		},
	}
}

func parseTaskIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, a := range args {
		id, err := parseTaskID(a)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func parseTaskID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid task id %q", domain.ErrValidation, s)
	}
	return id, nil
}

var dueLayouts = []string{time.RFC3339, "2006-01-02 15:04", "2006-01-02T15:04"}

// parseDue reads a due date in local time. A bare date means the end of
// that day.
func parseDue(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	loc := now.Location()
	for _, layout := range dueLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	if d, err := time.ParseInLocation(time.DateOnly, s, loc); err == nil {
		return time.Date(d.Year(), d.Month(), d.Day(), 23, 59, 0, 0, loc), nil
	}
	return time.Time{}, fmt.Errorf("%w: cannot read due date %q (want YYYY-MM-DD, 'YYYY-MM-DD HH:MM' or RFC 3339)", domain.ErrValidation, s)
}
