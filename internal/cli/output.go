package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/agadir/task-manager/internal/core/domain"
)

const (
	formatText = "text"
	formatYAML = "yaml"
)

type printer struct {
	w      io.Writer
	format string
	now    func() time.Time
}

func newPrinter(w io.Writer, format string) printer {
	return printer{w: w, format: format, now: time.Now}
}

func (p printer) yaml(v any) error {
	enc := yaml.NewEncoder(p.w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return enc.Close()
}

// message prints a confirmation line. YAML output stays machine readable, so
// it is skipped there.
func (p printer) message(msg string) error {
	if p.format == formatYAML {
		return nil
	}
	_, err := fmt.Fprintln(p.w, msg)
	return err
}

func (p printer) welcome(u *domain.User) error {
	if p.format == formatYAML {
		return p.yaml(u)
	}
	_, err := fmt.Fprintf(p.w, "signed in as %s <%s>\n", u.Name, u.Email)
	return err
}

func (p printer) user(u *domain.User) error {
	if p.format == formatYAML {
		return p.yaml(u)
	}
	_, err := fmt.Fprintf(p.w, "%s <%s> (id %d)\n", u.Name, u.Email, u.ID)
	return err
}

func (p printer) tasks(tasks []domain.Task) error {
	if p.format == formatYAML {
		return p.yaml(tasks)
	}
	if len(tasks) == 0 {
		return p.message("no tasks")
	}

	now := p.now()
	tw := tabwriter.NewWriter(p.w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tDUE\tTITLE")
	for _, t := range tasks {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", t.ID, t.Status, dueColumn(t, now), t.Title)
	}
	return tw.Flush()
}

func (p printer) task(t domain.Task) error {
	if p.format == formatYAML {
		return p.yaml(t)
	}

	tw := tabwriter.NewWriter(p.w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "id:\t%d\n", t.ID)
	fmt.Fprintf(tw, "title:\t%s\n", t.Title)
	if t.Description != "" {
		fmt.Fprintf(tw, "description:\t%s\n", t.Description)
	}
	fmt.Fprintf(tw, "status:\t%s\n", t.Status)
	fmt.Fprintf(tw, "due:\t%s\n", dueColumn(t, p.now()))
	fmt.Fprintf(tw, "created:\t%s\n", t.CreatedAt.Local().Format("2006-01-02 15:04"))
	return tw.Flush()
}

func (p printer) stats(s *domain.TaskStats) error {
	if s == nil {
		s = &domain.TaskStats{}
	}
	if p.format == formatYAML {
		return p.yaml(s)
	}
	_, err := fmt.Fprintf(p.w, "total:   %d\npending: %d\ndone:    %d\noverdue: %d\n", s.Total, s.Pending, s.Done, s.Overdue)
	return err
}

func dueColumn(t domain.Task, now time.Time) string {
	date := t.DueDate.Local().Format("2006-01-02 15:04")
	if t.IsDone() {
		return date
	}
	return fmt.Sprintf("%s (%s)", date, dueLabel(t, now))
}

// dueLabel describes how far away the due date is in whole days.
func dueLabel(t domain.Task, now time.Time) string {
	days := t.DaysUntil(now)
	switch {
	case days < 0:
		n := -days
		if n == 1 {
			return "overdue by 1 day"
		}
		return fmt.Sprintf("overdue by %d days", n)
	case days == 0:
		return "today"
	case days == 1:
		return "tomorrow"
	default:
		return fmt.Sprintf("in %d days", days)
	}
}
