package cli

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/agadir/task-manager/internal/core/domain"
)

func TestDueLabel(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		due  time.Time
		want string
	}{
		{now.AddDate(0, 0, -3), "overdue by 3 days"},
		{now.AddDate(0, 0, -1), "overdue by 1 day"},
		{now.Add(-2 * time.Hour), "today"},
		{now.Add(5 * time.Hour), "today"},
		{now.Add(30 * time.Hour), "tomorrow"},
		{now.AddDate(0, 0, 4), "in 4 days"},
	}
	for _, tc := range cases {
		got := dueLabel(domain.Task{DueDate: tc.due}, now)
		if got != tc.want {
			t.Errorf("due=%v: expected %q, got %q", tc.due, tc.want, got)
		}
	}
}

func TestParseDue(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	got, err := parseDue("2026-03-12", now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := time.Date(2026, 3, 12, 23, 59, 0, 0, time.UTC); !got.Equal(want) {
		t.Errorf("bare date: expected %v, got %v", want, got)
	}

	got, err = parseDue("2026-03-12 08:30", now)
	if err != nil || !got.Equal(time.Date(2026, 3, 12, 8, 30, 0, 0, time.UTC)) {
		t.Errorf("date and time: got %v, %v", got, err)
	}

	got, err = parseDue("2026-03-12T08:30:00+02:00", now)
	if err != nil || !got.Equal(time.Date(2026, 3, 12, 6, 30, 0, 0, time.UTC)) {
		t.Errorf("rfc3339: got %v, %v", got, err)
	}

	if _, err := parseDue("next week", now); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}

func TestPrinter_TasksText(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.Local)
	var buf bytes.Buffer
	p := printer{w: &buf, format: formatText, now: func() time.Time { return now }}

	err := p.tasks([]domain.Task{
		{ID: 2, Title: "Call mum", Status: domain.StatusPending, DueDate: now.Add(30 * time.Hour)},
		{ID: 1, Title: "Buy milk", Status: domain.StatusDone, DueDate: now.AddDate(0, 0, -2)},
	})
	if err != nil {
		t.Fatalf("print: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "Call mum") || !strings.Contains(out, "(tomorrow)") {
		t.Errorf("missing pending row: %q", out)
	}
	if strings.Contains(out, "overdue") {
		t.Errorf("done tasks are never shown as overdue: %q", out)
	}
}

func TestPrinter_MessageSilentInYAML(t *testing.T) {
	var buf bytes.Buffer
	p := newPrinter(&buf, formatYAML)
	if err := p.message("signed out"); err != nil {
		t.Fatal(err)
	}
	if buf.Len() != 0 {
		t.Errorf("expected no output, got %q", buf.String())
	}
}
