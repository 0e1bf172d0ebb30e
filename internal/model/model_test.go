package model

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestTaskText_PrefersRawText(t *testing.T) {
	t.Parallel()

	if got := (Task{Title: "title", RawText: "raw"}).Text(); got != "raw" {
		t.Fatalf("expected raw text, got %q", got)
	}
	if got := (Task{Title: "title"}).Text(); got != "title" {
		t.Fatalf("expected title fallback, got %q", got)
	}
}

func TestNewTaskInput_Defaults(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	in := NewTaskInput("  Test task @team \n", now)
	if in.Title != "Test task @team" || in.RawText != in.Title {
		t.Fatalf("expected trimmed title/raw_text, got %#v", in)
	}
	if in.Status != StatusOpen || in.Priority != PriorityNormal || in.IsPublic {
		t.Fatalf("unexpected defaults: %#v", in)
	}
	if in.DueDate == nil || !in.DueDate.Equal(now) {
		t.Fatalf("expected due date %v, got %v", now, in.DueDate)
	}
}

func TestTaskPatch_ApplyAndJSON(t *testing.T) {
	t.Parallel()

	base := Task{ID: 7, Title: "old", RawText: "old", Status: StatusOpen, Priority: PriorityNormal}
	p := TextPatch(" new #tag ")
	st := StatusToday
	p.Status = &st

	got := p.Apply(base)
	if got.ID != 7 || got.Title != "new #tag" || got.RawText != "new #tag" || got.Status != StatusToday {
		t.Fatalf("unexpected patched task: %#v", got)
	}
	if got.Priority != PriorityNormal {
		t.Fatalf("unset fields must not change, got priority %q", got.Priority)
	}

	b, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(b)
	if strings.Contains(s, "priority") || strings.Contains(s, "is_public") {
		t.Fatalf("patch JSON must omit unset fields: %s", s)
	}
	if (TaskPatch{}).Empty() != true || p.Empty() {
		t.Fatalf("unexpected Empty results")
	}
}

func TestStatusPriority_Cycle(t *testing.T) {
	t.Parallel()

	if StatusOpen.Next() != StatusToday || StatusToday.Next() != StatusOpen {
		t.Fatalf("status cycle broken")
	}
	if PriorityNormal.Next() != PriorityHigh || PriorityHigh.Next() != PriorityNormal {
		t.Fatalf("priority cycle broken")
	}
	if Status("done").Valid() || Priority("low").Valid() {
		t.Fatalf("unexpected valid values")
	}
}
