package model

import (
	"strings"
	"time"
)

type Status string

const (
	StatusOpen  Status = "open"
	StatusToday Status = "today"
)

func (s Status) Valid() bool {
	switch s {
	case StatusOpen, StatusToday:
		return true
	default:
		return false
	}
}

// Next cycles open -> today -> open.
func (s Status) Next() Status {
	if s == StatusToday {
		return StatusOpen
	}
	return StatusToday
}

type Priority string

const (
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityNormal, PriorityHigh:
		return true
	default:
		return false
	}
}

func (p Priority) Next() Priority {
	if p == PriorityHigh {
		return PriorityNormal
	}
	return PriorityHigh
}

// Task mirrors the REST representation of a task.
//
// Mentions, Hashtags, Emails and Links are read-only fields the server derives from
// the title; clients never send them.
type Task struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	RawText     string     `json:"raw_text,omitempty"`
	Description string     `json:"description,omitempty"`
	Status      Status     `json:"status"`
	Priority    Priority   `json:"priority"`
	IsPublic    bool       `json:"is_public"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`

	Mentions []string `json:"mentions,omitempty"`
	Hashtags []string `json:"hashtags,omitempty"`
	Emails   []string `json:"emails,omitempty"`
	Links    []string `json:"links,omitempty"`
}

// Text is the free text shown for the task: raw_text when present, else title.
func (t Task) Text() string {
	if t.RawText != "" {
		return t.RawText
	}
	return t.Title
}

// TaskInput is the payload for creating (or fully replacing) a task.
type TaskInput struct {
	Title       string     `json:"title"`
	RawText     string     `json:"raw_text,omitempty"`
	Description string     `json:"description,omitempty"`
	Status      Status     `json:"status"`
	Priority    Priority   `json:"priority"`
	IsPublic    bool       `json:"is_public"`
	DueDate     *time.Time `json:"due_date,omitempty"`
}

// NewTaskInput builds the payload the add form submits: the trimmed text as both
// title and raw_text, open, normal priority, private, due now.
func NewTaskInput(text string, now time.Time) TaskInput {
	text = strings.TrimSpace(text)
	due := now.UTC()
	return TaskInput{
		Title:    text,
		RawText:  text,
		Status:   StatusOpen,
		Priority: PriorityNormal,
		IsPublic: false,
		DueDate:  &due,
	}
}

// Task converts the input into a task with the given id, as a server would store it.
func (in TaskInput) Task(id int64, now time.Time) Task {
	created := now.UTC()
	return Task{
		ID:          id,
		Title:       in.Title,
		RawText:     in.RawText,
		Description: in.Description,
		Status:      in.Status,
		Priority:    in.Priority,
		IsPublic:    in.IsPublic,
		DueDate:     in.DueDate,
		CreatedAt:   &created,
		UpdatedAt:   &created,
	}
}

// TaskPatch is a partial update; nil fields are left unchanged.
type TaskPatch struct {
	Title       *string    `json:"title,omitempty"`
	RawText     *string    `json:"raw_text,omitempty"`
	Description *string    `json:"description,omitempty"`
	Status      *Status    `json:"status,omitempty"`
	Priority    *Priority  `json:"priority,omitempty"`
	IsPublic    *bool      `json:"is_public,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
}

// TextPatch sets both title and raw_text to the trimmed text.
func TextPatch(text string) TaskPatch {
	text = strings.TrimSpace(text)
	title := text
	raw := text
	return TaskPatch{Title: &title, RawText: &raw}
}

func (p TaskPatch) Empty() bool {
	return p.Title == nil && p.RawText == nil && p.Description == nil &&
		p.Status == nil && p.Priority == nil && p.IsPublic == nil && p.DueDate == nil
}

// Apply returns t with the patch's fields overlaid.
func (p TaskPatch) Apply(t Task) Task {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.RawText != nil {
		t.RawText = *p.RawText
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.IsPublic != nil {
		t.IsPublic = *p.IsPublic
	}
	if p.DueDate != nil {
		d := *p.DueDate
		t.DueDate = &d
	}
	return t
}

type EventKind string

const (
	EventCreated EventKind = "created"
	EventUpdated EventKind = "updated"
	EventDeleted EventKind = "deleted"
)

// TaskEvent is one message of the live change feed. Task is nil for deletions.
type TaskEvent struct {
	Kind EventKind `json:"type"`
	ID   int64     `json:"id"`
	Task *Task     `json:"task,omitempty"`
}
