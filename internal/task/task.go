package task

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"tsadaash/internal/periodicity"
)

const maxTitleLen = 200

var (
	ErrNotFound     = errors.New("task not found")
	ErrInvalidTitle = errors.New("task title must be 1-200 characters")
)

// Task is a unit of work owned by one user. A nil Periodicity means the
// task is never due on its own.
type Task struct {
	ID          string                   `json:"id"`
	UserID      string                   `json:"userId"`
	Title       string                   `json:"title"`
	Description string                   `json:"description"`
	Periodicity *periodicity.Periodicity `json:"periodicity,omitempty"`
	CreatedAt   time.Time                `json:"createdAt"`
	UpdatedAt   time.Time                `json:"updatedAt"`
}

// Upsert is the client-writable part of a task.
type Upsert struct {
	Title       string                   `json:"title"`
	Description string                   `json:"description"`
	Periodicity *periodicity.Periodicity `json:"periodicity,omitempty"`
}

// Patch represents a partial update.
// nil pointer => "no change"
// ClearPeriodicity drops the schedule; it wins over Periodicity.
type Patch struct {
	Title            *string                  `json:"title,omitempty"`
	Description      *string                  `json:"description,omitempty"`
	Periodicity      *periodicity.Periodicity `json:"periodicity,omitempty"`
	ClearPeriodicity bool                     `json:"clearPeriodicity,omitempty"`
}

func (t Task) HasSchedule() bool {
	return t.Periodicity != nil && !t.Periodicity.IsZero()
}

func normalizeTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" || utf8.RuneCountInString(title) > maxTitleLen {
		return "", ErrInvalidTitle
	}
	return title, nil
}

// applyPatch replaces whole fields; a Periodicity is swapped, never edited.
func applyPatch(t *Task, p Patch) error {
	if p.Title != nil {
		title, err := normalizeTitle(*p.Title)
		if err != nil {
			return err
		}
		t.Title = title
	}
	if p.Description != nil {
		t.Description = strings.TrimSpace(*p.Description)
	}
	switch {
	case p.ClearPeriodicity:
		t.Periodicity = nil
	case p.Periodicity != nil:
		per := *p.Periodicity
		t.Periodicity = &per
	}
	return nil
}
