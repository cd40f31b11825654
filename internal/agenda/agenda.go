// Package agenda turns users' task schedules into dated entries.
package agenda

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/rickb777/date/period"

	"tsadaash/internal/applog"
	"tsadaash/internal/periodicity"
	"tsadaash/internal/task"
)

var ErrInvalidSpan = errors.New("span must be a positive ISO-8601 period such as P1W")

// Entry is one occurrence of one task.
type Entry struct {
	TaskID string    `json:"taskId"`
	Title  string    `json:"title"`
	At     time.Time `json:"at"`
}

type Service struct {
	tasks    task.Repo
	resolver periodicity.Resolver
	logger   *log.Logger
}

func NewService(tasks task.Repo, resolver periodicity.Resolver, logger *log.Logger) *Service {
	return &Service{tasks: tasks, resolver: resolver, logger: applog.OrDefault(logger)}
}

func sortEntries(out []Entry) {
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].At.Equal(out[j].At) {
			return out[i].At.Before(out[j].At)
		}
		if out[i].Title != out[j].Title {
			return out[i].Title < out[j].Title
		}
		return out[i].TaskID < out[j].TaskID
	})
}

func isWindowError(err error) bool {
	return errors.Is(err, periodicity.ErrMalformedWindow) || errors.Is(err, periodicity.ErrWindowTooLarge)
}

// Due expands every scheduled task of userID over w, ordered by time then
// title. A task whose stored rule cannot be resolved is logged and skipped.
func (s *Service) Due(ctx context.Context, userID string, w periodicity.Window) ([]Entry, error) {
	tasks, err := s.tasks.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	out := make([]Entry, 0)
	for _, t := range tasks {
		if !t.HasSchedule() {
			continue
		}
		occ, err := s.resolver.Resolve(*t.Periodicity, w)
		if isWindowError(err) {
			return nil, err
		}
		if err != nil {
			applog.Warn(s.logger, "agenda_task_skipped", map[string]any{"task_id": t.ID, "error": err})
			continue
		}
		for _, at := range occ {
			out = append(out, Entry{TaskID: t.ID, Title: t.Title, At: at})
		}
	}
	sortEntries(out)
	return out, nil
}

// NextDue returns, for each scheduled task, its first occurrence strictly
// after the given instant. Tasks with nothing left are omitted.
func (s *Service) NextDue(ctx context.Context, userID string, after time.Time) ([]Entry, error) {
	tasks, err := s.tasks.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	out := make([]Entry, 0)
	for _, t := range tasks {
		if !t.HasSchedule() {
			continue
		}
		at, ok, err := s.resolver.Next(*t.Periodicity, after)
		if err != nil {
			applog.Warn(s.logger, "agenda_task_skipped", map[string]any{"task_id": t.ID, "error": err})
			continue
		}
		if ok {
			out = append(out, Entry{TaskID: t.ID, Title: t.Title, At: at})
		}
	}
	sortEntries(out)
	return out, nil
}

// Preview lists up to n occurrences of p after the given instant.
func (s *Service) Preview(p periodicity.Periodicity, after time.Time, n int) ([]time.Time, error) {
	out := make([]time.Time, 0, n)
	cur := after
	for len(out) < n {
		next, ok, err := s.resolver.Next(p, cur)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		out = append(out, next)
		cur = next
	}
	return out, nil
}

// ParseSpan reads an ISO-8601 period ("P1W", "P3D", "P1M").
func ParseSpan(s string) (period.Period, error) {
	p, err := period.Parse(strings.ToUpper(strings.TrimSpace(s)))
	if err != nil {
		return period.Period{}, fmt.Errorf("%w: %v", ErrInvalidSpan, err)
	}
	if p.IsZero() || p.IsNegative() {
		return period.Period{}, ErrInvalidSpan
	}
	return p, nil
}

// SpanWindow is the window [from, from+span). Calendar units follow
// from's location, so "P1M" from 31 January lands in early March.
func SpanWindow(from time.Time, span period.Period) (periodicity.Window, error) {
	to, precise := span.AddTo(from)
	if !precise {
		return periodicity.Window{}, fmt.Errorf("%w: %s has fractional calendar units", ErrInvalidSpan, span)
	}
	return periodicity.Window{From: from, To: to}, nil
}

// StartOfDay is local midnight of t in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}
