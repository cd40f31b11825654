package task

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"tsadaash/internal/periodicity"
)

const (
	icsUTCLayout   = "20060102T150405Z"
	icsLocalLayout = "20060102T150405"
	icsHorizon     = 366 * 24 * time.Hour
)

var (
	ErrNoSchedule    = errors.New("task has no periodicity to export")
	ErrNoOccurrences = errors.New("periodicity has no upcoming occurrence")
)

// icsStamp formats instants for one event. A named zone is written as a
// TZID with local wall-clock times so RRULE expansion follows its daylight
// saving rules; anything else is written in UTC.
type icsStamp struct {
	loc  *time.Location
	tzid string
}

func newICSStamp(loc *time.Location) icsStamp {
	name := loc.String()
	if name == "" || name == "UTC" || name == "Local" {
		return icsStamp{loc: time.UTC}
	}
	if _, err := time.LoadLocation(name); err != nil {
		return icsStamp{loc: time.UTC}
	}
	return icsStamp{loc: loc, tzid: name}
}

// prop renders "NAME:value" or "NAME;TZID=zone:value" for the given times.
func (s icsStamp) prop(name string, ts ...time.Time) string {
	vals := make([]string, 0, len(ts))
	for _, t := range ts {
		if s.tzid == "" {
			vals = append(vals, t.UTC().Format(icsUTCLayout))
		} else {
			vals = append(vals, t.In(s.loc).Format(icsLocalLayout))
		}
	}
	if s.tzid != "" {
		name += ";TZID=" + s.tzid
	}
	return name + ":" + strings.Join(vals, ",")
}

// BuildTaskCalendarICS builds an iCalendar event for a scheduled task.
// DTSTART is the first occurrence at or after the anchor. Rules iCalendar
// can express become an RRULE; the rest are expanded over the coming year
// into RDATE lines.
func BuildTaskCalendarICS(t Task, now time.Time) (string, error) {
	if !t.HasSchedule() {
		return "", ErrNoSchedule
	}
	p := *t.Periodicity
	start, ok, err := periodicity.FirstOccurrence(p)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrNoOccurrences
	}
	stamp := newICSStamp(p.Anchor().Location())

	title := strings.TrimSpace(t.Title)
	if title == "" {
		title = "Tsadaash Task"
	}
	desc := strings.TrimSpace(t.Description)

	uid := fmt.Sprintf("task-%s@tsadaash", strings.TrimSpace(t.ID))
	if strings.TrimSpace(t.ID) == "" {
		uid = fmt.Sprintf("task-export-%d@tsadaash", now.UnixNano())
	}

	lines := []string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//Tsadaash//Task Export//EN",
		"CALSCALE:GREGORIAN",
		"METHOD:PUBLISH",
		"BEGIN:VEVENT",
		"UID:" + escapeICSText(uid),
		"DTSTAMP:" + now.UTC().Format(icsUTCLayout),
		"SUMMARY:" + escapeICSText(title),
		stamp.prop("DTSTART", start),
	}
	if desc != "" {
		lines = append(lines, "DESCRIPTION:"+escapeICSText(desc))
	}

	extra, err := recurrenceLines(p, start, stamp, now)
	if err != nil {
		return "", err
	}
	lines = append(lines, extra...)
	lines = append(lines, "END:VEVENT", "END:VCALENDAR", "")

	return strings.Join(lines, "\r\n"), nil
}

func recurrenceLines(p periodicity.Periodicity, start time.Time, stamp icsStamp, now time.Time) ([]string, error) {
	if rule, ok := periodicity.RRule(p); ok {
		return []string{"RRULE:" + rule}, nil
	}

	var dates []time.Time
	switch p.Kind() {
	case periodicity.KindUnique:
		return nil, nil
	case periodicity.KindCustom:
		dates = periodicity.RDates(p)
	default:
		occ, err := periodicity.Resolve(p, periodicity.Window{From: now, To: now.Add(icsHorizon)})
		if err != nil {
			return nil, err
		}
		dates = occ
	}

	rdates := make([]time.Time, 0, len(dates))
	for _, d := range dates {
		if d.Equal(start) {
			continue
		}
		rdates = append(rdates, d)
	}
	if len(rdates) == 0 {
		return nil, nil
	}
	return []string{stamp.prop("RDATE", rdates...)}, nil
}

func escapeICSText(s string) string {
	repl := strings.NewReplacer(
		"\\", "\\\\",
		";", "\\;",
		",", "\\,",
		"\r\n", "\\n",
		"\n", "\\n",
		"\r", "\\n",
	)
	return repl.Replace(s)
}
