package periodicity

import (
	"fmt"
	"slices"
	"time"
)

// Builder assembles a Periodicity field by field. The first contradictory
// call is remembered and reported by Build. A builder can be built once.
type Builder struct {
	kind Kind

	reps      int
	anchor    time.Time
	timeframe *Timeframe

	daySetting   DaySetting
	weekStart    time.Weekday
	weekSetting  WeekSetting
	monthSetting MonthSetting
	yearStart    time.Month
	dates        []time.Time
	date         time.Time

	err      error
	consumed bool
}

// NewBuilder starts a builder for one shape. Repetitions default to 1 and
// the week start to Monday.
func NewBuilder(kind Kind) *Builder {
	b := &Builder{kind: kind, reps: 1, weekStart: time.Monday}
	if !kind.Valid() {
		b.fail(&InconsistentError{Reason: fmt.Sprintf("unknown periodicity kind %q", kind)})
	}
	return b
}

func (b *Builder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

func (b *Builder) require(field string, kinds ...Kind) bool {
	if slices.Contains(kinds, b.kind) {
		return true
	}
	b.fail(&InconsistentError{Reason: fmt.Sprintf("%s does not apply to %s periodicity", field, b.kind)})
	return false
}

func (b *Builder) WithRepetitions(n int) *Builder {
	if b.require("repetitions", KindDay, KindWeek, KindMonth, KindYear) {
		b.reps = n
	}
	return b
}

func (b *Builder) WithAnchor(t time.Time) *Builder {
	if b.require("anchor", KindDay, KindWeek, KindMonth, KindYear) {
		b.anchor = t
	}
	return b
}

func (b *Builder) WithTimeframe(start, end time.Time) *Builder {
	b.timeframe = &Timeframe{Start: start, End: end}
	return b
}

func (b *Builder) WithDaySetting(s DaySetting) *Builder {
	if b.require("day setting", KindDay) {
		b.daySetting = cloneDaySetting(s)
	}
	return b
}

func (b *Builder) WithWeekStart(d time.Weekday) *Builder {
	if b.require("week start", KindWeek) {
		b.weekStart = d
	}
	return b
}

func (b *Builder) WithWeekSetting(s WeekSetting) *Builder {
	if b.require("week setting", KindWeek) {
		b.weekSetting = cloneWeekSetting(s)
	}
	return b
}

func (b *Builder) WithMonthSetting(s MonthSetting) *Builder {
	if b.require("month setting", KindMonth) {
		b.monthSetting = cloneMonthSetting(s)
	}
	return b
}

func (b *Builder) WithYearStart(m time.Month) *Builder {
	if b.require("year start", KindYear) {
		b.yearStart = m
	}
	return b
}

// WithDates appends instants to a custom periodicity; order does not matter.
func (b *Builder) WithDates(dates ...time.Time) *Builder {
	if b.require("dates", KindCustom) {
		b.dates = append(b.dates, dates...)
	}
	return b
}

func (b *Builder) WithDate(t time.Time) *Builder {
	if b.require("date", KindUnique) {
		b.date = t
	}
	return b
}

// Build returns a validated Periodicity or the first failing constraint.
func (b *Builder) Build() (Periodicity, error) {
	if b.consumed {
		return Periodicity{}, ErrBuilderConsumed
	}
	b.consumed = true
	if b.err != nil {
		return Periodicity{}, b.err
	}

	var p Periodicity
	switch b.kind {
	case KindDay:
		p.config = DayConfig{Repetitions: b.reps, Setting: b.daySetting}
	case KindWeek:
		p.config = WeekConfig{Repetitions: b.reps, WeekStart: b.weekStart, Setting: b.weekSetting}
	case KindMonth:
		p.config = MonthConfig{Repetitions: b.reps, Setting: b.monthSetting}
	case KindYear:
		if b.yearStart == 0 {
			return Periodicity{}, &InconsistentError{Reason: "year start month is required"}
		}
		p.config = YearConfig{Repetitions: b.reps, YearStart: b.yearStart}
	case KindCustom:
		dates := slices.Clone(b.dates)
		slices.SortFunc(dates, func(x, y time.Time) int { return x.Compare(y) })
		p.config = CustomConfig{Dates: dates}
	case KindUnique:
		p.config = UniqueConfig{Date: b.date}
	}

	if err := Validate(p.config); err != nil {
		return Periodicity{}, err
	}

	switch c := p.config.(type) {
	case CustomConfig:
		p.anchor = c.Dates[0]
	case UniqueConfig:
		p.anchor = c.Date
	default:
		if b.anchor.IsZero() {
			return Periodicity{}, &InconsistentError{Reason: fmt.Sprintf("anchor is required for %s periodicity", b.kind)}
		}
		p.anchor = b.anchor
	}

	if b.timeframe != nil {
		if err := validateTimeframe(*b.timeframe); err != nil {
			return Periodicity{}, err
		}
		tf := *b.timeframe
		p.timeframe = &tf
	}
	return p, nil
}

// FromConfig builds a Periodicity from an already assembled config.
func FromConfig(c Config, anchor time.Time, tf *Timeframe) (Periodicity, error) {
	if c == nil {
		return Periodicity{}, &InconsistentError{Reason: "periodicity has no rule"}
	}
	b := NewBuilder(c.Kind())
	switch v := c.(type) {
	case DayConfig:
		b.WithRepetitions(v.Repetitions).WithAnchor(anchor).WithDaySetting(v.Setting)
	case WeekConfig:
		b.WithRepetitions(v.Repetitions).WithAnchor(anchor).WithWeekStart(v.WeekStart).WithWeekSetting(v.Setting)
	case MonthConfig:
		b.WithRepetitions(v.Repetitions).WithAnchor(anchor).WithMonthSetting(v.Setting)
	case YearConfig:
		b.WithRepetitions(v.Repetitions).WithAnchor(anchor).WithYearStart(v.YearStart)
	case CustomConfig:
		b.WithDates(v.Dates...)
	case UniqueConfig:
		b.WithDate(v.Date)
	}
	if tf != nil {
		b.WithTimeframe(tf.Start, tf.End)
	}
	return b.Build()
}
