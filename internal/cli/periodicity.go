package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"tsadaash/internal/periodicity"
)

const dateTimeLayout = "2006-01-02 15:04"

type formStep int

const (
	stepKind formStep = iota
	stepAnchor
	stepRepetitions
	stepWeekStart
	stepYearStart
	stepSetting
	stepDates
	stepDate
	stepEnd
)

// periodicityForm keeps the answers between attempts so a rejected rule
// only costs the user the offending step.
type periodicityForm struct {
	p   *Prompter
	loc *time.Location
	now time.Time

	kind      periodicity.Kind
	anchor    time.Time
	reps      int
	weekStart time.Weekday
	yearStart time.Month
	setting   periodicity.SettingFields
	dates     []time.Time
	date      time.Time
	end       time.Time
}

// settingError marks failures while turning raw answers into a setting.
type settingError struct{ err error }

func (e settingError) Error() string { return e.err.Error() }
func (e settingError) Unwrap() error { return e.err }

// PeriodicityForm walks the user through a periodicity step by step. When
// the builder rejects the result, the step owning the offending field is
// asked again and the rest of the answers are kept.
func PeriodicityForm(p *Prompter, loc *time.Location, now time.Time) (periodicity.Periodicity, error) {
	if loc == nil {
		loc = time.UTC
	}
	f := &periodicityForm{p: p, loc: loc, now: now.In(loc), reps: 1, weekStart: time.Monday, yearStart: time.January}

	if err := f.ask(stepKind); err != nil {
		return periodicity.Periodicity{}, err
	}
	for _, s := range f.steps() {
		if err := f.ask(s); err != nil {
			return periodicity.Periodicity{}, err
		}
	}

	for {
		per, err := f.build()
		if err == nil {
			return per, nil
		}
		p.Printf("  %v\n", err)
		if err := f.ask(f.stepFor(err)); err != nil {
			return periodicity.Periodicity{}, err
		}
	}
}

func (f *periodicityForm) recurring() bool {
	switch f.kind {
	case periodicity.KindDay, periodicity.KindWeek, periodicity.KindMonth, periodicity.KindYear:
		return true
	}
	return false
}

func (f *periodicityForm) steps() []formStep {
	switch f.kind {
	case periodicity.KindDay, periodicity.KindMonth:
		return []formStep{stepAnchor, stepRepetitions, stepSetting, stepEnd}
	case periodicity.KindWeek:
		return []formStep{stepAnchor, stepRepetitions, stepWeekStart, stepSetting, stepEnd}
	case periodicity.KindYear:
		return []formStep{stepAnchor, stepRepetitions, stepYearStart, stepEnd}
	case periodicity.KindCustom:
		return []formStep{stepDates}
	default:
		return []formStep{stepDate}
	}
}

func (f *periodicityForm) build() (periodicity.Periodicity, error) {
	b := periodicity.NewBuilder(f.kind)
	if f.recurring() {
		b.WithAnchor(f.anchor).WithRepetitions(f.reps)
		if !f.end.IsZero() {
			b.WithTimeframe(f.anchor, f.end)
		}
	}

	switch f.kind {
	case periodicity.KindDay:
		s, err := f.setting.DaySetting()
		if err != nil {
			return periodicity.Periodicity{}, settingError{err}
		}
		b.WithDaySetting(s)
	case periodicity.KindWeek:
		s, err := f.setting.WeekSetting()
		if err != nil {
			return periodicity.Periodicity{}, settingError{err}
		}
		b.WithWeekStart(f.weekStart).WithWeekSetting(s)
	case periodicity.KindMonth:
		s, err := f.setting.MonthSetting()
		if err != nil {
			return periodicity.Periodicity{}, settingError{err}
		}
		b.WithMonthSetting(s)
	case periodicity.KindYear:
		b.WithYearStart(f.yearStart)
	case periodicity.KindCustom:
		b.WithDates(f.dates...)
	case periodicity.KindUnique:
		b.WithDate(f.date)
	}
	return b.Build()
}

// stepFor picks the step to repeat for a build error.
func (f *periodicityForm) stepFor(err error) formStep {
	var se settingError
	if errors.As(err, &se) {
		return stepSetting
	}
	field := periodicity.ValidationField(err)
	switch {
	case strings.HasSuffix(field, ".repetitions"):
		return stepRepetitions
	case field == "week.week_start":
		return stepWeekStart
	case field == "year.year_start":
		return stepYearStart
	case field == "custom.dates":
		return stepDates
	case field != "":
		return stepSetting
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "timeframe"):
		return stepEnd
	case strings.Contains(msg, "repetitions") && f.recurring():
		return stepRepetitions
	case strings.Contains(msg, "anchor") && f.recurring():
		return stepAnchor
	case f.kind == periodicity.KindCustom:
		return stepDates
	case f.kind == periodicity.KindUnique:
		return stepDate
	case f.kind == periodicity.KindYear:
		return stepYearStart
	default:
		return stepSetting
	}
}

func (f *periodicityForm) ask(s formStep) error {
	var err error
	switch s {
	case stepKind:
		var k string
		k, err = f.p.Choose("Repeat", kindNames(), string(periodicity.KindDay))
		f.kind = periodicity.Kind(k)
	case stepAnchor:
		f.anchor, err = f.askTime("Starting from", f.now.Format(dateTimeLayout), false)
	case stepRepetitions:
		f.reps, err = f.p.AskInt("Times per slot", f.reps)
	case stepWeekStart:
		var v string
		v, err = f.p.Choose("Weeks start on", weekdayChoices(), periodicity.WeekdayName(f.weekStart))
		if err == nil {
			f.weekStart, err = periodicity.ParseWeekday(v)
		}
	case stepYearStart:
		var v string
		v, err = f.p.Choose("Year starts in", monthChoices(), periodicity.MonthName(f.yearStart))
		if err == nil {
			f.yearStart, err = periodicity.ParseMonth(v)
		}
	case stepSetting:
		err = f.askSetting()
	case stepDates:
		f.dates, err = f.askTimes("Dates (YYYY-MM-DD HH:MM, comma separated)")
	case stepDate:
		f.date, err = f.askTime("On", "", false)
	case stepEnd:
		f.end, err = f.askTime("Until (blank for no end)", "", true)
	}
	return err
}

func (f *periodicityForm) askSetting() error {
	var types []string
	switch f.kind {
	case periodicity.KindDay:
		types = periodicity.DaySettingTypes
	case periodicity.KindWeek:
		types = periodicity.WeekSettingTypes
	default:
		types = periodicity.MonthSettingTypes
	}
	def := f.setting.Type
	if def == "" {
		def = types[0]
	}
	t, err := f.p.Choose("Which "+string(f.kind)+"s", types, def)
	if err != nil {
		return err
	}
	fields := periodicity.SettingFields{Type: t}

	switch t {
	case periodicity.SettingEveryNDays, periodicity.SettingEveryNWeeks, periodicity.SettingEveryNMonths:
		fields.N, err = f.p.AskInt("Every how many", 2)
	case periodicity.SettingDaysPerWeek, periodicity.SettingDaysPerFortnight, periodicity.SettingDaysPerMonth,
		periodicity.SettingDaysPerYear, periodicity.SettingWeeksPerMonth:
		fields.Count, err = f.p.AskInt("How many", 1)
	case periodicity.SettingSpecificDaysWeek:
		fields.Weekdays, err = f.p.AskList("Weekdays (e.g. mon, wed)")
	case periodicity.SettingSpecificDaysMonthFromFirst:
		fields.Days, err = f.p.AskIntList("Days after the 1st (0 is the 1st)")
	case periodicity.SettingSpecificDaysMonthFromLast:
		fields.Days, err = f.p.AskIntList("Days before month end (0 is the last day)")
	case periodicity.SettingSpecificWeeksOfMonthFromFirst:
		fields.Weeks, err = f.p.AskIntList("Weeks from the start of the month (1 is the first)")
	case periodicity.SettingSpecificWeeksOfMonthFromLast:
		fields.Weeks, err = f.p.AskIntList("Weeks from the end of the month (1 is the last)")
	case periodicity.SettingSpecificMonths:
		fields.Months, err = f.p.AskList("Months (e.g. jan, jul)")
	case periodicity.SettingSpecificNthWeekdaysMonth:
		fields.Nth, err = f.askNth()
	}
	if err != nil {
		return err
	}
	f.setting = fields
	return nil
}

// askNth reads entries like "2:tue, -1:fri".
func (f *periodicityForm) askNth() ([]periodicity.NthPayload, error) {
	for {
		items, err := f.p.AskList("Weekdays by position (e.g. 2:tue, -1:fri)")
		if err != nil {
			return nil, err
		}
		out, ok := make([]periodicity.NthPayload, 0, len(items)), true
		for _, it := range items {
			pos, wd, found := strings.Cut(it, ":")
			n, err := strconv.Atoi(pos)
			if !found || err != nil {
				f.p.Printf("  %q should look like 2:tue\n", it)
				ok = false
				break
			}
			out = append(out, periodicity.NthPayload{Position: n, Weekday: wd})
		}
		if ok {
			return out, nil
		}
	}
}

func (f *periodicityForm) askTime(label, def string, optional bool) (time.Time, error) {
	for {
		v, err := f.p.AskDefault(label, def)
		if err != nil {
			return time.Time{}, err
		}
		if v == "" {
			if optional {
				return time.Time{}, nil
			}
			f.p.Printf("  a date is required\n")
			continue
		}
		t, err := parseLocalTime(v, f.loc)
		if err == nil {
			return t, nil
		}
		f.p.Printf("  %v\n", err)
	}
}

func (f *periodicityForm) askTimes(label string) ([]time.Time, error) {
	for {
		raw, err := f.p.Ask(label)
		if err != nil {
			return nil, err
		}
		out, bad := []time.Time{}, error(nil)
		for _, s := range strings.Split(raw, ",") {
			if s = strings.TrimSpace(s); s == "" {
				continue
			}
			t, err := parseLocalTime(s, f.loc)
			if err != nil {
				bad = err
				break
			}
			out = append(out, t)
		}
		if bad == nil {
			return out, nil
		}
		f.p.Printf("  %v\n", bad)
	}
}

func parseLocalTime(s string, loc *time.Location) (time.Time, error) {
	for _, layout := range []string{dateTimeLayout, "2006-01-02T15:04", "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%q is not YYYY-MM-DD or YYYY-MM-DD HH:MM", s)
}

func kindNames() []string {
	out := make([]string, 0, len(periodicity.Kinds))
	for _, k := range periodicity.Kinds {
		out = append(out, string(k))
	}
	return out
}

func weekdayChoices() []string {
	out := make([]string, 0, 7)
	for i := 1; i <= 7; i++ {
		out = append(out, periodicity.WeekdayName(time.Weekday(i%7)))
	}
	return out
}

func monthChoices() []string {
	out := make([]string, 0, 12)
	for m := time.January; m <= time.December; m++ {
		out = append(out, periodicity.MonthName(m))
	}
	return out
}
