package periodicity

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"
	_ "time/tzdata"
)

// Setting type names used on the wire and in the CLI form.
const (
	SettingEveryDay                   = "every_day"
	SettingEveryNDays                 = "every_n_days"
	SettingSpecificDaysWeek           = "specific_days_week"
	SettingSpecificDaysMonthFromFirst = "specific_days_month_from_first"
	SettingSpecificDaysMonthFromLast  = "specific_days_month_from_last"
	SettingSpecificNthWeekdaysMonth   = "specific_nth_weekdays_month"
	SettingDaysPerWeek                = "days_per_week"
	SettingDaysPerFortnight           = "days_per_fortnight"
	SettingDaysPerMonth               = "days_per_month"
	SettingDaysPerYear                = "days_per_year"

	SettingEveryWeek                     = "every_week"
	SettingEveryNWeeks                   = "every_n_weeks"
	SettingSpecificWeeksOfMonthFromFirst = "specific_weeks_of_month_from_first"
	SettingSpecificWeeksOfMonthFromLast  = "specific_weeks_of_month_from_last"
	SettingWeeksPerMonth                 = "weeks_per_month"

	SettingEveryMonth     = "every_month"
	SettingEveryNMonths   = "every_n_months"
	SettingSpecificMonths = "specific_months"
)

var (
	DaySettingTypes = []string{
		SettingEveryDay, SettingEveryNDays, SettingSpecificDaysWeek,
		SettingSpecificDaysMonthFromFirst, SettingSpecificDaysMonthFromLast,
		SettingSpecificNthWeekdaysMonth, SettingDaysPerWeek, SettingDaysPerFortnight,
		SettingDaysPerMonth, SettingDaysPerYear,
	}
	WeekSettingTypes = []string{
		SettingEveryWeek, SettingEveryNWeeks, SettingSpecificWeeksOfMonthFromFirst,
		SettingSpecificWeeksOfMonthFromLast, SettingWeeksPerMonth,
	}
	MonthSettingTypes = []string{
		SettingEveryMonth, SettingEveryNMonths, SettingSpecificMonths,
	}
)

// SettingFields carries the raw parameters of any setting. Only the fields
// relevant to Type are read.
type SettingFields struct {
	Type     string       `json:"type"`
	N        int          `json:"n,omitempty"`
	Count    int          `json:"count,omitempty"`
	Weekdays []string     `json:"weekdays,omitempty"`
	Days     []int        `json:"days,omitempty"`
	Weeks    []int        `json:"weeks,omitempty"`
	Months   []string     `json:"months,omitempty"`
	Nth      []NthPayload `json:"nth,omitempty"`
}

type NthPayload struct {
	Position int    `json:"position"`
	Weekday  string `json:"weekday"`
}

type timeframePayload struct {
	Start time.Time  `json:"start"`
	End   *time.Time `json:"end,omitempty"`
}

type payload struct {
	Kind        Kind              `json:"kind"`
	TZ          string            `json:"tz,omitempty"`
	Anchor      *time.Time        `json:"anchor,omitempty"`
	Timeframe   *timeframePayload `json:"timeframe,omitempty"`
	Repetitions int               `json:"repetitions,omitempty"`
	WeekStart   string            `json:"week_start,omitempty"`
	YearStart   string            `json:"year_start,omitempty"`
	Setting     *SettingFields    `json:"setting,omitempty"`
	Dates       []time.Time       `json:"dates,omitempty"`
	Date        *time.Time        `json:"date,omitempty"`
}

// MarshalJSON writes the variant tag plus its parameters.
func (p Periodicity) MarshalJSON() ([]byte, error) {
	if p.config == nil {
		return []byte("null"), nil
	}
	out := payload{Kind: p.config.Kind(), TZ: zoneName(p.anchor.Location())}
	if tf := p.timeframe; tf != nil {
		out.Timeframe = &timeframePayload{Start: tf.Start}
		if !tf.End.IsZero() {
			end := tf.End
			out.Timeframe.End = &end
		}
	}

	switch c := p.config.(type) {
	case DayConfig:
		out.Repetitions = c.Repetitions
		out.Setting = daySettingFields(c.Setting)
	case WeekConfig:
		out.Repetitions = c.Repetitions
		out.WeekStart = WeekdayName(c.WeekStart)
		out.Setting = weekSettingFields(c.Setting)
	case MonthConfig:
		out.Repetitions = c.Repetitions
		out.Setting = monthSettingFields(c.Setting)
	case YearConfig:
		out.Repetitions = c.Repetitions
		out.YearStart = MonthName(c.YearStart)
	case CustomConfig:
		out.Dates = c.Dates
	case UniqueConfig:
		d := c.Date
		out.Date = &d
	}
	switch p.config.(type) {
	case DayConfig, WeekConfig, MonthConfig, YearConfig:
		a := p.anchor
		out.Anchor = &a
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes through a Builder, so a document that violates any
// constraint is rejected with the validation error.
func (p *Periodicity) UnmarshalJSON(b []byte) error {
	var in payload
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	if err := in.applyZone(); err != nil {
		return err
	}
	built, err := in.build()
	if err != nil {
		return err
	}
	*p = built
	return nil
}

var zones sync.Map

func loadZone(name string) (*time.Location, error) {
	if v, ok := zones.Load(name); ok {
		return v.(*time.Location), nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, err
	}
	zones.Store(name, loc)
	return loc, nil
}

// zoneName is the IANA name of loc, or "" when an RFC 3339 offset already
// restores it (UTC) or it has no loadable name (Local, fixed offsets).
func zoneName(loc *time.Location) string {
	name := loc.String()
	if name == "" || name == "UTC" || name == "Local" {
		return ""
	}
	if _, err := loadZone(name); err != nil {
		return ""
	}
	return name
}

// applyZone moves every instant of the document into its named zone so
// calendar arithmetic follows that zone's daylight saving rules.
func (in *payload) applyZone() error {
	if in.TZ == "" {
		return nil
	}
	loc, err := loadZone(in.TZ)
	if err != nil {
		return fmt.Errorf("unknown time zone %q: %w", in.TZ, err)
	}
	move := func(t *time.Time) {
		if t != nil {
			*t = t.In(loc)
		}
	}
	move(in.Anchor)
	move(in.Date)
	if in.Timeframe != nil {
		move(&in.Timeframe.Start)
		move(in.Timeframe.End)
	}
	for i := range in.Dates {
		move(&in.Dates[i])
	}
	return nil
}

func (in payload) build() (Periodicity, error) {
	b := NewBuilder(in.Kind)
	if in.Anchor != nil {
		b.WithAnchor(*in.Anchor)
	}
	if in.Repetitions != 0 {
		b.WithRepetitions(in.Repetitions)
	}
	if in.Timeframe != nil {
		var end time.Time
		if in.Timeframe.End != nil {
			end = *in.Timeframe.End
		}
		b.WithTimeframe(in.Timeframe.Start, end)
	}

	switch in.Kind {
	case KindDay:
		if in.Setting != nil {
			s, err := in.Setting.DaySetting()
			if err != nil {
				return Periodicity{}, err
			}
			b.WithDaySetting(s)
		}
	case KindWeek:
		if in.WeekStart != "" {
			wd, err := ParseWeekday(in.WeekStart)
			if err != nil {
				return Periodicity{}, err
			}
			b.WithWeekStart(wd)
		}
		if in.Setting != nil {
			s, err := in.Setting.WeekSetting()
			if err != nil {
				return Periodicity{}, err
			}
			b.WithWeekSetting(s)
		}
	case KindMonth:
		if in.Setting != nil {
			s, err := in.Setting.MonthSetting()
			if err != nil {
				return Periodicity{}, err
			}
			b.WithMonthSetting(s)
		}
	case KindYear:
		if in.YearStart != "" {
			m, err := ParseMonth(in.YearStart)
			if err != nil {
				return Periodicity{}, err
			}
			b.WithYearStart(m)
		}
	case KindCustom:
		b.WithDates(in.Dates...)
	case KindUnique:
		if in.Date != nil {
			b.WithDate(*in.Date)
		}
	}
	return b.Build()
}

func daySettingFields(s DaySetting) *SettingFields {
	switch v := s.(type) {
	case EveryDay:
		return &SettingFields{Type: SettingEveryDay}
	case EveryNDays:
		return &SettingFields{Type: SettingEveryNDays, N: v.N}
	case SpecificDaysWeek:
		return &SettingFields{Type: SettingSpecificDaysWeek, Weekdays: weekdayNames(v.Weekdays)}
	case SpecificDaysMonthFromFirst:
		return &SettingFields{Type: SettingSpecificDaysMonthFromFirst, Days: v.Days}
	case SpecificDaysMonthFromLast:
		return &SettingFields{Type: SettingSpecificDaysMonthFromLast, Days: v.Offsets}
	case SpecificNthWeekdaysMonth:
		nth := make([]NthPayload, 0, len(v.Entries))
		for _, e := range v.Entries {
			nth = append(nth, NthPayload{Position: e.Position, Weekday: WeekdayName(e.Weekday)})
		}
		return &SettingFields{Type: SettingSpecificNthWeekdaysMonth, Nth: nth}
	case DaysPerWeek:
		return &SettingFields{Type: SettingDaysPerWeek, Count: v.Count}
	case DaysPerFortnight:
		return &SettingFields{Type: SettingDaysPerFortnight, Count: v.Count}
	case DaysPerMonth:
		return &SettingFields{Type: SettingDaysPerMonth, Count: v.Count}
	case DaysPerYear:
		return &SettingFields{Type: SettingDaysPerYear, Count: v.Count}
	default:
		return nil
	}
}

func weekSettingFields(s WeekSetting) *SettingFields {
	switch v := s.(type) {
	case EveryWeek:
		return &SettingFields{Type: SettingEveryWeek}
	case EveryNWeeks:
		return &SettingFields{Type: SettingEveryNWeeks, N: v.N}
	case SpecificWeeksOfMonthFromFirst:
		return &SettingFields{Type: SettingSpecificWeeksOfMonthFromFirst, Weeks: v.Weeks}
	case SpecificWeeksOfMonthFromLast:
		return &SettingFields{Type: SettingSpecificWeeksOfMonthFromLast, Weeks: v.Weeks}
	case WeeksPerMonth:
		return &SettingFields{Type: SettingWeeksPerMonth, Count: v.Count}
	default:
		return nil
	}
}

func monthSettingFields(s MonthSetting) *SettingFields {
	switch v := s.(type) {
	case EveryMonth:
		return &SettingFields{Type: SettingEveryMonth}
	case EveryNMonths:
		return &SettingFields{Type: SettingEveryNMonths, N: v.N}
	case SpecificMonths:
		names := make([]string, 0, len(v.Months))
		for _, m := range v.Months {
			names = append(names, MonthName(m))
		}
		return &SettingFields{Type: SettingSpecificMonths, Months: names}
	default:
		return nil
	}
}

// DaySetting converts raw fields into a day setting. Ranges are not checked
// here; the builder's validation does that.
func (f SettingFields) DaySetting() (DaySetting, error) {
	switch f.Type {
	case SettingEveryDay:
		return EveryDay{}, nil
	case SettingEveryNDays:
		return EveryNDays{N: f.N}, nil
	case SettingSpecificDaysWeek:
		days, err := parseWeekdays(f.Weekdays)
		if err != nil {
			return nil, err
		}
		return SpecificDaysWeek{Weekdays: days}, nil
	case SettingSpecificDaysMonthFromFirst:
		return SpecificDaysMonthFromFirst{Days: f.Days}, nil
	case SettingSpecificDaysMonthFromLast:
		return SpecificDaysMonthFromLast{Offsets: f.Days}, nil
	case SettingSpecificNthWeekdaysMonth:
		entries := make([]NthWeekday, 0, len(f.Nth))
		for _, n := range f.Nth {
			wd, err := ParseWeekday(n.Weekday)
			if err != nil {
				return nil, err
			}
			entries = append(entries, NthWeekday{Position: n.Position, Weekday: wd})
		}
		return SpecificNthWeekdaysMonth{Entries: entries}, nil
	case SettingDaysPerWeek:
		return DaysPerWeek{Count: f.Count}, nil
	case SettingDaysPerFortnight:
		return DaysPerFortnight{Count: f.Count}, nil
	case SettingDaysPerMonth:
		return DaysPerMonth{Count: f.Count}, nil
	case SettingDaysPerYear:
		return DaysPerYear{Count: f.Count}, nil
	default:
		return nil, &InconsistentError{Reason: fmt.Sprintf("unknown day setting %q", f.Type)}
	}
}

func (f SettingFields) WeekSetting() (WeekSetting, error) {
	switch f.Type {
	case SettingEveryWeek:
		return EveryWeek{}, nil
	case SettingEveryNWeeks:
		return EveryNWeeks{N: f.N}, nil
	case SettingSpecificWeeksOfMonthFromFirst:
		return SpecificWeeksOfMonthFromFirst{Weeks: f.Weeks}, nil
	case SettingSpecificWeeksOfMonthFromLast:
		return SpecificWeeksOfMonthFromLast{Weeks: f.Weeks}, nil
	case SettingWeeksPerMonth:
		return WeeksPerMonth{Count: f.Count}, nil
	default:
		return nil, &InconsistentError{Reason: fmt.Sprintf("unknown week setting %q", f.Type)}
	}
}

func (f SettingFields) MonthSetting() (MonthSetting, error) {
	switch f.Type {
	case SettingEveryMonth:
		return EveryMonth{}, nil
	case SettingEveryNMonths:
		return EveryNMonths{N: f.N}, nil
	case SettingSpecificMonths:
		months := make([]time.Month, 0, len(f.Months))
		for _, name := range f.Months {
			m, err := ParseMonth(name)
			if err != nil {
				return nil, err
			}
			months = append(months, m)
		}
		return SpecificMonths{Months: months}, nil
	default:
		return nil, &InconsistentError{Reason: fmt.Sprintf("unknown month setting %q", f.Type)}
	}
}

func WeekdayName(d time.Weekday) string {
	return strings.ToLower(d.String())
}

func MonthName(m time.Month) string {
	return strings.ToLower(m.String())
}

// ParseWeekday accepts full English names and three-letter abbreviations in
// any case.
func ParseWeekday(s string) (time.Weekday, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := WeekdayName(d)
		if s == name || (len(s) == 3 && strings.HasPrefix(name, s)) {
			return d, nil
		}
	}
	return 0, fmt.Errorf("unknown weekday %q", s)
}

func ParseMonth(s string) (time.Month, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for m := time.January; m <= time.December; m++ {
		name := MonthName(m)
		if s == name || (len(s) == 3 && strings.HasPrefix(name, s)) {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown month %q", s)
}

func weekdayNames(days []time.Weekday) []string {
	out := make([]string, 0, len(days))
	for _, d := range days {
		out = append(out, WeekdayName(d))
	}
	return out
}

func parseWeekdays(names []string) ([]time.Weekday, error) {
	out := make([]time.Weekday, 0, len(names))
	for _, n := range names {
		d, err := ParseWeekday(n)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}
