package periodicity

import (
	"slices"
	"time"
)

// Kind names one of the six recurrence shapes.
type Kind string

const (
	KindDay    Kind = "day"
	KindWeek   Kind = "week"
	KindMonth  Kind = "month"
	KindYear   Kind = "year"
	KindCustom Kind = "custom"
	KindUnique Kind = "unique"
)

// Kinds lists every shape in menu order.
var Kinds = []Kind{KindDay, KindWeek, KindMonth, KindYear, KindCustom, KindUnique}

func (k Kind) Valid() bool {
	return slices.Contains(Kinds, k)
}

// Config is one of DayConfig, WeekConfig, MonthConfig, YearConfig,
// CustomConfig or UniqueConfig. The set is closed.
type Config interface {
	Kind() Kind
	isConfig()
}

type DayConfig struct {
	Repetitions int
	Setting     DaySetting
}

type WeekConfig struct {
	Repetitions int
	WeekStart   time.Weekday
	Setting     WeekSetting
}

type MonthConfig struct {
	Repetitions int
	Setting     MonthSetting
}

type YearConfig struct {
	Repetitions int
	YearStart   time.Month
}

// CustomConfig holds irregular dates, kept sorted ascending once built.
type CustomConfig struct {
	Dates []time.Time
}

type UniqueConfig struct {
	Date time.Time
}

func (DayConfig) Kind() Kind    { return KindDay }
func (WeekConfig) Kind() Kind   { return KindWeek }
func (MonthConfig) Kind() Kind  { return KindMonth }
func (YearConfig) Kind() Kind   { return KindYear }
func (CustomConfig) Kind() Kind { return KindCustom }
func (UniqueConfig) Kind() Kind { return KindUnique }

func (DayConfig) isConfig()    {}
func (WeekConfig) isConfig()   {}
func (MonthConfig) isConfig()  {}
func (YearConfig) isConfig()   {}
func (CustomConfig) isConfig() {}
func (UniqueConfig) isConfig() {}

// ---------------------------------------------------------------------------
// Day settings

type DaySetting interface {
	daySetting()
}

type EveryDay struct{}

type EveryNDays struct {
	N int
}

type SpecificDaysWeek struct {
	Weekdays []time.Weekday
}

// SpecificDaysMonthFromFirst counts from the first day of the month: 0 is the 1st.
type SpecificDaysMonthFromFirst struct {
	Days []int
}

// SpecificDaysMonthFromLast counts back from the last day: 0 is the last day.
type SpecificDaysMonthFromLast struct {
	Offsets []int
}

// NthWeekday is "the 2nd Tuesday" (Position 2) or "the last Friday"
// (Position -1).
type NthWeekday struct {
	Position int
	Weekday  time.Weekday
}

type SpecificNthWeekdaysMonth struct {
	Entries []NthWeekday
}

type DaysPerWeek struct {
	Count int
}

type DaysPerFortnight struct {
	Count int
}

type DaysPerMonth struct {
	Count int
}

type DaysPerYear struct {
	Count int
}

func (EveryDay) daySetting()                   {}
func (EveryNDays) daySetting()                 {}
func (SpecificDaysWeek) daySetting()           {}
func (SpecificDaysMonthFromFirst) daySetting() {}
func (SpecificDaysMonthFromLast) daySetting()  {}
func (SpecificNthWeekdaysMonth) daySetting()   {}
func (DaysPerWeek) daySetting()                {}
func (DaysPerFortnight) daySetting()           {}
func (DaysPerMonth) daySetting()               {}
func (DaysPerYear) daySetting()                {}

// ---------------------------------------------------------------------------
// Week settings

type WeekSetting interface {
	weekSetting()
}

type EveryWeek struct{}

type EveryNWeeks struct {
	N int
}

type SpecificWeeksOfMonthFromFirst struct {
	Weeks []int
}

type SpecificWeeksOfMonthFromLast struct {
	Weeks []int
}

type WeeksPerMonth struct {
	Count int
}

func (EveryWeek) weekSetting()                     {}
func (EveryNWeeks) weekSetting()                   {}
func (SpecificWeeksOfMonthFromFirst) weekSetting() {}
func (SpecificWeeksOfMonthFromLast) weekSetting()  {}
func (WeeksPerMonth) weekSetting()                 {}

// ---------------------------------------------------------------------------
// Month settings

type MonthSetting interface {
	monthSetting()
}

type EveryMonth struct{}

type EveryNMonths struct {
	N int
}

type SpecificMonths struct {
	Months []time.Month
}

func (EveryMonth) monthSetting()     {}
func (EveryNMonths) monthSetting()   {}
func (SpecificMonths) monthSetting() {}

// ---------------------------------------------------------------------------

// Timeframe bounds the active range of a periodicity. A zero End leaves the
// range open.
type Timeframe struct {
	Start time.Time
	End   time.Time
}

// Periodicity is a validated recurrence rule. Values only come out of a
// Builder (or UnmarshalJSON, which uses one) and never change afterwards;
// editing a task's schedule means building a new Periodicity.
type Periodicity struct {
	config    Config
	anchor    time.Time
	timeframe *Timeframe
}

func (p Periodicity) IsZero() bool {
	return p.config == nil
}

func (p Periodicity) Kind() Kind {
	if p.config == nil {
		return ""
	}
	return p.config.Kind()
}

// Config returns a copy of the rule; mutating it does not affect p.
func (p Periodicity) Config() Config {
	return cloneConfig(p.config)
}

// Anchor is the phase reference for interval rules and supplies the
// time of day for every generated occurrence.
func (p Periodicity) Anchor() time.Time {
	return p.anchor
}

func (p Periodicity) Timeframe() (Timeframe, bool) {
	if p.timeframe == nil {
		return Timeframe{}, false
	}
	return *p.timeframe, true
}

// Equal reports whether two periodicities describe the same rule, including
// the named zone of the anchor.
func (p Periodicity) Equal(o Periodicity) bool {
	a, errA := p.MarshalJSON()
	b, errB := o.MarshalJSON()
	if errA != nil || errB != nil {
		return false
	}
	return string(a) == string(b)
}

func cloneConfig(c Config) Config {
	switch v := c.(type) {
	case DayConfig:
		v.Setting = cloneDaySetting(v.Setting)
		return v
	case WeekConfig:
		v.Setting = cloneWeekSetting(v.Setting)
		return v
	case MonthConfig:
		v.Setting = cloneMonthSetting(v.Setting)
		return v
	case CustomConfig:
		v.Dates = slices.Clone(v.Dates)
		return v
	default:
		return c
	}
}

func cloneDaySetting(s DaySetting) DaySetting {
	switch v := s.(type) {
	case SpecificDaysWeek:
		v.Weekdays = slices.Clone(v.Weekdays)
		return v
	case SpecificDaysMonthFromFirst:
		v.Days = slices.Clone(v.Days)
		return v
	case SpecificDaysMonthFromLast:
		v.Offsets = slices.Clone(v.Offsets)
		return v
	case SpecificNthWeekdaysMonth:
		v.Entries = slices.Clone(v.Entries)
		return v
	default:
		return s
	}
}

func cloneWeekSetting(s WeekSetting) WeekSetting {
	switch v := s.(type) {
	case SpecificWeeksOfMonthFromFirst:
		v.Weeks = slices.Clone(v.Weeks)
		return v
	case SpecificWeeksOfMonthFromLast:
		v.Weeks = slices.Clone(v.Weeks)
		return v
	default:
		return s
	}
}

func cloneMonthSetting(s MonthSetting) MonthSetting {
	if v, ok := s.(SpecificMonths); ok {
		v.Months = slices.Clone(v.Months)
		return v
	}
	return s
}
