package periodicity

import (
	"fmt"
	"slices"
	"time"
)

// Bounds for every scalar a periodicity carries.
const (
	MaxEveryNDays       = 366
	MaxDayOfMonthOffset = 30
	MaxNthPosition      = 5
	MaxDaysPerWeek      = 7
	MaxDaysPerFortnight = 14
	MaxDaysPerMonth     = 31
	MaxDaysPerYear      = 366
	MaxEveryNWeeks      = 52
	MaxWeekOfMonth      = 4
	MaxWeeksPerMonth    = 4
	MaxEveryNMonths     = 12

	MaxRepsPerDaySlot   = 24
	MaxRepsPerWeek      = 7
	MaxRepsPerMonthSlot = 28
	MaxRepsPerYear      = 12
)

// Validate checks a config without touching it. Range checks run first,
// then set checks, then cross-field consistency; the first failure is
// returned.
func Validate(c Config) error {
	switch v := c.(type) {
	case DayConfig:
		return validateDay(v)
	case WeekConfig:
		return validateWeek(v)
	case MonthConfig:
		return validateMonth(v)
	case YearConfig:
		return validateYear(v)
	case CustomConfig:
		return validateCustom(v)
	case UniqueConfig:
		if v.Date.IsZero() {
			return &InconsistentError{Reason: "unique.date is required"}
		}
		return nil
	case nil:
		return &InconsistentError{Reason: "periodicity has no rule"}
	default:
		return &InconsistentError{Reason: fmt.Sprintf("unknown periodicity config %T", c)}
	}
}

func validateDay(c DayConfig) error {
	if c.Setting == nil {
		return &InconsistentError{Reason: "day setting is required"}
	}

	repMax := MaxDaysPerYear
	if isDayInterval(c.Setting) {
		repMax = MaxRepsPerDaySlot
	}
	if err := checkRange("day.repetitions", c.Repetitions, 1, repMax); err != nil {
		return err
	}

	switch s := c.Setting.(type) {
	case EveryDay:
		return nil
	case EveryNDays:
		return checkRange("day.every_n_days", s.N, 1, MaxEveryNDays)
	case SpecificDaysWeek:
		for _, d := range s.Weekdays {
			if err := checkWeekday("day.weekdays", d); err != nil {
				return err
			}
		}
		if err := checkSet("day.weekdays", s.Weekdays, 7); err != nil {
			return err
		}
		return checkRepsWithinSet("day", c.Repetitions, len(s.Weekdays), "weekdays")
	case SpecificDaysMonthFromFirst:
		for _, d := range s.Days {
			if err := checkRange("day.days_from_first", d, 0, MaxDayOfMonthOffset); err != nil {
				return err
			}
		}
		if err := checkSet("day.days_from_first", s.Days, MaxDayOfMonthOffset+1); err != nil {
			return err
		}
		return checkRepsWithinSet("day", c.Repetitions, len(s.Days), "days of month")
	case SpecificDaysMonthFromLast:
		for _, d := range s.Offsets {
			if err := checkRange("day.days_from_last", d, 0, MaxDayOfMonthOffset); err != nil {
				return err
			}
		}
		if err := checkSet("day.days_from_last", s.Offsets, MaxDayOfMonthOffset+1); err != nil {
			return err
		}
		return checkRepsWithinSet("day", c.Repetitions, len(s.Offsets), "days of month")
	case SpecificNthWeekdaysMonth:
		for _, e := range s.Entries {
			if e.Position == 0 {
				return &OutOfRangeError{Field: "day.nth_weekdays.position", Min: -MaxNthPosition, Max: MaxNthPosition, Got: 0}
			}
			if err := checkRange("day.nth_weekdays.position", e.Position, -MaxNthPosition, MaxNthPosition); err != nil {
				return err
			}
			if err := checkWeekday("day.nth_weekdays.weekday", e.Weekday); err != nil {
				return err
			}
		}
		if err := checkSet("day.nth_weekdays", s.Entries, 0); err != nil {
			return err
		}
		return checkRepsWithinSet("day", c.Repetitions, len(s.Entries), "nth weekdays")
	case DaysPerWeek:
		return checkCount("day.days_per_week", "day", c.Repetitions, s.Count, MaxDaysPerWeek)
	case DaysPerFortnight:
		return checkCount("day.days_per_fortnight", "day", c.Repetitions, s.Count, MaxDaysPerFortnight)
	case DaysPerMonth:
		return checkCount("day.days_per_month", "day", c.Repetitions, s.Count, MaxDaysPerMonth)
	case DaysPerYear:
		return checkCount("day.days_per_year", "day", c.Repetitions, s.Count, MaxDaysPerYear)
	default:
		return &InconsistentError{Reason: fmt.Sprintf("unknown day setting %T", c.Setting)}
	}
}

func validateWeek(c WeekConfig) error {
	if c.Setting == nil {
		return &InconsistentError{Reason: "week setting is required"}
	}
	if err := checkRange("week.repetitions", c.Repetitions, 1, MaxRepsPerWeek); err != nil {
		return err
	}
	if err := checkWeekday("week.week_start", c.WeekStart); err != nil {
		return err
	}

	switch s := c.Setting.(type) {
	case EveryWeek:
		return nil
	case EveryNWeeks:
		return checkRange("week.every_n_weeks", s.N, 1, MaxEveryNWeeks)
	case SpecificWeeksOfMonthFromFirst:
		return checkWeeksOfMonth("week.weeks_from_first", c.Repetitions, s.Weeks)
	case SpecificWeeksOfMonthFromLast:
		return checkWeeksOfMonth("week.weeks_from_last", c.Repetitions, s.Weeks)
	case WeeksPerMonth:
		return checkCount("week.weeks_per_month", "week", c.Repetitions, s.Count, MaxWeeksPerMonth)
	default:
		return &InconsistentError{Reason: fmt.Sprintf("unknown week setting %T", c.Setting)}
	}
}

func validateMonth(c MonthConfig) error {
	if c.Setting == nil {
		return &InconsistentError{Reason: "month setting is required"}
	}

	repMax := MaxRepsPerMonthSlot
	if _, ok := c.Setting.(SpecificMonths); ok {
		repMax = 12
	}
	if err := checkRange("month.repetitions", c.Repetitions, 1, repMax); err != nil {
		return err
	}

	switch s := c.Setting.(type) {
	case EveryMonth:
		return nil
	case EveryNMonths:
		return checkRange("month.every_n_months", s.N, 1, MaxEveryNMonths)
	case SpecificMonths:
		for _, m := range s.Months {
			if err := checkRange("month.months", int(m), 1, 12); err != nil {
				return err
			}
		}
		if err := checkSet("month.months", s.Months, 12); err != nil {
			return err
		}
		return checkRepsWithinSet("month", c.Repetitions, len(s.Months), "months")
	default:
		return &InconsistentError{Reason: fmt.Sprintf("unknown month setting %T", c.Setting)}
	}
}

func validateYear(c YearConfig) error {
	if err := checkRange("year.repetitions", c.Repetitions, 1, MaxRepsPerYear); err != nil {
		return err
	}
	return checkRange("year.year_start", int(c.YearStart), 1, 12)
}

func validateCustom(c CustomConfig) error {
	if len(c.Dates) == 0 {
		return &EmptySetError{Field: "custom.dates"}
	}
	for _, d := range c.Dates {
		if d.IsZero() {
			return &InconsistentError{Reason: "custom.dates contains a zero instant"}
		}
	}
	sorted := slices.Clone(c.Dates)
	slices.SortFunc(sorted, func(a, b time.Time) int { return a.Compare(b) })
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Equal(sorted[i-1]) {
			return &DuplicateError{Field: "custom.dates"}
		}
	}
	return nil
}

// validatePeriodicity re-checks everything a built value must satisfy,
// including the invariants the builder establishes on top of Validate.
func validatePeriodicity(p Periodicity) error {
	if p.config == nil {
		return &InconsistentError{Reason: "periodicity has no rule"}
	}
	if err := Validate(p.config); err != nil {
		return err
	}
	if p.anchor.IsZero() {
		return &InconsistentError{Reason: "anchor is required"}
	}
	if c, ok := p.config.(CustomConfig); ok {
		if !slices.IsSortedFunc(c.Dates, func(a, b time.Time) int { return a.Compare(b) }) {
			return &InconsistentError{Reason: "custom dates are not sorted"}
		}
	}
	if p.timeframe != nil {
		return validateTimeframe(*p.timeframe)
	}
	return nil
}

func validateTimeframe(tf Timeframe) error {
	if tf.Start.IsZero() {
		return &InconsistentError{Reason: "timeframe start is required"}
	}
	if !tf.End.IsZero() && !tf.End.After(tf.Start) {
		return &InconsistentError{Reason: "timeframe end must be after its start"}
	}
	return nil
}

func isDayInterval(s DaySetting) bool {
	switch s.(type) {
	case EveryDay, EveryNDays:
		return true
	default:
		return false
	}
}

func checkRange(field string, v, min, max int) error {
	if v < min || v > max {
		return &OutOfRangeError{Field: field, Min: min, Max: max, Got: v}
	}
	return nil
}

func checkWeekday(field string, d time.Weekday) error {
	return checkRange(field, int(d), int(time.Sunday), int(time.Saturday))
}

// checkSet enforces non-empty, duplicate-free and (when max > 0) a size bound.
func checkSet[T comparable](field string, vals []T, max int) error {
	if len(vals) == 0 {
		return &EmptySetError{Field: field}
	}
	seen := make(map[T]struct{}, len(vals))
	for _, v := range vals {
		if _, ok := seen[v]; ok {
			return &DuplicateError{Field: field}
		}
		seen[v] = struct{}{}
	}
	if max > 0 && len(vals) > max {
		return &OutOfRangeError{Field: field, Min: 1, Max: max, Got: len(vals)}
	}
	return nil
}

func checkRepsWithinSet(unit string, reps, size int, what string) error {
	if reps > size {
		return &InconsistentError{Reason: fmt.Sprintf("%d repetitions per %s but only %d %s named", reps, unit, size, what)}
	}
	return nil
}

func checkCount(field, unit string, reps, count, capacity int) error {
	if err := checkRange(field, count, 1, capacity); err != nil {
		return err
	}
	if reps > count {
		return &InconsistentError{Reason: fmt.Sprintf("%d repetitions per %s exceed the declared count %d", reps, unit, count)}
	}
	return nil
}

func checkWeeksOfMonth(field string, reps int, weeks []int) error {
	for _, w := range weeks {
		if err := checkRange(field, w, 1, MaxWeekOfMonth); err != nil {
			return err
		}
	}
	if err := checkSet(field, weeks, MaxWeekOfMonth); err != nil {
		return err
	}
	return checkRepsWithinSet("week", reps, len(weeks), "weeks of month")
}
