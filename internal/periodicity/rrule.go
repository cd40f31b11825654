package periodicity

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
)

var icsWeekdays = [...]string{"SU", "MO", "TU", "WE", "TH", "FR", "SA"}

// RRule renders p as an RFC 5545 recurrence rule. It must be paired with a
// DTSTART that is itself an occurrence (see FirstOccurrence). ok is false for shapes
// iCalendar cannot express (count-only settings, weeks of month, several
// repetitions per slot) and for custom and unique periodicities, which
// export as RDATE/DTSTART instead.
func RRule(p Periodicity) (rule string, ok bool) {
	parts, ok := rrulePartsFor(p)
	if !ok {
		return "", false
	}
	// UNTIL is inclusive while the timeframe end is not.
	if tf, has := p.Timeframe(); has && !tf.End.IsZero() {
		parts = append(parts, "UNTIL="+tf.End.Add(-time.Second).UTC().Format("20060102T150405Z"))
	}
	return strings.Join(parts, ";"), true
}

func rrulePartsFor(p Periodicity) ([]string, bool) {
	switch c := p.config.(type) {
	case DayConfig:
		if c.Repetitions != 1 && isDayInterval(c.Setting) {
			return nil, false
		}
		return dayRRule(c.Setting)
	case WeekConfig:
		// Weekly slots fire on the week start, not on DTSTART's weekday.
		byday := "BYDAY=" + icsWeekdays[c.WeekStart]
		wkst := "WKST=" + icsWeekdays[c.WeekStart]
		switch s := c.Setting.(type) {
		case EveryWeek:
			if c.Repetitions != 1 {
				return nil, false
			}
			return []string{"FREQ=WEEKLY", byday, wkst}, true
		case EveryNWeeks:
			if c.Repetitions != 1 {
				return nil, false
			}
			return []string{"FREQ=WEEKLY", "INTERVAL=" + strconv.Itoa(s.N), byday, wkst}, true
		}
		return nil, false
	case MonthConfig:
		switch s := c.Setting.(type) {
		case EveryMonth:
			if c.Repetitions != 1 {
				return nil, false
			}
			return []string{"FREQ=MONTHLY", "BYMONTHDAY=1"}, true
		case EveryNMonths:
			if c.Repetitions != 1 {
				return nil, false
			}
			return []string{"FREQ=MONTHLY", "INTERVAL=" + strconv.Itoa(s.N), "BYMONTHDAY=1"}, true
		case SpecificMonths:
			months := slices.Clone(s.Months)
			slices.Sort(months)
			nums := make([]string, 0, len(months))
			for _, m := range months {
				nums = append(nums, strconv.Itoa(int(m)))
			}
			return []string{"FREQ=YEARLY", "BYMONTH=" + strings.Join(nums, ","), "BYMONTHDAY=1"}, true
		}
		return nil, false
	case YearConfig:
		if c.Repetitions != 1 {
			return nil, false
		}
		return []string{"FREQ=YEARLY", "BYMONTH=" + strconv.Itoa(int(c.YearStart)), "BYMONTHDAY=1"}, true
	default:
		return nil, false
	}
}

func dayRRule(s DaySetting) ([]string, bool) {
	switch v := s.(type) {
	case EveryDay:
		return []string{"FREQ=DAILY"}, true
	case EveryNDays:
		return []string{"FREQ=DAILY", "INTERVAL=" + strconv.Itoa(v.N)}, true
	case SpecificDaysWeek:
		days := slices.Clone(v.Weekdays)
		slices.Sort(days)
		codes := make([]string, 0, len(days))
		for _, d := range days {
			codes = append(codes, icsWeekdays[d])
		}
		return []string{"FREQ=WEEKLY", "BYDAY=" + strings.Join(codes, ",")}, true
	case SpecificDaysMonthFromFirst:
		days := slices.Clone(v.Days)
		slices.Sort(days)
		nums := make([]string, 0, len(days))
		for _, d := range days {
			nums = append(nums, strconv.Itoa(d+1))
		}
		return []string{"FREQ=MONTHLY", "BYMONTHDAY=" + strings.Join(nums, ",")}, true
	case SpecificDaysMonthFromLast:
		offs := slices.Clone(v.Offsets)
		slices.Sort(offs)
		nums := make([]string, 0, len(offs))
		for _, o := range offs {
			nums = append(nums, strconv.Itoa(-(o + 1)))
		}
		return []string{"FREQ=MONTHLY", "BYMONTHDAY=" + strings.Join(nums, ",")}, true
	case SpecificNthWeekdaysMonth:
		codes := make([]string, 0, len(v.Entries))
		for _, e := range v.Entries {
			codes = append(codes, fmt.Sprintf("%d%s", e.Position, icsWeekdays[e.Weekday]))
		}
		return []string{"FREQ=MONTHLY", "BYDAY=" + strings.Join(codes, ",")}, true
	default:
		return nil, false
	}
}

// RDates returns the explicit instants of a custom periodicity.
func RDates(p Periodicity) []time.Time {
	if c, ok := p.config.(CustomConfig); ok {
		return slices.Clone(c.Dates)
	}
	return nil
}

// FirstOccurrence is the earliest occurrence at or after the anchor, the
// DTSTART of an exported rule. ok is false when nothing falls inside the
// resolver's horizon.
func FirstOccurrence(p Periodicity) (time.Time, bool, error) {
	return Resolver{}.Next(p, p.anchor.Add(-time.Nanosecond))
}
