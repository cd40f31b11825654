package periodicity

import (
	"fmt"
	"slices"
	"sort"
	"time"
)

// DefaultMaxSpan caps the width of a window Resolve agrees to expand.
const DefaultMaxSpan = 50 * 366 * 24 * time.Hour

// Window is the half-open interval [From, To).
type Window struct {
	From time.Time
	To   time.Time
}

func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.From) && t.Before(w.To)
}

// Resolver turns periodicities into concrete occurrences. The zero value
// uses DefaultMaxSpan.
type Resolver struct {
	MaxSpan time.Duration
}

func NewResolver(maxSpan time.Duration) Resolver {
	if maxSpan <= 0 {
		maxSpan = DefaultMaxSpan
	}
	return Resolver{MaxSpan: maxSpan}
}

func (r Resolver) maxSpan() time.Duration {
	if r.MaxSpan <= 0 {
		return DefaultMaxSpan
	}
	return r.MaxSpan
}

// Resolve expands p over w with the default resolver.
func Resolve(p Periodicity, w Window) ([]time.Time, error) {
	return Resolver{}.Resolve(p, w)
}

// Resolve returns every occurrence of p inside w, strictly ascending.
// Work is proportional to the window, never to the distance from the anchor.
func (r Resolver) Resolve(p Periodicity, w Window) ([]time.Time, error) {
	if err := validatePeriodicity(p); err != nil {
		return nil, &ResolverError{Kind: ErrInvalidState, Reason: err.Error()}
	}
	if w.From.IsZero() || w.To.IsZero() {
		return nil, &ResolverError{Kind: ErrMalformedWindow, Reason: "window bounds are required"}
	}
	if !w.From.Before(w.To) {
		return nil, &ResolverError{Kind: ErrMalformedWindow, Reason: "window start must be before its end"}
	}
	if span := w.To.Sub(w.From); span > r.maxSpan() {
		return nil, &ResolverError{Kind: ErrWindowTooLarge, Reason: fmt.Sprintf("%s exceeds %s", span, r.maxSpan())}
	}

	from, to := w.From, w.To
	if tf := p.timeframe; tf != nil {
		if tf.Start.After(from) {
			from = tf.Start
		}
		if !tf.End.IsZero() && tf.End.Before(to) {
			to = tf.End
		}
		if !from.Before(to) {
			return []time.Time{}, nil
		}
	}

	switch c := p.config.(type) {
	case UniqueConfig:
		if !c.Date.Before(from) && c.Date.Before(to) {
			return []time.Time{c.Date}, nil
		}
		return []time.Time{}, nil
	case CustomConfig:
		lo := sort.Search(len(c.Dates), func(i int) bool { return !c.Dates[i].Before(from) })
		hi := sort.Search(len(c.Dates), func(i int) bool { return !c.Dates[i].Before(to) })
		return slices.Clone(c.Dates[lo:hi]), nil
	}

	e := newExpander(p.anchor, from, to)
	switch c := p.config.(type) {
	case DayConfig:
		e.day(c)
	case WeekConfig:
		e.week(c)
	case MonthConfig:
		e.month(c)
	case YearConfig:
		e.year(c)
	default:
		return nil, &ResolverError{Kind: ErrInvalidState, Reason: fmt.Sprintf("unhandled config %T", c)}
	}
	return finalize(e.out, from, to), nil
}

// Next returns the first occurrence strictly after t, searching at most
// MaxSpan ahead.
func (r Resolver) Next(p Periodicity, t time.Time) (time.Time, bool, error) {
	if err := validatePeriodicity(p); err != nil {
		return time.Time{}, false, &ResolverError{Kind: ErrInvalidState, Reason: err.Error()}
	}
	chunk := 366 * 24 * time.Hour
	if chunk > r.maxSpan() {
		chunk = r.maxSpan()
	}
	from := t.Add(time.Nanosecond)
	for covered := time.Duration(0); covered < r.maxSpan(); covered += chunk {
		if tf := p.timeframe; tf != nil && !tf.End.IsZero() && !from.Before(tf.End) {
			break
		}
		occ, err := r.Resolve(p, Window{From: from, To: from.Add(chunk)})
		if err != nil {
			return time.Time{}, false, err
		}
		if len(occ) > 0 {
			return occ[0], true, nil
		}
		from = from.Add(chunk)
	}
	return time.Time{}, false, nil
}

// finalize keeps [from, to), sorts and drops repeated instants.
func finalize(cands []time.Time, from, to time.Time) []time.Time {
	out := make([]time.Time, 0, len(cands))
	for _, c := range cands {
		if !c.Before(from) && c.Before(to) {
			out = append(out, c)
		}
	}
	slices.SortFunc(out, func(a, b time.Time) int { return a.Compare(b) })
	return slices.CompactFunc(out, func(a, b time.Time) bool { return a.Equal(b) })
}

// expander collects candidate occurrences for the civil days spanned by a
// window. Candidates may spill slightly outside; finalize trims them.
type expander struct {
	loc       *time.Location
	clock     time.Duration
	anchorDay int64
	firstDay  int64
	lastDay   int64
	out       []time.Time
}

func newExpander(anchor, from, to time.Time) *expander {
	loc := anchor.Location()
	h, m, s := anchor.Clock()
	clock := time.Duration(h)*time.Hour + time.Duration(m)*time.Minute +
		time.Duration(s)*time.Second + time.Duration(anchor.Nanosecond())
	return &expander{
		loc:       loc,
		clock:     clock,
		anchorDay: dayOf(anchor),
		firstDay:  dayOf(from.In(loc)),
		lastDay:   dayOf(to.In(loc)),
	}
}

func (e *expander) at(day int64, offset time.Duration) time.Time {
	y, m, d := civil(day)
	return time.Date(y, m, d, 0, 0, 0, int(offset), e.loc)
}

func (e *expander) emit(day int64) {
	e.out = append(e.out, e.at(day, e.clock))
}

// emitReps places reps instants in one day, spaced 24h/reps apart and
// phased on the anchor's time of day.
func (e *expander) emitReps(day int64, reps int) {
	if reps <= 1 {
		e.emit(day)
		return
	}
	step := 24 * time.Hour / time.Duration(reps)
	phase := e.clock % step
	for k := 0; k < reps; k++ {
		e.out = append(e.out, e.at(day, phase+time.Duration(k)*step))
	}
}

func (e *expander) eachMonth(fn func(y int, m time.Month)) {
	fy, fm, _ := civil(e.firstDay)
	ly, lm, _ := civil(e.lastDay)
	for i := monthIndex(fy, fm); i <= monthIndex(ly, lm); i++ {
		y, m := fromMonthIndex(i)
		fn(y, m)
	}
}

// countPerBlock places count days in each block of length days, blocks
// starting at start and repeating until the window is covered.
func (e *expander) countPerBlock(start int64, length, count int) {
	offsets := spread(count, length)
	for s := start; s <= e.lastDay; s += int64(length) {
		for _, off := range offsets {
			e.emit(s + int64(off))
		}
	}
}

func (e *expander) day(c DayConfig) {
	switch s := c.Setting.(type) {
	case EveryDay:
		for n := e.firstDay; n <= e.lastDay; n++ {
			e.emitReps(n, c.Repetitions)
		}
	case EveryNDays:
		step := int64(s.N)
		for n := e.firstDay + floorMod(e.anchorDay-e.firstDay, step); n <= e.lastDay; n += step {
			e.emitReps(n, c.Repetitions)
		}
	case SpecificDaysWeek:
		for n := e.firstDay; n <= e.lastDay; n++ {
			if slices.Contains(s.Weekdays, weekdayOf(n)) {
				e.emit(n)
			}
		}
	case SpecificDaysMonthFromFirst:
		e.eachMonth(func(y int, m time.Month) {
			dim := daysIn(y, m)
			for _, v := range s.Days {
				if dom := v + 1; dom <= dim {
					e.emit(dayNumber(y, m, dom))
				}
			}
		})
	case SpecificDaysMonthFromLast:
		e.eachMonth(func(y int, m time.Month) {
			dim := daysIn(y, m)
			for _, v := range s.Offsets {
				if dom := dim - v; dom >= 1 {
					e.emit(dayNumber(y, m, dom))
				}
			}
		})
	case SpecificNthWeekdaysMonth:
		e.eachMonth(func(y int, m time.Month) {
			for _, entry := range s.Entries {
				if dom := nthWeekdayOfMonth(y, m, entry.Weekday, entry.Position); dom > 0 {
					e.emit(dayNumber(y, m, dom))
				}
			}
		})
	case DaysPerWeek:
		e.countPerBlock(startOfWeek(e.firstDay, time.Monday), 7, s.Count)
	case DaysPerFortnight:
		origin := startOfWeek(e.anchorDay, time.Monday)
		start := origin + floorDiv(e.firstDay-origin, 14)*14
		e.countPerBlock(start, 14, s.Count)
	case DaysPerMonth:
		e.eachMonth(func(y int, m time.Month) {
			first := dayNumber(y, m, 1)
			for _, off := range spread(s.Count, daysIn(y, m)) {
				e.emit(first + int64(off))
			}
		})
	case DaysPerYear:
		fy, _, _ := civil(e.firstDay)
		ly, _, _ := civil(e.lastDay)
		for y := fy; y <= ly; y++ {
			first := dayNumber(y, time.January, 1)
			for _, off := range spread(s.Count, daysInYear(y)) {
				e.emit(first + int64(off))
			}
		}
	}
}

func (e *expander) week(c WeekConfig) {
	ws := c.WeekStart
	spreadWeek := func(start int64) {
		for _, off := range spread(c.Repetitions, 7) {
			e.emit(start + int64(off))
		}
	}

	switch s := c.Setting.(type) {
	case EveryWeek:
		for st := startOfWeek(e.firstDay, ws); st <= e.lastDay; st += 7 {
			spreadWeek(st)
		}
	case EveryNWeeks:
		step := int64(7 * s.N)
		origin := startOfWeek(e.anchorDay, ws)
		s0 := startOfWeek(e.firstDay, ws)
		for st := s0 + floorMod(origin-s0, step); st <= e.lastDay; st += step {
			spreadWeek(st)
		}
	case SpecificWeeksOfMonthFromFirst:
		e.eachMonth(func(y int, m time.Month) {
			for _, w := range s.Weeks {
				if dom := nthWeekdayOfMonth(y, m, ws, w); dom > 0 {
					e.emit(dayNumber(y, m, dom))
				}
			}
		})
	case SpecificWeeksOfMonthFromLast:
		e.eachMonth(func(y int, m time.Month) {
			for _, w := range s.Weeks {
				if dom := nthWeekdayOfMonth(y, m, ws, -w); dom > 0 {
					e.emit(dayNumber(y, m, dom))
				}
			}
		})
	case WeeksPerMonth:
		e.eachMonth(func(y int, m time.Month) {
			var starts []int
			for dom := nthWeekdayOfMonth(y, m, ws, 1); dom > 0 && dom <= daysIn(y, m); dom += 7 {
				starts = append(starts, dom)
			}
			for _, i := range spread(s.Count, len(starts)) {
				e.emit(dayNumber(y, m, starts[i]))
			}
		})
	}
}

func (e *expander) month(c MonthConfig) {
	spreadMonth := func(y int, m time.Month) {
		first := dayNumber(y, m, 1)
		for _, off := range spread(c.Repetitions, daysIn(y, m)) {
			e.emit(first + int64(off))
		}
	}

	switch s := c.Setting.(type) {
	case EveryMonth:
		e.eachMonth(spreadMonth)
	case EveryNMonths:
		fy, fm, _ := civil(e.firstDay)
		ly, lm, _ := civil(e.lastDay)
		ay, am, _ := civil(e.anchorDay)
		fi, li, ai := monthIndex(fy, fm), monthIndex(ly, lm), monthIndex(ay, am)
		step := int64(s.N)
		for i := fi + floorMod(ai-fi, step); i <= li; i += step {
			spreadMonth(fromMonthIndex(i))
		}
	case SpecificMonths:
		e.eachMonth(func(y int, m time.Month) {
			if slices.Contains(s.Months, m) {
				e.emit(dayNumber(y, m, 1))
			}
		})
	}
}

// year starts each cycle on the first day of YearStart; a cycle that began
// the previous calendar year can still land in the window.
func (e *expander) year(c YearConfig) {
	fy, _, _ := civil(e.firstDay)
	ly, _, _ := civil(e.lastDay)
	for y := fy - 1; y <= ly; y++ {
		base := monthIndex(y, c.YearStart)
		for _, off := range spread(c.Repetitions, 12) {
			yy, mm := fromMonthIndex(base + int64(off))
			e.emit(dayNumber(yy, mm, 1))
		}
	}
}
