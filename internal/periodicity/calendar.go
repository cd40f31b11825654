package periodicity

import "time"

// Civil day numbers count days since 1970-01-01 in the proleptic Gregorian
// calendar. They carry no zone, so day arithmetic is immune to DST.

const secondsPerDay = 24 * 60 * 60

func dayNumber(y int, m time.Month, d int) int64 {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / secondsPerDay
}

func civil(n int64) (int, time.Month, int) {
	return time.Unix(n*secondsPerDay, 0).UTC().Date()
}

func dayOf(t time.Time) int64 {
	y, m, d := t.Date()
	return dayNumber(y, m, d)
}

// weekdayOf uses the fact that day 0 was a Thursday.
func weekdayOf(n int64) time.Weekday {
	return time.Weekday(floorMod(n+int64(time.Thursday), 7))
}

// startOfWeek returns the latest day <= n that falls on ws.
func startOfWeek(n int64, ws time.Weekday) int64 {
	return n - floorMod(int64(weekdayOf(n))-int64(ws), 7)
}

func daysIn(y int, m time.Month) int {
	return time.Date(y, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func daysInYear(y int) int {
	if time.Date(y, time.December, 31, 0, 0, 0, 0, time.UTC).YearDay() == 366 {
		return 366
	}
	return 365
}

// monthIndex flattens (year, month) so that consecutive months differ by 1.
func monthIndex(y int, m time.Month) int64 {
	return int64(y)*12 + int64(m-1)
}

func fromMonthIndex(i int64) (int, time.Month) {
	return int(floorDiv(i, 12)), time.Month(floorMod(i, 12) + 1)
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func floorMod(a, b int64) int64 {
	m := a % b
	if m != 0 && ((m < 0) != (b < 0)) {
		m += b
	}
	return m
}

// nthWeekdayOfMonth returns the day of month of the pos-th wd (negative pos
// counts from the end), or 0 when the month has no such day.
func nthWeekdayOfMonth(y int, m time.Month, wd time.Weekday, pos int) int {
	dim := daysIn(y, m)
	if pos > 0 {
		first := weekdayOf(dayNumber(y, m, 1))
		dom := 1 + int(floorMod(int64(wd)-int64(first), 7)) + (pos-1)*7
		if dom > dim {
			return 0
		}
		return dom
	}
	last := weekdayOf(dayNumber(y, m, dim))
	dom := dim - int(floorMod(int64(last)-int64(wd), 7)) + (pos+1)*7
	if dom < 1 {
		return 0
	}
	return dom
}

// spread returns k offsets evenly placed over a span of n units, starting
// at 0. Offsets repeat when k > n.
func spread(k, n int) []int {
	out := make([]int, 0, k)
	for i := 0; i < k; i++ {
		out = append(out, i*n/k)
	}
	return out
}
