package periodicity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRRule(t *testing.T) {
	tests := []struct {
		name string
		p    Periodicity
		want string
		ok   bool
	}{
		{
			name: "every third day",
			p:    dayRule(t, 1, EveryNDays{N: 3}),
			want: "FREQ=DAILY;INTERVAL=3",
			ok:   true,
		},
		{
			name: "weekdays sorted",
			p:    dayRule(t, 1, SpecificDaysWeek{Weekdays: []time.Weekday{time.Friday, time.Monday}}),
			want: "FREQ=WEEKLY;BYDAY=MO,FR",
			ok:   true,
		},
		{
			name: "days from last",
			p:    dayRule(t, 1, SpecificDaysMonthFromLast{Offsets: []int{0, 2}}),
			want: "FREQ=MONTHLY;BYMONTHDAY=-1,-3",
			ok:   true,
		},
		{
			name: "nth weekdays",
			p:    dayRule(t, 1, SpecificNthWeekdaysMonth{Entries: []NthWeekday{{2, time.Tuesday}, {-1, time.Friday}}}),
			want: "FREQ=MONTHLY;BYDAY=2TU,-1FR",
			ok:   true,
		},
		{
			name: "fortnightly with end",
			p: mustBuild(t, NewBuilder(KindWeek).WithAnchor(anchor).WithWeekSetting(EveryNWeeks{N: 2}).
				WithTimeframe(anchor, at(2026, time.June, 30, 0))),
			want: "FREQ=WEEKLY;INTERVAL=2;BYDAY=MO;WKST=MO;UNTIL=20260629T235959Z",
			ok:   true,
		},
		{
			name: "weekly on sunday start",
			p: mustBuild(t, NewBuilder(KindWeek).WithAnchor(anchor).WithWeekStart(time.Sunday).
				WithWeekSetting(EveryWeek{})),
			want: "FREQ=WEEKLY;BYDAY=SU;WKST=SU",
			ok:   true,
		},
		{
			name: "specific months",
			p: mustBuild(t, NewBuilder(KindMonth).WithAnchor(anchor).
				WithMonthSetting(SpecificMonths{Months: []time.Month{time.December, time.June}})),
			want: "FREQ=YEARLY;BYMONTH=6,12;BYMONTHDAY=1",
			ok:   true,
		},
		{
			name: "yearly",
			p:    mustBuild(t, NewBuilder(KindYear).WithAnchor(anchor).WithYearStart(time.March)),
			want: "FREQ=YEARLY;BYMONTH=3;BYMONTHDAY=1",
			ok:   true,
		},
		{name: "several per day", p: dayRule(t, 3, EveryDay{})},
		{name: "count only", p: dayRule(t, 1, DaysPerWeek{Count: 3})},
		{name: "unique", p: mustBuild(t, NewBuilder(KindUnique).WithDate(anchor))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := RRule(tt.p)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRDates(t *testing.T) {
	p := mustBuild(t, NewBuilder(KindCustom).WithDates(at(2026, time.July, 4, 12), at(2026, time.May, 1, 8)))
	got := RDates(p)
	assertTimes(t, []time.Time{at(2026, time.May, 1, 8), at(2026, time.July, 4, 12)}, got)

	assert.Nil(t, RDates(dayRule(t, 1, EveryDay{})))
}

func TestFirstOccurrence(t *testing.T) {
	// anchor is a Thursday; weekly slots start on Monday.
	weekly := mustBuild(t, NewBuilder(KindWeek).WithAnchor(anchor).WithWeekSetting(EveryWeek{}))
	got, ok, err := FirstOccurrence(weekly)
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, at(2026, time.January, 5, 9).Equal(got), "%s", got)

	monthly := mustBuild(t, NewBuilder(KindMonth).WithAnchor(at(2026, time.January, 15, 9)).WithMonthSetting(EveryMonth{}))
	got, ok, err = FirstOccurrence(monthly)
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, at(2026, time.February, 1, 9).Equal(got), "%s", got)

	daily := dayRule(t, 1, EveryDay{})
	got, ok, err = FirstOccurrence(daily)
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, anchor.Equal(got))
}
