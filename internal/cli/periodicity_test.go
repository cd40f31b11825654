package cli

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tsadaash/internal/periodicity"
)

var formNow = time.Date(2026, time.January, 1, 9, 0, 0, 0, time.UTC)

func script(lines ...string) *strings.Reader {
	return strings.NewReader(strings.Join(lines, "\n") + "\n")
}

func TestPeriodicityForm_RepromptsOffendingField(t *testing.T) {
	var out bytes.Buffer
	p := NewPrompter(script(
		"day",
		"2026-01-01 09:00",
		"",
		"every_n_days",
		"0",
		"",
		"",
		"3",
	), &out)

	per, err := PeriodicityForm(p, time.UTC, formNow)
	require.NoError(t, err)

	rule, ok := periodicity.RRule(per)
	assert.True(t, ok)
	assert.Equal(t, "FREQ=DAILY;INTERVAL=3", rule)
	assert.True(t, per.Anchor().Equal(formNow))
	assert.Contains(t, out.String(), "day.every_n_days")
}

func TestPeriodicityForm_InconsistentRepetitions(t *testing.T) {
	var out bytes.Buffer
	p := NewPrompter(script(
		"day",
		"2026-01-05",
		"3",
		"specific_days_week",
		"mon, thu",
		"",
		"2",
	), &out)

	per, err := PeriodicityForm(p, time.UTC, formNow)
	require.NoError(t, err)
	c, ok := per.Config().(periodicity.DayConfig)
	require.True(t, ok)
	assert.Equal(t, 2, c.Repetitions)
	assert.Equal(t, periodicity.SpecificDaysWeek{Weekdays: []time.Weekday{time.Monday, time.Thursday}}, c.Setting)
}

func TestPeriodicityForm_UnknownWeekdayAsksSettingAgain(t *testing.T) {
	var out bytes.Buffer
	p := NewPrompter(script(
		"day",
		"2026-01-05",
		"",
		"specific_days_week",
		"mon, funday",
		"",
		"",
		"mon fri",
	), &out)

	per, err := PeriodicityForm(p, time.UTC, formNow)
	require.NoError(t, err)
	rule, ok := periodicity.RRule(per)
	assert.True(t, ok)
	assert.Equal(t, "FREQ=WEEKLY;BYDAY=MO,FR", rule)
	assert.Contains(t, out.String(), `unknown weekday "funday"`)
}

func TestPeriodicityForm_Custom(t *testing.T) {
	var out bytes.Buffer
	p := NewPrompter(script(
		"custom",
		"tomorrow",
		"2026-07-04 12:00, 2026-05-01",
	), &out)

	per, err := PeriodicityForm(p, time.UTC, formNow)
	require.NoError(t, err)
	dates := periodicity.RDates(per)
	require.Len(t, dates, 2)
	assert.True(t, dates[0].Equal(time.Date(2026, time.May, 1, 0, 0, 0, 0, time.UTC)))
	assert.True(t, dates[1].Equal(time.Date(2026, time.July, 4, 12, 0, 0, 0, time.UTC)))
}

func TestPeriodicityForm_YearWithEnd(t *testing.T) {
	var out bytes.Buffer
	p := NewPrompter(script(
		"4",
		"2026-01-01 08:00",
		"",
		"march",
		"2030-01-01",
	), &out)

	per, err := PeriodicityForm(p, time.UTC, formNow)
	require.NoError(t, err)
	c, ok := per.Config().(periodicity.YearConfig)
	require.True(t, ok)
	assert.Equal(t, time.March, c.YearStart)
	tf, ok := per.Timeframe()
	require.True(t, ok)
	assert.True(t, tf.End.Equal(time.Date(2030, time.January, 1, 0, 0, 0, 0, time.UTC)))
}

func TestPeriodicityForm_InputClosed(t *testing.T) {
	p := NewPrompter(script("day"), &bytes.Buffer{})
	_, err := PeriodicityForm(p, time.UTC, formNow)
	assert.ErrorIs(t, err, ErrInputClosed)
}

func TestPeriodicityForm_WeeksOfMonthCountFromOne(t *testing.T) {
	var out bytes.Buffer
	p := NewPrompter(script(
		"week",
		"2026-01-01 09:00",
		"",
		"",
		"specific_weeks_of_month_from_first",
		"0",
		"",
		"",
		"2",
	), &out)

	per, err := PeriodicityForm(p, time.UTC, formNow)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "(1 is the first)")

	// Mondays of January 2026 fall on the 5th, 12th, 19th and 26th.
	got, err := periodicity.Resolve(per, periodicity.Window{
		From: time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].Equal(time.Date(2026, time.January, 12, 9, 0, 0, 0, time.UTC)), "%s", got[0])
}
