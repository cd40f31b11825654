package agenda

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tsadaash/internal/periodicity"
	"tsadaash/internal/task"
)

var anchor = time.Date(2026, time.January, 1, 9, 0, 0, 0, time.UTC)

func day(d int) time.Time {
	return time.Date(2026, time.January, d, 9, 0, 0, 0, time.UTC)
}

func assertInstants(t *testing.T, want, got []time.Time) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		assert.True(t, want[i].Equal(got[i]), "index %d: want %s, got %s", i, want[i], got[i])
	}
}

func dayRule(t *testing.T, s periodicity.DaySetting) *periodicity.Periodicity {
	t.Helper()
	p, err := periodicity.NewBuilder(periodicity.KindDay).WithAnchor(anchor).WithDaySetting(s).Build()
	require.NoError(t, err)
	return &p
}

func newServiceForTests(t *testing.T) *Service {
	t.Helper()
	repo := task.NewMemoryRepo()
	ctx := context.Background()
	for _, tk := range []task.Task{
		{UserID: "u1", Title: "water", Periodicity: dayRule(t, periodicity.EveryNDays{N: 3})},
		{UserID: "u1", Title: "stretch", Periodicity: dayRule(t, periodicity.EveryDay{})},
		{UserID: "u1", Title: "someday"},
		{UserID: "u2", Title: "not mine", Periodicity: dayRule(t, periodicity.EveryDay{})},
	} {
		_, err := repo.Create(ctx, tk)
		require.NoError(t, err)
	}
	return NewService(repo, periodicity.NewResolver(0), log.New(io.Discard, "", 0))
}

func TestService_Due(t *testing.T) {
	svc := newServiceForTests(t)
	w := periodicity.Window{From: time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC), To: time.Date(2026, time.January, 8, 0, 0, 0, 0, time.UTC)}

	got, err := svc.Due(context.Background(), "u1", w)
	require.NoError(t, err)
	require.Len(t, got, 10)

	assert.Equal(t, "stretch", got[0].Title)
	assert.Equal(t, "water", got[1].Title)
	assert.True(t, got[0].At.Equal(day(1)))
	assert.True(t, got[1].At.Equal(day(1)))

	var water []time.Time
	for i, e := range got {
		if i > 0 {
			assert.False(t, e.At.Before(got[i-1].At), "entries must be ordered")
		}
		if e.Title == "water" {
			water = append(water, e.At)
		}
	}
	assertInstants(t, []time.Time{day(1), day(4), day(7)}, water)
}

func TestService_DueRejectsBadWindow(t *testing.T) {
	svc := newServiceForTests(t)
	_, err := svc.Due(context.Background(), "u1", periodicity.Window{From: day(5), To: day(1)})
	assert.ErrorIs(t, err, periodicity.ErrMalformedWindow)
}

func TestService_NextDue(t *testing.T) {
	svc := newServiceForTests(t)
	got, err := svc.NextDue(context.Background(), "u1", day(1))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "stretch", got[0].Title)
	assert.True(t, got[0].At.Equal(day(2)))
	assert.Equal(t, "water", got[1].Title)
	assert.True(t, got[1].At.Equal(day(4)))
}

func TestService_Preview(t *testing.T) {
	svc := newServiceForTests(t)
	got, err := svc.Preview(*dayRule(t, periodicity.EveryNDays{N: 3}), day(1), 5)
	require.NoError(t, err)
	assertInstants(t, []time.Time{day(4), day(7), day(10), day(13), day(16)}, got)

	once, err := periodicity.NewBuilder(periodicity.KindUnique).WithDate(day(2)).Build()
	require.NoError(t, err)
	got, err = svc.Preview(once, day(1), 5)
	require.NoError(t, err)
	assertInstants(t, []time.Time{day(2)}, got)
}

func TestParseSpan(t *testing.T) {
	for _, s := range []string{"P1W", "p3d", " P1M "} {
		_, err := ParseSpan(s)
		assert.NoError(t, err, s)
	}
	for _, s := range []string{"", "P0D", "-P1D", "week"} {
		_, err := ParseSpan(s)
		assert.ErrorIs(t, err, ErrInvalidSpan, s)
	}
}

func TestSpanWindow(t *testing.T) {
	week, err := ParseSpan("P1W")
	require.NoError(t, err)
	w, err := SpanWindow(day(1), week)
	require.NoError(t, err)
	assert.True(t, w.To.Equal(day(8)))

	month, err := ParseSpan("P1M")
	require.NoError(t, err)
	w, err = SpanWindow(day(31), month)
	require.NoError(t, err)
	assert.True(t, w.To.Equal(time.Date(2026, time.March, 3, 9, 0, 0, 0, time.UTC)))
}

func TestStartOfDay(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	got := StartOfDay(time.Date(2026, time.January, 1, 23, 30, 0, 0, time.UTC), loc)
	assert.Equal(t, time.Date(2026, time.January, 2, 0, 0, 0, 0, loc), got)
}
