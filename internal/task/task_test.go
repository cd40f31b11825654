package task

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tsadaash/internal/periodicity"
)

var anchor = time.Date(2026, time.January, 1, 9, 0, 0, 0, time.UTC)

func everyNDays(t *testing.T, n int) *periodicity.Periodicity {
	t.Helper()
	p, err := periodicity.NewBuilder(periodicity.KindDay).
		WithAnchor(anchor).
		WithDaySetting(periodicity.EveryNDays{N: n}).
		Build()
	require.NoError(t, err)
	return &p
}

func strPtr(s string) *string { return &s }

func TestApplyPatch(t *testing.T) {
	base := Task{Title: "water plants", Description: "front porch", Periodicity: everyNDays(t, 3)}

	got := base
	require.NoError(t, applyPatch(&got, Patch{Title: strPtr("  feed cat ")}))
	assert.Equal(t, "feed cat", got.Title)
	assert.Equal(t, "front porch", got.Description)
	assert.True(t, got.HasSchedule())

	got = base
	weekly := everyNDays(t, 7)
	require.NoError(t, applyPatch(&got, Patch{Periodicity: weekly}))
	assert.True(t, got.Periodicity.Equal(*weekly))
	assert.False(t, got.Periodicity.Equal(*base.Periodicity))

	got = base
	require.NoError(t, applyPatch(&got, Patch{Periodicity: weekly, ClearPeriodicity: true}))
	assert.False(t, got.HasSchedule())

	got = base
	assert.ErrorIs(t, applyPatch(&got, Patch{Title: strPtr("   ")}), ErrInvalidTitle)
	assert.ErrorIs(t, applyPatch(&got, Patch{Title: strPtr(strings.Repeat("x", maxTitleLen+1))}), ErrInvalidTitle)
	assert.Equal(t, "water plants", got.Title)
}
