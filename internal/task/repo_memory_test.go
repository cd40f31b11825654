package task

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(start time.Time) func() time.Time {
	cur := start
	return func() time.Time {
		cur = cur.Add(time.Second)
		return cur
	}
}

func TestMemoryRepo_CreateGetList(t *testing.T) {
	repo := NewMemoryRepo()
	repo.now = fixedClock(anchor)
	ctx := context.Background()

	t1, err := repo.Create(ctx, Task{UserID: "u1", Title: " pick up eggs ", Periodicity: everyNDays(t, 2)})
	require.NoError(t, err)
	assert.NotEmpty(t, t1.ID)
	assert.Equal(t, "pick up eggs", t1.Title)
	assert.Equal(t, t1.CreatedAt, t1.UpdatedAt)

	got, err := repo.Get(ctx, t1.ID)
	require.NoError(t, err)
	assert.Equal(t, t1, got)

	_, err = repo.Create(ctx, Task{UserID: "u1", Title: "water plants"})
	require.NoError(t, err)
	_, err = repo.Create(ctx, Task{UserID: "u2", Title: "someone else"})
	require.NoError(t, err)

	list, err := repo.ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "pick up eggs", list[0].Title)
	assert.Equal(t, "water plants", list[1].Title)

	_, err = repo.Create(ctx, Task{UserID: "u1", Title: ""})
	assert.ErrorIs(t, err, ErrInvalidTitle)
}

func TestMemoryRepo_UpdateDelete(t *testing.T) {
	repo := NewMemoryRepo()
	repo.now = fixedClock(anchor)
	ctx := context.Background()

	created, err := repo.Create(ctx, Task{UserID: "u1", Title: "stretch", Periodicity: everyNDays(t, 1)})
	require.NoError(t, err)

	updated, err := repo.Update(ctx, created.ID, Patch{ClearPeriodicity: true})
	require.NoError(t, err)
	assert.False(t, updated.HasSchedule())
	assert.True(t, updated.UpdatedAt.After(created.UpdatedAt))

	_, err = repo.Update(ctx, "missing", Patch{})
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, repo.Delete(ctx, created.ID))
	assert.ErrorIs(t, repo.Delete(ctx, created.ID), ErrNotFound)
	_, err = repo.Get(ctx, created.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
