package task

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repo interface {
	Create(ctx context.Context, t Task) (Task, error)
	Get(ctx context.Context, id string) (Task, error)
	ListByUser(ctx context.Context, userID string) ([]Task, error)
	Update(ctx context.Context, id string, p Patch) (Task, error)
	Delete(ctx context.Context, id string) error
}

// prepareNew validates t and fills the identity and timestamps.
func prepareNew(t Task, now time.Time) (Task, error) {
	title, err := normalizeTitle(t.Title)
	if err != nil {
		return Task{}, err
	}
	t.Title = title
	if t.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return Task{}, err
		}
		t.ID = id.String()
	}
	now = now.UTC()
	t.CreatedAt = now
	t.UpdatedAt = now
	return t, nil
}
