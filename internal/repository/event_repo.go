package repository

import (
	"context"

	"invitely/rsvphub/internal/model"
)

type EventRepository interface {
	GetBySlug(ctx context.Context, slug string) (*model.Event, error)
	// GetSettings returns nil, nil when the event has no overrides.
	GetSettings(ctx context.Context, slug string) (*model.EventSettings, error)
	Upsert(ctx context.Context, event *model.Event) error
	SaveSettings(ctx context.Context, settings *model.EventSettings) error
	List(ctx context.Context) ([]model.Event, error)
}
