package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"invitely/rsvphub/internal/model"
)

type pgEventRepository struct {
	db *gorm.DB
}

func NewPGEventRepository(db *gorm.DB) EventRepository {
	return &pgEventRepository{db: db}
}

func (r *pgEventRepository) GetBySlug(ctx context.Context, slug string) (*model.Event, error) {
	var event model.Event
	if err := r.db.WithContext(ctx).First(&event, "slug = ?", slug).Error; err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *pgEventRepository) GetSettings(ctx context.Context, slug string) (*model.EventSettings, error) {
	var settings model.EventSettings
	err := r.db.WithContext(ctx).First(&settings, "event_slug = ?", slug).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &settings, nil
}

func (r *pgEventRepository) Upsert(ctx context.Context, event *model.Event) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "slug"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"title", "host_name", "date", "time", "location", "address",
				"primary_color", "accent_color", "is_active",
				"email_confirmation_enabled", "updated_at",
			}),
		}).
		Create(event).Error
}

func (r *pgEventRepository) SaveSettings(ctx context.Context, settings *model.EventSettings) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "event_slug"}},
			UpdateAll: true,
		}).
		Create(settings).Error
}

func (r *pgEventRepository) List(ctx context.Context) ([]model.Event, error) {
	var events []model.Event
	if err := r.db.WithContext(ctx).Order("slug ASC").Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}
