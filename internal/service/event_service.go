package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"invitely/rsvphub/internal/config"
	"invitely/rsvphub/internal/model"
	"invitely/rsvphub/internal/repository"
	"invitely/rsvphub/internal/schedule"
)

type EventService interface {
	// Resolve returns the event with its dashboard overrides applied.
	Resolve(ctx context.Context, slug string) (*model.Event, error)
	List(ctx context.Context) ([]model.Event, error)
	Seed(ctx context.Context, seeds []config.EventSeed) error
	UpdateSettings(ctx context.Context, slug string, settings model.EventSettings) (*model.Event, error)
	// DateVerdict classifies the event date against today in the event time zone.
	DateVerdict(event *model.Event) schedule.Verdict
}

type eventService struct {
	eventRepo repository.EventRepository
	location  *time.Location
	now       func() time.Time
}

func NewEventService(eventRepo repository.EventRepository, location *time.Location) EventService {
	if location == nil {
		location = time.UTC
	}
	return &eventService{
		eventRepo: eventRepo,
		location:  location,
		now:       time.Now,
	}
}

func (s *eventService) Resolve(ctx context.Context, slug string) (*model.Event, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, ErrEventNotFound
	}
	event, err := s.eventRepo.GetBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to find event: %w", err)
	}
	settings, err := s.eventRepo.GetSettings(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("failed to load event settings: %w", err)
	}
	merged := model.MergeEventSettings(*event, settings)
	return &merged, nil
}

func (s *eventService) List(ctx context.Context) ([]model.Event, error) {
	events, err := s.eventRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	for i := range events {
		settings, err := s.eventRepo.GetSettings(ctx, events[i].Slug)
		if err != nil {
			return nil, fmt.Errorf("failed to load event settings: %w", err)
		}
		events[i] = model.MergeEventSettings(events[i], settings)
	}
	return events, nil
}

func (s *eventService) Seed(ctx context.Context, seeds []config.EventSeed) error {
	for _, seed := range seeds {
		if strings.TrimSpace(seed.Slug) == "" {
			return fmt.Errorf("%w: event seed without slug", ErrValidation)
		}
		event := &model.Event{
			Slug:                     seed.Slug,
			Title:                    seed.Title,
			HostName:                 seed.HostName,
			Date:                     seed.Date,
			Time:                     seed.Time,
			Location:                 seed.Location,
			Address:                  seed.Address,
			PrimaryColor:             seed.PrimaryColor,
			AccentColor:              seed.AccentColor,
			IsActive:                 seed.IsActive,
			EmailConfirmationEnabled: seed.EmailConfirmationEnabled,
		}
		if err := s.eventRepo.Upsert(ctx, event); err != nil {
			return fmt.Errorf("failed to seed event %q: %w", seed.Slug, err)
		}
	}
	return nil
}

func (s *eventService) UpdateSettings(ctx context.Context, slug string, settings model.EventSettings) (*model.Event, error) {
	if _, err := s.Resolve(ctx, slug); err != nil {
		return nil, err
	}
	settings.EventSlug = slug
	if err := s.eventRepo.SaveSettings(ctx, &settings); err != nil {
		return nil, fmt.Errorf("failed to save event settings: %w", err)
	}
	return s.Resolve(ctx, slug)
}

func (s *eventService) DateVerdict(event *model.Event) schedule.Verdict {
	return schedule.Classify(event.Date, s.now().In(s.location))
}

var _ EventService = (*eventService)(nil)
