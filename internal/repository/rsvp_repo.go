package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"invitely/rsvphub/internal/model"
)

// ErrDuplicateGuest is returned when an email already has an RSVP for the event.
var ErrDuplicateGuest = errors.New("guest already registered for this event")

// RSVPUpdate carries the fields to change; nil means "leave as is".
type RSVPUpdate struct {
	Name    *string
	Email   *string
	Phone   *string
	PlusOne *bool
	Status  *model.RSVPStatus
}

func (u RSVPUpdate) Empty() bool {
	return u.Name == nil && u.Email == nil && u.Phone == nil && u.PlusOne == nil && u.Status == nil
}

// RSVPRepository persists guest responses. Lookups of missing rows return
// gorm.ErrRecordNotFound.
type RSVPRepository interface {
	Create(ctx context.Context, rsvp *model.RSVP) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.RSVP, error)
	ListByEvent(ctx context.Context, eventID string) ([]model.RSVP, error)
	Update(ctx context.Context, id uuid.UUID, fields RSVPUpdate) (*model.RSVP, error)
	RecordEmailSent(ctx context.Context, id uuid.UUID, emailType model.EmailType) (*model.RSVP, error)
	ComputeStats(ctx context.Context, eventID string) (*model.RSVPStats, error)
}
