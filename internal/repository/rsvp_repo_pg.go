package repository

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"invitely/rsvphub/internal/model"
	"invitely/rsvphub/pkg/crypto"
)

type pgRSVPRepository struct {
	db     *gorm.DB
	tokens *crypto.CancelTokens
	now    func() time.Time
}

func NewPGRSVPRepository(db *gorm.DB, tokens *crypto.CancelTokens) RSVPRepository {
	return &pgRSVPRepository{db: db, tokens: tokens, now: time.Now}
}

// Create inserts a confirmed RSVP after checking that (email, event) is free.
// The unique index on (event_id, email) catches submissions racing past the
// check; both paths return ErrDuplicateGuest.
func (r *pgRSVPRepository) Create(ctx context.Context, rsvp *model.RSVP) error {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.RSVP{}).
		Where("event_id = ? AND email = ?", rsvp.EventID, rsvp.Email).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count > 0 {
		return ErrDuplicateGuest
	}

	if rsvp.ID == uuid.Nil {
		rsvp.ID = uuid.New()
	}
	rsvp.Status = model.RSVPStatusConfirmed
	rsvp.EmailSent = nil
	rsvp.EmailHistory = datatypes.JSONSlice[model.EmailRecord]{}
	rsvp.CancelToken = r.tokens.Mint(rsvp.ID.String(), rsvp.Email)

	if err := r.db.WithContext(ctx).Create(rsvp).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateGuest
		}
		return err
	}
	return nil
}

func (r *pgRSVPRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.RSVP, error) {
	var rsvp model.RSVP
	if err := r.db.WithContext(ctx).First(&rsvp, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &rsvp, nil
}

// ListByEvent returns the event's RSVPs, newest first. Sorting happens here
// rather than in SQL so no (event_id, created_at) index is needed.
func (r *pgRSVPRepository) ListByEvent(ctx context.Context, eventID string) ([]model.RSVP, error) {
	var rsvps []model.RSVP
	if err := r.db.WithContext(ctx).Where("event_id = ?", eventID).Find(&rsvps).Error; err != nil {
		return nil, err
	}
	slices.SortStableFunc(rsvps, func(a, b model.RSVP) int {
		return cmp.Compare(b.CreatedAt.UnixNano(), a.CreatedAt.UnixNano())
	})
	return rsvps, nil
}

func (r *pgRSVPRepository) Update(ctx context.Context, id uuid.UUID, fields RSVPUpdate) (*model.RSVP, error) {
	var rsvp model.RSVP
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&rsvp, "id = ?", id).Error; err != nil {
			return err
		}
		if fields.Empty() {
			return nil
		}

		updates := map[string]interface{}{}
		if fields.Name != nil {
			updates["name"] = *fields.Name
		}
		if fields.Email != nil {
			updates["email"] = *fields.Email
			updates["cancel_token"] = r.tokens.Mint(id.String(), *fields.Email)
		}
		if fields.Phone != nil {
			updates["phone"] = *fields.Phone
		}
		if fields.PlusOne != nil {
			updates["plus_one"] = *fields.PlusOne
		}
		if fields.Status != nil {
			updates["status"] = *fields.Status
		}
		if err := tx.Model(&model.RSVP{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return err
		}
		return tx.First(&rsvp, "id = ?", id).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateGuest
		}
		return nil, err
	}
	return &rsvp, nil
}

// RecordEmailSent appends one history entry and moves email_sent to the same
// instant. Call it only after the provider accepted the message.
func (r *pgRSVPRepository) RecordEmailSent(ctx context.Context, id uuid.UUID, emailType model.EmailType) (*model.RSVP, error) {
	var rsvp model.RSVP
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&rsvp, "id = ?", id).Error; err != nil {
			return err
		}

		sentAt := r.now().UTC().Truncate(time.Microsecond)
		history := make(datatypes.JSONSlice[model.EmailRecord], 0, len(rsvp.EmailHistory)+1)
		history = append(history, rsvp.EmailHistory...)
		history = append(history, model.EmailRecord{SentAt: sentAt, Type: emailType})

		if err := tx.Model(&model.RSVP{}).Where("id = ?", id).Updates(map[string]interface{}{
			"email_history": history,
			"email_sent":    sentAt,
		}).Error; err != nil {
			return err
		}
		return tx.First(&rsvp, "id = ?", id).Error
	})
	if err != nil {
		return nil, err
	}
	return &rsvp, nil
}

func (r *pgRSVPRepository) ComputeStats(ctx context.Context, eventID string) (*model.RSVPStats, error) {
	rsvps, err := r.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	stats := &model.RSVPStats{Total: len(rsvps)}
	for _, rsvp := range rsvps {
		switch rsvp.Status {
		case model.RSVPStatusConfirmed:
			stats.Confirmed++
			if rsvp.PlusOne {
				stats.PlusOnes++
			}
		case model.RSVPStatusCancelled:
			stats.Cancelled++
		}
	}
	return stats, nil
}
