package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type RSVPStatus string

const (
	RSVPStatusConfirmed RSVPStatus = "confirmed"
	RSVPStatusCancelled RSVPStatus = "cancelled"
)

func (s RSVPStatus) Valid() bool {
	return s == RSVPStatusConfirmed || s == RSVPStatusCancelled
}

// EmailType is the template variant used for a notification.
type EmailType string

const (
	EmailTypeConfirmation EmailType = "confirmation"
	EmailTypeReminder     EmailType = "reminder"
	EmailTypeReInvitation EmailType = "re-invitation"
)

func (t EmailType) Valid() bool {
	switch t {
	case EmailTypeConfirmation, EmailTypeReminder, EmailTypeReInvitation:
		return true
	}
	return false
}

// EmailRecord is one entry of an RSVP's append-only send history.
type EmailRecord struct {
	SentAt time.Time `json:"sentAt"`
	Type   EmailType `json:"type"`
}

type RSVP struct {
	ID           uuid.UUID                        `gorm:"type:uuid;primaryKey" json:"id"`
	EventID      string                           `gorm:"type:varchar(128);not null;uniqueIndex:idx_rsvps_event_email,priority:1" json:"eventId"`
	Name         string                           `gorm:"type:varchar(160);not null" json:"name"`
	Email        string                           `gorm:"type:varchar(320);not null;uniqueIndex:idx_rsvps_event_email,priority:2" json:"email"`
	Phone        string                           `gorm:"type:varchar(40);not null" json:"phone"`
	PlusOne      bool                             `gorm:"not null;default:false" json:"plusOne"`
	Status       RSVPStatus                       `gorm:"type:varchar(16);not null;default:'confirmed';index" json:"status"`
	EmailSent    *time.Time                       `json:"emailSent,omitempty"`
	EmailHistory datatypes.JSONSlice[EmailRecord] `json:"emailHistory"`
	CancelToken  string                           `gorm:"type:varchar(64)" json:"-"`
	CreatedAt    time.Time                        `json:"createdAt"`
	UpdatedAt    time.Time                        `json:"updatedAt"`
}

func (RSVP) TableName() string { return "rsvps" }

func (r *RSVP) BeforeCreate(_ *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.Status == "" {
		r.Status = RSVPStatusConfirmed
	}
	if r.EmailHistory == nil {
		r.EmailHistory = datatypes.JSONSlice[EmailRecord]{}
	}
	return nil
}

// LastEmail returns the most recent history entry.
func (r *RSVP) LastEmail() (EmailRecord, bool) {
	if len(r.EmailHistory) == 0 {
		return EmailRecord{}, false
	}
	return r.EmailHistory[len(r.EmailHistory)-1], true
}

// RSVPStats aggregates attendance for one event.
type RSVPStats struct {
	Total     int `json:"total"`
	Confirmed int `json:"confirmed"`
	Cancelled int `json:"cancelled"`
	PlusOnes  int `json:"plusOnes"`
}
