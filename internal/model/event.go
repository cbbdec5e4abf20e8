package model

import "time"

// Event is the gathering guests respond to. The RSVP lifecycle reads it but
// does not own it.
type Event struct {
	Slug                     string    `gorm:"type:varchar(128);primaryKey" json:"slug"`
	Title                    string    `gorm:"type:varchar(256);not null" json:"title"`
	HostName                 string    `gorm:"type:varchar(256)" json:"hostName"`
	Date                     string    `gorm:"type:varchar(128)" json:"date"`
	Time                     string    `gorm:"type:varchar(64)" json:"time"`
	Location                 string    `gorm:"type:varchar(256)" json:"location"`
	Address                  string    `gorm:"type:varchar(512)" json:"address"`
	PrimaryColor             string    `gorm:"type:varchar(16)" json:"primaryColor"`
	AccentColor              string    `gorm:"type:varchar(16)" json:"accentColor"`
	IsActive                 bool      `gorm:"not null" json:"isActive"`
	EmailConfirmationEnabled bool      `gorm:"not null" json:"emailConfirmationEnabled"`
	CreatedAt                time.Time `json:"createdAt"`
	UpdatedAt                time.Time `json:"updatedAt"`
}

func (Event) TableName() string { return "events" }

// EventSettings holds per-event overrides edited from the dashboard.
// A nil field means "inherit from the event".
type EventSettings struct {
	EventSlug                string    `gorm:"type:varchar(128);primaryKey" json:"eventSlug"`
	Title                    *string   `gorm:"type:varchar(256)" json:"title,omitempty"`
	HostName                 *string   `gorm:"type:varchar(256)" json:"hostName,omitempty"`
	Date                     *string   `gorm:"type:varchar(128)" json:"date,omitempty"`
	Time                     *string   `gorm:"type:varchar(64)" json:"time,omitempty"`
	Location                 *string   `gorm:"type:varchar(256)" json:"location,omitempty"`
	Address                  *string   `gorm:"type:varchar(512)" json:"address,omitempty"`
	PrimaryColor             *string   `gorm:"type:varchar(16)" json:"primaryColor,omitempty"`
	AccentColor              *string   `gorm:"type:varchar(16)" json:"accentColor,omitempty"`
	IsActive                 *bool     `json:"isActive,omitempty"`
	EmailConfirmationEnabled *bool     `json:"emailConfirmationEnabled,omitempty"`
	UpdatedAt                time.Time `json:"updatedAt"`
}

func (EventSettings) TableName() string { return "event_settings" }

// MergeEventSettings applies the non-nil overrides in s on top of base.
// Settings win over the event record; base is not modified.
func MergeEventSettings(base Event, s *EventSettings) Event {
	if s == nil {
		return base
	}
	merged := base
	overrideString(&merged.Title, s.Title)
	overrideString(&merged.HostName, s.HostName)
	overrideString(&merged.Date, s.Date)
	overrideString(&merged.Time, s.Time)
	overrideString(&merged.Location, s.Location)
	overrideString(&merged.Address, s.Address)
	overrideString(&merged.PrimaryColor, s.PrimaryColor)
	overrideString(&merged.AccentColor, s.AccentColor)
	if s.IsActive != nil {
		merged.IsActive = *s.IsActive
	}
	if s.EmailConfirmationEnabled != nil {
		merged.EmailConfirmationEnabled = *s.EmailConfirmationEnabled
	}
	return merged
}

func overrideString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
