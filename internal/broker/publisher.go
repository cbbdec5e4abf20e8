// Package broker publishes RSVP lifecycle notifications for downstream
// consumers (CRM sync, analytics). Delivery is best effort.
package broker

import (
	"context"
	"time"
)

type EventType string

const (
	EventRSVPCreated     EventType = "rsvp.created"
	EventRSVPCancelled   EventType = "rsvp.cancelled"
	EventRSVPReconfirmed EventType = "rsvp.reconfirmed"
	EventRSVPUpdated     EventType = "rsvp.updated"
	EventRSVPEmailSent   EventType = "rsvp.email_sent"
)

// LifecycleEvent is the JSON message body published for every state change.
type LifecycleEvent struct {
	Type      EventType `json:"type"`
	RSVPID    string    `json:"rsvpId"`
	EventID   string    `json:"eventId"`
	Status    string    `json:"status"`
	EmailType string    `json:"emailType,omitempty"`
	At        time.Time `json:"at"`
}

type Publisher interface {
	Publish(ctx context.Context, event LifecycleEvent) error
	Close() error
}

type noopPublisher struct{}

// NewNoopPublisher returns a Publisher that drops every event.
func NewNoopPublisher() Publisher { return noopPublisher{} }

func (noopPublisher) Publish(context.Context, LifecycleEvent) error { return nil }
func (noopPublisher) Close() error { return nil }
