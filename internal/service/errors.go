package service

import "errors"

var (
	ErrValidation     = errors.New("validation failed")
	ErrEventInactive  = errors.New("event is not accepting responses")
	ErrEventNotFound  = errors.New("event not found")
	ErrRSVPNotFound   = errors.New("rsvp not found")
	ErrDuplicateGuest = errors.New("guest already responded to this event")
	ErrInvalidToken   = errors.New("invalid or expired link")
	ErrInvalidStatus  = errors.New("invalid rsvp status")
	ErrEventInPast    = errors.New("event date has passed")
	ErrDispatchFailed = errors.New("email dispatch failed")
	ErrInvalidLogin   = errors.New("invalid username or password")
	ErrSessionRevoked = errors.New("session revoked")
	ErrSessionStore   = errors.New("session store unavailable")
)
