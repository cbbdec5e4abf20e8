package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"invitely/rsvphub/internal/broker"
	"invitely/rsvphub/internal/model"
	"invitely/rsvphub/internal/repository"
	"invitely/rsvphub/internal/schedule"
	"invitely/rsvphub/pkg/crypto"
	"invitely/rsvphub/pkg/validator"
)

// ErrSendNotRecorded means the provider accepted the email but the history
// entry could not be written.
var ErrSendNotRecorded = errors.New("email sent but not recorded")

// guestFields is the validated shape of everything a guest can type.
type guestFields struct {
	Name  string `json:"name" validate:"required,max=160"`
	Email string `json:"email" validate:"required,email,max=320"`
	Phone string `json:"phone" validate:"required,phone"`
}

type CreateRSVPInput struct {
	EventSlug string
	Name      string
	Email     string
	Phone     string
	PlusOne   bool
}

type GuestUpdateInput struct {
	RSVPID    string
	Token     string
	Name      string
	Email     string
	Phone     string
	PlusOne   bool
	Reconfirm bool
}

// AdminUpdateInput edits any subset of fields; nil leaves the field alone.
type AdminUpdateInput struct {
	Name    *string
	Email   *string
	Phone   *string
	PlusOne *bool
	Status  *model.RSVPStatus
}

type ImportGuest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	PlusOne bool   `json:"plusOne"`
}

type NotificationStatus string

const (
	NotificationSent    NotificationStatus = "sent"
	NotificationFailed  NotificationStatus = "failed"
	NotificationSkipped NotificationStatus = "skipped"
)

// CreateResult reports the RSVP and, separately, what happened to the
// confirmation email. A failed email never fails the creation.
type CreateResult struct {
	RSVP               *model.RSVP        `json:"rsvp"`
	Notification       NotificationStatus `json:"notification"`
	NotificationReason string             `json:"notificationReason,omitempty"`
}

type SendResult struct {
	RSVP      *model.RSVP     `json:"rsvp"`
	Variant   model.EmailType `json:"variant"`
	MessageID string          `json:"messageId"`
}

type BulkSendItem struct {
	RSVPID  string             `json:"rsvpId"`
	Status  NotificationStatus `json:"status"`
	Variant model.EmailType    `json:"variant,omitempty"`
	Reason  string             `json:"reason,omitempty"`
}

type BulkSendResult struct {
	Sent    int            `json:"sent"`
	Failed  int            `json:"failed"`
	Skipped int            `json:"skipped"`
	Items   []BulkSendItem `json:"items"`
}

type ImportResult struct {
	Created    int      `json:"created"`
	Duplicates int      `json:"duplicates"`
	Invalid    int      `json:"invalid"`
	Errors     []string `json:"errors,omitempty"`
}

// RSVPService runs the RSVP lifecycle. Guest methods authorize with the
// cancel token. Admin methods trust the caller to have checked the session
// against eventSlug and only enforce that the RSVP belongs to that event.
type RSVPService interface {
	Create(ctx context.Context, input CreateRSVPInput) (*CreateResult, error)
	GetForGuest(ctx context.Context, rsvpID, token string) (*model.RSVP, error)
	CancelByGuest(ctx context.Context, rsvpID, token string) (*model.RSVP, error)
	UpdateByGuest(ctx context.Context, input GuestUpdateInput) (*model.RSVP, error)

	ListByEvent(ctx context.Context, eventSlug string) ([]model.RSVP, error)
	Stats(ctx context.Context, eventSlug string) (*model.RSVPStats, error)
	AdminUpdate(ctx context.Context, eventSlug string, rsvpID uuid.UUID, input AdminUpdateInput) (*model.RSVP, error)
	SendEmail(ctx context.Context, eventSlug string, rsvpID uuid.UUID) (*SendResult, error)
	SendBulk(ctx context.Context, eventSlug string, rsvpIDs []uuid.UUID) (*BulkSendResult, error)
	Import(ctx context.Context, eventSlug string, guests []ImportGuest) (*ImportResult, error)
}

type RSVPServiceConfig struct {
	DefaultEventSlug string
	BulkDelay        time.Duration
}

type rsvpService struct {
	rsvpRepo     repository.RSVPRepository
	eventService EventService
	notifier     Notifier
	tokens       *crypto.CancelTokens
	publisher    broker.Publisher
	logger       *zap.Logger
	cfg          RSVPServiceConfig
	sleep        func(ctx context.Context, d time.Duration) error
}

func NewRSVPService(
	rsvpRepo repository.RSVPRepository,
	eventService EventService,
	notifier Notifier,
	tokens *crypto.CancelTokens,
	publisher broker.Publisher,
	logger *zap.Logger,
	cfg RSVPServiceConfig,
) RSVPService {
	if publisher == nil {
		publisher = broker.NewNoopPublisher()
	}
	return &rsvpService{
		rsvpRepo:     rsvpRepo,
		eventService: eventService,
		notifier:     notifier,
		tokens:       tokens,
		publisher:    publisher,
		logger:       logger,
		cfg:          cfg,
		sleep:        sleepContext,
	}
}

func (s *rsvpService) Create(ctx context.Context, input CreateRSVPInput) (*CreateResult, error) {
	fields := normalizeGuest(input.Name, input.Email, input.Phone)
	if err := validator.Validate(ctx, fields); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrValidation, err.Error())
	}

	slug := strings.TrimSpace(input.EventSlug)
	if slug == "" {
		slug = s.cfg.DefaultEventSlug
	}
	event, err := s.eventService.Resolve(ctx, slug)
	if err != nil {
		return nil, err
	}
	if !event.IsActive {
		return nil, fmt.Errorf("%w: %w", ErrValidation, ErrEventInactive)
	}

	rsvp := &model.RSVP{
		EventID: event.Slug,
		Name:    fields.Name,
		Email:   fields.Email,
		Phone:   fields.Phone,
		PlusOne: input.PlusOne,
	}
	if err := s.rsvpRepo.Create(ctx, rsvp); err != nil {
		if errors.Is(err, repository.ErrDuplicateGuest) {
			return nil, ErrDuplicateGuest
		}
		return nil, fmt.Errorf("failed to create rsvp: %w", err)
	}
	s.publish(ctx, broker.EventRSVPCreated, rsvp, "")

	result := &CreateResult{RSVP: rsvp}
	if !event.EmailConfirmationEnabled {
		result.Notification = NotificationSkipped
		result.NotificationReason = "confirmation emails are disabled for this event"
		return result, nil
	}

	updated, _, err := s.dispatch(ctx, rsvp, event, model.EmailTypeConfirmation)
	switch {
	case err == nil:
		result.RSVP = updated
		result.Notification = NotificationSent
	case errors.Is(err, ErrEventInPast):
		result.Notification = NotificationSkipped
		result.NotificationReason = ErrEventInPast.Error()
	case errors.Is(err, ErrSendNotRecorded):
		result.Notification = NotificationSent
	default:
		s.logger.Warn("confirmation email failed; rsvp kept",
			zap.String("rsvp_id", rsvp.ID.String()),
			zap.String("event", rsvp.EventID),
			zap.Error(err),
		)
		result.Notification = NotificationFailed
		result.NotificationReason = "confirmation email could not be sent"
	}
	return result, nil
}

func (s *rsvpService) GetForGuest(ctx context.Context, rsvpID, token string) (*model.RSVP, error) {
	return s.authorizeGuest(ctx, rsvpID, token)
}

func (s *rsvpService) CancelByGuest(ctx context.Context, rsvpID, token string) (*model.RSVP, error) {
	rsvp, err := s.authorizeGuest(ctx, rsvpID, token)
	if err != nil {
		return nil, err
	}
	if rsvp.Status == model.RSVPStatusCancelled {
		return rsvp, nil
	}
	return s.applyUpdate(ctx, rsvp, repository.RSVPUpdate{Status: statusPtr(model.RSVPStatusCancelled)})
}

func (s *rsvpService) UpdateByGuest(ctx context.Context, input GuestUpdateInput) (*model.RSVP, error) {
	rsvp, err := s.authorizeGuest(ctx, input.RSVPID, input.Token)
	if err != nil {
		return nil, err
	}

	fields := normalizeGuest(input.Name, input.Email, input.Phone)
	if err := validator.Validate(ctx, fields); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrValidation, err.Error())
	}

	update := repository.RSVPUpdate{
		Name:    &fields.Name,
		Phone:   &fields.Phone,
		PlusOne: &input.PlusOne,
	}
	if fields.Email != rsvp.Email {
		update.Email = &fields.Email
	}
	if input.Reconfirm && rsvp.Status != model.RSVPStatusConfirmed {
		update.Status = statusPtr(model.RSVPStatusConfirmed)
	}
	return s.applyUpdate(ctx, rsvp, update)
}

func (s *rsvpService) ListByEvent(ctx context.Context, eventSlug string) ([]model.RSVP, error) {
	if _, err := s.eventService.Resolve(ctx, eventSlug); err != nil {
		return nil, err
	}
	rsvps, err := s.rsvpRepo.ListByEvent(ctx, eventSlug)
	if err != nil {
		return nil, fmt.Errorf("failed to list rsvps: %w", err)
	}
	return rsvps, nil
}

func (s *rsvpService) Stats(ctx context.Context, eventSlug string) (*model.RSVPStats, error) {
	if _, err := s.eventService.Resolve(ctx, eventSlug); err != nil {
		return nil, err
	}
	stats, err := s.rsvpRepo.ComputeStats(ctx, eventSlug)
	if err != nil {
		return nil, fmt.Errorf("failed to compute stats: %w", err)
	}
	return stats, nil
}

func (s *rsvpService) AdminUpdate(ctx context.Context, eventSlug string, rsvpID uuid.UUID, input AdminUpdateInput) (*model.RSVP, error) {
	rsvp, err := s.loadScoped(ctx, eventSlug, rsvpID)
	if err != nil {
		return nil, err
	}
	if input.Status != nil && !input.Status.Valid() {
		return nil, fmt.Errorf("%w: %w", ErrValidation, ErrInvalidStatus)
	}

	// Validate the record as it will look after the edit.
	merged := guestFields{Name: rsvp.Name, Email: rsvp.Email, Phone: rsvp.Phone}
	if input.Name != nil {
		merged.Name = *input.Name
	}
	if input.Email != nil {
		merged.Email = *input.Email
	}
	if input.Phone != nil {
		merged.Phone = *input.Phone
	}
	merged = normalizeGuest(merged.Name, merged.Email, merged.Phone)
	if err := validator.Validate(ctx, merged); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrValidation, err.Error())
	}

	update := repository.RSVPUpdate{PlusOne: input.PlusOne, Status: input.Status}
	if input.Name != nil {
		update.Name = &merged.Name
	}
	if input.Email != nil && merged.Email != rsvp.Email {
		update.Email = &merged.Email
	}
	if input.Phone != nil {
		update.Phone = &merged.Phone
	}
	if update.Empty() {
		return rsvp, nil
	}
	return s.applyUpdate(ctx, rsvp, update)
}

func (s *rsvpService) SendEmail(ctx context.Context, eventSlug string, rsvpID uuid.UUID) (*SendResult, error) {
	event, err := s.eventService.Resolve(ctx, eventSlug)
	if err != nil {
		return nil, err
	}
	rsvp, err := s.loadScoped(ctx, eventSlug, rsvpID)
	if err != nil {
		return nil, err
	}

	variant := variantFor(rsvp)
	updated, messageID, err := s.dispatch(ctx, rsvp, event, variant)
	if err != nil {
		return nil, err
	}
	return &SendResult{RSVP: updated, Variant: variant, MessageID: messageID}, nil
}

// SendBulk sends to each id in order, pausing cfg.BulkDelay between provider
// calls. One failure does not stop the batch.
func (s *rsvpService) SendBulk(ctx context.Context, eventSlug string, rsvpIDs []uuid.UUID) (*BulkSendResult, error) {
	event, err := s.eventService.Resolve(ctx, eventSlug)
	if err != nil {
		return nil, err
	}
	if s.eventService.DateVerdict(event) == schedule.Past {
		return nil, ErrEventInPast
	}

	result := &BulkSendResult{Items: make([]BulkSendItem, 0, len(rsvpIDs))}
	seen := make(map[uuid.UUID]struct{}, len(rsvpIDs))
	calls := 0
	for _, id := range rsvpIDs {
		item := BulkSendItem{RSVPID: id.String()}
		if _, dup := seen[id]; dup {
			item.Status = NotificationSkipped
			item.Reason = "duplicate id in request"
			result.add(item)
			continue
		}
		seen[id] = struct{}{}

		rsvp, err := s.loadScoped(ctx, eventSlug, id)
		if err != nil {
			item.Status = NotificationFailed
			item.Reason = coarseReason(err)
			result.add(item)
			continue
		}

		if calls > 0 {
			if err := s.sleep(ctx, s.cfg.BulkDelay); err != nil {
				item.Status = NotificationSkipped
				item.Reason = "request cancelled"
				result.add(item)
				continue
			}
		}
		calls++

		item.Variant = variantFor(rsvp)
		_, _, err = s.dispatch(ctx, rsvp, event, item.Variant)
		switch {
		case err == nil, errors.Is(err, ErrSendNotRecorded):
			item.Status = NotificationSent
		default:
			item.Status = NotificationFailed
			item.Reason = coarseReason(err)
		}
		result.add(item)
	}

	s.logger.Info("bulk send finished",
		zap.String("event", eventSlug),
		zap.Int("sent", result.Sent),
		zap.Int("failed", result.Failed),
		zap.Int("skipped", result.Skipped),
	)
	return result, nil
}

func (s *rsvpService) Import(ctx context.Context, eventSlug string, guests []ImportGuest) (*ImportResult, error) {
	event, err := s.eventService.Resolve(ctx, eventSlug)
	if err != nil {
		return nil, err
	}

	result := &ImportResult{}
	for i, guest := range guests {
		fields := normalizeGuest(guest.Name, guest.Email, guest.Phone)
		if err := validator.Validate(ctx, fields); err != nil {
			result.Invalid++
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: %s", i+1, err.Error()))
			continue
		}
		rsvp := &model.RSVP{
			EventID: event.Slug,
			Name:    fields.Name,
			Email:   fields.Email,
			Phone:   fields.Phone,
			PlusOne: guest.PlusOne,
		}
		if err := s.rsvpRepo.Create(ctx, rsvp); err != nil {
			if errors.Is(err, repository.ErrDuplicateGuest) {
				result.Duplicates++
				continue
			}
			return result, fmt.Errorf("failed to import row %d: %w", i+1, err)
		}
		result.Created++
		s.publish(ctx, broker.EventRSVPCreated, rsvp, "")
	}
	return result, nil
}

// authorizeGuest resolves the RSVP behind a self-service link. Unknown ids
// and bad tokens produce the same error so links cannot be used to probe ids.
func (s *rsvpService) authorizeGuest(ctx context.Context, rsvpID, token string) (*model.RSVP, error) {
	id, err := uuid.Parse(strings.TrimSpace(rsvpID))
	if err != nil {
		return nil, ErrInvalidToken
	}
	rsvp, err := s.rsvpRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("failed to find rsvp: %w", err)
	}
	if !s.tokens.Verify(strings.TrimSpace(token), rsvp.ID.String(), rsvp.Email) {
		return nil, ErrInvalidToken
	}
	return rsvp, nil
}

func (s *rsvpService) loadScoped(ctx context.Context, eventSlug string, id uuid.UUID) (*model.RSVP, error) {
	rsvp, err := s.rsvpRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRSVPNotFound
		}
		return nil, fmt.Errorf("failed to find rsvp: %w", err)
	}
	if rsvp.EventID != eventSlug {
		return nil, ErrRSVPNotFound
	}
	return rsvp, nil
}

func (s *rsvpService) applyUpdate(ctx context.Context, before *model.RSVP, update repository.RSVPUpdate) (*model.RSVP, error) {
	updated, err := s.rsvpRepo.Update(ctx, before.ID, update)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateGuest):
			return nil, ErrDuplicateGuest
		case errors.Is(err, gorm.ErrRecordNotFound):
			return nil, ErrRSVPNotFound
		}
		return nil, fmt.Errorf("failed to update rsvp: %w", err)
	}

	eventType := broker.EventRSVPUpdated
	if updated.Status != before.Status {
		eventType = broker.EventRSVPReconfirmed
		if updated.Status == model.RSVPStatusCancelled {
			eventType = broker.EventRSVPCancelled
		}
	}
	s.publish(ctx, eventType, updated, "")
	return updated, nil
}

// dispatch sends one email and records it. Persistence of the RSVP has
// already happened; history is written only after the provider accepted.
func (s *rsvpService) dispatch(ctx context.Context, rsvp *model.RSVP, event *model.Event, variant model.EmailType) (*model.RSVP, string, error) {
	if s.eventService.DateVerdict(event) == schedule.Past {
		return rsvp, "", ErrEventInPast
	}

	messageID, err := s.notifier.Send(ctx, rsvp, event, variant)
	if err != nil {
		return rsvp, "", err
	}

	updated, err := s.rsvpRepo.RecordEmailSent(ctx, rsvp.ID, variant)
	if err != nil {
		s.logger.Error("email sent but history not recorded",
			zap.String("rsvp_id", rsvp.ID.String()),
			zap.String("variant", string(variant)),
			zap.String("message_id", messageID),
			zap.Error(err),
		)
		return rsvp, messageID, fmt.Errorf("%w: %v", ErrSendNotRecorded, err)
	}

	s.logger.Info("email sent",
		zap.String("rsvp_id", rsvp.ID.String()),
		zap.String("event", rsvp.EventID),
		zap.String("variant", string(variant)),
		zap.String("message_id", messageID),
	)
	s.publish(ctx, broker.EventRSVPEmailSent, updated, variant)
	return updated, messageID, nil
}

func (s *rsvpService) publish(ctx context.Context, eventType broker.EventType, rsvp *model.RSVP, emailType model.EmailType) {
	err := s.publisher.Publish(ctx, broker.LifecycleEvent{
		Type:      eventType,
		RSVPID:    rsvp.ID.String(),
		EventID:   rsvp.EventID,
		Status:    string(rsvp.Status),
		EmailType: string(emailType),
		At:        time.Now().UTC(),
	})
	if err != nil {
		s.logger.Warn("lifecycle event not published",
			zap.String("type", string(eventType)),
			zap.String("rsvp_id", rsvp.ID.String()),
			zap.Error(err),
		)
	}
}

func (r *BulkSendResult) add(item BulkSendItem) {
	switch item.Status {
	case NotificationSent:
		r.Sent++
	case NotificationFailed:
		r.Failed++
	case NotificationSkipped:
		r.Skipped++
	}
	r.Items = append(r.Items, item)
}

// coarseReason hides provider and database details from API callers.
func coarseReason(err error) string {
	switch {
	case errors.Is(err, ErrRSVPNotFound):
		return ErrRSVPNotFound.Error()
	case errors.Is(err, ErrEventInPast):
		return ErrEventInPast.Error()
	case errors.Is(err, ErrDispatchFailed):
		return ErrDispatchFailed.Error()
	}
	return "internal error"
}

func normalizeGuest(name, email, phone string) guestFields {
	return guestFields{
		Name:  strings.TrimSpace(name),
		Email: strings.ToLower(strings.TrimSpace(email)),
		Phone: strings.TrimSpace(phone),
	}
}

func statusPtr(s model.RSVPStatus) *model.RSVPStatus { return &s }

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

var _ RSVPService = (*rsvpService)(nil)
