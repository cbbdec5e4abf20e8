package service

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"invitely/rsvphub/internal/broker"
	"invitely/rsvphub/internal/model"
	"invitely/rsvphub/internal/repository"
	"invitely/rsvphub/pkg/crypto"
)

const testSecret = "test-secret"

type sentMail struct {
	To      string
	Subject string
	Body    string
}

type fakeSender struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (f *fakeSender) Send(_ context.Context, to, subject, htmlBody string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.sent = append(f.sent, sentMail{To: to, Subject: subject, Body: htmlBody})
	return "msg-" + to, nil
}

func (f *fakeSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type fakePublisher struct {
	mu     sync.Mutex
	events []broker.LifecycleEvent
	err    error
}

func (p *fakePublisher) Publish(_ context.Context, e broker.LifecycleEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *fakePublisher) Close() error { return nil }

func (p *fakePublisher) types() []broker.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]broker.EventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type testEnv struct {
	svc       *rsvpService
	events    *eventService
	eventRepo repository.EventRepository
	rsvpRepo  repository.RSVPRepository
	sender    *fakeSender
	publisher *fakePublisher
	tokens    *crypto.CancelTokens
	sleeps    []time.Duration
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+dbName(t)+"?mode=memory&cache=shared"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := model.AutoMigrate(db); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	return db
}

func dbName(t *testing.T) string {
	return strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
}

// newTestEnv wires the real repositories and notifier around fakes for the
// mail provider and the broker. Today is 2025-10-17.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := setupTestDB(t)
	tokens := crypto.NewCancelTokens(testSecret)
	eventRepo := repository.NewPGEventRepository(db)
	rsvpRepo := repository.NewPGRSVPRepository(db, tokens)

	events := NewEventService(eventRepo, time.UTC).(*eventService)
	events.now = func() time.Time { return time.Date(2025, 10, 17, 12, 0, 0, 0, time.UTC) }

	sender := &fakeSender{}
	publisher := &fakePublisher{}
	notifier := NewNotifier(sender, tokens, NotifierConfig{PublicBaseURL: "https://party.example"})

	env := &testEnv{
		events:    events,
		eventRepo: eventRepo,
		rsvpRepo:  rsvpRepo,
		sender:    sender,
		publisher: publisher,
		tokens:    tokens,
	}
	env.svc = NewRSVPService(rsvpRepo, events, notifier, tokens, publisher, zap.NewNop(), RSVPServiceConfig{
		DefaultEventSlug: "party-2025",
		BulkDelay:        600 * time.Millisecond,
	}).(*rsvpService)
	env.svc.sleep = func(ctx context.Context, d time.Duration) error {
		env.sleeps = append(env.sleeps, d)
		return ctx.Err()
	}

	env.seed(t, model.Event{
		Slug:                     "party-2025",
		Title:                    "Fiesta de Ana",
		Date:                     "Sábado 15 de Noviembre",
		IsActive:                 true,
		EmailConfirmationEnabled: true,
	})
	return env
}

func (e *testEnv) seed(t *testing.T, event model.Event) {
	t.Helper()
	if err := e.eventRepo.Upsert(context.Background(), &event); err != nil {
		t.Fatalf("Upsert(%s) error = %v", event.Slug, err)
	}
}

func (e *testEnv) create(t *testing.T, email string) *model.RSVP {
	t.Helper()
	res, err := e.svc.Create(context.Background(), CreateRSVPInput{
		Name:  "Ana",
		Email: email,
		Phone: "+52 123 456 7890",
	})
	if err != nil {
		t.Fatalf("Create(%s) error = %v", email, err)
	}
	return res.RSVP
}

func TestCreate_HappyPath(t *testing.T) {
	env := newTestEnv(t)

	res, err := env.svc.Create(context.Background(), CreateRSVPInput{
		Name:    "  Ana  ",
		Email:   " Ana@X.com ",
		Phone:   "+52 123 456 7890",
		PlusOne: true,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if res.Notification != NotificationSent {
		t.Fatalf("notification = %q (%s), want sent", res.Notification, res.NotificationReason)
	}

	rsvp := res.RSVP
	if rsvp.EventID != "party-2025" || rsvp.Email != "ana@x.com" || rsvp.Name != "Ana" {
		t.Errorf("unexpected rsvp: %+v", rsvp)
	}
	if rsvp.Status != model.RSVPStatusConfirmed {
		t.Errorf("status = %q, want confirmed", rsvp.Status)
	}
	if len(rsvp.EmailHistory) != 1 || rsvp.EmailHistory[0].Type != model.EmailTypeConfirmation {
		t.Fatalf("history = %+v, want one confirmation", rsvp.EmailHistory)
	}
	if rsvp.EmailSent == nil || !rsvp.EmailSent.Equal(rsvp.EmailHistory[0].SentAt) {
		t.Errorf("emailSent = %v, want %v", rsvp.EmailSent, rsvp.EmailHistory[0].SentAt)
	}

	if env.sender.count() != 1 || env.sender.sent[0].To != "ana@x.com" {
		t.Fatalf("sent = %+v", env.sender.sent)
	}
	want := []broker.EventType{broker.EventRSVPCreated, broker.EventRSVPEmailSent}
	if got := env.publisher.types(); !slices.Equal(got, want) {
		t.Errorf("published = %v, want %v", got, want)
	}
}

func TestCreate_Duplicate(t *testing.T) {
	env := newTestEnv(t)
	env.create(t, "ana@x.com")

	_, err := env.svc.Create(context.Background(), CreateRSVPInput{Name: "Ana", Email: "ANA@x.com", Phone: "+521234567890"})
	if !errors.Is(err, ErrDuplicateGuest) {
		t.Fatalf("second Create() error = %v, want ErrDuplicateGuest", err)
	}

	list, err := env.svc.ListByEvent(context.Background(), "party-2025")
	if err != nil {
		t.Fatalf("ListByEvent() error = %v", err)
	}
	if len(list) != 1 {
		t.Errorf("len(list) = %d, want 1", len(list))
	}
}

func TestCreate_Rejections(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, model.Event{Slug: "closed", Title: "Closed", IsActive: false})

	tests := []struct {
		name    string
		input   CreateRSVPInput
		wantErr []error
	}{
		{"missing name", CreateRSVPInput{Email: "a@x.com", Phone: "+521234567890"}, []error{ErrValidation}},
		{"bad email", CreateRSVPInput{Name: "A", Email: "nope", Phone: "+521234567890"}, []error{ErrValidation}},
		{"bad phone", CreateRSVPInput{Name: "A", Email: "a@x.com", Phone: "call me"}, []error{ErrValidation}},
		{"inactive event", CreateRSVPInput{EventSlug: "closed", Name: "A", Email: "a@x.com", Phone: "+521234567890"}, []error{ErrValidation, ErrEventInactive}},
		{"unknown event", CreateRSVPInput{EventSlug: "nope", Name: "A", Email: "a@x.com", Phone: "+521234567890"}, []error{ErrEventNotFound}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.svc.Create(context.Background(), tt.input)
			for _, want := range tt.wantErr {
				if !errors.Is(err, want) {
					t.Errorf("Create() error = %v, want %v", err, want)
				}
			}
		})
	}
	if env.sender.count() != 0 {
		t.Errorf("rejected submissions sent %d emails", env.sender.count())
	}
}

func TestCreate_NotificationOutcomes(t *testing.T) {
	t.Run("provider failure keeps the rsvp", func(t *testing.T) {
		env := newTestEnv(t)
		env.sender.err = errors.New("smtp 451")

		res, err := env.svc.Create(context.Background(), CreateRSVPInput{Name: "A", Email: "a@x.com", Phone: "+521234567890"})
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if res.Notification != NotificationFailed || res.NotificationReason == "" {
			t.Errorf("notification = %q %q, want failed with reason", res.Notification, res.NotificationReason)
		}
		stored, err := env.rsvpRepo.GetByID(context.Background(), res.RSVP.ID)
		if err != nil {
			t.Fatalf("GetByID() error = %v", err)
		}
		if len(stored.EmailHistory) != 0 || stored.EmailSent != nil {
			t.Errorf("failed send was recorded: %+v", stored.EmailHistory)
		}
	})

	t.Run("emails disabled", func(t *testing.T) {
		env := newTestEnv(t)
		env.seed(t, model.Event{Slug: "quiet", Title: "Quiet", IsActive: true})

		res, err := env.svc.Create(context.Background(), CreateRSVPInput{EventSlug: "quiet", Name: "A", Email: "a@x.com", Phone: "+521234567890"})
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if res.Notification != NotificationSkipped || env.sender.count() != 0 {
			t.Errorf("notification = %q, sent = %d", res.Notification, env.sender.count())
		}
	})

	t.Run("past event", func(t *testing.T) {
		env := newTestEnv(t)
		env.seed(t, model.Event{Slug: "old", Title: "Old", Date: "2025-01-10", IsActive: true, EmailConfirmationEnabled: true})

		res, err := env.svc.Create(context.Background(), CreateRSVPInput{EventSlug: "old", Name: "A", Email: "a@x.com", Phone: "+521234567890"})
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if res.Notification != NotificationSkipped || env.sender.count() != 0 {
			t.Errorf("notification = %q, sent = %d", res.Notification, env.sender.count())
		}
	})
}

func TestGuestAccess_RejectsBadLinks(t *testing.T) {
	env := newTestEnv(t)
	rsvp := env.create(t, "ana@x.com")
	ctx := context.Background()
	good := env.tokens.Mint(rsvp.ID.String(), rsvp.Email)

	if _, err := env.svc.GetForGuest(ctx, rsvp.ID.String(), good); err != nil {
		t.Fatalf("GetForGuest(valid) error = %v", err)
	}

	other := crypto.NewCancelTokens("other-secret").Mint(rsvp.ID.String(), rsvp.Email)
	cases := map[string][2]string{
		"wrong token":   {rsvp.ID.String(), "00000000000000000000000000000000"},
		"other secret":  {rsvp.ID.String(), other},
		"unknown id":    {"7c9e6679-7425-40de-944b-e07fc1f90ae7", good},
		"malformed id":  {"not-a-uuid", good},
		"empty token":   {rsvp.ID.String(), ""},
		"other's token": {rsvp.ID.String(), env.tokens.Mint(rsvp.ID.String(), "eve@x.com")},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := env.svc.GetForGuest(ctx, c[0], c[1]); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("GetForGuest() error = %v, want ErrInvalidToken", err)
			}
			if _, err := env.svc.CancelByGuest(ctx, c[0], c[1]); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("CancelByGuest() error = %v, want ErrInvalidToken", err)
			}
		})
	}

	stored, _ := env.rsvpRepo.GetByID(ctx, rsvp.ID)
	if stored.Status != model.RSVPStatusConfirmed {
		t.Errorf("status = %q after rejected cancels", stored.Status)
	}
}

func TestGuest_CancelThenReconfirm(t *testing.T) {
	env := newTestEnv(t)
	rsvp := env.create(t, "ana@x.com")
	ctx := context.Background()
	token := env.tokens.Mint(rsvp.ID.String(), rsvp.Email)

	cancelled, err := env.svc.CancelByGuest(ctx, rsvp.ID.String(), token)
	if err != nil {
		t.Fatalf("CancelByGuest() error = %v", err)
	}
	if cancelled.Status != model.RSVPStatusCancelled {
		t.Fatalf("status = %q, want cancelled", cancelled.Status)
	}

	again, err := env.svc.CancelByGuest(ctx, rsvp.ID.String(), token)
	if err != nil || again.Status != model.RSVPStatusCancelled {
		t.Fatalf("second CancelByGuest() = %v, %v", again, err)
	}

	stats, err := env.svc.Stats(ctx, "party-2025")
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.Confirmed != 0 || stats.Cancelled != 1 {
		t.Errorf("stats after cancel = %+v", stats)
	}

	reconfirmed, err := env.svc.UpdateByGuest(ctx, GuestUpdateInput{
		RSVPID:    rsvp.ID.String(),
		Token:     token,
		Name:      "Ana María",
		Email:     "ana@x.com",
		Phone:     "+521234567890",
		PlusOne:   true,
		Reconfirm: true,
	})
	if err != nil {
		t.Fatalf("UpdateByGuest() error = %v", err)
	}
	if reconfirmed.Status != model.RSVPStatusConfirmed || reconfirmed.Name != "Ana María" || !reconfirmed.PlusOne {
		t.Errorf("reconfirmed = %+v", reconfirmed)
	}
	if len(reconfirmed.EmailHistory) != 1 {
		t.Errorf("history changed by guest edits: %+v", reconfirmed.EmailHistory)
	}

	want := []broker.EventType{
		broker.EventRSVPCreated, broker.EventRSVPEmailSent,
		broker.EventRSVPCancelled, broker.EventRSVPReconfirmed,
	}
	if got := env.publisher.types(); !slices.Equal(got, want) {
		t.Errorf("published = %v, want %v", got, want)
	}
}

func TestGuest_EmailChangeRotatesToken(t *testing.T) {
	env := newTestEnv(t)
	rsvp := env.create(t, "ana@x.com")
	env.create(t, "bea@x.com")
	ctx := context.Background()
	oldToken := env.tokens.Mint(rsvp.ID.String(), rsvp.Email)

	_, err := env.svc.UpdateByGuest(ctx, GuestUpdateInput{
		RSVPID: rsvp.ID.String(), Token: oldToken,
		Name: "Ana", Email: "bea@x.com", Phone: "+521234567890",
	})
	if !errors.Is(err, ErrDuplicateGuest) {
		t.Fatalf("UpdateByGuest(taken email) error = %v, want ErrDuplicateGuest", err)
	}

	updated, err := env.svc.UpdateByGuest(ctx, GuestUpdateInput{
		RSVPID: rsvp.ID.String(), Token: oldToken,
		Name: "Ana", Email: "Ana.New@x.com", Phone: "+521234567890",
	})
	if err != nil {
		t.Fatalf("UpdateByGuest() error = %v", err)
	}
	if updated.Email != "ana.new@x.com" {
		t.Errorf("email = %q", updated.Email)
	}
	if _, err := env.svc.GetForGuest(ctx, rsvp.ID.String(), oldToken); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("old token still valid: %v", err)
	}
	if _, err := env.svc.GetForGuest(ctx, rsvp.ID.String(), updated.CancelToken); err != nil {
		t.Errorf("new token rejected: %v", err)
	}
}

func TestSendEmail_VariantAndGuards(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	rsvp := env.create(t, "ana@x.com")

	res, err := env.svc.SendEmail(ctx, "party-2025", rsvp.ID)
	if err != nil {
		t.Fatalf("SendEmail() error = %v", err)
	}
	if res.Variant != model.EmailTypeReminder || res.MessageID == "" {
		t.Errorf("result = %+v, want reminder with message id", res)
	}
	if n := len(res.RSVP.EmailHistory); n != 2 {
		t.Fatalf("history length = %d, want 2", n)
	}
	if res.RSVP.EmailHistory[1].SentAt.Before(res.RSVP.EmailHistory[0].SentAt) {
		t.Error("history is not chronological")
	}

	status := model.RSVPStatusCancelled
	if _, err := env.svc.AdminUpdate(ctx, "party-2025", rsvp.ID, AdminUpdateInput{Status: &status}); err != nil {
		t.Fatalf("AdminUpdate() error = %v", err)
	}
	res, err = env.svc.SendEmail(ctx, "party-2025", rsvp.ID)
	if err != nil {
		t.Fatalf("SendEmail(cancelled) error = %v", err)
	}
	if res.Variant != model.EmailTypeReInvitation {
		t.Errorf("variant = %q, want re-invitation", res.Variant)
	}

	env.sender.err = errors.New("provider down")
	if _, err := env.svc.SendEmail(ctx, "party-2025", rsvp.ID); !errors.Is(err, ErrDispatchFailed) {
		t.Errorf("SendEmail(provider down) error = %v, want ErrDispatchFailed", err)
	}
	stored, _ := env.rsvpRepo.GetByID(ctx, rsvp.ID)
	if len(stored.EmailHistory) != 3 {
		t.Errorf("history length = %d after failed send, want 3", len(stored.EmailHistory))
	}
	env.sender.err = nil

	env.seed(t, model.Event{Slug: "party-2025", Title: "Fiesta", Date: "01/09/2025", IsActive: true, EmailConfirmationEnabled: true})
	if _, err := env.svc.SendEmail(ctx, "party-2025", rsvp.ID); !errors.Is(err, ErrEventInPast) {
		t.Errorf("SendEmail(past) error = %v, want ErrEventInPast", err)
	}

	env.seed(t, model.Event{Slug: "other", Title: "Other", IsActive: true})
	if _, err := env.svc.SendEmail(ctx, "other", rsvp.ID); !errors.Is(err, ErrRSVPNotFound) {
		t.Errorf("SendEmail(other event) error = %v, want ErrRSVPNotFound", err)
	}
}

func TestSendBulk(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.create(t, "a@x.com")
	b := env.create(t, "b@x.com")
	sentBefore := env.sender.count()

	missing := a.ID
	missing[0] ^= 0xff
	res, err := env.svc.SendBulk(ctx, "party-2025", []uuid.UUID{a.ID, missing, b.ID, a.ID})
	if err != nil {
		t.Fatalf("SendBulk() error = %v", err)
	}
	if res.Sent != 2 || res.Failed != 1 || res.Skipped != 1 {
		t.Errorf("result = %+v", res)
	}
	if len(res.Items) != 4 || res.Items[1].Status != NotificationFailed {
		t.Errorf("items = %+v", res.Items)
	}
	if got := env.sender.count() - sentBefore; got != 2 {
		t.Errorf("provider calls = %d, want 2", got)
	}
	if len(env.sleeps) != 1 || env.sleeps[0] != 600*time.Millisecond {
		t.Errorf("sleeps = %v, want one 600ms pause", env.sleeps)
	}

	env.seed(t, model.Event{Slug: "party-2025", Title: "Fiesta", Date: "2024-12-31", IsActive: true})
	if _, err := env.svc.SendBulk(ctx, "party-2025", []uuid.UUID{a.ID}); !errors.Is(err, ErrEventInPast) {
		t.Errorf("SendBulk(past) error = %v, want ErrEventInPast", err)
	}
}

func TestImport(t *testing.T) {
	env := newTestEnv(t)
	env.create(t, "dup@x.com")
	sentBefore := env.sender.count()

	res, err := env.svc.Import(context.Background(), "party-2025", []ImportGuest{
		{Name: "A", Email: "a@x.com", Phone: "+521234567890"},
		{Name: "Dup", Email: "DUP@x.com", Phone: "+521234567890"},
		{Name: "", Email: "c@x.com", Phone: "+521234567890"},
		{Name: "B", Email: "b@x.com", Phone: "+521234567890", PlusOne: true},
	})
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if res.Created != 2 || res.Duplicates != 1 || res.Invalid != 1 || len(res.Errors) != 1 {
		t.Errorf("result = %+v", res)
	}
	if env.sender.count() != sentBefore {
		t.Error("Import sent emails")
	}
}

func TestAdminUpdate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	rsvp := env.create(t, "ana@x.com")

	bad := model.RSVPStatus("maybe")
	if _, err := env.svc.AdminUpdate(ctx, "party-2025", rsvp.ID, AdminUpdateInput{Status: &bad}); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("AdminUpdate(bad status) error = %v", err)
	}
	badEmail := "nope"
	if _, err := env.svc.AdminUpdate(ctx, "party-2025", rsvp.ID, AdminUpdateInput{Email: &badEmail}); !errors.Is(err, ErrValidation) {
		t.Errorf("AdminUpdate(bad email) error = %v", err)
	}

	name := "Ana B."
	plusOne := true
	got, err := env.svc.AdminUpdate(ctx, "party-2025", rsvp.ID, AdminUpdateInput{Name: &name, PlusOne: &plusOne})
	if err != nil {
		t.Fatalf("AdminUpdate() error = %v", err)
	}
	if got.Name != name || !got.PlusOne || got.Status != model.RSVPStatusConfirmed {
		t.Errorf("updated = %+v", got)
	}

	stats, err := env.svc.Stats(ctx, "party-2025")
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if *stats != (model.RSVPStats{Total: 1, Confirmed: 1, PlusOnes: 1}) {
		t.Errorf("stats = %+v", stats)
	}
}

func TestPublishFailureIsNotFatal(t *testing.T) {
	env := newTestEnv(t)
	env.publisher.err = errors.New("broker down")

	res, err := env.svc.Create(context.Background(), CreateRSVPInput{Name: "A", Email: "a@x.com", Phone: "+521234567890"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if res.Notification != NotificationSent {
		t.Errorf("notification = %q", res.Notification)
	}
}
