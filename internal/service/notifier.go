package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"invitely/rsvphub/internal/model"
	"invitely/rsvphub/pkg/crypto"
)

// Notifier sends one RSVP email. It makes exactly one provider call per Send,
// never retries, and never records the send: callers do that once Send
// returns nil.
type Notifier interface {
	Send(ctx context.Context, rsvp *model.RSVP, event *model.Event, variant model.EmailType) (string, error)
	ManageURL(rsvp *model.RSVP) string
}

type NotifierConfig struct {
	PublicBaseURL string
	ManagePath    string
	SendTimeout   time.Duration
}

type notifier struct {
	sender MailSender
	tokens *crypto.CancelTokens
	cfg    NotifierConfig
}

func NewNotifier(sender MailSender, tokens *crypto.CancelTokens, cfg NotifierConfig) Notifier {
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 8 * time.Second
	}
	if cfg.ManagePath == "" {
		cfg.ManagePath = "/rsvp/manage"
	}
	return &notifier{sender: sender, tokens: tokens, cfg: cfg}
}

// ManageURL is the guest self-service link carrying the RSVP id and a token
// minted from the email currently on record.
func (n *notifier) ManageURL(rsvp *model.RSVP) string {
	q := url.Values{}
	q.Set("id", rsvp.ID.String())
	q.Set("token", n.tokens.Mint(rsvp.ID.String(), rsvp.Email))
	return strings.TrimRight(n.cfg.PublicBaseURL, "/") + n.cfg.ManagePath + "?" + q.Encode()
}

func (n *notifier) Send(ctx context.Context, rsvp *model.RSVP, event *model.Event, variant model.EmailType) (string, error) {
	if !variant.Valid() {
		return "", fmt.Errorf("%w: unknown variant %q", ErrDispatchFailed, variant)
	}

	title := event.Title
	if title == "" {
		title = event.Slug
	}
	view := emailView{
		emailCopy:    copyFor(variant, title),
		GuestName:    rsvp.Name,
		PlusOne:      rsvp.PlusOne,
		Cancelled:    rsvp.Status == model.RSVPStatusCancelled,
		EventTitle:   title,
		HostName:     event.HostName,
		Date:         event.Date,
		Time:         event.Time,
		Location:     event.Location,
		Address:      event.Address,
		PrimaryColor: safeColor(event.PrimaryColor, defaultPrimaryColor),
		AccentColor:  safeColor(event.AccentColor, defaultAccentColor),
		ManageURL:    n.ManageURL(rsvp),
	}
	body, err := renderEmail(view)
	if err != nil {
		return "", fmt.Errorf("%w: render: %v", ErrDispatchFailed, err)
	}

	sendCtx, cancel := context.WithTimeout(ctx, n.cfg.SendTimeout)
	defer cancel()

	id, err := n.sender.Send(sendCtx, rsvp.Email, view.Subject, body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDispatchFailed, err)
	}
	return id, nil
}

// variantFor infers which email an admin-triggered send should use.
func variantFor(rsvp *model.RSVP) model.EmailType {
	switch {
	case rsvp.Status == model.RSVPStatusCancelled:
		return model.EmailTypeReInvitation
	case rsvp.EmailSent == nil:
		return model.EmailTypeConfirmation
	default:
		return model.EmailTypeReminder
	}
}
