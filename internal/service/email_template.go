package service

import (
	"bytes"
	"fmt"
	"html/template"
	"regexp"

	"invitely/rsvphub/internal/model"
)

const (
	defaultPrimaryColor = "#6d28d9"
	defaultAccentColor  = "#f59e0b"
)

var hexColor = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

type emailCopy struct {
	Subject  string
	Heading  string
	Lead     string
	CTALabel string
}

type emailView struct {
	emailCopy
	GuestName    string
	PlusOne      bool
	Cancelled    bool
	EventTitle   string
	HostName     string
	Date         string
	Time         string
	Location     string
	Address      string
	PrimaryColor string
	AccentColor  string
	ManageURL    string
}

func copyFor(variant model.EmailType, title string) emailCopy {
	switch variant {
	case model.EmailTypeReminder:
		return emailCopy{
			Subject:  fmt.Sprintf("Reminder: %s is coming up", title),
			Heading:  "Just a reminder",
			Lead:     "We're looking forward to seeing you. Here are the details again.",
			CTALabel: "View or change my RSVP",
		}
	case model.EmailTypeReInvitation:
		return emailCopy{
			Subject:  fmt.Sprintf("You're still invited to %s", title),
			Heading:  "We'd still love to see you",
			Lead:     "Your RSVP is currently cancelled. If your plans changed, you can confirm again.",
			CTALabel: "Confirm my attendance",
		}
	default:
		return emailCopy{
			Subject:  fmt.Sprintf("You're confirmed for %s", title),
			Heading:  "You're on the list!",
			Lead:     "Thanks for confirming. Here are the details.",
			CTALabel: "Change or cancel my RSVP",
		}
	}
}

var emailTemplate = template.Must(template.New("rsvp_email").Parse(`<!DOCTYPE html>
<html>
<body style="margin:0;padding:0;background:#f4f4f5;font-family:Helvetica,Arial,sans-serif;">
  <table role="presentation" width="100%" cellpadding="0" cellspacing="0">
    <tr><td align="center" style="padding:24px;">
      <table role="presentation" width="560" cellpadding="0" cellspacing="0" style="background:#ffffff;border-radius:12px;overflow:hidden;">
        <tr><td style="background:{{.PrimaryColor}};color:#ffffff;padding:28px 32px;">
          <h1 style="margin:0;font-size:24px;">{{.EventTitle}}</h1>
          {{if .HostName}}<p style="margin:6px 0 0;">Hosted by {{.HostName}}</p>{{end}}
        </td></tr>
        <tr><td style="padding:28px 32px;color:#18181b;">
          <h2 style="margin:0 0 8px;font-size:20px;">{{.Heading}}</h2>
          <p style="margin:0 0 16px;">Hi {{.GuestName}}, {{.Lead}}</p>
          <table role="presentation" cellpadding="0" cellspacing="0" style="margin:0 0 20px;">
            {{if .Date}}<tr><td style="padding:2px 12px 2px 0;color:#71717a;">When</td><td>{{.Date}}{{if .Time}} · {{.Time}}{{end}}</td></tr>{{end}}
            {{if .Location}}<tr><td style="padding:2px 12px 2px 0;color:#71717a;">Where</td><td>{{.Location}}{{if .Address}}<br>{{.Address}}{{end}}</td></tr>{{end}}
            {{if not .Cancelled}}<tr><td style="padding:2px 12px 2px 0;color:#71717a;">Guests</td><td>{{if .PlusOne}}You + 1{{else}}Just you{{end}}</td></tr>{{end}}
          </table>
          <a href="{{.ManageURL}}" style="display:inline-block;background:{{.AccentColor}};color:#18181b;text-decoration:none;padding:12px 20px;border-radius:8px;font-weight:bold;">{{.CTALabel}}</a>
        </td></tr>
      </table>
    </td></tr>
  </table>
</body>
</html>
`))

func renderEmail(view emailView) (string, error) {
	var buf bytes.Buffer
	if err := emailTemplate.Execute(&buf, view); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func safeColor(c, fallback string) string {
	if hexColor.MatchString(c) {
		return c
	}
	return fallback
}
