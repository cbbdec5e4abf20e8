package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/mail"
	"strings"

	"invitely/rsvphub/internal/config"
)

// httpMailSender talks to a transactional email API that accepts
// {from,to,subject,html} and answers {id} or {message}.
type httpMailSender struct {
	endpoint string
	apiKey   string
	from     string
	client   *http.Client
}

type httpMailRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

type httpMailResponse struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

func NewHTTPMailSender(cfg config.MailHTTPConfig, fromEmail, fromName string) (MailSender, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, fmt.Errorf("mail http endpoint is required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("mail http api_key is required")
	}
	if _, err := mail.ParseAddress(fromEmail); err != nil {
		return nil, fmt.Errorf("invalid mail from_email: %w", err)
	}
	from := fromEmail
	if strings.TrimSpace(fromName) != "" {
		from = (&mail.Address{Name: fromName, Address: fromEmail}).String()
	}
	return &httpMailSender{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		from:     from,
		client:   &http.Client{},
	}, nil
}

func (s *httpMailSender) Send(ctx context.Context, to string, subject string, htmlBody string) (string, error) {
	payload, err := json.Marshal(httpMailRequest{
		From:    s.from,
		To:      []string{to},
		Subject: subject,
		HTML:    htmlBody,
	})
	if err != nil {
		return "", fmt.Errorf("encode mail request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build mail request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("mail api request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return "", fmt.Errorf("read mail api response: %w", err)
	}

	var out httpMailResponse
	_ = json.Unmarshal(body, &out)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if out.Message == "" {
			out.Message = http.StatusText(resp.StatusCode)
		}
		return "", fmt.Errorf("mail api status %d: %s", resp.StatusCode, out.Message)
	}
	if out.ID == "" {
		return "", fmt.Errorf("mail api returned no message id")
	}
	return out.ID, nil
}
