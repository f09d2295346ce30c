// Package notify sends the applicant confirmation, the team notification and
// the team SMS for submitted applications.
package notify

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ahmed-abdelmageed/vise-services-sub001/config"

	"github.com/goccy/go-json"
	circuit "github.com/rubyist/circuitbreaker"
)

// Mailer delivers the two submission emails.
type Mailer interface {
	SendConfirmation(ctx context.Context, msg Confirmation) error
	SendTeamNotification(ctx context.Context, msg TeamNotice) error
}

type message struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
	ReplyTo string   `json:"reply_to,omitempty"`
}

// HTTPMailer posts messages to a transactional email API with a bearer key.
type HTTPMailer struct {
	cfg    config.EmailConfig
	client *circuit.HTTPClient
}

func NewHTTPMailer(cfg config.EmailConfig, client *http.Client) *HTTPMailer {
	if client == nil {
		client = &http.Client{}
	}
	return &HTTPMailer{cfg: cfg, client: circuit.NewHTTPClient(10*time.Second, 5, client)}
}

func (m *HTTPMailer) SendConfirmation(ctx context.Context, msg Confirmation) error {
	html, err := render(confirmationTmpl, msg)
	if err != nil {
		return err
	}
	return m.send(ctx, message{
		From:    m.cfg.From,
		To:      []string{msg.Email},
		Subject: fmt.Sprintf("Application received - %s", msg.ReferenceId),
		HTML:    html,
	})
}

func (m *HTTPMailer) SendTeamNotification(ctx context.Context, msg TeamNotice) error {
	if m.cfg.TeamEmail == "" {
		return fmt.Errorf("team address not configured")
	}
	html, err := render(teamTmpl, msg)
	if err != nil {
		return err
	}
	return m.send(ctx, message{
		From:    m.cfg.From,
		To:      []string{m.cfg.TeamEmail},
		Subject: fmt.Sprintf("New visa application %s - %s", msg.ReferenceId, msg.ServiceType),
		HTML:    html,
		ReplyTo: msg.Email,
	})
}

func (m *HTTPMailer) send(ctx context.Context, msg message) error {
	if m.cfg.APIURL == "" {
		return fmt.Errorf("email api not configured")
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.cfg.APIURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.cfg.APIKey)

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("email api returned %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
	}
	return nil
}
