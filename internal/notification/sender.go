// Package notification delivers high-intent alerts to sales teams.
package notification

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net"
	"time"

	"crm_intent_backend/platform/config"

	gomail "github.com/wneessen/go-mail"
)

// AlertData carries the fields rendered into a high-intent alert email.
type AlertData struct {
	Action      string
	IntentScore int
	IntentLevel string
	PageURL     string
	CampaignID  string
}

// Sender delivers alert emails.
type Sender interface {
	SendHighIntentAlert(ctx context.Context, toEmail string, data AlertData) error
}

var alertTemplate = template.Must(template.New("alert").Parse(`
<h2>High buyer intent detected</h2>
<p>A contact just showed strong purchase intent.</p>
<ul>
  <li>Action: {{.Action}}</li>
  <li>Intent score: {{.IntentScore}} ({{.IntentLevel}})</li>
  {{if .PageURL}}<li>Page: {{.PageURL}}</li>{{end}}
  <li>Campaign: {{.CampaignID}}</li>
</ul>
`))

// SMTPSender implements Sender using a direct SMTP connection via go-mail.
type SMTPSender struct {
	host      string
	port      int
	username  string
	password  string
	fromEmail string
}

// NewSMTPSender creates a new SMTPSender from the alert configuration.
func NewSMTPSender(cfg config.AlertConfig) *SMTPSender {
	return &SMTPSender{
		host:      cfg.GetSMTPHost(),
		port:      cfg.GetSMTPPort(),
		username:  cfg.GetSMTPUsername(),
		password:  cfg.GetSMTPPassword(),
		fromEmail: cfg.GetAlertFromAddress(),
	}
}

// SendHighIntentAlert delivers one alert email.
func (s *SMTPSender) SendHighIntentAlert(ctx context.Context, toEmail string, data AlertData) error {
	var body bytes.Buffer
	if err := alertTemplate.Execute(&body, data); err != nil {
		return fmt.Errorf("alert template: %w", err)
	}

	msg := gomail.NewMsg()
	if err := msg.From(s.fromEmail); err != nil {
		return fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(toEmail); err != nil {
		return fmt.Errorf("smtp to: %w", err)
	}
	msg.Subject(fmt.Sprintf("High intent signal: %s scored %d", data.Action, data.IntentScore))
	msg.SetBodyString(gomail.TypeTextHTML, body.String())

	client, err := gomail.NewClient(s.host,
		gomail.WithPort(s.port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(s.username),
		gomail.WithPassword(s.password),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15*time.Second),
		gomail.WithDialContextFunc(func(dctx context.Context, _ string, addr string) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(dctx, "tcp4", addr)
		}),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}
