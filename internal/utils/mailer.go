package utils

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"github.com/badoux/checkmail"
	"gopkg.in/gomail.v2"
)

// Mailer sends transactional email
type Mailer interface {
	SendInvitation(ctx context.Context, mail InvitationMail) error
}

// InvitationMail carries what an invitation email needs
type InvitationMail struct {
	To        string
	Name      string
	TeamName  string
	Role      string
	AcceptURL string
}

// SMTPConfig holds SMTP dialer settings
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Enabled reports whether enough settings exist to send mail
func (c SMTPConfig) Enabled() bool {
	return c.Host != "" && c.Port > 0 && c.From != ""
}

var invitationTemplate = template.Must(template.New("invitation").Parse(`<p>Hi {{if .Name}}{{.Name}}{{else}}there{{end}},</p>
<p>You have been invited to join <strong>{{.TeamName}}</strong> as {{.Role}}.</p>
<p><a href="{{.AcceptURL}}">Accept the invitation</a></p>`))

// SMTPMailer sends email through an SMTP server with gomail
type SMTPMailer struct {
	cfg    SMTPConfig
	dialer *gomail.Dialer
}

// NewSMTPMailer creates a mailer for cfg
func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	return &SMTPMailer{
		cfg:    cfg,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
	}
}

// SendInvitation renders and sends an invitation email
func (m *SMTPMailer) SendInvitation(ctx context.Context, mail InvitationMail) error {
	msg, err := BuildInvitationMessage(m.cfg.From, mail)
	if err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() {
		done <- m.dialer.DialAndSend(msg)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("error sending email: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// BuildInvitationMessage validates the recipient and renders the message
func BuildInvitationMessage(from string, mail InvitationMail) (*gomail.Message, error) {
	if err := ValidateEmail(mail.To); err != nil {
		return nil, err
	}

	var body bytes.Buffer
	if err := invitationTemplate.Execute(&body, mail); err != nil {
		return nil, fmt.Errorf("failed to render invitation: %w", err)
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", from)
	msg.SetHeader("To", mail.To)
	msg.SetHeader("Subject", fmt.Sprintf("You're invited to %s", mail.TeamName))
	msg.SetBody("text/html", body.String())
	return msg, nil
}

// ValidateEmail checks the address format
func ValidateEmail(email string) error {
	if err := checkmail.ValidateFormat(email); err != nil {
		return fmt.Errorf("invalid email format: %w", err)
	}
	return nil
}

// NoopMailer discards every email
type NoopMailer struct{}

// SendInvitation implements Mailer
func (NoopMailer) SendInvitation(context.Context, InvitationMail) error {
	return nil
}
