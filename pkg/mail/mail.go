// Package mail builds and delivers email over SMTP.
//
//	msg := mail.To("buyer@example.com").
//	    Subject("Your order ORD-20261019-1a2b3c4d").
//	    HTML(body).
//	    Attach("catalog.csv", "text/csv", data)
//	err := mailer.Send(ctx, msg)
package mail

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strings"

	"github.com/artisanmart/storefront/config"
	"github.com/artisanmart/storefront/pkg/logger"
)

var ErrNoRecipients = errors.New("mail: message has no recipients")

// Mailer delivers a message.
type Mailer interface {
	Send(ctx context.Context, m *Message) error
}

// SMTP holds connection settings.
type SMTP struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	FromName string
}

// ConfigFromEnv reads MAIL_* settings.
func ConfigFromEnv() SMTP {
	return SMTP{
		Host:     config.Get("MAIL_HOST", ""),
		Port:     config.Get("MAIL_PORT", "587"),
		Username: config.Get("MAIL_USERNAME", ""),
		Password: config.Get("MAIL_PASSWORD", ""),
		From:     config.Get("MAIL_FROM", "orders@artisanmart.local"),
		FromName: config.Get("MAIL_FROM_NAME", config.AppName()),
	}
}

// Attachment is an in-memory file.
type Attachment struct {
	Name        string
	ContentType string
	Data        []byte
}

// Message is one email. The fluent setters return the receiver.
type Message struct {
	To          []string
	CC          []string
	BCC         []string
	Subject     string
	HTMLBody    string
	TextBody    string
	Attachments []Attachment
}

// To starts a message.
func To(addresses ...string) *Message {
	return &Message{To: addresses}
}

func (m *Message) Cc(addresses ...string) *Message {
	m.CC = append(m.CC, addresses...)
	return m
}

func (m *Message) Bcc(addresses ...string) *Message {
	m.BCC = append(m.BCC, addresses...)
	return m
}

func (m *Message) WithSubject(s string) *Message {
	m.Subject = s
	return m
}

// HTML sets the HTML body.
func (m *Message) HTML(body string) *Message {
	m.HTMLBody = body
	return m
}

// Text sets the plain-text body.
func (m *Message) Text(body string) *Message {
	m.TextBody = body
	return m
}

func (m *Message) Attach(name, contentType string, data []byte) *Message {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	m.Attachments = append(m.Attachments, Attachment{Name: name, ContentType: contentType, Data: data})
	return m
}

// Recipients returns every envelope recipient.
func (m *Message) Recipients() []string {
	out := make([]string, 0, len(m.To)+len(m.CC)+len(m.BCC))
	out = append(out, m.To...)
	out = append(out, m.CC...)
	return append(out, m.BCC...)
}

// SMTPMailer sends through an SMTP relay. Port 465 uses implicit TLS,
// anything else STARTTLS when the server offers it.
type SMTPMailer struct {
	cfg SMTP
}

func NewSMTPMailer(cfg SMTP) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

func (s *SMTPMailer) Send(ctx context.Context, m *Message) error {
	rcpt := m.Recipients()
	if len(rcpt) == 0 {
		return ErrNoRecipients
	}
	raw, err := m.Build(fmt.Sprintf("%s <%s>", s.cfg.FromName, s.cfg.From))
	if err != nil {
		return err
	}

	addr := net.JoinHostPort(s.cfg.Host, s.cfg.Port)
	var conn net.Conn
	dialer := &net.Dialer{}
	if s.cfg.Port == "465" {
		conn, err = (&tls.Dialer{NetDialer: dialer, Config: &tls.Config{ServerName: s.cfg.Host}}).DialContext(ctx, "tcp", addr)
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return fmt.Errorf("mail: dial %s: %w", addr, err)
	}
	if dl, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(dl)
	}

	client, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("mail: handshake: %w", err)
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok && s.cfg.Port != "465" {
		if err := client.StartTLS(&tls.Config{ServerName: s.cfg.Host}); err != nil {
			return fmt.Errorf("mail: starttls: %w", err)
		}
	}
	if s.cfg.Username != "" {
		if err := client.Auth(smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)); err != nil {
			return fmt.Errorf("mail: auth: %w", err)
		}
	}
	if err := client.Mail(s.cfg.From); err != nil {
		return fmt.Errorf("mail: from: %w", err)
	}
	for _, to := range rcpt {
		if err := client.Rcpt(to); err != nil {
			return fmt.Errorf("mail: rcpt %s: %w", to, err)
		}
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("mail: data: %w", err)
	}
	if _, err := w.Write(raw); err != nil {
		return fmt.Errorf("mail: write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("mail: close data: %w", err)
	}
	return client.Quit()
}

// LogMailer logs messages instead of sending them. Used when no SMTP host
// is configured.
type LogMailer struct{}

func (LogMailer) Send(ctx context.Context, m *Message) error {
	if len(m.Recipients()) == 0 {
		return ErrNoRecipients
	}
	names := make([]string, 0, len(m.Attachments))
	for _, a := range m.Attachments {
		names = append(names, a.Name)
	}
	logger.WithCtx(ctx).Info("mail: not sent, no SMTP host",
		"to", strings.Join(m.To, ","), "subject", m.Subject, "attachments", names)
	return nil
}

// FromEnv returns an SMTPMailer when MAIL_HOST is set and a LogMailer
// otherwise.
func FromEnv() Mailer {
	cfg := ConfigFromEnv()
	if cfg.Host == "" {
		return LogMailer{}
	}
	return NewSMTPMailer(cfg)
}
