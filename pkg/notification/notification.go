// Package notification fans a message out to staff channels: email and an
// optional chat webhook (Slack-compatible).
//
//	type LowStock struct{ Product string; Stock int }
//	func (n LowStock) Via() []string { return []string{notification.ChannelMail, notification.ChannelSlack} }
//	func (n LowStock) ToMail() notification.MailData { ... }
//	func (n LowStock) ToSlack() notification.SlackData { ... }
//
//	errs := notifier.Send(ctx, "ops@example.com", LowStock{...})
package notification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/artisanmart/storefront/pkg/http"
	"github.com/artisanmart/storefront/pkg/logger"
	"github.com/artisanmart/storefront/pkg/mail"
)

const (
	ChannelMail    = "mail"
	ChannelSlack   = "slack"
	ChannelWebhook = "webhook"
)

type MailData struct {
	To      string // overrides the address passed to Send
	Subject string
	HTML    string
	Text    string
}

type SlackData struct {
	WebhookURL  string // overrides the notifier default
	Text        string
	Attachments []SlackAttachment
}

type SlackAttachment struct {
	Color string `json:"color,omitempty"` // good, warning or danger
	Title string `json:"title,omitempty"`
	Text  string `json:"text,omitempty"`
}

// WebhookData is an arbitrary JSON POST.
type WebhookData struct {
	URL     string
	Payload any
	Headers map[string]string
}

type Notification interface {
	Via() []string
}

type Mailable interface {
	ToMail() MailData
}

type Slackable interface {
	ToSlack() SlackData
}

type Webhookable interface {
	ToWebhook() WebhookData
}

// Notifier delivers notifications through its configured channels.
type Notifier struct {
	mailer       mail.Mailer
	slackWebhook string
	attempts     int
	retryWait    time.Duration
}

// New creates a notifier. An empty slackWebhook silently skips the slack
// channel unless a notification carries its own URL.
func New(mailer mail.Mailer, slackWebhook string) *Notifier {
	return &Notifier{mailer: mailer, slackWebhook: slackWebhook, attempts: 3, retryWait: 500 * time.Millisecond}
}

// Send dispatches n on every channel it names and joins the failures.
func (s *Notifier) Send(ctx context.Context, address string, n Notification) error {
	var errs []error
	for _, channel := range n.Via() {
		if err := s.dispatch(ctx, address, channel, n); err != nil {
			logger.WithCtx(ctx).Warn("notification: channel failed", "channel", channel, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", channel, err))
		}
	}
	return errors.Join(errs...)
}

func (s *Notifier) dispatch(ctx context.Context, address, channel string, n Notification) error {
	switch channel {
	case ChannelMail:
		m, ok := n.(Mailable)
		if !ok {
			return fmt.Errorf("notification: %T does not implement Mailable", n)
		}
		return s.sendMail(ctx, address, m.ToMail())
	case ChannelSlack:
		sl, ok := n.(Slackable)
		if !ok {
			return fmt.Errorf("notification: %T does not implement Slackable", n)
		}
		return s.sendSlack(ctx, sl.ToSlack())
	case ChannelWebhook:
		wh, ok := n.(Webhookable)
		if !ok {
			return fmt.Errorf("notification: %T does not implement Webhookable", n)
		}
		return s.sendWebhook(ctx, wh.ToWebhook())
	default:
		return fmt.Errorf("notification: unknown channel %q", channel)
	}
}

func (s *Notifier) sendMail(ctx context.Context, address string, d MailData) error {
	to := d.To
	if to == "" {
		to = address
	}
	if to == "" {
		return mail.ErrNoRecipients
	}
	return s.mailer.Send(ctx, mail.To(to).WithSubject(d.Subject).HTML(d.HTML).Text(d.Text))
}

func (s *Notifier) sendSlack(ctx context.Context, d SlackData) error {
	url := d.WebhookURL
	if url == "" {
		url = s.slackWebhook
	}
	if url == "" {
		return nil
	}
	payload := map[string]any{"text": d.Text}
	if len(d.Attachments) > 0 {
		payload["attachments"] = d.Attachments
	}
	return s.post(ctx, url, payload, nil)
}

func (s *Notifier) sendWebhook(ctx context.Context, d WebhookData) error {
	if d.URL == "" {
		return fmt.Errorf("notification: webhook URL is empty")
	}
	return s.post(ctx, d.URL, d.Payload, d.Headers)
}

func (s *Notifier) post(ctx context.Context, url string, payload any, headers map[string]string) error {
	req := http.Post(url).Body(payload).Timeout(5*time.Second).Retry(s.attempts, s.retryWait)
	for k, v := range headers {
		req.Header(k, v)
	}
	resp, err := req.Send(ctx)
	if err != nil {
		return err
	}
	return resp.Throw()
}
