package notification_test

import (
	"context"
	"encoding/json"
	gohttp "net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artisanmart/storefront/pkg/mail"
	"github.com/artisanmart/storefront/pkg/notification"
)

type lowStock struct{ product string }

func (lowStock) Via() []string {
	return []string{notification.ChannelMail, notification.ChannelSlack}
}

func (n lowStock) ToMail() notification.MailData {
	return notification.MailData{Subject: "Low stock: " + n.product, Text: n.product + " is running low"}
}

func (n lowStock) ToSlack() notification.SlackData {
	return notification.SlackData{Text: "Low stock: " + n.product}
}

type mailOnly struct{}

func (mailOnly) Via() []string { return []string{notification.ChannelMail, notification.ChannelSlack} }
func (mailOnly) ToMail() notification.MailData {
	return notification.MailData{Subject: "hi"}
}

func TestSendFansOut(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(gohttp.HandlerFunc(func(w gohttp.ResponseWriter, r *gohttp.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
	}))
	defer srv.Close()

	rec := &mail.Recorder{}
	n := notification.New(rec, srv.URL)
	require.NoError(t, n.Send(context.Background(), "ops@example.com", lowStock{product: "Clay mug"}))

	sent := rec.SentTo("ops@example.com")
	require.Len(t, sent, 1)
	assert.Equal(t, "Low stock: Clay mug", sent[0].Subject)
	assert.Equal(t, "Low stock: Clay mug", got["text"])
}

func TestSlackSkippedWithoutWebhook(t *testing.T) {
	rec := &mail.Recorder{}
	n := notification.New(rec, "")
	require.NoError(t, n.Send(context.Background(), "ops@example.com", lowStock{product: "Vase"}))
	assert.Len(t, rec.Sent(), 1)
}

func TestMissingChannelImplementation(t *testing.T) {
	n := notification.New(&mail.Recorder{}, "http://unused.invalid")
	err := n.Send(context.Background(), "ops@example.com", mailOnly{})
	assert.ErrorContains(t, err, "does not implement Slackable")
}
