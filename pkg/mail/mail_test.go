package mail_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/mail"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	smail "github.com/artisanmart/storefront/pkg/mail"
)

func TestBuildPlainMessage(t *testing.T) {
	raw, err := smail.To("a@example.com").Cc("b@example.com").WithSubject("Hi").Text("hello").Build("Shop <shop@example.com>")
	require.NoError(t, err)

	msg, err := mail.ReadMessage(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", msg.Header.Get("To"))
	assert.Equal(t, "b@example.com", msg.Header.Get("Cc"))
	assert.True(t, strings.HasPrefix(msg.Header.Get("Content-Type"), "text/plain"))
}

func TestBuildWithAttachment(t *testing.T) {
	csv := []byte("_id,name\n1,\"Mug, blue\"\n")
	raw, err := smail.To("ops@example.com").
		WithSubject("Catalog export").
		HTML("<p>attached</p>").
		Attach("catalog.csv", "text/csv", csv).
		Build("shop@example.com")
	require.NoError(t, err)

	msg, err := mail.ReadMessage(bytes.NewReader(raw))
	require.NoError(t, err)
	mediaType, params, err := mime.ParseMediaType(msg.Header.Get("Content-Type"))
	require.NoError(t, err)
	require.Equal(t, "multipart/mixed", mediaType)

	mr := multipart.NewReader(msg.Body, params["boundary"])
	body, err := mr.NextPart()
	require.NoError(t, err)
	assert.Contains(t, body.Header.Get("Content-Type"), "text/html")

	att, err := mr.NextPart()
	require.NoError(t, err)
	assert.Equal(t, "catalog.csv", att.FileName())
	assert.Equal(t, "base64", att.Header.Get("Content-Transfer-Encoding"))

	_, err = mr.NextPart()
	assert.ErrorIs(t, err, io.EOF)
}

func TestRecorder(t *testing.T) {
	rec := &smail.Recorder{}
	ctx := context.Background()

	assert.ErrorIs(t, rec.Send(ctx, &smail.Message{}), smail.ErrNoRecipients)
	require.NoError(t, rec.Send(ctx, smail.To("a@example.com").WithSubject("one")))

	rec.Fail = func(m *smail.Message) error {
		if m.To[0] == "bounce@example.com" {
			return errors.New("mailbox full")
		}
		return nil
	}
	assert.Error(t, rec.Send(ctx, smail.To("bounce@example.com")))
	require.NoError(t, rec.Send(ctx, smail.To("b@example.com").Bcc("a@example.com")))

	assert.Len(t, rec.Sent(), 2)
	assert.Len(t, rec.SentTo("a@example.com"), 2)
	assert.Empty(t, rec.SentTo("bounce@example.com"))
}
