package clients

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/mail"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSES struct {
	input *ses.SendRawEmailInput
	err   error
}

func (f *fakeSES) SendRawEmail(ctx context.Context, params *ses.SendRawEmailInput, optFns ...func(*ses.Options)) (*ses.SendRawEmailOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &ses.SendRawEmailOutput{MessageId: aws.String("msg-1")}, nil
}

func TestSESClient_SendBuildsMultipartMessage(t *testing.T) {
	api := &fakeSES{}
	c := newSESClient(api, "contact@yesod.fr")
	c.now = func() time.Time { return time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC) }

	pdf := bytes.Repeat([]byte("%PDF-1.3 "), 40)
	id, err := c.Send(context.Background(), Email{
		To:      "jean@dupont.fr",
		Subject: "Mise en demeure de payer",
		Body:    "Veuillez trouver ci-joint la mise en demeure.",
		Attachments: []Attachment{
			{Name: "mise-en-demeure-Jean-Dupont.pdf", ContentType: "application/pdf", Data: pdf},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "msg-1", id)

	require.NotNil(t, api.input)
	assert.Equal(t, "contact@yesod.fr", aws.ToString(api.input.Source))
	assert.Equal(t, []string{"jean@dupont.fr"}, api.input.Destinations)

	m, err := mail.ReadMessage(bytes.NewReader(api.input.RawMessage.Data))
	require.NoError(t, err)
	assert.Equal(t, "jean@dupont.fr", m.Header.Get("To"))

	mediaType, params, err := mime.ParseMediaType(m.Header.Get("Content-Type"))
	require.NoError(t, err)
	assert.Equal(t, "multipart/mixed", mediaType)

	mr := multipart.NewReader(m.Body, params["boundary"])

	text, err := mr.NextPart()
	require.NoError(t, err)
	got, _ := io.ReadAll(text)
	assert.Equal(t, "Veuillez trouver ci-joint la mise en demeure.", string(got))

	att, err := mr.NextPart()
	require.NoError(t, err)
	assert.Equal(t, "mise-en-demeure-Jean-Dupont.pdf", att.FileName())
	assert.Equal(t, "application/pdf", att.Header.Get("Content-Type"))

	_, err = mr.NextPart()
	assert.ErrorIs(t, err, io.EOF)
}

func TestSESClient_SendError(t *testing.T) {
	api := &fakeSES{err: errors.New("MessageRejected")}
	c := newSESClient(api, "contact@yesod.fr")

	_, err := c.Send(context.Background(), Email{To: "x@y.fr"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MessageRejected")
}
