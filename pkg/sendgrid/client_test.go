package sendgrid

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/pawbazaar/marketplace-backend/pkg/errors"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func TestSendPostsMailWithAttachment(t *testing.T) {
	var captured mail.SGMailV3
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		assert.Equal(t, "http://mail.test/v3/mail/send", req.URL.String())
		assert.Equal(t, http.MethodPost, req.Method)
		assert.Equal(t, "Bearer key", req.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(req.Body).Decode(&captured))
		return &http.Response{StatusCode: http.StatusAccepted, Body: io.NopCloser(strings.NewReader(""))}, nil
	})
	client, err := NewClient("key", "shop@pawbazaar.test", WithBaseURL("http://mail.test"), WithHTTPClient(&http.Client{Transport: rt}))
	require.NoError(t, err)

	err = client.Send(context.Background(), Mail{
		To:          "rina@example.com",
		Subject:     "Your order",
		HTML:        "<p>hi</p>",
		Attachments: []Attachment{{Filename: "invoice.html", ContentType: "text/html", Content: []byte("<h1>Invoice</h1>")}},
	})
	require.NoError(t, err)

	require.Len(t, captured.Personalizations, 1)
	assert.Equal(t, "rina@example.com", captured.Personalizations[0].To[0].Address)
	assert.Equal(t, "shop@pawbazaar.test", captured.From.Address)
	assert.Equal(t, "Your order", captured.Subject)
	require.Len(t, captured.Content, 1)
	assert.Equal(t, "text/html", captured.Content[0].Type)
	require.Len(t, captured.Attachments, 1)
	assert.Equal(t, "invoice.html", captured.Attachments[0].Filename)
	assert.Equal(t, "attachment", captured.Attachments[0].Disposition)
	decoded, err := base64.StdEncoding.DecodeString(captured.Attachments[0].Content)
	require.NoError(t, err)
	assert.Equal(t, "<h1>Invoice</h1>", string(decoded))
}

func TestSendFailureStatus(t *testing.T) {
	rt := roundTripFunc(func(*http.Request) (*http.Response, error) {
		return &http.Response{StatusCode: http.StatusUnauthorized, Body: io.NopCloser(strings.NewReader(`{"errors":[]}`))}, nil
	})
	client, err := NewClient("key", "x@y", WithHTTPClient(&http.Client{Transport: rt}))
	require.NoError(t, err)
	err = client.Send(context.Background(), Mail{To: "a@b", Subject: "s"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}

func TestSendRequiresRecipient(t *testing.T) {
	client, err := NewClient("key", "x@y")
	require.NoError(t, err)
	assert.True(t, pkgerrors.IsCode(client.Send(context.Background(), Mail{}), pkgerrors.CodeValidation))
}
