// Package sendgrid sends transactional mail through the SendGrid v3 API.
package sendgrid

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sendgrid/rest"
	sg "github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	pkgerrors "github.com/pawbazaar/marketplace-backend/pkg/errors"
)

const (
	DefaultBaseURL = "https://api.sendgrid.com"

	sendEndpoint   = "/v3/mail/send"
	errorBodyLimit = 1024
)

var errAPIKeyRequired = errors.New("sendgrid api key is required")

// Client posts messages to /v3/mail/send.
type Client struct {
	rest    *rest.Client
	baseURL string
	apiKey  string
	from    string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.rest = &rest.Client{HTTPClient: client}
		}
	}
}

// WithBaseURL overrides the API base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if trimmed := strings.TrimSpace(baseURL); trimmed != "" {
			c.baseURL = strings.TrimRight(trimmed, "/")
		}
	}
}

// NewClient builds a mail client sending from the given address.
func NewClient(apiKey, from string, opts ...Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errAPIKeyRequired
	}
	client := &Client{
		rest:    &rest.Client{HTTPClient: &http.Client{Timeout: 10 * time.Second}},
		baseURL: DefaultBaseURL,
		apiKey:  apiKey,
		from:    strings.TrimSpace(from),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// Mail is a rendered message.
type Mail struct {
	To          string
	Subject     string
	HTML        string
	Attachments []Attachment
}

// Attachment is raw file content; it is base64 encoded on the wire.
type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

func (c *Client) message(m Mail) *mail.SGMailV3 {
	msg := mail.NewV3Mail()
	msg.SetFrom(mail.NewEmail("", c.from))
	msg.Subject = m.Subject

	p := mail.NewPersonalization()
	p.AddTos(mail.NewEmail("", m.To))
	msg.AddPersonalizations(p)
	msg.AddContent(mail.NewContent("text/html", m.HTML))

	for _, a := range m.Attachments {
		att := mail.NewAttachment()
		att.SetContent(base64.StdEncoding.EncodeToString(a.Content))
		att.SetFilename(a.Filename)
		att.SetDisposition("attachment")
		if a.ContentType != "" {
			att.SetType(a.ContentType)
		}
		msg.AddAttachment(att)
	}
	return msg
}

// Send delivers one message. SendGrid answers 202 on acceptance.
func (c *Client) Send(ctx context.Context, m Mail) error {
	if c == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "mail client not configured")
	}
	if strings.TrimSpace(m.To) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "recipient is required")
	}

	req := sg.GetRequest(c.apiKey, sendEndpoint, c.baseURL)
	req.Method = rest.Post
	req.Body = mail.GetRequestBody(c.message(m))

	resp, err := c.rest.SendWithContext(ctx, req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute mail request")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body := strings.TrimSpace(resp.Body)
		if len(body) > errorBodyLimit {
			body = body[:errorBodyLimit]
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, body), "mail send failed")
	}
	return nil
}
