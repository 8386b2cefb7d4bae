// Package steadfast wraps the Steadfast courier consignment API.
package steadfast

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/pawbazaar/marketplace-backend/pkg/errors"
)

const (
	DefaultBaseURL = "https://portal.packzy.com/api/v1"

	responseBodyReadLimit int64 = 1024
)

var errKeysRequired = errors.New("steadfast api key and secret key are required")

// Client creates and tracks consignments.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	secretKey  string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
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

// NewClient builds a courier client with the merchant key pair.
func NewClient(apiKey, secretKey string, opts ...Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	secretKey = strings.TrimSpace(secretKey)
	if apiKey == "" || secretKey == "" {
		return nil, errKeysRequired
	}
	client := &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    DefaultBaseURL,
		apiKey:     apiKey,
		secretKey:  secretKey,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// ConsignmentRequest describes a parcel pickup. CODAmount is zero for prepaid orders.
type ConsignmentRequest struct {
	Invoice          string
	RecipientName    string
	RecipientPhone   string
	RecipientAddress string
	CODAmount        decimal.Decimal
	Note             string
}

// Consignment is the courier-side shipment record.
type Consignment struct {
	ID           string
	TrackingCode string
	Status       string
}

// ConsignmentResult carries the HTTP status alongside the consignment, which is
// nil whenever the courier did not accept the parcel.
type ConsignmentResult struct {
	HTTPStatus  int
	Consignment *Consignment
}

type createOrderPayload struct {
	Invoice          string          `json:"invoice"`
	RecipientName    string          `json:"recipient_name"`
	RecipientPhone   string          `json:"recipient_phone"`
	RecipientAddress string          `json:"recipient_address"`
	CODAmount        decimal.Decimal `json:"cod_amount"`
	Note             string          `json:"note,omitempty"`
}

// CreateConsignment registers a parcel. A non-success status yields a result with
// a nil consignment plus a dependency error.
func (c *Client) CreateConsignment(ctx context.Context, req ConsignmentRequest) (*ConsignmentResult, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "courier not configured")
	}
	if strings.TrimSpace(req.Invoice) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invoice is required")
	}
	if req.CODAmount.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cod amount cannot be negative")
	}

	body, err := json.Marshal(createOrderPayload{
		Invoice:          req.Invoice,
		RecipientName:    req.RecipientName,
		RecipientPhone:   req.RecipientPhone,
		RecipientAddress: req.RecipientAddress,
		CODAmount:        req.CODAmount.Round(2),
		Note:             req.Note,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal consignment")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/create_order", bytes.NewReader(body))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build consignment request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	c.authorize(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute consignment request")
	}
	defer func() { _ = resp.Body.Close() }()

	result := &ConsignmentResult{HTTPStatus: resp.StatusCode}
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return result, pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "consignment rejected")
	}

	var apiResp struct {
		Status      int    `json:"status"`
		Message     string `json:"message"`
		Consignment *struct {
			ConsignmentID json.Number `json:"consignment_id"`
			TrackingCode  string      `json:"tracking_code"`
			Status        string      `json:"status"`
		} `json:"consignment"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return result, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode consignment response")
	}
	if apiResp.Status != 0 && apiResp.Status != http.StatusOK {
		result.HTTPStatus = apiResp.Status
		return result, pkgerrors.New(pkgerrors.CodeDependency, "consignment rejected").WithDetails(map[string]string{"message": apiResp.Message})
	}
	if apiResp.Consignment == nil || apiResp.Consignment.TrackingCode == "" {
		return result, pkgerrors.New(pkgerrors.CodeDependency, "consignment missing from courier response")
	}

	result.Consignment = &Consignment{
		ID:           apiResp.Consignment.ConsignmentID.String(),
		TrackingCode: apiResp.Consignment.TrackingCode,
		Status:       apiResp.Consignment.Status,
	}
	return result, nil
}

// GetStatus returns the courier's delivery status for a tracking code.
func (c *Client) GetStatus(ctx context.Context, trackingCode string) (string, error) {
	if c == nil {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "courier not configured")
	}
	trackingCode = strings.TrimSpace(trackingCode)
	if trackingCode == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "tracking code is required")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/status_by_trackingcode/"+url.PathEscape(trackingCode), nil)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build tracking request")
	}
	c.authorize(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute tracking request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "tracking request failed")
	}

	var apiResp struct {
		DeliveryStatus string `json:"delivery_status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode tracking response")
	}
	if apiResp.DeliveryStatus == "" {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "tracking response missing delivery status")
	}
	return apiResp.DeliveryStatus, nil
}

func (c *Client) authorize(req *http.Request) {
	req.Header.Set("Api-Key", c.apiKey)
	req.Header.Set("Secret-Key", c.secretKey)
}
