// Package sslcommerz wraps the SSLCommerz hosted-redirect payment gateway.
package sslcommerz

import (
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
	SandboxBaseURL = "https://sandbox.sslcommerz.com"
	LiveBaseURL    = "https://securepay.sslcommerz.com"

	initiatePath = "/gwprocess/v4/api.php"
	validatePath = "/validator/api/validationserverAPI.php"

	StatusValid     = "VALID"
	StatusValidated = "VALIDATED"

	responseBodyReadLimit int64 = 1024
	defaultCurrency             = "BDT"
)

var errCredentialsRequired = errors.New("sslcommerz store id and password are required")

// Client talks to the session and validation APIs.
type Client struct {
	httpClient    *http.Client
	baseURL       string
	storeID       string
	storePassword string
	currency      string
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

// WithBaseURL overrides the environment base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if trimmed := strings.TrimSpace(baseURL); trimmed != "" {
			c.baseURL = strings.TrimRight(trimmed, "/")
		}
	}
}

// WithCurrency overrides the ISO currency sent with sessions.
func WithCurrency(currency string) Option {
	return func(c *Client) {
		if trimmed := strings.TrimSpace(currency); trimmed != "" {
			c.currency = strings.ToUpper(trimmed)
		}
	}
}

// NewClient builds a gateway client. sandbox selects the sandbox base URL.
func NewClient(storeID, storePassword string, sandbox bool, opts ...Option) (*Client, error) {
	storeID = strings.TrimSpace(storeID)
	storePassword = strings.TrimSpace(storePassword)
	if storeID == "" || storePassword == "" {
		return nil, errCredentialsRequired
	}

	client := &Client{
		httpClient:    &http.Client{Timeout: 15 * time.Second},
		baseURL:       LiveBaseURL,
		storeID:       storeID,
		storePassword: storePassword,
		currency:      defaultCurrency,
	}
	if sandbox {
		client.baseURL = SandboxBaseURL
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// Customer identifies the payer on the hosted page.
type Customer struct {
	Name  string
	Email string
	Phone string
}

// Callbacks are the browser return URLs for each gateway outcome.
type Callbacks struct {
	Success string
	Fail    string
	Cancel  string
}

// InitiateRequest describes a payment session for an existing transaction.
type InitiateRequest struct {
	Amount          decimal.Decimal
	ExternalID      string
	ProductLabel    string
	ProductCategory string
	Customer        Customer
	Callbacks       Callbacks
	ShippingAddress string
	Phone           string
	ItemCount       int
}

// Session is the gateway-side payment session.
type Session struct {
	SessionRef  string
	RedirectURL string
}

// Initiate opens a hosted payment session and returns the redirect URL.
func (c *Client) Initiate(ctx context.Context, req InitiateRequest) (*Session, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payment gateway not configured")
	}
	if !req.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment amount must be greater than zero")
	}
	if strings.TrimSpace(req.ExternalID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "external id is required")
	}

	form := c.initiateForm(req)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+initiatePath, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build payment session request")
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var apiResp struct {
		Status         string `json:"status"`
		FailedReason   string `json:"failedreason"`
		SessionKey     string `json:"sessionkey"`
		GatewayPageURL string `json:"GatewayPageURL"`
	}
	if err := c.do(httpReq, &apiResp); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment session")
	}
	if !strings.EqualFold(apiResp.Status, "SUCCESS") || apiResp.GatewayPageURL == "" {
		reason := strings.TrimSpace(apiResp.FailedReason)
		if reason == "" {
			reason = "gateway returned status " + apiResp.Status
		}
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payment session rejected").WithDetails(map[string]string{"reason": reason})
	}

	return &Session{SessionRef: apiResp.SessionKey, RedirectURL: apiResp.GatewayPageURL}, nil
}

func (c *Client) initiateForm(req InitiateRequest) url.Values {
	category := req.ProductCategory
	if category == "" {
		category = "general"
	}
	items := req.ItemCount
	if items <= 0 {
		items = 1
	}
	phone := req.Phone
	if phone == "" {
		phone = req.Customer.Phone
	}
	shippingMethod := "NO"
	if strings.TrimSpace(req.ShippingAddress) != "" {
		shippingMethod = "Courier"
	}

	form := url.Values{}
	form.Set("store_id", c.storeID)
	form.Set("store_passwd", c.storePassword)
	form.Set("total_amount", req.Amount.StringFixed(2))
	form.Set("currency", c.currency)
	form.Set("tran_id", req.ExternalID)
	form.Set("value_a", req.ExternalID)
	form.Set("success_url", req.Callbacks.Success)
	form.Set("fail_url", req.Callbacks.Fail)
	form.Set("cancel_url", req.Callbacks.Cancel)
	form.Set("product_name", req.ProductLabel)
	form.Set("product_category", category)
	form.Set("product_profile", "general")
	form.Set("num_of_item", fmt.Sprintf("%d", items))
	form.Set("cus_name", req.Customer.Name)
	form.Set("cus_email", req.Customer.Email)
	form.Set("cus_phone", phone)
	form.Set("cus_add1", req.ShippingAddress)
	form.Set("cus_country", "Bangladesh")
	form.Set("shipping_method", shippingMethod)
	if shippingMethod == "Courier" {
		form.Set("ship_name", req.Customer.Name)
		form.Set("ship_add1", req.ShippingAddress)
		form.Set("ship_city", "Dhaka")
		form.Set("ship_postcode", "1000")
		form.Set("ship_country", "Bangladesh")
	}
	return form
}

// Validation is the gateway's verdict on a callback reference.
type Validation struct {
	Status      string
	TranID      string
	ValID       string
	Amount      decimal.Decimal
	Currency    string
	BankTranID  string
	ValueA      string
	CardType    string
	ValidatedOn string
}

// Valid reports whether the gateway considers the payment settled.
func (v *Validation) Valid() bool {
	if v == nil {
		return false
	}
	return v.Status == StatusValid || v.Status == StatusValidated
}

// Validate looks up valID with the gateway. Non-success transport is returned as
// a dependency error; callers treat it as a failed payment.
func (c *Client) Validate(ctx context.Context, valID string) (*Validation, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payment gateway not configured")
	}
	valID = strings.TrimSpace(valID)
	if valID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "val_id is required")
	}

	query := url.Values{}
	query.Set("val_id", valID)
	query.Set("store_id", c.storeID)
	query.Set("store_passwd", c.storePassword)
	query.Set("format", "json")

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+validatePath+"?"+query.Encode(), nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build validation request")
	}

	var apiResp struct {
		Status      string `json:"status"`
		TranID      string `json:"tran_id"`
		ValID       string `json:"val_id"`
		Amount      string `json:"amount"`
		Currency    string `json:"currency"`
		BankTranID  string `json:"bank_tran_id"`
		ValueA      string `json:"value_a"`
		CardType    string `json:"card_type"`
		ValidatedOn string `json:"validated_on"`
	}
	if err := c.do(httpReq, &apiResp); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "validate payment")
	}

	amount := decimal.Zero
	if strings.TrimSpace(apiResp.Amount) != "" {
		parsed, err := decimal.NewFromString(strings.TrimSpace(apiResp.Amount))
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "parse validated amount")
		}
		amount = parsed
	}

	return &Validation{
		Status:      strings.ToUpper(strings.TrimSpace(apiResp.Status)),
		TranID:      apiResp.TranID,
		ValID:       apiResp.ValID,
		Amount:      amount,
		Currency:    apiResp.Currency,
		BankTranID:  apiResp.BankTranID,
		ValueA:      apiResp.ValueA,
		CardType:    apiResp.CardType,
		ValidatedOn: apiResp.ValidatedOn,
	}, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
