package steadfast

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/pawbazaar/marketplace-backend/pkg/errors"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func respond(status int, body string) *http.Response {
	return &http.Response{StatusCode: status, Body: io.NopCloser(strings.NewReader(body)), Header: http.Header{}}
}

func newTestClient(t *testing.T, rt roundTripFunc) *Client {
	t.Helper()
	client, err := NewClient("api", "secret", WithBaseURL("http://courier.test/api/v1"), WithHTTPClient(&http.Client{Transport: rt}))
	require.NoError(t, err)
	return client
}

func TestCreateConsignmentSuccess(t *testing.T) {
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		assert.Equal(t, "http://courier.test/api/v1/create_order", req.URL.String())
		assert.Equal(t, "api", req.Header.Get("Api-Key"))
		assert.Equal(t, "secret", req.Header.Get("Secret-Key"))

		var payload map[string]any
		require.NoError(t, json.NewDecoder(req.Body).Decode(&payload))
		assert.Equal(t, "AB12CD34EF", payload["invoice"])
		assert.Equal(t, "1500", payload["cod_amount"])
		assert.Equal(t, "01711111111", payload["recipient_phone"])

		return respond(http.StatusOK, `{"status":200,"message":"Consignment has been created successfully.","consignment":{"consignment_id":1424107,"tracking_code":"15BAEB8A","status":"in_review"}}`), nil
	})

	result, err := client.CreateConsignment(context.Background(), ConsignmentRequest{
		Invoice:          "AB12CD34EF",
		RecipientName:    "Rina",
		RecipientPhone:   "01711111111",
		RecipientAddress: "House 1, Road 2, Dhaka",
		CODAmount:        decimal.NewFromInt(1500),
	})
	require.NoError(t, err)
	require.NotNil(t, result.Consignment)
	assert.Equal(t, http.StatusOK, result.HTTPStatus)
	assert.Equal(t, "1424107", result.Consignment.ID)
	assert.Equal(t, "15BAEB8A", result.Consignment.TrackingCode)
	assert.Equal(t, "in_review", result.Consignment.Status)
}

func TestCreateConsignmentNonSuccessKeepsStatus(t *testing.T) {
	client := newTestClient(t, func(*http.Request) (*http.Response, error) {
		return respond(http.StatusUnprocessableEntity, `{"errors":{"recipient_phone":["invalid"]}}`), nil
	})

	result, err := client.CreateConsignment(context.Background(), ConsignmentRequest{Invoice: "X1"})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
	require.NotNil(t, result)
	assert.Equal(t, http.StatusUnprocessableEntity, result.HTTPStatus)
	assert.Nil(t, result.Consignment)
}

func TestCreateConsignmentValidation(t *testing.T) {
	client := newTestClient(t, func(*http.Request) (*http.Response, error) {
		t.Fatal("courier should not be called")
		return nil, nil
	})
	_, err := client.CreateConsignment(context.Background(), ConsignmentRequest{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	_, err = client.CreateConsignment(context.Background(), ConsignmentRequest{Invoice: "X", CODAmount: decimal.NewFromInt(-1)})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestGetStatus(t *testing.T) {
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		assert.Equal(t, "/api/v1/status_by_trackingcode/15BAEB8A", req.URL.Path)
		return respond(http.StatusOK, `{"status":200,"delivery_status":"delivered"}`), nil
	})
	status, err := client.GetStatus(context.Background(), "15BAEB8A")
	require.NoError(t, err)
	assert.Equal(t, "delivered", status)
}

func TestGetStatusMissingField(t *testing.T) {
	client := newTestClient(t, func(*http.Request) (*http.Response, error) {
		return respond(http.StatusOK, `{"status":404}`), nil
	})
	_, err := client.GetStatus(context.Background(), "nope")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}

func TestNewClientRequiresKeys(t *testing.T) {
	_, err := NewClient("", "secret")
	assert.Error(t, err)
}
