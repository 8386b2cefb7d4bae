package validators

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	pkgerrors "github.com/pawbazaar/marketplace-backend/pkg/errors"
)

type sample struct {
	Name     string `json:"name" validate:"required,max=5"`
	Mode     string `json:"payment_mode" validate:"required,oneof=online cash"`
	Quantity int    `json:"quantity"`
}

func decode(t *testing.T, body string) (sample, *pkgerrors.Error) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	var dest sample
	err := DecodeJSONBody(req, &dest)
	if err == nil {
		return dest, nil
	}
	typed := pkgerrors.As(err)
	require.NotNil(t, typed, "expected a typed error, got %v", err)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())
	return dest, typed
}

func TestDecodeJSONBodyAcceptsValidPayload(t *testing.T) {
	got, err := decode(t, `{"name":"Milo","payment_mode":"cash","quantity":2}`)
	require.Nil(t, err)
	require.Equal(t, sample{Name: "Milo", Mode: "cash", Quantity: 2}, got)
}

func TestDecodeJSONBodyRejects(t *testing.T) {
	cases := map[string]string{
		"empty":    ``,
		"unknown":  `{"name":"Milo","payment_mode":"cash","extra":1}`,
		"trailing": `{"name":"Milo","payment_mode":"cash"} {"name":"x"}`,
		"type":     `{"name":"Milo","payment_mode":"cash","quantity":"two"}`,
		"syntax":   `{"name":`,
		"oversize": `{"name":"` + strings.Repeat("a", MaxBodyBytes) + `"}`,
	}
	for name, body := range cases {
		if _, err := decode(t, body); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestDecodeJSONBodyReportsFieldsByJSONName(t *testing.T) {
	_, err := decode(t, `{"name":"toolongname","payment_mode":"card"}`)
	require.NotNil(t, err)
	details, ok := err.Details().(map[string]string)
	require.True(t, ok)
	require.Equal(t, "must be at most 5", details["name"])
	require.Equal(t, "must be one of [online cash]", details["payment_mode"])
}
