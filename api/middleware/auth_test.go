package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	pkgAuth "github.com/pawbazaar/marketplace-backend/pkg/auth"
	"github.com/pawbazaar/marketplace-backend/pkg/config"
	"github.com/pawbazaar/marketplace-backend/pkg/enums"
)

func testJWT() config.JWTConfig {
	return config.JWTConfig{Secret: "secret", Issuer: "pawbazaar", ExpirationMinutes: 5}
}

func bearer(t *testing.T, role enums.Role) (string, uuid.UUID) {
	t.Helper()
	userID := uuid.New()
	token, err := pkgAuth.MintAccessToken(testJWT(), time.Now(), pkgAuth.AccessTokenPayload{UserID: userID, Role: role})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return "Bearer " + token, userID
}

func TestAuthSeedsActor(t *testing.T) {
	header, userID := bearer(t, enums.RoleVet)
	var got pkgAuth.Actor
	h := Auth(testJWT(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = ActorFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/appointments/X", nil)
	req.Header.Set("Authorization", header)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 got %d", rec.Code)
	}
	if got.UserID != userID || got.Role != enums.RoleVet {
		t.Fatalf("unexpected actor %+v", got)
	}
}

func TestAuthRejectsMissingAndInvalidTokens(t *testing.T) {
	h := Auth(testJWT(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("handler must not run")
	}))

	for _, header := range []string{"", "Bearer ", "Bearer not-a-jwt"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", header)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("header %q: expected 401 got %d", header, rec.Code)
		}
	}
}

func TestRequireRole(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	h := Auth(testJWT(), nil)(RequireRole(nil, enums.RoleVendor)(next))

	tests := []struct {
		role enums.Role
		want int
	}{
		{enums.RoleVendor, http.StatusOK},
		{enums.RoleAdmin, http.StatusOK},
		{enums.RoleCustomer, http.StatusForbidden},
	}
	for _, tt := range tests {
		header, _ := bearer(t, tt.role)
		req := httptest.NewRequest(http.MethodGet, "/api/v1/vendor/orders", nil)
		req.Header.Set("Authorization", header)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != tt.want {
			t.Fatalf("role %s: expected %d got %d", tt.role, tt.want, rec.Code)
		}
	}
}
