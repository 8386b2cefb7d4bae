package vendors

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/pawbazaar/marketplace-backend/api/middleware"
	"github.com/pawbazaar/marketplace-backend/pkg/auth"
	"github.com/pawbazaar/marketplace-backend/pkg/db/models"
	"github.com/pawbazaar/marketplace-backend/pkg/enums"
	pkgerrors "github.com/pawbazaar/marketplace-backend/pkg/errors"
	"github.com/pawbazaar/marketplace-backend/pkg/pagination"
)

type stubLister struct {
	vendors  map[uuid.UUID]uuid.UUID
	listedID uuid.UUID
	params   pagination.Params
}

func (s *stubLister) ResolveVendor(_ context.Context, userID uuid.UUID) (*models.Vendor, error) {
	id, ok := s.vendors[userID]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "user does not own a vendor")
	}
	return &models.Vendor{ID: id, UserID: userID}, nil
}

func (s *stubLister) ListOrders(_ context.Context, vendorID uuid.UUID, params pagination.Params) (pagination.Page[models.Order], error) {
	s.listedID = vendorID
	s.params = params
	return pagination.Page[models.Order]{Items: []models.Order{{ExternalID: "AB"}}}, nil
}

func serve(lister OrderLister, actor auth.Actor, target string) int {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req = req.WithContext(middleware.WithActor(req.Context(), actor))
	rec := httptest.NewRecorder()
	Orders(lister, nil).ServeHTTP(rec, req)
	return rec.Code
}

func TestOrdersResolvesCallerVendor(t *testing.T) {
	user := uuid.New()
	vendorID := uuid.New()
	lister := &stubLister{vendors: map[uuid.UUID]uuid.UUID{user: vendorID}}

	code := serve(lister, auth.Actor{UserID: user, Role: enums.RoleVendor}, "/api/v1/vendor/orders?limit=5&cursor=abc")
	if code != http.StatusOK {
		t.Fatalf("expected 200 got %d", code)
	}
	if lister.listedID != vendorID || lister.params.Limit != 5 || lister.params.Cursor != "abc" {
		t.Fatalf("unexpected listing %s %+v", lister.listedID, lister.params)
	}
}

func TestOrdersVendorIDIsAdminOnly(t *testing.T) {
	user := uuid.New()
	target := uuid.New()
	lister := &stubLister{vendors: map[uuid.UUID]uuid.UUID{user: uuid.New()}}

	if code := serve(lister, auth.Actor{UserID: user, Role: enums.RoleVendor}, "/api/v1/vendor/orders?vendor_id="+target.String()); code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", code)
	}
	if code := serve(lister, auth.Actor{UserID: uuid.New(), Role: enums.RoleAdmin}, "/api/v1/vendor/orders?vendor_id="+target.String()); code != http.StatusOK {
		t.Fatalf("expected 200 got %d", code)
	}
	if lister.listedID != target {
		t.Fatalf("admin listing should use vendor_id")
	}
}

func TestOrdersRejectsBadLimit(t *testing.T) {
	lister := &stubLister{}
	if code := serve(lister, auth.Actor{UserID: uuid.New(), Role: enums.RoleVendor}, "/api/v1/vendor/orders?limit=1000"); code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", code)
	}
}
