package appointments

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pawbazaar/marketplace-backend/api/middleware"
	internalappointments "github.com/pawbazaar/marketplace-backend/internal/appointments"
	"github.com/pawbazaar/marketplace-backend/pkg/auth"
	"github.com/pawbazaar/marketplace-backend/pkg/db/models"
	"github.com/pawbazaar/marketplace-backend/pkg/enums"
)

type stubService struct {
	internalappointments.Service
	booked  *internalappointments.BookInput
	updated enums.AppointmentStatus
}

func (s *stubService) Book(_ context.Context, input internalappointments.BookInput) (*internalappointments.BookResult, error) {
	s.booked = &input
	return &internalappointments.BookResult{
		Appointment: &models.Appointment{ExternalID: "AP12"},
		RedirectURL: "https://sandbox.sslcommerz.com/pay/AP12",
	}, nil
}

func (s *stubService) UpdateStatus(_ context.Context, _ auth.Actor, externalID string, status enums.AppointmentStatus) (*models.Appointment, error) {
	s.updated = status
	return &models.Appointment{ExternalID: externalID, Status: status}, nil
}

func bookBody(vetID uuid.UUID, mode string) string {
	return `{"vet_id":"` + vetID.String() + `","customer_name":"Rafi","customer_email":"rafi@example.com",` +
		`"customer_phone":"01700000000","pet_name":"Milo","scheduled_at":"2026-11-02T10:00:00Z","payment_mode":"` + mode + `"}`
}

func TestBookBindsCustomer(t *testing.T) {
	svc := &stubService{}
	actor := auth.Actor{UserID: uuid.New(), Role: enums.RoleCustomer}
	vetID := uuid.New()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/appointments", strings.NewReader(bookBody(vetID, "online")))
	req = req.WithContext(middleware.WithActor(req.Context(), actor))
	rec := httptest.NewRecorder()
	Book(svc, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.NotNil(t, svc.booked)
	require.Equal(t, actor.UserID, svc.booked.CustomerID)
	require.Equal(t, vetID, svc.booked.VetID)
	require.Equal(t, enums.PaymentModeOnline, svc.booked.PaymentMode)
	require.Contains(t, rec.Body.String(), "redirect_url")
}

func TestBookRejectsUnknownPaymentMode(t *testing.T) {
	svc := &stubService{}
	actor := auth.Actor{UserID: uuid.New(), Role: enums.RoleCustomer}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/appointments", strings.NewReader(bookBody(uuid.New(), "card")))
	req = req.WithContext(middleware.WithActor(req.Context(), actor))
	rec := httptest.NewRecorder()
	Book(svc, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Nil(t, svc.booked)
}

func TestUpdateStatusNormalizesCase(t *testing.T) {
	svc := &stubService{}
	actor := auth.Actor{UserID: uuid.New(), Role: enums.RoleVet}

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/appointments/AP12/status", strings.NewReader(`{"status":"Confirmed"}`))
	rc := chi.NewRouteContext()
	rc.URLParams.Add("externalID", "AP12")
	ctx := context.WithValue(middleware.WithActor(req.Context(), actor), chi.RouteCtxKey, rc)
	rec := httptest.NewRecorder()
	UpdateStatus(svc, nil).ServeHTTP(rec, req.WithContext(ctx))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, enums.AppointmentStatusConfirmed, svc.updated)
}

func TestUpdateStatusRejectsUnknownStatus(t *testing.T) {
	svc := &stubService{}
	actor := auth.Actor{UserID: uuid.New(), Role: enums.RoleVet}

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/appointments/AP12/status", strings.NewReader(`{"status":"shipped"}`))
	rc := chi.NewRouteContext()
	rc.URLParams.Add("externalID", "AP12")
	ctx := context.WithValue(middleware.WithActor(req.Context(), actor), chi.RouteCtxKey, rc)
	rec := httptest.NewRecorder()
	UpdateStatus(svc, nil).ServeHTTP(rec, req.WithContext(ctx))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Empty(t, svc.updated)
}
