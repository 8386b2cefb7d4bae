package appointments

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pawbazaar/marketplace-backend/api/middleware"
	"github.com/pawbazaar/marketplace-backend/api/responses"
	"github.com/pawbazaar/marketplace-backend/api/validators"
	internalappointments "github.com/pawbazaar/marketplace-backend/internal/appointments"
	"github.com/pawbazaar/marketplace-backend/pkg/enums"
	pkgerrors "github.com/pawbazaar/marketplace-backend/pkg/errors"
	"github.com/pawbazaar/marketplace-backend/pkg/logger"
)

type bookRequest struct {
	VetID         uuid.UUID `json:"vet_id" validate:"required"`
	CustomerName  string    `json:"customer_name" validate:"required,max=120"`
	CustomerEmail string    `json:"customer_email" validate:"required,email"`
	CustomerPhone string    `json:"customer_phone" validate:"required,max=32"`
	PetName       string    `json:"pet_name" validate:"required,max=80"`
	Reason        string    `json:"reason" validate:"max=1000"`
	ScheduledAt   time.Time `json:"scheduled_at" validate:"required"`
	PaymentMode   string    `json:"payment_mode" validate:"required,oneof=online cash"`
}

type statusRequest struct {
	Status string `json:"status" validate:"required"`
}

// Book reserves a slot with a vet; online bookings return the gateway redirect.
func Book(svc internalappointments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := middleware.RequireActor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body bookRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Book(r.Context(), internalappointments.BookInput{
			VetID:         body.VetID,
			CustomerID:    actor.UserID,
			CustomerName:  body.CustomerName,
			CustomerEmail: body.CustomerEmail,
			CustomerPhone: body.CustomerPhone,
			PetName:       body.PetName,
			Reason:        body.Reason,
			ScheduledAt:   body.ScheduledAt,
			PaymentMode:   enums.PaymentMode(body.PaymentMode),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

func Detail(svc internalappointments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := middleware.RequireActor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		externalID := strings.TrimSpace(chi.URLParam(r, "externalID"))
		if externalID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "appointment id is required"))
			return
		}
		appt, err := svc.Get(r.Context(), actor, externalID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, appt)
	}
}

func UpdateStatus(svc internalappointments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := middleware.RequireActor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		externalID := strings.TrimSpace(chi.URLParam(r, "externalID"))
		if externalID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "appointment id is required"))
			return
		}
		var body statusRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := enums.ParseAppointmentStatus(strings.ToLower(strings.TrimSpace(body.Status)))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unknown appointment status"))
			return
		}
		appt, err := svc.UpdateStatus(r.Context(), actor, externalID, status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, appt)
	}
}
