package adoptions

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pawbazaar/marketplace-backend/api/middleware"
	"github.com/pawbazaar/marketplace-backend/api/responses"
	"github.com/pawbazaar/marketplace-backend/api/validators"
	internaladoptions "github.com/pawbazaar/marketplace-backend/internal/adoptions"
	"github.com/pawbazaar/marketplace-backend/pkg/auth"
	"github.com/pawbazaar/marketplace-backend/pkg/enums"
	pkgerrors "github.com/pawbazaar/marketplace-backend/pkg/errors"
	"github.com/pawbazaar/marketplace-backend/pkg/logger"
)

type applyRequest struct {
	ListingID      uuid.UUID `json:"listing_id" validate:"required"`
	ApplicantName  string    `json:"applicant_name" validate:"required,max=120"`
	ApplicantEmail string    `json:"applicant_email" validate:"required,email"`
	ApplicantPhone string    `json:"applicant_phone" validate:"required,max=32"`
	Address        string    `json:"address" validate:"required,max=500"`
	Message        string    `json:"message" validate:"max=2000"`
}

type decideRequest struct {
	Status string `json:"status" validate:"required,oneof=approved rejected"`
}

func Apply(svc internaladoptions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := middleware.RequireActor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body applyRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		app, err := svc.Apply(r.Context(), internaladoptions.ApplyInput{
			ListingID:      body.ListingID,
			ApplicantID:    actor.UserID,
			ApplicantName:  body.ApplicantName,
			ApplicantEmail: body.ApplicantEmail,
			ApplicantPhone: body.ApplicantPhone,
			Address:        body.Address,
			Message:        body.Message,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, app)
	}
}

func Detail(svc internaladoptions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, externalID, err := actorAndID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		app, err := svc.Get(r.Context(), actor, externalID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, app)
	}
}

// Decide approves or rejects an application on behalf of the listing's poster.
func Decide(svc internaladoptions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, externalID, err := actorAndID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body decideRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		app, err := svc.Decide(r.Context(), actor, externalID, enums.ApplicationStatus(body.Status))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, app)
	}
}

func actorAndID(r *http.Request) (actor auth.Actor, externalID string, err error) {
	actor, err = middleware.RequireActor(r.Context())
	if err != nil {
		return actor, "", err
	}
	externalID = strings.TrimSpace(chi.URLParam(r, "externalID"))
	if externalID == "" {
		return actor, "", pkgerrors.New(pkgerrors.CodeValidation, "application id is required")
	}
	return actor, externalID, nil
}
