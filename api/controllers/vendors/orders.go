package vendors

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/pawbazaar/marketplace-backend/api/middleware"
	"github.com/pawbazaar/marketplace-backend/api/responses"
	"github.com/pawbazaar/marketplace-backend/api/validators"
	"github.com/pawbazaar/marketplace-backend/pkg/db/models"
	pkgerrors "github.com/pawbazaar/marketplace-backend/pkg/errors"
	"github.com/pawbazaar/marketplace-backend/pkg/logger"
	"github.com/pawbazaar/marketplace-backend/pkg/pagination"
)

// OrderLister is the vendor view of the order aggregate.
type OrderLister interface {
	ResolveVendor(ctx context.Context, userID uuid.UUID) (*models.Vendor, error)
	ListOrders(ctx context.Context, vendorID uuid.UUID, params pagination.Params) (pagination.Page[models.Order], error)
}

// Orders lists the caller's vendor orders, newest first. Admins may pass
// vendor_id to inspect any vendor.
func Orders(lister OrderLister, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := middleware.RequireActor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params := pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		}

		vendorID, err := validators.ParseQueryUUID(r, "vendor_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if vendorID != uuid.Nil && !actor.IsAdmin() {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "vendor_id is reserved for admins"))
			return
		}
		if vendorID == uuid.Nil {
			vendor, err := lister.ResolveVendor(r.Context(), actor.UserID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			vendorID = vendor.ID
		}

		page, err := lister.ListOrders(r.Context(), vendorID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}
