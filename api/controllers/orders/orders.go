package orders

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pawbazaar/marketplace-backend/api/middleware"
	"github.com/pawbazaar/marketplace-backend/api/responses"
	"github.com/pawbazaar/marketplace-backend/api/validators"
	internalorders "github.com/pawbazaar/marketplace-backend/internal/orders"
	"github.com/pawbazaar/marketplace-backend/pkg/enums"
	pkgerrors "github.com/pawbazaar/marketplace-backend/pkg/errors"
	"github.com/pawbazaar/marketplace-backend/pkg/logger"
)

type createItemRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,min=1,max=100"`
}

type createRequest struct {
	CustomerName    string              `json:"customer_name" validate:"required,max=120"`
	CustomerEmail   string              `json:"customer_email" validate:"required,email"`
	CustomerPhone   string              `json:"customer_phone" validate:"required,max=32"`
	ShippingAddress string              `json:"shipping_address" validate:"required,max=500"`
	PaymentMode     string              `json:"payment_mode" validate:"required,oneof=online cash"`
	Items           []createItemRequest `json:"items" validate:"required,min=1,dive"`
}

type statusRequest struct {
	Status string `json:"status" validate:"required"`
}

// Create places an order for the authenticated customer. Online orders carry the
// gateway redirect in the response.
func Create(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := middleware.RequireActor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body createRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := internalorders.CreateInput{
			CustomerID:      actor.UserID,
			CustomerName:    body.CustomerName,
			CustomerEmail:   body.CustomerEmail,
			CustomerPhone:   body.CustomerPhone,
			ShippingAddress: body.ShippingAddress,
			PaymentMode:     enums.PaymentMode(body.PaymentMode),
		}
		for _, item := range body.Items {
			input.Items = append(input.Items, internalorders.ItemInput{ProductID: item.ProductID, Quantity: item.Quantity})
		}

		result, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

func Detail(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return withOrder(logg, func(r *http.Request, externalID string) (any, error) {
		actor, err := middleware.RequireActor(r.Context())
		if err != nil {
			return nil, err
		}
		return svc.Get(r.Context(), actor, externalID)
	})
}

func Cancel(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return withOrder(logg, func(r *http.Request, externalID string) (any, error) {
		actor, err := middleware.RequireActor(r.Context())
		if err != nil {
			return nil, err
		}
		return svc.Cancel(r.Context(), actor, externalID)
	})
}

func Return(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return withOrder(logg, func(r *http.Request, externalID string) (any, error) {
		actor, err := middleware.RequireActor(r.Context())
		if err != nil {
			return nil, err
		}
		return svc.Return(r.Context(), actor, externalID)
	})
}

// Tracking refreshes the courier delivery status.
func Tracking(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return withOrder(logg, func(r *http.Request, externalID string) (any, error) {
		actor, err := middleware.RequireActor(r.Context())
		if err != nil {
			return nil, err
		}
		return svc.RefreshTracking(r.Context(), actor, externalID)
	})
}

func AdminUpdateStatus(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return withOrder(logg, func(r *http.Request, externalID string) (any, error) {
		actor, err := middleware.RequireActor(r.Context())
		if err != nil {
			return nil, err
		}
		var body statusRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return nil, err
		}
		return svc.UpdateStatus(r.Context(), actor, externalID, enums.OrderStatus(strings.ToLower(body.Status)))
	})
}

// AdminDispatch hands a confirmed order to the courier again after a failed dispatch.
func AdminDispatch(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return withOrder(logg, func(r *http.Request, externalID string) (any, error) {
		actor, err := middleware.RequireActor(r.Context())
		if err != nil {
			return nil, err
		}
		return svc.Dispatch(r.Context(), actor, externalID)
	})
}

func withOrder(logg *logger.Logger, fn func(r *http.Request, externalID string) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		externalID := strings.TrimSpace(chi.URLParam(r, "externalID"))
		if externalID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "order id is required"))
			return
		}
		if logg != nil {
			r = r.WithContext(logg.WithTransaction(r.Context(), string(enums.TransactionKindOrder), externalID))
		}
		data, err := fn(r, externalID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, data)
	}
}
