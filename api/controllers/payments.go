package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/pawbazaar/marketplace-backend/internal/fulfillment"
	"github.com/pawbazaar/marketplace-backend/pkg/enums"
	"github.com/pawbazaar/marketplace-backend/pkg/logger"
)

// CallbackHandler settles gateway callbacks and returns the frontend redirect.
type CallbackHandler interface {
	HandlePaymentCallback(ctx context.Context, kind enums.TransactionKind, cb fulfillment.Callback) string
}

// PaymentCallback receives the gateway's browser redirect (GET or form POST) and
// always answers with a 302 to the frontend status page.
func PaymentCallback(handler CallbackHandler, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if err := r.ParseForm(); err != nil && logg != nil {
			logg.Warn(ctx, "payment.callback.form_unreadable", err)
		}

		kind := enums.TransactionKind(strings.TrimSpace(chi.URLParam(r, "kind")))
		cb := fulfillment.Callback{
			Status: strings.TrimSpace(r.Form.Get("status")),
			ValID:  strings.TrimSpace(r.Form.Get("val_id")),
			TranID: strings.TrimSpace(r.Form.Get("tran_id")),
			ValueA: strings.TrimSpace(r.Form.Get("value_a")),
		}
		if logg != nil {
			ctx = logg.WithFields(ctx, map[string]any{
				"kind":           string(kind),
				"gateway_status": cb.Status,
				"external_id":    cb.ValueA,
			})
			logg.Info(ctx, "payment.callback.received")
		}

		http.Redirect(w, r, handler.HandlePaymentCallback(ctx, kind, cb), http.StatusFound)
	}
}
