package fulfillment

import (
	"context"
	"strings"

	"github.com/pawbazaar/marketplace-backend/pkg/enums"
	pkgerrors "github.com/pawbazaar/marketplace-backend/pkg/errors"
)

const gatewayStatusValid = "VALID"

// Callback outcomes reported to metrics.
const (
	outcomeConfirmed = "confirmed"
	outcomeDuplicate = "duplicate"
	outcomeAlready   = "already_confirmed"
	outcomeClosed    = "closed"
	outcomeUnknown   = "unknown"
	outcomeFailed    = "failed"
	outcomeError     = "error"
)

// Callback is the browser-relayed gateway result.
type Callback struct {
	Status string
	ValID  string
	TranID string
	ValueA string
}

// HandlePaymentCallback settles an online payment and returns the frontend URL
// the payer is redirected to. A callback is trusted only after the gateway
// confirms val_id, the transaction id and the amount. Any other outcome removes
// the record while it is still pending.
func (c *Coordinator) HandlePaymentCallback(ctx context.Context, kind enums.TransactionKind, cb Callback) string {
	externalID := strings.TrimSpace(cb.ValueA)
	if externalID == "" {
		c.metrics.IncCallback(string(kind), outcomeUnknown)
		return c.StatusURL(kind, "", false)
	}
	d, err := c.domain(kind)
	if err != nil {
		c.metrics.IncCallback(string(kind), outcomeUnknown)
		return c.StatusURL(kind, externalID, false)
	}
	ctx = c.logg.WithTransaction(ctx, string(kind), externalID)

	tx, err := d.Load(ctx, externalID)
	switch {
	case pkgerrors.IsCode(err, pkgerrors.CodeNotFound):
		c.logg.Warn(ctx, "payment callback for unknown transaction")
		c.metrics.IncCallback(string(kind), outcomeUnknown)
		return c.StatusURL(kind, externalID, false)
	case err != nil:
		c.logg.Error(ctx, "load transaction for callback", err)
		c.metrics.IncCallback(string(kind), outcomeError)
		return c.StatusURL(kind, externalID, false)
	case tx.Confirmed:
		c.metrics.IncCallback(string(kind), outcomeAlready)
		return c.StatusURL(kind, externalID, tx.Paid())
	case tx.Status != statusPending:
		// cancelled before the payer came back; the record stays
		c.logg.Warn(c.logg.WithField(ctx, "status", tx.Status), "payment callback for closed transaction")
		c.metrics.IncCallback(string(kind), outcomeClosed)
		return c.StatusURL(kind, externalID, false)
	}

	valID := strings.TrimSpace(cb.ValID)
	if valID == "" {
		return c.failPayment(ctx, d, tx, "callback without val_id")
	}
	guardKey := string(kind) + ":" + valID
	if c.guard != nil {
		duplicate, err := c.guard.CheckAndMark(ctx, guardKey)
		if err != nil {
			c.logg.Warn(ctx, "callback replay guard unavailable", err)
		} else if duplicate {
			return c.replayed(ctx, d, tx, valID)
		}
	}

	if !strings.EqualFold(strings.TrimSpace(cb.Status), gatewayStatusValid) {
		return c.failPayment(ctx, d, tx, "gateway reported "+strings.ToLower(cb.Status))
	}
	if c.gateway == nil {
		return c.failPayment(ctx, d, tx, "payment gateway not configured")
	}
	validation, err := c.gateway.Validate(ctx, valID)
	switch {
	case err != nil:
		c.logg.Warn(ctx, "payment validation request failed", err)
		return c.failPayment(ctx, d, tx, "validation request failed")
	case validation == nil:
		return c.failPayment(ctx, d, tx, "empty validation response")
	case !validation.Valid():
		return c.failPayment(ctx, d, tx, "validation status "+strings.ToLower(validation.Status))
	case validation.TranID != tx.ExternalID:
		return c.failPayment(ctx, d, tx, "transaction id mismatch")
	case !validation.Amount.Equal(tx.Amount):
		return c.failPayment(ctx, d, tx, "amount mismatch: "+validation.Amount.String())
	}
	c.record(ctx, tx, enums.LedgerEventTypePaymentValidated, valID, validation.BankTranID)

	confirmed, err := c.confirm(ctx, d, externalID, true)
	if err != nil {
		c.logg.Error(ctx, "confirm validated payment", err)
		c.metrics.IncCallback(string(kind), outcomeError)
		if c.guard != nil {
			if derr := c.guard.Delete(ctx, guardKey); derr != nil {
				c.logg.Warn(ctx, "release callback replay guard", derr)
			}
		}
		return c.StatusURL(kind, externalID, false)
	}
	c.metrics.IncCallback(string(kind), outcomeConfirmed)
	return c.StatusURL(kind, externalID, confirmed.Confirmed)
}

// replayed answers a val_id already seen. The first delivery owns the outcome,
// so the record is left untouched.
func (c *Coordinator) replayed(ctx context.Context, d Domain, tx *Transaction, valID string) string {
	c.metrics.IncCallback(string(tx.Kind), outcomeDuplicate)
	c.record(ctx, tx, enums.LedgerEventTypePaymentReplayed, valID, "")
	current, err := d.Load(ctx, tx.ExternalID)
	if err != nil {
		return c.StatusURL(tx.Kind, tx.ExternalID, false)
	}
	return c.StatusURL(tx.Kind, tx.ExternalID, current.Confirmed && current.Paid())
}

func (c *Coordinator) failPayment(ctx context.Context, d Domain, tx *Transaction, reason string) string {
	c.logg.Warn(c.logg.WithField(ctx, "reason", reason), "payment rejected")
	c.metrics.IncCallback(string(tx.Kind), outcomeFailed)
	c.record(ctx, tx, enums.LedgerEventTypePaymentFailed, "", reason)
	c.discard(ctx, d, tx, reason)
	return c.StatusURL(tx.Kind, tx.ExternalID, false)
}
