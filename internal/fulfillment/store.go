package fulfillment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pawbazaar/marketplace-backend/pkg/enums"
	pkgerrors "github.com/pawbazaar/marketplace-backend/pkg/errors"
)

const (
	statusPending   = "pending"
	statusCancelled = "cancelled"
)

var errRecordMoved = errors.New("record left pending during discard")

// RecordStore holds the conditional writes shared by every transaction table.
// Each write is a single guarded UPDATE or DELETE so concurrent callers cannot
// both succeed.
type RecordStore struct {
	db         *gorm.DB
	table      string
	childTable string
	childFK    string
	now        func() time.Time
}

// NewRecordStore binds the helpers to table. childTable rows referencing the
// parent through childFK are removed together with it on Discard.
func NewRecordStore(db *gorm.DB, table, childTable, childFK string) *RecordStore {
	return &RecordStore{db: db, table: table, childTable: childTable, childFK: childFK, now: time.Now}
}

func (s *RecordStore) WithTx(tx *gorm.DB) *RecordStore {
	if tx == nil {
		return s
	}
	clone := *s
	clone.db = tx
	return &clone
}

// AttachSession stores the gateway session reference once.
func (s *RecordStore) AttachSession(ctx context.Context, externalID, sessionRef string) error {
	res := s.db.WithContext(ctx).Table(s.table).
		Where("external_id = ? AND payment_session_ref IS NULL", externalID).
		Updates(map[string]any{"payment_session_ref": sessionRef, "updated_at": s.now().UTC()})
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "attach payment session")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeConflict, "payment session already attached")
	}
	return nil
}

// Claim sets confirmed_at, and payment_status when paid, in one statement
// guarded by confirmed_at IS NULL.
func (s *RecordStore) Claim(ctx context.Context, externalID string, paid bool) (bool, error) {
	now := s.now().UTC()
	updates := map[string]any{"confirmed_at": now, "updated_at": now}
	if paid {
		updates["payment_status"] = enums.PaymentStatusPaid
	}
	res := s.db.WithContext(ctx).Table(s.table).
		Where("external_id = ? AND confirmed_at IS NULL AND status = ?", externalID, statusPending).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// Discard deletes an unconfirmed pending record and its children. Confirmed
// records and records that already moved on are never removed.
func (s *RecordStore) Discard(ctx context.Context, externalID string) (bool, error) {
	var removed bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ids []uuid.UUID
		if err := tx.Table(s.table).
			Where("external_id = ? AND confirmed_at IS NULL AND status = ?", externalID, statusPending).
			Pluck("id", &ids).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		if s.childTable != "" {
			if err := tx.Exec("DELETE FROM "+s.childTable+" WHERE "+s.childFK+" = ?", ids[0]).Error; err != nil {
				return err
			}
		}
		res := tx.Exec("DELETE FROM "+s.table+" WHERE id = ? AND confirmed_at IS NULL AND status = ?", ids[0], statusPending)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			// status moved after the pluck; keep the line items
			return errRecordMoved
		}
		removed = true
		return nil
	})
	if errors.Is(err, errRecordMoved) {
		return false, nil
	}
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "discard transaction")
	}
	return removed, nil
}

// Transition moves the record from one status to another, optionally writing the
// payment status in the same statement. Leaving pending for anything but
// cancelled also requires confirmed_at to be set. It reports false when the
// guard no longer holds.
func (s *RecordStore) Transition(ctx context.Context, externalID, from, to string, payment *enums.PaymentStatus) (bool, error) {
	updates := map[string]any{"status": to, "updated_at": s.now().UTC()}
	if payment != nil {
		updates["payment_status"] = *payment
	}
	q := s.db.WithContext(ctx).Table(s.table).
		Where("external_id = ? AND status = ?", externalID, from)
	if from == statusPending && to != statusCancelled {
		q = q.Where("confirmed_at IS NOT NULL")
	}
	res := q.Updates(updates)
	if res.Error != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "update status")
	}
	return res.RowsAffected == 1, nil
}
