package vendors

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pawbazaar/marketplace-backend/pkg/db/models"
	pkgerrors "github.com/pawbazaar/marketplace-backend/pkg/errors"
	"github.com/pawbazaar/marketplace-backend/pkg/pagination"
)

// Aggregator maintains the per-vendor set of orders that contain the vendor's products.
type Aggregator struct {
	db *gorm.DB
}

func NewAggregator(db *gorm.DB) *Aggregator {
	return &Aggregator{db: db}
}

func (a *Aggregator) WithTx(tx *gorm.DB) *Aggregator {
	if tx == nil {
		return a
	}
	return &Aggregator{db: tx}
}

// Attach adds orderID to each vendor's set. Re-attaching is a no-op; the
// returned count is the number of links created by this call.
func (a *Aggregator) Attach(ctx context.Context, orderID uuid.UUID, vendorIDs []uuid.UUID) (int, error) {
	if orderID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	var created int64
	for _, vendorID := range Distinct(vendorIDs) {
		res := a.db.WithContext(ctx).
			Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.VendorOrderRef{VendorID: vendorID, OrderID: orderID})
		if res.Error != nil {
			return int(created), pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "attach vendor order")
		}
		created += res.RowsAffected
	}
	return int(created), nil
}

// ListOrders returns the vendor's orders, newest first.
func (a *Aggregator) ListOrders(ctx context.Context, vendorID uuid.UUID, params pagination.Params) (pagination.Page[models.Order], error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return pagination.Page[models.Order]{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	query := a.db.WithContext(ctx).
		Model(&models.Order{}).
		Joins("JOIN vendor_order_refs ON vendor_order_refs.order_id = orders.id").
		Where("vendor_order_refs.vendor_id = ?", vendorID).
		Preload("Items", "vendor_id = ?", vendorID).
		Order("orders.created_at DESC").
		Order("orders.id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit))
	if cursor != nil {
		query = query.Where("(orders.created_at < ?) OR (orders.created_at = ? AND orders.id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Order
	if err := query.Find(&rows).Error; err != nil {
		return pagination.Page[models.Order]{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list vendor orders")
	}
	return pagination.Build(rows, params.Limit, func(o models.Order) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	}), nil
}

// ResolveVendor returns the vendor owned by userID.
func (a *Aggregator) ResolveVendor(ctx context.Context, userID uuid.UUID) (*models.Vendor, error) {
	var vendor models.Vendor
	err := a.db.WithContext(ctx).Where("user_id = ?", userID).First(&vendor).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "user does not own a vendor")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load vendor")
	}
	return &vendor, nil
}

// Distinct drops duplicate and nil ids, keeping first-seen order.
func Distinct(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
