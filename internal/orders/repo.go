package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pawbazaar/marketplace-backend/internal/fulfillment"
	"github.com/pawbazaar/marketplace-backend/pkg/db/models"
)

type repository struct {
	*fulfillment.RecordStore
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{
		RecordStore: fulfillment.NewRecordStore(db, "orders", "order_line_items", "order_id"),
		db:          db,
	}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{RecordStore: r.RecordStore.WithTx(tx), db: tx}
}

func (r *repository) FindProducts(ctx context.Context, ids []uuid.UUID) ([]models.Product, error) {
	var products []models.Product
	if len(ids) == 0 {
		return products, nil
	}
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

func (r *repository) FindVendors(ctx context.Context, ids []uuid.UUID) ([]models.Vendor, error) {
	var vendors []models.Vendor
	if len(ids) == 0 {
		return vendors, nil
	}
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&vendors).Error; err != nil {
		return nil, err
	}
	return vendors, nil
}

func (r *repository) CreateOrder(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) FindByExternalID(ctx context.Context, externalID string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Where("external_id = ?", externalID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// SetConsignment stores the courier fields once; it reports false when the order
// already carries a consignment.
func (r *repository) SetConsignment(ctx context.Context, externalID, consignmentID, trackingCode, status string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("external_id = ? AND consignment_id IS NULL", externalID).
		Updates(map[string]any{
			"consignment_id": consignmentID,
			"tracking_code":  trackingCode,
			"courier_status": status,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) UpdateCourierStatus(ctx context.Context, externalID, status string) error {
	return r.db.WithContext(ctx).Model(&models.Order{}).
		Where("external_id = ?", externalID).
		Update("courier_status", status).Error
}
