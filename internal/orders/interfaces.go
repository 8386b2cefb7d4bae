package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pawbazaar/marketplace-backend/pkg/db/models"
	"github.com/pawbazaar/marketplace-backend/pkg/enums"
)

// Repository defines persistence operations for orders and their line items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindProducts(ctx context.Context, ids []uuid.UUID) ([]models.Product, error)
	FindVendors(ctx context.Context, ids []uuid.UUID) ([]models.Vendor, error)
	CreateOrder(ctx context.Context, order *models.Order) error
	FindByExternalID(ctx context.Context, externalID string) (*models.Order, error)
	SetConsignment(ctx context.Context, externalID, consignmentID, trackingCode, status string) (bool, error)
	UpdateCourierStatus(ctx context.Context, externalID, status string) error

	AttachSession(ctx context.Context, externalID, sessionRef string) error
	Claim(ctx context.Context, externalID string, paid bool) (bool, error)
	Discard(ctx context.Context, externalID string) (bool, error)
	Transition(ctx context.Context, externalID, from, to string, payment *enums.PaymentStatus) (bool, error)
}
