package ledger

import (
	"context"

	"gorm.io/gorm"

	"github.com/pawbazaar/marketplace-backend/pkg/db/models"
	"github.com/pawbazaar/marketplace-backend/pkg/enums"
	pkgerrors "github.com/pawbazaar/marketplace-backend/pkg/errors"
)

// Repository appends and reads payment ledger events. There is no update or
// delete path.
type Repository interface {
	Append(ctx context.Context, event *models.LedgerEvent) error
	ListByTransaction(ctx context.Context, kind enums.TransactionKind, externalID string) ([]models.LedgerEvent, error)
	CountByType(ctx context.Context, kind enums.TransactionKind, externalID string, eventType enums.LedgerEventType) (int64, error)
}

type gormRepository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) Append(ctx context.Context, event *models.LedgerEvent) error {
	if err := r.db.WithContext(ctx).Create(event).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append ledger event")
	}
	return nil
}

func (r *gormRepository) ListByTransaction(ctx context.Context, kind enums.TransactionKind, externalID string) ([]models.LedgerEvent, error) {
	var events []models.LedgerEvent
	err := r.scoped(ctx, kind, externalID).
		Order("created_at ASC").
		Find(&events).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list ledger events")
	}
	return events, nil
}

func (r *gormRepository) CountByType(ctx context.Context, kind enums.TransactionKind, externalID string, eventType enums.LedgerEventType) (int64, error) {
	var n int64
	err := r.scoped(ctx, kind, externalID).
		Where("type = ?", eventType).
		Count(&n).Error
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count ledger events")
	}
	return n, nil
}

func (r *gormRepository) scoped(ctx context.Context, kind enums.TransactionKind, externalID string) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&models.LedgerEvent{}).
		Where("kind = ? AND external_id = ?", kind, externalID)
}
