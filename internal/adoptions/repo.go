package adoptions

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pawbazaar/marketplace-backend/internal/fulfillment"
	"github.com/pawbazaar/marketplace-backend/pkg/db/models"
	"github.com/pawbazaar/marketplace-backend/pkg/enums"
)

// Repository defines persistence for adoption listings and applications.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindListing(ctx context.Context, id uuid.UUID) (*models.AdoptionListing, error)
	CreateApplication(ctx context.Context, app *models.AdoptionApplication) error
	FindByExternalID(ctx context.Context, externalID string) (*models.AdoptionApplication, error)
	MarkListingAdopted(ctx context.Context, listingID uuid.UUID) (bool, error)

	Claim(ctx context.Context, externalID string, paid bool) (bool, error)
	Discard(ctx context.Context, externalID string) (bool, error)
	Transition(ctx context.Context, externalID, from, to string, payment *enums.PaymentStatus) (bool, error)
}

type repository struct {
	*fulfillment.RecordStore
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{
		RecordStore: fulfillment.NewRecordStore(db, "adoption_applications", "", ""),
		db:          db,
	}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{RecordStore: r.RecordStore.WithTx(tx), db: tx}
}

func (r *repository) FindListing(ctx context.Context, id uuid.UUID) (*models.AdoptionListing, error) {
	var listing models.AdoptionListing
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&listing).Error; err != nil {
		return nil, err
	}
	return &listing, nil
}

func (r *repository) CreateApplication(ctx context.Context, app *models.AdoptionApplication) error {
	return r.db.WithContext(ctx).Omit("Listing").Create(app).Error
}

func (r *repository) FindByExternalID(ctx context.Context, externalID string) (*models.AdoptionApplication, error) {
	var app models.AdoptionApplication
	err := r.db.WithContext(ctx).
		Preload("Listing").
		Where("external_id = ?", externalID).
		First(&app).Error
	if err != nil {
		return nil, err
	}
	return &app, nil
}

// MarkListingAdopted flips an available listing to adopted; false means it was
// already adopted.
func (r *repository) MarkListingAdopted(ctx context.Context, listingID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.AdoptionListing{}).
		Where("id = ? AND status = ?", listingID, enums.ListingStatusAvailable).
		Update("status", enums.ListingStatusAdopted)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
