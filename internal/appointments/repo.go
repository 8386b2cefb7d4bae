package appointments

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pawbazaar/marketplace-backend/internal/fulfillment"
	"github.com/pawbazaar/marketplace-backend/pkg/db/models"
	"github.com/pawbazaar/marketplace-backend/pkg/enums"
)

// Repository defines persistence for vets and appointments.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindVet(ctx context.Context, id uuid.UUID) (*models.Vet, error)
	CreateAppointment(ctx context.Context, appt *models.Appointment) error
	FindByExternalID(ctx context.Context, externalID string) (*models.Appointment, error)

	AttachSession(ctx context.Context, externalID, sessionRef string) error
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
		RecordStore: fulfillment.NewRecordStore(db, "appointments", "", ""),
		db:          db,
	}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{RecordStore: r.RecordStore.WithTx(tx), db: tx}
}

func (r *repository) FindVet(ctx context.Context, id uuid.UUID) (*models.Vet, error) {
	var vet models.Vet
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&vet).Error; err != nil {
		return nil, err
	}
	return &vet, nil
}

func (r *repository) CreateAppointment(ctx context.Context, appt *models.Appointment) error {
	return r.db.WithContext(ctx).Omit("Vet").Create(appt).Error
}

func (r *repository) FindByExternalID(ctx context.Context, externalID string) (*models.Appointment, error) {
	var appt models.Appointment
	err := r.db.WithContext(ctx).
		Preload("Vet").
		Where("external_id = ?", externalID).
		First(&appt).Error
	if err != nil {
		return nil, err
	}
	return &appt, nil
}
