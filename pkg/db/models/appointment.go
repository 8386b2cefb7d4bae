package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/pawbazaar/marketplace-backend/pkg/enums"
)

// Vet is a veterinary professional accepting bookings.
type Vet struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	UserID    uuid.UUID       `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	Name      string          `gorm:"column:name;not null"`
	Email     string          `gorm:"column:email;not null"`
	Phone     string          `gorm:"column:phone"`
	Fee       decimal.Decimal `gorm:"column:fee;type:numeric(12,2);not null"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (v *Vet) BeforeCreate(*gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}

// Appointment is a veterinary booking.
type Appointment struct {
	ID                uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	ExternalID        string                  `gorm:"column:external_id;not null;uniqueIndex:appointments_external_id_key"`
	VetID             uuid.UUID               `gorm:"column:vet_id;type:uuid;not null;index"`
	CustomerID        uuid.UUID               `gorm:"column:customer_id;type:uuid;not null;index"`
	CustomerName      string                  `gorm:"column:customer_name;not null"`
	CustomerEmail     string                  `gorm:"column:customer_email;not null"`
	CustomerPhone     string                  `gorm:"column:customer_phone;not null"`
	PetName           string                  `gorm:"column:pet_name;not null"`
	Reason            string                  `gorm:"column:reason"`
	ScheduledAt       time.Time               `gorm:"column:scheduled_at;not null"`
	Fee               decimal.Decimal         `gorm:"column:fee;type:numeric(12,2);not null"`
	PaymentMode       enums.PaymentMode       `gorm:"column:payment_mode;not null"`
	Status            enums.AppointmentStatus `gorm:"column:status;not null;default:pending"`
	PaymentStatus     enums.PaymentStatus     `gorm:"column:payment_status;not null;default:unpaid"`
	PaymentSessionRef *string                 `gorm:"column:payment_session_ref"`
	ConfirmedAt       *time.Time              `gorm:"column:confirmed_at"`
	Vet               *Vet                    `gorm:"foreignKey:VetID"`
	CreatedAt         time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}

func (a *Appointment) BeforeCreate(*gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
