package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pawbazaar/marketplace-backend/pkg/enums"
)

// AdoptionListing is a pet posted for adoption.
type AdoptionListing struct {
	ID          uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	PosterID    uuid.UUID           `gorm:"column:poster_id;type:uuid;not null;index"`
	PosterName  string              `gorm:"column:poster_name;not null"`
	PosterEmail string              `gorm:"column:poster_email;not null"`
	PetName     string              `gorm:"column:pet_name;not null"`
	Species     string              `gorm:"column:species;not null"`
	Status      enums.ListingStatus `gorm:"column:status;not null;default:available"`
	CreatedAt   time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (l *AdoptionListing) BeforeCreate(*gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

// AdoptionApplication is a request to adopt a listed pet. It carries no payment.
type AdoptionApplication struct {
	ID             uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	ExternalID     string                  `gorm:"column:external_id;not null;uniqueIndex:adoption_applications_external_id_key"`
	ListingID      uuid.UUID               `gorm:"column:listing_id;type:uuid;not null;index"`
	ApplicantID    uuid.UUID               `gorm:"column:applicant_id;type:uuid;not null;index"`
	ApplicantName  string                  `gorm:"column:applicant_name;not null"`
	ApplicantEmail string                  `gorm:"column:applicant_email;not null"`
	ApplicantPhone string                  `gorm:"column:applicant_phone;not null"`
	Address        string                  `gorm:"column:address;not null"`
	Message        string                  `gorm:"column:message"`
	Status         enums.ApplicationStatus `gorm:"column:status;not null;default:pending"`
	ConfirmedAt    *time.Time              `gorm:"column:confirmed_at"`
	Listing        *AdoptionListing        `gorm:"foreignKey:ListingID"`
	CreatedAt      time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}

func (a *AdoptionApplication) BeforeCreate(*gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
