package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/pawbazaar/marketplace-backend/pkg/enums"
)

// LedgerEvent is an append-only payment audit entry. It outlives transactions
// that are deleted after a failed payment.
type LedgerEvent struct {
	ID         uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	Kind       enums.TransactionKind `gorm:"column:kind;not null"`
	ExternalID string                `gorm:"column:external_id;not null;index"`
	Type       enums.LedgerEventType `gorm:"column:type;not null"`
	Amount     decimal.Decimal       `gorm:"column:amount;type:numeric(12,2);not null"`
	Reference  string                `gorm:"column:reference"`
	Detail     string                `gorm:"column:detail"`
	CreatedAt  time.Time             `gorm:"column:created_at;autoCreateTime"`
}

func (e *LedgerEvent) BeforeCreate(*gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
