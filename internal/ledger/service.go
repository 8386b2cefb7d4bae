package ledger

import (
	"context"
	"fmt"

	"github.com/pawbazaar/marketplace-backend/pkg/db/models"
	"github.com/pawbazaar/marketplace-backend/pkg/enums"
	"github.com/shopspring/decimal"
)

// Service records the payment audit trail. Entries survive deletion of the
// transaction they describe.
type Service interface {
	RecordEvent(ctx context.Context, input RecordLedgerEventInput) (*models.LedgerEvent, error)
	History(ctx context.Context, kind enums.TransactionKind, externalID string) ([]models.LedgerEvent, error)
	HasEvent(ctx context.Context, kind enums.TransactionKind, externalID string, eventType enums.LedgerEventType) (bool, error)
}

type service struct {
	repo Repository
}

// RecordLedgerEventInput captures the immutable data a ledger event requires.
type RecordLedgerEventInput struct {
	Kind       enums.TransactionKind `json:"kind"`
	ExternalID string                `json:"external_id"`
	Type       enums.LedgerEventType `json:"type"`
	Amount     decimal.Decimal       `json:"amount"`
	Reference  string                `json:"reference,omitempty"`
	Detail     string                `json:"detail,omitempty"`
}

// NewService wires a ledger service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) RecordEvent(ctx context.Context, input RecordLedgerEventInput) (*models.LedgerEvent, error) {
	if !input.Kind.IsValid() {
		return nil, fmt.Errorf("invalid transaction kind %q", input.Kind)
	}
	if input.ExternalID == "" {
		return nil, fmt.Errorf("external id is required")
	}
	if !input.Type.IsValid() {
		return nil, fmt.Errorf("invalid ledger event type %q", input.Type)
	}
	if input.Amount.IsNegative() {
		return nil, fmt.Errorf("amount must not be negative")
	}

	event := &models.LedgerEvent{
		Kind:       input.Kind,
		ExternalID: input.ExternalID,
		Type:       input.Type,
		Amount:     input.Amount,
		Reference:  input.Reference,
		Detail:     input.Detail,
	}
	if err := s.repo.Append(ctx, event); err != nil {
		return nil, err
	}
	return event, nil
}

func (s *service) History(ctx context.Context, kind enums.TransactionKind, externalID string) ([]models.LedgerEvent, error) {
	if externalID == "" {
		return nil, fmt.Errorf("external id is required")
	}
	return s.repo.ListByTransaction(ctx, kind, externalID)
}

func (s *service) HasEvent(ctx context.Context, kind enums.TransactionKind, externalID string, eventType enums.LedgerEventType) (bool, error) {
	if !eventType.IsValid() {
		return false, fmt.Errorf("invalid ledger event type %q", eventType)
	}
	if externalID == "" {
		return false, fmt.Errorf("external id is required")
	}
	n, err := s.repo.CountByType(ctx, kind, externalID, eventType)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
