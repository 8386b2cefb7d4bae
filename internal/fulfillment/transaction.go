package fulfillment

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pawbazaar/marketplace-backend/internal/notifications"
	"github.com/pawbazaar/marketplace-backend/pkg/enums"
)

// Party is the customer side of a transaction.
type Party struct {
	Name    string
	Email   string
	Phone   string
	Address string
}

// LineItem is a purchased product snapshot.
type LineItem struct {
	ProductID uuid.UUID
	VendorID  uuid.UUID
	Name      string
	Quantity  int
	UnitPrice decimal.Decimal
}

// Shipment describes the parcel handed to the courier.
type Shipment struct {
	RecipientName    string
	RecipientPhone   string
	RecipientAddress string
	Note             string
}

// Consignment is the courier's record for a dispatched parcel.
type Consignment struct {
	ID           string
	TrackingCode string
	Status       string
}

// Transaction is the kind-independent view of an order, adoption application or
// appointment that the coordinator drives.
type Transaction struct {
	Kind          enums.TransactionKind
	ID            uuid.UUID
	ExternalID    string
	Status        string
	PaymentMode   enums.PaymentMode
	PaymentStatus enums.PaymentStatus
	Amount        decimal.Decimal
	Label         string
	Customer      Party
	Confirmed     bool
	LineItems     []LineItem
	Shipment      *Shipment
	Consignment   *Consignment
}

// Paid reports whether the payment has been collected.
func (t *Transaction) Paid() bool {
	return t.PaymentStatus == enums.PaymentStatusPaid
}

// VendorIDs returns the distinct owning vendors of the line items.
func (t *Transaction) VendorIDs() []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(t.LineItems))
	var out []uuid.UUID
	for _, item := range t.LineItems {
		if _, ok := seen[item.VendorID]; ok || item.VendorID == uuid.Nil {
			continue
		}
		seen[item.VendorID] = struct{}{}
		out = append(out, item.VendorID)
	}
	return out
}

// Domain is implemented by each transaction kind registered with the coordinator.
type Domain interface {
	Kind() enums.TransactionKind
	// Load returns a not-found error when the record does not exist.
	Load(ctx context.Context, externalID string) (*Transaction, error)
	// AttachSession stores the gateway session reference. It may be set only once.
	AttachSession(ctx context.Context, externalID, sessionRef string) error
	// Claim marks the record confirmed, and paid when paid is true, if nobody
	// has confirmed it yet. It reports whether this call won.
	Claim(ctx context.Context, externalID string, paid bool) (bool, error)
	// Discard removes a record that was never confirmed.
	Discard(ctx context.Context, externalID string) (bool, error)
	// Messages builds the confirmation notifications for every party.
	Messages(ctx context.Context, tx *Transaction) ([]notifications.Message, error)
}

// Finalizer is implemented by domains that persist courier fields after dispatch.
type Finalizer interface {
	Finalize(ctx context.Context, tx *Transaction) error
}
