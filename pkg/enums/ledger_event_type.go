package enums

import "fmt"

// LedgerEventType classifies payment ledger entries.
type LedgerEventType string

const (
	LedgerEventTypePaymentInitiated LedgerEventType = "payment_initiated"
	LedgerEventTypePaymentValidated LedgerEventType = "payment_validated"
	LedgerEventTypePaymentFailed    LedgerEventType = "payment_failed"
	LedgerEventTypePaymentDiscarded LedgerEventType = "payment_discarded"
	LedgerEventTypePaymentReplayed  LedgerEventType = "payment_replayed"
)

var validLedgerEventTypes = []LedgerEventType{
	LedgerEventTypePaymentInitiated,
	LedgerEventTypePaymentValidated,
	LedgerEventTypePaymentFailed,
	LedgerEventTypePaymentDiscarded,
	LedgerEventTypePaymentReplayed,
}

// String implements fmt.Stringer.
func (l LedgerEventType) String() string {
	return string(l)
}

// IsValid reports whether the value is a known LedgerEventType.
func (l LedgerEventType) IsValid() bool {
	for _, candidate := range validLedgerEventTypes {
		if candidate == l {
			return true
		}
	}
	return false
}

// ParseLedgerEventType converts raw input into a LedgerEventType.
func ParseLedgerEventType(value string) (LedgerEventType, error) {
	for _, candidate := range validLedgerEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid ledger event type %q", value)
}
