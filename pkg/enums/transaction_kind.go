package enums

import "fmt"

// TransactionKind names the domain a transaction belongs to.
type TransactionKind string

const (
	TransactionKindOrder       TransactionKind = "order"
	TransactionKindAdoption    TransactionKind = "adoption"
	TransactionKindAppointment TransactionKind = "appointment"
)

var validTransactionKinds = []TransactionKind{
	TransactionKindOrder,
	TransactionKindAdoption,
	TransactionKindAppointment,
}

// String implements fmt.Stringer.
func (t TransactionKind) String() string {
	return string(t)
}

// IsValid reports whether the value is a known TransactionKind.
func (t TransactionKind) IsValid() bool {
	for _, candidate := range validTransactionKinds {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseTransactionKind converts raw input into a TransactionKind.
func ParseTransactionKind(value string) (TransactionKind, error) {
	for _, candidate := range validTransactionKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid transaction kind %q", value)
}
