package enums

import "fmt"

// PaymentMode selects how a transaction is settled.
type PaymentMode string

const (
	PaymentModeOnline PaymentMode = "online"
	PaymentModeCash   PaymentMode = "cash"
	PaymentModeNone   PaymentMode = "none"
)

var validPaymentModes = []PaymentMode{
	PaymentModeOnline,
	PaymentModeCash,
	PaymentModeNone,
}

// String implements fmt.Stringer.
func (p PaymentMode) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentMode.
func (p PaymentMode) IsValid() bool {
	for _, candidate := range validPaymentModes {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePaymentMode converts raw input into a PaymentMode.
func ParsePaymentMode(value string) (PaymentMode, error) {
	for _, candidate := range validPaymentModes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment mode %q", value)
}

// IsOnline reports whether settlement goes through the hosted payment gateway.
func (p PaymentMode) IsOnline() bool {
	return p == PaymentModeOnline
}
