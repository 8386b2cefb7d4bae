package enums

import "fmt"

// ListingStatus marks whether an adoption listing can still take applications.
type ListingStatus string

const (
	ListingStatusAvailable ListingStatus = "available"
	ListingStatusAdopted   ListingStatus = "adopted"
)

var validListingStatuses = []ListingStatus{
	ListingStatusAvailable,
	ListingStatusAdopted,
}

// String implements fmt.Stringer.
func (l ListingStatus) String() string {
	return string(l)
}

// IsValid reports whether the value is a known ListingStatus.
func (l ListingStatus) IsValid() bool {
	for _, candidate := range validListingStatuses {
		if candidate == l {
			return true
		}
	}
	return false
}

// ParseListingStatus converts raw input into a ListingStatus.
func ParseListingStatus(value string) (ListingStatus, error) {
	for _, candidate := range validListingStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid listing status %q", value)
}
