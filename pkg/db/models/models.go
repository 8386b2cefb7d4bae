package models

// All lists every persisted model, in dependency order, for AutoMigrate in tests
// and sqlite development mode.
func All() []any {
	return []any{
		&Vendor{},
		&Product{},
		&Order{},
		&OrderLineItem{},
		&VendorOrderRef{},
		&AdoptionListing{},
		&AdoptionApplication{},
		&Vet{},
		&Appointment{},
		&LedgerEvent{},
	}
}
