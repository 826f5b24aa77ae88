package valueobject

import (
	"errors"
	"strings"
)

// Address is an immutable postal address snapshot
// Orders copy the address at creation time; later profile edits never
// change an existing order
type Address struct {
	Street     string `json:"street" gorm:"size:255"`
	City       string `json:"city" gorm:"size:100"`
	State      string `json:"state,omitempty" gorm:"size:100"`
	PostalCode string `json:"postal_code" gorm:"size:20"`
	Country    string `json:"country" gorm:"size:100"`
}

// NewAddress creates a validated Address
// State is optional; all other fields are required
func NewAddress(street, city, state, postalCode, country string) (Address, error) {
	a := Address{
		Street:     strings.TrimSpace(street),
		City:       strings.TrimSpace(city),
		State:      strings.TrimSpace(state),
		PostalCode: strings.TrimSpace(postalCode),
		Country:    strings.TrimSpace(country),
	}
	if err := a.Validate(); err != nil {
		return Address{}, err
	}
	return a, nil
}

// Validate checks that all required fields are present
func (a Address) Validate() error {
	if a.Street == "" {
		return errors.New("street is required")
	}
	if a.City == "" {
		return errors.New("city is required")
	}
	if a.PostalCode == "" {
		return errors.New("postal code is required")
	}
	if a.Country == "" {
		return errors.New("country is required")
	}
	return nil
}

// IsZero returns true if no field is set
func (a Address) IsZero() bool {
	return a == Address{}
}

// String returns a single-line representation
func (a Address) String() string {
	parts := []string{a.Street, a.City}
	if a.State != "" {
		parts = append(parts, a.State)
	}
	parts = append(parts, a.PostalCode, a.Country)
	return strings.Join(parts, ", ")
}
