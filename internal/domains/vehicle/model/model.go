package model

import (
	"carhive/shared/model"
)

const (
	TableName  = "vehicles"
	EntityName = "vehicle"

	FieldID           = "id"
	FieldName         = "name"
	FieldPricePerDay  = "price_per_day"
	FieldAvailability = "availability"
	FieldActive       = "active"
	FieldOwnerID      = "owner_id"
)

type Vehicle struct {
	ID          string `db:"id"`
	Name        string `db:"name"`
	PricePerDay int64  `db:"price_per_day"`
	// Availability is a listing-capacity flag controlled by the owner or an
	// admin. Per-date availability is derived from booking conflicts, never
	// stored here.
	Availability bool   `db:"availability"`
	Active       bool   `db:"active"`
	OwnerID      string `db:"owner_id"`
	model.Metadata
}

// Bookable reports whether the vehicle may be offered to new bookings.
// Existing bookings against an unbookable vehicle remain valid.
func (v *Vehicle) Bookable() bool {
	return v.Active && v.Availability
}
