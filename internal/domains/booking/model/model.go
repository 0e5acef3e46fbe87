package model

import (
	"time"

	"carhive/shared/model"
)

const (
	TableName  = "bookings"
	EntityName = "booking"

	FieldID            = "id"
	FieldVehicleID     = "vehicle_id"
	FieldRenterID      = "renter_id"
	FieldStartDate     = "start_date"
	FieldEndDate       = "end_date"
	FieldTotalDays     = "total_days"
	FieldTotalAmount   = "total_amount"
	FieldStatus        = "status"
	FieldRefundAmount  = "refund_amount"
	FieldVersion       = "version"
	FieldCancelledAt   = "cancelled_at"
	FieldCompletedAt   = "completed_at"
	FieldCancelReason  = "cancellation_reason"
)

type Status string

const (
	StatusPending       Status = "pending"
	StatusConfirmed     Status = "confirmed"
	StatusActive        Status = "active"
	StatusCompleted     Status = "completed"
	StatusCancelled     Status = "cancelled"
	StatusPaymentFailed Status = "payment_failed"
	StatusRefunded      Status = "refunded"
)

// ConflictStatuses are the statuses whose bookings occupy a vehicle interval.
// Cancelled, refunded, failed and completed bookings release their dates.
var ConflictStatuses = []string{
	string(StatusPending),
	string(StatusConfirmed),
	string(StatusActive),
}

// transitions is the booking state machine. A missing entry means the status
// is terminal.
var transitions = map[Status][]Status{
	StatusPending:       {StatusConfirmed, StatusPaymentFailed, StatusCancelled},
	StatusConfirmed:     {StatusActive, StatusCancelled, StatusRefunded},
	StatusActive:        {StatusCompleted, StatusRefunded},
	StatusCompleted:     {StatusRefunded},
	StatusPaymentFailed: {StatusConfirmed, StatusCancelled},
}

// CanTransitionTo reports whether the state machine permits moving from s to
// target. Guards beyond status legality (cancellation window, refund
// coverage) are enforced by the booking service.
func (s Status) CanTransitionTo(target Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == target {
			return true
		}
	}

	return false
}

// Terminal reports whether no further transition is defined from s.
func (s Status) Terminal() bool {
	return len(transitions[s]) == 0
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusActive, StatusCompleted,
		StatusCancelled, StatusPaymentFailed, StatusRefunded:
		return true
	}

	return false
}

// Driver is the booking-owned driver sub-record. It has no identity or
// lifecycle of its own.
type Driver struct {
	Name          string    `db:"driver_name"`
	LicenseNumber string    `db:"driver_license_number"`
	LicenseExpiry time.Time `db:"driver_license_expiry"`
	Phone         string    `db:"driver_phone"`
	Age           int       `db:"driver_age"`
}

// Insurance is the booking-owned insurance selection. Cost is resolved from
// the configured tier table at pricing time, in cents.
type Insurance struct {
	Tier string `db:"insurance_tier"`
	Cost int64  `db:"insurance_cost"`
}

type Booking struct {
	ID             string     `db:"id"`
	VehicleID      string     `db:"vehicle_id"`
	RenterID       string     `db:"renter_id"`
	StartDate      time.Time  `db:"start_date"`
	EndDate        time.Time  `db:"end_date"`
	TotalDays      int        `db:"total_days"`
	TotalAmount    int64      `db:"total_amount"`
	Status         Status     `db:"status"`
	PickupLocation string     `db:"pickup_location"`
	ReturnLocation string     `db:"return_location"`
	Driver
	Insurance
	SpecialRequests    string     `db:"special_requests"`
	CancellationReason *string    `db:"cancellation_reason"`
	CancelledAt        *time.Time `db:"cancelled_at"`
	CompletedAt        *time.Time `db:"completed_at"`
	RefundAmount       int64      `db:"refund_amount"`
	// Version is bumped on every status mutation; conditional updates on it
	// linearize transitions per booking.
	Version int `db:"version"`
	model.Metadata
}

// CanRenterCancel applies the renter-side cancellation guard: only a
// confirmed booking may be cancelled, and only while the start date is more
// than windowHours away. Admins bypass this guard entirely.
func (b *Booking) CanRenterCancel(now time.Time, windowHours int) bool {
	return b.Status == StatusConfirmed && b.StartDate.Sub(now) > time.Duration(windowHours)*time.Hour
}
