package model

import (
	"carhive/shared/model"
)

const (
	TableName  = "payments"
	EntityName = "payment"

	FieldID              = "id"
	FieldBookingID       = "booking_id"
	FieldRenterID        = "renter_id"
	FieldAmount          = "amount"
	FieldCurrency        = "currency"
	FieldGatewayIntentID = "gateway_intent_id"
	FieldStatus          = "status"
	FieldFailureReason   = "failure_reason"
	FieldRefundedAmount  = "refunded_amount"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusRefunded  Status = "refunded"
)

// Payment is one gateway charge attempt for a booking. A booking accumulates
// a new row per attempt; correlation with gateway callbacks is strictly by
// GatewayIntentID.
type Payment struct {
	ID              string  `db:"id"`
	BookingID       string  `db:"booking_id"`
	RenterID        string  `db:"renter_id"`
	Amount          int64   `db:"amount"`
	Currency        string  `db:"currency"`
	GatewayIntentID string  `db:"gateway_intent_id"`
	Status          Status  `db:"status"`
	FailureReason   *string `db:"failure_reason"`
	RefundedAmount  int64   `db:"refunded_amount"`
	model.Metadata
}

// Refundable reports whether more money can still flow back on this payment.
// A partially refunded payment stays succeeded until fully covered, tracked
// by RefundedAmount.
func (p *Payment) Refundable() bool {
	return p.Status == StatusSucceeded && p.RefundedAmount < p.Amount
}

// Remaining is the amount not yet refunded, in cents.
func (p *Payment) Remaining() int64 {
	return p.Amount - p.RefundedAmount
}
