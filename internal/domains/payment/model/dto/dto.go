package dto

import (
	"carhive/internal/domains/payment/model"
	"carhive/shared"
	gDto "carhive/shared/dto"
)

type CheckoutRequest struct {
	BookingID string `json:"booking_id" validate:"required,uuid"`
}

// CheckoutResponse carries the gateway client secret the frontend needs to
// collect the card. The secret is never persisted.
type CheckoutResponse struct {
	PaymentID    string `json:"payment_id"`
	ClientSecret string `json:"client_secret"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
}

type RefundRequest struct {
	BookingID string `json:"booking_id" validate:"required,uuid"`
	// Amount in cents. Zero refunds everything still outstanding.
	Amount int64  `json:"amount" validate:"omitempty,gt=0"`
	Reason string `json:"reason" validate:"omitempty,max=500"`
}

type RefundResponse struct {
	RefundID       string `json:"refund_id"`
	RefundedAmount int64  `json:"refunded_amount"`
	Full           bool   `json:"full"`
}

type PaymentResponse struct {
	ID              string  `json:"id"`
	BookingID       string  `json:"booking_id"`
	RenterID        string  `json:"renter_id"`
	Amount          int64   `json:"amount"`
	Currency        string  `json:"currency"`
	GatewayIntentID string  `json:"gateway_intent_id"`
	Status          string  `json:"status"`
	FailureReason   *string `json:"failure_reason,omitempty"`
	RefundedAmount  int64   `json:"refunded_amount"`
	gDto.Metadata
}

func (r *PaymentResponse) FromModel(mod model.Payment) {
	r.ID = mod.ID
	r.BookingID = mod.BookingID
	r.RenterID = mod.RenterID
	r.Amount = mod.Amount
	r.Currency = mod.Currency
	r.GatewayIntentID = mod.GatewayIntentID
	r.Status = string(mod.Status)
	r.FailureReason = mod.FailureReason
	r.RefundedAmount = mod.RefundedAmount
	r.Metadata.FromModel(mod.Metadata)
}

type GetPaymentsResponse struct {
	Payments  []PaymentResponse `json:"payments"`
	TotalPage int               `json:"total_page"`
	TotalData int               `json:"total_data"`
}

func (r *GetPaymentsResponse) FromModels(models []model.Payment, totalData, limit int) {
	r.TotalData = totalData
	r.TotalPage = shared.CalculateTotalPage(totalData, limit)

	r.Payments = make([]PaymentResponse, len(models))
	for i, mod := range models {
		r.Payments[i].FromModel(mod)
	}
}
