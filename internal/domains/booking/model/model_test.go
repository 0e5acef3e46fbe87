package model_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"carhive/internal/domains/booking/model"
)

func TestStatusCanTransitionTo(t *testing.T) {
	tests := []struct {
		name string
		from model.Status
		to   model.Status
		want bool
	}{
		{"pending to confirmed on payment success", model.StatusPending, model.StatusConfirmed, true},
		{"pending to payment_failed on payment failure", model.StatusPending, model.StatusPaymentFailed, true},
		{"pending to cancelled", model.StatusPending, model.StatusCancelled, true},
		{"pending cannot skip to active", model.StatusPending, model.StatusActive, false},
		{"pending cannot skip to completed", model.StatusPending, model.StatusCompleted, false},
		{"confirmed to active on pickup", model.StatusConfirmed, model.StatusActive, true},
		{"confirmed to cancelled", model.StatusConfirmed, model.StatusCancelled, true},
		{"confirmed to refunded", model.StatusConfirmed, model.StatusRefunded, true},
		{"active to completed on return", model.StatusActive, model.StatusCompleted, true},
		{"active to refunded", model.StatusActive, model.StatusRefunded, true},
		{"active cannot revert to pending", model.StatusActive, model.StatusPending, false},
		{"completed to refunded", model.StatusCompleted, model.StatusRefunded, true},
		{"payment_failed to confirmed on retry", model.StatusPaymentFailed, model.StatusConfirmed, true},
		{"payment_failed to cancelled", model.StatusPaymentFailed, model.StatusCancelled, true},
		{"cancelled is terminal", model.StatusCancelled, model.StatusPending, false},
		{"refunded is terminal", model.StatusRefunded, model.StatusConfirmed, false},
		{"completed cannot reactivate", model.StatusCompleted, model.StatusActive, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestStatusTerminal(t *testing.T) {
	assert.True(t, model.StatusCancelled.Terminal())
	assert.True(t, model.StatusRefunded.Terminal())
	assert.False(t, model.StatusPending.Terminal())
	assert.False(t, model.StatusConfirmed.Terminal())
	assert.False(t, model.StatusActive.Terminal())
	assert.False(t, model.StatusCompleted.Terminal())
	assert.False(t, model.StatusPaymentFailed.Terminal())
}

func TestStatusValid(t *testing.T) {
	assert.True(t, model.StatusPending.Valid())
	assert.True(t, model.StatusPaymentFailed.Valid())
	assert.False(t, model.Status("unknown").Valid())
}

func TestCanRenterCancel(t *testing.T) {
	now := time.Date(2025, 2, 28, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		status  model.Status
		start   time.Time
		want    bool
	}{
		{"confirmed well before start", model.StatusConfirmed, now.Add(72 * time.Hour), true},
		{"confirmed exactly at window boundary", model.StatusConfirmed, now.Add(24 * time.Hour), false},
		{"confirmed two hours before start", model.StatusConfirmed, now.Add(2 * time.Hour), false},
		{"pending booking is not renter-cancellable", model.StatusPending, now.Add(72 * time.Hour), false},
		{"active booking is not renter-cancellable", model.StatusActive, now.Add(72 * time.Hour), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			booking := model.Booking{
				Status:    tt.status,
				StartDate: tt.start,
			}

			assert.Equal(t, tt.want, booking.CanRenterCancel(now, 24))
		})
	}
}
