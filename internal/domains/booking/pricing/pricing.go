// Package pricing derives booking totals from the rental interval, the
// vehicle's daily rate and the selected insurance tier. The calculation is a
// pure function: the booking service re-invokes it whenever dates, vehicle or
// insurance change, and persisted totals are never recomputed implicitly by
// the storage layer.
package pricing

import (
	"time"

	"carhive/shared/failure"
)

const millisPerDay = 24 * 60 * 60 * 1000

// Quote is the priced outcome for one rental interval, amounts in cents.
type Quote struct {
	TotalDays     int
	InsuranceCost int64
	TotalAmount   int64
}

// Price computes the quote for a rental interval. TotalDays is the ceiling of
// the interval length in days, never below one, so a same-day rental is still
// billed a full day. Returns a validation failure for a malformed interval.
func Price(dailyRate int64, startDate, endDate time.Time, insuranceCost int64) (Quote, error) {
	if !endDate.After(startDate) {
		return Quote{}, failure.BadRequestFromString("end date must be after start date") //nolint:wrapcheck
	}

	if dailyRate < 0 {
		return Quote{}, failure.BadRequestFromString("daily rate cannot be negative") //nolint:wrapcheck
	}

	if insuranceCost < 0 {
		return Quote{}, failure.BadRequestFromString("insurance cost cannot be negative") //nolint:wrapcheck
	}

	durationMillis := endDate.Sub(startDate).Milliseconds()

	totalDays := int((durationMillis + millisPerDay - 1) / millisPerDay)
	if totalDays < 1 {
		totalDays = 1
	}

	return Quote{
		TotalDays:     totalDays,
		InsuranceCost: insuranceCost,
		TotalAmount:   dailyRate*int64(totalDays) + insuranceCost,
	}, nil
}
