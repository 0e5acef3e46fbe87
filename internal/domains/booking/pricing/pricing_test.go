package pricing_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"carhive/internal/domains/booking/pricing"
)

func date(value string) time.Time {
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		panic(err)
	}

	return t
}

func TestPrice(t *testing.T) {
	tests := []struct {
		name          string
		dailyRate     int64
		start         time.Time
		end           time.Time
		insuranceCost int64
		wantDays      int
		wantAmount    int64
		wantErr       bool
	}{
		{
			// $50/day for three days plus $10 basic insurance.
			name:          "three day rental with basic insurance",
			dailyRate:     5000,
			start:         date("2025-03-01"),
			end:           date("2025-03-04"),
			insuranceCost: 1000,
			wantDays:      3,
			wantAmount:    16000,
		},
		{
			name:       "single day rental without insurance",
			dailyRate:  5000,
			start:      date("2025-03-01"),
			end:        date("2025-03-02"),
			wantDays:   1,
			wantAmount: 5000,
		},
		{
			name:       "partial day rounds up to a full day",
			dailyRate:  5000,
			start:      time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
			end:        time.Date(2025, 3, 2, 18, 0, 0, 0, time.UTC),
			wantDays:   2,
			wantAmount: 10000,
		},
		{
			name:       "few hours still bill one day",
			dailyRate:  5000,
			start:      time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
			end:        time.Date(2025, 3, 1, 14, 0, 0, 0, time.UTC),
			wantDays:   1,
			wantAmount: 5000,
		},
		{
			name:          "premium insurance added once not per day",
			dailyRate:     5000,
			start:         date("2025-03-01"),
			end:           date("2025-03-08"),
			insuranceCost: 2500,
			wantDays:      7,
			wantAmount:    37500,
		},
		{
			name:      "end equal to start is rejected",
			dailyRate: 5000,
			start:     date("2025-03-01"),
			end:       date("2025-03-01"),
			wantErr:   true,
		},
		{
			name:      "end before start is rejected",
			dailyRate: 5000,
			start:     date("2025-03-04"),
			end:       date("2025-03-01"),
			wantErr:   true,
		},
		{
			name:      "negative daily rate is rejected",
			dailyRate: -1,
			start:     date("2025-03-01"),
			end:       date("2025-03-02"),
			wantErr:   true,
		},
		{
			name:          "negative insurance cost is rejected",
			dailyRate:     5000,
			start:         date("2025-03-01"),
			end:           date("2025-03-02"),
			insuranceCost: -1,
			wantErr:       true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			quote, err := pricing.Price(tt.dailyRate, tt.start, tt.end, tt.insuranceCost)

			if tt.wantErr {
				assert.Error(t, err)

				return
			}

			assert.NoError(t, err)
			assert.Equal(t, tt.wantDays, quote.TotalDays)
			assert.Equal(t, tt.wantAmount, quote.TotalAmount)
			assert.Equal(t, tt.insuranceCost, quote.InsuranceCost)
		})
	}
}

func TestPriceIsRecomputable(t *testing.T) {
	// Same inputs always yield the same quote; the calculator carries no state.
	first, err := pricing.Price(5000, date("2025-03-01"), date("2025-03-04"), 1000)
	assert.NoError(t, err)

	second, err := pricing.Price(5000, date("2025-03-01"), date("2025-03-04"), 1000)
	assert.NoError(t, err)

	assert.Equal(t, first, second)
}
