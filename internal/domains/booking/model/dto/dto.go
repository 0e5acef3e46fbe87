package dto

import (
	"time"

	"github.com/google/uuid"

	"carhive/internal/domains/booking/model"
	"carhive/internal/domains/booking/pricing"
	"carhive/shared"
	"carhive/shared/constant"
	gDto "carhive/shared/dto"
	"carhive/shared/failure"
	gModel "carhive/shared/model"
	"carhive/shared/timezone"
)

type DriverRequest struct {
	Name          string `json:"name"           validate:"required,max=100"`
	LicenseNumber string `json:"license_number" validate:"required,max=50"`
	LicenseExpiry string `json:"license_expiry" validate:"required,datetime=2006-01-02"`
	Phone         string `json:"phone"          validate:"required,max=20"`
	Age           int    `json:"age"            validate:"required,gte=18,lte=100"`
}

type CreateBookingRequest struct {
	VehicleID       string        `json:"vehicle_id"       validate:"required,uuid"`
	StartDate       string        `json:"start_date"       validate:"required,datetime=2006-01-02"`
	EndDate         string        `json:"end_date"         validate:"required,datetime=2006-01-02"`
	PickupLocation  string        `json:"pickup_location"  validate:"required,max=255"`
	ReturnLocation  string        `json:"return_location"  validate:"required,max=255"`
	Driver          DriverRequest `json:"driver"           validate:"required"`
	InsuranceTier   string        `json:"insurance_tier"   validate:"required,oneof=basic premium full"`
	SpecialRequests string        `json:"special_requests" validate:"omitempty,max=500"`
}

// Interval parses the requested rental dates. Date-only values are anchored
// to midnight in the application timezone.
func (c *CreateBookingRequest) Interval() (start, end time.Time, err error) {
	start, err = timezone.Parse(constant.DateOnlyFormat, c.StartDate)
	if err != nil {
		return start, end, failure.BadRequestFromString("invalid start date") //nolint:wrapcheck
	}

	end, err = timezone.Parse(constant.DateOnlyFormat, c.EndDate)
	if err != nil {
		return start, end, failure.BadRequestFromString("invalid end date") //nolint:wrapcheck
	}

	return start, end, nil
}

func (c *CreateBookingRequest) LicenseExpiry() (time.Time, error) {
	expiry, err := timezone.Parse(constant.DateOnlyFormat, c.Driver.LicenseExpiry)
	if err != nil {
		return expiry, failure.BadRequestFromString("invalid license expiry date") //nolint:wrapcheck
	}

	return expiry, nil
}

func (c *CreateBookingRequest) ToModel(renter string, start, end, licenseExpiry time.Time, quote pricing.Quote) model.Booking {
	return model.Booking{
		ID:             uuid.NewString(),
		VehicleID:      c.VehicleID,
		RenterID:       renter,
		StartDate:      start,
		EndDate:        end,
		TotalDays:      quote.TotalDays,
		TotalAmount:    quote.TotalAmount,
		Status:         model.StatusPending,
		PickupLocation: c.PickupLocation,
		ReturnLocation: c.ReturnLocation,
		Driver: model.Driver{
			Name:          c.Driver.Name,
			LicenseNumber: c.Driver.LicenseNumber,
			LicenseExpiry: licenseExpiry,
			Phone:         c.Driver.Phone,
			Age:           c.Driver.Age,
		},
		Insurance: model.Insurance{
			Tier: c.InsuranceTier,
			Cost: quote.InsuranceCost,
		},
		SpecialRequests: c.SpecialRequests,
		Version:         1,
		Metadata: gModel.Metadata{
			CreatedAt:  timezone.Now(),
			ModifiedAt: timezone.Now(),
			CreatedBy:  renter,
			ModifiedBy: renter,
		},
	}
}

type CancelBookingRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

type UpdateBookingStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending confirmed active completed cancelled payment_failed refunded"`
}

type DriverResponse struct {
	Name          string    `json:"name"`
	LicenseNumber string    `json:"license_number"`
	LicenseExpiry time.Time `json:"license_expiry"`
	Phone         string    `json:"phone"`
	Age           int       `json:"age"`
}

type InsuranceResponse struct {
	Tier string `json:"tier"`
	Cost int64  `json:"cost"`
}

type BookingResponse struct {
	ID                 string            `json:"id"`
	VehicleID          string            `json:"vehicle_id"`
	RenterID           string            `json:"renter_id"`
	StartDate          time.Time         `json:"start_date"`
	EndDate            time.Time         `json:"end_date"`
	TotalDays          int               `json:"total_days"`
	TotalAmount        int64             `json:"total_amount"`
	Status             string            `json:"status"`
	PickupLocation     string            `json:"pickup_location"`
	ReturnLocation     string            `json:"return_location"`
	Driver             DriverResponse    `json:"driver"`
	Insurance          InsuranceResponse `json:"insurance"`
	SpecialRequests    string            `json:"special_requests,omitempty"`
	CancellationReason *string           `json:"cancellation_reason,omitempty"`
	CancelledAt        *time.Time        `json:"cancelled_at,omitempty"`
	CompletedAt        *time.Time        `json:"completed_at,omitempty"`
	RefundAmount       int64             `json:"refund_amount"`
	gDto.Metadata
}

func (r *BookingResponse) FromModel(mod model.Booking) {
	r.ID = mod.ID
	r.VehicleID = mod.VehicleID
	r.RenterID = mod.RenterID
	r.StartDate = mod.StartDate
	r.EndDate = mod.EndDate
	r.TotalDays = mod.TotalDays
	r.TotalAmount = mod.TotalAmount
	r.Status = string(mod.Status)
	r.PickupLocation = mod.PickupLocation
	r.ReturnLocation = mod.ReturnLocation
	r.Driver = DriverResponse{
		Name:          mod.Driver.Name,
		LicenseNumber: mod.Driver.LicenseNumber,
		LicenseExpiry: mod.Driver.LicenseExpiry,
		Phone:         mod.Driver.Phone,
		Age:           mod.Driver.Age,
	}
	r.Insurance = InsuranceResponse{
		Tier: mod.Insurance.Tier,
		Cost: mod.Insurance.Cost,
	}
	r.SpecialRequests = mod.SpecialRequests
	r.CancellationReason = mod.CancellationReason
	r.CancelledAt = mod.CancelledAt
	r.CompletedAt = mod.CompletedAt
	r.RefundAmount = mod.RefundAmount
	r.Metadata.FromModel(mod.Metadata)
}

type GetBookingsResponse struct {
	Bookings  []BookingResponse `json:"bookings"`
	TotalPage int               `json:"total_page"`
	TotalData int               `json:"total_data"`
}

func (r *GetBookingsResponse) FromModels(models []model.Booking, totalData, limit int) {
	r.TotalData = totalData
	r.TotalPage = shared.CalculateTotalPage(totalData, limit)

	r.Bookings = make([]BookingResponse, len(models))
	for i, mod := range models {
		r.Bookings[i].FromModel(mod)
	}
}
