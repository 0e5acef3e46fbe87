package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"carhive/config"
	otelMocks "carhive/infras/otel/mocks"
	bookingMocks "carhive/internal/domains/booking/mocks"
	"carhive/internal/domains/booking/model"
	"carhive/internal/domains/booking/model/dto"
	"carhive/internal/domains/booking/service"
	vehicleMocks "carhive/internal/domains/vehicle/mocks"
	vehicleModel "carhive/internal/domains/vehicle/model"
	eventMocks "carhive/internal/events/mocks"
	"carhive/shared/cache"
	cacheMocks "carhive/shared/cache/mocks"
	"carhive/shared/constant"
	gDto "carhive/shared/dto"
	"carhive/shared/failure"
)

type fixture struct {
	repo     *bookingMocks.MockBooking
	vehicles *vehicleMocks.MockVehicle
	events   *eventMocks.MockPublisher
	cache    *cacheMocks.MockRedisCache
	cfg      *config.Config
	svc      service.Booking
}

func newFixture(t *testing.T) *fixture {
	ctrl := gomock.NewController(t)

	cfg := &config.Config{}
	cfg.Booking.CancellationWindowHours = 24
	cfg.Booking.Insurance.BasicCost = 1000
	cfg.Booking.Insurance.PremiumCost = 2500
	cfg.Booking.Insurance.FullCost = 5000

	f := &fixture{
		repo:     bookingMocks.NewMockBooking(ctrl),
		vehicles: vehicleMocks.NewMockVehicle(ctrl),
		events:   eventMocks.NewMockPublisher(ctrl),
		cache:    cacheMocks.NewMockRedisCache(ctrl),
		cfg:      cfg,
	}

	// Cache interactions and event publishing happen on detached goroutines,
	// so they are allowed rather than asserted per test.
	f.cache.EXPECT().Get(gomock.Any(), gomock.Any(), gomock.Any()).Return(cache.Nil).AnyTimes()
	f.cache.EXPECT().Save(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	f.cache.EXPECT().Delete(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	f.cache.EXPECT().Clear(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	f.events.EXPECT().PublishBookingEvent(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	f.svc = service.New(f.repo, f.vehicles, f.events, cfg, f.cache, otelMocks.NewOtel())

	return f
}

func authedContext(userID, role string) context.Context {
	ctx := context.WithValue(context.Background(), constant.ContextKeyUserID, userID)

	return context.WithValue(ctx, constant.ContextKeyUserRole, role)
}

func futureDate(days int) string {
	return time.Now().AddDate(0, 0, days).Format(constant.DateOnlyFormat)
}

func validCreateRequest() dto.CreateBookingRequest {
	return dto.CreateBookingRequest{
		VehicleID:      "7d8f4a0e-9c31-4f6a-8f2d-3a5b6c7d8e9f",
		StartDate:      futureDate(10),
		EndDate:        futureDate(13),
		PickupLocation: "downtown office",
		ReturnLocation: "airport",
		Driver: dto.DriverRequest{
			Name:          "Jamie Doe",
			LicenseNumber: "D123456",
			LicenseExpiry: futureDate(365),
			Phone:         "+15550001111",
			Age:           30,
		},
		InsuranceTier: "basic",
	}
}

func bookableVehicle(id string) vehicleModel.Vehicle {
	return vehicleModel.Vehicle{
		ID:           id,
		Name:         "Compact Sedan",
		PricePerDay:  5000,
		Availability: true,
		Active:       true,
	}
}

func TestCreate(t *testing.T) {
	ctx := authedContext("renter-1", constant.RoleUser)

	t.Run("creates a pending booking with computed totals", func(t *testing.T) {
		f := newFixture(t)
		req := validCreateRequest()
		vehicle := bookableVehicle(req.VehicleID)

		f.vehicles.EXPECT().Get(ctx, gomock.Any()).Return(vehicle, nil)
		f.repo.EXPECT().CreatePending(ctx, gomock.Any()).
			DoAndReturn(func(_ context.Context, booking model.Booking) (vehicleModel.Vehicle, error) {
				assert.Equal(t, model.StatusPending, booking.Status)
				assert.Equal(t, 3, booking.TotalDays)
				assert.Equal(t, int64(16000), booking.TotalAmount)
				assert.Equal(t, int64(1000), booking.Insurance.Cost)
				assert.Equal(t, "renter-1", booking.RenterID)
				assert.Equal(t, 1, booking.Version)

				return vehicle, nil
			})

		res, err := f.svc.Create(ctx, req)

		require.NoError(t, err)
		assert.Equal(t, string(model.StatusPending), res.Status)
		assert.Equal(t, int64(16000), res.TotalAmount)
		assert.NotEmpty(t, res.ID)
	})

	t.Run("rejects a start date in the past", func(t *testing.T) {
		f := newFixture(t)
		req := validCreateRequest()
		req.StartDate = "2020-01-01"

		_, err := f.svc.Create(ctx, req)

		assert.True(t, failure.IsKind(err, failure.KindValidation))
	})

	t.Run("rejects a license expiring before the rental ends", func(t *testing.T) {
		f := newFixture(t)
		req := validCreateRequest()
		req.Driver.LicenseExpiry = futureDate(11)

		_, err := f.svc.Create(ctx, req)

		assert.True(t, failure.IsKind(err, failure.KindValidation))
	})

	t.Run("returns not found for an unknown vehicle", func(t *testing.T) {
		f := newFixture(t)
		req := validCreateRequest()

		f.vehicles.EXPECT().Get(ctx, gomock.Any()).Return(vehicleModel.Vehicle{}, nil)

		_, err := f.svc.Create(ctx, req)

		assert.True(t, failure.IsKind(err, failure.KindNotFound))
	})

	t.Run("rejects a delisted vehicle", func(t *testing.T) {
		f := newFixture(t)
		req := validCreateRequest()
		vehicle := bookableVehicle(req.VehicleID)
		vehicle.Availability = false

		f.vehicles.EXPECT().Get(ctx, gomock.Any()).Return(vehicle, nil)

		_, err := f.svc.Create(ctx, req)

		assert.True(t, failure.IsKind(err, failure.KindUnavailable))
	})

	t.Run("propagates an interval conflict", func(t *testing.T) {
		f := newFixture(t)
		req := validCreateRequest()
		vehicle := bookableVehicle(req.VehicleID)

		f.vehicles.EXPECT().Get(ctx, gomock.Any()).Return(vehicle, nil)
		f.repo.EXPECT().CreatePending(ctx, gomock.Any()).
			Return(vehicleModel.Vehicle{}, failure.Conflict("vehicle is already booked for the requested dates"))

		_, err := f.svc.Create(ctx, req)

		assert.True(t, failure.IsKind(err, failure.KindConflict))
	})
}

func confirmedBooking(id, renter string, start time.Time) model.Booking {
	return model.Booking{
		ID:          id,
		VehicleID:   "vehicle-1",
		RenterID:    renter,
		StartDate:   start,
		EndDate:     start.AddDate(0, 0, 3),
		TotalAmount: 16000,
		Status:      model.StatusConfirmed,
		Version:     2,
	}
}

func TestCancel(t *testing.T) {
	t.Run("renter cancels a confirmed booking outside the window", func(t *testing.T) {
		f := newFixture(t)
		ctx := authedContext("renter-1", constant.RoleUser)
		booking := confirmedBooking("booking-1", "renter-1", time.Now().AddDate(0, 0, 5))

		f.repo.EXPECT().Get(ctx, gomock.Any()).Return(booking, nil)
		f.repo.EXPECT().UpdateConditional(ctx, gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, mod map[string]any, _ gDto.FilterGroup) (bool, error) {
				assert.Equal(t, string(model.StatusCancelled), mod[model.FieldStatus])
				assert.Equal(t, booking.Version+1, mod[model.FieldVersion])
				assert.Equal(t, "change of plans", mod[model.FieldCancelReason])

				return true, nil
			})

		err := f.svc.Cancel(ctx, booking.ID, dto.CancelBookingRequest{Reason: "change of plans"})

		assert.NoError(t, err)
	})

	t.Run("renter cannot cancel inside the window", func(t *testing.T) {
		f := newFixture(t)
		ctx := authedContext("renter-1", constant.RoleUser)
		booking := confirmedBooking("booking-1", "renter-1", time.Now().Add(2*time.Hour))

		f.repo.EXPECT().Get(ctx, gomock.Any()).Return(booking, nil)

		err := f.svc.Cancel(ctx, booking.ID, dto.CancelBookingRequest{Reason: "too late"})

		assert.True(t, failure.IsKind(err, failure.KindInvalidTransition))
	})

	t.Run("renter cannot cancel a pending booking", func(t *testing.T) {
		f := newFixture(t)
		ctx := authedContext("renter-1", constant.RoleUser)
		booking := confirmedBooking("booking-1", "renter-1", time.Now().AddDate(0, 0, 5))
		booking.Status = model.StatusPending

		f.repo.EXPECT().Get(ctx, gomock.Any()).Return(booking, nil)

		err := f.svc.Cancel(ctx, booking.ID, dto.CancelBookingRequest{Reason: "nope"})

		assert.True(t, failure.IsKind(err, failure.KindInvalidTransition))
	})

	t.Run("another renter is forbidden", func(t *testing.T) {
		f := newFixture(t)
		ctx := authedContext("renter-2", constant.RoleUser)
		booking := confirmedBooking("booking-1", "renter-1", time.Now().AddDate(0, 0, 5))

		f.repo.EXPECT().Get(ctx, gomock.Any()).Return(booking, nil)

		err := f.svc.Cancel(ctx, booking.ID, dto.CancelBookingRequest{Reason: "not mine"})

		assert.True(t, failure.IsKind(err, failure.KindForbidden))
	})

	t.Run("admin bypasses the cancellation window", func(t *testing.T) {
		f := newFixture(t)
		ctx := authedContext("admin-1", constant.RoleAdmin)
		booking := confirmedBooking("booking-1", "renter-1", time.Now().Add(2*time.Hour))

		f.repo.EXPECT().Get(ctx, gomock.Any()).Return(booking, nil)
		f.repo.EXPECT().UpdateConditional(ctx, gomock.Any(), gomock.Any()).Return(true, nil)

		err := f.svc.Cancel(ctx, booking.ID, dto.CancelBookingRequest{Reason: "fraud review"})

		assert.NoError(t, err)
	})

	t.Run("lost version race yields stale state", func(t *testing.T) {
		f := newFixture(t)
		ctx := authedContext("admin-1", constant.RoleAdmin)
		booking := confirmedBooking("booking-1", "renter-1", time.Now().AddDate(0, 0, 5))

		f.repo.EXPECT().Get(ctx, gomock.Any()).Return(booking, nil)
		f.repo.EXPECT().UpdateConditional(ctx, gomock.Any(), gomock.Any()).Return(false, nil)

		err := f.svc.Cancel(ctx, booking.ID, dto.CancelBookingRequest{Reason: "race"})

		assert.True(t, failure.IsKind(err, failure.KindStaleState))
	})
}

func TestUpdateStatus(t *testing.T) {
	ctx := authedContext("admin-1", constant.RoleAdmin)

	t.Run("confirmed moves to active on pickup", func(t *testing.T) {
		f := newFixture(t)
		booking := confirmedBooking("booking-1", "renter-1", time.Now())

		f.repo.EXPECT().Get(ctx, gomock.Any()).Return(booking, nil)
		f.repo.EXPECT().UpdateConditional(ctx, gomock.Any(), gomock.Any()).Return(true, nil)

		err := f.svc.UpdateStatus(ctx, booking.ID, dto.UpdateBookingStatusRequest{Status: "active"})

		assert.NoError(t, err)
	})

	t.Run("completing stamps the completion time", func(t *testing.T) {
		f := newFixture(t)
		booking := confirmedBooking("booking-1", "renter-1", time.Now())
		booking.Status = model.StatusActive

		f.repo.EXPECT().Get(ctx, gomock.Any()).Return(booking, nil)
		f.repo.EXPECT().UpdateConditional(ctx, gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, mod map[string]any, _ gDto.FilterGroup) (bool, error) {
				assert.Contains(t, mod, model.FieldCompletedAt)

				return true, nil
			})

		err := f.svc.UpdateStatus(ctx, booking.ID, dto.UpdateBookingStatusRequest{Status: "completed"})

		assert.NoError(t, err)
	})

	t.Run("illegal transition is rejected", func(t *testing.T) {
		f := newFixture(t)
		booking := confirmedBooking("booking-1", "renter-1", time.Now())
		booking.Status = model.StatusCompleted

		f.repo.EXPECT().Get(ctx, gomock.Any()).Return(booking, nil)

		err := f.svc.UpdateStatus(ctx, booking.ID, dto.UpdateBookingStatusRequest{Status: "active"})

		assert.True(t, failure.IsKind(err, failure.KindInvalidTransition))
	})

	t.Run("unknown booking yields not found", func(t *testing.T) {
		f := newFixture(t)

		f.repo.EXPECT().Get(ctx, gomock.Any()).Return(model.Booking{}, nil)

		err := f.svc.UpdateStatus(ctx, "missing", dto.UpdateBookingStatusRequest{Status: "active"})

		assert.True(t, failure.IsKind(err, failure.KindNotFound))
	})
}

func TestPaymentCorrelation(t *testing.T) {
	ctx := context.Background()

	t.Run("confirm moves pending to confirmed", func(t *testing.T) {
		f := newFixture(t)
		booking := confirmedBooking("booking-1", "renter-1", time.Now().AddDate(0, 0, 5))
		booking.Status = model.StatusPending

		f.repo.EXPECT().Get(ctx, gomock.Any()).Return(booking, nil)
		f.repo.EXPECT().UpdateConditional(ctx, gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, mod map[string]any, _ gDto.FilterGroup) (bool, error) {
				assert.Equal(t, string(model.StatusConfirmed), mod[model.FieldStatus])

				return true, nil
			})

		assert.NoError(t, f.svc.Confirm(ctx, booking.ID))
	})

	t.Run("confirm after retry from payment_failed", func(t *testing.T) {
		f := newFixture(t)
		booking := confirmedBooking("booking-1", "renter-1", time.Now().AddDate(0, 0, 5))
		booking.Status = model.StatusPaymentFailed

		f.repo.EXPECT().Get(ctx, gomock.Any()).Return(booking, nil)
		f.repo.EXPECT().UpdateConditional(ctx, gomock.Any(), gomock.Any()).Return(true, nil)

		assert.NoError(t, f.svc.Confirm(ctx, booking.ID))
	})

	t.Run("confirm on an active booking is rejected", func(t *testing.T) {
		f := newFixture(t)
		booking := confirmedBooking("booking-1", "renter-1", time.Now().AddDate(0, 0, 5))
		booking.Status = model.StatusActive

		f.repo.EXPECT().Get(ctx, gomock.Any()).Return(booking, nil)

		err := f.svc.Confirm(ctx, booking.ID)

		assert.True(t, failure.IsKind(err, failure.KindInvalidTransition))
	})

	t.Run("payment failure moves pending to payment_failed", func(t *testing.T) {
		f := newFixture(t)
		booking := confirmedBooking("booking-1", "renter-1", time.Now().AddDate(0, 0, 5))
		booking.Status = model.StatusPending

		f.repo.EXPECT().Get(ctx, gomock.Any()).Return(booking, nil)
		f.repo.EXPECT().UpdateConditional(ctx, gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, mod map[string]any, _ gDto.FilterGroup) (bool, error) {
				assert.Equal(t, string(model.StatusPaymentFailed), mod[model.FieldStatus])

				return true, nil
			})

		assert.NoError(t, f.svc.MarkPaymentFailed(ctx, booking.ID, "card declined"))
	})

	t.Run("full refund moves the booking to refunded", func(t *testing.T) {
		f := newFixture(t)
		booking := confirmedBooking("booking-1", "renter-1", time.Now().AddDate(0, 0, 5))

		f.repo.EXPECT().Get(ctx, gomock.Any()).Return(booking, nil)
		f.repo.EXPECT().UpdateConditional(ctx, gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, mod map[string]any, _ gDto.FilterGroup) (bool, error) {
				assert.Equal(t, string(model.StatusRefunded), mod[model.FieldStatus])
				assert.Equal(t, int64(16000), mod[model.FieldRefundAmount])

				return true, nil
			})

		assert.NoError(t, f.svc.ApplyRefund(ctx, booking.ID, 16000, true))
	})

	t.Run("partial refund keeps the current status", func(t *testing.T) {
		f := newFixture(t)
		booking := confirmedBooking("booking-1", "renter-1", time.Now().AddDate(0, 0, 5))
		booking.Status = model.StatusCompleted

		f.repo.EXPECT().Get(ctx, gomock.Any()).Return(booking, nil)
		f.repo.EXPECT().UpdateConditional(ctx, gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, mod map[string]any, _ gDto.FilterGroup) (bool, error) {
				assert.Equal(t, string(model.StatusCompleted), mod[model.FieldStatus])
				assert.Equal(t, int64(4000), mod[model.FieldRefundAmount])

				return true, nil
			})

		assert.NoError(t, f.svc.ApplyRefund(ctx, booking.ID, 4000, false))
	})
}

func TestCheckAvailability(t *testing.T) {
	ctx := context.Background()

	t.Run("free interval is available", func(t *testing.T) {
		f := newFixture(t)
		vehicle := bookableVehicle("vehicle-1")

		f.vehicles.EXPECT().Get(ctx, gomock.Any()).Return(vehicle, nil)
		f.repo.EXPECT().HasConflict(ctx, "vehicle-1", gomock.Any(), gomock.Any(), "").Return(false, nil)

		available, err := f.svc.CheckAvailability(ctx, "vehicle-1", futureDate(10), futureDate(13))

		require.NoError(t, err)
		assert.True(t, available)
	})

	t.Run("overlapping interval is not available", func(t *testing.T) {
		f := newFixture(t)
		vehicle := bookableVehicle("vehicle-1")

		f.vehicles.EXPECT().Get(ctx, gomock.Any()).Return(vehicle, nil)
		f.repo.EXPECT().HasConflict(ctx, "vehicle-1", gomock.Any(), gomock.Any(), "").Return(true, nil)

		available, err := f.svc.CheckAvailability(ctx, "vehicle-1", futureDate(10), futureDate(13))

		require.NoError(t, err)
		assert.False(t, available)
	})

	t.Run("delisted vehicle is never available", func(t *testing.T) {
		f := newFixture(t)
		vehicle := bookableVehicle("vehicle-1")
		vehicle.Active = false

		f.vehicles.EXPECT().Get(ctx, gomock.Any()).Return(vehicle, nil)

		available, err := f.svc.CheckAvailability(ctx, "vehicle-1", futureDate(10), futureDate(13))

		require.NoError(t, err)
		assert.False(t, available)
	})

	t.Run("reversed interval is rejected", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.svc.CheckAvailability(ctx, "vehicle-1", futureDate(13), futureDate(10))

		assert.True(t, failure.IsKind(err, failure.KindValidation))
	})
}
