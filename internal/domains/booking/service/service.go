package service

//go:generate go run go.uber.org/mock/mockgen -source=./service.go -destination=./mocks/service_mock.go -package=mocks

import (
	"context"
	"fmt"
	"maps"
	"time"

	"github.com/rs/zerolog/log"

	"carhive/config"
	"carhive/infras/otel"
	"carhive/internal/domains/booking/model"
	"carhive/internal/domains/booking/model/dto"
	"carhive/internal/domains/booking/pricing"
	"carhive/internal/domains/booking/repository"
	vehicleModel "carhive/internal/domains/vehicle/model"
	vehicleRepo "carhive/internal/domains/vehicle/repository"
	"carhive/internal/events"
	"carhive/shared"
	"carhive/shared/cache"
	"carhive/shared/constant"
	gDto "carhive/shared/dto"
	"carhive/shared/failure"
	"carhive/shared/timezone"
)

const (
	cacheGetBooking    = "booking:get"
	cacheGetAllBooking = "booking:gets"
	cacheCountBooking  = "booking:count"
)

type Booking interface {
	Create(ctx context.Context, req dto.CreateBookingRequest) (dto.BookingResponse, error)
	GetAll(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) (dto.GetBookingsResponse, error)
	Count(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) (int, error)
	Get(ctx context.Context, id string) (dto.BookingResponse, error)
	Cancel(ctx context.Context, id string, req dto.CancelBookingRequest) error
	UpdateStatus(ctx context.Context, id string, req dto.UpdateBookingStatusRequest) error
	CheckAvailability(ctx context.Context, vehicleID, startDate, endDate string) (bool, error)

	// Payment correlation entry points. These are driven by verified gateway
	// events, never directly by request handlers.
	Confirm(ctx context.Context, id string) error
	MarkPaymentFailed(ctx context.Context, id, reason string) error
	ApplyRefund(ctx context.Context, id string, refundedAmount int64, full bool) error
}

type serviceImpl struct {
	repo     repository.Booking
	vehicles vehicleRepo.Vehicle
	events   events.Publisher
	cfg      *config.Config
	cache    cache.RedisCache
	otel     otel.Otel
}

func New(repo repository.Booking, vehicles vehicleRepo.Vehicle, publisher events.Publisher, cfg *config.Config, cache cache.RedisCache, otel otel.Otel) Booking {
	return &serviceImpl{
		repo:     repo,
		vehicles: vehicles,
		events:   publisher,
		cfg:      cfg,
		cache:    cache,
		otel:     otel,
	}
}

func (s *serviceImpl) Create(ctx context.Context, req dto.CreateBookingRequest) (res dto.BookingResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".booking.Create")
	defer scope.End()
	defer scope.TraceIfError(err)

	renter, _ := ctx.Value(constant.ContextKeyUserID).(string)

	start, end, err := req.Interval()
	if err != nil {
		return res, err
	}

	if start.Before(today()) {
		return res, failure.BadRequestFromString("start date cannot be in the past") //nolint:wrapcheck
	}

	expiry, err := req.LicenseExpiry()
	if err != nil {
		return res, err
	}

	if expiry.Before(end) {
		return res, failure.BadRequestFromString("driver license expires before the rental ends") //nolint:wrapcheck
	}

	vehicle, err := s.vehicles.Get(ctx, shared.FilterByID(req.VehicleID, vehicleModel.FieldID, vehicleModel.TableName))
	if err != nil {
		log.Error().Err(err).Msg("failed to get vehicle for booking")

		return res, fmt.Errorf("failed to get vehicle for booking: %w", err)
	}

	if vehicle.ID == constant.Empty {
		return res, failure.NotFound("vehicle not found") //nolint:wrapcheck
	}

	if !vehicle.Bookable() {
		return res, failure.Unavailable("vehicle is not available for booking") //nolint:wrapcheck
	}

	quote, err := pricing.Price(vehicle.PricePerDay, start, end, s.cfg.InsuranceCost(req.InsuranceTier))
	if err != nil {
		return res, err
	}

	booking := req.ToModel(renter, start, end, expiry, quote)

	lockedVehicle, err := s.repo.CreatePending(ctx, booking)
	if err != nil {
		log.Error().Err(err).Str("vehicleID", req.VehicleID).Msg("failed to create booking")

		return res, fmt.Errorf("failed to create booking: %w", err)
	}

	s.publishEvent(ctx, booking, model.StatusPending, lockedVehicle.Name, constant.Empty)
	s.invalidateListCaches(ctx)

	res.FromModel(booking)

	return res, nil
}

func (s *serviceImpl) GetAll(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) (res dto.GetBookingsResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".booking.GetAll")
	defer scope.End()
	defer scope.TraceIfError(err)

	cacheKey := shared.BuildCacheKeyWithQuery(cacheGetAllBooking, req, filter)

	err = s.cache.Get(ctx, cacheKey, &res)
	if err == nil {
		return res, nil
	}

	total, err := s.Count(ctx, req, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to count bookings")

		return res, fmt.Errorf("failed to count bookings: %w", err)
	}

	models, err := s.repo.GetAll(ctx, req, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to get bookings")

		return res, fmt.Errorf("failed to get bookings: %w", err)
	}

	res.FromModels(models, total, req.Limit)

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Save(c, cacheKey, res, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Msg("failed to save bookings to cache")
		}
	}()

	return res, nil
}

func (s *serviceImpl) Count(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) (res int, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".booking.Count")
	defer scope.End()
	defer scope.TraceIfError(err)

	cacheKey := shared.BuildCacheKeyWithQuery(cacheCountBooking, req, filter)

	err = s.cache.Get(ctx, cacheKey, &res)
	if err == nil {
		return res, nil
	}

	res, err = s.repo.Count(ctx, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to count bookings")

		return res, fmt.Errorf("failed to count bookings: %w", err)
	}

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Save(c, cacheKey, res, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Msg("failed to save booking count to cache")
		}
	}()

	return res, nil
}

func (s *serviceImpl) Get(ctx context.Context, id string) (res dto.BookingResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".booking.Get")
	defer scope.End()
	defer scope.TraceIfError(err)

	cacheKey := shared.BuildCacheKey(cacheGetBooking, id)

	err = s.cache.Get(ctx, cacheKey, &res)
	if err == nil {
		if err = s.authorizeRead(ctx, res.RenterID); err != nil {
			return dto.BookingResponse{}, err
		}

		return res, nil
	}

	booking, err := s.load(ctx, id)
	if err != nil {
		return res, err
	}

	if err = s.authorizeRead(ctx, booking.RenterID); err != nil {
		return res, err
	}

	res.FromModel(booking)

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Save(c, cacheKey, res, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Msg("failed to save booking to cache")
		}
	}()

	return res, nil
}

// Cancel applies the renter-side cancellation guard unless the caller is an
// admin. Admins may cancel from any status the state machine allows.
func (s *serviceImpl) Cancel(ctx context.Context, id string, req dto.CancelBookingRequest) (err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".booking.Cancel")
	defer scope.End()
	defer scope.TraceIfError(err)

	booking, err := s.load(ctx, id)
	if err != nil {
		return err
	}

	actor, _ := ctx.Value(constant.ContextKeyUserID).(string)
	role, _ := ctx.Value(constant.ContextKeyUserRole).(string)

	if role != constant.RoleAdmin {
		if booking.RenterID != actor {
			return failure.ForbiddenError //nolint:wrapcheck
		}

		if booking.Status != model.StatusConfirmed {
			return failure.InvalidTransition(string(booking.Status), string(model.StatusCancelled)) //nolint:wrapcheck
		}

		if !booking.CanRenterCancel(timezone.Now(), s.cfg.Booking.CancellationWindowHours) {
			return failure.InvalidTransition(string(booking.Status), string(model.StatusCancelled)) //nolint:wrapcheck
		}
	}

	now := timezone.Now()

	err = s.transition(ctx, booking, model.StatusCancelled, map[string]any{
		model.FieldCancelReason: req.Reason,
		model.FieldCancelledAt:  now,
	}, actor)
	if err != nil {
		return err
	}

	s.publishEvent(ctx, booking, model.StatusCancelled, constant.Empty, req.Reason)

	return nil
}

// UpdateStatus is the admin-facing transition endpoint used for operational
// moves such as pickup (active) and return (completed). Payment-driven
// statuses still pass through the same state machine guard.
func (s *serviceImpl) UpdateStatus(ctx context.Context, id string, req dto.UpdateBookingStatusRequest) (err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".booking.UpdateStatus")
	defer scope.End()
	defer scope.TraceIfError(err)

	booking, err := s.load(ctx, id)
	if err != nil {
		return err
	}

	actor, _ := ctx.Value(constant.ContextKeyUserID).(string)
	target := model.Status(req.Status)

	extra := map[string]any{}
	if target == model.StatusCompleted {
		extra[model.FieldCompletedAt] = timezone.Now()
	}

	if target == model.StatusCancelled {
		extra[model.FieldCancelledAt] = timezone.Now()
	}

	if err = s.transition(ctx, booking, target, extra, actor); err != nil {
		return err
	}

	s.publishEvent(ctx, booking, target, constant.Empty, constant.Empty)

	return nil
}

// CheckAvailability reports whether the vehicle is free for the requested
// interval. The answer is advisory: creation re-checks under the vehicle lock.
func (s *serviceImpl) CheckAvailability(ctx context.Context, vehicleID, startDate, endDate string) (available bool, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".booking.CheckAvailability")
	defer scope.End()
	defer scope.TraceIfError(err)

	start, err := timezone.Parse(constant.DateOnlyFormat, startDate)
	if err != nil {
		return false, failure.BadRequestFromString("invalid start date") //nolint:wrapcheck
	}

	end, err := timezone.Parse(constant.DateOnlyFormat, endDate)
	if err != nil {
		return false, failure.BadRequestFromString("invalid end date") //nolint:wrapcheck
	}

	if !end.After(start) {
		return false, failure.BadRequestFromString("end date must be after start date") //nolint:wrapcheck
	}

	vehicle, err := s.vehicles.Get(ctx, shared.FilterByID(vehicleID, vehicleModel.FieldID, vehicleModel.TableName))
	if err != nil {
		log.Error().Err(err).Msg("failed to get vehicle for availability check")

		return false, fmt.Errorf("failed to get vehicle for availability check: %w", err)
	}

	if vehicle.ID == constant.Empty {
		return false, failure.NotFound("vehicle not found") //nolint:wrapcheck
	}

	if !vehicle.Bookable() {
		return false, nil
	}

	conflict, err := s.repo.HasConflict(ctx, vehicleID, start, end, constant.Empty)
	if err != nil {
		log.Error().Err(err).Msg("failed to check availability")

		return false, fmt.Errorf("failed to check availability: %w", err)
	}

	return !conflict, nil
}

func (s *serviceImpl) Confirm(ctx context.Context, id string) (err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".booking.Confirm")
	defer scope.End()
	defer scope.TraceIfError(err)

	booking, err := s.load(ctx, id)
	if err != nil {
		return err
	}

	if err = s.transition(ctx, booking, model.StatusConfirmed, nil, constant.SystemActor); err != nil {
		return err
	}

	s.publishEvent(ctx, booking, model.StatusConfirmed, constant.Empty, constant.Empty)

	return nil
}

func (s *serviceImpl) MarkPaymentFailed(ctx context.Context, id, reason string) (err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".booking.MarkPaymentFailed")
	defer scope.End()
	defer scope.TraceIfError(err)

	booking, err := s.load(ctx, id)
	if err != nil {
		return err
	}

	if err = s.transition(ctx, booking, model.StatusPaymentFailed, nil, constant.SystemActor); err != nil {
		return err
	}

	s.publishEvent(ctx, booking, model.StatusPaymentFailed, constant.Empty, reason)

	return nil
}

// ApplyRefund records the cumulative refunded amount. A full refund also moves
// the booking to refunded, which releases the vehicle dates.
func (s *serviceImpl) ApplyRefund(ctx context.Context, id string, refundedAmount int64, full bool) (err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".booking.ApplyRefund")
	defer scope.End()
	defer scope.TraceIfError(err)

	booking, err := s.load(ctx, id)
	if err != nil {
		return err
	}

	extra := map[string]any{
		model.FieldRefundAmount: refundedAmount,
	}

	if full {
		return s.transition(ctx, booking, model.StatusRefunded, extra, constant.SystemActor)
	}

	// Partial refunds keep the current status; only the amount and version move.
	return s.transition(ctx, booking, booking.Status, extra, constant.SystemActor)
}

// transition applies a guarded, versioned status change. The conditional
// update on the loaded version linearizes concurrent transitions: the loser
// of a race gets a stale-state failure and must reload.
func (s *serviceImpl) transition(ctx context.Context, booking model.Booking, target model.Status, extra map[string]any, actor string) error {
	if target != booking.Status && !booking.Status.CanTransitionTo(target) {
		return failure.InvalidTransition(string(booking.Status), string(target)) //nolint:wrapcheck
	}

	mod := map[string]any{
		model.FieldStatus:        string(target),
		model.FieldVersion:       booking.Version + 1,
		constant.FieldModifiedAt: timezone.Now(),
		constant.FieldModifiedBy: actor,
	}
	maps.Copy(mod, extra)

	filter := gDto.FilterGroup{
		Filters: []any{
			gDto.Filter{Field: model.FieldID, Value: booking.ID, Operator: gDto.FilterOperatorEq, Table: model.TableName},
			gDto.Filter{Field: model.FieldVersion, Value: booking.Version, Operator: gDto.FilterOperatorEq, Table: model.TableName},
		},
	}

	updated, err := s.repo.UpdateConditional(ctx, mod, filter)
	if err != nil {
		log.Error().Err(err).Str("bookingID", booking.ID).Msg("failed to update booking status")

		return fmt.Errorf("failed to update booking status: %w", err)
	}

	if !updated {
		return failure.StaleState(model.EntityName) //nolint:wrapcheck
	}

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Delete(c, shared.BuildCacheKey(cacheGetBooking, booking.ID)); err != nil {
			log.Error().Err(err).Msg("failed to delete booking from cache")
		}

		shared.InvalidateCaches(c, s.cache, cacheGetAllBooking)
		shared.InvalidateCaches(c, s.cache, cacheCountBooking)
	}()

	return nil
}

func (s *serviceImpl) load(ctx context.Context, id string) (model.Booking, error) {
	booking, err := s.repo.Get(ctx, shared.FilterByID(id, model.FieldID, model.TableName))
	if err != nil {
		log.Error().Err(err).Msg("failed to get booking")

		return booking, fmt.Errorf("failed to get booking: %w", err)
	}

	if booking.ID == constant.Empty {
		return booking, failure.NotFound("booking not found") //nolint:wrapcheck
	}

	return booking, nil
}

func (s *serviceImpl) authorizeRead(ctx context.Context, renterID string) error {
	role, _ := ctx.Value(constant.ContextKeyUserRole).(string)
	if role == constant.RoleAdmin {
		return nil
	}

	actor, _ := ctx.Value(constant.ContextKeyUserID).(string)
	if renterID != actor {
		return failure.ForbiddenError //nolint:wrapcheck
	}

	return nil
}

func (s *serviceImpl) publishEvent(ctx context.Context, booking model.Booking, status model.Status, vehicleName, reason string) {
	go func() {
		c := context.WithoutCancel(ctx)

		_ = s.events.PublishBookingEvent(c, events.BookingEvent{
			BookingID:   booking.ID,
			VehicleID:   booking.VehicleID,
			VehicleName: vehicleName,
			RenterID:    booking.RenterID,
			Status:      string(status),
			TotalAmount: booking.TotalAmount,
			Reason:      reason,
			OccurredAt:  timezone.Now(),
		})
	}()
}

func (s *serviceImpl) invalidateListCaches(ctx context.Context) {
	go func() {
		c := context.WithoutCancel(ctx)

		shared.InvalidateCaches(c, s.cache, cacheGetAllBooking)
		shared.InvalidateCaches(c, s.cache, cacheCountBooking)
	}()
}

func today() time.Time {
	now := timezone.Now()

	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}
