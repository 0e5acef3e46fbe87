package repository

//go:generate go run go.uber.org/mock/mockgen -source=./repository.go -destination=../mocks/repository_mock.go -package=mocks

import (
	"context"
	"fmt"
	"strings"
	"time"

	"carhive/infras/otel"
	"carhive/infras/postgres"
	"carhive/internal/domains/booking/model"
	vehicleModel "carhive/internal/domains/vehicle/model"
	vehicleRepo "carhive/internal/domains/vehicle/repository"
	"carhive/shared/constant"
	gDto "carhive/shared/dto"
	"carhive/shared/failure"
	"carhive/shared/logger"
	gRepo "carhive/shared/repository"
)

type Booking interface {
	Get(ctx context.Context, filter gDto.FilterGroup, columns ...string) (model.Booking, error)
	GetAll(ctx context.Context, params gDto.QueryParams, filter gDto.FilterGroup, columns ...string) ([]model.Booking, error)
	Exist(ctx context.Context, filter gDto.FilterGroup) (bool, error)
	Count(ctx context.Context, filter gDto.FilterGroup) (int, error)
	Update(ctx context.Context, req map[string]any, filter gDto.FilterGroup) error
	UpdateConditional(ctx context.Context, req map[string]any, filter gDto.FilterGroup) (bool, error)
	CreatePending(ctx context.Context, booking model.Booking) (vehicleModel.Vehicle, error)
	HasConflict(ctx context.Context, vehicleID string, start, end time.Time, excludeBookingID string) (bool, error)
}

type repositoryImpl struct {
	gRepo.Repository[model.Booking]
	db       *postgres.Connection
	vehicles vehicleRepo.Vehicle
	otel     otel.Otel
}

func New(db *postgres.Connection, vehicles vehicleRepo.Vehicle, otel otel.Otel) Booking {
	return &repositoryImpl{
		Repository: gRepo.NewRepository[model.Booking](model.EntityName, model.TableName, model.FieldID, db, otel),
		db:         db,
		vehicles:   vehicles,
		otel:       otel,
	}
}

// Two rentals collide when their half-open [start, end) intervals overlap and
// the existing booking still occupies the vehicle. A booking ending on the day
// another starts is not a conflict.
var conflictQuery = fmt.Sprintf(`
SELECT EXISTS(
	SELECT 1 FROM bookings
	WHERE vehicle_id = $1
	  AND start_date < $2
	  AND end_date > $3
	  AND id <> $4
	  AND status IN ('%s')
)`, strings.Join(model.ConflictStatuses, "', '"))

func (repo *repositoryImpl) HasConflict(ctx context.Context, vehicleID string, start, end time.Time, excludeBookingID string) (bool, error) {
	ctx, scope := repo.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".booking.HasConflict")
	defer scope.End()

	scope.SetAttribute(constant.OtelQueryAttributeKey, conflictQuery)

	// A malformed interval matches no rows, which would read as "free".
	// Report it as conflicting instead.
	if !end.After(start) {
		return true, nil
	}

	var conflict bool

	err := repo.db.Read.GetContext(ctx, &conflict, conflictQuery, vehicleID, end, start, excludeBookingID)
	if err != nil {
		logger.ErrorWithStack(err)
		scope.TraceError(err)

		return false, fmt.Errorf("failed to check booking conflict: %w", err)
	}

	return conflict, nil
}

// CreatePending inserts a pending booking inside a single transaction that
// first locks the vehicle row. The lock serializes concurrent creations for
// the same vehicle, so the conflict check and the insert are atomic. Returns
// the locked vehicle so callers can verify the rate they priced against.
func (repo *repositoryImpl) CreatePending(ctx context.Context, booking model.Booking) (vehicle vehicleModel.Vehicle, err error) {
	ctx, scope := repo.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".booking.CreatePending")
	defer scope.End()
	defer scope.TraceIfError(err)

	sqltx, err := repo.db.Write.BeginTxx(ctx, nil)
	if err != nil {
		logger.ErrorWithStack(err)

		return vehicle, fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			if rollbackErr := sqltx.Rollback(); rollbackErr != nil {
				logger.ErrorWithStack(rollbackErr)
			}
		}
	}()

	vehicle, err = repo.vehicles.GetForUpdateTx(ctx, sqltx, booking.VehicleID)
	if err != nil {
		return vehicle, fmt.Errorf("failed to lock vehicle: %w", err)
	}

	if vehicle.ID == constant.Empty {
		return vehicle, failure.NotFound("vehicle not found") //nolint:wrapcheck
	}

	if !vehicle.Bookable() {
		return vehicle, failure.Unavailable("vehicle is not available for booking") //nolint:wrapcheck
	}

	var conflict bool

	err = sqltx.GetContext(ctx, &conflict, conflictQuery, booking.VehicleID, booking.EndDate, booking.StartDate, constant.Empty)
	if err != nil {
		logger.ErrorWithStack(err)

		return vehicle, fmt.Errorf("failed to check booking conflict: %w", err)
	}

	if conflict {
		return vehicle, failure.Conflict("vehicle is already booked for the requested dates") //nolint:wrapcheck
	}

	if err = repo.InsertTx(ctx, sqltx, booking); err != nil {
		return vehicle, fmt.Errorf("failed to insert booking: %w", err)
	}

	if err = sqltx.Commit(); err != nil {
		logger.ErrorWithStack(err)

		return vehicle, fmt.Errorf("failed to commit booking transaction: %w", err)
	}

	return vehicle, nil
}
