package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	otelMocks "carhive/infras/otel/mocks"
	"carhive/infras/postgres"
	"carhive/internal/domains/booking/model"
	"carhive/internal/domains/booking/repository"
	vehicleMocks "carhive/internal/domains/vehicle/mocks"
	vehicleModel "carhive/internal/domains/vehicle/model"
	"carhive/shared/failure"
)

// conflictPattern pins the overlap predicate: half-open comparison with
// strict inequalities, the exclusion slot, and only occupying statuses.
const conflictPattern = `(?s)SELECT EXISTS.+vehicle_id = \$1.+start_date < \$2.+end_date > \$3.+id <> \$4.+status IN \('pending', 'confirmed', 'active'\)`

type repoFixture struct {
	mock     sqlmock.Sqlmock
	vehicles *vehicleMocks.MockVehicle
	repo     repository.Booking
}

func newRepoFixture(t *testing.T) *repoFixture {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	t.Cleanup(func() { db.Close() })

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	ctrl := gomock.NewController(t)

	f := &repoFixture{
		mock:     mock,
		vehicles: vehicleMocks.NewMockVehicle(ctrl),
	}

	f.repo = repository.New(&postgres.Connection{Read: sqlxDB, Write: sqlxDB}, f.vehicles, otelMocks.NewOtel())

	return f
}

func existsRows(conflict bool) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"exists"}).AddRow(conflict)
}

func bookableVehicle() vehicleModel.Vehicle {
	return vehicleModel.Vehicle{
		ID:           "vehicle-1",
		Name:         "Avanza",
		PricePerDay:  5000,
		Availability: true,
		Active:       true,
		OwnerID:      "owner-1",
	}
}

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

func TestHasConflict(t *testing.T) {
	ctx := context.Background()
	start := day(2025, time.March, 1)
	end := day(2025, time.March, 4)

	t.Run("overlapping interval reports a conflict", func(t *testing.T) {
		f := newRepoFixture(t)

		// The interval end binds to the existing start_date comparison and
		// vice versa; a swap would turn every overlap invisible.
		f.mock.ExpectQuery(conflictPattern).
			WithArgs("vehicle-1", end, start, "").
			WillReturnRows(existsRows(true))

		conflict, err := f.repo.HasConflict(ctx, "vehicle-1", start, end, "")

		require.NoError(t, err)
		assert.True(t, conflict)
		assert.NoError(t, f.mock.ExpectationsWereMet())
	})

	t.Run("free interval passes the exclusion through", func(t *testing.T) {
		f := newRepoFixture(t)

		f.mock.ExpectQuery(conflictPattern).
			WithArgs("vehicle-1", end, start, "booking-7").
			WillReturnRows(existsRows(false))

		conflict, err := f.repo.HasConflict(ctx, "vehicle-1", start, end, "booking-7")

		require.NoError(t, err)
		assert.False(t, conflict)
		assert.NoError(t, f.mock.ExpectationsWereMet())
	})

	t.Run("empty interval is conservatively conflicting", func(t *testing.T) {
		f := newRepoFixture(t)

		conflict, err := f.repo.HasConflict(ctx, "vehicle-1", start, start, "")

		require.NoError(t, err)
		assert.True(t, conflict)
		assert.NoError(t, f.mock.ExpectationsWereMet())
	})

	t.Run("inverted interval is conservatively conflicting", func(t *testing.T) {
		f := newRepoFixture(t)

		conflict, err := f.repo.HasConflict(ctx, "vehicle-1", end, start, "")

		require.NoError(t, err)
		assert.True(t, conflict)
		assert.NoError(t, f.mock.ExpectationsWereMet())
	})
}

func TestCreatePending(t *testing.T) {
	ctx := context.Background()
	start := day(2025, time.March, 1)
	end := day(2025, time.March, 4)

	pendingBooking := func() model.Booking {
		return model.Booking{
			ID:        "booking-1",
			VehicleID: "vehicle-1",
			RenterID:  "renter-1",
			StartDate: start,
			EndDate:   end,
			Status:    model.StatusPending,
		}
	}

	t.Run("locks the vehicle then checks and inserts in one transaction", func(t *testing.T) {
		f := newRepoFixture(t)

		f.mock.ExpectBegin()
		f.vehicles.EXPECT().GetForUpdateTx(gomock.Any(), gomock.Any(), "vehicle-1").Return(bookableVehicle(), nil)
		f.mock.ExpectQuery(conflictPattern).
			WithArgs("vehicle-1", end, start, "").
			WillReturnRows(existsRows(false))
		f.mock.ExpectExec("INSERT INTO bookings").WillReturnResult(sqlmock.NewResult(0, 1))
		f.mock.ExpectCommit()

		vehicle, err := f.repo.CreatePending(ctx, pendingBooking())

		require.NoError(t, err)
		assert.Equal(t, "vehicle-1", vehicle.ID)
		assert.NoError(t, f.mock.ExpectationsWereMet())
	})

	t.Run("conflicting dates roll back without inserting", func(t *testing.T) {
		f := newRepoFixture(t)

		f.mock.ExpectBegin()
		f.vehicles.EXPECT().GetForUpdateTx(gomock.Any(), gomock.Any(), "vehicle-1").Return(bookableVehicle(), nil)
		f.mock.ExpectQuery(conflictPattern).
			WithArgs("vehicle-1", end, start, "").
			WillReturnRows(existsRows(true))
		f.mock.ExpectRollback()

		_, err := f.repo.CreatePending(ctx, pendingBooking())

		assert.True(t, failure.IsKind(err, failure.KindConflict))
		assert.NoError(t, f.mock.ExpectationsWereMet())
	})

	t.Run("missing vehicle rolls back with not found", func(t *testing.T) {
		f := newRepoFixture(t)

		f.mock.ExpectBegin()
		f.vehicles.EXPECT().GetForUpdateTx(gomock.Any(), gomock.Any(), "vehicle-1").Return(vehicleModel.Vehicle{}, nil)
		f.mock.ExpectRollback()

		_, err := f.repo.CreatePending(ctx, pendingBooking())

		assert.True(t, failure.IsKind(err, failure.KindNotFound))
		assert.NoError(t, f.mock.ExpectationsWereMet())
	})

	t.Run("delisted vehicle rolls back with unavailable", func(t *testing.T) {
		f := newRepoFixture(t)
		delisted := bookableVehicle()
		delisted.Availability = false

		f.mock.ExpectBegin()
		f.vehicles.EXPECT().GetForUpdateTx(gomock.Any(), gomock.Any(), "vehicle-1").Return(delisted, nil)
		f.mock.ExpectRollback()

		_, err := f.repo.CreatePending(ctx, pendingBooking())

		assert.True(t, failure.IsKind(err, failure.KindUnavailable))
		assert.NoError(t, f.mock.ExpectationsWereMet())
	})
}
