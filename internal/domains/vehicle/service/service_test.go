package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"carhive/config"
	otelMocks "carhive/infras/otel/mocks"
	vehicleMocks "carhive/internal/domains/vehicle/mocks"
	"carhive/internal/domains/vehicle/model"
	"carhive/internal/domains/vehicle/model/dto"
	"carhive/internal/domains/vehicle/service"
	"carhive/shared/cache"
	cacheMocks "carhive/shared/cache/mocks"
	"carhive/shared/constant"
	gDto "carhive/shared/dto"
	"carhive/shared/failure"
)

type fixture struct {
	repo  *vehicleMocks.MockVehicle
	cache *cacheMocks.MockRedisCache
	svc   service.Vehicle
}

func newFixture(t *testing.T) *fixture {
	ctrl := gomock.NewController(t)

	f := &fixture{
		repo:  vehicleMocks.NewMockVehicle(ctrl),
		cache: cacheMocks.NewMockRedisCache(ctrl),
	}

	f.cache.EXPECT().Get(gomock.Any(), gomock.Any(), gomock.Any()).Return(cache.Nil).AnyTimes()
	f.cache.EXPECT().Save(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	f.cache.EXPECT().Delete(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	f.cache.EXPECT().Clear(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	f.svc = service.New(f.repo, &config.Config{}, f.cache, otelMocks.NewOtel())

	return f
}

func ownerContext() context.Context {
	ctx := context.WithValue(context.Background(), constant.ContextKeyUserID, "owner-1")

	return context.WithValue(ctx, constant.ContextKeyUserRole, constant.RoleOwner)
}

func TestCreateVehicle(t *testing.T) {
	f := newFixture(t)
	ctx := ownerContext()

	f.repo.EXPECT().Insert(ctx, gomock.Any()).
		DoAndReturn(func(_ context.Context, vehicle model.Vehicle) error {
			assert.Equal(t, "Compact Sedan", vehicle.Name)
			assert.Equal(t, int64(5000), vehicle.PricePerDay)
			assert.Equal(t, "owner-1", vehicle.OwnerID)
			assert.True(t, vehicle.Bookable())
			assert.NotEmpty(t, vehicle.ID)

			return nil
		})

	err := f.svc.Create(ctx, dto.CreateVehicleRequest{Name: "Compact Sedan", PricePerDay: 5000})

	assert.NoError(t, err)
}

func TestGetVehicle(t *testing.T) {
	t.Run("returns the vehicle", func(t *testing.T) {
		f := newFixture(t)

		f.repo.EXPECT().Get(gomock.Any(), gomock.Any()).
			Return(model.Vehicle{ID: "vehicle-1", Name: "Compact Sedan", PricePerDay: 5000}, nil)

		res, err := f.svc.Get(context.Background(), "vehicle-1")

		require.NoError(t, err)
		assert.Equal(t, "vehicle-1", res.ID)
		assert.Equal(t, int64(5000), res.PricePerDay)
	})

	t.Run("unknown vehicle yields not found", func(t *testing.T) {
		f := newFixture(t)

		f.repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(model.Vehicle{}, nil)

		_, err := f.svc.Get(context.Background(), "missing")

		assert.True(t, failure.IsKind(err, failure.KindNotFound))
	})
}

func TestGetAllVehicles(t *testing.T) {
	f := newFixture(t)
	params := gDto.QueryParams{Page: 1, Limit: 10}

	f.repo.EXPECT().Count(gomock.Any(), gomock.Any()).Return(2, nil)
	f.repo.EXPECT().GetAll(gomock.Any(), params, gomock.Any()).
		Return([]model.Vehicle{{ID: "vehicle-1"}, {ID: "vehicle-2"}}, nil)

	res, err := f.svc.GetAll(context.Background(), params, gDto.FilterGroup{})

	require.NoError(t, err)
	assert.Len(t, res.Vehicles, 2)
	assert.Equal(t, 2, res.TotalData)
	assert.Equal(t, 1, res.TotalPage)
}

func TestUpdateVehicle(t *testing.T) {
	price := int64(6000)

	t.Run("updates changed fields only", func(t *testing.T) {
		f := newFixture(t)
		ctx := ownerContext()

		f.repo.EXPECT().Exist(ctx, gomock.Any()).Return(true, nil)
		f.repo.EXPECT().Update(ctx, gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, fields map[string]any, _ gDto.FilterGroup) error {
				assert.Equal(t, &price, fields[model.FieldPricePerDay])
				assert.NotContains(t, fields, model.FieldName)

				return nil
			})

		err := f.svc.Update(ctx, dto.UpdateVehicleRequest{PricePerDay: &price}, "vehicle-1")

		assert.NoError(t, err)
	})

	t.Run("empty update is rejected", func(t *testing.T) {
		f := newFixture(t)

		err := f.svc.Update(ownerContext(), dto.UpdateVehicleRequest{}, "vehicle-1")

		assert.True(t, failure.IsKind(err, failure.KindValidation))
	})

	t.Run("unknown vehicle yields not found", func(t *testing.T) {
		f := newFixture(t)
		ctx := ownerContext()

		f.repo.EXPECT().Exist(ctx, gomock.Any()).Return(false, nil)

		err := f.svc.Update(ctx, dto.UpdateVehicleRequest{PricePerDay: &price}, "missing")

		assert.True(t, failure.IsKind(err, failure.KindNotFound))
	})
}
