package repository

//go:generate go run go.uber.org/mock/mockgen -source=./repository.go -destination=../mocks/repository_mock.go -package=mocks

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"carhive/infras/otel"
	"carhive/infras/postgres"
	"carhive/internal/domains/vehicle/model"
	"carhive/shared/constant"
	gDto "carhive/shared/dto"
	gRepo "carhive/shared/repository"
)

type Vehicle interface {
	Insert(ctx context.Context, model model.Vehicle) error
	Get(ctx context.Context, filter gDto.FilterGroup, columns ...string) (model.Vehicle, error)
	GetAll(ctx context.Context, params gDto.QueryParams, filter gDto.FilterGroup, columns ...string) ([]model.Vehicle, error)
	Exist(ctx context.Context, filter gDto.FilterGroup) (bool, error)
	Count(ctx context.Context, filter gDto.FilterGroup) (int, error)
	Update(ctx context.Context, req map[string]any, filter gDto.FilterGroup) error
	GetForUpdateTx(ctx context.Context, sqltx *sqlx.Tx, id string) (model.Vehicle, error)
}

type repositoryImpl struct {
	gRepo.Repository[model.Vehicle]
	db   *postgres.Connection
	otel otel.Otel
}

func New(db *postgres.Connection, otel otel.Otel) Vehicle {
	return &repositoryImpl{
		Repository: gRepo.NewRepository[model.Vehicle](model.EntityName, model.TableName, model.FieldID, db, otel),
		db:         db,
		otel:       otel,
	}
}

const getForUpdateQuery = `
SELECT id, name, price_per_day, availability, active, owner_id, created_at, modified_at, created_by, modified_by
FROM vehicles
WHERE id = $1
FOR UPDATE`

// GetForUpdateTx loads a vehicle inside the given transaction with a row lock,
// serializing concurrent booking creations for the same vehicle. Returns the
// zero model when the vehicle does not exist.
func (repo *repositoryImpl) GetForUpdateTx(ctx context.Context, sqltx *sqlx.Tx, id string) (model.Vehicle, error) {
	ctx, scope := repo.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".vehicle.GetForUpdateTx")
	defer scope.End()

	var vehicle model.Vehicle

	err := sqltx.GetContext(ctx, &vehicle, getForUpdateQuery, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Vehicle{}, nil
		}

		scope.TraceError(err)

		return model.Vehicle{}, err //nolint:wrapcheck
	}

	return vehicle, nil
}
