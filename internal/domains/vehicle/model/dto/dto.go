package dto

import (
	"github.com/google/uuid"

	"carhive/internal/domains/vehicle/model"
	"carhive/shared"
	gDto "carhive/shared/dto"
	gModel "carhive/shared/model"
	"carhive/shared/timezone"
)

type CreateVehicleRequest struct {
	Name        string `json:"name"          validate:"required,max=100"`
	PricePerDay int64  `json:"price_per_day" validate:"required,gte=0"`
}

func (c *CreateVehicleRequest) ToModel(user string) model.Vehicle {
	return model.Vehicle{
		ID:           uuid.NewString(),
		Name:         c.Name,
		PricePerDay:  c.PricePerDay,
		Availability: true,
		Active:       true,
		OwnerID:      user,
		Metadata: gModel.Metadata{
			CreatedAt:  timezone.Now(),
			ModifiedAt: timezone.Now(),
			CreatedBy:  user,
			ModifiedBy: user,
		},
	}
}

type UpdateVehicleRequest struct {
	Name         string `db:"name"          json:"name"          validate:"omitempty,max=100"`
	PricePerDay  *int64 `db:"price_per_day" json:"price_per_day" validate:"omitempty,gte=0"`
	Availability *bool  `db:"availability"  json:"availability"  validate:"omitempty"`
	Active       *bool  `db:"active"        json:"active"        validate:"omitempty"`
}

type VehicleResponse struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	PricePerDay  int64  `json:"price_per_day"`
	Availability bool   `json:"availability"`
	Active       bool   `json:"active"`
	OwnerID      string `json:"owner_id"`
	gDto.Metadata
}

func (r *VehicleResponse) FromModel(model model.Vehicle) {
	r.ID = model.ID
	r.Name = model.Name
	r.PricePerDay = model.PricePerDay
	r.Availability = model.Availability
	r.Active = model.Active
	r.OwnerID = model.OwnerID
	r.Metadata.FromModel(model.Metadata)
}

type GetVehiclesResponse struct {
	Vehicles  []VehicleResponse `json:"vehicles"`
	TotalPage int               `json:"total_page"`
	TotalData int               `json:"total_data"`
}

func (r *GetVehiclesResponse) FromModels(models []model.Vehicle, totalData, limit int) {
	r.TotalData = totalData
	r.TotalPage = shared.CalculateTotalPage(totalData, limit)

	r.Vehicles = make([]VehicleResponse, len(models))
	for i, mod := range models {
		r.Vehicles[i].FromModel(mod)
	}
}
