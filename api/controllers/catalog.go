package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/freshroute-backend/api/responses"
	"github.com/angelmondragon/freshroute-backend/api/validators"
	"github.com/angelmondragon/freshroute-backend/internal/products"
	"github.com/angelmondragon/freshroute-backend/internal/trucks"
	"github.com/angelmondragon/freshroute-backend/internal/warehouses"
	"github.com/angelmondragon/freshroute-backend/pkg/enums"
	"github.com/angelmondragon/freshroute-backend/pkg/logger"
	"github.com/angelmondragon/freshroute-backend/pkg/types"
)

type createProductRequest struct {
	Name                  string          `json:"name" validate:"required,max=200"`
	BasePrice             decimal.Decimal `json:"base_price" validate:"gte=0"`
	DiscountPercentage    int             `json:"discount_percentage" validate:"min=0,max=100"`
	RequiresRefrigeration bool            `json:"requires_refrigeration"`
	ShelfLifeDays         *int            `json:"shelf_life_days,omitempty" validate:"omitempty,min=0"`
	DeadlineToDiscount    *int            `json:"deadline_to_discount,omitempty" validate:"omitempty,min=0"`
}

type updateProductRequest struct {
	Name                  *string          `json:"name,omitempty" validate:"omitempty,max=200"`
	BasePrice             *decimal.Decimal `json:"base_price,omitempty" validate:"omitempty,gte=0"`
	DiscountPercentage    *int             `json:"discount_percentage,omitempty" validate:"omitempty,min=0,max=100"`
	RequiresRefrigeration *bool            `json:"requires_refrigeration,omitempty"`
	ShelfLifeDays         *int             `json:"shelf_life_days,omitempty" validate:"omitempty,min=0"`
	DeadlineToDiscount    *int             `json:"deadline_to_discount,omitempty" validate:"omitempty,min=0"`
}

// CreateProduct adds a catalog entry.
func CreateProduct(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload createProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		product, err := svc.Create(r.Context(), products.CreateInput{
			Name:                  validators.SanitizeString(payload.Name, 200),
			BasePrice:             payload.BasePrice,
			DiscountPercentage:    payload.DiscountPercentage,
			RequiresRefrigeration: payload.RequiresRefrigeration,
			ShelfLifeDays:         payload.ShelfLifeDays,
			DeadlineToDiscount:    payload.DeadlineToDiscount,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, product)
	}
}

func ListProducts(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := validators.ParsePageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := svc.List(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func GetProduct(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		product, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

// UpdateProduct applies partial catalog edits. Existing stock picks up the
// new shelf life on its next write.
func UpdateProduct(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload updateProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if payload.Name != nil {
			name := validators.SanitizeString(*payload.Name, 200)
			payload.Name = &name
		}
		product, err := svc.Update(r.Context(), id, products.UpdateInput{
			Name:                  payload.Name,
			BasePrice:             payload.BasePrice,
			DiscountPercentage:    payload.DiscountPercentage,
			RequiresRefrigeration: payload.RequiresRefrigeration,
			ShelfLifeDays:         payload.ShelfLifeDays,
			DeadlineToDiscount:    payload.DeadlineToDiscount,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

type warehouseRequest struct {
	Name                   *string         `json:"name,omitempty" validate:"omitempty,max=200"`
	Location               *types.Location `json:"location,omitempty"`
	NormalCapacityKg       *int            `json:"normal_capacity_kg,omitempty" validate:"omitempty,min=0"`
	RefrigeratedCapacityKg *int            `json:"refrigerated_capacity_kg,omitempty" validate:"omitempty,min=0"`
}

func CreateWarehouse(svc warehouses.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload warehouseRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input := warehouses.CreateInput{
			NormalCapacityKg:       payload.NormalCapacityKg,
			RefrigeratedCapacityKg: payload.RefrigeratedCapacityKg,
		}
		if payload.Name != nil {
			input.Name = validators.SanitizeString(*payload.Name, 200)
		}
		if payload.Location != nil {
			input.Location = *payload.Location
		}
		warehouse, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, warehouse)
	}
}

func ListWarehouses(svc warehouses.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := validators.ParsePageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := svc.List(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func GetWarehouse(svc warehouses.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "warehouseId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		warehouse, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, warehouse)
	}
}

func UpdateWarehouse(svc warehouses.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "warehouseId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload warehouseRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		warehouse, err := svc.Update(r.Context(), id, warehouses.UpdateInput{
			Name:                   payload.Name,
			Location:               payload.Location,
			NormalCapacityKg:       payload.NormalCapacityKg,
			RefrigeratedCapacityKg: payload.RefrigeratedCapacityKg,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, warehouse)
	}
}

// WarehouseUtilization reports stored weight against the advisory capacity.
func WarehouseUtilization(svc warehouses.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "warehouseId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		usage, err := svc.Utilization(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, usage)
	}
}

type createTruckRequest struct {
	Type           string          `json:"type" validate:"required"`
	DriverID       *uuid.UUID      `json:"driver_id,omitempty"`
	LoadCapacityKg *int            `json:"load_capacity_kg,omitempty" validate:"omitempty,min=0"`
	Location       *types.Location `json:"location,omitempty"`
}

type truckDriverRequest struct {
	DriverID *uuid.UUID `json:"driver_id"`
}

func CreateTruck(svc trucks.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload createTruckRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		truckType, err := parseEnum("type", payload.Type, enums.ParseTruckType)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		truck, err := svc.Create(r.Context(), trucks.CreateInput{
			Type:           truckType,
			DriverID:       payload.DriverID,
			LoadCapacityKg: payload.LoadCapacityKg,
			Location:       payload.Location,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, truck)
	}
}

func ListTrucks(svc trucks.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := validators.ParsePageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var filter trucks.ListFilter
		if filter.Status, err = validators.ParseQueryEnum(r, "status", enums.ParseTruckStatus); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if filter.Type, err = validators.ParseQueryEnum(r, "type", enums.ParseTruckType); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := svc.List(r.Context(), filter, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func GetTruck(svc trucks.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "truckId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		truck, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, truck)
	}
}

func UpdateTruckLocation(svc trucks.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "truckId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var loc types.Location
		if err := validators.DecodeJSONBody(r, &loc); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		truck, err := svc.UpdateLocation(r.Context(), id, loc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, truck)
	}
}

// AssignTruckDriver sets or clears (null driver_id) the truck's driver.
func AssignTruckDriver(svc trucks.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "truckId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload truckDriverRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		truck, err := svc.AssignDriver(r.Context(), id, payload.DriverID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, truck)
	}
}

func trimmed(value *string) *string {
	if value == nil {
		return nil
	}
	out := strings.TrimSpace(*value)
	if out == "" {
		return nil
	}
	return &out
}
