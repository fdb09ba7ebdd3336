package controllers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/freshroute-backend/api/responses"
	"github.com/angelmondragon/freshroute-backend/api/validators"
	"github.com/angelmondragon/freshroute-backend/internal/stock"
	"github.com/angelmondragon/freshroute-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/freshroute-backend/pkg/errors"
	"github.com/angelmondragon/freshroute-backend/pkg/logger"
)

type registerStockRequest struct {
	SupplierID     uuid.UUID       `json:"supplier_id" validate:"required"`
	ProductID      uuid.UUID       `json:"product_id" validate:"required"`
	WarehouseID    *uuid.UUID      `json:"warehouse_id,omitempty"`
	QuantityKg     decimal.Decimal `json:"quantity_kg" validate:"gt=0"`
	Classification string          `json:"classification" validate:"required"`
}

type updateStockRequest struct {
	Quality     *string          `json:"quality,omitempty"`
	Status      *string          `json:"status,omitempty"`
	WarehouseID *uuid.UUID       `json:"warehouse_id,omitempty"`
	QuantityKg  *decimal.Decimal `json:"quantity_kg,omitempty" validate:"omitempty,gt=0"`
}

// RegisterStock records an inbound delivery from a supplier.
func RegisterStock(svc stock.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload registerStockRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		classification, err := parseEnum("classification", payload.Classification, enums.ParseClassification)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		record, err := svc.Register(r.Context(), stock.RegisterInput{
			SupplierID:     payload.SupplierID,
			ProductID:      payload.ProductID,
			WarehouseID:    payload.WarehouseID,
			QuantityKg:     payload.QuantityKg,
			Classification: classification,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, record)
	}
}

func ListStock(svc stock.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := validators.ParsePageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var filter stock.ListFilter
		if filter.Status, err = validators.ParseQueryEnum(r, "status", enums.ParseStockStatus); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		for key, dest := range map[string]**uuid.UUID{
			"warehouse_id": &filter.WarehouseID,
			"product_id":   &filter.ProductID,
			"supplier_id":  &filter.SupplierID,
		} {
			if *dest, err = validators.ParseQueryUUID(r, key); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}
		page, err := svc.List(r.Context(), filter, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

// AvailableStock lists records a buyer can order, priced as of now.
func AvailableStock(svc stock.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		records, err := svc.Available(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, records)
	}
}

// NearExpirationStock lists records expiring within ?days (default from config).
func NearExpirationStock(svc stock.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		days, err := validators.ParseOptionalQueryInt(r, "days", 0, validators.MaxWindowDays)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		records, err := svc.NearExpiration(r.Context(), days)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, records)
	}
}

func GetStock(svc stock.Service, logg *logger.Logger) http.HandlerFunc {
	return idAction(logg, "recordId", svc, stock.Service.Get)
}

// UpdateStock proposes field changes; lifecycle rules may override them.
func UpdateStock(svc stock.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "recordId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload updateStockRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input := stock.UpdateInput{WarehouseID: payload.WarehouseID, QuantityKg: payload.QuantityKg}
		if payload.Quality != nil {
			quality, err := parseEnum("quality", *payload.Quality, enums.ParseQuality)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			input.Quality = &quality
		}
		if payload.Status != nil {
			status, err := parseEnum("status", *payload.Status, enums.ParseStockStatus)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			input.Status = &status
		}
		if input == (stock.UpdateInput{}) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "no fields to update"))
			return
		}
		record, err := svc.Update(r.Context(), id, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, record)
	}
}

func DonateStock(svc stock.Service, logg *logger.Logger) http.HandlerFunc {
	return idAction(logg, "recordId", svc, stock.Service.Donate)
}

func DiscardStock(svc stock.Service, logg *logger.Logger) http.HandlerFunc {
	return idAction(logg, "recordId", svc, stock.Service.Discard)
}
