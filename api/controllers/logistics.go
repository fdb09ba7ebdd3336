package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/freshroute-backend/api/responses"
	"github.com/angelmondragon/freshroute-backend/api/validators"
	"github.com/angelmondragon/freshroute-backend/internal/transfers"
	"github.com/angelmondragon/freshroute-backend/internal/trips"
	"github.com/angelmondragon/freshroute-backend/pkg/enums"
	"github.com/angelmondragon/freshroute-backend/pkg/logger"
	"github.com/angelmondragon/freshroute-backend/pkg/types"
)

type createTransferRequest struct {
	RecordID               uuid.UUID `json:"record_id" validate:"required"`
	OriginWarehouseID      uuid.UUID `json:"origin_warehouse_id" validate:"required"`
	DestinationWarehouseID uuid.UUID `json:"destination_warehouse_id" validate:"required"`
	Reason                 string    `json:"reason,omitempty"`
	Notes                  *string   `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

type assignTruckRequest struct {
	TruckID uuid.UUID `json:"truck_id" validate:"required"`
}

type autoAssignRequest struct {
	TruckType *string `json:"truck_type,omitempty"`
}

func CreateTransfer(svc transfers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload createTransferRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input := transfers.CreateInput{
			RecordID:               payload.RecordID,
			OriginWarehouseID:      payload.OriginWarehouseID,
			DestinationWarehouseID: payload.DestinationWarehouseID,
			Notes:                  trimmed(payload.Notes),
		}
		if strings.TrimSpace(payload.Reason) != "" {
			reason, err := parseEnum("reason", payload.Reason, enums.ParseTransferReason)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			input.Reason = reason
		}
		transfer, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, transfer)
	}
}

func ListTransfers(svc transfers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := validators.ParsePageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var filter transfers.ListFilter
		if filter.Status, err = validators.ParseQueryEnum(r, "status", enums.ParseTransferStatus); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if filter.RecordID, err = validators.ParseQueryUUID(r, "record_id"); err != nil {
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

func GetTransfer(svc transfers.Service, logg *logger.Logger) http.HandlerFunc {
	return idAction(logg, "transferId", svc, transfers.Service.Get)
}

func AssignTransferTruck(svc transfers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "transferId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload assignTruckRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		transfer, err := svc.AssignTruck(r.Context(), id, payload.TruckID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, transfer)
	}
}

// AutoAssignTransferTruck dispatches the nearest available truck with a driver.
func AutoAssignTransferTruck(svc transfers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "transferId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload autoAssignRequest
		if r.ContentLength != 0 {
			if err := validators.DecodeJSONBody(r, &payload); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}
		var truckType *enums.TruckType
		if payload.TruckType != nil {
			parsed, err := parseEnum("truck_type", *payload.TruckType, enums.ParseTruckType)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			truckType = &parsed
		}
		transfer, err := svc.AutoAssign(r.Context(), id, truckType)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, transfer)
	}
}

func AdvanceTransfer(svc transfers.Service, logg *logger.Logger) http.HandlerFunc {
	return idAction(logg, "transferId", svc, transfers.Service.Advance)
}

func CancelTransfer(svc transfers.Service, logg *logger.Logger) http.HandlerFunc {
	return idAction(logg, "transferId", svc, transfers.Service.Cancel)
}

type createTripRequest struct {
	OrderID          uuid.UUID      `json:"order_id" validate:"required"`
	TruckID          uuid.UUID      `json:"truck_id" validate:"required"`
	Origin           types.Location `json:"origin"`
	Destination      types.Location `json:"destination"`
	EstimatedMinutes *int           `json:"estimated_minutes,omitempty" validate:"omitempty,min=0"`
}

type tripStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

func CreateTrip(svc trips.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload createTripRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		trip, err := svc.Create(r.Context(), trips.CreateInput{
			OrderID:          payload.OrderID,
			TruckID:          payload.TruckID,
			Origin:           payload.Origin,
			Destination:      payload.Destination,
			EstimatedMinutes: payload.EstimatedMinutes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, trip)
	}
}

func ListTrips(svc trips.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := validators.ParsePageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var filter trips.ListFilter
		if filter.Status, err = validators.ParseQueryEnum(r, "status", enums.ParseTripStatus); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if filter.OrderID, err = validators.ParseQueryUUID(r, "order_id"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if filter.TruckID, err = validators.ParseQueryUUID(r, "truck_id"); err != nil {
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

func GetTrip(svc trips.Service, logg *logger.Logger) http.HandlerFunc {
	return idAction(logg, "tripId", svc, trips.Service.Get)
}

// TransitionTrip moves a trip to the requested status.
func TransitionTrip(svc trips.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "tripId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload tripStatusRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		next, err := parseEnum("status", payload.Status, enums.ParseTripStatus)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		trip, err := svc.Transition(r.Context(), id, next)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, trip)
	}
}

func UpdateTripLocation(svc trips.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "tripId")
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
