package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/freshroute-backend/api/responses"
	"github.com/angelmondragon/freshroute-backend/api/validators"
	"github.com/angelmondragon/freshroute-backend/internal/orders"
	"github.com/angelmondragon/freshroute-backend/internal/quotes"
	"github.com/angelmondragon/freshroute-backend/pkg/enums"
	"github.com/angelmondragon/freshroute-backend/pkg/logger"
)

type placeOrderRequest struct {
	BuyerID   uuid.UUID   `json:"buyer_id" validate:"required"`
	RecordIDs []uuid.UUID `json:"record_ids" validate:"required,min=1,max=100"`
}

// PlaceOrder reserves the requested records for the buyer, all or nothing.
func PlaceOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload placeOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.PlaceOrder(r.Context(), orders.PlaceOrderInput{
			BuyerID:   payload.BuyerID,
			RecordIDs: payload.RecordIDs,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

func ListOrders(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := validators.ParsePageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var filter orders.ListFilter
		if filter.Status, err = validators.ParseQueryEnum(r, "status", enums.ParseOrderStatus); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if filter.BuyerID, err = validators.ParseQueryUUID(r, "buyer_id"); err != nil {
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

func GetOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return idAction(logg, "orderId", svc, orders.Service.Get)
}

func ConfirmOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return idAction(logg, "orderId", svc, orders.Service.Confirm)
}

// CancelOrder cancels the order and releases its reservations.
func CancelOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return idAction(logg, "orderId", svc, orders.Service.Cancel)
}

type submitQuoteRequest struct {
	SupplierID uuid.UUID `json:"supplier_id" validate:"required"`
	ProductID  uuid.UUID `json:"product_id" validate:"required"`
}

type quoteDecisionRequest struct {
	Approve *bool `json:"approve" validate:"required"`
}

func SubmitQuote(svc quotes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload submitQuoteRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		quote, err := svc.Submit(r.Context(), payload.SupplierID, payload.ProductID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, quote)
	}
}

func ListQuotes(svc quotes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := validators.ParsePageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var filter quotes.ListFilter
		if filter.Status, err = validators.ParseQueryEnum(r, "status", enums.ParseQuoteStatus); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if filter.SupplierID, err = validators.ParseQueryUUID(r, "supplier_id"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if filter.ProductID, err = validators.ParseQueryUUID(r, "product_id"); err != nil {
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

func GetQuote(svc quotes.Service, logg *logger.Logger) http.HandlerFunc {
	return idAction(logg, "quoteId", svc, quotes.Service.Get)
}

// DecideQuote approves or rejects a pending quote.
func DecideQuote(svc quotes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "quoteId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload quoteDecisionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		quote, err := svc.Decide(r.Context(), id, *payload.Approve)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, quote)
	}
}
