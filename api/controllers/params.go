package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/freshroute-backend/api/responses"
	pkgerrors "github.com/angelmondragon/freshroute-backend/pkg/errors"
	"github.com/angelmondragon/freshroute-backend/pkg/logger"
)

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, name))
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+name).
			WithDetails(map[string]any{"field": name})
	}
	return id, nil
}

// parseEnum converts a required body field, reporting the field on failure.
func parseEnum[T any](field, raw string, parse func(string) (T, error)) (T, error) {
	value, err := parse(strings.TrimSpace(raw))
	if err != nil {
		var zero T
		return zero, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+field).
			WithDetails(map[string]any{"field": field})
	}
	return value, nil
}

// idAction serves routes whose only input is the entity id in the path.
// action is a method expression such as orders.Service.Get.
func idAction[S, T any](logg *logger.Logger, param string, svc S, action func(S, context.Context, uuid.UUID) (T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, param)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := action(svc, r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
