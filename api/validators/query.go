package validators

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/freshroute-backend/pkg/errors"
	"github.com/angelmondragon/freshroute-backend/pkg/pagination"
)

// MaxWindowDays bounds look-ahead windows such as ?days on near-expiration listings.
const MaxWindowDays = 365

func queryValue(r *http.Request, key string) string {
	return strings.TrimSpace(r.URL.Query().Get(key))
}

func invalidQuery(err error, key string) error {
	return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+key).
		WithDetails(map[string]any{"field": key})
}

// ParseQueryInt reads an integer parameter in [min, max], returning
// defaultVal when it is absent.
func ParseQueryInt(r *http.Request, key string, defaultVal, min, max int) (int, error) {
	value, err := ParseOptionalQueryInt(r, key, min, max)
	if err != nil || value == nil {
		return defaultVal, err
	}
	return *value, nil
}

// ParseOptionalQueryInt is ParseQueryInt for parameters whose absence the
// service resolves itself. It returns nil when the parameter is missing.
func ParseOptionalQueryInt(r *http.Request, key string, min, max int) (*int, error) {
	raw := queryValue(r, key)
	if raw == "" {
		return nil, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "query parameter must be numeric").
			WithDetails(map[string]any{"field": key})
	}
	if value < min || value > max {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "query parameter out of range").
			WithDetails(map[string]any{"field": key, "min": min, "max": max})
	}
	return &value, nil
}

// ParseQueryUUID reads an optional entity filter such as ?warehouse_id.
func ParseQueryUUID(r *http.Request, key string) (*uuid.UUID, error) {
	raw := queryValue(r, key)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, invalidQuery(err, key)
	}
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid "+key).
			WithDetails(map[string]any{"field": key})
	}
	return &id, nil
}

// ParseQueryEnum reads an optional status or type filter such as ?status=in_stock.
func ParseQueryEnum[T any](r *http.Request, key string, parse func(string) (T, error)) (*T, error) {
	raw := queryValue(r, key)
	if raw == "" {
		return nil, nil
	}
	value, err := parse(raw)
	if err != nil {
		return nil, invalidQuery(err, key)
	}
	return &value, nil
}

// ParsePageParams reads ?limit and ?cursor. A cursor that does not decode is
// rejected here rather than at query time.
func ParsePageParams(r *http.Request) (pagination.Params, error) {
	limit, err := ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return pagination.Params{}, err
	}
	cursor := queryValue(r, "cursor")
	if cursor != "" {
		if _, err := pagination.ParseCursor(cursor); err != nil {
			return pagination.Params{}, invalidQuery(err, "cursor")
		}
	}
	return pagination.Params{Limit: limit, Cursor: cursor}, nil
}
