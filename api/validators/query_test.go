package validators

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/freshroute-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/freshroute-backend/pkg/errors"
	"github.com/angelmondragon/freshroute-backend/pkg/pagination"
)

func queryRequest(query string) *http.Request {
	return httptest.NewRequest(http.MethodGet, "/api/v1/stock?"+query, nil)
}

func TestParseOptionalQueryIntWindow(t *testing.T) {
	days, err := ParseOptionalQueryInt(queryRequest(""), "days", 0, MaxWindowDays)
	require.NoError(t, err)
	require.Nil(t, days)

	days, err = ParseOptionalQueryInt(queryRequest("days=0"), "days", 0, MaxWindowDays)
	require.NoError(t, err)
	require.Equal(t, 0, *days)

	_, err = ParseOptionalQueryInt(queryRequest("days=400"), "days", 0, MaxWindowDays)
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))

	_, err = ParseOptionalQueryInt(queryRequest("days=soon"), "days", 0, MaxWindowDays)
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
}

func TestParseQueryUUIDFilter(t *testing.T) {
	id := uuid.New()
	parsed, err := ParseQueryUUID(queryRequest("warehouse_id="+id.String()), "warehouse_id")
	require.NoError(t, err)
	require.Equal(t, id, *parsed)

	parsed, err = ParseQueryUUID(queryRequest(""), "warehouse_id")
	require.NoError(t, err)
	require.Nil(t, parsed)

	for _, raw := range []string{"not-a-uuid", uuid.Nil.String()} {
		_, err = ParseQueryUUID(queryRequest("warehouse_id="+raw), "warehouse_id")
		require.Truef(t, pkgerrors.Is(err, pkgerrors.CodeValidation), "raw %q", raw)
	}
}

func TestParseQueryEnumStatusFilter(t *testing.T) {
	status, err := ParseQueryEnum(queryRequest("status=in_stock"), "status", enums.ParseStockStatus)
	require.NoError(t, err)
	require.Equal(t, enums.StockStatusInStock, *status)

	_, err = ParseQueryEnum(queryRequest("status=lost"), "status", enums.ParseStockStatus)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())
	require.Equal(t, "status", typed.Details().(map[string]any)["field"])
}

func TestParsePageParams(t *testing.T) {
	params, err := ParsePageParams(queryRequest(""))
	require.NoError(t, err)
	require.Equal(t, pagination.DefaultLimit, params.Limit)
	require.Empty(t, params.Cursor)

	cursor := pagination.EncodeCursor(pagination.Cursor{CreatedAt: time.Now(), ID: uuid.New()})
	params, err = ParsePageParams(queryRequest("limit=5&cursor=" + cursor))
	require.NoError(t, err)
	require.Equal(t, 5, params.Limit)
	require.Equal(t, cursor, params.Cursor)

	_, err = ParsePageParams(queryRequest("cursor=%25%25garbage"))
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))

	_, err = ParsePageParams(queryRequest("limit=1000"))
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
}
