package trucks

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/freshroute-backend/pkg/db/dbtest"
	"github.com/angelmondragon/freshroute-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/freshroute-backend/pkg/errors"
	"github.com/angelmondragon/freshroute-backend/pkg/logger"
	"github.com/angelmondragon/freshroute-backend/pkg/pagination"
	"github.com/angelmondragon/freshroute-backend/pkg/types"
)

func newService(t *testing.T) Service {
	t.Helper()
	svc, err := NewService(NewRepository(dbtest.Open(t)), logger.New(logger.Options{ServiceName: "test", Output: io.Discard}))
	require.NoError(t, err)
	return svc
}

func TestCreateTruckStartsAvailable(t *testing.T) {
	svc := newService(t)
	truck, err := svc.Create(context.Background(), CreateInput{Type: enums.TruckTypeRefrigerated})
	require.NoError(t, err)
	require.Equal(t, enums.TruckStatusAvailable, truck.Status)

	_, err = svc.Create(context.Background(), CreateInput{Type: "hovercraft"})
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
}

func TestUpdateLocationAndDriver(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	truck, err := svc.Create(ctx, CreateInput{Type: enums.TruckTypeNormal})
	require.NoError(t, err)

	updated, err := svc.UpdateLocation(ctx, truck.ID, types.Location{Lat: 10, Lng: 20})
	require.NoError(t, err)
	loc, ok := updated.CurrentLocation()
	require.True(t, ok)
	require.InDelta(t, 10, loc.Lat, 1e-9)

	driver := uuid.New()
	updated, err = svc.AssignDriver(ctx, truck.ID, &driver)
	require.NoError(t, err)
	require.Equal(t, driver, *updated.DriverID)

	_, err = svc.UpdateLocation(ctx, uuid.New(), types.Location{})
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))
	_, err = svc.UpdateLocation(ctx, truck.ID, types.Location{Lat: 91})
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
}

func TestListTrucksByType(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	for _, truckType := range []enums.TruckType{enums.TruckTypeNormal, enums.TruckTypeRefrigerated, enums.TruckTypeRefrigerated} {
		_, err := svc.Create(ctx, CreateInput{Type: truckType})
		require.NoError(t, err)
	}

	refrigerated := enums.TruckTypeRefrigerated
	page, err := svc.List(ctx, ListFilter{Type: &refrigerated}, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
}
