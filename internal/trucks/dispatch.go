package trucks

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/freshroute-backend/pkg/db/models"
	"github.com/angelmondragon/freshroute-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/freshroute-backend/pkg/errors"
)

// Dispatch claims the truck for a load inside tx. The truck must exist, be
// able to carry the load and still be available when the claim runs.
func Dispatch(ctx context.Context, tx *gorm.DB, truckID uuid.UUID, requiresRefrigeration bool) (*models.Truck, error) {
	repo := NewRepository(tx)
	truck, err := repo.FindByID(ctx, truckID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeReferenceNotFound, "truck not found").
				WithDetails(map[string]any{"truck_id": truckID})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load truck")
	}
	if !truck.Type.Carries(requiresRefrigeration) {
		return nil, pkgerrors.New(pkgerrors.CodeIncompatibleTruck, "load requires a refrigerated truck").
			WithDetails(map[string]any{"truck_id": truckID, "type": truck.Type})
	}
	claimed, err := repo.Claim(ctx, truckID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: claim truck")
	}
	if !claimed {
		return nil, pkgerrors.New(pkgerrors.CodeTruckBusy, "truck is not available").
			WithDetails(map[string]any{"truck_id": truckID})
	}
	truck.Status = enums.TruckStatusInService
	return truck, nil
}

// ReleaseTx returns the truck to the pool inside tx.
func ReleaseTx(ctx context.Context, tx *gorm.DB, truckID uuid.UUID) error {
	if err := NewRepository(tx).Release(ctx, truckID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: release truck")
	}
	return nil
}
