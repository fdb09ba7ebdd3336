package trucks

import (
	"math"

	"github.com/angelmondragon/freshroute-backend/pkg/db/models"
	"github.com/angelmondragon/freshroute-backend/pkg/types"
)

// Nearest picks the candidate closest to target that can carry the cargo.
// Trucks without a reported position rank after every located truck. The
// boolean is false when no candidate qualifies.
func Nearest(candidates []models.Truck, target types.Location, requiresRefrigeration bool) (models.Truck, bool) {
	best := -1
	bestDistance := math.Inf(1)
	for i, truck := range candidates {
		if !truck.Type.Carries(requiresRefrigeration) {
			continue
		}
		distance := math.MaxFloat64
		if loc, ok := truck.CurrentLocation(); ok {
			distance = loc.DistanceKm(target)
		}
		if best == -1 || distance < bestDistance {
			best = i
			bestDistance = distance
		}
	}
	if best == -1 {
		return models.Truck{}, false
	}
	return candidates[best], true
}
