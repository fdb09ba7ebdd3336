package transfers

import (
	"math"

	"github.com/angelmondragon/freshroute-backend/pkg/types"
)

const (
	shortBreakAfterHours = 4.5
	shortBreakHours      = 0.75
	overnightAfterHours  = 9.0
	overnightRestHours   = 11.0
	handlingBufferShare  = 0.3
	maxHandlingHours     = 3.0
)

// EstimateMinutes returns the expected door-to-door duration between two
// warehouses: straight-line driving at speedKPH, the legal driving breaks, and
// a loading buffer of 30% of the drive capped at three hours.
func EstimateMinutes(origin, destination types.Location, speedKPH float64) int {
	if speedKPH <= 0 {
		return 0
	}
	travel := origin.DistanceKm(destination) / speedKPH

	breaks := 0.0
	if travel > shortBreakAfterHours {
		breaks += shortBreakHours
	}
	if travel > overnightAfterHours {
		breaks += overnightRestHours
	}
	buffer := math.Min(maxHandlingHours, travel*handlingBufferShare)

	return int(math.Round((travel + breaks + buffer) * 60))
}
