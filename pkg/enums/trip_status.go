package enums

import "fmt"

// TripStatus tracks a delivery leg.
type TripStatus string

const (
	TripStatusWaiting    TripStatus = "waiting"
	TripStatusCollecting TripStatus = "collecting"
	TripStatusLoaded     TripStatus = "loaded"
	TripStatusPaused     TripStatus = "paused"
	TripStatusDelivering TripStatus = "delivering"
	TripStatusDelivered  TripStatus = "delivered"
)

var validTripStatuses = []TripStatus{
	TripStatusWaiting,
	TripStatusCollecting,
	TripStatusLoaded,
	TripStatusPaused,
	TripStatusDelivering,
	TripStatusDelivered,
}

// Leaving paused is not in the table: it depends on where the trip was paused
// from and is checked in CanTransitionTo against the trip's paused_from.
var tripStatusTransitions = transitionTable[TripStatus]{
	TripStatusWaiting:    {TripStatusCollecting},
	TripStatusCollecting: {TripStatusLoaded, TripStatusPaused},
	TripStatusLoaded:     {TripStatusDelivering, TripStatusPaused},
	TripStatusDelivering: {TripStatusDelivered, TripStatusPaused},
}

// String implements fmt.Stringer.
func (t TripStatus) String() string {
	return string(t)
}

// IsValid reports whether the value is a known TripStatus.
func (t TripStatus) IsValid() bool {
	for _, candidate := range validTripStatuses {
		if candidate == t {
			return true
		}
	}
	return false
}

// CanTransitionTo reports whether a trip in t may move to next. pausedFrom is
// only consulted when t is paused.
func (t TripStatus) CanTransitionTo(next TripStatus, pausedFrom *TripStatus) bool {
	if t == TripStatusPaused {
		return pausedFrom != nil && *pausedFrom == next
	}
	return tripStatusTransitions.allows(t, next)
}

// Pausable reports whether a trip in t may be paused.
func (t TripStatus) Pausable() bool {
	return tripStatusTransitions.allows(t, TripStatusPaused)
}

// IsTerminal reports whether the trip is finished.
func (t TripStatus) IsTerminal() bool {
	return t == TripStatusDelivered
}

// ParseTripStatus converts raw input into a TripStatus.
func ParseTripStatus(value string) (TripStatus, error) {
	for _, candidate := range validTripStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid trip status %q", value)
}
