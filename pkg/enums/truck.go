package enums

import "fmt"

// TruckStatus reports whether a truck can take a new assignment.
type TruckStatus string

const (
	TruckStatusAvailable TruckStatus = "available"
	TruckStatusInService TruckStatus = "in_service"
)

var validTruckStatuses = []TruckStatus{
	TruckStatusAvailable,
	TruckStatusInService,
}

// String implements fmt.Stringer.
func (t TruckStatus) String() string {
	return string(t)
}

// IsValid reports whether the value is a known TruckStatus.
func (t TruckStatus) IsValid() bool {
	for _, candidate := range validTruckStatuses {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseTruckStatus converts raw input into a TruckStatus.
func ParseTruckStatus(value string) (TruckStatus, error) {
	for _, candidate := range validTruckStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid truck status %q", value)
}

// TruckType describes the cargo a truck can carry.
type TruckType string

const (
	TruckTypeRefrigerated TruckType = "refrigerated"
	TruckTypeNormal       TruckType = "normal"
)

var validTruckTypes = []TruckType{
	TruckTypeRefrigerated,
	TruckTypeNormal,
}

// String implements fmt.Stringer.
func (t TruckType) String() string {
	return string(t)
}

// IsValid reports whether the value is a known TruckType.
func (t TruckType) IsValid() bool {
	for _, candidate := range validTruckTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// Carries reports whether a truck of this type can move goods with the given
// refrigeration requirement.
func (t TruckType) Carries(requiresRefrigeration bool) bool {
	if !requiresRefrigeration {
		return true
	}
	return t == TruckTypeRefrigerated
}

// ParseTruckType converts raw input into a TruckType.
func ParseTruckType(value string) (TruckType, error) {
	for _, candidate := range validTruckTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid truck type %q", value)
}
