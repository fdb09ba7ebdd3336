package enums

import "fmt"

// TransferStatus tracks a warehouse-to-warehouse relocation.
type TransferStatus string

const (
	TransferStatusPending   TransferStatus = "pending"
	TransferStatusAssigned  TransferStatus = "assigned"
	TransferStatusInTransit TransferStatus = "in_transit"
	TransferStatusDelivered TransferStatus = "delivered"
	TransferStatusCancelled TransferStatus = "cancelled"
)

var validTransferStatuses = []TransferStatus{
	TransferStatusPending,
	TransferStatusAssigned,
	TransferStatusInTransit,
	TransferStatusDelivered,
	TransferStatusCancelled,
}

// ActiveTransferStatuses are the statuses that hold a stock record reservation.
var ActiveTransferStatuses = []TransferStatus{
	TransferStatusPending,
	TransferStatusAssigned,
	TransferStatusInTransit,
}

var transferStatusTransitions = transitionTable[TransferStatus]{
	TransferStatusPending:   {TransferStatusAssigned, TransferStatusCancelled},
	TransferStatusAssigned:  {TransferStatusInTransit, TransferStatusCancelled},
	TransferStatusInTransit: {TransferStatusDelivered},
}

// String implements fmt.Stringer.
func (t TransferStatus) String() string {
	return string(t)
}

// IsValid reports whether the value is a known TransferStatus.
func (t TransferStatus) IsValid() bool {
	for _, candidate := range validTransferStatuses {
		if candidate == t {
			return true
		}
	}
	return false
}

// CanTransitionTo reports whether the transfer may move to next.
func (t TransferStatus) CanTransitionTo(next TransferStatus) bool {
	return transferStatusTransitions.allows(t, next)
}

// IsTerminal reports whether the transfer is finished.
func (t TransferStatus) IsTerminal() bool {
	return transferStatusTransitions.terminal(t)
}

// Next returns the single forward step taken by advance, if any.
func (t TransferStatus) Next() (TransferStatus, bool) {
	switch t {
	case TransferStatusAssigned:
		return TransferStatusInTransit, true
	case TransferStatusInTransit:
		return TransferStatusDelivered, true
	}
	return "", false
}

// ParseTransferStatus converts raw input into a TransferStatus.
func ParseTransferStatus(value string) (TransferStatus, error) {
	for _, candidate := range validTransferStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid transfer status %q", value)
}

// TransferReason explains why a transfer was requested.
type TransferReason string

const (
	TransferReasonRestock        TransferReason = "restock"
	TransferReasonRedistribution TransferReason = "redistribution"
	TransferReasonEmergency      TransferReason = "emergency"
	TransferReasonOptimization   TransferReason = "optimization"
)

var validTransferReasons = []TransferReason{
	TransferReasonRestock,
	TransferReasonRedistribution,
	TransferReasonEmergency,
	TransferReasonOptimization,
}

// IsValid reports whether the value is a known TransferReason.
func (r TransferReason) IsValid() bool {
	for _, candidate := range validTransferReasons {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseTransferReason converts raw input into a TransferReason.
func ParseTransferReason(value string) (TransferReason, error) {
	for _, candidate := range validTransferReasons {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid transfer reason %q", value)
}
