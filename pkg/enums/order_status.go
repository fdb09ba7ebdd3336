package enums

import "fmt"

// OrderStatus tracks a buyer order from reservation to completion.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusInTransit OrderStatus = "in_transit"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusConfirmed,
	OrderStatusInTransit,
	OrderStatusCompleted,
	OrderStatusCancelled,
}

var orderStatusTransitions = transitionTable[OrderStatus]{
	OrderStatusPending:   {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed: {OrderStatusInTransit, OrderStatusCompleted, OrderStatusCancelled},
	OrderStatusInTransit: {OrderStatusCompleted},
}

// String implements fmt.Stringer.
func (o OrderStatus) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OrderStatus.
func (o OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == o {
			return true
		}
	}
	return false
}

// CanTransitionTo reports whether the order may move to next.
func (o OrderStatus) CanTransitionTo(next OrderStatus) bool {
	return orderStatusTransitions.allows(o, next)
}

// IsTerminal reports whether the order is finished.
func (o OrderStatus) IsTerminal() bool {
	return orderStatusTransitions.terminal(o)
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
