package enums

import "fmt"

// OutboxAggregateType names the entity an outbox event is about.
type OutboxAggregateType string

const (
	AggregateStockRecord OutboxAggregateType = "stock_record"
	AggregateOrder       OutboxAggregateType = "order"
	AggregateTransfer    OutboxAggregateType = "warehouse_transfer"
	AggregateTrip        OutboxAggregateType = "trip"
	AggregateQuote       OutboxAggregateType = "quote"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateStockRecord,
	AggregateOrder,
	AggregateTransfer,
	AggregateTrip,
	AggregateQuote,
}

// IsValid reports whether the value is a known aggregate type.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType names a domain event.
type OutboxEventType string

const (
	EventStockRegistered       OutboxEventType = "stock_registered"
	EventStockStatusChanged    OutboxEventType = "stock_status_changed"
	EventStockDiscarded        OutboxEventType = "stock_discarded"
	EventOrderCreated          OutboxEventType = "order_created"
	EventOrderStatusChanged    OutboxEventType = "order_status_changed"
	EventTransferStatusChanged OutboxEventType = "transfer_status_changed"
	EventTripStatusChanged     OutboxEventType = "trip_status_changed"
	EventQuoteDecided          OutboxEventType = "quote_decided"
)

var validEventTypes = []OutboxEventType{
	EventStockRegistered,
	EventStockStatusChanged,
	EventStockDiscarded,
	EventOrderCreated,
	EventOrderStatusChanged,
	EventTransferStatusChanged,
	EventTripStatusChanged,
	EventQuoteDecided,
}

// IsValid reports whether the value is a known event type.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
