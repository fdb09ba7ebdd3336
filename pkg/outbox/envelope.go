package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ActorRef identifies who produced the event. Actor ids are opaque; the
// system keeps no user table.
type ActorRef struct {
	ID   uuid.UUID `json:"id"`
	Role string    `json:"role,omitempty"`
}

// PayloadEnvelope is the stable payload structure stored in outbox_events.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}

// StatusChanged is the data block of every *_status_changed event.
type StatusChanged struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// StockDiscarded is emitted when a lifecycle rule discards a record.
type StockDiscarded struct {
	Rule        string     `json:"rule"`
	WarehouseID *uuid.UUID `json:"warehouseId,omitempty"`
}

// StockRegistered is emitted when a supplier registers a new record.
type StockRegistered struct {
	ProductID   uuid.UUID  `json:"productId"`
	SupplierID  uuid.UUID  `json:"supplierId"`
	WarehouseID *uuid.UUID `json:"warehouseId,omitempty"`
	Status      string     `json:"status"`
	Quality     string     `json:"quality"`
}

// OrderCreated is emitted when an order reserves its records.
type OrderCreated struct {
	BuyerID     uuid.UUID   `json:"buyerId"`
	RecordIDs   []uuid.UUID `json:"recordIds"`
	TotalAmount string      `json:"totalAmount"`
}

// QuoteDecided is emitted when a pending quote is approved or rejected.
type QuoteDecided struct {
	SupplierID uuid.UUID `json:"supplierId"`
	ProductID  uuid.UUID `json:"productId"`
	Status     string    `json:"status"`
}
