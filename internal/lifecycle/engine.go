// Package lifecycle enforces the stock record state machine. Every write to a
// record's status, quality or warehouse goes through Engine.Apply.
package lifecycle

import (
	"time"

	"github.com/angelmondragon/freshroute-backend/pkg/db/models"
	"github.com/angelmondragon/freshroute-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/freshroute-backend/pkg/errors"
)

// Rule names the lifecycle rule that decided a record's final fields.
type Rule string

const (
	RuleNone    Rule = "none"
	RuleQuality Rule = "quality"
	RuleExpiry  Rule = "expiry"
)

// Decision is the outcome of evaluating a proposed record.
type Decision struct {
	Record models.StockRecord
	Rule   Rule
	// Overridden is set when a rule replaced fields the caller proposed.
	Overridden bool
}

// Discarded reports whether the decision moved the record into discarded.
func (d Decision) Discarded(prev *models.StockRecord) bool {
	if d.Record.Status != enums.StockStatusDiscarded {
		return false
	}
	return prev == nil || prev.Status != enums.StockStatusDiscarded
}

type overrideRecorder interface {
	IncOverride(rule string)
}

// Engine evaluates proposed stock record writes.
type Engine struct {
	metrics overrideRecorder
}

// New builds an engine. metrics may be nil.
func New(metrics overrideRecorder) *Engine {
	return &Engine{metrics: metrics}
}

// Apply validates the caller's transition from prev (nil on insert) and then
// applies the quality and expiry overrides. A discarded record is always graded
// bad. product may be nil, in which case expiry cannot be determined and is
// skipped.
func (e *Engine) Apply(prev *models.StockRecord, proposed models.StockRecord, product *models.Product, now time.Time) (Decision, error) {
	if !proposed.Status.IsValid() {
		return Decision{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid stock status").
			WithDetails(map[string]any{"status": proposed.Status})
	}
	if !proposed.Quality.IsValid() {
		return Decision{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid stock quality").
			WithDetails(map[string]any{"quality": proposed.Quality})
	}
	if prev != nil && !prev.Status.CanTransitionTo(proposed.Status) {
		return Decision{}, pkgerrors.New(pkgerrors.CodeInvalidTransition, "stock status transition not allowed").
			WithDetails(map[string]any{"from": prev.Status, "to": proposed.Status})
	}

	out := proposed
	out.ExpiresAt = expiresAt(product, out.RegistrationDate)
	decision := Decision{Rule: RuleNone}

	// a discarded record keeps its bad grade when it is handed over for donation
	donatingDiscard := prev != nil && prev.Status == enums.StockStatusDiscarded &&
		out.Status == enums.StockStatusDonated

	switch {
	case donatingDiscard:
		out.Quality = enums.QualityBad
	case out.Quality == enums.QualityBad:
		decision.Rule = RuleQuality
		decision.Overridden = out.Status != enums.StockStatusDiscarded || out.WarehouseID != nil
		out.Status = enums.StockStatusDiscarded
	case out.Status != enums.StockStatusDiscarded && expired(out.ExpiresAt, now):
		decision.Rule = RuleExpiry
		decision.Overridden = true
		out.Quality = enums.QualityBad
		out.Status = enums.StockStatusDiscarded
	}
	if out.Status == enums.StockStatusDiscarded {
		out.Quality = enums.QualityBad
	}

	if out.Status.ClearsWarehouse() {
		out.WarehouseID = nil
	}
	if out.Status == enums.StockStatusSold && out.SaleDate == nil {
		saleDate := now.UTC()
		out.SaleDate = &saleDate
	}
	// records that left stock cannot stay reserved
	if out.Status != enums.StockStatusInStock {
		out.ReservedTransferID = nil
		if out.Status != enums.StockStatusSold {
			out.ReservedOrderID = nil
		}
	}

	if decision.Overridden && e != nil && e.metrics != nil {
		e.metrics.IncOverride(string(decision.Rule))
	}
	decision.Record = out
	return decision, nil
}

func expiresAt(product *models.Product, registered *time.Time) *time.Time {
	if product == nil || registered == nil {
		return nil
	}
	at, ok := product.ExpiryFrom(registered.UTC())
	if !ok {
		return nil
	}
	return &at
}

func expired(expiresAt *time.Time, now time.Time) bool {
	return expiresAt != nil && !expiresAt.After(now)
}
