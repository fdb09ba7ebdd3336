package errors

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// ErrorDump flattens an error chain for structured logs.
type ErrorDump struct {
	TopMessage string `json:"top_message"`
	Code       Code   `json:"code,omitempty"`

	Chain []string `json:"chain,omitempty"`

	// Entities holds the *_id and *_ids details of a typed error.
	Entities map[string]any `json:"entities,omitempty"`
	// Rule names the schema rule behind a constraint violation, when known.
	Rule string `json:"rule,omitempty"`

	PGCode       string `json:"pg_code,omitempty"`
	PGConstraint string `json:"pg_constraint,omitempty"`
	PGTable      string `json:"pg_table,omitempty"`
	PGColumn     string `json:"pg_column,omitempty"`
	PGDetail     string `json:"pg_detail,omitempty"`
	PGMessage    string `json:"pg_message,omitempty"`
}

// schemaRules maps constraint names, and the fragments sqlite reports in
// place of names, to the rule they enforce.
var schemaRules = []struct {
	match string
	rule  string
}{
	{"ck_stock_records_bad_quality_status", "bad stock must be discarded or donated"},
	{"stock_records_check", "discarded stock holds no warehouse"},
	{"ux_warehouse_transfers_active_record", "one active transfer per stock record"},
	{"warehouse_transfers.record_id", "one active transfer per stock record"},
	{"ux_order_items_order_record", "a record appears once per order"},
	{"order_items.order_id, order_items.record_id", "a record appears once per order"},
	{"fk_stock_records_reserved_order", "reservations reference an existing order"},
	{"fk_stock_records_reserved_transfer", "reservations reference an existing transfer"},
}

func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}

	d := ErrorDump{
		TopMessage: err.Error(),
	}

	if te := As(err); te != nil {
		d.Code = te.Code()
		d.Entities = entityDetails(te.Details())
	}

	for e := err; e != nil; e = errors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
	}

	var pgxErr *pgconn.PgError
	var pqErr *pq.Error
	switch {
	case errors.As(err, &pgxErr):
		d.PGCode = pgxErr.Code
		d.PGConstraint = pgxErr.ConstraintName
		d.PGTable = pgxErr.TableName
		d.PGColumn = pgxErr.ColumnName
		d.PGDetail = pgxErr.Detail
		d.PGMessage = pgxErr.Message
	case errors.As(err, &pqErr):
		d.PGCode = string(pqErr.Code)
		d.PGConstraint = pqErr.Constraint
		d.PGTable = pqErr.Table
		d.PGColumn = pqErr.Column
		d.PGDetail = pqErr.Detail
		d.PGMessage = pqErr.Message
	}

	d.Rule = ruleFor(d.PGConstraint, d.TopMessage)
	return d
}

func entityDetails(details any) map[string]any {
	fields, ok := details.(map[string]any)
	if !ok {
		return nil
	}
	var out map[string]any
	for key, value := range fields {
		if !strings.HasSuffix(key, "_id") && !strings.HasSuffix(key, "_ids") {
			continue
		}
		if out == nil {
			out = map[string]any{}
		}
		out[key] = value
	}
	return out
}

func ruleFor(constraint, message string) string {
	for _, candidate := range schemaRules {
		if constraint != "" && constraint == candidate.match {
			return candidate.rule
		}
	}
	// sqlite reports the failing columns in the message instead of a name
	if constraint == "" && strings.Contains(message, "constraint failed") {
		for _, candidate := range schemaRules {
			if strings.Contains(message, candidate.match) {
				return candidate.rule
			}
		}
	}
	return ""
}
