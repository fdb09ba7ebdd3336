package enums

import "fmt"

// StockStatus tracks where a stock record is in its lifecycle.
type StockStatus string

const (
	StockStatusInStock   StockStatus = "in_stock"
	StockStatusSold      StockStatus = "sold"
	StockStatusDiscarded StockStatus = "discarded"
	StockStatusDonated   StockStatus = "donated"
)

var validStockStatuses = []StockStatus{
	StockStatusInStock,
	StockStatusSold,
	StockStatusDiscarded,
	StockStatusDonated,
}

var stockStatusTransitions = transitionTable[StockStatus]{
	StockStatusInStock:   {StockStatusSold, StockStatusDiscarded, StockStatusDonated},
	StockStatusDiscarded: {StockStatusDonated},
}

// String implements fmt.Stringer.
func (s StockStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known StockStatus.
func (s StockStatus) IsValid() bool {
	for _, candidate := range validStockStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// CanTransitionTo reports whether a caller may move a record from s to next.
// Staying in the same state is always allowed.
func (s StockStatus) CanTransitionTo(next StockStatus) bool {
	if s == next {
		return true
	}
	return stockStatusTransitions.allows(s, next)
}

// IsTerminal reports whether no further caller-driven transition is possible.
func (s StockStatus) IsTerminal() bool {
	return stockStatusTransitions.terminal(s)
}

// ClearsWarehouse reports whether records in this status no longer occupy a warehouse.
func (s StockStatus) ClearsWarehouse() bool {
	return s != StockStatusInStock
}

// ParseStockStatus converts raw input into a StockStatus.
func ParseStockStatus(value string) (StockStatus, error) {
	for _, candidate := range validStockStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid stock status %q", value)
}

// Quality is the grading assigned to a stock record.
type Quality string

const (
	QualityGood         Quality = "good"
	QualitySubOptimal   Quality = "sub_optimal"
	QualityBad          Quality = "bad"
	QualityUnclassified Quality = "unclassified"
)

var validQualities = []Quality{
	QualityGood,
	QualitySubOptimal,
	QualityBad,
	QualityUnclassified,
}

// String implements fmt.Stringer.
func (q Quality) String() string {
	return string(q)
}

// IsValid reports whether the value is a known Quality.
func (q Quality) IsValid() bool {
	for _, candidate := range validQualities {
		if candidate == q {
			return true
		}
	}
	return false
}

// ParseQuality converts raw input into a Quality.
func ParseQuality(value string) (Quality, error) {
	for _, candidate := range validQualities {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid quality %q", value)
}

// Classification is the raw verdict returned by the quality classification service.
type Classification string

const (
	ClassificationGood         Classification = "good"
	ClassificationSubOptimal   Classification = "sub_optimal"
	ClassificationBad          Classification = "bad"
	ClassificationWrongProduct Classification = "wrong_product"
	ClassificationError        Classification = "error"
)

var validClassifications = []Classification{
	ClassificationGood,
	ClassificationSubOptimal,
	ClassificationBad,
	ClassificationWrongProduct,
	ClassificationError,
}

// IsValid reports whether the value is a known Classification.
func (c Classification) IsValid() bool {
	for _, candidate := range validClassifications {
		if candidate == c {
			return true
		}
	}
	return false
}

// Quality maps the verdict to a stock quality. The boolean is false for
// verdicts that must reject the registration outright.
func (c Classification) Quality() (Quality, bool) {
	switch c {
	case ClassificationGood:
		return QualityGood, true
	case ClassificationSubOptimal:
		return QualitySubOptimal, true
	case ClassificationBad:
		return QualityBad, true
	}
	return "", false
}

// ParseClassification converts raw input into a Classification.
func ParseClassification(value string) (Classification, error) {
	for _, candidate := range validClassifications {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid classification %q", value)
}
