package enums

import "fmt"

// QuoteStatus tracks a supplier's offer through administrator review.
type QuoteStatus string

const (
	QuoteStatusPending  QuoteStatus = "pending"
	QuoteStatusApproved QuoteStatus = "approved"
	QuoteStatusRejected QuoteStatus = "rejected"
)

var validQuoteStatuses = []QuoteStatus{
	QuoteStatusPending,
	QuoteStatusApproved,
	QuoteStatusRejected,
}

var quoteStatusTransitions = transitionTable[QuoteStatus]{
	QuoteStatusPending: {QuoteStatusApproved, QuoteStatusRejected},
}

// String implements fmt.Stringer.
func (q QuoteStatus) String() string {
	return string(q)
}

// IsValid reports whether the value is a known QuoteStatus.
func (q QuoteStatus) IsValid() bool {
	for _, candidate := range validQuoteStatuses {
		if candidate == q {
			return true
		}
	}
	return false
}

// CanTransitionTo reports whether the quote may move to next.
func (q QuoteStatus) CanTransitionTo(next QuoteStatus) bool {
	return quoteStatusTransitions.allows(q, next)
}

// ParseQuoteStatus converts raw input into a QuoteStatus.
func ParseQuoteStatus(value string) (QuoteStatus, error) {
	for _, candidate := range validQuoteStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid quote status %q", value)
}
