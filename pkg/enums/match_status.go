package enums

import "fmt"

// MatchStatus tracks how a payment event was resolved to an installment.
type MatchStatus string

const (
	MatchStatusPending       MatchStatus = "pending"
	MatchStatusAutoMatched   MatchStatus = "auto_matched"
	MatchStatusManualMatched MatchStatus = "manual_matched"
	MatchStatusUnmatched     MatchStatus = "unmatched"
	MatchStatusDisputed      MatchStatus = "disputed"
)

var validMatchStatuses = []MatchStatus{
	MatchStatusPending,
	MatchStatusAutoMatched,
	MatchStatusManualMatched,
	MatchStatusUnmatched,
	MatchStatusDisputed,
}

// String implements fmt.Stringer.
func (m MatchStatus) String() string {
	return string(m)
}

// IsValid reports whether the value is known.
func (m MatchStatus) IsValid() bool {
	for _, candidate := range validMatchStatuses {
		if candidate == m {
			return true
		}
	}
	return false
}

// Immutable reports whether the event can no longer be edited or deleted.
// Manually matched events are disputed instead of removed.
func (m MatchStatus) Immutable() bool {
	return m == MatchStatusManualMatched
}

// ParseMatchStatus converts raw input into a MatchStatus.
func ParseMatchStatus(value string) (MatchStatus, error) {
	for _, candidate := range validMatchStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid match status %q", value)
}
