package enums

import "fmt"

// CardChargeStatus records the outcome of a fallback card attempt.
type CardChargeStatus string

const (
	CardChargeSucceeded CardChargeStatus = "succeeded"
	CardChargeFailed    CardChargeStatus = "failed"
)

// String implements fmt.Stringer.
func (c CardChargeStatus) String() string {
	return string(c)
}

// IsValid reports whether the value is known.
func (c CardChargeStatus) IsValid() bool {
	return c == CardChargeSucceeded || c == CardChargeFailed
}

// ParseCardChargeStatus converts raw input into a CardChargeStatus.
func ParseCardChargeStatus(value string) (CardChargeStatus, error) {
	switch CardChargeStatus(value) {
	case CardChargeSucceeded, CardChargeFailed:
		return CardChargeStatus(value), nil
	}
	return "", fmt.Errorf("invalid card charge status %q", value)
}
