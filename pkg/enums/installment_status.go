package enums

import "fmt"

// InstallmentStatus tracks where an installment is in its lifecycle.
type InstallmentStatus string

const (
	InstallmentStatusScheduled InstallmentStatus = "scheduled"
	InstallmentStatusLate      InstallmentStatus = "late"
	InstallmentStatusDefaulted InstallmentStatus = "defaulted"
	InstallmentStatusPaid      InstallmentStatus = "paid"
	InstallmentStatusCancelled InstallmentStatus = "cancelled"
)

var validInstallmentStatuses = []InstallmentStatus{
	InstallmentStatusScheduled,
	InstallmentStatusLate,
	InstallmentStatusDefaulted,
	InstallmentStatusPaid,
	InstallmentStatusCancelled,
}

// String implements fmt.Stringer.
func (s InstallmentStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is known.
func (s InstallmentStatus) IsValid() bool {
	for _, candidate := range validInstallmentStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are allowed.
func (s InstallmentStatus) IsTerminal() bool {
	return s == InstallmentStatusPaid || s == InstallmentStatusCancelled
}

// IsOpen reports whether the installment can still receive a payment
// or be offered as a match candidate.
func (s InstallmentStatus) IsOpen() bool {
	return s == InstallmentStatusScheduled || s == InstallmentStatusLate
}

// ParseInstallmentStatus converts raw input into an InstallmentStatus.
func ParseInstallmentStatus(value string) (InstallmentStatus, error) {
	for _, candidate := range validInstallmentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid installment status %q", value)
}
