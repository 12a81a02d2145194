package contracts

import (
	"time"

	"github.com/credfacil/credfacil-backend/pkg/enums"
)

// EscalationThresholdDays is the overdue boundary past which a late
// installment defaults. The rule is time-computed at evaluation time and
// applied uniformly on every path.
const EscalationThresholdDays = 60

// ComputeDaysOverdue returns how many whole days asOf sits past dueDate,
// never negative.
func ComputeDaysOverdue(dueDate, asOf time.Time) int {
	days := int(asOf.Sub(dueDate).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

// StatusForOverdue escalates an open installment's status from its overdue
// age. Terminal statuses are returned unchanged.
func StatusForOverdue(current enums.InstallmentStatus, daysOverdue int) enums.InstallmentStatus {
	if !current.IsOpen() {
		return current
	}
	if daysOverdue > EscalationThresholdDays {
		return enums.InstallmentStatusDefaulted
	}
	if daysOverdue > 0 {
		return enums.InstallmentStatusLate
	}
	return enums.InstallmentStatusScheduled
}

// EligibilityAfterSecondPayment yields the contract state once installment #2
// settles. Past the escalation threshold the contract never becomes eligible.
func EligibilityAfterSecondPayment(daysOverdue int) enums.ContractEligibility {
	switch {
	case daysOverdue > EscalationThresholdDays:
		return enums.ContractIneligible
	case daysOverdue > 0:
		return enums.ContractEligibleLate
	default:
		return enums.ContractEligible
	}
}

// ContributesToSubQuota reports whether a second-installment payment feeds the
// fund's subordinate quota: late, but inside the escalation window.
func ContributesToSubQuota(installmentNumber, daysOverdue int) bool {
	return installmentNumber == 2 && daysOverdue > 0 && daysOverdue <= EscalationThresholdDays
}
