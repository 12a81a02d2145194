package enums

import "fmt"

// ContractEligibility tracks a contract's position in the disbursement lifecycle.
type ContractEligibility string

const (
	ContractPendingFirstInstallment  ContractEligibility = "pending_first_installment"
	ContractPendingSecondInstallment ContractEligibility = "pending_second_installment"
	ContractEligible                 ContractEligibility = "eligible"
	ContractEligibleLate             ContractEligibility = "eligible_late"
	ContractDisbursed                ContractEligibility = "disbursed"
	ContractIneligible               ContractEligibility = "ineligible"
)

var validContractEligibilities = []ContractEligibility{
	ContractPendingFirstInstallment,
	ContractPendingSecondInstallment,
	ContractEligible,
	ContractEligibleLate,
	ContractDisbursed,
	ContractIneligible,
}

// String implements fmt.Stringer.
func (c ContractEligibility) String() string {
	return string(c)
}

// IsValid reports whether the value is known.
func (c ContractEligibility) IsValid() bool {
	for _, candidate := range validContractEligibilities {
		if candidate == c {
			return true
		}
	}
	return false
}

// IsEligible reports whether the contract qualifies for disbursement.
func (c ContractEligibility) IsEligible() bool {
	return c == ContractEligible || c == ContractEligibleLate
}

// PreDisbursed reports whether the contract has not yet been disbursed or
// knocked out. Only pre-disbursed contracts can exit to ineligible.
func (c ContractEligibility) PreDisbursed() bool {
	switch c {
	case ContractPendingFirstInstallment, ContractPendingSecondInstallment, ContractEligible, ContractEligibleLate:
		return true
	}
	return false
}

// ParseContractEligibility converts raw input into a ContractEligibility.
func ParseContractEligibility(value string) (ContractEligibility, error) {
	for _, candidate := range validContractEligibilities {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid contract eligibility %q", value)
}
