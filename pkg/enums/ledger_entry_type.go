package enums

import "fmt"

// LedgerEntryType distinguishes escrow ledger credits from debits.
type LedgerEntryType string

const (
	LedgerEntryCredit LedgerEntryType = "credit"
	LedgerEntryDebit  LedgerEntryType = "debit"
)

// String implements fmt.Stringer.
func (l LedgerEntryType) String() string {
	return string(l)
}

// IsValid reports whether the value is known.
func (l LedgerEntryType) IsValid() bool {
	return l == LedgerEntryCredit || l == LedgerEntryDebit
}

// ParseLedgerEntryType converts raw input into a LedgerEntryType.
func ParseLedgerEntryType(value string) (LedgerEntryType, error) {
	switch LedgerEntryType(value) {
	case LedgerEntryCredit, LedgerEntryDebit:
		return LedgerEntryType(value), nil
	}
	return "", fmt.Errorf("invalid ledger entry type %q", value)
}
