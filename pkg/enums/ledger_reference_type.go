package enums

// LedgerReferenceType names the kind of record a ledger entry points back to.
type LedgerReferenceType string

const (
	LedgerRefDisbursement LedgerReferenceType = "disbursement"
	LedgerRefDrawdown     LedgerReferenceType = "drawdown"
	LedgerRefAdjustment   LedgerReferenceType = "adjustment"
)

// String implements fmt.Stringer.
func (l LedgerReferenceType) String() string {
	return string(l)
}

// IsValid reports whether the value is known.
func (l LedgerReferenceType) IsValid() bool {
	switch l {
	case LedgerRefDisbursement, LedgerRefDrawdown, LedgerRefAdjustment:
		return true
	}
	return false
}
