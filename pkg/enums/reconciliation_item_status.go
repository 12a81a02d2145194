package enums

// ReconciliationItemStatus marks whether a reported amount matched expectations.
type ReconciliationItemStatus string

const (
	ReconciliationItemMatched    ReconciliationItemStatus = "matched"
	ReconciliationItemMismatched ReconciliationItemStatus = "mismatched"
)

// String implements fmt.Stringer.
func (r ReconciliationItemStatus) String() string {
	return string(r)
}

// IsValid reports whether the value is known.
func (r ReconciliationItemStatus) IsValid() bool {
	return r == ReconciliationItemMatched || r == ReconciliationItemMismatched
}
