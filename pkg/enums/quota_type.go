package enums

// QuotaType names the fund quota a contribution lands in.
type QuotaType string

const (
	QuotaTypeSub    QuotaType = "sub"
	QuotaTypeSenior QuotaType = "senior"
)

// String implements fmt.Stringer.
func (q QuotaType) String() string {
	return string(q)
}

// IsValid reports whether the value is known.
func (q QuotaType) IsValid() bool {
	return q == QuotaTypeSub || q == QuotaTypeSenior
}
