package enums

// DrawdownReason tags why escrow was debited to cover an installment.
type DrawdownReason string

const (
	DrawdownReasonDefaultCoverage DrawdownReason = "default_coverage"
	DrawdownReasonLatePayment     DrawdownReason = "late_payment"
)

// String implements fmt.Stringer.
func (d DrawdownReason) String() string {
	return string(d)
}

// IsValid reports whether the value is known.
func (d DrawdownReason) IsValid() bool {
	return d == DrawdownReasonDefaultCoverage || d == DrawdownReasonLatePayment
}
