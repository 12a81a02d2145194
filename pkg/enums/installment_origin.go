package enums

// InstallmentOrigin tells which capture rail owns the installment. The first
// installment of a contract is captured by the acquirer on the fallback card;
// the rest run on the private-label card.
type InstallmentOrigin string

const (
	OriginExternalCapture InstallmentOrigin = "external_capture"
	OriginPrivateLabel    InstallmentOrigin = "private_label"
)

// String implements fmt.Stringer.
func (o InstallmentOrigin) String() string {
	return string(o)
}

// IsValid reports whether the value is known.
func (o InstallmentOrigin) IsValid() bool {
	return o == OriginExternalCapture || o == OriginPrivateLabel
}
