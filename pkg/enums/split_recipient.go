package enums

// SplitRecipient names the leg of a disbursement split.
type SplitRecipient string

const (
	SplitRecipientMerchant SplitRecipient = "merchant"
	SplitRecipientEscrow   SplitRecipient = "escrow"
)

// String implements fmt.Stringer.
func (s SplitRecipient) String() string {
	return string(s)
}

// IsValid reports whether the value is known.
func (s SplitRecipient) IsValid() bool {
	return s == SplitRecipientMerchant || s == SplitRecipientEscrow
}
