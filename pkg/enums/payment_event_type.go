package enums

import "fmt"

// PaymentEventType classifies an externally reported payment record.
type PaymentEventType string

const (
	PaymentEventFull       PaymentEventType = "full_payment"
	PaymentEventPartial    PaymentEventType = "partial_payment"
	PaymentEventLate       PaymentEventType = "late_payment"
	PaymentEventOver       PaymentEventType = "overpayment"
	PaymentEventWriteOff   PaymentEventType = "write_off"
	PaymentEventRefund     PaymentEventType = "refund"
	PaymentEventChargeback PaymentEventType = "chargeback"
)

var validPaymentEventTypes = []PaymentEventType{
	PaymentEventFull,
	PaymentEventPartial,
	PaymentEventLate,
	PaymentEventOver,
	PaymentEventWriteOff,
	PaymentEventRefund,
	PaymentEventChargeback,
}

// String implements fmt.Stringer.
func (p PaymentEventType) String() string {
	return string(p)
}

// IsValid reports whether the value is known.
func (p PaymentEventType) IsValid() bool {
	for _, candidate := range validPaymentEventTypes {
		if candidate == p {
			return true
		}
	}
	return false
}

// Settles reports whether the event type marks the installment paid outright.
func (p PaymentEventType) Settles() bool {
	switch p {
	case PaymentEventFull, PaymentEventLate, PaymentEventOver:
		return true
	}
	return false
}

// Reverses reports whether the event type undoes a prior payment.
func (p PaymentEventType) Reverses() bool {
	return p == PaymentEventRefund || p == PaymentEventChargeback
}

// ParsePaymentEventType converts raw input into a PaymentEventType.
func ParsePaymentEventType(value string) (PaymentEventType, error) {
	for _, candidate := range validPaymentEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment event type %q", value)
}
