package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/credfacil/credfacil-backend/pkg/enums"
)

// PaymentEvent is an externally reported payment awaiting or holding a match.
// Once manually matched it is immutable; disagreements become disputes.
type PaymentEvent struct {
	ID                  uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	InstallmentID       *uuid.UUID             `gorm:"column:installment_id;type:uuid;index"`
	ExternalReference   *string                `gorm:"column:external_reference;index"`
	Barcode             *string                `gorm:"column:barcode;index"`
	CustomerDocument    *string                `gorm:"column:customer_document;index"`
	PaidAmountCents     int64                  `gorm:"column:paid_amount_cents;not null"`
	ExpectedAmountCents int64                  `gorm:"column:expected_amount_cents;not null;default:0"`
	EventType           enums.PaymentEventType `gorm:"column:event_type;not null"`
	MatchStatus         enums.MatchStatus      `gorm:"column:match_status;not null;default:'pending'"`
	MatchConfidence     float64                `gorm:"column:match_confidence;not null;default:0"`
	PaymentDate         time.Time              `gorm:"column:payment_date;not null"`
	CreatedAt           time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}
