package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/credfacil/credfacil-backend/pkg/enums"
)

// TokenizedCardCharge is one fallback-card attempt against an installment.
// AttemptNumber is monotonic per installment starting at 1, and failed
// attempts are persisted too, keeping the retry history auditable.
type TokenizedCardCharge struct {
	ID               uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	InstallmentID    uuid.UUID              `gorm:"column:installment_id;type:uuid;not null;index;uniqueIndex:ux_tokenized_card_charges_attempt"`
	CardToken        string                 `gorm:"column:card_token;not null"`
	AttemptNumber    int                    `gorm:"column:attempt_number;not null;uniqueIndex:ux_tokenized_card_charges_attempt"`
	AmountCents      int64                  `gorm:"column:amount_cents;not null"`
	Status           enums.CardChargeStatus `gorm:"column:status;not null"`
	GatewayReference *string                `gorm:"column:gateway_reference"`
	FailureReason    *string                `gorm:"column:failure_reason"`
	AttemptedAt      time.Time              `gorm:"column:attempted_at;not null"`
	CreatedAt        time.Time              `gorm:"column:created_at;autoCreateTime"`
}
