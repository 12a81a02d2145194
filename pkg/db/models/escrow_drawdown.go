package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/credfacil/credfacil-backend/pkg/enums"
)

// EscrowDrawdown records an escrow debit covering one overdue installment.
// Drawdowns are all-or-nothing; there is no partial coverage.
type EscrowDrawdown struct {
	ID              uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	EscrowAccountID uuid.UUID            `gorm:"column:escrow_account_id;type:uuid;not null;index"`
	InstallmentID   uuid.UUID            `gorm:"column:installment_id;type:uuid;not null;index"`
	AmountCents     int64                `gorm:"column:amount_cents;not null"`
	Reason          enums.DrawdownReason `gorm:"column:reason;not null"`
	ExecutedAt      time.Time            `gorm:"column:executed_at;not null"`
	CreatedAt       time.Time            `gorm:"column:created_at;autoCreateTime"`
}
