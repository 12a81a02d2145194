package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/credfacil/credfacil-backend/pkg/enums"
)

// Installment is one slice of a contract's receivable. Exactly
// NumberOfInstallments rows exist per contract, created atomically with it.
type Installment struct {
	ID                    uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ContractID            uuid.UUID               `gorm:"column:contract_id;type:uuid;not null;index"`
	Number                int                     `gorm:"column:number;not null"`
	AmountCents           int64                   `gorm:"column:amount_cents;not null"`
	DueDate               time.Time               `gorm:"column:due_date;not null;index"`
	Status                enums.InstallmentStatus `gorm:"column:status;not null;default:'scheduled'"`
	PaidAt                *time.Time              `gorm:"column:paid_at"`
	PaidAmountCents       int64                   `gorm:"column:paid_amount_cents;not null;default:0"`
	DaysOverdue           int                     `gorm:"column:days_overdue;not null;default:0"`
	Origin                enums.InstallmentOrigin `gorm:"column:origin;not null"`
	ContributesToSubQuota bool                    `gorm:"column:contributes_to_sub_quota;not null;default:false"`
	ExternalReference     *string                 `gorm:"column:external_reference;index"`
	CreatedAt             time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}
