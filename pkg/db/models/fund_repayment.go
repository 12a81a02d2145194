package models

import (
	"time"

	"github.com/google/uuid"
)

// FundRepayment returns a paid installment's amount to the fund. Installment
// #1 is captured by the acquirer and never repaid this way.
type FundRepayment struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ContractID    uuid.UUID `gorm:"column:contract_id;type:uuid;not null;index"`
	InstallmentID uuid.UUID `gorm:"column:installment_id;type:uuid;not null;uniqueIndex:ux_fund_repayments_installment"`
	AmountCents   int64     `gorm:"column:amount_cents;not null"`
	RepaidAt      time.Time `gorm:"column:repaid_at;not null"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
}
