package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/credfacil/credfacil-backend/pkg/enums"
)

// FundDisbursement is the one-time advance for a contract. Exactly one per
// contract, with exactly two splits whose amounts sum to the total.
type FundDisbursement struct {
	ID               uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ContractID       uuid.UUID `gorm:"column:contract_id;type:uuid;not null;uniqueIndex:ux_fund_disbursements_contract"`
	MerchantID       uuid.UUID `gorm:"column:merchant_id;type:uuid;not null;index"`
	TotalAmountCents int64     `gorm:"column:total_amount_cents;not null"`
	DisbursedAt      time.Time `gorm:"column:disbursed_at;not null"`
	CreatedAt        time.Time `gorm:"column:created_at;autoCreateTime"`

	Splits []DisbursementSplit `gorm:"foreignKey:DisbursementID"`
}

// DisbursementSplit is one leg of a disbursement: the merchant's 70% advance
// or the escrow's 30% retention. The escrow leg absorbs rounding remainders.
type DisbursementSplit struct {
	ID             uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	DisbursementID uuid.UUID            `gorm:"column:disbursement_id;type:uuid;not null;index"`
	Recipient      enums.SplitRecipient `gorm:"column:recipient;not null"`
	AmountCents    int64                `gorm:"column:amount_cents;not null"`
	CreatedAt      time.Time            `gorm:"column:created_at;autoCreateTime"`
}
