package models

import (
	"time"

	"github.com/google/uuid"
)

// EscrowAccount holds the fund's retained share for one merchant.
// BalanceCents must equal sum(credits) - sum(debits) over the account's
// ledger entries at all times. FrozenAt is set when an integrity violation
// is detected; a frozen account rejects all further writes.
type EscrowAccount struct {
	ID           uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	MerchantID   uuid.UUID  `gorm:"column:merchant_id;type:uuid;not null;index"`
	FundID       uuid.UUID  `gorm:"column:fund_id;type:uuid;not null;index"`
	BalanceCents int64      `gorm:"column:balance_cents;not null;default:0"`
	FrozenAt     *time.Time `gorm:"column:frozen_at"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
