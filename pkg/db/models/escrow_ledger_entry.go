package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/credfacil/credfacil-backend/pkg/enums"
)

// EscrowLedgerEntry is one append-only row of an escrow account's history.
// Rows are never updated or deleted. BalanceAfterCents of entry n must equal
// that of entry n-1 plus/minus AmountCents.
type EscrowLedgerEntry struct {
	ID                uuid.UUID                 `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	EscrowAccountID   uuid.UUID                 `gorm:"column:escrow_account_id;type:uuid;not null;index"`
	EntryType         enums.LedgerEntryType     `gorm:"column:entry_type;not null"`
	AmountCents       int64                     `gorm:"column:amount_cents;not null"`
	BalanceAfterCents int64                     `gorm:"column:balance_after_cents;not null"`
	ReferenceType     enums.LedgerReferenceType `gorm:"column:reference_type;not null"`
	ReferenceID       uuid.UUID                 `gorm:"column:reference_id;type:uuid;not null"`
	CreatedAt         time.Time                 `gorm:"column:created_at;autoCreateTime"`
}
