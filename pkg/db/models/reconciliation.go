package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/credfacil/credfacil-backend/pkg/enums"
)

// ReconciliationFile is one batch comparison of expected vs reported amounts.
// MatchedCount/MismatchedCount must equal a live recount of the file's items
// in each status; drift is an integrity fault.
type ReconciliationFile struct {
	ID              uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PeriodStart     time.Time `gorm:"column:period_start;not null"`
	PeriodEnd       time.Time `gorm:"column:period_end;not null"`
	MatchedCount    int       `gorm:"column:matched_count;not null;default:0"`
	MismatchedCount int       `gorm:"column:mismatched_count;not null;default:0"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime"`

	Items []ReconciliationItem `gorm:"foreignKey:FileID"`
}

// ReconciliationItem compares one paid installment's expected amount with the
// externally reported actual.
type ReconciliationItem struct {
	ID                  uuid.UUID                      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	FileID              uuid.UUID                      `gorm:"column:file_id;type:uuid;not null;index"`
	InstallmentID       uuid.UUID                      `gorm:"column:installment_id;type:uuid;not null;index"`
	ExpectedAmountCents int64                          `gorm:"column:expected_amount_cents;not null"`
	ActualAmountCents   int64                          `gorm:"column:actual_amount_cents;not null"`
	Status              enums.ReconciliationItemStatus `gorm:"column:status;not null"`
	Reason              *string                        `gorm:"column:reason"`
	CreatedAt           time.Time                      `gorm:"column:created_at;autoCreateTime"`
}
