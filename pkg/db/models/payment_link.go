package models

import (
	"time"

	"github.com/google/uuid"
)

// PaymentLink ties an issued payment slip barcode back to its installment.
// This is the matcher's highest-confidence resolution path.
type PaymentLink struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	InstallmentID uuid.UUID `gorm:"column:installment_id;type:uuid;not null;index"`
	Barcode       string    `gorm:"column:barcode;not null;unique"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
}
