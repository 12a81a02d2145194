package models

import (
	"time"

	"github.com/google/uuid"
)

// Merchant is a store selling installment contracts. Core operations always
// receive an explicit merchant id; there is no implicit default merchant.
type Merchant struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name      string    `gorm:"column:name;not null"`
	Document  string    `gorm:"column:document;not null;unique"`
	Active    bool      `gorm:"column:active;not null;default:true"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
