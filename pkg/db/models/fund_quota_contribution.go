package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/credfacil/credfacil-backend/pkg/enums"
)

// FundQuotaContribution allocates a payment into one of the fund's risk
// quotas. The only automatic source is installment #2 paid late but within
// the 60-day window, which feeds the subordinate quota.
type FundQuotaContribution struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ContractID    uuid.UUID       `gorm:"column:contract_id;type:uuid;not null;index"`
	InstallmentID uuid.UUID       `gorm:"column:installment_id;type:uuid;not null;index"`
	QuotaType     enums.QuotaType `gorm:"column:quota_type;not null"`
	AmountCents   int64           `gorm:"column:amount_cents;not null"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
}
