package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/credfacil/credfacil-backend/pkg/enums"
)

// Contract is a financed sale split into installments. Eligibility is mutated
// only by the payment processor; contracts are never deleted.
type Contract struct {
	ID                      uuid.UUID                 `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	MerchantID              uuid.UUID                 `gorm:"column:merchant_id;type:uuid;not null;index"`
	CustomerID              uuid.UUID                 `gorm:"column:customer_id;type:uuid;not null;index"`
	CustomerDocument        string                    `gorm:"column:customer_document;not null;index"`
	TotalAmountCents        int64                     `gorm:"column:total_amount_cents;not null"`
	NumberOfInstallments    int                       `gorm:"column:number_of_installments;not null"`
	StartDate               time.Time                 `gorm:"column:start_date;not null"`
	EligibilityStatus       enums.ContractEligibility `gorm:"column:eligibility_status;not null;default:'pending_first_installment'"`
	FirstInstallmentPaidAt  *time.Time                `gorm:"column:first_installment_paid_at"`
	SecondInstallmentPaidAt *time.Time                `gorm:"column:second_installment_paid_at"`
	FallbackCardID          *string                   `gorm:"column:fallback_card_id"`
	PrivateLabelCardID      *string                   `gorm:"column:private_label_card_id"`
	CreatedAt               time.Time                 `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt               time.Time                 `gorm:"column:updated_at;autoUpdateTime"`

	Installments []Installment `gorm:"foreignKey:ContractID"`
}
