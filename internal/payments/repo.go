package payments

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/credfacil/credfacil-backend/pkg/db/models"
)

// Repository persists the downstream records a payment application produces.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateRepayment(ctx context.Context, repayment *models.FundRepayment) error
	CreateQuotaContribution(ctx context.Context, contribution *models.FundQuotaContribution) error
	ListRepaymentsByContract(ctx context.Context, contractID uuid.UUID) ([]models.FundRepayment, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a payments repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateRepayment(ctx context.Context, repayment *models.FundRepayment) error {
	return r.db.WithContext(ctx).Create(repayment).Error
}

func (r *repository) CreateQuotaContribution(ctx context.Context, contribution *models.FundQuotaContribution) error {
	return r.db.WithContext(ctx).Create(contribution).Error
}

func (r *repository) ListRepaymentsByContract(ctx context.Context, contractID uuid.UUID) ([]models.FundRepayment, error) {
	var repayments []models.FundRepayment
	if err := r.db.WithContext(ctx).
		Where("contract_id = ?", contractID).
		Order("created_at ASC").
		Find(&repayments).Error; err != nil {
		return nil, err
	}
	return repayments, nil
}
