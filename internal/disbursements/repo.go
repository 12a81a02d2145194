package disbursements

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/credfacil/credfacil-backend/pkg/db/models"
)

// Repository manages persistence for fund disbursements and their splits.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, disbursement *models.FundDisbursement) error
	FindByContract(ctx context.Context, contractID uuid.UUID) (*models.FundDisbursement, error)
	ExistsForContract(ctx context.Context, contractID uuid.UUID) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a disbursements repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, disbursement *models.FundDisbursement) error {
	return r.db.WithContext(ctx).Create(disbursement).Error
}

func (r *repository) FindByContract(ctx context.Context, contractID uuid.UUID) (*models.FundDisbursement, error) {
	var disbursement models.FundDisbursement
	err := r.db.WithContext(ctx).
		Preload("Splits").
		First(&disbursement, "contract_id = ?", contractID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &disbursement, nil
}

func (r *repository) ExistsForContract(ctx context.Context, contractID uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.FundDisbursement{}).
		Where("contract_id = ?", contractID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
