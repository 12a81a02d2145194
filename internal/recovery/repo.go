package recovery

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/credfacil/credfacil-backend/pkg/db/models"
)

// Repository manages persistence for drawdowns and fallback card attempts.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateDrawdown(ctx context.Context, drawdown *models.EscrowDrawdown) error
	ExistsDrawdownForInstallment(ctx context.Context, installmentID uuid.UUID) (bool, error)
	ListDrawdownsByAccount(ctx context.Context, accountID uuid.UUID) ([]models.EscrowDrawdown, error)
	CreateCharge(ctx context.Context, charge *models.TokenizedCardCharge) error
	MaxAttemptNumber(ctx context.Context, installmentID uuid.UUID) (int, error)
	ListChargesByInstallment(ctx context.Context, installmentID uuid.UUID) ([]models.TokenizedCardCharge, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a recovery repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateDrawdown(ctx context.Context, drawdown *models.EscrowDrawdown) error {
	return r.db.WithContext(ctx).Create(drawdown).Error
}

func (r *repository) ExistsDrawdownForInstallment(ctx context.Context, installmentID uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.EscrowDrawdown{}).
		Where("installment_id = ?", installmentID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) ListDrawdownsByAccount(ctx context.Context, accountID uuid.UUID) ([]models.EscrowDrawdown, error) {
	var drawdowns []models.EscrowDrawdown
	if err := r.db.WithContext(ctx).
		Where("escrow_account_id = ?", accountID).
		Order("executed_at ASC").
		Find(&drawdowns).Error; err != nil {
		return nil, err
	}
	return drawdowns, nil
}

func (r *repository) CreateCharge(ctx context.Context, charge *models.TokenizedCardCharge) error {
	return r.db.WithContext(ctx).Create(charge).Error
}

func (r *repository) MaxAttemptNumber(ctx context.Context, installmentID uuid.UUID) (int, error) {
	var max int
	if err := r.db.WithContext(ctx).
		Model(&models.TokenizedCardCharge{}).
		Where("installment_id = ?", installmentID).
		Select("COALESCE(MAX(attempt_number), 0)").
		Scan(&max).Error; err != nil {
		return 0, err
	}
	return max, nil
}

func (r *repository) ListChargesByInstallment(ctx context.Context, installmentID uuid.UUID) ([]models.TokenizedCardCharge, error) {
	var charges []models.TokenizedCardCharge
	if err := r.db.WithContext(ctx).
		Where("installment_id = ?", installmentID).
		Order("attempt_number ASC").
		Find(&charges).Error; err != nil {
		return nil, err
	}
	return charges, nil
}
