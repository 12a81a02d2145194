package reconciliation

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/credfacil/credfacil-backend/pkg/db/models"
	"github.com/credfacil/credfacil-backend/pkg/enums"
)

// Repository manages persistence for reconciliation files and their items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateFile(ctx context.Context, file *models.ReconciliationFile) error
	FindFile(ctx context.Context, id uuid.UUID) (*models.ReconciliationFile, error)
	CountItemsByStatus(ctx context.Context, fileID uuid.UUID, status enums.ReconciliationItemStatus) (int64, error)
	ListPaidInPeriod(ctx context.Context, periodStart, periodEnd time.Time) ([]models.Installment, error)
	FindMatchedEvent(ctx context.Context, installmentID uuid.UUID) (*models.PaymentEvent, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a reconciliation repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateFile(ctx context.Context, file *models.ReconciliationFile) error {
	return r.db.WithContext(ctx).Create(file).Error
}

func (r *repository) FindFile(ctx context.Context, id uuid.UUID) (*models.ReconciliationFile, error) {
	var file models.ReconciliationFile
	if err := r.db.WithContext(ctx).
		Preload("Items").
		First(&file, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &file, nil
}

func (r *repository) CountItemsByStatus(ctx context.Context, fileID uuid.UUID, status enums.ReconciliationItemStatus) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.ReconciliationItem{}).
		Where("file_id = ? AND status = ?", fileID, status).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repository) ListPaidInPeriod(ctx context.Context, periodStart, periodEnd time.Time) ([]models.Installment, error) {
	var installments []models.Installment
	if err := r.db.WithContext(ctx).
		Where("status = ? AND paid_at >= ? AND paid_at < ?",
			enums.InstallmentStatusPaid, periodStart, periodEnd).
		Order("paid_at ASC").
		Find(&installments).Error; err != nil {
		return nil, err
	}
	return installments, nil
}

// FindMatchedEvent returns the most recent matched payment event for an
// installment, nil when the payment arrived without one.
func (r *repository) FindMatchedEvent(ctx context.Context, installmentID uuid.UUID) (*models.PaymentEvent, error) {
	var event models.PaymentEvent
	err := r.db.WithContext(ctx).
		Where("installment_id = ? AND match_status IN ?", installmentID, []enums.MatchStatus{
			enums.MatchStatusAutoMatched,
			enums.MatchStatusManualMatched,
		}).
		Order("payment_date DESC").
		First(&event).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &event, nil
}
