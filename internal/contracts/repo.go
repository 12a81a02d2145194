package contracts

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/credfacil/credfacil-backend/pkg/db/models"
	"github.com/credfacil/credfacil-backend/pkg/enums"
)

// Repository manages persistence for contracts and their installments.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateContract(ctx context.Context, contract *models.Contract) error
	FindContract(ctx context.Context, id uuid.UUID) (*models.Contract, error)
	FindContractForUpdate(ctx context.Context, id uuid.UUID) (*models.Contract, error)
	CompareAndSwapEligibility(ctx context.Context, id uuid.UUID, from, to enums.ContractEligibility, extra map[string]any) (bool, error)
	ForceIneligible(ctx context.Context, id uuid.UUID) error
	FindInstallment(ctx context.Context, id uuid.UUID) (*models.Installment, error)
	FindInstallmentForUpdate(ctx context.Context, id uuid.UUID) (*models.Installment, error)
	FindInstallmentByNumber(ctx context.Context, contractID uuid.UUID, number int) (*models.Installment, error)
	UpdateInstallment(ctx context.Context, id uuid.UUID, updates map[string]any) error
	ListInstallments(ctx context.Context, contractID uuid.UUID) ([]models.Installment, error)
	ListOpenPastDue(ctx context.Context, asOf time.Time) ([]models.Installment, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a contracts repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateContract(ctx context.Context, contract *models.Contract) error {
	return r.db.WithContext(ctx).Create(contract).Error
}

func (r *repository) FindContract(ctx context.Context, id uuid.UUID) (*models.Contract, error) {
	var contract models.Contract
	if err := r.db.WithContext(ctx).First(&contract, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &contract, nil
}

func (r *repository) FindContractForUpdate(ctx context.Context, id uuid.UUID) (*models.Contract, error) {
	var contract models.Contract
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&contract, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &contract, nil
}

// CompareAndSwapEligibility writes the eligibility field only when it still
// holds the expected value, so two installments cannot race it.
func (r *repository) CompareAndSwapEligibility(ctx context.Context, id uuid.UUID, from, to enums.ContractEligibility, extra map[string]any) (bool, error) {
	updates := map[string]any{"eligibility_status": to}
	for k, v := range extra {
		updates[k] = v
	}
	result := r.db.WithContext(ctx).
		Model(&models.Contract{}).
		Where("id = ? AND eligibility_status = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// ForceIneligible knocks a contract out from any pre-disbursed state.
func (r *repository) ForceIneligible(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Contract{}).
		Where("id = ? AND eligibility_status IN ?", id, []enums.ContractEligibility{
			enums.ContractPendingFirstInstallment,
			enums.ContractPendingSecondInstallment,
			enums.ContractEligible,
			enums.ContractEligibleLate,
		}).
		Update("eligibility_status", enums.ContractIneligible).Error
}

func (r *repository) FindInstallment(ctx context.Context, id uuid.UUID) (*models.Installment, error) {
	var installment models.Installment
	if err := r.db.WithContext(ctx).First(&installment, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &installment, nil
}

func (r *repository) FindInstallmentForUpdate(ctx context.Context, id uuid.UUID) (*models.Installment, error) {
	var installment models.Installment
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&installment, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &installment, nil
}

func (r *repository) FindInstallmentByNumber(ctx context.Context, contractID uuid.UUID, number int) (*models.Installment, error) {
	var installment models.Installment
	if err := r.db.WithContext(ctx).
		First(&installment, "contract_id = ? AND number = ?", contractID, number).Error; err != nil {
		return nil, err
	}
	return &installment, nil
}

func (r *repository) UpdateInstallment(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Installment{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) ListInstallments(ctx context.Context, contractID uuid.UUID) ([]models.Installment, error) {
	var installments []models.Installment
	if err := r.db.WithContext(ctx).
		Where("contract_id = ?", contractID).
		Order("number ASC").
		Find(&installments).Error; err != nil {
		return nil, err
	}
	return installments, nil
}

func (r *repository) ListOpenPastDue(ctx context.Context, asOf time.Time) ([]models.Installment, error) {
	var installments []models.Installment
	if err := r.db.WithContext(ctx).
		Where("status IN ? AND due_date < ?", []enums.InstallmentStatus{
			enums.InstallmentStatusScheduled,
			enums.InstallmentStatusLate,
		}, asOf).
		Order("due_date ASC").
		Find(&installments).Error; err != nil {
		return nil, err
	}
	return installments, nil
}
