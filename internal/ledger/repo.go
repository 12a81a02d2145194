package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/credfacil/credfacil-backend/pkg/db/models"
)

// Repository manages persistence for escrow accounts and their entries.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateAccount(ctx context.Context, account *models.EscrowAccount) error
	FindAccount(ctx context.Context, id uuid.UUID) (*models.EscrowAccount, error)
	FindAccountForUpdate(ctx context.Context, id uuid.UUID) (*models.EscrowAccount, error)
	FindAccountByMerchant(ctx context.Context, merchantID uuid.UUID) (*models.EscrowAccount, error)
	LastEntry(ctx context.Context, accountID uuid.UUID) (*models.EscrowLedgerEntry, error)
	AppendEntry(ctx context.Context, entry *models.EscrowLedgerEntry) error
	UpdateBalance(ctx context.Context, accountID uuid.UUID, balanceCents int64) error
	FreezeAccount(ctx context.Context, accountID uuid.UUID, at time.Time) error
	ListEntries(ctx context.Context, accountID uuid.UUID) ([]models.EscrowLedgerEntry, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateAccount(ctx context.Context, account *models.EscrowAccount) error {
	return r.db.WithContext(ctx).Create(account).Error
}

func (r *repository) FindAccount(ctx context.Context, id uuid.UUID) (*models.EscrowAccount, error) {
	var account models.EscrowAccount
	if err := r.db.WithContext(ctx).First(&account, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *repository) FindAccountForUpdate(ctx context.Context, id uuid.UUID) (*models.EscrowAccount, error) {
	var account models.EscrowAccount
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&account, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *repository) FindAccountByMerchant(ctx context.Context, merchantID uuid.UUID) (*models.EscrowAccount, error) {
	var account models.EscrowAccount
	if err := r.db.WithContext(ctx).First(&account, "merchant_id = ?", merchantID).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *repository) LastEntry(ctx context.Context, accountID uuid.UUID) (*models.EscrowLedgerEntry, error) {
	var entry models.EscrowLedgerEntry
	err := r.db.WithContext(ctx).
		Where("escrow_account_id = ?", accountID).
		Order("created_at DESC").
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *repository) AppendEntry(ctx context.Context, entry *models.EscrowLedgerEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) UpdateBalance(ctx context.Context, accountID uuid.UUID, balanceCents int64) error {
	return r.db.WithContext(ctx).
		Model(&models.EscrowAccount{}).
		Where("id = ?", accountID).
		Update("balance_cents", balanceCents).Error
}

func (r *repository) FreezeAccount(ctx context.Context, accountID uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.EscrowAccount{}).
		Where("id = ? AND frozen_at IS NULL", accountID).
		Update("frozen_at", at).Error
}

func (r *repository) ListEntries(ctx context.Context, accountID uuid.UUID) ([]models.EscrowLedgerEntry, error) {
	var entries []models.EscrowLedgerEntry
	if err := r.db.WithContext(ctx).
		Where("escrow_account_id = ?", accountID).
		Order("created_at ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
