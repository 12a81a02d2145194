package matching

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/credfacil/credfacil-backend/pkg/db/models"
	"github.com/credfacil/credfacil-backend/pkg/enums"
)

var openStatuses = []enums.InstallmentStatus{
	enums.InstallmentStatusScheduled,
	enums.InstallmentStatusLate,
}

// Repository resolves match candidates and persists payment events.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateLink(ctx context.Context, link *models.PaymentLink) error
	FindLinkByBarcode(ctx context.Context, barcode string) (*models.PaymentLink, error)
	FindOpenInstallment(ctx context.Context, id uuid.UUID) (*models.Installment, error)
	FindOpenByExternalReference(ctx context.Context, reference string) (*models.Installment, error)
	ListOpenByDocument(ctx context.Context, document string) ([]models.Installment, error)
	CreateEvent(ctx context.Context, event *models.PaymentEvent) error
	FindEvent(ctx context.Context, id uuid.UUID) (*models.PaymentEvent, error)
	UpdateEvent(ctx context.Context, id uuid.UUID, updates map[string]any) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a matching repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateLink(ctx context.Context, link *models.PaymentLink) error {
	return r.db.WithContext(ctx).Create(link).Error
}

func (r *repository) FindLinkByBarcode(ctx context.Context, barcode string) (*models.PaymentLink, error) {
	var link models.PaymentLink
	err := r.db.WithContext(ctx).First(&link, "barcode = ?", barcode).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &link, nil
}

func (r *repository) FindOpenInstallment(ctx context.Context, id uuid.UUID) (*models.Installment, error) {
	var installment models.Installment
	err := r.db.WithContext(ctx).
		First(&installment, "id = ? AND status IN ?", id, openStatuses).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &installment, nil
}

func (r *repository) FindOpenByExternalReference(ctx context.Context, reference string) (*models.Installment, error) {
	var installment models.Installment
	err := r.db.WithContext(ctx).
		First(&installment, "external_reference = ? AND status IN ?", reference, openStatuses).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &installment, nil
}

func (r *repository) ListOpenByDocument(ctx context.Context, document string) ([]models.Installment, error) {
	var installments []models.Installment
	if err := r.db.WithContext(ctx).
		Joins("JOIN contracts ON contracts.id = installments.contract_id").
		Where("contracts.customer_document = ? AND installments.status IN ?", document, openStatuses).
		Order("installments.due_date ASC").
		Find(&installments).Error; err != nil {
		return nil, err
	}
	return installments, nil
}

func (r *repository) CreateEvent(ctx context.Context, event *models.PaymentEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *repository) FindEvent(ctx context.Context, id uuid.UUID) (*models.PaymentEvent, error) {
	var event models.PaymentEvent
	if err := r.db.WithContext(ctx).First(&event, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *repository) UpdateEvent(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.PaymentEvent{}).
		Where("id = ?", id).
		Updates(updates).Error
}
