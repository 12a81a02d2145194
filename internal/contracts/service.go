package contracts

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/credfacil/credfacil-backend/pkg/db/models"
	"github.com/credfacil/credfacil-backend/pkg/enums"
	pkgerrors "github.com/credfacil/credfacil-backend/pkg/errors"
	"github.com/credfacil/credfacil-backend/pkg/logger"
	"github.com/credfacil/credfacil-backend/pkg/metrics"
)

const escalationJob = "overdue_escalation"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// CreateContractInput carries everything needed to sign a contract.
type CreateContractInput struct {
	MerchantID           uuid.UUID
	CustomerID           uuid.UUID
	CustomerDocument     string
	TotalAmountCents     int64
	NumberOfInstallments int
	StartDate            time.Time
	FallbackCardID       *string
	PrivateLabelCardID   *string
}

// EscalationSummary reports what one overdue sweep changed.
type EscalationSummary struct {
	Evaluated          int
	MarkedLate         int
	MarkedDefaulted    int
	ContractsKnockedOut int
}

// Service owns the contract/installment lifecycle outside of payment
// application: signing and time-based overdue escalation.
type Service interface {
	CreateContract(ctx context.Context, input CreateContractInput) (*models.Contract, error)
	GetContract(ctx context.Context, id uuid.UUID) (*models.Contract, error)
	ListInstallments(ctx context.Context, contractID uuid.UUID) ([]models.Installment, error)
	EscalateOverdue(ctx context.Context, asOf time.Time) (EscalationSummary, error)
}

type service struct {
	tx    txRunner
	repo  Repository
	batch *metrics.BatchJobMetrics
	logg  *logger.Logger
}

// NewService wires the contract lifecycle service. batch may be nil when the
// escalation sweep should not be instrumented.
func NewService(tx txRunner, repo Repository, batch *metrics.BatchJobMetrics, logg *logger.Logger) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("contracts repository required")
	}
	return &service{tx: tx, repo: repo, batch: batch, logg: logg}, nil
}

func (s *service) CreateContract(ctx context.Context, input CreateContractInput) (*models.Contract, error) {
	if input.MerchantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "merchant id required")
	}
	if input.CustomerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}
	if input.CustomerDocument == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer document required")
	}
	if input.TotalAmountCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "total amount must be positive")
	}
	if input.NumberOfInstallments < 2 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "contract needs at least two installments")
	}
	if input.StartDate.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "start date required")
	}

	contract := &models.Contract{
		MerchantID:           input.MerchantID,
		CustomerID:           input.CustomerID,
		CustomerDocument:     input.CustomerDocument,
		TotalAmountCents:     input.TotalAmountCents,
		NumberOfInstallments: input.NumberOfInstallments,
		StartDate:            input.StartDate,
		EligibilityStatus:    enums.ContractPendingFirstInstallment,
		FallbackCardID:       input.FallbackCardID,
		PrivateLabelCardID:   input.PrivateLabelCardID,
		Installments:         buildSchedule(input),
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).CreateContract(ctx, contract)
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithContractID(ctx, contract.ID.String())
		s.logg.Info(logCtx, "contract created")
	}
	return contract, nil
}

// buildSchedule splits the total into equal installments; integer division
// leaves the remainder on the last installment so the first one, which the
// acquirer captures, keeps the base amount.
func buildSchedule(input CreateContractInput) []models.Installment {
	count := int64(input.NumberOfInstallments)
	base := input.TotalAmountCents / count
	remainder := input.TotalAmountCents - base*count

	installments := make([]models.Installment, input.NumberOfInstallments)
	for i := range installments {
		amount := base
		if i == input.NumberOfInstallments-1 {
			amount += remainder
		}
		origin := enums.OriginPrivateLabel
		if i == 0 {
			origin = enums.OriginExternalCapture
		}
		installments[i] = models.Installment{
			Number:      i + 1,
			AmountCents: amount,
			DueDate:     input.StartDate.AddDate(0, i+1, 0),
			Status:      enums.InstallmentStatusScheduled,
			Origin:      origin,
		}
	}
	return installments
}

func (s *service) GetContract(ctx context.Context, id uuid.UUID) (*models.Contract, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "contract id required")
	}
	contract, err := s.repo.FindContract(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "contract not found")
	}
	return contract, nil
}

func (s *service) ListInstallments(ctx context.Context, contractID uuid.UUID) ([]models.Installment, error) {
	if contractID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "contract id required")
	}
	return s.repo.ListInstallments(ctx, contractID)
}

// EscalateOverdue sweeps open installments past due: recomputes daysOverdue,
// promotes scheduled to late and late to defaulted past the threshold, and
// knocks the contract out when installment #1 or #2 defaults. Each
// installment is escalated in its own transaction so one bad row cannot stall
// the sweep.
func (s *service) EscalateOverdue(ctx context.Context, asOf time.Time) (EscalationSummary, error) {
	start := time.Now()
	summary, err := s.escalateOverdue(ctx, asOf)
	s.batch.ObserveDuration(escalationJob, time.Since(start))
	if err != nil {
		s.batch.IncFailure(escalationJob)
		return summary, err
	}
	s.batch.IncSuccess(escalationJob)
	return summary, nil
}

func (s *service) escalateOverdue(ctx context.Context, asOf time.Time) (EscalationSummary, error) {
	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}

	overdue, err := s.repo.ListOpenPastDue(ctx, asOf)
	if err != nil {
		return EscalationSummary{}, err
	}

	summary := EscalationSummary{Evaluated: len(overdue)}
	for _, candidate := range overdue {
		err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)

			installment, err := repo.FindInstallmentForUpdate(ctx, candidate.ID)
			if err != nil {
				return err
			}
			if !installment.Status.IsOpen() {
				return nil
			}

			days := ComputeDaysOverdue(installment.DueDate, asOf)
			next := StatusForOverdue(installment.Status, days)
			if next == installment.Status && days == installment.DaysOverdue {
				return nil
			}

			if err := repo.UpdateInstallment(ctx, installment.ID, map[string]any{
				"status":       next,
				"days_overdue": days,
			}); err != nil {
				return err
			}

			switch {
			case next == enums.InstallmentStatusDefaulted && installment.Status != enums.InstallmentStatusDefaulted:
				summary.MarkedDefaulted++
			case next == enums.InstallmentStatusLate && installment.Status == enums.InstallmentStatusScheduled:
				summary.MarkedLate++
			}

			// An unpaid first or second installment past the threshold is a
			// hard default for the whole contract.
			if next == enums.InstallmentStatusDefaulted && installment.Number <= 2 {
				contract, err := repo.FindContractForUpdate(ctx, installment.ContractID)
				if err != nil {
					return err
				}
				if contract.EligibilityStatus.PreDisbursed() {
					if err := repo.ForceIneligible(ctx, contract.ID); err != nil {
						return err
					}
					summary.ContractsKnockedOut++
				}
			}
			return nil
		})
		if err != nil {
			if s.logg != nil {
				logCtx := s.logg.WithInstallmentID(ctx, candidate.ID.String())
				s.logg.Error(logCtx, "overdue escalation failed for installment", err)
			}
			return summary, err
		}
	}
	return summary, nil
}
