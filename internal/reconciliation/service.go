package reconciliation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/credfacil/credfacil-backend/pkg/db/models"
	"github.com/credfacil/credfacil-backend/pkg/enums"
	pkgerrors "github.com/credfacil/credfacil-backend/pkg/errors"
	"github.com/credfacil/credfacil-backend/pkg/logger"
	"github.com/credfacil/credfacil-backend/pkg/metrics"
)

const reconciliationJob = "reconciliation"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service compares settled installments against externally reported amounts
// and keeps the resulting files internally consistent.
type Service interface {
	Reconcile(ctx context.Context, periodStart, periodEnd time.Time) (*models.ReconciliationFile, error)
	VerifyFile(ctx context.Context, fileID uuid.UUID) error
}

type service struct {
	tx    txRunner
	repo  Repository
	batch *metrics.BatchJobMetrics
	logg  *logger.Logger
}

// NewService wires the reconciliation engine. batch may be nil when the batch
// run should not be instrumented.
func NewService(tx txRunner, repo Repository, batch *metrics.BatchJobMetrics, logg *logger.Logger) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("reconciliation repository required")
	}
	return &service{tx: tx, repo: repo, batch: batch, logg: logg}, nil
}

// Reconcile builds one file covering every installment settled inside the
// period. Expected is the scheduled amount; actual is what the matched
// payment event reported, falling back to the amount recorded on the
// installment when the settlement had no event. The file and all its items
// land in one transaction so counters can never drift from the items.
func (s *service) Reconcile(ctx context.Context, periodStart, periodEnd time.Time) (*models.ReconciliationFile, error) {
	start := time.Now()
	file, err := s.reconcile(ctx, periodStart, periodEnd)
	s.batch.ObserveDuration(reconciliationJob, time.Since(start))
	if err != nil {
		s.batch.IncFailure(reconciliationJob)
		return nil, err
	}
	s.batch.IncSuccess(reconciliationJob)
	return file, nil
}

func (s *service) reconcile(ctx context.Context, periodStart, periodEnd time.Time) (*models.ReconciliationFile, error) {
	if !periodEnd.After(periodStart) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "period end must be after period start")
	}

	var file *models.ReconciliationFile
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		installments, err := repo.ListPaidInPeriod(ctx, periodStart, periodEnd)
		if err != nil {
			return err
		}

		built := &models.ReconciliationFile{
			PeriodStart: periodStart,
			PeriodEnd:   periodEnd,
		}

		var lookupErrs error
		for _, installment := range installments {
			actual := installment.PaidAmountCents
			event, err := repo.FindMatchedEvent(ctx, installment.ID)
			if err != nil {
				lookupErrs = multierr.Append(lookupErrs,
					fmt.Errorf("installment %s: %w", installment.ID, err))
				continue
			}
			if event != nil {
				actual = event.PaidAmountCents
			}

			item := models.ReconciliationItem{
				InstallmentID:       installment.ID,
				ExpectedAmountCents: installment.AmountCents,
				ActualAmountCents:   actual,
			}
			if actual == installment.AmountCents {
				item.Status = enums.ReconciliationItemMatched
				built.MatchedCount++
			} else {
				item.Status = enums.ReconciliationItemMismatched
				reason := fmt.Sprintf("expected %d, reported %d", installment.AmountCents, actual)
				item.Reason = &reason
				built.MismatchedCount++
			}
			built.Items = append(built.Items, item)
		}
		if lookupErrs != nil {
			return lookupErrs
		}

		if err := repo.CreateFile(ctx, built); err != nil {
			return err
		}
		file = built
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"file_id":          file.ID.String(),
			"matched_count":    file.MatchedCount,
			"mismatched_count": file.MismatchedCount,
		})
		s.logg.Info(logCtx, "reconciliation file built")
	}
	return file, nil
}

// VerifyFile recounts a file's items per status and checks the stored
// counters against the recount.
func (s *service) VerifyFile(ctx context.Context, fileID uuid.UUID) error {
	if fileID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "file id required")
	}

	file, err := s.repo.FindFile(ctx, fileID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "reconciliation file not found")
	}

	matched, err := s.repo.CountItemsByStatus(ctx, fileID, enums.ReconciliationItemMatched)
	if err != nil {
		return err
	}
	mismatched, err := s.repo.CountItemsByStatus(ctx, fileID, enums.ReconciliationItemMismatched)
	if err != nil {
		return err
	}

	var verifyErr error
	if int64(file.MatchedCount) != matched {
		verifyErr = multierr.Append(verifyErr, pkgerrors.New(pkgerrors.CodeInvariantViolation,
			fmt.Sprintf("matched counter %d disagrees with recount %d", file.MatchedCount, matched)))
	}
	if int64(file.MismatchedCount) != mismatched {
		verifyErr = multierr.Append(verifyErr, pkgerrors.New(pkgerrors.CodeInvariantViolation,
			fmt.Sprintf("mismatched counter %d disagrees with recount %d", file.MismatchedCount, mismatched)))
	}
	return verifyErr
}
