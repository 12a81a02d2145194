package payments

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/credfacil/credfacil-backend/internal/contracts"
	"github.com/credfacil/credfacil-backend/internal/disbursements"
	"github.com/credfacil/credfacil-backend/internal/matching"
	"github.com/credfacil/credfacil-backend/pkg/db/models"
	"github.com/credfacil/credfacil-backend/pkg/enums"
	pkgerrors "github.com/credfacil/credfacil-backend/pkg/errors"
	"github.com/credfacil/credfacil-backend/pkg/logger"
)

const (
	idempotencyScope = "payments"
	idempotencyTTL   = 48 * time.Hour
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type disburser interface {
	DisburseTx(ctx context.Context, tx *gorm.DB, contract *models.Contract) (*models.FundDisbursement, error)
}

type idempotencyStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	IdempotencyKey(scope, id string) string
	Del(ctx context.Context, keys ...string) error
}

// AppliedActions reports everything a single payment application did.
type AppliedActions struct {
	InstallmentID       uuid.UUID
	InstallmentStatus   enums.InstallmentStatus
	NewlyPaid           bool
	RepaymentRecorded   bool
	QuotaContributed    bool
	ContractEligibility enums.ContractEligibility
	Disbursement        *models.FundDisbursement
}

// ProcessOutcome classifies a MatchAndApply run.
type ProcessOutcome string

const (
	ProcessApplied       ProcessOutcome = "applied"
	ProcessPendingReview ProcessOutcome = "pending_review"
	ProcessDuplicate     ProcessOutcome = "duplicate"
)

// ProcessResult bundles the match verdict with whatever was applied.
type ProcessResult struct {
	Outcome ProcessOutcome
	Match   matching.MatchResult
	Event   *models.PaymentEvent
	Applied *AppliedActions
}

// Service applies matched payments to installments and drives the contract
// state machine. All writes for one application ride a single transaction.
type Service interface {
	ApplyPayment(ctx context.Context, installmentID uuid.UUID, paidAmountCents int64, paymentDate time.Time, eventType enums.PaymentEventType) (*AppliedActions, error)
	MatchAndApply(ctx context.Context, record matching.PaymentRecord) (*ProcessResult, error)
}

type service struct {
	tx        txRunner
	repo      Repository
	contracts contracts.Repository
	disbRepo  disbursements.Repository
	disburser disburser
	matcher   matching.Service
	idem      idempotencyStore
	logg      *logger.Logger
}

// NewService wires the payment processor. idem may be nil; MatchAndApply then
// relies on the persisted event's primary key alone for replay protection.
func NewService(
	tx txRunner,
	repo Repository,
	contractsRepo contracts.Repository,
	disbRepo disbursements.Repository,
	disb disburser,
	matcher matching.Service,
	idem idempotencyStore,
	logg *logger.Logger,
) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if contractsRepo == nil {
		return nil, fmt.Errorf("contracts repository required")
	}
	if disbRepo == nil {
		return nil, fmt.Errorf("disbursements repository required")
	}
	if disb == nil {
		return nil, fmt.Errorf("disbursement service required")
	}
	return &service{
		tx:        tx,
		repo:      repo,
		contracts: contractsRepo,
		disbRepo:  disbRepo,
		disburser: disb,
		matcher:   matcher,
		idem:      idem,
		logg:      logg,
	}, nil
}

// ApplyPayment applies one payment event to one installment. The installment
// and its contract rows stay locked for the duration, so concurrent events
// against the same installment serialize and the loser sees the settled state.
func (s *service) ApplyPayment(ctx context.Context, installmentID uuid.UUID, paidAmountCents int64, paymentDate time.Time, eventType enums.PaymentEventType) (*AppliedActions, error) {
	if installmentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "installment id required")
	}
	if paidAmountCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "paid amount must be positive")
	}
	if !eventType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment event type")
	}
	if paymentDate.IsZero() {
		paymentDate = time.Now().UTC()
	}

	var actions *AppliedActions
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		contractsRepo := s.contracts.WithTx(tx)

		installment, err := contractsRepo.FindInstallmentForUpdate(ctx, installmentID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "installment not found")
		}
		contract, err := contractsRepo.FindContractForUpdate(ctx, installment.ContractID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "contract not found")
		}

		if eventType.Reverses() {
			applied, err := s.reverseTx(ctx, tx, contract, installment, paymentDate)
			if err != nil {
				return err
			}
			actions = applied
			return nil
		}

		if installment.Status.IsTerminal() {
			return pkgerrors.New(pkgerrors.CodeAlreadySettled,
				fmt.Sprintf("installment %d is already %s", installment.Number, installment.Status)).
				WithDetails(map[string]any{
					"installment_id": installment.ID.String(),
					"status":         installment.Status.String(),
				})
		}

		applied, err := s.applyTx(ctx, tx, contract, installment, paidAmountCents, paymentDate, eventType)
		if err != nil {
			return err
		}
		actions = applied
		return nil
	})
	if err != nil {
		return nil, err
	}
	return actions, nil
}

func (s *service) applyTx(ctx context.Context, tx *gorm.DB, contract *models.Contract, installment *models.Installment, paidAmountCents int64, paymentDate time.Time, eventType enums.PaymentEventType) (*AppliedActions, error) {
	contractsRepo := s.contracts.WithTx(tx)
	daysOverdue := contracts.ComputeDaysOverdue(installment.DueDate, paymentDate)

	updates := map[string]any{"days_overdue": daysOverdue}
	newlyPaid := false

	switch {
	case eventType == enums.PaymentEventWriteOff:
		updates["status"] = enums.InstallmentStatusCancelled
		installment.Status = enums.InstallmentStatusCancelled

	case eventType == enums.PaymentEventPartial:
		total := installment.PaidAmountCents + paidAmountCents
		updates["paid_amount_cents"] = total
		installment.PaidAmountCents = total
		if total >= installment.AmountCents {
			newlyPaid = true
		} else {
			status := contracts.StatusForOverdue(installment.Status, daysOverdue)
			updates["status"] = status
			installment.Status = status
		}

	case eventType.Settles():
		updates["paid_amount_cents"] = paidAmountCents
		installment.PaidAmountCents = paidAmountCents
		newlyPaid = true

	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("event type %s cannot be applied directly", eventType))
	}

	if newlyPaid {
		updates["status"] = enums.InstallmentStatusPaid
		updates["paid_at"] = paymentDate
		installment.Status = enums.InstallmentStatusPaid
		installment.PaidAt = &paymentDate
	}
	installment.DaysOverdue = daysOverdue

	if err := contractsRepo.UpdateInstallment(ctx, installment.ID, updates); err != nil {
		return nil, err
	}

	actions := &AppliedActions{
		InstallmentID:       installment.ID,
		InstallmentStatus:   installment.Status,
		NewlyPaid:           newlyPaid,
		ContractEligibility: contract.EligibilityStatus,
	}
	if !newlyPaid {
		return actions, nil
	}
	if err := s.settleTx(ctx, tx, contract, installment, paymentDate, daysOverdue, actions); err != nil {
		return nil, err
	}
	return actions, nil
}

// settleTx runs the side effects of an installment crossing into paid:
// fund repayment, contract eligibility transitions, quota contribution, and
// the disbursement when the contract first qualifies.
func (s *service) settleTx(ctx context.Context, tx *gorm.DB, contract *models.Contract, installment *models.Installment, paymentDate time.Time, daysOverdue int, actions *AppliedActions) error {
	repo := s.repo.WithTx(tx)
	contractsRepo := s.contracts.WithTx(tx)
	disbRepo := s.disbRepo.WithTx(tx)

	// Installment #1 is captured by the acquirer up front and never flows
	// back to the fund. Later installments repay only once there is a
	// posted disbursement to repay.
	if installment.Number != 1 {
		exists, err := disbRepo.ExistsForContract(ctx, contract.ID)
		if err != nil {
			return err
		}
		if exists {
			if err := repo.CreateRepayment(ctx, &models.FundRepayment{
				ContractID:    contract.ID,
				InstallmentID: installment.ID,
				AmountCents:   installment.PaidAmountCents,
				RepaidAt:      paymentDate,
			}); err != nil {
				return err
			}
			actions.RepaymentRecorded = true
		}
	}

	switch installment.Number {
	case 1:
		swapped, err := contractsRepo.CompareAndSwapEligibility(ctx, contract.ID,
			enums.ContractPendingFirstInstallment, enums.ContractPendingSecondInstallment,
			map[string]any{"first_installment_paid_at": paymentDate})
		if err != nil {
			return err
		}
		if swapped {
			contract.EligibilityStatus = enums.ContractPendingSecondInstallment
			contract.FirstInstallmentPaidAt = &paymentDate
		}

	case 2:
		eligibility := contracts.EligibilityAfterSecondPayment(daysOverdue)
		if eligibility == enums.ContractIneligible {
			if err := contractsRepo.ForceIneligible(ctx, contract.ID); err != nil {
				return err
			}
			contract.EligibilityStatus = enums.ContractIneligible
			break
		}

		swapped, err := contractsRepo.CompareAndSwapEligibility(ctx, contract.ID,
			enums.ContractPendingSecondInstallment, eligibility,
			map[string]any{"second_installment_paid_at": paymentDate})
		if err != nil {
			return err
		}
		if !swapped {
			// Out-of-order payment or a concurrent transition already moved
			// the contract; eligibility is decided exactly once.
			break
		}
		contract.EligibilityStatus = eligibility
		contract.SecondInstallmentPaidAt = &paymentDate

		if contracts.ContributesToSubQuota(installment.Number, daysOverdue) {
			if err := contractsRepo.UpdateInstallment(ctx, installment.ID, map[string]any{
				"contributes_to_sub_quota": true,
			}); err != nil {
				return err
			}
			installment.ContributesToSubQuota = true
			if err := repo.CreateQuotaContribution(ctx, &models.FundQuotaContribution{
				ContractID:    contract.ID,
				InstallmentID: installment.ID,
				QuotaType:     enums.QuotaTypeSub,
				AmountCents:   installment.AmountCents,
			}); err != nil {
				return err
			}
			actions.QuotaContributed = true
		}

		disbursement, err := s.disburser.DisburseTx(ctx, tx, contract)
		if err != nil {
			return err
		}
		actions.Disbursement = disbursement
	}

	actions.ContractEligibility = contract.EligibilityStatus
	return nil
}

// reverseTx undoes a settled installment on refund or chargeback. The
// installment reopens at whatever overdue status its due date implies today;
// a disbursement already posted on the strength of this payment stands, the
// exposure is recovered through drawdowns instead.
func (s *service) reverseTx(ctx context.Context, tx *gorm.DB, contract *models.Contract, installment *models.Installment, paymentDate time.Time) (*AppliedActions, error) {
	if installment.Status != enums.InstallmentStatusPaid {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("cannot reverse installment in status %s", installment.Status))
	}

	daysOverdue := contracts.ComputeDaysOverdue(installment.DueDate, paymentDate)
	status := contracts.StatusForOverdue(enums.InstallmentStatusScheduled, daysOverdue)

	if err := s.contracts.WithTx(tx).UpdateInstallment(ctx, installment.ID, map[string]any{
		"status":            status,
		"paid_at":           nil,
		"paid_amount_cents": int64(0),
		"days_overdue":      daysOverdue,
	}); err != nil {
		return nil, err
	}
	installment.Status = status
	installment.PaidAt = nil
	installment.PaidAmountCents = 0
	installment.DaysOverdue = daysOverdue

	if s.logg != nil {
		logCtx := s.logg.WithInstallmentID(ctx, installment.ID.String())
		s.logg.Warn(logCtx, "installment payment reversed")
	}
	return &AppliedActions{
		InstallmentID:       installment.ID,
		InstallmentStatus:   status,
		ContractEligibility: contract.EligibilityStatus,
	}, nil
}

// MatchAndApply runs the full pipeline for one external record: idempotency
// guard, match cascade, and application when the cascade auto-resolves.
// Replays of the same event id are dropped without touching any state.
func (s *service) MatchAndApply(ctx context.Context, record matching.PaymentRecord) (*ProcessResult, error) {
	if s.matcher == nil {
		return nil, fmt.Errorf("matching service not configured")
	}
	if record.EventID == uuid.Nil {
		record.EventID = uuid.New()
	}

	var key string
	if s.idem != nil {
		key = s.idem.IdempotencyKey(idempotencyScope, record.EventID.String())
		fresh, err := s.idem.SetNX(ctx, key, "1", idempotencyTTL)
		if err != nil {
			return nil, fmt.Errorf("idempotency check: %w", err)
		}
		if !fresh {
			if s.logg != nil {
				logCtx := s.logg.WithField(ctx, "event_id", record.EventID.String())
				s.logg.Info(logCtx, "duplicate payment event dropped")
			}
			return &ProcessResult{Outcome: ProcessDuplicate}, nil
		}
	}

	result, event, err := s.matcher.Resolve(ctx, record)
	if err != nil {
		s.releaseKey(ctx, key)
		return nil, err
	}
	if !result.Matched() {
		return &ProcessResult{Outcome: ProcessPendingReview, Match: result, Event: event}, nil
	}

	applied, err := s.ApplyPayment(ctx, result.Installment.ID, record.AmountCents, record.PaymentDate, record.EventType)
	if err != nil {
		// The event row stays for audit; the key is released so a retry
		// can apply once the conflict clears.
		s.releaseKey(ctx, key)
		return nil, err
	}
	return &ProcessResult{Outcome: ProcessApplied, Match: result, Event: event, Applied: applied}, nil
}

func (s *service) releaseKey(ctx context.Context, key string) {
	if s.idem == nil || key == "" {
		return
	}
	if err := s.idem.Del(ctx, key); err != nil && s.logg != nil {
		s.logg.Error(ctx, "failed to release idempotency key", err)
	}
}
