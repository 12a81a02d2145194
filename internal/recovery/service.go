package recovery

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/credfacil/credfacil-backend/internal/contracts"
	"github.com/credfacil/credfacil-backend/internal/disbursements"
	"github.com/credfacil/credfacil-backend/internal/ledger"
	"github.com/credfacil/credfacil-backend/internal/payments"
	"github.com/credfacil/credfacil-backend/pkg/db"
	"github.com/credfacil/credfacil-backend/pkg/db/models"
	"github.com/credfacil/credfacil-backend/pkg/enums"
	pkgerrors "github.com/credfacil/credfacil-backend/pkg/errors"
	"github.com/credfacil/credfacil-backend/pkg/logger"
	"github.com/credfacil/credfacil-backend/pkg/stripe"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type escrowLookup interface {
	FindAccountByMerchant(ctx context.Context, merchantID uuid.UUID) (*models.EscrowAccount, error)
}

type cardGateway interface {
	ChargeCard(ctx context.Context, cardToken string, amountCents int64, reference string, timeout time.Duration) (stripe.ChargeResult, error)
}

// Service recovers overdue exposure: escrow drawdowns first, fallback card
// charges when a tokenized card is on file.
type Service interface {
	ExecuteDrawdown(ctx context.Context, installmentID uuid.UUID) (*models.EscrowDrawdown, error)
	AttemptFallbackCharge(ctx context.Context, installmentID uuid.UUID) (*models.TokenizedCardCharge, error)
}

type service struct {
	tx            txRunner
	repo          Repository
	contracts     contracts.Repository
	disbRepo      disbursements.Repository
	escrow        escrowLookup
	ledger        ledger.Service
	gateway       cardGateway
	applier       payments.Service
	chargeTimeout time.Duration
	logg          *logger.Logger
}

// NewService wires the recovery engine. gateway may be nil when card
// recovery is disabled; AttemptFallbackCharge then fails fast.
func NewService(
	tx txRunner,
	repo Repository,
	contractsRepo contracts.Repository,
	disbRepo disbursements.Repository,
	escrow escrowLookup,
	ledgerSvc ledger.Service,
	gateway cardGateway,
	applier payments.Service,
	chargeTimeout time.Duration,
	logg *logger.Logger,
) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("recovery repository required")
	}
	if contractsRepo == nil {
		return nil, fmt.Errorf("contracts repository required")
	}
	if disbRepo == nil {
		return nil, fmt.Errorf("disbursements repository required")
	}
	if escrow == nil {
		return nil, fmt.Errorf("escrow lookup required")
	}
	if ledgerSvc == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if applier == nil {
		return nil, fmt.Errorf("payment service required")
	}
	if chargeTimeout <= 0 {
		chargeTimeout = 15 * time.Second
	}
	return &service{
		tx:            tx,
		repo:          repo,
		contracts:     contractsRepo,
		disbRepo:      disbRepo,
		escrow:        escrow,
		ledger:        ledgerSvc,
		gateway:       gateway,
		applier:       applier,
		chargeTimeout: chargeTimeout,
		logg:          logg,
	}, nil
}

// ExecuteDrawdown debits the merchant's escrow for the full amount of one
// overdue installment. The debit is all-or-nothing; if the balance cannot
// cover it the transaction rolls back and nothing changes.
func (s *service) ExecuteDrawdown(ctx context.Context, installmentID uuid.UUID) (*models.EscrowDrawdown, error) {
	if installmentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "installment id required")
	}

	var drawdown *models.EscrowDrawdown
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		contractsRepo := s.contracts.WithTx(tx)

		installment, err := contractsRepo.FindInstallmentForUpdate(ctx, installmentID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "installment not found")
		}

		var reason enums.DrawdownReason
		switch installment.Status {
		case enums.InstallmentStatusDefaulted:
			reason = enums.DrawdownReasonDefaultCoverage
		case enums.InstallmentStatusLate:
			reason = enums.DrawdownReasonLatePayment
		default:
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("installment is %s, drawdowns cover late or defaulted installments only", installment.Status))
		}

		contract, err := contractsRepo.FindContractForUpdate(ctx, installment.ContractID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "contract not found")
		}

		disbursed, err := s.disbRepo.WithTx(tx).ExistsForContract(ctx, contract.ID)
		if err != nil {
			return err
		}
		if !disbursed {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "no disbursement posted for this contract, nothing to recover")
		}

		covered, err := repo.ExistsDrawdownForInstallment(ctx, installmentID)
		if err != nil {
			return err
		}
		if covered {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "installment already covered by a drawdown")
		}

		account, err := s.escrow.FindAccountByMerchant(ctx, contract.MerchantID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "merchant escrow account not found")
		}

		drawdown = &models.EscrowDrawdown{
			EscrowAccountID: account.ID,
			InstallmentID:   installment.ID,
			AmountCents:     installment.AmountCents,
			Reason:          reason,
			ExecutedAt:      time.Now().UTC(),
		}
		if err := repo.CreateDrawdown(ctx, drawdown); err != nil {
			return err
		}

		unlock := s.ledger.LockAccount(account.ID)
		defer unlock()

		if _, err := s.ledger.DebitTx(ctx, tx, account.ID, installment.AmountCents, ledger.Reference{
			Type: enums.LedgerRefDrawdown,
			ID:   drawdown.ID,
		}); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"installment_id": installmentID.String(),
			"amount_cents":   drawdown.AmountCents,
			"reason":         drawdown.Reason.String(),
		})
		s.logg.Info(logCtx, "escrow drawdown executed")
	}
	return drawdown, nil
}

// AttemptFallbackCharge runs one off-session charge against the contract's
// tokenized fallback card for the installment's outstanding amount. The
// attempt is persisted whether the gateway accepts, declines, or cannot be
// reached; a successful charge is applied like any other full payment.
func (s *service) AttemptFallbackCharge(ctx context.Context, installmentID uuid.UUID) (*models.TokenizedCardCharge, error) {
	if installmentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "installment id required")
	}
	if s.gateway == nil {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "card gateway not configured")
	}

	installment, err := s.contracts.FindInstallment(ctx, installmentID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "installment not found")
	}
	if installment.Status.IsTerminal() {
		return nil, pkgerrors.New(pkgerrors.CodeAlreadySettled,
			fmt.Sprintf("installment is already %s", installment.Status))
	}

	contract, err := s.contracts.FindContract(ctx, installment.ContractID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "contract not found")
	}
	if contract.FallbackCardID == nil || *contract.FallbackCardID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "contract has no fallback card on file")
	}

	attempt, err := s.repo.MaxAttemptNumber(ctx, installmentID)
	if err != nil {
		return nil, err
	}
	attempt++

	outstanding := installment.AmountCents - installment.PaidAmountCents
	if outstanding <= 0 {
		outstanding = installment.AmountCents
	}

	reference := fmt.Sprintf("installment-%s-attempt-%d", installment.ID, attempt)
	charge := &models.TokenizedCardCharge{
		InstallmentID: installment.ID,
		CardToken:     *contract.FallbackCardID,
		AttemptNumber: attempt,
		AmountCents:   outstanding,
		Status:        enums.CardChargeFailed,
		AttemptedAt:   time.Now().UTC(),
	}

	result, gatewayErr := s.gateway.ChargeCard(ctx, *contract.FallbackCardID, outstanding, reference, s.chargeTimeout)
	if gatewayErr != nil {
		// A transport failure still burns the attempt: the charge may have
		// reached the gateway, and the idempotency key for this attempt
		// number stays fixed, so a retry cannot capture twice.
		reason := fmt.Sprintf("gateway unreachable: %v", gatewayErr)
		charge.FailureReason = &reason
		if err := s.persistCharge(ctx, charge); err != nil {
			return nil, err
		}
		if s.logg != nil {
			logCtx := s.logg.WithFields(ctx, map[string]any{
				"installment_id": installmentID.String(),
				"attempt":        attempt,
			})
			s.logg.Error(logCtx, "fallback card charge did not reach the gateway", gatewayErr)
		}
		return charge, pkgerrors.Wrap(pkgerrors.CodeInternal, gatewayErr, "card gateway unreachable")
	}

	if result.GatewayReference != "" {
		charge.GatewayReference = &result.GatewayReference
	}
	if result.Succeeded {
		charge.Status = enums.CardChargeSucceeded
	} else if result.FailureReason != "" {
		charge.FailureReason = &result.FailureReason
	}

	// The attempt row is written before the payment lands so a crash in
	// between never loses the audit trail of a captured charge.
	if err := s.persistCharge(ctx, charge); err != nil {
		return nil, err
	}

	if !result.Succeeded {
		if s.logg != nil {
			logCtx := s.logg.WithFields(ctx, map[string]any{
				"installment_id": installmentID.String(),
				"attempt":        attempt,
				"reason":         result.FailureReason,
			})
			s.logg.Warn(logCtx, "fallback card charge declined")
		}
		return charge, nil
	}

	if _, err := s.applier.ApplyPayment(ctx, installmentID, outstanding, charge.AttemptedAt, enums.PaymentEventFull); err != nil {
		if s.logg != nil {
			logCtx := s.logg.WithInstallmentID(ctx, installmentID.String())
			s.logg.Error(logCtx, "captured card charge could not be applied", err)
		}
		return charge, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"installment_id": installmentID.String(),
			"attempt":        attempt,
			"amount_cents":   outstanding,
		})
		s.logg.Info(logCtx, "fallback card charge captured and applied")
	}
	return charge, nil
}

// persistCharge writes the attempt row. Attempt numbers are unique per
// installment, so a concurrent attempt that claimed the same number surfaces
// as a conflict instead of a second row.
func (s *service) persistCharge(ctx context.Context, charge *models.TokenizedCardCharge) error {
	if err := s.repo.CreateCharge(ctx, charge); err != nil {
		if db.IsUniqueViolation(err, "ux_tokenized_card_charges_attempt") {
			return pkgerrors.Wrap(pkgerrors.CodeConflict, err,
				fmt.Sprintf("attempt %d already recorded for this installment", charge.AttemptNumber))
		}
		return err
	}
	return nil
}
