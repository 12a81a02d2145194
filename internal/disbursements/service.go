package disbursements

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/credfacil/credfacil-backend/internal/contracts"
	"github.com/credfacil/credfacil-backend/internal/ledger"
	"github.com/credfacil/credfacil-backend/pkg/db/models"
	"github.com/credfacil/credfacil-backend/pkg/enums"
	pkgerrors "github.com/credfacil/credfacil-backend/pkg/errors"
	"github.com/credfacil/credfacil-backend/pkg/logger"
)

// MerchantSharePercent is the advanced portion of the remaining receivable.
// The escrow leg takes the rest plus any rounding remainder.
const MerchantSharePercent = 70

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type escrowLookup interface {
	FindAccountByMerchant(ctx context.Context, merchantID uuid.UUID) (*models.EscrowAccount, error)
}

// Service posts the one-time merchant advance.
type Service interface {
	Disburse(ctx context.Context, contractID uuid.UUID) (*models.FundDisbursement, error)
	DisburseTx(ctx context.Context, tx *gorm.DB, contract *models.Contract) (*models.FundDisbursement, error)
}

type service struct {
	tx        txRunner
	repo      Repository
	contracts contracts.Repository
	escrow    escrowLookup
	ledger    ledger.Service
	logg      *logger.Logger
}

// NewService wires the disbursement engine.
func NewService(tx txRunner, repo Repository, contractsRepo contracts.Repository, escrow escrowLookup, ledgerSvc ledger.Service, logg *logger.Logger) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("disbursements repository required")
	}
	if contractsRepo == nil {
		return nil, fmt.Errorf("contracts repository required")
	}
	if escrow == nil {
		return nil, fmt.Errorf("escrow lookup required")
	}
	if ledgerSvc == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	return &service{
		tx:        tx,
		repo:      repo,
		contracts: contractsRepo,
		escrow:    escrow,
		ledger:    ledgerSvc,
		logg:      logg,
	}, nil
}

// ComputeSplit divides the remaining receivable. Integer floor for the
// merchant share; the escrow share absorbs the remainder, so the two always
// sum to the input exactly.
func ComputeSplit(remainingCents int64) (merchantCents, escrowCents int64) {
	merchantCents = remainingCents * MerchantSharePercent / 100
	escrowCents = remainingCents - merchantCents
	return merchantCents, escrowCents
}

// Disburse posts the advance for an eligible contract in its own transaction.
func (s *service) Disburse(ctx context.Context, contractID uuid.UUID) (*models.FundDisbursement, error) {
	if contractID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "contract id required")
	}

	var disbursement *models.FundDisbursement
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		contract, err := s.contracts.WithTx(tx).FindContractForUpdate(ctx, contractID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "contract not found")
		}
		posted, err := s.DisburseTx(ctx, tx, contract)
		if err != nil {
			return err
		}
		disbursement = posted
		return nil
	})
	if err != nil {
		return nil, err
	}
	return disbursement, nil
}

// DisburseTx posts the disbursement inside the caller's transaction. The
// caller must hold the contract row lock. Nothing is written unless the whole
// posting succeeds: existence check, splits, escrow credit, and the contract's
// move to disbursed all ride the same transaction.
func (s *service) DisburseTx(ctx context.Context, tx *gorm.DB, contract *models.Contract) (*models.FundDisbursement, error) {
	if contract == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "contract required")
	}
	if !contract.EligibilityStatus.IsEligible() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("contract is %s, not eligible for disbursement", contract.EligibilityStatus))
	}

	repo := s.repo.WithTx(tx)
	contractsRepo := s.contracts.WithTx(tx)

	exists, err := repo.ExistsForContract(ctx, contract.ID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, pkgerrors.New(pkgerrors.CodeDuplicateDisbursement, "contract already has a disbursement")
	}

	first, err := contractsRepo.FindInstallmentByNumber(ctx, contract.ID, 1)
	if err != nil {
		return nil, err
	}

	remaining := contract.TotalAmountCents - first.AmountCents
	merchantShare, escrowShare := ComputeSplit(remaining)

	disbursement := &models.FundDisbursement{
		ContractID:       contract.ID,
		MerchantID:       contract.MerchantID,
		TotalAmountCents: remaining,
		DisbursedAt:      time.Now().UTC(),
		Splits: []models.DisbursementSplit{
			{Recipient: enums.SplitRecipientMerchant, AmountCents: merchantShare},
			{Recipient: enums.SplitRecipientEscrow, AmountCents: escrowShare},
		},
	}
	if err := repo.Create(ctx, disbursement); err != nil {
		return nil, err
	}

	account, err := s.escrow.FindAccountByMerchant(ctx, contract.MerchantID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "merchant escrow account not found")
	}

	unlock := s.ledger.LockAccount(account.ID)
	defer unlock()

	if _, err := s.ledger.CreditTx(ctx, tx, account.ID, escrowShare, ledger.Reference{
		Type: enums.LedgerRefDisbursement,
		ID:   disbursement.ID,
	}); err != nil {
		return nil, err
	}

	swapped, err := contractsRepo.CompareAndSwapEligibility(ctx, contract.ID, contract.EligibilityStatus, enums.ContractDisbursed, nil)
	if err != nil {
		return nil, err
	}
	if !swapped {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "contract eligibility changed during disbursement")
	}
	contract.EligibilityStatus = enums.ContractDisbursed

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"contract_id":          contract.ID.String(),
			"merchant_share_cents": merchantShare,
			"escrow_share_cents":   escrowShare,
		})
		s.logg.Info(logCtx, "disbursement posted")
	}
	return disbursement, nil
}
