package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/credfacil/credfacil-backend/pkg/db/models"
	"github.com/credfacil/credfacil-backend/pkg/enums"
	pkgerrors "github.com/credfacil/credfacil-backend/pkg/errors"
	"github.com/credfacil/credfacil-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Reference identifies the record a ledger entry was posted for.
type Reference struct {
	Type enums.LedgerReferenceType
	ID   uuid.UUID
}

// Service exposes the two escrow ledger primitives plus integrity checks.
// Credit and Debit serialize per account: an in-process keyed mutex plus a
// FOR UPDATE row lock inside the transaction. Operations on different
// accounts proceed in parallel.
type Service interface {
	Credit(ctx context.Context, accountID uuid.UUID, amountCents int64, ref Reference) (*models.EscrowLedgerEntry, error)
	Debit(ctx context.Context, accountID uuid.UUID, amountCents int64, ref Reference) (*models.EscrowLedgerEntry, error)
	CreditTx(ctx context.Context, tx *gorm.DB, accountID uuid.UUID, amountCents int64, ref Reference) (*models.EscrowLedgerEntry, error)
	DebitTx(ctx context.Context, tx *gorm.DB, accountID uuid.UUID, amountCents int64, ref Reference) (*models.EscrowLedgerEntry, error)
	LockAccount(accountID uuid.UUID) func()
	VerifyAccount(ctx context.Context, accountID uuid.UUID) error
}

type service struct {
	tx    txRunner
	repo  Repository
	logg  *logger.Logger
	locks sync.Map // account id -> *sync.Mutex
}

// NewService wires an escrow ledger service.
func NewService(tx txRunner, repo Repository, logg *logger.Logger) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	return &service{tx: tx, repo: repo, logg: logg}, nil
}

func (s *service) Credit(ctx context.Context, accountID uuid.UUID, amountCents int64, ref Reference) (*models.EscrowLedgerEntry, error) {
	return s.post(ctx, accountID, amountCents, enums.LedgerEntryCredit, ref)
}

func (s *service) Debit(ctx context.Context, accountID uuid.UUID, amountCents int64, ref Reference) (*models.EscrowLedgerEntry, error) {
	return s.post(ctx, accountID, amountCents, enums.LedgerEntryDebit, ref)
}

// CreditTx posts a credit inside an existing transaction. The caller must
// hold the account lock (LockAccount) for the duration of the transaction.
func (s *service) CreditTx(ctx context.Context, tx *gorm.DB, accountID uuid.UUID, amountCents int64, ref Reference) (*models.EscrowLedgerEntry, error) {
	return s.postTx(ctx, tx, accountID, amountCents, enums.LedgerEntryCredit, ref)
}

// DebitTx posts a debit inside an existing transaction, same locking contract
// as CreditTx.
func (s *service) DebitTx(ctx context.Context, tx *gorm.DB, accountID uuid.UUID, amountCents int64, ref Reference) (*models.EscrowLedgerEntry, error) {
	return s.postTx(ctx, tx, accountID, amountCents, enums.LedgerEntryDebit, ref)
}

// LockAccount acquires the per-account mutex and returns its release func.
func (s *service) LockAccount(accountID uuid.UUID) func() {
	mu := s.lockFor(accountID)
	mu.Lock()
	return mu.Unlock
}

func (s *service) post(ctx context.Context, accountID uuid.UUID, amountCents int64, entryType enums.LedgerEntryType, ref Reference) (*models.EscrowLedgerEntry, error) {
	if accountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "escrow account id required")
	}

	unlock := s.LockAccount(accountID)
	defer unlock()

	var entry *models.EscrowLedgerEntry
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		posted, err := s.postTx(ctx, tx, accountID, amountCents, entryType, ref)
		if err != nil {
			return err
		}
		entry = posted
		return nil
	})
	if err != nil {
		s.freezeOnViolation(ctx, accountID, err)
		return nil, err
	}
	return entry, nil
}

func (s *service) postTx(ctx context.Context, tx *gorm.DB, accountID uuid.UUID, amountCents int64, entryType enums.LedgerEntryType, ref Reference) (*models.EscrowLedgerEntry, error) {
	if amountCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "ledger amount must be positive")
	}
	if !ref.Type.IsValid() || ref.ID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "ledger reference required")
	}

	repo := s.repo.WithTx(tx)

	account, err := repo.FindAccountForUpdate(ctx, accountID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "escrow account not found")
	}
	if account.FrozenAt != nil {
		return nil, pkgerrors.New(pkgerrors.CodeInvariantViolation, "escrow account is frozen")
	}

	// The chain head must agree with the stored balance before any write.
	last, err := repo.LastEntry(ctx, accountID)
	if err != nil {
		return nil, err
	}
	var chainHead int64
	if last != nil {
		chainHead = last.BalanceAfterCents
	}
	if chainHead != account.BalanceCents {
		return nil, pkgerrors.New(pkgerrors.CodeInvariantViolation,
			fmt.Sprintf("ledger chain head %d disagrees with balance %d", chainHead, account.BalanceCents))
	}

	var balanceAfter int64
	switch entryType {
	case enums.LedgerEntryCredit:
		balanceAfter = account.BalanceCents + amountCents
	case enums.LedgerEntryDebit:
		if amountCents > account.BalanceCents {
			return nil, pkgerrors.New(pkgerrors.CodeInsufficientBalance,
				fmt.Sprintf("debit of %d exceeds balance %d", amountCents, account.BalanceCents)).
				WithDetails(map[string]any{
					"account_id":    accountID.String(),
					"balance_cents": account.BalanceCents,
					"debit_cents":   amountCents,
				})
		}
		balanceAfter = account.BalanceCents - amountCents
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid ledger entry type")
	}

	entry := &models.EscrowLedgerEntry{
		EscrowAccountID:   accountID,
		EntryType:         entryType,
		AmountCents:       amountCents,
		BalanceAfterCents: balanceAfter,
		ReferenceType:     ref.Type,
		ReferenceID:       ref.ID,
	}

	// The entry append and the balance update ride the same transaction;
	// a torn write is impossible short of a storage fault.
	if err := repo.AppendEntry(ctx, entry); err != nil {
		return nil, err
	}
	if err := repo.UpdateBalance(ctx, accountID, balanceAfter); err != nil {
		return nil, err
	}
	return entry, nil
}

// VerifyAccount replays the full entry chain and checks it against the stored
// balance. A violation freezes the account so no further writes land on
// corrupted state.
func (s *service) VerifyAccount(ctx context.Context, accountID uuid.UUID) error {
	if accountID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "escrow account id required")
	}

	unlock := s.LockAccount(accountID)
	defer unlock()

	account, err := s.repo.FindAccount(ctx, accountID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "escrow account not found")
	}

	entries, err := s.repo.ListEntries(ctx, accountID)
	if err != nil {
		return err
	}

	var running int64
	for i, entry := range entries {
		switch entry.EntryType {
		case enums.LedgerEntryCredit:
			running += entry.AmountCents
		case enums.LedgerEntryDebit:
			running -= entry.AmountCents
		}
		if entry.BalanceAfterCents != running {
			err := pkgerrors.New(pkgerrors.CodeInvariantViolation,
				fmt.Sprintf("entry %d balance_after %d, replay says %d", i, entry.BalanceAfterCents, running))
			s.freezeOnViolation(ctx, accountID, err)
			return err
		}
	}
	if running != account.BalanceCents {
		err := pkgerrors.New(pkgerrors.CodeInvariantViolation,
			fmt.Sprintf("replayed balance %d disagrees with stored balance %d", running, account.BalanceCents))
		s.freezeOnViolation(ctx, accountID, err)
		return err
	}
	return nil
}

// freezeOnViolation persists the freeze outside the rolled-back transaction.
func (s *service) freezeOnViolation(ctx context.Context, accountID uuid.UUID, err error) {
	if !pkgerrors.IsCode(err, pkgerrors.CodeInvariantViolation) {
		return
	}
	if freezeErr := s.repo.FreezeAccount(ctx, accountID, time.Now().UTC()); freezeErr != nil && s.logg != nil {
		s.logg.Error(ctx, "failed to freeze escrow account after invariant violation", freezeErr)
	}
	if s.logg != nil {
		logCtx := s.logg.WithField(ctx, "escrow_account_id", accountID.String())
		s.logg.Error(logCtx, "escrow ledger invariant violation, account frozen", err)
	}
}

func (s *service) lockFor(accountID uuid.UUID) *sync.Mutex {
	actual, _ := s.locks.LoadOrStore(accountID, &sync.Mutex{})
	return actual.(*sync.Mutex)
}
