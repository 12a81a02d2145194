package ledger

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/credfacil/credfacil-backend/pkg/db/models"
	"github.com/credfacil/credfacil-backend/pkg/enums"
	pkgerrors "github.com/credfacil/credfacil-backend/pkg/errors"
)

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

// fakeRepository keeps one account's state in memory. It does no locking of
// its own; the service's per-account serialization is what keeps it safe.
type fakeRepository struct {
	account *models.EscrowAccount
	entries []models.EscrowLedgerEntry
}

func newFakeRepository(balance int64) *fakeRepository {
	return &fakeRepository{
		account: &models.EscrowAccount{
			ID:           uuid.New(),
			MerchantID:   uuid.New(),
			FundID:       uuid.New(),
			BalanceCents: balance,
		},
	}
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepository) CreateAccount(ctx context.Context, account *models.EscrowAccount) error {
	f.account = account
	return nil
}

func (f *fakeRepository) FindAccount(ctx context.Context, id uuid.UUID) (*models.EscrowAccount, error) {
	if f.account == nil || f.account.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *f.account
	return &copied, nil
}

func (f *fakeRepository) FindAccountForUpdate(ctx context.Context, id uuid.UUID) (*models.EscrowAccount, error) {
	return f.FindAccount(ctx, id)
}

func (f *fakeRepository) FindAccountByMerchant(ctx context.Context, merchantID uuid.UUID) (*models.EscrowAccount, error) {
	if f.account == nil || f.account.MerchantID != merchantID {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *f.account
	return &copied, nil
}

func (f *fakeRepository) LastEntry(ctx context.Context, accountID uuid.UUID) (*models.EscrowLedgerEntry, error) {
	if len(f.entries) == 0 {
		return nil, nil
	}
	last := f.entries[len(f.entries)-1]
	return &last, nil
}

func (f *fakeRepository) AppendEntry(ctx context.Context, entry *models.EscrowLedgerEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeRepository) UpdateBalance(ctx context.Context, accountID uuid.UUID, balanceCents int64) error {
	f.account.BalanceCents = balanceCents
	return nil
}

func (f *fakeRepository) FreezeAccount(ctx context.Context, accountID uuid.UUID, at time.Time) error {
	if f.account.FrozenAt == nil {
		f.account.FrozenAt = &at
	}
	return nil
}

func (f *fakeRepository) ListEntries(ctx context.Context, accountID uuid.UUID) ([]models.EscrowLedgerEntry, error) {
	out := make([]models.EscrowLedgerEntry, len(f.entries))
	copy(out, f.entries)
	return out, nil
}

func newTestService(t *testing.T, repo Repository) Service {
	t.Helper()
	svc, err := NewService(stubTxRunner{}, repo, nil)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}
	return svc
}

func ref() Reference {
	return Reference{Type: enums.LedgerRefAdjustment, ID: uuid.New()}
}

func TestService_CreditDebitSequencing(t *testing.T) {
	repo := newFakeRepository(0)
	svc := newTestService(t, repo)
	ctx := context.Background()

	credit, err := svc.Credit(ctx, repo.account.ID, 100000, ref())
	if err != nil {
		t.Fatalf("Credit error: %v", err)
	}
	if credit.BalanceAfterCents != 100000 {
		t.Fatalf("balance after credit %d, want 100000", credit.BalanceAfterCents)
	}

	debit, err := svc.Debit(ctx, repo.account.ID, 40000, ref())
	if err != nil {
		t.Fatalf("Debit error: %v", err)
	}
	if debit.BalanceAfterCents != 60000 {
		t.Fatalf("balance after debit %d, want 60000", debit.BalanceAfterCents)
	}
	if repo.account.BalanceCents != 60000 {
		t.Fatalf("stored balance %d, want 60000", repo.account.BalanceCents)
	}
	if len(repo.entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(repo.entries))
	}
	if repo.entries[0].EntryType != enums.LedgerEntryCredit || repo.entries[1].EntryType != enums.LedgerEntryDebit {
		t.Fatalf("entry types %s / %s", repo.entries[0].EntryType, repo.entries[1].EntryType)
	}
}

func TestService_DebitInsufficientBalance(t *testing.T) {
	repo := newFakeRepository(30000)
	svc := newTestService(t, repo)

	_, err := svc.Debit(context.Background(), repo.account.ID, 50000, ref())
	if !pkgerrors.IsCode(err, pkgerrors.CodeInsufficientBalance) {
		t.Fatalf("expected insufficient balance, got %v", err)
	}
	if len(repo.entries) != 0 {
		t.Fatalf("entry appended despite failed debit")
	}
	if repo.account.BalanceCents != 30000 {
		t.Fatalf("balance mutated to %d", repo.account.BalanceCents)
	}
	if repo.account.FrozenAt != nil {
		t.Fatal("insufficient balance must not freeze the account")
	}
}

func TestService_ValidationErrors(t *testing.T) {
	repo := newFakeRepository(0)
	svc := newTestService(t, repo)
	ctx := context.Background()

	if _, err := svc.Credit(ctx, uuid.Nil, 100, ref()); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("nil account: %v", err)
	}
	if _, err := svc.Credit(ctx, repo.account.ID, 0, ref()); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("zero amount: %v", err)
	}
	if _, err := svc.Credit(ctx, repo.account.ID, 100, Reference{}); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("empty reference: %v", err)
	}
}

func TestService_FrozenAccountRejectsWrites(t *testing.T) {
	repo := newFakeRepository(1000)
	now := time.Now().UTC()
	repo.account.FrozenAt = &now
	svc := newTestService(t, repo)

	_, err := svc.Credit(context.Background(), repo.account.ID, 100, ref())
	if !pkgerrors.IsCode(err, pkgerrors.CodeInvariantViolation) {
		t.Fatalf("expected invariant violation, got %v", err)
	}
}

func TestService_ChainHeadMismatchFreezes(t *testing.T) {
	repo := newFakeRepository(0)
	svc := newTestService(t, repo)
	ctx := context.Background()

	if _, err := svc.Credit(ctx, repo.account.ID, 500, ref()); err != nil {
		t.Fatalf("seed credit: %v", err)
	}

	// Tamper with the stored balance so it disagrees with the chain head.
	repo.account.BalanceCents = 9999

	_, err := svc.Credit(ctx, repo.account.ID, 100, ref())
	if !pkgerrors.IsCode(err, pkgerrors.CodeInvariantViolation) {
		t.Fatalf("expected invariant violation, got %v", err)
	}
	if repo.account.FrozenAt == nil {
		t.Fatal("account should be frozen after a chain head mismatch")
	}
	if len(repo.entries) != 1 {
		t.Fatalf("entry appended on corrupted state: %d entries", len(repo.entries))
	}
}

func TestService_VerifyAccount(t *testing.T) {
	repo := newFakeRepository(0)
	svc := newTestService(t, repo)
	ctx := context.Background()

	for _, amount := range []int64{1000, 2500, 400} {
		if _, err := svc.Credit(ctx, repo.account.ID, amount, ref()); err != nil {
			t.Fatalf("seed credit: %v", err)
		}
	}
	if _, err := svc.Debit(ctx, repo.account.ID, 900, ref()); err != nil {
		t.Fatalf("seed debit: %v", err)
	}

	if err := svc.VerifyAccount(ctx, repo.account.ID); err != nil {
		t.Fatalf("consistent account failed verification: %v", err)
	}

	// Corrupt one intermediate entry; the replay must catch it and freeze.
	repo.entries[1].BalanceAfterCents += 7

	err := svc.VerifyAccount(ctx, repo.account.ID)
	if !pkgerrors.IsCode(err, pkgerrors.CodeInvariantViolation) {
		t.Fatalf("expected invariant violation, got %v", err)
	}
	if repo.account.FrozenAt == nil {
		t.Fatal("account should be frozen after failed verification")
	}
}

func TestService_ConcurrentPostingsSerialize(t *testing.T) {
	repo := newFakeRepository(0)
	svc := newTestService(t, repo)
	ctx := context.Background()

	const workers = 50
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			if _, err := svc.Credit(ctx, repo.account.ID, 10, ref()); err != nil {
				t.Errorf("concurrent credit: %v", err)
			}
		}()
	}
	wg.Wait()

	if repo.account.BalanceCents != workers*10 {
		t.Fatalf("final balance %d, want %d", repo.account.BalanceCents, workers*10)
	}
	if len(repo.entries) != workers {
		t.Fatalf("entry count %d, want %d", len(repo.entries), workers)
	}
	if err := svc.VerifyAccount(ctx, repo.account.ID); err != nil {
		t.Fatalf("chain inconsistent after concurrent postings: %v", err)
	}
}
