package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/credfacil/credfacil-backend/pkg/db/models"
	"github.com/credfacil/credfacil-backend/pkg/enums"
)

func setupLedgerTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	accounts := `
CREATE TABLE IF NOT EXISTS escrow_accounts (
  id TEXT PRIMARY KEY,
  merchant_id TEXT NOT NULL,
  fund_id TEXT NOT NULL,
  balance_cents INTEGER NOT NULL DEFAULT 0,
  frozen_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	entries := `
CREATE TABLE IF NOT EXISTS escrow_ledger_entries (
  id TEXT PRIMARY KEY,
  escrow_account_id TEXT NOT NULL,
  entry_type TEXT NOT NULL,
  amount_cents INTEGER NOT NULL,
  balance_after_cents INTEGER NOT NULL,
  reference_type TEXT NOT NULL,
  reference_id TEXT NOT NULL,
  created_at DATETIME
);`
	require.NoError(t, db.Exec(accounts).Error)
	require.NoError(t, db.Exec(entries).Error)
	return db
}

func seedEscrowAccount(t *testing.T, db *gorm.DB) *models.EscrowAccount {
	t.Helper()

	account := &models.EscrowAccount{
		ID:         uuid.New(),
		MerchantID: uuid.New(),
		FundID:     uuid.New(),
	}
	require.NoError(t, db.Create(account).Error)
	return account
}

func appendTestEntry(t *testing.T, repo Repository, accountID uuid.UUID, entryType enums.LedgerEntryType, amount, balanceAfter int64, at time.Time) *models.EscrowLedgerEntry {
	t.Helper()

	entry := &models.EscrowLedgerEntry{
		ID:                uuid.New(),
		EscrowAccountID:   accountID,
		EntryType:         entryType,
		AmountCents:       amount,
		BalanceAfterCents: balanceAfter,
		ReferenceType:     enums.LedgerRefDisbursement,
		ReferenceID:       uuid.New(),
		CreatedAt:         at,
	}
	require.NoError(t, repo.AppendEntry(context.Background(), entry))
	return entry
}

func TestRepository_LastEntryOrdering(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	account := seedEscrowAccount(t, db)

	last, err := repo.LastEntry(ctx, account.ID)
	require.NoError(t, err)
	assert.Nil(t, last, "empty account has no chain head")

	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	appendTestEntry(t, repo, account.ID, enums.LedgerEntryCredit, 54000, 54000, base)
	appendTestEntry(t, repo, account.ID, enums.LedgerEntryDebit, 20000, 34000, base.Add(time.Hour))
	head := appendTestEntry(t, repo, account.ID, enums.LedgerEntryCredit, 6000, 40000, base.Add(2*time.Hour))

	last, err = repo.LastEntry(ctx, account.ID)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, head.ID, last.ID)
	assert.EqualValues(t, 40000, last.BalanceAfterCents)
}

func TestRepository_ListEntries(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	account := seedEscrowAccount(t, db)
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	first := appendTestEntry(t, repo, account.ID, enums.LedgerEntryCredit, 54000, 54000, base)
	second := appendTestEntry(t, repo, account.ID, enums.LedgerEntryDebit, 20000, 34000, base.Add(time.Hour))

	listed, err := repo.ListEntries(ctx, account.ID)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, first.ID, listed[0].ID)
	assert.Equal(t, second.ID, listed[1].ID)
}

func TestRepository_UpdateBalance(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	account := seedEscrowAccount(t, db)
	require.NoError(t, repo.UpdateBalance(ctx, account.ID, 34000))

	found, err := repo.FindAccount(ctx, account.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 34000, found.BalanceCents)
}

func TestRepository_FreezeAccountOnce(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	account := seedEscrowAccount(t, db)
	firstFreeze := time.Date(2026, 5, 2, 9, 0, 0, 0, time.UTC)
	require.NoError(t, repo.FreezeAccount(ctx, account.ID, firstFreeze))

	found, err := repo.FindAccount(ctx, account.ID)
	require.NoError(t, err)
	require.NotNil(t, found.FrozenAt)
	assert.True(t, found.FrozenAt.Equal(firstFreeze))

	// The original freeze timestamp survives repeated violation reports.
	require.NoError(t, repo.FreezeAccount(ctx, account.ID, firstFreeze.Add(24*time.Hour)))
	found, err = repo.FindAccount(ctx, account.ID)
	require.NoError(t, err)
	require.NotNil(t, found.FrozenAt)
	assert.True(t, found.FrozenAt.Equal(firstFreeze))
}

func TestRepository_FindAccountByMerchant(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	account := seedEscrowAccount(t, db)
	found, err := repo.FindAccountByMerchant(ctx, account.MerchantID)
	require.NoError(t, err)
	assert.Equal(t, account.ID, found.ID)
}
