package recovery

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

func setupRecoveryTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	drawdowns := `
CREATE TABLE IF NOT EXISTS escrow_drawdowns (
  id TEXT PRIMARY KEY,
  escrow_account_id TEXT NOT NULL,
  installment_id TEXT NOT NULL,
  amount_cents INTEGER NOT NULL,
  reason TEXT NOT NULL,
  executed_at DATETIME NOT NULL,
  created_at DATETIME
);`
	charges := `
CREATE TABLE IF NOT EXISTS tokenized_card_charges (
  id TEXT PRIMARY KEY,
  installment_id TEXT NOT NULL,
  card_token TEXT NOT NULL,
  attempt_number INTEGER NOT NULL,
  amount_cents INTEGER NOT NULL,
  status TEXT NOT NULL,
  gateway_reference TEXT,
  failure_reason TEXT,
  attempted_at DATETIME NOT NULL,
  created_at DATETIME
);`
	require.NoError(t, db.Exec(drawdowns).Error)
	require.NoError(t, db.Exec(charges).Error)
	require.NoError(t, db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS ux_tokenized_card_charges_attempt
ON tokenized_card_charges (installment_id, attempt_number);`).Error)
	return db
}

func TestRepository_DrawdownExistence(t *testing.T) {
	db := setupRecoveryTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	installmentID := uuid.New()
	exists, err := repo.ExistsDrawdownForInstallment(ctx, installmentID)
	require.NoError(t, err)
	assert.False(t, exists)

	accountID := uuid.New()
	require.NoError(t, repo.CreateDrawdown(ctx, &models.EscrowDrawdown{
		ID:              uuid.New(),
		EscrowAccountID: accountID,
		InstallmentID:   installmentID,
		AmountCents:     50000,
		Reason:          enums.DrawdownReasonLatePayment,
		ExecutedAt:      time.Date(2026, 5, 20, 10, 0, 0, 0, time.UTC),
	}))

	exists, err = repo.ExistsDrawdownForInstallment(ctx, installmentID)
	require.NoError(t, err)
	assert.True(t, exists)

	listed, err := repo.ListDrawdownsByAccount(ctx, accountID)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, installmentID, listed[0].InstallmentID)
	assert.EqualValues(t, 50000, listed[0].AmountCents)
}

func TestRepository_MaxAttemptNumber(t *testing.T) {
	db := setupRecoveryTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	installmentID := uuid.New()
	max, err := repo.MaxAttemptNumber(ctx, installmentID)
	require.NoError(t, err)
	assert.Equal(t, 0, max, "no attempts yet")

	reason := "card_declined"
	attemptedAt := time.Date(2026, 5, 21, 9, 0, 0, 0, time.UTC)
	require.NoError(t, repo.CreateCharge(ctx, &models.TokenizedCardCharge{
		ID:            uuid.New(),
		InstallmentID: installmentID,
		CardToken:     "tok_fallback_1",
		AttemptNumber: 1,
		AmountCents:   50000,
		Status:        enums.CardChargeFailed,
		FailureReason: &reason,
		AttemptedAt:   attemptedAt,
	}))
	gatewayRef := "ch_123"
	require.NoError(t, repo.CreateCharge(ctx, &models.TokenizedCardCharge{
		ID:               uuid.New(),
		InstallmentID:    installmentID,
		CardToken:        "tok_fallback_1",
		AttemptNumber:    2,
		AmountCents:      50000,
		Status:           enums.CardChargeSucceeded,
		GatewayReference: &gatewayRef,
		AttemptedAt:      attemptedAt.Add(24 * time.Hour),
	}))

	max, err = repo.MaxAttemptNumber(ctx, installmentID)
	require.NoError(t, err)
	assert.Equal(t, 2, max)

	charges, err := repo.ListChargesByInstallment(ctx, installmentID)
	require.NoError(t, err)
	require.Len(t, charges, 2)
	assert.Equal(t, enums.CardChargeFailed, charges[0].Status, "failed attempts stay on record")
	require.NotNil(t, charges[1].GatewayReference)
	assert.Equal(t, "ch_123", *charges[1].GatewayReference)
}

func TestRepository_AttemptNumberUniquePerInstallment(t *testing.T) {
	db := setupRecoveryTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	installmentID := uuid.New()
	attemptedAt := time.Date(2026, 5, 22, 9, 0, 0, 0, time.UTC)
	require.NoError(t, repo.CreateCharge(ctx, &models.TokenizedCardCharge{
		ID:            uuid.New(),
		InstallmentID: installmentID,
		CardToken:     "tok_fallback_1",
		AttemptNumber: 1,
		AmountCents:   50000,
		Status:        enums.CardChargeFailed,
		AttemptedAt:   attemptedAt,
	}))

	// Two racing attempts that both computed attempt 1 cannot both land.
	err := repo.CreateCharge(ctx, &models.TokenizedCardCharge{
		ID:            uuid.New(),
		InstallmentID: installmentID,
		CardToken:     "tok_fallback_1",
		AttemptNumber: 1,
		AmountCents:   50000,
		Status:        enums.CardChargeFailed,
		AttemptedAt:   attemptedAt.Add(time.Second),
	})
	require.Error(t, err)

	// The same attempt number on another installment is unaffected.
	require.NoError(t, repo.CreateCharge(ctx, &models.TokenizedCardCharge{
		ID:            uuid.New(),
		InstallmentID: uuid.New(),
		CardToken:     "tok_fallback_2",
		AttemptNumber: 1,
		AmountCents:   20000,
		Status:        enums.CardChargeSucceeded,
		AttemptedAt:   attemptedAt,
	}))
}
