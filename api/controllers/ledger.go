package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/credfacil/credfacil-backend/api/responses"
	"github.com/credfacil/credfacil-backend/internal/ledger"
	pkgerrors "github.com/credfacil/credfacil-backend/pkg/errors"
	"github.com/credfacil/credfacil-backend/pkg/logger"
)

type ledgerEntryView struct {
	ID                uuid.UUID `json:"id"`
	EntryType         string    `json:"entry_type"`
	AmountCents       int64     `json:"amount_cents"`
	BalanceAfterCents int64     `json:"balance_after_cents"`
	ReferenceType     string    `json:"reference_type"`
	ReferenceID       uuid.UUID `json:"reference_id"`
	CreatedAt         time.Time `json:"created_at"`
}

// LedgerEntries lists an escrow account's full entry chain, oldest first.
func LedgerEntries(repo ledger.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger repository unavailable"))
			return
		}

		accountID, err := uuid.Parse(chi.URLParam(r, "accountId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid account id"))
			return
		}

		account, err := repo.FindAccount(r.Context(), accountID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "escrow account not found"))
			return
		}
		entries, err := repo.ListEntries(r.Context(), accountID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		views := make([]ledgerEntryView, 0, len(entries))
		for _, entry := range entries {
			views = append(views, ledgerEntryView{
				ID:                entry.ID,
				EntryType:         entry.EntryType.String(),
				AmountCents:       entry.AmountCents,
				BalanceAfterCents: entry.BalanceAfterCents,
				ReferenceType:     entry.ReferenceType.String(),
				ReferenceID:       entry.ReferenceID,
				CreatedAt:         entry.CreatedAt,
			})
		}

		responses.WriteSuccess(w, map[string]any{
			"account_id":    account.ID,
			"balance_cents": account.BalanceCents,
			"frozen_at":     account.FrozenAt,
			"entries":       views,
		})
	}
}

// LedgerVerify replays an account's chain against its stored balance.
func LedgerVerify(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}

		accountID, err := uuid.Parse(chi.URLParam(r, "accountId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid account id"))
			return
		}

		if err := svc.VerifyAccount(r.Context(), accountID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "consistent"})
	}
}
