package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/credfacil/credfacil-backend/api/responses"
	"github.com/credfacil/credfacil-backend/api/validators"
	"github.com/credfacil/credfacil-backend/internal/reconciliation"
	"github.com/credfacil/credfacil-backend/pkg/db/models"
	pkgerrors "github.com/credfacil/credfacil-backend/pkg/errors"
	"github.com/credfacil/credfacil-backend/pkg/logger"
)

type reconcileRequest struct {
	PeriodStart time.Time `json:"period_start" validate:"required"`
	PeriodEnd   time.Time `json:"period_end" validate:"required"`
}

type reconciliationItemView struct {
	InstallmentID       uuid.UUID `json:"installment_id"`
	ExpectedAmountCents int64     `json:"expected_amount_cents"`
	ActualAmountCents   int64     `json:"actual_amount_cents"`
	Status              string    `json:"status"`
	Reason              *string   `json:"reason,omitempty"`
}

type reconciliationFileView struct {
	ID              uuid.UUID                `json:"id"`
	PeriodStart     time.Time                `json:"period_start"`
	PeriodEnd       time.Time                `json:"period_end"`
	MatchedCount    int                      `json:"matched_count"`
	MismatchedCount int                      `json:"mismatched_count"`
	Items           []reconciliationItemView `json:"items,omitempty"`
}

func newReconciliationFileView(file *models.ReconciliationFile) reconciliationFileView {
	view := reconciliationFileView{
		ID:              file.ID,
		PeriodStart:     file.PeriodStart,
		PeriodEnd:       file.PeriodEnd,
		MatchedCount:    file.MatchedCount,
		MismatchedCount: file.MismatchedCount,
	}
	for _, item := range file.Items {
		view.Items = append(view.Items, reconciliationItemView{
			InstallmentID:       item.InstallmentID,
			ExpectedAmountCents: item.ExpectedAmountCents,
			ActualAmountCents:   item.ActualAmountCents,
			Status:              item.Status.String(),
			Reason:              item.Reason,
		})
	}
	return view
}

// ReconciliationRun builds one file covering the period's settlements.
func ReconciliationRun(svc reconciliation.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reconciliation service unavailable"))
			return
		}

		var payload reconcileRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		file, err := svc.Reconcile(r.Context(), payload.PeriodStart, payload.PeriodEnd)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newReconciliationFileView(file))
	}
}

// ReconciliationVerify recounts a file's items against its counters.
func ReconciliationVerify(svc reconciliation.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reconciliation service unavailable"))
			return
		}

		fileID, err := uuid.Parse(chi.URLParam(r, "fileId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid file id"))
			return
		}

		if err := svc.VerifyFile(r.Context(), fileID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "consistent"})
	}
}
