package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/credfacil/credfacil-backend/api/responses"
	"github.com/credfacil/credfacil-backend/internal/recovery"
	pkgerrors "github.com/credfacil/credfacil-backend/pkg/errors"
	"github.com/credfacil/credfacil-backend/pkg/logger"
)

// DrawdownExecute debits escrow to cover one overdue installment in full.
func DrawdownExecute(svc recovery.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "recovery service unavailable"))
			return
		}

		installmentID, err := uuid.Parse(chi.URLParam(r, "installmentId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid installment id"))
			return
		}

		drawdown, err := svc.ExecuteDrawdown(r.Context(), installmentID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"id":                drawdown.ID,
			"escrow_account_id": drawdown.EscrowAccountID,
			"installment_id":    drawdown.InstallmentID,
			"amount_cents":      drawdown.AmountCents,
			"reason":            drawdown.Reason.String(),
			"executed_at":       drawdown.ExecutedAt,
		})
	}
}

// FallbackChargeAttempt runs one tokenized card attempt for an overdue
// installment's outstanding amount.
func FallbackChargeAttempt(svc recovery.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "recovery service unavailable"))
			return
		}

		installmentID, err := uuid.Parse(chi.URLParam(r, "installmentId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid installment id"))
			return
		}

		charge, err := svc.AttemptFallbackCharge(r.Context(), installmentID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"id":                charge.ID,
			"installment_id":    charge.InstallmentID,
			"attempt_number":    charge.AttemptNumber,
			"amount_cents":      charge.AmountCents,
			"status":            charge.Status.String(),
			"gateway_reference": charge.GatewayReference,
			"failure_reason":    charge.FailureReason,
			"attempted_at":      charge.AttemptedAt,
		})
	}
}
