package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/credfacil/credfacil-backend/api/responses"
	"github.com/credfacil/credfacil-backend/internal/disbursements"
	"github.com/credfacil/credfacil-backend/pkg/db/models"
	pkgerrors "github.com/credfacil/credfacil-backend/pkg/errors"
	"github.com/credfacil/credfacil-backend/pkg/logger"
)

func newDisbursementView(disbursement *models.FundDisbursement) map[string]any {
	splits := make([]map[string]any, 0, len(disbursement.Splits))
	for _, split := range disbursement.Splits {
		splits = append(splits, map[string]any{
			"recipient":    split.Recipient.String(),
			"amount_cents": split.AmountCents,
		})
	}
	return map[string]any{
		"id":                 disbursement.ID,
		"contract_id":        disbursement.ContractID,
		"merchant_id":        disbursement.MerchantID,
		"total_amount_cents": disbursement.TotalAmountCents,
		"disbursed_at":       disbursement.DisbursedAt,
		"splits":             splits,
	}
}

// DisbursementExecute posts the merchant advance for an eligible contract.
// Normally the payment processor triggers this; the endpoint covers operator
// replays after a transient failure.
func DisbursementExecute(svc disbursements.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "disbursement service unavailable"))
			return
		}

		contractID, err := uuid.Parse(chi.URLParam(r, "contractId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid contract id"))
			return
		}

		disbursement, err := svc.Disburse(r.Context(), contractID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newDisbursementView(disbursement))
	}
}

// DisbursementDetail returns the contract's disbursement with its splits.
func DisbursementDetail(repo disbursements.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "disbursement repository unavailable"))
			return
		}

		contractID, err := uuid.Parse(chi.URLParam(r, "contractId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid contract id"))
			return
		}

		disbursement, err := repo.FindByContract(r.Context(), contractID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if disbursement == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "contract has no disbursement"))
			return
		}
		responses.WriteSuccess(w, newDisbursementView(disbursement))
	}
}
