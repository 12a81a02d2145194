package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/credfacil/credfacil-backend/api/responses"
	"github.com/credfacil/credfacil-backend/api/validators"
	"github.com/credfacil/credfacil-backend/internal/contracts"
	"github.com/credfacil/credfacil-backend/pkg/db/models"
	pkgerrors "github.com/credfacil/credfacil-backend/pkg/errors"
	"github.com/credfacil/credfacil-backend/pkg/logger"
)

type contractCreateRequest struct {
	MerchantID           string    `json:"merchant_id" validate:"required,uuid"`
	CustomerID           string    `json:"customer_id" validate:"required,uuid"`
	CustomerDocument     string    `json:"customer_document" validate:"required"`
	TotalAmountCents     int64     `json:"total_amount_cents" validate:"required,gt=0"`
	NumberOfInstallments int       `json:"number_of_installments" validate:"required,min=2"`
	StartDate            time.Time `json:"start_date" validate:"required"`
	FallbackCardID       *string   `json:"fallback_card_id,omitempty"`
	PrivateLabelCardID   *string   `json:"private_label_card_id,omitempty"`
}

type installmentView struct {
	ID                    uuid.UUID  `json:"id"`
	Number                int        `json:"number"`
	AmountCents           int64      `json:"amount_cents"`
	DueDate               time.Time  `json:"due_date"`
	Status                string     `json:"status"`
	PaidAt                *time.Time `json:"paid_at,omitempty"`
	PaidAmountCents       int64      `json:"paid_amount_cents"`
	DaysOverdue           int        `json:"days_overdue"`
	Origin                string     `json:"origin"`
	ContributesToSubQuota bool       `json:"contributes_to_sub_quota"`
	ExternalReference     *string    `json:"external_reference,omitempty"`
}

type contractView struct {
	ID                      uuid.UUID         `json:"id"`
	MerchantID              uuid.UUID         `json:"merchant_id"`
	CustomerID              uuid.UUID         `json:"customer_id"`
	CustomerDocument        string            `json:"customer_document"`
	TotalAmountCents        int64             `json:"total_amount_cents"`
	NumberOfInstallments    int               `json:"number_of_installments"`
	StartDate               time.Time         `json:"start_date"`
	EligibilityStatus       string            `json:"eligibility_status"`
	FirstInstallmentPaidAt  *time.Time        `json:"first_installment_paid_at,omitempty"`
	SecondInstallmentPaidAt *time.Time        `json:"second_installment_paid_at,omitempty"`
	Installments            []installmentView `json:"installments,omitempty"`
}

func newInstallmentView(installment models.Installment) installmentView {
	return installmentView{
		ID:                    installment.ID,
		Number:                installment.Number,
		AmountCents:           installment.AmountCents,
		DueDate:               installment.DueDate,
		Status:                installment.Status.String(),
		PaidAt:                installment.PaidAt,
		PaidAmountCents:       installment.PaidAmountCents,
		DaysOverdue:           installment.DaysOverdue,
		Origin:                installment.Origin.String(),
		ContributesToSubQuota: installment.ContributesToSubQuota,
		ExternalReference:     installment.ExternalReference,
	}
}

func newContractView(contract *models.Contract, installments []models.Installment) contractView {
	view := contractView{
		ID:                      contract.ID,
		MerchantID:              contract.MerchantID,
		CustomerID:              contract.CustomerID,
		CustomerDocument:        contract.CustomerDocument,
		TotalAmountCents:        contract.TotalAmountCents,
		NumberOfInstallments:    contract.NumberOfInstallments,
		StartDate:               contract.StartDate,
		EligibilityStatus:       contract.EligibilityStatus.String(),
		FirstInstallmentPaidAt:  contract.FirstInstallmentPaidAt,
		SecondInstallmentPaidAt: contract.SecondInstallmentPaidAt,
	}
	if installments == nil {
		installments = contract.Installments
	}
	for _, installment := range installments {
		view.Installments = append(view.Installments, newInstallmentView(installment))
	}
	return view
}

// ContractCreate signs a contract and builds its installment schedule.
func ContractCreate(svc contracts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "contract service unavailable"))
			return
		}

		var payload contractCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		merchantID, err := uuid.Parse(payload.MerchantID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid merchant id"))
			return
		}
		customerID, err := uuid.Parse(payload.CustomerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid customer id"))
			return
		}

		contract, err := svc.CreateContract(r.Context(), contracts.CreateContractInput{
			MerchantID:           merchantID,
			CustomerID:           customerID,
			CustomerDocument:     payload.CustomerDocument,
			TotalAmountCents:     payload.TotalAmountCents,
			NumberOfInstallments: payload.NumberOfInstallments,
			StartDate:            payload.StartDate,
			FallbackCardID:       payload.FallbackCardID,
			PrivateLabelCardID:   payload.PrivateLabelCardID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newContractView(contract, nil))
	}
}

// ContractDetail returns a contract with its full schedule.
func ContractDetail(svc contracts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "contract service unavailable"))
			return
		}

		contractID, err := uuid.Parse(chi.URLParam(r, "contractId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid contract id"))
			return
		}

		contract, err := svc.GetContract(r.Context(), contractID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		installments, err := svc.ListInstallments(r.Context(), contractID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newContractView(contract, installments))
	}
}

type escalateRequest struct {
	AsOf *time.Time `json:"as_of,omitempty"`
}

// OverdueEscalate runs one overdue sweep across open installments.
func OverdueEscalate(svc contracts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "contract service unavailable"))
			return
		}

		var payload escalateRequest
		if r.ContentLength > 0 {
			if err := validators.DecodeJSONBody(r, &payload); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		asOf := time.Now().UTC()
		if payload.AsOf != nil {
			asOf = *payload.AsOf
		}

		summary, err := svc.EscalateOverdue(r.Context(), asOf)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"evaluated":             summary.Evaluated,
			"marked_late":           summary.MarkedLate,
			"marked_defaulted":      summary.MarkedDefaulted,
			"contracts_knocked_out": summary.ContractsKnockedOut,
		})
	}
}
