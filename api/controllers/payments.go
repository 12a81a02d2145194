package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/credfacil/credfacil-backend/api/responses"
	"github.com/credfacil/credfacil-backend/api/validators"
	"github.com/credfacil/credfacil-backend/internal/matching"
	"github.com/credfacil/credfacil-backend/internal/payments"
	"github.com/credfacil/credfacil-backend/pkg/db/models"
	"github.com/credfacil/credfacil-backend/pkg/enums"
	pkgerrors "github.com/credfacil/credfacil-backend/pkg/errors"
	"github.com/credfacil/credfacil-backend/pkg/logger"
)

type paymentIngestRequest struct {
	EventID           string    `json:"event_id,omitempty" validate:"omitempty,uuid"`
	AmountCents       int64     `json:"amount_cents" validate:"required,gt=0"`
	PaymentDate       time.Time `json:"payment_date" validate:"required"`
	EventType         string    `json:"event_type" validate:"required"`
	Barcode           *string   `json:"barcode,omitempty"`
	ExternalReference *string   `json:"external_reference,omitempty"`
	CustomerDocument  *string   `json:"customer_document,omitempty"`
}

type appliedView struct {
	InstallmentID       uuid.UUID `json:"installment_id"`
	InstallmentStatus   string    `json:"installment_status"`
	NewlyPaid           bool      `json:"newly_paid"`
	RepaymentRecorded   bool      `json:"repayment_recorded"`
	QuotaContributed    bool      `json:"quota_contributed"`
	ContractEligibility string    `json:"contract_eligibility"`
	DisbursementID      *string   `json:"disbursement_id,omitempty"`
}

func newAppliedView(applied *payments.AppliedActions) *appliedView {
	if applied == nil {
		return nil
	}
	view := &appliedView{
		InstallmentID:       applied.InstallmentID,
		InstallmentStatus:   applied.InstallmentStatus.String(),
		NewlyPaid:           applied.NewlyPaid,
		RepaymentRecorded:   applied.RepaymentRecorded,
		QuotaContributed:    applied.QuotaContributed,
		ContractEligibility: applied.ContractEligibility.String(),
	}
	if applied.Disbursement != nil {
		id := applied.Disbursement.ID.String()
		view.DisbursementID = &id
	}
	return view
}

type matchView struct {
	Outcome      string      `json:"outcome"`
	Confidence   float64     `json:"confidence,omitempty"`
	Installment  *uuid.UUID  `json:"installment_id,omitempty"`
	CandidateIDs []uuid.UUID `json:"candidate_ids,omitempty"`
}

func newMatchView(result matching.MatchResult) matchView {
	view := matchView{
		Outcome:    string(result.Outcome),
		Confidence: result.Confidence,
	}
	if result.Installment != nil {
		view.Installment = &result.Installment.ID
	}
	for _, candidate := range result.Candidates {
		view.CandidateIDs = append(view.CandidateIDs, candidate.ID)
	}
	return view
}

func toPaymentRecord(payload paymentIngestRequest) (matching.PaymentRecord, error) {
	eventType, err := enums.ParsePaymentEventType(payload.EventType)
	if err != nil {
		return matching.PaymentRecord{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid event type")
	}
	record := matching.PaymentRecord{
		AmountCents:       payload.AmountCents,
		PaymentDate:       payload.PaymentDate,
		EventType:         eventType,
		Barcode:           payload.Barcode,
		ExternalReference: payload.ExternalReference,
		CustomerDocument:  payload.CustomerDocument,
	}
	if payload.EventID != "" {
		eventID, err := uuid.Parse(payload.EventID)
		if err != nil {
			return matching.PaymentRecord{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid event id")
		}
		record.EventID = eventID
	}
	return record, nil
}

// PaymentIngest runs a reported payment through the match cascade and applies
// it when exactly one open installment survives.
func PaymentIngest(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}

		var payload paymentIngestRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		record, err := toPaymentRecord(payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.MatchAndApply(r.Context(), record)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		response := map[string]any{
			"outcome": string(result.Outcome),
			"match":   newMatchView(result.Match),
		}
		if result.Event != nil {
			response["event_id"] = result.Event.ID
		}
		if applied := newAppliedView(result.Applied); applied != nil {
			response["applied"] = applied
		}
		responses.WriteSuccess(w, response)
	}
}

// PaymentMatchPreview runs the cascade without persisting anything.
func PaymentMatchPreview(svc matching.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "matching service unavailable"))
			return
		}

		var payload paymentIngestRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		record, err := toPaymentRecord(payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Match(r.Context(), record)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newMatchView(result))
	}
}

type paymentApplyRequest struct {
	InstallmentID string    `json:"installment_id" validate:"required,uuid"`
	AmountCents   int64     `json:"amount_cents" validate:"required,gt=0"`
	PaymentDate   time.Time `json:"payment_date" validate:"required"`
	EventType     string    `json:"event_type" validate:"required"`
}

// PaymentApply applies a payment straight to a known installment, bypassing
// the cascade. Used for operator-driven corrections.
func PaymentApply(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}

		var payload paymentApplyRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		installmentID, err := uuid.Parse(payload.InstallmentID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid installment id"))
			return
		}
		eventType, err := enums.ParsePaymentEventType(payload.EventType)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid event type"))
			return
		}

		applied, err := svc.ApplyPayment(r.Context(), installmentID, payload.AmountCents, payload.PaymentDate, eventType)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newAppliedView(applied))
	}
}

type manualMatchRequest struct {
	InstallmentID string `json:"installment_id" validate:"required,uuid"`
}

// PaymentManualMatch binds an unresolved event to a reviewer's choice.
func PaymentManualMatch(svc matching.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "matching service unavailable"))
			return
		}

		eventID, err := uuid.Parse(chi.URLParam(r, "eventId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid event id"))
			return
		}

		var payload manualMatchRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		installmentID, err := uuid.Parse(payload.InstallmentID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid installment id"))
			return
		}

		event, err := svc.ManualMatch(r.Context(), eventID, installmentID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newPaymentEventView(event))
	}
}

// PaymentDispute flags a matched event without deleting it.
func PaymentDispute(svc matching.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "matching service unavailable"))
			return
		}

		eventID, err := uuid.Parse(chi.URLParam(r, "eventId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid event id"))
			return
		}

		if err := svc.Dispute(r.Context(), eventID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "disputed"})
	}
}

type paymentLinkRequest struct {
	InstallmentID string `json:"installment_id" validate:"required,uuid"`
	Barcode       string `json:"barcode" validate:"required"`
}

// PaymentLinkCreate registers the barcode issued for an installment's slip.
func PaymentLinkCreate(svc matching.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "matching service unavailable"))
			return
		}

		var payload paymentLinkRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		installmentID, err := uuid.Parse(payload.InstallmentID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid installment id"))
			return
		}

		link, err := svc.RecordPaymentLink(r.Context(), installmentID, payload.Barcode)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{
			"id":             link.ID,
			"installment_id": link.InstallmentID,
			"barcode":        link.Barcode,
		})
	}
}

type paymentEventView struct {
	ID                  uuid.UUID  `json:"id"`
	InstallmentID       *uuid.UUID `json:"installment_id,omitempty"`
	PaidAmountCents     int64      `json:"paid_amount_cents"`
	ExpectedAmountCents int64      `json:"expected_amount_cents"`
	EventType           string     `json:"event_type"`
	PaymentDate         time.Time  `json:"payment_date"`
	MatchStatus         string     `json:"match_status"`
	MatchConfidence     float64    `json:"match_confidence"`
}

func newPaymentEventView(event *models.PaymentEvent) paymentEventView {
	return paymentEventView{
		ID:                  event.ID,
		InstallmentID:       event.InstallmentID,
		PaidAmountCents:     event.PaidAmountCents,
		ExpectedAmountCents: event.ExpectedAmountCents,
		EventType:           event.EventType.String(),
		PaymentDate:         event.PaymentDate,
		MatchStatus:         event.MatchStatus.String(),
		MatchConfidence:     event.MatchConfidence,
	}
}
