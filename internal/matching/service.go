package matching

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/credfacil/credfacil-backend/pkg/db/models"
	"github.com/credfacil/credfacil-backend/pkg/enums"
	pkgerrors "github.com/credfacil/credfacil-backend/pkg/errors"
	"github.com/credfacil/credfacil-backend/pkg/logger"
)

// Confidence scores per cascade strategy.
const (
	ConfidenceBarcode        = 1.0
	ConfidenceReference      = 0.95
	ConfidenceDocumentExact  = 0.90
	ConfidenceDocumentApprox = 0.70
)

// PaymentRecord is a parsed external payment. File parsing lives upstream;
// this core only sees typed records.
type PaymentRecord struct {
	EventID           uuid.UUID              `json:"event_id"`
	AmountCents       int64                  `json:"amount_cents"`
	PaymentDate       time.Time              `json:"payment_date"`
	EventType         enums.PaymentEventType `json:"event_type"`
	Barcode           *string                `json:"barcode,omitempty"`
	ExternalReference *string                `json:"external_reference,omitempty"`
	CustomerDocument  *string                `json:"customer_document,omitempty"`
}

// Outcome classifies a cascade run.
type Outcome string

const (
	OutcomeMatched   Outcome = "matched"
	OutcomeAmbiguous Outcome = "ambiguous"
	OutcomeNoMatch   Outcome = "no_match"
)

// MatchResult is the cascade's verdict: at most one installment, a confidence
// score, and the candidate list when manual review is needed.
type MatchResult struct {
	Outcome     Outcome
	Installment *models.Installment
	Confidence  float64
	Candidates  []models.Installment
}

// Matched reports whether the cascade auto-resolved the record.
func (m MatchResult) Matched() bool {
	return m.Outcome == OutcomeMatched
}

type reviewQueue interface {
	PushReview(ctx context.Context, payload string, ttl time.Duration) error
}

// Service runs the match cascade and records payment events.
type Service interface {
	Match(ctx context.Context, record PaymentRecord) (MatchResult, error)
	Resolve(ctx context.Context, record PaymentRecord) (MatchResult, *models.PaymentEvent, error)
	ManualMatch(ctx context.Context, eventID, installmentID uuid.UUID) (*models.PaymentEvent, error)
	Dispute(ctx context.Context, eventID uuid.UUID) error
	RecordPaymentLink(ctx context.Context, installmentID uuid.UUID, barcode string) (*models.PaymentLink, error)
}

type service struct {
	repo           Repository
	queue          reviewQueue
	toleranceCents int64
	reviewTTL      time.Duration
	logg           *logger.Logger
}

// NewService wires the payment matcher. queue may be nil; unresolved records
// are then only persisted, not queued. reviewTTL bounds how long queued
// records wait for a reviewer, zero keeps them forever.
func NewService(repo Repository, queue reviewQueue, toleranceCents int64, reviewTTL time.Duration, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("matching repository required")
	}
	if toleranceCents <= 0 {
		toleranceCents = 100
	}
	return &service{
		repo:           repo,
		queue:          queue,
		toleranceCents: toleranceCents,
		reviewTTL:      reviewTTL,
		logg:           logg,
	}, nil
}

// Match walks the strategy cascade in priority order, first success wins.
// Only open installments are candidates; more than one surviving candidate is
// never auto-applied.
func (s *service) Match(ctx context.Context, record PaymentRecord) (MatchResult, error) {
	if record.AmountCents <= 0 {
		return MatchResult{}, pkgerrors.New(pkgerrors.CodeValidation, "payment amount must be positive")
	}

	// 1. Barcode, via the payment link issued with the slip.
	if record.Barcode != nil && *record.Barcode != "" {
		link, err := s.repo.FindLinkByBarcode(ctx, *record.Barcode)
		if err != nil {
			return MatchResult{}, err
		}
		if link != nil {
			installment, err := s.repo.FindOpenInstallment(ctx, link.InstallmentID)
			if err != nil {
				return MatchResult{}, err
			}
			if installment != nil {
				return MatchResult{
					Outcome:     OutcomeMatched,
					Installment: installment,
					Confidence:  ConfidenceBarcode,
				}, nil
			}
		}
	}

	// 2. Previously recorded reconciliation reference.
	if record.ExternalReference != nil && *record.ExternalReference != "" {
		installment, err := s.repo.FindOpenByExternalReference(ctx, *record.ExternalReference)
		if err != nil {
			return MatchResult{}, err
		}
		if installment != nil {
			return MatchResult{
				Outcome:     OutcomeMatched,
				Installment: installment,
				Confidence:  ConfidenceReference,
			}, nil
		}
	}

	// 3 & 4. Customer document plus amount, exact then approximate.
	if record.CustomerDocument != nil && *record.CustomerDocument != "" {
		open, err := s.repo.ListOpenByDocument(ctx, *record.CustomerDocument)
		if err != nil {
			return MatchResult{}, err
		}

		exact := filterByAmount(open, record.AmountCents, 0)
		switch len(exact) {
		case 1:
			return MatchResult{
				Outcome:     OutcomeMatched,
				Installment: &exact[0],
				Confidence:  ConfidenceDocumentExact,
			}, nil
		case 0:
			// fall through to the tolerance pass
		default:
			return MatchResult{Outcome: OutcomeAmbiguous, Candidates: exact}, nil
		}

		approx := filterByAmount(open, record.AmountCents, s.toleranceCents)
		switch len(approx) {
		case 1:
			return MatchResult{
				Outcome:     OutcomeMatched,
				Installment: &approx[0],
				Confidence:  ConfidenceDocumentApprox,
			}, nil
		case 0:
			// nothing in range
		default:
			return MatchResult{Outcome: OutcomeAmbiguous, Candidates: approx}, nil
		}
	}

	return MatchResult{Outcome: OutcomeNoMatch}, nil
}

func filterByAmount(installments []models.Installment, amountCents, toleranceCents int64) []models.Installment {
	var out []models.Installment
	for _, installment := range installments {
		diff := installment.AmountCents - amountCents
		if diff < 0 {
			diff = -diff
		}
		if diff <= toleranceCents {
			out = append(out, installment)
		}
	}
	return out
}

// Resolve runs the cascade and persists a PaymentEvent with the verdict.
// Unresolved records land on the manual-review queue, never auto-guessed.
func (s *service) Resolve(ctx context.Context, record PaymentRecord) (MatchResult, *models.PaymentEvent, error) {
	result, err := s.Match(ctx, record)
	if err != nil {
		return MatchResult{}, nil, err
	}

	event := &models.PaymentEvent{
		ExternalReference: record.ExternalReference,
		Barcode:           record.Barcode,
		CustomerDocument:  record.CustomerDocument,
		PaidAmountCents:   record.AmountCents,
		EventType:         record.EventType,
		PaymentDate:       record.PaymentDate,
	}
	if record.EventID != uuid.Nil {
		event.ID = record.EventID
	}

	if result.Matched() {
		event.InstallmentID = &result.Installment.ID
		event.ExpectedAmountCents = result.Installment.AmountCents
		event.MatchStatus = enums.MatchStatusAutoMatched
		event.MatchConfidence = result.Confidence
	} else {
		event.MatchStatus = enums.MatchStatusUnmatched
	}

	if err := s.repo.CreateEvent(ctx, event); err != nil {
		return MatchResult{}, nil, err
	}

	if !result.Matched() {
		s.enqueueReview(ctx, record, result, event.ID)
	}
	return result, event, nil
}

type reviewItem struct {
	EventID      uuid.UUID       `json:"event_id"`
	Outcome      Outcome         `json:"outcome"`
	Record       PaymentRecord   `json:"record"`
	CandidateIDs []uuid.UUID     `json:"candidate_ids,omitempty"`
}

func (s *service) enqueueReview(ctx context.Context, record PaymentRecord, result MatchResult, eventID uuid.UUID) {
	if s.queue == nil {
		return
	}
	item := reviewItem{
		EventID: eventID,
		Outcome: result.Outcome,
		Record:  record,
	}
	for _, candidate := range result.Candidates {
		item.CandidateIDs = append(item.CandidateIDs, candidate.ID)
	}
	payload, err := json.Marshal(item)
	if err != nil {
		return
	}
	if err := s.queue.PushReview(ctx, string(payload), s.reviewTTL); err != nil && s.logg != nil {
		s.logg.Error(ctx, "failed to enqueue payment for manual review", err)
	}
}

// ManualMatch binds an unresolved event to an installment chosen by a
// reviewer. Already manually matched events are immutable.
func (s *service) ManualMatch(ctx context.Context, eventID, installmentID uuid.UUID) (*models.PaymentEvent, error) {
	if eventID == uuid.Nil || installmentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "event id and installment id required")
	}

	event, err := s.repo.FindEvent(ctx, eventID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "payment event not found")
	}
	if event.MatchStatus.Immutable() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "payment event already manually matched")
	}

	installment, err := s.repo.FindOpenInstallment(ctx, installmentID)
	if err != nil {
		return nil, err
	}
	if installment == nil {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "installment is not open for matching")
	}

	if err := s.repo.UpdateEvent(ctx, eventID, map[string]any{
		"installment_id":        installmentID,
		"expected_amount_cents": installment.AmountCents,
		"match_status":          enums.MatchStatusManualMatched,
		"match_confidence":      ConfidenceBarcode,
	}); err != nil {
		return nil, err
	}
	return s.repo.FindEvent(ctx, eventID)
}

// Dispute flags a matched event instead of deleting it.
func (s *service) Dispute(ctx context.Context, eventID uuid.UUID) error {
	if eventID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "event id required")
	}
	event, err := s.repo.FindEvent(ctx, eventID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "payment event not found")
	}
	if event.MatchStatus == enums.MatchStatusDisputed {
		return nil
	}
	return s.repo.UpdateEvent(ctx, eventID, map[string]any{
		"match_status": enums.MatchStatusDisputed,
	})
}

// RecordPaymentLink stores the barcode issued for an installment's slip.
func (s *service) RecordPaymentLink(ctx context.Context, installmentID uuid.UUID, barcode string) (*models.PaymentLink, error) {
	if installmentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "installment id required")
	}
	if barcode == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "barcode required")
	}
	link := &models.PaymentLink{
		InstallmentID: installmentID,
		Barcode:       barcode,
	}
	if err := s.repo.CreateLink(ctx, link); err != nil {
		return nil, err
	}
	return link, nil
}
