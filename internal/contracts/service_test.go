package contracts

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"

	"github.com/credfacil/credfacil-backend/pkg/db/models"
	"github.com/credfacil/credfacil-backend/pkg/enums"
	pkgerrors "github.com/credfacil/credfacil-backend/pkg/errors"
	"github.com/credfacil/credfacil-backend/pkg/metrics"
)

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type fakeRepository struct {
	contracts    map[uuid.UUID]*models.Contract
	installments map[uuid.UUID]*models.Installment
	pastDue      []models.Installment
	forcedOut    []uuid.UUID

	createFn func(ctx context.Context, contract *models.Contract) error
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		contracts:    map[uuid.UUID]*models.Contract{},
		installments: map[uuid.UUID]*models.Installment{},
	}
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepository) CreateContract(ctx context.Context, contract *models.Contract) error {
	if f.createFn != nil {
		return f.createFn(ctx, contract)
	}
	if contract.ID == uuid.Nil {
		contract.ID = uuid.New()
	}
	f.contracts[contract.ID] = contract
	return nil
}

func (f *fakeRepository) FindContract(ctx context.Context, id uuid.UUID) (*models.Contract, error) {
	contract, ok := f.contracts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return contract, nil
}

func (f *fakeRepository) FindContractForUpdate(ctx context.Context, id uuid.UUID) (*models.Contract, error) {
	return f.FindContract(ctx, id)
}

func (f *fakeRepository) CompareAndSwapEligibility(ctx context.Context, id uuid.UUID, from, to enums.ContractEligibility, extra map[string]any) (bool, error) {
	contract, ok := f.contracts[id]
	if !ok || contract.EligibilityStatus != from {
		return false, nil
	}
	contract.EligibilityStatus = to
	return true, nil
}

func (f *fakeRepository) ForceIneligible(ctx context.Context, id uuid.UUID) error {
	if contract, ok := f.contracts[id]; ok && contract.EligibilityStatus.PreDisbursed() {
		contract.EligibilityStatus = enums.ContractIneligible
	}
	f.forcedOut = append(f.forcedOut, id)
	return nil
}

func (f *fakeRepository) FindInstallment(ctx context.Context, id uuid.UUID) (*models.Installment, error) {
	installment, ok := f.installments[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return installment, nil
}

func (f *fakeRepository) FindInstallmentForUpdate(ctx context.Context, id uuid.UUID) (*models.Installment, error) {
	return f.FindInstallment(ctx, id)
}

func (f *fakeRepository) FindInstallmentByNumber(ctx context.Context, contractID uuid.UUID, number int) (*models.Installment, error) {
	for _, installment := range f.installments {
		if installment.ContractID == contractID && installment.Number == number {
			return installment, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepository) UpdateInstallment(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	installment, ok := f.installments[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if v, ok := updates["status"]; ok {
		installment.Status = v.(enums.InstallmentStatus)
	}
	if v, ok := updates["days_overdue"]; ok {
		installment.DaysOverdue = v.(int)
	}
	return nil
}

func (f *fakeRepository) ListInstallments(ctx context.Context, contractID uuid.UUID) ([]models.Installment, error) {
	var out []models.Installment
	for _, installment := range f.installments {
		if installment.ContractID == contractID {
			out = append(out, *installment)
		}
	}
	return out, nil
}

func (f *fakeRepository) ListOpenPastDue(ctx context.Context, asOf time.Time) ([]models.Installment, error) {
	return f.pastDue, nil
}

func TestService_CreateContractSchedule(t *testing.T) {
	repo := newFakeRepository()
	svc, err := NewService(stubTxRunner{}, repo, nil, nil)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	start := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	contract, err := svc.CreateContract(context.Background(), CreateContractInput{
		MerchantID:           uuid.New(),
		CustomerID:           uuid.New(),
		CustomerDocument:     "12345678900",
		TotalAmountCents:     100001,
		NumberOfInstallments: 3,
		StartDate:            start,
	})
	if err != nil {
		t.Fatalf("CreateContract error: %v", err)
	}

	if len(contract.Installments) != 3 {
		t.Fatalf("expected 3 installments, got %d", len(contract.Installments))
	}

	var total int64
	for i, installment := range contract.Installments {
		total += installment.AmountCents
		if installment.Number != i+1 {
			t.Fatalf("installment %d numbered %d", i, installment.Number)
		}
		if !installment.DueDate.Equal(start.AddDate(0, i+1, 0)) {
			t.Fatalf("installment %d due %s", i+1, installment.DueDate)
		}
		if installment.Status != enums.InstallmentStatusScheduled {
			t.Fatalf("installment %d status %s", i+1, installment.Status)
		}
	}
	if total != 100001 {
		t.Fatalf("schedule sums to %d, want 100001", total)
	}
	if contract.Installments[0].AmountCents != 33333 || contract.Installments[2].AmountCents != 33335 {
		t.Fatalf("remainder not on last installment: %d / %d",
			contract.Installments[0].AmountCents, contract.Installments[2].AmountCents)
	}
	if contract.Installments[0].Origin != enums.OriginExternalCapture {
		t.Fatalf("first installment origin %s", contract.Installments[0].Origin)
	}
	if contract.Installments[1].Origin != enums.OriginPrivateLabel {
		t.Fatalf("second installment origin %s", contract.Installments[1].Origin)
	}
	if contract.EligibilityStatus != enums.ContractPendingFirstInstallment {
		t.Fatalf("new contract eligibility %s", contract.EligibilityStatus)
	}
}

func TestService_CreateContractEvenSchedule(t *testing.T) {
	repo := newFakeRepository()
	svc, _ := NewService(stubTxRunner{}, repo, nil, nil)

	contract, err := svc.CreateContract(context.Background(), CreateContractInput{
		MerchantID:           uuid.New(),
		CustomerID:           uuid.New(),
		CustomerDocument:     "12345678900",
		TotalAmountCents:     200000,
		NumberOfInstallments: 10,
		StartDate:            time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("CreateContract error: %v", err)
	}
	for _, installment := range contract.Installments {
		if installment.AmountCents != 20000 {
			t.Fatalf("installment %d amount %d, want 20000", installment.Number, installment.AmountCents)
		}
	}
}

func TestService_CreateContractValidation(t *testing.T) {
	repo := newFakeRepository()
	svc, _ := NewService(stubTxRunner{}, repo, nil, nil)

	valid := CreateContractInput{
		MerchantID:           uuid.New(),
		CustomerID:           uuid.New(),
		CustomerDocument:     "12345678900",
		TotalAmountCents:     100000,
		NumberOfInstallments: 4,
		StartDate:            time.Now(),
	}

	tests := []struct {
		name   string
		mutate func(input *CreateContractInput)
	}{
		{"missing merchant", func(i *CreateContractInput) { i.MerchantID = uuid.Nil }},
		{"missing customer", func(i *CreateContractInput) { i.CustomerID = uuid.Nil }},
		{"missing document", func(i *CreateContractInput) { i.CustomerDocument = "" }},
		{"zero amount", func(i *CreateContractInput) { i.TotalAmountCents = 0 }},
		{"single installment", func(i *CreateContractInput) { i.NumberOfInstallments = 1 }},
		{"zero start date", func(i *CreateContractInput) { i.StartDate = time.Time{} }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			input := valid
			tc.mutate(&input)
			if _, err := svc.CreateContract(context.Background(), input); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestService_EscalateOverdue(t *testing.T) {
	repo := newFakeRepository()
	svc, _ := NewService(stubTxRunner{}, repo, nil, nil)

	asOf := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	contract := &models.Contract{
		ID:                uuid.New(),
		EligibilityStatus: enums.ContractPendingSecondInstallment,
	}
	repo.contracts[contract.ID] = contract

	lateSoon := &models.Installment{
		ID:         uuid.New(),
		ContractID: contract.ID,
		Number:     3,
		Status:     enums.InstallmentStatusScheduled,
		DueDate:    asOf.AddDate(0, 0, -10),
	}
	defaulting := &models.Installment{
		ID:         uuid.New(),
		ContractID: contract.ID,
		Number:     2,
		Status:     enums.InstallmentStatusLate,
		DueDate:    asOf.AddDate(0, 0, -70),
	}
	repo.installments[lateSoon.ID] = lateSoon
	repo.installments[defaulting.ID] = defaulting
	repo.pastDue = []models.Installment{*lateSoon, *defaulting}

	summary, err := svc.EscalateOverdue(context.Background(), asOf)
	if err != nil {
		t.Fatalf("EscalateOverdue error: %v", err)
	}

	if summary.Evaluated != 2 {
		t.Fatalf("evaluated %d, want 2", summary.Evaluated)
	}
	if summary.MarkedLate != 1 || summary.MarkedDefaulted != 1 {
		t.Fatalf("marked late %d defaulted %d", summary.MarkedLate, summary.MarkedDefaulted)
	}
	if summary.ContractsKnockedOut != 1 {
		t.Fatalf("contracts knocked out %d, want 1", summary.ContractsKnockedOut)
	}

	if lateSoon.Status != enums.InstallmentStatusLate || lateSoon.DaysOverdue != 10 {
		t.Fatalf("installment #3 now %s with %d days overdue", lateSoon.Status, lateSoon.DaysOverdue)
	}
	if defaulting.Status != enums.InstallmentStatusDefaulted {
		t.Fatalf("installment #2 now %s, want defaulted", defaulting.Status)
	}
	if contract.EligibilityStatus != enums.ContractIneligible {
		t.Fatalf("contract eligibility %s, want ineligible", contract.EligibilityStatus)
	}
}

func TestService_EscalateOverdueRecordsMetrics(t *testing.T) {
	repo := newFakeRepository()
	reg := prometheus.NewRegistry()
	svc, _ := NewService(stubTxRunner{}, repo, metrics.NewBatchJobMetrics(reg), nil)

	if _, err := svc.EscalateOverdue(context.Background(), time.Now().UTC()); err != nil {
		t.Fatalf("EscalateOverdue error: %v", err)
	}

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	var sawSuccess, sawDuration bool
	for _, mf := range mfs {
		switch mf.GetName() {
		case "batch_job_success":
			sawSuccess = mf.GetMetric()[0].GetCounter().GetValue() == 1
		case "batch_job_duration_seconds":
			sawDuration = mf.GetMetric()[0].GetHistogram().GetSampleCount() == 1
		}
	}
	if !sawSuccess || !sawDuration {
		t.Fatalf("sweep not instrumented: success=%v duration=%v", sawSuccess, sawDuration)
	}
}

func TestService_EscalateOverdueSkipsSettled(t *testing.T) {
	repo := newFakeRepository()
	svc, _ := NewService(stubTxRunner{}, repo, nil, nil)

	asOf := time.Now().UTC()
	paid := &models.Installment{
		ID:      uuid.New(),
		Number:  4,
		Status:  enums.InstallmentStatusPaid,
		DueDate: asOf.AddDate(0, 0, -30),
	}
	repo.installments[paid.ID] = paid
	// The row was open when listed but settled before the sweep locked it.
	stale := *paid
	stale.Status = enums.InstallmentStatusScheduled
	repo.pastDue = []models.Installment{stale}

	summary, err := svc.EscalateOverdue(context.Background(), asOf)
	if err != nil {
		t.Fatalf("EscalateOverdue error: %v", err)
	}
	if summary.MarkedLate != 0 || summary.MarkedDefaulted != 0 {
		t.Fatalf("settled installment escalated: %+v", summary)
	}
	if paid.Status != enums.InstallmentStatusPaid {
		t.Fatalf("paid installment mutated to %s", paid.Status)
	}
}
