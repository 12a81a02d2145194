package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	contractsvc "github.com/credfacil/credfacil-backend/internal/contracts"
	"github.com/credfacil/credfacil-backend/pkg/db/models"
	"github.com/credfacil/credfacil-backend/pkg/enums"
	"github.com/credfacil/credfacil-backend/pkg/logger"
)

type stubContractService struct {
	created   *contractsvc.CreateContractInput
	contract  *models.Contract
	summary   contractsvc.EscalationSummary
	escalated bool
}

func (s *stubContractService) CreateContract(ctx context.Context, input contractsvc.CreateContractInput) (*models.Contract, error) {
	s.created = &input
	return s.contract, nil
}

func (s *stubContractService) GetContract(ctx context.Context, id uuid.UUID) (*models.Contract, error) {
	return s.contract, nil
}

func (s *stubContractService) ListInstallments(ctx context.Context, contractID uuid.UUID) ([]models.Installment, error) {
	return s.contract.Installments, nil
}

func (s *stubContractService) EscalateOverdue(ctx context.Context, asOf time.Time) (contractsvc.EscalationSummary, error) {
	s.escalated = true
	return s.summary, nil
}

func testContractModel() *models.Contract {
	contract := &models.Contract{
		ID:                   uuid.New(),
		MerchantID:           uuid.New(),
		CustomerID:           uuid.New(),
		CustomerDocument:     "12345678901",
		TotalAmountCents:     60000,
		NumberOfInstallments: 3,
		StartDate:            time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		EligibilityStatus:    enums.ContractPendingFirstInstallment,
	}
	for i := 0; i < 3; i++ {
		origin := enums.OriginPrivateLabel
		if i == 0 {
			origin = enums.OriginExternalCapture
		}
		contract.Installments = append(contract.Installments, models.Installment{
			ID:          uuid.New(),
			ContractID:  contract.ID,
			Number:      i + 1,
			AmountCents: 20000,
			DueDate:     contract.StartDate.AddDate(0, i+1, 0),
			Status:      enums.InstallmentStatusScheduled,
			Origin:      origin,
		})
	}
	return contract
}

func TestContractCreate(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "test", Level: logger.ParseLevel("debug"), Output: io.Discard})

	t.Run("malformed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/contracts", strings.NewReader("{not json"))
		rec := httptest.NewRecorder()
		ContractCreate(&stubContractService{}, logg).ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for malformed body, got %d", rec.Code)
		}
	})

	t.Run("invalid merchant id", func(t *testing.T) {
		body := `{"merchant_id":"nope","customer_id":"` + uuid.NewString() + `","customer_document":"123","total_amount_cents":60000,"number_of_installments":3,"start_date":"2026-04-01T00:00:00Z"}`
		req := httptest.NewRequest(http.MethodPost, "/api/v1/contracts", strings.NewReader(body))
		rec := httptest.NewRecorder()
		ContractCreate(&stubContractService{}, logg).ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for bad merchant id, got %d", rec.Code)
		}
	})

	t.Run("success", func(t *testing.T) {
		stub := &stubContractService{contract: testContractModel()}
		body := `{"merchant_id":"` + stub.contract.MerchantID.String() +
			`","customer_id":"` + stub.contract.CustomerID.String() +
			`","customer_document":"12345678901","total_amount_cents":60000,"number_of_installments":3,"start_date":"2026-04-01T00:00:00Z"}`
		req := httptest.NewRequest(http.MethodPost, "/api/v1/contracts", strings.NewReader(body))
		rec := httptest.NewRecorder()
		ContractCreate(stub, logg).ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if stub.created == nil {
			t.Fatal("expected CreateContract to be invoked")
		}
		if stub.created.TotalAmountCents != 60000 || stub.created.NumberOfInstallments != 3 {
			t.Fatalf("unexpected input %+v", stub.created)
		}

		var envelope struct {
			Data struct {
				ID           string `json:"id"`
				Installments []struct {
					Number int `json:"number"`
				} `json:"installments"`
			} `json:"data"`
		}
		if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if envelope.Data.ID != stub.contract.ID.String() {
			t.Fatalf("response id %s", envelope.Data.ID)
		}
		if len(envelope.Data.Installments) != 3 {
			t.Fatalf("expected 3 installments in view, got %d", len(envelope.Data.Installments))
		}
	})
}

func TestContractDetail(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "test", Level: logger.ParseLevel("debug"), Output: io.Discard})

	t.Run("invalid contract id", func(t *testing.T) {
		routeCtx := chi.NewRouteContext()
		routeCtx.URLParams.Add("contractId", "not-a-uuid")
		ctx := context.WithValue(context.Background(), chi.RouteCtxKey, routeCtx)
		req := httptest.NewRequest(http.MethodGet, "/api/v1/contracts/not-a-uuid", nil).WithContext(ctx)
		rec := httptest.NewRecorder()
		ContractDetail(&stubContractService{}, logg).ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for invalid id, got %d", rec.Code)
		}
	})

	t.Run("success", func(t *testing.T) {
		stub := &stubContractService{contract: testContractModel()}
		routeCtx := chi.NewRouteContext()
		routeCtx.URLParams.Add("contractId", stub.contract.ID.String())
		ctx := context.WithValue(context.Background(), chi.RouteCtxKey, routeCtx)
		req := httptest.NewRequest(http.MethodGet, "/api/v1/contracts/"+stub.contract.ID.String(), nil).WithContext(ctx)
		rec := httptest.NewRecorder()
		ContractDetail(stub, logg).ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
	})
}

func TestOverdueEscalate(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "test", Level: logger.ParseLevel("debug"), Output: io.Discard})

	stub := &stubContractService{summary: contractsvc.EscalationSummary{
		Evaluated:           4,
		MarkedLate:          2,
		MarkedDefaulted:     1,
		ContractsKnockedOut: 1,
	}}
	body := `{"as_of":"2026-06-01T00:00:00Z"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/contracts/escalate", strings.NewReader(body))
	rec := httptest.NewRecorder()
	OverdueEscalate(stub, logg).ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !stub.escalated {
		t.Fatal("expected EscalateOverdue to be invoked")
	}

	var envelope struct {
		Data map[string]int `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data["evaluated"] != 4 || envelope.Data["marked_defaulted"] != 1 {
		t.Fatalf("unexpected summary payload %+v", envelope.Data)
	}
}
