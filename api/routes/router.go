package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/credfacil/credfacil-backend/api/controllers"
	"github.com/credfacil/credfacil-backend/api/middleware"
	"github.com/credfacil/credfacil-backend/internal/contracts"
	"github.com/credfacil/credfacil-backend/internal/disbursements"
	"github.com/credfacil/credfacil-backend/internal/ledger"
	"github.com/credfacil/credfacil-backend/internal/matching"
	"github.com/credfacil/credfacil-backend/internal/payments"
	"github.com/credfacil/credfacil-backend/internal/reconciliation"
	"github.com/credfacil/credfacil-backend/internal/recovery"
	"github.com/credfacil/credfacil-backend/pkg/config"
	"github.com/credfacil/credfacil-backend/pkg/db"
	"github.com/credfacil/credfacil-backend/pkg/logger"
	"github.com/credfacil/credfacil-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisP redis.Pinger,
	contractService contracts.Service,
	matchingService matching.Service,
	paymentService payments.Service,
	disbursementService disbursements.Service,
	disbursementsRepo disbursements.Repository,
	recoveryService recovery.Service,
	reconciliationService reconciliation.Service,
	ledgerService ledger.Service,
	ledgerRepo ledger.Repository,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/contracts", func(r chi.Router) {
			r.Post("/", controllers.ContractCreate(contractService, logg))
			r.Get("/{contractId}", controllers.ContractDetail(contractService, logg))
			r.Post("/{contractId}/disbursement", controllers.DisbursementExecute(disbursementService, logg))
			r.Get("/{contractId}/disbursement", controllers.DisbursementDetail(disbursementsRepo, logg))
		})

		r.Route("/installments", func(r chi.Router) {
			r.Post("/escalate", controllers.OverdueEscalate(contractService, logg))
			r.Post("/{installmentId}/drawdown", controllers.DrawdownExecute(recoveryService, logg))
			r.Post("/{installmentId}/fallback-charge", controllers.FallbackChargeAttempt(recoveryService, logg))
		})

		r.Route("/payments", func(r chi.Router) {
			r.Post("/", controllers.PaymentIngest(paymentService, logg))
			r.Post("/match-preview", controllers.PaymentMatchPreview(matchingService, logg))
			r.Post("/apply", controllers.PaymentApply(paymentService, logg))
			r.Post("/links", controllers.PaymentLinkCreate(matchingService, logg))
			r.Route("/events/{eventId}", func(r chi.Router) {
				r.Post("/match", controllers.PaymentManualMatch(matchingService, logg))
				r.Post("/dispute", controllers.PaymentDispute(matchingService, logg))
			})
		})

		r.Route("/escrow-accounts/{accountId}", func(r chi.Router) {
			r.Get("/entries", controllers.LedgerEntries(ledgerRepo, logg))
			r.Post("/verify", controllers.LedgerVerify(ledgerService, logg))
		})

		r.Route("/reconciliations", func(r chi.Router) {
			r.Post("/", controllers.ReconciliationRun(reconciliationService, logg))
			r.Post("/{fileId}/verify", controllers.ReconciliationVerify(reconciliationService, logg))
		})
	})

	return r
}
