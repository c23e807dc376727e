//go:generate mockgen -source ./server.go -destination=./mocks/server.go -package=mock_server
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/herdvest/backoffice/internal/repository"
	"github.com/herdvest/backoffice/internal/service"
	"github.com/herdvest/backoffice/internal/storage"
	"github.com/herdvest/backoffice/internal/workflow"
)

// Approver executes an operator's decision against the workflow gate.
type Approver interface {
	Approve(ctx context.Context, identity workflow.Identity, cmd service.Command) (*repository.Order, error)
	Reject(ctx context.Context, identity workflow.Identity, cmd service.Command) (*repository.Order, error)
}

type Server struct {
	orders       storage.OrderRepository
	history      storage.HistoryRepository
	transactions storage.TransactionRepository
	investors    storage.InvestorRepository
	farms        storage.FarmRepository
	admins       storage.AdminRepository
	approvals    Approver

	jwtSecret    []byte
	server       *http.Server
	log          *zap.Logger
	AuditManager *AuditManager
}

type Deps struct {
	Orders       storage.OrderRepository
	History      storage.HistoryRepository
	Transactions storage.TransactionRepository
	Investors    storage.InvestorRepository
	Farms        storage.FarmRepository
	Admins       storage.AdminRepository
	Approvals    Approver
	JWTSecret    string
	Logger       *zap.Logger
}

func New(deps Deps) *Server {
	return &Server{
		orders:       deps.Orders,
		history:      deps.History,
		transactions: deps.Transactions,
		investors:    deps.Investors,
		farms:        deps.Farms,
		admins:       deps.Admins,
		approvals:    deps.Approvals,
		jwtSecret:    []byte(deps.JWTSecret),
		log:          deps.Logger.Named("http"),
		AuditManager: NewAuditManager(2, 5, 500*time.Millisecond),
	}
}

func (s *Server) Run(ctx context.Context, port string) error {
	router := s.setupRoutes()

	s.server = &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	s.AuditManager.Start(ctx)

	log.Printf("Server starting on port %s", port)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down server...")

	if err := s.server.Shutdown(ctx); err != nil {
		return err
	}

	s.AuditManager.Shutdown(ctx)
	log.Println("Server shutdown completed")
	return nil
}

func (s *Server) setupRoutes() http.Handler {
	router := mux.NewRouter()

	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	router.HandleFunc("/auth/login", s.handleLogin).Methods(http.MethodPost)

	api := router.NewRoute().Subrouter()
	api.Use(s.authMiddleware, s.auditLogMiddleware)

	api.HandleFunc("/pending-units", s.handleListOrders).Methods(http.MethodGet)
	api.HandleFunc("/approve-unit", s.handleApprove).Methods(http.MethodPost)
	api.HandleFunc("/reject-unit", s.handleReject).Methods(http.MethodPost)
	api.HandleFunc("/farms", s.handleListFarms).Methods(http.MethodGet)
	api.HandleFunc("/user/{mobile}", s.handleGetInvestor).Methods(http.MethodGet)
	api.HandleFunc("/orders/{id}", s.handleGetOrder).Methods(http.MethodGet)
	api.HandleFunc("/orders/{id}/history", s.handleOrderHistory).Methods(http.MethodGet)

	return router
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondDecisionError maps gate and lookup failures onto the API contract.
func respondDecisionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrObjectNotFound):
		respondError(w, http.StatusNotFound, "Error: order not found")
	case errors.Is(err, workflow.ErrNotPermitted):
		respondError(w, http.StatusForbidden, "Error: "+err.Error())
	case errors.Is(err, workflow.ErrTerminalStatus),
		errors.Is(err, workflow.ErrChecksIncomplete),
		errors.Is(err, workflow.ErrNoFailedCheck),
		errors.Is(err, workflow.ErrRemarksRequired):
		respondError(w, http.StatusUnprocessableEntity, "Error: "+err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "Error: failed to process decision")
	}
}
