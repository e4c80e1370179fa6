package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/karuppiah-t/transfercore/internal/domain"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "transfer_http_requests_total",
		Help: "Total HTTP requests processed, labeled by status code",
	}, []string{"method", "endpoint", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "transfer_http_request_duration_seconds",
		Help:    "Latency distribution of HTTP requests",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	}, []string{"method", "endpoint"})

	transferResultsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "transfer_results_total",
		Help: "Transfer outcomes by result status",
	}, []string{"status"})
)

// maxRetriesLimit caps the client-supplied retry budget so a hostile
// max_retries cannot turn one request into unbounded database work.
const maxRetriesLimit = 10

// transferService is what the handler needs from the retry supervisor.
type transferService interface {
	ExecuteWithRetry(ctx context.Context, fromNumber, toNumber string, amount decimal.Decimal, maxRetries int) (*domain.TransferResult, error)
}

// accountStore covers the account reads and the seed path.
type accountStore interface {
	FindByNumber(ctx context.Context, number string) (*domain.Account, error)
	Create(ctx context.Context, number string, balance decimal.Decimal) (*domain.Account, error)
}

// ledgerStore covers ledger reads exposed over HTTP.
type ledgerStore interface {
	GetTransaction(ctx context.Context, id int64) (*domain.Transaction, error)
}

type Handler struct {
	transfers  transferService
	accounts   accountStore
	ledger     ledgerStore
	maxRetries int
	log        *zap.Logger
}

func NewHandler(transfers transferService, accounts accountStore, ledger ledgerStore, maxRetries int, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		transfers:  transfers,
		accounts:   accounts,
		ledger:     ledger,
		maxRetries: maxRetries,
		log:        log,
	}
}

// Register mounts the API routes on the router.
func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/transfer", h.CreateTransferHandler).Methods("POST")
	r.HandleFunc("/seed", h.SeedHandler).Methods("POST")
	r.HandleFunc("/accounts/{number}", h.GetAccountHandler).Methods("GET")
	r.HandleFunc("/transactions/{id}", h.GetTransactionHandler).Methods("GET")
}

func (h *Handler) HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// transferRequest is the payload from the client. Amount travels as a string
// to preserve decimal precision.
type transferRequest struct {
	FromAccount string `json:"from_account"`
	ToAccount   string `json:"to_account"`
	Amount      string `json:"amount"`
	MaxRetries  *int   `json:"max_retries,omitempty"`
}

func (h *Handler) CreateTransferHandler(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues("POST", "/transfer"))
	defer timer.ObserveDuration()

	var req transferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpRequestsTotal.WithLabelValues("POST", "/transfer", "400").Inc()
		respondWithError(w, http.StatusBadRequest, "Malformed JSON body")
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		httpRequestsTotal.WithLabelValues("POST", "/transfer", "400").Inc()
		respondWithError(w, http.StatusBadRequest, "Invalid amount")
		return
	}

	maxRetries := h.maxRetries
	if req.MaxRetries != nil && *req.MaxRetries >= 0 {
		maxRetries = *req.MaxRetries
		if maxRetries > maxRetriesLimit {
			maxRetries = maxRetriesLimit
		}
	}

	res, err := h.transfers.ExecuteWithRetry(r.Context(), req.FromAccount, req.ToAccount, amount, maxRetries)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrValidation):
			httpRequestsTotal.WithLabelValues("POST", "/transfer", "422").Inc()
			respondWithError(w, http.StatusUnprocessableEntity, err.Error())
		case errors.Is(err, domain.ErrAccountNotFound):
			httpRequestsTotal.WithLabelValues("POST", "/transfer", "404").Inc()
			respondWithError(w, http.StatusNotFound, err.Error())
		default:
			h.log.Error("transfer failed", zap.Error(err))
			httpRequestsTotal.WithLabelValues("POST", "/transfer", "500").Inc()
			respondWithError(w, http.StatusInternalServerError, "Internal Server Error")
		}
		return
	}

	transferResultsTotal.WithLabelValues(string(res.Status)).Inc()

	code := http.StatusOK
	switch res.Status {
	case domain.StatusInsufficientFunds:
		code = http.StatusUnprocessableEntity
	case domain.StatusConflictRetry:
		code = http.StatusConflict
	case domain.StatusError:
		code = http.StatusInternalServerError
	}
	httpRequestsTotal.WithLabelValues("POST", "/transfer", strconv.Itoa(code)).Inc()
	respondWithJSON(w, code, res)
}

// SeedHandler creates the two demo accounts if they do not exist yet.
func (h *Handler) SeedHandler(w http.ResponseWriter, r *http.Request) {
	seeds := []struct {
		number  string
		balance string
	}{
		{"A-001", "100.00"},
		{"A-002", "50.00"},
	}

	for _, s := range seeds {
		_, err := h.accounts.FindByNumber(r.Context(), s.number)
		if err == nil {
			continue
		}
		if !errors.Is(err, domain.ErrAccountNotFound) {
			httpRequestsTotal.WithLabelValues("POST", "/seed", "500").Inc()
			respondWithError(w, http.StatusInternalServerError, "System error seeding accounts")
			return
		}
		if _, err := h.accounts.Create(r.Context(), s.number, decimal.RequireFromString(s.balance)); err != nil {
			httpRequestsTotal.WithLabelValues("POST", "/seed", "500").Inc()
			respondWithError(w, http.StatusInternalServerError, "System error seeding accounts")
			return
		}
	}

	httpRequestsTotal.WithLabelValues("POST", "/seed", "200").Inc()
	respondWithJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handler) GetAccountHandler(w http.ResponseWriter, r *http.Request) {
	number := mux.Vars(r)["number"]

	account, err := h.accounts.FindByNumber(r.Context(), number)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			httpRequestsTotal.WithLabelValues("GET", "/accounts/{number}", "404").Inc()
			respondWithError(w, http.StatusNotFound, "Account not found")
			return
		}
		httpRequestsTotal.WithLabelValues("GET", "/accounts/{number}", "500").Inc()
		respondWithError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	httpRequestsTotal.WithLabelValues("GET", "/accounts/{number}", "200").Inc()
	respondWithJSON(w, http.StatusOK, account)
}

func (h *Handler) GetTransactionHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		httpRequestsTotal.WithLabelValues("GET", "/transactions/{id}", "400").Inc()
		respondWithError(w, http.StatusBadRequest, "Invalid transaction id")
		return
	}

	tx, err := h.ledger.GetTransaction(r.Context(), id)
	if err != nil {
		httpRequestsTotal.WithLabelValues("GET", "/transactions/{id}", "404").Inc()
		respondWithError(w, http.StatusNotFound, "Transaction not found")
		return
	}

	httpRequestsTotal.WithLabelValues("GET", "/transactions/{id}", "200").Inc()
	respondWithJSON(w, http.StatusOK, tx)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}
