package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"coin-ledger-go/internal/ledger"
	"coin-ledger-go/internal/models"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// AccountHeader carries the authenticated account id, set by the gateway in front of this server.
const AccountHeader = "X-Account-ID"

const defaultTradesLimit = 50

// maxBodyBytes caps request bodies; trade and account payloads are a few dozen bytes.
const maxBodyBytes = 4 << 10

const (
	minNameLength  = 4
	maxNameLength  = 12
	maxEmailLength = 100
)

// Trader is the part of the trade engine the HTTP layer calls.
type Trader interface {
	Buy(ctx context.Context, req ledger.TradeRequest) (ledger.Execution, error)
	Sell(ctx context.Context, req ledger.TradeRequest) (ledger.Execution, error)
	Quote(ctx context.Context, symbol string) (ledger.Quote, error)
	Balances(ctx context.Context, accountID uuid.UUID, includeZero bool) ([]models.Balance, error)
	Trades(ctx context.Context, accountID uuid.UUID, limit int) ([]models.Trade, error)
	ActiveAssets(ctx context.Context) ([]models.Asset, error)
}

// AccountProvisioner creates new accounts with their seeded balances.
type AccountProvisioner interface {
	Provision(ctx context.Context, account *models.Account) error
}

// APIServer provides an HTTP interface for the ledger.
type APIServer struct {
	server      *http.Server
	router      *mux.Router
	trader      Trader
	provisioner AccountProvisioner
	logger      *zap.Logger
	startTime   time.Time
}

// NewAPIServer creates a new APIServer listening on port.
func NewAPIServer(port int, trader Trader, provisioner AccountProvisioner, logger *zap.Logger) *APIServer {
	s := &APIServer{
		router:      mux.NewRouter(),
		trader:      trader,
		provisioner: provisioner,
		logger:      logger.Named("api-server"),
		startTime:   time.Now(),
	}
	s.setupRoutes()

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *APIServer) setupRoutes() {
	s.router.HandleFunc("/health", s.healthHandler).Methods(http.MethodGet)

	s.router.HandleFunc("/accounts", s.createAccountHandler).Methods(http.MethodPost)
	s.router.HandleFunc("/coins", s.coinsHandler).Methods(http.MethodGet)
	s.router.HandleFunc("/coin/{symbol}", s.quoteHandler).Methods(http.MethodGet)

	s.router.HandleFunc("/balance", s.withAccount(s.balanceHandler)).Methods(http.MethodGet)
	s.router.HandleFunc("/trades", s.withAccount(s.tradesHandler)).Methods(http.MethodGet)
	s.router.HandleFunc("/coin/{symbol}/buy", s.withAccount(s.tradeHandler(ledger.SideBuy))).Methods(http.MethodPost)
	s.router.HandleFunc("/coin/{symbol}/sell", s.withAccount(s.tradeHandler(ledger.SideSell))).Methods(http.MethodPost)
}

// Handler exposes the router, mainly for tests.
func (s *APIServer) Handler() http.Handler {
	return s.router
}

// Start runs the HTTP server in a new goroutine.
func (s *APIServer) Start() {
	s.logger.Info("Starting API server", zap.String("address", s.server.Addr))
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server failed", zap.Error(err))
		}
	}()
}

// Stop gracefully shuts down the server.
func (s *APIServer) Stop(ctx context.Context) error {
	s.logger.Info("Stopping API server...")
	return s.server.Shutdown(ctx)
}

type accountHandler func(w http.ResponseWriter, r *http.Request, accountID uuid.UUID)

// withAccount reads the caller's account id. Authentication itself happens upstream.
func (s *APIServer) withAccount(next accountHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(strings.TrimSpace(r.Header.Get(AccountHeader)))
		if err != nil {
			s.writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing or invalid " + AccountHeader})
			return
		}
		next(w, r, id)
	}
}

func (s *APIServer) healthHandler(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"uptime": time.Since(s.startTime).Round(time.Second).String(),
	})
}

type createAccountRequest struct {
	Name           string `json:"name"`
	Email          string `json:"email"`
	CredentialHash string `json:"credential_hash"`
}

func (s *APIServer) createAccountHandler(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed request body"})
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	if err := validateAccount(req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	account := &models.Account{Name: req.Name, Email: req.Email, CredentialHash: req.CredentialHash}
	if err := s.provisioner.Provision(r.Context(), account); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, account)
}

// validateAccount applies the registration rules: a 4-12 character alphanumeric
// name and a plain email address of at most 100 characters.
func validateAccount(req createAccountRequest) error {
	if len(req.Name) < minNameLength || len(req.Name) > maxNameLength {
		return fmt.Errorf("name must be %d-%d characters", minNameLength, maxNameLength)
	}
	for _, c := range req.Name {
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9') {
			return errors.New("name may only contain letters and digits")
		}
	}
	if len(req.Email) > maxEmailLength {
		return fmt.Errorf("email must be at most %d characters", maxEmailLength)
	}
	addr, err := mail.ParseAddress(req.Email)
	if err != nil || addr.Address != req.Email {
		return errors.New("email is not a valid address")
	}
	return nil
}

func (s *APIServer) coinsHandler(w http.ResponseWriter, r *http.Request) {
	assets, err := s.trader.ActiveAssets(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	coins := make([]string, 0, len(assets))
	for _, a := range assets {
		coins = append(coins, a.Symbol)
	}
	s.writeJSON(w, http.StatusOK, coins)
}

func (s *APIServer) quoteHandler(w http.ResponseWriter, r *http.Request) {
	quote, err := s.trader.Quote(r.Context(), mux.Vars(r)["symbol"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, quote)
}

type balanceResponse struct {
	Symbol string          `json:"symbol"`
	Amount decimal.Decimal `json:"amount"`
}

func (s *APIServer) balanceHandler(w http.ResponseWriter, r *http.Request, accountID uuid.UUID) {
	includeZero, _ := strconv.ParseBool(r.URL.Query().Get("all"))
	balances, err := s.trader.Balances(r.Context(), accountID, includeZero)
	if err != nil {
		s.writeError(w, err)
		return
	}
	out := make([]balanceResponse, 0, len(balances))
	for _, b := range balances {
		out = append(out, balanceResponse{Symbol: b.Symbol, Amount: b.Amount})
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *APIServer) tradesHandler(w http.ResponseWriter, r *http.Request, accountID uuid.UUID) {
	limit := defaultTradesLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "limit must be a positive integer"})
			return
		}
		limit = n
	}
	trades, err := s.trader.Trades(r.Context(), accountID, limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if trades == nil {
		trades = []models.Trade{}
	}
	s.writeJSON(w, http.StatusOK, trades)
}

func (s *APIServer) tradeHandler(side ledger.Side) accountHandler {
	return func(w http.ResponseWriter, r *http.Request, accountID uuid.UUID) {
		var body tradeBody
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			s.writeError(w, fmt.Errorf("%w: malformed request body", ledger.ErrInvalidQuantityFormat))
			return
		}

		req := ledger.TradeRequest{
			AccountID: accountID,
			Symbol:    mux.Vars(r)["symbol"],
			Quantity:  string(body.Quantity),
			UseAll:    bool(body.All),
		}

		var exec ledger.Execution
		var err error
		if side == ledger.SideBuy {
			exec, err = s.trader.Buy(r.Context(), req)
		} else {
			exec, err = s.trader.Sell(r.Context(), req)
		}
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, exec)
	}
}
