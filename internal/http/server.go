// Package http serves the finanze REST API under /api/v1.
package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"finanze/internal/core"
	"finanze/internal/log"
	"finanze/internal/middleware/ratelimit"
	"finanze/internal/middleware/security"
	"finanze/internal/middleware/trace"
)

// Authenticator guards user data behind a local account.
type Authenticator interface {
	Signup(ctx context.Context, req core.AuthRequest) error
	Login(ctx context.Context, req core.AuthRequest) error
	Logout(ctx context.Context)
	Status(ctx context.Context) (core.LoginStatusResponse, error)
	ChangePassword(ctx context.Context, req core.ChangePasswordRequest) error
	Unlocked() bool
}

type EntityLister interface {
	List(ctx context.Context) (core.EntitiesResponse, error)
}

type EntityReader interface {
	GetEntity(ctx context.Context, id string) (core.Entity, error)
}

type EntityLoginer interface {
	Login(ctx context.Context, req core.LoginRequest) (core.LoginResponse, error)
	Disconnect(ctx context.Context, req core.DisconnectRequest) error
}

type FinancialFetcher interface {
	Fetch(ctx context.Context, req core.FetchRequest) (core.FetchResponse, error)
}

type VirtualFetcher interface {
	Fetch(ctx context.Context) (core.FetchResponse, error)
}

type Exporter interface {
	Export(ctx context.Context, req core.ExportRequest) error
}

type SettingsStore interface {
	Load(ctx context.Context) (core.Settings, error)
	Save(ctx context.Context, cfg core.Settings) error
}

type RatesProvider interface {
	Get(ctx context.Context) (core.ExchangeRates, error)
}

type WalletManager interface {
	Create(ctx context.Context, req core.CreateCryptoWalletRequest) (core.CryptoWalletConnection, error)
	Update(ctx context.Context, req core.UpdateCryptoWalletConnectionRequest) error
	Delete(ctx context.Context, id string) error
}

type CommoditySaver interface {
	Save(ctx context.Context, req core.SaveCommodityRequest) error
}

// Host is the desktop bridge plus the calls that settle an external login.
type Host interface {
	APIURL(ctx context.Context) (string, error)
	Platform(ctx context.Context) (core.PlatformInfo, error)
	ChangeThemeMode(mode core.ThemeMode) error
	ShowAbout()
	RequestExternalLogin(ctx context.Context, id string, req *core.ExternalLoginRequest) (core.ExternalLoginAck, error)
	OnCompletedExternalLogin(ctx context.Context, id string) <-chan core.ExternalLoginResult
	CompleteExternalLogin(ctx context.Context, id string, result core.ExternalLoginResult) bool
	CancelExternalLogin(ctx context.Context, id string) bool
}

type DataReader interface {
	Positions(ctx context.Context, q core.DataQuery) (core.PositionsResponse, error)
	Contributions(ctx context.Context, q core.DataQuery) (core.ContributionsResponse, error)
	Transactions(ctx context.Context, q core.TransactionQuery) (core.TransactionsResponse, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// Services groups everything the handlers call.
type Services struct {
	Auth        Authenticator
	Entities    EntityLister
	EntityStore EntityReader
	Login       EntityLoginer
	Fetch       FinancialFetcher
	Virtual     VirtualFetcher
	Export      Exporter
	Settings    SettingsStore
	Rates       RatesProvider
	Wallets     WalletManager
	Commodities CommoditySaver
	Data        DataReader
	Host        Host
	DB          Pinger

	// Integrations is reported as configured at startup.
	Integrations core.IntegrationsResponse
}

type Options struct {
	RequestsPerMinute int
	// PollTimeout bounds how long an external login poll is held open.
	PollTimeout time.Duration
}

func DefaultOptions() Options {
	return Options{RequestsPerMinute: 60, PollTimeout: 30 * time.Second}
}

type Server struct {
	*http.Server
	svc         Services
	limiter     *ratelimit.Limiter
	detector    *security.Detector
	logger      *log.Logger
	pollTimeout time.Duration
}

func NewServer(addr string, svc Services, opts Options, logger *log.Logger) *Server {
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = DefaultOptions().PollTimeout
	}
	s := &Server{
		svc: svc,
		limiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: opts.RequestsPerMinute,
			CleanupInterval:   5 * time.Minute,
		}),
		detector:    security.NewDetector(),
		logger:      logger.WithComponent(log.ComponentHTTP),
		pollTimeout: opts.PollTimeout,
	}

	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/readyz", s.handleReady).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(s.suspiciousRequests)
	api.Use(s.limiter.Middleware(s.detector.ClientIP, ratelimit.MutatingOnly, s.onRateLimit))

	api.HandleFunc("/signup", s.handleSignup).Methods(http.MethodPost)
	api.HandleFunc("/login", s.handleUserLogin).Methods(http.MethodPost)
	api.HandleFunc("/login", s.handleLoginStatus).Methods(http.MethodGet)
	api.HandleFunc("/login", s.handleChangePassword).Methods(http.MethodPut)
	api.HandleFunc("/logout", s.handleLogout).Methods(http.MethodPost)

	api.HandleFunc("/platform", s.handlePlatform).Methods(http.MethodGet)
	api.HandleFunc("/theme", s.handleTheme).Methods(http.MethodPost)
	api.HandleFunc("/about", s.handleAbout).Methods(http.MethodPost)
	api.HandleFunc("/exchange-rates", s.handleExchangeRates).Methods(http.MethodGet)

	data := api.NewRoute().Subrouter()
	data.Use(s.requireUnlocked)
	data.HandleFunc("/entities", s.handleListEntities).Methods(http.MethodGet)
	data.HandleFunc("/entities/login", s.handleEntityLogin).Methods(http.MethodPost)
	data.HandleFunc("/entities/login", s.handleDisconnect).Methods(http.MethodDelete)
	data.HandleFunc("/data/fetch/financial", s.handleFetch).Methods(http.MethodPost)
	data.HandleFunc("/data/fetch/virtual", s.handleVirtualFetch).Methods(http.MethodPost)
	data.HandleFunc("/data/export", s.handleExport).Methods(http.MethodPost)
	data.HandleFunc("/settings", s.handleGetSettings).Methods(http.MethodGet)
	data.HandleFunc("/settings", s.handleSaveSettings).Methods(http.MethodPost)
	data.HandleFunc("/crypto-wallet", s.handleCreateWallet).Methods(http.MethodPost)
	data.HandleFunc("/crypto-wallet", s.handleUpdateWallet).Methods(http.MethodPut)
	data.HandleFunc("/crypto-wallet/{id}", s.handleDeleteWallet).Methods(http.MethodDelete)
	data.HandleFunc("/commodities", s.handleSaveCommodities).Methods(http.MethodPost)
	data.HandleFunc("/positions", s.handlePositions).Methods(http.MethodGet)
	data.HandleFunc("/contributions", s.handleContributions).Methods(http.MethodGet)
	data.HandleFunc("/transactions", s.handleTransactions).Methods(http.MethodGet)
	data.HandleFunc("/integrations", s.handleIntegrations).Methods(http.MethodGet)
	data.HandleFunc("/external-login/{id}", s.handleRequestExternalLogin).Methods(http.MethodPost)
	data.HandleFunc("/external-login/{id}", s.handlePollExternalLogin).Methods(http.MethodGet)
	data.HandleFunc("/external-login/{id}", s.handleCancelExternalLogin).Methods(http.MethodDelete)
	data.HandleFunc("/external-login/{id}/complete", s.handleCompleteExternalLogin).Methods(http.MethodPost)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "no such route")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", r.Method+" not allowed")
	})

	// Outermost first: the id must exist before anything logs.
	var handler http.Handler = r
	handler = log.AccessMiddleware(s.detector.ClientIP)(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = log.RequestIDMiddleware(trace.FromRequest)(handler)
	handler = log.Middleware(logger)(handler)
	handler = trace.Middleware(handler)

	s.Server = &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		// Long enough for an external login poll.
		WriteTimeout: opts.PollTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Shutdown stops the rate limiter cleanup before draining connections.
func (s *Server) Shutdown(ctx context.Context) error {
	s.limiter.Stop()
	s.logger.InfoContext(ctx, "HTTP server shutting down",
		"rate_limit_hits", s.limiter.GetMetrics().TotalHits,
		"suspicious_requests", s.detector.GetMetrics().SuspiciousRequests)
	return s.Server.Shutdown(ctx)
}

func (s *Server) suspiciousRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.detector.Suspicious(r) {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Suspicious request",
				log.FieldClientIP, s.detector.ClientIP(r),
				"method", r.Method,
				"path", r.URL.Path)
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WithComponent(log.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.detector.ClientIP(r),
		"path", r.URL.Path)
	writeError(w, http.StatusTooManyRequests, "RATE_LIMITED", "rate limit exceeded, try again later")
}

func (s *Server) requireUnlocked(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.svc.Auth.Unlocked() {
			s.fail(w, r, core.ErrLocked)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.svc.DB != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.svc.DB.Ping(ctx); err != nil {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", log.FieldError, err.Error())
			writeError(w, http.StatusServiceUnavailable, "NOT_READY", "database unavailable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
