package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	_ "github.com/aussiebroadwan/provision/api/provision" // Swagger docs
	"github.com/aussiebroadwan/provision/internal/provision/domain"
	"github.com/aussiebroadwan/provision/internal/provision/inbox"
	"github.com/aussiebroadwan/provision/internal/provision/service"
	"github.com/aussiebroadwan/provision/internal/provision/store"
	"github.com/aussiebroadwan/provision/pkg/codescan"
	"github.com/aussiebroadwan/provision/pkg/httpx"
	"github.com/aussiebroadwan/provision/pkg/jwtx"
	"github.com/aussiebroadwan/provision/pkg/logring"
	"github.com/aussiebroadwan/provision/pkg/slogx"
	httpSwagger "github.com/swaggo/http-swagger"
)

// AccountSource returns the current account list. It is called per request
// so edits to the accounts file show up without a restart.
type AccountSource func() ([]domain.Account, error)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	verifier     jwtx.Verifier // nil disables operator authentication
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	Accounts AccountSource
	Store    store.CredentialStore
	Ledger   store.Ledger // optional
	Gate     *service.Gate
	Runs     *service.RunService
	Logs     *logring.Ring
	Codes    *codescan.Extractor
	Inbox    *inbox.Reader // optional

	// BaseContext outlives requests and is cancelled on shutdown. Background
	// runs started over HTTP derive from it.
	BaseContext context.Context
	Now         func() time.Time
}

func NewRouter(verifier jwtx.Verifier, buildVersion string, logger *slog.Logger) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		verifier:     verifier,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		logger:       logger,
		Codes:        codescan.New(codescan.DefaultConfig()),
		BaseContext:  context.Background(),
		Now:          time.Now,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerSystem()
	r.registerAccounts()
	r.registerRuns()
	r.registerLogs()
	r.registerCodes()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title						Provision Operator API
//	@version					0.1.0
//	@description				Operator API for the account security provisioning orchestrator: account status, single and batch provisioning runs, run history, one-time codes and inbox reads.
//	@contact.name				AussieBroadWAN Team
//	@contact.url				https://github.com/aussiebroadwan/provision
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//	@host						localhost:8080
//	@BasePath					/
//	@schemes					http https
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				HS256 operator token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

// secured wraps h with operator authentication and scope checks when a
// verifier is configured, followed by the rate limit.
func (r *Router) secured(h http.Handler, scope string, limit httpx.RateLimitConfig) http.Handler {
	var mws []httpx.Middleware
	if r.verifier != nil {
		mws = append(mws,
			httpx.AuthnMiddleware(r.verifier),
			httpx.RequireAnyScope(scope),
		)
	}
	mws = append(mws, httpx.RateLimitMiddleware(limit, httpx.OperatorKeyExtractor))
	return httpx.Chain(h, mws...)
}

func (r *Router) registerSystem() {
	// Health check endpoints - lenient rate limits (monitoring systems may poll frequently)
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitMiddleware(httpx.ReadLimit, httpx.IPKeyExtractor),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.Store, r.Ledger),
			httpx.RateLimitMiddleware(httpx.ReadLimit, httpx.IPKeyExtractor),
		),
	)
}

func (r *Router) registerAccounts() {
	h := &AccountsHandler{
		Accounts: r.Accounts,
		Store:    r.Store,
		Gate:     r.Gate,
		Runs:     r.Runs,
		Inbox:    r.Inbox,
		Now:      r.Now,
	}

	r.Mux.Handle("GET /v1/accounts",
		r.secured(http.HandlerFunc(h.HandleList), jwtx.ScopeRead, httpx.ReadLimit))
	r.Mux.Handle("GET /v1/accounts/{id}/totp",
		r.secured(http.HandlerFunc(h.HandleTOTP), jwtx.ScopeRead, httpx.ReadLimit))

	r.Mux.Handle("GET /v1/accounts/{id}/messages",
		r.secured(http.HandlerFunc(h.HandleMessages), jwtx.ScopeRead, httpx.ReadLimit))

	// Single-account runs drive the remote service - strict limit
	r.Mux.Handle("POST /v1/accounts/{id}/provision",
		r.secured(http.HandlerFunc(h.HandleProvision), jwtx.ScopeRun, httpx.RunLimit))
}

func (r *Router) registerRuns() {
	h := &RunsHandler{
		Accounts:    r.Accounts,
		Runs:        r.Runs,
		BaseContext: r.BaseContext,
	}

	r.Mux.Handle("POST /v1/runs",
		r.secured(http.HandlerFunc(h.HandleStart), jwtx.ScopeRun, httpx.RunLimit))
	r.Mux.Handle("GET /v1/runs",
		r.secured(http.HandlerFunc(h.HandleList), jwtx.ScopeRead, httpx.ReadLimit))
	r.Mux.Handle("GET /v1/runs/current",
		r.secured(http.HandlerFunc(h.HandleCurrent), jwtx.ScopeRead, httpx.ReadLimit))
	r.Mux.Handle("GET /v1/runs/{id}",
		r.secured(http.HandlerFunc(h.HandleGet), jwtx.ScopeRead, httpx.ReadLimit))
}

func (r *Router) registerLogs() {
	r.Mux.Handle("GET /v1/logs",
		r.secured(LogsHandler(r.Logs), jwtx.ScopeRead, httpx.ReadLimit))
}

func (r *Router) registerCodes() {
	r.Mux.Handle("POST /v1/codes/extract",
		r.secured(CodesHandler(r.Codes), jwtx.ScopeRead, httpx.ReadLimit))
}
