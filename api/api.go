// Package api exposes the sessionguard REST surface: account registration
// and login, session lock/unlock, and the heartbeat and visibility
// endpoints that feed the session supervisor.
package api

import (
	_ "embed"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-openapi/runtime/middleware"

	"github.com/internquest/sessionguard/credential"
	"github.com/internquest/sessionguard/session"
	"github.com/internquest/sessionguard/storage"
)

//go:embed openapi.yaml
var openapiSpec []byte

// API holds the dependencies needed by the REST handlers. It owns the
// session supervisor so that supervisor-initiated lock/logout events flow
// through the same audit pipeline as handler-initiated ones.
type API struct {
	accounts   *credential.Accounts
	secrets    *credential.Cache
	sessions   session.Store
	supervisor *session.Supervisor
	audit      *auditLogger
	auditStore *auditStore
	limiter    *loginRateLimiter
	sessionTTL time.Duration
	supOpts    []session.SupervisorOption

	log         *slog.Logger
	alertFn     AlertFunc
	webhookURL  string
	webhookAuth string
}

// Option configures the API instance.
type Option func(*API)

// WithLogger sets the structured logger for audit events. If not set, a
// default JSON logger writing to stderr is used.
func WithLogger(logger *slog.Logger) Option {
	return func(a *API) {
		a.log = logger
	}
}

// WithWebhook forwards audit events to an external HTTP endpoint.
func WithWebhook(url, authHeader string) Option {
	return func(a *API) {
		a.webhookURL = url
		a.webhookAuth = authHeader
	}
}

// WithAlertFunc installs an anomaly alert callback on the audit pipeline.
func WithAlertFunc(fn AlertFunc) Option {
	return func(a *API) {
		a.alertFn = fn
	}
}

// WithSessionTTL overrides the absolute session lifetime.
func WithSessionTTL(ttl time.Duration) Option {
	return func(a *API) {
		a.sessionTTL = ttl
	}
}

// WithSupervisorOptions forwards options (thresholds, controller options)
// to the supervisor the API constructs.
func WithSupervisorOptions(opts ...session.SupervisorOption) Option {
	return func(a *API) {
		a.supOpts = append(a.supOpts, opts...)
	}
}

// New creates a new API instance. The repository backs account and audit
// records; the session store is shared with the caller so that persistence
// choices stay at the edge.
func New(repo storage.Repository, sessions session.Store, secrets *credential.Cache, opts ...Option) *API {
	if secrets == nil {
		secrets = credential.NewCache()
	}
	a := &API{
		accounts:   credential.NewAccounts(repo),
		secrets:    secrets,
		sessions:   sessions,
		auditStore: newAuditStore(repo),
		limiter:    newLoginRateLimiter(),
		sessionTTL: session.DefaultSessionTTL,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.log == nil {
		a.log = slog.New(slog.NewJSONHandler(os.Stderr, nil))
	}
	a.audit = newAuditLogger(a.log)
	if a.alertFn != nil {
		a.audit.metrics = newMetricsCollector(a.alertFn)
	}
	if a.webhookURL != "" {
		a.audit.webhook = newAuditWebhook(a.webhookURL, a.webhookAuth, a.log)
	}
	supOpts := append([]session.SupervisorOption{
		session.WithSecretCache(secrets),
		session.WithAudit(a.recordSupervisorEvent),
	}, a.supOpts...)
	a.supervisor = session.NewSupervisor(sessions, supOpts...)
	return a
}

// Supervisor exposes the owned supervisor for shutdown coordination.
func (a *API) Supervisor() *session.Supervisor {
	return a.supervisor
}

// Close stops the supervisor and releases background resources (the audit
// webhook queue).
func (a *API) Close() {
	a.supervisor.StopAll()
	if a.audit != nil && a.audit.webhook != nil {
		a.audit.webhook.close()
	}
}

// Router returns a chi.Router with all API routes mounted.
func (a *API) Router() chi.Router {
	r := chi.NewRouter()

	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		w.Write(openapiSpec)
	})

	r.Handle("/docs*", middleware.SwaggerUI(middleware.SwaggerUIOpts{
		SpecURL: "/api/v1/openapi.yaml",
		Path:    "api/v1/docs",
	}, nil))

	r.Handle("/redoc*", middleware.Redoc(middleware.RedocOpts{
		SpecURL: "/api/v1/openapi.yaml",
		Path:    "api/v1/redoc",
	}, nil))

	r.Post("/auth/register", a.Register)
	r.Post("/auth/login", a.Login)

	// Routes a locked session may still call.
	r.Group(func(r chi.Router) {
		r.Use(a.AuthMiddleware)
		r.Post("/auth/logout", a.Logout)
		r.Post("/auth/unlock", a.Unlock)
		r.Get("/session/status", a.Status)
	})

	// Routes requiring an unlocked session.
	r.Group(func(r chi.Router) {
		r.Use(a.AuthMiddleware, a.RequireUnlocked)
		r.Post("/session/heartbeat", a.Heartbeat)
		r.Post("/session/visibility", a.Visibility)
		r.Get("/sessions", a.ListSessions)
		r.Get("/audit", a.ListAudit)
	})

	return r
}
