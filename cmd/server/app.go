package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/diewo77/go-quotes/auth"
	"github.com/diewo77/go-quotes/httpx"
	"github.com/diewo77/go-quotes/internal/blob"
	"github.com/diewo77/go-quotes/internal/handlers"
	"github.com/diewo77/go-quotes/internal/identity"
	"github.com/diewo77/go-quotes/internal/services"
)

// Deps are the collaborators the HTTP surface is built from.
type Deps struct {
	Workspaces *services.Workspaces
	Identity   identity.Provider
	Archive    blob.Store   // nil disables export archiving
	Metrics    http.Handler // nil disables /metrics
	// Ping reports storage health for /healthz. Nil means always healthy.
	Ping func(ctx context.Context) error
}

// App is the main application handler that sets up all routes.
type App struct {
	mux     *http.ServeMux
	deps    Deps
	handler http.Handler
}

// NewApp creates a new application with all routes configured.
func NewApp(deps Deps) *App {
	app := &App{mux: http.NewServeMux(), deps: deps}
	app.setupRoutes()

	// Outermost first: request id, client ip, panic recovery, logging,
	// then the session.
	var h http.Handler = auth.Middleware(app.mux)
	h = withLogging(h)
	h = middleware.Recoverer(h)
	h = middleware.RealIP(h)
	h = middleware.RequestID(h)
	app.handler = h
	return app
}

// ServeHTTP implements http.Handler.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.handler.ServeHTTP(w, r)
}

// setupRoutes configures all application routes.
func (a *App) setupRoutes() {
	ah := handlers.NewAuthHandler(a.deps.Identity)
	dh := handlers.NewDashboardHandler(a.deps.Workspaces)
	qh := handlers.NewQuoteHandler(a.deps.Workspaces)
	ih := handlers.NewIssuerHandler(a.deps.Workspaces)
	ch := handlers.NewClientHandler(a.deps.Workspaces)
	eh := handlers.NewExportHandler(a.deps.Workspaces, a.deps.Archive)

	// Public routes
	a.mux.HandleFunc("GET /{$}", dh.Index)
	a.mux.HandleFunc("GET /login", ah.Login)
	a.mux.HandleFunc("POST /login", ah.Login)
	a.mux.HandleFunc("GET /signup", ah.Signup)
	a.mux.HandleFunc("POST /signup", ah.Signup)
	a.mux.HandleFunc("POST /logout", ah.Logout)
	a.mux.HandleFunc("GET /reset-password", ah.ResetPassword)
	a.mux.HandleFunc("POST /reset-password", ah.ResetPassword)
	a.mux.HandleFunc("POST /reset-password/confirm", ah.ConfirmReset)
	a.mux.HandleFunc("GET /healthz", a.healthz)
	if a.deps.Metrics != nil {
		a.mux.Handle("GET /metrics", a.deps.Metrics)
	}

	// Authenticated routes
	a.mux.Handle("GET /app", a.requireAuth(dh.App))

	a.mux.Handle("GET /issuers", a.requireAuth(ih.List))
	a.mux.Handle("POST /issuers", a.requireAuth(ih.Create))
	a.mux.Handle("POST /issuers/{id}", a.requireAuth(ih.Update))
	a.mux.Handle("POST /issuers/{id}/delete", a.requireAuth(ih.Delete))
	a.mux.Handle("DELETE /issuers/{id}", a.requireAuth(ih.Delete))

	a.mux.Handle("GET /clients", a.requireAuth(ch.List))
	a.mux.Handle("POST /clients", a.requireAuth(ch.Create))
	a.mux.Handle("POST /clients/{id}", a.requireAuth(ch.Update))
	a.mux.Handle("POST /clients/{id}/delete", a.requireAuth(ch.Delete))
	a.mux.Handle("DELETE /clients/{id}", a.requireAuth(ch.Delete))

	a.mux.Handle("GET /quotes", a.requireAuth(qh.List))
	a.mux.Handle("POST /quotes", a.requireAuth(qh.Create))
	a.mux.Handle("GET /quotes/next-number", a.requireAuth(qh.NextNumber))
	a.mux.Handle("GET /quotes/{id}", a.requireAuth(qh.View))
	a.mux.Handle("POST /quotes/{id}", a.requireAuth(qh.Update))
	a.mux.Handle("POST /quotes/{id}/delete", a.requireAuth(qh.Delete))
	a.mux.Handle("DELETE /quotes/{id}", a.requireAuth(qh.Delete))
	a.mux.Handle("GET /quotes/{id}/print", a.requireAuth(qh.Print))
	a.mux.Handle("GET /quotes/{id}/doc", a.requireAuth(qh.DOC))
	a.mux.Handle("GET /quotes/{id}/pdf", a.requireAuth(qh.PDF))

	a.mux.Handle("GET /export/quotes.csv", a.requireAuth(eh.CSV))
}

func (a *App) requireAuth(h http.HandlerFunc) http.Handler {
	return auth.RequireAuth(h)
}

func (a *App) healthz(w http.ResponseWriter, r *http.Request) {
	if a.deps.Ping != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := a.deps.Ping(ctx); err != nil {
			slog.WarnContext(r.Context(), "health check failed", "err", err)
			httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// withLogging logs one line per request with its status and duration.
func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		slog.InfoContext(r.Context(), "request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
