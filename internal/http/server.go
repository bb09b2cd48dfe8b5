package http

import (
	"context"
	"fmt"
	"net/http"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"atlas/internal/auth"
	"atlas/internal/log"
	"atlas/internal/middleware/ratelimit"
	"atlas/internal/middleware/security"
	"atlas/internal/middleware/trace"
	"atlas/internal/services"
)

// Pinger reports whether the backing store answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Services bundles what the handlers call into.
type Services struct {
	Auth       *services.AuthService
	Ledger     *services.LedgerService
	Tracker    *services.TrackerService
	Settings   *services.SettingsService
	Categories *services.CategoryService
	Dashboard  *services.DashboardService
	Clock      services.Clock
	Store      Pinger
}

// Options tune the middleware stack.
type Options struct {
	Logger *log.Logger
	// RateLimitPerMinute caps /api requests per client; 0 disables it.
	RateLimitPerMinute int
	TrustedProxies     []string
}

type appMetrics struct {
	transactionsCreated int64
	remindersRead       int64
	panics              int64
	started             time.Time
}

type Server struct {
	http.Server
	svc    Services
	logger *log.Logger

	trace    *trace.Middleware
	detector *security.Detector
	limiter  *ratelimit.Limiter
	metrics  appMetrics

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server.
func NewServer(addr string, svc Services, opts Options) (*Server, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.FromContext(context.Background())
	}

	detector := security.NewDetector()
	for _, cidr := range opts.TrustedProxies {
		if err := detector.AddTrustedProxy(cidr); err != nil {
			return nil, err
		}
	}

	s := &Server{
		svc:      svc,
		logger:   logger.WithComponent(log.ComponentHTTP),
		trace:    trace.NewMiddleware(detector.ExtractClientIP, logger),
		detector: detector,
		metrics:  appMetrics{started: time.Now()},
	}
	if opts.RateLimitPerMinute > 0 {
		s.limiter = ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute})
	}

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(logger),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 16,
	}
	return s, nil
}

func (s *Server) routes(logger *log.Logger) http.Handler {
	api := http.NewServeMux()

	api.HandleFunc("POST /api/register", s.handleRegister)
	api.HandleFunc("POST /api/login", s.handleLogin)
	api.HandleFunc("GET /api/verify", s.requireAuth(s.handleVerify))

	api.HandleFunc("GET /api/transactions", s.requireAuth(s.handleListTransactions))
	api.HandleFunc("GET /api/transactions/{year}/{month}", s.requireAuth(s.handleListMonth))
	api.HandleFunc("GET /api/transactions/series/{masterID}", s.requireAuth(s.handleListSeries))
	api.HandleFunc("POST /api/transactions", s.requireAuth(s.handleCreateTransaction))
	api.HandleFunc("PUT /api/transactions/{id}", s.requireAuth(s.handleUpdateTransaction))
	api.HandleFunc("DELETE /api/transactions/{id}", s.requireAuth(s.handleDeleteTransaction))

	api.HandleFunc("GET /api/notifications", s.requireAuth(s.handleUpcoming))
	api.HandleFunc("POST /api/notifications/read", s.requireAuth(s.handleMarkRead))
	api.HandleFunc("POST /api/notifications/read-all", s.requireAuth(s.handleMarkAllRead))

	api.HandleFunc("GET /api/settings", s.requireAuth(s.handleGetSettings))
	api.HandleFunc("PUT /api/settings", s.requireAuth(s.handleUpdateSettings))

	api.HandleFunc("GET /api/categories", s.requireAuth(s.handleListCategories))
	api.HandleFunc("GET /api/categories/{type}", s.requireAuth(s.handleListCategories))
	api.HandleFunc("POST /api/categories", s.requireAuth(s.handleCreateCategory))
	api.HandleFunc("PUT /api/categories/{id}", s.requireAuth(s.handleUpdateCategory))
	api.HandleFunc("DELETE /api/categories/{id}", s.requireAuth(s.handleDeleteCategory))

	api.HandleFunc("GET /api/dashboard/overview", s.requireAuth(s.handleOverview))
	api.HandleFunc("GET /api/dashboard/categories", s.requireAuth(s.handleCategoryTotals))
	api.HandleFunc("GET /api/dashboard/recurring", s.requireAuth(s.handleRecurring))
	api.HandleFunc("GET /api/dashboard/calendar", s.requireAuth(s.handleCalendar))

	api.HandleFunc("GET /api/admin/stats", s.requireAdmin(s.handleAdminStats))

	var apiHandler http.Handler = jsonMuxErrors(api)
	if s.limiter != nil {
		apiHandler = s.limiter.Middleware(s.detector.ExtractClientIP, s.rateLimited)(apiHandler)
	}

	root := http.NewServeMux()
	root.HandleFunc("GET /healthz", s.handleHealth)
	root.HandleFunc("GET /readyz", s.handleReady)
	root.HandleFunc("GET /metrics", s.handleMetrics)
	root.Handle("/api/", apiHandler)

	// Outermost first.
	return chain(root,
		s.trace.Middleware,
		log.Middleware(logger),
		log.RequestIDMiddleware(trace.GetRequestID),
		s.recoverer,
		security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware,
		s.detector.Middleware(logger),
	)
}

// jsonMuxErrors serves mux, turning its plain-text 404 and 405 replies into
// JSON errors. The Allow header of a 405 is kept.
func jsonMuxErrors(mux *http.ServeMux) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, pattern := mux.Handler(r); pattern != "" {
			mux.ServeHTTP(w, r)
			return
		}
		mux.ServeHTTP(&muxErrorWriter{ResponseWriter: w}, r)
	})
}

// muxErrorWriter replaces the body of an error reply written by ServeMux.
type muxErrorWriter struct {
	http.ResponseWriter
	wroteHeader bool
	passthrough bool
}

func (w *muxErrorWriter) WriteHeader(code int) {
	if w.wroteHeader {
		return
	}
	w.wroteHeader = true

	// Path-cleaning redirects go out as the mux wrote them.
	if code != http.StatusNotFound && code != http.StatusMethodNotAllowed {
		w.passthrough = true
		w.ResponseWriter.WriteHeader(code)
		return
	}

	msg := "no such endpoint"
	if code == http.StatusMethodNotAllowed {
		msg = "method not allowed"
	}
	ErrorResponse(code, msg).Write(w.ResponseWriter)
}

func (w *muxErrorWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusNotFound)
	}
	if w.passthrough {
		return w.ResponseWriter.Write(b)
	}
	return len(b), nil
}

func chain(h http.Handler, middleware ...func(http.Handler) http.Handler) http.Handler {
	for i := len(middleware) - 1; i >= 0; i-- {
		h = middleware[i](h)
	}
	return h
}

// recoverer turns a handler panic into a 500 and keeps the server alive.
func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				atomic.AddInt64(&s.metrics.panics, 1)
				log.FromContext(r.Context()).ErrorContext(r.Context(), "Handler panic",
					log.FieldPath, r.URL.Path,
					log.FieldError, fmt.Sprint(rec),
					"stack", string(debug.Stack()))
				InternalServerError().Write(w)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// requireAuth verifies the bearer token and stores the principal in the
// request context.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			UnauthorizedError("missing bearer token").Write(w)
			return
		}
		p, err := s.svc.Auth.Verify(token)
		if err != nil {
			log.FromContext(r.Context()).WithComponent(log.ComponentAuth).DebugContext(r.Context(),
				"Token rejected", log.FieldError, err.Error())
			UnauthorizedError("invalid or expired token").Write(w)
			return
		}

		ctx := auth.WithPrincipal(r.Context(), p)
		ctx = log.NewContext(ctx, log.FromContext(ctx).With(log.FieldUserID, p.UserID))
		next(w, r.WithContext(ctx))
	}
}

// requireAdmin is requireAuth plus a 403 for non-admin callers.
func (s *Server) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return s.requireAuth(func(w http.ResponseWriter, r *http.Request) {
		if !principal(r).IsAdmin {
			ForbiddenError("admin access required").Write(w)
			return
		}
		next(w, r)
	})
}

func (s *Server) rateLimited(w http.ResponseWriter, r *http.Request) {
	s.logger.WithComponent(log.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.detector.ExtractClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded, try again later").Write(w)
}

// Shutdown gracefully shuts down the server and the rate limiter sweeper.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.limiter != nil {
			s.limiter.Stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
