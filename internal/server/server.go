package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jonathan/meeting-reporter/internal/config"
	"github.com/jonathan/meeting-reporter/internal/db"
	"github.com/jonathan/meeting-reporter/internal/pipeline"
	"github.com/jonathan/meeting-reporter/internal/server/middleware"
	"github.com/jonathan/meeting-reporter/internal/server/ratelimit"
)

const (
	defaultShutdownTimeout = 30 * time.Second
	defaultEventInterval   = time.Second
)

// Drainer is implemented by dispatchers that can finish running work on shutdown.
type Drainer interface {
	Shutdown(ctx context.Context) error
}

// Config holds the server's dependencies and settings.
type Config struct {
	Port          int
	Store         db.Store
	Dispatcher    pipeline.Dispatcher
	JWT           *config.JWTConfig
	Password      *config.PasswordConfig
	RateLimit     *ratelimit.Config // nil uses ratelimit.DefaultConfig
	UploadDir     string
	ReportDir     string
	MaxUploadSize int64
	// CORSOrigins lists the allowed browser origins; empty or "*" allows any.
	CORSOrigins []string

	// EventInterval is how often the events stream re-reads job status.
	EventInterval   time.Duration
	ShutdownTimeout time.Duration
}

// Server is the HTTP API server
type Server struct {
	httpServer  *http.Server
	handler     http.Handler
	store       db.Store
	dispatcher  pipeline.Dispatcher
	rateLimiter *ratelimit.Limiter
	jwtService  *JWTService
	authHandler *AuthHandler

	uploadDir       string
	reportDir       string
	maxUploadSize   int64
	corsOrigins     map[string]bool
	eventInterval   time.Duration
	shutdownTimeout time.Duration
}

// New creates a new server
func New(cfg Config) (*Server, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("server requires a store")
	}
	if cfg.Dispatcher == nil {
		return nil, fmt.Errorf("server requires a dispatcher")
	}
	if cfg.JWT == nil || cfg.Password == nil {
		return nil, fmt.Errorf("server requires JWT and password configuration")
	}
	if cfg.UploadDir == "" || cfg.ReportDir == "" {
		return nil, fmt.Errorf("server requires upload and report directories")
	}
	if cfg.MaxUploadSize <= 0 {
		return nil, fmt.Errorf("max upload size must be positive")
	}
	if cfg.EventInterval <= 0 {
		cfg.EventInterval = defaultEventInterval
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}

	jwtService := NewJWTService(cfg.JWT)
	s := &Server{
		store:           cfg.Store,
		dispatcher:      cfg.Dispatcher,
		rateLimiter:     ratelimit.NewLimiter(cfg.RateLimit),
		jwtService:      jwtService,
		authHandler:     NewAuthHandler(NewUserService(cfg.Store, cfg.Password), jwtService),
		uploadDir:       cfg.UploadDir,
		reportDir:       cfg.ReportDir,
		maxUploadSize:   cfg.MaxUploadSize,
		corsOrigins:     originSet(cfg.CORSOrigins),
		eventInterval:   cfg.EventInterval,
		shutdownTimeout: cfg.ShutdownTimeout,
	}

	mux := http.NewServeMux()
	auth := middleware.RequireAuth(jwtService)

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /auth/register", s.authHandler.Register)
	mux.HandleFunc("POST /auth/login", s.authHandler.Login)

	mux.Handle("POST /audio/upload", auth(http.HandlerFunc(s.handleUpload)))
	mux.Handle("POST /report/generate", auth(http.HandlerFunc(s.handleGenerate)))
	mux.Handle("GET /report/status/{job_id}", auth(http.HandlerFunc(s.handleStatus)))
	mux.Handle("GET /report/download/{job_id}", auth(http.HandlerFunc(s.handleDownload)))
	mux.Handle("GET /report/events/{job_id}", auth(http.HandlerFunc(s.handleEvents)))

	s.handler = s.withRateLimit(s.withLogging(s.withCORS(mux)))
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run serves until ctx is cancelled, then stops accepting requests and drains
// the dispatcher within the shutdown timeout.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.httpServer.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Printf("[server] listening on %s", ln.Addr())
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Println("[server] shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()

		var errs []error
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("server shutdown failed: %w", err))
		}
		s.rateLimiter.Stop()
		if d, ok := s.dispatcher.(Drainer); ok {
			if err := d.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, err)
			}
		}
		log.Println("[server] stopped")
		return errors.Join(errs...)
	})

	return g.Wait()
}

// originSet returns nil when every origin is allowed.
func originSet(origins []string) map[string]bool {
	set := make(map[string]bool, len(origins))
	for _, o := range origins {
		if o == "*" {
			return nil
		}
		set[o] = true
	}
	if len(set) == 0 {
		return nil
	}
	return set
}

// withCORS adds CORS headers
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.corsOrigins == nil {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		} else {
			w.Header().Add("Vary", "Origin")
			if origin := r.Header.Get("Origin"); s.corsOrigins[origin] {
				w.Header().Set("Access-Control-Allow-Origin", origin)
			}
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Expose-Headers", "Content-Disposition")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withRateLimit rejects requests over the client's budget with 429.
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, info := s.rateLimiter.Allow(clientID(r), r.URL.Path, r.Method)
		setRateLimitHeaders(w, info)
		if !allowed {
			rateLimitResponse(w, r, info)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the response status for request logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Flush keeps streaming responses working through the logging wrapper.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// withLogging adds request logging
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Printf("[%s] %s %d %s in %v", r.Method, r.URL.Path, rec.status, r.RemoteAddr, time.Since(start))
	})
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// jsonResponse writes a JSON response
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("[server] error encoding JSON response: %v", err)
	}
}

// errorResponse writes an error JSON response
func errorResponse(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"error": message})
}

// writeError maps err onto its HTTP status and logs unexpected failures.
func writeError(w http.ResponseWriter, err error) {
	var notReady *NotReadyError
	if errors.As(err, &notReady) {
		jsonResponse(w, http.StatusAccepted, notReady.pending())
		return
	}

	status := HTTPStatus(err)
	var failed *JobFailedError
	if status == http.StatusInternalServerError && !errors.As(err, &failed) {
		log.Printf("[server] internal error: %v", err)
	}
	errorResponse(w, status, clientMessage(err))
}

// clientID identifies the caller by remote IP.
func clientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// setRateLimitHeaders sets standard rate limit headers on the response.
func setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(info.ResetTime.Unix(), 10))
	}
}

// rateLimitResponse writes a 429 Too Many Requests response with rate limit information.
func rateLimitResponse(w http.ResponseWriter, r *http.Request, info ratelimit.Info) {
	response := map[string]any{
		"error":     "rate_limit_exceeded",
		"message":   "Rate limit exceeded. Please try again later.",
		"limit":     info.Limit,
		"remaining": info.Remaining,
		"reset_at":  info.ResetTime.Format(time.RFC3339),
	}

	if info.RetryAfter > 0 {
		seconds := int(info.RetryAfter.Seconds()) + 1
		response["retry_after"] = seconds
		w.Header().Set("Retry-After", strconv.Itoa(seconds))
	}

	log.Printf("[rate-limit] %s %s from %s rejected: limit=%d reset=%s",
		r.Method, r.URL.Path, clientID(r), info.Limit, info.ResetTime.Format(time.RFC3339))

	jsonResponse(w, http.StatusTooManyRequests, response)
}
