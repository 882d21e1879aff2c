// Package httpapi exposes the validation pipeline over HTTP: a
// synchronous POST /validate endpoint that drives one Agent run, a
// GET /diagnostic-questions endpoint for the closed questionnaire, and
// a POST /webhook/generic endpoint to register an outbound CloudEvents
// subscriber.
package httpapi

import (
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/wikisoft/rosterval/internal/agent"
	"github.com/wikisoft/rosterval/internal/events"
	"github.com/wikisoft/rosterval/internal/progress"
)

// Server is the validation service's HTTP surface.
type Server struct {
	agent      *agent.Agent
	dispatcher *events.Dispatcher
	auth       progress.Authenticator
	mux        *http.ServeMux
}

// Config tunes request-scoped behavior shared across handlers.
type Config struct {
	MaxIterations  int
	SkipAI         bool
	RowCap         int
	Layer2Tolerance float64
	RequireAuth    bool

	MatchRetryThreshold        float64
	MatchHumanThreshold        float64
	EarlyTerminationConfidence float64
}

type server struct {
	*Server
	cfg Config
}

// NewServer wires an Agent, an event Dispatcher, an Authenticator, and
// a progress Hub's Handler into one routed mux.
func NewServer(a *agent.Agent, dispatcher *events.Dispatcher, auth progress.Authenticator, progressHandler http.Handler, cfg Config) *Server {
	s := &server{Server: &Server{agent: a, dispatcher: dispatcher, auth: auth, mux: http.NewServeMux()}, cfg: cfg}
	s.routes(progressHandler)
	return s.Server
}

func (s *server) routes(progressHandler http.Handler) {
	s.mux.Handle("POST /validate", s.requireAuth(http.HandlerFunc(s.handleValidate)))
	s.mux.HandleFunc("GET /diagnostic-questions", s.handleDiagnosticQuestions)
	s.mux.Handle("POST /webhook/generic", s.requireAuth(http.HandlerFunc(s.handleWebhookRegister)))
	s.mux.HandleFunc("GET /health", s.handleHealth)
	if progressHandler != nil {
		s.mux.Handle("GET /validate/stream/{session_id}", progressHandler)
	}
}

// requireAuth guards a handler with the shared JWT bearer Authenticator
// unless auth was explicitly disabled for local development.
func (s *server) requireAuth(next http.Handler) http.Handler {
	if !s.cfg.RequireAuth {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := s.auth.Authenticate(r); err != nil {
			log.Warn().Err(err).Str("path", r.URL.Path).Msg("request authentication failed")
			http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ServeHTTP implements http.Handler over the composed middleware chain.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	recoveryMiddleware(loggingMiddleware(s.mux)).ServeHTTP(w, r)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote_addr", r.RemoteAddr).
			Int("status", rw.status).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

func recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				log.Error().Interface("panic", err).Str("path", r.URL.Path).Msg("panic recovered")
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(`{"error":"internal server error"}`))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
