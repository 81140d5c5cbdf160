package toolgateway

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/cori-do/cori-sub001/internal/token"
	"github.com/cori-do/cori-sub001/internal/validator"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
)

// HTTPServer exposes the Tool Gateway over HTTP: one POST per JSON-RPC
// request, with the capability token carried as a Bearer credential
// instead of being pinned once at session start.
type HTTPServer struct {
	logger     zerolog.Logger
	dispatcher *Dispatcher
	verifier   *token.Verifier
}

// NewHTTPServer constructs an http.Handler for the Tool Gateway.
func NewHTTPServer(logger zerolog.Logger, dispatcher *Dispatcher, verifier *token.Verifier) http.Handler {
	s := &HTTPServer{logger: logger, dispatcher: dispatcher, verifier: verifier}

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"POST", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         300,
	}))
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(30 * time.Second))

	r.Get("/healthz", s.handleHealth)
	r.Post("/rpc", s.handleRPC)
	return r
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *HTTPServer) handleRPC(w http.ResponseWriter, r *http.Request) {
	session, err := s.authenticate(r)
	if err != nil {
		s.writeJSON(w, http.StatusUnauthorized, newErrorResponse(nil, codeInvalidRequest, err.Error(), nil))
		return
	}

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, newErrorResponse(nil, codeParseError, "parse error: "+err.Error(), nil))
		return
	}

	resp := s.dispatcher.Handle(r.Context(), session, req)
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *HTTPServer) authenticate(r *http.Request) (validator.Session, error) {
	authz := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(authz, prefix) {
		return validator.Session{}, errMissingBearerToken
	}
	raw := strings.TrimPrefix(authz, prefix)

	verified, err := s.verifier.Verify(raw)
	if err != nil {
		return validator.Session{}, err
	}
	if err := token.RequireAgentToken(verified); err != nil {
		return validator.Session{}, err
	}
	session := validator.Session{Role: verified.Role}
	if verified.Tenant != nil {
		session.Tenant = *verified.Tenant
	}
	return session, nil
}

func (s *HTTPServer) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn().Err(err).Msg("tool gateway: failed to encode response")
	}
}

var errMissingBearerToken = &authError{"missing bearer token"}

type authError struct{ msg string }

func (e *authError) Error() string { return e.msg }

// WarmBundles generates every configured role's tool bundle once at
// startup and logs each role whose bundle cannot be generated. Call
// still regenerates the session role's bundle from the current
// documents snapshot on every request.
func WarmBundles(ctx context.Context, dispatcher *Dispatcher, roles []string) {
	for _, role := range roles {
		if _, err := dispatcher.BundleFor(role); err != nil {
			dispatcher.logger.Warn().Err(err).Str("role", role).Msg("tool gateway: failed to warm bundle")
		}
	}
}
