// Package api implements the External Interface Facade (C10): a thin
// go-chi/chi/v5 HTTP surface over the Session Manager, the Recovery
// Service and the monitoring collector. It owns no domain logic of its
// own — every handler validates its input, delegates, and translates the
// result (or a taxonomy error) into JSON.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/cloudide/orchestrator/pkg/errs"
	"github.com/cloudide/orchestrator/pkg/events"
	"github.com/cloudide/orchestrator/pkg/log"
	"github.com/cloudide/orchestrator/pkg/metrics"
	"github.com/cloudide/orchestrator/pkg/recovery"
	"github.com/cloudide/orchestrator/pkg/session"
	"github.com/cloudide/orchestrator/pkg/types"
)

const apiPrefix = "/api/v1"

// Sessions is the subset of pkg/session.Manager the facade depends on.
type Sessions interface {
	CreateSession(ctx context.Context, userID, repositoryID int64, branch string, perm types.Permission, defaultCap int) (types.Session, error)
	StopSession(ctx context.Context, sessionID string, userID, repositoryID int64, branch string) error
	UserSessions(ctx context.Context, userID int64) ([]types.Session, error)
	GetSession(ctx context.Context, sessionID string) (types.Session, bool, error)
	PerformSecurityAudit(ctx context.Context) ([]session.SecurityAuditEntry, error)
}

// Recovery is the subset of pkg/recovery.Service the facade depends on.
type Recovery interface {
	Retry(id string) error
}

// Config carries construction-time settings.
type Config struct {
	Addr              string
	DefaultSessionCap int
	AdminToken        string
}

// Server is the HTTP facade.
type Server struct {
	router    chi.Router
	sessions  Sessions
	recovery  Recovery
	collector *metrics.Collector
	broker    *events.Broker
	cfg       Config
	http      *http.Server
}

// NewServer builds a Server and registers every route.
func NewServer(sessions Sessions, recoverySvc Recovery, collector *metrics.Collector, broker *events.Broker, cfg Config) *Server {
	s := &Server{
		sessions:  sessions,
		recovery:  recoverySvc,
		collector: collector,
		broker:    broker,
		cfg:       cfg,
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Route(apiPrefix, func(r chi.Router) {
		r.Post("/sessions", s.handleCreateSession)
		r.Get("/sessions", s.handleListSessions)
		r.Get("/sessions/{id}", s.handleGetSession)
		r.Delete("/sessions/{id}", s.handleStopSession)

		r.Get("/health", s.handleHealth)
		r.Get("/metrics-snapshot", s.handleMetricsSnapshot)
		r.Get("/audit", s.handleAudit)
		r.Get("/events", s.handleEvents)

		r.With(func(next http.Handler) http.Handler { return adminOnly(s.cfg.AdminToken, next) }).
			Post("/admin/recovery/{id}/retry", s.handleRecoveryRetry)
	})

	return r
}

// requestLogger logs each request at debug with its chi request id, the
// same child-logger-per-field idiom pkg/log's WithRequest establishes.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqLog := log.WithRequest(middleware.GetReqID(r.Context()))
		next.ServeHTTP(w, r)
		reqLog.Debug().Str("method", r.Method).Str("path", r.URL.Path).Dur("duration", time.Since(start)).Msg("request handled")
	})
}

// Start serves the API on cfg.Addr until the context is canceled.
func (s *Server) Start(ctx context.Context) error {
	s.http = &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- s.http.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

type createSessionRequest struct {
	UserID       int64            `json:"userId"`
	RepositoryID int64            `json:"repositoryId"`
	Branch       string           `json:"branch"`
	Permissions  types.Permission `json:"permissions"`
}

type sessionResponse struct {
	ContainerID    string    `json:"containerId"`
	UserID         int64     `json:"userId"`
	RepositoryID   int64     `json:"repositoryId"`
	Branch         string    `json:"branch"`
	URL            string    `json:"url"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"createdAt"`
	LastAccessedAt time.Time `json:"lastAccessedAt"`
}

func toSessionResponse(s types.Session) sessionResponse {
	return sessionResponse{
		ContainerID:    s.ContainerID,
		UserID:         s.UserID,
		RepositoryID:   s.RepositoryID,
		Branch:         s.BranchName,
		URL:            s.URL,
		Status:         string(s.Status),
		CreatedAt:      s.CreatedAt,
		LastAccessedAt: s.LastAccessedAt,
	}
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errs.Wrap(errs.ValidationFailed, err, "decoding request body"))
		return
	}
	if req.UserID == 0 || req.RepositoryID == 0 || req.Branch == "" {
		writeError(w, errs.New(errs.ValidationFailed, "userId, repositoryId and branch are required"))
		return
	}

	existing, found, err := s.findExisting(r.Context(), req.UserID, req.RepositoryID, req.Branch)
	if err != nil {
		writeError(w, err)
		return
	}

	created, err := s.sessions.CreateSession(r.Context(), req.UserID, req.RepositoryID, req.Branch, req.Permissions, s.cfg.DefaultSessionCap)
	if err != nil {
		writeError(w, err)
		return
	}

	status := http.StatusCreated
	if found && existing.ContainerID == created.ContainerID {
		status = http.StatusOK
	}
	writeJSON(w, status, toSessionResponse(created))
}

func (s *Server) findExisting(ctx context.Context, userID, repositoryID int64, branch string) (types.Session, bool, error) {
	sessions, err := s.sessions.UserSessions(ctx, userID)
	if err != nil {
		return types.Session{}, false, err
	}
	for _, sess := range sessions {
		if sess.RepositoryID == repositoryID && sess.BranchName == branch {
			return sess, true, nil
		}
	}
	return types.Session{}, false, nil
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(r.URL.Query().Get("userId"), 10, 64)
	if err != nil {
		writeError(w, errs.New(errs.ValidationFailed, "userId query parameter is required"))
		return
	}

	sessions, err := s.sessions.UserSessions(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]sessionResponse, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, toSessionResponse(sess))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sess, found, err := s.sessions.GetSession(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if !found {
		writeError(w, errs.NotFoundError("session "+id))
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(sess))
}

func (s *Server) handleStopSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sess, found, err := s.sessions.GetSession(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if !found {
		writeError(w, errs.NotFoundError("session "+id))
		return
	}

	if err := s.sessions.StopSession(r.Context(), id, sess.UserID, sess.RepositoryID, sess.BranchName); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	entries, err := s.sessions.PerformSecurityAudit(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleRecoveryRetry(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.recovery.Retry(id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError translates a taxonomy error to its statusHint and
// user-visible message (§7's error table); any other error is treated as
// an opaque internal failure.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if e, ok := err.(*errs.Error); ok && e.StatusHint != 0 {
		status = e.StatusHint
	}
	writeJSON(w, status, map[string]string{"error": errs.UserMessage(err)})
}
