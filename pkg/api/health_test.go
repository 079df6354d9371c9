package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cloudide/orchestrator/pkg/errs"
	"github.com/cloudide/orchestrator/pkg/session"
	"github.com/cloudide/orchestrator/pkg/types"
)

type fakeSessions struct {
	sessions  []types.Session
	createErr error
	created   types.Session
	stopErr   error
	byID      map[string]types.Session
	audit     []session.SecurityAuditEntry
}

func (f *fakeSessions) CreateSession(ctx context.Context, userID, repositoryID int64, branch string, perm types.Permission, defaultCap int) (types.Session, error) {
	if f.createErr != nil {
		return types.Session{}, f.createErr
	}
	return f.created, nil
}
func (f *fakeSessions) StopSession(ctx context.Context, sessionID string, userID, repositoryID int64, branch string) error {
	return f.stopErr
}
func (f *fakeSessions) UserSessions(ctx context.Context, userID int64) ([]types.Session, error) {
	var out []types.Session
	for _, s := range f.sessions {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	return out, nil
}
func (f *fakeSessions) GetSession(ctx context.Context, sessionID string) (types.Session, bool, error) {
	s, ok := f.byID[sessionID]
	return s, ok, nil
}
func (f *fakeSessions) PerformSecurityAudit(ctx context.Context) ([]session.SecurityAuditEntry, error) {
	return f.audit, nil
}

type fakeRecovery struct {
	retryErr error
	retried  string
}

func (f *fakeRecovery) Retry(id string) error {
	f.retried = id
	return f.retryErr
}

func TestHandleCreateSessionValidatesBody(t *testing.T) {
	srv := NewServer(&fakeSessions{}, &fakeRecovery{}, nil, nil, Config{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest && w.Code != http.StatusInternalServerError {
		t.Fatalf("expected a 4xx/5xx for missing body, got %d", w.Code)
	}
}

func TestHandleCreateSessionSucceeds(t *testing.T) {
	fs := &fakeSessions{created: types.Session{ContainerID: "abc", UserID: 1, RepositoryID: 2, BranchName: "main", Status: types.SessionRunning}}
	srv := NewServer(fs, &fakeRecovery{}, nil, nil, Config{})

	body := `{"userId":1,"repositoryId":2,"branch":"main"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions", jsonBody(body))
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var resp sessionResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.ContainerID != "abc" {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestHandleGetSessionNotFound(t *testing.T) {
	srv := NewServer(&fakeSessions{byID: map[string]types.Session{}}, &fakeRecovery{}, nil, nil, Config{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions/missing", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestHandleStopSessionNoContent(t *testing.T) {
	fs := &fakeSessions{byID: map[string]types.Session{
		"abc": {ContainerID: "abc", UserID: 1, RepositoryID: 2, BranchName: "main"},
	}}
	srv := NewServer(fs, &fakeRecovery{}, nil, nil, Config{})

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/sessions/abc", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
}

func TestHandleListSessionsRequiresUserID(t *testing.T) {
	srv := NewServer(&fakeSessions{}, &fakeRecovery{}, nil, nil, Config{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestHandleHealthWithNoCollectorIsCritical(t *testing.T) {
	srv := NewServer(&fakeSessions{}, &fakeRecovery{}, nil, nil, Config{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 when uninitialized, got %d", w.Code)
	}
}

func TestAdminRecoveryRetryRequiresToken(t *testing.T) {
	fr := &fakeRecovery{}
	srv := NewServer(&fakeSessions{}, fr, nil, nil, Config{AdminToken: "secret"})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/recovery/r1/retry", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 without token, got %d", w.Code)
	}

	req2 := httptest.NewRequest(http.MethodPost, "/api/v1/admin/recovery/r1/retry", nil)
	req2.Header.Set("Authorization", "Bearer secret")
	w2 := httptest.NewRecorder()
	srv.router.ServeHTTP(w2, req2)
	if w2.Code != http.StatusNoContent {
		t.Fatalf("expected 204 with correct token, got %d", w2.Code)
	}
	if fr.retried != "r1" {
		t.Errorf("expected retry forwarded to recovery service, got %q", fr.retried)
	}
}

func TestWriteErrorUsesStatusHint(t *testing.T) {
	w := httptest.NewRecorder()
	writeError(w, errs.NotFoundError("session x"))
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func jsonBody(s string) io.Reader {
	return strings.NewReader(s)
}
