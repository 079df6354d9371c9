package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cloudide/orchestrator/pkg/errs"
	"github.com/cloudide/orchestrator/pkg/events"
	"github.com/cloudide/orchestrator/pkg/runtime"
	"github.com/cloudide/orchestrator/pkg/types"
	"github.com/cloudide/orchestrator/pkg/vcs"
)

type fakeRuntime struct {
	sessions       []types.Session
	createErr      error
	createResult   runtime.CreatedContainer
	healthy        bool
	removeErr      error
	removedIDs     []string
}

func (f *fakeRuntime) CreateIdeContainer(ctx context.Context, p runtime.CreateIdeContainerParams) (runtime.CreatedContainer, error) {
	if f.createErr != nil {
		return runtime.CreatedContainer{}, f.createErr
	}
	return f.createResult, nil
}
func (f *fakeRuntime) StopContainer(ctx context.Context, containerID string) error { return nil }
func (f *fakeRuntime) RemoveContainer(ctx context.Context, containerID string) error {
	f.removedIDs = append(f.removedIDs, containerID)
	return f.removeErr
}
func (f *fakeRuntime) HealthCheck(ctx context.Context, containerID string) (bool, error) {
	return f.healthy, nil
}
func (f *fakeRuntime) GetContainerStats(ctx context.Context, containerID string) (runtime.ContainerStats, error) {
	return runtime.ContainerStats{}, nil
}
func (f *fakeRuntime) MonitorContainerSecurity(ctx context.Context, containerID string) (runtime.SecurityAuditResult, error) {
	return runtime.SecurityAuditResult{Compliant: true}, nil
}
func (f *fakeRuntime) PerformSecurityAudit(ctx context.Context, containerID string) (runtime.AuditResult, error) {
	return runtime.AuditResult{Compliant: true}, nil
}
func (f *fakeRuntime) ListManagedSessions(ctx context.Context) ([]types.Session, error) {
	return f.sessions, nil
}

type fakeVCS struct {
	createWorktreeErr error
	removedWorktrees  int
}

func (f *fakeVCS) CreateWorktree(ctx context.Context, repoID, userID int64, branch string) (vcs.Result, error) {
	if f.createWorktreeErr != nil {
		return vcs.Result{}, f.createWorktreeErr
	}
	return vcs.Result{Success: true}, nil
}
func (f *fakeVCS) RemoveWorktree(ctx context.Context, repoID, userID int64, branch string) (vcs.Result, error) {
	f.removedWorktrees++
	return vcs.Result{Success: true}, nil
}
func (f *fakeVCS) CleanupWorktrees(ctx context.Context, repoID int64) (vcs.Result, error) {
	return vcs.Result{Success: true}, nil
}
func (f *fakeVCS) WorktreePath(repoID, userID int64, branch string) string {
	return "/worktrees/repo/user/branch"
}

func TestCreateSessionRejectsOverCap(t *testing.T) {
	rt := &fakeRuntime{sessions: []types.Session{
		{ContainerID: "a", UserID: 1, RepositoryID: 1, BranchName: "x", Status: types.SessionRunning},
		{ContainerID: "b", UserID: 1, RepositoryID: 2, BranchName: "y", Status: types.SessionRunning},
	}}
	mgr := NewManager(rt, &fakeVCS{}, nil, Config{})

	_, err := mgr.CreateSession(context.Background(), 1, 3, "z", types.Permission{SessionCap: 2}, 3)
	if err == nil {
		t.Fatal("expected error")
	}
	var e *errs.Error
	if !errors.As(err, &e) || e.Kind != errs.ResourceLimitExceeded {
		t.Errorf("expected ResourceLimitExceeded, got %v", err)
	}
}

func TestCreateSessionReturnsExistingRunningSession(t *testing.T) {
	existing := types.Session{ContainerID: "abc", UserID: 1, RepositoryID: 2, BranchName: "main", Status: types.SessionRunning}
	rt := &fakeRuntime{sessions: []types.Session{existing}}
	mgr := NewManager(rt, &fakeVCS{}, nil, Config{})

	got, err := mgr.CreateSession(context.Background(), 1, 2, "main", types.Permission{}, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ContainerID != "abc" {
		t.Errorf("expected existing session reused, got %+v", got)
	}
}

func TestCreateSessionWorktreeFailureWrapsError(t *testing.T) {
	rt := &fakeRuntime{}
	mgr := NewManager(rt, &fakeVCS{createWorktreeErr: errors.New("clone boom")}, nil, Config{})

	_, err := mgr.CreateSession(context.Background(), 1, 2, "main", types.Permission{}, 3)
	var e *errs.Error
	if !errors.As(err, &e) || e.Kind != errs.GitWorktreeCreationFailed {
		t.Errorf("expected GitWorktreeCreationFailed, got %v", err)
	}
}

func TestCreateSessionSucceedsAndPublishesEvents(t *testing.T) {
	rt := &fakeRuntime{
		healthy:      true,
		createResult: runtime.CreatedContainer{ContainerID: "new-id", ContainerName: "ide_user_1_repo_2_main", Route: types.ContainerRoute{URL: "http://ide.example.com"}},
	}
	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()
	sub := broker.Subscribe()

	mgr := NewManager(rt, &fakeVCS{}, broker, Config{})
	session, err := mgr.CreateSession(context.Background(), 1, 2, "main", types.Permission{}, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if session.ContainerID != "new-id" {
		t.Errorf("unexpected session: %+v", session)
	}

	seen := map[events.EventType]bool{}
	for i := 0; i < 2; i++ {
		select {
		case ev := <-sub:
			seen[ev.Type] = true
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for event")
		}
	}
	if !seen[events.EventSessionCreated] || !seen[events.EventSessionStarted] {
		t.Errorf("expected created and started events, got %v", seen)
	}
}

func TestStopSessionRemovesContainerAndWorktree(t *testing.T) {
	rt := &fakeRuntime{}
	fv := &fakeVCS{}
	mgr := NewManager(rt, fv, nil, Config{})

	if err := mgr.StopSession(context.Background(), "container-1", 1, 2, "main"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rt.removedIDs) != 1 || rt.removedIDs[0] != "container-1" {
		t.Errorf("expected container-1 removed, got %v", rt.removedIDs)
	}
	if fv.removedWorktrees != 1 {
		t.Errorf("expected worktree removed once, got %d", fv.removedWorktrees)
	}
}

func TestStopSessionFailsWhenContainerRemovalFails(t *testing.T) {
	rt := &fakeRuntime{removeErr: errors.New("docker down")}
	mgr := NewManager(rt, &fakeVCS{}, nil, Config{})

	err := mgr.StopSession(context.Background(), "container-1", 1, 2, "main")
	var e *errs.Error
	if !errors.As(err, &e) || e.Kind != errs.ContainerStopFailed {
		t.Errorf("expected ContainerStopFailed, got %v", err)
	}
}

func TestCleanupInactiveSessionsStopsStaleOnly(t *testing.T) {
	fresh := types.Session{ContainerID: "fresh", UserID: 1, RepositoryID: 1, BranchName: "a", Status: types.SessionRunning, LastAccessedAt: time.Now()}
	stale := types.Session{ContainerID: "stale", UserID: 1, RepositoryID: 1, BranchName: "b", Status: types.SessionRunning, LastAccessedAt: time.Now().Add(-2 * time.Hour)}
	rt := &fakeRuntime{sessions: []types.Session{fresh, stale}}
	mgr := NewManager(rt, &fakeVCS{}, nil, Config{})

	errsOut := mgr.CleanupInactiveSessions(context.Background())
	if len(errsOut) != 0 {
		t.Fatalf("unexpected errors: %v", errsOut)
	}
	if len(rt.removedIDs) != 1 || rt.removedIDs[0] != "stale" {
		t.Errorf("expected only stale session removed, got %v", rt.removedIDs)
	}
}

func TestShutdownStopsAllManagedSessions(t *testing.T) {
	rt := &fakeRuntime{sessions: []types.Session{
		{ContainerID: "a", UserID: 1, RepositoryID: 1, BranchName: "x"},
		{ContainerID: "b", UserID: 2, RepositoryID: 1, BranchName: "y"},
	}}
	mgr := NewManager(rt, &fakeVCS{}, nil, Config{})

	mgr.Shutdown(context.Background())
	if len(rt.removedIDs) != 2 {
		t.Errorf("expected both sessions stopped, got %v", rt.removedIDs)
	}
}

func TestSessionCapFallsBackToDefault(t *testing.T) {
	if got := sessionCap(types.Permission{}, 5); got != 5 {
		t.Errorf("expected default 5, got %d", got)
	}
	if got := sessionCap(types.Permission{SessionCap: 7}, 5); got != 7 {
		t.Errorf("expected permission override 7, got %d", got)
	}
	if got := sessionCap(types.Permission{}, 0); got != defaultSessionCap {
		t.Errorf("expected package default %d, got %d", defaultSessionCap, got)
	}
}
