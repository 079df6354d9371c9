package recovery

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cloudide/orchestrator/pkg/errs"
	"github.com/cloudide/orchestrator/pkg/types"
	"github.com/cloudide/orchestrator/pkg/vcs"
)

type fakeRuntime struct {
	restartErr error
	removeErr  error
	restarted  []string
	removed    []string
}

func (f *fakeRuntime) RestartContainer(ctx context.Context, containerID string) error {
	f.restarted = append(f.restarted, containerID)
	return f.restartErr
}
func (f *fakeRuntime) RemoveContainer(ctx context.Context, containerID string) error {
	f.removed = append(f.removed, containerID)
	return f.removeErr
}

type fakeSessions struct {
	createErr error
	stopErr   error
	created   int
	stopped   int
}

func (f *fakeSessions) CreateSession(ctx context.Context, userID, repositoryID int64, branch string, perm types.Permission, defaultCap int) (types.Session, error) {
	f.created++
	if f.createErr != nil {
		return types.Session{}, f.createErr
	}
	return types.Session{ContainerID: "recreated"}, nil
}
func (f *fakeSessions) StopSession(ctx context.Context, sessionID string, userID, repositoryID int64, branch string) error {
	f.stopped++
	return f.stopErr
}

type fakeVCS struct{ cleaned int }

func (f *fakeVCS) CleanupWorktrees(ctx context.Context, repoID int64) (vcs.Result, error) {
	f.cleaned++
	return vcs.Result{Success: true}, nil
}

func TestDefaultRulesSortedByPriorityDescending(t *testing.T) {
	rules := DefaultRules()
	sortRules(rules)
	for i := 1; i < len(rules); i++ {
		if rules[i-1].Priority < rules[i].Priority {
			t.Fatalf("rules not sorted descending: %v", rules)
		}
	}
}

func TestHandleContainerFailureAutoRunsHighPriorityRule(t *testing.T) {
	rt := &fakeRuntime{}
	svc := NewService(rt, &fakeSessions{}, &fakeVCS{}, Config{})

	action, err := svc.HandleContainerFailure(context.Background(), Failure{
		Kind:     errs.ContainerStartFailed,
		TargetID: "container-1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if action.Strategy != StrategyRestart {
		t.Errorf("expected restart strategy, got %s", action.Strategy)
	}

	// ContainerStartFailed's rule carries a 3s Delay honored before the
	// attempt runs, so the deadline must clear that plus headroom.
	deadline := time.Now().Add(4 * time.Second)
	for time.Now().Before(deadline) {
		if got, _ := svc.Get(action.ID); got.Status == StatusCompleted {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	got, _ := svc.Get(action.ID)
	if got.Status != StatusCompleted {
		t.Fatalf("expected action completed, got %s", got.Status)
	}
	if len(rt.restarted) != 1 || rt.restarted[0] != "container-1" {
		t.Errorf("expected container-1 restarted, got %v", rt.restarted)
	}
}

func TestHandleFailureUnknownKindErrors(t *testing.T) {
	svc := NewService(&fakeRuntime{}, &fakeSessions{}, &fakeVCS{}, Config{})
	_, err := svc.HandleContainerFailure(context.Background(), Failure{Kind: errs.Unauthorized})
	if err == nil {
		t.Fatal("expected error for unmatched rule")
	}
}

func TestManualStrategyNeverAutoCompletes(t *testing.T) {
	svc := NewService(&fakeRuntime{}, &fakeSessions{}, &fakeVCS{}, Config{})
	action, err := svc.HandleContainerFailure(context.Background(), Failure{Kind: errs.SecurityViolation})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	time.Sleep(50 * time.Millisecond)
	got, _ := svc.Get(action.ID)
	if got.Status != StatusFailed {
		t.Errorf("expected manual action to land in failed (awaiting operator), got %s", got.Status)
	}
}

func TestRetryResetsActionToPending(t *testing.T) {
	svc := NewService(&fakeRuntime{}, &fakeSessions{}, &fakeVCS{}, Config{})
	action, _ := svc.HandleContainerFailure(context.Background(), Failure{Kind: errs.SecurityViolation})
	time.Sleep(50 * time.Millisecond)

	if err := svc.Retry(action.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, _ := svc.Get(action.ID)
	if got.Status != StatusPending {
		t.Errorf("expected pending after retry, got %s", got.Status)
	}
}

func TestRetryUnknownActionErrors(t *testing.T) {
	svc := NewService(&fakeRuntime{}, &fakeSessions{}, &fakeVCS{}, Config{})
	if err := svc.Retry("does-not-exist"); err == nil {
		t.Fatal("expected not found error")
	}
}

func TestCleanupStrategyFallsBackToRemoveContainer(t *testing.T) {
	rt := &fakeRuntime{}
	sessions := &fakeSessions{stopErr: errors.New("session not tracked")}
	vcsProvider := &fakeVCS{}
	svc := NewService(rt, sessions, vcsProvider, Config{})

	action, err := svc.HandleContainerFailure(context.Background(), Failure{
		Kind:         errs.DockerConnectionFailed,
		TargetID:     "container-2",
		RepositoryID: 9,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// DockerConnectionFailed's rule carries a 1s Delay honored before the
	// attempt runs.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if got, _ := svc.Get(action.ID); got.Status == StatusCompleted {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if len(rt.removed) != 1 || rt.removed[0] != "container-2" {
		t.Errorf("expected fallback container removal, got %v", rt.removed)
	}
	if vcsProvider.cleaned != 1 {
		t.Errorf("expected worktree cleanup invoked, got %d", vcsProvider.cleaned)
	}
}

func TestRunHonorsRuleDelayBeforeExecuting(t *testing.T) {
	rt := &fakeRuntime{}
	svc := NewService(rt, &fakeSessions{}, &fakeVCS{}, Config{})

	action, err := svc.HandleContainerFailure(context.Background(), Failure{
		Kind:     errs.ContainerStartFailed, // 3s Delay
		TargetID: "container-3",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	time.Sleep(100 * time.Millisecond)
	if len(rt.restarted) != 0 {
		t.Fatalf("expected restart not yet attempted during delay, got %v", rt.restarted)
	}
	got, _ := svc.Get(action.ID)
	if got.Status == StatusCompleted {
		t.Fatalf("expected action still pending/in-progress during delay, got completed")
	}
}

func TestLoadRulesEmptyPathReturnsDefaults(t *testing.T) {
	rules, err := LoadRules("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rules) != len(DefaultRules()) {
		t.Errorf("expected default rule count, got %d", len(rules))
	}
}

func TestLoadRulesMissingFileErrors(t *testing.T) {
	if _, err := LoadRules("/nonexistent/rules.yaml"); err == nil {
		t.Fatal("expected error for missing file")
	}
}
