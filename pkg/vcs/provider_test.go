package vcs

import (
	"errors"
	"testing"

	"github.com/cloudide/orchestrator/pkg/errs"
)

func TestCategorizeGitErrorAuth(t *testing.T) {
	err := categorizeGitError(errors.New("exit status 128"), "fatal: Authentication failed for 'https://example.com/repo.git'")
	var e *errs.Error
	if !errors.As(err, &e) || e.Kind != errs.GitCloneFailed {
		t.Errorf("expected GitCloneFailed, got %v", err)
	}
}

func TestCategorizeGitErrorNetwork(t *testing.T) {
	err := categorizeGitError(errors.New("exit status 128"), "fatal: unable to access: Could not resolve host: example.com")
	var e *errs.Error
	if !errors.As(err, &e) || e.Kind != errs.GitOperationFailed {
		t.Errorf("expected GitOperationFailed, got %v", err)
	}
}

func TestCategorizeGitErrorNotFound(t *testing.T) {
	err := categorizeGitError(errors.New("exit status 128"), "fatal: repository 'https://example.com/nope.git' not found")
	var e *errs.Error
	if !errors.As(err, &e) || e.Kind != errs.InvalidGitURL {
		t.Errorf("expected InvalidGitURL, got %v", err)
	}
}

func TestWorktreePathIsSanitizedAndDeterministic(t *testing.T) {
	p := NewProvider("/tmp/base", nil, nil)
	a := p.WorktreePath(1, 2, "feature/x")
	b := p.WorktreePath(1, 2, "feature/x")
	if a != b {
		t.Errorf("WorktreePath not deterministic: %q != %q", a, b)
	}
	if want := "/tmp/base/worktrees/repo_1/user_2/feature_x"; a != want {
		t.Errorf("WorktreePath = %q, want %q", a, want)
	}
}
