// Package vcs implements the VCS Worktree Provider (C5): bare-repository
// clone, per-user worktree management, branch operations and deploy-key
// generation, built on os/exec git subprocess calls in the manner of
// Azure-containerization-assist's pkg/core/git — no pack repo wraps git in
// a Go library, so this is the one ambient concern this module keeps on
// a subprocess rather than an SDK.
package vcs

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/cloudide/orchestrator/pkg/errs"
	"github.com/cloudide/orchestrator/pkg/retry"
	"github.com/cloudide/orchestrator/pkg/security"
	"github.com/cloudide/orchestrator/pkg/storage"
	"github.com/cloudide/orchestrator/pkg/types"
)

const breakerConsecutiveFailures = 5
const breakerCooldown = 30 * time.Second

// Provider implements clone/worktree/branch/deploy-key operations for one
// orchestrator process. baseDir is laid out as:
//
//	<baseDir>/repositories/repo_<id>.git            bare clone
//	<baseDir>/worktrees/repo_<id>/user_<id>/<branch> per-user worktree
//	<baseDir>/ssh-keys/repo_<id>                     deploy key material on disk
type Provider struct {
	baseDir  string
	breaker  *retry.Breaker
	policy   retry.Policy
	secrets  *security.SecretsManager
	keyStore *storage.DeployKeyStore
}

// NewProvider builds a Provider rooted at baseDir (GIT_BASE_DIR).
func NewProvider(baseDir string, secrets *security.SecretsManager, keyStore *storage.DeployKeyStore) *Provider {
	return &Provider{
		baseDir:  baseDir,
		breaker:  retry.NewBreaker("vcs", breakerConsecutiveFailures, breakerCooldown),
		policy:   retry.DefaultPolicy,
		secrets:  secrets,
		keyStore: keyStore,
	}
}

func (p *Provider) repoPath(repoID int64) string {
	return filepath.Join(p.baseDir, "repositories", fmt.Sprintf("repo_%d.git", repoID))
}

func (p *Provider) sshKeyPath(repoID int64) string {
	return filepath.Join(p.baseDir, "ssh-keys", fmt.Sprintf("repo_%d", repoID))
}

// WorktreePath returns the deterministic per-(repo,user,branch) worktree
// location. sanitizeBranch keeps letters, digits, '-' and '_' and replaces
// every other character with '_'; container names (pkg/runtime) replace
// '-' as well, so the two do not always agree.
func (p *Provider) WorktreePath(repoID, userID int64, branch string) string {
	return filepath.Join(p.baseDir, "worktrees", fmt.Sprintf("repo_%d", repoID), fmt.Sprintf("user_%d", userID), sanitizeBranch(branch))
}

func sanitizeBranch(branch string) string {
	out := make([]rune, 0, len(branch))
	for _, r := range branch {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			out = append(out, r)
		} else {
			out = append(out, '_')
		}
	}
	return string(out)
}

// Result is the {success, message|error} shape every Provider operation
// returns.
type Result struct {
	Success bool
	Message string
}

func (p *Provider) run(ctx context.Context, dir string, args ...string) (string, error) {
	var output string
	op := func(ctx context.Context) error {
		cmd := exec.CommandContext(ctx, "git", args...)
		if dir != "" {
			cmd.Dir = dir
		}
		out, err := cmd.CombinedOutput()
		output = string(out)
		if err != nil {
			return categorizeGitError(err, output)
		}
		return nil
	}

	_, err := p.breaker.Execute(func() (interface{}, error) {
		return nil, retry.Do(ctx, p.policy, op)
	}, nil)
	return output, err
}

// categorizeGitError classifies a git subprocess failure by its stderr
// content, the same dispatch shape as Azure-containerization-assist's
// categorizeError, narrowed to the three taxonomy kinds the VCS layer
// produces.
func categorizeGitError(err error, output string) error {
	text := strings.ToLower(output + " " + err.Error())

	switch {
	case strings.Contains(text, "permission denied") || strings.Contains(text, "authentication") || strings.Contains(text, "could not read") && strings.Contains(text, "username"):
		return errs.Wrap(errs.GitCloneFailed, err, "git authentication/permission failure: "+output)
	case strings.Contains(text, "could not resolve host") || strings.Contains(text, "timed out") || strings.Contains(text, "network") || strings.Contains(text, "connection"):
		return errs.Wrap(errs.GitOperationFailed, err, "git network failure: "+output)
	case strings.Contains(text, "not found") || strings.Contains(text, "does not exist") || strings.Contains(text, "couldn't find remote ref"):
		return errs.Wrap(errs.InvalidGitURL, err, "git reference/remote not found: "+output)
	default:
		return errs.Wrap(errs.GitOperationFailed, err, "git operation failed: "+output)
	}
}

// Clone is idempotent: if repoPath already exists, it no-ops. When keyPath
// is non-empty the clone runs with GIT_SSH_COMMAND pointed at it.
func (p *Provider) Clone(ctx context.Context, url string, repoID int64, keyPath string) (Result, error) {
	if err := ValidateGitURL(url); err != nil {
		return Result{}, err
	}

	dest := p.repoPath(repoID)
	if _, err := os.Stat(dest); err == nil {
		return Result{Success: true, Message: "repository already cloned"}, nil
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return Result{}, errs.Wrap(errs.GitOperationFailed, err, "creating repositories directory")
	}

	args := []string{"clone", "--bare", url, dest}
	if keyPath != "" {
		sshCmd := fmt.Sprintf("ssh -i %s -o StrictHostKeyChecking=no", keyPath)
		output, err := p.runWithEnv(ctx, "", []string{"GIT_SSH_COMMAND=" + sshCmd}, args...)
		if err != nil {
			return Result{}, err
		}
		_ = output
		return Result{Success: true, Message: "cloned"}, nil
	}

	if _, err := p.run(ctx, "", args...); err != nil {
		return Result{}, err
	}
	return Result{Success: true, Message: "cloned"}, nil
}

func (p *Provider) runWithEnv(ctx context.Context, dir string, env []string, args ...string) (string, error) {
	var output string
	op := func(ctx context.Context) error {
		cmd := exec.CommandContext(ctx, "git", args...)
		if dir != "" {
			cmd.Dir = dir
		}
		cmd.Env = append(os.Environ(), env...)
		out, err := cmd.CombinedOutput()
		output = string(out)
		if err != nil {
			return categorizeGitError(err, output)
		}
		return nil
	}

	_, err := p.breaker.Execute(func() (interface{}, error) {
		return nil, retry.Do(ctx, p.policy, op)
	}, nil)
	return output, err
}

// CreateWorktree fetches origin then adds a worktree tracking
// origin/<branch>; idempotent if the worktree path already exists.
func (p *Provider) CreateWorktree(ctx context.Context, repoID, userID int64, branch string) (Result, error) {
	if err := ValidateBranchName(branch); err != nil {
		return Result{}, err
	}

	worktreePath := p.WorktreePath(repoID, userID, branch)
	if _, err := os.Stat(worktreePath); err == nil {
		return Result{Success: true, Message: "worktree already exists"}, nil
	}

	repo := p.repoPath(repoID)
	if _, err := p.run(ctx, repo, "fetch", "origin"); err != nil {
		return Result{}, err
	}
	if err := os.MkdirAll(filepath.Dir(worktreePath), 0o755); err != nil {
		return Result{}, errs.Wrap(errs.GitWorktreeCreationFailed, err, "creating worktree parent directory")
	}
	if _, err := p.run(ctx, repo, "worktree", "add", worktreePath, "origin/"+branch); err != nil {
		return Result{}, errs.Wrap(errs.GitWorktreeCreationFailed, err, "adding worktree for branch "+branch)
	}
	return Result{Success: true, Message: "worktree created"}, nil
}

// RemoveWorktree force-removes a previously created worktree.
func (p *Provider) RemoveWorktree(ctx context.Context, repoID, userID int64, branch string) (Result, error) {
	worktreePath := p.WorktreePath(repoID, userID, branch)
	if _, err := p.run(ctx, p.repoPath(repoID), "worktree", "remove", "--force", worktreePath); err != nil {
		return Result{}, err
	}
	return Result{Success: true, Message: "worktree removed"}, nil
}

// ListBranches fetches then enumerates remote branches, excluding HEAD.
func (p *Provider) ListBranches(ctx context.Context, repoID int64) ([]string, error) {
	repo := p.repoPath(repoID)
	if _, err := p.run(ctx, repo, "fetch", "origin"); err != nil {
		return nil, err
	}
	output, err := p.run(ctx, repo, "for-each-ref", "--format=%(refname)", "refs/remotes/origin/")
	if err != nil {
		return nil, err
	}

	var branches []string
	for _, line := range strings.Split(strings.TrimSpace(output), "\n") {
		line = strings.TrimSpace(line)
		name := strings.TrimPrefix(line, "refs/remotes/origin/")
		if name == "" || name == "HEAD" {
			continue
		}
		branches = append(branches, name)
	}
	return branches, nil
}

// CreateBranch fetches, branches from origin/<baseBranch> (defaulting to
// main), and pushes the new branch upstream.
func (p *Provider) CreateBranch(ctx context.Context, repoID int64, branch, baseBranch string) (Result, error) {
	if err := ValidateBranchName(branch); err != nil {
		return Result{}, err
	}
	if baseBranch == "" {
		baseBranch = "main"
	}

	repo := p.repoPath(repoID)
	if _, err := p.run(ctx, repo, "fetch", "origin"); err != nil {
		return Result{}, err
	}
	if _, err := p.run(ctx, repo, "branch", branch, "origin/"+baseBranch); err != nil {
		return Result{}, err
	}
	if _, err := p.run(ctx, repo, "push", "origin", branch); err != nil {
		return Result{}, err
	}
	return Result{Success: true, Message: "branch created"}, nil
}

// CleanupWorktrees prunes worktree metadata for stale/removed directories.
func (p *Provider) CleanupWorktrees(ctx context.Context, repoID int64) (Result, error) {
	if _, err := p.run(ctx, p.repoPath(repoID), "worktree", "prune"); err != nil {
		return Result{}, err
	}
	return Result{Success: true, Message: "worktrees pruned"}, nil
}

// UpdateRepository refreshes every remote-tracking ref and prunes deleted
// ones.
func (p *Provider) UpdateRepository(ctx context.Context, repoID int64) (Result, error) {
	if _, err := p.run(ctx, p.repoPath(repoID), "fetch", "--all", "--prune"); err != nil {
		return Result{}, err
	}
	return Result{Success: true, Message: "repository updated"}, nil
}

// GeneratedDeployKey is generateDeployKey's result: the public half and the
// on-disk ssh key path are returned plainly, the private half never leaves
// encrypted.
type GeneratedDeployKey struct {
	PublicKey string
	KeyPath   string
}

// GenerateDeployKey creates an RSA-4096 deploy key pair, encrypts the
// private half with the orchestrator's SecretsManager, caches it in the
// bbolt deploy-key store, and writes the public half to disk at
// <baseDir>/ssh-keys/repo_<id>.pub for git's StrictHostKeyChecking=no ssh
// command to reference.
func (p *Provider) GenerateDeployKey(repoID int64) (GeneratedDeployKey, error) {
	pair, err := security.GenerateDeployKeyPair(repoID)
	if err != nil {
		return GeneratedDeployKey{}, errs.Wrap(errs.InternalError, err, "generating deploy key pair")
	}

	encrypted, err := p.secrets.Encrypt(pair.Private)
	if err != nil {
		return GeneratedDeployKey{}, errs.Wrap(errs.InternalError, err, "encrypting deploy key private material")
	}
	for i := range pair.Private {
		pair.Private[i] = 0
	}

	record := types.DeployKey{
		RepositoryID:  repoID,
		PublicKey:     pair.Public,
		EncryptedPriv: encrypted,
		CreatedAt:     time.Now(),
	}
	if err := p.keyStore.Put(record); err != nil {
		return GeneratedDeployKey{}, errs.Wrap(errs.InternalError, err, "caching deploy key")
	}

	keyPath := p.sshKeyPath(repoID)
	if err := os.MkdirAll(filepath.Dir(keyPath), 0o700); err != nil {
		return GeneratedDeployKey{}, errs.Wrap(errs.InternalError, err, "creating ssh-keys directory")
	}
	if err := os.WriteFile(keyPath+".pub", []byte(pair.Public), 0o644); err != nil {
		return GeneratedDeployKey{}, errs.Wrap(errs.InternalError, err, "writing public key to disk")
	}

	return GeneratedDeployKey{PublicKey: pair.Public, KeyPath: keyPath}, nil
}
