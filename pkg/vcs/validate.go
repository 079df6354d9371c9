package vcs

import (
	"regexp"
	"strings"

	"github.com/cloudide/orchestrator/pkg/errs"
)

var branchNamePattern = regexp.MustCompile(`^[A-Za-z0-9._/-]+$`)

// ValidateBranchName rejects empty names, names over 250 characters, a
// leading '-', "..", a trailing '/' or '.', a ".lock" suffix, and any
// character outside letters, digits and "._/-" — names git refuses or that
// could be abused to escape the worktree layout.
func ValidateBranchName(branch string) error {
	if branch == "" {
		return errs.New(errs.InvalidBranchName, "branch name is empty")
	}
	if len(branch) > 250 {
		return errs.New(errs.InvalidBranchName, "branch name exceeds 250 characters")
	}
	if strings.HasSuffix(branch, "/") || strings.HasSuffix(branch, ".") || strings.HasSuffix(branch, ".lock") {
		return errs.New(errs.InvalidBranchName, "branch name must not end in '/', '.' or '.lock'")
	}
	if strings.HasPrefix(branch, "-") {
		return errs.New(errs.InvalidBranchName, "branch name must not start with '-'")
	}
	if strings.Contains(branch, "..") {
		return errs.New(errs.InvalidBranchName, "branch name must not contain '..'")
	}
	if !branchNamePattern.MatchString(branch) {
		return errs.New(errs.InvalidBranchName, "branch name contains disallowed characters: "+branch)
	}
	return nil
}

// ValidateGitURL accepts ssh:// URLs, user@host:path scp-style remotes and
// https:// URLs, each ending in ".git", and rejects everything else,
// including plain http://, local filesystem paths and shell-injectable
// arguments.
func ValidateGitURL(url string) error {
	if url == "" {
		return errs.New(errs.InvalidGitURL, "git url is empty")
	}
	if strings.HasPrefix(url, "-") {
		return errs.New(errs.InvalidGitURL, "git url must not start with '-'")
	}
	if !strings.HasSuffix(url, ".git") {
		return errs.New(errs.InvalidGitURL, "git url must end in .git: "+url)
	}

	at, colon := strings.Index(url, "@"), strings.Index(url, ":")
	isSCP := at > 0 && colon > at && !strings.Contains(url[:colon], "/")
	isSSH := strings.HasPrefix(url, "ssh://") || isSCP
	isHTTPS := strings.HasPrefix(url, "https://")
	if !isSSH && !isHTTPS {
		return errs.New(errs.InvalidGitURL, "git url must be an ssh or https remote: "+url)
	}
	return nil
}
