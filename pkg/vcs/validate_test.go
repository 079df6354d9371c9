package vcs

import "testing"

func TestValidateBranchNameAccepts(t *testing.T) {
	for _, name := range []string{"main", "feature/login-fix", "release-1.2.3", "user_test"} {
		if err := ValidateBranchName(name); err != nil {
			t.Errorf("ValidateBranchName(%q) = %v, want nil", name, err)
		}
	}
}

func TestValidateBranchNameRejects(t *testing.T) {
	for _, name := range []string{"", "-rm-rf", "../../etc/passwd", "feat$(rm -rf /)"} {
		if err := ValidateBranchName(name); err == nil {
			t.Errorf("ValidateBranchName(%q) = nil, want error", name)
		}
	}
}

func TestValidateGitURLAccepts(t *testing.T) {
	for _, url := range []string{
		"https://github.com/example/repo.git",
		"git@github.com:example/repo.git",
		"ssh://git@example.com/repo.git",
	} {
		if err := ValidateGitURL(url); err != nil {
			t.Errorf("ValidateGitURL(%q) = %v, want nil", url, err)
		}
	}
}

func TestValidateGitURLRejects(t *testing.T) {
	for _, url := range []string{"", "-oProxyCommand=whoami", "/etc/passwd", "not-a-url"} {
		if err := ValidateGitURL(url); err == nil {
			t.Errorf("ValidateGitURL(%q) = nil, want error", url)
		}
	}
}

func TestSanitizeBranchReplacesUnsafeChars(t *testing.T) {
	got := sanitizeBranch("feature/login-fix#42")
	want := "feature_login-fix_42"
	if got != want {
		t.Errorf("sanitizeBranch = %q, want %q", got, want)
	}
}
