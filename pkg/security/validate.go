package security

import (
	"regexp"
	"strings"

	"github.com/cloudide/orchestrator/pkg/types"
)

// dangerousCommandPatterns covers path traversal, proc/sys/dev access,
// command substitution, eval/exec/system, remote-shell and file-transfer
// tooling, curl/wget output writes, and interpreter one-liners. Privileged
// tooling (sudo, su and the like) has no pattern here; it is caught only
// when it appears in the profile's blocked-command list.
var dangerousCommandPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\.\./`),
	regexp.MustCompile(`\.\.\\`),
	regexp.MustCompile(`/proc/|/sys/|/dev/`),
	regexp.MustCompile(`\$\([^)]*\)`),
	regexp.MustCompile("`[^`]*`"),
	regexp.MustCompile(`\b(eval|exec|system)\b`),
	regexp.MustCompile(`\b(nc|telnet|ssh|scp|rsync)\b`),
	regexp.MustCompile(`\b(curl|wget)\b.*\s-(o|O)\b`),
	regexp.MustCompile(`\b\w+\s+-[a-zA-Z]*[ce]\b`),
}

var sensitiveRoots = []string{"/etc/", "/proc/", "/sys/", "/dev/", "/root/", "/var/run/", "/run/"}

var sensitiveFilePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\.ssh/`),
	regexp.MustCompile(`\.aws/`),
	regexp.MustCompile(`\.docker/`),
	regexp.MustCompile(`\.kube/`),
	regexp.MustCompile(`(^|/)passwd$`),
	regexp.MustCompile(`(^|/)shadow$`),
	regexp.MustCompile(`(^|/)sudoers$`),
	regexp.MustCompile(`(^|/)authorized_keys$`),
	regexp.MustCompile(`(^|/)id_rsa$`),
	regexp.MustCompile(`\.pem$`),
	regexp.MustCompile(`\.key$`),
	regexp.MustCompile(`\.crt$`),
}

var suspiciousPorts = map[int]bool{
	22: true, 23: true, 25: true, 53: true, 135: true, 139: true, 445: true,
	993: true, 995: true, 1433: true, 3306: true, 3389: true, 5432: true,
	6379: true, 27017: true,
}

var escapeTokens = []string{
	"proc/self/root", "docker.sock", "runc", "cgroup", "namespace",
	"capabilities", "seccomp", "apparmor", "selinux",
}

// ValidationResult reports whether an action is permitted and, if not,
// the severity the caller should record as a SecurityViolation.
type ValidationResult struct {
	Allowed  bool
	Reason   string
	Severity types.ViolationSeverity
}

func allow() ValidationResult { return ValidationResult{Allowed: true} }

func deny(reason string, severity types.ViolationSeverity) ValidationResult {
	return ValidationResult{Allowed: false, Reason: reason, Severity: severity}
}

// ValidateCommand checks a terminal command against the dangerous-pattern
// list, the profile's blocked/allowed command lists, and sensitive-path
// access, in the priority order the rule table specifies.
func ValidateCommand(cmd string, profile types.SecurityProfile) ValidationResult {
	if !profile.Terminal.Enabled {
		return deny("terminal access disabled for this session", types.SeverityHigh)
	}

	for _, pattern := range dangerousCommandPatterns {
		if pattern.MatchString(cmd) {
			return deny("command matches a dangerous pattern", types.SeverityCritical)
		}
	}

	lower := strings.ToLower(cmd)
	for _, blocked := range profile.Terminal.BlockedCommands {
		if strings.Contains(lower, strings.ToLower(blocked)) {
			return deny("command contains a blocked substring: "+blocked, types.SeverityHigh)
		}
	}

	if len(profile.Terminal.AllowedCommands) > 0 {
		permitted := false
		for _, allowed := range profile.Terminal.AllowedCommands {
			if strings.HasPrefix(cmd, allowed) {
				permitted = true
				break
			}
		}
		if !permitted {
			return deny("command not present in the allowlist", types.SeverityMedium)
		}
	}

	if strings.Contains(cmd, "../") || strings.Contains(cmd, `..\`) {
		return deny("command contains a path traversal sequence", types.SeverityHigh)
	}

	for _, root := range sensitiveRoots {
		if strings.Contains(cmd, root) {
			return deny("command touches a sensitive filesystem root: "+root, types.SeverityHigh)
		}
	}

	return allow()
}

// ValidateMount checks a proposed bind mount target against the profile's
// allowed and read-only path lists. readOnly reports whether the caller
// must force the mount read-only even when permitted.
func ValidateMount(target string, profile types.SecurityProfile) (result ValidationResult, readOnly bool) {
	permitted := false
	for _, allowed := range profile.FileSystem.AllowedPaths {
		if strings.HasPrefix(target, allowed) {
			permitted = true
			break
		}
	}
	if !permitted {
		return deny("mount target not under any allowed path", types.SeverityHigh), false
	}

	for _, ro := range profile.FileSystem.ReadOnlyPaths {
		if strings.HasPrefix(target, ro) {
			return allow(), true
		}
	}
	return allow(), false
}

// ValidateFileAccess checks a file path access of the given mode
// ("read"/"write") against the profile and the fixed sensitive-file list.
func ValidateFileAccess(path, mode string, profile types.SecurityProfile) ValidationResult {
	for _, pattern := range sensitiveFilePatterns {
		if pattern.MatchString(path) {
			return deny("access to a sensitive file: "+path, types.SeverityCritical)
		}
	}

	permitted := false
	for _, allowed := range profile.FileSystem.AllowedPaths {
		if strings.HasPrefix(path, allowed) {
			permitted = true
			break
		}
	}
	if !permitted {
		return deny("path not under any allowed path", types.SeverityHigh)
	}

	if mode == "write" {
		for _, ro := range profile.FileSystem.ReadOnlyPaths {
			if strings.HasPrefix(path, ro) {
				return deny("write rejected on a read-only path", types.SeverityHigh)
			}
		}
	}

	return allow()
}

// ValidateNetworkAccess checks an outbound connection attempt to
// host:port against the profile's internet/host/port restrictions.
// Suspicious-but-not-blocked ports are logged (Allowed=true, non-empty
// Reason) rather than rejected.
func ValidateNetworkAccess(host string, port int, profile types.SecurityProfile) ValidationResult {
	if !profile.Network.EnableInternet {
		for _, allowed := range profile.Network.AllowedHosts {
			if host == allowed {
				return allow()
			}
		}
		return deny("internet access disabled and host is not loopback: "+host, types.SeverityHigh)
	}

	for _, blocked := range profile.Network.BlockedPorts {
		if port == blocked {
			return deny("connection to a blocked port", types.SeverityHigh)
		}
	}

	if suspiciousPorts[port] {
		return ValidationResult{Allowed: true, Reason: "connection to a commonly-abused port", Severity: types.SeverityMedium}
	}

	return allow()
}

// ValidateResourceUsage compares observed usage against the profile's
// resource limits (memoryBytes vs. the profile's memory limit already
// converted to bytes by the caller, cpuPercent as 0-100+).
func ValidateResourceUsage(memoryBytes int64, memoryLimitBytes int64, cpuPercent, cpuLimit float64) ValidationResult {
	if memoryLimitBytes > 0 && memoryBytes > memoryLimitBytes {
		return deny("observed memory usage exceeds limit", types.SeverityMedium)
	}
	if cpuPercent > 100*cpuLimit {
		return deny("observed cpu usage exceeds limit", types.SeverityMedium)
	}
	return allow()
}

// DetectEscape scans an activity log line for container-escape
// indicators. A match is always critical and signals the caller to
// terminate the session.
func DetectEscape(activity string) (detected bool, token string) {
	lower := strings.ToLower(activity)
	for _, t := range escapeTokens {
		if strings.Contains(lower, t) {
			return true, t
		}
	}
	return false, ""
}
