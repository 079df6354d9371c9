package security

import (
	"github.com/cloudide/orchestrator/pkg/types"
)

const maxFileSizeBytes = 100 * 1024 * 1024 // 100 MiB

var defaultBlockedCommands = []string{
	"docker", "kubectl", "systemctl", "service", "mount", "umount",
	"fdisk", "mkfs", "iptables", "netstat", "ss", "lsof", "ps aux",
	"kill -9", "killall", "chmod 777", "chown root", "sudo su", "su -",
	"rm -rf /", "dd if=",
}

var defaultAllowedHosts = []string{"127.0.0.1", "localhost", "::1"}
var defaultBlockedPorts = []int{22, 23, 25, 53, 80, 443, 993, 995}
var defaultAllowedPaths = []string{
	"/home/coder/workspace", "/tmp", "/home/coder/.local/share/code-server",
}
var defaultReadOnlyPaths = []string{"/etc", "/usr", "/bin", "/sbin", "/lib", "/lib64"}

// ProfileLimits carries the operator-configured resource ceilings
// (DEFAULT_MEMORY_LIMIT, DEFAULT_CPU_LIMIT, MAX_DISK_PER_CONTAINER) that
// DeriveProfile applies when the permission set does not override them.
type ProfileLimits struct {
	MaxMemory string
	MaxCPU    float64
	MaxDisk   string
}

// DeriveProfile is the deterministic, side-effect-free derivation of a
// SecurityProfile from (userID, permission, repositoryID, limits). It is
// never persisted; every caller recomputes it, except that the exact
// permission snapshot used here is also captured into the
// permissions-snapshot container label at creation time (pkg/runtime) so
// monitoring can re-derive this same profile later instead of guessing.
func DeriveProfile(userID, repositoryID int64, perm types.Permission, limits ProfileLimits) types.SecurityProfile {
	profile := types.SecurityProfile{
		UserID:       userID,
		RepositoryID: repositoryID,
		Network: types.NetworkRestrictions{
			AllowedHosts:   append([]string(nil), defaultAllowedHosts...),
			BlockedPorts:   append([]int(nil), defaultBlockedPorts...),
			EnableInternet: false,
		},
		FileSystem: types.FileSystemRestrictions{
			AllowedPaths:  append([]string(nil), defaultAllowedPaths...),
			ReadOnlyPaths: append([]string(nil), defaultReadOnlyPaths...),
			MaxFileSize:   maxFileSizeBytes,
		},
		Resources: types.ResourceLimits{
			Memory: orDefault(limits.MaxMemory, "2g"),
			CPU:    orDefaultFloat(limits.MaxCPU, 1.0),
			Disk:   orDefault(limits.MaxDisk, "5g"),
		},
		Terminal: types.TerminalRestrictions{
			Enabled:         perm.AllowTerminalAccess,
			BlockedCommands: append([]string(nil), defaultBlockedCommands...),
			TimeoutSeconds:  3600,
		},
	}
	if !perm.AllowTerminalAccess {
		profile.Terminal.AllowedCommands = nil
	}
	return profile
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func orDefaultFloat(v, def float64) float64 {
	if v == 0 {
		return def
	}
	return v
}
