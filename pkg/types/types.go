// Package types defines the shared domain entities of the cloud IDE
// orchestrator: users, repositories, permissions, sessions, routes,
// security profiles, violations and recovery actions.
package types

import "time"

// Role is a user's privilege level.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// User is an opaque identity known to the orchestrator only by id.
// Authentication and identity sync live outside the core.
type User struct {
	ID       int64
	External string
	Email    string
	Role     Role
}

// Repository is a git remote the orchestrator provisions worktrees from.
type Repository struct {
	ID        int64
	Name      string
	RemoteURL string
	OwnerID   int64
	CreatedAt time.Time
}

// Permission governs what a (user, repository) pair may do. SessionCap of
// zero means "use the process default" (DEFAULT_USER_SESSION_CAP).
type Permission struct {
	UserID              int64
	RepositoryID        int64
	CanCreateBranches   bool
	BranchLimit         int
	AllowedBaseBranches []string
	AllowTerminalAccess bool
	SessionCap          int
}

// SessionStatus is the lifecycle state of a Session.
type SessionStatus string

const (
	SessionStarting SessionStatus = "starting"
	SessionRunning  SessionStatus = "running"
	SessionStopped  SessionStatus = "stopped"
	SessionError    SessionStatus = "error"
)

// Session is a live IDE environment tied to one container for one
// (user, repository, branch) triple. It is identified by the container id.
type Session struct {
	ContainerID    string
	UserID         int64
	RepositoryID   int64
	BranchName     string
	ContainerName  string
	URL            string
	Status         SessionStatus
	CreatedAt      time.Time
	LastAccessedAt time.Time
}

// ContainerRoute is the proxy-visible mapping for a session's container.
type ContainerRoute struct {
	ContainerID string
	Subdomain   string
	URL         string
}

// NetworkRestrictions bounds which hosts/ports a session's container may reach.
type NetworkRestrictions struct {
	AllowedHosts   []string
	BlockedPorts   []int
	EnableInternet bool
}

// FileSystemRestrictions bounds which paths a session's container may touch.
type FileSystemRestrictions struct {
	AllowedPaths  []string
	ReadOnlyPaths []string
	MaxFileSize   int64
}

// ResourceLimits bounds a session's container resource consumption.
type ResourceLimits struct {
	Memory string // e.g. "2g"
	CPU    float64
	Disk   string // e.g. "5g"
}

// TerminalRestrictions bounds shell access inside a session's container.
type TerminalRestrictions struct {
	Enabled         bool
	AllowedCommands []string
	BlockedCommands []string
	TimeoutSeconds  int
}

// SecurityProfile is the full, deterministic set of restrictions derived for
// a session. It is never persisted as its own record; it is recomputed on
// demand from (userID, permission, repositoryID). A snapshot of the
// permission used is written into the container's labels at creation;
// nothing reads it back to re-derive the profile.
type SecurityProfile struct {
	UserID       int64
	RepositoryID int64
	Network      NetworkRestrictions
	FileSystem   FileSystemRestrictions
	Resources    ResourceLimits
	Terminal     TerminalRestrictions
}

// ViolationSeverity ranks a SecurityViolation.
type ViolationSeverity string

const (
	SeverityLow      ViolationSeverity = "low"
	SeverityMedium   ViolationSeverity = "medium"
	SeverityHigh     ViolationSeverity = "high"
	SeverityCritical ViolationSeverity = "critical"
)

// SecurityViolation records a blocked or flagged action for auditing.
type SecurityViolation struct {
	ID        string
	Type      string
	UserID    int64
	SessionID string
	Timestamp time.Time
	Action    string
	Resource  string
	Blocked   bool
	Severity  ViolationSeverity
	Metadata  map[string]string
}

// RecoveryStrategy is the action taken in response to a failure.
type RecoveryStrategy string

const (
	StrategyRestart  RecoveryStrategy = "restart"
	StrategyRecreate RecoveryStrategy = "recreate"
	StrategyFailover RecoveryStrategy = "failover"
	StrategyCleanup  RecoveryStrategy = "cleanup"
	StrategyManual   RecoveryStrategy = "manual"
)

// RecoveryStatus is the lifecycle state of a RecoveryAction.
type RecoveryStatus string

const (
	RecoveryPending    RecoveryStatus = "pending"
	RecoveryInProgress RecoveryStatus = "in_progress"
	RecoveryCompleted  RecoveryStatus = "completed"
	RecoveryFailed     RecoveryStatus = "failed"
)

// RecoveryAction is a queued, retry-bounded attempt to bring a failed
// container/session back into a good state.
type RecoveryAction struct {
	ID          string
	Strategy    RecoveryStrategy
	Target      string
	Reason      string
	Status      RecoveryStatus
	Attempts    int
	MaxAttempts int
	CreatedAt   time.Time
	CompletedAt time.Time
}

// AlertSeverity ranks an Alert.
type AlertSeverity string

const (
	AlertInfo     AlertSeverity = "info"
	AlertWarning  AlertSeverity = "warning"
	AlertCritical AlertSeverity = "critical"
)

// Alert is a fired monitoring rule.
type Alert struct {
	ID       string
	Severity AlertSeverity
	Title    string
	Message  string
	Metadata map[string]string
	Resolved bool
}

// DeployKey is an RSA-4096 SSH key pair generated per-repository. The
// private half is only ever persisted encrypted (see pkg/security).
type DeployKey struct {
	RepositoryID  int64
	PublicKey     string // PEM-encoded PKIX public key
	EncryptedPriv []byte
	CreatedAt     time.Time
}
