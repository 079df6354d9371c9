/*
Package types defines the core data structures used throughout the cloud IDE
orchestrator.

This package contains the domain model shared by every other package: users,
repositories, permissions, sessions, routes, security profiles, violations,
recovery actions and alerts. Persistence, authentication and the admin CRUD
surface for these entities live outside the core; this package only defines
their shape.

# Core Types

Identity and access:
  - User: an opaque identity, known only by id and role
  - Repository: a git remote the orchestrator clones worktrees from
  - Permission: per (user, repository) capability set, including the
    per-user concurrent session cap

Session lifecycle:
  - Session: a live IDE environment bound to exactly one container
  - ContainerRoute: the proxy-visible host → container mapping
  - SecurityProfile: the full derived restriction set for a session

Security:
  - SecurityViolation: a recorded policy decision (blocked or flagged)
  - DeployKey: an RSA-4096 key pair whose private half is only ever
    persisted AES-256-GCM encrypted

Recovery and monitoring:
  - RecoveryAction: a queued, retry-bounded remediation attempt
  - Alert: a fired monitoring rule

# Design patterns

Enums are typed string constants, matching the rest of the package's
self-documenting style:

	type SessionStatus string
	const (
		SessionRunning SessionStatus = "running"
	)

SecurityProfile is intentionally not persisted: it is a pure function of
(userID, Permission, repositoryID), recomputed whenever needed. The
Permission used to derive it is recorded in a container label at creation
(see pkg/runtime); nothing reads that label back.

# Thread safety

Values in this package carry no synchronization of their own. Callers that
share a *Session, *SecurityProfile, or similar across goroutines must
synchronize externally — see pkg/session for the per-container-name mutex
that serializes lifecycle operations.
*/
package types
