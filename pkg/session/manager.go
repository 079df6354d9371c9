// Package session implements the Session Manager (C8): the orchestrator's
// top-level create/stop/list/health/cleanup/audit/shutdown surface for IDE
// sessions, composing the VCS provider (C5), the container runtime (C6) and
// the event broker. Its constructor and sequential, log-per-failure
// Shutdown are adapted from the teacher's Manager and its own Shutdown.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cloudide/orchestrator/pkg/errs"
	"github.com/cloudide/orchestrator/pkg/events"
	"github.com/cloudide/orchestrator/pkg/log"
	"github.com/cloudide/orchestrator/pkg/runtime"
	"github.com/cloudide/orchestrator/pkg/security"
	"github.com/cloudide/orchestrator/pkg/types"
	"github.com/cloudide/orchestrator/pkg/vcs"
)

const (
	inactivityThreshold = time.Hour
	waitReadyTimeout     = 30 * time.Second
	defaultSessionCap    = 3
)

// Runtime is the subset of pkg/runtime.DockerRuntime the Session Manager
// depends on.
type Runtime interface {
	CreateIdeContainer(ctx context.Context, p runtime.CreateIdeContainerParams) (runtime.CreatedContainer, error)
	StopContainer(ctx context.Context, containerID string) error
	RemoveContainer(ctx context.Context, containerID string) error
	HealthCheck(ctx context.Context, containerID string) (bool, error)
	GetContainerStats(ctx context.Context, containerID string) (runtime.ContainerStats, error)
	MonitorContainerSecurity(ctx context.Context, containerID string) (runtime.SecurityAuditResult, error)
	PerformSecurityAudit(ctx context.Context, containerID string) (runtime.AuditResult, error)
	ListManagedSessions(ctx context.Context) ([]types.Session, error)
}

// VCS is the subset of pkg/vcs.Provider the Session Manager depends on.
type VCS interface {
	CreateWorktree(ctx context.Context, repoID, userID int64, branch string) (vcs.Result, error)
	RemoveWorktree(ctx context.Context, repoID, userID int64, branch string) (vcs.Result, error)
	CleanupWorktrees(ctx context.Context, repoID int64) (vcs.Result, error)
	WorktreePath(repoID, userID int64, branch string) string
}

// Manager owns session lifecycle. It carries no database of its own:
// running sessions are discovered by listing managed containers, the same
// "containers are the source of truth" design the runtime and proxy
// packages use.
type Manager struct {
	runtime        Runtime
	vcs            VCS
	broker         *events.Broker
	extensionsPath string
	limits         security.ProfileLimits

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex

	metrics *Metrics
}

// Config carries construction-time settings.
type Config struct {
	ExtensionsPath string
	Limits         security.ProfileLimits
}

// NewManager builds a Manager.
func NewManager(rt Runtime, vcsProvider VCS, broker *events.Broker, cfg Config) *Manager {
	return &Manager{
		runtime:        rt,
		vcs:            vcsProvider,
		broker:         broker,
		extensionsPath: cfg.ExtensionsPath,
		limits:         cfg.Limits,
		locks:          make(map[string]*sync.Mutex),
		metrics:        newMetrics(),
	}
}

// Metrics returns the manager's metrics.Source implementation.
func (m *Manager) Metrics() *Metrics {
	return m.metrics
}

// RefreshMetrics recomputes container and resource-usage counters from the
// runtime. cmd/orchestrator runs this on a 30-second ticker.
func (m *Manager) RefreshMetrics(ctx context.Context) error {
	return m.metrics.Refresh(ctx, m.runtime)
}

// lockFor returns the per-container-name mutex, creating it if absent. A
// sync.Map would avoid the outer mutex but loses the simple "get-or-create"
// idiom; since this is only ever touched around session create/stop, the
// cost is negligible.
func (m *Manager) lockFor(name string) *sync.Mutex {
	m.locksMu.Lock()
	defer m.locksMu.Unlock()
	l, ok := m.locks[name]
	if !ok {
		l = &sync.Mutex{}
		m.locks[name] = l
	}
	return l
}

func sessionCap(perm types.Permission, defaultCap int) int {
	if perm.SessionCap > 0 {
		return perm.SessionCap
	}
	if defaultCap > 0 {
		return defaultCap
	}
	return defaultSessionCap
}

// CreateSession provisions (or returns the existing) IDE session for
// (userID, repositoryID, branch).
func (m *Manager) CreateSession(ctx context.Context, userID, repositoryID int64, branch string, perm types.Permission, defaultCap int) (types.Session, error) {
	timer := log.NewTimer(log.WithUser(userID), "create_session")
	start := time.Now()
	var resultErr error
	defer func() {
		timer.StopWithErr(resultErr)
		m.metrics.recordOperation(time.Since(start))
		if resultErr != nil {
			m.metrics.recordError(resultErr)
		}
	}()

	containerName := runtime.ContainerName(userID, repositoryID, branch)
	lock := m.lockFor(containerName)
	lock.Lock()
	defer lock.Unlock()

	running, err := m.UserSessions(ctx, userID)
	if err != nil {
		resultErr = err
		return types.Session{}, err
	}
	if len(running) >= sessionCap(perm, defaultCap) {
		resultErr = errs.New(errs.ResourceLimitExceeded, fmt.Sprintf("user %d has %d running sessions, cap is %d", userID, len(running), sessionCap(perm, defaultCap)))
		return types.Session{}, resultErr
	}

	for _, s := range running {
		if s.RepositoryID == repositoryID && s.BranchName == branch && s.Status == types.SessionRunning {
			return s, nil
		}
	}

	worktreePath := m.vcs.WorktreePath(repositoryID, userID, branch)
	if _, err := m.vcs.CreateWorktree(ctx, repositoryID, userID, branch); err != nil {
		resultErr = errs.Wrap(errs.GitWorktreeCreationFailed, err, "creating worktree")
		return types.Session{}, resultErr
	}

	created, err := m.runtime.CreateIdeContainer(ctx, runtime.CreateIdeContainerParams{
		UserID:         userID,
		RepositoryID:   repositoryID,
		Branch:         branch,
		WorktreePath:   worktreePath,
		ExtensionsPath: m.extensionsPath,
		Permission:     perm,
		Limits:         m.limits,
	})
	if err != nil {
		m.cleanupFailedSession(ctx, repositoryID, userID, branch)
		resultErr = errs.Wrap(errs.ContainerCreationFailed, err, "creating ide container")
		return types.Session{}, resultErr
	}

	if err := m.waitReady(ctx, created.ContainerID); err != nil {
		m.cleanupFailedSession(ctx, repositoryID, userID, branch)
		resultErr = err
		return types.Session{}, resultErr
	}

	now := time.Now()
	session := types.Session{
		ContainerID:    created.ContainerID,
		UserID:         userID,
		RepositoryID:   repositoryID,
		BranchName:     branch,
		ContainerName:  created.ContainerName,
		URL:            created.Route.URL,
		Status:         types.SessionRunning,
		CreatedAt:      now,
		LastAccessedAt: now,
	}

	m.metrics.recordSessionCreated()
	m.publish(events.EventSessionCreated, session, "session created")
	m.publish(events.EventSessionStarted, session, "session started")

	return session, nil
}

func (m *Manager) waitReady(ctx context.Context, containerID string) error {
	deadline := time.Now().Add(waitReadyTimeout)
	for time.Now().Before(deadline) {
		healthy, err := m.runtime.HealthCheck(ctx, containerID)
		if err == nil && healthy {
			return nil
		}
		select {
		case <-ctx.Done():
			return errs.Wrap(errs.ContainerStartFailed, ctx.Err(), "context canceled while waiting for session readiness")
		case <-time.After(time.Second):
		}
	}
	return errs.New(errs.ContainerStartFailed, "session did not become healthy within wait-ready timeout")
}

func (m *Manager) cleanupFailedSession(ctx context.Context, repositoryID, userID int64, branch string) {
	if _, err := m.vcs.RemoveWorktree(ctx, repositoryID, userID, branch); err != nil {
		log.WithComponent("session").Warn().Err(err).Msg("best-effort worktree cleanup after failed session creation failed")
	}
}

// StopSession removes a session's container and worktree. Worktree removal
// and route teardown are best-effort; container removal failure is fatal.
func (m *Manager) StopSession(ctx context.Context, sessionID string, userID, repositoryID int64, branch string) error {
	containerName := runtime.ContainerName(userID, repositoryID, branch)
	lock := m.lockFor(containerName)
	lock.Lock()
	defer lock.Unlock()

	createdAt := m.lookupCreatedAt(ctx, sessionID)

	if err := m.runtime.RemoveContainer(ctx, sessionID); err != nil {
		err = errs.Wrap(errs.ContainerStopFailed, err, "removing session container")
		m.metrics.recordError(err)
		return err
	}

	if !createdAt.IsZero() {
		m.metrics.recordSessionCompleted(time.Since(createdAt))
	}

	if _, err := m.vcs.RemoveWorktree(ctx, repositoryID, userID, branch); err != nil {
		log.WithComponent("session").Warn().Err(err).Msg("worktree removal failed after session stop")
	}

	m.publish(events.EventSessionStopped, types.Session{
		ContainerID:  sessionID,
		UserID:       userID,
		RepositoryID: repositoryID,
		BranchName:   branch,
	}, "session stopped")

	return nil
}

func (m *Manager) lookupCreatedAt(ctx context.Context, containerID string) time.Time {
	sessions, err := m.runtime.ListManagedSessions(ctx)
	if err != nil {
		return time.Time{}
	}
	for _, s := range sessions {
		if s.ContainerID == containerID {
			return s.CreatedAt
		}
	}
	return time.Time{}
}

// UserSessions lists a user's currently managed sessions.
func (m *Manager) UserSessions(ctx context.Context, userID int64) ([]types.Session, error) {
	all, err := m.runtime.ListManagedSessions(ctx)
	if err != nil {
		return nil, errs.Wrap(errs.DockerConnectionFailed, err, "listing managed sessions")
	}
	var mine []types.Session
	for _, s := range all {
		if s.UserID == userID {
			mine = append(mine, s)
		}
	}
	return mine, nil
}

// GetSession looks up a single managed session by container id.
func (m *Manager) GetSession(ctx context.Context, sessionID string) (types.Session, bool, error) {
	all, err := m.runtime.ListManagedSessions(ctx)
	if err != nil {
		return types.Session{}, false, errs.Wrap(errs.DockerConnectionFailed, err, "listing managed sessions")
	}
	for _, s := range all {
		if s.ContainerID == sessionID {
			return s, true, nil
		}
	}
	return types.Session{}, false, nil
}

// SessionHealth is performHealthChecks' per-session result.
type SessionHealth struct {
	ContainerID        string
	Healthy            bool
	ResourceUsage      *runtime.ContainerStats
	SecurityCompliant  *bool
	SecurityViolations []string
}

// PerformHealthChecks composes a health/resource/security report for every
// managed session.
func (m *Manager) PerformHealthChecks(ctx context.Context) ([]SessionHealth, error) {
	sessions, err := m.runtime.ListManagedSessions(ctx)
	if err != nil {
		return nil, errs.Wrap(errs.DockerConnectionFailed, err, "listing managed sessions")
	}

	var results []SessionHealth
	for _, s := range sessions {
		healthy, _ := m.runtime.HealthCheck(ctx, s.ContainerID)
		result := SessionHealth{ContainerID: s.ContainerID, Healthy: healthy}

		if stats, err := m.runtime.GetContainerStats(ctx, s.ContainerID); err == nil {
			result.ResourceUsage = &stats
		}
		if audit, err := m.runtime.MonitorContainerSecurity(ctx, s.ContainerID); err == nil {
			compliant := audit.Compliant
			result.SecurityCompliant = &compliant
			result.SecurityViolations = audit.Violations
		}
		results = append(results, result)
	}
	return results, nil
}

// CleanupInactiveSessions stops every session whose container has been
// inactive for over an hour, then prunes worktree metadata for every
// affected repository.
func (m *Manager) CleanupInactiveSessions(ctx context.Context) []error {
	sessions, err := m.runtime.ListManagedSessions(ctx)
	if err != nil {
		return []error{errs.Wrap(errs.DockerConnectionFailed, err, "listing managed sessions")}
	}

	var errsOut []error
	repos := make(map[int64]bool)
	cutoff := time.Now().Add(-inactivityThreshold)
	for _, s := range sessions {
		if s.Status == types.SessionStopped || s.LastAccessedAt.After(cutoff) {
			continue
		}
		if err := m.StopSession(ctx, s.ContainerID, s.UserID, s.RepositoryID, s.BranchName); err != nil {
			errsOut = append(errsOut, err)
			continue
		}
		repos[s.RepositoryID] = true
	}

	for repoID := range repos {
		if _, err := m.vcs.CleanupWorktrees(ctx, repoID); err != nil {
			errsOut = append(errsOut, err)
		}
	}
	return errsOut
}

// SecurityAuditEntry is performSecurityAudit's per-session result.
type SecurityAuditEntry struct {
	SessionID    string
	UserID       int64
	RepositoryID int64
	Branch       string
	Audit        runtime.AuditResult
}

// PerformSecurityAudit audits every managed session's container.
func (m *Manager) PerformSecurityAudit(ctx context.Context) ([]SecurityAuditEntry, error) {
	sessions, err := m.runtime.ListManagedSessions(ctx)
	if err != nil {
		return nil, errs.Wrap(errs.DockerConnectionFailed, err, "listing managed sessions")
	}

	var entries []SecurityAuditEntry
	for _, s := range sessions {
		audit, err := m.runtime.PerformSecurityAudit(ctx, s.ContainerID)
		if err != nil {
			continue
		}
		entries = append(entries, SecurityAuditEntry{
			SessionID:    s.ContainerID,
			UserID:       s.UserID,
			RepositoryID: s.RepositoryID,
			Branch:       s.BranchName,
			Audit:        audit,
		})
	}
	return entries, nil
}

// Shutdown attempts to stop every managed session sequentially, logging
// (not failing on) per-session errors, mirroring the teacher's Manager
// Shutdown sequence of best-effort subsystem teardown.
func (m *Manager) Shutdown(ctx context.Context) {
	sessions, err := m.runtime.ListManagedSessions(ctx)
	if err != nil {
		log.WithComponent("session").Error().Err(err).Msg("listing managed sessions during shutdown")
		return
	}
	for _, s := range sessions {
		if err := m.StopSession(ctx, s.ContainerID, s.UserID, s.RepositoryID, s.BranchName); err != nil {
			log.WithComponent("session").Error().Err(err).Str("container_id", s.ContainerID).Msg("failed to stop session during shutdown")
		}
	}
}

func (m *Manager) publish(eventType events.EventType, s types.Session, message string) {
	if m.broker == nil {
		return
	}
	m.broker.Publish(&events.Event{
		Type:         eventType,
		SessionID:    s.ContainerID,
		UserID:       s.UserID,
		RepositoryID: s.RepositoryID,
		Branch:       s.BranchName,
		Message:      message,
	})
}
