/*
Package session implements the Session Manager (C8), the orchestrator's
top-level surface for creating, stopping, listing, auditing and shutting
down IDE sessions.

# No separate store

Like pkg/runtime and pkg/proxy, the Session Manager keeps no database of
its own: every read (UserSessions, PerformHealthChecks,
CleanupInactiveSessions, PerformSecurityAudit) lists managed containers
from the runtime and reconstructs session state from their labels.

# Serialization

Lifecycle operations for a given (user, repository, branch) triple are
serialized through a per-container-name mutex so create and stop for the
same container never interleave. The lock map itself is protected by a
plain mutex rather than sync.Map, since entries are only ever added, never
removed, and the get-or-create path is simple to reason about.

# Session cap

CreateSession rejects with a ResourceLimitExceeded error once a user's
running session count reaches their Permission.SessionCap, falling back
to a configured default when SessionCap is unset.

# Shutdown

Shutdown stops every managed session sequentially, logging (not failing
on) any individual session's stop error, the same best-effort subsystem
teardown shape the teacher's Manager.Shutdown uses.
*/
package session
