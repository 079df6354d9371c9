/*
Package recovery implements the Recovery Service (C9): failures reported by
the container runtime and the Session Manager are matched against a
priority-sorted rule table and turned into recovery actions, executed under
a bounded concurrency of 3.

# Rule table

The default table is a set of Go literals (DefaultRules). An operator may
override it with a YAML file named by RECOVERY_RULES_PATH, loaded with
gopkg.in/yaml.v3 the way the rest of the ambient stack treats config-like
surfaces.

# Immediate vs ticked

A failure whose rule priority clears the source's auto-run threshold (7 for
container failures, 8 for session failures) runs immediately in its own
goroutine; everything else waits for the 30 second processing tick, the
same ticker/stopCh shape pkg/metrics.Collector uses for its own tick.

# Strategies

restart bounces the target container. recreate asks the Session Manager to
re-create a session from the failure's stored (user, repository, branch,
permission) metadata. cleanup stops the session (falling back to a direct
container removal) and prunes worktrees. failover is a reserved no-op: the
core has no backup target to fail over to. manual never completes: its
execution always fails with an "awaiting operator" error. Retry puts a
manual action back in the pending queue, where the next attempt fails the
same way.
*/
package recovery
