/*
Package log provides structured logging for the cloud IDE orchestrator
using zerolog.

The log package wraps zerolog to provide JSON-structured logging with
component-specific child loggers, configurable log levels, and helper
functions for common logging patterns. All logs include timestamps and
support filtering by severity level for production debugging.

# Log Levels

Debug, Info, Warn, Error, and Critical (severity=critical on an error-level
entry, since zerolog has no distinct critical level). Fatal exits the
process and is reserved for unrecoverable startup failures.

# Usage

Initializing the Logger:

	import "github.com/cloudide/orchestrator/pkg/log"

	log.Init(log.Config{
		Level:      log.InfoLevel,
		JSONOutput: true,
		Output:     os.Stdout,
	})

Context Loggers:

	sessLog := log.WithSession(session.ContainerID)
	sessLog.Info().Int64("user_id", session.UserID).Msg("session created")

	reqLog := log.WithRequest(requestID)
	reqLog.Warn().Msg("slow request")

Timers:

	t := log.NewTimer(log.WithComponent("session"), "create_session")
	defer func() {
		if err != nil {
			t.StopWithErr(err)
			return
		}
		t.Stop()
	}()

A Timer logs at warn automatically once elapsed exceeds 5s, and reports
the failing error (rather than the duration threshold) when StopWithErr is
used — matching the perf-threshold behavior the monitoring component
depends on for its own slow-operation accounting.

# Integration points

Components (session, recovery, runtime, vcs and others) log through child
loggers of the package-level Logger, obtained from helpers such as
WithComponent at the point of use; they do not take a zerolog.Logger at
construction time.

# Security

Never log secrets or deploy-key material. The security and vcs packages
log violation/error metadata only — never raw terminal commands containing
credentials, nor decrypted key bytes.
*/
package log
