/*
Package api implements the External Interface Facade (C10): a versioned
HTTP surface built on go-chi/chi/v5, mounted under /api/v1.

# Responsibilities

Handlers validate input, delegate to the Session Manager (pkg/session),
the Recovery Service (pkg/recovery) or the monitoring collector
(pkg/metrics), and translate the result — or a taxonomy error (pkg/errs)
— into a JSON response. The facade owns no domain logic; every decision
about sessions, recovery or health lives in the package it delegates to.

# Middleware

chi's RequestID assigns each request an id that the request logger threads
into pkg/log the same way pkg/log.WithRequest is documented to be used
elsewhere, and chi's Recoverer converts a handler panic into a 500 instead
of crashing the process. The admin recovery-retry route is additionally
gated by a bearer-token check (adminOnly), left open when no token is
configured.

# Error translation

writeError maps a *errs.Error's StatusHint to the HTTP status code and its
UserMessage to the response body; any other error is treated as an opaque
internal failure (500).
*/
package api
