package api

import (
	"net/http"
	"strings"
)

// adminOnly wraps a handler so only requests carrying the configured admin
// token in the Authorization header reach it. Adapted from the teacher's
// read-only-vs-write RPC gate: where that interceptor split gRPC methods by
// name prefix, this one splits HTTP routes by mount point, guarding the
// admin-only recovery-retry endpoint the same way.
func adminOnly(token string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}
		got := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if got != token {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
