// Package proxy implements the Proxy Route Registrar (C7): Traefik-style
// routing labels baked onto a container at creation time, with the
// container itself as the only persisted route state. Docker labels are
// immutable once a container is created, so — unlike a registrar that
// calls out to a separate proxy control plane — DeriveRoute is a pure
// function the container runtime (pkg/runtime) folds into its
// ContainerCreate call; nothing is "applied" after the fact. This keeps
// the registrar the sole author of routing label shape while respecting
// the Engine API's actual constraints, and resolves the single
// source-of-truth design question for route state.
//
// The host-matching idiom (exact host, "*.example.com" wildcard suffix) is
// adapted from the teacher's pkg/ingress Router, generalized here from
// matching inbound requests against a static ingress list to generating
// the one Host() rule a session's container needs.
package proxy

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/cloudide/orchestrator/pkg/errs"
	"github.com/cloudide/orchestrator/pkg/types"
)

const labelNamespace = "traefik"
const testRouteTimeout = 5 * time.Second

var subdomainUnsafe = regexp.MustCompile(`[^a-z0-9]+`)

// Subdomain computes the ContainerRoute subdomain: ide-u{userId}-r{repoId}-{branch},
// lowercased, with runs of non-alphanumerics collapsed to a single hyphen
// and leading/trailing hyphens trimmed.
func Subdomain(userID, repositoryID int64, branch string) string {
	raw := fmt.Sprintf("ide-u%d-r%d-%s", userID, repositoryID, branch)
	lowered := strings.ToLower(raw)
	collapsed := subdomainUnsafe.ReplaceAllString(lowered, "-")
	return strings.Trim(collapsed, "-")
}

// defaultMiddlewareChain is applied to every session router, in order:
// security headers, the rate limiter, then the IDE session middleware.
const defaultMiddlewareChain = "security-headers@docker,rate-limit@docker,ide-session@docker"

// Registrar derives routing labels and tests live routes. It carries no
// state of its own beyond operator configuration; route state lives
// entirely in container labels.
type Registrar struct {
	domain           string
	enableTLS        bool
	dashboardEnabled bool
	networkName      string
	httpClient       *http.Client
}

// Config carries the operator settings (DOMAIN, ENABLE_TLS,
// TRAEFIK_DASHBOARD) the registrar needs, plus the isolated network name
// Traefik's docker provider must be told to route through — containers
// attach only to that network, never the default bridge.
type Config struct {
	Domain           string
	EnableTLS        bool
	DashboardEnabled bool
	NetworkName      string
}

// NewRegistrar builds a Registrar for the given config.
func NewRegistrar(cfg Config) *Registrar {
	return &Registrar{
		domain:           cfg.Domain,
		enableTLS:        cfg.EnableTLS,
		dashboardEnabled: cfg.DashboardEnabled,
		networkName:      cfg.NetworkName,
		httpClient:       &http.Client{Timeout: testRouteTimeout},
	}
}

func (r *Registrar) scheme() string {
	if r.enableTLS {
		return "https"
	}
	return "http"
}

// DeriveRoute computes the routing label set and the resulting
// ContainerRoute for a container identified by (userID, repositoryID,
// branch). routerName is only used to key the per-router label names
// Traefik's docker provider expects (it may be a placeholder name before
// the real id is known, since Traefik keys on the router name, not the
// container id). Registration is idempotent: deriving twice for the same
// inputs yields identical labels.
func (r *Registrar) DeriveRoute(routerName string, userID, repositoryID int64, branch string) (map[string]string, types.ContainerRoute) {
	subdomain := Subdomain(userID, repositoryID, branch)
	host := fmt.Sprintf("%s.%s", subdomain, r.domain)
	url := fmt.Sprintf("%s://%s", r.scheme(), host)

	labels := map[string]string{
		labelNamespace + ".enable":                                                    "true",
		labelNamespace + ".docker.network":                                            r.networkName,
		labelNamespace + ".http.routers." + routerName + ".rule":                      fmt.Sprintf("Host(`%s`)", host),
		labelNamespace + ".http.routers." + routerName + ".entrypoints":               "websecure",
		labelNamespace + ".http.routers." + routerName + ".priority":                  "100",
		labelNamespace + ".http.routers." + routerName + ".middlewares":                defaultMiddlewareChain,
		labelNamespace + ".http.services." + routerName + ".loadbalancer.server.port": "8080",
	}
	if r.enableTLS {
		labels[labelNamespace+".http.routers."+routerName+".tls"] = "true"
		labels[labelNamespace+".http.routers."+routerName+".tls.certresolver"] = "letsencrypt"
	}

	return labels, types.ContainerRoute{Subdomain: subdomain, URL: url}
}

// UnregisterRoute is a no-op placeholder: Docker labels cannot be removed
// from a live container, and removing the container itself (pkg/runtime)
// is what actually withdraws the route from Traefik's docker provider,
// which reads labels off running containers only. The method exists as a
// seam for a future out-of-band announcer rather than doing any work
// today.
func (r *Registrar) UnregisterRoute(ctx context.Context, containerID string) error {
	return nil
}

// TestRoute issues a HEAD request against url with a 5 second timeout and
// reports whether the response was OK.
func (r *Registrar) TestRoute(ctx context.Context, url string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, testRouteTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return false, errs.Wrap(errs.InternalError, err, "building route test request")
	}
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return false, nil
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK, nil
}

// DashboardURL returns the Traefik dashboard URL when enabled, or empty
// string otherwise.
func (r *Registrar) DashboardURL() string {
	if !r.dashboardEnabled {
		return ""
	}
	return fmt.Sprintf("%s://traefik.%s", r.scheme(), r.domain)
}
