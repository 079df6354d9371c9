/*
Package proxy implements the Proxy Route Registrar, the sole author of a
session's Traefik routing labels.

# Labels, not a control-plane call

Traefik's docker provider polls running containers and reads their labels
directly; there is no separate "register a route" API to call. DeriveRoute
is therefore a pure function — it hands the container runtime (pkg/runtime)
the label set to fold into ContainerCreate, rather than mutating a live
container afterward, which the Docker Engine API does not support for
labels.

# Dashboard and route testing

TestRoute is the only call that touches the network; DashboardURL only
formats the dashboard address. Both are best-effort diagnostics, not part
of the route's source of truth.
*/
package proxy
