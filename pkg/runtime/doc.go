/*
Package runtime implements the Container Runtime Adapter (C6): container
lifecycle, network provisioning, stats collection and the inactive-container
sweep, over the Docker Engine API rather than containerd/OCI.

# Why Docker instead of containerd

The teacher this package is adapted from drove containerd directly (client,
cio, oci, namespaces). A single-node IDE orchestrator has no need for
containerd's snapshot/namespace machinery; the Docker Engine API gives the
same create/start/stop/stats surface with a daemon already present on every
target host, so DockerRuntime replaces ContainerdRuntime one for one.

# Labels are the only persisted state

DockerRuntime writes no database row for a container. Ownership, the
(user, repository, branch) triple and the permission snapshot used to
derive its SecurityProfile all live in container labels under the
cloud-ide-orchestrator namespace; every listing operation filters on
the managed=true label so an unrelated container on the host is never
touched.

# Isolated network

Every IDE container runs on cloud-ide-isolated, a bridge network with
inter-container communication and IP masquerading both disabled, so one
session's container cannot reach another's or NAT out through the host
by default.

# Route registration is delegated, not owned

CreateIdeContainer never writes proxy routing state itself; it calls
RouteRegistrar, the sole writer of that state (pkg/proxy), keeping this
package's label surface limited to what the runtime itself needs.
*/
package runtime
