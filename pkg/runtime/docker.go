package runtime

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"
	units "github.com/docker/go-units"

	"github.com/cloudide/orchestrator/pkg/errs"
	"github.com/cloudide/orchestrator/pkg/security"
	"github.com/cloudide/orchestrator/pkg/types"
)

// LabelNamespace prefixes every label DockerRuntime writes so listings can
// filter out containers the orchestrator does not own.
const LabelNamespace = "cloud-ide-orchestrator"

const (
	labelManaged            = LabelNamespace + ".managed"
	labelUserID             = LabelNamespace + ".user-id"
	labelRepositoryID       = LabelNamespace + ".repository-id"
	labelBranchName         = LabelNamespace + ".branch-name"
	labelCreated            = LabelNamespace + ".created"
	labelLastAccessed       = LabelNamespace + ".last-accessed"
	labelSecurityProfile    = LabelNamespace + ".security-profile"
	labelPermissionsSnapshot = LabelNamespace + ".permissions-snapshot"
)

// IsolatedNetworkName is the bridge network every IDE container attaches
// to; exported so the proxy registrar can label routes with the network
// Traefik must resolve through.
const IsolatedNetworkName = "cloud-ide-isolated"

const (
	isolatedNetworkName = IsolatedNetworkName
	isolatedSubnet      = "172.20.0.0/16"
	ideExposedPort      = "8080/tcp"

	workspaceMountTarget   = "/home/coder/workspace"
	extensionsMountTarget  = "/home/coder/.local/share/code-server/extensions"
	containerWorkingDir    = "/home/coder/workspace"
	containerUser          = "coder:coder"

	startPollInterval = time.Second
	startPollTimeout  = 30 * time.Second
	stopGraceSeconds  = 10

	cleanupInterval = 5 * time.Minute
)

var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9]`)

// RouteRegistrar is implemented by the proxy route registrar (C7). Docker
// labels are immutable once a container exists, so DeriveRoute is pure:
// DockerRuntime folds its labels into the ContainerCreate call instead of
// writing them after the fact, keeping the registrar the sole author of
// routing label shape.
type RouteRegistrar interface {
	DeriveRoute(routerName string, userID, repositoryID int64, branch string) (map[string]string, types.ContainerRoute)
	UnregisterRoute(ctx context.Context, containerID string) error
}

// DockerRuntime implements the Container Runtime Adapter over the Docker
// Engine API, replacing the teacher's containerd/OCI backend. It owns
// container lifecycle, network provisioning, stats collection and the
// periodic inactive-container sweep.
type DockerRuntime struct {
	cli            *client.Client
	routes         RouteRegistrar
	image          string
	networkName    string
	maxContainers  int
	sessionTimeout time.Duration

	stopCh chan struct{}
}

// DockerRuntimeConfig carries the operator settings DockerRuntime needs at
// construction time.
type DockerRuntimeConfig struct {
	Image          string
	NetworkName    string
	MaxContainers  int
	SessionTimeout time.Duration
	SocketPath     string
}

// NewDockerRuntime dials the Docker daemon. When cfg.SocketPath is set it
// takes precedence over DOCKER_HOST; otherwise the client falls back to
// the environment/default socket, mirroring the pack's idiom for
// constructing a Docker Engine API client.
func NewDockerRuntime(cfg DockerRuntimeConfig, routes RouteRegistrar) (*DockerRuntime, error) {
	opts := []client.Opt{client.FromEnv, client.WithAPIVersionNegotiation()}
	if cfg.SocketPath != "" {
		opts = []client.Opt{client.WithHost("unix://" + cfg.SocketPath), client.WithAPIVersionNegotiation()}
	}
	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, errs.Wrap(errs.DockerConnectionFailed, err, "creating docker client")
	}
	return &DockerRuntime{
		cli:            cli,
		routes:         routes,
		image:          cfg.Image,
		networkName:    cfg.NetworkName,
		maxContainers:  cfg.MaxContainers,
		sessionTimeout: cfg.SessionTimeout,
		stopCh:         make(chan struct{}),
	}, nil
}

// EnsureNetworks creates the isolated bridge network the security profile
// relies on, if it does not already exist. The main bridge network is
// Docker's default and needs no provisioning.
func (r *DockerRuntime) EnsureNetworks(ctx context.Context) error {
	networks, err := r.cli.NetworkList(ctx, network.ListOptions{})
	if err != nil {
		return errs.Wrap(errs.DockerConnectionFailed, err, "listing networks")
	}
	for _, nw := range networks {
		if nw.Name == isolatedNetworkName {
			return nil
		}
	}

	_, err = r.cli.NetworkCreate(ctx, isolatedNetworkName, network.CreateOptions{
		Driver:   "bridge",
		Internal: true,
		IPAM: &network.IPAM{
			Config: []network.IPAMConfig{{Subnet: isolatedSubnet}},
		},
		Options: map[string]string{
			"com.docker.network.bridge.enable_icc":           "false",
			"com.docker.network.bridge.enable_ip_masquerade": "false",
			"com.docker.network.driver.mtu":                  "1500",
		},
	})
	if err != nil {
		return errs.Wrap(errs.DockerConnectionFailed, err, "creating isolated network")
	}
	return nil
}

func safeName(s string) string {
	return unsafeNameChars.ReplaceAllString(s, "_")
}

// ContainerName derives the deterministic name createIdeContainer looks up
// for idempotency: ide_user_<userId>_repo_<repoId>_<safeBranch>.
func ContainerName(userID, repositoryID int64, branch string) string {
	return fmt.Sprintf("ide_user_%d_repo_%d_%s", userID, repositoryID, safeName(branch))
}

// CreateIdeContainerParams bundles createIdeContainer's inputs.
type CreateIdeContainerParams struct {
	UserID         int64
	RepositoryID   int64
	Branch         string
	WorktreePath   string
	ExtensionsPath string
	Permission     types.Permission
	Limits         security.ProfileLimits
}

// CreatedContainer is createIdeContainer's result: the running container
// plus the route the proxy registrar assigned it.
type CreatedContainer struct {
	ContainerID   string
	ContainerName string
	Route         types.ContainerRoute
}

// CreateIdeContainer provisions (or reuses) the IDE container for a
// (user, repository, branch) triple.
func (r *DockerRuntime) CreateIdeContainer(ctx context.Context, p CreateIdeContainerParams) (CreatedContainer, error) {
	name := ContainerName(p.UserID, p.RepositoryID, p.Branch)

	if existing, err := r.cli.ContainerInspect(ctx, name); err == nil {
		_, route := r.routes.DeriveRoute(name, p.UserID, p.RepositoryID, p.Branch)
		route.ContainerID = existing.ID
		return CreatedContainer{ContainerID: existing.ID, ContainerName: name, Route: route}, nil
	}

	running, err := r.runningCount(ctx)
	if err != nil {
		return CreatedContainer{}, err
	}
	if running >= r.maxContainers {
		return CreatedContainer{}, errs.New(errs.ContainerLimitExceeded, fmt.Sprintf("running containers %d >= max %d", running, r.maxContainers))
	}

	profile := security.DeriveProfile(p.UserID, p.RepositoryID, p.Permission, p.Limits)

	workspaceMount, _ := security.ValidateMount(workspaceMountTarget, profile)
	if !workspaceMount.Allowed {
		return CreatedContainer{}, errs.New(errs.SecurityViolation, "workspace mount rejected: "+workspaceMount.Reason)
	}
	extensionsMount, extReadOnly := security.ValidateMount(extensionsMountTarget, profile)
	if !extensionsMount.Allowed {
		return CreatedContainer{}, errs.New(errs.SecurityViolation, "extensions mount rejected: "+extensionsMount.Reason)
	}

	env := []string{
		"PASSWORD=",
		"HASHED_PASSWORD=",
		"DISABLE_TELEMETRY=true",
		"DISABLE_UPDATE_CHECK=true",
		"DISABLE_GETTING_STARTED_OVERRIDE=true",
	}
	if !profile.Terminal.Enabled {
		env = append(env, "DISABLE_TERMINAL=true")
	} else {
		env = append(env, fmt.Sprintf("SHELL_TIMEOUT=%d", profile.Terminal.TimeoutSeconds))
	}

	memBytes, err := parseMemory(profile.Resources.Memory)
	if err != nil {
		return CreatedContainer{}, errs.Wrap(errs.ContainerCreationFailed, err, "parsing memory limit")
	}
	cpuQuota := int64(math.Floor(profile.Resources.CPU * 100000))

	permSnapshot, err := json.Marshal(p.Permission)
	if err != nil {
		return CreatedContainer{}, errs.Wrap(errs.ContainerCreationFailed, err, "marshaling permission snapshot")
	}

	now := time.Now().UTC().Format(time.RFC3339)
	labels := map[string]string{
		labelManaged:             "true",
		labelUserID:              fmt.Sprintf("%d", p.UserID),
		labelRepositoryID:        fmt.Sprintf("%d", p.RepositoryID),
		labelBranchName:          p.Branch,
		labelCreated:             now,
		labelLastAccessed:        now,
		labelSecurityProfile:     "enabled",
		labelPermissionsSnapshot: base64.StdEncoding.EncodeToString(permSnapshot),
	}

	routingLabels, route := r.routes.DeriveRoute(name, p.UserID, p.RepositoryID, p.Branch)
	for k, v := range routingLabels {
		labels[k] = v
	}

	config := &container.Config{
		Image:        r.image,
		User:         containerUser,
		WorkingDir:   containerWorkingDir,
		Env:          env,
		Labels:       labels,
		ExposedPorts: exposedPorts(),
	}

	hostConfig := &container.HostConfig{
		Mounts: []mount.Mount{
			{Type: mount.TypeBind, Source: p.WorktreePath, Target: workspaceMountTarget, ReadOnly: false},
			{Type: mount.TypeBind, Source: p.ExtensionsPath, Target: extensionsMountTarget, ReadOnly: extReadOnly},
		},
		Resources: container.Resources{
			Memory:    memBytes,
			CPUQuota:  cpuQuota,
			CPUPeriod: 100000,
			Ulimits:   defaultUlimits(profile.FileSystem.MaxFileSize),
		},
		SecurityOpt: defaultSecurityOpts(),
		CapDrop:     []string{"ALL"},
		Tmpfs: map[string]string{
			"/tmp":               "rw,noexec,nosuid,size=100m",
			"/var/tmp":           "rw,noexec,nosuid,size=50m",
			"/home/coder/.cache": "rw,noexec,nosuid,size=200m",
		},
		ReadonlyRootfs: true,
		Privileged:     false,
		RestartPolicy:  container.RestartPolicy{Name: "unless-stopped"},
		NetworkMode:    container.NetworkMode(isolatedNetworkName),
		DNS:            []string{"8.8.8.8", "8.8.4.4"},
	}

	resp, err := r.cli.ContainerCreate(ctx, config, hostConfig, nil, nil, name)
	if err != nil {
		return CreatedContainer{}, errs.Wrap(errs.ContainerCreationFailed, err, "creating container "+name)
	}

	if err := r.cli.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		_, _ = r.cli.ContainerRemove(ctx, resp.ID, container.RemoveOptions{Force: true})
		return CreatedContainer{}, errs.Wrap(errs.ContainerStartFailed, err, "starting container "+name)
	}

	if err := r.waitRunning(ctx, resp.ID); err != nil {
		_, _ = r.cli.ContainerRemove(ctx, resp.ID, container.RemoveOptions{Force: true})
		return CreatedContainer{}, err
	}

	route.ContainerID = resp.ID
	return CreatedContainer{ContainerID: resp.ID, ContainerName: name, Route: route}, nil
}

func exposedPorts() nat.PortSet {
	return nat.PortSet{ideExposedPort: {}}
}

func (r *DockerRuntime) waitRunning(ctx context.Context, containerID string) error {
	deadline := time.Now().Add(startPollTimeout)
	for time.Now().Before(deadline) {
		inspect, err := r.cli.ContainerInspect(ctx, containerID)
		if err != nil {
			return errs.Wrap(errs.ContainerStartFailed, err, "inspecting container during start poll")
		}
		if inspect.State.Running {
			return nil
		}
		select {
		case <-ctx.Done():
			return errs.Wrap(errs.ContainerStartFailed, ctx.Err(), "context canceled during start poll")
		case <-time.After(startPollInterval):
		}
	}
	return errs.New(errs.ContainerStartFailed, "container did not reach running state within "+startPollTimeout.String())
}

func (r *DockerRuntime) runningCount(ctx context.Context) (int, error) {
	containers, err := r.listManaged(ctx, false)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, c := range containers {
		if c.State == "running" {
			count++
		}
	}
	return count, nil
}

func (r *DockerRuntime) listManaged(ctx context.Context, all bool) ([]container.Summary, error) {
	containers, err := r.cli.ContainerList(ctx, container.ListOptions{All: all})
	if err != nil {
		return nil, errs.Wrap(errs.DockerConnectionFailed, err, "listing containers")
	}
	managed := containers[:0]
	for _, c := range containers {
		if c.Labels[labelManaged] == "true" {
			managed = append(managed, c)
		}
	}
	return managed, nil
}

// ListManagedSessions lists every managed container as a types.Session,
// decoding the identifying labels CreateIdeContainer wrote. Containers are
// the session manager's only source of truth; it keeps no separate store.
func (r *DockerRuntime) ListManagedSessions(ctx context.Context) ([]types.Session, error) {
	containers, err := r.listManaged(ctx, true)
	if err != nil {
		return nil, err
	}

	sessions := make([]types.Session, 0, len(containers))
	for _, c := range containers {
		var userID, repositoryID int64
		fmt.Sscanf(c.Labels[labelUserID], "%d", &userID)
		fmt.Sscanf(c.Labels[labelRepositoryID], "%d", &repositoryID)

		status := types.SessionStopped
		if c.State == "running" {
			status = types.SessionRunning
		}

		lastAccessed, err := time.Parse(time.RFC3339, c.Labels[labelLastAccessed])
		if err != nil {
			lastAccessed = time.Unix(c.Created, 0).UTC()
		}
		createdAt, err := time.Parse(time.RFC3339, c.Labels[labelCreated])
		if err != nil {
			createdAt = time.Unix(c.Created, 0).UTC()
		}

		name := strings.TrimPrefix(firstOrEmpty(c.Names), "/")
		sessions = append(sessions, types.Session{
			ContainerID:    c.ID,
			UserID:         userID,
			RepositoryID:   repositoryID,
			BranchName:     c.Labels[labelBranchName],
			ContainerName:  name,
			Status:         status,
			CreatedAt:      createdAt,
			LastAccessedAt: lastAccessed,
		})
	}
	return sessions, nil
}

func firstOrEmpty(names []string) string {
	if len(names) == 0 {
		return ""
	}
	return names[0]
}

// StopContainer inspects the container and, if running, stops it with a
// 10 second grace period.
func (r *DockerRuntime) StopContainer(ctx context.Context, containerID string) error {
	inspect, err := r.cli.ContainerInspect(ctx, containerID)
	if err != nil {
		if client.IsErrNotFound(err) {
			return nil
		}
		return errs.Wrap(errs.ContainerStopFailed, err, "inspecting container "+containerID)
	}
	if !inspect.State.Running {
		return nil
	}
	timeout := stopGraceSeconds
	if err := r.cli.ContainerStop(ctx, containerID, container.StopOptions{Timeout: &timeout}); err != nil {
		return errs.Wrap(errs.ContainerStopFailed, err, "stopping container "+containerID)
	}
	return nil
}

// RestartContainer stops (if running) and starts the container again,
// used by the recovery service's "restart" strategy.
func (r *DockerRuntime) RestartContainer(ctx context.Context, containerID string) error {
	timeout := stopGraceSeconds
	if err := r.cli.ContainerRestart(ctx, containerID, container.StopOptions{Timeout: &timeout}); err != nil {
		return errs.Wrap(errs.ContainerStartFailed, err, "restarting container "+containerID)
	}
	return r.waitRunning(ctx, containerID)
}

// RemoveContainer stops (best-effort), unregisters the route
// (best-effort), then force-removes the container.
func (r *DockerRuntime) RemoveContainer(ctx context.Context, containerID string) error {
	_ = r.StopContainer(ctx, containerID)
	_ = r.routes.UnregisterRoute(ctx, containerID)

	if err := r.cli.ContainerRemove(ctx, containerID, container.RemoveOptions{Force: true}); err != nil {
		if client.IsErrNotFound(err) {
			return nil
		}
		return errs.Wrap(errs.ContainerStopFailed, err, "removing container "+containerID)
	}
	return nil
}

// ContainerStats is getContainerStats' result.
type ContainerStats struct {
	CPUPercent    float64
	MemoryUsage   int64
	MemoryLimit   int64
	NetworkRxByte int64
	NetworkTxByte int64
}

// GetContainerStats derives CPU percent from the cpu/precpu deltas in the
// Engine API's one-shot stats stream, and sums rx/tx across every network
// interface.
func (r *DockerRuntime) GetContainerStats(ctx context.Context, containerID string) (ContainerStats, error) {
	resp, err := r.cli.ContainerStatsOneShot(ctx, containerID)
	if err != nil {
		return ContainerStats{}, errs.Wrap(errs.DockerConnectionFailed, err, "fetching stats for "+containerID)
	}
	defer resp.Body.Close()

	var raw container.StatsResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return ContainerStats{}, errs.Wrap(errs.DockerConnectionFailed, err, "decoding stats for "+containerID)
	}

	cpuDelta := float64(raw.CPUStats.CPUUsage.TotalUsage) - float64(raw.PreCPUStats.CPUUsage.TotalUsage)
	systemDelta := float64(raw.CPUStats.SystemUsage) - float64(raw.PreCPUStats.SystemUsage)
	var cpuPercent float64
	if systemDelta > 0 && cpuDelta > 0 {
		cpuPercent = (cpuDelta / systemDelta) * float64(len(raw.CPUStats.CPUUsage.PercpuUsage)) * 100
		if len(raw.CPUStats.CPUUsage.PercpuUsage) == 0 {
			cpuPercent = (cpuDelta / systemDelta) * 100
		}
	}

	var rx, tx int64
	for _, nw := range raw.Networks {
		rx += int64(nw.RxBytes)
		tx += int64(nw.TxBytes)
	}

	return ContainerStats{
		CPUPercent:    cpuPercent,
		MemoryUsage:   int64(raw.MemoryStats.Usage),
		MemoryLimit:   int64(raw.MemoryStats.Limit),
		NetworkRxByte: rx,
		NetworkTxByte: tx,
	}, nil
}

// HealthCheck reports a container healthy when it is running and either
// reports no health status or a non-unhealthy one.
func (r *DockerRuntime) HealthCheck(ctx context.Context, containerID string) (bool, error) {
	inspect, err := r.cli.ContainerInspect(ctx, containerID)
	if err != nil {
		return false, errs.Wrap(errs.DockerConnectionFailed, err, "inspecting container "+containerID)
	}
	if !inspect.State.Running {
		return false, nil
	}
	if inspect.State.Health == nil {
		return true, nil
	}
	return inspect.State.Health.Status != "unhealthy", nil
}

// StartCleanupLoop runs cleanupInactiveContainers every 5 minutes until
// Stop is called.
func (r *DockerRuntime) StartCleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(cleanupInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				_, _ = r.CleanupInactiveContainers(ctx)
			case <-r.stopCh:
				return
			}
		}
	}()
}

// Stop terminates the cleanup loop.
func (r *DockerRuntime) Stop() {
	close(r.stopCh)
}

// CleanupInactiveContainers removes every managed, non-exited container
// whose last-accessed label is older than the session timeout.
func (r *DockerRuntime) CleanupInactiveContainers(ctx context.Context) ([]string, error) {
	containers, err := r.listManaged(ctx, true)
	if err != nil {
		return nil, err
	}

	var removed []string
	cutoff := time.Now().Add(-r.sessionTimeout)
	for _, c := range containers {
		if c.State == "exited" {
			continue
		}
		lastAccessed, err := time.Parse(time.RFC3339, c.Labels[labelLastAccessed])
		if err != nil {
			continue
		}
		if lastAccessed.Before(cutoff) {
			if err := r.RemoveContainer(ctx, c.ID); err != nil {
				continue
			}
			removed = append(removed, c.ID)
		}
	}
	return removed, nil
}

// SecurityAuditResult is monitorContainerSecurity's result.
type SecurityAuditResult struct {
	Compliant     bool
	Violations    []string
	ResourceUsage ContainerStats
}

// MonitorContainerSecurity requires the user/repository labels to be
// present and folds a resource audit into the result: memory against the
// limit the stats report, CPU against the container's configured CPU quota
// (no CPU ceiling when the container has none). It does not read the
// permissions-snapshot label and does not re-derive the SecurityProfile.
func (r *DockerRuntime) MonitorContainerSecurity(ctx context.Context, containerID string) (SecurityAuditResult, error) {
	inspect, err := r.cli.ContainerInspect(ctx, containerID)
	if err != nil {
		return SecurityAuditResult{}, errs.Wrap(errs.DockerConnectionFailed, err, "inspecting container "+containerID)
	}

	var violations []string
	if inspect.Config.Labels[labelUserID] == "" || inspect.Config.Labels[labelRepositoryID] == "" {
		violations = append(violations, "missing required user/repository labels")
	}

	stats, err := r.GetContainerStats(ctx, containerID)
	if err != nil {
		return SecurityAuditResult{}, err
	}
	cpuLimit := math.Inf(1)
	if hc := inspect.HostConfig; hc != nil && hc.CPUQuota > 0 && hc.CPUPeriod > 0 {
		cpuLimit = float64(hc.CPUQuota) / float64(hc.CPUPeriod)
	}
	usageResult := security.ValidateResourceUsage(stats.MemoryUsage, stats.MemoryLimit, stats.CPUPercent, cpuLimit)
	if !usageResult.Allowed {
		violations = append(violations, usageResult.Reason)
	}

	return SecurityAuditResult{
		Compliant:     len(violations) == 0,
		Violations:    violations,
		ResourceUsage: stats,
	}, nil
}

// AuditResult is performSecurityAudit's result for one container.
type AuditResult struct {
	Compliant       bool
	Violations      []string
	Recommendations []string
	RiskLevel       string
}

// PerformSecurityAudit checks label presence, running state, resource
// pressure, container age and (roughly) network egress, producing a
// risk-leveled report.
func (r *DockerRuntime) PerformSecurityAudit(ctx context.Context, containerID string) (AuditResult, error) {
	inspect, err := r.cli.ContainerInspect(ctx, containerID)
	if err != nil {
		return AuditResult{}, errs.Wrap(errs.DockerConnectionFailed, err, "inspecting container "+containerID)
	}

	var violations, recommendations []string
	riskLevel := "low"

	for _, label := range []string{labelManaged, labelUserID, labelRepositoryID, labelSecurityProfile} {
		if inspect.Config.Labels[label] == "" {
			violations = append(violations, "missing label "+label)
			riskLevel = "high"
		}
	}
	if !inspect.State.Running {
		violations = append(violations, "container is not running")
	}

	stats, err := r.GetContainerStats(ctx, containerID)
	if err == nil {
		if stats.MemoryLimit > 0 && float64(stats.MemoryUsage)/float64(stats.MemoryLimit)*100 > 90 {
			recommendations = append(recommendations, "memory usage above 90%")
			if riskLevel == "low" {
				riskLevel = "medium"
			}
		}
		if stats.CPUPercent > 90 {
			recommendations = append(recommendations, "cpu usage above 90%")
			if riskLevel == "low" {
				riskLevel = "medium"
			}
		}
		if stats.NetworkTxByte > 100*1024*1024 {
			recommendations = append(recommendations, "network egress exceeds 100 MiB")
		}
	}

	created, err := time.Parse(time.RFC3339Nano, inspect.Created)
	if err == nil && time.Since(created) > 24*time.Hour {
		recommendations = append(recommendations, "container age exceeds 24 hours")
	}

	if len(violations) > 0 && riskLevel != "critical" {
		riskLevel = "high"
	}
	if len(violations) >= 3 {
		riskLevel = "critical"
	}

	return AuditResult{
		Compliant:       len(violations) == 0,
		Violations:      violations,
		Recommendations: recommendations,
		RiskLevel:       riskLevel,
	}, nil
}

func parseMemory(s string) (int64, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return 0, fmt.Errorf("empty memory limit")
	}
	multiplier := int64(1)
	switch {
	case strings.HasSuffix(s, "g"):
		multiplier = 1024 * 1024 * 1024
		s = strings.TrimSuffix(s, "g")
	case strings.HasSuffix(s, "m"):
		multiplier = 1024 * 1024
		s = strings.TrimSuffix(s, "m")
	case strings.HasSuffix(s, "k"):
		multiplier = 1024
		s = strings.TrimSuffix(s, "k")
	}
	var value float64
	if _, err := fmt.Sscanf(s, "%f", &value); err != nil {
		return 0, fmt.Errorf("invalid memory limit %q: %w", s, err)
	}
	return int64(value * float64(multiplier)), nil
}

func defaultSecurityOpts() []string {
	return []string{
		"no-new-privileges:true",
		"apparmor:docker-default",
		"seccomp:default",
	}
}

func defaultUlimits(maxFileSizeBytes int64) []*units.Ulimit {
	return []*units.Ulimit{
		{Name: "nofile", Soft: 1024, Hard: 2048},
		{Name: "nproc", Soft: 512, Hard: 1024},
		{Name: "fsize", Soft: maxFileSizeBytes, Hard: maxFileSizeBytes},
	}
}
