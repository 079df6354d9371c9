// Package config loads the orchestrator's process configuration from
// environment variables using struct tags, mirroring the pack's
// caarlos0/env/v11 convention rather than hand-rolled flag/env parsing.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config holds every environment-derived setting the orchestrator core and
// its boundary components need at process start.
type Config struct {
	// Persistence (used only by external collaborators; the core itself
	// never opens this connection)
	DatabaseURL string `env:"DATABASE_URL"`

	// Container runtime
	DockerSocketPath string `env:"DOCKER_SOCKET_PATH" envDefault:"/var/run/docker.sock"`
	DockerNetworkName string `env:"DOCKER_NETWORK_NAME" envDefault:"cloud-ide-network"`
	CodeServerImage  string `env:"CODE_SERVER_IMAGE" envDefault:"codercom/code-server:latest"`
	SessionTimeoutMinutes int `env:"SESSION_TIMEOUT_MINUTES" envDefault:"60"`
	MaxContainers    int    `env:"MAX_CONTAINERS" envDefault:"50"`
	DefaultMemoryLimit string `env:"DEFAULT_MEMORY_LIMIT" envDefault:"2g"`
	DefaultCPULimit  float64 `env:"DEFAULT_CPU_LIMIT" envDefault:"1.0"`
	MaxDiskPerContainer string `env:"MAX_DISK_PER_CONTAINER" envDefault:"5g"`

	// Proxy / routing
	Domain           string `env:"DOMAIN" envDefault:"localhost"`
	EnableTLS        bool   `env:"ENABLE_TLS" envDefault:"false"`
	ACMEEmail        string `env:"ACME_EMAIL"`
	TraefikDashboard bool   `env:"TRAEFIK_DASHBOARD" envDefault:"false"`
	TraefikLogLevel  string `env:"TRAEFIK_LOG_LEVEL" envDefault:"INFO"`

	// VCS
	GitBaseDir     string `env:"GIT_BASE_DIR" envDefault:"/srv/git"`
	ExtensionsPath string `env:"EXTENSIONS_PATH" envDefault:"/srv/extensions"`

	// Logging
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	LogJSON  bool   `env:"LOG_JSON" envDefault:"true"`

	// HTTP / metrics exposition
	HTTPAddr    string `env:"HTTP_ADDR" envDefault:":8080"`
	MetricsAddr string `env:"METRICS_ADDR" envDefault:":9090"`

	// Security
	MasterEncryptionPassphrase string `env:"MASTER_ENCRYPTION_PASSPHRASE"`

	// Recovery
	RecoveryRulesPath     string `env:"RECOVERY_RULES_PATH"`
	DefaultUserSessionCap int    `env:"DEFAULT_USER_SESSION_CAP" envDefault:"3"`
}

// Load parses Config from the process environment.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config from env: %w", err)
	}
	return cfg, nil
}
