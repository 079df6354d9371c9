package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/cloudide/orchestrator/pkg/api"
	"github.com/cloudide/orchestrator/pkg/config"
	"github.com/cloudide/orchestrator/pkg/events"
	"github.com/cloudide/orchestrator/pkg/log"
	"github.com/cloudide/orchestrator/pkg/metrics"
	"github.com/cloudide/orchestrator/pkg/proxy"
	"github.com/cloudide/orchestrator/pkg/recovery"
	"github.com/cloudide/orchestrator/pkg/runtime"
	"github.com/cloudide/orchestrator/pkg/security"
	"github.com/cloudide/orchestrator/pkg/session"
	"github.com/cloudide/orchestrator/pkg/storage"
	"github.com/cloudide/orchestrator/pkg/vcs"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the orchestrator: API, runtime, recovery and monitoring loops",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	level := log.InfoLevel
	if cfg.LogLevel != "" {
		level = log.Level(cfg.LogLevel)
	}
	log.Init(log.Config{Level: level, JSONOutput: cfg.LogJSON})

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

	registrar := proxy.NewRegistrar(proxy.Config{
		Domain:           cfg.Domain,
		EnableTLS:        cfg.EnableTLS,
		DashboardEnabled: cfg.TraefikDashboard,
		NetworkName:      runtime.IsolatedNetworkName,
	})

	dockerRuntime, err := runtime.NewDockerRuntime(runtime.DockerRuntimeConfig{
		Image:          cfg.CodeServerImage,
		NetworkName:    cfg.DockerNetworkName,
		MaxContainers:  cfg.MaxContainers,
		SessionTimeout: time.Duration(cfg.SessionTimeoutMinutes) * time.Minute,
		SocketPath:     cfg.DockerSocketPath,
	}, registrar)
	if err != nil {
		return fmt.Errorf("initializing container runtime: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := dockerRuntime.EnsureNetworks(ctx); err != nil {
		return fmt.Errorf("provisioning isolated network: %w", err)
	}
	dockerRuntime.StartCleanupLoop(ctx)
	defer dockerRuntime.Stop()

	var secretsManager *security.SecretsManager
	if cfg.MasterEncryptionPassphrase != "" {
		secretsManager, err = security.NewSecretsManagerFromPassphrase(cfg.MasterEncryptionPassphrase)
		if err != nil {
			return fmt.Errorf("initializing secrets manager: %w", err)
		}
	}

	if err := os.MkdirAll(cfg.GitBaseDir, 0o755); err != nil {
		return fmt.Errorf("creating git base dir: %w", err)
	}
	keyStore, err := storage.NewDeployKeyStore(cfg.GitBaseDir)
	if err != nil {
		return fmt.Errorf("opening deploy key store: %w", err)
	}
	defer keyStore.Close()

	vcsProvider := vcs.NewProvider(cfg.GitBaseDir, secretsManager, keyStore)

	limits := security.ProfileLimits{
		MaxMemory: cfg.DefaultMemoryLimit,
		MaxCPU:    cfg.DefaultCPULimit,
		MaxDisk:   cfg.MaxDiskPerContainer,
	}

	sessionManager := session.NewManager(dockerRuntime, vcsProvider, broker, session.Config{
		ExtensionsPath: cfg.ExtensionsPath,
		Limits:         limits,
	})

	rules, err := recovery.LoadRules(cfg.RecoveryRulesPath)
	if err != nil {
		return fmt.Errorf("loading recovery rules: %w", err)
	}
	recoveryService := recovery.NewService(dockerRuntime, sessionManager, vcsProvider, recovery.Config{Rules: rules})
	recoveryService.Start(ctx)
	defer recoveryService.Stop()

	collector := metrics.NewCollector(sessionManager.Metrics())
	collector.Start()
	defer collector.Stop()

	go runMetricsRefreshLoop(ctx, sessionManager)

	apiServer := api.NewServer(sessionManager, recoveryService, collector, broker, api.Config{
		Addr:              cfg.HTTPAddr,
		DefaultSessionCap: cfg.DefaultUserSessionCap,
	})

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsServer := &http.Server{Addr: cfg.MetricsAddr, Handler: metricsMux}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithComponent("serve").Error().Err(err).Msg("metrics server stopped unexpectedly")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.WithComponent("serve").Info().Msg("shutdown signal received")
		sessionManager.Shutdown(context.Background())
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		_ = metricsServer.Shutdown(shutdownCtx)
		cancel()
	}()

	log.WithComponent("serve").Info().Str("addr", cfg.HTTPAddr).Msg("orchestrator API listening")
	return apiServer.Start(ctx)
}

func runMetricsRefreshLoop(ctx context.Context, sessionManager *session.Manager) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := sessionManager.RefreshMetrics(ctx); err != nil {
				log.WithComponent("serve").Warn().Err(err).Msg("refreshing session metrics failed")
			}
		case <-ctx.Done():
			return
		}
	}
}
