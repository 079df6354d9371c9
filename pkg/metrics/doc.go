/*
Package metrics implements C3 Monitoring: a 30s-tick internal ring buffer
of system snapshots feeding alert evaluation and the /health rollup, plus
a parallel Prometheus exposition of the same numbers for external
scraping.

# Two views, one source of truth

Collector.tick samples a Source (the Metrics value returned by pkg/session's
Manager.Metrics()),
appends a Snapshot to a 100-entry ring, evaluates the alert rule table
against it respecting each rule's cooldown, and mirrors the same values
into the package's Prometheus gauges/counters. The ring — not the
Prometheus variables — is authoritative for Collector.Rollup() and the
active-alerts list; Prometheus is a secondary view for operators who
already scrape this process.

# Health vs readiness vs liveness

HealthHandler reports Collector.Rollup() once wired via SetRollupSource
(healthy/warning/critical, per the alert rules and resource thresholds).
ReadyHandler checks that a fixed set of critical components (docker,
proxy, api) have reported in via RegisterComponent/UpdateComponent.
LivenessHandler always returns 200 while the process is running.

# Usage

	collector := metrics.NewCollector(sessionManager.Metrics())
	collector.Start()
	metrics.SetRollupSource(collector.Rollup)
	metrics.RegisterComponent("docker", true, "")
	...
	http.Handle("/metrics", promhttp.Handler())
*/
package metrics
