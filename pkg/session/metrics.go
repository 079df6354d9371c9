package session

import (
	"context"
	"sync"
	"time"

	"github.com/cloudide/orchestrator/pkg/errs"
	"github.com/cloudide/orchestrator/pkg/types"
)

const slowOperationThreshold = 5 * time.Second

// Metrics implements pkg/metrics.Source by caching counters the Manager
// updates as it performs operations, plus a periodically refreshed
// container snapshot. Source's methods take no context, so anything that
// needs a live Docker call (container counts, resource usage) is
// refreshed on a ticker rather than computed on read.
type Metrics struct {
	mu sync.Mutex

	containerTotal, containerRunning, containerStopped, containerFailed int
	sessionsEverCreated                                                 int
	totalSessionDuration                                                time.Duration
	completedSessions                                                   int
	errorTotal                                                          int
	errorByKind                                                         map[string]int
	responseTotalMillis                                                 float64
	responseCount                                                       int
	slowOperations                                                      int
	avgMemoryPercent, avgCPUPercent                                     float64
}

func newMetrics() *Metrics {
	return &Metrics{errorByKind: make(map[string]int)}
}

func (m *Metrics) recordSessionCreated() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessionsEverCreated++
}

func (m *Metrics) recordSessionCompleted(duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completedSessions++
	m.totalSessionDuration += duration
}

func (m *Metrics) recordError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorTotal++
	kind := "unknown"
	if e, ok := err.(*errs.Error); ok {
		kind = string(e.Kind)
	}
	m.errorByKind[kind]++
}

func (m *Metrics) recordOperation(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responseTotalMillis += float64(d.Milliseconds())
	m.responseCount++
	if d > slowOperationThreshold {
		m.slowOperations++
	}
}

// Refresh recomputes the container/resource snapshot from the runtime.
// Manager.RefreshMetrics calls it; cmd/orchestrator runs that on its own
// 30-second ticker.
func (m *Metrics) Refresh(ctx context.Context, rt Runtime) error {
	sessions, err := rt.ListManagedSessions(ctx)
	if err != nil {
		return err
	}

	total, running, stopped := 0, 0, 0
	var memSum, cpuSum float64
	var sampled int
	for _, s := range sessions {
		total++
		switch s.Status {
		case types.SessionRunning:
			running++
		case types.SessionStopped:
			stopped++
		}
		if stats, err := rt.GetContainerStats(ctx, s.ContainerID); err == nil {
			sampled++
			cpuSum += stats.CPUPercent
			if stats.MemoryLimit > 0 {
				memSum += float64(stats.MemoryUsage) / float64(stats.MemoryLimit) * 100
			}
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.containerTotal, m.containerRunning, m.containerStopped = total, running, stopped
	if sampled > 0 {
		m.avgMemoryPercent = memSum / float64(sampled)
		m.avgCPUPercent = cpuSum / float64(sampled)
	}
	return nil
}

func (m *Metrics) ContainerCounts() (total, running, stopped, failed int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.containerTotal, m.containerRunning, m.containerStopped, m.containerFailed
}

func (m *Metrics) SessionCounts() (active, total int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.containerRunning, m.sessionsEverCreated
}

func (m *Metrics) AvgSessionDuration() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.completedSessions == 0 {
		return 0
	}
	return m.totalSessionDuration / time.Duration(m.completedSessions)
}

func (m *Metrics) ErrorCounts() (total int, byKind map[string]int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	snapshot := make(map[string]int, len(m.errorByKind))
	for k, v := range m.errorByKind {
		snapshot[k] = v
	}
	return m.errorTotal, snapshot
}

func (m *Metrics) AvgResponseMillis() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.responseCount == 0 {
		return 0
	}
	return m.responseTotalMillis / float64(m.responseCount)
}

func (m *Metrics) SlowQueryCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.slowOperations
}

func (m *Metrics) ResourceUsagePercent() (memory, cpu float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.avgMemoryPercent, m.avgCPUPercent
}
