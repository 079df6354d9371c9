package security

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cloudide/orchestrator/pkg/types"
)

// ViolationLog is the append-only, age-pruned record of SecurityViolations.
// No other package in this module constructs or reads one. Mutated only by
// RecordViolation and ClearOld; readers snapshot
// under RLock, matching the ordering guarantee in §5.
type ViolationLog struct {
	mu         sync.RWMutex
	violations []types.SecurityViolation
	byUser     map[int64]int

	// MaxPerUser, when non-zero, is reported via escalation rather than
	// enforced — the engine observes the threshold crossing but does not
	// itself block further actions.
	MaxPerUser int
}

// NewViolationLog creates an empty violation log.
func NewViolationLog(maxPerUser int) *ViolationLog {
	return &ViolationLog{
		byUser:     make(map[int64]int),
		MaxPerUser: maxPerUser,
	}
}

// RecordViolation appends a violation with a unique id and returns it
// along with whether this record crossed MaxPerUser for its user.
func (v *ViolationLog) RecordViolation(userID int64, sessionID, violationType, action, resource string, blocked bool, severity types.ViolationSeverity, metadata map[string]string) (types.SecurityViolation, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	violation := types.SecurityViolation{
		ID:        uuid.NewString(),
		Type:      violationType,
		UserID:    userID,
		SessionID: sessionID,
		Timestamp: time.Now(),
		Action:    action,
		Resource:  resource,
		Blocked:   blocked,
		Severity:  severity,
		Metadata:  metadata,
	}
	v.violations = append(v.violations, violation)
	v.byUser[userID]++

	escalate := v.MaxPerUser > 0 && v.byUser[userID] == v.MaxPerUser
	return violation, escalate
}

// Snapshot returns a copy of the current violation list.
func (v *ViolationLog) Snapshot() []types.SecurityViolation {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make([]types.SecurityViolation, len(v.violations))
	copy(out, v.violations)
	return out
}

// ClearOld drops every entry older than now-days and returns the count
// removed.
func (v *ViolationLog) ClearOld(days int) int {
	v.mu.Lock()
	defer v.mu.Unlock()

	cutoff := time.Now().AddDate(0, 0, -days)
	kept := v.violations[:0]
	removed := 0
	for _, violation := range v.violations {
		if violation.Timestamp.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, violation)
	}
	v.violations = kept
	return removed
}
