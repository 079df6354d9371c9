package security

import (
	"testing"
	"time"

	"github.com/cloudide/orchestrator/pkg/types"
)

func TestRecordViolationAssignsUniqueIDs(t *testing.T) {
	log := NewViolationLog(0)
	v1, _ := log.RecordViolation(1, "sess1", "command", "rm -rf /", "shell", true, types.SeverityCritical, nil)
	v2, _ := log.RecordViolation(1, "sess1", "command", "sudo su", "shell", true, types.SeverityHigh, nil)

	if v1.ID == "" || v2.ID == "" || v1.ID == v2.ID {
		t.Errorf("expected distinct non-empty ids, got %q and %q", v1.ID, v2.ID)
	}
	if len(log.Snapshot()) != 2 {
		t.Errorf("expected 2 recorded violations, got %d", len(log.Snapshot()))
	}
}

func TestRecordViolationEscalatesAtThreshold(t *testing.T) {
	log := NewViolationLog(2)
	_, escalate := log.RecordViolation(9, "s", "t", "a", "r", true, types.SeverityLow, nil)
	if escalate {
		t.Error("should not escalate on first violation")
	}
	_, escalate = log.RecordViolation(9, "s", "t", "a", "r", true, types.SeverityLow, nil)
	if !escalate {
		t.Error("expected escalation once maxViolationsPerUser is crossed")
	}
}

func TestClearOldDropsOnlyOlderEntries(t *testing.T) {
	log := NewViolationLog(0)
	log.RecordViolation(1, "s", "t", "a", "r", true, types.SeverityLow, nil)
	log.mu.Lock()
	log.violations[0].Timestamp = time.Now().AddDate(0, 0, -10)
	log.mu.Unlock()

	log.RecordViolation(1, "s", "t", "a", "r", true, types.SeverityLow, nil)

	removed := log.ClearOld(5)
	if removed != 1 {
		t.Errorf("expected 1 entry removed, got %d", removed)
	}
	if len(log.Snapshot()) != 1 {
		t.Errorf("expected 1 entry to remain, got %d", len(log.Snapshot()))
	}
}
