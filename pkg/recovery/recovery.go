// Package recovery implements the Recovery Service (C9): a priority-sorted
// rule table that turns container and session failures into recovery
// actions, processed on the same 30 second ticker shape the monitoring
// collector uses.
package recovery

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cloudide/orchestrator/pkg/errs"
	"github.com/cloudide/orchestrator/pkg/log"
	"github.com/cloudide/orchestrator/pkg/types"
	"github.com/cloudide/orchestrator/pkg/vcs"
)

const (
	tickInterval       = 30 * time.Second
	maxConcurrentRuns  = 3
	containerAutoRunAt = 7
	sessionAutoRunAt   = 8
)

// Strategy names.
const (
	StrategyRestart  = "restart"
	StrategyRecreate = "recreate"
	StrategyCleanup  = "cleanup"
	StrategyFailover = "failover"
	StrategyManual   = "manual"
)

// Status is a RecoveryAction's lifecycle state.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Rule maps an error kind to a recovery strategy. Priority breaks ties when
// more than one rule could apply and governs whether a failure is acted on
// immediately or left for the next tick.
type Rule struct {
	Priority    int           `yaml:"priority"`
	Kind        errs.Kind     `yaml:"kind"`
	Strategy    string        `yaml:"strategy"`
	MaxAttempts int           `yaml:"maxAttempts"`
	Delay       time.Duration `yaml:"delay"`
	// Disabled, not Enabled: a YAML override that omits the field must
	// still leave the rule active, and yaml.v3 zero-values a missing bool
	// to false either way.
	Disabled bool `yaml:"disabled"`
}

// DefaultRules is the built-in, priority-sorted rule table.
func DefaultRules() []Rule {
	return []Rule{
		{Priority: 10, Kind: errs.SecurityViolation, Strategy: StrategyManual, MaxAttempts: 1, Delay: 0},
		{Priority: 9, Kind: errs.DockerConnectionFailed, Strategy: StrategyCleanup, MaxAttempts: 1, Delay: time.Second},
		{Priority: 8, Kind: errs.ContainerCreationFailed, Strategy: StrategyRecreate, MaxAttempts: 3, Delay: 5 * time.Second},
		{Priority: 8, Kind: errs.SystemOverloaded, Strategy: StrategyCleanup, MaxAttempts: 1, Delay: 5 * time.Second},
		{Priority: 7, Kind: errs.ContainerStartFailed, Strategy: StrategyRestart, MaxAttempts: 2, Delay: 3 * time.Second},
		{Priority: 6, Kind: errs.ResourceLimitExceeded, Strategy: StrategyCleanup, MaxAttempts: 1, Delay: 2 * time.Second},
		{Priority: 5, Kind: errs.GitCloneFailed, Strategy: StrategyRecreate, MaxAttempts: 2, Delay: 3 * time.Second},
		{Priority: 5, Kind: errs.GitWorktreeCreationFailed, Strategy: StrategyRecreate, MaxAttempts: 2, Delay: 3 * time.Second},
		{Priority: 5, Kind: errs.GitOperationFailed, Strategy: StrategyRecreate, MaxAttempts: 2, Delay: 3 * time.Second},
	}
}

func sortRules(rules []Rule) {
	sort.SliceStable(rules, func(i, j int) bool { return rules[i].Priority > rules[j].Priority })
}

// Failure describes a container or session error the caller wants the
// Recovery Service to act on.
type Failure struct {
	Kind         errs.Kind
	Source       string // "container" or "session"
	TargetID     string // container id (restart/cleanup) or session's container name (recreate)
	UserID       int64
	RepositoryID int64
	Branch       string
	Permission   types.Permission
}

// Action is a single recovery attempt tracked by the service.
type Action struct {
	ID          string
	Failure     Failure
	Strategy    string
	MaxAttempts int
	Attempts    int
	Delay       time.Duration
	Status      Status
	CreatedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt time.Time
	LastError   string
}

// Runtime is the subset of pkg/runtime.DockerRuntime the Recovery Service
// depends on for restart/cleanup strategies.
type Runtime interface {
	RestartContainer(ctx context.Context, containerID string) error
	RemoveContainer(ctx context.Context, containerID string) error
}

// SessionManager is the subset of pkg/session.Manager the Recovery Service
// depends on for the recreate/cleanup strategies.
type SessionManager interface {
	CreateSession(ctx context.Context, userID, repositoryID int64, branch string, perm types.Permission, defaultCap int) (types.Session, error)
	StopSession(ctx context.Context, sessionID string, userID, repositoryID int64, branch string) error
}

// VCS is the subset of pkg/vcs.Provider the Recovery Service depends on for
// the cleanup strategy's worktree pruning.
type VCS interface {
	CleanupWorktrees(ctx context.Context, repoID int64) (vcs.Result, error)
}

// Service owns the rule table and the in-flight action map.
type Service struct {
	rules   []Rule
	runtime Runtime
	sessions SessionManager
	vcs     VCS

	mu       sync.Mutex
	actions  map[string]*Action
	nextID   int
	semaphore chan struct{}

	stopCh chan struct{}
}

// Config carries construction-time settings.
type Config struct {
	Rules []Rule // nil means DefaultRules()
}

// NewService builds a Service. Pass a non-nil Config.Rules (e.g. loaded
// from RECOVERY_RULES_PATH via LoadRules) to override the default table.
func NewService(rt Runtime, sessions SessionManager, vcsProvider VCS, cfg Config) *Service {
	rules := cfg.Rules
	if rules == nil {
		rules = DefaultRules()
	}
	sortRules(rules)
	return &Service{
		rules:     rules,
		runtime:   rt,
		sessions:  sessions,
		vcs:       vcsProvider,
		actions:   make(map[string]*Action),
		semaphore: make(chan struct{}, maxConcurrentRuns),
		stopCh:    make(chan struct{}),
	}
}

func (s *Service) matchRule(kind errs.Kind) (Rule, bool) {
	for _, r := range s.rules {
		if !r.Disabled && r.Kind == kind {
			return r, true
		}
	}
	return Rule{}, false
}

// HandleContainerFailure records a container-origin failure, creating a
// pending Action. Rules at priority >= 7 run immediately; others wait for
// the next processing tick.
func (s *Service) HandleContainerFailure(ctx context.Context, f Failure) (*Action, error) {
	f.Source = "container"
	return s.handleFailure(ctx, f, containerAutoRunAt)
}

// HandleSessionFailure records a session-origin failure, creating a pending
// Action. Rules at priority >= 8 run immediately.
func (s *Service) HandleSessionFailure(ctx context.Context, f Failure) (*Action, error) {
	f.Source = "session"
	return s.handleFailure(ctx, f, sessionAutoRunAt)
}

func (s *Service) handleFailure(ctx context.Context, f Failure, autoRunAt int) (*Action, error) {
	rule, ok := s.matchRule(f.Kind)
	if !ok {
		log.WithComponent("recovery").Warn().Str("kind", string(f.Kind)).Msg("no recovery rule matches failure kind")
		return nil, errs.New(errs.InternalError, fmt.Sprintf("no recovery rule for error kind %s", f.Kind))
	}

	now := time.Now()
	s.mu.Lock()
	s.nextID++
	action := &Action{
		ID:          fmt.Sprintf("recovery-%d", s.nextID),
		Failure:     f,
		Strategy:    rule.Strategy,
		MaxAttempts: rule.MaxAttempts,
		Delay:       rule.Delay,
		Status:      StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.actions[action.ID] = action
	s.mu.Unlock()

	log.WithComponent("recovery").Warn().
		Str("action_id", action.ID).
		Str("kind", string(f.Kind)).
		Str("strategy", rule.Strategy).
		Msg("recovery action recorded")

	if rule.Priority >= autoRunAt {
		go s.run(ctx, action)
	}
	return action, nil
}

// Start begins the 30 second processing tick, picking up any pending
// action the synchronous path didn't already run.
func (s *Service) Start(ctx context.Context) {
	ticker := time.NewTicker(tickInterval)
	go func() {
		for {
			select {
			case <-ticker.C:
				s.processPending(ctx)
			case <-s.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop halts the processing tick.
func (s *Service) Stop() {
	close(s.stopCh)
}

func (s *Service) processPending(ctx context.Context) {
	s.mu.Lock()
	var pending []*Action
	for _, a := range s.actions {
		if a.Status == StatusPending {
			pending = append(pending, a)
		}
	}
	s.mu.Unlock()

	for _, a := range pending {
		s.run(ctx, a)
	}
}

// run executes a against the concurrency semaphore, honoring its rule's
// delay before the attempt.
func (s *Service) run(ctx context.Context, a *Action) {
	select {
	case s.semaphore <- struct{}{}:
	default:
		return
	}
	defer func() { <-s.semaphore }()

	s.mu.Lock()
	if a.Status != StatusPending {
		s.mu.Unlock()
		return
	}
	a.Status = StatusInProgress
	a.Attempts++
	a.UpdatedAt = time.Now()
	attempts, maxAttempts, delay := a.Attempts, a.MaxAttempts, a.Delay
	s.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			s.mu.Lock()
			a.Status = StatusFailed
			a.LastError = ctx.Err().Error()
			a.UpdatedAt = time.Now()
			s.mu.Unlock()
			return
		}
	}

	err := s.executeRecoveryAction(ctx, a)

	s.mu.Lock()
	defer s.mu.Unlock()
	a.UpdatedAt = time.Now()
	if err == nil {
		a.Status = StatusCompleted
		a.CompletedAt = a.UpdatedAt
		return
	}
	a.LastError = err.Error()
	if a.Strategy == StrategyManual || attempts >= maxAttempts {
		a.Status = StatusFailed
		return
	}
	a.Status = StatusPending
}

func (s *Service) executeRecoveryAction(ctx context.Context, a *Action) error {
	f := a.Failure
	switch a.Strategy {
	case StrategyRestart:
		return s.runtime.RestartContainer(ctx, f.TargetID)

	case StrategyRecreate:
		_, err := s.sessions.CreateSession(ctx, f.UserID, f.RepositoryID, f.Branch, f.Permission, 0)
		return err

	case StrategyCleanup:
		if err := s.sessions.StopSession(ctx, f.TargetID, f.UserID, f.RepositoryID, f.Branch); err != nil {
			if err := s.runtime.RemoveContainer(ctx, f.TargetID); err != nil {
				return err
			}
		}
		if s.vcs != nil && f.RepositoryID != 0 {
			if _, err := s.vcs.CleanupWorktrees(ctx, f.RepositoryID); err != nil {
				return err
			}
		}
		return nil

	case StrategyFailover:
		log.WithComponent("recovery").Info().Str("action_id", a.ID).Msg("failover strategy has no backup target, marking complete")
		return nil

	case StrategyManual:
		return errs.New(errs.InternalError, "manual recovery action awaiting operator")

	default:
		return errs.New(errs.InternalError, "unknown recovery strategy "+a.Strategy)
	}
}

// Retry resets a manual action back to pending so the next tick (or an
// operator-triggered call) re-attempts it. Only manual actions that have
// not completed can be retried this way.
func (s *Service) Retry(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.actions[id]
	if !ok {
		return errs.New(errs.NotFound, "recovery action not found: "+id)
	}
	if a.Status == StatusCompleted {
		return errs.New(errs.ValidationFailed, "recovery action already completed")
	}
	if a.Strategy != StrategyManual {
		return errs.New(errs.ValidationFailed, "only manual recovery actions can be retried")
	}
	a.Status = StatusPending
	a.Attempts = 0
	a.UpdatedAt = time.Now()
	return nil
}

// Get returns a snapshot of a tracked action.
func (s *Service) Get(id string) (Action, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.actions[id]
	if !ok {
		return Action{}, false
	}
	return *a, true
}

// List returns a snapshot of every tracked action.
func (s *Service) List() []Action {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Action, 0, len(s.actions))
	for _, a := range s.actions {
		out = append(out, *a)
	}
	return out
}
