package compliance

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xela07ax/spaceai-compliance-monitor/internal/audit"
	"github.com/xela07ax/spaceai-compliance-monitor/internal/domain"
	"go.uber.org/zap"
)

type stubCatalog []domain.Policy

func (c stubCatalog) Policies() []domain.Policy { return c }

type recordSink struct {
	mu   sync.Mutex
	recs []audit.Record
}

func (s *recordSink) Log(rec audit.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs = append(s.recs, rec)
}

func (s *recordSink) actions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.recs))
	for _, r := range s.recs {
		out = append(out, r.Action)
	}
	return out
}

type trustRecorder struct {
	mu      sync.Mutex
	metrics []domain.SessionMetrics
}

func (t *trustRecorder) UpdateSessionMetrics(ctx context.Context, m domain.SessionMetrics) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.metrics = append(t.metrics, m)
	return nil
}

type managerFixture struct {
	manager *Manager
	pauses  *fakePauses
	sink    *recordSink
	trust   *trustRecorder
}

func newManagerFixture(t *testing.T, catalog stubCatalog) *managerFixture {
	t.Helper()
	logger := zap.NewNop()

	pauses := &fakePauses{}
	sink := &recordSink{}
	tr := &trustRecorder{}
	notifier := NewNotifier(logger)

	manager := NewManager(
		NewSessionStore(),
		catalog,
		NewEvaluator(nil, logger),
		NewInterventionExecutor(pauses, notifier, logger),
		notifier,
		tr,
		sink,
		NewMetrics(nil),
		logger,
	)
	return &managerFixture{manager: manager, pauses: pauses, sink: sink, trust: tr}
}

func testPlan(workflowID string) *domain.WorkflowPlan {
	return &domain.WorkflowPlan{
		ID:         "plan-" + workflowID,
		WorkflowID: workflowID,
		Goal:       "Synchronize ticket data",
		Phases: []domain.PlanPhase{
			{ID: "ph1", Title: "Synchronize ticket data", Tools: []string{"database"}},
			{ID: "ph2", Title: "Publish synchronized ticket data", Tools: []string{"database"}},
		},
	}
}

func TestManagerLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newManagerFixture(t, nil)
	plan := testPlan("wf-1")
	cctx := domain.CheckContext{AgentID: "agent-1", UserID: "user-1"}

	session, err := f.manager.StartMonitoring(ctx, plan, cctx, domain.MonitoringConfig{})
	require.NoError(t, err)
	assert.Equal(t, domain.SessionActive, session.State)
	assert.Equal(t, 2, session.TotalPhases)
	assert.Equal(t, DefaultCheckInterval, session.Config.CheckInterval)

	result, err := f.manager.PerformCheck(ctx, plan, plan.Phases[0], cctx)
	require.NoError(t, err)
	assert.True(t, result.Compliant)
	assert.Equal(t, 1.0, result.ComplianceScore)
	assert.Empty(t, result.Violations)

	status, err := f.manager.GetStatus("wf-1")
	require.NoError(t, err)
	assert.Equal(t, 1, status.Session.CurrentPhase)
	require.NotNil(t, status.LatestCheck)
	assert.Equal(t, result.ID, status.LatestCheck.ID)
	assert.Equal(t, 1, status.Metrics.ChecksPerformed)

	metrics, err := f.manager.StopMonitoring(ctx, "wf-1")
	require.NoError(t, err)
	assert.Equal(t, 1, metrics.ChecksPerformed)
	assert.Equal(t, 1.0, metrics.MeanComplianceScore)
	assert.Equal(t, 1.0, metrics.InterventionSuccessRatio)
	assert.False(t, metrics.DriftDetected)

	// Final metrics went to the trust loop exactly once
	assert.Len(t, f.trust.metrics, 1)

	// Audit trail covers the whole lifecycle
	assert.Equal(t, []string{
		audit.ActionMonitoringStarted,
		audit.ActionComplianceCheck,
		audit.ActionMonitoringStopped,
	}, f.sink.actions())

	_, err = f.manager.GetStatus("wf-1")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestManagerStartTwice(t *testing.T) {
	ctx := context.Background()
	f := newManagerFixture(t, nil)
	plan := testPlan("wf-1")

	_, err := f.manager.StartMonitoring(ctx, plan, domain.CheckContext{}, domain.MonitoringConfig{})
	require.NoError(t, err)

	_, err = f.manager.StartMonitoring(ctx, plan, domain.CheckContext{}, domain.MonitoringConfig{})
	assert.ErrorIs(t, err, ErrSessionActive)

	// The original session is untouched
	status, err := f.manager.GetStatus("wf-1")
	require.NoError(t, err)
	assert.Equal(t, domain.SessionActive, status.Session.State)
}

func TestManagerUnknownWorkflow(t *testing.T) {
	ctx := context.Background()
	f := newManagerFixture(t, nil)

	t.Run("check", func(t *testing.T) {
		plan := testPlan("ghost")
		_, err := f.manager.PerformCheck(ctx, plan, plan.Phases[0], domain.CheckContext{})
		assert.ErrorIs(t, err, ErrSessionNotFound)
	})

	t.Run("stop", func(t *testing.T) {
		_, err := f.manager.StopMonitoring(ctx, "ghost")
		assert.ErrorIs(t, err, ErrSessionNotFound)
		// Nothing was recorded for the unknown id
		assert.Empty(t, f.sink.actions())
		assert.Empty(t, f.trust.metrics)
	})

	t.Run("status", func(t *testing.T) {
		_, err := f.manager.GetStatus("ghost")
		assert.ErrorIs(t, err, ErrSessionNotFound)
	})
}

func TestManagerEmptyCatalog(t *testing.T) {
	ctx := context.Background()
	f := newManagerFixture(t, stubCatalog{})
	plan := testPlan("wf-1")

	_, err := f.manager.StartMonitoring(ctx, plan, domain.CheckContext{}, domain.MonitoringConfig{})
	require.NoError(t, err)

	result, err := f.manager.PerformCheck(ctx, plan, plan.Phases[0], domain.CheckContext{})
	require.NoError(t, err)

	assert.True(t, result.Compliant)
	assert.Equal(t, 1.0, result.ComplianceScore)
	assert.Empty(t, result.Evaluations)
	assert.Empty(t, result.Violations)
}

func TestManagerHighSeverityViolation(t *testing.T) {
	ctx := context.Background()

	// Operational policy applies everywhere; the negated condition fails with
	// confidence 0.85, which maps to high severity and pause_and_notify.
	catalog := stubCatalog{{
		ID:       "p1",
		Name:     "no-direct-api",
		Category: domain.CategoryOperational,
		Rules: []domain.PolicyRule{
			{ID: "r1", Name: "forbid-external-api", Condition: "never call external_api"},
		},
	}}
	f := newManagerFixture(t, catalog)

	plan := &domain.WorkflowPlan{
		ID:         "plan-1",
		WorkflowID: "wf-1",
		Goal:       "Synchronize ticket data",
		Phases:     []domain.PlanPhase{{ID: "ph1", Title: "Synchronize ticket data", Tools: []string{"external_api"}}},
	}

	_, err := f.manager.StartMonitoring(ctx, plan, domain.CheckContext{}, domain.MonitoringConfig{})
	require.NoError(t, err)

	result, err := f.manager.PerformCheck(ctx, plan, plan.Phases[0], domain.CheckContext{})
	require.NoError(t, err)

	assert.False(t, result.Compliant)
	require.Len(t, result.Violations, 1)

	v := result.Violations[0]
	assert.Equal(t, domain.ViolationPolicy, v.Type)
	assert.Equal(t, domain.SeverityHigh, v.Severity)
	assert.True(t, v.RequiresUserAction)
	assert.True(t, v.UserNotified)
	require.NotNil(t, v.Intervention)
	assert.Equal(t, domain.InterventionPauseAndNotify, v.Intervention.Type)

	// The workflow was actually paused
	assert.Equal(t, []string{"wf-1"}, f.pauses.calls)

	status, err := f.manager.GetStatus("wf-1")
	require.NoError(t, err)
	assert.Len(t, status.Session.Interventions, 1)
	assert.Len(t, status.Session.Violations, 1)
}

func TestManagerHistoryCaps(t *testing.T) {
	ctx := context.Background()

	// Every check produces exactly one violation to grow the intervention history.
	catalog := stubCatalog{{
		ID:       "p1",
		Name:     "always-broken",
		Category: domain.CategoryOperational,
		Rules: []domain.PolicyRule{
			{ID: "r1", Name: "forbid-db", Condition: "never touch database"},
		},
	}}
	f := newManagerFixture(t, catalog)

	plan := &domain.WorkflowPlan{
		ID:         "plan-1",
		WorkflowID: "wf-1",
		Goal:       "Synchronize ticket data",
		Phases:     []domain.PlanPhase{{ID: "ph1", Title: "Synchronize ticket data", Tools: []string{"database"}}},
	}

	_, err := f.manager.StartMonitoring(ctx, plan, domain.CheckContext{}, domain.MonitoringConfig{})
	require.NoError(t, err)

	const total = 120
	for i := 0; i < total; i++ {
		phase := domain.PlanPhase{
			ID:    fmt.Sprintf("ph-%d", i),
			Title: "Synchronize ticket data",
			Tools: []string{"database"},
		}
		_, err := f.manager.PerformCheck(ctx, plan, phase, domain.CheckContext{})
		require.NoError(t, err)
	}

	status, err := f.manager.GetStatus("wf-1")
	require.NoError(t, err)

	// Checks: capped at 50, newest first
	require.Len(t, status.Session.Checks, 50)
	assert.Equal(t, fmt.Sprintf("ph-%d", total-1), status.Session.Checks[0].PhaseID)
	assert.Equal(t, fmt.Sprintf("ph-%d", total-50), status.Session.Checks[49].PhaseID)

	// Interventions: capped at 100, oldest evicted first
	assert.Len(t, status.Session.Interventions, 100)

	// The violation log itself is not truncated
	assert.Len(t, status.Session.Violations, total)
}

func TestManagerStats(t *testing.T) {
	ctx := context.Background()
	f := newManagerFixture(t, nil)

	for _, id := range []string{"wf-1", "wf-2"} {
		plan := testPlan(id)
		_, err := f.manager.StartMonitoring(ctx, plan, domain.CheckContext{}, domain.MonitoringConfig{})
		require.NoError(t, err)
		_, err = f.manager.PerformCheck(ctx, plan, plan.Phases[0], domain.CheckContext{})
		require.NoError(t, err)
	}

	stats := f.manager.Stats()
	assert.Equal(t, 2, stats.ActiveSessions)
	assert.Zero(t, stats.TotalViolations)
	assert.Equal(t, 1.0, stats.MeanScore)
}

func TestManagerSweep(t *testing.T) {
	ctx := context.Background()
	f := newManagerFixture(t, nil)
	plan := testPlan("wf-1")

	_, err := f.manager.StartMonitoring(ctx, plan, domain.CheckContext{}, domain.MonitoringConfig{
		RealTimeEnabled: true,
		CheckInterval:   time.Second,
	})
	require.NoError(t, err)

	t.Run("due session gets a tick", func(t *testing.T) {
		f.manager.sweep(time.Now().Add(2 * time.Second))

		status, err := f.manager.GetStatus("wf-1")
		require.NoError(t, err)
		assert.False(t, status.Session.LastCheckAt.IsZero())
	})

	t.Run("not yet due session is skipped", func(t *testing.T) {
		before, err := f.manager.GetStatus("wf-1")
		require.NoError(t, err)

		f.manager.sweep(time.Now())

		after, err := f.manager.GetStatus("wf-1")
		require.NoError(t, err)
		assert.Equal(t, before.Session.LastCheckAt, after.Session.LastCheckAt)
	})

	t.Run("disabled real-time loop never ticks", func(t *testing.T) {
		plan2 := testPlan("wf-2")
		_, err := f.manager.StartMonitoring(ctx, plan2, domain.CheckContext{}, domain.MonitoringConfig{RealTimeEnabled: false})
		require.NoError(t, err)

		f.manager.sweep(time.Now().Add(time.Hour))

		status, err := f.manager.GetStatus("wf-2")
		require.NoError(t, err)
		assert.True(t, status.Session.LastCheckAt.IsZero())
	})
}
