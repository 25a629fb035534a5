package compliance

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xela07ax/spaceai-compliance-monitor/internal/domain"
	"go.uber.org/zap"
)

type fakePauses struct {
	calls []string
	err   error
}

func (f *fakePauses) Pause(ctx context.Context, workflowID, reason string) error {
	f.calls = append(f.calls, workflowID)
	return f.err
}

func TestSelectStrategy(t *testing.T) {
	cases := []struct {
		severity domain.Severity
		want     domain.InterventionType
	}{
		{domain.SeverityCritical, domain.InterventionImmediatePause},
		{domain.SeverityHigh, domain.InterventionPauseAndNotify},
		{domain.SeverityMedium, domain.InterventionNotifyAndMonitor},
		{domain.SeverityLow, domain.InterventionLogAndContinue},
	}
	for _, tc := range cases {
		t.Run(string(tc.severity), func(t *testing.T) {
			assert.Equal(t, tc.want, SelectStrategy(tc.severity))
		})
	}
}

func TestInterventionExecutor(t *testing.T) {
	logger := zap.NewNop()

	newViolation := func(sev domain.Severity) *domain.ComplianceViolation {
		return &domain.ComplianceViolation{
			ID:          "v1",
			Type:        domain.ViolationPolicy,
			Severity:    sev,
			Description: "policy broken",
		}
	}

	t.Run("high severity pauses and notifies", func(t *testing.T) {
		pauses := &fakePauses{}
		notifier := NewNotifier(logger)

		var notified []domain.ComplianceViolation
		notifier.SubscribeViolation(func(v domain.ComplianceViolation) {
			notified = append(notified, v)
		})

		x := NewInterventionExecutor(pauses, notifier, logger)
		v := newViolation(domain.SeverityHigh)
		iv := x.Execute(context.Background(), "wf-1", v)

		assert.Equal(t, domain.InterventionPauseAndNotify, iv.Type)
		assert.True(t, iv.Success)
		assert.Equal(t, []string{"wf-1"}, pauses.calls)
		assert.True(t, v.UserNotified)
		require.NotNil(t, v.Intervention)
		assert.Equal(t, iv.ID, v.Intervention.ID)
		assert.Len(t, notified, 1)
	})

	t.Run("low severity only logs", func(t *testing.T) {
		pauses := &fakePauses{}
		notifier := NewNotifier(logger)

		x := NewInterventionExecutor(pauses, notifier, logger)
		v := newViolation(domain.SeverityLow)
		iv := x.Execute(context.Background(), "wf-1", v)

		assert.Equal(t, domain.InterventionLogAndContinue, iv.Type)
		assert.Empty(t, pauses.calls)
		assert.False(t, v.UserNotified)
		require.NotNil(t, v.Intervention)
	})

	t.Run("medium severity notifies without pausing", func(t *testing.T) {
		pauses := &fakePauses{}
		notifier := NewNotifier(logger)

		x := NewInterventionExecutor(pauses, notifier, logger)
		v := newViolation(domain.SeverityMedium)
		iv := x.Execute(context.Background(), "wf-1", v)

		assert.Equal(t, domain.InterventionNotifyAndMonitor, iv.Type)
		assert.Empty(t, pauses.calls)
		assert.True(t, v.UserNotified)
	})

	t.Run("pause failure does not fail the intervention", func(t *testing.T) {
		pauses := &fakePauses{err: errors.New("redis down")}
		notifier := NewNotifier(logger)

		x := NewInterventionExecutor(pauses, notifier, logger)
		v := newViolation(domain.SeverityCritical)
		iv := x.Execute(context.Background(), "wf-1", v)

		assert.True(t, iv.Success)
		assert.Equal(t, domain.InterventionImmediatePause, iv.Type)
	})
}

func TestNotifier(t *testing.T) {
	logger := zap.NewNop()

	t.Run("subscribers run in registration order", func(t *testing.T) {
		n := NewNotifier(logger)

		var order []int
		n.SubscribeViolation(func(domain.ComplianceViolation) { order = append(order, 1) })
		n.SubscribeViolation(func(domain.ComplianceViolation) { order = append(order, 2) })
		n.SubscribeViolation(func(domain.ComplianceViolation) { order = append(order, 3) })

		n.NotifyViolation(domain.ComplianceViolation{ID: "v1"})

		assert.Equal(t, []int{1, 2, 3}, order)
	})

	t.Run("panicking subscriber does not block the rest", func(t *testing.T) {
		n := NewNotifier(logger)

		var reached bool
		n.SubscribeIntervention(func(domain.ComplianceIntervention) { panic("bad subscriber") })
		n.SubscribeIntervention(func(domain.ComplianceIntervention) { reached = true })

		assert.NotPanics(t, func() {
			n.NotifyIntervention(domain.ComplianceIntervention{ID: "iv1"})
		})
		assert.True(t, reached)
	})
}
