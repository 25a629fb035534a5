package compliance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xela07ax/spaceai-compliance-monitor/internal/domain"
)

func TestClassify(t *testing.T) {
	phase := domain.PlanPhase{ID: "ph1", Title: "Collect invoices", Tools: []string{"database"}}
	noDrift := domain.DriftResult{Detected: false, Score: 0.1}

	t.Run("fully compliant check", func(t *testing.T) {
		evals := []domain.PolicyEvaluationResult{
			{PolicyID: "p1", PolicyName: "ok", Compliant: true, Confidence: 0.9},
		}

		got := Classify(evals, noDrift, phase)

		assert.True(t, got.Compliant)
		assert.Equal(t, 1.0, got.Score)
		assert.InDelta(t, 0.9, got.Confidence, 1e-9)
		assert.Empty(t, got.Violations)
		assert.Empty(t, got.Recommendations)
	})

	t.Run("empty evaluation set counts as full compliance", func(t *testing.T) {
		got := Classify(nil, noDrift, phase)

		assert.True(t, got.Compliant)
		assert.Equal(t, 1.0, got.Score)
		assert.Equal(t, 1.0, got.Confidence)
	})

	t.Run("violated policy produces violation and recommendation", func(t *testing.T) {
		evals := []domain.PolicyEvaluationResult{
			{PolicyID: "p1", PolicyName: "ok", Compliant: true, Confidence: 0.9},
			{PolicyID: "p2", PolicyName: "broken", Compliant: false, Confidence: 0.85},
		}

		got := Classify(evals, noDrift, phase)

		require.Len(t, got.Violations, 1)
		require.Len(t, got.Recommendations, 1)

		v := got.Violations[0]
		assert.Equal(t, domain.ViolationPolicy, v.Type)
		assert.Equal(t, domain.SeverityHigh, v.Severity) // confidence 0.85 > 0.8
		assert.True(t, v.RequiresUserAction)
		assert.Equal(t, "ph1", v.Context.PhaseID)

		// Four-part user explanation is always fully populated
		assert.NotEmpty(t, v.Explanation.WhatHappened)
		assert.NotEmpty(t, v.Explanation.WhyItMatters)
		assert.NotEmpty(t, v.Explanation.WhatSystemDid)
		assert.NotEmpty(t, v.Explanation.WhatUserCanDo)

		rec := got.Recommendations[0]
		assert.Equal(t, v.ID, rec.ViolationID)
		assert.Equal(t, v.Severity, rec.Priority)

		// Ratio 0.5 minus high penalty 0.20
		assert.False(t, got.Compliant)
		assert.InDelta(t, 0.3, got.Score, 1e-9)
	})

	t.Run("severity follows evaluator confidence", func(t *testing.T) {
		cases := []struct {
			confidence float64
			want       domain.Severity
		}{
			{0.85, domain.SeverityHigh},
			{0.7, domain.SeverityMedium},
			{0.5, domain.SeverityLow},
		}
		for _, tc := range cases {
			evals := []domain.PolicyEvaluationResult{
				{PolicyID: "p", PolicyName: "p", Compliant: false, Confidence: tc.confidence},
			}
			got := Classify(evals, noDrift, phase)
			require.Len(t, got.Violations, 1)
			assert.Equal(t, tc.want, got.Violations[0].Severity)
		}
	})

	t.Run("detected drift yields plan_drift violation", func(t *testing.T) {
		drift := domain.DriftResult{Detected: true, Score: 0.8, Explanation: "way off"}

		got := Classify(nil, drift, phase)

		require.Len(t, got.Violations, 1)
		assert.Equal(t, domain.ViolationPlanDrift, got.Violations[0].Type)
		assert.Equal(t, domain.SeverityHigh, got.Violations[0].Severity) // score > 0.7
		assert.False(t, got.Compliant)
	})

	t.Run("moderate drift is medium severity", func(t *testing.T) {
		drift := domain.DriftResult{Detected: true, Score: 0.5}

		got := Classify(nil, drift, phase)

		require.Len(t, got.Violations, 1)
		assert.Equal(t, domain.SeverityMedium, got.Violations[0].Severity)
	})

	t.Run("score never leaves the unit interval", func(t *testing.T) {
		evals := []domain.PolicyEvaluationResult{
			{PolicyID: "p1", PolicyName: "a", Compliant: false, Confidence: 0.9},
			{PolicyID: "p2", PolicyName: "b", Compliant: false, Confidence: 0.9},
			{PolicyID: "p3", PolicyName: "c", Compliant: false, Confidence: 0.9},
		}
		drift := domain.DriftResult{Detected: true, Score: 0.9}

		got := Classify(evals, drift, phase)

		assert.Equal(t, 0.0, got.Score)
	})
}
