package compliance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/xela07ax/spaceai-compliance-monitor/internal/domain"
)

func TestAggregateRisk(t *testing.T) {
	compliant := domain.PolicyEvaluationResult{PolicyID: "p1", PolicyName: "ok", Compliant: true}
	violated := domain.PolicyEvaluationResult{PolicyID: "p2", PolicyName: "broken", Compliant: false}

	t.Run("clean phase is low risk", func(t *testing.T) {
		got := AggregateRisk([]domain.PolicyEvaluationResult{compliant}, domain.PlanPhase{Tools: []string{"text_generation"}})

		assert.Equal(t, domain.RiskLow, got.Level)
		assert.Zero(t, got.Score)
		assert.Empty(t, got.Factors)
	})

	t.Run("single violation stays in the low bucket", func(t *testing.T) {
		got := AggregateRisk([]domain.PolicyEvaluationResult{violated}, domain.PlanPhase{})

		assert.Equal(t, domain.RiskLow, got.Level)
		assert.InDelta(t, 0.3, got.Score, 1e-9)
		assert.Len(t, got.Factors, 1)
	})

	t.Run("violation plus high-risk tool is medium", func(t *testing.T) {
		got := AggregateRisk([]domain.PolicyEvaluationResult{violated}, domain.PlanPhase{Tools: []string{"external_api"}})

		assert.Equal(t, domain.RiskMedium, got.Level)
		assert.InDelta(t, 0.5, got.Score, 1e-9)
	})

	t.Run("two high-risk tools plus violation is high", func(t *testing.T) {
		got := AggregateRisk([]domain.PolicyEvaluationResult{violated}, domain.PlanPhase{Tools: []string{"file_system", "system_commands"}})

		assert.Equal(t, domain.RiskHigh, got.Level)
		assert.InDelta(t, 0.7, got.Score, 1e-9)
	})

	t.Run("stacked factors reach critical", func(t *testing.T) {
		got := AggregateRisk(
			[]domain.PolicyEvaluationResult{violated, violated},
			domain.PlanPhase{Tools: []string{"external_api", "file_system", "system_commands"}},
		)

		assert.Equal(t, domain.RiskCritical, got.Level)
		assert.InDelta(t, 1.2, got.Score, 1e-9)
	})

	t.Run("more than five tools adds a single complexity penalty", func(t *testing.T) {
		phase := domain.PlanPhase{Tools: []string{"a", "b", "c", "d", "e", "f"}}

		got := AggregateRisk(nil, phase)

		assert.Equal(t, domain.RiskLow, got.Level)
		assert.InDelta(t, 0.2, got.Score, 1e-9)
		assert.Len(t, got.Factors, 1)
		assert.Contains(t, got.Factors[0], "6 tools")
	})
}
