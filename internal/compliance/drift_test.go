package compliance

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectDrift(t *testing.T) {
	const goal = "Send quarterly report to finance team"

	t.Run("aligned phase stays below threshold", func(t *testing.T) {
		got := DetectDrift(goal, "Send quarterly report draft to finance team")

		assert.False(t, got.Detected)
		assert.InDelta(t, 0.0, got.Score, 1e-9)
		assert.Contains(t, got.Explanation, "aligned")
	})

	t.Run("unrelated phase drifts completely", func(t *testing.T) {
		got := DetectDrift(goal, "Archive old invoices")

		assert.True(t, got.Detected)
		assert.InDelta(t, 1.0, got.Score, 1e-9)
	})

	t.Run("partial overlap above threshold is flagged", func(t *testing.T) {
		// 3 of 5 goal keywords survive: drift 0.40 > 0.30
		got := DetectDrift(goal, "Compile quarterly finance report")

		assert.True(t, got.Detected)
		assert.InDelta(t, 0.4, got.Score, 1e-9)
	})

	t.Run("comparison ignores case", func(t *testing.T) {
		lower := DetectDrift(goal, "send quarterly report draft to finance team")
		upper := DetectDrift(goal, "SEND QUARTERLY REPORT DRAFT TO FINANCE TEAM")

		assert.Equal(t, lower.Score, upper.Score)
		assert.Equal(t, lower.Detected, upper.Detected)
	})

	t.Run("deterministic for identical inputs", func(t *testing.T) {
		a := DetectDrift(goal, "Archive old invoices")
		b := DetectDrift(goal, "Archive old invoices")

		assert.Equal(t, a, b)
	})

	t.Run("goal without keywords counts as full drift", func(t *testing.T) {
		got := DetectDrift("do it", "Archive old invoices")

		assert.True(t, got.Detected)
		assert.InDelta(t, 1.0, got.Score, 1e-9)
	})
}
