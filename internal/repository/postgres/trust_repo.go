package postgres

/*
Файл trust_repo.go — физическая сторона trust/session-бухгалтерии.
Монитор выгружает сюда метрики сессии (минимум один раз на закрытии,
опционально после каждой проверки), внешние системы доверия читают их
по ключу сессии.
*/

import (
	"context"
	"fmt"

	"github.com/xela07ax/spaceai-compliance-monitor/internal/domain"
)

// UpsertSessionMetrics — идемпотентная запись по ключу session_id:
// повторная выгрузка той же сессии просто перетирает агрегаты.
func (r *Repo) UpsertSessionMetrics(ctx context.Context, m domain.SessionMetrics) error {
	query := `
		INSERT INTO session_metrics
			(session_id, workflow_id, checks_performed, mean_compliance_score,
			 total_violations, intervention_success_ratio, drift_detected, computed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (session_id) DO UPDATE SET
			checks_performed = EXCLUDED.checks_performed,
			mean_compliance_score = EXCLUDED.mean_compliance_score,
			total_violations = EXCLUDED.total_violations,
			intervention_success_ratio = EXCLUDED.intervention_success_ratio,
			drift_detected = EXCLUDED.drift_detected,
			computed_at = EXCLUDED.computed_at`

	_, err := r.pool.Exec(ctx, query,
		m.SessionID, m.WorkflowID, m.ChecksPerformed, m.MeanComplianceScore,
		m.TotalViolations, m.InterventionSuccessRatio, m.DriftDetected, m.ComputedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: failed to upsert session metrics: %w", err)
	}
	return nil
}
