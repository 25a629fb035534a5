package domain

import "time"

// RuleEvaluationResult — эфемерный результат оценки одного правила.
type RuleEvaluationResult struct {
	RuleID      string  `json:"rule_id"`
	Passed      bool    `json:"passed"`
	Confidence  float64 `json:"confidence"` // Всегда в [0,1]
	Explanation string  `json:"explanation"`
}

// PolicyEvaluationResult — агрегат по одной политике.
// Политика соблюдена только если прошли ВСЕ её правила (fail-closed AND);
// уверенность — среднее арифметическое по правилам.
type PolicyEvaluationResult struct {
	PolicyID    string                 `json:"policy_id"`
	PolicyName  string                 `json:"policy_name"`
	Compliant   bool                   `json:"compliant"`
	Confidence  float64                `json:"confidence"`
	Explanation string                 `json:"explanation"`
	Rules       []RuleEvaluationResult `json:"rules"`
}

// RiskLevel — качественная оценка риска этапа.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// RiskAssessment — результат работы агрегатора риска.
type RiskAssessment struct {
	Level   RiskLevel `json:"level"`
	Score   float64   `json:"score"`
	Factors []string  `json:"factors"` // По одной человекочитаемой строке на сработавшее условие
}

// DriftResult — результат сравнения текущего этапа с исходной целью.
type DriftResult struct {
	Detected    bool    `json:"detected"`
	Score       float64 `json:"score"` // 1 - alignment, в [0,1]
	Explanation string  `json:"explanation"`
}

// ComplianceCheckResult — снимок одной проверки на момент времени.
// Добавляется в ограниченную историю сессии (новые — в начало).
type ComplianceCheckResult struct {
	ID              string                     `json:"id"`
	WorkflowID      string                     `json:"workflow_id"`
	PhaseID         string                     `json:"phase_id"`
	Compliant       bool                       `json:"compliant"`
	ComplianceScore float64                    `json:"compliance_score"` // В [0,1]
	Confidence      float64                    `json:"confidence"`
	Evaluations     []PolicyEvaluationResult   `json:"evaluations"`
	Risk            RiskAssessment             `json:"risk"`
	Drift           DriftResult                `json:"drift"`
	Violations      []ComplianceViolation      `json:"violations"`
	Recommendations []ComplianceRecommendation `json:"recommendations"`
	UserSummary     string                     `json:"user_summary"`
	CheckedAt       time.Time                  `json:"checked_at"`
}

// SessionMetrics — агрегированные метрики сессии. Считаются на стопе
// (и опционально после каждой проверки) и уходят в trust-контур.
type SessionMetrics struct {
	SessionID                string    `json:"session_id"`
	WorkflowID               string    `json:"workflow_id"`
	ChecksPerformed          int       `json:"checks_performed"`
	MeanComplianceScore      float64   `json:"mean_compliance_score"`
	TotalViolations          int       `json:"total_violations"`
	InterventionSuccessRatio float64   `json:"intervention_success_ratio"`
	DriftDetected            bool      `json:"drift_detected"`
	ComputedAt               time.Time `json:"computed_at"`
}
