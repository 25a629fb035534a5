package domain

import "time"

// ViolationType классифицирует источник нарушения.
type ViolationType string

const (
	ViolationPolicy          ViolationType = "policy_violation"
	ViolationPlanDrift       ViolationType = "plan_drift"
	ViolationResourceLimit   ViolationType = "resource_limit"
	ViolationApprovalTimeout ViolationType = "approval_timeout"
	ViolationRiskThreshold   ViolationType = "risk_threshold"
)

// Severity — тяжесть нарушения. Порядок важен: от него детерминированно
// зависит выбор стратегии вмешательства.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// ScorePenalty — штраф к compliance score за одно нарушение данной тяжести.
func (s Severity) ScorePenalty() float64 {
	switch s {
	case SeverityCritical:
		return 0.30
	case SeverityHigh:
		return 0.20
	case SeverityMedium:
		return 0.10
	default:
		return 0.05
	}
}

// UserExplanation — фиксированный четырехчастный шаблон объяснения для
// человека. Никакие сырые ошибки пользователю не показываются — только он.
type UserExplanation struct {
	WhatHappened  string `json:"what_happened"`
	WhyItMatters  string `json:"why_it_matters"`
	WhatSystemDid string `json:"what_system_did"`
	WhatUserCanDo string `json:"what_user_can_do"`
}

// ViolationContext — контекст workflow на момент нарушения.
type ViolationContext struct {
	PhaseID    string   `json:"phase_id"`
	PhaseTitle string   `json:"phase_title"`
	Tools      []string `json:"tools"`
}

// ComplianceViolation — типизированная запись о нарушении. Живет в рамках
// сессии: создается классификатором, один раз мутируется при привязке
// вмешательства, никогда не удаляется до закрытия сессии.
type ComplianceViolation struct {
	ID          string           `json:"id"`
	Type        ViolationType    `json:"type"`
	Severity    Severity         `json:"severity"`
	Description string           `json:"description"`
	Context     ViolationContext `json:"context"`
	Explanation UserExplanation  `json:"explanation"`

	// Привязанное вмешательство (nil, пока исполнитель не отработал)
	Intervention *ComplianceIntervention `json:"intervention,omitempty"`

	ResolutionSteps    []string  `json:"resolution_steps"`
	RequiresUserAction bool      `json:"requires_user_action"`
	UserNotified       bool      `json:"user_notified"`
	DetectedAt         time.Time `json:"detected_at"`
}

// ComplianceRecommendation — рекомендация, порождаемая 1:1 из нарушения.
// Приоритет зеркалит тяжесть нарушения.
type ComplianceRecommendation struct {
	ID                  string        `json:"id"`
	ViolationID         string        `json:"violation_id"`
	Priority            Severity      `json:"priority"`
	Description         string        `json:"description"`
	EstimatedResolution time.Duration `json:"estimated_resolution"`
}
