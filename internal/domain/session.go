package domain

import "time"

// SessionState — жизненный цикл сессии мониторинга.
// UNSTARTED -> ACTIVE -> CLOSED, без возвратов.
type SessionState string

const (
	SessionUnstarted SessionState = "unstarted"
	SessionActive    SessionState = "active"
	SessionClosed    SessionState = "closed"
)

// MonitoringConfig — настройки real-time контура для одной сессии.
type MonitoringConfig struct {
	RealTimeEnabled bool          `json:"real_time_enabled"`
	CheckInterval   time.Duration `json:"check_interval"` // Дефолт 30s
}

// ComplianceSession — состояние надзора за одним workflow.
// Инвариант: не более одной активной сессии на workflow_id.
// Истории строго ограничены: проверки <=50 (новые в начале),
// вмешательства <=100 (старые вытесняются первыми).
type ComplianceSession struct {
	ID         string `json:"id"`
	WorkflowID string `json:"workflow_id"`
	PlanID     string `json:"plan_id"`

	CurrentPhase int `json:"current_phase"`
	TotalPhases  int `json:"total_phases"`

	State  SessionState     `json:"state"`
	Config MonitoringConfig `json:"config"`

	Violations    []ComplianceViolation    `json:"violations"`
	Checks        []ComplianceCheckResult  `json:"checks"`
	Interventions []ComplianceIntervention `json:"interventions"`

	StartedAt   time.Time `json:"started_at"`
	LastCheckAt time.Time `json:"last_check_at"`
}

// SessionStatus — снимок для get-status: сессия, последняя проверка,
// частичные метрики. Отдается консоли.
type SessionStatus struct {
	Session     *ComplianceSession     `json:"session"`
	LatestCheck *ComplianceCheckResult `json:"latest_check,omitempty"`
	Metrics     SessionMetrics         `json:"metrics"`
}

// MonitorStats — сводка по всем активным сессиям для дашборда консоли.
type MonitorStats struct {
	ActiveSessions  int     `json:"active_sessions"`
	TotalViolations int     `json:"total_violations"`
	MeanScore       float64 `json:"mean_score"`
	PausedWorkflows int     `json:"paused_workflows"`
}
