package audit

import "time"

// Действия, по которым монитор оставляет аудиторский след.
const (
	ActionMonitoringStarted = "monitoring_started"
	ActionComplianceCheck   = "compliance_check"
	ActionMonitoringStopped = "monitoring_stopped"
)

// Record — структурированная запись аудита мониторинга.
// Пишется при старте надзора, после каждой проверки и на стопе.
type Record struct {
	ID        string                 `json:"id"`        // UUID записи
	Action    string                 `json:"action"`    // Что произошло
	PlanID    string                 `json:"plan_id"`   // Какой план под надзором
	AgentID   string                 `json:"agent_id"`  // Кто исполнял
	UserID    string                 `json:"user_id"`   // От чьего имени
	SessionID string                 `json:"session_id"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]interface{} `json:"metadata"` // score, violations, trace_id и т.д.
}
