package domain

import "time"

// InterventionType — стратегия автоматического вмешательства.
type InterventionType string

const (
	InterventionImmediatePause   InterventionType = "immediate_pause"
	InterventionPauseAndNotify   InterventionType = "pause_and_notify"
	InterventionNotifyAndMonitor InterventionType = "notify_and_monitor"
	InterventionLogAndContinue   InterventionType = "log_and_continue"
	InterventionEscalation       InterventionType = "escalation"
)

// Pauses сообщает, останавливает ли стратегия выполнение workflow.
func (t InterventionType) Pauses() bool {
	return t == InterventionImmediatePause || t == InterventionPauseAndNotify
}

// Notifies сообщает, требует ли стратегия уведомления подписчиков.
func (t InterventionType) Notifies() bool {
	return t == InterventionImmediatePause || t == InterventionPauseAndNotify || t == InterventionNotifyAndMonitor
}

// ComplianceIntervention — неизменяемая запись о выполненном вмешательстве.
// После создания исполнителем поля не мутируются.
type ComplianceIntervention struct {
	ID          string           `json:"id"`
	Type        InterventionType `json:"type"`
	Trigger     string           `json:"trigger"`     // Что спровоцировало (описание нарушения)
	ActionTaken string           `json:"action_taken"`
	Description string           `json:"description"` // Объяснение для пользователя
	UserImpact  string           `json:"user_impact"` // significant / moderate / minimal / none
	Success     bool             `json:"success"`
	ExecutedAt  time.Time        `json:"executed_at"`
}
