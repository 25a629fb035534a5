package domain

// PlanPhase — один этап автономного workflow.
// Поставляется внешним источником планов и никогда не мутируется монитором.
type PlanPhase struct {
	ID    string   `json:"id"`
	Title string   `json:"title"` // Человекочитаемое название ("Collect invoices")
	Tools []string `json:"tools"` // Инструменты, которые этап собирается использовать
}

// WorkflowPlan — многоэтапная автономная задача с исходной целью.
// Это read-only вход для всех проверок: исходная цель (Goal) служит
// эталоном при детекции дрейфа.
type WorkflowPlan struct {
	ID         string      `json:"id"`
	WorkflowID string      `json:"workflow_id"`
	Goal       string      `json:"goal"` // Изначально заявленная цель
	Phases     []PlanPhase `json:"phases"`
}

// CheckContext — живые факты о выполнении, против которых оцениваются правила.
// Передается вызывающей стороной на каждую проверку.
type CheckContext struct {
	AgentID string `json:"agent_id"`
	UserID  string `json:"user_id"`

	// Флаг включенного governance-контура (участвует в матчинге условий)
	GovernanceEnabled bool `json:"governance_enabled"`

	// Произвольные факты исполнения (счетчики ресурсов, окружение и т.д.)
	Facts map[string]interface{} `json:"facts,omitempty"`
}
