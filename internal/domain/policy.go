package domain

import "time"

// PolicyCategory — область действия политики в каталоге governance.
type PolicyCategory string

const (
	// CategoryOperational и CategoryCompliance применяются всегда,
	// вне зависимости от инструментов текущего этапа.
	CategoryOperational PolicyCategory = "operational"
	CategoryCompliance  PolicyCategory = "compliance"
	CategorySecurity    PolicyCategory = "security"
	CategoryDataAccess  PolicyCategory = "data_access"
)

// PolicyRule — атомарное условие внутри политики. Оценивается независимо.
type PolicyRule struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Condition string `json:"condition"` // Выражение для матчера (эвристика по ключевым словам)
}

// Policy — внешне поставляемый набор правил. Монитор читает каталог,
// но никогда не изменяет его содержимое (read-only контракт).
type Policy struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Category PolicyCategory `json:"category"`
	Scope    string         `json:"scope"` // Текстовое описание области: какие инструменты/операции покрыты
	Rules    []PolicyRule   `json:"rules"` // Упорядоченный список правил

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AlwaysApplicable — политики операционного и комплаенс-контуров
// входят в применимый набор для любого этапа.
func (p *Policy) AlwaysApplicable() bool {
	return p.Category == CategoryOperational || p.Category == CategoryCompliance
}
