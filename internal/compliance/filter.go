package compliance

import (
	"strings"

	"github.com/xela07ax/spaceai-compliance-monitor/internal/domain"
)

// FilterApplicable выбирает из каталога политики, применимые к текущему этапу.
// Чистая функция, ничего не мутирует.
//
// Правила отбора:
//  1. operational/compliance политики применимы всегда;
//  2. остальные — если их Scope содержит (без учета регистра) имя
//     хотя бы одного инструмента этапа.
//
// Пустой каталог — это пустой применимый набор, а не ошибка.
func FilterApplicable(catalog []domain.Policy, phase domain.PlanPhase) []domain.Policy {
	applicable := make([]domain.Policy, 0, len(catalog))

	for _, p := range catalog {
		if p.AlwaysApplicable() {
			applicable = append(applicable, p)
			continue
		}

		scope := strings.ToLower(p.Scope)
		for _, tool := range phase.Tools {
			if tool != "" && strings.Contains(scope, strings.ToLower(tool)) {
				applicable = append(applicable, p)
				break
			}
		}
	}

	return applicable
}
