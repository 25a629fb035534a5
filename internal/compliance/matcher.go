package compliance

import (
	"fmt"
	"strings"

	"github.com/xela07ax/spaceai-compliance-monitor/internal/domain"
)

// KeywordMatcher — базовая эвристика матчинга условий: подстроки по
// инструментам этапа и флагу governance. Это осознанная заглушка вместо
// настоящего rule-движка; контракт ConditionMatcher (чистая детерминированная
// функция) она соблюдает полностью.
type KeywordMatcher struct{}

// Слова-отрицания: условие запрещает перечисленные в нем инструменты.
var negationTokens = []string{"no ", "not ", "forbid", "deny", "without", "never"}

func (KeywordMatcher) Match(condition string, phase domain.PlanPhase, cctx domain.CheckContext) (bool, float64, string, error) {
	cond := strings.ToLower(strings.TrimSpace(condition))
	if cond == "" {
		return false, 0, "", fmt.Errorf("empty rule condition")
	}

	// 1. Условия про governance-контур проверяются по флагу контекста
	if strings.Contains(cond, "governance") {
		if cctx.GovernanceEnabled {
			return true, 0.9, "governance controls are enabled", nil
		}
		return false, 0.9, "rule requires governance controls, but they are disabled", nil
	}

	// 2. Запрещающие условия: fail, если упомянутый инструмент реально используется
	negated := false
	for _, tok := range negationTokens {
		if strings.Contains(cond, tok) {
			negated = true
			break
		}
	}

	matched := matchedTools(cond, phase.Tools)

	if negated {
		if len(matched) > 0 {
			return false, 0.85, fmt.Sprintf("condition forbids tools [%s] which the phase uses", strings.Join(matched, ", ")), nil
		}
		return true, 0.85, "no forbidden tools in use", nil
	}

	// 3. Разрешающие/декларативные условия: pass при пересечении с
	// инструментами этапа, иначе проверить нечего — считаем соблюденным
	// с пониженной уверенностью.
	if len(matched) > 0 {
		return true, 0.7, fmt.Sprintf("condition keywords match phase tools [%s]", strings.Join(matched, ", ")), nil
	}
	return true, 0.5, "no matching facts for condition, assumed compliant", nil
}

// matchedTools возвращает инструменты этапа, упомянутые в условии подстрокой.
func matchedTools(cond string, tools []string) []string {
	var matched []string
	for _, tool := range tools {
		t := strings.ToLower(tool)
		if t != "" && strings.Contains(cond, t) {
			matched = append(matched, tool)
		}
	}
	return matched
}
