package compliance

import (
	"fmt"

	"github.com/xela07ax/spaceai-compliance-monitor/internal/domain"
)

// Фиксированный набор высокорисковых инструментов.
var highRiskTools = map[string]struct{}{
	"external_api":    {},
	"file_system":     {},
	"system_commands": {},
}

const maxToolsBeforePenalty = 5

// AggregateRisk складывает отказавшие политики, рисковые инструменты и
// сложность этапа в качественный уровень риска.
//
// Аддитивная модель: +0.3 за каждую несоблюденную политику; +0.2 за каждый
// инструмент из высокорискового набора; +0.2 разово, если этап использует
// больше 5 инструментов. Уровни: <=0.3 low, <=0.6 medium, <=0.8 high,
// иначе critical.
func AggregateRisk(evaluations []domain.PolicyEvaluationResult, phase domain.PlanPhase) domain.RiskAssessment {
	var score float64
	var factors []string

	for _, ev := range evaluations {
		if !ev.Compliant {
			score += 0.3
			factors = append(factors, fmt.Sprintf("policy %q is not compliant", ev.PolicyName))
		}
	}

	for _, tool := range phase.Tools {
		if _, ok := highRiskTools[tool]; ok {
			score += 0.2
			factors = append(factors, fmt.Sprintf("phase uses high-risk tool %q", tool))
		}
	}

	if len(phase.Tools) > maxToolsBeforePenalty {
		score += 0.2
		factors = append(factors, fmt.Sprintf("phase uses %d tools (complexity penalty above %d)", len(phase.Tools), maxToolsBeforePenalty))
	}

	return domain.RiskAssessment{
		Level:   bucketRisk(score),
		Score:   score,
		Factors: factors,
	}
}

func bucketRisk(score float64) domain.RiskLevel {
	switch {
	case score <= 0.3:
		return domain.RiskLow
	case score <= 0.6:
		return domain.RiskMedium
	case score <= 0.8:
		return domain.RiskHigh
	default:
		return domain.RiskCritical
	}
}
