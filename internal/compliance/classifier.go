package compliance

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/xela07ax/spaceai-compliance-monitor/internal/domain"
)

// Фиксированные оценки времени на устранение (для рекомендаций).
const (
	policyResolutionETA = 10 * time.Minute
	driftResolutionETA  = 15 * time.Minute
)

// Classification — итог классификации одной проверки.
type Classification struct {
	Violations      []domain.ComplianceViolation
	Recommendations []domain.ComplianceRecommendation
	Score           float64
	Confidence      float64
	Compliant       bool
}

// Classify превращает результаты оценки, дрейф и риск в типизированные
// нарушения с тяжестью и объяснением для пользователя.
//
// Источники нарушений:
//   - каждая несоблюденная политика -> policy_violation. Тяжесть выводится
//     из уверенности оценщика (>0.8 high, >0.6 medium, иначе low) — поведение
//     сохранено как задокументированное, хотя оно смешивает "насколько мы
//     уверены" с "насколько это плохо";
//   - зафиксированный дрейф -> plan_drift (score >0.7 high, иначе medium).
//
// Каждое нарушение получает requiresUserAction=true и ровно одну
// рекомендацию с приоритетом, зеркалящим тяжесть.
func Classify(evaluations []domain.PolicyEvaluationResult, drift domain.DriftResult, phase domain.PlanPhase) Classification {
	now := time.Now()
	vctx := domain.ViolationContext{
		PhaseID:    phase.ID,
		PhaseTitle: phase.Title,
		Tools:      phase.Tools,
	}

	var out Classification

	compliantCount := 0
	var confSum float64
	for _, ev := range evaluations {
		confSum += ev.Confidence
		if ev.Compliant {
			compliantCount++
			continue
		}

		sev := severityFromConfidence(ev.Confidence)
		v := domain.ComplianceViolation{
			ID:          uuid.New().String(),
			Type:        domain.ViolationPolicy,
			Severity:    sev,
			Description: fmt.Sprintf("policy %q violated during phase %q", ev.PolicyName, phase.Title),
			Context:     vctx,
			Explanation: domain.UserExplanation{
				WhatHappened:  fmt.Sprintf("The workflow broke governance policy %q while executing phase %q.", ev.PolicyName, phase.Title),
				WhyItMatters:  "Policy violations can expose the workflow to actions outside its approved boundaries.",
				WhatSystemDid: "The compliance monitor recorded the violation and selected a proportionate intervention.",
				WhatUserCanDo: "Review the failed rules and adjust the workflow plan or the policy scope.",
			},
			ResolutionSteps: []string{
				"Inspect the failed rules listed in the evaluation result",
				"Confirm whether the phase genuinely needs the flagged tools",
				"Re-run the compliance check after adjusting the plan",
			},
			RequiresUserAction: true,
			DetectedAt:         now,
		}
		out.Violations = append(out.Violations, v)
		out.Recommendations = append(out.Recommendations, domain.ComplianceRecommendation{
			ID:                  uuid.New().String(),
			ViolationID:         v.ID,
			Priority:            sev,
			Description:         fmt.Sprintf("Resolve violation of policy %q: %s", ev.PolicyName, ev.Explanation),
			EstimatedResolution: policyResolutionETA,
		})
	}

	if drift.Detected {
		sev := domain.SeverityMedium
		if drift.Score > 0.7 {
			sev = domain.SeverityHigh
		}
		v := domain.ComplianceViolation{
			ID:          uuid.New().String(),
			Type:        domain.ViolationPlanDrift,
			Severity:    sev,
			Description: fmt.Sprintf("workflow drifted from its original objective (drift %.2f)", drift.Score),
			Context:     vctx,
			Explanation: domain.UserExplanation{
				WhatHappened:  fmt.Sprintf("Phase %q no longer matches the originally stated goal.", phase.Title),
				WhyItMatters:  "Semantic drift means the agent may be spending effort on work nobody asked for.",
				WhatSystemDid: "The compliance monitor flagged the drift and selected a proportionate intervention.",
				WhatUserCanDo: "Confirm whether the new direction is intended, or steer the workflow back to its goal.",
			},
			ResolutionSteps: []string{
				"Compare the current phase focus with the original objective",
				"Either approve the new direction or correct the plan",
			},
			RequiresUserAction: true,
			DetectedAt:         now,
		}
		out.Violations = append(out.Violations, v)
		out.Recommendations = append(out.Recommendations, domain.ComplianceRecommendation{
			ID:                  uuid.New().String(),
			ViolationID:         v.ID,
			Priority:            sev,
			Description:         "Realign the workflow with its original objective: " + drift.Explanation,
			EstimatedResolution: driftResolutionETA,
		})
	}

	// Итоговый score: доля соблюденных политик минус штрафы за тяжесть,
	// с фиксацией в [0,1]. Пустой набор оценок трактуется как полный комплаенс.
	ratio := 1.0
	out.Confidence = 1.0
	if len(evaluations) > 0 {
		ratio = float64(compliantCount) / float64(len(evaluations))
		out.Confidence = confSum / float64(len(evaluations))
	}
	for _, v := range out.Violations {
		ratio -= v.Severity.ScorePenalty()
	}
	out.Score = clamp01(ratio)
	out.Compliant = len(out.Violations) == 0

	return out
}

func severityFromConfidence(conf float64) domain.Severity {
	switch {
	case conf > 0.8:
		return domain.SeverityHigh
	case conf > 0.6:
		return domain.SeverityMedium
	default:
		return domain.SeverityLow
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
