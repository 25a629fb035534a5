package compliance

import (
	"fmt"
	"strings"

	"github.com/xela07ax/spaceai-compliance-monitor/internal/domain"
	"go.uber.org/zap"
)

// ConditionMatcher — точка расширения оценщика. Контракт: детерминированная
// чистая функция (condition, phase, context) -> {passed, confidence, explanation}.
// Внутреннюю стратегию матчинга можно свободно менять (вплоть до настоящего
// rule/NLP движка), контракт при этом сохраняется.
type ConditionMatcher interface {
	Match(condition string, phase domain.PlanPhase, cctx domain.CheckContext) (passed bool, confidence float64, explanation string, err error)
}

// Evaluator прогоняет правила применимых политик против живых фактов этапа.
type Evaluator struct {
	matcher ConditionMatcher
	logger  *zap.Logger
}

func NewEvaluator(matcher ConditionMatcher, logger *zap.Logger) *Evaluator {
	if matcher == nil {
		matcher = KeywordMatcher{}
	}
	return &Evaluator{
		matcher: matcher,
		logger:  logger.Named("evaluator"),
	}
}

// EvaluatePolicies оценивает каждую применимую политику независимо.
func (e *Evaluator) EvaluatePolicies(policies []domain.Policy, phase domain.PlanPhase, cctx domain.CheckContext) []domain.PolicyEvaluationResult {
	results := make([]domain.PolicyEvaluationResult, 0, len(policies))
	for _, p := range policies {
		results = append(results, e.evaluatePolicy(p, phase, cctx))
	}
	return results
}

// evaluatePolicy: политика соблюдена только если прошли ВСЕ правила
// (fail-closed AND). Политика без правил тривиально соблюдена с
// уверенностью 1.0. Уверенность политики — среднее по правилам.
func (e *Evaluator) evaluatePolicy(p domain.Policy, phase domain.PlanPhase, cctx domain.CheckContext) domain.PolicyEvaluationResult {
	res := domain.PolicyEvaluationResult{
		PolicyID:   p.ID,
		PolicyName: p.Name,
		Compliant:  true,
		Confidence: 1.0,
	}

	if len(p.Rules) == 0 {
		res.Explanation = fmt.Sprintf("policy %q has no rules, vacuously compliant", p.Name)
		return res
	}

	var confSum float64
	var failed []string

	for _, rule := range p.Rules {
		rr := e.evaluateRule(rule, phase, cctx)
		res.Rules = append(res.Rules, rr)
		confSum += rr.Confidence

		if !rr.Passed {
			res.Compliant = false
			failed = append(failed, rule.Name)
		}
	}

	res.Confidence = confSum / float64(len(p.Rules))

	if res.Compliant {
		res.Explanation = fmt.Sprintf("all %d rules of policy %q passed", len(p.Rules), p.Name)
	} else {
		res.Explanation = fmt.Sprintf("policy %q violated: failed rules [%s]", p.Name, strings.Join(failed, ", "))
	}
	return res
}

// evaluateRule оценивает одно правило. Любой сбой матчера (ошибка или паника)
// деградирует правило до passed=false / confidence=0.1 с причиной в
// объяснении — ошибки оценщика никогда не проходят молча.
func (e *Evaluator) evaluateRule(rule domain.PolicyRule, phase domain.PlanPhase, cctx domain.CheckContext) (rr domain.RuleEvaluationResult) {
	rr.RuleID = rule.ID

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("condition matcher panicked",
				zap.String("rule_id", rule.ID),
				zap.Any("panic", r))
			rr.Passed = false
			rr.Confidence = 0.1
			rr.Explanation = fmt.Sprintf("rule %q evaluation failed: panic: %v", rule.Name, r)
		}
	}()

	passed, conf, explanation, err := e.matcher.Match(rule.Condition, phase, cctx)
	if err != nil {
		e.logger.Warn("rule evaluation degraded",
			zap.String("rule_id", rule.ID),
			zap.Error(err))
		return domain.RuleEvaluationResult{
			RuleID:      rule.ID,
			Passed:      false,
			Confidence:  0.1,
			Explanation: fmt.Sprintf("rule %q evaluation failed: %v", rule.Name, err),
		}
	}

	// Страхуем инвариант confidence в [0,1]
	if conf < 0 {
		conf = 0
	} else if conf > 1 {
		conf = 1
	}

	rr.Passed = passed
	rr.Confidence = conf
	rr.Explanation = explanation
	return rr
}
