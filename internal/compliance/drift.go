package compliance

import (
	"fmt"
	"strings"

	"github.com/xela07ax/spaceai-compliance-monitor/internal/domain"
)

// DriftThreshold — фиксированный порог дрейфа (см. контракт детектора).
const DriftThreshold = 0.30

// DetectDrift сравнивает название текущего этапа с исходной целью workflow.
// Чистая детерминированная функция от (goal, title), без учета регистра.
//
// Алгоритм: токенизируем оба текста в "ключевые слова" (слова длиннее 3
// символов); overlap — сколько ключевых слов цели входит подстрокой хотя бы
// в одно ключевое слово этапа; alignment = overlap / max(1, |goalKW|);
// drift = 1 - alignment. Дрейф фиксируется при drift > 0.30.
//
// Это эвристика-заглушка вместо семантического сравнения; внешний контракт
// (сигнатура, порог) сохраняется при любой замене внутренностей.
func DetectDrift(goal, phaseTitle string) domain.DriftResult {
	goalKW := keywords(goal)
	phaseKW := keywords(phaseTitle)

	overlap := 0
	for _, gw := range goalKW {
		for _, pw := range phaseKW {
			if strings.Contains(pw, gw) {
				overlap++
				break
			}
		}
	}

	denom := len(goalKW)
	if denom < 1 {
		denom = 1
	}
	alignment := float64(overlap) / float64(denom)
	drift := 1.0 - alignment

	res := domain.DriftResult{
		Score:    drift,
		Detected: drift > DriftThreshold,
	}

	if res.Detected {
		res.Explanation = fmt.Sprintf(
			"current phase %q shares %d of %d goal keywords with the original objective (drift %.2f)",
			phaseTitle, overlap, len(goalKW), drift)
	} else {
		res.Explanation = fmt.Sprintf("phase %q is aligned with the original objective (drift %.2f)", phaseTitle, drift)
	}
	return res
}

// keywords — слова длиннее 3 символов, в нижнем регистре.
func keywords(text string) []string {
	var kw []string
	for _, w := range strings.Fields(strings.ToLower(text)) {
		w = strings.Trim(w, ".,;:!?\"'()[]")
		if len(w) > 3 {
			kw = append(kw, w)
		}
	}
	return kw
}
