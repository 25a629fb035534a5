package compliance

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/xela07ax/spaceai-compliance-monitor/internal/domain"
	"go.uber.org/zap"
)

// SelectStrategy — чистая функция выбора стратегии по тяжести нарушения.
// Машина состояний работает per-violation: одно нарушение — ровно одно
// решение о вмешательстве, без петли повторной оценки до следующей проверки.
func SelectStrategy(sev domain.Severity) domain.InterventionType {
	switch sev {
	case domain.SeverityCritical:
		return domain.InterventionImmediatePause
	case domain.SeverityHigh:
		return domain.InterventionPauseAndNotify
	case domain.SeverityMedium:
		return domain.InterventionNotifyAndMonitor
	default:
		return domain.InterventionLogAndContinue
	}
}

// Канонические описания действий и влияние на пользователя.
var interventionActions = map[domain.InterventionType]struct {
	action string
	impact string
}{
	domain.InterventionImmediatePause:   {"Workflow execution paused immediately", "significant"},
	domain.InterventionPauseAndNotify:   {"Workflow paused and the user was notified", "moderate"},
	domain.InterventionNotifyAndMonitor: {"User notified, workflow continues under close monitoring", "minimal"},
	domain.InterventionLogAndContinue:   {"Violation logged, workflow continues", "none"},
	domain.InterventionEscalation:       {"Violation escalated to a human operator", "significant"},
}

// ViolationCallback и InterventionCallback — подписки внешних коллабораторов.
type ViolationCallback func(v domain.ComplianceViolation)
type InterventionCallback func(iv domain.ComplianceIntervention)

// Notifier хранит подписчиков и вызывает их в порядке регистрации.
// Паника одного подписчика не мешает остальным.
type Notifier struct {
	mu               sync.RWMutex
	violationSubs    []ViolationCallback
	interventionSubs []InterventionCallback
	logger           *zap.Logger
}

func NewNotifier(logger *zap.Logger) *Notifier {
	return &Notifier{logger: logger.Named("notifier")}
}

func (n *Notifier) SubscribeViolation(cb ViolationCallback) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.violationSubs = append(n.violationSubs, cb)
}

func (n *Notifier) SubscribeIntervention(cb InterventionCallback) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.interventionSubs = append(n.interventionSubs, cb)
}

func (n *Notifier) NotifyViolation(v domain.ComplianceViolation) {
	n.mu.RLock()
	subs := make([]ViolationCallback, len(n.violationSubs))
	copy(subs, n.violationSubs)
	n.mu.RUnlock()

	for i, cb := range subs {
		n.safeCall(i, "violation", func() { cb(v) })
	}
}

func (n *Notifier) NotifyIntervention(iv domain.ComplianceIntervention) {
	n.mu.RLock()
	subs := make([]InterventionCallback, len(n.interventionSubs))
	copy(subs, n.interventionSubs)
	n.mu.RUnlock()

	for i, cb := range subs {
		n.safeCall(i, "intervention", func() { cb(iv) })
	}
}

func (n *Notifier) safeCall(idx int, kind string, f func()) {
	defer func() {
		if r := recover(); r != nil {
			n.logger.Error("subscriber panicked",
				zap.String("event", kind),
				zap.Int("subscriber", idx),
				zap.Any("panic", r))
		}
	}()
	f()
}

// PauseProvider — то, что исполнителю нужно от pause-контура.
// Реализуется PauseManager (RAM + Redis сигналы).
type PauseProvider interface {
	Pause(ctx context.Context, workflowID, reason string) error
}

// InterventionExecutor исполняет выбранную стратегию и выпускает
// неизменяемую запись о вмешательстве.
type InterventionExecutor struct {
	pauses   PauseProvider
	notifier *Notifier
	logger   *zap.Logger
}

func NewInterventionExecutor(pauses PauseProvider, notifier *Notifier, logger *zap.Logger) *InterventionExecutor {
	return &InterventionExecutor{
		pauses:   pauses,
		notifier: notifier,
		logger:   logger.Named("interventions"),
	}
}

// Execute применяет стратегию к нарушению. Мутирует нарушение единственный
// допустимый раз: привязывает вмешательство и (для pause/notify стратегий)
// выставляет UserNotified. Возвращенная запись больше не меняется.
//
// Success=true by construction: baseline-дизайн не моделирует путь отказа
// вмешательства (см. DESIGN.md, open questions).
func (x *InterventionExecutor) Execute(ctx context.Context, workflowID string, v *domain.ComplianceViolation) domain.ComplianceIntervention {
	strategy := SelectStrategy(v.Severity)
	canned := interventionActions[strategy]

	iv := domain.ComplianceIntervention{
		ID:          uuid.New().String(),
		Type:        strategy,
		Trigger:     v.Description,
		ActionTaken: canned.action,
		Description: fmt.Sprintf("Automatic response to a %s-severity %s", v.Severity, v.Type),
		UserImpact:  canned.impact,
		Success:     true,
		ExecutedAt:  time.Now(),
	}

	if strategy.Pauses() && x.pauses != nil {
		// Сбой сигнализации паузы не роняет проверку: логируем и продолжаем
		if err := x.pauses.Pause(ctx, workflowID, v.Description); err != nil {
			x.logger.Error("failed to broadcast pause signal",
				zap.String("workflow_id", workflowID),
				zap.Error(err))
		}
	}

	if strategy.Notifies() {
		x.notifier.NotifyViolation(*v)
		x.notifier.NotifyIntervention(iv)
		v.UserNotified = true
	}

	v.Intervention = &iv

	x.logger.Info("intervention executed",
		zap.String("workflow_id", workflowID),
		zap.String("violation_id", v.ID),
		zap.String("strategy", string(strategy)),
		zap.String("severity", string(v.Severity)))

	return iv
}
