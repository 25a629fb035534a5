package compliance

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/xela07ax/spaceai-compliance-monitor/internal/audit"
	"github.com/xela07ax/spaceai-compliance-monitor/internal/domain"
	"github.com/xela07ax/spaceai-compliance-monitor/internal/infra"
	"go.uber.org/zap"
)

// Лимиты историй сессии. Старые записи вытесняются первыми.
const (
	maxCheckHistory        = 50
	maxInterventionHistory = 100

	// DefaultCheckInterval — период фонового real-time контура.
	DefaultCheckInterval = 30 * time.Second
)

// CatalogProvider — read-only каталог политик. Монитор никогда не мутирует
// его содержимое.
type CatalogProvider interface {
	Policies() []domain.Policy
}

// TrustSync — внешний trust/session-контур. Принимает метрики по ключу
// сессии. Ошибки здесь никогда не роняют решение по комплаенсу.
type TrustSync interface {
	UpdateSessionMetrics(ctx context.Context, m domain.SessionMetrics) error
}

// sessionEntry — живое состояние одной сессии внутри стора.
// mu сериализует два пути, которые могут чередоваться: фоновый sweep-тик
// и явную проверку от драйвера workflow на границе этапа.
type sessionEntry struct {
	mu      sync.Mutex
	session *domain.ComplianceSession
	plan    *domain.WorkflowPlan
	cctx    domain.CheckContext

	nextCheckAt time.Time
	closed      bool
}

// SessionStore — инжектируемое хранилище активных сессий, партиционированное
// по workflow id. Конструируется хост-процессом один раз и передается по
// ссылке во все точки вызова (никаких синглтонов).
type SessionStore struct {
	mu      sync.RWMutex
	entries map[string]*sessionEntry
}

func NewSessionStore() *SessionStore {
	return &SessionStore{entries: make(map[string]*sessionEntry)}
}

func (s *SessionStore) get(workflowID string) (*sessionEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[workflowID]
	return e, ok
}

func (s *SessionStore) put(workflowID string, e *sessionEntry) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.entries[workflowID]; exists {
		return false
	}
	s.entries[workflowID] = e
	return true
}

func (s *SessionStore) remove(workflowID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, workflowID)
}

// snapshot — срез живых entry для sweep-поллера.
func (s *SessionStore) snapshot() []*sessionEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*sessionEntry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e)
	}
	return out
}

func (s *SessionStore) len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Manager — движок надзора: владеет жизненным циклом сессий, прогоняет
// конвейер проверки (Filter -> Evaluator -> Drift -> Risk -> Classifier ->
// Interventions), ведет ограниченные истории и агрегирует метрики.
type Manager struct {
	store     *SessionStore
	catalog   CatalogProvider
	evaluator *Evaluator
	executor  *InterventionExecutor
	notifier  *Notifier
	trust     TrustSync  // Может быть nil: метрики тогда остаются локальными
	auditor   audit.Sink // Может быть nil: след не ведется
	metrics   *Metrics
	logger    *zap.Logger

	defaultInterval time.Duration
	syncEveryCheck  bool
}

type ManagerOption func(*Manager)

// WithSyncEveryCheck включает отправку метрик в trust-контур после каждой
// проверки (по умолчанию — только на стопе).
func WithSyncEveryCheck() ManagerOption {
	return func(m *Manager) { m.syncEveryCheck = true }
}

// WithDefaultInterval меняет дефолтный период real-time контура.
func WithDefaultInterval(d time.Duration) ManagerOption {
	return func(m *Manager) {
		if d > 0 {
			m.defaultInterval = d
		}
	}
}

func NewManager(
	store *SessionStore,
	catalog CatalogProvider,
	evaluator *Evaluator,
	executor *InterventionExecutor,
	notifier *Notifier,
	trust TrustSync,
	auditor audit.Sink,
	metrics *Metrics,
	logger *zap.Logger,
	opts ...ManagerOption,
) *Manager {
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	m := &Manager{
		store:           store,
		catalog:         catalog,
		evaluator:       evaluator,
		executor:        executor,
		notifier:        notifier,
		trust:           trust,
		auditor:         auditor,
		metrics:         metrics,
		logger:          logger.Named("sessions"),
		defaultInterval: DefaultCheckInterval,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// StartMonitoring открывает сессию надзора за workflow.
// Инвариант: не более одной активной сессии на workflow id — повторный
// старт возвращает ErrSessionActive.
func (m *Manager) StartMonitoring(ctx context.Context, plan *domain.WorkflowPlan, cctx domain.CheckContext, cfg domain.MonitoringConfig) (*domain.ComplianceSession, error) {
	if plan == nil || plan.WorkflowID == "" {
		return nil, fmt.Errorf("compliance: plan with workflow id is required")
	}

	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = m.defaultInterval
	}

	now := time.Now()
	session := &domain.ComplianceSession{
		ID:          uuid.New().String(),
		WorkflowID:  plan.WorkflowID,
		PlanID:      plan.ID,
		TotalPhases: len(plan.Phases),
		State:       domain.SessionActive,
		Config:      cfg,
		StartedAt:   now,
	}

	entry := &sessionEntry{
		session:     session,
		plan:        plan,
		cctx:        cctx,
		nextCheckAt: now.Add(cfg.CheckInterval),
	}

	if !m.store.put(plan.WorkflowID, entry) {
		return nil, fmt.Errorf("%w: %s", ErrSessionActive, plan.WorkflowID)
	}

	m.metrics.ActiveSessions.Set(float64(m.store.len()))
	m.audit(ctx, audit.ActionMonitoringStarted, session, cctx, map[string]interface{}{
		"plan_id":      plan.ID,
		"total_phases": len(plan.Phases),
		"interval":     cfg.CheckInterval.String(),
	})

	m.logger.Info("monitoring started",
		zap.String("workflow_id", plan.WorkflowID),
		zap.String("session_id", session.ID),
		zap.Duration("interval", cfg.CheckInterval))

	snap := *session
	return &snap, nil
}

// PerformCheck — явная проверка на границе этапа. План поставляется
// источником workflow на момент проверки и не мутируется.
func (m *Manager) PerformCheck(ctx context.Context, plan *domain.WorkflowPlan, phase domain.PlanPhase, cctx domain.CheckContext) (*domain.ComplianceCheckResult, error) {
	if plan == nil {
		return nil, fmt.Errorf("compliance: plan is required")
	}

	entry, ok := m.store.get(plan.WorkflowID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, plan.WorkflowID)
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.closed {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, plan.WorkflowID)
	}

	// Обновляем план и контекст: источник workflow мог перевыпустить их
	entry.plan = plan
	entry.cctx = cctx

	result := m.runCheck(ctx, entry, phase)
	return result, nil
}

// runCheck прогоняет полный конвейер под уже взятым entry.mu.
func (m *Manager) runCheck(ctx context.Context, entry *sessionEntry, phase domain.PlanPhase) *domain.ComplianceCheckResult {
	session := entry.session
	start := time.Now()

	// 1. Отбор применимых политик (пустой каталог — это не ошибка)
	var catalog []domain.Policy
	if m.catalog != nil {
		catalog = m.catalog.Policies()
	}
	applicable := FilterApplicable(catalog, phase)

	// 2. Оценка правил против живых фактов
	evals := m.evaluator.EvaluatePolicies(applicable, phase, entry.cctx)

	// 3. Дрейф от исходной цели
	drift := DetectDrift(entry.plan.Goal, phase.Title)

	// 4. Агрегация риска
	risk := AggregateRisk(evals, phase)

	// 5. Классификация нарушений
	cls := Classify(evals, drift, phase)

	result := &domain.ComplianceCheckResult{
		ID:              uuid.New().String(),
		WorkflowID:      session.WorkflowID,
		PhaseID:         phase.ID,
		Compliant:       cls.Compliant,
		ComplianceScore: cls.Score,
		Confidence:      cls.Confidence,
		Evaluations:     evals,
		Risk:            risk,
		Drift:           drift,
		Violations:      cls.Violations,
		Recommendations: cls.Recommendations,
		CheckedAt:       start,
	}

	// 6. Вмешательства: ровно одно решение на нарушение. Ошибки обработки
	// нарушения гасятся per-call — проверка целиком не падает.
	for i := range cls.Violations {
		m.handleViolation(ctx, session, &cls.Violations[i])
	}
	result.Violations = cls.Violations
	result.UserSummary = m.summarize(phase, cls)

	// 7. Фиксация в сессии: ограниченные истории, счетчики этапов
	session.Violations = append(session.Violations, cls.Violations...)
	session.Checks = append([]domain.ComplianceCheckResult{*result}, session.Checks...)
	if len(session.Checks) > maxCheckHistory {
		session.Checks = session.Checks[:maxCheckHistory] // Новые в начале, старые уходят
	}
	if idx := phaseIndex(entry.plan, phase.ID); idx >= 0 {
		session.CurrentPhase = idx + 1
	}
	session.LastCheckAt = start
	entry.nextCheckAt = start.Add(session.Config.CheckInterval)

	// 8. Метрики и аудит
	m.metrics.ChecksTotal.WithLabelValues(session.WorkflowID, "explicit").Inc()
	m.metrics.CheckDuration.WithLabelValues(session.WorkflowID, strconv.FormatBool(result.Compliant)).Observe(time.Since(start).Seconds())
	m.metrics.ComplianceScore.WithLabelValues(session.WorkflowID).Set(result.ComplianceScore)
	for _, v := range cls.Violations {
		m.metrics.ViolationsTotal.WithLabelValues(string(v.Type), string(v.Severity)).Inc()
	}

	m.audit(ctx, audit.ActionComplianceCheck, session, entry.cctx, map[string]interface{}{
		"check_id":   result.ID,
		"phase_id":   phase.ID,
		"compliant":  result.Compliant,
		"score":      result.ComplianceScore,
		"violations": len(cls.Violations),
		"risk_level": string(risk.Level),
	})

	// 9. Опциональная синхронизация с trust-контуром после каждой проверки
	if m.syncEveryCheck {
		m.pushTrustMetrics(ctx, entry)
	}

	return result
}

// handleViolation исполняет вмешательство и пишет его в ограниченную
// историю. Паника внутри обработки одного нарушения логируется и не
// прерывает оставшиеся.
func (m *Manager) handleViolation(ctx context.Context, session *domain.ComplianceSession, v *domain.ComplianceViolation) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("violation handling failed",
				zap.String("workflow_id", session.WorkflowID),
				zap.String("violation_id", v.ID),
				zap.Any("panic", r))
		}
	}()

	iv := m.executor.Execute(ctx, session.WorkflowID, v)

	session.Interventions = append(session.Interventions, iv)
	if len(session.Interventions) > maxInterventionHistory {
		// Старые вытесняются первыми
		session.Interventions = session.Interventions[len(session.Interventions)-maxInterventionHistory:]
	}
	m.metrics.InterventionsTotal.WithLabelValues(string(iv.Type)).Inc()
}

// StopMonitoring закрывает сессию: считает финальные метрики, шлет их в
// trust-контур, пишет аудит и убирает состояние. Флаг closed выставляется
// под entry.mu ДО удаления из стора — sweep гарантированно не исполнит
// проверку против освобожденного состояния.
func (m *Manager) StopMonitoring(ctx context.Context, workflowID string) (*domain.SessionMetrics, error) {
	entry, ok := m.store.get(workflowID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, workflowID)
	}

	entry.mu.Lock()
	if entry.closed {
		entry.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, workflowID)
	}
	entry.closed = true
	entry.session.State = domain.SessionClosed

	metrics := m.computeMetrics(entry)
	cctx := entry.cctx
	session := entry.session
	entry.mu.Unlock()

	m.store.remove(workflowID)
	m.metrics.ActiveSessions.Set(float64(m.store.len()))

	// Финальная выгрузка в trust-контур: best-effort, сбой только логируется
	if m.trust != nil {
		if err := m.trust.UpdateSessionMetrics(ctx, *metrics); err != nil {
			m.logger.Error("trust sync failed on session close",
				zap.String("session_id", session.ID),
				zap.Error(err))
		}
	}

	m.audit(ctx, audit.ActionMonitoringStopped, session, cctx, map[string]interface{}{
		"checks_performed":   metrics.ChecksPerformed,
		"mean_score":         metrics.MeanComplianceScore,
		"total_violations":   metrics.TotalViolations,
		"drift_detected":     metrics.DriftDetected,
		"intervention_ratio": metrics.InterventionSuccessRatio,
	})

	m.logger.Info("monitoring stopped",
		zap.String("workflow_id", workflowID),
		zap.String("session_id", session.ID),
		zap.Float64("mean_score", metrics.MeanComplianceScore))

	return metrics, nil
}

// GetStatus возвращает снимок сессии, последнюю проверку и частичные метрики.
func (m *Manager) GetStatus(workflowID string) (*domain.SessionStatus, error) {
	entry, ok := m.store.get(workflowID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, workflowID)
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	snap := *entry.session
	status := &domain.SessionStatus{
		Session: &snap,
		Metrics: *m.computeMetrics(entry),
	}
	if len(snap.Checks) > 0 {
		latest := snap.Checks[0]
		status.LatestCheck = &latest
	}
	return status, nil
}

// Stats — сводка по всем активным сессиям (дашборд консоли).
func (m *Manager) Stats() domain.MonitorStats {
	var stats domain.MonitorStats
	var scoreSum float64
	var scored int

	for _, entry := range m.store.snapshot() {
		entry.mu.Lock()
		if !entry.closed {
			stats.ActiveSessions++
			stats.TotalViolations += len(entry.session.Violations)
			if len(entry.session.Checks) > 0 {
				scoreSum += entry.session.Checks[0].ComplianceScore
				scored++
			}
		}
		entry.mu.Unlock()
	}
	if scored > 0 {
		stats.MeanScore = scoreSum / float64(scored)
	}
	return stats
}

// SubscribeViolation и SubscribeIntervention — подписки внешних
// коллабораторов; вызываются в порядке регистрации.
func (m *Manager) SubscribeViolation(cb ViolationCallback)       { m.notifier.SubscribeViolation(cb) }
func (m *Manager) SubscribeIntervention(cb InterventionCallback) { m.notifier.SubscribeIntervention(cb) }

// sweep — один проход поллера: легкая проверка (обновление таймстемпов)
// для сессий, у которых подошло время. Любая паника гасится per-session,
// цикл продолжает жить.
func (m *Manager) sweep(now time.Time) {
	for _, entry := range m.store.snapshot() {
		m.sweepEntry(entry, now)
	}
}

func (m *Manager) sweepEntry(entry *sessionEntry, now time.Time) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("sweep tick failed", zap.Any("panic", r))
		}
	}()

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.closed || !entry.session.Config.RealTimeEnabled {
		return
	}
	if now.Before(entry.nextCheckAt) {
		return
	}

	// Легкий real-time тик: освежаем таймстемп и переarmим следующий.
	// Тяжелую оценку выполняет только явная проверка на границе этапа.
	entry.session.LastCheckAt = now
	entry.nextCheckAt = now.Add(entry.session.Config.CheckInterval)
	m.metrics.ChecksTotal.WithLabelValues(entry.session.WorkflowID, "sweep").Inc()
}

// computeMetrics — агрегаты по истории сессии (зовется под entry.mu).
func (m *Manager) computeMetrics(entry *sessionEntry) *domain.SessionMetrics {
	s := entry.session

	var scoreSum float64
	drift := false
	for _, c := range s.Checks {
		scoreSum += c.ComplianceScore
		if c.Drift.Detected {
			drift = true
		}
	}
	mean := 1.0
	if len(s.Checks) > 0 {
		mean = scoreSum / float64(len(s.Checks))
	}

	// Success=true by construction, но считаем честно по записям
	ratio := 1.0
	if len(s.Interventions) > 0 {
		ok := 0
		for _, iv := range s.Interventions {
			if iv.Success {
				ok++
			}
		}
		ratio = float64(ok) / float64(len(s.Interventions))
	}

	return &domain.SessionMetrics{
		SessionID:                s.ID,
		WorkflowID:               s.WorkflowID,
		ChecksPerformed:          len(s.Checks),
		MeanComplianceScore:      mean,
		TotalViolations:          len(s.Violations),
		InterventionSuccessRatio: ratio,
		DriftDetected:            drift,
		ComputedAt:               time.Now(),
	}
}

// pushTrustMetrics — промежуточная выгрузка (зовется под entry.mu).
func (m *Manager) pushTrustMetrics(ctx context.Context, entry *sessionEntry) {
	if m.trust == nil {
		return
	}
	if err := m.trust.UpdateSessionMetrics(ctx, *m.computeMetrics(entry)); err != nil {
		m.logger.Warn("trust sync failed after check",
			zap.String("session_id", entry.session.ID),
			zap.Error(err))
	}
}

// audit — best-effort запись следа (sink сам неблокирующий).
// Trace-ID из контекста запроса попадает в метаданные записи.
func (m *Manager) audit(ctx context.Context, action string, session *domain.ComplianceSession, cctx domain.CheckContext, meta map[string]interface{}) {
	if m.auditor == nil {
		return
	}
	if traceID := infra.TraceIDFromContext(ctx); traceID != "" {
		meta["trace_id"] = traceID
	}
	m.auditor.Log(audit.Record{
		ID:        uuid.New().String(),
		Action:    action,
		PlanID:    session.PlanID,
		AgentID:   cctx.AgentID,
		UserID:    cctx.UserID,
		SessionID: session.ID,
		Timestamp: time.Now(),
		Metadata:  meta,
	})
}

func (m *Manager) summarize(phase domain.PlanPhase, cls Classification) string {
	if cls.Compliant {
		return fmt.Sprintf("Phase %q passed all compliance checks (score %.2f).", phase.Title, cls.Score)
	}
	return fmt.Sprintf("Phase %q raised %d compliance issue(s); the monitor responded automatically. Review the explanations attached to each issue.",
		phase.Title, len(cls.Violations))
}

func phaseIndex(plan *domain.WorkflowPlan, phaseID string) int {
	for i, p := range plan.Phases {
		if p.ID == phaseID {
			return i
		}
	}
	return -1
}
