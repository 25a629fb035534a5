package service

import (
	"context"
	"time"

	"github.com/xela07ax/spaceai-compliance-monitor/internal/compliance"
	"github.com/xela07ax/spaceai-compliance-monitor/internal/domain"
)

// MonitorService — фасад консоли над движком надзора и менеджером пауз.
// Вся бизнес-логика живет в compliance; здесь только сборка конфигов
// и сводок для HTTP-слоя.
type MonitorService struct {
	manager *compliance.Manager
	pauses  *compliance.PauseManager
}

func NewMonitorService(manager *compliance.Manager, pauses *compliance.PauseManager) *MonitorService {
	return &MonitorService{
		manager: manager,
		pauses:  pauses,
	}
}

func (s *MonitorService) Start(ctx context.Context, plan *domain.WorkflowPlan, cctx domain.CheckContext, realTime bool, intervalSeconds int) (*domain.ComplianceSession, error) {
	cfg := domain.MonitoringConfig{
		RealTimeEnabled: realTime,
		CheckInterval:   time.Duration(intervalSeconds) * time.Second,
	}
	return s.manager.StartMonitoring(ctx, plan, cctx, cfg)
}

func (s *MonitorService) Check(ctx context.Context, plan *domain.WorkflowPlan, phase domain.PlanPhase, cctx domain.CheckContext) (*domain.ComplianceCheckResult, error) {
	return s.manager.PerformCheck(ctx, plan, phase, cctx)
}

func (s *MonitorService) Stop(ctx context.Context, workflowID string) (*domain.SessionMetrics, error) {
	return s.manager.StopMonitoring(ctx, workflowID)
}

func (s *MonitorService) Status(workflowID string) (*domain.SessionStatus, error) {
	return s.manager.GetStatus(workflowID)
}

// Violations отдает накопленные нарушения сессии (весь список, без лимита
// истории проверок).
func (s *MonitorService) Violations(workflowID string) ([]domain.ComplianceViolation, error) {
	status, err := s.manager.GetStatus(workflowID)
	if err != nil {
		return nil, err
	}
	return status.Session.Violations, nil
}

// Resume снимает паузу с workflow: Redis set + широковещательный сигнал,
// чтобы все инстансы обновили RAM-состояние.
func (s *MonitorService) Resume(ctx context.Context, workflowID string) error {
	return s.pauses.Resume(ctx, workflowID)
}

// Stats — сводка для дашборда. Счетчик пауз берем из менеджера пауз,
// остальное из движка.
func (s *MonitorService) Stats() domain.MonitorStats {
	stats := s.manager.Stats()
	stats.PausedWorkflows = s.pauses.PausedCount()
	return stats
}
