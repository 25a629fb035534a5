package compliance

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Scheduler — единый поллер real-time контура: вместо таймера на каждый
// workflow один цикл обходит все активные сессии и тикает те, у которых
// подошло время следующей проверки. Это удерживает число горутин константным
// при любом количестве workflow.
//
// Ошибки внутри тика гасятся per-session внутри Manager.sweep — цикл
// обязан пережить любой сбой и продолжить на следующем интервале.
type Scheduler struct {
	manager    *Manager
	resolution time.Duration
	logger     *zap.Logger
}

func NewScheduler(manager *Manager, resolution time.Duration, logger *zap.Logger) *Scheduler {
	if resolution <= 0 {
		resolution = time.Second
	}
	return &Scheduler{
		manager:    manager,
		resolution: resolution,
		logger:     logger.Named("scheduler"),
	}
}

// Run блокируется до отмены контекста. Запускать в отдельной горутине.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.resolution)
	defer ticker.Stop()

	s.logger.Info("compliance sweep scheduler started", zap.Duration("resolution", s.resolution))

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("compliance sweep scheduler stopping by context...")
			return
		case now := <-ticker.C:
			s.manager.sweep(now)
		}
	}
}
