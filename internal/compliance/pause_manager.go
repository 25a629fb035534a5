package compliance

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/xela07ax/spaceai-compliance-monitor/internal/infra"
	"go.uber.org/zap"
)

// PauseManager держит множество приостановленных workflow: L1 в RAM для
// горячих проверок, L2 в Redis для разделения между инстансами, Pub/Sub
// для мгновенной трансляции pause/resume сигналов драйверам workflow.
type PauseManager struct {
	mu     sync.RWMutex
	paused map[string]struct{}
	rdb    *redis.Client
	logger *zap.Logger
}

func NewPauseManager(rdb *redis.Client, logger *zap.Logger) *PauseManager {
	return &PauseManager{
		paused: make(map[string]struct{}),
		rdb:    rdb,
		logger: logger.With(zap.String("mod", "pause")),
	}
}

// Init загружает текущее множество пауз при старте сервиса.
func (m *PauseManager) Init(ctx context.Context) error {
	if m.rdb == nil {
		return nil // Автономный режим без Redis (тесты, single-node)
	}

	ids, err := m.rdb.SMembers(ctx, infra.RedisKeyPausedWorkflows).Result()
	if err != nil {
		return fmt.Errorf("failed to fetch paused workflows: %w", err)
	}

	return WarmupState(ctx, m.rdb, m.logger, ids, infra.RedisKeyPausedWorkflows, infra.RedisKeyLockWarmupPaused, func(items []string) {
		m.mu.Lock()
		defer m.mu.Unlock()
		for _, id := range items {
			m.paused[id] = struct{}{}
		}
	})
}

// StartListener подписывается на pause-сигналы других инстансов/консоли.
func (m *PauseManager) StartListener(ctx context.Context) {
	if m.rdb == nil {
		return
	}
	ListenStateResilient(ctx, m.rdb, m.logger, infra.RedisChanPauseSignal,
		func() error { return m.Init(ctx) }, // Переподключение
		func(id string, status bool) {
			m.mu.Lock()
			defer m.mu.Unlock()
			if status {
				m.paused[id] = struct{}{}
			} else {
				delete(m.paused, id)
			}
		},
	)
}

// Pause помечает workflow приостановленным и транслирует сигнал.
// Реализует PauseProvider для исполнителя вмешательств.
func (m *PauseManager) Pause(ctx context.Context, workflowID, reason string) error {
	m.mu.Lock()
	m.paused[workflowID] = struct{}{}
	m.mu.Unlock()

	m.logger.Warn("workflow paused",
		zap.String("workflow_id", workflowID),
		zap.String("reason", reason))

	return m.broadcast(ctx, workflowID, "on")
}

// Resume снимает паузу (операторское действие из консоли).
func (m *PauseManager) Resume(ctx context.Context, workflowID string) error {
	m.mu.Lock()
	delete(m.paused, workflowID)
	m.mu.Unlock()

	m.logger.Info("workflow resumed", zap.String("workflow_id", workflowID))

	return m.broadcast(ctx, workflowID, "off")
}

func (m *PauseManager) IsPaused(workflowID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.paused[workflowID]
	return ok
}

// PausedCount — для дашборда консоли.
func (m *PauseManager) PausedCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.paused)
}

func (m *PauseManager) broadcast(ctx context.Context, workflowID, status string) error {
	if m.rdb == nil {
		return nil
	}

	// Сначала состояние (Set), потом сигнал (Pub/Sub)
	if status == "on" {
		if err := m.rdb.SAdd(ctx, infra.RedisKeyPausedWorkflows, workflowID).Err(); err != nil {
			return fmt.Errorf("failed to persist pause state: %w", err)
		}
	} else {
		if err := m.rdb.SRem(ctx, infra.RedisKeyPausedWorkflows, workflowID).Err(); err != nil {
			return fmt.Errorf("failed to persist resume state: %w", err)
		}
	}

	payload := fmt.Sprintf("%s:%s", workflowID, status)
	return m.rdb.Publish(ctx, infra.RedisChanPauseSignal, payload).Err()
}
