package catalog

import (
	"context"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/xela07ax/spaceai-compliance-monitor/internal/domain"
	"github.com/xela07ax/spaceai-compliance-monitor/internal/infra"
	"go.uber.org/zap"
)

// Repository — требования кэша к хранилищу каталога.
type Repository interface {
	GetAllPolicies(ctx context.Context) ([]domain.Policy, error)
}

// MemoCache — in-memory копия каталога политик. Конвейер проверки обращается
// только к памяти (Hot Path); синхронизация с БД идет через Refresh():
// «холодная загрузка» при старте и перечитывание по широковещательному
// сигналу об обновлении каталога.
type MemoCache struct {
	mu       sync.RWMutex
	policies []domain.Policy

	repo   Repository // Используется только для Refresh()
	rdb    *redis.Client
	logger *zap.Logger
}

func NewMemoCache(repo Repository, rdb *redis.Client, logger *zap.Logger) *MemoCache {
	return &MemoCache{
		repo:   repo,
		rdb:    rdb,
		logger: logger.Named("catalog"),
	}
}

// Policies отдает текущий снимок каталога. Реализует
// compliance.CatalogProvider; вызывающие никогда не мутируют результат.
func (c *MemoCache) Policies() []domain.Policy {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.policies
}

// Refresh перечитывает весь каталог из PostgreSQL в память.
func (c *MemoCache) Refresh(ctx context.Context) error {
	fresh, err := c.repo.GetAllPolicies(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.policies = fresh
	c.mu.Unlock()

	c.logger.Info("policy catalog refreshed", zap.Int("count", len(fresh)))
	return nil
}

// StartListener подписывается на сигналы обновления каталога.
// Консоль governance публикует "refresh" после каждой правки политик.
func (c *MemoCache) StartListener(ctx context.Context) {
	if c.rdb == nil {
		return
	}

	pubsub := c.rdb.Subscribe(ctx, infra.RedisChanPolicyUpdate)
	defer pubsub.Close()

	ch := pubsub.Channel()
	c.logger.Info("policy update listener started")

	for {
		select {
		case _, ok := <-ch:
			if !ok {
				c.logger.Warn("policy update channel closed")
				return
			}
			if err := c.Refresh(ctx); err != nil {
				c.logger.Error("catalog refresh failed", zap.Error(err))
			}
		case <-ctx.Done():
			c.logger.Info("policy update listener stopping by context...")
			return
		}
	}
}
