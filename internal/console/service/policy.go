package service

import (
	"context"

	"github.com/redis/go-redis/v9"
	"github.com/xela07ax/spaceai-compliance-monitor/internal/domain"
	"github.com/xela07ax/spaceai-compliance-monitor/internal/infra"
)

// PolicyRepository описывает требования сервиса к хранилищу политик.
// Каталог для монитора read-only: консоль читает его и умеет только
// инициировать перечитывание после внешней правки таблиц.
type PolicyRepository interface {
	GetPolicyByID(ctx context.Context, id string) (*domain.Policy, error)
	GetAllPolicies(ctx context.Context) ([]domain.Policy, error)
}

type PolicyService struct {
	repo PolicyRepository
	rdb  *redis.Client
}

func NewPolicyService(repo PolicyRepository, rdb *redis.Client) *PolicyService {
	return &PolicyService{
		repo: repo,
		rdb:  rdb,
	}
}

func (s *PolicyService) GetByID(ctx context.Context, id string) (*domain.Policy, error) {
	return s.repo.GetPolicyByID(ctx, id)
}

// GetAll возвращает все политики из БД
func (s *PolicyService) GetAll(ctx context.Context) ([]domain.Policy, error) {
	return s.repo.GetAllPolicies(ctx)
}

// NotifyRefresh отправляет широковещательный сигнал в Redis.
// Все инстансы монитора, подписанные на этот канал, вызовут Refresh()
// своего кэша каталога и подтянут свежие строки из Postgres.
func (s *PolicyService) NotifyRefresh(ctx context.Context) error {
	// Сигнал может быть простым "refresh", так как монитор сам перечитает всю таблицу
	return s.rdb.Publish(ctx, infra.RedisChanPolicyUpdate, "refresh").Err()
}
