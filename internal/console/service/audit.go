package service

import (
	"context"
	"fmt"

	"github.com/xela07ax/spaceai-compliance-monitor/internal/audit"
)

// AuditLogProvider описывает контракт для чтения данных аудита.
// Мы используем структуру Record из пакета audit, чтобы сохранить единую модель данных.
type AuditLogProvider interface {
	FetchRecords(ctx context.Context, sessionID, action string) ([]audit.Record, error)
}

type AuditService struct {
	repo AuditLogProvider
}

func NewAuditService(repo AuditLogProvider) *AuditService {
	return &AuditService{
		repo: repo,
	}
}

// FetchRecords запрашивает след с фильтрацией.
// Логика фильтрации (пустые строки или конкретные ID) инкапсулирована в репозитории.
func (s *AuditService) FetchRecords(ctx context.Context, sessionID, action string) ([]audit.Record, error) {
	records, err := s.repo.FetchRecords(ctx, sessionID, action)
	if err != nil {
		return nil, fmt.Errorf("audit_service: failed to fetch records: %w", err)
	}
	return records, nil
}
