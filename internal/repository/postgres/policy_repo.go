package postgres

/*
Файл policy_repo.go отвечает за поставку каталога правил governance.
Слой отделяет долговременное хранение политик в PostgreSQL от их мгновенной
проверки в памяти монитора: конвейер читает только кэш, кэш читает только
этот репозиторий.
*/

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/xela07ax/spaceai-compliance-monitor/internal/domain"
)

// GetAllPolicies выполняет "холодную загрузку" всего каталога при старте
// и при каждом сигнале обновления. Каталог read-only: монитор никогда не
// пишет в эти таблицы.
func (r *Repo) GetAllPolicies(ctx context.Context) ([]domain.Policy, error) {
	query := `SELECT id, name, category, scope, created_at, updated_at FROM policies ORDER BY id`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query policies: %w", err)
	}
	defer rows.Close()

	var results []domain.Policy
	byID := make(map[string]int)

	for rows.Next() {
		var p domain.Policy
		if err := rows.Scan(&p.ID, &p.Name, &p.Category, &p.Scope, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan policy: %w", err)
		}
		byID[p.ID] = len(results)
		results = append(results, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Правила подтягиваем вторым запросом, сохраняя порядок внутри политики
	ruleQuery := `SELECT id, policy_id, name, condition FROM policy_rules ORDER BY policy_id, position`

	ruleRows, err := r.pool.Query(ctx, ruleQuery)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query policy rules: %w", err)
	}
	defer ruleRows.Close()

	for ruleRows.Next() {
		var rule domain.PolicyRule
		var policyID string
		if err := ruleRows.Scan(&rule.ID, &policyID, &rule.Name, &rule.Condition); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan policy rule: %w", err)
		}
		if idx, ok := byID[policyID]; ok {
			results[idx].Rules = append(results[idx].Rules, rule)
		}
	}
	return results, ruleRows.Err()
}

// GetPolicyByID — точечное чтение для консоли.
func (r *Repo) GetPolicyByID(ctx context.Context, id string) (*domain.Policy, error) {
	query := `SELECT id, name, category, scope, created_at, updated_at FROM policies WHERE id = $1`

	p := &domain.Policy{}
	err := r.pool.QueryRow(ctx, query, id).Scan(&p.ID, &p.Name, &p.Category, &p.Scope, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Возвращаем nil для 404 в хендлере
		}
		return nil, err
	}

	ruleQuery := `SELECT id, policy_id, name, condition FROM policy_rules WHERE policy_id = $1 ORDER BY position`
	rows, err := r.pool.Query(ctx, ruleQuery, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var rule domain.PolicyRule
		var policyID string
		if err := rows.Scan(&rule.ID, &policyID, &rule.Name, &rule.Condition); err != nil {
			return nil, err
		}
		p.Rules = append(p.Rules, rule)
	}
	return p, rows.Err()
}
