package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/xela07ax/spaceai-compliance-monitor/internal/audit"

	_ "github.com/jackc/pgx/v5/stdlib" // Драйвер Postgres
)

// AuditRepo держит отдельное соединение для аудиторского следа:
// его пишет фоновый воркер пачками, и он не должен конкурировать
// за пул с горячими чтениями каталога.
type AuditRepo struct {
	db *sql.DB
}

func NewAuditRepo(connString string) *AuditRepo {
	db, err := sql.Open("pgx", connString)
	if err != nil {
		// В main мы проверим соединение через Ping
		log.Fatal(err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)
	return &AuditRepo{db: db}
}

func (r *AuditRepo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// WriteBatch — пакетная вставка записей следа (Bulk Insert).
func (r *AuditRepo) WriteBatch(ctx context.Context, records []audit.Record) error {
	if len(records) == 0 {
		return nil
	}

	// Количество колонок в таблице audit_records
	numFields := 8
	placeholderStr := ""
	vals := make([]interface{}, 0, len(records)*numFields)

	// Динамически строим запрос для пакетной вставки
	for i, rec := range records {
		p := i * numFields
		placeholderStr += fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d),",
			p+1, p+2, p+3, p+4, p+5, p+6, p+7, p+8)

		meta, _ := json.Marshal(rec.Metadata)

		vals = append(vals,
			rec.ID, rec.Action, rec.PlanID, rec.AgentID,
			rec.UserID, rec.SessionID, rec.Timestamp, meta,
		)
	}

	// Убираем лишнюю запятую в конце
	query := fmt.Sprintf(
		"INSERT INTO audit_records (id, action, plan_id, agent_id, user_id, session_id, timestamp, metadata) VALUES %s",
		strings.TrimSuffix(placeholderStr, ","),
	)

	_, err := r.db.ExecContext(ctx, query, vals...)
	return err
}

// FetchRecords возвращает след с фильтрацией для консоли.
func (r *AuditRepo) FetchRecords(ctx context.Context, sessionID, action string) ([]audit.Record, error) {
	query := `SELECT id, action, plan_id, agent_id, user_id, session_id, timestamp, metadata FROM audit_records`

	var conds []string
	var args []interface{}
	if sessionID != "" {
		args = append(args, sessionID)
		conds = append(conds, fmt.Sprintf("session_id = $%d", len(args)))
	}
	if action != "" {
		args = append(args, action)
		conds = append(conds, fmt.Sprintf("action = $%d", len(args)))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY timestamp DESC LIMIT 200"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query audit records: %w", err)
	}
	defer rows.Close()

	// Пустой слайс, чтобы в JSON был [] вместо null
	results := make([]audit.Record, 0)

	for rows.Next() {
		var rec audit.Record
		var meta []byte
		if err := rows.Scan(&rec.ID, &rec.Action, &rec.PlanID, &rec.AgentID, &rec.UserID, &rec.SessionID, &rec.Timestamp, &meta); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan audit record: %w", err)
		}
		if len(meta) > 0 {
			_ = json.Unmarshal(meta, &rec.Metadata)
		}
		results = append(results, rec)
	}
	return results, rows.Err()
}
