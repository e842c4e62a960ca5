package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/cokelateh-api/internal/domain/entity"
	"github.com/jhoicas/cokelateh-api/internal/domain/repository"
)

var _ repository.AuditLogRepository = (*AuditLogRepo)(nil)

// AuditLogRepo auditoría en la tabla logs.
type AuditLogRepo struct {
	q Querier
}

// NewAuditLogRepository construye el repositorio de auditoría.
func NewAuditLogRepository(q Querier) *AuditLogRepo {
	return &AuditLogRepo{q: q}
}

// Create inserta una entrada; sin fecha usa la hora actual.
func (r *AuditLogRepo) Create(ctx context.Context, l *entity.AuditLog) error {
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now()
	}
	_, err := r.q.Exec(ctx, `
		INSERT INTO logs (id, user_id, user_email, action, entity_type, entity_id, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		l.ID, l.UserID, l.UserEmail, string(l.Action), l.EntityType, l.EntityID, l.Description, l.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert log: %w", err)
	}
	return nil
}

// List devuelve las entradas más recientes primero.
func (r *AuditLogRepo) List(ctx context.Context, limit, offset int) ([]*entity.AuditLog, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, user_id, user_email, action, entity_type, entity_id, description, created_at
		FROM logs ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list logs: %w", err)
	}
	defer rows.Close()
	var list []*entity.AuditLog
	for rows.Next() {
		var (
			l      entity.AuditLog
			action string
		)
		if err := rows.Scan(&l.ID, &l.UserID, &l.UserEmail, &action, &l.EntityType, &l.EntityID, &l.Description, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan log: %w", err)
		}
		l.Action = entity.AuditAction(action)
		list = append(list, &l)
	}
	return list, rows.Err()
}
