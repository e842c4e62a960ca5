package repository

import (
	"context"

	"github.com/jhoicas/cokelateh-api/internal/domain/entity"
)

// AuditLogRepository puerto de persistencia de la auditoría.
type AuditLogRepository interface {
	Create(ctx context.Context, log *entity.AuditLog) error
	List(ctx context.Context, limit, offset int) ([]*entity.AuditLog, error)
}
