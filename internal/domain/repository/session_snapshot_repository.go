package repository

import (
	"context"

	"github.com/jhoicas/cokelateh-api/internal/domain/entity"
)

// SessionSnapshotRepository guarda la copia de cada sesión de cliente.
// Load devuelve (nil, nil) si no existe.
type SessionSnapshotRepository interface {
	Load(ctx context.Context, sessionID string) (*entity.SessionSnapshot, error)
	Save(ctx context.Context, snap *entity.SessionSnapshot) error
	Delete(ctx context.Context, sessionID string) error
}
