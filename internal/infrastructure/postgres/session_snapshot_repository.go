package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/cokelateh-api/internal/domain/entity"
	"github.com/jhoicas/cokelateh-api/internal/domain/repository"
)

var _ repository.SessionSnapshotRepository = (*SessionSnapshotRepo)(nil)

// SessionSnapshotRepo copia JSON de cada sesión de cliente (tabla session_snapshots).
type SessionSnapshotRepo struct {
	q Querier
}

// NewSessionSnapshotRepository construye el repositorio.
func NewSessionSnapshotRepository(q Querier) *SessionSnapshotRepo {
	return &SessionSnapshotRepo{q: q}
}

// Load devuelve (nil, nil) si la sesión no tiene copia.
func (r *SessionSnapshotRepo) Load(ctx context.Context, sessionID string) (*entity.SessionSnapshot, error) {
	var raw []byte
	err := r.q.QueryRow(ctx, `SELECT data FROM session_snapshots WHERE session_id = $1`, sessionID).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get session snapshot: %w", err)
	}
	var snap entity.SessionSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("decode session snapshot: %w", err)
	}
	snap.SessionID = sessionID
	return &snap, nil
}

// Save reemplaza la copia completa.
func (r *SessionSnapshotRepo) Save(ctx context.Context, snap *entity.SessionSnapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode session snapshot: %w", err)
	}
	_, err = r.q.Exec(ctx, `
		INSERT INTO session_snapshots (session_id, data, updated_at) VALUES ($1, $2, now())
		ON CONFLICT (session_id) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`, snap.SessionID, raw)
	if err != nil {
		return fmt.Errorf("save session snapshot: %w", err)
	}
	return nil
}

// Delete borra la copia; no es error si no existía.
func (r *SessionSnapshotRepo) Delete(ctx context.Context, sessionID string) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM session_snapshots WHERE session_id = $1`, sessionID); err != nil {
		return fmt.Errorf("delete session snapshot: %w", err)
	}
	return nil
}
