package audit_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/cokelateh-api/internal/application/audit"
	"github.com/jhoicas/cokelateh-api/internal/application/dto"
	"github.com/jhoicas/cokelateh-api/internal/domain"
	"github.com/jhoicas/cokelateh-api/internal/domain/entity"
)

type memLogs struct {
	logs      []*entity.AuditLog
	err       error
	lastLimit int
}

func (m *memLogs) Create(_ context.Context, l *entity.AuditLog) error {
	if m.err != nil {
		return m.err
	}
	m.logs = append(m.logs, l)
	return nil
}

func (m *memLogs) List(_ context.Context, limit, offset int) ([]*entity.AuditLog, error) {
	m.lastLimit = limit
	if offset >= len(m.logs) {
		return nil, nil
	}
	return m.logs[offset:], nil
}

func TestRecord_AsignaID(t *testing.T) {
	repo := &memLogs{}
	uc := audit.NewUseCase(repo)

	err := uc.Record(context.Background(), entity.AuditLog{
		UserID: "u1", UserEmail: "ana@cokelateh.com", Action: entity.AuditActionLogout, EntityType: "session",
	})
	require.NoError(t, err)
	require.Len(t, repo.logs, 1)
	assert.NotEmpty(t, repo.logs[0].ID)
}

func TestRecord_Validacion(t *testing.T) {
	uc := audit.NewUseCase(&memLogs{})
	err := uc.Record(context.Background(), entity.AuditLog{Action: entity.AuditActionLogin})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestRecord_ErrorDeRepositorio(t *testing.T) {
	boom := errors.New("db caída")
	uc := audit.NewUseCase(&memLogs{err: boom})
	err := uc.Record(context.Background(), entity.AuditLog{UserID: "u1", Action: entity.AuditActionLogin, EntityType: "session"})
	assert.ErrorIs(t, err, boom)
}

func TestList_LimitaPagina(t *testing.T) {
	repo := &memLogs{logs: []*entity.AuditLog{{ID: "a", Action: entity.AuditActionCreate}}}
	uc := audit.NewUseCase(repo)

	out, err := uc.List(context.Background(), dto.PageRequest{Limit: 500})
	require.NoError(t, err)
	assert.Equal(t, 100, repo.lastLimit)
	require.Len(t, out.Items, 1)
	assert.Equal(t, "create", out.Items[0].Action)

	out, err = uc.List(context.Background(), dto.PageRequest{})
	require.NoError(t, err)
	assert.Equal(t, 20, out.Page.Limit)
}
