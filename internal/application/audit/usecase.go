// Package audit registra y consulta las entradas de auditoría (tabla logs).
package audit

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jhoicas/cokelateh-api/internal/application/dto"
	"github.com/jhoicas/cokelateh-api/internal/domain"
	"github.com/jhoicas/cokelateh-api/internal/domain/entity"
	"github.com/jhoicas/cokelateh-api/internal/domain/repository"
)

// UseCase casos de uso de auditoría.
type UseCase struct {
	repo repository.AuditLogRepository
}

// NewUseCase construye el caso de uso.
func NewUseCase(repo repository.AuditLogRepository) *UseCase {
	return &UseCase{repo: repo}
}

// Record guarda una entrada. Asigna ID; la fecha la pone la base de datos si viene vacía.
func (uc *UseCase) Record(ctx context.Context, log entity.AuditLog) error {
	if log.UserID == "" || log.Action == "" || log.EntityType == "" {
		return domain.ErrInvalidInput
	}
	if log.ID == "" {
		log.ID = uuid.New().String()
	}
	if err := uc.repo.Create(ctx, &log); err != nil {
		return fmt.Errorf("registrar auditoría: %w", err)
	}
	return nil
}

// List devuelve las entradas más recientes primero.
func (uc *UseCase) List(ctx context.Context, page dto.PageRequest) (*dto.AuditLogListResponse, error) {
	page.DefaultPage()
	if page.Limit > 100 {
		page.Limit = 100
	}
	logs, err := uc.repo.List(ctx, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	out := &dto.AuditLogListResponse{
		Items: make([]dto.AuditLogResponse, 0, len(logs)),
		Page:  dto.PageResponse{Limit: page.Limit, Offset: page.Offset},
	}
	for _, l := range logs {
		out.Items = append(out.Items, dto.AuditLogResponse{
			ID:          l.ID,
			UserID:      l.UserID,
			UserEmail:   l.UserEmail,
			Action:      string(l.Action),
			EntityType:  l.EntityType,
			EntityID:    l.EntityID,
			Description: l.Description,
			CreatedAt:   l.CreatedAt,
		})
	}
	return out, nil
}
