package repository

import (
	"context"

	"github.com/jhoicas/cokelateh-api/internal/domain/entity"
)

// ApprovalFormRepository puerto de persistencia de formularios de aprobación.
type ApprovalFormRepository interface {
	Create(ctx context.Context, form *entity.ApprovalForm) error
	GetByID(ctx context.Context, id string) (*entity.ApprovalForm, error)
	List(ctx context.Context, status string) ([]*entity.ApprovalForm, error)
	// Update guarda la decisión solo si el formulario sigue pendiente;
	// si no, devuelve domain.ErrConflict.
	Update(ctx context.Context, form *entity.ApprovalForm) error
}
