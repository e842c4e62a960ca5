// Package approval gestiona los formularios de aprobación de paso a producción.
package approval

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jhoicas/cokelateh-api/internal/application/dto"
	"github.com/jhoicas/cokelateh-api/internal/domain"
	"github.com/jhoicas/cokelateh-api/internal/domain/entity"
	"github.com/jhoicas/cokelateh-api/internal/domain/repository"
)

// TxRunner ejecuta fn en una transacción: aprobar un formulario también aprueba
// el producto de I+D enlazado.
type TxRunner interface {
	RunApproval(ctx context.Context, fn func(formRepo repository.ApprovalFormRepository, rdRepo repository.RDRepository) error) error
}

// AuditRecorder registra entradas de auditoría.
type AuditRecorder interface {
	Record(ctx context.Context, log entity.AuditLog) error
}

// UseCase casos de uso de formularios de aprobación.
type UseCase struct {
	repo     repository.ApprovalFormRepository
	txRunner TxRunner
	audit    AuditRecorder
	log      zerolog.Logger
	now      func() time.Time
}

// NewUseCase construye el caso de uso.
func NewUseCase(repo repository.ApprovalFormRepository, txRunner TxRunner, audit AuditRecorder, log zerolog.Logger) *UseCase {
	return &UseCase{repo: repo, txRunner: txRunner, audit: audit, log: log, now: time.Now}
}

// Create registra un formulario pendiente. Requiere usuario autenticado.
func (uc *UseCase) Create(ctx context.Context, in dto.CreateApprovalFormRequest, actor *entity.User) (*dto.ApprovalFormResponse, error) {
	if actor == nil {
		return nil, domain.ErrNotAuthenticated
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, domain.ErrInvalidInput
	}
	now := uc.now()
	f := &entity.ApprovalForm{
		ID:          uuid.New().String(),
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		RDProductID: in.RDProductID,
		Status:      entity.ApprovalStatusPending,
		CreatedBy:   actor.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := uc.repo.Create(ctx, f); err != nil {
		return nil, err
	}
	uc.record(ctx, actor, entity.AuditActionCreate, f.ID, "formulario de aprobación "+f.Title)
	return ToResponse(f), nil
}

// List filtra por estado; vacío devuelve todos.
func (uc *UseCase) List(ctx context.Context, status string) ([]dto.ApprovalFormResponse, error) {
	switch status {
	case "", entity.ApprovalStatusPending, entity.ApprovalStatusApproved, entity.ApprovalStatusRejected:
	default:
		return nil, domain.ErrInvalidInput
	}
	list, err := uc.repo.List(ctx, status)
	if err != nil {
		return nil, err
	}
	out := make([]dto.ApprovalFormResponse, 0, len(list))
	for _, f := range list {
		out = append(out, *ToResponse(f))
	}
	return out, nil
}

// Approve aprueba un formulario pendiente y, si enlaza un producto de I+D, lo
// marca como aprobado en la misma transacción.
func (uc *UseCase) Approve(ctx context.Context, id string, actor *entity.User) (*dto.ApprovalFormResponse, error) {
	if actor == nil {
		return nil, domain.ErrNotAuthenticated
	}
	var form *entity.ApprovalForm
	err := uc.txRunner.RunApproval(ctx, func(formRepo repository.ApprovalFormRepository, rdRepo repository.RDRepository) error {
		f, err := pendingForm(ctx, formRepo, id)
		if err != nil {
			return err
		}
		now := uc.now()
		by := actor.ID
		f.Status = entity.ApprovalStatusApproved
		f.ApprovedBy = &by
		f.ApprovedAt = &now
		f.UpdatedAt = now
		if err := formRepo.Update(ctx, f); err != nil {
			return err
		}
		form = f
		if f.RDProductID == nil {
			return nil
		}
		p, err := rdRepo.GetProduct(ctx, *f.RDProductID)
		if err != nil {
			return err
		}
		if p == nil {
			return fmt.Errorf("%w: producto de I+D enlazado", domain.ErrNotFound)
		}
		p.Status = entity.RDStatusApproved
		p.ApprovedBy = &by
		p.ApprovedAt = &now
		p.UpdatedAt = now
		return rdRepo.UpdateProduct(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	uc.record(ctx, actor, entity.AuditActionApprove, form.ID, "formulario aprobado "+form.Title)
	return ToResponse(form), nil
}

// Reject rechaza un formulario pendiente. La lectura y la decisión comparten
// transacción con Approve: de dos decisiones simultáneas solo una gana.
func (uc *UseCase) Reject(ctx context.Context, id, reason string, actor *entity.User) (*dto.ApprovalFormResponse, error) {
	if actor == nil {
		return nil, domain.ErrNotAuthenticated
	}
	var form *entity.ApprovalForm
	err := uc.txRunner.RunApproval(ctx, func(formRepo repository.ApprovalFormRepository, _ repository.RDRepository) error {
		f, err := pendingForm(ctx, formRepo, id)
		if err != nil {
			return err
		}
		f.Status = entity.ApprovalStatusRejected
		f.RejectionReason = strings.TrimSpace(reason)
		f.UpdatedAt = uc.now()
		if err := formRepo.Update(ctx, f); err != nil {
			return err
		}
		form = f
		return nil
	})
	if err != nil {
		return nil, err
	}
	uc.record(ctx, actor, entity.AuditActionReject, form.ID, "formulario rechazado "+form.Title)
	return ToResponse(form), nil
}

func pendingForm(ctx context.Context, repo repository.ApprovalFormRepository, id string) (*entity.ApprovalForm, error) {
	f, err := repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, domain.ErrNotFound
	}
	if f.Status != entity.ApprovalStatusPending {
		return nil, fmt.Errorf("%w: el formulario ya está %s", domain.ErrConflict, f.Status)
	}
	return f, nil
}

func (uc *UseCase) record(ctx context.Context, actor *entity.User, action entity.AuditAction, id, desc string) {
	err := uc.audit.Record(ctx, entity.AuditLog{
		UserID:      actor.ID,
		UserEmail:   actor.Email,
		Action:      action,
		EntityType:  "approval_form",
		EntityID:    id,
		Description: desc,
	})
	if err != nil {
		uc.log.Warn().Err(err).Str("form_id", id).Msg("auditoría de aprobaciones")
	}
}

// ToResponse convierte la entidad a su salida HTTP.
func ToResponse(f *entity.ApprovalForm) *dto.ApprovalFormResponse {
	return &dto.ApprovalFormResponse{
		ID:              f.ID,
		Title:           f.Title,
		Description:     f.Description,
		RDProductID:     f.RDProductID,
		Status:          f.Status,
		CreatedBy:       f.CreatedBy,
		ApprovedBy:      f.ApprovedBy,
		ApprovedAt:      f.ApprovedAt,
		RejectionReason: f.RejectionReason,
		CreatedAt:       f.CreatedAt,
		UpdatedAt:       f.UpdatedAt,
	}
}
