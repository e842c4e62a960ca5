// Package users administra los usuarios de la aplicación: alta en el proveedor de
// identidad y en la tabla users, rol, permisos y estado.
package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/text/cases"

	"github.com/jhoicas/cokelateh-api/internal/application/dto"
	"github.com/jhoicas/cokelateh-api/internal/application/session"
	"github.com/jhoicas/cokelateh-api/internal/domain"
	"github.com/jhoicas/cokelateh-api/internal/domain/entity"
	"github.com/jhoicas/cokelateh-api/internal/domain/repository"
)

// AccountCreator crea cuentas en el proveedor de identidad.
type AccountCreator interface {
	CreateAccount(ctx context.Context, email, password string) (uid string, err error)
}

// UseCase casos de uso de administración de usuarios.
type UseCase struct {
	repo     repository.UserRepository
	accounts AccountCreator
	audit    session.AuditRecorder
	log      zerolog.Logger
}

// NewUseCase construye el caso de uso.
func NewUseCase(repo repository.UserRepository, accounts AccountCreator, audit session.AuditRecorder, log zerolog.Logger) *UseCase {
	return &UseCase{repo: repo, accounts: accounts, audit: audit, log: log}
}

// List devuelve una página de usuarios.
func (uc *UseCase) List(ctx context.Context, page dto.PageRequest) ([]dto.UserResponse, error) {
	page.DefaultPage()
	list, err := uc.repo.List(ctx, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	out := make([]dto.UserResponse, 0, len(list))
	for _, u := range list {
		out = append(out, *ToUserResponse(u))
	}
	return out, nil
}

// Create da de alta la cuenta y el perfil. Sin permisos explícitos se aplican los del rol.
func (uc *UseCase) Create(ctx context.Context, in dto.CreateUserRequest, actor *entity.User) (*dto.UserResponse, error) {
	email := cases.Fold().String(strings.TrimSpace(in.Email))
	role := entity.Role(in.Role)
	if email == "" || len(in.Password) < 8 || strings.TrimSpace(in.Name) == "" || !role.Valid() {
		return nil, domain.ErrInvalidInput
	}
	perms := entity.DefaultPermissions(role)
	if len(in.Permissions) > 0 {
		parsed, err := entity.ParsePermissionSet(in.Permissions)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
		}
		perms = parsed
	}
	existing, err := uc.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrEmailAlreadyExists
	}

	uid, err := uc.accounts.CreateAccount(ctx, email, in.Password)
	if err != nil {
		var pe *session.ProviderError
		if errors.As(err, &pe) {
			switch pe.Code {
			case session.CodeEmailInUse:
				return nil, domain.ErrEmailAlreadyExists
			case session.CodeWeakPassword, session.CodeInvalidEmail:
				return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, pe.Err)
			}
		}
		return nil, err
	}

	now := time.Now()
	user := &entity.User{
		ID:          uid,
		Email:       email,
		Name:        strings.TrimSpace(in.Name),
		Role:        role,
		Permissions: perms,
		Status:      entity.UserStatusActive,
		CreatedBy:   actor.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := uc.repo.Create(ctx, user); err != nil {
		return nil, err
	}
	uc.record(ctx, actor, entity.AuditActionCreate, user.ID, "alta de usuario "+user.Email)
	return ToUserResponse(user), nil
}

// UpdatePermissions cambia rol, permisos y estado. Un administrador no puede
// quitarse a sí mismo manage_users ni desactivarse.
func (uc *UseCase) UpdatePermissions(ctx context.Context, id string, in dto.UpdatePermissionsRequest, actor *entity.User) (*dto.UserResponse, error) {
	user, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}
	perms, err := entity.ParsePermissionSet(in.Permissions)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	if in.Role != "" {
		role := entity.Role(in.Role)
		if !role.Valid() {
			return nil, domain.ErrInvalidInput
		}
		user.Role = role
	}
	switch in.Status {
	case "":
	case entity.UserStatusActive, entity.UserStatusInactive:
		user.Status = in.Status
	default:
		return nil, domain.ErrInvalidInput
	}
	if user.ID == actor.ID && (!perms.Has(entity.PermissionManageUsers) || user.Status != entity.UserStatusActive) {
		return nil, fmt.Errorf("%w: no puede retirarse su propio acceso de administración", domain.ErrConflict)
	}
	user.Permissions = perms
	user.UpdatedAt = time.Now()
	if err := uc.repo.Update(ctx, user); err != nil {
		return nil, err
	}
	uc.record(ctx, actor, entity.AuditActionUpdate, user.ID, "permisos: "+strings.Join(perms.Strings(), ","))
	return ToUserResponse(user), nil
}

func (uc *UseCase) record(ctx context.Context, actor *entity.User, action entity.AuditAction, id, desc string) {
	err := uc.audit.Record(ctx, entity.AuditLog{
		UserID:      actor.ID,
		UserEmail:   actor.Email,
		Action:      action,
		EntityType:  "user",
		EntityID:    id,
		Description: desc,
	})
	if err != nil {
		uc.log.Warn().Err(err).Str("user_id", id).Msg("auditoría de usuarios")
	}
}

// ToUserResponse convierte la entidad a su salida HTTP.
func ToUserResponse(u *entity.User) *dto.UserResponse {
	return &dto.UserResponse{
		ID:          u.ID,
		Email:       u.Email,
		Name:        u.Name,
		Role:        string(u.Role),
		Permissions: u.Permissions.Strings(),
		Status:      u.Status,
		CreatedBy:   u.CreatedBy,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}
