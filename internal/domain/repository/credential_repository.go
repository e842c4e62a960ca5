package repository

import (
	"context"

	"github.com/jhoicas/cokelateh-api/internal/domain/entity"
)

// CredentialRepository persistencia de las cuentas del proveedor de identidad.
// Los Get devuelven (nil, nil) si no existe; Create devuelve domain.ErrDuplicate
// si el email ya está registrado.
type CredentialRepository interface {
	Create(ctx context.Context, c *entity.Credential) error
	GetByEmail(ctx context.Context, email string) (*entity.Credential, error)
	GetByUID(ctx context.Context, uid string) (*entity.Credential, error)
	UpdatePassword(ctx context.Context, uid, passwordHash string) error
	SetPhone(ctx context.Context, uid, phone string) error
}
