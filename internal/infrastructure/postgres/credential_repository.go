package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/cokelateh-api/internal/domain"
	"github.com/jhoicas/cokelateh-api/internal/domain/entity"
	"github.com/jhoicas/cokelateh-api/internal/domain/repository"
)

var _ repository.CredentialRepository = (*CredentialRepo)(nil)

// CredentialRepo cuentas del proveedor de identidad (tabla identities).
type CredentialRepo struct {
	q Querier
}

// NewCredentialRepository construye el repositorio de credenciales.
func NewCredentialRepository(q Querier) *CredentialRepo {
	return &CredentialRepo{q: q}
}

// Create da de alta una cuenta.
func (r *CredentialRepo) Create(ctx context.Context, c *entity.Credential) error {
	query := `
		INSERT INTO identities (uid, email, password_hash, phone, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := r.q.Exec(ctx, query, c.UID, c.Email, c.PasswordHash, c.Phone, c.CreatedAt, c.UpdatedAt); err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert identity: %w", err)
	}
	return nil
}

// GetByEmail busca la cuenta por email sin distinguir mayúsculas.
func (r *CredentialRepo) GetByEmail(ctx context.Context, email string) (*entity.Credential, error) {
	return r.findOne(ctx, `
		SELECT uid, email, password_hash, phone, created_at, updated_at
		FROM identities WHERE lower(email) = lower($1)`, email)
}

// GetByUID busca la cuenta por UID.
func (r *CredentialRepo) GetByUID(ctx context.Context, uid string) (*entity.Credential, error) {
	return r.findOne(ctx, `
		SELECT uid, email, password_hash, phone, created_at, updated_at
		FROM identities WHERE uid = $1`, uid)
}

// UpdatePassword reemplaza el hash de la contraseña.
func (r *CredentialRepo) UpdatePassword(ctx context.Context, uid, passwordHash string) error {
	return r.update(ctx, `UPDATE identities SET password_hash = $2, updated_at = now() WHERE uid = $1`, uid, passwordHash)
}

// SetPhone registra el teléfono del segundo factor.
func (r *CredentialRepo) SetPhone(ctx context.Context, uid, phone string) error {
	return r.update(ctx, `UPDATE identities SET phone = $2, updated_at = now() WHERE uid = $1`, uid, phone)
}

func (r *CredentialRepo) update(ctx context.Context, query, uid, value string) error {
	tag, err := r.q.Exec(ctx, query, uid, value)
	if err != nil {
		return fmt.Errorf("update identity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *CredentialRepo) findOne(ctx context.Context, query, arg string) (*entity.Credential, error) {
	var c entity.Credential
	err := r.q.QueryRow(ctx, query, arg).Scan(&c.UID, &c.Email, &c.PasswordHash, &c.Phone, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get identity: %w", err)
	}
	return &c, nil
}
