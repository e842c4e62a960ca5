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

var _ repository.ApprovalFormRepository = (*ApprovalFormRepo)(nil)

// ApprovalFormRepo formularios de aprobación sobre PostgreSQL.
type ApprovalFormRepo struct {
	q Querier
}

// NewApprovalFormRepository construye el repositorio.
func NewApprovalFormRepository(q Querier) *ApprovalFormRepo {
	return &ApprovalFormRepo{q: q}
}

const approvalColumns = `id, title, description, rd_product_id, status, created_by, approved_by, approved_at,
	rejection_reason, created_at, updated_at`

// Create inserta un formulario.
func (r *ApprovalFormRepo) Create(ctx context.Context, f *entity.ApprovalForm) error {
	query := `INSERT INTO approval_forms (` + approvalColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := r.q.Exec(ctx, query,
		f.ID, f.Title, f.Description, f.RDProductID, f.Status, f.CreatedBy, f.ApprovedBy, f.ApprovedAt,
		f.RejectionReason, f.CreatedAt, f.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert approval form: %w", err)
	}
	return nil
}

// GetByID devuelve (nil, nil) si no existe. Dentro de una transacción bloquea
// la fila hasta el commit.
func (r *ApprovalFormRepo) GetByID(ctx context.Context, id string) (*entity.ApprovalForm, error) {
	query := `SELECT ` + approvalColumns + ` FROM approval_forms WHERE id = $1`
	if _, inTx := r.q.(pgx.Tx); inTx {
		query += ` FOR UPDATE`
	}
	f, err := scanApproval(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get approval form: %w", err)
	}
	return f, nil
}

// List lista formularios, filtrando por estado si status no está vacío.
func (r *ApprovalFormRepo) List(ctx context.Context, status string) ([]*entity.ApprovalForm, error) {
	query := `SELECT ` + approvalColumns + ` FROM approval_forms
		WHERE ($1 = '' OR status = $1) ORDER BY created_at DESC`
	rows, err := r.q.Query(ctx, query, status)
	if err != nil {
		return nil, fmt.Errorf("list approval forms: %w", err)
	}
	defer rows.Close()
	var list []*entity.ApprovalForm
	for rows.Next() {
		f, err := scanApproval(rows)
		if err != nil {
			return nil, fmt.Errorf("scan approval form: %w", err)
		}
		list = append(list, f)
	}
	return list, rows.Err()
}

// Update guarda la decisión sobre un formulario que sigue pendiente. Devuelve
// ErrConflict si no existe o ya fue decidido.
func (r *ApprovalFormRepo) Update(ctx context.Context, f *entity.ApprovalForm) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE approval_forms
		SET status = $2, approved_by = $3, approved_at = $4, rejection_reason = $5, updated_at = $6
		WHERE id = $1 AND status = $7`,
		f.ID, f.Status, f.ApprovedBy, f.ApprovedAt, f.RejectionReason, f.UpdatedAt, entity.ApprovalStatusPending)
	if err != nil {
		return fmt.Errorf("update approval form: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: el formulario ya no está pendiente", domain.ErrConflict)
	}
	return nil
}

func scanApproval(row pgx.Row) (*entity.ApprovalForm, error) {
	var f entity.ApprovalForm
	err := row.Scan(&f.ID, &f.Title, &f.Description, &f.RDProductID, &f.Status, &f.CreatedBy, &f.ApprovedBy,
		&f.ApprovedAt, &f.RejectionReason, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &f, nil
}
