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

var _ repository.RDRepository = (*RDRepo)(nil)

// RDRepo categorías y productos de I+D.
type RDRepo struct {
	q Querier
}

// NewRDRepository construye el repositorio de I+D.
func NewRDRepository(q Querier) *RDRepo {
	return &RDRepo{q: q}
}

const rdProductColumns = `id, category_id, name, description, status, created_by, approved_by, approved_at,
	order_id, created_at, updated_at`

// CreateCategory inserta una categoría; nombre repetido devuelve domain.ErrDuplicate.
func (r *RDRepo) CreateCategory(ctx context.Context, c *entity.RDCategory) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO rd_categories (id, name, description, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5)`, c.ID, c.Name, c.Description, c.CreatedBy, c.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert rd category: %w", err)
	}
	return nil
}

// ListCategories lista las categorías por nombre.
func (r *RDRepo) ListCategories(ctx context.Context) ([]*entity.RDCategory, error) {
	rows, err := r.q.Query(ctx, `SELECT id, name, description, created_by, created_at FROM rd_categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list rd categories: %w", err)
	}
	defer rows.Close()
	var list []*entity.RDCategory
	for rows.Next() {
		var c entity.RDCategory
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.CreatedBy, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan rd category: %w", err)
		}
		list = append(list, &c)
	}
	return list, rows.Err()
}

// CreateProduct inserta un producto en desarrollo.
func (r *RDRepo) CreateProduct(ctx context.Context, p *entity.RDProduct) error {
	_, err := r.q.Exec(ctx, `INSERT INTO rd_products (`+rdProductColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		p.ID, p.CategoryID, p.Name, p.Description, p.Status, p.CreatedBy, p.ApprovedBy, p.ApprovedAt,
		p.OrderID, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert rd product: %w", err)
	}
	return nil
}

// GetProduct devuelve (nil, nil) si no existe. Dentro de una tx bloquea la fila.
func (r *RDRepo) GetProduct(ctx context.Context, id string) (*entity.RDProduct, error) {
	query := `SELECT ` + rdProductColumns + ` FROM rd_products WHERE id = $1`
	if _, inTx := r.q.(pgx.Tx); inTx {
		query += ` FOR UPDATE`
	}
	p, err := scanRDProduct(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get rd product: %w", err)
	}
	return p, nil
}

// ListProducts lista productos, filtrando por categoría si categoryID no está vacío.
func (r *RDRepo) ListProducts(ctx context.Context, categoryID string) ([]*entity.RDProduct, error) {
	query := `SELECT ` + rdProductColumns + ` FROM rd_products
		WHERE ($1 = '' OR category_id::text = $1) ORDER BY created_at DESC`
	rows, err := r.q.Query(ctx, query, categoryID)
	if err != nil {
		return nil, fmt.Errorf("list rd products: %w", err)
	}
	defer rows.Close()
	var list []*entity.RDProduct
	for rows.Next() {
		p, err := scanRDProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan rd product: %w", err)
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

// UpdateProduct guarda estado, aprobación y pedido generado.
func (r *RDRepo) UpdateProduct(ctx context.Context, p *entity.RDProduct) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE rd_products
		SET name = $2, description = $3, status = $4, approved_by = $5, approved_at = $6, order_id = $7, updated_at = $8
		WHERE id = $1`, p.ID, p.Name, p.Description, p.Status, p.ApprovedBy, p.ApprovedAt, p.OrderID, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update rd product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanRDProduct(row pgx.Row) (*entity.RDProduct, error) {
	var p entity.RDProduct
	err := row.Scan(&p.ID, &p.CategoryID, &p.Name, &p.Description, &p.Status, &p.CreatedBy, &p.ApprovedBy,
		&p.ApprovedAt, &p.OrderID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
