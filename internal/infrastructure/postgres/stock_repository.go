package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/cokelateh-api/internal/domain"
	"github.com/jhoicas/cokelateh-api/internal/domain/entity"
	"github.com/jhoicas/cokelateh-api/internal/domain/repository"
)

var _ repository.StockRepository = (*StockRepo)(nil)

// StockRepo implementación de StockRepository sobre PostgreSQL (usable con pool o tx).
type StockRepo struct {
	q Querier
}

// NewStockRepository construye el adaptador de stock. Pasar pool o tx (Querier).
func NewStockRepository(q Querier) *StockRepo {
	return &StockRepo{q: q}
}

const stockColumns = `ingredient_id, quantity, min_stock, updated_by, updated_at`

// Get obtiene el stock de un ingrediente. Devuelve (nil, nil) si no hay entrada.
func (r *StockRepo) Get(ctx context.Context, ingredientID string) (*entity.StockEntry, error) {
	var s entity.StockEntry
	err := r.q.QueryRow(ctx, `SELECT `+stockColumns+` FROM stock WHERE ingredient_id = $1`, ingredientID).Scan(
		&s.IngredientID, &s.Quantity, &s.MinStock, &s.UpdatedBy, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get stock: %w", err)
	}
	return &s, nil
}

// List devuelve todas las entradas de stock.
func (r *StockRepo) List(ctx context.Context) ([]*entity.StockEntry, error) {
	return r.list(ctx, `SELECT `+stockColumns+` FROM stock ORDER BY ingredient_id`)
}

// ListLow devuelve las entradas con cantidad en o por debajo del mínimo.
func (r *StockRepo) ListLow(ctx context.Context) ([]*entity.StockEntry, error) {
	return r.list(ctx, `
		SELECT `+stockColumns+` FROM stock
		WHERE min_stock IS NOT NULL AND quantity <= min_stock
		ORDER BY (min_stock - quantity) DESC`)
}

// SetQuantity escribe cantidad y mínimo y deja el cambio en stock_history, todo en una transacción.
// Con un Querier que ya es tx, Begin abre un savepoint.
func (r *StockRepo) SetQuantity(ctx context.Context, ingredientID string, qty decimal.Decimal, minStock *decimal.Decimal, changedBy string) error {
	tx, err := r.q.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var previous decimal.Decimal
	err = tx.QueryRow(ctx, `SELECT quantity FROM stock WHERE ingredient_id = $1 FOR UPDATE`, ingredientID).Scan(&previous)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("get stock for update: %w", err)
	}
	_, err = tx.Exec(ctx, `
		UPDATE stock SET quantity = $2, min_stock = $3, updated_by = $4, updated_at = now()
		WHERE ingredient_id = $1`, ingredientID, qty, minStock, changedBy)
	if err != nil {
		return fmt.Errorf("update stock: %w", err)
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO stock_history (id, ingredient_id, previous, quantity, changed_by, created_at)
		VALUES ($1, $2, $3, $4, $5, now())`, uuid.New().String(), ingredientID, previous, qty, changedBy)
	if err != nil {
		return fmt.Errorf("insert stock history: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// ensureBatchSize máximo de inserciones por lote en EnsureEntries.
const ensureBatchSize = 500

// EnsureEntries crea a cero las entradas de los ingredientes que no tienen fila en
// stock, en lotes de hasta ensureBatchSize inserciones.
func (r *StockRepo) EnsureEntries(ctx context.Context) (int, error) {
	rows, err := r.q.Query(ctx, `
		SELECT i.id, i.min_stock FROM ingredients i
		WHERE NOT EXISTS (SELECT 1 FROM stock s WHERE s.ingredient_id = i.id)`)
	if err != nil {
		return 0, fmt.Errorf("find missing stock entries: %w", err)
	}
	type missing struct {
		id       string
		minStock *decimal.Decimal
	}
	var pending []missing
	for rows.Next() {
		var m missing
		if err := rows.Scan(&m.id, &m.minStock); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan missing stock entry: %w", err)
		}
		pending = append(pending, m)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("find missing stock entries: %w", err)
	}

	created := 0
	for start := 0; start < len(pending); start += ensureBatchSize {
		end := min(start+ensureBatchSize, len(pending))
		batch := &pgx.Batch{}
		for _, m := range pending[start:end] {
			batch.Queue(`
				INSERT INTO stock (ingredient_id, quantity, min_stock, updated_at)
				VALUES ($1, 0, $2, now())
				ON CONFLICT (ingredient_id) DO NOTHING`, m.id, m.minStock)
		}
		n, err := r.sendEnsureBatch(ctx, batch)
		created += n
		if err != nil {
			return created, err
		}
	}
	return created, nil
}

func (r *StockRepo) sendEnsureBatch(ctx context.Context, batch *pgx.Batch) (int, error) {
	results := r.q.SendBatch(ctx, batch)
	defer results.Close()
	created := 0
	for i := 0; i < batch.Len(); i++ {
		tag, err := results.Exec()
		if err != nil {
			return created, fmt.Errorf("insert stock entry: %w", err)
		}
		created += int(tag.RowsAffected())
	}
	return created, nil
}

// History devuelve los últimos cambios del ingrediente, el más reciente primero.
func (r *StockRepo) History(ctx context.Context, ingredientID string, limit int) ([]*entity.StockHistory, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, ingredient_id, previous, quantity, changed_by, created_at
		FROM stock_history WHERE ingredient_id = $1
		ORDER BY created_at DESC LIMIT $2`, ingredientID, limit)
	if err != nil {
		return nil, fmt.Errorf("list stock history: %w", err)
	}
	defer rows.Close()
	var list []*entity.StockHistory
	for rows.Next() {
		var h entity.StockHistory
		if err := rows.Scan(&h.ID, &h.IngredientID, &h.Previous, &h.Quantity, &h.ChangedBy, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan stock history: %w", err)
		}
		list = append(list, &h)
	}
	return list, rows.Err()
}

func (r *StockRepo) list(ctx context.Context, query string) ([]*entity.StockEntry, error) {
	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list stock: %w", err)
	}
	defer rows.Close()
	var list []*entity.StockEntry
	for rows.Next() {
		var s entity.StockEntry
		if err := rows.Scan(&s.IngredientID, &s.Quantity, &s.MinStock, &s.UpdatedBy, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan stock: %w", err)
		}
		list = append(list, &s)
	}
	return list, rows.Err()
}
