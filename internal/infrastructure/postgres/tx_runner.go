package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/cokelateh-api/internal/application/approval"
	"github.com/jhoicas/cokelateh-api/internal/application/rd"
	"github.com/jhoicas/cokelateh-api/internal/domain/repository"
)

var (
	_ rd.TxRunner       = (*TxRunner)(nil)
	_ approval.TxRunner = (*TxRunner)(nil)
)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL.
type TxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner construye el runner con el pool.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// RunRD ejecuta fn con los repos de I+D y pedidos atados a la misma tx.
func (r *TxRunner) RunRD(ctx context.Context, fn func(rdRepo repository.RDRepository, orderRepo repository.OrderRepository) error) error {
	return r.run(ctx, func(tx pgx.Tx) error {
		return fn(NewRDRepository(tx), NewOrderRepository(tx))
	})
}

// RunApproval ejecuta fn con los repos de formularios e I+D atados a la misma tx.
func (r *TxRunner) RunApproval(ctx context.Context, fn func(formRepo repository.ApprovalFormRepository, rdRepo repository.RDRepository) error) error {
	return r.run(ctx, func(tx pgx.Tx) error {
		return fn(NewApprovalFormRepository(tx), NewRDRepository(tx))
	})
}

// run inicia la transacción, ejecuta fn y hace Commit o Rollback.
func (r *TxRunner) run(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
