package repository

import (
	"context"

	"github.com/jhoicas/cokelateh-api/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// StockRepository define el puerto para el stock por ingrediente.
type StockRepository interface {
	Get(ctx context.Context, ingredientID string) (*entity.StockEntry, error)
	List(ctx context.Context) ([]*entity.StockEntry, error)
	ListLow(ctx context.Context) ([]*entity.StockEntry, error)
	// SetQuantity escribe la cantidad y el mínimo, y registra el cambio en stock_history.
	SetQuantity(ctx context.Context, ingredientID string, qty decimal.Decimal, minStock *decimal.Decimal, changedBy string) error
	// EnsureEntries crea con cantidad 0 las entradas que faltan. Devuelve cuántas creó.
	EnsureEntries(ctx context.Context) (int, error)
	History(ctx context.Context, ingredientID string, limit int) ([]*entity.StockHistory, error)
}
