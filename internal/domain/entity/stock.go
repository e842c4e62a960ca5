package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockEntry cantidad disponible de un ingrediente (tabla stock, una fila por ingrediente).
// MinStock opcional: cuando Quantity <= MinStock el ingrediente está en stock bajo.
type StockEntry struct {
	IngredientID string
	Quantity     decimal.Decimal
	MinStock     *decimal.Decimal
	UpdatedBy    string
	UpdatedAt    time.Time
}

// IsLow indica si la cantidad está en o por debajo del mínimo.
func (s StockEntry) IsLow() bool {
	if s.MinStock == nil {
		return false
	}
	return s.Quantity.LessThanOrEqual(*s.MinStock)
}

// StockHistory registro de un cambio de cantidad (tabla stock_history).
type StockHistory struct {
	ID           string
	IngredientID string
	Previous     decimal.Decimal
	Quantity     decimal.Decimal
	ChangedBy    string
	CreatedAt    time.Time
}
