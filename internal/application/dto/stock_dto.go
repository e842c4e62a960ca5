package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateIngredientRequest body para POST /api/ingredients.
type CreateIngredientRequest struct {
	Name     string           `json:"name" validate:"required,max=200"`
	Unit     string           `json:"unit" validate:"required,max=20"`
	MinStock *decimal.Decimal `json:"min_stock,omitempty"`
}

// IngredientResponse salida de un ingrediente.
type IngredientResponse struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Unit      string           `json:"unit"`
	MinStock  *decimal.Decimal `json:"min_stock,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}

// EditStockRequest body para PATCH /api/stock/:ingredientId. Quantity es
// obligatoria: un cuerpo sin ella no se interpreta como cero.
type EditStockRequest struct {
	Quantity *decimal.Decimal `json:"quantity"`
}

// StockItemResponse estado de stock de un ingrediente: valor local, remoto y
// estado de la sincronización.
type StockItemResponse struct {
	IngredientID string           `json:"ingredient_id"`
	Name         string           `json:"name,omitempty"`
	Unit         string           `json:"unit,omitempty"`
	Local        decimal.Decimal  `json:"local"`
	Quantity     decimal.Decimal  `json:"quantity"`
	MinStock     *decimal.Decimal `json:"min_stock,omitempty"`
	Pending      *decimal.Decimal `json:"pending,omitempty"`
	Phase        string           `json:"phase"`
	Editing      bool             `json:"editing"`
	Saving       bool             `json:"saving"`
	Retries      int              `json:"retries"`
	Low          bool             `json:"low"`
	LastError    string           `json:"last_error,omitempty"`
}

// StockHistoryResponse un cambio registrado en stock_history.
type StockHistoryResponse struct {
	ID        string          `json:"id"`
	Previous  decimal.Decimal `json:"previous"`
	Quantity  decimal.Decimal `json:"quantity"`
	ChangedBy string          `json:"changed_by"`
	CreatedAt time.Time       `json:"created_at"`
}
