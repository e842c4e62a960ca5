package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateRDCategoryRequest body para POST /api/rd/categories.
type CreateRDCategoryRequest struct {
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description"`
}

// RDCategoryResponse salida de una categoría de I+D.
type RDCategoryResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
}

// CreateRDProductRequest body para POST /api/rd/products.
type CreateRDProductRequest struct {
	CategoryID  string `json:"category_id" validate:"required"`
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description"`
}

// UpdateRDStatusRequest body para PATCH /api/rd/products/:id/status.
type UpdateRDStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=planning development testing approved rejected"`
}

// MoveToProductionRequest body para POST /api/rd/products/:id/production.
type MoveToProductionRequest struct {
	Quantity decimal.Decimal `json:"quantity"`
}

// RDProductResponse salida de un producto de I+D.
type RDProductResponse struct {
	ID          string     `json:"id"`
	CategoryID  string     `json:"category_id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	CreatedBy   string     `json:"created_by"`
	ApprovedBy  *string    `json:"approved_by,omitempty"`
	ApprovedAt  *time.Time `json:"approved_at,omitempty"`
	OrderID     *string    `json:"order_id,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// OrderResponse pedido de producción creado.
type OrderResponse struct {
	ID          string          `json:"id"`
	Source      string          `json:"source"`
	ReferenceID *string         `json:"reference_id,omitempty"`
	ProductName string          `json:"product_name"`
	Quantity    decimal.Decimal `json:"quantity"`
	Status      string          `json:"status"`
	CreatedBy   string          `json:"created_by"`
	CreatedAt   time.Time       `json:"created_at"`
}
