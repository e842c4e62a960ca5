package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Orígenes de un pedido.
const (
	OrderSourceManual    = "manual"
	OrderSourceRDProduct = "rd_product"
)

// Order pedido de producción (tabla orders).
type Order struct {
	ID          string
	Source      string
	ReferenceID *string
	ProductName string
	Quantity    decimal.Decimal
	Status      string // pending, in_production, done
	CreatedBy   string
	CreatedAt   time.Time
}
