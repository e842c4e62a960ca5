package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Ingredient materia prima del obrador (cacao, manteca, azúcar...).
type Ingredient struct {
	ID        string
	Name      string
	Unit      string // kg, g, l, unidad
	MinStock  *decimal.Decimal
	CreatedAt time.Time
	UpdatedAt time.Time
}
