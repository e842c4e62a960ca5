package repository

import (
	"context"

	"github.com/jhoicas/cokelateh-api/internal/domain/entity"
)

// OrderRepository puerto de persistencia de pedidos de producción.
type OrderRepository interface {
	Create(ctx context.Context, o *entity.Order) error
}
