package repository

import (
	"context"

	"github.com/jhoicas/cokelateh-api/internal/domain/entity"
)

// IngredientRepository puerto de persistencia de ingredientes.
type IngredientRepository interface {
	Create(ctx context.Context, ing *entity.Ingredient) error
	GetByID(ctx context.Context, id string) (*entity.Ingredient, error)
	List(ctx context.Context) ([]*entity.Ingredient, error)
}
