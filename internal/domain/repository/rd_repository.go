package repository

import (
	"context"

	"github.com/jhoicas/cokelateh-api/internal/domain/entity"
)

// RDRepository puerto de persistencia de categorías y productos de I+D.
type RDRepository interface {
	CreateCategory(ctx context.Context, c *entity.RDCategory) error
	ListCategories(ctx context.Context) ([]*entity.RDCategory, error)
	CreateProduct(ctx context.Context, p *entity.RDProduct) error
	GetProduct(ctx context.Context, id string) (*entity.RDProduct, error)
	ListProducts(ctx context.Context, categoryID string) ([]*entity.RDProduct, error)
	UpdateProduct(ctx context.Context, p *entity.RDProduct) error
}
