// Package rd gestiona las categorías y productos de I+D y su paso a producción.
package rd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/cokelateh-api/internal/application/dto"
	"github.com/jhoicas/cokelateh-api/internal/domain"
	"github.com/jhoicas/cokelateh-api/internal/domain/entity"
	"github.com/jhoicas/cokelateh-api/internal/domain/repository"
)

// Estados desde los que un producto puede pasar a producción.
var productionReady = map[string]bool{
	entity.RDStatusTesting:  true,
	entity.RDStatusApproved: true,
}

// UseCase casos de uso de I+D. PostgreSQL es la única fuente de datos; los datos
// de demostración solo se cargan con cmd/seed.
type UseCase struct {
	repo     repository.RDRepository
	txRunner TxRunner
	audit    AuditRecorder
	log      zerolog.Logger
	now      func() time.Time
}

// NewUseCase construye el caso de uso.
func NewUseCase(repo repository.RDRepository, txRunner TxRunner, audit AuditRecorder, log zerolog.Logger) *UseCase {
	return &UseCase{repo: repo, txRunner: txRunner, audit: audit, log: log, now: time.Now}
}

// CreateCategory crea una categoría.
func (uc *UseCase) CreateCategory(ctx context.Context, in dto.CreateRDCategoryRequest, actor *entity.User) (*dto.RDCategoryResponse, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, domain.ErrInvalidInput
	}
	c := &entity.RDCategory{
		ID:          uuid.New().String(),
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		CreatedBy:   actor.ID,
		CreatedAt:   uc.now(),
	}
	if err := uc.repo.CreateCategory(ctx, c); err != nil {
		return nil, err
	}
	uc.record(ctx, actor, entity.AuditActionCreate, "rd_category", c.ID, "alta de categoría "+c.Name)
	return toCategoryResponse(c), nil
}

// ListCategories lista las categorías.
func (uc *UseCase) ListCategories(ctx context.Context) ([]dto.RDCategoryResponse, error) {
	list, err := uc.repo.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]dto.RDCategoryResponse, 0, len(list))
	for _, c := range list {
		out = append(out, *toCategoryResponse(c))
	}
	return out, nil
}

// CreateProduct crea un producto en estado planning.
func (uc *UseCase) CreateProduct(ctx context.Context, in dto.CreateRDProductRequest, actor *entity.User) (*dto.RDProductResponse, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" || in.CategoryID == "" {
		return nil, domain.ErrInvalidInput
	}
	now := uc.now()
	p := &entity.RDProduct{
		ID:          uuid.New().String(),
		CategoryID:  in.CategoryID,
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		Status:      entity.RDStatusPlanning,
		CreatedBy:   actor.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := uc.repo.CreateProduct(ctx, p); err != nil {
		return nil, err
	}
	uc.record(ctx, actor, entity.AuditActionCreate, "rd_product", p.ID, "alta de producto I+D "+p.Name)
	return ToProductResponse(p), nil
}

// ListProducts lista productos; categoryID vacío devuelve todos.
func (uc *UseCase) ListProducts(ctx context.Context, categoryID string) ([]dto.RDProductResponse, error) {
	list, err := uc.repo.ListProducts(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	out := make([]dto.RDProductResponse, 0, len(list))
	for _, p := range list {
		out = append(out, *ToProductResponse(p))
	}
	return out, nil
}

// UpdateStatus cambia el estado. Nunca crea pedidos: eso es MoveToProduction.
func (uc *UseCase) UpdateStatus(ctx context.Context, id, status string, actor *entity.User) (*dto.RDProductResponse, error) {
	if !entity.ValidRDStatus(status) {
		return nil, fmt.Errorf("%w: estado %q", domain.ErrInvalidInput, status)
	}
	p, err := uc.repo.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, domain.ErrNotFound
	}
	prev := p.Status
	p.Status = status
	p.UpdatedAt = uc.now()
	if status == entity.RDStatusApproved && p.ApprovedBy == nil {
		by, at := actor.ID, p.UpdatedAt
		p.ApprovedBy, p.ApprovedAt = &by, &at
	}
	if err := uc.repo.UpdateProduct(ctx, p); err != nil {
		return nil, err
	}
	uc.record(ctx, actor, entity.AuditActionUpdate, "rd_product", p.ID, fmt.Sprintf("estado %s -> %s", prev, status))
	return ToProductResponse(p), nil
}

// MoveToProduction crea un pedido de producción a partir de un producto en
// testing o approved. Un producto solo genera un pedido.
func (uc *UseCase) MoveToProduction(ctx context.Context, id string, qty decimal.Decimal, actor *entity.User) (*dto.OrderResponse, error) {
	if qty.IsZero() {
		qty = decimal.NewFromInt(1)
	}
	if qty.IsNegative() {
		return nil, domain.ErrInvalidInput
	}
	var order *entity.Order
	err := uc.txRunner.RunRD(ctx, func(rdRepo repository.RDRepository, orderRepo repository.OrderRepository) error {
		p, err := rdRepo.GetProduct(ctx, id)
		if err != nil {
			return err
		}
		if p == nil {
			return domain.ErrNotFound
		}
		if !productionReady[p.Status] {
			return fmt.Errorf("%w: el producto está en %s", domain.ErrConflict, p.Status)
		}
		if p.OrderID != nil {
			return fmt.Errorf("%w: el producto ya tiene pedido", domain.ErrConflict)
		}
		ref := p.ID
		order = &entity.Order{
			ID:          uuid.New().String(),
			Source:      entity.OrderSourceRDProduct,
			ReferenceID: &ref,
			ProductName: p.Name,
			Quantity:    qty,
			Status:      "pending",
			CreatedBy:   actor.ID,
			CreatedAt:   uc.now(),
		}
		if err := orderRepo.Create(ctx, order); err != nil {
			return err
		}
		p.OrderID = &order.ID
		p.UpdatedAt = order.CreatedAt
		return rdRepo.UpdateProduct(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	uc.record(ctx, actor, entity.AuditActionCreate, "order", order.ID, "pedido de producción desde I+D "+order.ProductName)
	return toOrderResponse(order), nil
}

func (uc *UseCase) record(ctx context.Context, actor *entity.User, action entity.AuditAction, entityType, id, desc string) {
	err := uc.audit.Record(ctx, entity.AuditLog{
		UserID:      actor.ID,
		UserEmail:   actor.Email,
		Action:      action,
		EntityType:  entityType,
		EntityID:    id,
		Description: desc,
	})
	if err != nil {
		uc.log.Warn().Err(err).Str("entity_type", entityType).Msg("auditoría de I+D")
	}
}

func toCategoryResponse(c *entity.RDCategory) *dto.RDCategoryResponse {
	return &dto.RDCategoryResponse{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
		CreatedBy:   c.CreatedBy,
		CreatedAt:   c.CreatedAt,
	}
}

// ToProductResponse convierte la entidad a su salida HTTP.
func ToProductResponse(p *entity.RDProduct) *dto.RDProductResponse {
	return &dto.RDProductResponse{
		ID:          p.ID,
		CategoryID:  p.CategoryID,
		Name:        p.Name,
		Description: p.Description,
		Status:      p.Status,
		CreatedBy:   p.CreatedBy,
		ApprovedBy:  p.ApprovedBy,
		ApprovedAt:  p.ApprovedAt,
		OrderID:     p.OrderID,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func toOrderResponse(o *entity.Order) *dto.OrderResponse {
	return &dto.OrderResponse{
		ID:          o.ID,
		Source:      o.Source,
		ReferenceID: o.ReferenceID,
		ProductName: o.ProductName,
		Quantity:    o.Quantity,
		Status:      o.Status,
		CreatedBy:   o.CreatedBy,
		CreatedAt:   o.CreatedAt,
	}
}
