package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/cokelateh-api/internal/application/dto"
	"github.com/jhoicas/cokelateh-api/internal/application/rd"
)

// RDHandler categorías y productos de I+D (protegido).
type RDHandler struct {
	uc *rd.UseCase
}

// NewRDHandler construye el handler.
func NewRDHandler(uc *rd.UseCase) *RDHandler {
	return &RDHandler{uc: uc}
}

// ListCategories godoc
// @Summary      Listar categorías de I+D
// @Tags         rd
// @Security     Bearer
// @Produce      json
// @Success      200  {array}  dto.RDCategoryResponse
// @Router       /api/rd/categories [get]
func (h *RDHandler) ListCategories(c *fiber.Ctx) error {
	out, err := h.uc.ListCategories(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// CreateCategory godoc
// @Summary      Crear categoría de I+D
// @Tags         rd
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateRDCategoryRequest  true  "Datos de la categoría"
// @Success      201   {object}  dto.RDCategoryResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/rd/categories [post]
func (h *RDHandler) CreateCategory(c *fiber.Ctx) error {
	var in dto.CreateRDCategoryRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.uc.CreateCategory(c.UserContext(), in, GetUser(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// ListProducts godoc
// @Summary      Listar productos de I+D
// @Tags         rd
// @Security     Bearer
// @Produce      json
// @Param        category_id  query  string  false  "filtrar por categoría"
// @Success      200  {array}  dto.RDProductResponse
// @Router       /api/rd/products [get]
func (h *RDHandler) ListProducts(c *fiber.Ctx) error {
	out, err := h.uc.ListProducts(c.UserContext(), c.Query("category_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// CreateProduct godoc
// @Summary      Crear producto de I+D
// @Tags         rd
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateRDProductRequest  true  "Datos del producto"
// @Success      201   {object}  dto.RDProductResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/rd/products [post]
func (h *RDHandler) CreateProduct(c *fiber.Ctx) error {
	var in dto.CreateRDProductRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.uc.CreateProduct(c.UserContext(), in, GetUser(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// UpdateStatus godoc
// @Summary      Cambiar el estado de un producto de I+D
// @Description  No crea pedidos; para eso está POST .../production.
// @Tags         rd
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                     true  "ID del producto"
// @Param        body  body  dto.UpdateRDStatusRequest  true  "nuevo estado"
// @Success      200  {object}  dto.RDProductResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/rd/products/{id}/status [patch]
func (h *RDHandler) UpdateStatus(c *fiber.Ctx) error {
	var in dto.UpdateRDStatusRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.uc.UpdateStatus(c.UserContext(), c.Params("id"), in.Status, GetUser(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// MoveToProduction godoc
// @Summary      Pasar un producto de I+D a producción
// @Description  Crea un pedido de producción. Solo desde testing o approved y una única vez.
// @Tags         rd
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                       true  "ID del producto"
// @Param        body  body  dto.MoveToProductionRequest  false "cantidad (1 por defecto)"
// @Success      201  {object}  dto.OrderResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/rd/products/{id}/production [post]
func (h *RDHandler) MoveToProduction(c *fiber.Ctx) error {
	var in dto.MoveToProductionRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&in); err != nil {
			return badBody(c)
		}
	}
	out, err := h.uc.MoveToProduction(c.UserContext(), c.Params("id"), in.Quantity, GetUser(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}
