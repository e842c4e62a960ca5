package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/cokelateh-api/internal/application/dto"
	"github.com/jhoicas/cokelateh-api/internal/application/stock"
	"github.com/jhoicas/cokelateh-api/internal/domain"
)

// StockHandler ingredientes y stock (protegido).
type StockHandler struct {
	uc *stock.UseCase
}

// NewStockHandler construye el handler.
func NewStockHandler(uc *stock.UseCase) *StockHandler {
	return &StockHandler{uc: uc}
}

// ListIngredients godoc
// @Summary      Listar ingredientes
// @Tags         ingredients
// @Security     Bearer
// @Produce      json
// @Success      200  {array}  dto.IngredientResponse
// @Router       /api/ingredients [get]
func (h *StockHandler) ListIngredients(c *fiber.Ctx) error {
	list, err := h.uc.ListIngredients(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(list)
}

// CreateIngredient godoc
// @Summary      Crear ingrediente
// @Description  Crea también su entrada de stock con cantidad 0.
// @Tags         ingredients
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateIngredientRequest  true  "Datos del ingrediente"
// @Success      201   {object}  dto.IngredientResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/ingredients [post]
func (h *StockHandler) CreateIngredient(c *fiber.Ctx) error {
	var in dto.CreateIngredientRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.uc.CreateIngredient(c.UserContext(), in, GetUser(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// List godoc
// @Summary      Stock de todos los ingredientes
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Success      200  {array}  dto.StockItemResponse
// @Router       /api/stock [get]
func (h *StockHandler) List(c *fiber.Ctx) error {
	items, err := h.uc.List(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(items)
}

// Low godoc
// @Summary      Ingredientes en o por debajo del mínimo
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Success      200  {array}  dto.StockItemResponse
// @Router       /api/stock/low [get]
func (h *StockHandler) Low(c *fiber.Ctx) error {
	items, err := h.uc.Low(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(items)
}

// Get godoc
// @Summary      Stock de un ingrediente
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        ingredientId  path  string  true  "ID del ingrediente"
// @Success      200  {object}  dto.StockItemResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/stock/{ingredientId} [get]
func (h *StockHandler) Get(c *fiber.Ctx) error {
	item, err := h.uc.Get(c.UserContext(), c.Params("ingredientId"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(item)
}

// Edit godoc
// @Summary      Editar la cantidad
// @Description  Sin autosave el valor queda pendiente hasta POST .../save; con autosave=true se guarda tras el debounce.
// @Tags         stock
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        ingredientId  path   string                true   "ID del ingrediente"
// @Param        autosave      query  bool                  false  "guardado diferido"
// @Param        body          body   dto.EditStockRequest  true   "cantidad"
// @Success      200  {object}  dto.StockItemResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      422  {object}  dto.ErrorResponse
// @Router       /api/stock/{ingredientId} [patch]
func (h *StockHandler) Edit(c *fiber.Ctx) error {
	var in dto.EditStockRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ErrorResponse{Code: "OUT_OF_RANGE", Message: "la cantidad debe ser un número"})
	}
	if in.Quantity == nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ErrorResponse{Code: "OUT_OF_RANGE", Message: "la cantidad es obligatoria"})
	}
	item, err := h.uc.Edit(c.UserContext(), c.Params("ingredientId"), *in.Quantity, c.QueryBool("autosave"), GetUserID(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(item)
}

// Save godoc
// @Summary      Guardar el valor pendiente
// @Description  202 si el guardado falló por conexión y se reintentará en segundo plano.
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        ingredientId  path  string  true  "ID del ingrediente"
// @Success      200  {object}  dto.StockItemResponse
// @Success      202  {object}  dto.StockItemResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/stock/{ingredientId}/save [post]
func (h *StockHandler) Save(c *fiber.Ctx) error {
	item, err := h.uc.Save(c.UserContext(), c.Params("ingredientId"), GetUserID(c))
	if errors.Is(err, domain.ErrSaveRetrying) {
		return c.Status(fiber.StatusAccepted).JSON(item)
	}
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(item)
}

// History godoc
// @Summary      Historial de cambios de un ingrediente
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        ingredientId  path   string  true   "ID del ingrediente"
// @Param        limit         query  int     false  "máximo 200"
// @Success      200  {array}  dto.StockHistoryResponse
// @Router       /api/stock/{ingredientId}/history [get]
func (h *StockHandler) History(c *fiber.Ctx) error {
	out, err := h.uc.History(c.UserContext(), c.Params("ingredientId"), c.QueryInt("limit", 50))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}
