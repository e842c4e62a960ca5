package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/cokelateh-api/internal/application/approval"
	"github.com/jhoicas/cokelateh-api/internal/application/dto"
)

// ApprovalHandler formularios de aprobación (protegido).
type ApprovalHandler struct {
	uc *approval.UseCase
}

// NewApprovalHandler construye el handler.
func NewApprovalHandler(uc *approval.UseCase) *ApprovalHandler {
	return &ApprovalHandler{uc: uc}
}

// List godoc
// @Summary      Listar formularios
// @Tags         approvals
// @Security     Bearer
// @Produce      json
// @Param        status  query  string  false  "pending|approved|rejected"
// @Success      200  {array}  dto.ApprovalFormResponse
// @Router       /api/approvals [get]
func (h *ApprovalHandler) List(c *fiber.Ctx) error {
	out, err := h.uc.List(c.UserContext(), c.Query("status"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Create godoc
// @Summary      Crear formulario de aprobación
// @Tags         approvals
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateApprovalFormRequest  true  "Datos del formulario"
// @Success      201   {object}  dto.ApprovalFormResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/approvals [post]
func (h *ApprovalHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateApprovalFormRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.uc.Create(c.UserContext(), in, GetUser(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// Approve godoc
// @Summary      Aprobar formulario pendiente
// @Tags         approvals
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del formulario"
// @Success      200  {object}  dto.ApprovalFormResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/approvals/{id}/approve [post]
func (h *ApprovalHandler) Approve(c *fiber.Ctx) error {
	out, err := h.uc.Approve(c.UserContext(), c.Params("id"), GetUser(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Reject godoc
// @Summary      Rechazar formulario pendiente
// @Tags         approvals
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string             true  "ID del formulario"
// @Param        body  body  dto.RejectRequest  true  "motivo"
// @Success      200  {object}  dto.ApprovalFormResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/approvals/{id}/reject [post]
func (h *ApprovalHandler) Reject(c *fiber.Ctx) error {
	var in dto.RejectRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.uc.Reject(c.UserContext(), c.Params("id"), in.Reason, GetUser(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}
