package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/cokelateh-api/internal/application/dto"
	"github.com/jhoicas/cokelateh-api/internal/domain"
)

type errorMapping struct {
	err    error
	status int
	code   string
}

// errorTable errores de dominio a estado HTTP y código. El primero que coincide gana.
var errorTable = []errorMapping{
	{domain.ErrQuantityOutOfRange, fiber.StatusUnprocessableEntity, "OUT_OF_RANGE"},
	{domain.ErrInvalidInput, fiber.StatusBadRequest, "VALIDATION"},
	{domain.ErrInvalidCredentials, fiber.StatusUnauthorized, "INVALID_CREDENTIALS"},
	{domain.ErrUnknownAccount, fiber.StatusUnauthorized, "UNKNOWN_ACCOUNT"},
	{domain.ErrNotProvisioned, fiber.StatusForbidden, "NOT_PROVISIONED"},
	{domain.ErrTooManyRequests, fiber.StatusTooManyRequests, "TOO_MANY_REQUESTS"},
	{domain.ErrNetwork, fiber.StatusServiceUnavailable, "NETWORK"},
	{domain.ErrTimeout, fiber.StatusGatewayTimeout, "TIMEOUT"},
	{domain.ErrLoginSuperseded, fiber.StatusConflict, "SUPERSEDED"},
	{domain.ErrChallengeNotReady, fiber.StatusServiceUnavailable, "VERIFIER_NOT_READY"},
	{domain.ErrNoPendingVerification, fiber.StatusConflict, "NO_PENDING_VERIFICATION"},
	{domain.ErrInvalidCode, fiber.StatusUnauthorized, "INVALID_CODE"},
	{domain.ErrNotAuthenticated, fiber.StatusUnauthorized, "NOT_AUTHENTICATED"},
	{domain.ErrUnauthorized, fiber.StatusUnauthorized, "UNAUTHORIZED"},
	{domain.ErrForbidden, fiber.StatusForbidden, "FORBIDDEN"},
	{domain.ErrUserNotFound, fiber.StatusNotFound, "USER_NOT_FOUND"},
	{domain.ErrNotFound, fiber.StatusNotFound, "NOT_FOUND"},
	{domain.ErrEmailAlreadyExists, fiber.StatusConflict, "EMAIL_EXISTS"},
	{domain.ErrDuplicate, fiber.StatusConflict, "DUPLICATE"},
	{domain.ErrSaveInProgress, fiber.StatusConflict, "SAVE_IN_PROGRESS"},
	{domain.ErrConflict, fiber.StatusConflict, "CONFLICT"},
}

// errorStatus devuelve estado y código para err; INTERNAL si no es de dominio.
func errorStatus(err error) (int, string) {
	for _, m := range errorTable {
		if errors.Is(err, m.err) {
			return m.status, m.code
		}
	}
	return fiber.StatusInternalServerError, "INTERNAL"
}

// writeError responde con dto.ErrorResponse según el error de dominio.
func writeError(c *fiber.Ctx, err error) error {
	status, code := errorStatus(err)
	msg := err.Error()
	if status == fiber.StatusInternalServerError {
		msg = "error interno"
	}
	return c.Status(status).JSON(dto.ErrorResponse{Code: code, Message: msg})
}

func badBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
}
