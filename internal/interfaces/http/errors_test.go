package http

import (
	"errors"
	"fmt"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/cokelateh-api/internal/domain"
)

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{fmt.Errorf("%w: negativa", domain.ErrQuantityOutOfRange), fiber.StatusUnprocessableEntity, "OUT_OF_RANGE"},
		{domain.ErrNoPendingVerification, fiber.StatusConflict, "NO_PENDING_VERIFICATION"},
		{domain.ErrTimeout, fiber.StatusGatewayTimeout, "TIMEOUT"},
		{domain.ErrChallengeNotReady, fiber.StatusServiceUnavailable, "VERIFIER_NOT_READY"},
		{fmt.Errorf("guardar: %w", domain.ErrSaveInProgress), fiber.StatusConflict, "SAVE_IN_PROGRESS"},
		{errors.New("pg caído"), fiber.StatusInternalServerError, "INTERNAL"},
	}
	for _, tt := range tests {
		status, code := errorStatus(tt.err)
		assert.Equal(t, tt.status, status, tt.err.Error())
		assert.Equal(t, tt.code, code, tt.err.Error())
	}
}
