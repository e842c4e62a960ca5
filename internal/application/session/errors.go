package session

import (
	"context"
	"errors"

	"github.com/jhoicas/cokelateh-api/internal/domain"
)

// translateError reduce los errores del proveedor a las categorías visibles
// para el usuario. Los errores no reconocidos pasan sin cambios.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		switch pe.Code {
		case CodeWrongPassword, CodeInvalidCredential, CodeInvalidEmail, CodeEmailInUse:
			return domain.ErrInvalidCredentials
		case CodeUserNotFound:
			return domain.ErrUnknownAccount
		case CodeTooManyRequests:
			return domain.ErrTooManyRequests
		case CodeNetworkFailed:
			return domain.ErrNetwork
		case CodeInvalidCode:
			return domain.ErrInvalidCode
		case CodeCodeExpired:
			return domain.ErrNoPendingVerification
		}
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.ErrTimeout
	}
	return err
}

func isProviderCode(err error, code ProviderCode) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Code == code
}
