package session

import (
	"context"
	"fmt"

	"github.com/jhoicas/cokelateh-api/internal/domain/entity"
)

// IdentityProvider capacidad opaca del proveedor de identidad: contraseña,
// alta de cuentas, segundo factor por teléfono y reautenticación.
type IdentityProvider interface {
	SignIn(ctx context.Context, email, password string) (*SignInResult, error)
	CreateAccount(ctx context.Context, email, password string) (uid string, err error)
	StartEnrollment(ctx context.Context, uid, phone string) (*Enrollment, error)
	EnrollSecondFactor(ctx context.Context, uid, verificationID, code string) error
	ResolveChallenge(ctx context.Context, resolver, code string) (uid string, err error)
	Reauthenticate(ctx context.Context, uid, password string) error
	UpdatePassword(ctx context.Context, uid, password string) error
}

// SignInResult resultado de SignIn. Si Resolver no está vacío la cuenta tiene
// segundo factor y el inicio de sesión queda a la espera del código.
type SignInResult struct {
	UID      string
	Resolver string
	Hint     string // teléfono enmascarado
}

// Enrollment verificación emitida al iniciar el alta de un segundo factor.
type Enrollment struct {
	VerificationID string
	Hint           string
}

// Verifier mecanismo anti-automatización que debe estar listo antes de un inicio de sesión.
type Verifier interface {
	Init(ctx context.Context) error
}

// AuditRecorder registra entradas de auditoría.
type AuditRecorder interface {
	Record(ctx context.Context, log entity.AuditLog) error
}

// ProviderCode códigos de error del proveedor de identidad.
type ProviderCode string

const (
	CodeWrongPassword     ProviderCode = "wrong-password"
	CodeInvalidCredential ProviderCode = "invalid-credential"
	CodeInvalidEmail      ProviderCode = "invalid-email"
	CodeUserNotFound      ProviderCode = "user-not-found"
	CodeEmailInUse        ProviderCode = "email-already-in-use"
	CodeTooManyRequests   ProviderCode = "too-many-requests"
	CodeNetworkFailed     ProviderCode = "network-request-failed"
	CodeInvalidCode       ProviderCode = "invalid-verification-code"
	CodeCodeExpired       ProviderCode = "code-expired"
	CodeWeakPassword      ProviderCode = "weak-password"
)

// ProviderError error tipado del proveedor de identidad.
type ProviderError struct {
	Code ProviderCode
	Err  error
}

// NewProviderError construye un ProviderError con mensaje libre.
func NewProviderError(code ProviderCode, format string, args ...any) *ProviderError {
	return &ProviderError{Code: code, Err: fmt.Errorf(format, args...)}
}

func (e *ProviderError) Error() string {
	if e.Err == nil {
		return "identity: " + string(e.Code)
	}
	return "identity: " + string(e.Code) + ": " + e.Err.Error()
}

func (e *ProviderError) Unwrap() error { return e.Err }
