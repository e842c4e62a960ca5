package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound           = errors.New("recurso no encontrado")
	ErrUserNotFound       = errors.New("usuario no encontrado")
	ErrEmailAlreadyExists = errors.New("el email ya está registrado")
	ErrInvalidInput       = errors.New("entrada inválida")
	ErrDuplicate          = errors.New("recurso duplicado")
	ErrUnauthorized       = errors.New("no autorizado")
	ErrForbidden          = errors.New("acceso denegado")
	ErrConflict           = errors.New("conflicto con el estado actual")
)

// Categorías de error de autenticación visibles para el usuario.
var (
	ErrInvalidCredentials    = errors.New("email o contraseña incorrectos")
	ErrUnknownAccount        = errors.New("no existe una cuenta con ese email")
	ErrNotProvisioned        = errors.New("la cuenta no está registrada en la aplicación")
	ErrTooManyRequests       = errors.New("demasiados intentos, inténtelo más tarde")
	ErrNetwork               = errors.New("error de red, verifique su conexión")
	ErrTimeout               = errors.New("la operación tardó demasiado, inténtelo de nuevo")
	ErrLoginSuperseded       = errors.New("inicio de sesión reemplazado por un intento más reciente")
	ErrChallengeNotReady     = errors.New("verificación de seguridad no inicializada")
	ErrNoPendingVerification = errors.New("no hay verificación pendiente, la sesión expiró")
	ErrInvalidCode           = errors.New("código de verificación inválido")
	ErrNotAuthenticated      = errors.New("no hay sesión iniciada")
)

// Errores del sincronizador de stock.
var (
	ErrQuantityOutOfRange = errors.New("cantidad fuera de rango")
	ErrSaveInProgress     = errors.New("ya hay un guardado en curso para este ingrediente")
	ErrSaveRetrying       = errors.New("sin conexión, el guardado se reintentará")
)
