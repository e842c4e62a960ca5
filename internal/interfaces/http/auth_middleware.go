package http

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/cokelateh-api/internal/application/dto"
	"github.com/jhoicas/cokelateh-api/internal/application/session"
	"github.com/jhoicas/cokelateh-api/internal/domain/entity"
	"github.com/jhoicas/cokelateh-api/pkg/jwt"
)

// Locals keys en Fiber.
const (
	LocalUserID    = "user_id"
	LocalSessionID = "session_id"
	LocalRole      = "role"
	LocalUser      = "user"
	LocalManager   = "session_manager"
)

// SessionSource devuelve el gestor de una sesión de cliente. Lo implementa *session.Registry.
type SessionSource interface {
	Get(ctx context.Context, sessionID string) (*session.Manager, error)
}

// AuthMiddleware valida el Bearer Token JWT y comprueba que la sesión de cliente
// del token sigue iniciada con el mismo usuario. Un token de una sesión cerrada
// responde 401 aunque no haya expirado.
func AuthMiddleware(jwtSecret string, sessions SessionSource) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "MISSING_TOKEN", Message: "Authorization header requerido"})
		}
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "INVALID_TOKEN", Message: "formato: Bearer <token>"})
		}
		tokenString := strings.TrimSpace(parts[1])
		if tokenString == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "MISSING_TOKEN", Message: "token vacío"})
		}
		claims, err := jwt.Parse(jwtSecret, tokenString)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "INVALID_TOKEN", Message: "token inválido o expirado"})
		}
		if claims.Role == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "MISSING_ROLE", Message: "el token no incluye rol"})
		}

		mgr, err := sessions.Get(c.UserContext(), claims.SessionID)
		if err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{Code: "SESSION_UNAVAILABLE", Message: "no se pudo cargar la sesión"})
		}
		view := mgr.Current()
		if view.User == nil || view.User.ID != claims.UserID {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "SESSION_ENDED", Message: "la sesión ya no está iniciada"})
		}

		c.Locals(LocalUserID, claims.UserID)
		c.Locals(LocalSessionID, claims.SessionID)
		c.Locals(LocalRole, string(view.User.Role))
		c.Locals(LocalUser, view.User)
		c.Locals(LocalManager, mgr)
		return c.Next()
	}
}

// RequirePermission responde 403 si el usuario de la sesión no tiene el permiso.
// Debe usarse después de AuthMiddleware.
func RequirePermission(p entity.Permission) fiber.Handler {
	return func(c *fiber.Ctx) error {
		mgr := GetManager(c)
		if mgr == nil {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "sesión no iniciada"})
		}
		if !mgr.HasPermission(p) {
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
				Code:    "FORBIDDEN",
				Message: "se requiere el permiso " + string(p),
			})
		}
		return c.Next()
	}
}

// GetUserID devuelve el UserID del contexto (después del middleware de auth).
func GetUserID(c *fiber.Ctx) string {
	s, _ := c.Locals(LocalUserID).(string)
	return s
}

// GetSessionID devuelve la sesión de cliente (cookie o token).
func GetSessionID(c *fiber.Ctx) string {
	s, _ := c.Locals(LocalSessionID).(string)
	return s
}

// GetRole devuelve el rol del usuario autenticado.
func GetRole(c *fiber.Ctx) string {
	s, _ := c.Locals(LocalRole).(string)
	return s
}

// GetUser devuelve una copia del usuario autenticado.
func GetUser(c *fiber.Ctx) *entity.User {
	u, _ := c.Locals(LocalUser).(*entity.User)
	return u
}

// GetManager devuelve el gestor de la sesión autenticada.
func GetManager(c *fiber.Ctx) *session.Manager {
	m, _ := c.Locals(LocalManager).(*session.Manager)
	return m
}
