package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/cokelateh-api/internal/application/dto"
	"github.com/jhoicas/cokelateh-api/internal/application/session"
	"github.com/jhoicas/cokelateh-api/internal/application/users"
	"github.com/jhoicas/cokelateh-api/pkg/config"
	"github.com/jhoicas/cokelateh-api/pkg/jwt"
)

// LoginMetrics cuenta intentos de inicio de sesión por resultado.
type LoginMetrics interface {
	LoginAttempt(result string)
}

// SessionStore registro de sesiones de cliente. Lo implementa *session.Registry.
type SessionStore interface {
	SessionSource
	Remove(sessionID string)
}

// AuthHandler inicio y cierre de sesión, segundo factor y contraseña.
type AuthHandler struct {
	sessions     SessionStore
	jwtCfg       config.JWTConfig
	cookieSecure bool
	metrics      LoginMetrics
	log          zerolog.Logger
}

// NewAuthHandler construye el handler de auth. metrics puede ser nil.
func NewAuthHandler(sessions SessionStore, jwtCfg config.JWTConfig, cookieSecure bool, metrics LoginMetrics, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{sessions: sessions, jwtCfg: jwtCfg, cookieSecure: cookieSecure, metrics: metrics, log: log}
}

// Login godoc
// @Summary      Iniciar sesión
// @Description  Si la cuenta tiene segundo factor responde requires_mfa=true sin token.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body  dto.LoginRequest  true  "email, password"
// @Success      200   {object}  dto.LoginResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      401   {object}  dto.ErrorResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      504   {object}  dto.ErrorResponse
// @Router       /api/auth/login [post]
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var in dto.LoginRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	mgr, err := h.manager(c)
	if err != nil {
		return writeError(c, err)
	}
	res, err := mgr.Login(c.UserContext(), in.Email, in.Password)
	if err != nil {
		_, code := errorStatus(err)
		h.count(strings.ToLower(code))
		return writeError(c, err)
	}
	if res.RequiresMFA {
		h.count("mfa_required")
		return c.JSON(dto.LoginResponse{RequiresMFA: true, Hint: res.Hint})
	}
	h.count("ok")
	return h.issueToken(c, mgr)
}

// VerifyMFA godoc
// @Summary      Completar el inicio de sesión con el código del segundo factor
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CodeRequest  true  "código"
// @Success      200   {object}  dto.LoginResponse
// @Failure      401   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/auth/mfa/verify [post]
func (h *AuthHandler) VerifyMFA(c *fiber.Ctx) error {
	var in dto.CodeRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	mgr, err := h.manager(c)
	if err != nil {
		return writeError(c, err)
	}
	if err := mgr.VerifyMFACode(c.UserContext(), in.Code); err != nil {
		return writeError(c, err)
	}
	return h.issueToken(c, mgr)
}

// Logout godoc
// @Summary      Cerrar sesión
// @Description  Siempre devuelve la ruta de login; si falla la auditoría se informa en warning.
// @Tags         auth
// @Produce      json
// @Success      200  {object}  dto.LogoutResponse
// @Router       /api/auth/logout [post]
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	sid := GetSessionID(c)
	out := dto.LogoutResponse{Redirect: session.LoginPath}
	mgr, err := h.sessions.Get(c.UserContext(), sid)
	if err != nil {
		h.log.Warn().Err(err).Str("session_id", sid).Msg("logout sin gestor de sesión")
		out.Warning = "no se pudo cargar la sesión"
	} else {
		redirect, auditErr := mgr.Logout(c.UserContext())
		out.Redirect = redirect
		if auditErr != nil {
			out.Warning = "no se pudo registrar el cierre de sesión"
		}
	}
	h.sessions.Remove(sid)
	clearSessionCookie(c, h.cookieSecure)
	return c.JSON(out)
}

// Me godoc
// @Summary      Estado de la sesión de cliente
// @Tags         auth
// @Produce      json
// @Success      200  {object}  dto.SessionResponse
// @Router       /api/auth/me [get]
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	mgr, err := h.manager(c)
	if err != nil {
		return writeError(c, err)
	}
	v := mgr.Current()
	out := dto.SessionResponse{
		SessionID:     v.SessionID,
		Authenticated: v.Authenticated,
		MFAPending:    v.MFAPending,
		MFAHint:       v.MFAHint,
	}
	if v.User != nil {
		out.User = users.ToUserResponse(v.User)
	}
	return c.JSON(out)
}

// StartEnrollment godoc
// @Summary      Iniciar el alta del segundo factor
// @Tags         auth
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.EnrollRequest  true  "teléfono E.164"
// @Success      200   {object}  dto.EnrollResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/auth/mfa/enroll [post]
func (h *AuthHandler) StartEnrollment(c *fiber.Ctx) error {
	var in dto.EnrollRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	hint, err := GetManager(c).StartMFAEnrollment(c.UserContext(), in.Phone)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.EnrollResponse{Hint: hint})
}

// CompleteEnrollment godoc
// @Summary      Confirmar el alta del segundo factor
// @Tags         auth
// @Security     Bearer
// @Accept       json
// @Param        body  body  dto.CodeRequest  true  "código"
// @Success      204
// @Failure      401   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/auth/mfa/enroll/complete [post]
func (h *AuthHandler) CompleteEnrollment(c *fiber.Ctx) error {
	var in dto.CodeRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	if err := GetManager(c).CompleteMFASetup(c.UserContext(), in.Code); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ChangePassword godoc
// @Summary      Cambiar la contraseña
// @Tags         auth
// @Security     Bearer
// @Accept       json
// @Param        body  body  dto.ChangePasswordRequest  true  "contraseña actual y nueva"
// @Success      204
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      401   {object}  dto.ErrorResponse
// @Router       /api/auth/password [post]
func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	var in dto.ChangePasswordRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	if err := GetManager(c).ChangePassword(c.UserContext(), in.Current, in.Next); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *AuthHandler) manager(c *fiber.Ctx) (*session.Manager, error) {
	return h.sessions.Get(c.UserContext(), GetSessionID(c))
}

func (h *AuthHandler) issueToken(c *fiber.Ctx, mgr *session.Manager) error {
	v := mgr.Current()
	if v.User == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "NOT_AUTHENTICATED", Message: "no hay sesión iniciada"})
	}
	token, err := jwt.Generate(h.jwtCfg.Secret, v.User.ID, v.SessionID, string(v.User.Role), h.jwtCfg.Issuer, h.jwtCfg.Expiration)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "TOKEN_ERROR", Message: "no se pudo generar el token"})
	}
	return c.JSON(dto.LoginResponse{Token: token, User: users.ToUserResponse(v.User)})
}

func (h *AuthHandler) count(result string) {
	if h.metrics != nil {
		h.metrics.LoginAttempt(result)
	}
}

