package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// SessionCookie nombre de la cookie que identifica la sesión de cliente.
const SessionCookie = "cokelateh_sid"

const sessionCookieTTL = 30 * 24 * time.Hour

// SessionMiddleware garantiza que la petición lleva una sesión de cliente: si la
// cookie no existe o no es un UUID, crea una nueva y la devuelve en la respuesta.
func SessionMiddleware(secure bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sid := c.Cookies(SessionCookie)
		if _, err := uuid.Parse(sid); err != nil {
			sid = uuid.New().String()
			setSessionCookie(c, sid, secure)
		}
		c.Locals(LocalSessionID, sid)
		return c.Next()
	}
}

func setSessionCookie(c *fiber.Ctx, sid string, secure bool) {
	c.Cookie(&fiber.Cookie{
		Name:     SessionCookie,
		Value:    sid,
		Path:     "/",
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
		Secure:   secure,
		Expires:  time.Now().Add(sessionCookieTTL),
	})
}

func clearSessionCookie(c *fiber.Ctx, secure bool) {
	c.Cookie(&fiber.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
		Secure:   secure,
		MaxAge:   -1,
	})
}
