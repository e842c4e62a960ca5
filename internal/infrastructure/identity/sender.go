package identity

import (
	"context"

	"github.com/rs/zerolog"
)

// LogCodeSender escribe los códigos en el log. Sustituye al envío por SMS en
// desarrollo y también actúa como verificador anti-automatización del gestor de sesión.
type LogCodeSender struct {
	log zerolog.Logger
}

// NewLogCodeSender construye el emisor.
func NewLogCodeSender(log zerolog.Logger) *LogCodeSender {
	return &LogCodeSender{log: log}
}

// Send registra el código enviado.
func (s *LogCodeSender) Send(_ context.Context, phone, code string) error {
	s.log.Info().Str("phone", MaskPhone(phone)).Str("code", code).Msg("código de verificación")
	return nil
}

// Init prepara el verificador. El emisor por log no tiene estado remoto.
func (s *LogCodeSender) Init(ctx context.Context) error {
	return ctx.Err()
}
