package stock

import "time"

// Scheduler reloj y temporizadores del sincronizador. En producción es el reloj
// del sistema; en pruebas un reloj manual.
type Scheduler interface {
	Now() time.Time
	// AfterFunc ejecuta f tras d. La función devuelta cancela el temporizador
	// y devuelve false si ya se había disparado.
	AfterFunc(d time.Duration, f func()) (stop func() bool)
}

type systemScheduler struct{}

// SystemScheduler scheduler basado en time.AfterFunc.
func SystemScheduler() Scheduler { return systemScheduler{} }

func (systemScheduler) Now() time.Time { return time.Now() }

func (systemScheduler) AfterFunc(d time.Duration, f func()) func() bool {
	return time.AfterFunc(d, f).Stop
}
