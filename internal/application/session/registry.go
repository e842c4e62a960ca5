package session

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Factory construye el gestor de una sesión de cliente.
type Factory func(sessionID string) *Manager

type registryEntry struct {
	m        *Manager
	once     sync.Once
	err      error
	lastSeen time.Time
}

// RegistryOption ajusta el registro.
type RegistryOption func(*Registry)

// WithRegistryClock reemplaza el reloj usado para medir la inactividad.
func WithRegistryClock(now func() time.Time) RegistryOption {
	return func(r *Registry) { r.now = now }
}

// Registry mantiene un gestor por sesión de cliente. Cada gestor se inicializa
// una sola vez, en el primer Get, restaurando su copia persistida. Los gestores
// inactivos se liberan con EvictIdle; la copia persistida sobrevive y el
// siguiente Get la restaura.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*registryEntry
	factory Factory
	now     func() time.Time
}

// NewRegistry construye el registro.
func NewRegistry(factory Factory, opts ...RegistryOption) *Registry {
	r := &Registry{entries: make(map[string]*registryEntry), factory: factory, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Get devuelve el gestor de la sesión, creándolo e inicializándolo si hace falta.
func (r *Registry) Get(ctx context.Context, sessionID string) (*Manager, error) {
	r.mu.Lock()
	e, ok := r.entries[sessionID]
	if !ok {
		e = &registryEntry{m: r.factory(sessionID)}
		r.entries[sessionID] = e
	}
	e.lastSeen = r.now()
	r.mu.Unlock()

	e.once.Do(func() { e.err = e.m.Init(ctx) })
	if e.err != nil {
		r.mu.Lock()
		if r.entries[sessionID] == e {
			delete(r.entries, sessionID)
		}
		r.mu.Unlock()
		return nil, e.err
	}
	return e.m, nil
}

// Remove cierra y olvida el gestor de la sesión.
func (r *Registry) Remove(sessionID string) {
	r.mu.Lock()
	e, ok := r.entries[sessionID]
	delete(r.entries, sessionID)
	r.mu.Unlock()
	if ok {
		e.m.Dispose()
	}
}

// EvictIdle libera los gestores sin uso desde hace más de maxIdle y devuelve
// cuántos salieron. No borra las copias persistidas.
func (r *Registry) EvictIdle(maxIdle time.Duration) int {
	cutoff := r.now().Add(-maxIdle)

	r.mu.Lock()
	var idle []*registryEntry
	for sid, e := range r.entries {
		if e.lastSeen.Before(cutoff) {
			idle = append(idle, e)
			delete(r.entries, sid)
		}
	}
	r.mu.Unlock()

	for _, e := range idle {
		e.m.Dispose()
	}
	return len(idle)
}

// Run barre el registro cada interval hasta que ctx se cancele.
func (r *Registry) Run(ctx context.Context, interval, maxIdle time.Duration, log zerolog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.EvictIdle(maxIdle); n > 0 {
				log.Debug().Int("evicted", n).Int("active", r.Len()).Msg("sesiones inactivas liberadas")
			}
		}
	}
}

// Len número de sesiones en memoria.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
