// Package stock sincroniza las cantidades de stock por ingrediente: la edición se
// refleja al instante en memoria y la escritura en la base de datos se agrupa,
// se confirma de forma explícita o diferida y se reintenta ante fallos de red.
package stock

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/cokelateh-api/internal/domain"
	"github.com/jhoicas/cokelateh-api/internal/domain/entity"
)

// Phase estado de la máquina de cada ingrediente.
type Phase string

const (
	PhaseClean  Phase = "clean"  // local == remoto
	PhaseDirty  Phase = "dirty"  // hay un valor pendiente de guardar
	PhaseSaving Phase = "saving" // escritura en curso o esperando reintento
	PhaseFailed Phase = "failed" // la última escritura falló de forma definitiva
)

// Writer escribe la cantidad remota de un ingrediente.
type Writer interface {
	SetQuantity(ctx context.Context, ingredientID string, qty decimal.Decimal, minStock *decimal.Decimal, changedBy string) error
}

// Config parámetros del sincronizador.
type Config struct {
	Ceiling      decimal.Decimal
	QuietWindow  time.Duration
	RetryBase    time.Duration
	MaxRetries   int
	Debounce     time.Duration
	WriteTimeout time.Duration
}

// Hooks notificaciones de resultado. Se invocan sin el lock tomado.
type Hooks struct {
	OnSaved  func(id string, qty decimal.Decimal, changedBy string, retries int)
	OnRetry  func(id string, retry int, delay time.Duration, err error)
	OnFailed func(id string, err error)
}

// EntryState vista del estado de un ingrediente.
type EntryState struct {
	IngredientID string           `json:"ingredient_id"`
	Local        decimal.Decimal  `json:"local"`
	Remote       decimal.Decimal  `json:"remote"`
	MinStock     *decimal.Decimal `json:"min_stock,omitempty"`
	Pending      *decimal.Decimal `json:"pending,omitempty"`
	Phase        Phase            `json:"phase"`
	Editing      bool             `json:"editing"`
	Saving       bool             `json:"saving"`
	Retries      int              `json:"retries"`
	LastSave     *time.Time       `json:"last_save,omitempty"`
	LastError    string           `json:"last_error,omitempty"`
}

// Low indica si el valor remoto está en o por debajo del mínimo.
func (s EntryState) Low() bool {
	return entity.StockEntry{Quantity: s.Remote, MinStock: s.MinStock}.IsLow()
}

type entry struct {
	local    decimal.Decimal
	remote   decimal.Decimal
	minStock *decimal.Decimal
	pending  *decimal.Decimal
	// inflight es el valor de la escritura en curso o en espera de reintento.
	inflight *decimal.Decimal
	phase    Phase
	editing  bool
	saving   bool
	retries  int
	lastSave time.Time
	lastErr  error

	stopDebounce func() bool
	stopRetry    func() bool
}

// Synchronizer mantiene el estado local de cada ingrediente y confirma los cambios
// con el Writer. Nunca hay dos escrituras simultáneas para el mismo ingrediente;
// ingredientes distintos se escriben en paralelo.
type Synchronizer struct {
	cfg         Config
	writer      Writer
	sched       Scheduler
	isRetryable func(error) bool
	hooks       Hooks
	log         zerolog.Logger

	// ctx base de las escrituras diferidas (debounce y reintentos).
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	entries map[string]*entry
}

// NewSynchronizer construye el sincronizador. isRetryable clasifica los errores de
// red; si es nil ningún error se reintenta.
func NewSynchronizer(cfg Config, writer Writer, sched Scheduler, isRetryable func(error) bool, hooks Hooks, log zerolog.Logger) *Synchronizer {
	if cfg.Ceiling.IsZero() {
		cfg.Ceiling = decimal.NewFromInt(1_000_000)
	}
	if cfg.QuietWindow <= 0 {
		cfg.QuietWindow = time.Second
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = 800 * time.Millisecond
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if sched == nil {
		sched = SystemScheduler()
	}
	if isRetryable == nil {
		isRetryable = func(error) bool { return false }
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Synchronizer{
		cfg:         cfg,
		writer:      writer,
		sched:       sched,
		isRetryable: isRetryable,
		hooks:       hooks,
		log:         log,
		ctx:         ctx,
		cancel:      cancel,
		entries:     make(map[string]*entry),
	}
}

// Close cancela temporizadores y escrituras diferidas.
func (s *Synchronizer) Close() {
	s.cancel()
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		stopTimer(&e.stopDebounce)
		stopTimer(&e.stopRetry)
	}
}

// Track incorpora las entradas remotas. Un ingrediente sin cambios locales toma
// el valor remoto; uno con cambios conserva el valor local.
func (s *Synchronizer) Track(entries []*entity.StockEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, se := range entries {
		e, ok := s.entries[se.IngredientID]
		if !ok {
			s.entries[se.IngredientID] = &entry{
				local:    se.Quantity,
				remote:   se.Quantity,
				minStock: se.MinStock,
				phase:    PhaseClean,
			}
			continue
		}
		e.minStock = se.MinStock
		if e.saving {
			continue
		}
		e.remote = se.Quantity
		if e.phase == PhaseClean {
			e.local = se.Quantity
		}
		if e.pending != nil && e.pending.Equal(e.remote) {
			e.pending = nil
			e.editing = false
			e.phase = PhaseClean
		}
	}
}

// Edit aplica un valor tecleado. El valor local cambia al instante; los valores
// negativos o por encima del techo se rechazan y no se encolan.
func (s *Synchronizer) Edit(id string, value decimal.Decimal) (EntryState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return EntryState{}, domain.ErrNotFound
	}
	if err := s.validate(value); err != nil {
		return e.view(id), err
	}
	s.editLocked(e, value)
	return e.view(id), nil
}

func (s *Synchronizer) editLocked(e *entry, value decimal.Decimal) {
	e.local = value
	base := e.remote
	if e.saving && e.inflight != nil {
		base = *e.inflight
	}
	if value.Equal(base) {
		e.pending = nil
		e.editing = false
		if !e.saving {
			e.phase = PhaseClean
		}
		return
	}
	v := value
	e.pending = &v
	if !e.saving {
		e.phase = PhaseDirty
	}
	// Ajustes seguidos dentro de la ventana no muestran el botón de guardar.
	if s.sched.Now().Sub(e.lastSave) > s.cfg.QuietWindow {
		e.editing = true
	}
}

// EditDebounced aplica el valor y reprograma el guardado automático del ingrediente.
func (s *Synchronizer) EditDebounced(id string, value decimal.Decimal, changedBy string) (EntryState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return EntryState{}, domain.ErrNotFound
	}
	if err := s.validate(value); err != nil {
		return e.view(id), err
	}
	s.editLocked(e, value)
	stopTimer(&e.stopDebounce)
	if e.pending != nil {
		s.armDebounceLocked(id, e, changedBy)
	}
	return e.view(id), nil
}

func (s *Synchronizer) armDebounceLocked(id string, e *entry, changedBy string) {
	e.stopDebounce = s.sched.AfterFunc(s.cfg.Debounce, func() {
		err := s.Save(s.ctx, id, changedBy)
		switch {
		case err == nil, errors.Is(err, domain.ErrSaveRetrying):
		case errors.Is(err, domain.ErrSaveInProgress):
			// Hay una escritura en curso: se vuelve a intentar tras otra espera.
			s.mu.Lock()
			if cur, ok := s.entries[id]; ok && cur.pending != nil && s.ctx.Err() == nil {
				s.armDebounceLocked(id, cur, changedBy)
			}
			s.mu.Unlock()
		default:
			s.log.Warn().Err(err).Str("ingredient_id", id).Msg("guardado automático de stock fallido")
		}
	})
}

// Save confirma el valor pendiente del ingrediente. Devuelve ErrSaveInProgress si
// ya hay una escritura en curso y ErrSaveRetrying si el primer intento falló por
// red y quedan reintentos programados.
func (s *Synchronizer) Save(ctx context.Context, id, changedBy string) error {
	s.mu.Lock()
	e, ok := s.entries[id]
	if !ok {
		s.mu.Unlock()
		return domain.ErrNotFound
	}
	if e.saving {
		s.mu.Unlock()
		return domain.ErrSaveInProgress
	}
	stopTimer(&e.stopDebounce)
	if e.pending == nil || e.pending.Equal(e.remote) {
		e.pending = nil
		e.editing = false
		if e.local.Equal(e.remote) {
			e.phase = PhaseClean
		}
		s.mu.Unlock()
		return nil
	}
	qty := *e.pending
	if err := s.validate(qty); err != nil {
		s.mu.Unlock()
		return err
	}
	e.saving = true
	e.editing = false
	e.pending = nil
	e.inflight = &qty
	e.phase = PhaseSaving
	e.retries = 0
	e.lastErr = nil
	e.lastSave = s.sched.Now()
	minStock := e.minStock
	s.mu.Unlock()

	return s.attempt(ctx, id, qty, minStock, changedBy, 0)
}

func (s *Synchronizer) attempt(ctx context.Context, id string, qty decimal.Decimal, minStock *decimal.Decimal, changedBy string, retry int) error {
	wctx, cancel := context.WithTimeout(ctx, s.cfg.WriteTimeout)
	err := s.writer.SetQuantity(wctx, id, qty, minStock, changedBy)
	cancel()

	s.mu.Lock()
	e, ok := s.entries[id]
	if !ok {
		s.mu.Unlock()
		return domain.ErrNotFound
	}

	if err == nil {
		e.remote = qty
		e.saving = false
		e.inflight = nil
		e.retries = retry
		e.lastErr = nil
		e.stopRetry = nil
		if e.local.Equal(qty) {
			e.pending = nil
			e.editing = false
			e.phase = PhaseClean
		} else {
			// El operador cambió el valor mientras se escribía: queda pendiente.
			v := e.local
			e.pending = &v
			e.editing = true
			e.phase = PhaseDirty
		}
		s.mu.Unlock()
		if s.hooks.OnSaved != nil {
			s.hooks.OnSaved(id, qty, changedBy, retry)
		}
		return nil
	}

	if retry < s.cfg.MaxRetries && s.isRetryable(err) && s.ctx.Err() == nil {
		next := retry + 1
		delay := s.cfg.RetryBase * time.Duration(1<<(next-1))
		e.retries = next
		e.lastErr = err
		e.stopRetry = s.sched.AfterFunc(delay, func() {
			_ = s.attempt(s.ctx, id, qty, minStock, changedBy, next)
		})
		s.mu.Unlock()
		if s.hooks.OnRetry != nil {
			s.hooks.OnRetry(id, next, delay, err)
		}
		return fmt.Errorf("%w: %v", domain.ErrSaveRetrying, err)
	}

	// Fallo definitivo: se conserva el valor local y vuelve el botón de guardar.
	e.saving = false
	e.inflight = nil
	e.stopRetry = nil
	e.phase = PhaseFailed
	e.lastErr = err
	if e.pending == nil && !e.local.Equal(e.remote) {
		v := e.local
		e.pending = &v
	}
	e.editing = e.pending != nil
	s.mu.Unlock()
	if s.hooks.OnFailed != nil {
		s.hooks.OnFailed(id, err)
	}
	return fmt.Errorf("guardar stock %s: %w", id, err)
}

// State devuelve la vista de un ingrediente.
func (s *Synchronizer) State(id string) (EntryState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return EntryState{}, false
	}
	return e.view(id), true
}

// Snapshot devuelve la vista de todos los ingredientes ordenada por id.
func (s *Synchronizer) Snapshot() []EntryState {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]EntryState, 0, len(s.entries))
	for id, e := range s.entries {
		out = append(out, e.view(id))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IngredientID < out[j].IngredientID })
	return out
}

func (s *Synchronizer) validate(v decimal.Decimal) error {
	if v.IsNegative() {
		return fmt.Errorf("%w: la cantidad no puede ser negativa", domain.ErrQuantityOutOfRange)
	}
	if v.GreaterThan(s.cfg.Ceiling) {
		return fmt.Errorf("%w: la cantidad supera el máximo de %s", domain.ErrQuantityOutOfRange, s.cfg.Ceiling)
	}
	return nil
}

func (e *entry) view(id string) EntryState {
	v := EntryState{
		IngredientID: id,
		Local:        e.local,
		Remote:       e.remote,
		MinStock:     copyDecimal(e.minStock),
		Pending:      copyDecimal(e.pending),
		Phase:        e.phase,
		Editing:      e.editing,
		Saving:       e.saving,
		Retries:      e.retries,
	}
	if !e.lastSave.IsZero() {
		t := e.lastSave
		v.LastSave = &t
	}
	if e.lastErr != nil {
		v.LastError = e.lastErr.Error()
	}
	return v
}

func copyDecimal(d *decimal.Decimal) *decimal.Decimal {
	if d == nil {
		return nil
	}
	v := *d
	return &v
}

func stopTimer(stop *func() bool) {
	if *stop != nil {
		(*stop)()
		*stop = nil
	}
}
