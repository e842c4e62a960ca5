package stock

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/cokelateh-api/internal/application/dto"
	"github.com/jhoicas/cokelateh-api/internal/domain"
	"github.com/jhoicas/cokelateh-api/internal/domain/entity"
	"github.com/jhoicas/cokelateh-api/internal/domain/repository"
)

// AuditRecorder registra entradas de auditoría.
type AuditRecorder interface {
	Record(ctx context.Context, log entity.AuditLog) error
}

// Metrics contadores del sincronizador.
type Metrics interface {
	StockSaved()
	StockRetried()
	StockFailed()
}

// Deps dependencias del caso de uso de stock.
type Deps struct {
	Stock       repository.StockRepository
	Ingredients repository.IngredientRepository
	Audit       AuditRecorder
	Metrics     Metrics
	Scheduler   Scheduler
	IsRetryable func(error) bool
	Log         zerolog.Logger
}

// UseCase casos de uso de ingredientes y stock. Las ediciones pasan por el
// Synchronizer; las lecturas de historial y stock bajo van al repositorio.
type UseCase struct {
	stockRepo      repository.StockRepository
	ingredientRepo repository.IngredientRepository
	audit          AuditRecorder
	metrics        Metrics
	sync           *Synchronizer
	log            zerolog.Logger
}

// NewUseCase construye el caso de uso y su sincronizador.
func NewUseCase(cfg Config, deps Deps) *UseCase {
	uc := &UseCase{
		stockRepo:      deps.Stock,
		ingredientRepo: deps.Ingredients,
		audit:          deps.Audit,
		metrics:        deps.Metrics,
		log:            deps.Log,
	}
	uc.sync = NewSynchronizer(cfg, deps.Stock, deps.Scheduler, deps.IsRetryable, Hooks{
		OnSaved:  uc.onSaved,
		OnRetry:  uc.onRetry,
		OnFailed: uc.onFailed,
	}, deps.Log)
	return uc
}

// Close detiene guardados diferidos y reintentos.
func (uc *UseCase) Close() { uc.sync.Close() }

// Load crea las entradas que faltan y carga el stock remoto en el sincronizador.
func (uc *UseCase) Load(ctx context.Context) error {
	created, err := uc.stockRepo.EnsureEntries(ctx)
	if err != nil {
		return fmt.Errorf("crear entradas de stock: %w", err)
	}
	if created > 0 {
		uc.log.Info().Int("created", created).Msg("entradas de stock creadas")
	}
	entries, err := uc.stockRepo.List(ctx)
	if err != nil {
		return err
	}
	uc.sync.Track(entries)
	return nil
}

// List devuelve el estado de stock de todos los ingredientes.
func (uc *UseCase) List(ctx context.Context) ([]dto.StockItemResponse, error) {
	if err := uc.Load(ctx); err != nil {
		return nil, err
	}
	names, err := uc.ingredientIndex(ctx)
	if err != nil {
		return nil, err
	}
	states := uc.sync.Snapshot()
	out := make([]dto.StockItemResponse, 0, len(states))
	for _, st := range states {
		out = append(out, toStockItem(st, names[st.IngredientID]))
	}
	return out, nil
}

// Low devuelve los ingredientes con cantidad remota en o por debajo del mínimo.
func (uc *UseCase) Low(ctx context.Context) ([]dto.StockItemResponse, error) {
	entries, err := uc.stockRepo.ListLow(ctx)
	if err != nil {
		return nil, err
	}
	uc.sync.Track(entries)
	names, err := uc.ingredientIndex(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]dto.StockItemResponse, 0, len(entries))
	for _, e := range entries {
		if st, ok := uc.sync.State(e.IngredientID); ok {
			out = append(out, toStockItem(st, names[e.IngredientID]))
		}
	}
	return out, nil
}

// Get devuelve el estado de un ingrediente, cargándolo si aún no se sigue.
func (uc *UseCase) Get(ctx context.Context, ingredientID string) (*dto.StockItemResponse, error) {
	st, err := uc.state(ctx, ingredientID)
	if err != nil {
		return nil, err
	}
	ing, err := uc.ingredientRepo.GetByID(ctx, ingredientID)
	if err != nil {
		return nil, err
	}
	item := toStockItem(st, ing)
	return &item, nil
}

// Edit aplica un valor. Con autosave el guardado se programa tras el debounce;
// sin él queda pendiente hasta Save.
func (uc *UseCase) Edit(ctx context.Context, ingredientID string, qty decimal.Decimal, autosave bool, changedBy string) (*dto.StockItemResponse, error) {
	if _, err := uc.state(ctx, ingredientID); err != nil {
		return nil, err
	}
	var (
		st  EntryState
		err error
	)
	if autosave {
		st, err = uc.sync.EditDebounced(ingredientID, qty, changedBy)
	} else {
		st, err = uc.sync.Edit(ingredientID, qty)
	}
	if err != nil {
		return nil, err
	}
	item := toStockItem(st, nil)
	return &item, nil
}

// Save confirma el valor pendiente. ErrSaveRetrying indica que el guardado sigue
// en segundo plano; el estado devuelto refleja el intento en curso.
func (uc *UseCase) Save(ctx context.Context, ingredientID, changedBy string) (*dto.StockItemResponse, error) {
	if _, err := uc.state(ctx, ingredientID); err != nil {
		return nil, err
	}
	saveErr := uc.sync.Save(ctx, ingredientID, changedBy)
	st, _ := uc.sync.State(ingredientID)
	item := toStockItem(st, nil)
	return &item, saveErr
}

// History devuelve los últimos cambios de un ingrediente.
func (uc *UseCase) History(ctx context.Context, ingredientID string, limit int) ([]dto.StockHistoryResponse, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := uc.stockRepo.History(ctx, ingredientID, limit)
	if err != nil {
		return nil, err
	}
	out := make([]dto.StockHistoryResponse, 0, len(rows))
	for _, h := range rows {
		out = append(out, dto.StockHistoryResponse{
			ID:        h.ID,
			Previous:  h.Previous,
			Quantity:  h.Quantity,
			ChangedBy: h.ChangedBy,
			CreatedAt: h.CreatedAt,
		})
	}
	return out, nil
}

// CreateIngredient da de alta un ingrediente y su entrada de stock a cero.
func (uc *UseCase) CreateIngredient(ctx context.Context, in dto.CreateIngredientRequest, actor *entity.User) (*dto.IngredientResponse, error) {
	name := strings.TrimSpace(in.Name)
	unit := strings.TrimSpace(in.Unit)
	if name == "" || unit == "" {
		return nil, domain.ErrInvalidInput
	}
	if in.MinStock != nil && in.MinStock.IsNegative() {
		return nil, fmt.Errorf("%w: el mínimo no puede ser negativo", domain.ErrInvalidInput)
	}
	now := time.Now()
	ing := &entity.Ingredient{
		ID:        uuid.New().String(),
		Name:      name,
		Unit:      unit,
		MinStock:  in.MinStock,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := uc.ingredientRepo.Create(ctx, ing); err != nil {
		return nil, err
	}
	if _, err := uc.stockRepo.EnsureEntries(ctx); err != nil {
		return nil, fmt.Errorf("crear entrada de stock: %w", err)
	}
	if actor != nil {
		uc.record(ctx, entity.AuditLog{
			UserID:      actor.ID,
			UserEmail:   actor.Email,
			Action:      entity.AuditActionCreate,
			EntityType:  "ingredient",
			EntityID:    ing.ID,
			Description: "alta de ingrediente " + ing.Name,
		})
	}
	return toIngredientResponse(ing), nil
}

// ListIngredients lista los ingredientes por nombre.
func (uc *UseCase) ListIngredients(ctx context.Context) ([]dto.IngredientResponse, error) {
	list, err := uc.ingredientRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]dto.IngredientResponse, 0, len(list))
	for _, ing := range list {
		out = append(out, *toIngredientResponse(ing))
	}
	return out, nil
}

func (uc *UseCase) state(ctx context.Context, ingredientID string) (EntryState, error) {
	if st, ok := uc.sync.State(ingredientID); ok {
		return st, nil
	}
	e, err := uc.stockRepo.Get(ctx, ingredientID)
	if err != nil {
		return EntryState{}, err
	}
	if e == nil {
		return EntryState{}, domain.ErrNotFound
	}
	uc.sync.Track([]*entity.StockEntry{e})
	st, _ := uc.sync.State(ingredientID)
	return st, nil
}

func (uc *UseCase) ingredientIndex(ctx context.Context) (map[string]*entity.Ingredient, error) {
	list, err := uc.ingredientRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	idx := make(map[string]*entity.Ingredient, len(list))
	for _, ing := range list {
		idx[ing.ID] = ing
	}
	return idx, nil
}

func (uc *UseCase) onSaved(id string, qty decimal.Decimal, changedBy string, retries int) {
	if uc.metrics != nil {
		uc.metrics.StockSaved()
	}
	uc.log.Info().Str("ingredient_id", id).Str("quantity", qty.String()).Int("retries", retries).Msg("stock guardado")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	uc.record(ctx, entity.AuditLog{
		UserID:      changedBy,
		Action:      entity.AuditActionUpdate,
		EntityType:  "stock",
		EntityID:    id,
		Description: "cantidad actualizada a " + qty.String(),
	})
}

func (uc *UseCase) onRetry(id string, retry int, delay time.Duration, err error) {
	if uc.metrics != nil {
		uc.metrics.StockRetried()
	}
	uc.log.Warn().Err(err).Str("ingredient_id", id).Int("retry", retry).Dur("delay", delay).Msg("guardado de stock reprogramado")
}

func (uc *UseCase) onFailed(id string, err error) {
	if uc.metrics != nil {
		uc.metrics.StockFailed()
	}
	uc.log.Error().Err(err).Str("ingredient_id", id).Msg("guardado de stock fallido")
}

func (uc *UseCase) record(ctx context.Context, l entity.AuditLog) {
	if uc.audit == nil {
		return
	}
	if err := uc.audit.Record(ctx, l); err != nil && !errors.Is(err, context.Canceled) {
		uc.log.Warn().Err(err).Str("entity_type", l.EntityType).Msg("auditoría")
	}
}

func toStockItem(st EntryState, ing *entity.Ingredient) dto.StockItemResponse {
	item := dto.StockItemResponse{
		IngredientID: st.IngredientID,
		Local:        st.Local,
		Quantity:     st.Remote,
		MinStock:     st.MinStock,
		Pending:      st.Pending,
		Phase:        string(st.Phase),
		Editing:      st.Editing,
		Saving:       st.Saving,
		Retries:      st.Retries,
		Low:          st.Low(),
		LastError:    st.LastError,
	}
	if ing != nil {
		item.Name = ing.Name
		item.Unit = ing.Unit
	}
	return item
}

func toIngredientResponse(ing *entity.Ingredient) *dto.IngredientResponse {
	return &dto.IngredientResponse{
		ID:        ing.ID,
		Name:      ing.Name,
		Unit:      ing.Unit,
		MinStock:  ing.MinStock,
		CreatedAt: ing.CreatedAt,
	}
}
