package stock_test

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/cokelateh-api/internal/application/dto"
	"github.com/jhoicas/cokelateh-api/internal/application/stock"
	"github.com/jhoicas/cokelateh-api/internal/domain"
	"github.com/jhoicas/cokelateh-api/internal/domain/entity"
)

// memStock repositorio de stock en memoria que también guarda ingredientes.
type memStock struct {
	mu          sync.Mutex
	ingredients map[string]*entity.Ingredient
	entries     map[string]*entity.StockEntry
	history     []*entity.StockHistory
	failWith    error
}

func newMemStock() *memStock {
	return &memStock{ingredients: map[string]*entity.Ingredient{}, entries: map[string]*entity.StockEntry{}}
}

func (m *memStock) Create(_ context.Context, ing *entity.Ingredient) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ingredients[ing.ID] = ing
	return nil
}

func (m *memStock) GetByID(_ context.Context, id string) (*entity.Ingredient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ingredients[id], nil
}

func (m *memStock) List(_ context.Context) ([]*entity.Ingredient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*entity.Ingredient, 0, len(m.ingredients))
	for _, ing := range m.ingredients {
		out = append(out, ing)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// stockView adapta memStock a repository.StockRepository (List choca con el de ingredientes).
type stockView struct{ *memStock }

func (v stockView) Get(_ context.Context, id string) (*entity.StockEntry, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	e, ok := v.entries[id]
	if !ok {
		return nil, nil
	}
	cp := *e
	return &cp, nil
}

func (v stockView) List(_ context.Context) ([]*entity.StockEntry, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]*entity.StockEntry, 0, len(v.entries))
	for _, e := range v.entries {
		cp := *e
		out = append(out, &cp)
	}
	return out, nil
}

func (v stockView) ListLow(ctx context.Context) ([]*entity.StockEntry, error) {
	all, _ := v.List(ctx)
	var out []*entity.StockEntry
	for _, e := range all {
		if e.IsLow() {
			out = append(out, e)
		}
	}
	return out, nil
}

func (v stockView) SetQuantity(_ context.Context, id string, qty decimal.Decimal, minStock *decimal.Decimal, by string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.failWith != nil {
		return v.failWith
	}
	e := v.entries[id]
	v.history = append(v.history, &entity.StockHistory{ID: "h", IngredientID: id, Previous: e.Quantity, Quantity: qty, ChangedBy: by})
	e.Quantity = qty
	e.MinStock = minStock
	e.UpdatedBy = by
	return nil
}

func (v stockView) EnsureEntries(_ context.Context) (int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	n := 0
	for id, ing := range v.ingredients {
		if _, ok := v.entries[id]; !ok {
			v.entries[id] = &entity.StockEntry{IngredientID: id, Quantity: decimal.Zero, MinStock: ing.MinStock}
			n++
		}
	}
	return n, nil
}

func (v stockView) History(_ context.Context, id string, limit int) ([]*entity.StockHistory, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	var out []*entity.StockHistory
	for i := len(v.history) - 1; i >= 0 && len(out) < limit; i-- {
		if v.history[i].IngredientID == id {
			out = append(out, v.history[i])
		}
	}
	return out, nil
}

type countingMetrics struct{ saved, retried, failed int }

func (c *countingMetrics) StockSaved()   { c.saved++ }
func (c *countingMetrics) StockRetried() { c.retried++ }
func (c *countingMetrics) StockFailed()  { c.failed++ }

type recordedAudit struct {
	mu   sync.Mutex
	logs []entity.AuditLog
}

func (r *recordedAudit) Record(_ context.Context, l entity.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs = append(r.logs, l)
	return nil
}

type ucFixture struct {
	store   *memStock
	clock   *manualClock
	metrics *countingMetrics
	audit   *recordedAudit
	uc      *stock.UseCase
}

func newUCFixture(t *testing.T) *ucFixture {
	t.Helper()
	f := &ucFixture{store: newMemStock(), clock: newManualClock(), metrics: &countingMetrics{}, audit: &recordedAudit{}}
	f.uc = stock.NewUseCase(stock.Config{MaxRetries: 3, RetryBase: time.Second}, stock.Deps{
		Stock:       stockView{f.store},
		Ingredients: f.store,
		Audit:       f.audit,
		Metrics:     f.metrics,
		Scheduler:   f.clock,
		IsRetryable: func(err error) bool { return err == errOffline },
		Log:         zerolog.Nop(),
	})
	t.Cleanup(f.uc.Close)
	return f
}

var admin = &entity.User{ID: "u-admin", Email: "admin@cokelateh.com", Role: entity.RoleAdmin}

func TestCreateIngredient_CreaEntradaACero(t *testing.T) {
	f := newUCFixture(t)
	minStock := decimal.NewFromInt(2)

	ing, err := f.uc.CreateIngredient(context.Background(), dto.CreateIngredientRequest{Name: " Cacao ", Unit: "kg", MinStock: &minStock}, admin)
	require.NoError(t, err)
	assert.Equal(t, "Cacao", ing.Name)

	item, err := f.uc.Get(context.Background(), ing.ID)
	require.NoError(t, err)
	assert.True(t, item.Quantity.IsZero())
	assert.True(t, item.Low)
	assert.Equal(t, "Cacao", item.Name)
	require.Len(t, f.audit.logs, 1)
	assert.Equal(t, entity.AuditActionCreate, f.audit.logs[0].Action)
}

func TestCreateIngredient_Validacion(t *testing.T) {
	f := newUCFixture(t)
	neg := decimal.NewFromInt(-1)

	_, err := f.uc.CreateIngredient(context.Background(), dto.CreateIngredientRequest{Name: "", Unit: "kg"}, admin)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = f.uc.CreateIngredient(context.Background(), dto.CreateIngredientRequest{Name: "Azúcar", Unit: "kg", MinStock: &neg}, admin)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestList_CreaEntradasQueFaltan(t *testing.T) {
	f := newUCFixture(t)
	f.store.ingredients["a"] = &entity.Ingredient{ID: "a", Name: "Azúcar", Unit: "kg"}
	f.store.ingredients["b"] = &entity.Ingredient{ID: "b", Name: "Manteca", Unit: "kg"}

	items, err := f.uc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Azúcar", items[0].Name)
	assert.Len(t, f.store.entries, 2)
}

func TestEditAndSave(t *testing.T) {
	f := newUCFixture(t)
	f.store.ingredients["x"] = &entity.Ingredient{ID: "x", Name: "Cacao", Unit: "kg"}
	f.store.entries["x"] = &entity.StockEntry{IngredientID: "x", Quantity: decimal.NewFromInt(10)}

	item, err := f.uc.Edit(context.Background(), "x", decimal.NewFromInt(7), false, "u1")
	require.NoError(t, err)
	assert.Equal(t, "dirty", item.Phase)
	assert.True(t, f.store.entries["x"].Quantity.Equal(decimal.NewFromInt(10)))

	item, err = f.uc.Save(context.Background(), "x", "u1")
	require.NoError(t, err)
	assert.Equal(t, "clean", item.Phase)
	assert.True(t, f.store.entries["x"].Quantity.Equal(decimal.NewFromInt(7)))
	assert.Equal(t, 1, f.metrics.saved)

	hist, err := f.uc.History(context.Background(), "x", 0)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.True(t, hist[0].Previous.Equal(decimal.NewFromInt(10)))

	require.Len(t, f.audit.logs, 1)
	assert.Equal(t, "stock", f.audit.logs[0].EntityType)
}

func TestEdit_Autosave(t *testing.T) {
	f := newUCFixture(t)
	f.store.entries["x"] = &entity.StockEntry{IngredientID: "x", Quantity: decimal.NewFromInt(10)}

	_, err := f.uc.Edit(context.Background(), "x", decimal.NewFromInt(4), true, "u1")
	require.NoError(t, err)
	f.clock.Advance(time.Second)
	assert.True(t, f.store.entries["x"].Quantity.Equal(decimal.NewFromInt(4)))
}

func TestSave_ReintentosCuentanMetricas(t *testing.T) {
	f := newUCFixture(t)
	f.store.entries["x"] = &entity.StockEntry{IngredientID: "x", Quantity: decimal.NewFromInt(10)}
	f.store.failWith = errOffline

	_, err := f.uc.Edit(context.Background(), "x", decimal.NewFromInt(7), false, "u1")
	require.NoError(t, err)
	item, err := f.uc.Save(context.Background(), "x", "u1")
	assert.ErrorIs(t, err, domain.ErrSaveRetrying)
	assert.True(t, item.Saving)

	f.clock.Advance(time.Minute)
	assert.Equal(t, 3, f.metrics.retried)
	assert.Equal(t, 1, f.metrics.failed)
	assert.Empty(t, f.audit.logs)
}

func TestEdit_IngredienteDesconocido(t *testing.T) {
	f := newUCFixture(t)
	_, err := f.uc.Edit(context.Background(), "nope", decimal.NewFromInt(1), false, "u1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLow(t *testing.T) {
	f := newUCFixture(t)
	two := decimal.NewFromInt(2)
	f.store.ingredients["x"] = &entity.Ingredient{ID: "x", Name: "Cacao", Unit: "kg"}
	f.store.entries["x"] = &entity.StockEntry{IngredientID: "x", Quantity: decimal.NewFromInt(1), MinStock: &two}
	f.store.entries["y"] = &entity.StockEntry{IngredientID: "y", Quantity: decimal.NewFromInt(9), MinStock: &two}

	items, err := f.uc.Low(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Cacao", items[0].Name)
	assert.True(t, items[0].Low)
}
