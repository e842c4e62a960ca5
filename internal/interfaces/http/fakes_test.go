package http_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jhoicas/cokelateh-api/internal/application/approval"
	"github.com/jhoicas/cokelateh-api/internal/application/audit"
	"github.com/jhoicas/cokelateh-api/internal/application/rd"
	"github.com/jhoicas/cokelateh-api/internal/application/session"
	"github.com/jhoicas/cokelateh-api/internal/application/stock"
	"github.com/jhoicas/cokelateh-api/internal/application/users"
	"github.com/jhoicas/cokelateh-api/internal/domain"
	"github.com/jhoicas/cokelateh-api/internal/domain/entity"
	"github.com/jhoicas/cokelateh-api/internal/domain/repository"
	"github.com/jhoicas/cokelateh-api/internal/infrastructure/identity"
	apphttp "github.com/jhoicas/cokelateh-api/internal/interfaces/http"
	"github.com/jhoicas/cokelateh-api/pkg/config"
)

const testJWTSecret = "test-secret-key-for-unit-tests"

// ──────────────────────────────────────────────────────────────────────────────
// Repositorios en memoria
// ──────────────────────────────────────────────────────────────────────────────

type memCreds struct {
	mu   sync.Mutex
	byID map[string]*entity.Credential
}

func (m *memCreds) Create(_ context.Context, c *entity.Credential) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, x := range m.byID {
		if strings.EqualFold(x.Email, c.Email) {
			return domain.ErrDuplicate
		}
	}
	cp := *c
	m.byID[c.UID] = &cp
	return nil
}

func (m *memCreds) GetByEmail(_ context.Context, email string) (*entity.Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, x := range m.byID {
		if strings.EqualFold(x.Email, email) {
			cp := *x
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memCreds) GetByUID(_ context.Context, uid string) (*entity.Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if x, ok := m.byID[uid]; ok {
		cp := *x
		return &cp, nil
	}
	return nil, nil
}

func (m *memCreds) UpdatePassword(_ context.Context, uid, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	x, ok := m.byID[uid]
	if !ok {
		return domain.ErrNotFound
	}
	x.PasswordHash = hash
	return nil
}

func (m *memCreds) SetPhone(_ context.Context, uid, phone string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	x, ok := m.byID[uid]
	if !ok {
		return domain.ErrNotFound
	}
	x.Phone = phone
	return nil
}

type memUsers struct {
	mu   sync.Mutex
	byID map[string]*entity.User
}

func cloneUser(u *entity.User) *entity.User {
	cp := *u
	cp.Permissions = entity.NewPermissionSet()
	for p := range u.Permissions {
		cp.Permissions[p] = struct{}{}
	}
	return &cp
}

func (m *memUsers) Create(_ context.Context, u *entity.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, x := range m.byID {
		if strings.EqualFold(x.Email, u.Email) {
			return domain.ErrEmailAlreadyExists
		}
	}
	m.byID[u.ID] = cloneUser(u)
	return nil
}

func (m *memUsers) GetByID(_ context.Context, id string) (*entity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.byID[id]; ok {
		return cloneUser(u), nil
	}
	return nil, nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if strings.EqualFold(u.Email, email) {
			return cloneUser(u), nil
		}
	}
	return nil, nil
}

func (m *memUsers) Update(_ context.Context, u *entity.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[u.ID]; !ok {
		return domain.ErrUserNotFound
	}
	m.byID[u.ID] = cloneUser(u)
	return nil
}

func (m *memUsers) List(_ context.Context, limit, offset int) ([]*entity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.User
	for _, u := range m.byID {
		out = append(out, cloneUser(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type memSnapshots struct {
	mu    sync.Mutex
	snaps map[string]entity.SessionSnapshot
}

func (m *memSnapshots) Load(_ context.Context, sid string) (*entity.SessionSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.snaps[sid]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *memSnapshots) Save(_ context.Context, s *entity.SessionSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snaps[s.SessionID] = *s
	return nil
}

func (m *memSnapshots) Delete(_ context.Context, sid string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.snaps, sid)
	return nil
}

type memLogs struct {
	mu   sync.Mutex
	logs []*entity.AuditLog
}

func (m *memLogs) Create(_ context.Context, l *entity.AuditLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *l
	m.logs = append(m.logs, &cp)
	return nil
}

func (m *memLogs) List(_ context.Context, limit, offset int) ([]*entity.AuditLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.AuditLog
	for i := len(m.logs) - 1; i >= 0; i-- {
		out = append(out, m.logs[i])
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// stockStore guarda ingredientes y stock; ingredientRepo y stockRepo lo exponen
// con las dos interfaces (ambas tienen List).
type stockStore struct {
	mu          sync.Mutex
	ingredients map[string]*entity.Ingredient
	entries     map[string]*entity.StockEntry
}

type ingredientRepo struct{ *stockStore }

func (r ingredientRepo) Create(_ context.Context, ing *entity.Ingredient) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, x := range r.ingredients {
		if x.Name == ing.Name {
			return domain.ErrDuplicate
		}
	}
	cp := *ing
	r.ingredients[ing.ID] = &cp
	return nil
}

func (r ingredientRepo) GetByID(_ context.Context, id string) (*entity.Ingredient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ingredients[id], nil
}

func (r ingredientRepo) List(_ context.Context) ([]*entity.Ingredient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.Ingredient
	for _, ing := range r.ingredients {
		out = append(out, ing)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

type stockRepo struct{ *stockStore }

func (r stockRepo) Get(_ context.Context, id string) (*entity.StockEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return nil, nil
	}
	cp := *e
	return &cp, nil
}

func (r stockRepo) List(_ context.Context) ([]*entity.StockEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.StockEntry
	for _, e := range r.entries {
		cp := *e
		out = append(out, &cp)
	}
	return out, nil
}

func (r stockRepo) ListLow(ctx context.Context) ([]*entity.StockEntry, error) {
	all, _ := r.List(ctx)
	var out []*entity.StockEntry
	for _, e := range all {
		if e.IsLow() {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r stockRepo) SetQuantity(_ context.Context, id string, qty decimal.Decimal, minStock *decimal.Decimal, by string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return domain.ErrNotFound
	}
	e.Quantity, e.MinStock, e.UpdatedBy = qty, minStock, by
	return nil
}

func (r stockRepo) EnsureEntries(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, ing := range r.ingredients {
		if _, ok := r.entries[id]; !ok {
			r.entries[id] = &entity.StockEntry{IngredientID: id, Quantity: decimal.Zero, MinStock: ing.MinStock}
			n++
		}
	}
	return n, nil
}

func (r stockRepo) History(context.Context, string, int) ([]*entity.StockHistory, error) {
	return nil, nil
}

// captureSender guarda el último código enviado.
type captureSender struct {
	mu   sync.Mutex
	last string
}

func (s *captureSender) Send(_ context.Context, _, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = code
	return nil
}

func (s *captureSender) code() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// ──────────────────────────────────────────────────────────────────────────────
// Servidor de prueba
// ──────────────────────────────────────────────────────────────────────────────

type testEnv struct {
	app      *fiber.App
	provider *identity.Provider
	users    *memUsers
	logs     *memLogs
	sender   *captureSender
	sessions *session.Registry
}

var (
	_ repository.CredentialRepository = (*memCreds)(nil)
	_ repository.StockRepository      = stockRepo{}
	_ repository.IngredientRepository = ingredientRepo{}
)

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := zerolog.Nop()
	env := &testEnv{
		users:  &memUsers{byID: map[string]*entity.User{}},
		logs:   &memLogs{},
		sender: &captureSender{},
	}
	env.provider = identity.NewProvider(&memCreds{byID: map[string]*entity.Credential{}}, env.sender,
		identity.Config{BcryptCost: bcrypt.MinCost}, log)
	snapshots := &memSnapshots{snaps: map[string]entity.SessionSnapshot{}}
	auditUC := audit.NewUseCase(env.logs)

	env.sessions = session.NewRegistry(func(sid string) *session.Manager {
		return session.NewManager(session.Config{
			SessionID:           sid,
			BootstrapAdminEmail: "admin@cokelateh.com",
		}, session.Deps{
			Provider:  env.provider,
			Users:     env.users,
			Snapshots: snapshots,
			Audit:     auditUC,
			Log:       log,
		})
	})

	store := &stockStore{ingredients: map[string]*entity.Ingredient{}, entries: map[string]*entity.StockEntry{}}
	stockUC := stock.NewUseCase(stock.Config{}, stock.Deps{
		Stock:       stockRepo{store},
		Ingredients: ingredientRepo{store},
		Audit:       auditUC,
		Scheduler:   stock.SystemScheduler(),
		IsRetryable: func(error) bool { return false },
		Log:         log,
	})
	t.Cleanup(stockUC.Close)

	env.app = fiber.New()
	apphttp.Router(env.app, apphttp.RouterDeps{
		Sessions:   env.sessions,
		StockUC:    stockUC,
		ApprovalUC: approval.NewUseCase(nil, nil, auditUC, log),
		RDUC:       rd.NewUseCase(nil, nil, auditUC, log),
		UsersUC:    users.NewUseCase(env.users, env.provider, auditUC, log),
		AuditUC:    auditUC,
		JWT:        config.JWTConfig{Secret: testJWTSecret, Issuer: "cokelateh-test", Expiration: 60},
		Log:        log,
	})
	return env
}

// addStaff crea cuenta y perfil staff con los permisos dados.
func (e *testEnv) addStaff(t *testing.T, email, password string, perms ...entity.Permission) string {
	t.Helper()
	uid, err := e.provider.CreateAccount(context.Background(), email, password)
	require.NoError(t, err)
	require.NoError(t, e.users.Create(context.Background(), &entity.User{
		ID: uid, Email: email, Name: "Staff", Role: entity.RoleStaff,
		Permissions: entity.NewPermissionSet(perms...), Status: entity.UserStatusActive,
	}))
	return uid
}

type client struct {
	t     *testing.T
	app   *fiber.App
	sid   string
	token string
	auth  string // cabecera Authorization cruda; tiene prioridad sobre token
	body  []byte // cuerpo de la última respuesta
}

func (e *testEnv) client(t *testing.T) *client {
	return &client{t: t, app: e.app}
}

// do lanza la petición con la cookie de sesión y el token si existen.
func (c *client) do(method, path string, body any) (*http.Response, map[string]any) {
	c.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(c.t, err)
		reader = strings.NewReader(string(raw))
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.sid != "" {
		req.AddCookie(&http.Cookie{Name: apphttp.SessionCookie, Value: c.sid})
	}
	switch {
	case c.auth != "":
		req.Header.Set("Authorization", c.auth)
	case c.token != "":
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.app.Test(req, -1)
	require.NoError(c.t, err)
	for _, ck := range resp.Cookies() {
		if ck.Name == apphttp.SessionCookie && ck.Value != "" {
			c.sid = ck.Value
		}
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	c.body = raw
	var out map[string]any
	_ = json.Unmarshal(raw, &out)
	return resp, out
}

// login inicia sesión y guarda el token si no hace falta segundo factor.
func (c *client) login(email, password string) (*http.Response, map[string]any) {
	resp, out := c.do(http.MethodPost, "/api/auth/login", map[string]string{"email": email, "password": password})
	if tok, ok := out["token"].(string); ok {
		c.token = tok
	}
	return resp, out
}
