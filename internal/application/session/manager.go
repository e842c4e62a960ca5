// Package session contiene el gestor de sesión de un cliente: inicio de sesión con
// contraseña, reto de segundo factor, permisos y la copia persistida que permite
// sobrevivir a una recarga.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/text/cases"

	"github.com/jhoicas/cokelateh-api/internal/domain"
	"github.com/jhoicas/cokelateh-api/internal/domain/entity"
	"github.com/jhoicas/cokelateh-api/internal/domain/repository"
)

// LoginPath punto de entrada al que se redirige tras cerrar sesión.
const LoginPath = "/login"

var (
	errDisposed  = errors.New("gestor de sesión cerrado")
	phonePattern = regexp.MustCompile(`^\+[1-9][0-9]{7,14}$`)
)

// Config parámetros del gestor.
type Config struct {
	SessionID           string
	BootstrapAdminEmail string
	LoginTimeout        time.Duration
	VerifierAttempts    int
	VerifierBackoff     time.Duration
}

// Deps dependencias del gestor.
type Deps struct {
	Provider  IdentityProvider
	Users     repository.UserRepository
	Snapshots repository.SessionSnapshotRepository
	Audit     AuditRecorder
	Verifier  Verifier
	Log       zerolog.Logger
	Now       func() time.Time
}

// LoginResult resultado de Login.
type LoginResult struct {
	RequiresMFA bool
	Hint        string
}

// View copia del estado de la sesión.
type View struct {
	SessionID     string
	Authenticated bool
	User          *entity.User
	MFAPending    bool
	MFAHint       string
}

// Manager estado de autenticación de una sesión de cliente. Un Login nuevo
// cancela y reemplaza al que esté en curso.
type Manager struct {
	cfg  Config
	deps Deps

	mu             sync.Mutex
	user           *entity.User
	resolver       string
	mfaHint        string
	verificationID string
	verifierReady  bool
	loginSeq       uint64
	cancelLogin    context.CancelFunc
	disposed       bool
}

// NewManager construye el gestor. Init debe llamarse antes de usarlo.
func NewManager(cfg Config, deps Deps) *Manager {
	if cfg.LoginTimeout <= 0 {
		cfg.LoginTimeout = 30 * time.Second
	}
	if cfg.VerifierAttempts <= 0 {
		cfg.VerifierAttempts = 3
	}
	if cfg.VerifierBackoff <= 0 {
		cfg.VerifierBackoff = 200 * time.Millisecond
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	cfg.BootstrapAdminEmail = normalizeEmail(cfg.BootstrapAdminEmail)
	deps.Log = deps.Log.With().Str("session_id", cfg.SessionID).Logger()
	return &Manager{cfg: cfg, deps: deps}
}

// Init restaura la copia persistida y prepara el verificador. Un fallo del
// verificador no es fatal: la sesión restaurada sigue siendo válida y Login
// devolverá ErrChallengeNotReady hasta que InitVerifier tenga éxito.
func (m *Manager) Init(ctx context.Context) error {
	if err := m.restore(ctx); err != nil {
		return err
	}
	if err := m.InitVerifier(ctx); err != nil {
		m.deps.Log.Warn().Err(err).Msg("verificador no disponible")
	}
	return nil
}

// InitVerifier inicializa el verificador con reintentos y espera exponencial.
func (m *Manager) InitVerifier(ctx context.Context) error {
	if m.deps.Verifier == nil {
		m.setVerifierReady(true)
		return nil
	}
	var err error
	for attempt := 1; attempt <= m.cfg.VerifierAttempts; attempt++ {
		if err = m.deps.Verifier.Init(ctx); err == nil {
			m.setVerifierReady(true)
			return nil
		}
		if attempt == m.cfg.VerifierAttempts {
			break
		}
		delay := m.cfg.VerifierBackoff * time.Duration(1<<(attempt-1))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	m.setVerifierReady(false)
	return fmt.Errorf("inicializar verificador: %w", err)
}

// VerifierReady indica si Login puede usarse.
func (m *Manager) VerifierReady() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.verifierReady
}

func (m *Manager) setVerifierReady(ready bool) {
	m.mu.Lock()
	m.verifierReady = ready
	m.mu.Unlock()
}

func (m *Manager) restore(ctx context.Context) error {
	snap, err := m.deps.Snapshots.Load(ctx, m.cfg.SessionID)
	if err != nil {
		return fmt.Errorf("cargar sesión: %w", err)
	}
	if !snap.Authenticated() {
		return nil
	}
	user := userFromSnapshot(snap)
	// Se prefiere el registro actual: los permisos pueden haber cambiado.
	fresh, err := m.deps.Users.GetByID(ctx, snap.UserID)
	switch {
	case err != nil:
		m.deps.Log.Warn().Err(err).Msg("no se pudo refrescar el usuario, se usa la copia")
	case fresh == nil || fresh.Status != entity.UserStatusActive:
		m.deps.Log.Info().Str("user_id", snap.UserID).Msg("usuario ya no válido, sesión descartada")
		if err := m.deps.Snapshots.Delete(ctx, m.cfg.SessionID); err != nil {
			m.deps.Log.Warn().Err(err).Msg("borrar copia de sesión")
		}
		return nil
	default:
		user = fresh
	}
	m.mu.Lock()
	m.user = user
	m.mu.Unlock()
	return nil
}

// Dispose cancela cualquier inicio de sesión en curso y cierra el gestor.
func (m *Manager) Dispose() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancelLogin != nil {
		m.cancelLogin()
		m.cancelLogin = nil
	}
	m.loginSeq++
	m.disposed = true
}

type loginOutcome struct {
	user     *entity.User
	resolver string
	hint     string
}

// Login verifica email y contraseña. Si la cuenta tiene segundo factor devuelve
// RequiresMFA=true sin autenticar; VerifyMFACode completa el proceso.
func (m *Manager) Login(ctx context.Context, email, password string) (LoginResult, error) {
	email = normalizeEmail(email)
	if err := validateCredentials(email, password); err != nil {
		return LoginResult{}, err
	}

	m.mu.Lock()
	if m.disposed {
		m.mu.Unlock()
		return LoginResult{}, errDisposed
	}
	if !m.verifierReady {
		m.mu.Unlock()
		return LoginResult{}, domain.ErrChallengeNotReady
	}
	if m.cancelLogin != nil {
		m.cancelLogin()
	}
	m.loginSeq++
	seq := m.loginSeq
	callCtx, cancel := context.WithTimeout(ctx, m.cfg.LoginTimeout)
	m.cancelLogin = cancel
	m.mu.Unlock()
	defer cancel()

	out, err := await(callCtx, func(ctx context.Context) (*loginOutcome, error) {
		return m.authenticate(ctx, email, password)
	})

	m.mu.Lock()
	defer m.mu.Unlock()
	if seq != m.loginSeq {
		return LoginResult{}, domain.ErrLoginSuperseded
	}
	m.cancelLogin = nil
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			err = domain.ErrTimeout
		}
		err = translateError(err)
		m.deps.Log.Info().Err(err).Str("email", email).Msg("inicio de sesión fallido")
		return LoginResult{}, err
	}

	if out.resolver != "" {
		m.user = nil
		m.resolver = out.resolver
		m.mfaHint = out.hint
		m.persistLocked(ctx)
		return LoginResult{RequiresMFA: true, Hint: out.hint}, nil
	}

	m.user = out.user
	m.resolver = ""
	m.mfaHint = ""
	m.persistLocked(ctx)
	m.recordLocked(ctx, entity.AuditActionLogin, "inicio de sesión")
	return LoginResult{}, nil
}

// authenticate corre fuera del lock: llamadas al proveedor y carga del usuario.
func (m *Manager) authenticate(ctx context.Context, email, password string) (*loginOutcome, error) {
	res, err := m.deps.Provider.SignIn(ctx, email, password)
	if err != nil {
		if email == m.cfg.BootstrapAdminEmail && isProviderCode(err, CodeUserNotFound) {
			return m.bootstrapAdmin(ctx, email, password)
		}
		return nil, err
	}
	if res.Resolver != "" {
		return &loginOutcome{resolver: res.Resolver, hint: res.Hint}, nil
	}
	user, err := m.loadUser(ctx, res.UID)
	if err != nil {
		return nil, err
	}
	return &loginOutcome{user: user}, nil
}

// bootstrapAdmin crea la cuenta del administrador inicial en el primer despliegue.
func (m *Manager) bootstrapAdmin(ctx context.Context, email, password string) (*loginOutcome, error) {
	uid, err := m.deps.Provider.CreateAccount(ctx, email, password)
	if err != nil {
		return nil, err
	}
	user, err := m.deps.Users.GetByID(ctx, uid)
	if err != nil {
		return nil, err
	}
	if user == nil {
		now := m.deps.Now()
		user = &entity.User{
			ID:          uid,
			Email:       email,
			Name:        "Administrador",
			Role:        entity.RoleAdmin,
			Permissions: entity.DefaultPermissions(entity.RoleAdmin),
			Status:      entity.UserStatusActive,
			CreatedBy:   "bootstrap",
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := m.deps.Users.Create(ctx, user); err != nil {
			return nil, fmt.Errorf("crear administrador inicial: %w", err)
		}
	}
	m.deps.Log.Warn().Str("email", email).Msg("administrador inicial creado")
	return &loginOutcome{user: user}, nil
}

func (m *Manager) loadUser(ctx context.Context, uid string) (*entity.User, error) {
	user, err := m.deps.Users.GetByID(ctx, uid)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrNotProvisioned
	}
	if user.Status != entity.UserStatusActive {
		return nil, domain.ErrForbidden
	}
	return user, nil
}

// VerifyMFACode completa un inicio de sesión interrumpido por el segundo factor.
func (m *Manager) VerifyMFACode(ctx context.Context, code string) error {
	m.mu.Lock()
	resolver := m.resolver
	m.mu.Unlock()
	if resolver == "" {
		return domain.ErrNoPendingVerification
	}
	if strings.TrimSpace(code) == "" {
		return domain.ErrInvalidCode
	}

	callCtx, cancel := context.WithTimeout(ctx, m.cfg.LoginTimeout)
	defer cancel()
	user, err := await(callCtx, func(ctx context.Context) (*entity.User, error) {
		uid, err := m.deps.Provider.ResolveChallenge(ctx, resolver, strings.TrimSpace(code))
		if err != nil {
			return nil, err
		}
		return m.loadUser(ctx, uid)
	})

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.resolver != resolver {
		// Otro Login o un Logout cambió el reto mientras se verificaba.
		return domain.ErrLoginSuperseded
	}
	if err != nil {
		err = translateError(err)
		if errors.Is(err, domain.ErrNoPendingVerification) {
			m.resolver = ""
			m.mfaHint = ""
			m.persistLocked(ctx)
		}
		return err
	}
	m.user = user
	m.resolver = ""
	m.mfaHint = ""
	m.persistLocked(ctx)
	m.recordLocked(ctx, entity.AuditActionLogin, "inicio de sesión con segundo factor")
	return nil
}

// StartMFAEnrollment envía un código al teléfono para dar de alta el segundo factor.
func (m *Manager) StartMFAEnrollment(ctx context.Context, phone string) (string, error) {
	phone = strings.TrimSpace(phone)
	if !phonePattern.MatchString(phone) {
		return "", fmt.Errorf("%w: teléfono en formato internacional (+34...)", domain.ErrInvalidInput)
	}
	m.mu.Lock()
	user := m.user
	m.mu.Unlock()
	if user == nil {
		return "", domain.ErrNotAuthenticated
	}
	callCtx, cancel := context.WithTimeout(ctx, m.cfg.LoginTimeout)
	defer cancel()
	enr, err := await(callCtx, func(ctx context.Context) (*Enrollment, error) {
		return m.deps.Provider.StartEnrollment(ctx, user.ID, phone)
	})
	if err != nil {
		return "", translateError(err)
	}
	m.mu.Lock()
	m.verificationID = enr.VerificationID
	m.mu.Unlock()
	return enr.Hint, nil
}

// CompleteMFASetup da de alta el segundo factor con el código recibido.
func (m *Manager) CompleteMFASetup(ctx context.Context, code string) error {
	m.mu.Lock()
	user, vid := m.user, m.verificationID
	m.mu.Unlock()
	if vid == "" {
		return domain.ErrNoPendingVerification
	}
	if user == nil {
		return domain.ErrNotAuthenticated
	}
	if strings.TrimSpace(code) == "" {
		return domain.ErrInvalidCode
	}
	callCtx, cancel := context.WithTimeout(ctx, m.cfg.LoginTimeout)
	defer cancel()
	_, err := await(callCtx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, m.deps.Provider.EnrollSecondFactor(ctx, user.ID, vid, strings.TrimSpace(code))
	})
	if err != nil {
		err = translateError(err)
		if errors.Is(err, domain.ErrNoPendingVerification) {
			m.clearVerification(vid)
		}
		return err
	}
	m.clearVerification(vid)
	if aerr := m.deps.Audit.Record(ctx, m.auditEntry(user, entity.AuditActionUpdate, "segundo factor activado")); aerr != nil {
		m.deps.Log.Warn().Err(aerr).Msg("auditoría de alta de segundo factor")
	}
	return nil
}

func (m *Manager) clearVerification(vid string) {
	m.mu.Lock()
	if m.verificationID == vid {
		m.verificationID = ""
	}
	m.mu.Unlock()
}

// ChangePassword reautentica con la contraseña actual y la reemplaza.
func (m *Manager) ChangePassword(ctx context.Context, current, next string) error {
	if current == "" || len(next) < 8 {
		return fmt.Errorf("%w: la nueva contraseña debe tener al menos 8 caracteres", domain.ErrInvalidInput)
	}
	m.mu.Lock()
	user := m.user
	m.mu.Unlock()
	if user == nil {
		return domain.ErrNotAuthenticated
	}
	callCtx, cancel := context.WithTimeout(ctx, m.cfg.LoginTimeout)
	defer cancel()
	_, err := await(callCtx, func(ctx context.Context) (struct{}, error) {
		if err := m.deps.Provider.Reauthenticate(ctx, user.ID, current); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, m.deps.Provider.UpdatePassword(ctx, user.ID, next)
	})
	if err != nil {
		return translateError(err)
	}
	if aerr := m.deps.Audit.Record(ctx, m.auditEntry(user, entity.AuditActionUpdate, "cambio de contraseña")); aerr != nil {
		m.deps.Log.Warn().Err(aerr).Msg("auditoría de cambio de contraseña")
	}
	return nil
}

// Logout registra la auditoría, limpia el estado y la copia persistida. Siempre
// devuelve la ruta de login, aunque falle la auditoría (el error se devuelve aparte).
func (m *Manager) Logout(ctx context.Context) (string, error) {
	m.mu.Lock()
	user := m.user
	m.mu.Unlock()

	var auditErr error
	if user != nil {
		auditErr = m.deps.Audit.Record(ctx, m.auditEntry(user, entity.AuditActionLogout, "cierre de sesión"))
		if auditErr != nil {
			m.deps.Log.Warn().Err(auditErr).Msg("auditoría de cierre de sesión")
		}
	}

	m.mu.Lock()
	if m.cancelLogin != nil {
		m.cancelLogin()
		m.cancelLogin = nil
	}
	m.loginSeq++
	m.user = nil
	m.resolver = ""
	m.mfaHint = ""
	m.verificationID = ""
	m.mu.Unlock()

	if err := m.deps.Snapshots.Delete(ctx, m.cfg.SessionID); err != nil {
		m.deps.Log.Warn().Err(err).Msg("borrar copia de sesión")
	}
	return LoginPath, auditErr
}

// HasPermission consulta pura; false si no hay usuario.
func (m *Manager) HasPermission(p entity.Permission) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.user.HasPermission(p)
}

// IsAuthenticated equivale a user != nil.
func (m *Manager) IsAuthenticated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.user != nil
}

// Current devuelve una copia del estado.
func (m *Manager) Current() View {
	m.mu.Lock()
	defer m.mu.Unlock()
	v := View{
		SessionID:     m.cfg.SessionID,
		Authenticated: m.user != nil,
		MFAPending:    m.resolver != "",
		MFAHint:       m.mfaHint,
	}
	if m.user != nil {
		u := *m.user
		u.Permissions = entity.NewPermissionSet()
		for p := range m.user.Permissions {
			u.Permissions[p] = struct{}{}
		}
		v.User = &u
	}
	return v
}

// persistLocked escribe la copia completa. Requiere m.mu.
func (m *Manager) persistLocked(ctx context.Context) {
	snap := &entity.SessionSnapshot{
		SessionID:  m.cfg.SessionID,
		MFAPending: m.resolver != "",
		UpdatedAt:  m.deps.Now(),
	}
	if m.user != nil {
		snap.UserID = m.user.ID
		snap.Email = m.user.Email
		snap.Name = m.user.Name
		snap.Role = m.user.Role
		snap.Permissions = m.user.Permissions.Strings()
	}
	if err := m.deps.Snapshots.Save(context.WithoutCancel(ctx), snap); err != nil {
		m.deps.Log.Warn().Err(err).Msg("guardar copia de sesión")
	}
}

// recordLocked registra una entrada de auditoría del usuario actual. Requiere m.mu.
func (m *Manager) recordLocked(ctx context.Context, action entity.AuditAction, desc string) {
	if m.user == nil {
		return
	}
	if err := m.deps.Audit.Record(context.WithoutCancel(ctx), m.auditEntry(m.user, action, desc)); err != nil {
		m.deps.Log.Warn().Err(err).Str("action", string(action)).Msg("auditoría de sesión")
	}
}

func (m *Manager) auditEntry(user *entity.User, action entity.AuditAction, desc string) entity.AuditLog {
	return entity.AuditLog{
		UserID:      user.ID,
		UserEmail:   user.Email,
		Action:      action,
		EntityType:  "session",
		EntityID:    m.cfg.SessionID,
		Description: desc,
	}
}

func userFromSnapshot(s *entity.SessionSnapshot) *entity.User {
	perms, err := entity.ParsePermissionSet(s.Permissions)
	if err != nil {
		perms = entity.NewPermissionSet()
	}
	return &entity.User{
		ID:          s.UserID,
		Email:       s.Email,
		Name:        s.Name,
		Role:        s.Role,
		Permissions: perms,
		Status:      entity.UserStatusActive,
	}
}

// await ejecuta fn y deja de esperar cuando ctx termina. Un resultado tardío se descarta.
func await[T any](ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	type result struct {
		v   T
		err error
	}
	ch := make(chan result, 1)
	go func() {
		v, err := fn(ctx)
		ch <- result{v, err}
	}()
	select {
	case r := <-ch:
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// normalizeEmail pliega mayúsculas. Un Caser no se comparte entre goroutines.
func normalizeEmail(email string) string {
	return cases.Fold().String(strings.TrimSpace(email))
}

func validateCredentials(email, password string) error {
	if email == "" || password == "" {
		return fmt.Errorf("%w: email y contraseña son requeridos", domain.ErrInvalidInput)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return fmt.Errorf("%w: email mal formado", domain.ErrInvalidInput)
	}
	return nil
}
