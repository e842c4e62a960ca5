package session_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/cokelateh-api/internal/application/session"
	"github.com/jhoicas/cokelateh-api/internal/domain"
	"github.com/jhoicas/cokelateh-api/internal/domain/entity"
)

const adminEmail = "admin@cokelateh.com"

type env struct {
	provider  *fakeProvider
	users     *memUsers
	snapshots *memSnapshots
	audit     *fakeAudit
	verifier  *flakyVerifier
}

func newEnv() *env {
	return &env{
		provider:  newFakeProvider(),
		users:     newMemUsers(),
		snapshots: newMemSnapshots(),
		audit:     &fakeAudit{},
		verifier:  &flakyVerifier{},
	}
}

func (e *env) manager(t *testing.T, sessionID string, timeout time.Duration) *session.Manager {
	t.Helper()
	m := session.NewManager(session.Config{
		SessionID:           sessionID,
		BootstrapAdminEmail: adminEmail,
		LoginTimeout:        timeout,
		VerifierAttempts:    2,
		VerifierBackoff:     time.Millisecond,
	}, session.Deps{
		Provider:  e.provider,
		Users:     e.users,
		Snapshots: e.snapshots,
		Audit:     e.audit,
		Verifier:  e.verifier,
		Log:       zerolog.Nop(),
	})
	require.NoError(t, m.Init(context.Background()))
	t.Cleanup(m.Dispose)
	return m
}

func (e *env) staff(t *testing.T, email, password string, mfa bool) string {
	t.Helper()
	uid := e.provider.add(email, password, mfa)
	require.NoError(t, e.users.Create(context.Background(), &entity.User{
		ID:          uid,
		Email:       email,
		Name:        "Personal",
		Role:        entity.RoleStaff,
		Permissions: entity.NewPermissionSet(entity.PermissionManageInventory),
		Status:      entity.UserStatusActive,
	}))
	return uid
}

func TestLogin_SinSegundoFactor(t *testing.T) {
	e := newEnv()
	uid := e.staff(t, "ana@cokelateh.com", "secreto123", false)
	m := e.manager(t, "s1", time.Second)

	res, err := m.Login(context.Background(), "  Ana@Cokelateh.com ", "secreto123")
	require.NoError(t, err)
	assert.False(t, res.RequiresMFA)

	v := m.Current()
	require.True(t, v.Authenticated)
	assert.Equal(t, uid, v.User.ID)
	assert.True(t, m.HasPermission(entity.PermissionManageInventory))
	assert.False(t, m.HasPermission(entity.PermissionManageUsers))
	assert.Equal(t, []entity.AuditAction{entity.AuditActionLogin}, e.audit.actions())

	snap, ok := e.snapshots.get("s1")
	require.True(t, ok)
	assert.Equal(t, uid, snap.UserID)
	assert.Equal(t, []string{"manage_inventory"}, snap.Permissions)
}

func TestLogin_ContrasenaIncorrecta(t *testing.T) {
	e := newEnv()
	e.staff(t, "ana@cokelateh.com", "secreto123", false)
	m := e.manager(t, "s1", time.Second)

	_, err := m.Login(context.Background(), "ana@cokelateh.com", "otra")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	assert.False(t, m.IsAuthenticated())
	assert.Empty(t, e.audit.actions())
}

func TestLogin_ValidaEntrada(t *testing.T) {
	e := newEnv()
	m := e.manager(t, "s1", time.Second)

	_, err := m.Login(context.Background(), "", "x")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = m.Login(context.Background(), "no-es-email", "x")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Equal(t, 0, e.provider.signIns)
}

func TestLogin_CuentaDesconocida(t *testing.T) {
	e := newEnv()
	m := e.manager(t, "s1", time.Second)

	_, err := m.Login(context.Background(), "nadie@cokelateh.com", "secreto123")
	assert.ErrorIs(t, err, domain.ErrUnknownAccount)
	assert.Empty(t, e.provider.created)
}

func TestLogin_SinPerfilProvisionado(t *testing.T) {
	e := newEnv()
	e.provider.add("huerfano@cokelateh.com", "secreto123", false)
	m := e.manager(t, "s1", time.Second)

	_, err := m.Login(context.Background(), "huerfano@cokelateh.com", "secreto123")
	assert.ErrorIs(t, err, domain.ErrNotProvisioned)
	assert.False(t, m.IsAuthenticated())
}

func TestLogin_UsuarioInactivo(t *testing.T) {
	e := newEnv()
	uid := e.staff(t, "baja@cokelateh.com", "secreto123", false)
	e.users.users[uid].Status = entity.UserStatusInactive
	m := e.manager(t, "s1", time.Second)

	_, err := m.Login(context.Background(), "baja@cokelateh.com", "secreto123")
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestLogin_AdministradorInicial(t *testing.T) {
	e := newEnv()
	m := e.manager(t, "s1", time.Second)

	res, err := m.Login(context.Background(), adminEmail, "primera-clave")
	require.NoError(t, err)
	assert.False(t, res.RequiresMFA)
	assert.Equal(t, []string{adminEmail}, e.provider.created)

	require.True(t, m.IsAuthenticated())
	for _, p := range entity.AllPermissions {
		assert.True(t, m.HasPermission(p), "permiso %s", p)
	}
	v := m.Current()
	assert.Equal(t, entity.RoleAdmin, v.User.Role)
	assert.Equal(t, "bootstrap", v.User.CreatedBy)

	// El segundo inicio usa la cuenta ya creada.
	_, err = m.Logout(context.Background())
	require.NoError(t, err)
	_, err = m.Login(context.Background(), adminEmail, "primera-clave")
	require.NoError(t, err)
	assert.Len(t, e.provider.created, 1)
}

func TestLogin_SegundoFactor(t *testing.T) {
	e := newEnv()
	uid := e.staff(t, "mfa@cokelateh.com", "secreto123", true)
	m := e.manager(t, "s1", time.Second)

	res, err := m.Login(context.Background(), "mfa@cokelateh.com", "secreto123")
	require.NoError(t, err)
	assert.True(t, res.RequiresMFA)
	assert.NotEmpty(t, res.Hint)
	assert.False(t, m.IsAuthenticated())
	assert.False(t, m.HasPermission(entity.PermissionManageInventory))
	assert.True(t, m.Current().MFAPending)

	err = m.VerifyMFACode(context.Background(), "000000")
	assert.ErrorIs(t, err, domain.ErrInvalidCode)
	assert.False(t, m.IsAuthenticated())
	assert.True(t, m.Current().MFAPending)

	err = m.VerifyMFACode(context.Background(), " ")
	assert.ErrorIs(t, err, domain.ErrInvalidCode)

	require.NoError(t, m.VerifyMFACode(context.Background(), goodMFACode))
	v := m.Current()
	assert.True(t, v.Authenticated)
	assert.False(t, v.MFAPending)
	assert.Equal(t, uid, v.User.ID)
	assert.Equal(t, []entity.AuditAction{entity.AuditActionLogin}, e.audit.actions())
}

func TestVerifyMFACode_SinReto(t *testing.T) {
	e := newEnv()
	m := e.manager(t, "s1", time.Second)

	err := m.VerifyMFACode(context.Background(), goodMFACode)
	assert.ErrorIs(t, err, domain.ErrNoPendingVerification)
}

func TestLogin_Timeout(t *testing.T) {
	e := newEnv()
	e.staff(t, "lento@cokelateh.com", "secreto123", false)
	e.provider.block = make(chan struct{})
	e.provider.ignoreCtx = true
	t.Cleanup(func() { close(e.provider.block) })
	m := e.manager(t, "s1", 30*time.Millisecond)

	start := time.Now()
	_, err := m.Login(context.Background(), "lento@cokelateh.com", "secreto123")
	assert.ErrorIs(t, err, domain.ErrTimeout)
	assert.Less(t, time.Since(start), time.Second)
	assert.False(t, m.IsAuthenticated())
}

func TestLogin_GanaElUltimo(t *testing.T) {
	e := newEnv()
	e.staff(t, "uno@cokelateh.com", "secreto123", false)
	dos := e.staff(t, "dos@cokelateh.com", "secreto123", false)
	e.provider.block = make(chan struct{})
	e.provider.entered = make(chan struct{})
	t.Cleanup(func() { close(e.provider.block) })
	m := e.manager(t, "s1", 5*time.Second)

	first := make(chan error, 1)
	go func() {
		_, err := m.Login(context.Background(), "uno@cokelateh.com", "secreto123")
		first <- err
	}()
	<-e.provider.entered

	_, err := m.Login(context.Background(), "dos@cokelateh.com", "secreto123")
	require.NoError(t, err)

	select {
	case err := <-first:
		assert.ErrorIs(t, err, domain.ErrLoginSuperseded)
	case <-time.After(2 * time.Second):
		t.Fatal("el primer inicio de sesión no terminó")
	}
	assert.Equal(t, dos, m.Current().User.ID)
}

func TestLogin_VerificadorNoListo(t *testing.T) {
	e := newEnv()
	e.staff(t, "ana@cokelateh.com", "secreto123", false)
	e.verifier.failures = 2
	m := e.manager(t, "s1", time.Second)

	assert.False(t, m.VerifierReady())
	_, err := m.Login(context.Background(), "ana@cokelateh.com", "secreto123")
	assert.ErrorIs(t, err, domain.ErrChallengeNotReady)

	require.NoError(t, m.InitVerifier(context.Background()))
	assert.True(t, m.VerifierReady())
	_, err = m.Login(context.Background(), "ana@cokelateh.com", "secreto123")
	assert.NoError(t, err)
}

func TestLogin_ErrorDeRed(t *testing.T) {
	e := newEnv()
	e.provider.signInErr = session.NewProviderError(session.CodeNetworkFailed, "sin conexión")
	m := e.manager(t, "s1", time.Second)

	_, err := m.Login(context.Background(), "ana@cokelateh.com", "secreto123")
	assert.ErrorIs(t, err, domain.ErrNetwork)
}

func TestLogout_FalloDeAuditoria(t *testing.T) {
	e := newEnv()
	e.staff(t, "ana@cokelateh.com", "secreto123", false)
	m := e.manager(t, "s1", time.Second)
	_, err := m.Login(context.Background(), "ana@cokelateh.com", "secreto123")
	require.NoError(t, err)

	e.audit.err = errors.New("db caída")
	path, err := m.Logout(context.Background())
	assert.Equal(t, session.LoginPath, path)
	assert.Error(t, err)
	assert.False(t, m.IsAuthenticated())
	assert.False(t, m.HasPermission(entity.PermissionManageInventory))

	_, ok := e.snapshots.get("s1")
	assert.False(t, ok)
}

func TestLogout_SinUsuario(t *testing.T) {
	e := newEnv()
	m := e.manager(t, "s1", time.Second)

	path, err := m.Logout(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, "/login", path)
	assert.Empty(t, e.audit.actions())
}

func TestInit_RestauraCopia(t *testing.T) {
	e := newEnv()
	uid := e.staff(t, "ana@cokelateh.com", "secreto123", false)
	m := e.manager(t, "s1", time.Second)
	_, err := m.Login(context.Background(), "ana@cokelateh.com", "secreto123")
	require.NoError(t, err)

	// Los permisos cambian mientras la sesión estaba guardada.
	e.users.users[uid].Permissions = entity.NewPermissionSet(entity.PermissionManageOrders)

	restored := e.manager(t, "s1", time.Second)
	require.True(t, restored.IsAuthenticated())
	assert.True(t, restored.HasPermission(entity.PermissionManageOrders))
	assert.False(t, restored.HasPermission(entity.PermissionManageInventory))
}

func TestInit_DescartaUsuarioInactivo(t *testing.T) {
	e := newEnv()
	uid := e.staff(t, "ana@cokelateh.com", "secreto123", false)
	m := e.manager(t, "s1", time.Second)
	_, err := m.Login(context.Background(), "ana@cokelateh.com", "secreto123")
	require.NoError(t, err)

	e.users.users[uid].Status = entity.UserStatusInactive

	restored := e.manager(t, "s1", time.Second)
	assert.False(t, restored.IsAuthenticated())
	_, ok := e.snapshots.get("s1")
	assert.False(t, ok)
}

func TestMFAEnrollment(t *testing.T) {
	e := newEnv()
	uid := e.staff(t, "ana@cokelateh.com", "secreto123", false)
	m := e.manager(t, "s1", time.Second)

	_, err := m.StartMFAEnrollment(context.Background(), "+34600111222")
	assert.ErrorIs(t, err, domain.ErrNotAuthenticated)

	_, err = m.Login(context.Background(), "ana@cokelateh.com", "secreto123")
	require.NoError(t, err)

	_, err = m.StartMFAEnrollment(context.Background(), "600111222")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	err = m.CompleteMFASetup(context.Background(), goodEnrollCode)
	assert.ErrorIs(t, err, domain.ErrNoPendingVerification)

	hint, err := m.StartMFAEnrollment(context.Background(), "+34600111222")
	require.NoError(t, err)
	assert.NotEmpty(t, hint)

	assert.ErrorIs(t, m.CompleteMFASetup(context.Background(), "111111"), domain.ErrInvalidCode)
	require.NoError(t, m.CompleteMFASetup(context.Background(), goodEnrollCode))
	assert.True(t, e.provider.byUID[uid].mfa)

	// El siguiente inicio exige el segundo factor.
	_, err = m.Logout(context.Background())
	require.NoError(t, err)
	res, err := m.Login(context.Background(), "ana@cokelateh.com", "secreto123")
	require.NoError(t, err)
	assert.True(t, res.RequiresMFA)
}

func TestChangePassword(t *testing.T) {
	e := newEnv()
	e.staff(t, "ana@cokelateh.com", "secreto123", false)
	m := e.manager(t, "s1", time.Second)
	_, err := m.Login(context.Background(), "ana@cokelateh.com", "secreto123")
	require.NoError(t, err)

	assert.ErrorIs(t, m.ChangePassword(context.Background(), "secreto123", "corta"), domain.ErrInvalidInput)
	assert.ErrorIs(t, m.ChangePassword(context.Background(), "mala", "nueva-clave-1"), domain.ErrInvalidCredentials)
	require.NoError(t, m.ChangePassword(context.Background(), "secreto123", "nueva-clave-1"))

	_, err = m.Logout(context.Background())
	require.NoError(t, err)
	_, err = m.Login(context.Background(), "ana@cokelateh.com", "secreto123")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	_, err = m.Login(context.Background(), "ana@cokelateh.com", "nueva-clave-1")
	assert.NoError(t, err)
}

func TestCurrent_DevuelveCopia(t *testing.T) {
	e := newEnv()
	e.staff(t, "ana@cokelateh.com", "secreto123", false)
	m := e.manager(t, "s1", time.Second)
	_, err := m.Login(context.Background(), "ana@cokelateh.com", "secreto123")
	require.NoError(t, err)

	v := m.Current()
	v.User.Permissions[entity.PermissionManageUsers] = struct{}{}
	assert.False(t, m.HasPermission(entity.PermissionManageUsers))
}

func TestDispose_RechazaLogin(t *testing.T) {
	e := newEnv()
	e.staff(t, "ana@cokelateh.com", "secreto123", false)
	m := e.manager(t, "s1", time.Second)
	m.Dispose()

	_, err := m.Login(context.Background(), "ana@cokelateh.com", "secreto123")
	assert.Error(t, err)
	assert.False(t, m.IsAuthenticated())
}
