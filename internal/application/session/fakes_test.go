package session_test

import (
	"context"
	"fmt"
	"sync"

	"github.com/jhoicas/cokelateh-api/internal/application/session"
	"github.com/jhoicas/cokelateh-api/internal/domain/entity"
)

const (
	goodMFACode    = "123456"
	goodEnrollCode = "654321"
)

type fakeAccount struct {
	uid      string
	password string
	mfa      bool
}

// fakeProvider proveedor de identidad en memoria.
type fakeProvider struct {
	mu       sync.Mutex
	accounts map[string]*fakeAccount
	byUID    map[string]*fakeAccount
	nextID   int

	// block, si no es nil, detiene la primera llamada a SignIn hasta cerrarse.
	block     chan struct{}
	ignoreCtx bool
	entered   chan struct{}
	signIns   int

	signInErr error
	created   []string
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{accounts: map[string]*fakeAccount{}, byUID: map[string]*fakeAccount{}}
}

func (p *fakeProvider) add(email, password string, mfa bool) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextID++
	a := &fakeAccount{uid: fmt.Sprintf("uid-%d", p.nextID), password: password, mfa: mfa}
	p.accounts[email] = a
	p.byUID[a.uid] = a
	return a.uid
}

func (p *fakeProvider) SignIn(ctx context.Context, email, password string) (*session.SignInResult, error) {
	p.mu.Lock()
	p.signIns++
	first := p.signIns == 1
	block, entered, ignoreCtx := p.block, p.entered, p.ignoreCtx
	forced := p.signInErr
	p.mu.Unlock()

	if first && block != nil {
		if entered != nil {
			close(entered)
		}
		if ignoreCtx {
			<-block
		} else {
			select {
			case <-block:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	if forced != nil {
		return nil, forced
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	a, ok := p.accounts[email]
	if !ok {
		return nil, session.NewProviderError(session.CodeUserNotFound, "no existe %s", email)
	}
	if a.password != password {
		return nil, session.NewProviderError(session.CodeWrongPassword, "contraseña incorrecta")
	}
	if a.mfa {
		return &session.SignInResult{Resolver: "res-" + a.uid, Hint: "+34******789"}, nil
	}
	return &session.SignInResult{UID: a.uid}, nil
}

func (p *fakeProvider) CreateAccount(_ context.Context, email, password string) (string, error) {
	p.mu.Lock()
	if _, ok := p.accounts[email]; ok {
		p.mu.Unlock()
		return "", session.NewProviderError(session.CodeEmailInUse, "ya existe")
	}
	p.created = append(p.created, email)
	p.mu.Unlock()
	return p.add(email, password, false), nil
}

func (p *fakeProvider) StartEnrollment(_ context.Context, uid, _ string) (*session.Enrollment, error) {
	return &session.Enrollment{VerificationID: "vid-" + uid, Hint: "+34******789"}, nil
}

func (p *fakeProvider) EnrollSecondFactor(_ context.Context, uid, vid, code string) error {
	if vid != "vid-"+uid {
		return session.NewProviderError(session.CodeCodeExpired, "verificación desconocida")
	}
	if code != goodEnrollCode {
		return session.NewProviderError(session.CodeInvalidCode, "código incorrecto")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.byUID[uid].mfa = true
	return nil
}

func (p *fakeProvider) ResolveChallenge(_ context.Context, resolver, code string) (string, error) {
	if code != goodMFACode {
		return "", session.NewProviderError(session.CodeInvalidCode, "código incorrecto")
	}
	return resolver[len("res-"):], nil
}

func (p *fakeProvider) Reauthenticate(_ context.Context, uid, password string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.byUID[uid].password != password {
		return session.NewProviderError(session.CodeWrongPassword, "contraseña incorrecta")
	}
	return nil
}

func (p *fakeProvider) UpdatePassword(_ context.Context, uid, password string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.byUID[uid].password = password
	return nil
}

// memUsers repositorio de usuarios en memoria.
type memUsers struct {
	mu    sync.Mutex
	users map[string]*entity.User
}

func newMemUsers() *memUsers { return &memUsers{users: map[string]*entity.User{}} }

func (r *memUsers) Create(_ context.Context, u *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[u.ID] = u
	return nil
}

func (r *memUsers) GetByID(_ context.Context, id string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.users[id], nil
}

func (r *memUsers) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (r *memUsers) Update(_ context.Context, u *entity.User) error { return r.Create(context.Background(), u) }

func (r *memUsers) List(_ context.Context, _, _ int) ([]*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.User
	for _, u := range r.users {
		out = append(out, u)
	}
	return out, nil
}

// memSnapshots copias de sesión en memoria.
type memSnapshots struct {
	mu    sync.Mutex
	snaps map[string]entity.SessionSnapshot
	saves int
}

func newMemSnapshots() *memSnapshots { return &memSnapshots{snaps: map[string]entity.SessionSnapshot{}} }

func (s *memSnapshots) Load(_ context.Context, id string) (*entity.SessionSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.snaps[id]
	if !ok {
		return nil, nil
	}
	return &snap, nil
}

func (s *memSnapshots) Save(_ context.Context, snap *entity.SessionSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snaps[snap.SessionID] = *snap
	s.saves++
	return nil
}

func (s *memSnapshots) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.snaps, id)
	return nil
}

func (s *memSnapshots) get(id string) (entity.SessionSnapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.snaps[id]
	return snap, ok
}

// fakeAudit registra entradas de auditoría en memoria.
type fakeAudit struct {
	mu      sync.Mutex
	entries []entity.AuditLog
	err     error
}

func (a *fakeAudit) Record(_ context.Context, l entity.AuditLog) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return a.err
	}
	a.entries = append(a.entries, l)
	return nil
}

func (a *fakeAudit) actions() []entity.AuditAction {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]entity.AuditAction, 0, len(a.entries))
	for _, e := range a.entries {
		out = append(out, e.Action)
	}
	return out
}

// flakyVerifier falla las primeras `failures` inicializaciones.
type flakyVerifier struct {
	mu       sync.Mutex
	failures int
	calls    int
}

func (v *flakyVerifier) Init(context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.calls++
	if v.calls <= v.failures {
		return fmt.Errorf("verificador no disponible (%d)", v.calls)
	}
	return nil
}
