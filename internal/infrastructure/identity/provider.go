// Package identity implementa el proveedor de identidad local: contraseñas con
// bcrypt en la tabla identities y segundo factor con códigos de 6 dígitos
// enviados al teléfono.
package identity

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/jhoicas/cokelateh-api/internal/application/session"
	"github.com/jhoicas/cokelateh-api/internal/domain"
	"github.com/jhoicas/cokelateh-api/internal/domain/entity"
	"github.com/jhoicas/cokelateh-api/internal/domain/repository"
)

var _ session.IdentityProvider = (*Provider)(nil)

const (
	minPasswordLen = 6
	maxCodeTries   = 5
)

// CodeSender entrega un código de verificación a un teléfono.
type CodeSender interface {
	Send(ctx context.Context, phone, code string) error
}

// Config parámetros del proveedor.
type Config struct {
	CodeTTL         time.Duration
	MaxFailedLogins int
	LockoutWindow   time.Duration
	BcryptCost      int
}

type challengeKind int

const (
	kindSignIn challengeKind = iota
	kindEnroll
)

type challenge struct {
	kind    challengeKind
	uid     string
	phone   string
	code    string
	expires time.Time
	tries   int
}

// Provider proveedor de identidad respaldado por PostgreSQL. Los retos pendientes
// viven en memoria: un reinicio los invalida y el usuario vuelve a pedir código.
type Provider struct {
	store  repository.CredentialRepository
	sender CodeSender
	cfg    Config
	log    zerolog.Logger
	now    func() time.Time

	mu         sync.Mutex
	challenges map[string]*challenge
	failures   map[string][]time.Time
}

// NewProvider construye el proveedor.
func NewProvider(store repository.CredentialRepository, sender CodeSender, cfg Config, log zerolog.Logger) *Provider {
	if cfg.CodeTTL <= 0 {
		cfg.CodeTTL = 5 * time.Minute
	}
	if cfg.MaxFailedLogins <= 0 {
		cfg.MaxFailedLogins = 5
	}
	if cfg.LockoutWindow <= 0 {
		cfg.LockoutWindow = 15 * time.Minute
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	return &Provider{
		store:      store,
		sender:     sender,
		cfg:        cfg,
		log:        log,
		now:        time.Now,
		challenges: make(map[string]*challenge),
		failures:   make(map[string][]time.Time),
	}
}

// SignIn verifica email y contraseña. Con segundo factor envía un código y
// devuelve el resolver del reto.
func (p *Provider) SignIn(ctx context.Context, email, password string) (*session.SignInResult, error) {
	if p.lockedOut(email) {
		return nil, session.NewProviderError(session.CodeTooManyRequests, "cuenta bloqueada temporalmente")
	}
	cred, err := p.store.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("buscar identidad: %w", err)
	}
	if cred == nil {
		return nil, session.NewProviderError(session.CodeUserNotFound, "no existe cuenta para %s", email)
	}
	if bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password)) != nil {
		p.recordFailure(email)
		return nil, session.NewProviderError(session.CodeWrongPassword, "contraseña incorrecta")
	}
	p.clearFailures(email)

	if !cred.HasSecondFactor() {
		return &session.SignInResult{UID: cred.UID}, nil
	}
	resolver, err := p.issue(ctx, kindSignIn, cred.UID, cred.Phone)
	if err != nil {
		return nil, err
	}
	return &session.SignInResult{Resolver: resolver, Hint: MaskPhone(cred.Phone)}, nil
}

// CreateAccount registra una cuenta nueva.
func (p *Provider) CreateAccount(ctx context.Context, email, password string) (string, error) {
	if !strings.Contains(email, "@") {
		return "", session.NewProviderError(session.CodeInvalidEmail, "email inválido")
	}
	hash, err := p.hash(password)
	if err != nil {
		return "", err
	}
	now := p.now()
	cred := &entity.Credential{
		UID:          uuid.New().String(),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := p.store.Create(ctx, cred); err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			return "", session.NewProviderError(session.CodeEmailInUse, "el email ya tiene cuenta")
		}
		return "", fmt.Errorf("crear identidad: %w", err)
	}
	p.log.Info().Str("uid", cred.UID).Str("email", email).Msg("cuenta creada")
	return cred.UID, nil
}

// StartEnrollment envía un código al teléfono para darlo de alta como segundo factor.
func (p *Provider) StartEnrollment(ctx context.Context, uid, phone string) (*session.Enrollment, error) {
	cred, err := p.store.GetByUID(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("buscar identidad: %w", err)
	}
	if cred == nil {
		return nil, session.NewProviderError(session.CodeUserNotFound, "cuenta inexistente")
	}
	vid, err := p.issue(ctx, kindEnroll, uid, phone)
	if err != nil {
		return nil, err
	}
	return &session.Enrollment{VerificationID: vid, Hint: MaskPhone(phone)}, nil
}

// EnrollSecondFactor confirma el código y guarda el teléfono.
func (p *Provider) EnrollSecondFactor(ctx context.Context, uid, verificationID, code string) error {
	ch, err := p.consume(verificationID, kindEnroll, code)
	if err != nil {
		return err
	}
	if ch.uid != uid {
		return session.NewProviderError(session.CodeCodeExpired, "verificación de otra cuenta")
	}
	if err := p.store.SetPhone(ctx, uid, ch.phone); err != nil {
		return fmt.Errorf("guardar segundo factor: %w", err)
	}
	return nil
}

// ResolveChallenge completa un inicio de sesión con segundo factor.
func (p *Provider) ResolveChallenge(_ context.Context, resolver, code string) (string, error) {
	ch, err := p.consume(resolver, kindSignIn, code)
	if err != nil {
		return "", err
	}
	return ch.uid, nil
}

// Reauthenticate comprueba la contraseña actual de la cuenta.
func (p *Provider) Reauthenticate(ctx context.Context, uid, password string) error {
	cred, err := p.store.GetByUID(ctx, uid)
	if err != nil {
		return fmt.Errorf("buscar identidad: %w", err)
	}
	if cred == nil {
		return session.NewProviderError(session.CodeUserNotFound, "cuenta inexistente")
	}
	if bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password)) != nil {
		return session.NewProviderError(session.CodeWrongPassword, "contraseña incorrecta")
	}
	return nil
}

// UpdatePassword reemplaza la contraseña.
func (p *Provider) UpdatePassword(ctx context.Context, uid, password string) error {
	hash, err := p.hash(password)
	if err != nil {
		return err
	}
	if err := p.store.UpdatePassword(ctx, uid, hash); err != nil {
		return fmt.Errorf("actualizar contraseña: %w", err)
	}
	return nil
}

func (p *Provider) hash(password string) (string, error) {
	if len(password) < minPasswordLen {
		return "", session.NewProviderError(session.CodeWeakPassword, "la contraseña debe tener al menos %d caracteres", minPasswordLen)
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), p.cfg.BcryptCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// issue crea un reto y envía el código. Devuelve el id del reto.
func (p *Provider) issue(ctx context.Context, kind challengeKind, uid, phone string) (string, error) {
	code, err := randomCode()
	if err != nil {
		return "", err
	}
	if err := p.sender.Send(ctx, phone, code); err != nil {
		return "", session.NewProviderError(session.CodeNetworkFailed, "enviar código: %v", err)
	}
	id := uuid.New().String()
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pruneLocked()
	p.challenges[id] = &challenge{kind: kind, uid: uid, phone: phone, code: code, expires: p.now().Add(p.cfg.CodeTTL)}
	return id, nil
}

// consume valida el código. Un código incorrecto deja el reto vivo hasta
// agotar los intentos; uno correcto lo elimina.
func (p *Provider) consume(id string, kind challengeKind, code string) (*challenge, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	ch, ok := p.challenges[id]
	if !ok || ch.kind != kind || !p.now().Before(ch.expires) {
		delete(p.challenges, id)
		return nil, session.NewProviderError(session.CodeCodeExpired, "verificación inexistente o caducada")
	}
	if ch.code != code {
		ch.tries++
		if ch.tries >= maxCodeTries {
			delete(p.challenges, id)
			return nil, session.NewProviderError(session.CodeTooManyRequests, "demasiados códigos incorrectos")
		}
		return nil, session.NewProviderError(session.CodeInvalidCode, "código incorrecto")
	}
	delete(p.challenges, id)
	return ch, nil
}

func (p *Provider) pruneLocked() {
	now := p.now()
	for id, ch := range p.challenges {
		if !now.Before(ch.expires) {
			delete(p.challenges, id)
		}
	}
}

func (p *Provider) lockedOut(email string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	cutoff := p.now().Add(-p.cfg.LockoutWindow)
	recent := p.failures[email][:0]
	for _, t := range p.failures[email] {
		if t.After(cutoff) {
			recent = append(recent, t)
		}
	}
	if len(recent) == 0 {
		delete(p.failures, email)
		return false
	}
	p.failures[email] = recent
	return len(recent) >= p.cfg.MaxFailedLogins
}

func (p *Provider) recordFailure(email string) {
	p.mu.Lock()
	p.failures[email] = append(p.failures[email], p.now())
	p.mu.Unlock()
}

func (p *Provider) clearFailures(email string) {
	p.mu.Lock()
	delete(p.failures, email)
	p.mu.Unlock()
}

func randomCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", fmt.Errorf("generar código: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// MaskPhone deja visibles el prefijo y los tres últimos dígitos.
func MaskPhone(phone string) string {
	if len(phone) <= 6 {
		return strings.Repeat("*", len(phone))
	}
	return phone[:3] + strings.Repeat("*", len(phone)-6) + phone[len(phone)-3:]
}
