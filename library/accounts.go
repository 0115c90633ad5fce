package library

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// DefaultEmailDomain is the only domain allowed to register.
const DefaultEmailDomain = "@limu.edu.ly"

const minPasswordLength = 6

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// AccountStore persists members keyed by normalized email.
type AccountStore interface {
	FindMember(ctx context.Context, email string) (*Member, bool, error)
	CreateMember(ctx context.Context, email, passwordHash string, createdAt time.Time) (*Member, error)
}

// Accounts registers and authenticates members.
type Accounts struct {
	store  AccountStore
	domain string
	cost   int
	clock  Clock
}

type AccountsOption func(*Accounts)

// WithEmailDomain overrides DefaultEmailDomain. The leading "@" is optional.
func WithEmailDomain(domain string) AccountsOption {
	return func(a *Accounts) {
		d := strings.ToLower(strings.TrimSpace(domain))
		if d == "" {
			return
		}
		if !strings.HasPrefix(d, "@") {
			d = "@" + d
		}
		a.domain = d
	}
}

// WithBcryptCost sets the hashing cost; tests use bcrypt.MinCost.
func WithBcryptCost(cost int) AccountsOption {
	return func(a *Accounts) { a.cost = cost }
}

func WithAccountsClock(clock Clock) AccountsOption {
	return func(a *Accounts) { a.clock = clock }
}

func NewAccounts(store AccountStore, opts ...AccountsOption) *Accounts {
	a := &Accounts{
		store:  store,
		domain: DefaultEmailDomain,
		cost:   bcrypt.DefaultCost,
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Domain returns the allowed email domain including the leading "@".
func (a *Accounts) Domain() string { return a.domain }

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail checks the address shape and the allowed domain.
func (a *Accounts) ValidateEmail(email string) error {
	if strings.TrimSpace(email) == "" {
		return &ValidationError{Kind: ErrInvalidEmail, Message: "Email is required."}
	}
	e := NormalizeEmail(email)
	if !emailPattern.MatchString(e) {
		return &ValidationError{Kind: ErrInvalidEmail, Message: "Please enter a valid email address."}
	}
	if !strings.HasSuffix(e, a.domain) {
		return &ValidationError{Kind: ErrInvalidEmail, Message: "Email must end with " + a.domain}
	}
	return nil
}

func ValidatePassword(password string) error {
	if password == "" {
		return &ValidationError{Kind: ErrInvalidPassword, Message: "Password is required."}
	}
	if len(password) < minPasswordLength {
		return &ValidationError{Kind: ErrInvalidPassword, Message: fmt.Sprintf("Password must be at least %d characters long.", minPasswordLength)}
	}
	return nil
}

// Register creates a member and returns the normalized email.
func (a *Accounts) Register(ctx context.Context, email, password string) (string, error) {
	if err := a.ValidateEmail(email); err != nil {
		return "", err
	}
	if err := ValidatePassword(password); err != nil {
		return "", err
	}
	e := NormalizeEmail(email)

	if _, found, err := a.store.FindMember(ctx, e); err != nil {
		return "", err
	} else if found {
		return "", fmt.Errorf("%s: %w", e, ErrAccountExists)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), a.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	if _, err := a.store.CreateMember(ctx, e, string(hash), a.clock().UTC()); err != nil {
		return "", err
	}
	return e, nil
}

// Login verifies the credentials and returns the normalized email.
func (a *Accounts) Login(ctx context.Context, email, password string) (string, error) {
	if err := a.ValidateEmail(email); err != nil {
		return "", err
	}
	if password == "" {
		return "", &ValidationError{Kind: ErrInvalidPassword, Message: "Password is required."}
	}
	e := NormalizeEmail(email)

	m, found, err := a.store.FindMember(ctx, e)
	if err != nil {
		return "", err
	}
	if !found {
		return "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(m.PasswordHash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return "", ErrInvalidCredentials
		}
		return "", fmt.Errorf("verify password: %w", err)
	}
	return e, nil
}

// MemoryAccounts is an in-process AccountStore.
type MemoryAccounts struct {
	mu      sync.RWMutex
	members map[string]*Member
	nextID  int64
}

func NewMemoryAccounts() *MemoryAccounts {
	return &MemoryAccounts{members: make(map[string]*Member)}
}

func (m *MemoryAccounts) FindMember(_ context.Context, email string) (*Member, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	mem, ok := m.members[email]
	if !ok {
		return nil, false, nil
	}
	cp := *mem
	return &cp, true, nil
}

func (m *MemoryAccounts) CreateMember(_ context.Context, email, passwordHash string, createdAt time.Time) (*Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.members[email]; ok {
		return nil, fmt.Errorf("%s: %w", email, ErrAccountExists)
	}
	m.nextID++
	mem := &Member{ID: m.nextID, Email: email, PasswordHash: passwordHash, CreatedAt: createdAt}
	m.members[email] = mem
	cp := *mem
	return &cp, nil
}
