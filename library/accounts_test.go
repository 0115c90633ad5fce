package library

import (
	"context"
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func newTestAccounts(store AccountStore, opts ...AccountsOption) *Accounts {
	return NewAccounts(store, append([]AccountsOption{WithBcryptCost(bcrypt.MinCost)}, opts...)...)
}

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	acc := newTestAccounts(NewMemoryAccounts())

	user, err := acc.Register(ctx, "  Student@LIMU.edu.ly ", "secret1")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user != "student@limu.edu.ly" {
		t.Fatalf("user = %q", user)
	}

	if _, err := acc.Register(ctx, "student@limu.edu.ly", "another"); !errors.Is(err, ErrAccountExists) {
		t.Fatalf("duplicate: want ErrAccountExists, got %v", err)
	}

	if got, err := acc.Login(ctx, "STUDENT@limu.edu.ly", "secret1"); err != nil || got != user {
		t.Fatalf("login: %q %v", got, err)
	}
	if _, err := acc.Login(ctx, user, "wrong-pw"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("bad password: want ErrInvalidCredentials, got %v", err)
	}
	if _, err := acc.Login(ctx, "ghost@limu.edu.ly", "secret1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown user: want ErrInvalidCredentials, got %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	acc := newTestAccounts(NewMemoryAccounts())
	tests := []struct {
		email, password string
		want            error
		message         string
	}{
		{"", "secret1", ErrInvalidEmail, "Email is required."},
		{"not-an-email", "secret1", ErrInvalidEmail, "Please enter a valid email address."},
		{"a@gmail.com", "secret1", ErrInvalidEmail, "Email must end with @limu.edu.ly"},
		{"a@limu.edu.ly", "", ErrInvalidPassword, "Password is required."},
		{"a@limu.edu.ly", "12345", ErrInvalidPassword, "Password must be at least 6 characters long."},
	}
	for _, tt := range tests {
		_, err := acc.Register(context.Background(), tt.email, tt.password)
		if !errors.Is(err, tt.want) {
			t.Fatalf("%q/%q: want %v, got %v", tt.email, tt.password, tt.want, err)
		}
		if got := UserMessage(err); got != tt.message {
			t.Fatalf("%q/%q: message %q, want %q", tt.email, tt.password, got, tt.message)
		}
	}
}

func TestCustomEmailDomain(t *testing.T) {
	acc := newTestAccounts(NewMemoryAccounts(), WithEmailDomain("Example.org"))
	if acc.Domain() != "@example.org" {
		t.Fatalf("domain = %q", acc.Domain())
	}
	if err := acc.ValidateEmail("x@example.org"); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if err := acc.ValidateEmail("x@limu.edu.ly"); !errors.Is(err, ErrInvalidEmail) {
		t.Fatalf("want ErrInvalidEmail, got %v", err)
	}
}

func TestRegisterStoresTimestamp(t *testing.T) {
	store := NewMemoryAccounts()
	acc := newTestAccounts(store, WithAccountsClock(fixedClock))
	if _, err := acc.Register(context.Background(), "t@limu.edu.ly", "secret1"); err != nil {
		t.Fatalf("register: %v", err)
	}
	m, ok, _ := store.FindMember(context.Background(), "t@limu.edu.ly")
	if !ok || !m.CreatedAt.Equal(fixedNow) || m.PasswordHash == "secret1" {
		t.Fatalf("member = %+v", m)
	}
}
