package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// =============================================================================
// ACCOUNTS - Staff login and subadmin management
// =============================================================================

// MinPasswordLength is the shortest password accepted for staff accounts.
const MinPasswordLength = 6

// MaxPasswordLength is the bcrypt input limit in bytes.
const MaxPasswordLength = 72

type Accounts struct {
	Store  AccountStore
	Now    func() time.Time
	Cost   int // bcrypt cost
	Logger *slog.Logger
}

func NewAccounts(store AccountStore, logger *slog.Logger) *Accounts {
	return &Accounts{Store: store, Now: time.Now, Cost: bcrypt.DefaultCost, Logger: logger}
}

func (s *Accounts) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

func (s *Accounts) log() *slog.Logger {
	if s.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return s.Logger
}

func (s *Accounts) hash(password string) (string, error) {
	if len(password) < MinPasswordLength {
		return "", &ValidationError{
			Field:  "password",
			Reason: fmt.Sprintf("must be at least %d characters", MinPasswordLength),
			err:    ErrWeakPassword,
		}
	}
	if len(password) > MaxPasswordLength {
		return "", &ValidationError{
			Field:  "password",
			Reason: fmt.Sprintf("must be at most %d bytes", MaxPasswordLength),
			err:    ErrWeakPassword,
		}
	}
	cost := s.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(b), nil
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", &ValidationError{Field: "email", Reason: "must be a plain email address", err: ErrInvalidEmail}
	}
	return email, nil
}

// Authenticate checks an email/password pair. Only staff accounts can log in.
func (s *Accounts) Authenticate(ctx context.Context, email, password string) (Actor, error) {
	acc, err := s.Store.GetAccountByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, ErrAccountNotFound) {
		return Actor{}, ErrInvalidCredentials
	}
	if err != nil {
		return Actor{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(password)); err != nil {
		return Actor{}, ErrInvalidCredentials
	}
	actor := acc.Actor()
	if !actor.IsStaff() {
		return Actor{}, ErrInvalidCredentials
	}
	return actor, nil
}

// EnsureAdmin creates the bootstrap admin if no account uses email.
// An existing account is left untouched.
func (s *Accounts) EnsureAdmin(ctx context.Context, email, password string) (bool, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return false, err
	}
	_, err = s.Store.GetAccountByEmail(ctx, email)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, ErrAccountNotFound) {
		return false, err
	}
	if _, err := s.create(ctx, email, password, RoleAdmin); err != nil {
		return false, err
	}
	s.log().Info("bootstrap admin created", "email", email)
	return true, nil
}

func (s *Accounts) create(ctx context.Context, email, password string, role Role) (*Account, error) {
	hash, err := s.hash(password)
	if err != nil {
		return nil, err
	}
	now := s.now()
	acc := Account{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.Store.CreateAccount(ctx, acc); err != nil {
		return nil, err
	}
	return &acc, nil
}

func (s *Accounts) CreateSubadmin(ctx context.Context, actor Actor, email, password string) (*Account, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	acc, err := s.create(ctx, email, password, RoleSubadmin)
	if err != nil {
		return nil, err
	}
	s.log().Info("subadmin created", "id", acc.ID, "email", acc.Email, "by", actor.Email)
	return acc, nil
}

func (s *Accounts) ListSubadmins(ctx context.Context, actor Actor) ([]Account, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	subs, err := s.Store.ListAccounts(ctx, RoleSubadmin)
	if err != nil {
		return nil, err
	}
	if subs == nil {
		subs = []Account{}
	}
	return subs, nil
}

// subadmin loads id and checks it is a subadmin account.
func (s *Accounts) subadmin(ctx context.Context, id string) (*Account, error) {
	acc, err := s.Store.GetAccount(ctx, id)
	if err != nil {
		return nil, err
	}
	if acc.Role != RoleSubadmin {
		return nil, ErrAccountNotFound
	}
	return acc, nil
}

func (s *Accounts) UpdateSubadminEmail(ctx context.Context, actor Actor, id, email string) (*Account, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	acc, err := s.subadmin(ctx, id)
	if err != nil {
		return nil, err
	}
	acc.Email = email
	acc.UpdatedAt = s.now()
	if err := s.Store.UpdateAccount(ctx, *acc); err != nil {
		return nil, err
	}
	return acc, nil
}

func (s *Accounts) UpdateSubadminPassword(ctx context.Context, actor Actor, id, password string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	acc, err := s.subadmin(ctx, id)
	if err != nil {
		return err
	}
	hash, err := s.hash(password)
	if err != nil {
		return err
	}
	acc.PasswordHash = hash
	acc.UpdatedAt = s.now()
	return s.Store.UpdateAccount(ctx, *acc)
}

func (s *Accounts) DeleteSubadmin(ctx context.Context, actor Actor, id string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if _, err := s.subadmin(ctx, id); err != nil {
		return err
	}
	if err := s.Store.DeleteAccount(ctx, id); err != nil {
		return err
	}
	s.log().Info("subadmin deleted", "id", id, "by", actor.Email)
	return nil
}
