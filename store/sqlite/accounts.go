package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/insafmmkurram-create/web/registry"
)

// =============================================================================
// ACCOUNTS - registry.AccountStore
// =============================================================================

const accountColumns = "id, email, password_hash, role, created_at, updated_at"

func (s *Store) CreateAccount(ctx context.Context, a registry.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO accounts ("+accountColumns+") VALUES (?, ?, ?, ?, ?, ?)",
		a.ID, a.Email, a.PasswordHash, a.Role, formatTime(a.CreatedAt), formatTime(a.UpdatedAt),
	)
	if isUniqueConstraintError(err) {
		return registry.ErrDuplicateEmail
	}
	if err != nil {
		return fmt.Errorf("failed to insert account: %w", err)
	}
	return nil
}

func (s *Store) GetAccount(ctx context.Context, id string) (*registry.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return scanAccount(s.db.QueryRowContext(ctx, "SELECT "+accountColumns+" FROM accounts WHERE id = ?", id))
}

func (s *Store) GetAccountByEmail(ctx context.Context, email string) (*registry.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return scanAccount(s.db.QueryRowContext(ctx, "SELECT "+accountColumns+" FROM accounts WHERE email = ?", email))
}

// ListAccounts returns accounts with role, ordered by email.
func (s *Store) ListAccounts(ctx context.Context, role registry.Role) ([]registry.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+accountColumns+" FROM accounts WHERE role = ? ORDER BY email", role)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	accounts := []registry.Account{}
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, *acc)
	}
	return accounts, rows.Err()
}

func (s *Store) UpdateAccount(ctx context.Context, a registry.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"UPDATE accounts SET email = ?, password_hash = ?, role = ?, updated_at = ? WHERE id = ?",
		a.Email, a.PasswordHash, a.Role, formatTime(a.UpdatedAt), a.ID,
	)
	if isUniqueConstraintError(err) {
		return registry.ErrDuplicateEmail
	}
	if err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}
	return requireRow(res, registry.ErrAccountNotFound)
}

func (s *Store) DeleteAccount(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM accounts WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	return requireRow(res, registry.ErrAccountNotFound)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*registry.Account, error) {
	var a registry.Account
	var createdAt, updatedAt string
	err := row.Scan(&a.ID, &a.Email, &a.PasswordHash, &a.Role, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, registry.ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	a.CreatedAt = parseTime(createdAt)
	a.UpdatedAt = parseTime(updatedAt)
	return &a, nil
}
