package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/insafmmkurram-create/web/payout"
)

// =============================================================================
// PAYMENTS - payout.HistoryStore
// =============================================================================

const paymentColumns = `id, household_id, date, applicant_name, nic, account_number,
	bank_name, amount, status, created_at, updated_at`

// UpsertPayment writes rec, overwriting the household's row for rec.Date.
func (s *Store) UpsertPayment(ctx context.Context, rec payout.PaymentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO payments (`+paymentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(household_id, date) DO UPDATE SET
			applicant_name = excluded.applicant_name,
			nic = excluded.nic,
			account_number = excluded.account_number,
			bank_name = excluded.bank_name,
			amount = excluded.amount,
			status = excluded.status,
			updated_at = excluded.updated_at`,
		rec.ID, rec.HouseholdID, rec.Date.String(), rec.ApplicantName, rec.NIC, rec.AccountNumber,
		rec.BankName, rec.Amount.StringFixed(2), rec.Status,
		formatTime(rec.CreatedAt), formatTime(rec.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert payment: %w", err)
	}
	return nil
}

func (s *Store) HouseholdPayments(ctx context.Context, id payout.HouseholdID) ([]payout.PaymentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryPayments(ctx, `
		SELECT `+paymentColumns+` FROM payments
		WHERE household_id = ?
		ORDER BY date DESC`, id)
}

func (s *Store) AllPayments(ctx context.Context) ([]payout.PaymentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryPayments(ctx, `
		SELECT `+paymentColumns+` FROM payments
		ORDER BY date DESC, household_id ASC`)
}

func (s *Store) queryPayments(ctx context.Context, query string, args ...any) ([]payout.PaymentRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query payments: %w", err)
	}
	defer rows.Close()

	var out []payout.PaymentRecord
	for rows.Next() {
		rec, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func scanPayment(rows *sql.Rows) (payout.PaymentRecord, error) {
	var rec payout.PaymentRecord
	var date, amount, createdAt, updatedAt string
	err := rows.Scan(&rec.ID, &rec.HouseholdID, &date, &rec.ApplicantName, &rec.NIC, &rec.AccountNumber,
		&rec.BankName, &amount, &rec.Status, &createdAt, &updatedAt)
	if err != nil {
		return rec, fmt.Errorf("failed to scan payment: %w", err)
	}
	if rec.Date, err = payout.ParseDate(date); err != nil {
		return rec, fmt.Errorf("payment %s: bad date %q: %w", rec.ID, date, err)
	}
	if rec.Amount, err = decimal.NewFromString(amount); err != nil {
		return rec, fmt.Errorf("payment %s: bad amount %q: %w", rec.ID, amount, err)
	}
	rec.CreatedAt = parseTime(createdAt)
	rec.UpdatedAt = parseTime(updatedAt)
	return rec, nil
}
