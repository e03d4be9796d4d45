package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/insafmmkurram-create/web/registry"
)

// =============================================================================
// APPLICANTS - registry.ApplicantStore
// =============================================================================

const applicantColumns = `id, email, name, mobile, cnic, dob, gender, married, father_name,
	tribe, subtribe, province, district, tehsil, address, bank_name, account_no,
	image_url, status, created_at, updated_at`

// CreateApplicant inserts an applicant and its family members atomically.
func (s *Store) CreateApplicant(ctx context.Context, a registry.Applicant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO applicants (`+applicantColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			a.ID, a.Email, a.Name, a.Mobile, a.CNIC, a.DOB, a.Gender, a.Married, a.FatherName,
			a.Tribe, a.Subtribe, a.Province, a.District, a.Tehsil, a.Address, a.BankName, a.AccountNo,
			a.ImageURL, a.Status, formatTime(a.CreatedAt), formatTime(a.UpdatedAt),
		)
		if err != nil {
			return fmt.Errorf("failed to insert applicant: %w", err)
		}
		return insertMembers(ctx, tx, a.ID, a.FamilyMembers)
	})
}

// UpdateApplicant replaces fields and family members. Status and created_at
// are left as stored.
func (s *Store) UpdateApplicant(ctx context.Context, a registry.Applicant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE applicants SET
				email = ?, name = ?, mobile = ?, cnic = ?, dob = ?, gender = ?, married = ?,
				father_name = ?, tribe = ?, subtribe = ?, province = ?, district = ?, tehsil = ?,
				address = ?, bank_name = ?, account_no = ?, image_url = ?, updated_at = ?
			WHERE id = ?`,
			a.Email, a.Name, a.Mobile, a.CNIC, a.DOB, a.Gender, a.Married,
			a.FatherName, a.Tribe, a.Subtribe, a.Province, a.District, a.Tehsil,
			a.Address, a.BankName, a.AccountNo, a.ImageURL, formatTime(a.UpdatedAt),
			a.ID,
		)
		if err != nil {
			return fmt.Errorf("failed to update applicant: %w", err)
		}
		if err := requireRow(res, registry.ErrApplicantNotFound); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM family_members WHERE applicant_id = ?", a.ID); err != nil {
			return err
		}
		return insertMembers(ctx, tx, a.ID, a.FamilyMembers)
	})
}

func insertMembers(ctx context.Context, db execer, applicantID string, members []registry.FamilyMember) error {
	for i, m := range members {
		var share sql.NullString
		if m.Share.Valid {
			share = nullString(m.Share.Value.String())
		}
		_, err := db.ExecContext(ctx, `
			INSERT INTO family_members
			(applicant_id, position, name, relation, nic, dob, gender, married,
			 tribe, subtribe, province, district, tehsil, share)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			applicantID, i, m.Name, m.Relation, m.NIC, m.DOB, m.Gender, m.Married,
			m.Tribe, m.Subtribe, m.Province, m.District, m.Tehsil, share,
		)
		if err != nil {
			return fmt.Errorf("failed to insert family member %d: %w", i, err)
		}
	}
	return nil
}

func (s *Store) SetApplicantStatus(ctx context.Context, id string, status registry.Status, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"UPDATE applicants SET status = ?, updated_at = ? WHERE id = ?",
		status, formatTime(at), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}
	return requireRow(res, registry.ErrApplicantNotFound)
}

// DeleteApplicant removes an applicant and, by cascade, its family members.
// Payment history is kept.
func (s *Store) DeleteApplicant(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM applicants WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete applicant: %w", err)
	}
	return requireRow(res, registry.ErrApplicantNotFound)
}

func (s *Store) GetApplicant(ctx context.Context, id string) (*registry.Applicant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT "+applicantColumns+" FROM applicants WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	applicants, err := scanApplicants(rows)
	if err != nil {
		return nil, err
	}
	if len(applicants) == 0 {
		return nil, registry.ErrApplicantNotFound
	}
	if err := s.attachMembers(ctx, applicants, "applicant_id = ?", id); err != nil {
		return nil, err
	}
	return &applicants[0], nil
}

// ListApplicants returns applicants with status (all when empty), newest first.
func (s *Store) ListApplicants(ctx context.Context, status registry.Status) ([]registry.Applicant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+applicantColumns+` FROM applicants
		WHERE ? = '' OR status = ?
		ORDER BY created_at DESC, id ASC`,
		status, status,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list applicants: %w", err)
	}
	applicants, err := scanApplicants(rows)
	if err != nil {
		return nil, err
	}
	err = s.attachMembers(ctx, applicants,
		"applicant_id IN (SELECT id FROM applicants WHERE ? = '' OR status = ?)", status, status)
	if err != nil {
		return nil, err
	}
	return applicants, nil
}

func (s *Store) CountApplicantsByStatus(ctx context.Context) (map[registry.Status]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT status, COUNT(*) FROM applicants GROUP BY status")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[registry.Status]int)
	for rows.Next() {
		var st registry.Status
		var n int
		if err := rows.Scan(&st, &n); err != nil {
			return nil, err
		}
		counts[st] = n
	}
	return counts, rows.Err()
}

func scanApplicants(rows *sql.Rows) ([]registry.Applicant, error) {
	defer rows.Close()

	var out []registry.Applicant
	for rows.Next() {
		var a registry.Applicant
		var createdAt, updatedAt string
		err := rows.Scan(
			&a.ID, &a.Email, &a.Name, &a.Mobile, &a.CNIC, &a.DOB, &a.Gender, &a.Married, &a.FatherName,
			&a.Tribe, &a.Subtribe, &a.Province, &a.District, &a.Tehsil, &a.Address, &a.BankName, &a.AccountNo,
			&a.ImageURL, &a.Status, &createdAt, &updatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan applicant: %w", err)
		}
		a.CreatedAt = parseTime(createdAt)
		a.UpdatedAt = parseTime(updatedAt)
		a.FamilyMembers = []registry.FamilyMember{}
		out = append(out, a)
	}
	return out, rows.Err()
}

// attachMembers loads the family members matching where and appends them
// to their applicants in position order.
func (s *Store) attachMembers(ctx context.Context, applicants []registry.Applicant, where string, args ...any) error {
	if len(applicants) == 0 {
		return nil
	}
	index := make(map[string]int, len(applicants))
	for i, a := range applicants {
		index[a.ID] = i
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT applicant_id, name, relation, nic, dob, gender, married,
		       tribe, subtribe, province, district, tehsil, share
		FROM family_members
		WHERE `+where+`
		ORDER BY applicant_id, position`, args...)
	if err != nil {
		return fmt.Errorf("failed to load family members: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var applicantID string
		var m registry.FamilyMember
		var share sql.NullString
		err := rows.Scan(&applicantID, &m.Name, &m.Relation, &m.NIC, &m.DOB, &m.Gender, &m.Married,
			&m.Tribe, &m.Subtribe, &m.Province, &m.District, &m.Tehsil, &share)
		if err != nil {
			return fmt.Errorf("failed to scan family member: %w", err)
		}
		if share.Valid {
			if v, err := decimal.NewFromString(share.String); err == nil {
				m.Share = registry.NewShare(v)
			}
		}
		i, ok := index[applicantID]
		if !ok {
			continue
		}
		applicants[i].FamilyMembers = append(applicants[i].FamilyMembers, m)
	}
	return rows.Err()
}

func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}
