package registry

import (
	"context"
	"time"
)

// =============================================================================
// STORE - Persistence interfaces
// =============================================================================

// ApplicantStore persists applicants and their family members.
type ApplicantStore interface {
	CreateApplicant(ctx context.Context, a Applicant) error

	// GetApplicant returns ErrApplicantNotFound for an unknown id.
	GetApplicant(ctx context.Context, id string) (*Applicant, error)

	// ListApplicants returns applicants with the given status (all when
	// empty), newest first.
	ListApplicants(ctx context.Context, status Status) ([]Applicant, error)

	// UpdateApplicant replaces the applicant's fields and family members.
	// Status and CreatedAt are not changed.
	UpdateApplicant(ctx context.Context, a Applicant) error

	SetApplicantStatus(ctx context.Context, id string, status Status, at time.Time) error
	DeleteApplicant(ctx context.Context, id string) error

	CountApplicantsByStatus(ctx context.Context) (map[Status]int, error)
}

// AccountStore persists staff accounts. Emails are stored lower-case.
type AccountStore interface {
	// CreateAccount returns ErrDuplicateEmail when the email is taken.
	CreateAccount(ctx context.Context, a Account) error

	GetAccount(ctx context.Context, id string) (*Account, error)
	GetAccountByEmail(ctx context.Context, email string) (*Account, error)
	ListAccounts(ctx context.Context, role Role) ([]Account, error)

	// UpdateAccount saves email, password hash and role.
	// Returns ErrDuplicateEmail when the new email is taken.
	UpdateAccount(ctx context.Context, a Account) error

	DeleteAccount(ctx context.Context, id string) error
}
