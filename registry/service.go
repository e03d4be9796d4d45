package registry

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/insafmmkurram-create/web/payout"
)

// =============================================================================
// APPLICANT SERVICE
// =============================================================================

// Service runs applicant operations on behalf of an Actor.
type Service struct {
	Store  ApplicantStore
	Now    func() time.Time
	Logger *slog.Logger
}

func NewService(store ApplicantStore, logger *slog.Logger) *Service {
	return &Service{Store: store, Now: time.Now, Logger: logger}
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

func (s *Service) log() *slog.Logger {
	if s.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return s.Logger
}

func requireStaff(actor Actor) error {
	if !actor.IsStaff() {
		return fmt.Errorf("%w: staff role required", ErrForbidden)
	}
	return nil
}

func requireAdmin(actor Actor) error {
	if !actor.IsAdmin() {
		return fmt.Errorf("%w: admin role required", ErrForbidden)
	}
	return nil
}

// Create registers a new applicant in pending status.
func (s *Service) Create(ctx context.Context, actor Actor, a Applicant) (*Applicant, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	if err := normalize(&a); err != nil {
		return nil, err
	}

	now := s.now()
	a.ID = uuid.NewString()
	a.Status = StatusPending
	a.CreatedAt = now
	a.UpdatedAt = now

	if err := s.Store.CreateApplicant(ctx, a); err != nil {
		return nil, fmt.Errorf("create applicant: %w", err)
	}
	s.log().Info("applicant created", "id", a.ID, "by", actor.Email)
	return &a, nil
}

func (s *Service) Get(ctx context.Context, actor Actor, id string) (*Applicant, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	return s.Store.GetApplicant(ctx, id)
}

func (s *Service) List(ctx context.Context, actor Actor, filter ApplicantFilter) ([]Applicant, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	if filter.Status != "" {
		st, err := ParseStatus(string(filter.Status))
		if err != nil {
			return nil, err
		}
		filter.Status = st
	}

	applicants, err := s.Store.ListApplicants(ctx, filter.Status)
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(strings.TrimSpace(filter.Query))
	if q == "" {
		return applicants, nil
	}
	var out []Applicant
	for _, a := range applicants {
		if a.matches(q) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (a Applicant) matches(q string) bool {
	for _, field := range []string{a.Name, a.CNIC, a.Email, a.Mobile, a.AccountNo} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}

// Update replaces an applicant's details. Status and creation time are kept;
// use ChangeStatus to review.
func (s *Service) Update(ctx context.Context, actor Actor, a Applicant) (*Applicant, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	existing, err := s.Store.GetApplicant(ctx, a.ID)
	if err != nil {
		return nil, err
	}
	if err := normalize(&a); err != nil {
		return nil, err
	}

	a.Status = existing.Status
	a.CreatedAt = existing.CreatedAt
	a.UpdatedAt = s.now()
	if err := s.Store.UpdateApplicant(ctx, a); err != nil {
		return nil, fmt.Errorf("update applicant %s: %w", a.ID, err)
	}
	s.log().Info("applicant updated", "id", a.ID, "by", actor.Email)
	return &a, nil
}

func (s *Service) Delete(ctx context.Context, actor Actor, id string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if err := s.Store.DeleteApplicant(ctx, id); err != nil {
		return err
	}
	s.log().Info("applicant deleted", "id", id, "by", actor.Email)
	return nil
}

// ChangeStatus moves an applicant to status. Only admins may review.
func (s *Service) ChangeStatus(ctx context.Context, actor Actor, id string, status Status) (*Applicant, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	st, err := ParseStatus(string(status))
	if err != nil {
		return nil, err
	}
	if err := s.Store.SetApplicantStatus(ctx, id, st, s.now()); err != nil {
		return nil, err
	}
	s.log().Info("applicant status changed", "id", id, "status", st, "by", actor.Email)
	return s.Store.GetApplicant(ctx, id)
}

func (s *Service) Stats(ctx context.Context, actor Actor) (Stats, error) {
	if err := requireStaff(actor); err != nil {
		return Stats{}, err
	}
	counts, err := s.Store.CountApplicantsByStatus(ctx)
	if err != nil {
		return Stats{}, err
	}
	st := Stats{
		Accepted: counts[StatusAccepted],
		Rejected: counts[StatusRejected],
		Pending:  counts[StatusPending],
	}
	for _, n := range counts {
		st.Total += n
	}
	return st, nil
}

// AcceptedHouseholds loads every accepted applicant as payout input.
func (s *Service) AcceptedHouseholds(ctx context.Context) ([]payout.Household, error) {
	applicants, err := s.Store.ListApplicants(ctx, StatusAccepted)
	if err != nil {
		return nil, fmt.Errorf("load accepted applicants: %w", err)
	}
	households := make([]payout.Household, len(applicants))
	for i, a := range applicants {
		households[i] = a.ToHousehold()
	}
	return households, nil
}

// normalize trims input and drops family members without a name.
func normalize(a *Applicant) error {
	a.Name = strings.TrimSpace(a.Name)
	a.Email = strings.ToLower(strings.TrimSpace(a.Email))
	a.CNIC = strings.TrimSpace(a.CNIC)
	a.AccountNo = strings.TrimSpace(a.AccountNo)
	a.BankName = strings.TrimSpace(a.BankName)
	if a.Name == "" {
		return &ValidationError{Field: "name", Reason: "is required", err: ErrInvalidApplicant}
	}
	if a.Email != "" {
		if _, err := normalizeEmail(a.Email); err != nil {
			return err
		}
	}

	members := make([]FamilyMember, 0, len(a.FamilyMembers))
	for _, m := range a.FamilyMembers {
		m.Name = strings.TrimSpace(m.Name)
		if m.Name == "" {
			continue
		}
		members = append(members, m)
	}
	a.FamilyMembers = members
	return nil
}
