/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. Amounts are decimals
  internally and plain JSON numbers on the wire.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

TYPES:
  Auth:       LoginRequest, LoginResponse, ActorDTO
  Applicants: registry.Applicant is used directly (its JSON is the stored document)
  Payments:   CalculateRequest, CommitRequest, CalculationDTO, PaymentRecordDTO, DateGroupDTO
  Subadmins:  SubadminRequest, PasswordRequest

VALIDATION:
  Validation is done by the domain packages, not in DTOs.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"bytes"
	"time"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"github.com/insafmmkurram-create/web/payout"
	"github.com/insafmmkurram-create/web/registry"
)

// =============================================================================
// AUTH
// =============================================================================

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      ActorDTO  `json:"user"`
}

type ActorDTO struct {
	ID    string        `json:"id"`
	Email string        `json:"email"`
	Role  registry.Role `json:"role"`
}

func toActorDTO(a registry.Actor) ActorDTO {
	return ActorDTO{ID: a.ID, Email: a.Email, Role: a.Role}
}

// =============================================================================
// APPLICANTS
// =============================================================================

type StatusRequest struct {
	Status string `json:"status"`
}

// =============================================================================
// PAYMENTS
// =============================================================================

// AmountInput accepts a pool amount as a JSON number or a numeric string.
type AmountInput string

func (a *AmountInput) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = AmountInput(s)
		return nil
	}
	*a = AmountInput(data)
	return nil
}

func (a AmountInput) Parse() (decimal.Decimal, error) {
	return payout.ParseAmount(string(a))
}

type CalculateRequest struct {
	Amount       AmountInput `json:"amount"`
	HouseholdIDs []string    `json:"household_ids,omitempty"`
}

type CommitRequest struct {
	Date         string      `json:"date"`
	Amount       AmountInput `json:"amount"`
	HouseholdIDs []string    `json:"household_ids,omitempty"`
}

type CommitResponse struct {
	Date       string  `json:"date"`
	Households int     `json:"households"`
	Total      float64 `json:"total"`
}

type PoolsDTO struct {
	Business float64 `json:"business"`
	Male     float64 `json:"male"`
	Female   float64 `json:"female"`
	Minor    float64 `json:"minor"`
}

type CategoryDTO struct {
	Category   payout.Category `json:"category"`
	Label      string          `json:"label"`
	Pool       float64         `json:"pool"`
	ShareTotal float64         `json:"shareTotal"`
	People     int             `json:"people"`
}

type ResultDTO struct {
	HouseholdID     string          `json:"householdId"`
	ApplicantName   string          `json:"applicantName"`
	NIC             string          `json:"nic"`
	AccountNumber   string          `json:"accountNumber"`
	BankName        string          `json:"bankName"`
	TotalAmount     float64         `json:"totalFamilyShare"`
	PrimaryCategory payout.Category `json:"primaryCategory"`
}

type DefaultEventDTO struct {
	HouseholdID string             `json:"householdId"`
	Person      string             `json:"person"`
	Index       int                `json:"index"`
	Kind        payout.DefaultKind `json:"kind"`
}

type CalculationDTO struct {
	Amount     float64           `json:"amount"`
	Pools      PoolsDTO          `json:"pools"`
	Categories []CategoryDTO     `json:"categories"`
	Results    []ResultDTO       `json:"results"`
	Total      float64           `json:"total"`
	Defaults   []DefaultEventDTO `json:"defaults"`
}

type PaymentRecordDTO struct {
	ID            string    `json:"id"`
	HouseholdID   string    `json:"householdId"`
	Date          string    `json:"date"`
	ApplicantName string    `json:"applicantName"`
	NIC           string    `json:"nic"`
	AccountNumber string    `json:"accountNumber"`
	BankName      string    `json:"bankName"`
	Amount        float64   `json:"amount"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

type DateGroupDTO struct {
	Date    string             `json:"date"`
	Total   float64            `json:"total"`
	Records []PaymentRecordDTO `json:"records"`
}

// =============================================================================
// SUBADMINS
// =============================================================================

type SubadminRequest struct {
	Email    string `json:"email"`
	Password string `json:"password,omitempty"`
}

type PasswordRequest struct {
	Password string `json:"password"`
}

// =============================================================================
// ERRORS
// =============================================================================

type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toResultDTOs(results []payout.DistributionResult) []ResultDTO {
	out := make([]ResultDTO, len(results))
	for i, r := range results {
		out[i] = ResultDTO{
			HouseholdID:     string(r.HouseholdID),
			ApplicantName:   r.ApplicantName,
			NIC:             r.NIC,
			AccountNumber:   r.AccountNumber,
			BankName:        r.BankName,
			TotalAmount:     r.TotalAmount.InexactFloat64(),
			PrimaryCategory: r.PrimaryCategory,
		}
	}
	return out
}

func toCalculationDTO(amount decimal.Decimal, alloc *payout.Allocation) CalculationDTO {
	dto := CalculationDTO{
		Amount: amount.InexactFloat64(),
		Pools: PoolsDTO{
			Business: alloc.Pools.Business.InexactFloat64(),
			Male:     alloc.Pools.Male.InexactFloat64(),
			Female:   alloc.Pools.Female.InexactFloat64(),
			Minor:    alloc.Pools.Minor.InexactFloat64(),
		},
		Results:  toResultDTOs(alloc.Results),
		Total:    alloc.Total.InexactFloat64(),
		Defaults: make([]DefaultEventDTO, len(alloc.Defaults)),
	}
	for _, c := range payout.Categories {
		dto.Categories = append(dto.Categories, CategoryDTO{
			Category:   c,
			Label:      c.Label(),
			Pool:       alloc.Pools.For(c).InexactFloat64(),
			ShareTotal: alloc.ShareTotals[c].InexactFloat64(),
			People:     alloc.PeopleCounts[c],
		})
	}
	for i, ev := range alloc.Defaults {
		dto.Defaults[i] = DefaultEventDTO{
			HouseholdID: string(ev.HouseholdID),
			Person:      ev.PersonLabel(),
			Index:       ev.Person,
			Kind:        ev.Kind,
		}
	}
	return dto
}

func toPaymentRecordDTO(rec payout.PaymentRecord) PaymentRecordDTO {
	return PaymentRecordDTO{
		ID:            rec.ID,
		HouseholdID:   string(rec.HouseholdID),
		Date:          rec.Date.String(),
		ApplicantName: rec.ApplicantName,
		NIC:           rec.NIC,
		AccountNumber: rec.AccountNumber,
		BankName:      rec.BankName,
		Amount:        rec.Amount.InexactFloat64(),
		Status:        rec.Status,
		CreatedAt:     rec.CreatedAt,
		UpdatedAt:     rec.UpdatedAt,
	}
}

func toPaymentRecordDTOs(recs []payout.PaymentRecord) []PaymentRecordDTO {
	out := make([]PaymentRecordDTO, len(recs))
	for i, rec := range recs {
		out[i] = toPaymentRecordDTO(rec)
	}
	return out
}

func toDateGroupDTOs(groups []payout.DateGroup) []DateGroupDTO {
	out := make([]DateGroupDTO, len(groups))
	for i, g := range groups {
		out[i] = DateGroupDTO{
			Date:    g.Date.String(),
			Total:   g.Total.InexactFloat64(),
			Records: toPaymentRecordDTOs(g.Records),
		}
	}
	return out
}
