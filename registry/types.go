/*
Package registry holds the applicant registry and the staff accounts that
manage it.

PURPOSE:
  Applicants register a household (themselves plus family members). Staff
  review them and move them through pending -> accepted | rejected.
  Accepted applicants are the only input of the payout engine.

KEY CONCEPTS IN THIS FILE (types.go):
  - Applicant / FamilyMember: stored registration documents
  - Share: a family member's declared percentage, lenient on decode
  - Status: review state of an applicant
  - Role / Actor: who is calling, passed explicitly to every operation

ROLES:
  admin     full access: status changes, deletes, payouts, subadmin management
  subadmin  view, create and edit applicants, browse payment history
  user      an applicant; has no staff access

SEE ALSO:
  - service.go: applicant operations
  - accounts.go: staff accounts and login
  - household.go: conversion to payout.Household
*/
package registry

import (
	"bytes"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
)

// =============================================================================
// APPLICANT
// =============================================================================

type Applicant struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	Mobile     string `json:"mobile"`
	CNIC       string `json:"cnic"`
	DOB        string `json:"dob"` // raw, parsed leniently at payout time
	Gender     string `json:"gender"`
	Married    bool   `json:"married"`
	FatherName string `json:"fatherName"`
	Tribe      string `json:"tribe"`
	Subtribe   string `json:"subtribe"`
	Province   string `json:"province"`
	District   string `json:"district"`
	Tehsil     string `json:"tehsil"`
	Address    string `json:"address"`
	BankName   string `json:"bankName"`
	AccountNo  string `json:"accountNo"`
	ImageURL   string `json:"imageUrl"`

	Status        Status         `json:"status"`
	FamilyMembers []FamilyMember `json:"familyMembers"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type FamilyMember struct {
	Name     string `json:"name"`
	Relation string `json:"relation"`
	NIC      string `json:"nic"`
	DOB      string `json:"dob"`
	Gender   string `json:"gender"`
	Married  bool   `json:"married"`
	Tribe    string `json:"tribe"`
	Subtribe string `json:"subtribe"`
	Province string `json:"province"`
	District string `json:"district"`
	Tehsil   string `json:"tehsil"`
	Share    Share  `json:"share"`
}

// ApplicantFilter narrows List. Zero values match everything.
type ApplicantFilter struct {
	Status Status
	Query  string // case-insensitive match on name, CNIC, email, mobile, account
}

// Stats counts applicants per status.
type Stats struct {
	Total    int `json:"total"`
	Accepted int `json:"accepted"`
	Rejected int `json:"rejected"`
	Pending  int `json:"pending"`
}

// =============================================================================
// SHARE - Declared percentage of the household total
// =============================================================================

// Share is valid only when the stored value was a JSON number.
// Strings, booleans, null and objects decode without error as absent.
type Share struct {
	Value decimal.Decimal
	Valid bool
}

func NewShare(v decimal.Decimal) Share {
	return Share{Value: v, Valid: true}
}

func (s *Share) UnmarshalJSON(data []byte) error {
	*s = Share{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || (data[0] != '-' && (data[0] < '0' || data[0] > '9')) {
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return nil
	}
	v, err := decimal.NewFromString(n.String())
	if err != nil {
		return nil
	}
	*s = NewShare(v)
	return nil
}

func (s Share) MarshalJSON() ([]byte, error) {
	if !s.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(json.Number(s.Value.String()))
}

// =============================================================================
// STATUS
// =============================================================================

type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
)

// ParseStatus accepts the three statuses in any case.
func ParseStatus(s string) (Status, error) {
	switch st := Status(strings.ToLower(strings.TrimSpace(s))); st {
	case StatusPending, StatusAccepted, StatusRejected:
		return st, nil
	}
	return "", &ValidationError{Field: "status", Reason: "must be pending, accepted or rejected", err: ErrInvalidStatus}
}

// =============================================================================
// ROLE / ACTOR
// =============================================================================

type Role string

const (
	RoleAdmin    Role = "admin"
	RoleSubadmin Role = "subadmin"
	RoleUser     Role = "user"
)

// Actor is the authenticated caller of an operation.
type Actor struct {
	ID    string
	Email string
	Role  Role
}

func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }

// IsStaff reports whether the actor may use the admin panel.
func (a Actor) IsStaff() bool { return a.Role == RoleAdmin || a.Role == RoleSubadmin }

// Account is a staff login.
type Account struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (a Account) Actor() Actor {
	return Actor{ID: a.ID, Email: a.Email, Role: a.Role}
}
