package registry

import (
	"strings"

	"github.com/insafmmkurram-create/web/payout"
)

// NotAvailable replaces missing display fields in payout output.
const NotAvailable = "N/A"

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return NotAvailable
	}
	return s
}

// ToHousehold converts an applicant into payout input. Unparseable birth
// dates become unknown and non-numeric shares become absent; the engine
// applies its defaults from there.
func (a Applicant) ToHousehold() payout.Household {
	h := payout.Household{
		ID:            payout.HouseholdID(a.ID),
		ApplicantName: orNA(a.Name),
		NIC:           orNA(a.CNIC),
		AccountNumber: orNA(a.AccountNo),
		BankName:      orNA(a.BankName),
		Gender:        a.Gender,
	}
	if dob, ok := payout.ParseBirthDate(a.DOB); ok {
		h.DateOfBirth = &dob
	}

	for _, m := range a.FamilyMembers {
		dep := payout.Dependent{Name: m.Name, Gender: m.Gender}
		if dob, ok := payout.ParseBirthDate(m.DOB); ok {
			dep.DateOfBirth = &dob
		}
		if m.Share.Valid {
			v := m.Share.Value
			dep.Share = &v
		}
		h.Dependents = append(h.Dependents, dep)
	}
	return h
}
