package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type FilingStatus string

const (
	FilingSingle                  FilingStatus = "single"
	FilingMarriedFilingJointly    FilingStatus = "marriedFilingJointly"
	FilingMarriedFilingSeparately FilingStatus = "marriedFilingSeparately"
	FilingHeadOfHousehold         FilingStatus = "headOfHousehold"
)

// ParseFilingStatus is the total mapping from any spelling variant onto the
// enumeration. Lower-casing and stripping separators covers snake_case and
// camelCase inputs; anything else falls back to single.
func ParseFilingStatus(raw string) FilingStatus {
	key := strings.ToLower(raw)
	key = strings.ReplaceAll(key, "_", "")
	key = strings.ReplaceAll(key, "-", "")
	key = strings.ReplaceAll(key, " ", "")
	switch key {
	case "marriedfilingjointly", "mfj":
		return FilingMarriedFilingJointly
	case "marriedfilingseparately", "mfs":
		return FilingMarriedFilingSeparately
	case "headofhousehold", "hoh":
		return FilingHeadOfHousehold
	default:
		return FilingSingle
	}
}

// Key is the normalized lookup key for bracket and deduction tables.
func (s FilingStatus) Key() string {
	return strings.ReplaceAll(strings.ToLower(string(s)), "_", "")
}

type Dependent struct {
	ID                   string `json:"id"`
	TaxReturnID          string `json:"tax_return_id"`
	Name                 string `json:"name"`
	Relationship         string `json:"relationship,omitempty"`
	QualifiesChildCredit bool   `json:"qualifies_child_credit"`
	QualifiesEIC         bool   `json:"qualifies_eic"`
}

// TaxReturn aggregates are derived, not authoritative: every field below the
// identity block must be recomputable from the current set of valid income
// entries plus deduction and dependent inputs.
type TaxReturn struct {
	ID           string       `json:"id"`
	UserID       string       `json:"user_id"`
	TaxYear      int          `json:"tax_year"`
	FilingStatus FilingStatus `json:"filing_status"`

	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	SSN       string `json:"ssn,omitempty"`
	Address   string `json:"address,omitempty"`
	City      string `json:"city,omitempty"`
	State     string `json:"state,omitempty"`
	ZipCode   string `json:"zip_code,omitempty"`

	TotalIncome         decimal.Decimal `json:"total_income"`
	TotalWithholdings   decimal.Decimal `json:"total_withholdings"`
	AdjustedGrossIncome decimal.Decimal `json:"adjusted_gross_income"`
	StandardDeduction   decimal.Decimal `json:"standard_deduction"`
	ItemizedDeduction   decimal.Decimal `json:"itemized_deduction"`
	TaxableIncome       decimal.Decimal `json:"taxable_income"`
	TaxLiability        decimal.Decimal `json:"tax_liability"`
	TotalCredits        decimal.Decimal `json:"total_credits"`
	RefundAmount        decimal.Decimal `json:"refund_amount"`
	AmountOwed          decimal.Decimal `json:"amount_owed"`

	StateTaxLiability      decimal.Decimal `json:"state_tax_liability"`
	StateStandardDeduction decimal.Decimal `json:"state_standard_deduction"`
	StateItemizedDeduction decimal.Decimal `json:"state_itemized_deduction"`
	StateTaxableIncome     decimal.Decimal `json:"state_taxable_income"`
	StateEffectiveRate     decimal.Decimal `json:"state_effective_rate"`

	DetectedState   string      `json:"detected_state,omitempty"`
	StateConfidence float64     `json:"state_confidence"`
	StateSource     StateSource `json:"state_source"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PersonalInfo is the partial identity record a single document can supply.
// Empty fields mean the document said nothing about them.
type PersonalInfo struct {
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	SSN       string `json:"ssn,omitempty"`
	Address   string `json:"address,omitempty"`
	City      string `json:"city,omitempty"`
	State     string `json:"state,omitempty"`
	ZipCode   string `json:"zip_code,omitempty"`
}
