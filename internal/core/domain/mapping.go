package domain

import "github.com/shopspring/decimal"

// IncomeEntryRequest is the at-most-one entry a document contributes.
type IncomeEntryRequest struct {
	Type               IncomeType      `json:"income_type"`
	Amount             decimal.Decimal `json:"amount"`
	FederalTaxWithheld decimal.Decimal `json:"federal_tax_withheld"`
	EmployerName       string          `json:"employer_name,omitempty"`
	EmployerEIN        string          `json:"employer_ein,omitempty"`
	PayerName          string          `json:"payer_name,omitempty"`
	PayerTIN           string          `json:"payer_tin,omitempty"`
}

// MappingResult is what the tax mapper derives from one document.
// AmbiguousAmounts flags a 1099-MISC reporting more than one nonzero income
// field, where taking the max may undercount.
type MappingResult struct {
	PersonalInfo     PersonalInfo        `json:"personal_info"`
	Income           *IncomeEntryRequest `json:"income,omitempty"`
	AmbiguousAmounts bool                `json:"ambiguous_amounts,omitempty"`
}
