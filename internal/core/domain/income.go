package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type IncomeType string

const (
	IncomeW2Wages      IncomeType = "W2_WAGES"
	IncomeInterest     IncomeType = "INTEREST"
	IncomeDividends    IncomeType = "DIVIDENDS"
	IncomeBusiness     IncomeType = "BUSINESS_INCOME"
	IncomeRetirement   IncomeType = "RETIREMENT_INCOME"
	IncomeUnemployment IncomeType = "UNEMPLOYMENT"
	IncomeOther        IncomeType = "OTHER_INCOME"
)

// IncomeEntry is owned by exactly one TaxReturn and exclusively by the
// Document that produced it. An entry whose DocumentID is empty or points at
// a deleted document is an orphan and must never contribute to totals.
type IncomeEntry struct {
	ID                 string          `json:"id"`
	TaxReturnID        string          `json:"tax_return_id"`
	DocumentID         string          `json:"document_id"`
	Type               IncomeType      `json:"income_type"`
	Amount             decimal.Decimal `json:"amount"`
	FederalTaxWithheld decimal.Decimal `json:"federal_tax_withheld"`
	EmployerName       string          `json:"employer_name,omitempty"`
	EmployerEIN        string          `json:"employer_ein,omitempty"`
	PayerName          string          `json:"payer_name,omitempty"`
	PayerTIN           string          `json:"payer_tin,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
}
