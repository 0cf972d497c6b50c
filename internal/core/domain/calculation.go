package domain

import "github.com/shopspring/decimal"

type DeductionMethod string

const (
	DeductionStandard DeductionMethod = "standard"
	DeductionItemized DeductionMethod = "itemized"
)

type FederalCalculation struct {
	AdjustedGrossIncome decimal.Decimal `json:"adjusted_gross_income"`
	StandardDeduction   decimal.Decimal `json:"standard_deduction"`
	ItemizedDeduction   decimal.Decimal `json:"itemized_deduction"`
	DeductionUsed       decimal.Decimal `json:"deduction_used"`
	DeductionMethod     DeductionMethod `json:"deduction_method"`
	DeductionSavings    decimal.Decimal `json:"deduction_savings"`
	TaxableIncome       decimal.Decimal `json:"taxable_income"`
	TaxLiability        decimal.Decimal `json:"tax_liability"`
	Credits             decimal.Decimal `json:"credits"`
}

type StateCalculation struct {
	StateCode         string          `json:"state_code"`
	HasIncomeTax      bool            `json:"has_income_tax"`
	StandardDeduction decimal.Decimal `json:"standard_deduction"`
	ItemizedDeduction decimal.Decimal `json:"itemized_deduction"`
	DeductionUsed     decimal.Decimal `json:"deduction_used"`
	TaxableIncome     decimal.Decimal `json:"taxable_income"`
	TaxLiability      decimal.Decimal `json:"tax_liability"`
	MarginalRate      decimal.Decimal `json:"marginal_rate"`
	EffectiveRate     decimal.Decimal `json:"effective_rate"`
	Note              string          `json:"note,omitempty"`
}

// TaxCalculation is the combined federal+state outcome. State is nil when no
// state was known or the state half failed; in that case Suggestions names
// the degradation and the combined figures are federal-only.
type TaxCalculation struct {
	Federal           FederalCalculation `json:"federal"`
	State             *StateCalculation  `json:"state,omitempty"`
	TotalIncome       decimal.Decimal    `json:"total_income"`
	TotalWithholdings decimal.Decimal    `json:"total_withholdings"`
	TotalTaxLiability decimal.Decimal    `json:"total_tax_liability"`
	FinalTax          decimal.Decimal    `json:"final_tax"`
	RefundAmount      decimal.Decimal    `json:"refund_amount"`
	AmountOwed        decimal.Decimal    `json:"amount_owed"`
	Suggestions       []string           `json:"suggestions,omitempty"`
}
