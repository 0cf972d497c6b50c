package domain

import "github.com/shopspring/decimal"

// ExtractedFields is the typed view of an OCR payload. The raw field map is
// kept only for persistence and display; every downstream stage reads the
// typed fields, with amounts already normalized through ParseAmount.
type ExtractedFields struct {
	EmployeeName    string `json:"employee_name,omitempty"`
	EmployeeSSN     string `json:"employee_ssn,omitempty"`
	EmployeeAddress string `json:"employee_address,omitempty"`
	EmployeeCity    string `json:"employee_city,omitempty"`
	EmployeeState   string `json:"employee_state,omitempty"`
	EmployeeZip     string `json:"employee_zip,omitempty"`

	EmployerName    string `json:"employer_name,omitempty"`
	EmployerEIN     string `json:"employer_ein,omitempty"`
	EmployerAddress string `json:"employer_address,omitempty"`
	EmployerState   string `json:"employer_state,omitempty"`

	RecipientName    string `json:"recipient_name,omitempty"`
	RecipientTIN     string `json:"recipient_tin,omitempty"`
	RecipientAddress string `json:"recipient_address,omitempty"`
	RecipientState   string `json:"recipient_state,omitempty"`

	PayerName    string `json:"payer_name,omitempty"`
	PayerTIN     string `json:"payer_tin,omitempty"`
	PayerAddress string `json:"payer_address,omitempty"`
	PayerState   string `json:"payer_state,omitempty"`

	Wages                   decimal.Decimal `json:"wages"`
	FederalTaxWithheld      decimal.Decimal `json:"federal_tax_withheld"`
	InterestIncome          decimal.Decimal `json:"interest_income"`
	OrdinaryDividends       decimal.Decimal `json:"ordinary_dividends"`
	Rents                   decimal.Decimal `json:"rents"`
	Royalties               decimal.Decimal `json:"royalties"`
	OtherIncome             decimal.Decimal `json:"other_income"`
	NonemployeeCompensation decimal.Decimal `json:"nonemployee_compensation"`

	FullText string `json:"full_text,omitempty"`

	Raw map[string]any `json:"raw,omitempty"`
}

// DecodeExtractedFields builds the typed record from the open-ended field map
// an extraction backend returns. Unknown keys survive in Raw.
func DecodeExtractedFields(raw map[string]any) *ExtractedFields {
	if raw == nil {
		raw = map[string]any{}
	}
	f := &ExtractedFields{Raw: raw}

	f.EmployeeName = stringField(raw, "employeeName")
	f.EmployeeSSN = stringField(raw, "employeeSSN", "ssn")
	f.EmployeeAddress = stringField(raw, "employeeAddress")
	f.EmployeeCity = stringField(raw, "employeeCity")
	f.EmployeeState = stringField(raw, "employeeState")
	f.EmployeeZip = stringField(raw, "employeeZip")

	f.EmployerName = stringField(raw, "employerName")
	f.EmployerEIN = stringField(raw, "employerEIN", "ein")
	f.EmployerAddress = stringField(raw, "employerAddress")
	f.EmployerState = stringField(raw, "employerState")

	f.RecipientName = stringField(raw, "recipientName")
	f.RecipientTIN = stringField(raw, "recipientTIN")
	f.RecipientAddress = stringField(raw, "recipientAddress")
	f.RecipientState = stringField(raw, "recipientState")

	f.PayerName = stringField(raw, "payerName")
	f.PayerTIN = stringField(raw, "payerTIN")
	f.PayerAddress = stringField(raw, "payerAddress")
	f.PayerState = stringField(raw, "payerState")

	f.Wages = ParseAmount(raw["wages"])
	f.FederalTaxWithheld = ParseAmount(raw["federalTaxWithheld"])
	f.InterestIncome = ParseAmount(raw["interestIncome"])
	f.OrdinaryDividends = ParseAmount(raw["ordinaryDividends"])
	f.Rents = ParseAmount(raw["rents"])
	f.Royalties = ParseAmount(raw["royalties"])
	f.OtherIncome = ParseAmount(raw["otherIncome"])
	f.NonemployeeCompensation = ParseAmount(raw["nonemployeeCompensation"])

	f.FullText = stringField(raw, "fullText")

	return f
}

// Addresses returns the candidate address strings in detection priority order.
func (f *ExtractedFields) Addresses() []string {
	out := make([]string, 0, 4)
	for _, addr := range []string{f.EmployeeAddress, f.RecipientAddress, f.EmployerAddress, f.PayerAddress} {
		if addr != "" {
			out = append(out, addr)
		}
	}
	return out
}

func stringField(raw map[string]any, keys ...string) string {
	for _, key := range keys {
		if v, ok := raw[key]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}
