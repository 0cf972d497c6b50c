package usecase

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mpetrenko/taxmate/internal/core/domain"
)

// TaxMapper turns a document's extracted fields into a partial personal-info
// record and at most one income-entry request, dispatching on document type.
type TaxMapper struct{}

func NewTaxMapper() *TaxMapper {
	return &TaxMapper{}
}

func (m *TaxMapper) Map(docType domain.DocumentType, fields *domain.ExtractedFields) *domain.MappingResult {
	if fields == nil {
		return &domain.MappingResult{}
	}

	result := &domain.MappingResult{
		PersonalInfo: m.personalInfo(docType, fields),
	}

	switch docType {
	case domain.DocTypeW2:
		if fields.Wages.IsPositive() {
			result.Income = &domain.IncomeEntryRequest{
				Type:               domain.IncomeW2Wages,
				Amount:             fields.Wages,
				FederalTaxWithheld: fields.FederalTaxWithheld,
				EmployerName:       fields.EmployerName,
				EmployerEIN:        fields.EmployerEIN,
			}
		}
	case domain.DocType1099INT:
		result.Income = payerEntry(fields, domain.IncomeInterest, fields.InterestIncome)
	case domain.DocType1099DIV:
		result.Income = payerEntry(fields, domain.IncomeDividends, fields.OrdinaryDividends)
	case domain.DocType1099MISC:
		amount, ambiguous := miscAmount(fields)
		result.AmbiguousAmounts = ambiguous
		result.Income = payerEntry(fields, domain.IncomeOther, amount)
	case domain.DocType1099NEC:
		result.Income = payerEntry(fields, domain.IncomeBusiness, fields.NonemployeeCompensation)
	}

	return result
}

// miscAmount picks the largest of the four 1099-MISC income boxes. The boxes
// are mutually exclusive in practice; the max avoids double counting when an
// extraction backend fills several defensively. More than one nonzero box is
// flagged so a reviewer can catch a possible undercount.
func miscAmount(fields *domain.ExtractedFields) (decimal.Decimal, bool) {
	boxes := []decimal.Decimal{
		fields.Rents,
		fields.Royalties,
		fields.OtherIncome,
		fields.NonemployeeCompensation,
	}
	max := decimal.Zero
	nonzero := 0
	for _, amount := range boxes {
		if amount.IsPositive() {
			nonzero++
		}
		if amount.GreaterThan(max) {
			max = amount
		}
	}
	return max, nonzero > 1
}

func payerEntry(fields *domain.ExtractedFields, incomeType domain.IncomeType, amount decimal.Decimal) *domain.IncomeEntryRequest {
	if !amount.IsPositive() {
		return nil
	}
	return &domain.IncomeEntryRequest{
		Type:               incomeType,
		Amount:             amount,
		FederalTaxWithheld: fields.FederalTaxWithheld,
		PayerName:          fields.PayerName,
		PayerTIN:           fields.PayerTIN,
	}
}

func (m *TaxMapper) personalInfo(docType domain.DocumentType, fields *domain.ExtractedFields) domain.PersonalInfo {
	info := domain.PersonalInfo{}

	switch docType {
	case domain.DocTypeW2:
		info.FirstName, info.LastName = splitName(fields.EmployeeName)
		info.SSN = fields.EmployeeSSN
		info.Address = fields.EmployeeAddress
		info.City = fields.EmployeeCity
		info.State = domain.NormalizeStateCode(fields.EmployeeState)
		info.ZipCode = fields.EmployeeZip
	default:
		info.FirstName, info.LastName = splitName(fields.RecipientName)
		info.Address = fields.RecipientAddress
		info.State = domain.NormalizeStateCode(fields.RecipientState)
	}

	return info
}

func splitName(full string) (first, last string) {
	parts := strings.Fields(full)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], ""
	default:
		return parts[0], strings.Join(parts[1:], " ")
	}
}
