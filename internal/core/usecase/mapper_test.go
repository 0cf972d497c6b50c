package usecase

import (
	"testing"

	"github.com/mpetrenko/taxmate/internal/core/domain"
)

func TestMapW2ProducesWageEntryAndPersonalInfo(t *testing.T) {
	mapper := NewTaxMapper()

	result := mapper.Map(domain.DocTypeW2, &domain.ExtractedFields{
		EmployeeName:       "Jane Q Public",
		EmployeeSSN:        "123-45-6789",
		EmployeeAddress:    "1 Main St",
		EmployeeCity:       "Fresno",
		EmployeeState:      "ca",
		EmployeeZip:        "93701",
		EmployerName:       "Acme Corp",
		EmployerEIN:        "12-3456789",
		Wages:              dec("55000"),
		FederalTaxWithheld: dec("8250"),
	})

	if result.Income == nil {
		t.Fatalf("expected an income entry")
	}
	if result.Income.Type != domain.IncomeW2Wages {
		t.Fatalf("income type = %q, want W2_WAGES", result.Income.Type)
	}
	if !result.Income.Amount.Equal(dec("55000")) {
		t.Fatalf("amount = %s, want 55000", result.Income.Amount)
	}
	if !result.Income.FederalTaxWithheld.Equal(dec("8250")) {
		t.Fatalf("withheld = %s, want 8250", result.Income.FederalTaxWithheld)
	}
	if result.Income.EmployerEIN != "12-3456789" {
		t.Fatalf("employer EIN = %q", result.Income.EmployerEIN)
	}

	info := result.PersonalInfo
	if info.FirstName != "Jane" || info.LastName != "Q Public" {
		t.Fatalf("name split = %q / %q", info.FirstName, info.LastName)
	}
	if info.State != "CA" {
		t.Fatalf("state = %q, want CA", info.State)
	}
}

func TestMapW2WithoutWagesProducesNoEntry(t *testing.T) {
	mapper := NewTaxMapper()

	result := mapper.Map(domain.DocTypeW2, &domain.ExtractedFields{
		EmployeeName: "Jane Public",
	})
	if result.Income != nil {
		t.Fatalf("expected no income entry without wages, got %+v", result.Income)
	}
}

func TestMap1099InterestAndDividends(t *testing.T) {
	mapper := NewTaxMapper()

	interest := mapper.Map(domain.DocType1099INT, &domain.ExtractedFields{
		PayerName:      "First Bank",
		PayerTIN:       "98-7654321",
		InterestIncome: dec("420.55"),
	})
	if interest.Income == nil || interest.Income.Type != domain.IncomeInterest {
		t.Fatalf("expected INTEREST entry, got %+v", interest.Income)
	}
	if interest.Income.PayerName != "First Bank" {
		t.Fatalf("payer = %q", interest.Income.PayerName)
	}

	dividends := mapper.Map(domain.DocType1099DIV, &domain.ExtractedFields{
		PayerName:         "Brokerage LLC",
		OrdinaryDividends: dec("1100"),
	})
	if dividends.Income == nil || dividends.Income.Type != domain.IncomeDividends {
		t.Fatalf("expected DIVIDENDS entry, got %+v", dividends.Income)
	}
}

func TestMap1099MiscPicksLargestBox(t *testing.T) {
	mapper := NewTaxMapper()

	result := mapper.Map(domain.DocType1099MISC, &domain.ExtractedFields{
		PayerName:   "Property Mgmt",
		Rents:       dec("12000"),
		Royalties:   dec("300"),
		OtherIncome: dec("150"),
	})

	if result.Income == nil {
		t.Fatalf("expected an income entry")
	}
	if !result.Income.Amount.Equal(dec("12000")) {
		t.Fatalf("amount = %s, want the largest box 12000", result.Income.Amount)
	}
	if !result.AmbiguousAmounts {
		t.Fatalf("expected ambiguity flag with several nonzero boxes")
	}
}

func TestMap1099MiscSingleBoxNotAmbiguous(t *testing.T) {
	mapper := NewTaxMapper()

	result := mapper.Map(domain.DocType1099MISC, &domain.ExtractedFields{
		Royalties: dec("300"),
	})
	if result.AmbiguousAmounts {
		t.Fatalf("single nonzero box should not be ambiguous")
	}
	if result.Income == nil || !result.Income.Amount.Equal(dec("300")) {
		t.Fatalf("expected 300 entry, got %+v", result.Income)
	}
}

func TestMap1099NECMapsToBusinessIncome(t *testing.T) {
	mapper := NewTaxMapper()

	result := mapper.Map(domain.DocType1099NEC, &domain.ExtractedFields{
		PayerName:               "Client Co",
		NonemployeeCompensation: dec("9000"),
	})
	if result.Income == nil || result.Income.Type != domain.IncomeBusiness {
		t.Fatalf("expected BUSINESS_INCOME entry, got %+v", result.Income)
	}
}

func TestMapNilFieldsIsEmptyResult(t *testing.T) {
	mapper := NewTaxMapper()

	result := mapper.Map(domain.DocTypeW2, nil)
	if result.Income != nil {
		t.Fatalf("expected empty result for nil fields")
	}
}

func TestSplitName(t *testing.T) {
	tests := []struct {
		full, first, last string
	}{
		{"", "", ""},
		{"Cher", "Cher", ""},
		{"Jane Public", "Jane", "Public"},
		{"Jane Q Public", "Jane", "Q Public"},
	}
	for _, tc := range tests {
		first, last := splitName(tc.full)
		if first != tc.first || last != tc.last {
			t.Fatalf("splitName(%q) = %q/%q, want %q/%q", tc.full, first, last, tc.first, tc.last)
		}
	}
}
