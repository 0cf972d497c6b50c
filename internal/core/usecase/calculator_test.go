package usecase

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/mpetrenko/taxmate/internal/core/domain"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestCalculateSingleFilerWithCaliforniaState(t *testing.T) {
	calc := NewCalculator()

	result, err := calc.Calculate(CalcInput{
		TotalIncome:       dec("80000"),
		FilingStatus:      domain.FilingSingle,
		TotalWithholdings: dec("12000"),
		StateCode:         "CA",
	})
	if err != nil {
		t.Fatalf("Calculate() error = %v", err)
	}

	// Federal: 80000 - 13850 standard = 66150 taxable.
	if !result.Federal.TaxableIncome.Equal(dec("66150")) {
		t.Fatalf("federal taxable = %s, want 66150", result.Federal.TaxableIncome)
	}
	if !result.Federal.TaxLiability.Equal(dec("9860.50")) {
		t.Fatalf("federal liability = %s, want 9860.50", result.Federal.TaxLiability)
	}

	if result.State == nil {
		t.Fatalf("expected state calculation for CA")
	}
	// CA: 80000 - 5202 standard - 144 exemption = 74654 taxable.
	if !result.State.TaxableIncome.Equal(dec("74654")) {
		t.Fatalf("state taxable = %s, want 74654", result.State.TaxableIncome)
	}
	if !result.State.TaxLiability.Equal(dec("3696.30")) {
		t.Fatalf("state liability = %s, want 3696.30", result.State.TaxLiability)
	}

	if !result.TotalTaxLiability.Equal(dec("13556.80")) {
		t.Fatalf("total liability = %s, want 13556.80", result.TotalTaxLiability)
	}
	if !result.AmountOwed.Equal(dec("1556.80")) {
		t.Fatalf("amount owed = %s, want 1556.80", result.AmountOwed)
	}
	if !result.RefundAmount.IsZero() {
		t.Fatalf("refund = %s, want 0", result.RefundAmount)
	}
}

func TestCalculateRefundWhenWithholdingsExceedLiability(t *testing.T) {
	calc := NewCalculator()

	result, err := calc.Calculate(CalcInput{
		TotalIncome:       dec("30000"),
		FilingStatus:      domain.FilingSingle,
		TotalWithholdings: dec("5000"),
	})
	if err != nil {
		t.Fatalf("Calculate() error = %v", err)
	}

	// 30000 - 13850 = 16150 taxable: 1100 + 5150*0.12 = 1718.
	if !result.Federal.TaxLiability.Equal(dec("1718")) {
		t.Fatalf("federal liability = %s, want 1718", result.Federal.TaxLiability)
	}
	if !result.RefundAmount.Equal(dec("3282")) {
		t.Fatalf("refund = %s, want 3282", result.RefundAmount)
	}
	if !result.AmountOwed.IsZero() {
		t.Fatalf("amount owed = %s, want 0", result.AmountOwed)
	}
}

func TestCalculateZeroIncomeProducesZeroTax(t *testing.T) {
	calc := NewCalculator()

	result, err := calc.Calculate(CalcInput{
		TotalIncome:  decimal.Zero,
		FilingStatus: domain.FilingSingle,
	})
	if err != nil {
		t.Fatalf("Calculate() error = %v", err)
	}
	if !result.Federal.TaxableIncome.IsZero() || !result.Federal.TaxLiability.IsZero() {
		t.Fatalf("expected zero taxable and liability, got %s / %s",
			result.Federal.TaxableIncome, result.Federal.TaxLiability)
	}
}

func TestCalculatePrefersItemizedWhenLarger(t *testing.T) {
	calc := NewCalculator()

	result, err := calc.Calculate(CalcInput{
		TotalIncome:        dec("100000"),
		FilingStatus:       domain.FilingSingle,
		ItemizedDeductions: dec("20000"),
	})
	if err != nil {
		t.Fatalf("Calculate() error = %v", err)
	}
	if result.Federal.DeductionMethod != domain.DeductionItemized {
		t.Fatalf("deduction method = %q, want itemized", result.Federal.DeductionMethod)
	}
	if !result.Federal.DeductionUsed.Equal(dec("20000")) {
		t.Fatalf("deduction used = %s, want 20000", result.Federal.DeductionUsed)
	}
	found := false
	for _, s := range result.Suggestions {
		if strings.Contains(s, "Itemizing saves") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected itemizing suggestion, got %v", result.Suggestions)
	}
}

func TestCalculateDependentCreditsReduceFinalTax(t *testing.T) {
	calc := NewCalculator()

	base, err := calc.Calculate(CalcInput{
		TotalIncome:  dec("60000"),
		FilingStatus: domain.FilingSingle,
	})
	if err != nil {
		t.Fatalf("Calculate() error = %v", err)
	}

	withChild, err := calc.Calculate(CalcInput{
		TotalIncome:  dec("60000"),
		FilingStatus: domain.FilingSingle,
		Dependents: []domain.Dependent{
			{Name: "Sam", QualifiesChildCredit: true},
		},
	})
	if err != nil {
		t.Fatalf("Calculate() error = %v", err)
	}

	diff := base.AmountOwed.Sub(withChild.AmountOwed)
	if !diff.Equal(dec("2000")) {
		t.Fatalf("child credit reduced owed by %s, want 2000", diff)
	}
	if !withChild.Federal.Credits.Equal(dec("2000")) {
		t.Fatalf("credits = %s, want 2000", withChild.Federal.Credits)
	}
}

func TestCalculateNoIncomeTaxState(t *testing.T) {
	calc := NewCalculator()

	result, err := calc.Calculate(CalcInput{
		TotalIncome:  dec("50000"),
		FilingStatus: domain.FilingSingle,
		StateCode:    "TX",
	})
	if err != nil {
		t.Fatalf("Calculate() error = %v", err)
	}
	if result.State == nil {
		t.Fatalf("expected state block for TX")
	}
	if result.State.HasIncomeTax {
		t.Fatalf("TX should have no income tax")
	}
	if !result.State.TaxLiability.IsZero() {
		t.Fatalf("TX liability = %s, want 0", result.State.TaxLiability)
	}
	if !result.TotalTaxLiability.Equal(result.Federal.TaxLiability) {
		t.Fatalf("total should equal federal for a no-tax state")
	}
}

func TestCalculateUnknownStateDegradesToFederalOnly(t *testing.T) {
	calc := NewCalculator()

	result, err := calc.Calculate(CalcInput{
		TotalIncome:  dec("50000"),
		FilingStatus: domain.FilingSingle,
		StateCode:    "OH",
	})
	if err != nil {
		t.Fatalf("Calculate() error = %v", err)
	}
	if result.State != nil {
		t.Fatalf("expected no state block for an untabulated state")
	}
	found := false
	for _, s := range result.Suggestions {
		if strings.Contains(s, "federal-only") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected federal-only suggestion, got %v", result.Suggestions)
	}
}

func TestAccumulateBracketsFlatRateState(t *testing.T) {
	calc := NewCalculator()

	// IL: flat 4.95% on AGI minus 2425 exemption; no standard deduction.
	result, err := calc.Calculate(CalcInput{
		TotalIncome:  dec("50000"),
		FilingStatus: domain.FilingSingle,
		StateCode:    "IL",
	})
	if err != nil {
		t.Fatalf("Calculate() error = %v", err)
	}
	if result.State == nil {
		t.Fatalf("expected state calculation for IL")
	}
	if !result.State.TaxableIncome.Equal(dec("47575")) {
		t.Fatalf("IL taxable = %s, want 47575", result.State.TaxableIncome)
	}
	if !result.State.TaxLiability.Equal(dec("2354.96")) {
		t.Fatalf("IL liability = %s, want 2354.96", result.State.TaxLiability)
	}
}
