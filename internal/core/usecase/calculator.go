package usecase

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mpetrenko/taxmate/internal/core/domain"
	"github.com/mpetrenko/taxmate/internal/taxtable"
)

// CalcInput is everything the calculator needs; the calculator itself is a
// pure function over this input and the embedded reference tables.
type CalcInput struct {
	TotalIncome             decimal.Decimal
	FilingStatus            domain.FilingStatus
	Dependents              []domain.Dependent
	ItemizedDeductions      decimal.Decimal
	TotalWithholdings       decimal.Decimal
	StateCode               string
	StateItemizedDeductions decimal.Decimal
}

type Calculator struct{}

func NewCalculator() *Calculator {
	return &Calculator{}
}

// Calculate always produces the federal result; the state half runs only
// when a state code is supplied and degrades to federal-only on failure,
// appending a suggestion naming the failure.
func (c *Calculator) Calculate(in CalcInput) (*domain.TaxCalculation, error) {
	federal, credits, err := c.federal(in)
	if err != nil {
		return nil, domain.WrapError(domain.ErrCalculation, "federal tax calculation", err)
	}

	result := &domain.TaxCalculation{
		Federal:           federal,
		TotalIncome:       domain.RoundCents(in.TotalIncome),
		TotalWithholdings: domain.RoundCents(in.TotalWithholdings),
	}

	totalLiability := federal.TaxLiability
	if in.StateCode != "" {
		state, stateErr := c.state(in, federal.AdjustedGrossIncome)
		if stateErr != nil {
			result.Suggestions = append(result.Suggestions,
				fmt.Sprintf("State tax for %s could not be calculated (%v); showing federal-only results.", in.StateCode, stateErr))
		} else {
			result.State = &state
			totalLiability = totalLiability.Add(state.TaxLiability)
		}
	}

	result.TotalTaxLiability = domain.RoundCents(totalLiability)
	finalTax := result.TotalTaxLiability.Sub(credits).Sub(in.TotalWithholdings)
	result.FinalTax = domain.RoundCents(finalTax)
	result.RefundAmount = domain.RoundCents(decimal.Max(decimal.Zero, finalTax.Neg()))
	result.AmountOwed = domain.RoundCents(decimal.Max(decimal.Zero, finalTax))

	if federal.DeductionMethod == domain.DeductionItemized {
		result.Suggestions = append(result.Suggestions,
			fmt.Sprintf("Itemizing saves %s over the standard deduction.", federal.DeductionSavings.StringFixed(2)))
	}

	return result, nil
}

func (c *Calculator) federal(in CalcInput) (domain.FederalCalculation, decimal.Decimal, error) {
	table, err := taxtable.Federal()
	if err != nil {
		return domain.FederalCalculation{}, decimal.Zero, err
	}
	brackets, err := table.BracketsFor(in.FilingStatus)
	if err != nil {
		return domain.FederalCalculation{}, decimal.Zero, err
	}

	// No above-the-line adjustments are modeled: AGI equals total income.
	agi := in.TotalIncome
	standard := table.FederalStandardDeduction(in.FilingStatus)
	itemized := in.ItemizedDeductions

	standardLiability := accumulateBrackets(taxableAfter(agi, standard), brackets)
	itemizedLiability := accumulateBrackets(taxableAfter(agi, itemized), brackets)

	// Both candidate liabilities are recorded; the lower one wins.
	method := domain.DeductionStandard
	deduction := standard
	liability := standardLiability
	savings := domain.RoundCents(standardLiability.Sub(itemizedLiability).Abs())
	if itemizedLiability.LessThan(standardLiability) {
		method = domain.DeductionItemized
		deduction = itemized
		liability = itemizedLiability
	}

	credits := c.credits(table, in.Dependents)

	return domain.FederalCalculation{
		AdjustedGrossIncome: domain.RoundCents(agi),
		StandardDeduction:   standard,
		ItemizedDeduction:   itemized,
		DeductionUsed:       deduction,
		DeductionMethod:     method,
		DeductionSavings:    savings,
		TaxableIncome:       domain.RoundCents(taxableAfter(agi, deduction)),
		TaxLiability:        domain.RoundCents(liability),
		Credits:             credits,
	}, credits, nil
}

func (c *Calculator) credits(table taxtable.FederalTable, dependents []domain.Dependent) decimal.Decimal {
	total := decimal.Zero
	for _, dep := range dependents {
		if dep.QualifiesChildCredit {
			total = total.Add(table.ChildTaxCredit)
		}
		if dep.QualifiesEIC {
			total = total.Add(table.EarnedIncomeCredit)
		}
	}
	return total
}

func (c *Calculator) state(in CalcInput, agi decimal.Decimal) (domain.StateCalculation, error) {
	info, err := taxtable.State(in.StateCode)
	if err != nil {
		return domain.StateCalculation{}, err
	}

	if !info.HasIncomeTax {
		return domain.StateCalculation{
			StateCode:    info.Code,
			HasIncomeTax: false,
			Note:         fmt.Sprintf("State %s has no income tax", info.Name),
		}, nil
	}

	brackets, err := info.BracketsFor(in.FilingStatus)
	if err != nil {
		return domain.StateCalculation{}, err
	}

	standard := info.StandardDeductionFor(in.FilingStatus)
	deduction := decimal.Max(standard, in.StateItemizedDeductions)
	exemption := info.PersonalExemption.Mul(decimal.NewFromInt(int64(1 + len(in.Dependents))))

	taxable := agi.Sub(deduction).Sub(exemption)
	if taxable.IsNegative() {
		taxable = decimal.Zero
	}

	liability := domain.RoundCents(accumulateBrackets(taxable, brackets))

	effective := decimal.Zero
	if agi.IsPositive() {
		effective = liability.Div(agi).Mul(decimal.NewFromInt(100)).Round(4)
	}

	return domain.StateCalculation{
		StateCode:         info.Code,
		HasIncomeTax:      true,
		StandardDeduction: standard,
		ItemizedDeduction: in.StateItemizedDeductions,
		DeductionUsed:     deduction,
		TaxableIncome:     domain.RoundCents(taxable),
		TaxLiability:      liability,
		MarginalRate:      marginalRate(taxable, brackets),
		EffectiveRate:     effective,
	}, nil
}

// accumulateBrackets applies a marginal (not cliff) bracket table: each band
// taxes only the income between its floor and cap, and accumulation stops at
// the first bracket whose floor is at or above taxable income. Bracket
// boundary semantics must not change; off-by-one here changes computed tax.
func accumulateBrackets(taxable decimal.Decimal, brackets []taxtable.Bracket) decimal.Decimal {
	tax := decimal.Zero
	for _, b := range brackets {
		if taxable.LessThanOrEqual(b.Min) {
			break
		}
		upper := taxable
		if b.Max != nil && b.Max.LessThan(upper) {
			upper = *b.Max
		}
		tax = tax.Add(upper.Sub(b.Min).Mul(b.Rate))
	}
	return domain.RoundCents(tax)
}

// marginalRate is the rate of the highest bracket whose floor is below
// taxable income.
func marginalRate(taxable decimal.Decimal, brackets []taxtable.Bracket) decimal.Decimal {
	rate := decimal.Zero
	for _, b := range brackets {
		if taxable.GreaterThan(b.Min) {
			rate = b.Rate
		}
	}
	return rate
}

func taxableAfter(agi, deduction decimal.Decimal) decimal.Decimal {
	taxable := agi.Sub(deduction)
	if taxable.IsNegative() {
		return decimal.Zero
	}
	return taxable
}
