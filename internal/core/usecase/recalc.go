package usecase

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mpetrenko/taxmate/internal/core/domain"
	"github.com/mpetrenko/taxmate/internal/core/ports"
)

// Recalculator re-derives a return's aggregate fields strictly from the
// currently valid income entries. Orphaned entries are purged first on every
// pass, not just from the dedicated cleanup endpoint: aggregates are derived
// data and must never survive their sources.
type Recalculator struct {
	calc *Calculator
}

func NewRecalculator(calc *Calculator) *Recalculator {
	return &Recalculator{calc: calc}
}

// Rederive runs inside a unit of work. It locks the return row, purges
// orphans, sums the remaining valid entries, recomputes the full tax
// calculation and persists the refreshed aggregates.
func (r *Recalculator) Rederive(ctx context.Context, s ports.Stores, taxReturnID string) (*domain.TaxCalculation, int64, error) {
	ret, err := s.Returns.LockForUpdate(ctx, taxReturnID)
	if err != nil {
		return nil, 0, fmt.Errorf("lock tax return: %w", err)
	}

	purged, err := s.Income.DeleteOrphans(ctx, taxReturnID)
	if err != nil {
		return nil, 0, fmt.Errorf("purge orphaned income entries: %w", err)
	}

	entries, err := s.Income.ListValid(ctx, taxReturnID)
	if err != nil {
		return nil, 0, fmt.Errorf("list valid income entries: %w", err)
	}

	totalIncome := decimal.Zero
	totalWithheld := decimal.Zero
	for _, entry := range entries {
		totalIncome = totalIncome.Add(entry.Amount)
		totalWithheld = totalWithheld.Add(entry.FederalTaxWithheld)
	}

	dependents, err := s.Returns.ListDependents(ctx, taxReturnID)
	if err != nil {
		return nil, 0, fmt.Errorf("list dependents: %w", err)
	}

	stateCode := ret.DetectedState
	if stateCode == "" {
		stateCode = ret.State
	}

	calc, err := r.calc.Calculate(CalcInput{
		TotalIncome:             totalIncome,
		FilingStatus:            ret.FilingStatus,
		Dependents:              dependents,
		ItemizedDeductions:      ret.ItemizedDeduction,
		TotalWithholdings:       totalWithheld,
		StateCode:               stateCode,
		StateItemizedDeductions: ret.StateItemizedDeduction,
	})
	if err != nil {
		return nil, 0, err
	}

	applyCalculation(ret, calc)

	if err := s.Returns.SaveAggregates(ctx, ret); err != nil {
		return nil, 0, fmt.Errorf("save aggregates: %w", err)
	}

	return calc, purged, nil
}

func applyCalculation(ret *domain.TaxReturn, calc *domain.TaxCalculation) {
	ret.TotalIncome = calc.TotalIncome
	ret.TotalWithholdings = calc.TotalWithholdings
	ret.AdjustedGrossIncome = calc.Federal.AdjustedGrossIncome
	ret.StandardDeduction = calc.Federal.StandardDeduction
	ret.TaxableIncome = calc.Federal.TaxableIncome
	ret.TaxLiability = calc.Federal.TaxLiability
	ret.TotalCredits = calc.Federal.Credits
	ret.RefundAmount = calc.RefundAmount
	ret.AmountOwed = calc.AmountOwed

	if calc.State != nil {
		ret.StateTaxLiability = calc.State.TaxLiability
		ret.StateStandardDeduction = calc.State.StandardDeduction
		ret.StateTaxableIncome = calc.State.TaxableIncome
		ret.StateEffectiveRate = calc.State.EffectiveRate
	} else {
		// A return without a usable state calculation carries zeroed state
		// figures rather than stale ones.
		ret.StateTaxLiability = decimal.Zero
		ret.StateStandardDeduction = decimal.Zero
		ret.StateTaxableIncome = decimal.Zero
		ret.StateEffectiveRate = decimal.Zero
	}
}
