// Package taxtable holds the immutable federal and state tax reference data:
// bracket tables keyed by filing status, standard deductions, flat credits
// and personal exemptions. Tables are embedded YAML so the numbers live in
// one reviewable place.
package taxtable

import (
	_ "embed"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/mpetrenko/taxmate/internal/core/domain"
)

//go:embed tables.yaml
var tablesYAML []byte

// Bracket is one marginal band. Max is nil for the open-ended top bracket.
type Bracket struct {
	Min  decimal.Decimal
	Max  *decimal.Decimal
	Rate decimal.Decimal
}

type bracketYAML struct {
	Min  float64  `yaml:"min"`
	Max  *float64 `yaml:"max"`
	Rate float64  `yaml:"rate"`
}

type stateYAML struct {
	Name              string                   `yaml:"name"`
	HasIncomeTax      bool                     `yaml:"has_income_tax"`
	PersonalExemption float64                  `yaml:"personal_exemption"`
	StandardDeduction map[string]float64       `yaml:"standard_deduction"`
	Brackets          map[string][]bracketYAML `yaml:"brackets"`
}

type tablesFile struct {
	Federal struct {
		StandardDeduction map[string]float64 `yaml:"standard_deduction"`
		Credits           struct {
			ChildTaxCredit     float64 `yaml:"child_tax_credit"`
			EarnedIncomeCredit float64 `yaml:"earned_income_credit"`
		} `yaml:"credits"`
		Brackets map[string][]bracketYAML `yaml:"brackets"`
	} `yaml:"federal"`
	States map[string]stateYAML `yaml:"states"`
}

// FederalTable is the federal slice of the reference data.
type FederalTable struct {
	StandardDeduction  map[string]decimal.Decimal
	ChildTaxCredit     decimal.Decimal
	EarnedIncomeCredit decimal.Decimal
	Brackets           map[string][]Bracket
}

// StateTaxInfo is the per-state slice of the reference data.
type StateTaxInfo struct {
	Code              string
	Name              string
	HasIncomeTax      bool
	PersonalExemption decimal.Decimal
	StandardDeduction map[string]decimal.Decimal
	Brackets          map[string][]Bracket
}

var (
	loadOnce sync.Once
	loadErr  error
	federal  FederalTable
	states   map[string]StateTaxInfo
)

func load() error {
	loadOnce.Do(func() {
		var file tablesFile
		if err := yaml.Unmarshal(tablesYAML, &file); err != nil {
			loadErr = fmt.Errorf("parse tax tables: %w", err)
			return
		}

		federal = FederalTable{
			StandardDeduction:  toDecimalMap(file.Federal.StandardDeduction),
			ChildTaxCredit:     decimal.NewFromFloat(file.Federal.Credits.ChildTaxCredit),
			EarnedIncomeCredit: decimal.NewFromFloat(file.Federal.Credits.EarnedIncomeCredit),
			Brackets:           toBracketMap(file.Federal.Brackets),
		}

		states = make(map[string]StateTaxInfo, len(file.States))
		for code, s := range file.States {
			states[code] = StateTaxInfo{
				Code:              code,
				Name:              s.Name,
				HasIncomeTax:      s.HasIncomeTax,
				PersonalExemption: decimal.NewFromFloat(s.PersonalExemption),
				StandardDeduction: toDecimalMap(s.StandardDeduction),
				Brackets:          toBracketMap(s.Brackets),
			}
		}
	})
	return loadErr
}

// Federal returns the federal reference table.
func Federal() (FederalTable, error) {
	if err := load(); err != nil {
		return FederalTable{}, err
	}
	return federal, nil
}

// State returns the reference data for a 2-letter state code.
func State(code string) (StateTaxInfo, error) {
	if err := load(); err != nil {
		return StateTaxInfo{}, err
	}
	normalized := domain.NormalizeStateCode(code)
	if normalized == "" {
		return StateTaxInfo{}, fmt.Errorf("invalid state code %q", code)
	}
	info, ok := states[normalized]
	if !ok {
		return StateTaxInfo{}, fmt.Errorf("no tax table for state %s", normalized)
	}
	return info, nil
}

// FederalStandardDeduction looks up the deduction for a filing status.
func (t FederalTable) FederalStandardDeduction(status domain.FilingStatus) decimal.Decimal {
	return t.StandardDeduction[status.Key()]
}

// BracketsFor returns the bracket table for a filing status.
func (t FederalTable) BracketsFor(status domain.FilingStatus) ([]Bracket, error) {
	brackets, ok := t.Brackets[status.Key()]
	if !ok {
		return nil, fmt.Errorf("no federal brackets for filing status %q", status)
	}
	return brackets, nil
}

// BracketsFor returns the state bracket table for a filing status.
func (s StateTaxInfo) BracketsFor(status domain.FilingStatus) ([]Bracket, error) {
	brackets, ok := s.Brackets[status.Key()]
	if !ok {
		return nil, fmt.Errorf("no %s brackets for filing status %q", s.Code, status)
	}
	return brackets, nil
}

// StandardDeductionFor returns the state standard deduction, zero when the
// state has none.
func (s StateTaxInfo) StandardDeductionFor(status domain.FilingStatus) decimal.Decimal {
	return s.StandardDeduction[status.Key()]
}

func toDecimalMap(in map[string]float64) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(in))
	for k, v := range in {
		out[k] = decimal.NewFromFloat(v)
	}
	return out
}

func toBracketMap(in map[string][]bracketYAML) map[string][]Bracket {
	out := make(map[string][]Bracket, len(in))
	for key, rows := range in {
		brackets := make([]Bracket, 0, len(rows))
		for _, row := range rows {
			b := Bracket{
				Min:  decimal.NewFromFloat(row.Min),
				Rate: decimal.NewFromFloat(row.Rate),
			}
			if row.Max != nil {
				max := decimal.NewFromFloat(*row.Max)
				b.Max = &max
			}
			brackets = append(brackets, b)
		}
		out[key] = brackets
	}
	return out
}
