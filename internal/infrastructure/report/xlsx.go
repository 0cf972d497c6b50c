package report

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/mpetrenko/taxmate/internal/core/domain"
)

// XLSXExporter renders a two-sheet workbook: the return summary with the
// federal and state figures, and the per-document income breakdown.
type XLSXExporter struct{}

func NewXLSXExporter() *XLSXExporter {
	return &XLSXExporter{}
}

const (
	summarySheet = "Summary"
	incomeSheet  = "Income"
)

func (e *XLSXExporter) Export(ret *domain.TaxReturn, entries []domain.IncomeEntry) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, fmt.Errorf("rename summary sheet: %w", err)
	}
	if _, err := f.NewSheet(incomeSheet); err != nil {
		return nil, fmt.Errorf("create income sheet: %w", err)
	}

	if err := writeSummary(f, ret); err != nil {
		return nil, err
	}
	if err := writeIncome(f, entries); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSummary(f *excelize.File, ret *domain.TaxReturn) error {
	rows := [][2]string{
		{"Tax year", fmt.Sprintf("%d", ret.TaxYear)},
		{"Filing status", string(ret.FilingStatus)},
		{"State", displayState(ret)},
		{"Total income", ret.TotalIncome.StringFixed(2)},
		{"Adjusted gross income", ret.AdjustedGrossIncome.StringFixed(2)},
		{"Standard deduction", ret.StandardDeduction.StringFixed(2)},
		{"Itemized deduction", ret.ItemizedDeduction.StringFixed(2)},
		{"Taxable income", ret.TaxableIncome.StringFixed(2)},
		{"Federal tax liability", ret.TaxLiability.StringFixed(2)},
		{"Total credits", ret.TotalCredits.StringFixed(2)},
		{"Total withholdings", ret.TotalWithholdings.StringFixed(2)},
		{"State tax liability", ret.StateTaxLiability.StringFixed(2)},
		{"State taxable income", ret.StateTaxableIncome.StringFixed(2)},
		{"State effective rate %", ret.StateEffectiveRate.StringFixed(4)},
		{"Refund amount", ret.RefundAmount.StringFixed(2)},
		{"Amount owed", ret.AmountOwed.StringFixed(2)},
	}
	for idx, row := range rows {
		cell := fmt.Sprintf("A%d", idx+1)
		if err := f.SetSheetRow(summarySheet, cell, &[]any{row[0], row[1]}); err != nil {
			return fmt.Errorf("write summary row %d: %w", idx+1, err)
		}
	}
	return nil
}

func writeIncome(f *excelize.File, entries []domain.IncomeEntry) error {
	header := []any{"Type", "Amount", "Federal tax withheld", "Employer", "EIN", "Payer", "TIN", "Document"}
	if err := f.SetSheetRow(incomeSheet, "A1", &header); err != nil {
		return fmt.Errorf("write income header: %w", err)
	}
	for idx, entry := range entries {
		cell := fmt.Sprintf("A%d", idx+2)
		row := []any{
			string(entry.Type),
			entry.Amount.StringFixed(2),
			entry.FederalTaxWithheld.StringFixed(2),
			entry.EmployerName,
			entry.EmployerEIN,
			entry.PayerName,
			entry.PayerTIN,
			entry.DocumentID,
		}
		if err := f.SetSheetRow(incomeSheet, cell, &row); err != nil {
			return fmt.Errorf("write income row %d: %w", idx+2, err)
		}
	}
	return nil
}

func displayState(ret *domain.TaxReturn) string {
	code := ret.DetectedState
	if code == "" {
		code = ret.State
	}
	if code == "" {
		return "not detected"
	}
	if name := domain.StateName(code); name != "" {
		return fmt.Sprintf("%s (%s)", name, code)
	}
	return code
}
