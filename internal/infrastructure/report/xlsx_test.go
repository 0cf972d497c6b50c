package report

import (
	"bytes"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/mpetrenko/taxmate/internal/core/domain"
)

func TestExportWritesSummaryAndIncomeSheets(t *testing.T) {
	ret := &domain.TaxReturn{
		ID:            "ret-1",
		TaxYear:       2023,
		FilingStatus:  domain.FilingSingle,
		DetectedState: "CA",
		TotalIncome:   decimal.NewFromInt(80000),
		TaxLiability:  decimal.NewFromFloat(12000.50),
		RefundAmount:  decimal.NewFromInt(1500),
	}
	entries := []domain.IncomeEntry{
		{
			Type:               domain.IncomeW2Wages,
			Amount:             decimal.NewFromInt(80000),
			FederalTaxWithheld: decimal.NewFromInt(13500),
			EmployerName:       "Acme Corp",
			DocumentID:         "doc-1",
		},
	}

	data, err := NewXLSXExporter().Export(ret, entries)
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("reopen workbook: %v", err)
	}
	defer f.Close()

	state, err := f.GetCellValue("Summary", "B3")
	if err != nil {
		t.Fatalf("read state cell: %v", err)
	}
	if state != "California (CA)" {
		t.Fatalf("state cell = %q", state)
	}

	employer, err := f.GetCellValue("Income", "D2")
	if err != nil {
		t.Fatalf("read employer cell: %v", err)
	}
	if employer != "Acme Corp" {
		t.Fatalf("employer cell = %q", employer)
	}
}
