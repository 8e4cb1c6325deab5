package invoice_test

import (
	"testing"
	"time"

	"github.com/billingcat/timetrack/fixtures"
	"github.com/billingcat/timetrack/invoice"
	"github.com/billingcat/timetrack/model"

	"github.com/shopspring/decimal"
)

func testModel(items ...model.ExportItem) *invoice.Model {
	m := &invoice.Model{
		InvoiceDate: time.Date(2026, 3, 31, 12, 0, 0, 0, time.UTC),
		Template:    fixtures.Template(),
	}
	m.AddItems(items)
	return m
}

func TestDefaultCalculator(t *testing.T) {
	m := testModel(
		fixtures.Timesheet(1, fixtures.WithTimesheetDuration(7200), fixtures.WithTimesheetHourlyRate("90")),
		fixtures.Timesheet(1, fixtures.WithTimesheetDuration(1800), fixtures.WithTimesheetHourlyRate("90")),
		fixtures.Expense(1, fixtures.WithExpenseCost("49.90"), fixtures.WithExpenseQuantity("2")),
	)

	res, err := invoice.DefaultCalculator{}.Calculate(m)
	if err != nil {
		t.Fatalf("Calculate failed: %v", err)
	}

	if len(res.Rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(res.Rows))
	}

	// 2h*90 + 0.5h*90 + 2*49.90 = 180 + 45 + 99.80
	wantNet := decimal.RequireFromString("324.80")
	if !res.NetTotal.Equal(wantNet) {
		t.Errorf("NetTotal = %s, want %s", res.NetTotal, wantNet)
	}
	wantTax := decimal.RequireFromString("61.712") // 19 %
	if !res.TaxTotal.Equal(wantTax) {
		t.Errorf("TaxTotal = %s, want %s", res.TaxTotal, wantTax)
	}
	if !res.GrossTotal.Equal(wantNet.Add(wantTax)) {
		t.Errorf("GrossTotal = %s, want %s", res.GrossTotal, wantNet.Add(wantTax))
	}
	if res.Rows[2].Type != "expense" {
		t.Errorf("row type = %q, want %q", res.Rows[2].Type, "expense")
	}
}

func TestDefaultCalculatorFixedRateWins(t *testing.T) {
	m := testModel(
		fixtures.Timesheet(1,
			fixtures.WithTimesheetDuration(7200),
			fixtures.WithTimesheetHourlyRate("90"),
			fixtures.WithTimesheetFixedRate("500"),
		),
	)

	res, err := invoice.DefaultCalculator{}.Calculate(m)
	if err != nil {
		t.Fatalf("Calculate failed: %v", err)
	}
	want := decimal.RequireFromString("500")
	if !res.NetTotal.Equal(want) {
		t.Errorf("NetTotal = %s, want %s (fixed rate must override hourly rate)", res.NetTotal, want)
	}
}

func TestShortCalculatorAggregates(t *testing.T) {
	early := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	late := time.Date(2026, 3, 20, 14, 0, 0, 0, time.UTC)

	m := testModel(
		fixtures.Timesheet(1, fixtures.WithTimesheetBegin(late), fixtures.WithTimesheetDuration(3600)),
		fixtures.Timesheet(1, fixtures.WithTimesheetBegin(early), fixtures.WithTimesheetDuration(7200)),
	)

	res, err := invoice.ShortCalculator{}.Calculate(m)
	if err != nil {
		t.Fatalf("Calculate failed: %v", err)
	}
	if len(res.Rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(res.Rows))
	}
	row := res.Rows[0]
	if row.Description != "Rechnung" {
		t.Errorf("Description = %q, want template title %q", row.Description, "Rechnung")
	}
	if !row.Begin.Equal(early) {
		t.Errorf("Begin = %s, want earliest entry %s", row.Begin, early)
	}
	if !row.Quantity.Equal(decimal.RequireFromString("3")) {
		t.Errorf("Quantity = %s, want 3 hours", row.Quantity)
	}
	if !res.NetTotal.Equal(decimal.RequireFromString("270")) {
		t.Errorf("NetTotal = %s, want 270", res.NetTotal)
	}
}

func TestShortCalculatorEmpty(t *testing.T) {
	res, err := invoice.ShortCalculator{}.Calculate(testModel())
	if err != nil {
		t.Fatalf("Calculate failed: %v", err)
	}
	if len(res.Rows) != 0 {
		t.Errorf("rows = %d, want 0", len(res.Rows))
	}
	if !res.GrossTotal.IsZero() {
		t.Errorf("GrossTotal = %s, want 0", res.GrossTotal)
	}
}
