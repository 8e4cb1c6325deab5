package model_test

import (
	"testing"
	"time"

	"github.com/billingcat/timetrack/fixtures"
	"github.com/billingcat/timetrack/model"
	"github.com/shopspring/decimal"
)

func TestParseInvoiceStatus(t *testing.T) {
	testdata := []struct {
		in   string
		want model.InvoiceStatus
		ok   bool
	}{
		{"new", model.InvoiceStatusNew, true},
		{"pending", model.InvoiceStatusPending, true},
		{"paid", model.InvoiceStatusPaid, true},
		{"Paid", "", false},
		{"cancelled", "", false},
		{"", "", false},
	}
	for _, tc := range testdata {
		got, ok := model.ParseInvoiceStatus(tc.in)
		if got != tc.want || ok != tc.ok {
			t.Errorf("ParseInvoiceStatus(%q) = (%q, %v), want (%q, %v)", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func seedInvoice(t *testing.T, zdb *model.ZeitDatenbank, status model.InvoiceStatus) *model.Invoice {
	t.Helper()
	inv := &model.Invoice{
		Number:     "RE-2026-0001",
		Counter:    1,
		Date:       time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
		Currency:   "EUR",
		NetTotal:   decimal.RequireFromString("100"),
		GrossTotal: decimal.RequireFromString("119"),
		Status:     status,
		OwnerID:    fixtures.DefaultOwnerID,
	}
	if err := zdb.SaveInvoice(inv, fixtures.DefaultOwnerID); err != nil {
		t.Fatalf("SaveInvoice failed: %v", err)
	}
	return inv
}

func TestSetInvoiceStatus(t *testing.T) {
	zdb := fixtures.NewTestStore(t)
	inv := seedInvoice(t, zdb, model.InvoiceStatusNew)
	paidAt := time.Date(2026, 4, 2, 12, 0, 0, 0, time.UTC)

	// new -> paid sets the payment date
	if err := zdb.SetInvoiceStatus(inv.ID, fixtures.DefaultOwnerID, model.InvoiceStatusPaid, paidAt); err != nil {
		t.Fatalf("SetInvoiceStatus failed: %v", err)
	}
	got, err := zdb.LoadInvoice(inv.ID, fixtures.DefaultOwnerID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != model.InvoiceStatusPaid {
		t.Errorf("Status = %q, want paid", got.Status)
	}
	if got.PaidAt == nil || !got.PaidAt.Equal(paidAt) {
		t.Errorf("PaidAt = %v, want %v", got.PaidAt, paidAt)
	}

	// paid -> paid is a no-op and keeps the original payment date
	later := paidAt.Add(48 * time.Hour)
	if err := zdb.SetInvoiceStatus(inv.ID, fixtures.DefaultOwnerID, model.InvoiceStatusPaid, later); err != nil {
		t.Fatalf("repeated SetInvoiceStatus failed: %v", err)
	}
	got, _ = zdb.LoadInvoice(inv.ID, fixtures.DefaultOwnerID)
	if got.PaidAt == nil || !got.PaidAt.Equal(paidAt) {
		t.Errorf("PaidAt changed on a no-op transition: %v", got.PaidAt)
	}

	// leaving paid clears the payment date
	if err := zdb.SetInvoiceStatus(inv.ID, fixtures.DefaultOwnerID, model.InvoiceStatusPending, later); err != nil {
		t.Fatalf("SetInvoiceStatus failed: %v", err)
	}
	got, _ = zdb.LoadInvoice(inv.ID, fixtures.DefaultOwnerID)
	if got.Status != model.InvoiceStatusPending {
		t.Errorf("Status = %q, want pending", got.Status)
	}
	if got.PaidAt != nil {
		t.Errorf("PaidAt = %v, want nil after leaving paid", got.PaidAt)
	}
}

func TestSetInvoiceStatusOwnerScoped(t *testing.T) {
	zdb := fixtures.NewTestStore(t)
	inv := seedInvoice(t, zdb, model.InvoiceStatusNew)

	if err := zdb.SetInvoiceStatus(inv.ID, 999, model.InvoiceStatusPaid, time.Now()); err == nil {
		t.Fatal("expected an error for a foreign owner")
	}
	got, _ := zdb.LoadInvoice(inv.ID, fixtures.DefaultOwnerID)
	if got.Status != model.InvoiceStatusNew {
		t.Errorf("Status = %q, foreign owner must not change it", got.Status)
	}
}

func TestNextInvoiceCounter(t *testing.T) {
	zdb := fixtures.NewTestStore(t)

	n, err := zdb.NextInvoiceCounter(fixtures.DefaultOwnerID)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("NextInvoiceCounter = %d, want 1 without invoices", n)
	}

	seedInvoice(t, zdb, model.InvoiceStatusNew)
	inv := &model.Invoice{Number: "RE-2026-0007", Counter: 7, Status: model.InvoiceStatusNew, OwnerID: fixtures.DefaultOwnerID}
	if err := zdb.SaveInvoice(inv, fixtures.DefaultOwnerID); err != nil {
		t.Fatal(err)
	}

	n, err = zdb.NextInvoiceCounter(fixtures.DefaultOwnerID)
	if err != nil {
		t.Fatal(err)
	}
	if n != 8 {
		t.Errorf("NextInvoiceCounter = %d, want 8", n)
	}

	// counters are per owner
	n, err = zdb.NextInvoiceCounter(999)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("NextInvoiceCounter for a fresh owner = %d, want 1", n)
	}
}

func TestFindInvoices(t *testing.T) {
	zdb := fixtures.NewTestStore(t)
	for i, status := range []model.InvoiceStatus{
		model.InvoiceStatusNew,
		model.InvoiceStatusPending,
		model.InvoiceStatusPaid,
		model.InvoiceStatusPending,
	} {
		inv := &model.Invoice{
			Number:     "RE",
			Counter:    uint(i + 1),
			CustomerID: uint(1 + i%2),
			Date:       time.Date(2026, 3, 1+i, 0, 0, 0, 0, time.UTC),
			Status:     status,
			OwnerID:    fixtures.DefaultOwnerID,
		}
		if err := zdb.SaveInvoice(inv, fixtures.DefaultOwnerID); err != nil {
			t.Fatal(err)
		}
	}

	rows, total, err := zdb.FindInvoices(fixtures.DefaultOwnerID, []model.InvoiceStatus{model.InvoiceStatusPending}, nil, 50, 0, "")
	if err != nil {
		t.Fatal(err)
	}
	if total != 2 || len(rows) != 2 {
		t.Fatalf("pending: total=%d rows=%d, want 2/2", total, len(rows))
	}
	// default order is newest first
	if !rows[0].Date.After(rows[1].Date) {
		t.Errorf("rows not ordered by date descending: %v, %v", rows[0].Date, rows[1].Date)
	}

	customerID := uint(1)
	_, total, err = zdb.FindInvoices(fixtures.DefaultOwnerID, nil, &customerID, 50, 0, "")
	if err != nil {
		t.Fatal(err)
	}
	if total != 2 {
		t.Errorf("customer filter: total=%d, want 2", total)
	}

	_, total, err = zdb.FindInvoices(999, nil, nil, 50, 0, "")
	if err != nil {
		t.Fatal(err)
	}
	if total != 0 {
		t.Errorf("foreign owner sees %d invoices, want 0", total)
	}
}
