// Package fixtures bundles the shared builders and the in-memory database
// setup for tests. Builders use functional options so a test only names the
// fields it cares about.
package fixtures

import (
	"testing"
	"time"

	"github.com/billingcat/timetrack/model"

	"github.com/shopspring/decimal"
)

// DefaultOwnerID is the owner id the seeded user ends up with.
const DefaultOwnerID uint = 1

// NewTestStore opens a fresh in-memory database.
func NewTestStore(t *testing.T) *model.ZeitDatenbank {
	t.Helper()
	store, err := model.InitTestDatabase(nil)
	if err != nil {
		t.Fatalf("InitTestDatabase failed: %v", err)
	}
	return store
}

// TestData is the standard seeded fixture set: one admin user, one customer
// and one invoice template.
type TestData struct {
	User     *model.User
	Customer *model.Customer
	Template *model.InvoiceTemplate
}

// SeedTestData creates the default fixture records.
func SeedTestData(t *testing.T, store *model.ZeitDatenbank) *TestData {
	t.Helper()

	user, err := store.CreateUser("test@example.com", "Testbenutzer", "geheim", model.RoleAdmin)
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	customer := Customer()
	if err := store.SaveCustomer(customer, DefaultOwnerID); err != nil {
		t.Fatalf("SaveCustomer failed: %v", err)
	}

	tmpl := Template()
	if err := store.SaveTemplate(tmpl, DefaultOwnerID); err != nil {
		t.Fatalf("SaveTemplate failed: %v", err)
	}

	return &TestData{User: user, Customer: customer, Template: tmpl}
}

// ---- Customer ----

type CustomerOption func(*model.Customer)

func WithCustomerName(name string) CustomerOption {
	return func(c *model.Customer) { c.Name = name }
}

func WithCustomerNumber(number string) CustomerOption {
	return func(c *model.Customer) { c.Number = number }
}

func WithCustomerCurrency(currency string) CustomerOption {
	return func(c *model.Customer) { c.Currency = currency }
}

func Customer(opts ...CustomerOption) *model.Customer {
	c := &model.Customer{
		Name:     "ACME GmbH",
		Number:   "K-1001",
		Currency: "EUR",
		Address1: "Musterstraße 12",
		ZIP:      "12345",
		City:     "Musterstadt",
		Country:  "Deutschland",
		OwnerID:  DefaultOwnerID,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ---- InvoiceTemplate ----

type TemplateOption func(*model.InvoiceTemplate)

func WithTemplateName(name string) TemplateOption {
	return func(t *model.InvoiceTemplate) { t.Name = name }
}

func WithTemplateCalculator(name string) TemplateOption {
	return func(t *model.InvoiceTemplate) { t.Calculator = name }
}

func WithTemplateNumberGenerator(name string) TemplateOption {
	return func(t *model.InvoiceTemplate) { t.NumberGenerator = name }
}

func WithTemplateNumberPattern(pattern string) TemplateOption {
	return func(t *model.InvoiceTemplate) { t.NumberPattern = pattern }
}

func WithTemplateRenderer(document string) TemplateOption {
	return func(t *model.InvoiceTemplate) { t.Renderer = document }
}

func WithTemplateVAT(vat string) TemplateOption {
	return func(t *model.InvoiceTemplate) { t.VAT = decimal.RequireFromString(vat) }
}

func Template(opts ...TemplateOption) *model.InvoiceTemplate {
	t := &model.InvoiceTemplate{
		Name:            "Standard",
		Title:           "Rechnung",
		Company:         "Beispiel & Co. KG",
		VATID:           "DE123456789",
		Address:         "Beispielweg 1\n54321 Beispielstadt\nDeutschland",
		DueDays:         14,
		VAT:             decimal.RequireFromString("19"),
		Calculator:      "default",
		NumberGenerator: "default",
		Renderer:        "invoice",
		OwnerID:         DefaultOwnerID,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// ---- Timesheet ----

type TimesheetOption func(*model.Timesheet)

func WithTimesheetBegin(begin time.Time) TimesheetOption {
	return func(t *model.Timesheet) {
		t.Begin = begin
		end := begin.Add(time.Duration(t.Duration) * time.Second)
		t.End = &end
	}
}

func WithTimesheetDuration(seconds int64) TimesheetOption {
	return func(t *model.Timesheet) {
		t.Duration = seconds
		end := t.Begin.Add(time.Duration(seconds) * time.Second)
		t.End = &end
	}
}

func WithTimesheetDescription(desc string) TimesheetOption {
	return func(t *model.Timesheet) { t.Description = desc }
}

func WithTimesheetHourlyRate(rate string) TimesheetOption {
	return func(t *model.Timesheet) { t.HourlyRate = decimal.RequireFromString(rate) }
}

func WithTimesheetFixedRate(rate string) TimesheetOption {
	return func(t *model.Timesheet) {
		d := decimal.RequireFromString(rate)
		t.FixedRate = &d
	}
}

func WithTimesheetUserID(id uint) TimesheetOption {
	return func(t *model.Timesheet) { t.UserID = id }
}

func WithTimesheetExported() TimesheetOption {
	return func(t *model.Timesheet) { t.Exported = true }
}

// WithTimesheetRunning removes the end date, marking the entry as still
// running.
func WithTimesheetRunning() TimesheetOption {
	return func(t *model.Timesheet) { t.End = nil }
}

func Timesheet(customerID uint, opts ...TimesheetOption) *model.Timesheet {
	begin := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	end := begin.Add(2 * time.Hour)
	t := &model.Timesheet{
		Begin:       begin,
		End:         &end,
		Duration:    7200,
		Description: "Projektarbeit",
		HourlyRate:  decimal.RequireFromString("90"),
		UserID:      DefaultOwnerID,
		CustomerID:  customerID,
		OwnerID:     DefaultOwnerID,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// ---- Expense ----

type ExpenseOption func(*model.Expense)

func WithExpenseDate(date time.Time) ExpenseOption {
	return func(e *model.Expense) { e.Date = date }
}

func WithExpenseDescription(desc string) ExpenseOption {
	return func(e *model.Expense) { e.Description = desc }
}

func WithExpenseCost(cost string) ExpenseOption {
	return func(e *model.Expense) { e.Cost = decimal.RequireFromString(cost) }
}

func WithExpenseQuantity(quantity string) ExpenseOption {
	return func(e *model.Expense) { e.Quantity = decimal.RequireFromString(quantity) }
}

func WithExpenseUserID(id uint) ExpenseOption {
	return func(e *model.Expense) { e.UserID = id }
}

func WithExpenseExported() ExpenseOption {
	return func(e *model.Expense) { e.Exported = true }
}

func Expense(customerID uint, opts ...ExpenseOption) *model.Expense {
	e := &model.Expense{
		Date:        time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC),
		Description: "Bahnticket",
		Cost:        decimal.RequireFromString("49.90"),
		Quantity:    decimal.RequireFromString("1"),
		UserID:      DefaultOwnerID,
		CustomerID:  customerID,
		OwnerID:     DefaultOwnerID,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}
