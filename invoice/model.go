package invoice

import (
	"fmt"
	"time"

	"github.com/billingcat/timetrack/model"
)

// Model is the transient aggregate built for a single render request. It is
// owned by the request that built it and never persisted directly.
type Model struct {
	InvoiceDate     time.Time
	Query           *model.InvoiceQuery
	User            *model.User
	Customer        *model.Customer
	Template        *model.InvoiceTemplate
	Calculator      Calculator
	NumberGenerator NumberGenerator
	Entries         []model.ExportItem

	number  string
	counter uint
}

// Counter reports the sequence value consumed by the number generator, or
// zero when the generator is not counter based.
func (m *Model) Counter() uint { return m.counter }

// AddItems appends collected billable items to the model.
func (m *Model) AddItems(items []model.ExportItem) {
	m.Entries = append(m.Entries, items...)
}

// Currency returns the invoice currency, resolved from the customer.
func (m *Model) Currency() string {
	if m.Customer != nil && m.Customer.Currency != "" {
		return m.Customer.Currency
	}
	return "EUR"
}

// DueDate derives the payment deadline from the template's due days.
func (m *Model) DueDate() time.Time {
	days := 14
	if m.Template != nil {
		days = m.Template.DueDays
	}
	return m.InvoiceDate.AddDate(0, 0, days)
}

// Calculate runs the configured calculator over the collected entries.
func (m *Model) Calculate() (*Result, error) {
	if m.Calculator == nil {
		return nil, fmt.Errorf("invoice model has no calculator")
	}
	return m.Calculator.Calculate(m)
}

// InvoiceNumber produces the invoice number via the configured generator.
// The number is generated once per model so that renderers and the caller
// see the same value and a counter is consumed at most once.
func (m *Model) InvoiceNumber() (string, error) {
	if m.NumberGenerator == nil {
		return "", fmt.Errorf("invoice model has no number generator")
	}
	if m.number == "" {
		number, err := m.NumberGenerator.Generate(m)
		if err != nil {
			return "", err
		}
		m.number = number
	}
	return m.number, nil
}
