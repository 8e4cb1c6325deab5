package invoice

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/billingcat/timetrack/model"
	"github.com/shopspring/decimal"
)

// view is the data passed to HTML document templates.
type view struct {
	Number   string
	Date     time.Time
	DueDate  time.Time
	Currency string
	Template *model.InvoiceTemplate
	Customer *model.Customer
	User     *model.User
	Rows     []Row
	Result   *Result
}

// HTMLRenderer renders ".html" documents with html/template.
type HTMLRenderer struct{}

func (HTMLRenderer) Supports(doc Document) bool { return doc.Ext == ".html" }

func (HTMLRenderer) Render(doc Document, m *Model) (*Response, error) {
	result, err := m.Calculate()
	if err != nil {
		return nil, err
	}
	number, err := m.InvoiceNumber()
	if err != nil {
		return nil, err
	}

	funcs := template.FuncMap{
		"formatMoney":    formatMoney,
		"formatDate":     formatDate,
		"formatQuantity": formatQuantity,
	}
	tpl, err := template.New(doc.Name + doc.Ext).Funcs(funcs).ParseFiles(doc.Path)
	if err != nil {
		return nil, fmt.Errorf("parse document %s: %w", doc.Name, err)
	}

	var buf bytes.Buffer
	err = tpl.Execute(&buf, view{
		Number:   number,
		Date:     m.InvoiceDate,
		DueDate:  m.DueDate(),
		Currency: m.Currency(),
		Template: m.Template,
		Customer: m.Customer,
		User:     m.User,
		Rows:     result.Rows,
		Result:   result,
	})
	if err != nil {
		return nil, err
	}

	return &Response{
		Filename:    number + ".html",
		ContentType: "text/html; charset=utf-8",
		Body:        buf.Bytes(),
	}, nil
}

func formatMoney(d decimal.Decimal, currency string) string {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		currency = "EUR"
	}
	return fmt.Sprintf("%s %s", d.Round(2).StringFixed(2), currency)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("02.01.2006")
}

func formatQuantity(d decimal.Decimal) string {
	s := d.Round(2).StringFixed(2)
	s = strings.TrimRight(s, "0")
	return strings.TrimRight(s, ".")
}

var _ Renderer = HTMLRenderer{}
