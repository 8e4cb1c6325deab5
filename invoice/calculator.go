package invoice

import (
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Row is one line of a calculated invoice.
type Row struct {
	Description string
	Begin       time.Time
	End         time.Time
	Quantity    decimal.Decimal
	Rate        decimal.Decimal
	Total       decimal.Decimal
	Type        string
}

// Result holds the calculated lines and totals of an invoice model.
type Result struct {
	Rows       []Row
	VAT        decimal.Decimal
	NetTotal   decimal.Decimal
	TaxTotal   decimal.Decimal
	GrossTotal decimal.Decimal
}

// Calculator computes rows and totals for an invoice model. Implementations
// are registered by name and selected via the template's calculator field.
type Calculator interface {
	Name() string
	Calculate(m *Model) (*Result, error)
}

func vatOf(m *Model) decimal.Decimal {
	if m.Template != nil {
		return m.Template.VAT
	}
	return decimal.Zero
}

func finishResult(res *Result, net decimal.Decimal, vat decimal.Decimal) {
	res.VAT = vat
	res.NetTotal = net
	res.TaxTotal = net.Mul(vat.Div(hundred))
	res.GrossTotal = res.NetTotal.Add(res.TaxTotal)
}

// DefaultCalculator emits one row per collected entry.
type DefaultCalculator struct{}

func (DefaultCalculator) Name() string { return "default" }

func (DefaultCalculator) Calculate(m *Model) (*Result, error) {
	res := &Result{}
	net := decimal.Zero
	for _, item := range m.Entries {
		total := item.ItemTotal()
		net = net.Add(total)
		res.Rows = append(res.Rows, Row{
			Description: item.ItemDescription(),
			Begin:       item.ItemBegin(),
			End:         item.ItemEnd(),
			Quantity:    item.ItemQuantity(),
			Rate:        item.ItemRate(),
			Total:       total,
			Type:        item.ItemType(),
		})
	}
	finishResult(res, net, vatOf(m))
	return res, nil
}

// ShortCalculator aggregates all entries into a single row.
type ShortCalculator struct{}

func (ShortCalculator) Name() string { return "short" }

func (ShortCalculator) Calculate(m *Model) (*Result, error) {
	res := &Result{}
	if len(m.Entries) == 0 {
		finishResult(res, decimal.Zero, vatOf(m))
		return res, nil
	}

	net := decimal.Zero
	quantity := decimal.Zero
	begin := m.Entries[0].ItemBegin()
	end := m.Entries[0].ItemEnd()
	for _, item := range m.Entries {
		net = net.Add(item.ItemTotal())
		quantity = quantity.Add(item.ItemQuantity())
		if item.ItemBegin().Before(begin) {
			begin = item.ItemBegin()
		}
		if item.ItemEnd().After(end) {
			end = item.ItemEnd()
		}
	}

	description := "Gesamtaufwand"
	if m.Template != nil && m.Template.Title != "" {
		description = m.Template.Title
	}
	res.Rows = append(res.Rows, Row{
		Description: description,
		Begin:       begin,
		End:         end,
		Quantity:    quantity,
		Rate:        decimal.Zero,
		Total:       net,
		Type:        "summary",
	})
	finishResult(res, net, vatOf(m))
	return res, nil
}

var _ Calculator = DefaultCalculator{}
var _ Calculator = ShortCalculator{}
