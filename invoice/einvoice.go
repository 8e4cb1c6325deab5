package invoice

import (
	"fmt"
	"strings"

	"github.com/biter777/countries"
	"github.com/speedata/einvoice"
)

// EInvoiceRenderer renders ".xml" documents as ZUGFeRD/EN16931 e-invoices.
type EInvoiceRenderer struct{}

func (EInvoiceRenderer) Supports(doc Document) bool { return doc.Ext == ".xml" }

func (EInvoiceRenderer) Render(doc Document, m *Model) (*Response, error) {
	number, err := m.InvoiceNumber()
	if err != nil {
		return nil, err
	}
	zi, err := buildEInvoice(m, number)
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	if err := zi.Write(&sb); err != nil {
		return nil, err
	}

	return &Response{
		Filename:    number + ".xml",
		ContentType: "application/xml",
		Body:        []byte(sb.String()),
	}, nil
}

// buildEInvoice maps model and calculation result onto the einvoice
// structures. Seller data comes from the template, buyer data from the
// customer.
func buildEInvoice(m *Model, number string) (*einvoice.Invoice, error) {
	result, err := m.Calculate()
	if err != nil {
		return nil, err
	}
	tpl := m.Template
	if tpl == nil {
		return nil, fmt.Errorf("e-invoice rendering needs a template")
	}
	customer := m.Customer
	if customer == nil {
		return nil, fmt.Errorf("e-invoice rendering needs a customer")
	}

	sellerAddress := splitAddress(tpl.Address)

	zi := &einvoice.Invoice{
		InvoiceNumber:       number,
		InvoiceTypeCode:     380,
		Profile:             einvoice.CProfileEN16931,
		InvoiceDate:         m.InvoiceDate,
		OccurrenceDateTime:  m.InvoiceDate,
		InvoiceCurrencyCode: m.Currency(),
		TaxCurrencyCode:     m.Currency(),
		Notes: []einvoice.Note{{
			Text: tpl.PaymentTerms,
		}},
		Seller: einvoice.Party{
			Name:              tpl.Company,
			VATaxRegistration: tpl.VATID,
			PostalAddress: &einvoice.PostalAddress{
				Line1:     sellerAddress[0],
				Line2:     sellerAddress[1],
				City:      sellerAddress[2],
				CountryID: "DE",
			},
			DefinedTradeContact: []einvoice.DefinedTradeContact{{
				PersonName: tpl.Contact,
			}},
		},
		Buyer: einvoice.Party{
			Name: customer.Name,
			PostalAddress: &einvoice.PostalAddress{
				Line1:        customer.Address1,
				Line2:        customer.Address2,
				City:         customer.City,
				PostcodeCode: customer.ZIP,
				CountryID:    countryID(customer.Country),
			},
			DefinedTradeContact: []einvoice.DefinedTradeContact{{
				PersonName: customer.Contact,
			}},
			VATaxRegistration: customer.VATID,
		},
		PaymentMeans: []einvoice.PaymentMeans{
			{
				TypeCode:                               30,
				PayeePartyCreditorFinancialAccountName: tpl.PaymentDetails,
			},
		},
		SpecifiedTradePaymentTerms: []einvoice.SpecifiedTradePaymentTerms{{
			DueDate: m.DueDate(),
		}},
	}

	for i, row := range result.Rows {
		li := einvoice.InvoiceLine{
			LineID:                   fmt.Sprintf("%d", i+1),
			ItemName:                 row.Description,
			BilledQuantity:           row.Quantity,
			BilledQuantityUnit:       unitCode(row.Type),
			NetPrice:                 row.Rate,
			TaxRateApplicablePercent: result.VAT,
			Total:                    row.Total,
			TaxTypeCode:              "VAT",
			TaxCategoryCode:          "S",
		}
		zi.InvoiceLines = append(zi.InvoiceLines, li)
	}
	zi.UpdateApplicableTradeTax(nil)
	zi.UpdateTotals()

	return zi, nil
}

// countryID returns a two letter alpha code for the given country
func countryID(country string) string {
	c := countries.ByName(country)
	if c == countries.Unknown {
		return "DE" // default
	}
	return c.Alpha2()
}

func unitCode(itemType string) string {
	switch itemType {
	case "timesheet":
		return "HUR" // hours
	case "expense":
		return "C62" // pieces
	default:
		return "LS" // lump sum
	}
}

// splitAddress splits a free-form template address into up to three lines.
func splitAddress(address string) [3]string {
	var out [3]string
	lines := strings.Split(address, "\n")
	idx := 0
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if idx > 2 {
			break
		}
		out[idx] = line
		idx++
	}
	return out
}

var _ Renderer = EInvoiceRenderer{}
