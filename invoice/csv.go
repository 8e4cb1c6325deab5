package invoice

import (
	"bytes"
	"encoding/csv"
)

// CSVRenderer renders ".csv" documents. The document file itself only
// selects the renderer; the column set is fixed. Semicolon delimiter and a
// UTF-8 BOM keep the output compatible with spreadsheet applications.
type CSVRenderer struct{}

func (CSVRenderer) Supports(doc Document) bool { return doc.Ext == ".csv" }

func (CSVRenderer) Render(doc Document, m *Model) (*Response, error) {
	result, err := m.Calculate()
	if err != nil {
		return nil, err
	}
	number, err := m.InvoiceNumber()
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.Write([]byte{0xEF, 0xBB, 0xBF})

	w := csv.NewWriter(&buf)
	w.Comma = ';'

	if err := w.Write([]string{"Datum", "Beschreibung", "Menge", "Satz", "Betrag"}); err != nil {
		return nil, err
	}
	for _, row := range result.Rows {
		record := []string{
			formatDate(row.Begin),
			row.Description,
			formatQuantity(row.Quantity),
			row.Rate.Round(2).StringFixed(2),
			row.Total.Round(2).StringFixed(2),
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	if err := w.Write([]string{"", "Netto", "", "", result.NetTotal.Round(2).StringFixed(2)}); err != nil {
		return nil, err
	}
	if err := w.Write([]string{"", "USt. " + result.VAT.StringFixed(0) + "%", "", "", result.TaxTotal.Round(2).StringFixed(2)}); err != nil {
		return nil, err
	}
	if err := w.Write([]string{"", "Gesamt", "", "", result.GrossTotal.Round(2).StringFixed(2)}); err != nil {
		return nil, err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}

	return &Response{
		Filename:    number + ".csv",
		ContentType: "text/csv; charset=utf-8",
		Body:        buf.Bytes(),
	}, nil
}

var _ Renderer = CSVRenderer{}
