package invoice

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// XLSXRenderer fills ".xlsx" document templates with the invoice data. The
// document is opened as a workbook and cells are written into the first
// sheet: header block on top, one row per invoice line below it.
type XLSXRenderer struct{}

func (XLSXRenderer) Supports(doc Document) bool { return doc.Ext == ".xlsx" }

func (XLSXRenderer) Render(doc Document, m *Model) (*Response, error) {
	result, err := m.Calculate()
	if err != nil {
		return nil, err
	}
	number, err := m.InvoiceNumber()
	if err != nil {
		return nil, err
	}

	f, err := excelize.OpenFile(doc.Path)
	if err != nil {
		return nil, fmt.Errorf("open document %s: %w", doc.Name, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("document %s has no sheets", doc.Name)
	}
	sheet := sheets[0]

	setCell := func(cell string, value any) {
		// best effort, invalid coordinates surface on save
		_ = f.SetCellValue(sheet, cell, value)
	}

	setCell("B1", number)
	setCell("B2", m.InvoiceDate.Format("02.01.2006"))
	setCell("B3", m.DueDate().Format("02.01.2006"))
	if m.Customer != nil {
		setCell("B4", m.Customer.Name)
	}
	if m.Template != nil {
		setCell("B5", m.Template.Company)
	}
	setCell("B6", m.Currency())

	row := 8
	for _, line := range result.Rows {
		setCell(fmt.Sprintf("A%d", row), line.Begin.Format("02.01.2006"))
		setCell(fmt.Sprintf("B%d", row), line.Description)
		qty, _ := line.Quantity.Round(2).Float64()
		rate, _ := line.Rate.Round(2).Float64()
		total, _ := line.Total.Round(2).Float64()
		setCell(fmt.Sprintf("C%d", row), qty)
		setCell(fmt.Sprintf("D%d", row), rate)
		setCell(fmt.Sprintf("E%d", row), total)
		row++
	}

	row++
	net, _ := result.NetTotal.Round(2).Float64()
	tax, _ := result.TaxTotal.Round(2).Float64()
	gross, _ := result.GrossTotal.Round(2).Float64()
	setCell(fmt.Sprintf("D%d", row), "Netto")
	setCell(fmt.Sprintf("E%d", row), net)
	setCell(fmt.Sprintf("D%d", row+1), fmt.Sprintf("USt. %s%%", result.VAT.StringFixed(0)))
	setCell(fmt.Sprintf("E%d", row+1), tax)
	setCell(fmt.Sprintf("D%d", row+2), "Gesamt")
	setCell(fmt.Sprintf("E%d", row+2), gross)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}

	return &Response{
		Filename:    number + ".xlsx",
		ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		Body:        buf.Bytes(),
	}, nil
}

var _ Renderer = XLSXRenderer{}
