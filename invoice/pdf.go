package invoice

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	api "github.com/speedata/publisher-api"
)

// PDFRenderer renders ".layout" documents to PDF through the speedata
// publishing server. The invoice data travels as ZUGFeRD XML (data.xml),
// the document file is the layout.
type PDFRenderer struct {
	Address  string
	Username string
	Logger   *slog.Logger
}

func (r PDFRenderer) Supports(doc Document) bool { return doc.Ext == ".layout" }

func (r PDFRenderer) Render(doc Document, m *Model) (*Response, error) {
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

	ep, err := api.NewEndpoint(r.Username, r.Address)
	if err != nil {
		return nil, err
	}
	p := ep.NewPublishRequest()
	p.Version = "5.1.25"
	p.Files = append(p.Files, api.PublishFile{Filename: "data.xml", Contents: []byte(sb.String())})

	layout, err := os.ReadFile(doc.Path)
	if err != nil {
		return nil, fmt.Errorf("read layout %s: %w", doc.Name, err)
	}
	p.Files = append(p.Files, api.PublishFile{Filename: "layout.xml", Contents: layout})

	resp, err := ep.Publish(p)
	if err != nil {
		return nil, err
	}
	ps, err := resp.Wait()
	if err != nil {
		return nil, err
	}
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if ps.Errors > 0 {
		logger.Error("PDF generation done", "errors", ps.Errors, "finishedAt", ps.Finished.Format(time.Stamp))
		for _, e := range ps.Errormessages {
			logger.Error("error during PDF generation", "message", e.Error)
		}
		return nil, fmt.Errorf("PDF generation failed with %d errors", ps.Errors)
	}
	logger.Debug("PDF generation done", "finishedAt", ps.Finished.Format(time.Stamp))

	var buf bytes.Buffer
	if err := resp.GetPDF(&buf); err != nil {
		return nil, err
	}

	return &Response{
		Filename:    number + ".pdf",
		ContentType: "application/pdf",
		Body:        buf.Bytes(),
	}, nil
}

var _ Renderer = PDFRenderer{}
