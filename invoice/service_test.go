package invoice_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/billingcat/timetrack/fixtures"
	"github.com/billingcat/timetrack/invoice"
	"github.com/billingcat/timetrack/model"
)

// fakeRepo records how often it was queried and returns canned items.
type fakeRepo struct {
	name      string
	items     []model.ExportItem
	queried   int
	lastQuery *model.InvoiceQuery
	exported  []model.ExportItem
}

func (r *fakeRepo) Name() string { return r.name }

func (r *fakeRepo) Matching(query *model.InvoiceQuery) ([]model.ExportItem, error) {
	r.queried++
	r.lastQuery = query
	return r.items, nil
}

func (r *fakeRepo) MarkExported(items []model.ExportItem) error {
	r.exported = append(r.exported, items...)
	return nil
}

func newTestService(repos ...model.InvoiceItemRepository) *invoice.Service {
	svc := invoice.NewService(invoice.NewDocumentRepository(), "")
	for _, r := range repos {
		svc.AddItemRepository(r)
	}
	svc.AddCalculator(invoice.DefaultCalculator{})
	svc.AddCalculator(invoice.ShortCalculator{})
	svc.AddNumberGenerator(invoice.DateNumberGenerator{})
	return svc
}

func TestCollectItemsWithoutCustomer(t *testing.T) {
	repo := &fakeRepo{name: "timesheet"}
	svc := newTestService(repo)

	groups, err := svc.CollectItems(&model.InvoiceQuery{OwnerID: 1}, time.Now())
	if err != nil {
		t.Fatalf("CollectItems failed: %v", err)
	}
	if len(groups) != 0 {
		t.Errorf("groups = %d, want 0", len(groups))
	}
	if repo.queried != 0 {
		t.Errorf("repository was queried %d times, want 0 without a customer", repo.queried)
	}
}

func TestCollectItemsDefaultsToCurrentMonth(t *testing.T) {
	repo := &fakeRepo{name: "timesheet"}
	svc := newTestService(repo)

	now := time.Date(2026, 2, 14, 15, 30, 0, 0, time.UTC)
	query := &model.InvoiceQuery{OwnerID: 1, Customer: fixtures.Customer()}
	if _, err := svc.CollectItems(query, now); err != nil {
		t.Fatalf("CollectItems failed: %v", err)
	}

	wantBegin := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	wantEnd := time.Date(2026, 2, 28, 23, 59, 59, 0, time.UTC)
	if query.Begin == nil || !query.Begin.Equal(wantBegin) {
		t.Errorf("Begin = %v, want %v", query.Begin, wantBegin)
	}
	if query.End == nil || !query.End.Equal(wantEnd) {
		t.Errorf("End = %v, want %v", query.End, wantEnd)
	}
}

func TestCollectItemsWidensExplicitRange(t *testing.T) {
	repo := &fakeRepo{name: "timesheet"}
	svc := newTestService(repo)

	begin := time.Date(2026, 3, 10, 11, 45, 0, 0, time.UTC)
	end := time.Date(2026, 3, 12, 8, 15, 0, 0, time.UTC)
	query := &model.InvoiceQuery{
		OwnerID:  1,
		Customer: fixtures.Customer(),
		Begin:    &begin,
		End:      &end,
	}
	if _, err := svc.CollectItems(query, time.Now()); err != nil {
		t.Fatalf("CollectItems failed: %v", err)
	}

	if got := repo.lastQuery.Begin; got.Hour() != 0 || got.Minute() != 0 || got.Second() != 0 {
		t.Errorf("Begin not widened to start of day: %v", got)
	}
	if got := repo.lastQuery.End; got.Hour() != 23 || got.Minute() != 59 || got.Second() != 59 {
		t.Errorf("End not widened to end of day: %v", got)
	}
}

func TestCollectItemsGroupsPerRepository(t *testing.T) {
	sheets := &fakeRepo{name: "timesheet", items: []model.ExportItem{
		fixtures.Timesheet(1),
		fixtures.Timesheet(1),
	}}
	expenses := &fakeRepo{name: "expense", items: []model.ExportItem{
		fixtures.Expense(1),
	}}
	svc := newTestService(sheets, expenses)

	query := &model.InvoiceQuery{OwnerID: 1, Customer: fixtures.Customer()}
	groups, err := svc.CollectItems(query, time.Now())
	if err != nil {
		t.Fatalf("CollectItems failed: %v", err)
	}

	if len(groups) != 2 {
		t.Fatalf("groups = %d, want 2", len(groups))
	}
	if groups[0].Repository != model.InvoiceItemRepository(sheets) || len(groups[0].Items) != 2 {
		t.Errorf("group 0 should hold the 2 timesheet items of the timesheet repository")
	}
	if groups[1].Repository != model.InvoiceItemRepository(expenses) || len(groups[1].Items) != 1 {
		t.Errorf("group 1 should hold the 1 expense item of the expense repository")
	}
	if got := len(invoice.FlattenItems(groups)); got != 3 {
		t.Errorf("FlattenItems = %d items, want 3", got)
	}
}

func TestMarkExportedRoutesToOwningRepository(t *testing.T) {
	sheets := &fakeRepo{name: "timesheet", items: []model.ExportItem{fixtures.Timesheet(1)}}
	expenses := &fakeRepo{name: "expense", items: []model.ExportItem{fixtures.Expense(1)}}
	svc := newTestService(sheets, expenses)

	query := &model.InvoiceQuery{OwnerID: 1, Customer: fixtures.Customer()}
	groups, err := svc.CollectItems(query, time.Now())
	if err != nil {
		t.Fatalf("CollectItems failed: %v", err)
	}
	if err := svc.MarkExported(groups); err != nil {
		t.Fatalf("MarkExported failed: %v", err)
	}
	if len(sheets.exported) != 1 {
		t.Errorf("timesheet repo marked %d items, want 1", len(sheets.exported))
	}
	if len(expenses.exported) != 1 {
		t.Errorf("expense repo marked %d items, want 1", len(expenses.exported))
	}
}

func TestPrepareModelUnknownGenerator(t *testing.T) {
	svc := newTestService()
	query := &model.InvoiceQuery{
		OwnerID:  1,
		Customer: fixtures.Customer(),
		Template: fixtures.Template(fixtures.WithTemplateNumberGenerator("bogus")),
	}
	if _, err := svc.PrepareModel(time.Now(), query, nil); err == nil {
		t.Fatal("expected error for unknown number generator, got nil")
	}
}

func TestPrepareModelUnknownCalculator(t *testing.T) {
	svc := newTestService()
	query := &model.InvoiceQuery{
		OwnerID:  1,
		Customer: fixtures.Customer(),
		Template: fixtures.Template(fixtures.WithTemplateCalculator("bogus")),
	}
	if _, err := svc.PrepareModel(time.Now(), query, nil); err == nil {
		t.Fatal("expected error for unknown calculator, got nil")
	}
}

func TestPrepareModelResolvesByName(t *testing.T) {
	svc := newTestService()
	query := &model.InvoiceQuery{
		OwnerID:  1,
		Customer: fixtures.Customer(),
		Template: fixtures.Template(fixtures.WithTemplateCalculator("short")),
	}
	m, err := svc.PrepareModel(time.Now(), query, nil)
	if err != nil {
		t.Fatalf("PrepareModel failed: %v", err)
	}
	if m.Calculator.Name() != "short" {
		t.Errorf("Calculator = %q, want %q", m.Calculator.Name(), "short")
	}
	if m.NumberGenerator.Name() != "default" {
		t.Errorf("NumberGenerator = %q, want %q", m.NumberGenerator.Name(), "default")
	}
	if m.Customer != query.Customer {
		t.Error("model customer should be taken from the query")
	}
}

func TestRendererForFirstMatchWins(t *testing.T) {
	svc := invoice.NewService(invoice.NewDocumentRepository(), "")
	svc.AddRenderer(invoice.HTMLRenderer{})
	svc.AddRenderer(invoice.CSVRenderer{})

	doc := invoice.Document{Name: "invoice", Ext: ".html"}
	r, ok := svc.RendererFor(doc)
	if !ok {
		t.Fatal("no renderer found for .html document")
	}
	if _, isHTML := r.(invoice.HTMLRenderer); !isHTML {
		t.Errorf("renderer = %T, want HTMLRenderer", r)
	}

	if _, ok := svc.RendererFor(invoice.Document{Name: "invoice", Ext: ".docx"}); ok {
		t.Error("expected no renderer for unsupported extension")
	}
}

func TestSaveGeneratedInvoice(t *testing.T) {
	dir := t.TempDir()
	svc := invoice.NewService(invoice.NewDocumentRepository(), filepath.Join(dir, "invoices"))

	ev := invoice.PostRenderEvent{
		Response: &invoice.Response{
			Filename:    "RE-2026-0001.html",
			ContentType: "text/html",
			Body:        []byte("<html></html>"),
		},
	}
	filename, err := svc.SaveGeneratedInvoice(ev)
	if err != nil {
		t.Fatalf("SaveGeneratedInvoice failed: %v", err)
	}
	if filename != "RE-2026-0001.html" {
		t.Errorf("filename = %q, want %q", filename, "RE-2026-0001.html")
	}
	if _, err := os.Stat(filepath.Join(dir, "invoices", filename)); err != nil {
		t.Errorf("stored file missing: %v", err)
	}

	// a second invoice with the same number must not overwrite the first
	second, err := svc.SaveGeneratedInvoice(ev)
	if err != nil {
		t.Fatalf("second SaveGeneratedInvoice failed: %v", err)
	}
	if second == filename {
		t.Errorf("second filename %q collides with the first", second)
	}
}

func TestRenderEvents(t *testing.T) {
	svc := newTestService()

	var pre, post int
	svc.OnPreRender(func(ev invoice.PreRenderEvent) { pre++ })
	svc.OnPostRender(func(ev invoice.PostRenderEvent) { post++ })

	svc.FirePreRender(invoice.PreRenderEvent{})
	svc.FirePostRender(invoice.PostRenderEvent{})
	svc.FirePostRender(invoice.PostRenderEvent{})

	if pre != 1 || post != 2 {
		t.Errorf("listener calls = %d/%d, want 1/2", pre, post)
	}
}
