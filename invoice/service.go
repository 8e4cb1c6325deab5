package invoice

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/billingcat/timetrack/model"
)

// ItemGroup pairs collected items with the repository they came from, so
// export-marking can be routed back to the right source.
type ItemGroup struct {
	Repository model.InvoiceItemRepository
	Items      []model.ExportItem
}

// PreRenderEvent is fired after a renderer has been chosen and before it
// runs. Listeners may not alter the control flow.
type PreRenderEvent struct {
	Model    *Model
	Document Document
	Renderer Renderer
}

// PostRenderEvent is fired after rendering; on "create" requests it carries
// the response that is about to be persisted.
type PostRenderEvent struct {
	Model    *Model
	Document Document
	Renderer Renderer
	Response *Response
}

type PreRenderListener func(PreRenderEvent)
type PostRenderListener func(PostRenderEvent)

// Service bundles the registries of the invoice pipeline: item sources,
// renderers, calculators, number generators and the document repository.
// Registries are populated once at startup; lookups report absence instead
// of failing hard.
type Service struct {
	repositories []model.InvoiceItemRepository
	renderers    []Renderer
	calculators  map[string]Calculator
	generators   map[string]NumberGenerator
	documents    *DocumentRepository
	invoiceDir   string
	preRender    []PreRenderListener
	postRender   []PostRenderListener
}

func NewService(documents *DocumentRepository, invoiceDir string) *Service {
	return &Service{
		calculators: map[string]Calculator{},
		generators:  map[string]NumberGenerator{},
		documents:   documents,
		invoiceDir:  invoiceDir,
	}
}

func (s *Service) AddItemRepository(r model.InvoiceItemRepository) {
	s.repositories = append(s.repositories, r)
}

func (s *Service) AddRenderer(r Renderer) {
	s.renderers = append(s.renderers, r)
}

func (s *Service) AddCalculator(c Calculator) {
	s.calculators[c.Name()] = c
}

func (s *Service) AddNumberGenerator(g NumberGenerator) {
	s.generators[g.Name()] = g
}

func (s *Service) OnPreRender(l PreRenderListener) {
	s.preRender = append(s.preRender, l)
}

func (s *Service) OnPostRender(l PostRenderListener) {
	s.postRender = append(s.postRender, l)
}

func (s *Service) Documents() *DocumentRepository { return s.documents }

// CollectItems asks every registered item repository for billable items
// matching the query. Without a customer no repository is queried and the
// result is empty: the customer is a precondition (it resolves the
// currency), not an error. Begin and end default to the current month and
// are widened to full calendar days.
func (s *Service) CollectItems(query *model.InvoiceQuery, now time.Time) ([]ItemGroup, error) {
	if query.Customer == nil {
		return nil, nil
	}

	if query.Begin == nil {
		b := firstDayOfMonth(now)
		query.Begin = &b
	}
	if query.End == nil {
		e := lastDayOfMonth(now)
		query.End = &e
	}
	query.NormalizeDayRange()

	var groups []ItemGroup
	for _, repo := range s.repositories {
		items, err := repo.Matching(query)
		if err != nil {
			return nil, fmt.Errorf("collect items from %s: %w", repo.Name(), err)
		}
		groups = append(groups, ItemGroup{Repository: repo, Items: items})
	}
	return groups, nil
}

// FlattenItems merges the grouped items into one slice, for previews.
func FlattenItems(groups []ItemGroup) []model.ExportItem {
	var items []model.ExportItem
	for _, g := range groups {
		items = append(items, g.Items...)
	}
	return items
}

// PrepareModel builds the transient invoice model for the query. An unknown
// calculator or number generator means a broken template configuration and
// aborts the render.
func (s *Service) PrepareModel(now time.Time, query *model.InvoiceQuery, user *model.User) (*Model, error) {
	m := &Model{
		InvoiceDate: now,
		Query:       query,
		User:        user,
		Customer:    query.Customer,
	}

	if query.Template != nil {
		generator, ok := s.generators[query.Template.NumberGenerator]
		if !ok {
			return nil, fmt.Errorf("unknown number generator: %s", query.Template.NumberGenerator)
		}
		calculator, ok := s.calculators[query.Template.Calculator]
		if !ok {
			return nil, fmt.Errorf("unknown invoice calculator: %s", query.Template.Calculator)
		}
		m.Template = query.Template
		m.Calculator = calculator
		m.NumberGenerator = generator
	}

	return m, nil
}

// RendererFor returns the first registered renderer that supports the
// document. Selection is deterministic: registration order decides.
func (s *Service) RendererFor(doc Document) (Renderer, bool) {
	for _, r := range s.renderers {
		if r.Supports(doc) {
			return r, true
		}
	}
	return nil, false
}

// MarkExported flags every collected item as exported through its
// originating repository.
func (s *Service) MarkExported(groups []ItemGroup) error {
	for _, g := range groups {
		if len(g.Items) == 0 {
			continue
		}
		if err := g.Repository.MarkExported(g.Items); err != nil {
			return fmt.Errorf("mark exported in %s: %w", g.Repository.Name(), err)
		}
	}
	return nil
}

func (s *Service) FirePreRender(ev PreRenderEvent) {
	for _, l := range s.preRender {
		l(ev)
	}
}

func (s *Service) FirePostRender(ev PostRenderEvent) {
	for _, l := range s.postRender {
		l(ev)
	}
}

// SaveGeneratedInvoice writes the rendered document into the invoice
// directory and returns the stored filename.
func (s *Service) SaveGeneratedInvoice(ev PostRenderEvent) (string, error) {
	if ev.Response == nil {
		return "", fmt.Errorf("no rendered response to save")
	}
	if err := os.MkdirAll(s.invoiceDir, 0755); err != nil {
		return "", err
	}
	filename := ev.Response.Filename
	target := filepath.Join(s.invoiceDir, filename)
	// never overwrite an earlier invoice with the same number
	if _, err := os.Stat(target); err == nil {
		filename = fmt.Sprintf("%s_%s%s",
			trimExt(ev.Response.Filename),
			time.Now().Format("150405"),
			filepath.Ext(ev.Response.Filename))
		target = filepath.Join(s.invoiceDir, filename)
	}
	if err := os.WriteFile(target, ev.Response.Body, 0644); err != nil {
		return "", err
	}
	return filename, nil
}

// InvoiceFile returns the absolute path of the stored file for an invoice
// record, or an error when the file is gone.
func (s *Service) InvoiceFile(inv *model.Invoice) (string, error) {
	if inv.Filename == "" {
		return "", fmt.Errorf("invoice %d has no file", inv.ID)
	}
	path := filepath.Join(s.invoiceDir, filepath.Base(inv.Filename))
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("invoice file %q not found: %w", inv.Filename, err)
	}
	return path, nil
}

func trimExt(name string) string {
	return name[:len(name)-len(filepath.Ext(name))]
}

func firstDayOfMonth(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
}

func lastDayOfMonth(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month()+1, 0, 0, 0, 0, 0, now.Location())
}
