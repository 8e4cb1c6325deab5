package controller

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/billingcat/timetrack/invoice"
	"github.com/billingcat/timetrack/model"

	"github.com/go-playground/form/v4"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

func (ctrl *controller) invoiceInit(e *echo.Echo) {
	g := e.Group("/invoice")
	g.Use(ctrl.authMiddleware)
	g.Use(ctrl.requirePermission(model.PermViewInvoice))
	g.GET("", ctrl.invoiceIndex)
	g.POST("", ctrl.invoiceIndex)
	g.GET("/download/:id", ctrl.invoiceDownload)
	g.GET("/pagepreview/:id", ctrl.invoicePagePreview)
	g.POST("/status/:id", ctrl.invoiceStatusChange, ctrl.requirePermission(model.PermHistoryInvoice))
	lg := e.Group("/invoices", ctrl.authMiddleware, ctrl.requirePermission(model.PermHistoryInvoice))
	lg.GET("", ctrl.invoiceList)
}

// toolbar carries the filter form of the invoice screen.
type toolbar struct {
	CustomerID   uint      `form:"customer"`
	TemplateID   uint      `form:"template"`
	UserID       uint      `form:"user"`
	Begin        time.Time `form:"begin"`
	End          time.Time `form:"end"`
	Exported     string    `form:"exported"`
	State        string    `form:"state"`
	Order        string    `form:"order"`
	MarkExported bool      `form:"markexported"`
	Action       string    `form:"action"` // "" | "preview" | "print" | "create"
}

// bindInvoiceQuery decodes the toolbar form and resolves customer, template
// and user references into a query. Users without the permission to see
// other timesheets are always pinned to their own entries.
func (ctrl *controller) bindInvoiceQuery(c echo.Context) (*model.InvoiceQuery, string, error) {
	user := currentUser(c)
	tb := toolbar{}
	dec := form.NewDecoder()
	dec.RegisterCustomTypeFunc(func(vals []string) (interface{}, error) {
		if vals[0] == "" {
			return time.Time{}, nil
		}
		return time.Parse("2006-01-02", vals[0])
	}, time.Time{})
	if err := c.Request().ParseForm(); err != nil {
		return nil, "", err
	}
	values := c.Request().Form
	if c.Request().Method == http.MethodGet {
		values = c.Request().URL.Query()
	}
	if err := dec.Decode(&tb, values); err != nil {
		return nil, "", err
	}

	query := &model.InvoiceQuery{
		Order:          model.OrderAsc,
		MarkAsExported: tb.MarkExported,
		OwnerID:        user.OwnerID,
	}
	if strings.EqualFold(tb.Order, model.OrderDesc) {
		query.Order = model.OrderDesc
	}
	if !tb.Begin.IsZero() {
		b := tb.Begin
		query.Begin = &b
	}
	if !tb.End.IsZero() {
		e := tb.End
		query.End = &e
	}
	if query.Begin != nil && query.End != nil && query.Begin.After(*query.End) {
		return nil, "", ErrInvalid(nil, "Das Startdatum liegt nach dem Enddatum")
	}
	switch tb.Exported {
	case "exported":
		query.Exported = model.StateExported
	case "all":
		query.Exported = model.StateAll
	default:
		query.Exported = model.StateNotExported
	}
	if tb.State != "all" {
		query.State = model.TimesheetStopped
	}

	if tb.CustomerID != 0 {
		customer, err := ctrl.model.LoadCustomer(tb.CustomerID, user.OwnerID)
		if err != nil {
			return nil, "", ErrInvalid(err, "Kann Kunden nicht laden")
		}
		query.Customer = customer
	}
	if tb.TemplateID != 0 {
		tmpl, err := ctrl.model.LoadTemplate(tb.TemplateID, user.OwnerID)
		if err != nil {
			return nil, "", ErrInvalid(err, "Kann Rechnungsvorlage nicht laden")
		}
		query.Template = tmpl
	}

	if user.Can(model.PermViewOtherTimes) {
		if tb.UserID != 0 {
			queryUser, err := ctrl.model.GetUserByID(tb.UserID)
			if err != nil || queryUser.OwnerID != user.OwnerID {
				return nil, "", ErrInvalid(err, "Kann Benutzer nicht laden")
			}
			query.User = queryUser
		}
	} else {
		query.User = user
	}

	return query, tb.Action, nil
}

func (ctrl *controller) invoiceIndex(c echo.Context) error {
	query, action, err := ctrl.bindInvoiceQuery(c)
	if err != nil {
		return err
	}

	groups, err := ctrl.invoices.CollectItems(query, time.Now())
	if err != nil {
		return ErrInvalid(err, "Fehler beim Sammeln der abrechenbaren Einträge")
	}

	switch action {
	case "print":
		return ctrl.renderInvoice(c, query, groups, false)
	case "create":
		return ctrl.renderInvoice(c, query, groups, true)
	}

	// Vorschau: Einträge nur anzeigen, nichts rendern
	m := ctrl.defaultResponseMap(c, "Rechnung erstellen")
	items := invoice.FlattenItems(groups)

	var sum decimal.Decimal
	for _, it := range items {
		sum = sum.Add(it.ItemTotal())
	}

	customers, err := ctrl.model.ListCustomers(query.OwnerID)
	if err != nil {
		return ErrInvalid(err, "Fehler beim Laden der Kunden")
	}
	templates, err := ctrl.model.ListTemplates(query.OwnerID)
	if err != nil {
		return ErrInvalid(err, "Fehler beim Laden der Rechnungsvorlagen")
	}
	if len(templates) == 0 {
		_ = AddFlash(c, "warning", "Es ist noch keine Rechnungsvorlage angelegt.")
	}

	m["items"] = items
	m["sum"] = sum.Round(2).StringFixed(2)
	m["customers"] = customers
	m["templates"] = templates
	m["documents"] = ctrl.invoices.Documents().All()
	m["query"] = query
	return c.Render(http.StatusOK, "invoiceindex.html", m)
}

// renderInvoice runs the full pipeline for the query: resolve document and
// renderer, build the model, render. With save the generated file is stored,
// the billed items are flagged as exported and an invoice record is written;
// without it the result is streamed to the browser and nothing changes.
func (ctrl *controller) renderInvoice(c echo.Context, query *model.InvoiceQuery, groups []invoice.ItemGroup, save bool) error {
	user := currentUser(c)
	if save && !user.Can(model.PermCreateInvoice) {
		return echo.NewHTTPError(http.StatusForbidden, "Dafür fehlt die Berechtigung.")
	}
	if query.Customer == nil {
		return ErrInvalid(fmt.Errorf("no customer selected"), "Bitte zuerst einen Kunden auswählen")
	}
	if query.Template == nil {
		return ErrInvalid(fmt.Errorf("no template selected"), "Bitte zuerst eine Rechnungsvorlage auswählen")
	}

	doc, ok := ctrl.invoices.Documents().ByName(query.Template.Renderer)
	if !ok {
		return ErrNotFound(fmt.Errorf("invoice document %q not found", query.Template.Renderer))
	}
	renderer, ok := ctrl.invoices.RendererFor(doc)
	if !ok {
		return ErrNotFound(fmt.Errorf("no renderer supports document %q", doc.Name+doc.Ext))
	}

	m, err := ctrl.invoices.PrepareModel(time.Now(), query, user)
	if err != nil {
		return ErrInvalid(err, "Die Rechnungsvorlage ist fehlerhaft konfiguriert")
	}
	m.AddItems(invoice.FlattenItems(groups))

	ctrl.invoices.FirePreRender(invoice.PreRenderEvent{Model: m, Document: doc, Renderer: renderer})

	resp, err := renderer.Render(doc, m)
	if err != nil {
		return ErrInvalid(err, "Fehler beim Erstellen der Rechnung")
	}

	if !save {
		c.Response().Header().Set(echo.HeaderContentDisposition,
			fmt.Sprintf(`attachment; filename="%s"`, resp.Filename))
		return c.Blob(http.StatusOK, resp.ContentType, resp.Body)
	}

	if query.MarkAsExported {
		if err := ctrl.invoices.MarkExported(groups); err != nil {
			return ErrInvalid(err, "Fehler beim Markieren der Einträge als abgerechnet")
		}
	}

	ev := invoice.PostRenderEvent{Model: m, Document: doc, Renderer: renderer, Response: resp}
	ctrl.invoices.FirePostRender(ev)

	filename, err := ctrl.invoices.SaveGeneratedInvoice(ev)
	if err != nil {
		return ErrInternal(fmt.Errorf("cannot store generated invoice: %w", err))
	}

	number, err := m.InvoiceNumber()
	if err != nil {
		return ErrInvalid(err, "Fehler beim Erzeugen der Rechnungsnummer")
	}
	result, err := m.Calculate()
	if err != nil {
		return ErrInvalid(err, "Fehler beim Berechnen der Rechnungssummen")
	}

	record := &model.Invoice{
		Number:       number,
		Counter:      m.Counter(),
		CustomerID:   query.Customer.ID,
		CustomerName: query.Customer.Name,
		UserID:       user.ID,
		TemplateName: query.Template.Name,
		Date:         m.InvoiceDate,
		DueDate:      m.DueDate(),
		Currency:     m.Currency(),
		NetTotal:     result.NetTotal,
		TaxTotal:     result.TaxTotal,
		GrossTotal:   result.GrossTotal,
		VAT:          result.VAT,
		Filename:     filename,
		Status:       model.InvoiceStatusNew,
		OwnerID:      query.OwnerID,
	}
	if err := ctrl.model.SaveInvoice(record, query.OwnerID); err != nil {
		return ErrInvalid(err, "Fehler beim Speichern der Rechnung")
	}

	if user.Can(model.PermHistoryInvoice) {
		_ = AddFlash(c, "success", "Rechnung "+number+" wurde erstellt.")
		return c.Redirect(http.StatusSeeOther, "/invoices")
	}
	// Without access to the invoice list the creator gets the file right away.
	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename="%s"`, filepath.Base(filename)))
	return c.Blob(http.StatusOK, resp.ContentType, resp.Body)
}

func (ctrl *controller) invoiceDownload(c echo.Context) error {
	ownerID := c.Get("ownerid").(uint)
	inv, err := ctrl.model.LoadInvoice(c.Param("id"), ownerID)
	if err != nil {
		return ErrNotFound(err)
	}
	path, err := ctrl.invoices.InvoiceFile(inv)
	if err != nil {
		return ErrNotFound(err)
	}
	return c.Attachment(path, filepath.Base(path))
}

// invoicePagePreview renders the first page of a stored PDF invoice as PNG,
// for the thumbnail in the history view.
func (ctrl *controller) invoicePagePreview(c echo.Context) error {
	ownerID := c.Get("ownerid").(uint)
	inv, err := ctrl.model.LoadInvoice(c.Param("id"), ownerID)
	if err != nil {
		return ErrNotFound(err)
	}
	path, err := ctrl.invoices.InvoiceFile(inv)
	if err != nil {
		return ErrNotFound(err)
	}
	if strings.ToLower(filepath.Ext(path)) != ".pdf" {
		return echo.NewHTTPError(http.StatusBadRequest, "Vorschau gibt es nur für PDF-Rechnungen")
	}
	png, err := renderPDFPageToPNG(path, 0, 144)
	if err != nil {
		return ErrInternal(fmt.Errorf("cannot render preview: %w", err))
	}
	return c.Blob(http.StatusOK, "image/png", png)
}

func (ctrl *controller) invoiceStatusChange(c echo.Context) error {
	ownerID := c.Get("ownerid").(uint)

	idStr := c.Param("id")
	id64, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil || id64 == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid invoice id")
	}
	invoiceID := uint(id64)

	desired := strings.TrimSpace(c.FormValue("status"))
	if desired == "" {
		// fallback: allow JSON too
		var payload struct {
			Status string `json:"status"`
		}
		if bindErr := c.Bind(&payload); bindErr == nil && payload.Status != "" {
			desired = payload.Status
		}
	}
	// unbekannter Statusname verhält sich wie eine unbekannte Route
	dest, ok := model.ParseInvoiceStatus(desired)
	if !ok {
		return ErrNotFound(fmt.Errorf("unknown invoice status %q", desired))
	}

	if err := ctrl.model.SetInvoiceStatus(invoiceID, ownerID, dest, time.Now()); err != nil {
		return ErrNotFound(err)
	}

	inv, loadErr := ctrl.model.LoadInvoice(invoiceID, ownerID)
	if loadErr != nil {
		return c.NoContent(http.StatusNoContent) // still ok – UI bleibt konsistent
	}

	type resp struct {
		Status string  `json:"status"`
		PaidAt *string `json:"paid_at"`
	}
	var paidAt *string
	if inv.PaidAt != nil {
		s := inv.PaidAt.Format("02.01.2006")
		paidAt = &s
	}
	return c.JSON(http.StatusOK, resp{Status: string(inv.Status), PaidAt: paidAt})
}

func (ctrl *controller) invoiceList(c echo.Context) error {
	ownerID := c.Get("ownerid").(uint)
	title := "Rechnungen"
	status := strings.ToLower(c.QueryParam("status"))
	format := strings.ToLower(c.QueryParam("format"))

	// --- Status mapping (affects title and DB filter) ---
	var statuses []model.InvoiceStatus
	switch status {
	case "new":
		title = "Neue Rechnungen"
		statuses = []model.InvoiceStatus{model.InvoiceStatusNew}
	case "pending":
		title = "Offene Rechnungen"
		statuses = []model.InvoiceStatus{model.InvoiceStatusPending}
	case "paid":
		title = "Bezahlte Rechnungen"
		statuses = []model.InvoiceStatus{model.InvoiceStatusPaid}
	default:
		title = "Alle Rechnungen"
		// no status filter
	}

	// --- Optional customer filter ---
	var customerID *uint
	if cid := c.QueryParam("customer_id"); cid != "" {
		if v, err := strconv.ParseUint(cid, 10, 64); err == nil {
			tmp := uint(v)
			customerID = &tmp
		}
	}

	// --- Sorting ---
	order := "date desc, id desc"
	switch strings.ToLower(c.QueryParam("sort")) {
	case "date_asc":
		order = "date asc, id asc"
	case "due_asc":
		order = "due_date asc, id asc"
	case "due_desc":
		order = "due_date desc, id desc"
	case "total_asc":
		order = "gross_total asc, id asc"
	case "total_desc":
		order = "gross_total desc, id desc"
	}

	// --- Pagination ---
	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(c.QueryParam("page_size"))
	if pageSize < 1 || pageSize > 200 {
		pageSize = 50
	}
	offset := (page - 1) * pageSize

	rows, total, err := ctrl.model.FindInvoices(ownerID, statuses, customerID, pageSize, offset, order)
	if err != nil {
		return ErrInternal(fmt.Errorf("invoice query failed: %w", err))
	}

	var sumNet decimal.Decimal
	var sumGross decimal.Decimal
	for _, r := range rows {
		sumNet = sumNet.Add(r.NetTotal)
		sumGross = sumGross.Add(r.GrossTotal)
	}

	// --- JSON output ---
	if format == "json" || strings.Contains(c.Request().Header.Get("Accept"), "application/json") {
		type item struct {
			ID         uint                `json:"id"`
			CustomerID uint                `json:"customer_id"`
			Customer   string              `json:"customer"`
			Number     string              `json:"number"`
			Date       string              `json:"date"`
			DueDate    string              `json:"due_date"`
			Status     model.InvoiceStatus `json:"status"`
			GrossTotal string              `json:"gross_total"`
		}
		out := make([]item, 0, len(rows))
		for _, r := range rows {
			out = append(out, item{
				ID:         r.ID,
				CustomerID: r.CustomerID,
				Customer:   r.CustomerName,
				Number:     r.Number,
				Date:       r.Date.Format("02.01.2006"),
				DueDate:    r.DueDate.Format("02.01.2006"),
				Status:     r.Status,
				GrossTotal: r.GrossTotal.Round(2).StringFixed(2),
			})
		}
		return c.JSON(http.StatusOK, map[string]any{
			"total": total, "page": page, "page_size": pageSize, "items": out,
		})
	}

	m := ctrl.defaultResponseMap(c, title)
	m["sumNet"] = sumNet.StringFixed(2)
	m["sumGross"] = sumGross.StringFixed(2)
	m["invoices"] = rows
	m["total"] = total
	m["page"] = page
	m["page_size"] = pageSize
	m["isViewActive"] = (status == "pending")
	return c.Render(http.StatusOK, "invoicelist.html", m)
}
