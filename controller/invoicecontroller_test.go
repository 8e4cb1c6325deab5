package controller

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/billingcat/timetrack/fixtures"
	"github.com/billingcat/timetrack/model"
	"github.com/labstack/echo/v4"
)

func newQueryContext(t *testing.T, user *model.User, rawQuery string) echo.Context {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/invoice?"+rawQuery, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("user", user)
	return c
}

func newFormContext(t *testing.T, user *model.User, form string) echo.Context {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/invoice", strings.NewReader(form))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("user", user)
	return c
}

func TestBindInvoiceQueryDefaults(t *testing.T) {
	zdb := fixtures.NewTestStore(t)
	data := fixtures.SeedTestData(t, zdb)
	ctrl := &controller{model: zdb}

	query, action, err := ctrl.bindInvoiceQuery(newQueryContext(t, data.User, ""))
	if err != nil {
		t.Fatalf("bindInvoiceQuery failed: %v", err)
	}
	if action != "" {
		t.Errorf("action = %q, want empty", action)
	}
	if query.OwnerID != data.User.OwnerID {
		t.Errorf("OwnerID = %d, want %d", query.OwnerID, data.User.OwnerID)
	}
	if query.Exported != model.StateNotExported {
		t.Errorf("Exported = %v, want not-exported by default", query.Exported)
	}
	if query.State != model.TimesheetStopped {
		t.Errorf("State = %v, running entries must be excluded by default", query.State)
	}
	if query.Order != model.OrderAsc {
		t.Errorf("Order = %q, want ASC", query.Order)
	}
	if query.Begin != nil || query.End != nil {
		t.Errorf("date bounds should stay unset: %v, %v", query.Begin, query.End)
	}
	if query.Customer != nil || query.Template != nil {
		t.Error("customer and template should stay unset")
	}
}

func TestBindInvoiceQueryFilters(t *testing.T) {
	zdb := fixtures.NewTestStore(t)
	data := fixtures.SeedTestData(t, zdb)
	ctrl := &controller{model: zdb}

	c := newFormContext(t, data.User,
		"customer=1&template=1&begin=2026-03-01&end=2026-03-31&exported=all&state=all&order=desc&markexported=true&action=create")
	query, action, err := ctrl.bindInvoiceQuery(c)
	if err != nil {
		t.Fatalf("bindInvoiceQuery failed: %v", err)
	}
	if action != "create" {
		t.Errorf("action = %q, want create", action)
	}
	if query.Customer == nil || query.Customer.ID != data.Customer.ID {
		t.Error("customer not resolved")
	}
	if query.Template == nil || query.Template.ID != data.Template.ID {
		t.Error("template not resolved")
	}
	if query.Begin == nil || !query.Begin.Equal(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Begin = %v", query.Begin)
	}
	if query.End == nil || !query.End.Equal(time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("End = %v", query.End)
	}
	if query.Exported != model.StateAll {
		t.Errorf("Exported = %v, want all", query.Exported)
	}
	if query.State != model.TimesheetAll {
		t.Errorf("State = %v, want all", query.State)
	}
	if query.Order != model.OrderDesc {
		t.Errorf("Order = %q, want DESC", query.Order)
	}
	if !query.MarkAsExported {
		t.Error("MarkAsExported not set")
	}
}

func TestBindInvoiceQueryRejectsInvertedRange(t *testing.T) {
	zdb := fixtures.NewTestStore(t)
	data := fixtures.SeedTestData(t, zdb)
	ctrl := &controller{model: zdb}

	_, _, err := ctrl.bindInvoiceQuery(newQueryContext(t, data.User, "begin=2026-03-31&end=2026-03-01"))
	if err == nil {
		t.Fatal("expected an error when the start date lies after the end date")
	}
}

func TestBindInvoiceQueryUnknownCustomer(t *testing.T) {
	zdb := fixtures.NewTestStore(t)
	data := fixtures.SeedTestData(t, zdb)
	ctrl := &controller{model: zdb}

	_, _, err := ctrl.bindInvoiceQuery(newQueryContext(t, data.User, "customer=4711"))
	if err == nil {
		t.Fatal("expected an error for an unknown customer")
	}
}

func TestBindInvoiceQueryPinsRegularUser(t *testing.T) {
	zdb := fixtures.NewTestStore(t)
	data := fixtures.SeedTestData(t, zdb)
	ctrl := &controller{model: zdb}

	worker, err := zdb.CreateUser("worker@example.com", "Worker", "geheim", model.RoleUser)
	if err != nil {
		t.Fatal(err)
	}

	// a regular user may not query someone else's entries
	query, _, err := ctrl.bindInvoiceQuery(newQueryContext(t, worker, "user=1"))
	if err != nil {
		t.Fatalf("bindInvoiceQuery failed: %v", err)
	}
	if query.User == nil || query.User.ID != worker.ID {
		t.Errorf("query not pinned to the requesting user: %+v", query.User)
	}

	// an admin is free to see everything or pick a user of the same owner
	query, _, err = ctrl.bindInvoiceQuery(newQueryContext(t, data.User, ""))
	if err != nil {
		t.Fatal(err)
	}
	if query.User != nil {
		t.Errorf("admin query should not be pinned, got user %d", query.User.ID)
	}

	query, _, err = ctrl.bindInvoiceQuery(newQueryContext(t, data.User, "user=1"))
	if err != nil {
		t.Fatal(err)
	}
	if query.User == nil || query.User.ID != data.User.ID {
		t.Error("admin could not select a user of the own team")
	}

	// users of a foreign owner are rejected
	foreign := "user=" + strconv.FormatUint(uint64(worker.ID), 10)
	if _, _, err := ctrl.bindInvoiceQuery(newQueryContext(t, data.User, foreign)); err == nil {
		t.Error("expected an error for a user of a foreign owner")
	}
}

func TestInvoiceStatusChangeNeedsHistoryPermission(t *testing.T) {
	zdb := fixtures.NewTestStore(t)
	data := fixtures.SeedTestData(t, zdb)
	ctrl := &controller{model: zdb}

	inv := &model.Invoice{
		Number:     "260301",
		CustomerID: data.Customer.ID,
		Status:     model.InvoiceStatusNew,
		OwnerID:    fixtures.DefaultOwnerID,
	}
	if err := zdb.SaveInvoice(inv, fixtures.DefaultOwnerID); err != nil {
		t.Fatalf("SaveInvoice failed: %v", err)
	}

	// same middleware chain as the registered route
	h := ctrl.requirePermission(model.PermHistoryInvoice)(ctrl.invoiceStatusChange)
	id := strconv.FormatUint(uint64(inv.ID), 10)

	worker := &model.User{Role: model.RoleUser, OwnerID: fixtures.DefaultOwnerID}
	c := newFormContext(t, worker, "status=paid")
	c.SetParamNames("id")
	c.SetParamValues(id)
	c.Set("ownerid", fixtures.DefaultOwnerID)

	err := h(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusForbidden {
		t.Fatalf("err = %v, want a 403 for a user without the history permission", err)
	}
	reloaded, err := zdb.LoadInvoice(inv.ID, fixtures.DefaultOwnerID)
	if err != nil {
		t.Fatal(err)
	}
	if reloaded.Status != model.InvoiceStatusNew {
		t.Fatalf("status changed to %q although the request was rejected", reloaded.Status)
	}

	// an admin passes the gate
	c = newFormContext(t, data.User, "status=paid")
	c.SetParamNames("id")
	c.SetParamValues(id)
	c.Set("ownerid", fixtures.DefaultOwnerID)
	if err := h(c); err != nil {
		t.Fatalf("status change failed for admin: %v", err)
	}
	reloaded, err = zdb.LoadInvoice(inv.ID, fixtures.DefaultOwnerID)
	if err != nil {
		t.Fatal(err)
	}
	if reloaded.Status != model.InvoiceStatusPaid {
		t.Fatalf("status = %q, want paid", reloaded.Status)
	}
}
