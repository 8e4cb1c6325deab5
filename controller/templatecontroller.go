package controller

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/billingcat/timetrack/model"

	"github.com/go-playground/form/v4"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

func (ctrl *controller) templateInit(e *echo.Echo) {
	g := e.Group("/invoice/template")
	g.Use(ctrl.authMiddleware)
	g.Use(ctrl.requirePermission(model.PermManageTemplate))
	g.GET("", ctrl.templateList)
	g.GET("/new", ctrl.templateEdit)
	g.POST("/new", ctrl.templateEdit)
	g.GET("/edit/:id", ctrl.templateEdit)
	g.POST("/edit/:id", ctrl.templateEdit)
	g.GET("/copy/:id", ctrl.templateCopy)
	g.DELETE("/delete/:id", ctrl.templateDelete)
}

// templateForm mirrors the editable fields of an invoice template.
type templateForm struct {
	Name            string          `form:"name"`
	Title           string          `form:"title"`
	Company         string          `form:"company"`
	VATID           string          `form:"vatid"`
	Address         string          `form:"address"`
	Contact         string          `form:"contact"`
	DueDays         int             `form:"duedays"`
	VAT             decimal.Decimal `form:"vat"`
	Calculator      string          `form:"calculator"`
	NumberGenerator string          `form:"numbergenerator"`
	NumberPattern   string          `form:"numberpattern"`
	Renderer        string          `form:"renderer"`
	PaymentTerms    string          `form:"paymentterms"`
	PaymentDetails  string          `form:"paymentdetails"`
}

func bindTemplate(c echo.Context) (*model.InvoiceTemplate, error) {
	ownerID := c.Get("ownerid").(uint)
	tf := templateForm{}
	dec := form.NewDecoder()
	dec.RegisterCustomTypeFunc(func(vals []string) (interface{}, error) {
		if vals[0] == "" {
			return decimal.Zero, nil
		}
		return decimal.NewFromString(vals[0])
	}, decimal.Decimal{})
	if err := c.Request().ParseForm(); err != nil {
		return nil, err
	}
	if err := dec.Decode(&tf, c.Request().Form); err != nil {
		return nil, err
	}
	if tf.Name == "" {
		return nil, fmt.Errorf("template name must not be empty")
	}
	if tf.DueDays <= 0 {
		tf.DueDays = 14
	}
	if tf.Calculator == "" {
		tf.Calculator = "default"
	}
	if tf.NumberGenerator == "" {
		tf.NumberGenerator = "default"
	}

	return &model.InvoiceTemplate{
		Name:            tf.Name,
		Title:           tf.Title,
		Company:         tf.Company,
		VATID:           tf.VATID,
		Address:         tf.Address,
		Contact:         tf.Contact,
		DueDays:         tf.DueDays,
		VAT:             tf.VAT,
		Calculator:      tf.Calculator,
		NumberGenerator: tf.NumberGenerator,
		NumberPattern:   tf.NumberPattern,
		Renderer:        tf.Renderer,
		PaymentTerms:    tf.PaymentTerms,
		PaymentDetails:  tf.PaymentDetails,
		OwnerID:         ownerID,
	}, nil
}

func (ctrl *controller) templateList(c echo.Context) error {
	m := ctrl.defaultResponseMap(c, "Rechnungsvorlagen")
	ownerID := c.Get("ownerid").(uint)
	templates, err := ctrl.model.ListTemplates(ownerID)
	if err != nil {
		return ErrInvalid(err, "Fehler beim Laden der Rechnungsvorlagen")
	}
	m["templates"] = templates
	return c.Render(http.StatusOK, "templatelist.html", m)
}

func (ctrl *controller) templateEdit(c echo.Context) error {
	ownerID := c.Get("ownerid").(uint)
	isNew := c.Param("id") == ""

	switch c.Request().Method {
	case http.MethodGet:
		title := "Rechnungsvorlage bearbeiten"
		t := &model.InvoiceTemplate{DueDays: 14, Calculator: "default", NumberGenerator: "default"}
		if isNew {
			title = "Neue Rechnungsvorlage"
		} else {
			var err error
			if t, err = ctrl.model.LoadTemplate(c.Param("id"), ownerID); err != nil {
				return ErrNotFound(err)
			}
		}
		m := ctrl.defaultResponseMap(c, title)
		m["template"] = t
		m["documents"] = ctrl.invoices.Documents().All()
		if isNew {
			m["action"] = "/invoice/template/new"
		} else {
			m["action"] = "/invoice/template/edit/" + c.Param("id")
		}
		m["submit"] = "Vorlage speichern"
		m["cancel"] = "/invoice/template"
		return c.Render(http.StatusOK, "templateedit.html", m)

	case http.MethodPost:
		t, err := bindTemplate(c)
		if err != nil {
			return ErrInvalid(err, "Fehler beim Verarbeiten der Eingabedaten")
		}
		if !isNew {
			existing, err := ctrl.model.LoadTemplate(c.Param("id"), ownerID)
			if err != nil {
				return ErrNotFound(err)
			}
			t.ID = existing.ID
		}
		if err = ctrl.model.SaveTemplate(t, ownerID); err != nil {
			return ErrInvalid(err, "Fehler beim Speichern der Rechnungsvorlage")
		}
		_ = AddFlash(c, "success", "Vorlage "+t.Name+" wurde gespeichert.")
		return c.Redirect(http.StatusSeeOther, "/invoice/template")
	}
	return nil
}

// templateCopy opens the edit form pre-filled with a copy of an existing
// template. Nothing is stored until the form is submitted, canceling leaves
// no record behind.
func (ctrl *controller) templateCopy(c echo.Context) error {
	ownerID := c.Get("ownerid").(uint)
	t, err := ctrl.model.LoadTemplate(c.Param("id"), ownerID)
	if err != nil {
		return ErrNotFound(err)
	}
	m := ctrl.defaultResponseMap(c, "Neue Rechnungsvorlage")
	m["template"] = t.Copy()
	m["documents"] = ctrl.invoices.Documents().All()
	m["action"] = "/invoice/template/new"
	m["submit"] = "Vorlage speichern"
	m["cancel"] = "/invoice/template"
	return c.Render(http.StatusOK, "templateedit.html", m)
}

func (ctrl *controller) templateDelete(c echo.Context) error {
	ownerID := c.Get("ownerid").(uint)
	t, err := ctrl.model.LoadTemplate(c.Param("id"), ownerID)
	if err != nil {
		return ErrNotFound(err)
	}
	if err = ctrl.model.RemoveTemplate(t, ownerID); err != nil {
		if errors.Is(err, model.ErrTemplateInUse) {
			_ = AddFlash(c, "warning", "Die Vorlage wird noch von Rechnungen verwendet und kann nicht gelöscht werden.")
			return c.Redirect(http.StatusSeeOther, "/invoice/template")
		}
		return ErrInvalid(err, "Fehler beim Löschen der Rechnungsvorlage")
	}
	_ = AddFlash(c, "success", "Vorlage "+t.Name+" wurde gelöscht.")
	return c.Redirect(http.StatusSeeOther, "/invoice/template")
}
