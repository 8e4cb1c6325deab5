package controller

import (
	"encoding/gob"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path"
	"strings"
	"time"

	"github.com/billingcat/timetrack/invoice"
	"github.com/billingcat/timetrack/model"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/shopspring/decimal"
	"github.com/xeonx/timeago"
)

type Flash struct {
	Kind    string // "success" | "error" | "warning" | "info"
	Message string
}

// FlashLoader zieht Flashes aus der Session (und leert sie) und legt sie in echo.Context.
func FlashLoader(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		sess, _ := session.Get("session", c)
		raw := sess.Flashes() // liest & leert
		_ = sess.Save(c.Request(), c.Response())

		flashes := make([]Flash, 0, len(raw))
		for _, it := range raw {
			if f, ok := it.(Flash); ok {
				flashes = append(flashes, f)
			}
		}
		c.Set("flashes", flashes)
		return next(c)
	}
}

// AddFlash setzt eine Flash-Message (nutzt Gorilla Sessions via echo-contrib/session).
func AddFlash(c echo.Context, kind, msg string) error {
	sess, _ := session.Get("session", c)
	sess.AddFlash(Flash{Kind: kind, Message: msg})
	if err := sess.Save(c.Request(), c.Response()); err != nil {
		return ErrInvalid(err, "Fehler beim Speichern der Session")
	}
	return nil
}

type appError struct {
	Code   string // stabiler, interner Fehlercode für Ops/Support
	Status int    // passender HTTP-Status
	Err    error  // ursprünglicher Fehler (wird nie an den Client gegeben)
	Public string // sicherer Text für Nutzer (optional)
}

func (e *appError) Error() string { return fmt.Sprintf("%s: %v", e.Code, e.Err) }
func (e *appError) Unwrap() error { return e.Err }

// Hilfsfunktionen zum Bauen typischer Fehler
func ErrNotFound(err error) *appError {
	return &appError{Code: "NOT_FOUND", Status: http.StatusNotFound, Err: err}
}
func ErrInvalid(err error, public string) *appError {
	return &appError{Code: "INVALID_INPUT", Status: http.StatusBadRequest, Err: err, Public: public}
}
func ErrInternal(err error) *appError {
	return &appError{Code: "INTERNAL", Status: http.StatusInternalServerError, Err: err}
}

var (
	timeagoGerman = timeago.NoMax(timeago.German)
)

// The Template interface implements rendering functionality for echo.
type Template struct {
	templates *template.Template
}

// Render is the echo way of rendering templates.
func (t *Template) Render(w io.Writer, name string, data interface{}, _ echo.Context) error {
	return t.templates.ExecuteTemplate(w, name, data)
}

type controller struct {
	model    *model.ZeitDatenbank
	invoices *invoice.Service
}

func (ctrl *controller) defaultResponseMap(c echo.Context, title string) map[string]any {
	responseMap := map[string]any{
		"title":    title,
		"loggedin": false,
		"path":     c.Request().URL.Path,
	}

	if flashes, ok := c.Get("flashes").([]Flash); ok {
		responseMap["flashes"] = flashes
	} else {
		responseMap["flashes"] = []Flash{}
	}

	if t := c.Get(middleware.DefaultCSRFConfig.ContextKey); t != nil {
		responseMap["CSRFToken"] = t.(string)
	}

	user := currentUser(c)
	if user == nil {
		return responseMap
	}
	responseMap["uid"] = user.ID
	responseMap["ownerid"] = user.OwnerID
	responseMap["email"] = user.Email
	responseMap["fullname"] = user.FullName
	responseMap["loggedin"] = true
	responseMap["canCreateInvoice"] = user.Can(model.PermCreateInvoice)
	responseMap["canManageTemplate"] = user.Can(model.PermManageTemplate)
	responseMap["canUploadTemplate"] = user.Can(model.PermUploadTemplate)
	responseMap["canInvoiceHistory"] = user.Can(model.PermHistoryInvoice)
	return responseMap
}

func (ctrl *controller) root(c echo.Context) error {
	m := ctrl.defaultResponseMap(c, "Startseite")

	user := currentUser(c)
	if user == nil {
		return c.Render(http.StatusOK, "login.html", m)
	}

	rows, total, err := ctrl.model.FindInvoices(user.OwnerID, nil, nil, 5, 0, "")
	if err != nil {
		return ErrInvalid(err, "Fehler beim Laden der Rechnungen")
	}
	m["invoices"] = rows
	m["invoicecount"] = total
	return c.Render(http.StatusOK, "main.html", m)
}

// buildInvoiceService wires the invoice pipeline: item sources, renderers in
// dispatch order, calculators, number generators and the document repository.
func buildInvoiceService(zdb *model.ZeitDatenbank, logger *slog.Logger) *invoice.Service {
	cfg := zdb.Config
	docs := invoice.NewDocumentRepository(cfg.DocumentDirs()...)
	svc := invoice.NewService(docs, cfg.InvoicePath())

	svc.AddItemRepository(zdb.Timesheets())
	svc.AddItemRepository(zdb.Expenses())

	svc.AddRenderer(invoice.HTMLRenderer{})
	svc.AddRenderer(invoice.CSVRenderer{})
	svc.AddRenderer(invoice.XLSXRenderer{})
	svc.AddRenderer(invoice.EInvoiceRenderer{})
	svc.AddRenderer(invoice.PDFRenderer{
		Address:  cfg.PublishingServerAddress,
		Username: cfg.PublishingServerUsername,
		Logger:   logger,
	})

	svc.AddCalculator(invoice.DefaultCalculator{})
	svc.AddCalculator(invoice.ShortCalculator{})

	svc.AddNumberGenerator(invoice.DateNumberGenerator{})
	svc.AddNumberGenerator(invoice.PatternNumberGenerator{Counters: zdb})

	return svc
}

// NewController ist der Einstiegspunkt.
func NewController(zdb *model.ZeitDatenbank) error {
	// Environment-gesteuerte Log-Details
	// Prod: JSON, Info+; Dev: Text, Debug
	var logger *slog.Logger
	if zdb.Config.Mode == "development" {
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	} else {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	gob.Register(Flash{})
	var templateFunc = template.FuncMap{
		"htmldate": func(in time.Time) string {
			return in.Format("2006-01-02")
		},
		"userdate": func(in time.Time) string {
			return in.Format("02.01.2006")
		},
		"timeago": func(in time.Time) string {
			return timeagoGerman.Format(in)
		},
		"rounddecimal": func(in decimal.Decimal) string {
			return in.Round(2).StringFixed(2)
		},
		"duration": func(seconds int64) string {
			return fmt.Sprintf("%d:%02d", seconds/3600, (seconds%3600)/60)
		},
		"invoiceStatus": func(in model.InvoiceStatus) string {
			status := map[model.InvoiceStatus]string{
				model.InvoiceStatusNew:     "Neu",
				model.InvoiceStatusPending: "Offen",
				model.InvoiceStatusPaid:    "Bezahlt",
			}
			if desc, ok := status[in]; ok {
				return desc
			}
			return "unbekannt"
		},
		"itemtype": func(in string) string {
			itemtype := map[string]string{
				"timesheet": "Zeiterfassung",
				"expense":   "Auslage",
			}
			if desc, ok := itemtype[in]; ok {
				return desc
			}
			return in
		},
		"array": func(els ...any) []any {
			return els
		},
		"fmtTime": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("02.01.2006 15:04")
		},
		"now":    time.Now,
		"before": func(a, b time.Time) bool { return a.Before(b) },
		"isOpen": func(s model.InvoiceStatus) bool {
			return s == model.InvoiceStatusPending
		}}

	tmpl := &Template{
		templates: template.Must(template.New("t").Funcs(templateFunc).ParseGlob("public/views/*.html")),
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Pre(middleware.MethodOverrideWithConfig(middleware.MethodOverrideConfig{
		Getter: middleware.MethodFromForm("_method"),
	}))
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.BodyLimit("20M"))
	e.Use(middleware.RequestID()) // adds X-Request-ID
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		DisableStackAll:   false, // only log stack trace
		DisablePrintStack: true,
	}))

	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			req := c.Request()
			res := c.Response()
			rid := res.Header().Get(echo.HeaderXRequestID)

			// Request-scoped Logger bauen und in den Context legen
			reqLogger := logger.With(
				"request_id", rid,
			).WithGroup("http").With(
				"method", req.Method,
				"path", req.URL.Path,
				"remote_ip", c.RealIP(),
			)
			c.Set("logger", reqLogger)

			err := next(c)

			if shouldSkipAccessLog(c) {
				return err
			}
			latency := time.Since(start)

			attrs := []any{
				"status", res.Status,
				"latency_ms", float64(latency.Microseconds()) / 1000.0,
			}

			// Level anhand Status wählen – benutze den request-scoped Logger
			switch {
			case res.Status >= 500:
				reqLogger.Error("http_request", attrs...)
			case res.Status >= 400:
				reqLogger.Warn("http_request", attrs...)
			default:
				reqLogger.Info("http_request", attrs...)
			}
			return err
		}
	})

	// Eigener HTTPErrorHandler: intern alles loggen, extern nur sichere Payload
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		l, _ := c.Get("logger").(*slog.Logger)
		if l == nil {
			l = logger
		}

		var ae *appError
		var he *echo.HTTPError
		switch {
		case errors.As(err, &ae):
			// schon unsere appError
		case errors.As(err, &he):
			// Nur 4xx-Mitteilungen an Nutzer durchlassen; 5xx maskieren
			public := ""
			if he.Code >= 400 && he.Code < 500 {
				public = fmt.Sprint(he.Message)
			}
			ae = &appError{
				Code:   httpStatusToCode(he.Code),
				Status: he.Code,
				Err:    fmt.Errorf("%v", he.Message),
				Public: public,
			}
		case errors.Is(err, echo.ErrNotFound):
			ae = ErrNotFound(err)
		case errors.Is(err, echo.ErrMethodNotAllowed):
			ae = &appError{Code: "METHOD_NOT_ALLOWED", Status: http.StatusMethodNotAllowed, Err: err}
		default:
			ae = ErrInternal(err)
		}

		attrs := []any{
			"status", ae.Status,
			"code", ae.Code,
			"error", ae.Err.Error(),
		}
		if ae.Status >= 500 {
			l.Error("handler_error", attrs...)
		} else {
			l.Warn("handler_error", attrs...)
		}

		if wantsHTML(c.Request()) {
			kind := "error"
			if ae.Status >= 400 && ae.Status < 500 {
				kind = "warning"
			}
			if err = AddFlash(c, kind, userMessage(ae)); err != nil {
				// Nur Loggen, weil wir eh schon im Fehler sind
				l.Error("cannot add flash message", "error", err)
			}
			// Redirect (Referer oder Fallback)
			target := c.Request().Referer()
			if target == "" {
				target = "/"
			}
			_ = c.Redirect(http.StatusSeeOther, target)
			return
		}

		_ = c.JSON(ae.Status, map[string]any{
			"error":      userMessage(ae),
			"error_code": ae.Code,
			"request_id": c.Response().Header().Get(echo.HeaderXRequestID),
		})
	}

	store := sessions.NewCookieStore([]byte(zdb.Config.CookieSecret))
	store.Options = &sessions.Options{
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		// Secure: true, // in PROD mit HTTPS aktivieren
	}
	e.Use(session.Middleware(store))
	e.Use(FlashLoader)
	e.Use(middleware.CSRFWithConfig(middleware.CSRFConfig{
		TokenLength:    32,
		TokenLookup:    "form:csrf,header:X-CSRF-Token",
		CookieName:     "csrf",
		CookiePath:     "/",
		CookieHTTPOnly: true,
		CookieSameSite: http.SameSiteLaxMode,
		// CookieSecure: true, // in PROD mit HTTPS aktivieren
		Skipper: func(c echo.Context) bool {
			return c.Request().Method == http.MethodPost && strings.HasPrefix(c.Path(), "/login")
		},
	}))

	e.Renderer = tmpl
	ctrl := controller{
		model:    zdb,
		invoices: buildInvoiceService(zdb, logger),
	}
	if to := zdb.Config.MailInvoiceCopyTo; to != "" {
		ctrl.invoices.OnPostRender(ctrl.invoiceMailListener(to, logger))
	}

	e.GET("/", ctrl.root, ctrl.authMiddleware)
	e.GET("/login", ctrl.login)
	e.POST("/login", ctrl.login)
	e.GET("/logout", ctrl.logout)

	e.Static("/static", "static")
	ctrl.invoiceInit(e)
	ctrl.templateInit(e)
	ctrl.documentInit(e)

	if err := e.Start(fmt.Sprintf(":%d", zdb.Config.Port)); err != nil {
		return fmt.Errorf("cannot start application %w", err)
	}
	return nil
}

func userMessage(ae *appError) string {
	if ae.Public != "" {
		return ae.Public
	}
	switch ae.Code {
	case "INVALID_INPUT":
		return "Die Eingabe ist ungültig. Bitte prüfen und erneut senden."
	case "NOT_FOUND":
		return "Die angeforderte Ressource wurde nicht gefunden."
	case "METHOD_NOT_ALLOWED":
		return "Diese HTTP-Methode wird hier nicht unterstützt."
	case "FORBIDDEN":
		return "Dafür fehlt die Berechtigung."
	default:
		return "Es ist ein Fehler aufgetreten. Bitte später erneut versuchen."
	}
}

// kleine Helfer
func wantsHTML(r *http.Request) bool { return strings.Contains(r.Header.Get("Accept"), "text/html") }

func httpStatusToCode(status int) string {
	switch status {
	case 400:
		return "INVALID_INPUT"
	case 401:
		return "UNAUTHORIZED"
	case 403:
		return "FORBIDDEN"
	case 404:
		return "NOT_FOUND"
	case 405:
		return "METHOD_NOT_ALLOWED"
	default:
		if status >= 500 {
			return "INTERNAL"
		}
		return "ERROR"
	}
}

func shouldSkipAccessLog(c echo.Context) bool {
	p := c.Request().URL.Path
	if strings.HasPrefix(p, "/static/") || strings.HasPrefix(p, "/assets/") {
		return true
	}
	switch p {
	case "/favicon.ico", "/robots.txt":
		return true
	}
	ext := strings.ToLower(path.Ext(p))
	switch ext {
	case ".css", ".js", ".map", ".png", ".jpg", ".jpeg", ".svg", ".ico", ".webp":
		return true
	}
	m := c.Request().Method
	if m == http.MethodHead || m == http.MethodOptions {
		return true
	}
	return false
}
